package cache

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const estimateTTL = 5 * time.Minute

// AudienceEstimates keeps short-lived recipient-count snapshots in
// redis so dry-run polls do not re-resolve the segment every time.
// All failures degrade to a cache miss.
type AudienceEstimates struct {
	client *redis.Client
}

func NewAudienceEstimates(url string) (*AudienceEstimates, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return &AudienceEstimates{client: client}, nil
}

func (c *AudienceEstimates) Get(ctx context.Context, id uuid.UUID) (int, bool) {
	val, err := c.client.Get(ctx, key(id)).Result()
	if err != nil {
		if err != redis.Nil {
			log.Warn().Err(err).Msg("audience estimate cache read failed")
		}
		return 0, false
	}
	count, err := strconv.Atoi(val)
	if err != nil {
		return 0, false
	}
	return count, true
}

func (c *AudienceEstimates) Set(ctx context.Context, id uuid.UUID, count int) {
	if err := c.client.Set(ctx, key(id), strconv.Itoa(count), estimateTTL).Err(); err != nil {
		log.Warn().Err(err).Msg("audience estimate cache write failed")
	}
}

func (c *AudienceEstimates) Invalidate(ctx context.Context, id uuid.UUID) {
	if err := c.client.Del(ctx, key(id)).Err(); err != nil {
		log.Warn().Err(err).Msg("audience estimate cache invalidation failed")
	}
}

func (c *AudienceEstimates) Close() error {
	return c.client.Close()
}

func key(id uuid.UUID) string {
	return "audience:estimate:" + id.String()
}
