package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/zaimgo/marketing-api/internal/model"
	"github.com/zaimgo/marketing-api/internal/repository"
)

type utmRepository struct {
	BaseRepository
}

func NewUTMRepository(base BaseRepository) repository.UTMRepository {
	return &utmRepository{base}
}

func (r *utmRepository) CreateVisit(ctx context.Context, visit *model.UTMVisit) error {
	query := `
		INSERT INTO utm_visits (
			id, vk_user_id, utm_source, utm_campaign, utm_content,
			ad_id, ip, user_agent, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	visit.ID = uuid.New()
	if visit.CreatedAt.IsZero() {
		visit.CreatedAt = time.Now()
	}

	_, err := r.db.ExecContext(ctx, query,
		visit.ID,
		visit.VKUserID,
		visit.UTMSource,
		visit.UTMCampaign,
		visit.UTMContent,
		visit.AdID,
		visit.IP,
		visit.UserAgent,
		visit.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record utm visit: %w", err)
	}
	return nil
}

func (r *utmRepository) Stats(ctx context.Context, from, to time.Time) ([]*model.UTMStat, error) {
	query := `
		SELECT
			COALESCE(NULLIF(utm_source, ''), 'organic') AS utm_source,
			utm_campaign,
			COUNT(*) AS visits,
			COUNT(DISTINCT vk_user_id) AS users
		FROM utm_visits
		WHERE created_at >= $1 AND created_at < $2
		GROUP BY 1, 2
		ORDER BY visits DESC
	`

	var stats []*model.UTMStat
	if err := r.db.SelectContext(ctx, &stats, query, from, to); err != nil {
		return nil, fmt.Errorf("failed to aggregate utm stats: %w", err)
	}
	return stats, nil
}
