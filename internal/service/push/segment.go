package push

import (
	"context"
	"fmt"
	"time"

	"github.com/zaimgo/marketing-api/internal/model"
	"github.com/zaimgo/marketing-api/internal/repository"
)

// Resolver computes the concrete recipient set for a notification's
// targeting configuration.
type Resolver struct {
	userRepo repository.UserRepository
}

func NewResolver(userRepo repository.UserRepository) *Resolver {
	return &Resolver{userRepo: userRepo}
}

// Resolve returns the deduplicated recipient set for the notification
// at the given instant. Order is unspecified; an empty result is valid
// and yields a no-op send cycle.
//
// A custom selector with an explicit recipient list bypasses the
// consent gate: callers targeting a hand-picked list are expected to
// have pre-filtered it. Every other selector starts from the pool of
// users with both consent flags set.
func (r *Resolver) Resolve(ctx context.Context, n *model.PushNotification, now time.Time) ([]*model.AppUser, error) {
	filter, err := buildFilter(n, now)
	if err != nil {
		return nil, err
	}

	users, err := r.userRepo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve segment %q: %w", n.Segment, err)
	}
	return dedupe(users), nil
}

func buildFilter(n *model.PushNotification, now time.Time) (*model.UserFilter, error) {
	filter := &model.UserFilter{}

	switch n.Segment {
	case model.SegmentCustom:
		if len(n.TargetVKUserIDs) > 0 {
			filter.VKUserIDs = n.TargetVKUserIDs
		} else {
			filter.ConsentedOnly = true
		}
	case model.SegmentAll:
		filter.ConsentedOnly = true
	case model.SegmentActive:
		filter.ConsentedOnly = true
		filter.LastSeenAfter = now.Add(-model.ActiveWindow)
	case model.SegmentInactive:
		filter.ConsentedOnly = true
		filter.LastSeenBefore = now.Add(-model.ActiveWindow)
	case model.SegmentNew:
		filter.ConsentedOnly = true
		filter.FirstSeenAfter = now.Add(-model.NewWindow)
	default:
		return nil, fmt.Errorf("unknown segment %q", n.Segment)
	}

	// Attribute filters apply under every selector.
	filter.CityContains = n.FilterCity
	filter.Sex = n.FilterSex
	filter.UTMSourceContains = n.FilterUTMSource

	return filter, nil
}

func dedupe(users []*model.AppUser) []*model.AppUser {
	seen := make(map[int64]struct{}, len(users))
	out := users[:0]
	for _, u := range users {
		if _, ok := seen[u.VKUserID]; ok {
			continue
		}
		seen[u.VKUserID] = struct{}{}
		out = append(out, u)
	}
	return out
}
