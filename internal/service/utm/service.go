package utm

import (
	"context"
	"fmt"
	"time"

	"github.com/zaimgo/marketing-api/internal/model"
	"github.com/zaimgo/marketing-api/internal/repository"
	apperrors "github.com/zaimgo/marketing-api/pkg/errors"
)

type Servicer interface {
	Track(ctx context.Context, visit *model.UTMVisit) error
	Stats(ctx context.Context, from, to time.Time) ([]*model.UTMStat, error)
}

type Service struct {
	repo repository.UTMRepository
}

func NewService(repo repository.UTMRepository) *Service {
	return &Service{repo: repo}
}

// Track records one attributed mini-app open. Visits without any
// attribution at all still count toward the organic bucket.
func (s *Service) Track(ctx context.Context, visit *model.UTMVisit) error {
	if visit.VKUserID == 0 {
		return apperrors.BadRequest("vk_user_id is required", nil)
	}
	if err := s.repo.CreateVisit(ctx, visit); err != nil {
		return fmt.Errorf("failed to track visit: %w", err)
	}
	return nil
}

// Stats aggregates visits by source and campaign over [from, to).
// A zero range defaults to the last 30 days.
func (s *Service) Stats(ctx context.Context, from, to time.Time) ([]*model.UTMStat, error) {
	if to.IsZero() {
		to = time.Now()
	}
	if from.IsZero() {
		from = to.AddDate(0, 0, -30)
	}
	if !from.Before(to) {
		return nil, apperrors.BadRequest("invalid date range", nil)
	}
	return s.repo.Stats(ctx, from, to)
}
