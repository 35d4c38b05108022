package offer

import (
	"context"
	"fmt"
	"io"

	"github.com/google/uuid"

	"github.com/zaimgo/marketing-api/internal/model"
	"github.com/zaimgo/marketing-api/internal/repository"
	apperrors "github.com/zaimgo/marketing-api/pkg/errors"
)

// ImportSummary reports the outcome of one workbook upload.
type ImportSummary struct {
	Created int      `json:"created"`
	Updated int      `json:"updated"`
	Skipped int      `json:"skipped"`
	Errors  []string `json:"errors,omitempty"`
}

type Servicer interface {
	Create(ctx context.Context, offer *model.Offer) error
	Get(ctx context.Context, id uuid.UUID) (*model.Offer, error)
	Update(ctx context.Context, offer *model.Offer) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context) ([]*model.Offer, error)
	ImportWorkbook(ctx context.Context, r io.Reader) (*ImportSummary, error)
	Template() ([]byte, error)
}

type Service struct {
	repo repository.OfferRepository
}

func NewService(repo repository.OfferRepository) *Service {
	return &Service{repo: repo}
}

func (s *Service) Create(ctx context.Context, offer *model.Offer) error {
	if err := validateOffer(offer); err != nil {
		return apperrors.BadRequest(err.Error(), err)
	}
	if err := s.repo.Create(ctx, offer); err != nil {
		return fmt.Errorf("failed to create offer: %w", err)
	}
	return nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*model.Offer, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) Update(ctx context.Context, offer *model.Offer) error {
	if err := validateOffer(offer); err != nil {
		return apperrors.BadRequest(err.Error(), err)
	}
	return s.repo.Update(ctx, offer)
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.repo.Delete(ctx, id)
}

func (s *Service) List(ctx context.Context) ([]*model.Offer, error) {
	return s.repo.List(ctx)
}

func validateOffer(offer *model.Offer) error {
	if offer.Name == "" {
		return fmt.Errorf("name is required")
	}
	if offer.Link == "" {
		return fmt.Errorf("link is required")
	}
	if offer.SumMin > offer.SumMax {
		return fmt.Errorf("sum_min exceeds sum_max")
	}
	if offer.TermMin > offer.TermMax {
		return fmt.Errorf("term_min exceeds term_max")
	}
	return nil
}
