package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/zaimgo/marketing-api/internal/model"
	"github.com/zaimgo/marketing-api/internal/repository"
	apperrors "github.com/zaimgo/marketing-api/pkg/errors"
)

type offerRepository struct {
	BaseRepository
}

func NewOfferRepository(base BaseRepository) repository.OfferRepository {
	return &offerRepository{base}
}

const offerColumns = `
	id, name, logo_url, link, sum_min, sum_max, term_min, term_max,
	rate, approval_chance, payout_speed_hours,
	requirements, get_methods, repay_methods, created_at, updated_at
`

func (r *offerRepository) Create(ctx context.Context, offer *model.Offer) error {
	query := `
		INSERT INTO offers (` + offerColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`

	now := time.Now()
	offer.ID = uuid.New()
	offer.CreatedAt = now
	offer.UpdatedAt = now

	_, err := r.db.ExecContext(ctx, query, offerArgs(offer)...)
	if err != nil {
		return fmt.Errorf("failed to create offer: %w", err)
	}
	return nil
}

func (r *offerRepository) Get(ctx context.Context, id uuid.UUID) (*model.Offer, error) {
	var offer model.Offer
	if err := r.db.GetContext(ctx, &offer, `SELECT * FROM offers WHERE id = $1`, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, apperrors.NotFound("offer", err)
		}
		return nil, fmt.Errorf("failed to get offer: %w", err)
	}
	return &offer, nil
}

func (r *offerRepository) Update(ctx context.Context, offer *model.Offer) error {
	query := `
		UPDATE offers SET
			name = $2, logo_url = $3, link = $4, sum_min = $5, sum_max = $6,
			term_min = $7, term_max = $8, rate = $9, approval_chance = $10,
			payout_speed_hours = $11, requirements = $12, get_methods = $13,
			repay_methods = $14, updated_at = $16
		WHERE id = $1
	`

	offer.UpdatedAt = time.Now()
	result, err := r.db.ExecContext(ctx, query, offerArgs(offer)...)
	if err != nil {
		return fmt.Errorf("failed to update offer: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return apperrors.NotFound("offer", nil)
	}
	return nil
}

func (r *offerRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM offers WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete offer: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return apperrors.NotFound("offer", nil)
	}
	return nil
}

func (r *offerRepository) List(ctx context.Context) ([]*model.Offer, error) {
	var offers []*model.Offer
	if err := r.db.SelectContext(ctx, &offers, `SELECT * FROM offers ORDER BY name`); err != nil {
		return nil, fmt.Errorf("failed to list offers: %w", err)
	}
	return offers, nil
}

// UpsertByName backs the Excel import: offer names are the operator-facing
// key in the upload workbook.
func (r *offerRepository) UpsertByName(ctx context.Context, offer *model.Offer) (bool, error) {
	query := `
		INSERT INTO offers (` + offerColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		ON CONFLICT (name) DO UPDATE SET
			logo_url = EXCLUDED.logo_url,
			link = EXCLUDED.link,
			sum_min = EXCLUDED.sum_min,
			sum_max = EXCLUDED.sum_max,
			term_min = EXCLUDED.term_min,
			term_max = EXCLUDED.term_max,
			rate = EXCLUDED.rate,
			approval_chance = EXCLUDED.approval_chance,
			payout_speed_hours = EXCLUDED.payout_speed_hours,
			requirements = EXCLUDED.requirements,
			get_methods = EXCLUDED.get_methods,
			repay_methods = EXCLUDED.repay_methods,
			updated_at = EXCLUDED.updated_at
		RETURNING (xmax = 0) AS inserted
	`

	now := time.Now()
	offer.ID = uuid.New()
	offer.CreatedAt = now
	offer.UpdatedAt = now

	var inserted bool
	if err := r.db.GetContext(ctx, &inserted, query, offerArgs(offer)...); err != nil {
		return false, fmt.Errorf("failed to upsert offer: %w", err)
	}
	return inserted, nil
}

func offerArgs(offer *model.Offer) []interface{} {
	return []interface{}{
		offer.ID,
		offer.Name,
		offer.LogoURL,
		offer.Link,
		offer.SumMin,
		offer.SumMax,
		offer.TermMin,
		offer.TermMax,
		offer.Rate,
		offer.ApprovalChance,
		offer.PayoutSpeedHours,
		offer.Requirements,
		offer.GetMethods,
		offer.RepayMethods,
		offer.CreatedAt,
		offer.UpdatedAt,
	}
}
