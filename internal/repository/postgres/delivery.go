package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/zaimgo/marketing-api/internal/model"
	"github.com/zaimgo/marketing-api/internal/repository"
	apperrors "github.com/zaimgo/marketing-api/pkg/errors"
)

type deliveryLogRepository struct {
	BaseRepository
}

func NewDeliveryLogRepository(base BaseRepository) repository.DeliveryLogRepository {
	return &deliveryLogRepository{base}
}

func (r *deliveryLogRepository) Create(ctx context.Context, entry *model.PushLog) error {
	query := `
		INSERT INTO push_logs (
			id, notification_id, user_id, status, error_message,
			sent_at, clicked_at, vk_response
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	entry.ID = uuid.New()
	if entry.SentAt.IsZero() {
		entry.SentAt = time.Now()
	}

	_, err := r.db.ExecContext(ctx, query,
		entry.ID,
		entry.NotificationID,
		entry.UserID,
		entry.Status,
		entry.ErrorMessage,
		entry.SentAt,
		entry.ClickedAt,
		entry.VKResponse,
	)
	if err != nil {
		return fmt.Errorf("failed to create delivery log entry: %w", err)
	}
	return nil
}

func (r *deliveryLogRepository) ListByNotification(ctx context.Context, notificationID uuid.UUID) ([]*model.PushLog, error) {
	var entries []*model.PushLog
	query := `SELECT * FROM push_logs WHERE notification_id = $1 ORDER BY sent_at DESC`
	if err := r.db.SelectContext(ctx, &entries, query, notificationID); err != nil {
		return nil, fmt.Errorf("failed to list delivery log: %w", err)
	}
	return entries, nil
}

func (r *deliveryLogRepository) Breakdown(ctx context.Context, notificationID uuid.UUID) ([]*model.DeliveryBreakdown, error) {
	var breakdown []*model.DeliveryBreakdown
	query := `
		SELECT status, COUNT(*) AS count
		FROM push_logs
		WHERE notification_id = $1
		GROUP BY status
	`
	if err := r.db.SelectContext(ctx, &breakdown, query, notificationID); err != nil {
		return nil, fmt.Errorf("failed to aggregate delivery log: %w", err)
	}
	return breakdown, nil
}

// MarkClicked targets the most recent entry for the pair; older entries
// from previous send cycles stay untouched. The click counter lives on
// the notification row, so both writes share one transaction.
func (r *deliveryLogRepository) MarkClicked(ctx context.Context, notificationID, userID uuid.UUID, at time.Time) (*model.PushLog, error) {
	var entry model.PushLog

	err := r.WithTx(ctx, func(tx *sqlx.Tx) error {
		selectQuery := `
			SELECT * FROM push_logs
			WHERE notification_id = $1 AND user_id = $2
			ORDER BY sent_at DESC
			LIMIT 1
			FOR UPDATE
		`
		if err := tx.GetContext(ctx, &entry, selectQuery, notificationID, userID); err != nil {
			if err == sql.ErrNoRows {
				return apperrors.NotFound("delivery log entry", err)
			}
			return fmt.Errorf("failed to find delivery log entry: %w", err)
		}

		updateQuery := `
			UPDATE push_logs
			SET status = $1, clicked_at = $2
			WHERE id = $3
		`
		if _, err := tx.ExecContext(ctx, updateQuery, model.DeliveryStatusClicked, at, entry.ID); err != nil {
			return fmt.Errorf("failed to mark entry clicked: %w", err)
		}

		counterQuery := `
			UPDATE push_notifications
			SET total_clicked = total_clicked + 1, updated_at = $1
			WHERE id = $2
		`
		if _, err := tx.ExecContext(ctx, counterQuery, at, notificationID); err != nil {
			return fmt.Errorf("failed to increment click counter: %w", err)
		}

		entry.Status = model.DeliveryStatusClicked
		entry.ClickedAt = &at
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &entry, nil
}
