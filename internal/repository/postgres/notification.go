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

type notificationRepository struct {
	BaseRepository
}

func NewNotificationRepository(base BaseRepository) repository.NotificationRepository {
	return &notificationRepository{base}
}

func (r *notificationRepository) Create(ctx context.Context, n *model.PushNotification) error {
	query := `
		INSERT INTO push_notifications (
			id, title, message, segment, target_vk_user_ids,
			filter_city, filter_sex, filter_utm_source,
			action_url, action_type, status, scheduled_for,
			total_sent, total_delivered, total_failed, total_clicked,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, 0, 0, 0, 0, $13, $14)
	`

	now := time.Now()
	n.ID = uuid.New()
	n.CreatedAt = now
	n.UpdatedAt = now
	if n.Status == "" {
		n.Status = model.NotificationStatusDraft
	}

	_, err := r.db.ExecContext(ctx, query,
		n.ID,
		n.Title,
		n.Message,
		n.Segment,
		n.TargetVKUserIDs,
		n.FilterCity,
		n.FilterSex,
		n.FilterUTMSource,
		n.ActionURL,
		n.ActionType,
		n.Status,
		n.ScheduledFor,
		n.CreatedAt,
		n.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}
	return nil
}

func (r *notificationRepository) Get(ctx context.Context, id uuid.UUID) (*model.PushNotification, error) {
	query := `SELECT * FROM push_notifications WHERE id = $1`

	var n model.PushNotification
	if err := r.db.GetContext(ctx, &n, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, apperrors.NotFound("notification", err)
		}
		return nil, fmt.Errorf("failed to get notification: %w", err)
	}
	return &n, nil
}

// Update rewrites content and targeting only; lifecycle fields are
// owned by the transition methods below.
func (r *notificationRepository) Update(ctx context.Context, n *model.PushNotification) error {
	query := `
		UPDATE push_notifications SET
			title = $1,
			message = $2,
			segment = $3,
			target_vk_user_ids = $4,
			filter_city = $5,
			filter_sex = $6,
			filter_utm_source = $7,
			action_url = $8,
			action_type = $9,
			updated_at = $10
		WHERE id = $11 AND status IN ('draft', 'scheduled')
	`

	n.UpdatedAt = time.Now()
	result, err := r.db.ExecContext(ctx, query,
		n.Title,
		n.Message,
		n.Segment,
		n.TargetVKUserIDs,
		n.FilterCity,
		n.FilterSex,
		n.FilterUTMSource,
		n.ActionURL,
		n.ActionType,
		n.UpdatedAt,
		n.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update notification: %w", err)
	}
	return r.requireRow(ctx, result, n.ID)
}

func (r *notificationRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM push_notifications WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete notification: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return apperrors.NotFound("notification", nil)
	}
	return nil
}

func (r *notificationRepository) List(ctx context.Context) ([]*model.PushNotification, error) {
	var ns []*model.PushNotification
	query := `SELECT * FROM push_notifications ORDER BY created_at DESC`
	if err := r.db.SelectContext(ctx, &ns, query); err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	return ns, nil
}

// ClaimForSending performs the draft|scheduled -> sending transition as
// one conditional update. The RETURNING row is the claimed snapshot; a
// concurrent trigger loses the race and sees zero rows.
func (r *notificationRepository) ClaimForSending(ctx context.Context, id uuid.UUID) (*model.PushNotification, error) {
	query := `
		UPDATE push_notifications
		SET status = 'sending', updated_at = $1
		WHERE id = $2 AND status IN ('draft', 'scheduled')
		RETURNING *
	`

	var n model.PushNotification
	err := r.db.GetContext(ctx, &n, query, time.Now(), id)
	if err == nil {
		return &n, nil
	}
	if err != sql.ErrNoRows {
		return nil, fmt.Errorf("failed to claim notification: %w", err)
	}

	// Zero rows: missing row and wrong starting state are different
	// client errors.
	if _, getErr := r.Get(ctx, id); getErr != nil {
		return nil, getErr
	}
	return nil, apperrors.InvalidState("notification already processed")
}

func (r *notificationRepository) FinishSending(ctx context.Context, id uuid.UUID, stats model.DeliveryStats, sentAt time.Time) error {
	query := `
		UPDATE push_notifications
		SET status = 'sent',
			total_sent = $1,
			total_delivered = $2,
			total_failed = $3,
			sent_at = $4,
			updated_at = $4
		WHERE id = $5 AND status = 'sending'
	`

	result, err := r.db.ExecContext(ctx, query, stats.Sent, stats.Delivered, stats.Failed, sentAt, id)
	if err != nil {
		return fmt.Errorf("failed to finish sending: %w", err)
	}
	return r.requireRow(ctx, result, id)
}

func (r *notificationRepository) MarkFailed(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE push_notifications
		SET status = 'failed', updated_at = $1
		WHERE id = $2 AND status = 'sending'
	`
	result, err := r.db.ExecContext(ctx, query, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to mark notification failed: %w", err)
	}
	return r.requireRow(ctx, result, id)
}

func (r *notificationRepository) Schedule(ctx context.Context, id uuid.UUID, at time.Time) error {
	query := `
		UPDATE push_notifications
		SET status = 'scheduled', scheduled_for = $1, updated_at = $2
		WHERE id = $3 AND status IN ('draft', 'scheduled')
	`
	result, err := r.db.ExecContext(ctx, query, at, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to schedule notification: %w", err)
	}
	return r.requireRow(ctx, result, id)
}

func (r *notificationRepository) Unschedule(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE push_notifications
		SET status = 'draft', scheduled_for = NULL, updated_at = $1
		WHERE id = $2 AND status = 'scheduled'
	`
	result, err := r.db.ExecContext(ctx, query, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to unschedule notification: %w", err)
	}
	return r.requireRow(ctx, result, id)
}

func (r *notificationRepository) ListDue(ctx context.Context, now time.Time) ([]*model.PushNotification, error) {
	var ns []*model.PushNotification
	query := `
		SELECT * FROM push_notifications
		WHERE status = 'scheduled' AND scheduled_for <= $1
		ORDER BY scheduled_for
	`
	if err := r.db.SelectContext(ctx, &ns, query, now); err != nil {
		return nil, fmt.Errorf("failed to list due notifications: %w", err)
	}
	return ns, nil
}

// requireRow distinguishes a missing notification from one in a
// non-matching status after a conditional update touched zero rows.
func (r *notificationRepository) requireRow(ctx context.Context, result sql.Result, id uuid.UUID) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows > 0 {
		return nil
	}
	if _, err := r.Get(ctx, id); err != nil {
		return err
	}
	return apperrors.InvalidState("notification already processed")
}
