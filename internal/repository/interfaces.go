package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/zaimgo/marketing-api/internal/model"
)

// All repository interfaces in one file
type (
	// UserRepository handles the user directory.
	UserRepository interface {
		Create(ctx context.Context, user *model.AppUser) error
		Update(ctx context.Context, user *model.AppUser) error
		GetByVKUserID(ctx context.Context, vkUserID int64) (*model.AppUser, error)
		List(ctx context.Context, filter *model.UserFilter) ([]*model.AppUser, error)
		UpdateConsent(ctx context.Context, vkUserID int64, enabled, allowed *bool) error
		Stats(ctx context.Context) (*model.UserStats, error)
	}

	// OfferRepository handles the offer catalog.
	OfferRepository interface {
		Create(ctx context.Context, offer *model.Offer) error
		Get(ctx context.Context, id uuid.UUID) (*model.Offer, error)
		Update(ctx context.Context, offer *model.Offer) error
		Delete(ctx context.Context, id uuid.UUID) error
		List(ctx context.Context) ([]*model.Offer, error)
		UpsertByName(ctx context.Context, offer *model.Offer) (created bool, err error)
	}

	// NotificationRepository handles push notification rows and their
	// lifecycle transitions.
	NotificationRepository interface {
		Create(ctx context.Context, n *model.PushNotification) error
		Get(ctx context.Context, id uuid.UUID) (*model.PushNotification, error)
		Update(ctx context.Context, n *model.PushNotification) error
		Delete(ctx context.Context, id uuid.UUID) error
		List(ctx context.Context) ([]*model.PushNotification, error)

		// ClaimForSending flips draft|scheduled to sending in a single
		// conditional update so two concurrent triggers cannot both
		// claim the same notification. ErrNotFound if no such row,
		// ErrInvalidState if it exists in any other status.
		ClaimForSending(ctx context.Context, id uuid.UUID) (*model.PushNotification, error)

		// FinishSending writes the batch totals, sent_at and the
		// terminal sent status.
		FinishSending(ctx context.Context, id uuid.UUID, stats model.DeliveryStats, sentAt time.Time) error

		// MarkFailed moves sending to failed when a batch could not start.
		MarkFailed(ctx context.Context, id uuid.UUID) error

		// Schedule and Unschedule toggle draft and scheduled before a
		// send starts; both are conditional updates.
		Schedule(ctx context.Context, id uuid.UUID, at time.Time) error
		Unschedule(ctx context.Context, id uuid.UUID) error

		// ListDue returns scheduled notifications whose scheduled_for
		// is at or before now.
		ListDue(ctx context.Context, now time.Time) ([]*model.PushNotification, error)
	}

	// DeliveryLogRepository handles per-attempt delivery records.
	DeliveryLogRepository interface {
		Create(ctx context.Context, entry *model.PushLog) error
		ListByNotification(ctx context.Context, notificationID uuid.UUID) ([]*model.PushLog, error)
		Breakdown(ctx context.Context, notificationID uuid.UUID) ([]*model.DeliveryBreakdown, error)

		// MarkClicked flips the most recent entry for the pair to
		// clicked and increments the notification click counter in the
		// same transaction. ErrNotFound if no entry exists.
		MarkClicked(ctx context.Context, notificationID, userID uuid.UUID, at time.Time) (*model.PushLog, error)
	}

	// UTMRepository records and aggregates attribution visits.
	UTMRepository interface {
		CreateVisit(ctx context.Context, visit *model.UTMVisit) error
		Stats(ctx context.Context, from, to time.Time) ([]*model.UTMStat, error)
	}
)
