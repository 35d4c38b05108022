package push

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/zaimgo/marketing-api/internal/model"
	"github.com/zaimgo/marketing-api/internal/repository"
	apperrors "github.com/zaimgo/marketing-api/pkg/errors"
	"github.com/zaimgo/marketing-api/pkg/metrics"
)

// Sender is the external push-send capability. SendMessage returns the
// raw provider response document alongside the outcome; a nil error
// means the provider acknowledged the notification.
type Sender interface {
	Ready() error
	SendMessage(ctx context.Context, vkUserID int64, message, fragment string) (json.RawMessage, error)
}

// EstimateCache caches resolved recipient counts for dry-run estimates.
type EstimateCache interface {
	Get(ctx context.Context, id uuid.UUID) (int, bool)
	Set(ctx context.Context, id uuid.UUID, count int)
	Invalidate(ctx context.Context, id uuid.UUID)
}

// Servicer is the push pipeline surface consumed by handlers and the
// scheduler trigger.
type Servicer interface {
	Create(ctx context.Context, n *model.PushNotification) error
	Get(ctx context.Context, id uuid.UUID) (*model.PushNotification, error)
	Update(ctx context.Context, n *model.PushNotification) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context) ([]*model.PushNotification, error)
	Schedule(ctx context.Context, id uuid.UUID, at time.Time) error
	Unschedule(ctx context.Context, id uuid.UUID) error
	Send(ctx context.Context, id uuid.UUID) (*model.DeliveryStats, error)
	RecipientCount(ctx context.Context, id uuid.UUID) (int, error)
	RegisterClick(ctx context.Context, vkUserID int64, notificationID uuid.UUID) error
	Stats(ctx context.Context, id uuid.UUID) (*NotificationStats, error)
	ListDue(ctx context.Context, now time.Time) ([]*model.PushNotification, error)
}

// NotificationStats combines the denormalized counters with the
// delivery-log breakdown.
type NotificationStats struct {
	Notification *model.PushNotification    `json:"notification"`
	Breakdown    []*model.DeliveryBreakdown `json:"breakdown"`
}

type Service struct {
	notifRepo repository.NotificationRepository
	logRepo   repository.DeliveryLogRepository
	userRepo  repository.UserRepository
	resolver  *Resolver
	sender    Sender
	estimates EstimateCache
	metrics   *metrics.Metrics
}

func NewService(
	notifRepo repository.NotificationRepository,
	logRepo repository.DeliveryLogRepository,
	userRepo repository.UserRepository,
	sender Sender,
	estimates EstimateCache,
	m *metrics.Metrics,
) *Service {
	return &Service{
		notifRepo: notifRepo,
		logRepo:   logRepo,
		userRepo:  userRepo,
		resolver:  NewResolver(userRepo),
		sender:    sender,
		estimates: estimates,
		metrics:   m,
	}
}

func (s *Service) Create(ctx context.Context, n *model.PushNotification) error {
	if err := validateNotification(n); err != nil {
		return apperrors.BadRequest(err.Error(), err)
	}
	n.Status = model.NotificationStatusDraft
	if err := s.notifRepo.Create(ctx, n); err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}
	return nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*model.PushNotification, error) {
	return s.notifRepo.Get(ctx, id)
}

func (s *Service) Update(ctx context.Context, n *model.PushNotification) error {
	if err := validateNotification(n); err != nil {
		return apperrors.BadRequest(err.Error(), err)
	}
	if err := s.notifRepo.Update(ctx, n); err != nil {
		return err
	}
	s.invalidateEstimate(ctx, n.ID)
	return nil
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.notifRepo.Delete(ctx, id); err != nil {
		return err
	}
	s.invalidateEstimate(ctx, id)
	return nil
}

func (s *Service) List(ctx context.Context) ([]*model.PushNotification, error) {
	return s.notifRepo.List(ctx)
}

func (s *Service) Schedule(ctx context.Context, id uuid.UUID, at time.Time) error {
	if at.IsZero() {
		return apperrors.BadRequest("scheduled_for is required", nil)
	}
	return s.notifRepo.Schedule(ctx, id, at)
}

func (s *Service) Unschedule(ctx context.Context, id uuid.UUID) error {
	return s.notifRepo.Unschedule(ctx, id)
}

func (s *Service) ListDue(ctx context.Context, now time.Time) ([]*model.PushNotification, error) {
	return s.notifRepo.ListDue(ctx, now)
}

// Send runs one synchronous send cycle: claim, resolve, deliver to each
// recipient in turn, log every attempt, then write the batch totals.
//
// Provider failures are per-recipient and never abort the loop; the
// terminal status is sent even when every delivery failed, with failure
// visible only through the counters. Only a missing notification, a
// wrong starting state, a missing credential or a resolver fault aborts
// the cycle before any attempt.
func (s *Service) Send(ctx context.Context, id uuid.UUID) (*model.DeliveryStats, error) {
	started := time.Now()

	n, err := s.notifRepo.ClaimForSending(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.sender.Ready(); err != nil {
		s.abortBatch(ctx, id, err)
		return nil, err
	}

	recipients, err := s.resolver.Resolve(ctx, n, started)
	if err != nil {
		s.abortBatch(ctx, id, err)
		return nil, err
	}

	stats := model.DeliveryStats{Total: len(recipients)}
	for _, user := range recipients {
		entry := &model.PushLog{
			NotificationID: n.ID,
			UserID:         user.ID,
			SentAt:         time.Now(),
		}

		raw, sendErr := s.sender.SendMessage(ctx, user.VKUserID, n.Message, n.ActionURL)
		entry.VKResponse = raw
		if sendErr != nil {
			entry.Status = model.DeliveryStatusFailed
			entry.ErrorMessage = errorDetail(sendErr)
			stats.Failed++
			s.countDelivery(false)
			log.Warn().
				Err(sendErr).
				Str("notification_id", n.ID.String()).
				Int64("vk_user_id", user.VKUserID).
				Msg("push delivery failed")
		} else {
			// VK reports no separate delivered confirmation, so a
			// provider success is logged as delivered outright.
			entry.Status = model.DeliveryStatusDelivered
			stats.Sent++
			stats.Delivered++
			s.countDelivery(true)
		}

		if err := s.logRepo.Create(ctx, entry); err != nil {
			log.Error().
				Err(err).
				Str("notification_id", n.ID.String()).
				Int64("vk_user_id", user.VKUserID).
				Msg("failed to write delivery log entry")
		}
	}

	if err := s.notifRepo.FinishSending(ctx, id, stats, time.Now()); err != nil {
		return nil, fmt.Errorf("failed to finalize send cycle: %w", err)
	}

	s.invalidateEstimate(ctx, id)
	if s.metrics != nil {
		s.metrics.NotificationsProcessed.Inc()
		s.metrics.BatchDuration.Observe(time.Since(started).Seconds())
		s.metrics.RecipientsPerBatch.Observe(float64(stats.Total))
	}

	log.Info().
		Str("notification_id", n.ID.String()).
		Int("total", stats.Total).
		Int("delivered", stats.Delivered).
		Int("failed", stats.Failed).
		Msg("send cycle finished")

	return &stats, nil
}

// RecipientCount resolves the would-be recipient set without sending.
// Counts are cached briefly so repeated dry-run polls stay cheap.
func (s *Service) RecipientCount(ctx context.Context, id uuid.UUID) (int, error) {
	if s.estimates != nil {
		if count, ok := s.estimates.Get(ctx, id); ok {
			return count, nil
		}
	}

	n, err := s.notifRepo.Get(ctx, id)
	if err != nil {
		return 0, err
	}

	recipients, err := s.resolver.Resolve(ctx, n, time.Now())
	if err != nil {
		return 0, err
	}

	if s.estimates != nil {
		s.estimates.Set(ctx, id, len(recipients))
	}
	return len(recipients), nil
}

// RegisterClick attributes a click callback to the most recent delivery
// for the (notification, user) pair. Each call increments the click
// counter once; repeat clicks are intentionally not deduplicated.
func (s *Service) RegisterClick(ctx context.Context, vkUserID int64, notificationID uuid.UUID) error {
	user, err := s.userRepo.GetByVKUserID(ctx, vkUserID)
	if err != nil {
		return err
	}

	if _, err := s.logRepo.MarkClicked(ctx, notificationID, user.ID, time.Now()); err != nil {
		return err
	}

	if s.metrics != nil {
		s.metrics.ClicksRegistered.Inc()
	}
	return nil
}

func (s *Service) Stats(ctx context.Context, id uuid.UUID) (*NotificationStats, error) {
	n, err := s.notifRepo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	breakdown, err := s.logRepo.Breakdown(ctx, id)
	if err != nil {
		return nil, err
	}
	return &NotificationStats{Notification: n, Breakdown: breakdown}, nil
}

// abortBatch moves a freshly claimed notification to failed when the
// batch could not start. No log entries exist at this point.
func (s *Service) abortBatch(ctx context.Context, id uuid.UUID, cause error) {
	if s.metrics != nil {
		s.metrics.NotificationsFailed.Inc()
	}
	if err := s.notifRepo.MarkFailed(ctx, id); err != nil {
		log.Error().Err(err).Str("notification_id", id.String()).Msg("failed to mark notification failed")
	}
	log.Error().Err(cause).Str("notification_id", id.String()).Msg("send cycle aborted before first attempt")
}

func (s *Service) countDelivery(ok bool) {
	if s.metrics == nil {
		return
	}
	if ok {
		s.metrics.DeliveriesSent.Inc()
	} else {
		s.metrics.DeliveriesFailed.Inc()
	}
}

func (s *Service) invalidateEstimate(ctx context.Context, id uuid.UUID) {
	if s.estimates != nil {
		s.estimates.Invalidate(ctx, id)
	}
}

// errorDetail extracts the client-visible message from a send fault.
func errorDetail(err error) string {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return err.Error()
}

func validateNotification(n *model.PushNotification) error {
	if n.Title == "" {
		return fmt.Errorf("title is required")
	}
	if n.Message == "" {
		return fmt.Errorf("message is required")
	}
	if !n.Segment.Valid() {
		return fmt.Errorf("unknown segment %q", n.Segment)
	}
	if n.FilterSex < 0 || n.FilterSex > 2 {
		return fmt.Errorf("sex filter must be 0, 1 or 2")
	}
	return nil
}
