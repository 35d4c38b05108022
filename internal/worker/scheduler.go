package worker

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	pushService "github.com/zaimgo/marketing-api/internal/service/push"
)

// SchedulerWorker polls for notifications whose scheduled time has
// passed and runs a send cycle for each. Claiming is a conditional
// status transition in the store, so several workers may poll the same
// table without double-sending.
type SchedulerWorker struct {
	service      pushService.Servicer
	pollInterval time.Duration
	dryRun       bool
}

func NewSchedulerWorker(service pushService.Servicer, pollInterval time.Duration, dryRun bool) *SchedulerWorker {
	return &SchedulerWorker{
		service:      service,
		pollInterval: pollInterval,
		dryRun:       dryRun,
	}
}

func (w *SchedulerWorker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	// First pass immediately, so a restart does not wait a full
	// interval before picking up overdue notifications.
	w.RunOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.RunOnce(ctx)
		}
	}
}

// RunOnce processes everything due right now and returns how many
// notifications were handled.
func (w *SchedulerWorker) RunOnce(ctx context.Context) int {
	due, err := w.service.ListDue(ctx, time.Now().UTC())
	if err != nil {
		log.Error().Err(err).Msg("failed to list due notifications")
		return 0
	}

	for _, n := range due {
		if w.dryRun {
			count, err := w.service.RecipientCount(ctx, n.ID)
			if err != nil {
				log.Error().Err(err).Str("notification_id", n.ID.String()).Msg("dry run: failed to resolve recipients")
				continue
			}
			log.Info().
				Str("notification_id", n.ID.String()).
				Str("title", n.Title).
				Int("recipients", count).
				Msg("dry run: would send notification")
			continue
		}

		stats, err := w.service.Send(ctx, n.ID)
		if err != nil {
			// Another worker may have claimed it first; that shows up
			// as a conflict and is not a failure of this worker.
			log.Warn().Err(err).Str("notification_id", n.ID.String()).Msg("scheduled send did not run")
			continue
		}

		log.Info().
			Str("notification_id", n.ID.String()).
			Str("title", n.Title).
			Int("total", stats.Total).
			Int("delivered", stats.Delivered).
			Int("failed", stats.Failed).
			Msg("scheduled notification sent")
	}

	return len(due)
}
