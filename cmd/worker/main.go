package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/zaimgo/marketing-api/internal/cache"
	"github.com/zaimgo/marketing-api/internal/config"
	"github.com/zaimgo/marketing-api/internal/provider/vk"
	"github.com/zaimgo/marketing-api/internal/repository/postgres"
	pushService "github.com/zaimgo/marketing-api/internal/service/push"
	"github.com/zaimgo/marketing-api/internal/worker"
	"github.com/zaimgo/marketing-api/pkg/logger"
	"github.com/zaimgo/marketing-api/pkg/metrics"
)

func main() {
	dryRun := flag.Bool("dry-run", false, "resolve recipients for due notifications without sending")
	once := flag.Bool("once", false, "process everything due once and exit")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}
	logger.Setup(cfg.Logging.Level, cfg.Logging.Pretty)

	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	base := postgres.NewBaseRepository(db)
	userRepo := postgres.NewUserRepository(base)
	notifRepo := postgres.NewNotificationRepository(base)
	logRepo := postgres.NewDeliveryLogRepository(base)

	var estimates pushService.EstimateCache
	if cfg.Redis.URL != "" {
		audienceCache, err := cache.NewAudienceEstimates(cfg.Redis.URL)
		if err != nil {
			log.Warn().Err(err).Msg("audience estimate cache unavailable")
		} else {
			estimates = audienceCache
		}
	}

	m := metrics.New("marketing_worker")
	pushSvc := pushService.NewService(notifRepo, logRepo, userRepo, vk.NewClient(cfg.VK), estimates, m)

	scheduler := worker.NewSchedulerWorker(pushSvc, cfg.Worker.PollInterval, *dryRun)

	if *once {
		processed := scheduler.RunOnce(context.Background())
		log.Info().Int("processed", processed).Bool("dry_run", *dryRun).Msg("single pass complete")
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Health and metrics endpoint for the worker process.
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, `{"status":"UP"}`)
	})
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Worker.MetricsPort),
		Handler: mux,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("worker metrics server failed")
		}
	}()

	go scheduler.Start(ctx)
	log.Info().
		Dur("poll_interval", cfg.Worker.PollInterval).
		Bool("dry_run", *dryRun).
		Msg("scheduler worker started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down worker")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("metrics server shutdown failed")
	}
}
