package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/zaimgo/marketing-api/internal/cache"
	"github.com/zaimgo/marketing-api/internal/config"
	authHandler "github.com/zaimgo/marketing-api/internal/handler/auth"
	healthHandler "github.com/zaimgo/marketing-api/internal/handler/health"
	leadHandler "github.com/zaimgo/marketing-api/internal/handler/lead"
	offerHandler "github.com/zaimgo/marketing-api/internal/handler/offer"
	pushHandler "github.com/zaimgo/marketing-api/internal/handler/push"
	userHandler "github.com/zaimgo/marketing-api/internal/handler/user"
	utmHandler "github.com/zaimgo/marketing-api/internal/handler/utm"
	"github.com/zaimgo/marketing-api/internal/middleware"
	"github.com/zaimgo/marketing-api/internal/provider/affiliate"
	"github.com/zaimgo/marketing-api/internal/provider/vk"
	"github.com/zaimgo/marketing-api/internal/repository/postgres"
	"github.com/zaimgo/marketing-api/internal/router"
	authService "github.com/zaimgo/marketing-api/internal/service/auth"
	leadService "github.com/zaimgo/marketing-api/internal/service/lead"
	offerService "github.com/zaimgo/marketing-api/internal/service/offer"
	pushService "github.com/zaimgo/marketing-api/internal/service/push"
	userService "github.com/zaimgo/marketing-api/internal/service/user"
	utmService "github.com/zaimgo/marketing-api/internal/service/utm"
	"github.com/zaimgo/marketing-api/pkg/logger"
	"github.com/zaimgo/marketing-api/pkg/metrics"
)

const offerCacheTTL = 5 * time.Minute

func main() {
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
	offerRepo := postgres.NewOfferRepository(base)
	notifRepo := postgres.NewNotificationRepository(base)
	logRepo := postgres.NewDeliveryLogRepository(base)
	utmRepo := postgres.NewUTMRepository(base)

	vkClient := vk.NewClient(cfg.VK)
	affiliateClient := affiliate.NewClient(cfg.Affiliate)

	var estimates pushService.EstimateCache
	if cfg.Redis.URL != "" {
		audienceCache, err := cache.NewAudienceEstimates(cfg.Redis.URL)
		if err != nil {
			log.Warn().Err(err).Msg("audience estimate cache unavailable, estimates will hit the database")
		} else {
			estimates = audienceCache
		}
	}

	m := metrics.New("marketing")

	userSvc := userService.NewService(userRepo, vkClient)
	offerSvc := offerService.NewService(offerRepo)
	pushSvc := pushService.NewService(notifRepo, logRepo, userRepo, vkClient, estimates, m)
	utmSvc := utmService.NewService(utmRepo)
	leadSvc := leadService.NewService(userRepo, offerRepo, affiliateClient)
	authSvc := authService.NewService(cfg.Admin)

	authMw := middleware.NewAuthMiddleware(authSvc)
	offerCache := middleware.NewResponseCache(offerCacheTTL, 10*time.Minute)

	handlers := router.Handlers{
		Auth:   authHandler.NewHandler(authSvc),
		Health: healthHandler.NewHandler(db),
		Lead:   leadHandler.NewHandler(leadSvc),
		Offer:  offerHandler.NewHandler(offerSvc, offerCache),
		Push:   pushHandler.NewHandler(pushSvc),
		User:   userHandler.NewHandler(userSvc),
		UTM:    utmHandler.NewHandler(utmSvc),
	}

	engine := router.New(cfg, handlers, authMw, offerCache, m).Setup()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      engine,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.Info().Int("port", cfg.Server.Port).Msg("starting API server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("forced shutdown")
	}
}
