package router

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"github.com/zaimgo/marketing-api/internal/config"
	authHandler "github.com/zaimgo/marketing-api/internal/handler/auth"
	healthHandler "github.com/zaimgo/marketing-api/internal/handler/health"
	leadHandler "github.com/zaimgo/marketing-api/internal/handler/lead"
	offerHandler "github.com/zaimgo/marketing-api/internal/handler/offer"
	pushHandler "github.com/zaimgo/marketing-api/internal/handler/push"
	userHandler "github.com/zaimgo/marketing-api/internal/handler/user"
	utmHandler "github.com/zaimgo/marketing-api/internal/handler/utm"
	"github.com/zaimgo/marketing-api/internal/middleware"
	"github.com/zaimgo/marketing-api/pkg/metrics"
)

type Handlers struct {
	Auth   *authHandler.Handler
	Health *healthHandler.Handler
	Lead   *leadHandler.Handler
	Offer  *offerHandler.Handler
	Push   *pushHandler.Handler
	User   *userHandler.Handler
	UTM    *utmHandler.Handler
}

type Router struct {
	cfg        *config.Config
	handlers   Handlers
	auth       *middleware.AuthMiddleware
	offerCache *middleware.ResponseCache
	metrics    *metrics.Metrics
}

func New(cfg *config.Config, handlers Handlers, auth *middleware.AuthMiddleware, offerCache *middleware.ResponseCache, m *metrics.Metrics) *Router {
	return &Router{
		cfg:        cfg,
		handlers:   handlers,
		auth:       auth,
		offerCache: offerCache,
		metrics:    m,
	}
}

// Setup assembles the gin engine: global middleware, the public
// mini-app surface and the JWT-protected admin surface.
func (r *Router) Setup() *gin.Engine {
	engine := gin.New()

	engine.Use(middleware.RequestID())
	engine.Use(middleware.Logger())
	engine.Use(middleware.Recovery())

	corsConfig := middleware.DefaultCORSConfig()
	if len(r.cfg.Server.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = r.cfg.Server.AllowedOrigins
	}
	engine.Use(middleware.CORS(corsConfig))

	if r.metrics != nil {
		engine.Use(middleware.MetricsMiddleware(r.metrics))
	}

	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.handlers.Health.RegisterRoutes(engine.Group(""))

	api := engine.Group("/api/v1")
	if r.cfg.RateLimit.Enabled {
		limiter := middleware.NewRateLimiter(middleware.RateLimiterConfig{
			Rate:  rate.Limit(r.cfg.RateLimit.RequestsPerSecond),
			Burst: r.cfg.RateLimit.Burst,
		})
		api.Use(limiter.RateLimit())
	}

	r.handlers.Auth.RegisterRoutes(api)

	public := api.Group("")
	{
		r.handlers.User.RegisterPublicRoutes(public)
		r.handlers.UTM.RegisterPublicRoutes(public)
		r.handlers.Push.RegisterPublicRoutes(public)
		r.handlers.Lead.RegisterPublicRoutes(public)

		offers := public.Group("")
		if r.offerCache != nil {
			offers.Use(r.offerCache.Cache())
		}
		r.handlers.Offer.RegisterPublicRoutes(offers)
	}

	admin := api.Group("/admin")
	admin.Use(r.auth.Authenticate())
	{
		r.handlers.Offer.RegisterAdminRoutes(admin)
		r.handlers.Push.RegisterAdminRoutes(admin)
		r.handlers.User.RegisterAdminRoutes(admin)
		r.handlers.UTM.RegisterAdminRoutes(admin)
	}

	return engine
}
