package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"eventory/api/internal/config"
	"eventory/api/internal/handler/middleware"
	"eventory/api/internal/metrics"
	jwtpkg "eventory/api/pkg/jwt"
)

// Pinger reports whether the backing database is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Handlers struct {
	Auth    *AuthHandler
	Clubs   *ClubHandler
	Events  *EventHandler
	Catalog *CatalogHandler
	Reviews *ReviewHandler
}

func SetupRouter(
	cfg *config.Config,
	logger *zap.Logger,
	jwtManager *jwtpkg.Manager,
	m *metrics.Metrics,
	gatherer prometheus.Gatherer,
	db Pinger,
	h Handlers,
) *gin.Engine {
	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.Metrics(m))
	r.Use(middleware.CORS(cfg.CORS))

	// Health check
	r.GET("/healthz", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := db.Ping(ctx); err != nil {
			logger.Warn("health check failed", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	if cfg.Metrics.Enabled && gatherer != nil {
		r.GET(cfg.Metrics.Path, gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}

	requireAuth := middleware.JWTAuth(jwtManager)
	optionalAuth := middleware.OptionalJWTAuth(jwtManager)
	var limit gin.HandlerFunc = func(c *gin.Context) { c.Next() }
	if cfg.RateLimit.Enabled {
		limiter := middleware.NewRateLimiter(rate.Limit(cfg.RateLimit.RequestsPerSecond), cfg.RateLimit.Burst)
		limit = middleware.RateLimit(limiter, m)
	}

	// Public routes
	public := r.Group("/api/v1")
	{
		public.POST("/auth/register", limit, h.Auth.Register)
		public.POST("/auth/login", limit, h.Auth.Login)
		public.POST("/auth/refresh", limit, h.Auth.Refresh)

		public.GET("/categories", h.Catalog.Categories)
		public.GET("/cities", h.Catalog.Cities)

		public.GET("/clubs", h.Clubs.List)

		public.GET("/reviews", h.Reviews.List)
		public.GET("/reviews/:reviewId", h.Reviews.Get)
	}

	// Anonymous viewers see public events only
	viewer := r.Group("/api/v1")
	viewer.Use(optionalAuth)
	{
		viewer.GET("/events", h.Events.List)
		viewer.GET("/events/:eventId", h.Events.Get)
		viewer.GET("/events/:eventId/calendar.ics", h.Events.Calendar)
	}

	// Protected routes
	protected := r.Group("/api/v1")
	protected.Use(requireAuth, limit)
	{
		protected.POST("/auth/logout", h.Auth.Logout)
		protected.DELETE("/users/me", h.Auth.DeleteAccount)
		protected.GET("/me/calendar.ics", h.Events.MyCalendar)

		protected.POST("/clubs", h.Clubs.Create)
		protected.GET("/clubs/:clubId", h.Clubs.Get)
		protected.PATCH("/clubs/:clubId", h.Clubs.Update)
		protected.DELETE("/clubs/:clubId", h.Clubs.Delete)
		protected.PUT("/clubs/:clubId/host", h.Clubs.ChangeHost)
		protected.POST("/clubs/:clubId/leave", h.Clubs.Leave)
		protected.POST("/clubs/:clubId/requests", h.Clubs.RequestJoin)
		protected.GET("/clubs/:clubId/requests", h.Clubs.ListJoinRequests)
		protected.PATCH("/clubs/:clubId/requests/:requestId", h.Clubs.ResolveJoinRequest)

		protected.POST("/events", h.Events.Create)
		protected.PATCH("/events/:eventId", h.Events.Update)
		protected.DELETE("/events/:eventId", h.Events.Delete)
		protected.POST("/events/:eventId/join", h.Events.Join)
		protected.POST("/events/:eventId/leave", h.Events.Leave)

		protected.POST("/reviews", h.Reviews.Create)
	}

	return r
}
