package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/utafrali/GameCatalog/internal/service"
	"github.com/utafrali/GameCatalog/pkg/health"
	"github.com/utafrali/GameCatalog/pkg/middleware"
)

const requestTimeout = 30 * time.Second

// RouterConfig holds the HTTP surface settings.
type RouterConfig struct {
	ServiceName    string
	AllowedOrigins []string
	// MetricsMaxAge is the Cache-Control max-age of the aggregate endpoints.
	MetricsMaxAge time.Duration
	// RateLimitRPS and RateLimitBurst bound API requests per client. A zero
	// RateLimitRPS disables the limit.
	RateLimitRPS   float64
	RateLimitBurst int
	// PprofAllowedCIDRs enables /debug/pprof for these client networks.
	PprofAllowedCIDRs []string
}

// NewRouter creates a chi router with all catalog routes registered.
func NewRouter(
	cfg RouterConfig,
	catalog *service.CatalogService,
	analytics *service.AnalyticsService,
	healthHandler *health.Handler,
	logger *slog.Logger,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.CORS(middleware.DefaultCORSConfig(cfg.AllowedOrigins)))
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.Tracing(cfg.ServiceName))
	r.Use(middleware.RequestLogger(logger))
	r.Use(chimw.Compress(5))
	r.Use(chimw.Timeout(requestTimeout))
	r.Use(middleware.PrometheusMetrics(cfg.ServiceName))

	// Health check endpoints
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Handle("/metrics", promhttp.Handler())
	middleware.RegisterPprof(r, cfg.PprofAllowedCIDRs, logger)

	games := NewGameHandler(catalog, logger)
	stats := NewAnalyticsHandler(analytics, logger)

	r.Route("/api/v1/games", func(r chi.Router) {
		r.Use(middleware.RateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst, logger))

		r.Get("/", games.ListGames)
		r.Get("/search", stats.Search)
		r.Get("/recent", stats.MostRecent)

		r.Route("/metrics", func(r chi.Router) {
			r.Use(middleware.CacheControl(cfg.MetricsMaxAge))
			r.Get("/top-genres", stats.TopGenres)
			r.Get("/top-genres-by-sales", stats.TopGenresBySales)
			r.Get("/average-rating-by-genre", stats.AverageRatingByGenre)
			r.Get("/general", stats.General)
			r.Get("/dashboard", stats.Dashboard)
		})

		r.Get("/{id}", games.GetGame)
		r.Delete("/{id}", games.DeleteGame)
		r.Put("/{id}/purchases", games.IncreasePurchaseCount)

		r.Group(func(r chi.Router) {
			r.Use(ContentTypeJSON)
			r.Post("/", games.CreateGame)
			r.Put("/", games.UpdateGame)
			r.Put("/{id}/rating", games.UpdateRating)
			r.Post("/recommendations", stats.Recommend)
			r.Post("/reindex", games.Reindex)
		})
	})

	return r
}
