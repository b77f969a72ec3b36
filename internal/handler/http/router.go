package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/toolhub/backend/internal/service"
	"github.com/toolhub/backend/pkg/health"
	"github.com/toolhub/backend/pkg/middleware"
)

// NewRouter creates a chi router with all catalog, engagement, review, and
// recommendation routes registered.
func NewRouter(
	toolService *service.ToolService,
	ledgerService *service.LedgerService,
	reviewService *service.ReviewService,
	recommendService *service.RecommendService,
	healthHandler *health.Handler,
	corsConfig middleware.CORSConfig,
	logger *slog.Logger,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.CORS(corsConfig))
	r.Use(middleware.Recovery(logger))
	r.Use(chimw.Compress(5))
	r.Use(chimw.Timeout(30 * time.Second))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.Viewer())
	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.PrometheusMetrics("toolhub"))

	// Health check endpoints
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		promhttp.Handler().ServeHTTP(w, r)
	})

	toolHandler := NewToolHandler(toolService, logger)
	engagementHandler := NewEngagementHandler(ledgerService, logger)
	reviewHandler := NewReviewHandler(reviewService, logger)
	recommendHandler := NewRecommendHandler(recommendService, logger)

	r.Route("/api/v1/tools", func(r chi.Router) {
		r.Use(ContentTypeJSON)

		r.Post("/", toolHandler.Create)
		r.Get("/", toolHandler.List)

		// Slug lookup must come before /{id} to avoid route conflicts.
		r.Get("/slug/{slug}", toolHandler.GetBySlug)

		r.Get("/{id}", toolHandler.Get)
		r.Put("/{id}", toolHandler.Update)
		r.Delete("/{id}", toolHandler.Archive)

		r.Put("/{id}/rating", engagementHandler.Rate)

		r.Get("/{id}/reviews", reviewHandler.Thread)
		r.Post("/{id}/reviews", reviewHandler.Create)

		r.Get("/{id}/similar", recommendHandler.Similar)
	})

	r.Route("/api/v1/reviews", func(r chi.Router) {
		r.Use(ContentTypeJSON)

		r.Put("/{id}", reviewHandler.Update)
		r.Delete("/{id}", reviewHandler.Hide)
	})

	r.Route("/api/v1/actions", func(r chi.Router) {
		r.Use(ContentTypeJSON)

		r.Post("/", engagementHandler.Record)
		r.Get("/{targetId}/{kind}", engagementHandler.Has)
		r.Delete("/{targetId}/{kind}", engagementHandler.Revoke)
	})

	r.Route("/api/v1/categories", func(r chi.Router) {
		r.Use(ContentTypeJSON)
		r.Use(middleware.CacheControl(300))

		r.Get("/", toolHandler.ListCategories)
		r.Post("/", toolHandler.CreateCategory)
	})

	r.Route("/api/v1/recommendations", func(r chi.Router) {
		// Recommendations are viewer-shaped only on /for-you; short shared
		// caching on the rest keeps thundering herds off the hot listing.
		r.With(middleware.CacheControl(60)).Get("/hot", recommendHandler.Hot)
		r.Get("/search", recommendHandler.Search)
		r.Get("/for-you", recommendHandler.ForYou)
	})

	return r
}
