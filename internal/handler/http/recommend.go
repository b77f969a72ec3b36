package http

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/toolhub/backend/internal/service"
	"github.com/toolhub/backend/pkg/httputil"
	"github.com/toolhub/backend/pkg/middleware"
)

const defaultRecommendLimit = 10

// RecommendHandler handles HTTP requests for tool recommendations.
type RecommendHandler struct {
	service *service.RecommendService
	logger  *slog.Logger
}

// NewRecommendHandler creates a new recommendation HTTP handler.
func NewRecommendHandler(svc *service.RecommendService, logger *slog.Logger) *RecommendHandler {
	return &RecommendHandler{
		service: svc,
		logger:  logger,
	}
}

// Hot handles GET /api/v1/recommendations/hot
func (h *RecommendHandler) Hot(w http.ResponseWriter, r *http.Request) {
	tools, err := h.service.Hot(r.Context(), limitFromQuery(r))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: tools})
}

// Search handles GET /api/v1/recommendations/search?q=...
func (h *RecommendHandler) Search(w http.ResponseWriter, r *http.Request) {
	recs, err := h.service.ByQuery(r.Context(), r.URL.Query().Get("q"), limitFromQuery(r))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: recs})
}

// ForYou handles GET /api/v1/recommendations/for-you
func (h *RecommendHandler) ForYou(w http.ResponseWriter, r *http.Request) {
	viewerID := middleware.ViewerIDFromContext(r.Context())

	recs, err := h.service.ByHistory(r.Context(), viewerID, limitFromQuery(r))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: recs})
}

// Similar handles GET /api/v1/tools/{id}/similar
func (h *RecommendHandler) Similar(w http.ResponseWriter, r *http.Request) {
	toolID := chi.URLParam(r, "id")

	recs, err := h.service.BySimilar(r.Context(), toolID, limitFromQuery(r))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: recs})
}

func limitFromQuery(r *http.Request) int {
	v := r.URL.Query().Get("limit")
	if v == "" {
		return defaultRecommendLimit
	}
	limit, err := strconv.Atoi(v)
	if err != nil || limit <= 0 || limit > 50 {
		return defaultRecommendLimit
	}
	return limit
}
