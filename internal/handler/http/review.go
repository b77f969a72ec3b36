package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/toolhub/backend/internal/domain"
	"github.com/toolhub/backend/internal/service"
	"github.com/toolhub/backend/pkg/httputil"
	"github.com/toolhub/backend/pkg/middleware"
	"github.com/toolhub/backend/pkg/validator"
)

// ReviewHandler handles HTTP requests for reviews and review threads.
type ReviewHandler struct {
	service *service.ReviewService
	logger  *slog.Logger
}

// NewReviewHandler creates a new review HTTP handler.
func NewReviewHandler(svc *service.ReviewService, logger *slog.Logger) *ReviewHandler {
	return &ReviewHandler{
		service: svc,
		logger:  logger,
	}
}

// Create handles POST /api/v1/tools/{id}/reviews
func (h *ReviewHandler) Create(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	toolID := chi.URLParam(r, "id")

	var req domain.CreateReviewRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	review, err := h.service.Create(r.Context(), middleware.ViewerIDFromContext(r.Context()), toolID, &req)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: review})
}

// Thread handles GET /api/v1/tools/{id}/reviews
func (h *ReviewHandler) Thread(w http.ResponseWriter, r *http.Request) {
	toolID := chi.URLParam(r, "id")
	sort := r.URL.Query().Get("sort")

	thread, err := h.service.Thread(r.Context(), toolID, middleware.ViewerIDFromContext(r.Context()), sort)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: thread})
}

// Update handles PUT /api/v1/reviews/{id}
func (h *ReviewHandler) Update(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	reviewID := chi.URLParam(r, "id")

	var req domain.UpdateReviewRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	review, err := h.service.Update(r.Context(), middleware.ViewerIDFromContext(r.Context()), reviewID, &req)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: review})
}

// Hide handles DELETE /api/v1/reviews/{id}
func (h *ReviewHandler) Hide(w http.ResponseWriter, r *http.Request) {
	reviewID := chi.URLParam(r, "id")

	if err := h.service.Hide(r.Context(), middleware.ViewerIDFromContext(r.Context()), reviewID); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
