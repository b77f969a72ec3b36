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

// EngagementHandler handles HTTP requests for the engagement ledger.
type EngagementHandler struct {
	service *service.LedgerService
	logger  *slog.Logger
}

// NewEngagementHandler creates a new engagement HTTP handler.
func NewEngagementHandler(svc *service.LedgerService, logger *slog.Logger) *EngagementHandler {
	return &EngagementHandler{
		service: svc,
		logger:  logger,
	}
}

// Record handles POST /api/v1/actions
//
// Repeating an action that is already recorded returns 200 with
// already_done=true; a first-time record returns 201.
func (h *EngagementHandler) Record(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

	var req domain.RecordActionRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	result, err := h.service.Record(r.Context(), middleware.ViewerIDFromContext(r.Context()), &req)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	status := http.StatusCreated
	if result.AlreadyDone {
		status = http.StatusOK
	}
	httputil.WriteJSON(w, status, httputil.Response{Data: result})
}

// Revoke handles DELETE /api/v1/actions/{targetId}/{kind}
//
// Revoking an action that was never recorded returns 200 with
// not_recorded=true rather than 404.
func (h *EngagementHandler) Revoke(w http.ResponseWriter, r *http.Request) {
	targetID := chi.URLParam(r, "targetId")
	kind := chi.URLParam(r, "kind")

	result, err := h.service.Revoke(r.Context(), middleware.ViewerIDFromContext(r.Context()), targetID, kind)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: result})
}

// Has handles GET /api/v1/actions/{targetId}/{kind}
func (h *EngagementHandler) Has(w http.ResponseWriter, r *http.Request) {
	targetID := chi.URLParam(r, "targetId")
	kind := chi.URLParam(r, "kind")

	has, err := h.service.Has(r.Context(), middleware.ViewerIDFromContext(r.Context()), targetID, kind)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: map[string]bool{"recorded": has}})
}

// Rate handles PUT /api/v1/tools/{id}/rating
func (h *EngagementHandler) Rate(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	toolID := chi.URLParam(r, "id")

	var req domain.RateToolRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	avg, err := h.service.Rate(r.Context(), middleware.ViewerIDFromContext(r.Context()), toolID, req.Score)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: map[string]any{
		"tool_id":        toolID,
		"score":          req.Score,
		"average_rating": avg,
	}})
}
