package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/toolhub/backend/internal/domain"
	"github.com/toolhub/backend/internal/repository"
	"github.com/toolhub/backend/internal/service"
	"github.com/toolhub/backend/pkg/httputil"
	"github.com/toolhub/backend/pkg/middleware"
	"github.com/toolhub/backend/pkg/pagination"
	"github.com/toolhub/backend/pkg/validator"
)

// ToolHandler handles HTTP requests for the tool catalog.
type ToolHandler struct {
	service *service.ToolService
	logger  *slog.Logger
}

// NewToolHandler creates a new tool catalog HTTP handler.
func NewToolHandler(svc *service.ToolService, logger *slog.Logger) *ToolHandler {
	return &ToolHandler{
		service: svc,
		logger:  logger,
	}
}

// CreateCategoryRequest is the JSON request body for creating a category.
type CreateCategoryRequest struct {
	Name string `json:"name" validate:"required,min=2,max=80"`
}

// Create handles POST /api/v1/tools
func (h *ToolHandler) Create(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

	var req domain.CreateToolRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	tool, err := h.service.Create(r.Context(), middleware.ViewerIDFromContext(r.Context()), &req)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: tool})
}

// Get handles GET /api/v1/tools/{id}
func (h *ToolHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	detail, err := h.service.GetDetail(r.Context(), id, middleware.ViewerIDFromContext(r.Context()))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: detail})
}

// GetBySlug handles GET /api/v1/tools/slug/{slug}
func (h *ToolHandler) GetBySlug(w http.ResponseWriter, r *http.Request) {
	tool, err := h.service.GetBySlug(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: tool})
}

// List handles GET /api/v1/tools
func (h *ToolHandler) List(w http.ResponseWriter, r *http.Request) {
	params := pagination.FromRequest(r)

	filter := repository.ToolFilter{}
	q := r.URL.Query()
	if v := q.Get("category_id"); v != "" {
		filter.CategoryID = &v
	}
	status := q.Get("status")
	if status == "" {
		// Public listings only show published tools unless asked otherwise.
		status = domain.ToolStatusPublished
	}
	filter.Status = &status
	if v := q.Get("search"); v != "" {
		filter.Search = &v
	}
	if v := q.Get("tag"); v != "" {
		filter.Tag = &v
	}
	if v := q.Get("sort"); v != "" {
		filter.Sort = v
	}

	result, err := h.service.List(r.Context(), filter, params)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, result)
}

// Update handles PUT /api/v1/tools/{id}
func (h *ToolHandler) Update(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	id := chi.URLParam(r, "id")

	var req domain.UpdateToolRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	tool, err := h.service.Update(r.Context(), middleware.ViewerIDFromContext(r.Context()), id, &req)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: tool})
}

// Archive handles DELETE /api/v1/tools/{id}
func (h *ToolHandler) Archive(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.service.Archive(r.Context(), middleware.ViewerIDFromContext(r.Context()), id); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ListCategories handles GET /api/v1/categories
func (h *ToolHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.service.ListCategories(r.Context())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: categories})
}

// CreateCategory handles POST /api/v1/categories
func (h *ToolHandler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

	var req CreateCategoryRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	category, err := h.service.CreateCategory(r.Context(), req.Name)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: category})
}
