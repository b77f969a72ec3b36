package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/toolhub/backend/internal/cache"
	"github.com/toolhub/backend/internal/domain"
	"github.com/toolhub/backend/internal/event"
	"github.com/toolhub/backend/internal/repository"
	apperrors "github.com/toolhub/backend/pkg/errors"
	"github.com/toolhub/backend/pkg/pagination"
	"github.com/toolhub/backend/pkg/slug"
)

// ToolService implements the business logic for the tool catalog.
type ToolService struct {
	tools      repository.ToolRepository
	actions    repository.ActionRepository
	categories repository.CategoryRepository
	cache      cache.Store
	producer   *event.Producer
	logger     *slog.Logger
}

// NewToolService creates a new tool service.
func NewToolService(
	tools repository.ToolRepository,
	actions repository.ActionRepository,
	categories repository.CategoryRepository,
	cacheStore cache.Store,
	producer *event.Producer,
	logger *slog.Logger,
) *ToolService {
	return &ToolService{
		tools:      tools,
		actions:    actions,
		categories: categories,
		cache:      cacheStore,
		producer:   producer,
		logger:     logger,
	}
}

// Create registers a new tool. New tools start as drafts.
func (s *ToolService) Create(ctx context.Context, userID string, req *domain.CreateToolRequest) (*domain.Tool, error) {
	if userID == "" {
		return nil, apperrors.Unauthorized("an identity is required to submit tools")
	}

	if req.CategoryID != nil {
		if _, err := s.categories.GetByID(ctx, *req.CategoryID); err != nil {
			return nil, fmt.Errorf("load category: %w", err)
		}
	}

	pricing := req.PricingModel
	if pricing == "" {
		pricing = domain.PricingFree
	}

	now := time.Now().UTC()
	tool := &domain.Tool{
		ID:           uuid.New().String(),
		Name:         req.Name,
		Slug:         slug.Generate(req.Name),
		Tagline:      req.Tagline,
		Description:  req.Description,
		WebsiteURL:   req.WebsiteURL,
		LogoURL:      req.LogoURL,
		CategoryID:   req.CategoryID,
		Tags:         req.Tags,
		PricingModel: pricing,
		Status:       domain.ToolStatusDraft,
		CreatedBy:    userID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	err := s.tools.Create(ctx, tool)
	if errors.Is(err, apperrors.ErrAlreadyExists) {
		// Slug collision: retry once with a random suffix.
		tool.Slug = tool.Slug + "-" + tool.ID[:8]
		err = s.tools.Create(ctx, tool)
	}
	if err != nil {
		return nil, fmt.Errorf("create tool: %w", err)
	}

	s.logger.InfoContext(ctx, "tool created",
		slog.String("tool_id", tool.ID),
		slog.String("slug", tool.Slug),
		slog.String("user_id", userID),
	)

	return tool, nil
}

// GetDetail returns a tool with the viewer's engagement state, served
// read-through from cache. Each call counts as a view; signed-in views also
// land in the ledger to feed history recommendations.
func (s *ToolService) GetDetail(ctx context.Context, toolID, viewerID string) (*domain.ToolDetail, error) {
	var tool domain.Tool
	key := cache.ToolDetailKey(toolID)
	if !cache.GetJSON(ctx, s.cache, key, &tool) {
		t, err := s.tools.GetByID(ctx, toolID)
		if err != nil {
			if errors.Is(err, apperrors.ErrNotFound) {
				return nil, apperrors.NotFound("tool", toolID)
			}
			return nil, fmt.Errorf("load tool: %w", err)
		}
		tool = *t
		cache.SetJSON(ctx, s.cache, key, tool, cache.DetailTTL)
	}

	detail := &domain.ToolDetail{Tool: tool}

	if viewerID != "" {
		upvoted, err := s.actions.Exists(ctx, viewerID, toolID, domain.ActionUpvote)
		if err != nil {
			return nil, fmt.Errorf("check upvote: %w", err)
		}
		favorited, err := s.actions.Exists(ctx, viewerID, toolID, domain.ActionFavorite)
		if err != nil {
			return nil, fmt.Errorf("check favorite: %w", err)
		}
		rating, err := s.actions.GetRating(ctx, toolID, viewerID)
		if err != nil {
			return nil, fmt.Errorf("load viewer rating: %w", err)
		}

		detail.ViewerUpvoted = upvoted
		detail.ViewerFavorited = favorited
		if rating != nil {
			detail.ViewerRating = &rating.Score
		}
	}

	s.recordView(ctx, toolID, viewerID)

	return detail, nil
}

// GetBySlug resolves a tool by its slug.
func (s *ToolService) GetBySlug(ctx context.Context, toolSlug string) (*domain.Tool, error) {
	tool, err := s.tools.GetBySlug(ctx, toolSlug)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NotFound("tool", toolSlug)
		}
		return nil, fmt.Errorf("load tool by slug: %w", err)
	}
	return tool, nil
}

// List returns tools matching the filter, paginated.
func (s *ToolService) List(ctx context.Context, filter repository.ToolFilter, params pagination.Params) (*pagination.Result[domain.Tool], error) {
	filter.Page = params.Page
	filter.PerPage = params.PerPage

	tools, total, err := s.tools.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list tools: %w", err)
	}

	result := pagination.NewResult(tools, total, params)
	return &result, nil
}

// Update modifies a tool. Only its creator may change it.
func (s *ToolService) Update(ctx context.Context, userID, toolID string, req *domain.UpdateToolRequest) (*domain.Tool, error) {
	tool, err := s.loadOwned(ctx, userID, toolID)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		tool.Name = *req.Name
		tool.Slug = slug.Generate(*req.Name)
	}
	if req.Tagline != nil {
		tool.Tagline = *req.Tagline
	}
	if req.Description != nil {
		tool.Description = *req.Description
	}
	if req.WebsiteURL != nil {
		tool.WebsiteURL = *req.WebsiteURL
	}
	if req.LogoURL != nil {
		tool.LogoURL = *req.LogoURL
	}
	if req.CategoryID != nil {
		if _, err := s.categories.GetByID(ctx, *req.CategoryID); err != nil {
			return nil, fmt.Errorf("load category: %w", err)
		}
		tool.CategoryID = req.CategoryID
	}
	if req.Tags != nil {
		tool.Tags = req.Tags
	}
	if req.PricingModel != nil {
		tool.PricingModel = *req.PricingModel
	}
	if req.Status != nil {
		if !domain.IsValidStatus(*req.Status) {
			return nil, apperrors.InvalidInput("invalid tool status")
		}
		tool.Status = *req.Status
	}

	if err := s.tools.Update(ctx, tool); err != nil {
		return nil, fmt.Errorf("update tool: %w", err)
	}

	// An edit can change anything cached under the tool, including the names
	// echoed inside the review thread payload, so sweep the whole prefix.
	s.cache.InvalidatePrefix(ctx, cache.ToolKeyPrefix(toolID))
	s.cache.Invalidate(ctx, cache.HotToolsKey())

	if err := s.producer.PublishToolUpdated(ctx, tool); err != nil {
		s.logger.WarnContext(ctx, "failed to publish tool.updated",
			slog.String("tool_id", toolID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "tool updated",
		slog.String("tool_id", toolID),
		slog.String("user_id", userID),
	)

	return tool, nil
}

// Archive retires a tool from listings without deleting its history.
func (s *ToolService) Archive(ctx context.Context, userID, toolID string) error {
	archived := domain.ToolStatusArchived
	_, err := s.Update(ctx, userID, toolID, &domain.UpdateToolRequest{Status: &archived})
	return err
}

// ListCategories returns all categories with their published tool counts.
func (s *ToolService) ListCategories(ctx context.Context) ([]domain.Category, error) {
	categories, err := s.categories.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return categories, nil
}

// CreateCategory registers a new category.
func (s *ToolService) CreateCategory(ctx context.Context, name string) (*domain.Category, error) {
	if name == "" {
		return nil, apperrors.InvalidInput("category name is required")
	}

	category := &domain.Category{
		ID:        uuid.New().String(),
		Name:      name,
		Slug:      slug.Generate(name),
		CreatedAt: time.Now().UTC(),
	}

	if err := s.categories.Create(ctx, category); err != nil {
		return nil, fmt.Errorf("create category: %w", err)
	}

	s.logger.InfoContext(ctx, "category created",
		slog.String("category_id", category.ID),
		slog.String("slug", category.Slug),
	)

	return category, nil
}

// recordView bumps the view counter and, for signed-in viewers, appends a
// VIEW action for history-based recommendations. Both are best-effort.
func (s *ToolService) recordView(ctx context.Context, toolID, viewerID string) {
	if err := s.tools.AddCounter(ctx, toolID, domain.ActionView, 1); err != nil {
		s.logger.WarnContext(ctx, "view counter update failed",
			slog.String("tool_id", toolID),
			slog.String("error", err.Error()),
		)
	}

	if viewerID == "" {
		return
	}

	action := &domain.Action{
		ID:        uuid.New().String(),
		UserID:    viewerID,
		TargetID:  toolID,
		Kind:      domain.ActionView,
		CreatedAt: time.Now().UTC(),
	}
	if _, err := s.actions.Insert(ctx, action); err != nil {
		s.logger.WarnContext(ctx, "view history insert failed",
			slog.String("tool_id", toolID),
			slog.String("user_id", viewerID),
			slog.String("error", err.Error()),
		)
	}
}

// loadOwned fetches a tool and checks the caller created it.
func (s *ToolService) loadOwned(ctx context.Context, userID, toolID string) (*domain.Tool, error) {
	if userID == "" {
		return nil, apperrors.Unauthorized("an identity is required")
	}

	tool, err := s.tools.GetByID(ctx, toolID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NotFound("tool", toolID)
		}
		return nil, fmt.Errorf("load tool: %w", err)
	}
	if tool.CreatedBy != userID {
		return nil, apperrors.Forbidden("only the submitter can modify a tool")
	}

	return tool, nil
}
