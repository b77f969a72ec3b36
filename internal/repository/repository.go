package repository

import (
	"context"

	"github.com/toolhub/backend/internal/domain"
)

// Tool sort orders accepted by ToolFilter.
const (
	SortLatest  = "latest"
	SortUpvotes = "upvotes"
	SortRating  = "rating"
)

// ToolFilter narrows tool listings. Nil fields are ignored.
type ToolFilter struct {
	CategoryID *string
	Status     *string
	Search     *string
	Tag        *string
	Sort       string
	Page       int
	PerPage    int
}

// ToolRepository provides access to the tool catalog and its denormalized
// engagement aggregates.
type ToolRepository interface {
	Create(ctx context.Context, t *domain.Tool) error
	GetByID(ctx context.Context, id string) (*domain.Tool, error)
	GetBySlug(ctx context.Context, slug string) (*domain.Tool, error)
	List(ctx context.Context, filter ToolFilter) ([]domain.Tool, int, error)
	Update(ctx context.Context, t *domain.Tool) error
	Delete(ctx context.Context, id string) error

	// AddCounter atomically adjusts one engagement counter (the fast path
	// after a ledger write). Kind is one of the domain action kinds.
	AddCounter(ctx context.Context, toolID, kind string, delta int) error
	// UpdateAggregates overwrites all counters from a full recomputation.
	UpdateAggregates(ctx context.Context, toolID string, agg domain.Aggregates) error
	// SetAverageRating overwrites only the rating aggregate.
	SetAverageRating(ctx context.Context, toolID string, avg float64, count int) error

	ListHot(ctx context.Context, limit int) ([]domain.Tool, error)
	ListSimilar(ctx context.Context, toolID string, limit int) ([]domain.Tool, error)
	ListByCategories(ctx context.Context, categoryIDs, excludeToolIDs []string, limit int) ([]domain.Tool, error)
	SearchByKeywords(ctx context.Context, keywords []string, limit int) ([]domain.Tool, error)
}

// ActionRepository is the engagement ledger: one live row per
// (user, target, kind), plus the per-user rating table.
type ActionRepository interface {
	// Insert records an action. It returns false without error when an
	// identical live action already exists.
	Insert(ctx context.Context, a *domain.Action) (bool, error)
	// Delete revokes an action. It returns false without error when no such
	// action was recorded.
	Delete(ctx context.Context, userID, targetID, kind string) (bool, error)
	Exists(ctx context.Context, userID, targetID, kind string) (bool, error)
	CountByKind(ctx context.Context, targetID, kind string) (int, error)
	// HelpfulReviewIDs filters the given review IDs down to those the user
	// has marked helpful. One query per thread build, not one per node.
	HelpfulReviewIDs(ctx context.Context, userID string, reviewIDs []string) ([]string, error)

	UpsertRating(ctx context.Context, rt *domain.Rating) error
	GetRating(ctx context.Context, toolID, userID string) (*domain.Rating, error)
	RatingStats(ctx context.Context, toolID string) (domain.RatingStats, error)

	// RecentCategoryIDs returns the distinct categories of the tools touched
	// by the user's most recent engagement actions.
	RecentCategoryIDs(ctx context.Context, userID string, lastN int) ([]string, error)
	// ActedToolIDs returns the IDs of every tool the user has engaged with.
	ActedToolIDs(ctx context.Context, userID string) ([]string, error)
}

// ReviewRepository stores reviews and threaded replies.
type ReviewRepository interface {
	Create(ctx context.Context, rv *domain.Review) error
	GetByID(ctx context.Context, id string) (*domain.Review, error)
	Update(ctx context.Context, rv *domain.Review) error
	// Hide soft-deletes a review; the row survives for thread integrity.
	Hide(ctx context.Context, id string) error
	// ListPublishedByTool returns every published review for the tool in one
	// pass, oldest first, for thread assembly.
	ListPublishedByTool(ctx context.Context, toolID string) ([]domain.Review, error)
	CountPublishedByTool(ctx context.Context, toolID string) (int, error)

	AddReplyCount(ctx context.Context, id string, delta int) error
	AddHelpfulCount(ctx context.Context, id string, delta int) error
}

// CategoryRepository stores tool categories.
type CategoryRepository interface {
	Create(ctx context.Context, c *domain.Category) error
	GetByID(ctx context.Context, id string) (*domain.Category, error)
	List(ctx context.Context) ([]domain.Category, error)
}
