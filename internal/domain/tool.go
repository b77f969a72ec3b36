package domain

import (
	"time"
)

// Tool status constants.
const (
	ToolStatusDraft     = "draft"
	ToolStatusPublished = "published"
	ToolStatusArchived  = "archived"
)

// Pricing model constants.
const (
	PricingFree     = "free"
	PricingFreemium = "freemium"
	PricingPaid     = "paid"
)

// Tool represents a tool listed in the catalog, together with its engagement
// aggregates. Aggregates are denormalized counters maintained by the
// engagement ledger and the aggregate updater; the action ledger remains the
// source of truth for recomputation.
type Tool struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Slug          string    `json:"slug"`
	Tagline       string    `json:"tagline"`
	Description   string    `json:"description"`
	WebsiteURL    string    `json:"website_url"`
	LogoURL       string    `json:"logo_url,omitempty"`
	CategoryID    *string   `json:"category_id,omitempty"`
	Tags          []string  `json:"tags,omitempty"`
	PricingModel  string    `json:"pricing_model"`
	Status        string    `json:"status"`
	ViewCount     int       `json:"view_count"`
	UpvoteCount   int       `json:"upvote_count"`
	FavoriteCount int       `json:"favorite_count"`
	ReviewCount   int       `json:"review_count"`
	AverageRating float64   `json:"average_rating"`
	CreatedBy     string    `json:"created_by"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// ToolDetail is a tool enriched with the viewer's own engagement state.
type ToolDetail struct {
	Tool
	ViewerUpvoted   bool `json:"viewer_upvoted"`
	ViewerFavorited bool `json:"viewer_favorited"`
	ViewerRating    *int `json:"viewer_rating,omitempty"`
}

// Aggregates holds the recomputed engagement counters for a tool. View counts
// are excluded: anonymous views leave no ledger row, so the view counter is
// maintained incrementally and never rebuilt.
type Aggregates struct {
	UpvoteCount   int     `json:"upvote_count"`
	FavoriteCount int     `json:"favorite_count"`
	ReviewCount   int     `json:"review_count"`
	AverageRating float64 `json:"average_rating"`
}

// Category groups tools in the catalog.
type Category struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	ToolCount int       `json:"tool_count"`
	CreatedAt time.Time `json:"created_at"`
}

// ValidStatuses returns the set of valid tool statuses.
func ValidStatuses() []string {
	return []string{ToolStatusDraft, ToolStatusPublished, ToolStatusArchived}
}

// IsValidStatus checks whether the given status string is a valid tool status.
func IsValidStatus(status string) bool {
	for _, s := range ValidStatuses() {
		if s == status {
			return true
		}
	}
	return false
}

// CreateToolRequest is the payload for registering a new tool.
type CreateToolRequest struct {
	Name         string   `json:"name" validate:"required,min=2,max=120"`
	Tagline      string   `json:"tagline" validate:"required,max=200"`
	Description  string   `json:"description" validate:"max=5000"`
	WebsiteURL   string   `json:"website_url" validate:"required,url"`
	LogoURL      string   `json:"logo_url" validate:"omitempty,url"`
	CategoryID   *string  `json:"category_id" validate:"omitempty,uuid"`
	Tags         []string `json:"tags" validate:"max=10,dive,min=1,max=40"`
	PricingModel string   `json:"pricing_model" validate:"omitempty,oneof=free freemium paid"`
}

// UpdateToolRequest is the payload for updating an existing tool. Nil fields
// are left unchanged.
type UpdateToolRequest struct {
	Name         *string  `json:"name" validate:"omitempty,min=2,max=120"`
	Tagline      *string  `json:"tagline" validate:"omitempty,max=200"`
	Description  *string  `json:"description" validate:"omitempty,max=5000"`
	WebsiteURL   *string  `json:"website_url" validate:"omitempty,url"`
	LogoURL      *string  `json:"logo_url" validate:"omitempty,url"`
	CategoryID   *string  `json:"category_id" validate:"omitempty,uuid"`
	Tags         []string `json:"tags" validate:"omitempty,max=10,dive,min=1,max=40"`
	PricingModel *string  `json:"pricing_model" validate:"omitempty,oneof=free freemium paid"`
	Status       *string  `json:"status" validate:"omitempty,oneof=draft published archived"`
}
