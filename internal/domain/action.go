package domain

import (
	"time"
)

// Action kinds recorded in the engagement ledger.
const (
	ActionUpvote   = "UPVOTE"
	ActionFavorite = "FAVORITE"
	ActionHelpful  = "HELPFUL"
	ActionRating   = "RATING"
	ActionView     = "VIEW"
)

// Action is one ledger entry: a user performed an action of a given kind on a
// target (a tool, or a review for HELPFUL). At most one live entry exists per
// (user, target, kind); repeats are absorbed by the storage layer.
type Action struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	TargetID  string    `json:"target_id"`
	Kind      string    `json:"kind"`
	Value     *int      `json:"value,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// ValidActionKinds returns the set of recordable action kinds.
func ValidActionKinds() []string {
	return []string{ActionUpvote, ActionFavorite, ActionHelpful, ActionRating, ActionView}
}

// IsValidActionKind checks whether the given kind is a recordable action kind.
func IsValidActionKind(kind string) bool {
	for _, k := range ValidActionKinds() {
		if k == kind {
			return true
		}
	}
	return false
}

// RevocableActionKind reports whether a recorded action of this kind can be
// revoked. Views are append-only history and ratings are replaced, not revoked.
func RevocableActionKind(kind string) bool {
	return kind == ActionUpvote || kind == ActionFavorite || kind == ActionHelpful
}

// Rating is a user's score for a tool. One row per (tool, user); re-rating
// replaces the previous score.
type Rating struct {
	ID        string    `json:"id"`
	ToolID    string    `json:"tool_id"`
	UserID    string    `json:"user_id"`
	Score     int       `json:"score"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// RatingStats is the aggregate view over a tool's ratings.
type RatingStats struct {
	Average float64 `json:"average"`
	Count   int     `json:"count"`
}

// RecordActionRequest is the payload for recording an engagement action.
type RecordActionRequest struct {
	TargetID string `json:"target_id" validate:"required,uuid"`
	Kind     string `json:"kind" validate:"required,oneof=UPVOTE FAVORITE HELPFUL VIEW"`
}

// RateToolRequest is the payload for rating a tool.
type RateToolRequest struct {
	Score int `json:"score" validate:"required,min=1,max=5"`
}
