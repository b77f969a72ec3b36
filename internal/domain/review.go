package domain

import (
	"time"
)

// Review status constants. Hidden reviews stay in storage but never appear in
// listings or threads.
const (
	ReviewStatusPublished = "published"
	ReviewStatusHidden    = "hidden"
)

// Review represents a review or a threaded reply on a tool. Top-level reviews
// have a nil ParentID.
type Review struct {
	ID           string    `json:"id"`
	ToolID       string    `json:"tool_id"`
	UserID       string    `json:"user_id"`
	ParentID     *string   `json:"parent_id,omitempty"`
	Body         string    `json:"body"`
	Pros         string    `json:"pros,omitempty"`
	Cons         string    `json:"cons,omitempty"`
	Status       string    `json:"status"`
	HelpfulCount int       `json:"helpful_count"`
	ReplyCount   int       `json:"reply_count"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Thread sort orders. Sorting applies to root reviews only; replies always
// stay in chronological order.
const (
	ThreadSortOldest  = "oldest"
	ThreadSortNewest  = "newest"
	ThreadSortHelpful = "helpful"
)

// ReviewNode is a review positioned in its thread, enriched with the viewer's
// relationship to it and its direct replies.
type ReviewNode struct {
	Review
	IsMine    bool          `json:"is_mine"`
	IsHelpful bool          `json:"is_helpful"`
	Replies   []*ReviewNode `json:"replies,omitempty"`
}

// ReviewThread is the assembled reply tree for one tool.
type ReviewThread struct {
	ToolID    string        `json:"tool_id"`
	Roots     []*ReviewNode `json:"roots"`
	Total     int           `json:"total"`
	Truncated bool          `json:"truncated"`
}

// CreateReviewRequest is the payload for posting a review or reply.
type CreateReviewRequest struct {
	ParentID *string `json:"parent_id" validate:"omitempty,uuid"`
	Body     string  `json:"body" validate:"required,min=1,max=10000"`
	Pros     string  `json:"pros" validate:"max=2000"`
	Cons     string  `json:"cons" validate:"max=2000"`
}

// UpdateReviewRequest is the payload for editing a review. The thread position
// (parent) is immutable after creation.
type UpdateReviewRequest struct {
	Body *string `json:"body" validate:"omitempty,min=1,max=10000"`
	Pros *string `json:"pros" validate:"omitempty,max=2000"`
	Cons *string `json:"cons" validate:"omitempty,max=2000"`
}
