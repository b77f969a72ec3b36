package service

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/toolhub/backend/internal/cache"
	"github.com/toolhub/backend/internal/domain"
	"github.com/toolhub/backend/internal/event"
	"github.com/toolhub/backend/internal/repository"
	apperrors "github.com/toolhub/backend/pkg/errors"
)

// defaultMaxThreadDepth bounds review thread assembly when no depth is
// configured. Replies nested deeper than the bound are dropped from the
// result and the thread is marked truncated.
const defaultMaxThreadDepth = 50

// ReviewService implements review posting, editing, hiding, and thread
// assembly.
type ReviewService struct {
	reviews  repository.ReviewRepository
	tools    repository.ToolRepository
	actions  repository.ActionRepository
	cache    cache.Store
	producer *event.Producer
	logger   *slog.Logger
	maxDepth int
}

// NewReviewService creates a new review service. A non-positive maxDepth
// selects the default thread depth bound.
func NewReviewService(
	reviews repository.ReviewRepository,
	tools repository.ToolRepository,
	actions repository.ActionRepository,
	cacheStore cache.Store,
	producer *event.Producer,
	maxDepth int,
	logger *slog.Logger,
) *ReviewService {
	if maxDepth <= 0 {
		maxDepth = defaultMaxThreadDepth
	}
	return &ReviewService{
		reviews:  reviews,
		tools:    tools,
		actions:  actions,
		cache:    cacheStore,
		producer: producer,
		logger:   logger,
		maxDepth: maxDepth,
	}
}

// Create posts a review or a threaded reply on a tool.
func (s *ReviewService) Create(ctx context.Context, userID, toolID string, req *domain.CreateReviewRequest) (*domain.Review, error) {
	if userID == "" {
		return nil, apperrors.Unauthorized("an identity is required to post reviews")
	}

	tool, err := s.tools.GetByID(ctx, toolID)
	if err != nil {
		return nil, fmt.Errorf("load tool: %w", err)
	}
	if tool.Status != domain.ToolStatusPublished {
		return nil, apperrors.NotFound("tool", toolID)
	}

	if req.ParentID != nil {
		parent, err := s.reviews.GetByID(ctx, *req.ParentID)
		if err != nil {
			return nil, fmt.Errorf("load parent review: %w", err)
		}
		if parent.Status != domain.ReviewStatusPublished {
			return nil, apperrors.NotFound("review", *req.ParentID)
		}
		if parent.ToolID != toolID {
			return nil, apperrors.InvalidInput("parent review belongs to a different tool")
		}
	}

	now := time.Now().UTC()
	review := &domain.Review{
		ID:        uuid.New().String(),
		ToolID:    toolID,
		UserID:    userID,
		ParentID:  req.ParentID,
		Body:      req.Body,
		Pros:      req.Pros,
		Cons:      req.Cons,
		Status:    domain.ReviewStatusPublished,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.reviews.Create(ctx, review); err != nil {
		return nil, fmt.Errorf("create review: %w", err)
	}

	if req.ParentID != nil {
		if err := s.reviews.AddReplyCount(ctx, *req.ParentID, 1); err != nil {
			s.logger.WarnContext(ctx, "reply counter update failed, awaiting recompute",
				slog.String("review_id", *req.ParentID),
				slog.String("error", err.Error()),
			)
		}
	}
	if err := s.tools.AddCounter(ctx, toolID, "REVIEW", 1); err != nil {
		s.logger.WarnContext(ctx, "review counter update failed, awaiting recompute",
			slog.String("tool_id", toolID),
			slog.String("error", err.Error()),
		)
	}

	s.cache.Invalidate(ctx, cache.ToolReviewsKey(toolID), cache.ToolDetailKey(toolID))

	if err := s.producer.PublishReviewCreated(ctx, review); err != nil {
		s.logger.WarnContext(ctx, "failed to publish review.created",
			slog.String("review_id", review.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "review created",
		slog.String("review_id", review.ID),
		slog.String("tool_id", toolID),
		slog.String("user_id", userID),
		slog.Bool("is_reply", req.ParentID != nil),
	)

	return review, nil
}

// Update edits the author's own review. The thread position is immutable.
func (s *ReviewService) Update(ctx context.Context, userID, reviewID string, req *domain.UpdateReviewRequest) (*domain.Review, error) {
	review, err := s.loadOwned(ctx, userID, reviewID)
	if err != nil {
		return nil, err
	}

	if req.Body != nil {
		review.Body = *req.Body
	}
	if req.Pros != nil {
		review.Pros = *req.Pros
	}
	if req.Cons != nil {
		review.Cons = *req.Cons
	}

	if err := s.reviews.Update(ctx, review); err != nil {
		return nil, fmt.Errorf("update review: %w", err)
	}

	s.cache.Invalidate(ctx, cache.ToolReviewsKey(review.ToolID))

	s.logger.InfoContext(ctx, "review updated",
		slog.String("review_id", review.ID),
		slog.String("user_id", userID),
	)

	return review, nil
}

// Hide soft-deletes the author's own review. Replies to it stay published;
// thread assembly promotes them when the parent disappears.
func (s *ReviewService) Hide(ctx context.Context, userID, reviewID string) error {
	review, err := s.loadOwned(ctx, userID, reviewID)
	if err != nil {
		return err
	}

	if err := s.reviews.Hide(ctx, reviewID); err != nil {
		return fmt.Errorf("hide review: %w", err)
	}

	if review.ParentID != nil {
		if err := s.reviews.AddReplyCount(ctx, *review.ParentID, -1); err != nil {
			s.logger.WarnContext(ctx, "reply counter update failed, awaiting recompute",
				slog.String("review_id", *review.ParentID),
				slog.String("error", err.Error()),
			)
		}
	}
	if err := s.tools.AddCounter(ctx, review.ToolID, "REVIEW", -1); err != nil {
		s.logger.WarnContext(ctx, "review counter update failed, awaiting recompute",
			slog.String("tool_id", review.ToolID),
			slog.String("error", err.Error()),
		)
	}

	s.cache.Invalidate(ctx, cache.ToolReviewsKey(review.ToolID), cache.ToolDetailKey(review.ToolID))

	if err := s.producer.PublishReviewHidden(ctx, review); err != nil {
		s.logger.WarnContext(ctx, "failed to publish review.hidden",
			slog.String("review_id", review.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "review hidden",
		slog.String("review_id", review.ID),
		slog.String("user_id", userID),
	)

	return nil
}

// Thread assembles the review tree for a tool. The flat review list is served
// read-through from cache; viewer flags and the requested sort are layered on
// per request so cached entries stay shareable.
func (s *ReviewService) Thread(ctx context.Context, toolID, viewerID, sort string) (*domain.ReviewThread, error) {
	if _, err := s.tools.GetByID(ctx, toolID); err != nil {
		return nil, fmt.Errorf("load tool: %w", err)
	}

	var reviews []domain.Review
	key := cache.ToolReviewsKey(toolID)
	if !cache.GetJSON(ctx, s.cache, key, &reviews) {
		var err error
		reviews, err = s.reviews.ListPublishedByTool(ctx, toolID)
		if err != nil {
			return nil, fmt.Errorf("list reviews: %w", err)
		}
		cache.SetJSON(ctx, s.cache, key, reviews, cache.ReviewsTTL)
	}

	helpful := map[string]bool{}
	if viewerID != "" && len(reviews) > 0 {
		ids := make([]string, len(reviews))
		for i, rv := range reviews {
			ids[i] = rv.ID
		}
		marked, err := s.actions.HelpfulReviewIDs(ctx, viewerID, ids)
		if err != nil {
			return nil, fmt.Errorf("load helpful marks: %w", err)
		}
		for _, id := range marked {
			helpful[id] = true
		}
	}

	thread := s.buildThread(toolID, viewerID, reviews, helpful)
	sortRoots(thread.Roots, sort)
	return thread, nil
}

// sortRoots reorders root reviews. Replies keep their chronological order so
// conversations still read top to bottom.
func sortRoots(roots []*domain.ReviewNode, order string) {
	switch order {
	case domain.ThreadSortNewest:
		slices.SortStableFunc(roots, func(a, b *domain.ReviewNode) int {
			return b.CreatedAt.Compare(a.CreatedAt)
		})
	case domain.ThreadSortHelpful:
		slices.SortStableFunc(roots, func(a, b *domain.ReviewNode) int {
			return b.HelpfulCount - a.HelpfulCount
		})
	}
}

// buildThread turns a flat review list into a bounded-depth tree. Replies
// whose parent is hidden are promoted to roots rather than dropped.
func (s *ReviewService) buildThread(toolID, viewerID string, reviews []domain.Review, helpful map[string]bool) *domain.ReviewThread {
	nodes := make(map[string]*domain.ReviewNode, len(reviews))
	for i := range reviews {
		rv := reviews[i]
		nodes[rv.ID] = &domain.ReviewNode{
			Review:    rv,
			IsMine:    viewerID != "" && rv.UserID == viewerID,
			IsHelpful: helpful[rv.ID],
		}
	}

	// Children in insertion order per parent; reviews arrive oldest first.
	children := make(map[string][]*domain.ReviewNode)
	var roots []*domain.ReviewNode
	for _, rv := range reviews {
		node := nodes[rv.ID]
		if rv.ParentID == nil {
			roots = append(roots, node)
			continue
		}
		if _, ok := nodes[*rv.ParentID]; !ok {
			roots = append(roots, node)
			continue
		}
		children[*rv.ParentID] = append(children[*rv.ParentID], node)
	}

	thread := &domain.ReviewThread{
		ToolID: toolID,
		Roots:  roots,
		Total:  len(reviews),
	}

	// Iterative depth-first attach with a depth guard. A chain deeper than
	// maxDepth is cut, not an error.
	type frame struct {
		node  *domain.ReviewNode
		depth int
	}
	stack := make([]frame, 0, len(roots))
	for _, r := range roots {
		stack = append(stack, frame{node: r, depth: 1})
	}

	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		kids := children[f.node.ID]
		if len(kids) == 0 {
			continue
		}
		if f.depth >= s.maxDepth {
			thread.Truncated = true
			continue
		}

		f.node.Replies = kids
		for _, k := range kids {
			stack = append(stack, frame{node: k, depth: f.depth + 1})
		}
	}

	if thread.Roots == nil {
		thread.Roots = []*domain.ReviewNode{}
	}

	return thread
}

// loadOwned fetches a published review and checks the caller owns it.
func (s *ReviewService) loadOwned(ctx context.Context, userID, reviewID string) (*domain.Review, error) {
	if userID == "" {
		return nil, apperrors.Unauthorized("an identity is required")
	}

	review, err := s.reviews.GetByID(ctx, reviewID)
	if err != nil {
		return nil, fmt.Errorf("load review: %w", err)
	}
	if review.Status != domain.ReviewStatusPublished {
		return nil, apperrors.NotFound("review", reviewID)
	}
	if review.UserID != userID {
		return nil, apperrors.Forbidden("only the author can modify a review")
	}

	return review, nil
}
