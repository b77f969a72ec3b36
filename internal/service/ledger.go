package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/toolhub/backend/internal/cache"
	"github.com/toolhub/backend/internal/domain"
	"github.com/toolhub/backend/internal/event"
	"github.com/toolhub/backend/internal/repository"
	apperrors "github.com/toolhub/backend/pkg/errors"
)

// RecordResult reports what a Record call did. AlreadyDone means the identical
// action was recorded earlier; it is a success, not an error.
type RecordResult struct {
	AlreadyDone bool `json:"already_done"`
}

// RevokeResult reports what a Revoke call did. NotRecorded means there was
// nothing to revoke; it is a normal outcome, not an error.
type RevokeResult struct {
	NotRecorded bool `json:"not_recorded"`
}

// LedgerService records and revokes engagement actions. The ledger insert is
// the source of truth; counter updates, cache invalidation, and event
// publishing are follow-ups whose failures are logged but never surfaced,
// since the recompute consumer converges the counters.
type LedgerService struct {
	actions   repository.ActionRepository
	tools     repository.ToolRepository
	reviews   repository.ReviewRepository
	cache     cache.Store
	producer  *event.Producer
	aggregate *AggregateService
	logger    *slog.Logger
}

// NewLedgerService creates a new engagement ledger service.
func NewLedgerService(
	actions repository.ActionRepository,
	tools repository.ToolRepository,
	reviews repository.ReviewRepository,
	cacheStore cache.Store,
	producer *event.Producer,
	aggregate *AggregateService,
	logger *slog.Logger,
) *LedgerService {
	return &LedgerService{
		actions:   actions,
		tools:     tools,
		reviews:   reviews,
		cache:     cacheStore,
		producer:  producer,
		aggregate: aggregate,
		logger:    logger,
	}
}

// Record records an engagement action for the user. Repeating an action that
// is already recorded reports AlreadyDone without touching any counter.
func (s *LedgerService) Record(ctx context.Context, userID string, req *domain.RecordActionRequest) (*RecordResult, error) {
	if userID == "" {
		return nil, apperrors.Unauthorized("an identity is required to record actions")
	}
	if !domain.IsValidActionKind(req.Kind) || req.Kind == domain.ActionRating {
		return nil, apperrors.InvalidInput("unsupported action kind")
	}

	// The target must exist before anything lands in the ledger.
	toolID, err := s.resolveTargetTool(ctx, req.TargetID, req.Kind)
	if err != nil {
		return nil, err
	}

	action := &domain.Action{
		ID:        uuid.New().String(),
		UserID:    userID,
		TargetID:  req.TargetID,
		Kind:      req.Kind,
		CreatedAt: time.Now().UTC(),
	}

	inserted, err := s.actions.Insert(ctx, action)
	if err != nil {
		return nil, fmt.Errorf("record action: %w", err)
	}

	if !inserted {
		return &RecordResult{AlreadyDone: true}, nil
	}

	s.applyDelta(ctx, toolID, req.TargetID, req.Kind, 1)

	if err := s.producer.PublishEngagementRecorded(ctx, toolID, userID, req.Kind); err != nil {
		s.logger.WarnContext(ctx, "failed to publish engagement.recorded",
			slog.String("tool_id", toolID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "action recorded",
		slog.String("user_id", userID),
		slog.String("target_id", req.TargetID),
		slog.String("kind", req.Kind),
	)

	return &RecordResult{}, nil
}

// Revoke removes a previously recorded action. Revoking an action that was
// never recorded reports NotRecorded without error.
func (s *LedgerService) Revoke(ctx context.Context, userID, targetID, kind string) (*RevokeResult, error) {
	if userID == "" {
		return nil, apperrors.Unauthorized("an identity is required to revoke actions")
	}
	if !domain.RevocableActionKind(kind) {
		return nil, apperrors.InvalidInput("action kind cannot be revoked")
	}

	toolID, err := s.resolveTargetTool(ctx, targetID, kind)
	if err != nil {
		return nil, err
	}

	removed, err := s.actions.Delete(ctx, userID, targetID, kind)
	if err != nil {
		return nil, fmt.Errorf("revoke action: %w", err)
	}

	if !removed {
		return &RevokeResult{NotRecorded: true}, nil
	}

	s.applyDelta(ctx, toolID, targetID, kind, -1)

	if err := s.producer.PublishEngagementRevoked(ctx, toolID, userID, kind); err != nil {
		s.logger.WarnContext(ctx, "failed to publish engagement.revoked",
			slog.String("tool_id", toolID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "action revoked",
		slog.String("user_id", userID),
		slog.String("target_id", targetID),
		slog.String("kind", kind),
	)

	return &RevokeResult{}, nil
}

// Has reports whether the user currently has a live action on the target.
func (s *LedgerService) Has(ctx context.Context, userID, targetID, kind string) (bool, error) {
	if userID == "" {
		return false, nil
	}
	return s.actions.Exists(ctx, userID, targetID, kind)
}

// Rate records or replaces the user's rating for a tool and refreshes the
// rating aggregate synchronously, so the new average is visible to the rater.
func (s *LedgerService) Rate(ctx context.Context, userID, toolID string, score int) (float64, error) {
	if userID == "" {
		return 0, apperrors.Unauthorized("an identity is required to rate tools")
	}
	if score < 1 || score > 5 {
		return 0, apperrors.InvalidInput("score must be between 1 and 5")
	}

	if _, err := s.tools.GetByID(ctx, toolID); err != nil {
		return 0, fmt.Errorf("load tool: %w", err)
	}

	rating := &domain.Rating{
		ID:        uuid.New().String(),
		ToolID:    toolID,
		UserID:    userID,
		Score:     score,
		CreatedAt: time.Now().UTC(),
	}

	if err := s.actions.UpsertRating(ctx, rating); err != nil {
		return 0, fmt.Errorf("store rating: %w", err)
	}

	avg, err := s.aggregate.RecomputeRating(ctx, toolID)
	if err != nil {
		return 0, err
	}

	if err := s.producer.PublishToolRated(ctx, toolID, userID, score); err != nil {
		s.logger.WarnContext(ctx, "failed to publish tool.rated",
			slog.String("tool_id", toolID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "tool rated",
		slog.String("user_id", userID),
		slog.String("tool_id", toolID),
		slog.Int("score", score),
		slog.Float64("average", avg),
	)

	return avg, nil
}

// resolveTargetTool validates the target and returns the tool whose
// aggregates the action affects. HELPFUL targets a review; everything else
// targets a tool directly.
func (s *LedgerService) resolveTargetTool(ctx context.Context, targetID, kind string) (string, error) {
	if kind == domain.ActionHelpful {
		rv, err := s.reviews.GetByID(ctx, targetID)
		if err != nil {
			return "", fmt.Errorf("load review: %w", err)
		}
		if rv.Status != domain.ReviewStatusPublished {
			return "", apperrors.NotFound("review", targetID)
		}
		return rv.ToolID, nil
	}

	tool, err := s.tools.GetByID(ctx, targetID)
	if err != nil {
		return "", fmt.Errorf("load tool: %w", err)
	}
	return tool.ID, nil
}

// applyDelta performs the fast-path counter update and cache invalidation
// after a ledger write. Failures are logged, not returned: the ledger row is
// committed and the recompute consumer will converge the counters.
func (s *LedgerService) applyDelta(ctx context.Context, toolID, targetID, kind string, delta int) {
	var err error
	if kind == domain.ActionHelpful {
		err = s.reviews.AddHelpfulCount(ctx, targetID, delta)
		s.cache.Invalidate(ctx, cache.ToolReviewsKey(toolID))
	} else {
		err = s.tools.AddCounter(ctx, toolID, kind, delta)
		s.cache.Invalidate(ctx, cache.ToolDetailKey(toolID), cache.HotToolsKey())
	}

	if err != nil {
		s.logger.WarnContext(ctx, "fast-path counter update failed, awaiting recompute",
			slog.String("tool_id", toolID),
			slog.String("kind", kind),
			slog.Int("delta", delta),
			slog.String("error", err.Error()),
		)
	}
}
