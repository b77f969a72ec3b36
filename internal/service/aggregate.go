package service

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"github.com/toolhub/backend/internal/cache"
	"github.com/toolhub/backend/internal/domain"
	"github.com/toolhub/backend/internal/repository"
)

// roundRating rounds an average to one decimal, half away from zero, so that
// [3, 4, 5] averages to 4.0 and [3, 4] to 3.5.
func roundRating(avg float64) float64 {
	return math.Floor(avg*10+0.5) / 10
}

// AggregateService rebuilds a tool's denormalized engagement counters from
// the source tables. The ledger and review tables are authoritative; the
// counters on the tools row are a cache of them.
type AggregateService struct {
	tools   repository.ToolRepository
	actions repository.ActionRepository
	reviews repository.ReviewRepository
	cache   cache.Store
	logger  *slog.Logger
}

// NewAggregateService creates a new aggregate service.
func NewAggregateService(
	tools repository.ToolRepository,
	actions repository.ActionRepository,
	reviews repository.ReviewRepository,
	cacheStore cache.Store,
	logger *slog.Logger,
) *AggregateService {
	return &AggregateService{
		tools:   tools,
		actions: actions,
		reviews: reviews,
		cache:   cacheStore,
		logger:  logger,
	}
}

// Recompute rebuilds every recomputable counter for one tool and overwrites
// the stored aggregates. A tool with no engagement ends up at zeros, not an
// error.
func (s *AggregateService) Recompute(ctx context.Context, toolID string) error {
	upvotes, err := s.actions.CountByKind(ctx, toolID, domain.ActionUpvote)
	if err != nil {
		return fmt.Errorf("count upvotes: %w", err)
	}

	favorites, err := s.actions.CountByKind(ctx, toolID, domain.ActionFavorite)
	if err != nil {
		return fmt.Errorf("count favorites: %w", err)
	}

	reviewCount, err := s.reviews.CountPublishedByTool(ctx, toolID)
	if err != nil {
		return fmt.Errorf("count reviews: %w", err)
	}

	stats, err := s.actions.RatingStats(ctx, toolID)
	if err != nil {
		return fmt.Errorf("rating stats: %w", err)
	}

	agg := domain.Aggregates{
		UpvoteCount:   upvotes,
		FavoriteCount: favorites,
		ReviewCount:   reviewCount,
		AverageRating: roundRating(stats.Average),
	}

	if err := s.tools.UpdateAggregates(ctx, toolID, agg); err != nil {
		return fmt.Errorf("store aggregates: %w", err)
	}

	s.cache.Invalidate(ctx, cache.ToolDetailKey(toolID), cache.HotToolsKey())

	s.logger.InfoContext(ctx, "aggregates recomputed",
		slog.String("tool_id", toolID),
		slog.Int("upvotes", agg.UpvoteCount),
		slog.Int("favorites", agg.FavoriteCount),
		slog.Int("reviews", agg.ReviewCount),
		slog.Float64("average_rating", agg.AverageRating),
	)

	return nil
}

// RecomputeRating refreshes only the rating aggregate. Used on the rating
// write path, where the other counters are untouched.
func (s *AggregateService) RecomputeRating(ctx context.Context, toolID string) (float64, error) {
	stats, err := s.actions.RatingStats(ctx, toolID)
	if err != nil {
		return 0, fmt.Errorf("rating stats: %w", err)
	}

	avg := roundRating(stats.Average)
	if err := s.tools.SetAverageRating(ctx, toolID, avg, stats.Count); err != nil {
		return 0, fmt.Errorf("store average rating: %w", err)
	}

	s.cache.Invalidate(ctx, cache.ToolDetailKey(toolID), cache.HotToolsKey())

	return avg, nil
}
