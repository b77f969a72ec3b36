package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/toolhub/backend/internal/domain"
	"github.com/toolhub/backend/pkg/database"
)

// ActionRepository implements repository.ActionRepository using PostgreSQL.
//
// The user_actions table carries a partial unique index on
// (user_id, target_id, kind) excluding VIEW, so upvotes, favorites, and
// helpful marks are at-most-once at the storage level while views accumulate
// as plain history.
type ActionRepository struct {
	db database.DBTX
}

// NewActionRepository creates a new PostgreSQL-backed action ledger.
func NewActionRepository(db database.DBTX) *ActionRepository {
	return &ActionRepository{db: db}
}

// Insert records an action. For deduplicated kinds it returns false without
// error when an identical live action already exists.
func (r *ActionRepository) Insert(ctx context.Context, a *domain.Action) (bool, error) {
	query := `
		INSERT INTO user_actions (id, user_id, target_id, kind, value, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT DO NOTHING`

	ct, err := r.db.Exec(ctx, query,
		a.ID,
		a.UserID,
		a.TargetID,
		a.Kind,
		a.Value,
		a.CreatedAt,
	)
	if err != nil {
		return false, fmt.Errorf("insert action: %w", err)
	}

	return ct.RowsAffected() == 1, nil
}

// Delete revokes an action. It returns false without error when no such
// action was recorded.
func (r *ActionRepository) Delete(ctx context.Context, userID, targetID, kind string) (bool, error) {
	query := `DELETE FROM user_actions WHERE user_id = $1 AND target_id = $2 AND kind = $3`

	ct, err := r.db.Exec(ctx, query, userID, targetID, kind)
	if err != nil {
		return false, fmt.Errorf("delete action: %w", err)
	}

	return ct.RowsAffected() > 0, nil
}

// Exists reports whether the user has a live action of this kind on the target.
func (r *ActionRepository) Exists(ctx context.Context, userID, targetID, kind string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM user_actions WHERE user_id = $1 AND target_id = $2 AND kind = $3)`

	var exists bool
	if err := r.db.QueryRow(ctx, query, userID, targetID, kind).Scan(&exists); err != nil {
		return false, fmt.Errorf("check action exists: %w", err)
	}

	return exists, nil
}

// CountByKind counts live actions of one kind on a target. This is the
// source-of-truth side of aggregate recomputation.
func (r *ActionRepository) CountByKind(ctx context.Context, targetID, kind string) (int, error) {
	query := `SELECT count(*) FROM user_actions WHERE target_id = $1 AND kind = $2`

	var count int
	if err := r.db.QueryRow(ctx, query, targetID, kind).Scan(&count); err != nil {
		return 0, fmt.Errorf("count actions: %w", err)
	}

	return count, nil
}

// HelpfulReviewIDs filters the given review IDs down to those the user has
// marked helpful.
func (r *ActionRepository) HelpfulReviewIDs(ctx context.Context, userID string, reviewIDs []string) ([]string, error) {
	if len(reviewIDs) == 0 {
		return []string{}, nil
	}

	query := `
		SELECT target_id
		FROM user_actions
		WHERE user_id = $1 AND kind = 'HELPFUL' AND target_id = ANY($2)`

	rows, err := r.db.Query(ctx, query, userID, reviewIDs)
	if err != nil {
		return nil, fmt.Errorf("helpful review ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan review id: %w", err)
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate review ids: %w", err)
	}

	if ids == nil {
		ids = []string{}
	}

	return ids, nil
}

// UpsertRating inserts the user's rating or replaces their previous score.
func (r *ActionRepository) UpsertRating(ctx context.Context, rt *domain.Rating) error {
	query := `
		INSERT INTO ratings (id, tool_id, user_id, score, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $5)
		ON CONFLICT (tool_id, user_id)
		DO UPDATE SET score = EXCLUDED.score, updated_at = EXCLUDED.updated_at`

	if _, err := r.db.Exec(ctx, query,
		rt.ID,
		rt.ToolID,
		rt.UserID,
		rt.Score,
		rt.CreatedAt,
	); err != nil {
		return fmt.Errorf("upsert rating: %w", err)
	}

	return nil
}

// GetRating returns the user's rating for a tool, or nil when unrated.
func (r *ActionRepository) GetRating(ctx context.Context, toolID, userID string) (*domain.Rating, error) {
	query := `
		SELECT id, tool_id, user_id, score, created_at, updated_at
		FROM ratings
		WHERE tool_id = $1 AND user_id = $2`

	var rt domain.Rating
	err := r.db.QueryRow(ctx, query, toolID, userID).Scan(
		&rt.ID,
		&rt.ToolID,
		&rt.UserID,
		&rt.Score,
		&rt.CreatedAt,
		&rt.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get rating: %w", err)
	}

	return &rt, nil
}

// RatingStats computes the raw average and count over a tool's ratings.
// A tool with no ratings yields a zero average, not an error.
func (r *ActionRepository) RatingStats(ctx context.Context, toolID string) (domain.RatingStats, error) {
	query := `SELECT COALESCE(AVG(score), 0), count(*) FROM ratings WHERE tool_id = $1`

	var stats domain.RatingStats
	if err := r.db.QueryRow(ctx, query, toolID).Scan(&stats.Average, &stats.Count); err != nil {
		return domain.RatingStats{}, fmt.Errorf("rating stats: %w", err)
	}

	return stats, nil
}

// RecentCategoryIDs returns the distinct categories of the tools touched by
// the user's most recent engagement actions.
func (r *ActionRepository) RecentCategoryIDs(ctx context.Context, userID string, lastN int) ([]string, error) {
	query := `
		SELECT DISTINCT t.category_id
		FROM (
			SELECT target_id
			FROM user_actions
			WHERE user_id = $1 AND kind IN ('VIEW', 'FAVORITE', 'UPVOTE')
			ORDER BY created_at DESC
			LIMIT $2
		) recent
		JOIN tools t ON t.id = recent.target_id
		WHERE t.category_id IS NOT NULL`

	rows, err := r.db.Query(ctx, query, userID, lastN)
	if err != nil {
		return nil, fmt.Errorf("recent categories: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan category id: %w", err)
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate category ids: %w", err)
	}

	if ids == nil {
		ids = []string{}
	}

	return ids, nil
}

// ActedToolIDs returns the IDs of every tool the user has engaged with.
func (r *ActionRepository) ActedToolIDs(ctx context.Context, userID string) ([]string, error) {
	query := `
		SELECT DISTINCT target_id
		FROM user_actions
		WHERE user_id = $1 AND kind IN ('VIEW', 'FAVORITE', 'UPVOTE', 'RATING')`

	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("acted tool ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan tool id: %w", err)
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tool ids: %w", err)
	}

	if ids == nil {
		ids = []string{}
	}

	return ids, nil
}
