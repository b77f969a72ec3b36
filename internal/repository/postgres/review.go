package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/toolhub/backend/internal/domain"
	"github.com/toolhub/backend/pkg/database"
	apperrors "github.com/toolhub/backend/pkg/errors"
)

const reviewColumns = `id, tool_id, user_id, parent_id, body, pros, cons, status,
	   helpful_count, reply_count, created_at, updated_at`

// ReviewRepository implements repository.ReviewRepository using PostgreSQL.
type ReviewRepository struct {
	db database.DBTX
}

// NewReviewRepository creates a new PostgreSQL-backed review repository.
func NewReviewRepository(db database.DBTX) *ReviewRepository {
	return &ReviewRepository{db: db}
}

// Create inserts a new review into the database.
func (r *ReviewRepository) Create(ctx context.Context, rv *domain.Review) error {
	query := `
		INSERT INTO reviews (id, tool_id, user_id, parent_id, body, pros, cons, status,
							 helpful_count, reply_count, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	if _, err := r.db.Exec(ctx, query,
		rv.ID,
		rv.ToolID,
		rv.UserID,
		rv.ParentID,
		rv.Body,
		rv.Pros,
		rv.Cons,
		rv.Status,
		rv.HelpfulCount,
		rv.ReplyCount,
		rv.CreatedAt,
		rv.UpdatedAt,
	); err != nil {
		return fmt.Errorf("insert review: %w", err)
	}

	return nil
}

// GetByID retrieves a review by its ID, regardless of status.
func (r *ReviewRepository) GetByID(ctx context.Context, id string) (*domain.Review, error) {
	query := fmt.Sprintf(`SELECT %s FROM reviews WHERE id = $1`, reviewColumns)

	var rv domain.Review
	err := r.db.QueryRow(ctx, query, id).Scan(
		&rv.ID,
		&rv.ToolID,
		&rv.UserID,
		&rv.ParentID,
		&rv.Body,
		&rv.Pros,
		&rv.Cons,
		&rv.Status,
		&rv.HelpfulCount,
		&rv.ReplyCount,
		&rv.CreatedAt,
		&rv.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("review", id)
		}
		return nil, fmt.Errorf("scan review: %w", err)
	}

	return &rv, nil
}

// Update modifies the editable fields of a review.
func (r *ReviewRepository) Update(ctx context.Context, rv *domain.Review) error {
	rv.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE reviews
		SET body = $1, pros = $2, cons = $3, updated_at = $4
		WHERE id = $5`

	ct, err := r.db.Exec(ctx, query, rv.Body, rv.Pros, rv.Cons, rv.UpdatedAt, rv.ID)
	if err != nil {
		return fmt.Errorf("update review: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("review", rv.ID)
	}

	return nil
}

// Hide soft-deletes a review. The row survives so replies keep their anchor.
func (r *ReviewRepository) Hide(ctx context.Context, id string) error {
	query := `UPDATE reviews SET status = 'hidden', updated_at = now() WHERE id = $1 AND status <> 'hidden'`

	ct, err := r.db.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("hide review: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("review", id)
	}

	return nil
}

// ListPublishedByTool returns every published review for the tool in one
// pass, oldest first, for thread assembly.
func (r *ReviewRepository) ListPublishedByTool(ctx context.Context, toolID string) ([]domain.Review, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM reviews
		WHERE tool_id = $1 AND status = 'published'
		ORDER BY created_at ASC`, reviewColumns)

	rows, err := r.db.Query(ctx, query, toolID)
	if err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}
	defer rows.Close()

	var reviews []domain.Review
	for rows.Next() {
		var rv domain.Review
		if err := rows.Scan(
			&rv.ID,
			&rv.ToolID,
			&rv.UserID,
			&rv.ParentID,
			&rv.Body,
			&rv.Pros,
			&rv.Cons,
			&rv.Status,
			&rv.HelpfulCount,
			&rv.ReplyCount,
			&rv.CreatedAt,
			&rv.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan review row: %w", err)
		}
		reviews = append(reviews, rv)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate review rows: %w", err)
	}

	if reviews == nil {
		reviews = []domain.Review{}
	}

	return reviews, nil
}

// CountPublishedByTool counts the published reviews on a tool. Used by
// aggregate recomputation.
func (r *ReviewRepository) CountPublishedByTool(ctx context.Context, toolID string) (int, error) {
	query := `SELECT count(*) FROM reviews WHERE tool_id = $1 AND status = 'published'`

	var count int
	if err := r.db.QueryRow(ctx, query, toolID).Scan(&count); err != nil {
		return 0, fmt.Errorf("count reviews: %w", err)
	}

	return count, nil
}

// AddReplyCount atomically adjusts a review's reply counter.
func (r *ReviewRepository) AddReplyCount(ctx context.Context, id string, delta int) error {
	return r.addCounter(ctx, id, "reply_count", delta)
}

// AddHelpfulCount atomically adjusts a review's helpful counter.
func (r *ReviewRepository) AddHelpfulCount(ctx context.Context, id string, delta int) error {
	return r.addCounter(ctx, id, "helpful_count", delta)
}

func (r *ReviewRepository) addCounter(ctx context.Context, id, column string, delta int) error {
	query := fmt.Sprintf(`
		UPDATE reviews
		SET %s = GREATEST(%s + $1, 0), updated_at = now()
		WHERE id = $2`, column, column)

	ct, err := r.db.Exec(ctx, query, delta, id)
	if err != nil {
		return fmt.Errorf("adjust %s: %w", column, err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("review", id)
	}

	return nil
}
