package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/toolhub/backend/internal/domain"
	"github.com/toolhub/backend/internal/repository"
	"github.com/toolhub/backend/pkg/database"
	apperrors "github.com/toolhub/backend/pkg/errors"
)

const toolColumns = `id, name, slug, tagline, description, website_url, logo_url, category_id, tags, pricing_model, status,
	   view_count, upvote_count, favorite_count, review_count, average_rating,
	   created_by, created_at, updated_at`

// counterColumns maps action kinds to the tool counter they maintain. The
// review counter is keyed separately because reviews are not ledger actions.
var counterColumns = map[string]string{
	domain.ActionView:     "view_count",
	domain.ActionUpvote:   "upvote_count",
	domain.ActionFavorite: "favorite_count",
	"REVIEW":              "review_count",
}

// ToolRepository implements repository.ToolRepository using PostgreSQL.
type ToolRepository struct {
	db database.DBTX
}

// NewToolRepository creates a new PostgreSQL-backed tool repository.
func NewToolRepository(db database.DBTX) *ToolRepository {
	return &ToolRepository{db: db}
}

// Create inserts a new tool into the database.
func (r *ToolRepository) Create(ctx context.Context, t *domain.Tool) error {
	query := `
		INSERT INTO tools (id, name, slug, tagline, description, website_url, logo_url, category_id, tags, pricing_model, status,
						   view_count, upvote_count, favorite_count, review_count, average_rating,
						   created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)`

	_, err := r.db.Exec(ctx, query,
		t.ID,
		t.Name,
		t.Slug,
		t.Tagline,
		t.Description,
		t.WebsiteURL,
		t.LogoURL,
		t.CategoryID,
		t.Tags,
		t.PricingModel,
		t.Status,
		t.ViewCount,
		t.UpvoteCount,
		t.FavoriteCount,
		t.ReviewCount,
		t.AverageRating,
		t.CreatedBy,
		t.CreatedAt,
		t.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.AlreadyExists("tool", "slug", t.Slug)
		}
		return fmt.Errorf("insert tool: %w", err)
	}

	return nil
}

// GetByID retrieves a tool by its ID.
func (r *ToolRepository) GetByID(ctx context.Context, id string) (*domain.Tool, error) {
	query := fmt.Sprintf(`SELECT %s FROM tools WHERE id = $1`, toolColumns)
	return r.scanTool(ctx, query, id)
}

// GetBySlug retrieves a tool by its slug.
func (r *ToolRepository) GetBySlug(ctx context.Context, slug string) (*domain.Tool, error) {
	query := fmt.Sprintf(`SELECT %s FROM tools WHERE slug = $1`, toolColumns)
	return r.scanTool(ctx, query, slug)
}

// List returns tools matching the given filter with the total count.
func (r *ToolRepository) List(ctx context.Context, filter repository.ToolFilter) ([]domain.Tool, int, error) {
	var (
		conditions []string
		args       []any
		argIndex   = 1
	)

	if filter.CategoryID != nil {
		conditions = append(conditions, fmt.Sprintf("category_id = $%d", argIndex))
		args = append(args, *filter.CategoryID)
		argIndex++
	}

	if filter.Status != nil {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argIndex))
		args = append(args, *filter.Status)
		argIndex++
	}

	if filter.Search != nil {
		conditions = append(conditions, fmt.Sprintf("(name ILIKE $%d OR tagline ILIKE $%d OR description ILIKE $%d)", argIndex, argIndex, argIndex))
		args = append(args, "%"+*filter.Search+"%")
		argIndex++
	}

	if filter.Tag != nil {
		conditions = append(conditions, fmt.Sprintf("$%d = ANY(tags)", argIndex))
		args = append(args, *filter.Tag)
		argIndex++
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	orderClause := "ORDER BY created_at DESC"
	switch filter.Sort {
	case repository.SortUpvotes:
		orderClause = "ORDER BY upvote_count DESC, average_rating DESC"
	case repository.SortRating:
		orderClause = "ORDER BY average_rating DESC, upvote_count DESC"
	}

	// Use count(*) OVER() for total count in a single query.
	query := fmt.Sprintf(`
		SELECT %s, count(*) OVER() AS total_count
		FROM tools
		%s
		%s
		LIMIT $%d OFFSET $%d`,
		toolColumns, whereClause, orderClause, argIndex, argIndex+1,
	)

	limit := filter.PerPage
	if limit <= 0 {
		limit = 20
	}
	offset := 0
	if filter.Page > 1 {
		offset = (filter.Page - 1) * limit
	}

	args = append(args, limit, offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list tools: %w", err)
	}
	defer rows.Close()

	var (
		tools      []domain.Tool
		totalCount int
	)

	for rows.Next() {
		var t domain.Tool
		if err := scanToolRow(rows, &t, &totalCount); err != nil {
			return nil, 0, err
		}
		tools = append(tools, t)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate tool rows: %w", err)
	}

	if tools == nil {
		tools = []domain.Tool{}
	}

	return tools, totalCount, nil
}

// Update modifies an existing tool in the database.
func (r *ToolRepository) Update(ctx context.Context, t *domain.Tool) error {
	t.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE tools
		SET name = $1, slug = $2, tagline = $3, description = $4, website_url = $5,
		    logo_url = $6, category_id = $7, tags = $8, pricing_model = $9, status = $10, updated_at = $11
		WHERE id = $12`

	ct, err := r.db.Exec(ctx, query,
		t.Name,
		t.Slug,
		t.Tagline,
		t.Description,
		t.WebsiteURL,
		t.LogoURL,
		t.CategoryID,
		t.Tags,
		t.PricingModel,
		t.Status,
		t.UpdatedAt,
		t.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.AlreadyExists("tool", "slug", t.Slug)
		}
		return fmt.Errorf("update tool: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("tool", t.ID)
	}

	return nil
}

// Delete removes a tool from the database by its ID.
func (r *ToolRepository) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM tools WHERE id = $1`

	ct, err := r.db.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete tool: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("tool", id)
	}

	return nil
}

// AddCounter atomically adjusts one engagement counter. The counter never
// drops below zero even if a revoke races a recomputation.
func (r *ToolRepository) AddCounter(ctx context.Context, toolID, kind string, delta int) error {
	column, ok := counterColumns[kind]
	if !ok {
		return fmt.Errorf("no counter column for action kind %q", kind)
	}

	query := fmt.Sprintf(`
		UPDATE tools
		SET %s = GREATEST(%s + $1, 0), updated_at = now()
		WHERE id = $2`, column, column)

	ct, err := r.db.Exec(ctx, query, delta, toolID)
	if err != nil {
		return fmt.Errorf("adjust %s: %w", column, err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("tool", toolID)
	}

	return nil
}

// UpdateAggregates overwrites the recomputable engagement counters. The view
// counter is deliberately left alone.
func (r *ToolRepository) UpdateAggregates(ctx context.Context, toolID string, agg domain.Aggregates) error {
	query := `
		UPDATE tools
		SET upvote_count = $1, favorite_count = $2,
		    review_count = $3, average_rating = $4, updated_at = now()
		WHERE id = $5`

	ct, err := r.db.Exec(ctx, query,
		agg.UpvoteCount,
		agg.FavoriteCount,
		agg.ReviewCount,
		agg.AverageRating,
		toolID,
	)
	if err != nil {
		return fmt.Errorf("update aggregates: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("tool", toolID)
	}

	return nil
}

// SetAverageRating overwrites only the rating aggregate.
func (r *ToolRepository) SetAverageRating(ctx context.Context, toolID string, avg float64, count int) error {
	query := `UPDATE tools SET average_rating = $1, updated_at = now() WHERE id = $2`

	ct, err := r.db.Exec(ctx, query, avg, toolID)
	if err != nil {
		return fmt.Errorf("set average rating: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("tool", toolID)
	}

	return nil
}

// ListHot returns the most engaged published tools.
func (r *ToolRepository) ListHot(ctx context.Context, limit int) ([]domain.Tool, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM tools
		WHERE status = 'published'
		ORDER BY upvote_count DESC, average_rating DESC, view_count DESC, id ASC
		LIMIT $1`, toolColumns)

	return r.queryTools(ctx, query, limit)
}

// ListSimilar returns published tools sharing tags with the given tool,
// ordered by how many tags they share.
func (r *ToolRepository) ListSimilar(ctx context.Context, toolID string, limit int) ([]domain.Tool, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM tools t
		WHERE t.status = 'published'
		  AND t.id <> $1
		  AND t.tags && (SELECT tags FROM tools WHERE id = $1)
		ORDER BY cardinality(ARRAY(
			SELECT unnest(t.tags) INTERSECT SELECT unnest((SELECT tags FROM tools WHERE id = $1))
		)) DESC, t.upvote_count DESC, t.id ASC
		LIMIT $2`, qualifyColumns("t", toolColumns))

	return r.queryTools(ctx, query, toolID, limit)
}

// ListByCategories returns published tools from the given categories,
// excluding the listed tool IDs.
func (r *ToolRepository) ListByCategories(ctx context.Context, categoryIDs, excludeToolIDs []string, limit int) ([]domain.Tool, error) {
	if len(categoryIDs) == 0 {
		return []domain.Tool{}, nil
	}
	if excludeToolIDs == nil {
		excludeToolIDs = []string{}
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM tools
		WHERE status = 'published'
		  AND category_id = ANY($1)
		  AND NOT (id = ANY($2))
		ORDER BY upvote_count DESC, average_rating DESC, id ASC
		LIMIT $3`, toolColumns)

	return r.queryTools(ctx, query, categoryIDs, excludeToolIDs, limit)
}

// SearchByKeywords returns published tools whose name, tagline, or description
// matches any of the expanded keywords.
func (r *ToolRepository) SearchByKeywords(ctx context.Context, keywords []string, limit int) ([]domain.Tool, error) {
	if len(keywords) == 0 {
		return []domain.Tool{}, nil
	}

	var (
		conditions []string
		args       []any
	)
	for i, kw := range keywords {
		idx := i + 1
		conditions = append(conditions, fmt.Sprintf("(name ILIKE $%d OR tagline ILIKE $%d OR description ILIKE $%d)", idx, idx, idx))
		args = append(args, "%"+kw+"%")
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM tools
		WHERE status = 'published' AND (%s)
		ORDER BY upvote_count DESC, average_rating DESC, id ASC
		LIMIT $%d`, toolColumns, strings.Join(conditions, " OR "), len(keywords)+1)

	args = append(args, limit)

	return r.queryTools(ctx, query, args...)
}

func (r *ToolRepository) queryTools(ctx context.Context, query string, args ...any) ([]domain.Tool, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query tools: %w", err)
	}
	defer rows.Close()

	var tools []domain.Tool
	for rows.Next() {
		var t domain.Tool
		if err := scanToolRow(rows, &t, nil); err != nil {
			return nil, err
		}
		tools = append(tools, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tool rows: %w", err)
	}

	if tools == nil {
		tools = []domain.Tool{}
	}

	return tools, nil
}

// scanTool is a helper that executes a query expected to return a single tool row.
func (r *ToolRepository) scanTool(ctx context.Context, query string, args ...any) (*domain.Tool, error) {
	var t domain.Tool

	err := r.db.QueryRow(ctx, query, args...).Scan(
		&t.ID,
		&t.Name,
		&t.Slug,
		&t.Tagline,
		&t.Description,
		&t.WebsiteURL,
		&t.LogoURL,
		&t.CategoryID,
		&t.Tags,
		&t.PricingModel,
		&t.Status,
		&t.ViewCount,
		&t.UpvoteCount,
		&t.FavoriteCount,
		&t.ReviewCount,
		&t.AverageRating,
		&t.CreatedBy,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("scan tool: %w", err)
	}

	return &t, nil
}

func scanToolRow(rows pgx.Rows, t *domain.Tool, totalCount *int) error {
	dest := []any{
		&t.ID,
		&t.Name,
		&t.Slug,
		&t.Tagline,
		&t.Description,
		&t.WebsiteURL,
		&t.LogoURL,
		&t.CategoryID,
		&t.Tags,
		&t.PricingModel,
		&t.Status,
		&t.ViewCount,
		&t.UpvoteCount,
		&t.FavoriteCount,
		&t.ReviewCount,
		&t.AverageRating,
		&t.CreatedBy,
		&t.CreatedAt,
		&t.UpdatedAt,
	}
	if totalCount != nil {
		dest = append(dest, totalCount)
	}

	if err := rows.Scan(dest...); err != nil {
		return fmt.Errorf("scan tool row: %w", err)
	}
	return nil
}

// qualifyColumns prefixes each column in a comma-separated list with a table alias.
func qualifyColumns(alias, columns string) string {
	parts := strings.Split(columns, ",")
	for i, p := range parts {
		parts[i] = alias + "." + strings.TrimSpace(p)
	}
	return strings.Join(parts, ", ")
}

// isUniqueViolation checks if the error is a PostgreSQL unique constraint violation (SQLSTATE 23505).
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "23505")
}
