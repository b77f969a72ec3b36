package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/toolhub/backend/internal/domain"
	"github.com/toolhub/backend/internal/repository"
	"github.com/toolhub/backend/pkg/database"
	apperrors "github.com/toolhub/backend/pkg/errors"
)

// ─────────────────────────────────────────────────────────────────────────────
// helpers
// ─────────────────────────────────────────────────────────────────────────────

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := database.NewMockPool()
	require.NoError(t, err)
	return mock
}

func strPtr(s string) *string { return &s }
func intPtr(n int) *int       { return &n }

var now = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

// ─── Tool column definitions ────────────────────────────────────────────────

var toolCols = []string{
	"id", "name", "slug", "tagline", "description", "website_url", "logo_url",
	"category_id", "tags", "pricing_model", "status", "view_count", "upvote_count",
	"favorite_count", "review_count", "average_rating", "created_by",
	"created_at", "updated_at",
}

var toolColsWithCount = append(append([]string{}, toolCols...), "total_count")

func sampleTool() domain.Tool {
	return domain.Tool{
		ID:            "tool-1",
		Name:          "Image Resizer",
		Slug:          "image-resizer",
		Tagline:       "Resize images in bulk",
		Description:   "Batch image resizing with presets.",
		WebsiteURL:    "https://resizer.example.com",
		LogoURL:       "https://cdn.example.com/resizer.png",
		CategoryID:    strPtr("cat-1"),
		Tags:          []string{"images", "batch"},
		PricingModel:  domain.PricingFreemium,
		Status:        domain.ToolStatusPublished,
		ViewCount:     120,
		UpvoteCount:   30,
		FavoriteCount: 12,
		ReviewCount:   4,
		AverageRating: 4.2,
		CreatedBy:     "user-1",
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

func toolRow(t domain.Tool) []any {
	return []any{
		t.ID, t.Name, t.Slug, t.Tagline, t.Description, t.WebsiteURL, t.LogoURL,
		t.CategoryID, t.Tags, t.PricingModel, t.Status, t.ViewCount, t.UpvoteCount,
		t.FavoriteCount, t.ReviewCount, t.AverageRating, t.CreatedBy,
		t.CreatedAt, t.UpdatedAt,
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// ToolRepository
// ─────────────────────────────────────────────────────────────────────────────

func TestToolRepository_Create_Success(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()
	repo := NewToolRepository(mock)

	tool := sampleTool()

	mock.ExpectExec("INSERT INTO tools").
		WithArgs(
			tool.ID, tool.Name, tool.Slug, tool.Tagline, tool.Description,
			tool.WebsiteURL, tool.LogoURL, tool.CategoryID, tool.Tags, tool.PricingModel, tool.Status,
			tool.ViewCount, tool.UpvoteCount, tool.FavoriteCount, tool.ReviewCount,
			tool.AverageRating, tool.CreatedBy, tool.CreatedAt, tool.UpdatedAt,
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := repo.Create(context.Background(), &tool)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestToolRepository_Create_DuplicateSlug(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()
	repo := NewToolRepository(mock)

	tool := sampleTool()

	mock.ExpectExec("INSERT INTO tools").
		WithArgs(
			tool.ID, tool.Name, tool.Slug, tool.Tagline, tool.Description,
			tool.WebsiteURL, tool.LogoURL, tool.CategoryID, tool.Tags, tool.PricingModel, tool.Status,
			tool.ViewCount, tool.UpvoteCount, tool.FavoriteCount, tool.ReviewCount,
			tool.AverageRating, tool.CreatedBy, tool.CreatedAt, tool.UpdatedAt,
		).
		WillReturnError(errors.New("ERROR: duplicate key value violates unique constraint (SQLSTATE 23505)"))

	err := repo.Create(context.Background(), &tool)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrAlreadyExists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestToolRepository_GetByID_Success(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()
	repo := NewToolRepository(mock)

	tool := sampleTool()
	mock.ExpectQuery("SELECT .+ FROM tools WHERE id").
		WithArgs(tool.ID).
		WillReturnRows(pgxmock.NewRows(toolCols).AddRow(toolRow(tool)...))

	result, err := repo.GetByID(context.Background(), tool.ID)
	require.NoError(t, err)
	assert.Equal(t, tool.ID, result.ID)
	assert.Equal(t, tool.Tags, result.Tags)
	assert.Equal(t, 4.2, result.AverageRating)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestToolRepository_GetByID_NotFound(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()
	repo := NewToolRepository(mock)

	mock.ExpectQuery("SELECT .+ FROM tools WHERE id").
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)

	_, err := repo.GetByID(context.Background(), "missing")
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestToolRepository_List_WithFilters(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()
	repo := NewToolRepository(mock)

	tool := sampleTool()
	status := domain.ToolStatusPublished

	mock.ExpectQuery("SELECT .+ count\\(\\*\\) OVER\\(\\) AS total_count.+FROM tools").
		WithArgs(status, 20, 0).
		WillReturnRows(pgxmock.NewRows(toolColsWithCount).AddRow(append(toolRow(tool), 1)...))

	tools, total, err := repo.List(context.Background(), repository.ToolFilter{Status: &status})
	require.NoError(t, err)
	assert.Len(t, tools, 1)
	assert.Equal(t, 1, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestToolRepository_List_Empty(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()
	repo := NewToolRepository(mock)

	mock.ExpectQuery("SELECT .+ FROM tools").
		WithArgs(20, 0).
		WillReturnRows(pgxmock.NewRows(toolColsWithCount))

	tools, total, err := repo.List(context.Background(), repository.ToolFilter{})
	require.NoError(t, err)
	assert.Empty(t, tools)
	assert.NotNil(t, tools)
	assert.Equal(t, 0, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestToolRepository_Update_NotFound(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()
	repo := NewToolRepository(mock)

	tool := sampleTool()

	mock.ExpectExec("UPDATE tools").
		WithArgs(
			tool.Name, tool.Slug, tool.Tagline, tool.Description, tool.WebsiteURL,
			tool.LogoURL, tool.CategoryID, tool.Tags, tool.PricingModel, tool.Status, pgxmock.AnyArg(), tool.ID,
		).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := repo.Update(context.Background(), &tool)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestToolRepository_AddCounter_Upvote(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()
	repo := NewToolRepository(mock)

	mock.ExpectExec("UPDATE tools.+SET upvote_count = GREATEST").
		WithArgs(1, "tool-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err := repo.AddCounter(context.Background(), "tool-1", domain.ActionUpvote, 1)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestToolRepository_AddCounter_UnknownKind(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()
	repo := NewToolRepository(mock)

	err := repo.AddCounter(context.Background(), "tool-1", "LIKE", 1)
	assert.Error(t, err)
}

func TestToolRepository_UpdateAggregates_Success(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()
	repo := NewToolRepository(mock)

	agg := domain.Aggregates{
		UpvoteCount:   40,
		FavoriteCount: 15,
		ReviewCount:   6,
		AverageRating: 3.5,
	}

	mock.ExpectExec("UPDATE tools").
		WithArgs(agg.UpvoteCount, agg.FavoriteCount, agg.ReviewCount, agg.AverageRating, "tool-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err := repo.UpdateAggregates(context.Background(), "tool-1", agg)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestToolRepository_ListHot(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()
	repo := NewToolRepository(mock)

	tool := sampleTool()
	mock.ExpectQuery(`SELECT .+ FROM tools.+ORDER BY upvote_count DESC, average_rating DESC, view_count DESC, id ASC`).
		WithArgs(10).
		WillReturnRows(pgxmock.NewRows(toolCols).AddRow(toolRow(tool)...))

	tools, err := repo.ListHot(context.Background(), 10)
	require.NoError(t, err)
	assert.Len(t, tools, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestToolRepository_SearchByKeywords_DeterministicOrder(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()
	repo := NewToolRepository(mock)

	tool := sampleTool()
	mock.ExpectQuery(`SELECT .+ FROM tools.+ORDER BY upvote_count DESC, average_rating DESC, id ASC`).
		WithArgs("%image%", "%photo%", 5).
		WillReturnRows(pgxmock.NewRows(toolCols).AddRow(toolRow(tool)...))

	tools, err := repo.SearchByKeywords(context.Background(), []string{"image", "photo"}, 5)
	require.NoError(t, err)
	assert.Len(t, tools, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestToolRepository_SearchByKeywords_NoKeywords(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()
	repo := NewToolRepository(mock)

	tools, err := repo.SearchByKeywords(context.Background(), nil, 10)
	require.NoError(t, err)
	assert.Empty(t, tools)
}

func TestToolRepository_ListByCategories_NoCategories(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()
	repo := NewToolRepository(mock)

	tools, err := repo.ListByCategories(context.Background(), nil, nil, 10)
	require.NoError(t, err)
	assert.Empty(t, tools)
}

// ─────────────────────────────────────────────────────────────────────────────
// CategoryRepository
// ─────────────────────────────────────────────────────────────────────────────

var catCols = []string{"id", "name", "slug", "tool_count", "created_at"}

func TestCategoryRepository_List(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()
	repo := NewCategoryRepository(mock)

	mock.ExpectQuery("SELECT .+ FROM categories").
		WillReturnRows(pgxmock.NewRows(catCols).
			AddRow("cat-1", "Design", "design", 12, now).
			AddRow("cat-2", "Writing", "writing", 7, now))

	categories, err := repo.List(context.Background())
	require.NoError(t, err)
	require.Len(t, categories, 2)
	assert.Equal(t, 12, categories[0].ToolCount)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCategoryRepository_GetByID_NotFound(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()
	repo := NewCategoryRepository(mock)

	mock.ExpectQuery("SELECT .+ FROM categories").
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)

	_, err := repo.GetByID(context.Background(), "missing")
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
