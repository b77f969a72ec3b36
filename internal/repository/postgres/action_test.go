package postgres

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/toolhub/backend/internal/domain"
)

func sampleAction() domain.Action {
	return domain.Action{
		ID:        "act-1",
		UserID:    "user-1",
		TargetID:  "tool-1",
		Kind:      domain.ActionUpvote,
		CreatedAt: now,
	}
}

func TestActionRepository_Insert_New(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()
	repo := NewActionRepository(mock)

	a := sampleAction()

	mock.ExpectExec("INSERT INTO user_actions").
		WithArgs(a.ID, a.UserID, a.TargetID, a.Kind, a.Value, a.CreatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	inserted, err := repo.Insert(context.Background(), &a)
	require.NoError(t, err)
	assert.True(t, inserted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestActionRepository_Insert_Duplicate_Absorbed(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()
	repo := NewActionRepository(mock)

	a := sampleAction()

	// ON CONFLICT DO NOTHING: the duplicate insert affects zero rows but
	// never errors.
	mock.ExpectExec("INSERT INTO user_actions").
		WithArgs(a.ID, a.UserID, a.TargetID, a.Kind, a.Value, a.CreatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 0))

	inserted, err := repo.Insert(context.Background(), &a)
	require.NoError(t, err)
	assert.False(t, inserted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestActionRepository_Delete_Existing(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()
	repo := NewActionRepository(mock)

	mock.ExpectExec("DELETE FROM user_actions").
		WithArgs("user-1", "tool-1", domain.ActionUpvote).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))

	removed, err := repo.Delete(context.Background(), "user-1", "tool-1", domain.ActionUpvote)
	require.NoError(t, err)
	assert.True(t, removed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestActionRepository_Delete_NothingRecorded(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()
	repo := NewActionRepository(mock)

	mock.ExpectExec("DELETE FROM user_actions").
		WithArgs("user-1", "tool-1", domain.ActionFavorite).
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	removed, err := repo.Delete(context.Background(), "user-1", "tool-1", domain.ActionFavorite)
	require.NoError(t, err)
	assert.False(t, removed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestActionRepository_Exists(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()
	repo := NewActionRepository(mock)

	mock.ExpectQuery("SELECT EXISTS").
		WithArgs("user-1", "tool-1", domain.ActionUpvote).
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))

	exists, err := repo.Exists(context.Background(), "user-1", "tool-1", domain.ActionUpvote)
	require.NoError(t, err)
	assert.True(t, exists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestActionRepository_CountByKind(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()
	repo := NewActionRepository(mock)

	mock.ExpectQuery("SELECT count\\(\\*\\) FROM user_actions").
		WithArgs("tool-1", domain.ActionUpvote).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(42))

	count, err := repo.CountByKind(context.Background(), "tool-1", domain.ActionUpvote)
	require.NoError(t, err)
	assert.Equal(t, 42, count)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestActionRepository_UpsertRating(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()
	repo := NewActionRepository(mock)

	rt := domain.Rating{ID: "rating-1", ToolID: "tool-1", UserID: "user-1", Score: 4, CreatedAt: now}

	mock.ExpectExec("INSERT INTO ratings").
		WithArgs(rt.ID, rt.ToolID, rt.UserID, rt.Score, rt.CreatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := repo.UpsertRating(context.Background(), &rt)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestActionRepository_GetRating_Unrated(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()
	repo := NewActionRepository(mock)

	mock.ExpectQuery("SELECT .+ FROM ratings").
		WithArgs("tool-1", "user-9").
		WillReturnError(pgx.ErrNoRows)

	rt, err := repo.GetRating(context.Background(), "tool-1", "user-9")
	require.NoError(t, err)
	assert.Nil(t, rt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestActionRepository_RatingStats_NoRatings(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()
	repo := NewActionRepository(mock)

	mock.ExpectQuery("SELECT COALESCE\\(AVG\\(score\\), 0\\), count\\(\\*\\) FROM ratings").
		WithArgs("tool-1").
		WillReturnRows(pgxmock.NewRows([]string{"avg", "count"}).AddRow(0.0, 0))

	stats, err := repo.RatingStats(context.Background(), "tool-1")
	require.NoError(t, err)
	assert.Zero(t, stats.Average)
	assert.Zero(t, stats.Count)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestActionRepository_RecentCategoryIDs(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()
	repo := NewActionRepository(mock)

	mock.ExpectQuery("SELECT DISTINCT t.category_id").
		WithArgs("user-1", 3).
		WillReturnRows(pgxmock.NewRows([]string{"category_id"}).AddRow("cat-1").AddRow("cat-2"))

	ids, err := repo.RecentCategoryIDs(context.Background(), "user-1", 3)
	require.NoError(t, err)
	assert.Equal(t, []string{"cat-1", "cat-2"}, ids)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestActionRepository_ActedToolIDs_Empty(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()
	repo := NewActionRepository(mock)

	mock.ExpectQuery("SELECT DISTINCT target_id").
		WithArgs("user-1").
		WillReturnRows(pgxmock.NewRows([]string{"target_id"}))

	ids, err := repo.ActedToolIDs(context.Background(), "user-1")
	require.NoError(t, err)
	assert.NotNil(t, ids)
	assert.Empty(t, ids)
	assert.NoError(t, mock.ExpectationsWereMet())
}
