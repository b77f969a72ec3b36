package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/toolhub/backend/internal/cache"
	"github.com/toolhub/backend/internal/domain"
	"github.com/toolhub/backend/internal/event"
	"github.com/toolhub/backend/internal/repository"
	apperrors "github.com/toolhub/backend/pkg/errors"
	"github.com/toolhub/backend/pkg/pagination"
)

type toolFixture struct {
	tools      *mockToolRepository
	actions    *mockActionRepository
	categories *mockCategoryRepository
	cache      *fakeCache
	sink       *fakeSink
	svc        *ToolService
}

func newToolFixture() *toolFixture {
	f := &toolFixture{
		tools:      new(mockToolRepository),
		actions:    new(mockActionRepository),
		categories: new(mockCategoryRepository),
		cache:      newFakeCache(),
		sink:       &fakeSink{},
	}
	f.svc = NewToolService(f.tools, f.actions, f.categories, f.cache, newTestProducer(f.sink), newTestLogger())
	return f
}

func TestToolCreate_StartsAsDraft(t *testing.T) {
	f := newToolFixture()
	ctx := context.Background()

	f.tools.On("Create", ctx, mock.AnythingOfType("*domain.Tool")).Return(nil)

	tool, err := f.svc.Create(ctx, "user-1", &domain.CreateToolRequest{
		Name:    "Pixel Forge",
		Tagline: "Image generation for teams",
		Tags:    []string{"image", "ai"},
	})

	require.NoError(t, err)
	assert.Equal(t, domain.ToolStatusDraft, tool.Status)
	assert.Equal(t, "pixel-forge", tool.Slug)
	assert.Equal(t, "user-1", tool.CreatedBy)
	assert.Equal(t, domain.PricingFree, tool.PricingModel)
}

func TestToolCreate_SlugCollision_RetriesWithSuffix(t *testing.T) {
	f := newToolFixture()
	ctx := context.Background()

	f.tools.On("Create", ctx, mock.AnythingOfType("*domain.Tool")).
		Return(apperrors.AlreadyExists("tool", "slug", "pixel-forge")).Once()
	f.tools.On("Create", ctx, mock.AnythingOfType("*domain.Tool")).Return(nil).Once()

	tool, err := f.svc.Create(ctx, "user-1", &domain.CreateToolRequest{Name: "Pixel Forge"})

	require.NoError(t, err)
	assert.Equal(t, "pixel-forge-"+tool.ID[:8], tool.Slug)
	f.tools.AssertNumberOfCalls(t, "Create", 2)
}

func TestToolCreate_UnknownCategory_Rejected(t *testing.T) {
	f := newToolFixture()
	ctx := context.Background()

	f.categories.On("GetByID", ctx, "cat-x").Return(nil, apperrors.NotFound("category", "cat-x"))

	_, err := f.svc.Create(ctx, "user-1", &domain.CreateToolRequest{
		Name:       "Pixel Forge",
		CategoryID: strPtrOf("cat-x"),
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	f.tools.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestGetDetail_ViewerState(t *testing.T) {
	f := newToolFixture()
	ctx := context.Background()
	tool := publishedTool("tool-1")
	rating := &domain.Rating{ToolID: "tool-1", UserID: "user-1", Score: 4}

	f.tools.On("GetByID", ctx, "tool-1").Return(tool, nil)
	f.actions.On("Exists", ctx, "user-1", "tool-1", domain.ActionUpvote).Return(true, nil)
	f.actions.On("Exists", ctx, "user-1", "tool-1", domain.ActionFavorite).Return(false, nil)
	f.actions.On("GetRating", ctx, "tool-1", "user-1").Return(rating, nil)
	f.tools.On("AddCounter", ctx, "tool-1", domain.ActionView, 1).Return(nil)
	f.actions.On("Insert", ctx, mock.AnythingOfType("*domain.Action")).Return(true, nil)

	detail, err := f.svc.GetDetail(ctx, "tool-1", "user-1")

	require.NoError(t, err)
	assert.True(t, detail.ViewerUpvoted)
	assert.False(t, detail.ViewerFavorited)
	require.NotNil(t, detail.ViewerRating)
	assert.Equal(t, 4, *detail.ViewerRating)
	f.actions.AssertExpectations(t)
}

func TestGetDetail_AnonymousViewCountedWithoutLedger(t *testing.T) {
	f := newToolFixture()
	ctx := context.Background()

	f.tools.On("GetByID", ctx, "tool-1").Return(publishedTool("tool-1"), nil)
	f.tools.On("AddCounter", ctx, "tool-1", domain.ActionView, 1).Return(nil)

	detail, err := f.svc.GetDetail(ctx, "tool-1", "")

	require.NoError(t, err)
	assert.False(t, detail.ViewerUpvoted)
	assert.Nil(t, detail.ViewerRating)
	f.actions.AssertNotCalled(t, "Insert", mock.Anything, mock.Anything)
	f.tools.AssertExpectations(t)
}

func TestGetDetail_ServedFromCache(t *testing.T) {
	f := newToolFixture()
	ctx := context.Background()

	cached := domain.Tool{ID: "tool-1", Name: "Cached Tool", Status: domain.ToolStatusPublished}
	cache.SetJSON(ctx, f.cache, cache.ToolDetailKey("tool-1"), cached, cache.DetailTTL)

	f.tools.On("AddCounter", ctx, "tool-1", domain.ActionView, 1).Return(nil)

	detail, err := f.svc.GetDetail(ctx, "tool-1", "")

	require.NoError(t, err)
	assert.Equal(t, "Cached Tool", detail.Name)
	f.tools.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
}

func TestGetDetail_NotFound(t *testing.T) {
	f := newToolFixture()
	ctx := context.Background()

	f.tools.On("GetByID", ctx, "missing").Return(nil, apperrors.ErrNotFound)

	_, err := f.svc.GetDetail(ctx, "missing", "")

	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestToolList_Paginates(t *testing.T) {
	f := newToolFixture()
	ctx := context.Background()
	params := pagination.Params{Page: 2, PerPage: 10}

	f.tools.On("List", ctx, mock.AnythingOfType("repository.ToolFilter")).
		Return(namedTools("alpha", "beta"), 12, nil)

	result, err := f.svc.List(ctx, repository.ToolFilter{Status: strPtrOf(domain.ToolStatusPublished)}, params)

	require.NoError(t, err)
	assert.Len(t, result.Data, 2)
	assert.Equal(t, 12, result.TotalCount)
	assert.Equal(t, 2, result.Page)
	assert.Equal(t, 2, result.TotalPages)

	filter := f.tools.Calls[0].Arguments.Get(1).(repository.ToolFilter)
	assert.Equal(t, 2, filter.Page)
	assert.Equal(t, 10, filter.PerPage)
}

func TestToolUpdate_OwnerOnly(t *testing.T) {
	f := newToolFixture()
	ctx := context.Background()

	f.tools.On("GetByID", ctx, "tool-1").Return(publishedTool("tool-1"), nil)

	_, err := f.svc.Update(ctx, "intruder", "tool-1", &domain.UpdateToolRequest{Name: strPtrOf("Stolen")})

	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrForbidden)
	f.tools.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
}

func TestToolUpdate_InvalidStatus_Rejected(t *testing.T) {
	f := newToolFixture()
	ctx := context.Background()

	f.tools.On("GetByID", ctx, "tool-1").Return(publishedTool("tool-1"), nil)

	_, err := f.svc.Update(ctx, "owner-1", "tool-1", &domain.UpdateToolRequest{Status: strPtrOf("retired")})

	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestToolUpdate_InvalidatesCachesAndPublishes(t *testing.T) {
	f := newToolFixture()
	ctx := context.Background()

	cache.SetJSON(ctx, f.cache, cache.ToolDetailKey("tool-1"), domain.Tool{ID: "tool-1"}, cache.DetailTTL)
	cache.SetJSON(ctx, f.cache, cache.HotToolsKey(), []domain.Tool{}, cache.HotTTL)

	f.tools.On("GetByID", ctx, "tool-1").Return(publishedTool("tool-1"), nil)
	f.tools.On("Update", ctx, mock.AnythingOfType("*domain.Tool")).Return(nil)

	updated, err := f.svc.Update(ctx, "owner-1", "tool-1", &domain.UpdateToolRequest{Tagline: strPtrOf("New tagline")})

	require.NoError(t, err)
	assert.Equal(t, "New tagline", updated.Tagline)
	assert.False(t, f.cache.has(cache.ToolDetailKey("tool-1")))
	assert.False(t, f.cache.has(cache.HotToolsKey()))
	assert.Equal(t, []string{event.TopicToolUpdated}, f.sink.published())
}

func TestToolArchive(t *testing.T) {
	f := newToolFixture()
	ctx := context.Background()

	f.tools.On("GetByID", ctx, "tool-1").Return(publishedTool("tool-1"), nil)
	f.tools.On("Update", ctx, mock.MatchedBy(func(tool *domain.Tool) bool {
		return tool.Status == domain.ToolStatusArchived
	})).Return(nil)

	err := f.svc.Archive(ctx, "owner-1", "tool-1")

	require.NoError(t, err)
	f.tools.AssertExpectations(t)
}

func TestCreateCategory(t *testing.T) {
	f := newToolFixture()
	ctx := context.Background()

	f.categories.On("Create", ctx, mock.AnythingOfType("*domain.Category")).Return(nil)

	category, err := f.svc.CreateCategory(ctx, "Image Generation")

	require.NoError(t, err)
	assert.Equal(t, "image-generation", category.Slug)

	_, err = f.svc.CreateCategory(ctx, "")
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}
