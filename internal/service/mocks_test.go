package service

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/toolhub/backend/internal/domain"
	"github.com/toolhub/backend/internal/event"
	"github.com/toolhub/backend/internal/repository"
	pkgkafka "github.com/toolhub/backend/pkg/kafka"
)

// --- Mock Tool Repository ---

type mockToolRepository struct {
	mock.Mock
}

func (m *mockToolRepository) Create(ctx context.Context, t *domain.Tool) error {
	args := m.Called(ctx, t)
	return args.Error(0)
}

func (m *mockToolRepository) GetByID(ctx context.Context, id string) (*domain.Tool, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Tool), args.Error(1)
}

func (m *mockToolRepository) GetBySlug(ctx context.Context, slug string) (*domain.Tool, error) {
	args := m.Called(ctx, slug)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Tool), args.Error(1)
}

func (m *mockToolRepository) List(ctx context.Context, filter repository.ToolFilter) ([]domain.Tool, int, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]domain.Tool), args.Int(1), args.Error(2)
}

func (m *mockToolRepository) Update(ctx context.Context, t *domain.Tool) error {
	args := m.Called(ctx, t)
	return args.Error(0)
}

func (m *mockToolRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *mockToolRepository) AddCounter(ctx context.Context, toolID, kind string, delta int) error {
	args := m.Called(ctx, toolID, kind, delta)
	return args.Error(0)
}

func (m *mockToolRepository) UpdateAggregates(ctx context.Context, toolID string, agg domain.Aggregates) error {
	args := m.Called(ctx, toolID, agg)
	return args.Error(0)
}

func (m *mockToolRepository) SetAverageRating(ctx context.Context, toolID string, avg float64, count int) error {
	args := m.Called(ctx, toolID, avg, count)
	return args.Error(0)
}

func (m *mockToolRepository) ListHot(ctx context.Context, limit int) ([]domain.Tool, error) {
	args := m.Called(ctx, limit)
	return args.Get(0).([]domain.Tool), args.Error(1)
}

func (m *mockToolRepository) ListSimilar(ctx context.Context, toolID string, limit int) ([]domain.Tool, error) {
	args := m.Called(ctx, toolID, limit)
	return args.Get(0).([]domain.Tool), args.Error(1)
}

func (m *mockToolRepository) ListByCategories(ctx context.Context, categoryIDs, excludeToolIDs []string, limit int) ([]domain.Tool, error) {
	args := m.Called(ctx, categoryIDs, excludeToolIDs, limit)
	return args.Get(0).([]domain.Tool), args.Error(1)
}

func (m *mockToolRepository) SearchByKeywords(ctx context.Context, keywords []string, limit int) ([]domain.Tool, error) {
	args := m.Called(ctx, keywords, limit)
	return args.Get(0).([]domain.Tool), args.Error(1)
}

// --- Mock Action Repository ---

type mockActionRepository struct {
	mock.Mock
}

func (m *mockActionRepository) Insert(ctx context.Context, a *domain.Action) (bool, error) {
	args := m.Called(ctx, a)
	return args.Bool(0), args.Error(1)
}

func (m *mockActionRepository) Delete(ctx context.Context, userID, targetID, kind string) (bool, error) {
	args := m.Called(ctx, userID, targetID, kind)
	return args.Bool(0), args.Error(1)
}

func (m *mockActionRepository) Exists(ctx context.Context, userID, targetID, kind string) (bool, error) {
	args := m.Called(ctx, userID, targetID, kind)
	return args.Bool(0), args.Error(1)
}

func (m *mockActionRepository) CountByKind(ctx context.Context, targetID, kind string) (int, error) {
	args := m.Called(ctx, targetID, kind)
	return args.Int(0), args.Error(1)
}

func (m *mockActionRepository) HelpfulReviewIDs(ctx context.Context, userID string, reviewIDs []string) ([]string, error) {
	args := m.Called(ctx, userID, reviewIDs)
	return args.Get(0).([]string), args.Error(1)
}

func (m *mockActionRepository) UpsertRating(ctx context.Context, rt *domain.Rating) error {
	args := m.Called(ctx, rt)
	return args.Error(0)
}

func (m *mockActionRepository) GetRating(ctx context.Context, toolID, userID string) (*domain.Rating, error) {
	args := m.Called(ctx, toolID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Rating), args.Error(1)
}

func (m *mockActionRepository) RatingStats(ctx context.Context, toolID string) (domain.RatingStats, error) {
	args := m.Called(ctx, toolID)
	return args.Get(0).(domain.RatingStats), args.Error(1)
}

func (m *mockActionRepository) RecentCategoryIDs(ctx context.Context, userID string, lastN int) ([]string, error) {
	args := m.Called(ctx, userID, lastN)
	return args.Get(0).([]string), args.Error(1)
}

func (m *mockActionRepository) ActedToolIDs(ctx context.Context, userID string) ([]string, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).([]string), args.Error(1)
}

// --- Mock Review Repository ---

type mockReviewRepository struct {
	mock.Mock
}

func (m *mockReviewRepository) Create(ctx context.Context, rv *domain.Review) error {
	args := m.Called(ctx, rv)
	return args.Error(0)
}

func (m *mockReviewRepository) GetByID(ctx context.Context, id string) (*domain.Review, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Review), args.Error(1)
}

func (m *mockReviewRepository) Update(ctx context.Context, rv *domain.Review) error {
	args := m.Called(ctx, rv)
	return args.Error(0)
}

func (m *mockReviewRepository) Hide(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *mockReviewRepository) ListPublishedByTool(ctx context.Context, toolID string) ([]domain.Review, error) {
	args := m.Called(ctx, toolID)
	return args.Get(0).([]domain.Review), args.Error(1)
}

func (m *mockReviewRepository) CountPublishedByTool(ctx context.Context, toolID string) (int, error) {
	args := m.Called(ctx, toolID)
	return args.Int(0), args.Error(1)
}

func (m *mockReviewRepository) AddReplyCount(ctx context.Context, id string, delta int) error {
	args := m.Called(ctx, id, delta)
	return args.Error(0)
}

func (m *mockReviewRepository) AddHelpfulCount(ctx context.Context, id string, delta int) error {
	args := m.Called(ctx, id, delta)
	return args.Error(0)
}

// --- Mock Category Repository ---

type mockCategoryRepository struct {
	mock.Mock
}

func (m *mockCategoryRepository) Create(ctx context.Context, c *domain.Category) error {
	args := m.Called(ctx, c)
	return args.Error(0)
}

func (m *mockCategoryRepository) GetByID(ctx context.Context, id string) (*domain.Category, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Category), args.Error(1)
}

func (m *mockCategoryRepository) List(ctx context.Context) ([]domain.Category, error) {
	args := m.Called(ctx)
	return args.Get(0).([]domain.Category), args.Error(1)
}

// --- Fake cache store ---

// fakeCache is an in-memory cache.Store. With down=true every read misses and
// every write is dropped, imitating a Redis outage behind the breaker.
type fakeCache struct {
	mu   sync.Mutex
	data map[string][]byte
	down bool
}

func newFakeCache() *fakeCache {
	return &fakeCache{data: make(map[string][]byte)}
}

func (f *fakeCache) Get(_ context.Context, key string) ([]byte, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.down {
		return nil, false
	}
	b, ok := f.data[key]
	return b, ok
}

func (f *fakeCache) Set(_ context.Context, key string, value []byte, _ time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.down {
		return
	}
	f.data[key] = value
}

func (f *fakeCache) Invalidate(_ context.Context, keys ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.down {
		return
	}
	for _, k := range keys {
		delete(f.data, k)
	}
}

func (f *fakeCache) InvalidatePrefix(_ context.Context, prefix string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.down {
		return
	}
	for k := range f.data {
		if strings.HasPrefix(k, prefix) {
			delete(f.data, k)
		}
	}
}

func (f *fakeCache) has(key string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.data[key]
	return ok
}

// --- Fake event sink ---

type fakeSink struct {
	mu     sync.Mutex
	topics []string
}

func (f *fakeSink) Publish(_ context.Context, topic string, _ *pkgkafka.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.topics = append(f.topics, topic)
	return nil
}

func (f *fakeSink) published() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string{}, f.topics...)
}

// --- Test Helpers ---

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func newTestProducer(sink *fakeSink) *event.Producer {
	return event.NewProducer(sink, newTestLogger())
}
