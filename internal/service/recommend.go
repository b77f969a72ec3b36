package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"

	"github.com/toolhub/backend/internal/cache"
	"github.com/toolhub/backend/internal/domain"
	"github.com/toolhub/backend/internal/repository"
	apperrors "github.com/toolhub/backend/pkg/errors"
)

// historyWindow is how many recent actions feed history-based
// recommendations.
const historyWindow = 3

// defaultSynonyms expands query terms so a search for "photo" also reaches
// tools describing themselves with "image". Deployments can replace it with a
// JSON dictionary via LoadSynonyms.
var defaultSynonyms = map[string][]string{
	"image":   {"photo", "picture", "graphic"},
	"photo":   {"image", "picture"},
	"write":   {"writing", "text", "copy"},
	"writing": {"write", "text", "copy"},
	"video":   {"clip", "footage"},
	"audio":   {"voice", "sound", "music"},
	"code":    {"programming", "developer", "coding"},
	"chat":    {"assistant", "conversation", "bot"},
	"design":  {"ui", "graphics", "layout"},
	"pdf":     {"document", "docs"},
	"resume":  {"cv"},
	"summary": {"summarize", "digest"},
}

// RecommendService ranks tools for a viewer: by keyword, by similarity to a
// tool, or by the viewer's recent activity. Every path falls back to the hot
// listing rather than returning nothing.
type RecommendService struct {
	tools    repository.ToolRepository
	actions  repository.ActionRepository
	cache    cache.Store
	synonyms map[string][]string
	logger   *slog.Logger
}

// NewRecommendService creates a new recommendation service. A nil synonyms
// map selects the built-in dictionary.
func NewRecommendService(
	tools repository.ToolRepository,
	actions repository.ActionRepository,
	cacheStore cache.Store,
	synonyms map[string][]string,
	logger *slog.Logger,
) *RecommendService {
	if synonyms == nil {
		synonyms = defaultSynonyms
	}
	return &RecommendService{
		tools:    tools,
		actions:  actions,
		cache:    cacheStore,
		synonyms: synonyms,
		logger:   logger,
	}
}

// LoadSynonyms reads a synonym dictionary from a JSON file mapping a term to
// its expansions.
func LoadSynonyms(path string) (map[string][]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read synonyms file: %w", err)
	}

	var dict map[string][]string
	if err := json.Unmarshal(data, &dict); err != nil {
		return nil, fmt.Errorf("parse synonyms file: %w", err)
	}

	return dict, nil
}

// Hot returns the most engaged published tools, cached read-through.
func (s *RecommendService) Hot(ctx context.Context, limit int) ([]domain.Tool, error) {
	if limit <= 0 {
		return []domain.Tool{}, nil
	}

	var tools []domain.Tool
	key := cache.HotToolsKey()
	if cache.GetJSON(ctx, s.cache, key, &tools) {
		if len(tools) > limit {
			tools = tools[:limit]
		}
		return tools, nil
	}

	tools, err := s.tools.ListHot(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("list hot tools: %w", err)
	}

	cache.SetJSON(ctx, s.cache, key, tools, cache.HotTTL)
	return tools, nil
}

// ByQuery ranks tools matching the dictionary keywords found in the query. A
// query containing no dictionary keyword falls back to the hot listing; a
// keyword query that matches no tool is an empty result, not a fallback.
func (s *RecommendService) ByQuery(ctx context.Context, query string, limit int) ([]domain.Recommendation, error) {
	if limit <= 0 {
		return []domain.Recommendation{}, nil
	}

	keywords := expandKeywords(query, s.synonyms)
	if len(keywords) == 0 {
		return s.hotFallback(ctx, limit)
	}

	tools, err := s.tools.SearchByKeywords(ctx, keywords, limit)
	if err != nil {
		return nil, fmt.Errorf("search by keywords: %w", err)
	}

	return tagged(tools, domain.RecommendSourceKeyword), nil
}

// BySimilar ranks tools sharing tags with the given tool. An unknown seed
// tool yields an empty sequence, not an error.
func (s *RecommendService) BySimilar(ctx context.Context, toolID string, limit int) ([]domain.Recommendation, error) {
	if limit <= 0 {
		return []domain.Recommendation{}, nil
	}

	if _, err := s.tools.GetByID(ctx, toolID); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return []domain.Recommendation{}, nil
		}
		return nil, fmt.Errorf("load tool: %w", err)
	}

	tools, err := s.tools.ListSimilar(ctx, toolID, limit)
	if err != nil {
		return nil, fmt.Errorf("list similar tools: %w", err)
	}

	return tagged(tools, domain.RecommendSourceSimilar), nil
}

// ByHistory ranks tools from the categories of the viewer's recent actions,
// excluding tools the viewer has already engaged with. Viewers without
// history get the hot listing.
func (s *RecommendService) ByHistory(ctx context.Context, userID string, limit int) ([]domain.Recommendation, error) {
	if limit <= 0 {
		return []domain.Recommendation{}, nil
	}
	if userID == "" {
		return s.hotFallback(ctx, limit)
	}

	categories, err := s.actions.RecentCategoryIDs(ctx, userID, historyWindow)
	if err != nil {
		return nil, fmt.Errorf("recent categories: %w", err)
	}
	if len(categories) == 0 {
		return s.hotFallback(ctx, limit)
	}

	exclude, err := s.actions.ActedToolIDs(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("acted tools: %w", err)
	}

	tools, err := s.tools.ListByCategories(ctx, categories, exclude, limit)
	if err != nil {
		return nil, fmt.Errorf("list by categories: %w", err)
	}

	return tagged(tools, domain.RecommendSourceHistory), nil
}

func (s *RecommendService) hotFallback(ctx context.Context, limit int) ([]domain.Recommendation, error) {
	tools, err := s.Hot(ctx, limit)
	if err != nil {
		return nil, err
	}
	return tagged(tools, domain.RecommendSourceHot), nil
}

// expandKeywords matches the query against the synonym dictionary and expands
// every hit into its full synonym group, deduplicated. Only dictionary terms
// come out; a query with no dictionary hit yields nothing, which the caller
// turns into the hot fallback. Entries are scanned in key order so the result
// is deterministic.
func expandKeywords(query string, synonyms map[string][]string) []string {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return nil
	}

	keys := make([]string, 0, len(synonyms))
	for key := range synonyms {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	seen := make(map[string]struct{})
	var keywords []string
	add := func(term string) {
		if _, ok := seen[term]; ok {
			return
		}
		seen[term] = struct{}{}
		keywords = append(keywords, term)
	}

	for _, key := range keys {
		group := append([]string{key}, synonyms[key]...)
		matched := false
		for _, term := range group {
			if strings.Contains(q, strings.ToLower(term)) {
				matched = true
				break
			}
		}
		if !matched {
			continue
		}
		for _, term := range group {
			add(strings.ToLower(term))
		}
	}

	return keywords
}

func tagged(tools []domain.Tool, source string) []domain.Recommendation {
	recs := make([]domain.Recommendation, len(tools))
	for i, t := range tools {
		recs[i] = domain.Recommendation{Tool: t, Source: source}
	}
	return recs
}
