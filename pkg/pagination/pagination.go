// Package pagination implements offset pagination for list endpoints.
// Handlers read Params off the request and wrap repository results in
// a Result so every listing responds with the same page envelope.
package pagination

import (
	"net/http"
	"strconv"
)

const (
	defaultPerPage = 20
	maxPerPage     = 100
)

// Params carries the requested page and the derived SQL offset.
type Params struct {
	Page    int `json:"page"`
	PerPage int `json:"per_page"`
	Offset  int `json:"-"`
}

// DefaultParams is the first page at the default size.
func DefaultParams() Params {
	return Params{Page: 1, PerPage: defaultPerPage}
}

// FromRequest reads page and per_page from the query string. Values that
// are missing, malformed, or out of range fall back to the defaults
// rather than erroring, and per_page is capped at maxPerPage.
func FromRequest(r *http.Request) Params {
	p := DefaultParams()

	p.Page = positiveQueryInt(r, "page", p.Page, 0)
	p.PerPage = positiveQueryInt(r, "per_page", p.PerPage, maxPerPage)
	p.Offset = (p.Page - 1) * p.PerPage

	return p
}

func positiveQueryInt(r *http.Request, key string, fallback, max int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 1 {
		return fallback
	}
	if max > 0 && v > max {
		return fallback
	}
	return v
}

// Result is the page envelope list endpoints respond with.
type Result[T any] struct {
	Data       []T  `json:"data"`
	TotalCount int  `json:"total_count"`
	Page       int  `json:"page"`
	PerPage    int  `json:"per_page"`
	TotalPages int  `json:"total_pages"`
	HasNext    bool `json:"has_next"`
	HasPrev    bool `json:"has_prev"`
}

// NewResult wraps one page of data with totals derived from the full
// row count the repository reported.
func NewResult[T any](data []T, totalCount int, params Params) Result[T] {
	totalPages := (totalCount + params.PerPage - 1) / params.PerPage

	return Result[T]{
		Data:       data,
		TotalCount: totalCount,
		Page:       params.Page,
		PerPage:    params.PerPage,
		TotalPages: totalPages,
		HasNext:    params.Page < totalPages,
		HasPrev:    params.Page > 1,
	}
}
