package model

import "math"

// Pagination defaults.
const (
	DefaultPage        = 1
	DefaultPageLimit   = 20
	DefaultSearchLimit = 50
)

// PageRequest selects one page of a listing. Values below 1 fall back to
// the defaults.
type PageRequest struct {
	Page  int
	Limit int
}

// Normalize returns a copy with defaults applied.
func (r PageRequest) Normalize() PageRequest {
	if r.Page < 1 {
		r.Page = DefaultPage
	}
	if r.Limit < 1 {
		r.Limit = DefaultPageLimit
	}
	return r
}

// Offset is the number of rows skipped before this page. It saturates at
// math.MaxInt instead of wrapping, so a page far past the end stays empty.
func (r PageRequest) Offset() int {
	if r.Page <= 1 || r.Limit < 1 {
		return 0
	}
	if r.Page-1 > math.MaxInt/r.Limit {
		return math.MaxInt
	}
	return (r.Page - 1) * r.Limit
}

// Page is one slice of a listing ordered newest first.
type Page[T any] struct {
	Items      []T
	Total      int64
	Page       int
	Limit      int
	TotalPages int
}

// NewPage builds a Page and computes TotalPages as ceil(total/limit).
func NewPage[T any](items []T, total int64, req PageRequest) Page[T] {
	if items == nil {
		items = []T{}
	}

	pages := 0
	if req.Limit > 0 {
		pages = int((total + int64(req.Limit) - 1) / int64(req.Limit))
	}

	return Page[T]{
		Items:      items,
		Total:      total,
		Page:       req.Page,
		Limit:      req.Limit,
		TotalPages: pages,
	}
}
