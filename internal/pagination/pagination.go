// Package pagination turns an ordered, countable result set into a page of
// items with navigation metadata.
package pagination

import "context"

const (
	DefaultPerPage = 10
	MaxPerPage     = 100
)

// Source is an ordered collection that can be counted and sliced.
// Fetch must return items in the same order on every call for unchanged data.
type Source[T any] interface {
	Count(ctx context.Context) (int64, error)
	Fetch(ctx context.Context, offset, limit int) ([]T, error)
}

// Query adapts a pair of functions to Source.
type Query[T any] struct {
	CountFn func(ctx context.Context) (int64, error)
	FetchFn func(ctx context.Context, offset, limit int) ([]T, error)
}

func (q Query[T]) Count(ctx context.Context) (int64, error) { return q.CountFn(ctx) }

func (q Query[T]) Fetch(ctx context.Context, offset, limit int) ([]T, error) {
	return q.FetchFn(ctx, offset, limit)
}

// Endpoint builds the URL of a page. It is supplied by the HTTP layer.
type Endpoint func(page, perPage int) string

type Meta struct {
	Page       int   `json:"page"`
	PerPage    int   `json:"per_page"`
	TotalPages int   `json:"total_pages"`
	TotalItems int64 `json:"total_items"`
}

type Links struct {
	Self string  `json:"self"`
	Next *string `json:"next"`
	Prev *string `json:"prev"`
}

type Page[T any] struct {
	Items []T   `json:"items"`
	Meta  Meta  `json:"_meta"`
	Links Links `json:"_links"`
}

func (m Meta) HasNext() bool { return m.Page < m.TotalPages }

func (m Meta) HasPrev() bool { return m.Page > 1 }

// Normalize applies the paging defaults: page below 1 becomes 1, perPage
// below 1 becomes DefaultPerPage and anything above MaxPerPage is clamped.
func Normalize(page, perPage int) (int, int) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = DefaultPerPage
	}
	if perPage > MaxPerPage {
		perPage = MaxPerPage
	}
	return page, perPage
}

// Paginate loads one page from src. A page past the end yields no items and
// accurate metadata.
func Paginate[T any](ctx context.Context, src Source[T], page, perPage int, endpoint Endpoint) (*Page[T], error) {
	page, perPage = Normalize(page, perPage)

	total, err := src.Count(ctx)
	if err != nil {
		return nil, err
	}

	meta := Meta{
		Page:       page,
		PerPage:    perPage,
		TotalPages: int((total + int64(perPage) - 1) / int64(perPage)),
		TotalItems: total,
	}

	items := []T{}
	if offset := int64(page-1) * int64(perPage); offset < total {
		items, err = src.Fetch(ctx, int(offset), perPage)
		if err != nil {
			return nil, err
		}
		if items == nil {
			items = []T{}
		}
	}

	links := Links{Self: endpoint(page, perPage)}
	if meta.HasNext() {
		next := endpoint(page+1, perPage)
		links.Next = &next
	}
	if meta.HasPrev() {
		prev := endpoint(page-1, perPage)
		links.Prev = &prev
	}

	return &Page[T]{Items: items, Meta: meta, Links: links}, nil
}

// Map converts the items of a page, keeping its metadata and links.
func Map[T, U any](p *Page[T], fn func(T) U) *Page[U] {
	out := make([]U, len(p.Items))
	for i, item := range p.Items {
		out[i] = fn(item)
	}
	return &Page[U]{Items: out, Meta: p.Meta, Links: p.Links}
}
