package shared

import "math"

// DefaultPageSize is used when a listing does not ask for a size.
const DefaultPageSize = 20

// Pagination contains metadata for paginated listings. Page is one-based.
type Pagination struct {
	Page       int
	PerPage    int
	Total      int
	TotalPages int
}

// NewPagination computes pagination metadata.
func NewPagination(page, perPage, total int) Pagination {
	if perPage <= 0 {
		perPage = DefaultPageSize
	}
	if page <= 0 {
		page = 1
	}
	totalPages := int(math.Ceil(float64(total) / float64(perPage)))
	return Pagination{Page: page, PerPage: perPage, Total: total, TotalPages: totalPages}
}

// Offset returns the zero-based page index used on the backend wire.
func (p Pagination) Offset() int {
	return p.Page - 1
}

// HasPrev reports whether a previous page exists.
func (p Pagination) HasPrev() bool {
	return p.Page > 1
}

// HasNext reports whether a further page exists.
func (p Pagination) HasNext() bool {
	return p.Page < p.TotalPages
}

// Prev returns the previous page number.
func (p Pagination) Prev() int {
	if p.Page <= 1 {
		return 1
	}
	return p.Page - 1
}

// Next returns the next page number.
func (p Pagination) Next() int {
	if p.Page >= p.TotalPages {
		return p.Page
	}
	return p.Page + 1
}
