package shared

import "math"

// Pagination contains metadata for paginated listings.
type Pagination struct {
	Page       int
	PerPage    int
	Total      int
	TotalPages int
}

// NewPagination computes pagination metadata.
func NewPagination(page, perPage, total int) Pagination {
	if perPage <= 0 {
		perPage = 20
	}
	if page <= 0 {
		page = 1
	}
	totalPages := int(math.Ceil(float64(total) / float64(perPage)))
	return Pagination{Page: page, PerPage: perPage, Total: total, TotalPages: totalPages}
}

// Paginate returns the slice window for the requested page. A non-positive
// perPage returns every row on a single page.
func Paginate[T any](rows []T, page, perPage int) ([]T, Pagination) {
	if perPage <= 0 {
		perPage = len(rows)
		if perPage == 0 {
			perPage = 1
		}
	}
	meta := NewPagination(page, perPage, len(rows))
	start := (meta.Page - 1) * meta.PerPage
	if start >= len(rows) {
		return []T{}, meta
	}
	end := start + meta.PerPage
	if end > len(rows) {
		end = len(rows)
	}
	return rows[start:end], meta
}
