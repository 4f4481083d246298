// Package pagination windows fully materialized result sets into 1-based pages.
package pagination

import (
	"github.com/vidshare/backend/internal/apperror"
)

// Defaults applied by callers when the client omits page or limit.
const (
	DefaultPage  = 1
	DefaultLimit = 10
	MaxLimit     = 100
)

// Page is one window of a result set. NextPage and PreviousPage are nil at
// the respective boundary.
type Page[T any] struct {
	Items        []T  `json:"items"`
	Page         int  `json:"page"`
	Limit        int  `json:"limit"`
	TotalItems   int  `json:"totalItems"`
	TotalPages   int  `json:"totalPages"`
	NextPage     *int `json:"nextPage"`
	PreviousPage *int `json:"previousPage"`
}

// Paginate returns items[(page-1)*limit : page*limit]. A page past the end
// yields an empty window rather than an error.
func Paginate[T any](items []T, page, limit int) (Page[T], error) {
	var details []string
	if page < 1 {
		details = append(details, "page must be at least 1")
	}
	if limit < 1 {
		details = append(details, "limit must be at least 1")
	}
	if len(details) > 0 {
		return Page[T]{}, apperror.Validation("invalid pagination parameters", details...)
	}

	total := len(items)
	totalPages := total / limit
	if total%limit != 0 {
		totalPages++
	}

	// page-1 < totalPages keeps (page-1)*limit below total
	start := total
	if page-1 < totalPages {
		start = (page - 1) * limit
	}
	end := start + min(limit, total-start)

	window := make([]T, end-start)
	copy(window, items[start:end])

	result := Page[T]{
		Items:      window,
		Page:       page,
		Limit:      limit,
		TotalItems: total,
		TotalPages: totalPages,
	}
	if page < totalPages {
		next := page + 1
		result.NextPage = &next
	}
	if page > 1 {
		prev := page - 1
		result.PreviousPage = &prev
	}
	return result, nil
}
