package query

import (
	"math"

	domainerrors "github.com/listenupapp/goodbooks-api/internal/errors"
)

// Pagination limits shared by every listing endpoint.
const (
	DefaultPage     = 1
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Page is a validated 1-based page request.
type Page struct {
	Number int
	Size   int
}

// NewPage validates a page request. Zero values are not defaulted here; callers
// apply DefaultPage and DefaultPageSize before validation.
func NewPage(number, size int) (Page, error) {
	if number < 1 {
		return Page{}, domainerrors.FieldValidation("page", "must be >= 1")
	}
	if size < 1 || size > MaxPageSize {
		return Page{}, domainerrors.FieldValidation("page_size", "must be in [1, 100]")
	}
	// Number*Size must fit in an int so Skip and Skip+Limit never wrap.
	if number > math.MaxInt/size {
		return Page{}, domainerrors.FieldValidation("page", "is too large for page_size")
	}
	return Page{Number: number, Size: size}, nil
}

// Skip is the number of matches before this page.
func (p Page) Skip() int {
	return (p.Number - 1) * p.Size
}

// Limit is the maximum number of items on this page.
func (p Page) Limit() int {
	return p.Size
}

// Window returns the [start, end) bounds of this page inside n materialized results.
func (p Page) Window(n int) (start, end int) {
	if p.Number < 1 || p.Size < 1 || p.Number-1 >= (n+p.Size-1)/p.Size {
		return n, n
	}
	start = p.Skip()
	end = start + min(p.Limit(), n-start)
	return start, end
}

// Result is one page of items with the total number of matches across all pages.
type Result[T any] struct {
	Items []T
	Total int
}

// Slice cuts the page out of a fully materialized, already ordered result set.
func Slice[T any](all []T, p Page) Result[T] {
	start, end := p.Window(len(all))
	items := make([]T, end-start)
	copy(items, all[start:end])
	return Result[T]{Items: items, Total: len(all)}
}
