package service

import "github.com/listenupapp/goodbooks-api/internal/query"

// Listing is one page of a paginated read together with its position.
type Listing[T any] struct {
	Items    []T
	Total    int
	Page     int
	PageSize int
}

func newListing[T any](res query.Result[T], page query.Page) *Listing[T] {
	items := res.Items
	if items == nil {
		items = []T{}
	}
	return &Listing[T]{
		Items:    items,
		Total:    res.Total,
		Page:     page.Number,
		PageSize: page.Size,
	}
}
