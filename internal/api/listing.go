package api

import (
	"github.com/listenupapp/goodbooks-api/internal/service"
)

// PageInput carries the shared pagination parameters. Bounds are checked by the
// services so every listing reports the same validation details.
type PageInput struct {
	Page     int `query:"page" default:"1" doc:"1-based page number"`
	PageSize int `query:"page_size" default:"20" doc:"Items per page, 1 to 100"`
}

// ListingBody is one page of a listing with its position.
type ListingBody[T any] struct {
	Items    []T `json:"items" doc:"Items on this page"`
	Total    int `json:"total" doc:"Matches across all pages"`
	Page     int `json:"page" doc:"1-based page number"`
	PageSize int `json:"page_size" doc:"Requested page size"`
}

// ListingOutput wraps a listing for Huma.
type ListingOutput[T any] struct {
	Body ListingBody[T]
}

func listingOutput[T any](l *service.Listing[T]) *ListingOutput[T] {
	return &ListingOutput[T]{
		Body: ListingBody[T]{
			Items:    l.Items,
			Total:    l.Total,
			Page:     l.Page,
			PageSize: l.PageSize,
		},
	}
}
