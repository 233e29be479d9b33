package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/listenupapp/goodbooks-api/internal/domain"
)

func (s *Server) registerTagRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "listTags",
		Method:      http.MethodGet,
		Path:        "/tags",
		Summary:     "List tags",
		Description: "Returns tags ordered by tag_id with the number of books carrying each",
		Tags:        []string{"Tags"},
	}, s.handleListTags)

	huma.Register(s.api, huma.Operation{
		OperationID: "getBookTags",
		Method:      http.MethodGet,
		Path:        "/books/{id}/tags",
		Summary:     "Get book tags",
		Description: "Returns the tags of a book, most applied first",
		Tags:        []string{"Tags", "Books"},
	}, s.handleGetBookTags)
}

// === DTOs ===

// ListTagsInput contains parameters for listing tags.
type ListTagsInput struct {
	PageInput
}

// GetBookTagsInput contains parameters for listing a book's tags.
type GetBookTagsInput struct {
	ID int64 `path:"id" doc:"book_id"`
	PageInput
}

func (s *Server) handleListTags(ctx context.Context, input *ListTagsInput) (*ListingOutput[domain.TagCount], error) {
	listing, err := s.services.Tag.ListTags(ctx, input.Page, input.PageSize)
	if err != nil {
		return nil, s.fail(err)
	}
	return listingOutput(listing), nil
}

func (s *Server) handleGetBookTags(ctx context.Context, input *GetBookTagsInput) (*ListingOutput[domain.BookTagView], error) {
	listing, err := s.services.Tag.BookTags(ctx, input.ID, input.Page, input.PageSize)
	if err != nil {
		return nil, s.fail(err)
	}
	return listingOutput(listing), nil
}
