package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/listenupapp/goodbooks-api/internal/domain"
)

func (s *Server) registerReadingListRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "getToRead",
		Method:      http.MethodGet,
		Path:        "/users/{id}/to-read",
		Summary:     "Get to-read list",
		Description: "Returns the books a user wants to read, ordered by book_id",
		Tags:        []string{"Users", "Books"},
	}, s.handleGetToRead)
}

// GetToReadInput contains parameters for a user's to-read list.
type GetToReadInput struct {
	ID int64 `path:"id" doc:"user_id"`
	PageInput
}

func (s *Server) handleGetToRead(ctx context.Context, input *GetToReadInput) (*ListingOutput[domain.Book], error) {
	listing, err := s.services.ReadingList.ToRead(ctx, input.ID, input.Page, input.PageSize)
	if err != nil {
		return nil, s.fail(err)
	}
	return listingOutput(listing), nil
}
