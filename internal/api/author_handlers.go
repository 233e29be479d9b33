package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/listenupapp/goodbooks-api/internal/domain"
)

func (s *Server) registerAuthorRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "getAuthorBooks",
		Method:      http.MethodGet,
		Path:        "/authors/{name}/books",
		Summary:     "Get author books",
		Description: "Returns books whose authors contain the name, or with exact=true list exactly that author",
		Tags:        []string{"Authors", "Books"},
	}, s.handleGetAuthorBooks)
}

// GetAuthorBooksInput contains parameters for an author's books.
type GetAuthorBooksInput struct {
	Name  string `path:"name" doc:"Author name or fragment"`
	Exact bool   `query:"exact" doc:"Match one of the comma separated authors exactly"`
	PageInput
}

func (s *Server) handleGetAuthorBooks(ctx context.Context, input *GetAuthorBooksInput) (*ListingOutput[domain.Book], error) {
	listing, err := s.services.Book.BooksByAuthor(ctx, input.Name, input.Exact, input.Page, input.PageSize)
	if err != nil {
		return nil, s.fail(err)
	}
	return listingOutput(listing), nil
}
