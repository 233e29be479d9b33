package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/danielgtaylor/huma/v2"

	"github.com/listenupapp/goodbooks-api/internal/domain"
	"github.com/listenupapp/goodbooks-api/internal/query"
)

func (s *Server) registerBookRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "listBooks",
		Method:      http.MethodGet,
		Path:        "/books",
		Summary:     "Search books",
		Description: "Searches, filters, sorts and paginates books. With q, results are ranked by relevance unless another sort is given.",
		Tags:        []string{"Books"},
	}, s.handleListBooks)

	huma.Register(s.api, huma.Operation{
		OperationID: "getBook",
		Method:      http.MethodGet,
		Path:        "/books/{id}",
		Summary:     "Get book",
		Description: "Returns a book by book_id. Supports If-None-Match.",
		Tags:        []string{"Books"},
	}, s.handleGetBook)
}

// === DTOs ===

// ListBooksInput contains the search parameters of GET /books. Optional numbers are
// strings so that blank and malformed values are reported by the query planner.
type ListBooksInput struct {
	Q        string `query:"q" maxLength:"200" doc:"Free text matched against title and authors"`
	Tag      string `query:"tag" doc:"Only books carrying this tag name"`
	MinAvg   string `query:"min_avg" doc:"Minimum average rating, 0 to 5"`
	YearFrom string `query:"year_from" doc:"Earliest original publication year, inclusive"`
	YearTo   string `query:"year_to" doc:"Latest original publication year, inclusive"`
	Sort     string `query:"sort" doc:"relevance, title, avg, year, ratings_count or book_id"`
	Order    string `query:"order" doc:"asc or desc"`
	PageInput
}

// BookListOutput wraps a page of books.
type BookListOutput = ListingOutput[domain.Book]

// GetBookInput contains parameters for getting a book.
type GetBookInput struct {
	ID          int64  `path:"id" doc:"book_id"`
	IfNoneMatch string `header:"If-None-Match" doc:"ETag from a previous response"`
}

// BookOutput wraps a single book. Status is 304 when the client's ETag is current.
type BookOutput struct {
	Status int
	ETag   string `header:"ETag"`
	Body   *domain.Book
}

func (s *Server) handleListBooks(ctx context.Context, input *ListBooksInput) (*BookListOutput, error) {
	listing, err := s.services.Book.Search(ctx, query.Params{
		Q:        input.Q,
		Tag:      input.Tag,
		MinAvg:   input.MinAvg,
		YearFrom: input.YearFrom,
		YearTo:   input.YearTo,
		Sort:     input.Sort,
		Order:    input.Order,
		Page:     input.Page,
		PageSize: input.PageSize,
	})
	if err != nil {
		return nil, s.fail(err)
	}
	return listingOutput(listing), nil
}

func (s *Server) handleGetBook(ctx context.Context, input *GetBookInput) (*BookOutput, error) {
	book, err := s.services.Book.GetBook(ctx, input.ID)
	if err != nil {
		return nil, s.fail(err)
	}

	etag := book.ETag()
	if etagMatches(input.IfNoneMatch, etag) {
		return &BookOutput{Status: http.StatusNotModified, ETag: quoteETag(etag)}, nil
	}
	return &BookOutput{ETag: quoteETag(etag), Body: book}, nil
}

// etagMatches compares an If-None-Match header against the current tag. Quoted, weak and
// bare forms are accepted, as is a comma separated list and "*".
func etagMatches(header, etag string) bool {
	for candidate := range strings.SplitSeq(header, ",") {
		candidate = strings.TrimSpace(candidate)
		if candidate == "*" {
			return true
		}
		candidate = strings.TrimPrefix(candidate, "W/")
		if strings.Trim(candidate, `"`) == etag {
			return true
		}
	}
	return false
}

func quoteETag(etag string) string {
	return `"` + etag + `"`
}
