// Package service holds the use cases behind the HTTP gateway. Services validate input,
// call the store and translate store failures into coded domain errors.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/listenupapp/goodbooks-api/internal/domain"
	domainerrors "github.com/listenupapp/goodbooks-api/internal/errors"
	"github.com/listenupapp/goodbooks-api/internal/query"
	"github.com/listenupapp/goodbooks-api/internal/store"
)

// BookService serves book lookups and searches.
type BookService struct {
	store  store.Store
	logger *slog.Logger
}

// NewBookService creates a new book service.
func NewBookService(store store.Store, logger *slog.Logger) *BookService {
	return &BookService{
		store:  store,
		logger: logger,
	}
}

// Search plans the query parameters and returns one page of matching books.
func (s *BookService) Search(ctx context.Context, params query.Params) (*Listing[domain.Book], error) {
	plan, err := query.Build(params)
	if err != nil {
		return nil, err
	}

	res, err := s.store.FindBooks(ctx, plan)
	if err != nil {
		return nil, storeError(err, "books")
	}

	s.logger.Debug("books searched",
		"q", plan.Text,
		"sort", plan.Sort,
		"order", plan.Order,
		"total", res.Total,
	)
	return newListing(res, plan.Page), nil
}

// GetBook retrieves a single book by book_id.
func (s *BookService) GetBook(ctx context.Context, bookID int64) (*domain.Book, error) {
	if err := checkBookID(bookID); err != nil {
		return nil, err
	}
	book, err := s.store.GetBook(ctx, bookID)
	if err != nil {
		return nil, storeError(err, fmt.Sprintf("book %d", bookID))
	}
	return book, nil
}

// BooksByAuthor lists the books of an author. With exact set, only books listing that
// exact author match; otherwise any authors field containing name does.
func (s *BookService) BooksByAuthor(ctx context.Context, name string, exact bool, pageNumber, pageSize int) (*Listing[domain.Book], error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, domainerrors.FieldValidation("name", "is required")
	}
	page, err := query.NewPage(pageNumber, pageSize)
	if err != nil {
		return nil, err
	}

	res, err := s.store.BooksByAuthor(ctx, name, exact, page)
	if err != nil {
		return nil, storeError(err, "author books")
	}
	return newListing(res, page), nil
}

func checkID(field string, id int64) error {
	if id < 1 {
		return domainerrors.FieldValidation(field, "must be >= 1")
	}
	return nil
}

// checkBookID reports ids below 1 as missing books: no stored book can carry one.
func checkBookID(id int64) error {
	if id < 1 {
		return domainerrors.NotFound(fmt.Sprintf("book %d not found", id))
	}
	return nil
}
