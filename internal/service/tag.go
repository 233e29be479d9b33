package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/listenupapp/goodbooks-api/internal/domain"
	"github.com/listenupapp/goodbooks-api/internal/query"
	"github.com/listenupapp/goodbooks-api/internal/store"
)

// TagService serves the tag vocabulary and the tags of single books.
type TagService struct {
	store  store.Store
	logger *slog.Logger
}

// NewTagService creates a new tag service.
func NewTagService(store store.Store, logger *slog.Logger) *TagService {
	return &TagService{
		store:  store,
		logger: logger,
	}
}

// ListTags returns one page of tags with their book counts.
func (s *TagService) ListTags(ctx context.Context, pageNumber, pageSize int) (*Listing[domain.TagCount], error) {
	page, err := query.NewPage(pageNumber, pageSize)
	if err != nil {
		return nil, err
	}
	res, err := s.store.ListTags(ctx, page)
	if err != nil {
		return nil, storeError(err, "tags")
	}
	return newListing(res, page), nil
}

// BookTags returns one page of a book's tags, most applied first.
func (s *TagService) BookTags(ctx context.Context, bookID int64, pageNumber, pageSize int) (*Listing[domain.BookTagView], error) {
	if err := checkBookID(bookID); err != nil {
		return nil, err
	}
	page, err := query.NewPage(pageNumber, pageSize)
	if err != nil {
		return nil, err
	}
	res, err := s.store.BookTags(ctx, bookID, page)
	if err != nil {
		return nil, storeError(err, fmt.Sprintf("book %d", bookID))
	}
	return newListing(res, page), nil
}
