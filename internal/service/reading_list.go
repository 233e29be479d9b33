package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/listenupapp/goodbooks-api/internal/domain"
	"github.com/listenupapp/goodbooks-api/internal/query"
	"github.com/listenupapp/goodbooks-api/internal/store"
)

// ReadingListService serves users' to-read lists.
type ReadingListService struct {
	store  store.Store
	logger *slog.Logger
}

// NewReadingListService creates a new reading list service.
func NewReadingListService(store store.Store, logger *slog.Logger) *ReadingListService {
	return &ReadingListService{
		store:  store,
		logger: logger,
	}
}

// ToRead returns one page of the books a user wants to read. An unknown user has an empty list.
func (s *ReadingListService) ToRead(ctx context.Context, userID int64, pageNumber, pageSize int) (*Listing[domain.Book], error) {
	if err := checkID("id", userID); err != nil {
		return nil, err
	}
	page, err := query.NewPage(pageNumber, pageSize)
	if err != nil {
		return nil, err
	}
	res, err := s.store.ToReadBooks(ctx, userID, page)
	if err != nil {
		return nil, storeError(err, fmt.Sprintf("user %d to-read list", userID))
	}
	return newListing(res, page), nil
}
