package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/listenupapp/goodbooks-api/internal/domain"
	"github.com/listenupapp/goodbooks-api/internal/store"
)

// RatingService aggregates and writes ratings.
type RatingService struct {
	store     store.Store
	validator store.Validator
	logger    *slog.Logger
}

// NewRatingService creates a new rating service.
func NewRatingService(store store.Store, validator store.Validator, logger *slog.Logger) *RatingService {
	return &RatingService{
		store:     store,
		validator: validator,
		logger:    logger,
	}
}

// Summary returns the rating count, mean and star distribution of a book.
func (s *RatingService) Summary(ctx context.Context, bookID int64) (*domain.RatingSummary, error) {
	if err := checkBookID(bookID); err != nil {
		return nil, err
	}
	histogram, err := s.store.RatingHistogram(ctx, bookID)
	if err != nil {
		return nil, storeError(err, fmt.Sprintf("book %d", bookID))
	}
	summary := domain.SummarizeRatings(bookID, histogram)
	return &summary, nil
}

// Upsert creates the user's rating of a book or replaces its stars.
// It reports whether a new rating was created.
func (s *RatingService) Upsert(ctx context.Context, rating domain.Rating) (bool, error) {
	if err := checkBookID(rating.BookID); err != nil {
		return false, err
	}
	if err := s.validator.Validate(rating); err != nil {
		return false, err
	}

	created, err := s.store.UpsertRating(ctx, rating)
	if err != nil {
		return false, storeError(err, fmt.Sprintf("book %d", rating.BookID))
	}

	s.logger.Info("rating upserted",
		"user_id", rating.UserID,
		"book_id", rating.BookID,
		"rating", rating.Rating,
		"created", created,
	)
	return created, nil
}
