package store

import (
	"context"
	"strconv"

	"github.com/dgraph-io/badger/v4"

	"github.com/listenupapp/goodbooks-api/internal/domain"
)

// RatingHistogram counts a book's ratings per star value. Stars without ratings are omitted.
// Returns ErrNotFound if the book does not exist.
func (s *Badger) RatingHistogram(ctx context.Context, bookID int64) (map[int64]int64, error) {
	histogram := make(map[int64]int64, domain.MaxStars)
	err := s.view(ctx, func(ctx context.Context, txn *badger.Txn) error {
		ok, err := s.books.exists(txn, idKey(bookID))
		if err != nil {
			return err
		}
		if !ok {
			return ErrNotFound
		}

		for stars := int64(domain.MinStars); stars <= domain.MaxStars; stars++ {
			n, err := s.ratings.countIndex(ctx, txn, "book", idKey(bookID)+":"+strconv.FormatInt(stars, 10))
			if err != nil {
				return err
			}
			if n > 0 {
				histogram[stars] = int64(n)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return histogram, nil
}

// UpsertRating inserts or replaces the rating keyed by (user_id, book_id) in one
// transaction, retried on conflict. It reports whether a new rating was created.
// Returns ErrNotFound if the book does not exist.
func (s *Badger) UpsertRating(ctx context.Context, rating domain.Rating) (bool, error) {
	if err := s.validate(rating); err != nil {
		return false, err
	}

	var created bool
	err := s.update(ctx, func(txn *badger.Txn) error {
		ok, err := s.books.exists(txn, idKey(rating.BookID))
		if err != nil {
			return err
		}
		if !ok {
			return ErrNotFound
		}
		created, err = s.ratings.put(txn, &rating)
		return err
	})
	if err != nil {
		return false, err
	}

	if s.logger != nil {
		s.logger.Debug("rating upserted",
			"user_id", rating.UserID,
			"book_id", rating.BookID,
			"rating", rating.Rating,
			"created", created,
		)
	}
	return created, nil
}
