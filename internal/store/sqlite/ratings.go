package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/listenupapp/goodbooks-api/internal/domain"
	"github.com/listenupapp/goodbooks-api/internal/store"
)

// RatingHistogram counts a book's ratings per star value. Stars without ratings are omitted.
// Returns store.ErrNotFound if the book does not exist.
func (s *Store) RatingHistogram(ctx context.Context, bookID int64) (map[int64]int64, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if err := s.bookExists(ctx, s.db, bookID); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT rating, COUNT(*) FROM ratings WHERE book_id = ? GROUP BY rating`, bookID)
	if err != nil {
		return nil, fmt.Errorf("rating histogram: %w", err)
	}
	defer rows.Close()

	histogram := make(map[int64]int64, domain.MaxStars)
	for rows.Next() {
		var stars, n int64
		if err := rows.Scan(&stars, &n); err != nil {
			return nil, fmt.Errorf("scan histogram: %w", err)
		}
		histogram[stars] = n
	}
	return histogram, rows.Err()
}

// UpsertRating inserts or replaces the rating keyed by (user_id, book_id).
// The transaction holds the write lock from its first statement, so concurrent
// upserts serialize and the last commit wins.
func (s *Store) UpsertRating(ctx context.Context, rating domain.Rating) (bool, error) {
	if err := s.validator.Validate(rating); err != nil {
		return false, err
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var created bool
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if err := s.bookExists(ctx, tx, rating.BookID); err != nil {
			return err
		}

		var exists bool
		if err := tx.QueryRowContext(ctx,
			`SELECT EXISTS(SELECT 1 FROM ratings WHERE user_id = ? AND book_id = ?)`,
			rating.UserID, rating.BookID).Scan(&exists); err != nil {
			return fmt.Errorf("check rating: %w", err)
		}
		created = !exists

		_, err := tx.ExecContext(ctx, `
			INSERT INTO ratings (user_id, book_id, rating) VALUES (?, ?, ?)
			ON CONFLICT (user_id, book_id) DO UPDATE SET rating = excluded.rating`,
			rating.UserID, rating.BookID, rating.Rating)
		if err != nil {
			return mapError(err)
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	return created, nil
}

type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *Store) bookExists(ctx context.Context, q queryRower, bookID int64) error {
	var exists bool
	if err := q.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM books WHERE book_id = ?)`, bookID).
		Scan(&exists); err != nil {
		return fmt.Errorf("check book: %w", err)
	}
	if !exists {
		return store.ErrNotFound
	}
	return nil
}
