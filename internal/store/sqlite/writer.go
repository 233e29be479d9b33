package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"slices"

	"github.com/listenupapp/goodbooks-api/internal/domain"
	"github.com/listenupapp/goodbooks-api/internal/store"
)

// resetOrder deletes dependents before the rows they reference.
var resetOrder = []store.Collection{
	store.CollectionToRead,
	store.CollectionBookTags,
	store.CollectionRatings,
	store.CollectionTags,
	store.CollectionBooks,
}

var collectionTables = map[store.Collection]string{
	store.CollectionBooks:    "books",
	store.CollectionRatings:  "ratings",
	store.CollectionTags:     "tags",
	store.CollectionBookTags: "book_tags",
	store.CollectionToRead:   "to_read",
}

// Reset deletes every row of the given collections (all collections when none are given).
// Foreign keys cascade: resetting books also clears ratings and to_read, and resetting
// tags clears book_tags.
func (s *Store) Reset(ctx context.Context, collections ...store.Collection) error {
	if len(collections) == 0 {
		collections = store.Collections
	}
	for _, c := range collections {
		if _, ok := collectionTables[c]; !ok {
			return store.ErrInvalidInput.WithMessage(fmt.Sprintf("unknown collection %q", c))
		}
	}

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		for _, c := range resetOrder {
			if !slices.Contains(collections, c) {
				continue
			}
			if _, err := tx.ExecContext(ctx, "DELETE FROM "+collectionTables[c]); err != nil {
				return fmt.Errorf("reset %s: %w", c, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	if s.logger != nil {
		s.logger.Info("collections reset", "collections", collections)
	}
	return nil
}

// writeRows validates every record, then inserts them in one transaction through
// a single prepared statement.
func writeRows[T any](ctx context.Context, s *Store, stmt string, records []T, args func(*T) []any) error {
	for i := range records {
		if err := s.validator.Validate(&records[i]); err != nil {
			return fmt.Errorf("record %d: %w", i, err)
		}
	}
	if len(records) == 0 {
		return nil
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		prepared, err := tx.PrepareContext(ctx, stmt)
		if err != nil {
			return fmt.Errorf("prepare: %w", err)
		}
		defer prepared.Close()

		for i := range records {
			if _, err := prepared.ExecContext(ctx, args(&records[i])...); err != nil {
				return fmt.Errorf("record %d: %w", i, mapError(err))
			}
		}
		return nil
	})
}

// WriteBooks bulk-writes books, replacing existing books with the same book_id.
func (s *Store) WriteBooks(ctx context.Context, books []domain.Book) error {
	return writeRows(ctx, s, `
		INSERT INTO books (book_id, goodreads_book_id, title, authors, original_publication_year,
			average_rating, ratings_count, image_url, small_image_url)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (book_id) DO UPDATE SET
			goodreads_book_id = excluded.goodreads_book_id,
			title = excluded.title,
			authors = excluded.authors,
			original_publication_year = excluded.original_publication_year,
			average_rating = excluded.average_rating,
			ratings_count = excluded.ratings_count,
			image_url = excluded.image_url,
			small_image_url = excluded.small_image_url`,
		books, func(b *domain.Book) []any {
			return []any{b.BookID, b.GoodreadsBookID, b.Title, b.Authors, b.OriginalPublicationYear,
				b.AverageRating, b.RatingsCount, b.ImageURL, b.SmallImageURL}
		})
}

// WriteTags bulk-writes tags.
func (s *Store) WriteTags(ctx context.Context, tags []domain.Tag) error {
	return writeRows(ctx, s, `
		INSERT INTO tags (tag_id, tag_name) VALUES (?, ?)
		ON CONFLICT (tag_id) DO UPDATE SET tag_name = excluded.tag_name`,
		tags, func(t *domain.Tag) []any { return []any{t.TagID, t.TagName} })
}

// WriteBookTags bulk-writes book_tags records. Their tags must already exist.
func (s *Store) WriteBookTags(ctx context.Context, bookTags []domain.BookTag) error {
	return writeRows(ctx, s, `
		INSERT INTO book_tags (goodreads_book_id, tag_id, count) VALUES (?, ?, ?)
		ON CONFLICT (goodreads_book_id, tag_id) DO UPDATE SET count = excluded.count`,
		bookTags, func(bt *domain.BookTag) []any { return []any{bt.GoodreadsBookID, bt.TagID, bt.Count} })
}

// WriteRatings bulk-writes ratings. A later rating for the same (user, book) wins.
func (s *Store) WriteRatings(ctx context.Context, ratings []domain.Rating) error {
	return writeRows(ctx, s, `
		INSERT INTO ratings (user_id, book_id, rating) VALUES (?, ?, ?)
		ON CONFLICT (user_id, book_id) DO UPDATE SET rating = excluded.rating`,
		ratings, func(r *domain.Rating) []any { return []any{r.UserID, r.BookID, r.Rating} })
}

// WriteToRead bulk-writes to_read records.
func (s *Store) WriteToRead(ctx context.Context, entries []domain.ToRead) error {
	return writeRows(ctx, s, `
		INSERT INTO to_read (user_id, book_id) VALUES (?, ?)
		ON CONFLICT DO NOTHING`,
		entries, func(tr *domain.ToRead) []any { return []any{tr.UserID, tr.BookID} })
}
