package sqlite

import (
	"context"
	"fmt"
	"iter"

	"github.com/listenupapp/goodbooks-api/internal/domain"
	"github.com/listenupapp/goodbooks-api/internal/query"
)

// ListTags pages through tags in tag_id order with per-tag book counts.
func (s *Store) ListTags(ctx context.Context, page query.Page) (query.Result[domain.TagCount], error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM tags`).Scan(&total); err != nil {
		return query.Result[domain.TagCount]{}, fmt.Errorf("count tags: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT t.tag_id, t.tag_name,
			(SELECT COUNT(*) FROM book_tags bt WHERE bt.tag_id = t.tag_id)
		FROM tags t
		ORDER BY t.tag_id
		LIMIT ? OFFSET ?`, page.Limit(), page.Skip())
	if err != nil {
		return query.Result[domain.TagCount]{}, fmt.Errorf("list tags: %w", err)
	}
	defer rows.Close()

	items := []domain.TagCount{}
	for rows.Next() {
		var tc domain.TagCount
		if err := rows.Scan(&tc.TagID, &tc.TagName, &tc.BookCount); err != nil {
			return query.Result[domain.TagCount]{}, fmt.Errorf("scan tag: %w", err)
		}
		items = append(items, tc)
	}
	if err := rows.Err(); err != nil {
		return query.Result[domain.TagCount]{}, err
	}
	return query.Result[domain.TagCount]{Items: items, Total: total}, nil
}

// BookTags lists a book's tags by descending count, then tag_id.
// Returns store.ErrNotFound if the book does not exist.
func (s *Store) BookTags(ctx context.Context, bookID int64, page query.Page) (query.Result[domain.BookTagView], error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var goodreadsID int64
	if err := s.db.QueryRowContext(ctx, `SELECT goodreads_book_id FROM books WHERE book_id = ?`, bookID).
		Scan(&goodreadsID); err != nil {
		return query.Result[domain.BookTagView]{}, mapError(err)
	}

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM book_tags WHERE goodreads_book_id = ?`, goodreadsID).
		Scan(&total); err != nil {
		return query.Result[domain.BookTagView]{}, fmt.Errorf("count book tags: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT bt.tag_id, COALESCE(t.tag_name, ''), bt.count
		FROM book_tags bt
		LEFT JOIN tags t ON t.tag_id = bt.tag_id
		WHERE bt.goodreads_book_id = ?
		ORDER BY bt.count DESC, bt.tag_id ASC
		LIMIT ? OFFSET ?`, goodreadsID, page.Limit(), page.Skip())
	if err != nil {
		return query.Result[domain.BookTagView]{}, fmt.Errorf("list book tags: %w", err)
	}
	defer rows.Close()

	items := []domain.BookTagView{}
	for rows.Next() {
		var v domain.BookTagView
		if err := rows.Scan(&v.TagID, &v.TagName, &v.Count); err != nil {
			return query.Result[domain.BookTagView]{}, fmt.Errorf("scan book tag: %w", err)
		}
		items = append(items, v)
	}
	if err := rows.Err(); err != nil {
		return query.Result[domain.BookTagView]{}, err
	}
	return query.Result[domain.BookTagView]{Items: items, Total: total}, nil
}

// Tags returns an iterator over every tag in tag_id order.
func (s *Store) Tags(ctx context.Context) iter.Seq2[*domain.Tag, error] {
	return func(yield func(*domain.Tag, error) bool) {
		rows, err := s.db.QueryContext(ctx, `SELECT tag_id, tag_name FROM tags ORDER BY tag_id`)
		if err != nil {
			yield(nil, fmt.Errorf("query tags: %w", err))
			return
		}
		defer rows.Close()

		for rows.Next() {
			var t domain.Tag
			if err := rows.Scan(&t.TagID, &t.TagName); err != nil {
				yield(nil, fmt.Errorf("scan tag: %w", err))
				return
			}
			if !yield(&t, nil) {
				return
			}
		}
		if err := rows.Err(); err != nil {
			yield(nil, err)
		}
	}
}

// ToReadBooks pages through a user's to-read list in book_id order.
func (s *Store) ToReadBooks(ctx context.Context, userID int64, page query.Page) (query.Result[domain.Book], error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM to_read WHERE user_id = ?`, userID).
		Scan(&total); err != nil {
		return query.Result[domain.Book]{}, fmt.Errorf("count to_read: %w", err)
	}

	items, err := s.queryBooks(ctx, `SELECT `+bookColumns+`
		FROM to_read tr
		JOIN books b ON b.book_id = tr.book_id
		WHERE tr.user_id = ?
		ORDER BY tr.book_id
		LIMIT ? OFFSET ?`, userID, page.Limit(), page.Skip())
	if err != nil {
		return query.Result[domain.Book]{}, err
	}
	return query.Result[domain.Book]{Items: items, Total: total}, nil
}
