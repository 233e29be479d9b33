package sqlite

import (
	"context"
	"fmt"
	"iter"
	"slices"
	"strings"

	"github.com/listenupapp/goodbooks-api/internal/domain"
	"github.com/listenupapp/goodbooks-api/internal/normalize"
	"github.com/listenupapp/goodbooks-api/internal/query"
)

// bookColumns is the ordered list of columns selected in book queries.
// Must match the scan order in scanBook.
const bookColumns = `b.book_id, b.goodreads_book_id, b.title, b.authors,
	b.original_publication_year, b.average_rating, b.ratings_count,
	b.image_url, b.small_image_url`

// scanBook scans a sql.Row (or sql.Rows via its Scan method) into a domain.Book.
func scanBook(scanner interface{ Scan(dest ...any) error }) (*domain.Book, error) {
	var b domain.Book
	err := scanner.Scan(
		&b.BookID,
		&b.GoodreadsBookID,
		&b.Title,
		&b.Authors,
		&b.OriginalPublicationYear,
		&b.AverageRating,
		&b.RatingsCount,
		&b.ImageURL,
		&b.SmallImageURL,
	)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// sortColumns maps sort keys to SQL expressions. relevance reads the score
// column of the FTS subquery.
var sortColumns = map[query.Sort]string{
	query.SortRelevance:    "m.score",
	query.SortBookID:       "b.book_id",
	query.SortTitle:        "b.title",
	query.SortAverage:      "b.average_rating",
	query.SortYear:         "b.original_publication_year",
	query.SortRatingsCount: "b.ratings_count",
}

// matchExpression ORs quoted tokens for FTS5 MATCH. Tokens are letters and digits
// only, so quoting is enough to keep FTS5 operators out.
func matchExpression(tokens []string) string {
	quoted := make([]string, len(tokens))
	for i, t := range tokens {
		quoted[i] = `"` + t + `"`
	}
	return strings.Join(quoted, " OR ")
}

// GetBook retrieves a book by book_id.
func (s *Store) GetBook(ctx context.Context, bookID int64) (*domain.Book, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	row := s.db.QueryRowContext(ctx, `SELECT `+bookColumns+` FROM books b WHERE b.book_id = ?`, bookID)
	book, err := scanBook(row)
	if err != nil {
		return nil, mapError(err)
	}
	return book, nil
}

// FindBooks executes a search plan with one count query and one page query.
func (s *Store) FindBooks(ctx context.Context, plan query.Plan) (query.Result[domain.Book], error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var (
		from  strings.Builder
		where []string
		args  []any
	)

	from.WriteString(" FROM books b")
	if plan.HasText() {
		// bm25 is lower for better matches; title weighs twice the authors.
		from.WriteString(` JOIN (SELECT rowid AS book_id, -bm25(books_fts, 2.0, 1.0) AS score
			FROM books_fts WHERE books_fts MATCH ?) m ON m.book_id = b.book_id`)
		args = append(args, matchExpression(plan.Tokens))
	}

	if plan.YearFrom != nil {
		where = append(where, "b.original_publication_year >= ?")
		args = append(args, *plan.YearFrom)
	}
	if plan.YearTo != nil {
		where = append(where, "b.original_publication_year <= ?")
		args = append(args, *plan.YearTo)
	}
	if plan.MinAverage != nil {
		where = append(where, "b.average_rating >= ?")
		args = append(args, *plan.MinAverage)
	}
	if plan.Tag != "" {
		where = append(where, `b.goodreads_book_id IN (
			SELECT bt.goodreads_book_id FROM book_tags bt
			JOIN tags t ON t.tag_id = bt.tag_id
			WHERE fold(t.tag_name) = ?)`)
		args = append(args, normalize.Key(plan.Tag))
	}

	clause := from.String()
	if len(where) > 0 {
		clause += " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*)"+clause, args...).Scan(&total); err != nil {
		return query.Result[domain.Book]{}, fmt.Errorf("count books: %w", err)
	}

	sortColumn, ok := sortColumns[plan.Sort]
	if !ok || (plan.Sort == query.SortRelevance && !plan.HasText()) {
		sortColumn = "b.book_id"
	}
	direction := "ASC"
	if plan.Order == query.Desc {
		direction = "DESC"
	}

	stmt := fmt.Sprintf("SELECT %s%s ORDER BY %s %s, b.book_id ASC LIMIT ? OFFSET ?",
		bookColumns, clause, sortColumn, direction)
	pageArgs := append(slices.Clip(args), plan.Page.Limit(), plan.Page.Skip())

	items, err := s.queryBooks(ctx, stmt, pageArgs...)
	if err != nil {
		return query.Result[domain.Book]{}, err
	}
	return query.Result[domain.Book]{Items: items, Total: total}, nil
}

// BooksByAuthor lists books by author in book_id order. Substring matching runs in SQL
// through fold(); exact matching narrows those rows to books listing the author.
func (s *Store) BooksByAuthor(ctx context.Context, name string, exact bool, page query.Page) (query.Result[domain.Book], error) {
	key := normalize.Key(name)
	if key == "" {
		return query.Result[domain.Book]{Items: []domain.Book{}}, nil
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	const where = ` FROM books b WHERE instr(fold(b.authors), ?) > 0`
	if !exact {
		var total int
		if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*)"+where, key).Scan(&total); err != nil {
			return query.Result[domain.Book]{}, fmt.Errorf("count books by author: %w", err)
		}
		items, err := s.queryBooks(ctx, "SELECT "+bookColumns+where+" ORDER BY b.book_id LIMIT ? OFFSET ?",
			key, page.Limit(), page.Skip())
		if err != nil {
			return query.Result[domain.Book]{}, err
		}
		return query.Result[domain.Book]{Items: items, Total: total}, nil
	}

	candidates, err := s.queryBooks(ctx, "SELECT "+bookColumns+where+" ORDER BY b.book_id", key)
	if err != nil {
		return query.Result[domain.Book]{}, err
	}
	matches := slices.DeleteFunc(candidates, func(b domain.Book) bool {
		return !slices.ContainsFunc(b.AuthorList(), func(a string) bool {
			return normalize.Key(a) == key
		})
	})
	return query.Slice(matches, page), nil
}

// Books returns an iterator over every book in book_id order.
func (s *Store) Books(ctx context.Context) iter.Seq2[*domain.Book, error] {
	return func(yield func(*domain.Book, error) bool) {
		rows, err := s.db.QueryContext(ctx, "SELECT "+bookColumns+" FROM books b ORDER BY b.book_id")
		if err != nil {
			yield(nil, fmt.Errorf("query books: %w", err))
			return
		}
		defer rows.Close()

		for rows.Next() {
			b, err := scanBook(rows)
			if err != nil {
				yield(nil, fmt.Errorf("scan book: %w", err))
				return
			}
			if !yield(b, nil) {
				return
			}
		}
		if err := rows.Err(); err != nil {
			yield(nil, err)
		}
	}
}

func (s *Store) queryBooks(ctx context.Context, stmt string, args ...any) ([]domain.Book, error) {
	rows, err := s.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("query books: %w", err)
	}
	defer rows.Close()

	books := []domain.Book{}
	for rows.Next() {
		b, err := scanBook(rows)
		if err != nil {
			return nil, fmt.Errorf("scan book: %w", err)
		}
		books = append(books, *b)
	}
	return books, rows.Err()
}
