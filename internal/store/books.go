package store

import (
	"cmp"
	"context"
	"errors"
	"iter"
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/dgraph-io/badger/v4"

	"github.com/listenupapp/goodbooks-api/internal/domain"
	"github.com/listenupapp/goodbooks-api/internal/normalize"
	"github.com/listenupapp/goodbooks-api/internal/query"
	"github.com/listenupapp/goodbooks-api/internal/search"
)

// idSet is a set of book ids. A nil idSet means "every book".
type idSet map[int64]struct{}

// intersect narrows a by b. Either side may be nil (unrestricted).
func intersect(a, b idSet) idSet {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	if len(b) < len(a) {
		a, b = b, a
	}
	out := make(idSet, len(a))
	for id := range a {
		if _, ok := b[id]; ok {
			out[id] = struct{}{}
		}
	}
	return out
}

// GetBook retrieves a book by book_id.
func (s *Badger) GetBook(ctx context.Context, bookID int64) (*domain.Book, error) {
	var book *domain.Book
	err := s.view(ctx, func(_ context.Context, txn *badger.Txn) error {
		var err error
		book, err = s.books.get(txn, idKey(bookID))
		return err
	})
	if err != nil {
		return nil, err
	}
	return book, nil
}

// Books returns an iterator over every book in book_id order.
func (s *Badger) Books(ctx context.Context) iter.Seq2[*domain.Book, error] {
	return s.books.List(ctx)
}

// FindBooks executes a search plan.
//
// Each predicate an index can answer (text, tag, year range, minimum average)
// narrows a candidate set. Surviving documents are re-checked against the plan,
// then ordered and paginated in memory.
func (s *Badger) FindBooks(ctx context.Context, plan query.Plan) (query.Result[domain.Book], error) {
	var scores map[int64]float64
	if plan.HasText() && s.textSearcher != nil {
		var err error
		scores, err = s.textSearcher.SearchBooks(ctx, plan.Tokens)
		if err != nil {
			return query.Result[domain.Book]{}, err
		}
		if len(scores) == 0 {
			return query.Result[domain.Book]{Items: []domain.Book{}}, nil
		}
	}

	var matches []domain.Book
	err := s.view(ctx, func(ctx context.Context, txn *badger.Txn) error {
		var candidates idSet
		if scores != nil {
			candidates = make(idSet, len(scores))
			for id := range scores {
				candidates[id] = struct{}{}
			}
		}

		if plan.Tag != "" {
			tagged, err := s.booksWithTag(ctx, txn, plan.Tag)
			if err != nil {
				return err
			}
			candidates = intersect(candidates, tagged)
		}

		// One range index is enough to bound the scan; Matches re-checks the rest.
		if candidates == nil {
			var err error
			switch {
			case plan.YearFrom != nil || plan.YearTo != nil:
				from, to := int64(math.MinInt64), int64(math.MaxInt64)
				if plan.YearFrom != nil {
					from = *plan.YearFrom
				}
				if plan.YearTo != nil {
					to = *plan.YearTo
				}
				candidates, err = s.indexedBooks(ctx, txn, "year", sortableInt(from), sortableInt(to))
			case plan.MinAverage != nil:
				candidates, err = s.indexedBooks(ctx, txn, "avg", sortableFloat(*plan.MinAverage), sortableFloat(math.Inf(1)))
			}
			if err != nil {
				return err
			}
		}

		var err error
		matches, err = s.collectBooks(ctx, txn, candidates, plan.Matches)
		return err
	})
	if err != nil {
		return query.Result[domain.Book]{}, err
	}

	// No index configured: score the candidates directly.
	if plan.HasText() && scores == nil {
		scores = make(map[int64]float64)
		matches = slices.DeleteFunc(matches, func(b domain.Book) bool {
			score := search.MatchScore(plan.Tokens, b.Title, b.Authors)
			if score <= 0 {
				return true
			}
			scores[b.BookID] = score
			return false
		})
	}

	slices.SortFunc(matches, func(a, b domain.Book) int {
		return plan.Compare(&a, &b, scores)
	})
	return query.Slice(matches, plan.Page), nil
}

// BooksByAuthor lists books by author in book_id order. With exact, name must equal one
// of the comma-separated authors; otherwise it may appear anywhere in the authors field.
// Both comparisons are case and diacritic insensitive.
func (s *Badger) BooksByAuthor(ctx context.Context, name string, exact bool, page query.Page) (query.Result[domain.Book], error) {
	key := normalize.Key(name)
	if key == "" {
		return query.Result[domain.Book]{Items: []domain.Book{}}, nil
	}

	var matches []domain.Book
	err := s.view(ctx, func(ctx context.Context, txn *badger.Txn) error {
		var err error
		if exact {
			var ids idSet
			ids, err = s.indexedBooks(ctx, txn, "author", key, key)
			if err != nil {
				return err
			}
			matches, err = s.collectBooks(ctx, txn, ids, func(b *domain.Book) bool {
				return slices.ContainsFunc(b.AuthorList(), func(a string) bool {
					return normalize.Key(a) == key
				})
			})
			return err
		}
		matches, err = s.collectBooks(ctx, txn, nil, func(b *domain.Book) bool {
			return strings.Contains(normalize.Key(b.Authors), key)
		})
		return err
	})
	if err != nil {
		return query.Result[domain.Book]{}, err
	}

	slices.SortFunc(matches, func(a, b domain.Book) int {
		return cmp.Compare(a.BookID, b.BookID)
	})
	return query.Slice(matches, page), nil
}

// collectBooks loads the candidate books (all books when ids is nil) that satisfy keep.
// Candidates without a document are skipped.
func (s *Badger) collectBooks(ctx context.Context, txn *badger.Txn, ids idSet, keep func(*domain.Book) bool) ([]domain.Book, error) {
	var out []domain.Book
	if ids == nil {
		err := s.books.scanDocs(ctx, txn, "", func(b *domain.Book) (bool, error) {
			if keep(b) {
				out = append(out, *b)
			}
			return true, nil
		})
		return out, err
	}

	out = make([]domain.Book, 0, len(ids))
	for id := range ids {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		b, err := s.books.get(txn, idKey(id))
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if keep(b) {
			out = append(out, *b)
		}
	}
	return out, nil
}

// indexedBooks resolves a range over a book index to book ids.
func (s *Badger) indexedBooks(ctx context.Context, txn *badger.Txn, index, from, to string) (idSet, error) {
	ids := make(idSet)
	err := s.books.scanIndex(ctx, txn, index, from, to, func(pk string) error {
		id, err := strconv.ParseInt(pk, 10, 64)
		if err != nil {
			return err
		}
		ids[id] = struct{}{}
		return nil
	})
	return ids, err
}

// booksWithTag follows tag name -> tag ids -> book_tags -> goodreads ids -> book ids.
func (s *Badger) booksWithTag(ctx context.Context, txn *badger.Txn, tagName string) (idSet, error) {
	name := normalize.Key(tagName)

	var tagIDs []string
	if err := s.tags.scanIndex(ctx, txn, "name", name, name, func(pk string) error {
		tagIDs = append(tagIDs, pk)
		return nil
	}); err != nil {
		return nil, err
	}

	goodreadsIDs := make(map[string]struct{})
	for _, tagID := range tagIDs {
		if err := s.bookTags.scanIndex(ctx, txn, "tag", tagID, tagID, func(pk string) error {
			gid, _, _ := strings.Cut(pk, ":")
			goodreadsIDs[gid] = struct{}{}
			return nil
		}); err != nil {
			return nil, err
		}
	}

	ids := make(idSet)
	for gid := range goodreadsIDs {
		matched, err := s.indexedBooks(ctx, txn, "goodreads", gid, gid)
		if err != nil {
			return nil, err
		}
		for id := range matched {
			ids[id] = struct{}{}
		}
	}
	return ids, nil
}
