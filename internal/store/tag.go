package store

import (
	"cmp"
	"context"
	"errors"
	"iter"
	"slices"

	"github.com/dgraph-io/badger/v4"

	"github.com/listenupapp/goodbooks-api/internal/domain"
	"github.com/listenupapp/goodbooks-api/internal/query"
)

// Tags returns an iterator over every tag in tag_id order.
func (s *Badger) Tags(ctx context.Context) iter.Seq2[*domain.Tag, error] {
	return s.tags.List(ctx)
}

// ListTags pages through tags in tag_id order, counting book_tags per tag on the page.
func (s *Badger) ListTags(ctx context.Context, page query.Page) (query.Result[domain.TagCount], error) {
	result := query.Result[domain.TagCount]{Items: []domain.TagCount{}}
	start, end := page.Skip(), page.Skip()+page.Limit()

	err := s.view(ctx, func(ctx context.Context, txn *badger.Txn) error {
		var onPage []domain.Tag
		err := s.tags.scanDocs(ctx, txn, "", func(t *domain.Tag) (bool, error) {
			if result.Total >= start && result.Total < end {
				onPage = append(onPage, *t)
			}
			result.Total++
			return true, nil
		})
		if err != nil {
			return err
		}

		for _, t := range onPage {
			n, err := s.bookTags.countIndex(ctx, txn, "tag", idKey(t.TagID))
			if err != nil {
				return err
			}
			result.Items = append(result.Items, domain.TagCount{
				TagID:     t.TagID,
				TagName:   t.TagName,
				BookCount: int64(n),
			})
		}
		return nil
	})
	if err != nil {
		return query.Result[domain.TagCount]{}, err
	}
	return result, nil
}

// BookTags lists a book's tags by descending count, then tag_id. Tags without a
// tag document are reported with an empty name.
// Returns ErrNotFound if the book does not exist.
func (s *Badger) BookTags(ctx context.Context, bookID int64, page query.Page) (query.Result[domain.BookTagView], error) {
	var views []domain.BookTagView
	err := s.view(ctx, func(ctx context.Context, txn *badger.Txn) error {
		book, err := s.books.get(txn, idKey(bookID))
		if err != nil {
			return err
		}

		var links []domain.BookTag
		if err := s.bookTags.scanDocs(ctx, txn, idKey(book.GoodreadsBookID)+":", func(bt *domain.BookTag) (bool, error) {
			links = append(links, *bt)
			return true, nil
		}); err != nil {
			return err
		}

		views = make([]domain.BookTagView, 0, len(links))
		for _, bt := range links {
			view := domain.BookTagView{TagID: bt.TagID, Count: bt.Count}
			tag, err := s.tags.get(txn, idKey(bt.TagID))
			switch {
			case err == nil:
				view.TagName = tag.TagName
			case !errors.Is(err, ErrNotFound):
				return err
			}
			views = append(views, view)
		}
		return nil
	})
	if err != nil {
		return query.Result[domain.BookTagView]{}, err
	}

	slices.SortFunc(views, func(a, b domain.BookTagView) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		return cmp.Compare(a.TagID, b.TagID)
	})
	return query.Slice(views, page), nil
}
