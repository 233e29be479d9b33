package store

import (
	"context"
	"errors"

	"github.com/dgraph-io/badger/v4"

	"github.com/listenupapp/goodbooks-api/internal/domain"
	"github.com/listenupapp/goodbooks-api/internal/query"
)

// ToReadBooks pages through a user's to-read list in book_id order. Total counts the
// list entries; entries whose book is missing are dropped from the page.
func (s *Badger) ToReadBooks(ctx context.Context, userID int64, page query.Page) (query.Result[domain.Book], error) {
	result := query.Result[domain.Book]{Items: []domain.Book{}}
	start, end := page.Skip(), page.Skip()+page.Limit()

	err := s.view(ctx, func(ctx context.Context, txn *badger.Txn) error {
		var bookIDs []int64
		err := s.toRead.scanDocs(ctx, txn, idKey(userID)+":", func(tr *domain.ToRead) (bool, error) {
			if result.Total >= start && result.Total < end {
				bookIDs = append(bookIDs, tr.BookID)
			}
			result.Total++
			return true, nil
		})
		if err != nil {
			return err
		}

		for _, id := range bookIDs {
			book, err := s.books.get(txn, idKey(id))
			if errors.Is(err, ErrNotFound) {
				continue
			}
			if err != nil {
				return err
			}
			result.Items = append(result.Items, *book)
		}
		return nil
	})
	if err != nil {
		return query.Result[domain.Book]{}, err
	}
	return result, nil
}
