// Package store defines the persistence interface for the GoodBooks API and its
// default Badger implementation. The sqlite subpackage provides the alternative backend.
package store

import (
	"context"
	"iter"

	"github.com/listenupapp/goodbooks-api/internal/domain"
	"github.com/listenupapp/goodbooks-api/internal/query"
)

// Store defines the read and single-record write operations served by the API.
type Store interface {
	// Lifecycle
	Ping(ctx context.Context) error
	Close() error

	// Books
	FindBooks(ctx context.Context, plan query.Plan) (query.Result[domain.Book], error)
	GetBook(ctx context.Context, bookID int64) (*domain.Book, error)
	BooksByAuthor(ctx context.Context, name string, exact bool, page query.Page) (query.Result[domain.Book], error)
	Books(ctx context.Context) iter.Seq2[*domain.Book, error]

	// Tags
	BookTags(ctx context.Context, bookID int64, page query.Page) (query.Result[domain.BookTagView], error)
	ListTags(ctx context.Context, page query.Page) (query.Result[domain.TagCount], error)
	Tags(ctx context.Context) iter.Seq2[*domain.Tag, error]

	// Reading lists
	ToReadBooks(ctx context.Context, userID int64, page query.Page) (query.Result[domain.Book], error)

	// Ratings
	RatingHistogram(ctx context.Context, bookID int64) (map[int64]int64, error)
	UpsertRating(ctx context.Context, rating domain.Rating) (created bool, err error)
}

// Collection names a dataset collection.
type Collection string

// The five dataset collections.
const (
	CollectionBooks    Collection = "books"
	CollectionRatings  Collection = "ratings"
	CollectionTags     Collection = "tags"
	CollectionBookTags Collection = "book_tags"
	CollectionToRead   Collection = "to_read"
)

// Collections lists every collection in load order: parents before the records referencing them.
var Collections = []Collection{
	CollectionBooks,
	CollectionTags,
	CollectionRatings,
	CollectionBookTags,
	CollectionToRead,
}

// Writer is the bulk-load side of a store, used by ingestion.
// Records are validated before they are written; an invalid record fails the whole call.
type Writer interface {
	Reset(ctx context.Context, collections ...Collection) error
	WriteBooks(ctx context.Context, books []domain.Book) error
	WriteTags(ctx context.Context, tags []domain.Tag) error
	WriteBookTags(ctx context.Context, bookTags []domain.BookTag) error
	WriteRatings(ctx context.Context, ratings []domain.Rating) error
	WriteToRead(ctx context.Context, entries []domain.ToRead) error
}

// TextSearcher resolves folded query tokens to relevance scores keyed by book_id.
// Books absent from the result do not match.
type TextSearcher interface {
	SearchBooks(ctx context.Context, tokens []string) (map[int64]float64, error)
}

// Validator checks a record before it is written.
type Validator interface {
	Validate(v any) error
}
