package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/listenupapp/goodbooks-api/internal/domain"
	"github.com/listenupapp/goodbooks-api/internal/normalize"
)

// maxConflictRetries bounds how often a read-modify-write transaction is retried
// after losing a race to a concurrent writer.
const maxConflictRetries = 10

// Options configures a Badger store.
type Options struct {
	// Timeout bounds each store operation. Zero disables the deadline.
	Timeout time.Duration
	// Validator checks records before writes. Required.
	Validator Validator
	// TextSearcher resolves text queries. When nil, books are scanned with search.MatchScore.
	TextSearcher TextSearcher
}

// Badger wraps a Badger database instance and implements Store and Writer.
type Badger struct {
	db        *badger.DB
	logger    *slog.Logger
	validator Validator
	timeout   time.Duration

	// Set via SetTextSearcher after creation: the search index is built from the store.
	textSearcher TextSearcher

	books    *Entity[domain.Book]
	ratings  *Entity[domain.Rating]
	tags     *Entity[domain.Tag]
	bookTags *Entity[domain.BookTag]
	toRead   *Entity[domain.ToRead]
}

var (
	_ Store  = (*Badger)(nil)
	_ Writer = (*Badger)(nil)
)

// New opens (or creates) a Badger store at path.
// Opening an existing store is idempotent: the key layout carries the index definitions.
func New(path string, logger *slog.Logger, opts Options) (*Badger, error) {
	if opts.Validator == nil {
		return nil, errors.New("store: validator is required")
	}

	bopts := badger.DefaultOptions(path)
	bopts.Logger = nil            // Disable Badger's internal logging
	bopts.SyncWrites = true       // Ensure writes are synced to disk to prevent corruption on crashes
	bopts.CompactL0OnClose = true // Compact L0 tables on close for faster startup

	db, err := badger.Open(bopts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger db: %w", err)
	}

	store := &Badger{
		db:           db,
		logger:       logger,
		validator:    opts.Validator,
		timeout:      opts.Timeout,
		textSearcher: opts.TextSearcher,
	}
	store.initEntities()

	if logger != nil {
		logger.Info("Badger database opened successfully", "path", path)
	}

	return store, nil
}

// Close gracefully closes the database connection.
func (s *Badger) Close() error {
	if s.logger != nil {
		s.logger.Info("Closing database connection")
	}
	return s.db.Close()
}

// Ping reports whether the database can serve reads.
func (s *Badger) Ping(ctx context.Context) error {
	if s.db.IsClosed() {
		return ErrClosed
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	return s.db.View(func(txn *badger.Txn) error {
		return ctx.Err()
	})
}

// SetTextSearcher sets the text index used for q.
// This is set after store creation because the index is rebuilt from the store.
func (s *Badger) SetTextSearcher(searcher TextSearcher) {
	s.textSearcher = searcher
}

// withTimeout derives the per-operation deadline.
func (s *Badger) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}

// view runs fn in a read transaction under the per-operation deadline.
func (s *Badger) view(ctx context.Context, fn func(ctx context.Context, txn *badger.Txn) error) error {
	if s.db.IsClosed() {
		return ErrClosed
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if err := s.db.View(func(txn *badger.Txn) error {
		return fn(ctx, txn)
	}); err != nil {
		return err
	}
	return ctx.Err()
}

// update runs fn in a read-write transaction, retrying when badger reports a conflict
// with a concurrently committed transaction. fn must be safe to run more than once.
func (s *Badger) update(ctx context.Context, fn func(txn *badger.Txn) error) error {
	if s.db.IsClosed() {
		return ErrClosed
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var err error
	for attempt := range maxConflictRetries {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		err = s.db.Update(fn)
		if !errors.Is(err, badger.ErrConflict) {
			return err
		}
		if s.logger != nil {
			s.logger.Debug("transaction conflict, retrying", "attempt", attempt+1)
		}
	}
	return ErrBusy.WithCause(fmt.Errorf("transaction retries exhausted: %w", err))
}

func (s *Badger) validate(v any) error {
	return s.validator.Validate(v)
}

// initEntities declares every collection with its primary key and secondary indexes.
// Compound primary keys double as the index on their leading column.
func (s *Badger) initEntities() {
	s.books = NewEntity[domain.Book](s, bookPrefix, func(b *domain.Book) string {
		return idKey(b.BookID)
	}).
		WithIndex("goodreads", func(b *domain.Book) []string {
			return []string{idKey(b.GoodreadsBookID)}
		}).
		WithIndex("year", func(b *domain.Book) []string {
			return []string{sortableInt(b.OriginalPublicationYear)}
		}).
		WithIndex("avg", func(b *domain.Book) []string {
			return []string{sortableFloat(b.AverageRating)}
		}).
		WithIndex("author", func(b *domain.Book) []string {
			authors := b.AuthorList()
			keys := make([]string, 0, len(authors))
			for _, a := range authors {
				if k := normalize.Key(a); k != "" {
					keys = append(keys, k)
				}
			}
			return keys
		})

	// pk user:book serves user_id lookups.
	s.ratings = NewEntity[domain.Rating](s, ratingPrefix, func(r *domain.Rating) string {
		return pairKey(r.UserID, r.BookID)
	}).
		WithIndex("book", func(r *domain.Rating) []string {
			return []string{idKey(r.BookID) + ":" + strconv.FormatInt(r.Rating, 10)}
		})

	s.tags = NewEntity[domain.Tag](s, tagPrefix, func(t *domain.Tag) string {
		return idKey(t.TagID)
	}).
		WithIndex("name", func(t *domain.Tag) []string {
			return []string{normalize.Key(t.TagName)}
		})

	// pk goodreads:tag serves goodreads_book_id lookups.
	s.bookTags = NewEntity[domain.BookTag](s, bookTagPrefix, func(bt *domain.BookTag) string {
		return pairKey(bt.GoodreadsBookID, bt.TagID)
	}).
		WithIndex("tag", func(bt *domain.BookTag) []string {
			return []string{idKey(bt.TagID)}
		})

	// pk user:book serves user_id lookups.
	s.toRead = NewEntity[domain.ToRead](s, toReadPrefix, func(tr *domain.ToRead) string {
		return pairKey(tr.UserID, tr.BookID)
	})
}
