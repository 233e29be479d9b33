package store

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/dgraph-io/badger/v4"

	"github.com/listenupapp/goodbooks-api/internal/domain"
)

// DefaultBatchSize is the number of records written per WriteBatch flush.
const DefaultBatchSize = 1000

// BatchWriter provides efficient bulk write operations using BadgerDB's WriteBatch
type BatchWriter struct {
	store   *Badger
	batch   *badger.WriteBatch
	maxSize int
	count   int

	// snapshot, when set, is read to drop index entries of replaced documents.
	snapshot *badger.Txn
}

// NewBatchWriter creates a new batch writer that will auto-flush when maxSize is reached
func (s *Badger) NewBatchWriter(maxSize int) *BatchWriter {
	if maxSize <= 0 {
		maxSize = DefaultBatchSize
	}
	return &BatchWriter{
		store:   s,
		batch:   s.db.NewWriteBatch(),
		maxSize: maxSize,
	}
}

// add queues one validated record of any collection.
func add[T any](ctx context.Context, b *BatchWriter, e *Entity[T], record *T) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := b.store.validate(record); err != nil {
		return fmt.Errorf("%s%s: %w", e.prefix, e.keyFn(record), err)
	}
	if err := e.batchSet(b.batch, b.snapshot, record); err != nil {
		return err
	}

	b.count++

	// Auto-flush if batch is full
	if b.count >= b.maxSize {
		if err := b.Flush(); err != nil {
			return fmt.Errorf("auto flush: %w", err)
		}
	}
	return nil
}

// Flush commits all pending writes in the batch
func (b *BatchWriter) Flush() error {
	if b.count == 0 {
		return nil // Nothing to flush
	}

	if err := b.batch.Flush(); err != nil {
		return fmt.Errorf("flush batch: %w", err)
	}

	if b.store.logger != nil {
		b.store.logger.LogAttrs(context.Background(), slog.LevelDebug, "batch flushed",
			slog.Int("count", b.count),
		)
	}

	// Reset for next batch
	b.count = 0
	b.batch = b.store.db.NewWriteBatch()

	return nil
}

// Cancel discards all pending writes in the batch
func (b *BatchWriter) Cancel() {
	b.batch.Cancel()
	b.count = 0
}

// writeAll streams records through a fresh batch writer and flushes at the end.
// When records share a primary key the last one wins.
func writeAll[T any](ctx context.Context, s *Badger, e *Entity[T], records []T) error {
	if s.db.IsClosed() {
		return ErrClosed
	}

	last := make(map[string]int, len(records))
	for i := range records {
		last[e.keyFn(&records[i])] = i
	}

	snapshot := s.db.NewTransaction(false)
	defer snapshot.Discard()

	bw := s.NewBatchWriter(DefaultBatchSize)
	bw.snapshot = snapshot
	for i := range records {
		if last[e.keyFn(&records[i])] != i {
			continue
		}
		if err := add(ctx, bw, e, &records[i]); err != nil {
			bw.Cancel()
			return err
		}
	}
	return bw.Flush()
}

// WriteBooks bulk-writes books, replacing existing books with the same book_id.
func (s *Badger) WriteBooks(ctx context.Context, books []domain.Book) error {
	return writeAll(ctx, s, s.books, books)
}

// WriteTags bulk-writes tags.
func (s *Badger) WriteTags(ctx context.Context, tags []domain.Tag) error {
	return writeAll(ctx, s, s.tags, tags)
}

// WriteBookTags bulk-writes book_tags records.
func (s *Badger) WriteBookTags(ctx context.Context, bookTags []domain.BookTag) error {
	return writeAll(ctx, s, s.bookTags, bookTags)
}

// WriteRatings bulk-writes ratings.
func (s *Badger) WriteRatings(ctx context.Context, ratings []domain.Rating) error {
	return writeAll(ctx, s, s.ratings, ratings)
}

// WriteToRead bulk-writes to_read records.
func (s *Badger) WriteToRead(ctx context.Context, entries []domain.ToRead) error {
	return writeAll(ctx, s, s.toRead, entries)
}

// dependents lists the collections whose records reference each parent collection.
// book_tags hang off goodreads_book_id, which is not a unique book key, so they only
// follow their tag.
var dependents = map[Collection][]Collection{
	CollectionBooks: {CollectionRatings, CollectionToRead},
	CollectionTags:  {CollectionBookTags},
}

// withDependents adds the dependents of every given collection, keeping the first
// occurrence of each.
func withDependents(collections []Collection) []Collection {
	out := make([]Collection, 0, len(Collections))
	for _, c := range collections {
		for _, dc := range append([]Collection{c}, dependents[c]...) {
			if !slices.Contains(out, dc) {
				out = append(out, dc)
			}
		}
	}
	return out
}

// Reset drops every document and index entry of the given collections
// (all collections when none are given). Resetting books also drops ratings and
// to_read, and resetting tags drops book_tags, so no record outlives its parent.
func (s *Badger) Reset(ctx context.Context, collections ...Collection) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(collections) == 0 {
		collections = Collections
	}
	for _, c := range collections {
		if _, err := collectionPrefix(c); err != nil {
			return err
		}
	}
	collections = withDependents(collections)

	prefixes := make([][]byte, 0, len(collections))
	for _, c := range collections {
		prefix, _ := collectionPrefix(c) //nolint:errcheck // checked above
		prefixes = append(prefixes, []byte(prefix))
	}

	if err := s.db.DropPrefix(prefixes...); err != nil {
		return fmt.Errorf("drop collections: %w", err)
	}
	if s.logger != nil {
		s.logger.Info("collections reset", "collections", collections)
	}
	return nil
}

func collectionPrefix(c Collection) (string, error) {
	switch c {
	case CollectionBooks:
		return bookPrefix, nil
	case CollectionRatings:
		return ratingPrefix, nil
	case CollectionTags:
		return tagPrefix, nil
	case CollectionBookTags:
		return bookTagPrefix, nil
	case CollectionToRead:
		return toReadPrefix, nil
	default:
		return "", ErrInvalidInput.WithMessage(fmt.Sprintf("unknown collection %q", c))
	}
}
