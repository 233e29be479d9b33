// Package ingest bulk-loads the goodbooks CSV collections into a store.
package ingest

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/listenupapp/goodbooks-api/internal/domain"
	"github.com/listenupapp/goodbooks-api/internal/store"
)

// DefaultBatchSize is the number of records handed to the store per write call.
const DefaultBatchSize = 1000

// Reindexer rebuilds the text index from the store.
type Reindexer interface {
	ReindexAll(ctx context.Context) (int, error)
}

// Options configures a load.
type Options struct {
	// Collections to load. Empty means all of them.
	Collections []store.Collection
	// BatchSize bounds the records per store write. Defaults to DefaultBatchSize.
	BatchSize int
	// KeepExisting upserts into the current collections instead of replacing them.
	KeepExisting bool
}

// Loader reads collections from a Source and writes them through a store.Writer.
type Loader struct {
	source    Source
	store     store.Store
	writer    store.Writer
	validator store.Validator
	reindexer Reindexer
	logger    *slog.Logger
}

// NewLoader creates a loader. reindexer may be nil when the store maintains its own text index.
func NewLoader(source Source, st store.Store, writer store.Writer, validator store.Validator, reindexer Reindexer, logger *slog.Logger) *Loader {
	return &Loader{
		source:    source,
		store:     st,
		writer:    writer,
		validator: validator,
		reindexer: reindexer,
		logger:    logger,
	}
}

// dataset holds the parsed collections of one load.
type dataset struct {
	books    parsed[domain.Book]
	tags     parsed[domain.Tag]
	ratings  parsed[domain.Rating]
	bookTags parsed[domain.BookTag]
	toRead   parsed[domain.ToRead]
}

// Load fetches and parses the requested collections concurrently, then writes them
// in load order so every child is checked against its parents.
func (l *Loader) Load(ctx context.Context, opts Options) (*Report, error) {
	start := time.Now()

	collections, err := normalizeCollections(opts.Collections)
	if err != nil {
		return nil, err
	}
	batchSize := opts.BatchSize
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	l.logger.Info("loading collections",
		"source", l.source.String(),
		"collections", collections,
		"batch_size", batchSize,
		"keep_existing", opts.KeepExisting,
	)

	data, err := l.parse(ctx, collections)
	if err != nil {
		return nil, err
	}

	if !opts.KeepExisting {
		if err := l.writer.Reset(ctx, collections...); err != nil {
			return nil, fmt.Errorf("reset collections: %w", err)
		}
	}

	known, err := l.existingRefs(ctx, collections)
	if err != nil {
		return nil, err
	}

	report := &Report{}

	for _, c := range collections {
		var cr CollectionReport
		switch c {
		case store.CollectionBooks:
			cr, err = load(ctx, l, batchSize, c, data.books, func(b *domain.Book) bool {
				known.books[b.BookID] = struct{}{}
				known.goodreads[b.GoodreadsBookID] = struct{}{}
				return true
			}, l.writer.WriteBooks)
			if err == nil && l.reindexer != nil {
				report.Indexed, err = l.reindexer.ReindexAll(ctx)
				report.Reindexed = err == nil
			}
		case store.CollectionTags:
			cr, err = load(ctx, l, batchSize, c, data.tags, func(t *domain.Tag) bool {
				known.tags[t.TagID] = struct{}{}
				return true
			}, l.writer.WriteTags)
		case store.CollectionRatings:
			cr, err = load(ctx, l, batchSize, c, data.ratings, func(r *domain.Rating) bool {
				return known.hasBook(r.BookID)
			}, l.writer.WriteRatings)
		case store.CollectionBookTags:
			cr, err = load(ctx, l, batchSize, c, data.bookTags, func(bt *domain.BookTag) bool {
				return known.hasGoodreads(bt.GoodreadsBookID) && known.hasTag(bt.TagID)
			}, l.writer.WriteBookTags)
		case store.CollectionToRead:
			cr, err = load(ctx, l, batchSize, c, data.toRead, func(tr *domain.ToRead) bool {
				return known.hasBook(tr.BookID)
			}, l.writer.WriteToRead)
		}
		if err != nil {
			return report, fmt.Errorf("load %s: %w", c, err)
		}
		report.Collections = append(report.Collections, cr)
	}

	report.Duration = time.Since(start)
	l.logger.Info("load complete", "duration", report.Duration, "indexed", report.Indexed)
	return report, nil
}

func (l *Loader) parse(ctx context.Context, collections []store.Collection) (*dataset, error) {
	data := &dataset{}
	g, gctx := errgroup.WithContext(ctx)

	for _, c := range collections {
		switch c {
		case store.CollectionBooks:
			g.Go(func() (err error) {
				data.books, err = fetch(gctx, l.source, c, bookColumns, parseBook)
				return err
			})
		case store.CollectionTags:
			g.Go(func() (err error) {
				data.tags, err = fetch(gctx, l.source, c, tagColumns, parseTag)
				return err
			})
		case store.CollectionRatings:
			g.Go(func() (err error) {
				data.ratings, err = fetch(gctx, l.source, c, ratingColumns, parseRating)
				return err
			})
		case store.CollectionBookTags:
			g.Go(func() (err error) {
				data.bookTags, err = fetch(gctx, l.source, c, bookTagColumns, parseBookTag)
				return err
			})
		case store.CollectionToRead:
			g.Go(func() (err error) {
				data.toRead, err = fetch(gctx, l.source, c, toReadColumns, parseToRead)
				return err
			})
		}
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return data, nil
}

func fetch[T any](ctx context.Context, src Source, c store.Collection, columns []string, parse func(row) (T, error)) (parsed[T], error) {
	rc, err := src.Open(ctx, c)
	if err != nil {
		return parsed[T]{}, err
	}
	defer func() { _ = rc.Close() }()

	out, err := readCSV(rc, columns, parse)
	if err != nil {
		return out, fmt.Errorf("%s: %w", fileName(c), err)
	}
	return out, nil
}

// refs tracks the parent keys children may reference.
type refs struct {
	books     map[int64]struct{}
	goodreads map[int64]struct{}
	tags      map[int64]struct{}
}

func (r *refs) hasBook(id int64) bool {
	_, ok := r.books[id]
	return ok
}

func (r *refs) hasGoodreads(id int64) bool {
	_, ok := r.goodreads[id]
	return ok
}

func (r *refs) hasTag(id int64) bool {
	_, ok := r.tags[id]
	return ok
}

// existingRefs seeds the parent keys from the store for parents this load keeps.
// Reset has already run, so replaced parents are empty here.
func (l *Loader) existingRefs(ctx context.Context, collections []store.Collection) (*refs, error) {
	r := &refs{
		books:     make(map[int64]struct{}),
		goodreads: make(map[int64]struct{}),
		tags:      make(map[int64]struct{}),
	}

	needsBooks := slices.Contains(collections, store.CollectionRatings) ||
		slices.Contains(collections, store.CollectionToRead) ||
		slices.Contains(collections, store.CollectionBookTags)
	if needsBooks {
		for b, err := range l.store.Books(ctx) {
			if err != nil {
				return nil, fmt.Errorf("scan books: %w", err)
			}
			r.books[b.BookID] = struct{}{}
			r.goodreads[b.GoodreadsBookID] = struct{}{}
		}
	}

	if slices.Contains(collections, store.CollectionBookTags) {
		for t, err := range l.store.Tags(ctx) {
			if err != nil {
				return nil, fmt.Errorf("scan tags: %w", err)
			}
			r.tags[t.TagID] = struct{}{}
		}
	}

	return r, nil
}

// load validates one parsed collection, drops the records keep rejects, then writes
// the rest in batches. keep sees only valid records.
func load[T any](ctx context.Context, l *Loader, batchSize int, c store.Collection, p parsed[T], keep func(*T) bool, write func(context.Context, []T) error) (CollectionReport, error) {
	cr := CollectionReport{Collection: c, Read: p.read, Skipped: p.skipped}

	valid := make([]T, 0, len(p.records))
	var invalid, orphaned int
	for i := range p.records {
		rec := &p.records[i]
		if err := l.validator.Validate(rec); err != nil {
			invalid++
			continue
		}
		if !keep(rec) {
			orphaned++
			continue
		}
		valid = append(valid, *rec)
	}
	cr.Skipped += invalid + orphaned

	for batch := range slices.Chunk(valid, batchSize) {
		if err := write(ctx, batch); err != nil {
			return cr, err
		}
		cr.Written += len(batch)
	}

	l.logger.Info("collection loaded",
		"collection", c,
		"read", cr.Read,
		"written", cr.Written,
		"skipped", cr.Skipped,
		"invalid", invalid,
		"orphaned", orphaned,
	)
	return cr, nil
}

// normalizeCollections validates names and returns them in load order without duplicates.
func normalizeCollections(requested []store.Collection) ([]store.Collection, error) {
	if len(requested) == 0 {
		return slices.Clone(store.Collections), nil
	}
	for _, c := range requested {
		if !slices.Contains(store.Collections, c) {
			return nil, fmt.Errorf("unknown collection %q", c)
		}
	}
	out := make([]store.Collection, 0, len(requested))
	for _, c := range store.Collections {
		if slices.Contains(requested, c) {
			out = append(out, c)
		}
	}
	return out, nil
}

// CollectionReport counts the rows of one collection.
type CollectionReport struct {
	Collection store.Collection
	Read       int
	Written    int
	Skipped    int
}

// Report summarizes a load.
type Report struct {
	Collections []CollectionReport
	Reindexed   bool
	Indexed     int
	Duration    time.Duration
}

// Print writes the report as an aligned table.
func (r *Report) Print(w io.Writer) error {
	if _, err := fmt.Fprintf(w, "%-10s %10s %10s %10s\n", "collection", "read", "written", "skipped"); err != nil {
		return err
	}
	for _, c := range r.Collections {
		if _, err := fmt.Fprintf(w, "%-10s %10d %10d %10d\n", c.Collection, c.Read, c.Written, c.Skipped); err != nil {
			return err
		}
	}
	if r.Reindexed {
		if _, err := fmt.Fprintf(w, "search index rebuilt: %d books\n", r.Indexed); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintf(w, "done in %s\n", r.Duration.Round(time.Millisecond))
	return err
}
