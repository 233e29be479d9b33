package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/listenupapp/goodbooks-api/internal/search"
	"github.com/listenupapp/goodbooks-api/internal/store"
)

// SearchService keeps the bleve text index in step with the store.
type SearchService struct {
	index  *search.SearchIndex
	store  store.Store
	logger *slog.Logger
}

// NewSearchService creates a new search service.
func NewSearchService(index *search.SearchIndex, store store.Store, logger *slog.Logger) *SearchService {
	return &SearchService{
		index:  index,
		store:  store,
		logger: logger,
	}
}

// Searcher exposes the index as the store's text searcher.
func (s *SearchService) Searcher() store.TextSearcher {
	return s.index
}

// DocumentCount returns the number of indexed documents.
func (s *SearchService) DocumentCount() (uint64, error) {
	return s.index.DocumentCount()
}

// EnsurePopulated reindexes when the index is empty but the store holds books,
// which happens after a mapping change or a fresh index directory.
func (s *SearchService) EnsurePopulated(ctx context.Context) error {
	count, err := s.index.DocumentCount()
	if err != nil {
		return fmt.Errorf("count documents: %w", err)
	}
	if count > 0 {
		return nil
	}

	empty := true
	for _, err := range s.store.Books(ctx) {
		if err != nil {
			return fmt.Errorf("probe books: %w", err)
		}
		empty = false
		break
	}
	if empty {
		return nil
	}

	_, err = s.ReindexAll(ctx)
	return err
}

// ReindexAll rebuilds the entire search index from the store and returns the number of
// indexed books. This is a heavy operation - use sparingly.
func (s *SearchService) ReindexAll(ctx context.Context) (int, error) {
	s.logger.Info("starting full reindex")
	start := time.Now()

	if err := s.index.Rebuild(); err != nil {
		return 0, fmt.Errorf("rebuild index: %w", err)
	}

	indexed, err := s.index.IndexBooks(ctx, s.store.Books(ctx))
	if err != nil {
		return indexed, fmt.Errorf("index books: %w", err)
	}

	s.logger.Info("reindex complete",
		"books", indexed,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return indexed, nil
}
