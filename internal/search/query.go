package search

import (
	"context"
	"fmt"
	"strconv"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search/query"
)

// SearchBooks matches folded tokens against titles and authors with OR semantics and
// returns the Bleve relevance score of every matching book, keyed by book_id.
func (s *SearchIndex) SearchBooks(ctx context.Context, tokens []string) (map[int64]float64, error) {
	if len(tokens) == 0 {
		return map[int64]float64{}, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	q := buildTokenQuery(tokens)

	// Count first so the full match set comes back in one request.
	countReq := bleve.NewSearchRequestOptions(q, 0, 0, false)
	counted, err := s.index.SearchInContext(ctx, countReq)
	if err != nil {
		return nil, fmt.Errorf("count matches: %w", err)
	}
	if counted.Total == 0 {
		return map[int64]float64{}, nil
	}

	req := bleve.NewSearchRequestOptions(q, int(counted.Total), 0, false) //nolint:gosec // bounded by the book count
	res, err := s.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}

	scores := make(map[int64]float64, len(res.Hits))
	for _, hit := range res.Hits {
		id, err := strconv.ParseInt(hit.ID, 10, 64)
		if err != nil {
			s.logger.Warn("skipping search hit with non-numeric id", "id", hit.ID)
			continue
		}
		scores[id] = hit.Score
	}
	return scores, nil
}

// buildTokenQuery ORs one term query per token and field. Title terms are boosted.
func buildTokenQuery(tokens []string) query.Query {
	queries := make([]query.Query, 0, len(tokens)*2)
	for _, tok := range tokens {
		title := bleve.NewTermQuery(tok)
		title.SetField(fieldTitle)
		title.SetBoost(titleBoost)

		authors := bleve.NewTermQuery(tok)
		authors.SetField(fieldAuthors)
		authors.SetBoost(authorsBoost)

		queries = append(queries, title, authors)
	}
	return bleve.NewDisjunctionQuery(queries...)
}
