package search

import (
	"fmt"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/custom"
	"github.com/blevesearch/bleve/v2/analysis/token/lowercase"
	"github.com/blevesearch/bleve/v2/analysis/tokenizer/whitespace"
	"github.com/blevesearch/bleve/v2/mapping"
)

// foldedAnalyzer splits pre-folded text on whitespace. Folding happens in Go
// (normalize.Tokens) so the index and the no-index fallback agree on tokens.
const foldedAnalyzer = "folded_words"

// buildIndexMapping creates the Bleve index mapping for book documents.
// No stemming or stop words: every folded word is a term.
func buildIndexMapping() (mapping.IndexMapping, error) {
	indexMapping := bleve.NewIndexMapping()

	if err := indexMapping.AddCustomAnalyzer(foldedAnalyzer, map[string]any{
		"type":          custom.Name,
		"tokenizer":     whitespace.Name,
		"token_filters": []string{lowercase.Name},
	}); err != nil {
		return nil, fmt.Errorf("register analyzer: %w", err)
	}
	indexMapping.DefaultAnalyzer = foldedAnalyzer

	docMapping := bleve.NewDocumentMapping()

	titleFieldMapping := bleve.NewTextFieldMapping()
	titleFieldMapping.Analyzer = foldedAnalyzer
	titleFieldMapping.Store = false
	docMapping.AddFieldMappingsAt(fieldTitle, titleFieldMapping)

	authorsFieldMapping := bleve.NewTextFieldMapping()
	authorsFieldMapping.Analyzer = foldedAnalyzer
	authorsFieldMapping.Store = false
	docMapping.AddFieldMappingsAt(fieldAuthors, authorsFieldMapping)

	indexMapping.AddDocumentMapping("_default", docMapping)

	return indexMapping, nil
}
