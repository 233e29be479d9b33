// Package search provides the title and author text index for books using Bleve.
// Text is folded with the normalize package before indexing and querying, so matching
// is case and diacritic insensitive on both sides.
package search

import (
	"strconv"
	"strings"

	"github.com/listenupapp/goodbooks-api/internal/domain"
	"github.com/listenupapp/goodbooks-api/internal/normalize"
)

// Indexed field names.
const (
	fieldTitle   = "title"
	fieldAuthors = "authors"
)

// BookDocument is the indexed form of a book: its id and folded title and author tokens.
type BookDocument struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Authors string `json:"authors"`
}

// NewBookDocument creates a search document from a book.
func NewBookDocument(b *domain.Book) *BookDocument {
	return &BookDocument{
		ID:      DocumentID(b.BookID),
		Title:   strings.Join(normalize.Tokens(b.Title), " "),
		Authors: strings.Join(normalize.Tokens(b.Authors), " "),
	}
}

// ToMap converts the document to a map for Bleve indexing.
func (d *BookDocument) ToMap() map[string]any {
	return map[string]any{
		fieldTitle:   d.Title,
		fieldAuthors: d.Authors,
	}
}

// DocumentID is the index id of a book.
func DocumentID(bookID int64) string {
	return strconv.FormatInt(bookID, 10)
}

// Title tokens weigh more than author tokens in both scorers.
const (
	titleBoost   = 2.0
	authorsBoost = 1.0
)

// MatchScore scores a book against folded query tokens without an index: each token found in
// the title adds titleBoost, each found in the authors adds authorsBoost, normalized to (0, 1].
// Zero means no token matched.
func MatchScore(tokens []string, title, authors string) float64 {
	if len(tokens) == 0 {
		return 0
	}
	titleWords := wordSet(title)
	authorWords := wordSet(authors)

	var score float64
	for _, tok := range tokens {
		if _, ok := titleWords[tok]; ok {
			score += titleBoost
		}
		if _, ok := authorWords[tok]; ok {
			score += authorsBoost
		}
	}
	return score / (float64(len(tokens)) * (titleBoost + authorsBoost))
}

func wordSet(s string) map[string]struct{} {
	tokens := normalize.Tokens(s)
	set := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		set[t] = struct{}{}
	}
	return set
}
