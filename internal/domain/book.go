// Package domain contains the records of the goodbooks dataset and the pure logic around them.
package domain

import (
	"crypto/md5" //nolint:gosec // ETag fingerprint, not a security boundary
	"encoding/hex"
	"strconv"
	"strings"
)

// Book is one row of the books collection.
type Book struct {
	BookID                  int64   `json:"book_id" validate:"gt=0"`
	GoodreadsBookID         int64   `json:"goodreads_book_id" validate:"gt=0"`
	Title                   string  `json:"title" validate:"required"`
	Authors                 string  `json:"authors" validate:"required"`
	OriginalPublicationYear int64   `json:"original_publication_year"`
	AverageRating           float64 `json:"average_rating" validate:"gte=0,lte=5"`
	RatingsCount            int64   `json:"ratings_count" validate:"gte=0"`
	ImageURL                string  `json:"image_url"`
	SmallImageURL           string  `json:"small_image_url"`
}

// AuthorList splits the comma separated authors field into trimmed names.
func (b *Book) AuthorList() []string {
	parts := strings.Split(b.Authors, ",")
	names := make([]string, 0, len(parts))
	for _, p := range parts {
		if name := strings.TrimSpace(p); name != "" {
			names = append(names, name)
		}
	}
	return names
}

// ETag fingerprints the fields that change when the book's rating data changes.
// The float is rendered the way the legacy service rendered it ("4.0", not "4")
// so cached validators survive the migration.
func (b *Book) ETag() string {
	avg := strconv.FormatFloat(b.AverageRating, 'f', -1, 64)
	if !strings.ContainsAny(avg, ".eE") {
		avg += ".0"
	}
	src := strconv.FormatInt(b.BookID, 10) + "-" + strconv.FormatInt(b.RatingsCount, 10) + "-" + avg
	sum := md5.Sum([]byte(src)) //nolint:gosec // see import
	return hex.EncodeToString(sum[:])
}
