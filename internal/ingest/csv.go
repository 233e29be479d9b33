package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/listenupapp/goodbooks-api/internal/domain"
)

// errSkip marks a row whose values cannot be coerced to the collection's types.
var errSkip = errors.New("unparsable value")

// row gives by-name access to one CSV record.
type row struct {
	columns map[string]int
	record  []string
}

func (r row) str(name string) string {
	i, ok := r.columns[name]
	if !ok || i >= len(r.record) {
		return ""
	}
	return r.record[i]
}

// long parses an integer column. Float renderings ("1937.0") are truncated;
// blank or non-numeric values skip the row.
func (r row) long(name string) (int64, error) {
	s := strings.TrimSpace(r.str(name))
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f >= math.MaxInt64 || f < math.MinInt64 {
		return 0, fmt.Errorf("%s=%q: %w", name, s, errSkip)
	}
	return int64(f), nil
}

// double parses a float column. Blank or non-numeric values become 0.
func (r row) double(name string) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(r.str(name)), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

// parsed holds the records of one collection and the number of rows that could not be coerced.
type parsed[T any] struct {
	records []T
	read    int
	skipped int
}

// readCSV reads a header row followed by records, parsing each with parse.
// Every name in required must appear in the header; extra columns are ignored.
// Malformed and unparsable rows are counted and skipped.
func readCSV[T any](r io.Reader, required []string, parse func(row) (T, error)) (parsed[T], error) {
	var out parsed[T]

	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.ReuseRecord = true

	header, err := reader.Read()
	if err != nil {
		return out, fmt.Errorf("failed to read header: %w", err)
	}

	columns := make(map[string]int, len(header))
	for i, name := range header {
		name = strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))
		if _, dup := columns[name]; !dup {
			columns[name] = i
		}
	}
	for _, name := range required {
		if _, ok := columns[name]; !ok {
			return out, fmt.Errorf("missing column %q", name)
		}
	}

	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		out.read++
		if err != nil {
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				out.skipped++
				continue
			}
			return out, fmt.Errorf("read record: %w", err)
		}

		item, err := parse(row{columns: columns, record: record})
		if err != nil {
			out.skipped++
			continue
		}
		out.records = append(out.records, item)
	}

	return out, nil
}

var (
	bookColumns    = []string{"book_id", "goodreads_book_id", "title", "authors", "original_publication_year", "average_rating", "ratings_count", "image_url", "small_image_url"}
	ratingColumns  = []string{"user_id", "book_id", "rating"}
	tagColumns     = []string{"tag_id", "tag_name"}
	bookTagColumns = []string{"goodreads_book_id", "tag_id", "count"}
	toReadColumns  = []string{"user_id", "book_id"}
)

func parseBook(r row) (domain.Book, error) {
	var b domain.Book
	var err error
	if b.BookID, err = r.long("book_id"); err != nil {
		return b, err
	}
	if b.GoodreadsBookID, err = r.long("goodreads_book_id"); err != nil {
		return b, err
	}
	if b.OriginalPublicationYear, err = r.long("original_publication_year"); err != nil {
		return b, err
	}
	if b.RatingsCount, err = r.long("ratings_count"); err != nil {
		return b, err
	}
	b.Title = r.str("title")
	b.Authors = r.str("authors")
	b.AverageRating = r.double("average_rating")
	b.ImageURL = r.str("image_url")
	b.SmallImageURL = r.str("small_image_url")
	return b, nil
}

func parseRating(r row) (domain.Rating, error) {
	var v domain.Rating
	var err error
	if v.UserID, err = r.long("user_id"); err != nil {
		return v, err
	}
	if v.BookID, err = r.long("book_id"); err != nil {
		return v, err
	}
	v.Rating, err = r.long("rating")
	return v, err
}

func parseTag(r row) (domain.Tag, error) {
	id, err := r.long("tag_id")
	return domain.Tag{TagID: id, TagName: r.str("tag_name")}, err
}

func parseBookTag(r row) (domain.BookTag, error) {
	var v domain.BookTag
	var err error
	if v.GoodreadsBookID, err = r.long("goodreads_book_id"); err != nil {
		return v, err
	}
	if v.TagID, err = r.long("tag_id"); err != nil {
		return v, err
	}
	v.Count, err = r.long("count")
	return v, err
}

func parseToRead(r row) (domain.ToRead, error) {
	var v domain.ToRead
	var err error
	if v.UserID, err = r.long("user_id"); err != nil {
		return v, err
	}
	v.BookID, err = r.long("book_id")
	return v, err
}
