// Package query turns /books request parameters into a storage-agnostic plan:
// a text predicate, filters, an ordering and a page.
package query

import (
	"cmp"
	"math"
	"strconv"
	"strings"

	"github.com/listenupapp/goodbooks-api/internal/domain"
	domainerrors "github.com/listenupapp/goodbooks-api/internal/errors"
	"github.com/listenupapp/goodbooks-api/internal/normalize"
)

// Sort is a book ordering key.
type Sort string

// Supported sort keys.
const (
	SortRelevance    Sort = "relevance"
	SortBookID       Sort = "book_id"
	SortTitle        Sort = "title"
	SortAverage      Sort = "avg"
	SortYear         Sort = "year"
	SortRatingsCount Sort = "ratings_count"
)

// sortAliases maps accepted request values to sort keys.
var sortAliases = map[string]Sort{
	"relevance":      SortRelevance,
	"book_id":        SortBookID,
	"title":          SortTitle,
	"avg":            SortAverage,
	"average_rating": SortAverage,
	"year":           SortYear,
	"ratings_count":  SortRatingsCount,
}

const sortChoices = "relevance, title, avg, year, ratings_count, book_id"

// Order is a sort direction.
type Order string

// Sort directions.
const (
	Asc  Order = "asc"
	Desc Order = "desc"
)

// Params are the raw /books parameters. Optional numbers stay strings so that
// absent, blank and malformed values can be told apart.
type Params struct {
	Q        string
	Tag      string
	MinAvg   string
	YearFrom string
	YearTo   string
	Sort     string
	Order    string
	Page     int
	PageSize int
}

// Plan is a validated book search.
type Plan struct {
	// Text is the trimmed free-text query; empty means no text predicate.
	Text string
	// Tokens are the folded words of Text, OR-matched against title and authors.
	Tokens []string

	// Tag restricts results to books carrying this tag name (case-insensitive exact match).
	Tag string

	MinAverage *float64
	YearFrom   *int64
	YearTo     *int64

	Sort  Sort
	Order Order
	Page  Page
}

// Build validates p and produces a plan. Every failure is a VALIDATION domain error.
func Build(p Params) (Plan, error) {
	page, err := NewPage(p.Page, p.PageSize)
	if err != nil {
		return Plan{}, err
	}

	plan := Plan{
		Text: strings.TrimSpace(p.Q),
		Tag:  strings.TrimSpace(p.Tag),
		Page: page,
	}

	if plan.Text != "" {
		plan.Tokens = normalize.Tokens(plan.Text)
		if len(plan.Tokens) == 0 {
			return Plan{}, domainerrors.FieldValidation("q", "must contain at least one letter or digit")
		}
	}

	if plan.YearFrom, err = parseYear("year_from", p.YearFrom); err != nil {
		return Plan{}, err
	}
	if plan.YearTo, err = parseYear("year_to", p.YearTo); err != nil {
		return Plan{}, err
	}
	if plan.YearFrom != nil && plan.YearTo != nil && *plan.YearFrom > *plan.YearTo {
		return Plan{}, domainerrors.FieldValidation("year_from", "must be less than or equal to year_to")
	}

	if plan.MinAverage, err = parseMinAverage(p.MinAvg); err != nil {
		return Plan{}, err
	}

	if plan.Sort, err = resolveSort(p.Sort, plan.HasText()); err != nil {
		return Plan{}, err
	}
	if plan.Order, err = resolveOrder(p.Order, plan.Sort); err != nil {
		return Plan{}, err
	}

	return plan, nil
}

// HasText reports whether the plan carries a text predicate.
func (p Plan) HasText() bool {
	return len(p.Tokens) > 0
}

// Matches applies the year and average filters. Text and tag predicates are
// resolved by the store through its indexes.
func (p Plan) Matches(b *domain.Book) bool {
	if p.YearFrom != nil && b.OriginalPublicationYear < *p.YearFrom {
		return false
	}
	if p.YearTo != nil && b.OriginalPublicationYear > *p.YearTo {
		return false
	}
	if p.MinAverage != nil && b.AverageRating < *p.MinAverage {
		return false
	}
	return true
}

// Compare orders two books by the plan's sort key and direction, breaking ties
// by book_id ascending. scores holds text relevance per book_id.
func (p Plan) Compare(a, b *domain.Book, scores map[int64]float64) int {
	var c int
	switch p.Sort {
	case SortRelevance:
		c = cmp.Compare(scores[a.BookID], scores[b.BookID])
	case SortTitle:
		c = strings.Compare(a.Title, b.Title)
	case SortAverage:
		c = cmp.Compare(a.AverageRating, b.AverageRating)
	case SortYear:
		c = cmp.Compare(a.OriginalPublicationYear, b.OriginalPublicationYear)
	case SortRatingsCount:
		c = cmp.Compare(a.RatingsCount, b.RatingsCount)
	case SortBookID:
		c = cmp.Compare(a.BookID, b.BookID)
	}
	if p.Order == Desc {
		c = -c
	}
	if c != 0 {
		return c
	}
	return cmp.Compare(a.BookID, b.BookID)
}

func parseYear(field, raw string) (*int64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, domainerrors.FieldValidation(field, "must be an integer")
	}
	return &v, nil
}

func parseMinAverage(raw string) (*float64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) {
		return nil, domainerrors.FieldValidation("min_avg", "must be a number")
	}
	if v < 0 || v > domain.MaxStars {
		return nil, domainerrors.FieldValidation("min_avg", "must be in [0, 5]")
	}
	return &v, nil
}

// resolveSort applies the default ordering: relevance when there is a text
// query, book_id otherwise. Relevance without text has no scores and falls back
// to book_id.
func resolveSort(raw string, hasText bool) (Sort, error) {
	raw = strings.ToLower(strings.TrimSpace(raw))
	if raw == "" {
		if hasText {
			return SortRelevance, nil
		}
		return SortBookID, nil
	}

	s, ok := sortAliases[raw]
	if !ok {
		return "", domainerrors.FieldValidation("sort", "must be one of: "+sortChoices)
	}
	if s == SortRelevance && !hasText {
		return SortBookID, nil
	}
	return s, nil
}

func resolveOrder(raw string, s Sort) (Order, error) {
	switch Order(strings.ToLower(strings.TrimSpace(raw))) {
	case "":
		if s == SortTitle || s == SortBookID {
			return Asc, nil
		}
		return Desc, nil
	case Asc:
		return Asc, nil
	case Desc:
		return Desc, nil
	default:
		return "", domainerrors.FieldValidation("order", "must be one of: asc, desc")
	}
}
