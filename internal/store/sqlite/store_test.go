package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/listenupapp/goodbooks-api/internal/domain"
	"github.com/listenupapp/goodbooks-api/internal/query"
	"github.com/listenupapp/goodbooks-api/internal/store"
	"github.com/listenupapp/goodbooks-api/internal/validation"
)

// newTestStore creates a Store backed by a temporary file. The database is
// automatically closed when the test finishes.
func newTestStore(t *testing.T) *Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(dbPath, nil, Options{Validator: validation.New()})
	if err != nil {
		t.Fatalf("Open(%q): %v", dbPath, err)
	}
	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Errorf("Close: %v", err)
		}
	})
	return s
}

func seed(t *testing.T, s *Store) {
	t.Helper()
	ctx := context.Background()

	must := func(err error) {
		t.Helper()
		if err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	must(s.WriteBooks(ctx, []domain.Book{
		{BookID: 1, GoodreadsBookID: 101, Title: "1984", Authors: "George Orwell", OriginalPublicationYear: 1949, AverageRating: 4.14, RatingsCount: 100},
		{BookID: 2, GoodreadsBookID: 102, Title: "Animal Farm", Authors: "George Orwell", OriginalPublicationYear: 1945, AverageRating: 4.0, RatingsCount: 200},
		{BookID: 3, GoodreadsBookID: 103, Title: "Homage to Catalonia", Authors: "George Orwell", OriginalPublicationYear: 1938, AverageRating: 3.9, RatingsCount: 50},
		{BookID: 4, GoodreadsBookID: 104, Title: "Orwell: A Life", Authors: "Bernard Crick", OriginalPublicationYear: 1980, AverageRating: 4.2, RatingsCount: 10},
		{BookID: 5, GoodreadsBookID: 105, Title: "The Hobbit", Authors: "J.R.R. Tolkien", OriginalPublicationYear: 1937, AverageRating: 4.25, RatingsCount: 300},
		{BookID: 6, GoodreadsBookID: 106, Title: "Good Omens", Authors: "Terry Pratchett, Neil Gaiman", OriginalPublicationYear: 1990, AverageRating: 4.25, RatingsCount: 150},
	}))
	must(s.WriteTags(ctx, []domain.Tag{
		{TagID: 0, TagName: "-"},
		{TagID: 1, TagName: "classics"},
		{TagID: 2, TagName: "Fantasy"},
	}))
	must(s.WriteBookTags(ctx, []domain.BookTag{
		{GoodreadsBookID: 101, TagID: 1, Count: 50},
		{GoodreadsBookID: 102, TagID: 1, Count: 70},
		{GoodreadsBookID: 105, TagID: 2, Count: 90},
		{GoodreadsBookID: 105, TagID: 1, Count: 10},
		{GoodreadsBookID: 106, TagID: 2, Count: 40},
	}))
	must(s.WriteRatings(ctx, []domain.Rating{
		{UserID: 1, BookID: 1, Rating: 5},
		{UserID: 2, BookID: 1, Rating: 5},
		{UserID: 3, BookID: 1, Rating: 4},
		{UserID: 4, BookID: 1, Rating: 3},
	}))
	must(s.WriteToRead(ctx, []domain.ToRead{
		{UserID: 7, BookID: 5},
		{UserID: 7, BookID: 1},
		{UserID: 7, BookID: 2},
		{UserID: 8, BookID: 3},
	}))
}

func ids(books []domain.Book) []int64 {
	out := make([]int64, len(books))
	for i, b := range books {
		out[i] = b.BookID
	}
	return out
}

func equalIDs(a, b []int64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func plan(t *testing.T, p query.Params) query.Plan {
	t.Helper()
	if p.Page == 0 {
		p.Page = 1
	}
	if p.PageSize == 0 {
		p.PageSize = 20
	}
	pl, err := query.Build(p)
	if err != nil {
		t.Fatalf("Build(%+v): %v", p, err)
	}
	return pl
}

func TestOpen_RequiresValidator(t *testing.T) {
	if _, err := Open(filepath.Join(t.TempDir(), "x.db"), nil, Options{}); err == nil {
		t.Fatal("Open without validator: expected error")
	}
}

func TestOpen_Idempotent(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")
	opts := Options{Validator: validation.New()}

	s1, err := Open(dbPath, nil, opts)
	if err != nil {
		t.Fatalf("first Open: %v", err)
	}
	seed(t, s1)
	if err := s1.Close(); err != nil {
		t.Fatalf("first Close: %v", err)
	}

	s2, err := Open(dbPath, nil, opts)
	if err != nil {
		t.Fatalf("second Open: %v", err)
	}
	defer s2.Close()

	book, err := s2.GetBook(context.Background(), 2)
	if err != nil {
		t.Fatalf("GetBook after reopen: %v", err)
	}
	if book.Title != "Animal Farm" {
		t.Errorf("Title = %q, want %q", book.Title, "Animal Farm")
	}
}

func TestGetBook(t *testing.T) {
	s := newTestStore(t)
	seed(t, s)
	ctx := context.Background()

	book, err := s.GetBook(ctx, 6)
	if err != nil {
		t.Fatalf("GetBook: %v", err)
	}
	if book.Authors != "Terry Pratchett, Neil Gaiman" || book.GoodreadsBookID != 106 {
		t.Errorf("GetBook(6) = %+v", book)
	}

	if _, err := s.GetBook(ctx, 999); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("GetBook(999) error = %v, want ErrNotFound", err)
	}
}

func TestFindBooks(t *testing.T) {
	s := newTestStore(t)
	seed(t, s)
	ctx := context.Background()

	tests := []struct {
		name      string
		params    query.Params
		wantIDs   []int64
		wantTotal int
	}{
		{"all by book_id", query.Params{}, []int64{1, 2, 3, 4, 5, 6}, 6},
		{"year range", query.Params{YearFrom: "1940", YearTo: "1960"}, []int64{1, 2}, 2},
		{"min avg sorted", query.Params{MinAvg: "4.2", Sort: "avg"}, []int64{5, 6, 4}, 3},
		{"tag case-insensitive", query.Params{Tag: "CLASSICS"}, []int64{1, 2, 5}, 3},
		{"tag and year", query.Params{Tag: "fantasy", YearFrom: "1980"}, []int64{6}, 1},
		{"unknown tag", query.Params{Tag: "horror"}, []int64{}, 0},
		{"title asc", query.Params{Sort: "title"}, []int64{1, 2, 6, 3, 4, 5}, 6},
		{"ratings_count desc", query.Params{Sort: "ratings_count"}, []int64{5, 2, 6, 1, 3, 4}, 6},
		{"year asc", query.Params{Sort: "year", Order: "asc"}, []int64{5, 3, 2, 1, 4, 6}, 6},
		{"text by author", query.Params{Q: "tolkien"}, []int64{5}, 1},
		{"text no match", query.Params{Q: "zzzz"}, []int64{}, 0},
		{"text with filter", query.Params{Q: "orwell", YearFrom: "1946"}, []int64{4, 1}, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := s.FindBooks(ctx, plan(t, tt.params))
			if err != nil {
				t.Fatalf("FindBooks: %v", err)
			}
			if res.Total != tt.wantTotal {
				t.Errorf("Total = %d, want %d", res.Total, tt.wantTotal)
			}
			if got := ids(res.Items); !equalIDs(got, tt.wantIDs) {
				t.Errorf("ids = %v, want %v", got, tt.wantIDs)
			}
		})
	}
}

func TestFindBooks_TitleOutranksAuthor(t *testing.T) {
	s := newTestStore(t)
	seed(t, s)

	res, err := s.FindBooks(context.Background(), plan(t, query.Params{Q: "orwell"}))
	if err != nil {
		t.Fatalf("FindBooks: %v", err)
	}
	if res.Total != 4 {
		t.Fatalf("Total = %d, want 4", res.Total)
	}
	if res.Items[0].BookID != 4 {
		t.Errorf("first hit = %d, want 4 (title match)", res.Items[0].BookID)
	}
}

func TestFindBooks_PagesDoNotOverlap(t *testing.T) {
	s := newTestStore(t)
	seed(t, s)
	ctx := context.Background()

	seen := map[int64]bool{}
	for page := 1; page <= 3; page++ {
		res, err := s.FindBooks(ctx, plan(t, query.Params{Sort: "avg", Page: page, PageSize: 2}))
		if err != nil {
			t.Fatalf("page %d: %v", page, err)
		}
		if res.Total != 6 {
			t.Errorf("page %d Total = %d, want 6", page, res.Total)
		}
		for _, b := range res.Items {
			if seen[b.BookID] {
				t.Errorf("book %d appears on more than one page", b.BookID)
			}
			seen[b.BookID] = true
		}
	}
	if len(seen) != 6 {
		t.Errorf("saw %d books across pages, want 6", len(seen))
	}
}

func TestBooksByAuthor(t *testing.T) {
	s := newTestStore(t)
	seed(t, s)
	ctx := context.Background()
	page, _ := query.NewPage(1, 20)

	res, err := s.BooksByAuthor(ctx, "orwell", false, page)
	if err != nil {
		t.Fatalf("BooksByAuthor: %v", err)
	}
	if got := ids(res.Items); !equalIDs(got, []int64{1, 2, 3}) || res.Total != 3 {
		t.Errorf("substring match = %v (total %d)", got, res.Total)
	}

	res, err = s.BooksByAuthor(ctx, "neil gaiman", true, page)
	if err != nil {
		t.Fatalf("BooksByAuthor exact: %v", err)
	}
	if got := ids(res.Items); !equalIDs(got, []int64{6}) {
		t.Errorf("exact match = %v, want [6]", got)
	}

	res, err = s.BooksByAuthor(ctx, "orwell", true, page)
	if err != nil {
		t.Fatalf("BooksByAuthor exact partial: %v", err)
	}
	if res.Total != 0 {
		t.Errorf("exact partial name matched %v", ids(res.Items))
	}
}

func TestTagsAndBookTags(t *testing.T) {
	s := newTestStore(t)
	seed(t, s)
	ctx := context.Background()
	page, _ := query.NewPage(1, 20)

	tags, err := s.ListTags(ctx, page)
	if err != nil {
		t.Fatalf("ListTags: %v", err)
	}
	want := []domain.TagCount{
		{TagID: 0, TagName: "-", BookCount: 0},
		{TagID: 1, TagName: "classics", BookCount: 3},
		{TagID: 2, TagName: "Fantasy", BookCount: 2},
	}
	if tags.Total != 3 || len(tags.Items) != len(want) {
		t.Fatalf("ListTags = %+v", tags)
	}
	for i := range want {
		if tags.Items[i] != want[i] {
			t.Errorf("tag %d = %+v, want %+v", i, tags.Items[i], want[i])
		}
	}

	bt, err := s.BookTags(ctx, 5, page)
	if err != nil {
		t.Fatalf("BookTags: %v", err)
	}
	if bt.Total != 2 || bt.Items[0].TagName != "Fantasy" || bt.Items[1].TagName != "classics" {
		t.Errorf("BookTags(5) = %+v", bt)
	}

	if _, err := s.BookTags(ctx, 999, page); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("BookTags(999) error = %v, want ErrNotFound", err)
	}

	var n int
	for tag, err := range s.Tags(ctx) {
		if err != nil {
			t.Fatalf("Tags: %v", err)
		}
		if tag.TagID != int64(n) {
			t.Errorf("Tags out of order: got %d at %d", tag.TagID, n)
		}
		n++
	}
	if n != 3 {
		t.Errorf("Tags yielded %d, want 3", n)
	}
}

func TestToReadBooks(t *testing.T) {
	s := newTestStore(t)
	seed(t, s)
	ctx := context.Background()

	page, _ := query.NewPage(1, 2)
	res, err := s.ToReadBooks(ctx, 7, page)
	if err != nil {
		t.Fatalf("ToReadBooks: %v", err)
	}
	if res.Total != 3 || !equalIDs(ids(res.Items), []int64{1, 2}) {
		t.Errorf("ToReadBooks(7) = %v (total %d)", ids(res.Items), res.Total)
	}

	empty, err := s.ToReadBooks(ctx, 99, page)
	if err != nil {
		t.Fatalf("ToReadBooks(99): %v", err)
	}
	if empty.Total != 0 || empty.Items == nil {
		t.Errorf("ToReadBooks(99) = %+v, want empty non-nil items", empty)
	}
}

func TestRatings(t *testing.T) {
	s := newTestStore(t)
	seed(t, s)
	ctx := context.Background()

	h, err := s.RatingHistogram(ctx, 1)
	if err != nil {
		t.Fatalf("RatingHistogram: %v", err)
	}
	if h[5] != 2 || h[4] != 1 || h[3] != 1 || len(h) != 3 {
		t.Errorf("histogram = %v", h)
	}

	created, err := s.UpsertRating(ctx, domain.Rating{UserID: 9, BookID: 1, Rating: 1})
	if err != nil || !created {
		t.Fatalf("UpsertRating new = (%v, %v), want (true, nil)", created, err)
	}
	created, err = s.UpsertRating(ctx, domain.Rating{UserID: 9, BookID: 1, Rating: 2})
	if err != nil || created {
		t.Fatalf("UpsertRating replace = (%v, %v), want (false, nil)", created, err)
	}

	h, _ = s.RatingHistogram(ctx, 1)
	if h[1] != 0 || h[2] != 1 {
		t.Errorf("histogram after replace = %v", h)
	}

	if _, err := s.UpsertRating(ctx, domain.Rating{UserID: 9, BookID: 999, Rating: 2}); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("UpsertRating missing book error = %v, want ErrNotFound", err)
	}
	if _, err := s.UpsertRating(ctx, domain.Rating{UserID: 9, BookID: 1, Rating: 0}); err == nil {
		t.Error("UpsertRating with 0 stars: expected validation error")
	}
	if _, err := s.RatingHistogram(ctx, 999); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("RatingHistogram(999) error = %v, want ErrNotFound", err)
	}
}

func TestUpsertRating_Concurrent(t *testing.T) {
	s := newTestStore(t)
	seed(t, s)
	ctx := context.Background()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		created int
	)
	for i := range 8 {
		wg.Add(1)
		go func(stars int64) {
			defer wg.Done()
			ok, err := s.UpsertRating(ctx, domain.Rating{UserID: 50, BookID: 2, Rating: stars})
			if err != nil {
				t.Errorf("UpsertRating: %v", err)
				return
			}
			if ok {
				mu.Lock()
				created++
				mu.Unlock()
			}
		}(int64(i%5 + 1))
	}
	wg.Wait()

	if created != 1 {
		t.Errorf("created = %d, want exactly 1", created)
	}
	h, err := s.RatingHistogram(ctx, 2)
	if err != nil {
		t.Fatalf("RatingHistogram: %v", err)
	}
	var total int64
	for _, n := range h {
		total += n
	}
	if total != 1 {
		t.Errorf("book 2 has %d ratings, want 1", total)
	}
}

func TestReset(t *testing.T) {
	s := newTestStore(t)
	seed(t, s)
	ctx := context.Background()

	if err := s.Reset(ctx, store.CollectionRatings); err != nil {
		t.Fatalf("Reset ratings: %v", err)
	}
	h, err := s.RatingHistogram(ctx, 1)
	if err != nil || len(h) != 0 {
		t.Errorf("histogram after reset = (%v, %v)", h, err)
	}

	if err := s.Reset(ctx); err != nil {
		t.Fatalf("Reset all: %v", err)
	}
	if _, err := s.GetBook(ctx, 1); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("GetBook after reset error = %v, want ErrNotFound", err)
	}

	if err := s.Reset(ctx, store.Collection("shelves")); err == nil {
		t.Error("Reset unknown collection: expected error")
	}
}

func TestResetCascadesToDependents(t *testing.T) {
	s := newTestStore(t)
	seed(t, s)
	ctx := context.Background()
	page := query.Page{Number: 1, Size: 20}

	if err := s.Reset(ctx, store.CollectionBooks); err != nil {
		t.Fatalf("Reset books: %v", err)
	}
	if err := s.WriteBooks(ctx, []domain.Book{
		{BookID: 1, GoodreadsBookID: 101, Title: "1984", Authors: "George Orwell"},
		{BookID: 5, GoodreadsBookID: 105, Title: "The Hobbit", Authors: "J.R.R. Tolkien"},
	}); err != nil {
		t.Fatalf("WriteBooks: %v", err)
	}

	h, err := s.RatingHistogram(ctx, 1)
	if err != nil || len(h) != 0 {
		t.Errorf("histogram after books reset = (%v, %v), want empty", h, err)
	}
	toRead, err := s.ToReadBooks(ctx, 7, page)
	if err != nil {
		t.Fatalf("ToReadBooks: %v", err)
	}
	if toRead.Total != 0 || len(toRead.Items) != 0 {
		t.Errorf("to-read after books reset = %d/%v, want empty", toRead.Total, toRead.Items)
	}

	tags, err := s.BookTags(ctx, 5, page)
	if err != nil {
		t.Fatalf("BookTags: %v", err)
	}
	if tags.Total != 2 {
		t.Errorf("book tags after books reset = %d, want 2", tags.Total)
	}

	if err := s.Reset(ctx, store.CollectionTags); err != nil {
		t.Fatalf("Reset tags: %v", err)
	}
	tags, err = s.BookTags(ctx, 5, page)
	if err != nil {
		t.Fatalf("BookTags: %v", err)
	}
	if tags.Total != 0 || len(tags.Items) != 0 {
		t.Errorf("book tags after tags reset = %d/%v, want empty", tags.Total, tags.Items)
	}
}

func TestWriteRejectsInvalidRecords(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	err := s.WriteBooks(ctx, []domain.Book{
		{BookID: 1, GoodreadsBookID: 1, Title: "Valid", Authors: "A"},
		{BookID: 2, GoodreadsBookID: 2, Authors: "No Title"},
	})
	if err == nil {
		t.Fatal("WriteBooks with invalid record: expected error")
	}
	if _, err := s.GetBook(ctx, 1); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("valid record of rejected batch was written: %v", err)
	}
}
