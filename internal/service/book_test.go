package service

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/listenupapp/goodbooks-api/internal/domain"
	domainerrors "github.com/listenupapp/goodbooks-api/internal/errors"
	"github.com/listenupapp/goodbooks-api/internal/query"
	"github.com/listenupapp/goodbooks-api/internal/store"
	"github.com/listenupapp/goodbooks-api/internal/validation"
)

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// setupTestStore opens a seeded Badger store in a temporary directory.
func setupTestStore(t *testing.T) *store.Badger {
	t.Helper()

	s, err := store.New(t.TempDir(), nil, store.Options{
		Timeout:   5 * time.Second,
		Validator: validation.New(),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	ctx := context.Background()
	require.NoError(t, s.WriteBooks(ctx, []domain.Book{
		{BookID: 1, GoodreadsBookID: 101, Title: "1984", Authors: "George Orwell", OriginalPublicationYear: 1949, AverageRating: 4.14, RatingsCount: 100},
		{BookID: 2, GoodreadsBookID: 102, Title: "Animal Farm", Authors: "George Orwell", OriginalPublicationYear: 1945, AverageRating: 4.0, RatingsCount: 200},
		{BookID: 3, GoodreadsBookID: 103, Title: "Homage to Catalonia", Authors: "George Orwell", OriginalPublicationYear: 1938, AverageRating: 3.9, RatingsCount: 50},
		{BookID: 4, GoodreadsBookID: 104, Title: "Orwell: A Life", Authors: "Bernard Crick", OriginalPublicationYear: 1980, AverageRating: 4.2, RatingsCount: 10},
		{BookID: 5, GoodreadsBookID: 105, Title: "The Hobbit", Authors: "J.R.R. Tolkien", OriginalPublicationYear: 1937, AverageRating: 4.25, RatingsCount: 300},
	}))
	require.NoError(t, s.WriteTags(ctx, []domain.Tag{
		{TagID: 1, TagName: "classics"},
		{TagID: 2, TagName: "fantasy"},
	}))
	require.NoError(t, s.WriteBookTags(ctx, []domain.BookTag{
		{GoodreadsBookID: 101, TagID: 1, Count: 50},
		{GoodreadsBookID: 105, TagID: 2, Count: 90},
		{GoodreadsBookID: 105, TagID: 1, Count: 10},
	}))
	require.NoError(t, s.WriteRatings(ctx, []domain.Rating{
		{UserID: 1, BookID: 1, Rating: 5},
		{UserID: 2, BookID: 1, Rating: 5},
		{UserID: 3, BookID: 1, Rating: 4},
		{UserID: 4, BookID: 1, Rating: 3},
	}))
	require.NoError(t, s.WriteToRead(ctx, []domain.ToRead{
		{UserID: 7, BookID: 5},
		{UserID: 7, BookID: 1},
	}))

	return s
}

// requireCode asserts err is a domain error carrying code.
func requireCode(t *testing.T, err error, code domainerrors.Code) *domainerrors.Error {
	t.Helper()

	var domainErr *domainerrors.Error
	require.ErrorAs(t, err, &domainErr)
	require.Equal(t, code, domainErr.Code, "error: %v", err)
	return domainErr
}

func TestBookService_Search(t *testing.T) {
	svc := NewBookService(setupTestStore(t), testLogger())
	ctx := context.Background()

	listing, err := svc.Search(ctx, query.Params{
		Q: "orwell", YearFrom: "1930", YearTo: "1950", Sort: "avg", Order: "desc", Page: 1, PageSize: 10,
	})
	require.NoError(t, err)

	assert.Equal(t, 3, listing.Total)
	assert.Equal(t, 1, listing.Page)
	assert.Equal(t, 10, listing.PageSize)
	require.Len(t, listing.Items, 3)

	for i, b := range listing.Items {
		assert.GreaterOrEqual(t, b.OriginalPublicationYear, int64(1930))
		assert.LessOrEqual(t, b.OriginalPublicationYear, int64(1950))
		if i > 0 {
			assert.GreaterOrEqual(t, listing.Items[i-1].AverageRating, b.AverageRating)
		}
	}
}

func TestBookService_SearchValidation(t *testing.T) {
	svc := NewBookService(setupTestStore(t), testLogger())

	_, err := svc.Search(context.Background(), query.Params{YearFrom: "1950", YearTo: "1930", Page: 1, PageSize: 10})
	domainErr := requireCode(t, err, domainerrors.CodeValidation)
	assert.Contains(t, domainErr.Details, "year_from")

	_, err = svc.Search(context.Background(), query.Params{Page: 0, PageSize: 10})
	requireCode(t, err, domainerrors.CodeValidation)
}

func TestBookService_GetBook(t *testing.T) {
	svc := NewBookService(setupTestStore(t), testLogger())
	ctx := context.Background()

	book, err := svc.GetBook(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, "The Hobbit", book.Title)

	_, err = svc.GetBook(ctx, 999)
	domainErr := requireCode(t, err, domainerrors.CodeNotFound)
	assert.Equal(t, "book 999 not found", domainErr.Message)

	_, err = svc.GetBook(ctx, 0)
	domainErr = requireCode(t, err, domainerrors.CodeNotFound)
	assert.Equal(t, "book 0 not found", domainErr.Message)
}

func TestBookService_BooksByAuthor(t *testing.T) {
	svc := NewBookService(setupTestStore(t), testLogger())
	ctx := context.Background()

	listing, err := svc.BooksByAuthor(ctx, "ORWELL", false, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, 3, listing.Total)
	require.Len(t, listing.Items, 2)
	assert.Equal(t, int64(1), listing.Items[0].BookID)

	listing, err = svc.BooksByAuthor(ctx, "j.r.r. tolkien", true, 1, 20)
	require.NoError(t, err)
	assert.Equal(t, 1, listing.Total)

	_, err = svc.BooksByAuthor(ctx, "  ", false, 1, 20)
	requireCode(t, err, domainerrors.CodeValidation)

	_, err = svc.BooksByAuthor(ctx, "orwell", false, 1, 101)
	requireCode(t, err, domainerrors.CodeValidation)
}

func TestStoreError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code domainerrors.Code
	}{
		{"not found", store.ErrNotFound, domainerrors.CodeNotFound},
		{"invalid input", store.ErrInvalidInput, domainerrors.CodeValidation},
		{"already exists", store.ErrAlreadyExists, domainerrors.CodeConflict},
		{"closed", store.ErrClosed, domainerrors.CodeStoreUnavailable},
		{"busy", store.ErrBusy.WithCause(assert.AnError), domainerrors.CodeStoreUnavailable},
		{"deadline", context.DeadlineExceeded, domainerrors.CodeStoreUnavailable},
		{"unknown", assert.AnError, domainerrors.CodeInternal},
		{"domain passthrough", domainerrors.FieldValidation("rating", "is invalid"), domainerrors.CodeValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			requireCode(t, storeError(tt.err, "book 1"), tt.code)
		})
	}

	assert.NoError(t, storeError(nil, "book 1"))
}

func TestStoreError_HidesCauseFromMessage(t *testing.T) {
	err := storeError(assert.AnError, "book 1")

	var domainErr *domainerrors.Error
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "internal error", domainErr.Message)
	assert.ErrorIs(t, err, assert.AnError)
}
