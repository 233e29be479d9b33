package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/listenupapp/goodbooks-api/internal/domain"
	domainerrors "github.com/listenupapp/goodbooks-api/internal/errors"
)

func TestTagService_ListTags(t *testing.T) {
	svc := NewTagService(setupTestStore(t), testLogger())

	listing, err := svc.ListTags(context.Background(), 1, 20)
	require.NoError(t, err)
	assert.Equal(t, 2, listing.Total)
	assert.Equal(t, []domain.TagCount{
		{TagID: 1, TagName: "classics", BookCount: 2},
		{TagID: 2, TagName: "fantasy", BookCount: 1},
	}, listing.Items)

	_, err = svc.ListTags(context.Background(), 0, 20)
	requireCode(t, err, domainerrors.CodeValidation)
}

func TestTagService_BookTags(t *testing.T) {
	svc := NewTagService(setupTestStore(t), testLogger())
	ctx := context.Background()

	listing, err := svc.BookTags(ctx, 5, 1, 20)
	require.NoError(t, err)
	assert.Equal(t, 2, listing.Total)
	assert.Equal(t, []domain.BookTagView{
		{TagID: 2, TagName: "fantasy", Count: 90},
		{TagID: 1, TagName: "classics", Count: 10},
	}, listing.Items)

	// A book without tags has an empty list.
	listing, err = svc.BookTags(ctx, 3, 1, 20)
	require.NoError(t, err)
	assert.Equal(t, 0, listing.Total)
	assert.NotNil(t, listing.Items)

	_, err = svc.BookTags(ctx, 999, 1, 20)
	requireCode(t, err, domainerrors.CodeNotFound)
}

func TestReadingListService_ToRead(t *testing.T) {
	svc := NewReadingListService(setupTestStore(t), testLogger())
	ctx := context.Background()

	listing, err := svc.ToRead(ctx, 7, 1, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, listing.Total)
	require.Len(t, listing.Items, 1)
	assert.Equal(t, int64(1), listing.Items[0].BookID)

	listing, err = svc.ToRead(ctx, 7, 2, 1)
	require.NoError(t, err)
	require.Len(t, listing.Items, 1)
	assert.Equal(t, int64(5), listing.Items[0].BookID)

	listing, err = svc.ToRead(ctx, 42, 1, 20)
	require.NoError(t, err)
	assert.Equal(t, 0, listing.Total)
	assert.Empty(t, listing.Items)

	_, err = svc.ToRead(ctx, 0, 1, 20)
	requireCode(t, err, domainerrors.CodeValidation)
}
