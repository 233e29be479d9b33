package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/listenupapp/goodbooks-api/internal/domain"
	"github.com/listenupapp/goodbooks-api/internal/query"
)

func TestListTags(t *testing.T) {
	s := setupTestStore(t)
	seedStore(t, s)
	ctx := context.Background()

	res, err := s.ListTags(ctx, query.Page{Number: 1, Size: 2})
	require.NoError(t, err)
	assert.Equal(t, 3, res.Total)
	assert.Equal(t, []domain.TagCount{
		{TagID: 0, TagName: "-", BookCount: 0},
		{TagID: 1, TagName: "classics", BookCount: 3},
	}, res.Items)

	res, err = s.ListTags(ctx, query.Page{Number: 2, Size: 2})
	require.NoError(t, err)
	assert.Equal(t, []domain.TagCount{{TagID: 2, TagName: "Fantasy", BookCount: 2}}, res.Items)

	res, err = s.ListTags(ctx, query.Page{Number: 3, Size: 2})
	require.NoError(t, err)
	assert.Empty(t, res.Items)
	assert.Equal(t, 3, res.Total)
}

func TestBookTags(t *testing.T) {
	s := setupTestStore(t)
	seedStore(t, s)
	ctx := context.Background()

	res, err := s.BookTags(ctx, 5, query.Page{Number: 1, Size: 20})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Total)
	assert.Equal(t, []domain.BookTagView{
		{TagID: 2, TagName: "Fantasy", Count: 90},
		{TagID: 1, TagName: "classics", Count: 10},
	}, res.Items)

	res, err = s.BookTags(ctx, 3, query.Page{Number: 1, Size: 20})
	require.NoError(t, err)
	assert.Empty(t, res.Items)

	_, err = s.BookTags(ctx, 999, query.Page{Number: 1, Size: 20})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestTags_Iterator(t *testing.T) {
	s := setupTestStore(t)
	seedStore(t, s)

	var names []string
	for tag, err := range s.Tags(context.Background()) {
		require.NoError(t, err)
		names = append(names, tag.TagName)
	}
	assert.Equal(t, []string{"-", "classics", "Fantasy"}, names)
}

func TestToReadBooks(t *testing.T) {
	s := setupTestStore(t)
	seedStore(t, s)
	ctx := context.Background()

	res, err := s.ToReadBooks(ctx, 7, query.Page{Number: 1, Size: 2})
	require.NoError(t, err)
	assert.Equal(t, 3, res.Total)
	assert.Equal(t, []int64{1, 2}, bookIDs(res.Items))

	res, err = s.ToReadBooks(ctx, 7, query.Page{Number: 2, Size: 2})
	require.NoError(t, err)
	assert.Equal(t, []int64{5}, bookIDs(res.Items))

	res, err = s.ToReadBooks(ctx, 1234, query.Page{Number: 1, Size: 20})
	require.NoError(t, err)
	assert.Zero(t, res.Total)
	assert.Empty(t, res.Items)
}
