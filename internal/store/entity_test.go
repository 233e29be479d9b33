package store

import (
	"context"
	"testing"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testRecord struct {
	ID    int64  `json:"id" validate:"gt=0"`
	Group string `json:"group" validate:"required"`
}

func newTestEntity(s *Badger) *Entity[testRecord] {
	return NewEntity[testRecord](s, "test:", func(r *testRecord) string {
		return idKey(r.ID)
	}).WithIndex("group", func(r *testRecord) []string {
		return []string{r.Group}
	})
}

func groupMembers(t *testing.T, s *Badger, e *Entity[testRecord], group string) []string {
	t.Helper()
	var pks []string
	err := s.db.View(func(txn *badger.Txn) error {
		return e.scanIndex(context.Background(), txn, "group", group, group, func(pk string) error {
			pks = append(pks, pk)
			return nil
		})
	})
	require.NoError(t, err)
	return pks
}

// putRecord validates and writes one record in its own transaction.
func putRecord(ctx context.Context, s *Badger, e *Entity[testRecord], r *testRecord) (bool, error) {
	if err := s.validate(r); err != nil {
		return false, err
	}
	var created bool
	err := s.update(ctx, func(txn *badger.Txn) error {
		var err error
		created, err = e.put(txn, r)
		return err
	})
	return created, err
}

func getRecord(s *Badger, e *Entity[testRecord], pk string) (*testRecord, error) {
	var r *testRecord
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		r, err = e.get(txn, pk)
		return err
	})
	return r, err
}

func TestEntity_PutAndGet(t *testing.T) {
	s := setupTestStore(t)
	e := newTestEntity(s)
	ctx := context.Background()

	created, err := putRecord(ctx, s, e, &testRecord{ID: 1, Group: "a"})
	require.NoError(t, err)
	assert.True(t, created)

	got, err := getRecord(s, e, idKey(1))
	require.NoError(t, err)
	assert.Equal(t, "a", got.Group)

	_, err = getRecord(s, e, idKey(2))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestEntity_PutMovesIndexEntries(t *testing.T) {
	s := setupTestStore(t)
	e := newTestEntity(s)
	ctx := context.Background()

	_, err := putRecord(ctx, s, e, &testRecord{ID: 1, Group: "a"})
	require.NoError(t, err)
	_, err = putRecord(ctx, s, e, &testRecord{ID: 2, Group: "a"})
	require.NoError(t, err)
	assert.Equal(t, []string{idKey(1), idKey(2)}, groupMembers(t, s, e, "a"))

	created, err := putRecord(ctx, s, e, &testRecord{ID: 1, Group: "b"})
	require.NoError(t, err)
	assert.False(t, created)

	assert.Equal(t, []string{idKey(2)}, groupMembers(t, s, e, "a"))
	assert.Equal(t, []string{idKey(1)}, groupMembers(t, s, e, "b"))
}

func TestEntity_IndexValuesDoNotBleed(t *testing.T) {
	s := setupTestStore(t)
	e := newTestEntity(s)
	ctx := context.Background()

	_, err := putRecord(ctx, s, e, &testRecord{ID: 1, Group: "orwell"})
	require.NoError(t, err)
	_, err = putRecord(ctx, s, e, &testRecord{ID: 2, Group: "orwell jr"})
	require.NoError(t, err)

	assert.Equal(t, []string{idKey(1)}, groupMembers(t, s, e, "orwell"))
}

func TestEntity_PutValidates(t *testing.T) {
	s := setupTestStore(t)
	e := newTestEntity(s)

	_, err := putRecord(context.Background(), s, e, &testRecord{ID: 1})
	require.Error(t, err)
}

func TestEntity_ListSkipsIndexEntries(t *testing.T) {
	s := setupTestStore(t)
	e := newTestEntity(s)
	ctx := context.Background()

	for i := int64(3); i >= 1; i-- {
		_, err := putRecord(ctx, s, e, &testRecord{ID: i, Group: "g"})
		require.NoError(t, err)
	}

	var ids []int64
	for r, err := range e.List(ctx) {
		require.NoError(t, err)
		ids = append(ids, r.ID)
	}
	assert.Equal(t, []int64{1, 2, 3}, ids)
}
