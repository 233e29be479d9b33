package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"slices"

	"github.com/dgraph-io/badger/v4"
)

// Entity provides generic document storage with secondary indexes for one collection.
//
// Documents live at prefix+pk. Index entries live at
// prefix+"idx:"+name+":"+value+"\x00"+pk and hold the pk as their value.
type Entity[T any] struct {
	store   *Badger
	prefix  string
	keyFn   func(*T) string
	indexes []Index[T]
}

// Index defines a secondary index on an entity.
type Index[T any] struct {
	name   string
	keyGen func(*T) []string
}

// NewEntity creates a new Entity instance for type T. keyFn derives the primary key.
func NewEntity[T any](s *Badger, prefix string, keyFn func(*T) string) *Entity[T] {
	return &Entity[T]{
		store:   s,
		prefix:  prefix,
		keyFn:   keyFn,
		indexes: make([]Index[T], 0),
	}
}

// WithIndex adds a non-unique secondary index to the entity.
func (e *Entity[T]) WithIndex(name string, keyGen func(*T) []string) *Entity[T] {
	e.indexes = append(e.indexes, Index[T]{
		name:   name,
		keyGen: keyGen,
	})
	return e
}

func (e *Entity[T]) docKey(pk string) []byte {
	return []byte(e.prefix + pk)
}

func (e *Entity[T]) indexBase(name string) string {
	return e.prefix + indexMarker + name + ":"
}

func (e *Entity[T]) indexKey(name, value, pk string) []byte {
	key := make([]byte, 0, len(e.prefix)+len(indexMarker)+len(name)+len(value)+len(pk)+2)
	key = append(key, e.indexBase(name)...)
	key = append(key, value...)
	key = append(key, indexSep)
	key = append(key, pk...)
	return key
}

// List returns an iterator over all entities in primary key order.
func (e *Entity[T]) List(ctx context.Context) iter.Seq2[*T, error] {
	return e.listPrefix(ctx, "")
}

// listPrefix returns an iterator over entities whose primary key starts with pkPrefix.
func (e *Entity[T]) listPrefix(ctx context.Context, pkPrefix string) iter.Seq2[*T, error] {
	return func(yield func(*T, error) bool) {
		stopped := false
		err := e.store.db.View(func(txn *badger.Txn) error {
			return e.scanDocs(ctx, txn, pkPrefix, func(entity *T) (bool, error) {
				if !yield(entity, nil) {
					stopped = true
					return false, nil
				}
				return true, nil
			})
		})
		if err != nil && !stopped {
			yield(nil, err)
		}
	}
}

func (e *Entity[T]) get(txn *badger.Txn, pk string) (*T, error) {
	key := buildKey(e.prefix, pk)
	defer releaseKey(key)

	item, err := txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get %s%s: %w", e.prefix, pk, err)
	}

	var entity T
	if err := item.Value(func(val []byte) error {
		return json.Unmarshal(val, &entity)
	}); err != nil {
		return nil, fmt.Errorf("unmarshal %s%s: %w", e.prefix, pk, err)
	}
	return &entity, nil
}

func (e *Entity[T]) exists(txn *badger.Txn, pk string) (bool, error) {
	key := buildKey(e.prefix, pk)
	defer releaseKey(key)

	_, err := txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check %s%s: %w", e.prefix, pk, err)
	}
	return true, nil
}

// put writes the document and reconciles its index entries inside txn.
func (e *Entity[T]) put(txn *badger.Txn, entity *T) (bool, error) {
	pk := e.keyFn(entity)
	data, err := json.Marshal(entity)
	if err != nil {
		return false, fmt.Errorf("marshal %s%s: %w", e.prefix, pk, err)
	}

	old, err := e.get(txn, pk)
	created := errors.Is(err, ErrNotFound)
	if err != nil && !created {
		return false, err
	}

	for _, idx := range e.indexes {
		next := idx.keyGen(entity)
		if old != nil {
			for _, value := range idx.keyGen(old) {
				if slices.Contains(next, value) {
					continue
				}
				if err := txn.Delete(e.indexKey(idx.name, value, pk)); err != nil {
					return false, fmt.Errorf("delete index %s: %w", idx.name, err)
				}
			}
		}
		for _, value := range next {
			if err := txn.Set(e.indexKey(idx.name, value, pk), []byte(pk)); err != nil {
				return false, fmt.Errorf("set index %s: %w", idx.name, err)
			}
		}
	}

	if err := txn.Set(e.docKey(pk), data); err != nil {
		return false, fmt.Errorf("set %s%s: %w", e.prefix, pk, err)
	}
	return created, nil
}

// batchSet queues the document and its index entries on a write batch. With a snapshot,
// index entries of the document it replaces are deleted; without one they survive and
// readers re-check documents.
func (e *Entity[T]) batchSet(wb *badger.WriteBatch, snapshot *badger.Txn, entity *T) error {
	pk := e.keyFn(entity)
	data, err := json.Marshal(entity)
	if err != nil {
		return fmt.Errorf("marshal %s%s: %w", e.prefix, pk, err)
	}

	var old *T
	if snapshot != nil && len(e.indexes) > 0 {
		old, err = e.get(snapshot, pk)
		if err != nil && !errors.Is(err, ErrNotFound) {
			return err
		}
	}

	if err := wb.Set(e.docKey(pk), data); err != nil {
		return fmt.Errorf("batch set %s%s: %w", e.prefix, pk, err)
	}
	for _, idx := range e.indexes {
		next := idx.keyGen(entity)
		if old != nil {
			for _, value := range idx.keyGen(old) {
				if slices.Contains(next, value) {
					continue
				}
				if err := wb.Delete(e.indexKey(idx.name, value, pk)); err != nil {
					return fmt.Errorf("batch delete index %s: %w", idx.name, err)
				}
			}
		}
		for _, value := range next {
			if err := wb.Set(e.indexKey(idx.name, value, pk), []byte(pk)); err != nil {
				return fmt.Errorf("batch set index %s: %w", idx.name, err)
			}
		}
	}
	return nil
}

// scanDocs walks documents whose pk starts with pkPrefix in key order until fn returns false.
func (e *Entity[T]) scanDocs(ctx context.Context, txn *badger.Txn, pkPrefix string, fn func(*T) (bool, error)) error {
	prefix := []byte(e.prefix + pkPrefix)
	marker := []byte(e.prefix + indexMarker)

	opts := badger.DefaultIteratorOptions
	opts.Prefix = prefix
	it := txn.NewIterator(opts)
	defer it.Close()

	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		if err := ctx.Err(); err != nil {
			return err
		}
		item := it.Item()
		if bytes.HasPrefix(item.Key(), marker) {
			break
		}

		var entity T
		if err := item.Value(func(val []byte) error {
			return json.Unmarshal(val, &entity)
		}); err != nil {
			return fmt.Errorf("unmarshal %s: %w", item.Key(), err)
		}

		more, err := fn(&entity)
		if err != nil {
			return err
		}
		if !more {
			return nil
		}
	}
	return nil
}

// scanIndex calls fn with the pk of every entry of the named index whose value lies in
// [from, to] by byte order. Pass from == to for an exact match.
func (e *Entity[T]) scanIndex(ctx context.Context, txn *badger.Txn, name, from, to string, fn func(pk string) error) error {
	base := []byte(e.indexBase(name))
	upper := []byte(to)

	opts := badger.DefaultIteratorOptions
	opts.Prefix = base
	opts.PrefetchValues = false
	it := txn.NewIterator(opts)
	defer it.Close()

	for it.Seek(append(slices.Clip(base), from...)); it.ValidForPrefix(base); it.Next() {
		if err := ctx.Err(); err != nil {
			return err
		}
		item := it.Item()
		rest := item.Key()[len(base):]
		sep := bytes.IndexByte(rest, indexSep)
		if sep < 0 {
			continue
		}
		if bytes.Compare(rest[:sep], upper) > 0 {
			return nil
		}

		var pk string
		if err := item.Value(func(val []byte) error {
			pk = string(val)
			return nil
		}); err != nil {
			return fmt.Errorf("read index %s: %w", name, err)
		}
		if err := fn(pk); err != nil {
			return err
		}
	}
	return nil
}

// countIndex counts index entries holding exactly value without reading their values.
func (e *Entity[T]) countIndex(ctx context.Context, txn *badger.Txn, name, value string) (int, error) {
	prefix := append([]byte(e.indexBase(name)+value), indexSep)

	opts := badger.DefaultIteratorOptions
	opts.Prefix = prefix
	opts.PrefetchValues = false
	it := txn.NewIterator(opts)
	defer it.Close()

	n := 0
	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		n++
	}
	return n, nil
}
