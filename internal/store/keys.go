package store

import (
	"fmt"
	"math"
	"sync"
)

// Key prefixes, one per collection.
const (
	bookPrefix    = "book:"
	ratingPrefix  = "rating:"
	tagPrefix     = "tag:"
	bookTagPrefix = "booktag:"
	toReadPrefix  = "toread:"
)

// indexMarker separates secondary index entries from documents under a collection prefix.
// Documents start with a digit, so all of them sort before the index entries.
const indexMarker = "idx:"

// indexSep ends the value segment of an index key. Folded text never contains NUL,
// so a value can never be confused with a prefix of a longer value.
const indexSep = '\x00'

// keyPool provides reusable byte slices for building lookup keys.
// Keys handed to txn.Set must not come from the pool: badger keeps them until commit.
var keyPool = sync.Pool{
	New: func() any {
		return make([]byte, 0, 128)
	},
}

// buildKey constructs a database key from prefix and suffix using a pooled buffer.
// Callers MUST call releaseKey when done with the key.
func buildKey(prefix, suffix string) []byte {
	buf, _ := keyPool.Get().([]byte)
	buf = buf[:0]
	buf = append(buf, prefix...)
	buf = append(buf, suffix...)
	return buf
}

// releaseKey returns a key buffer to the pool for reuse.
func releaseKey(key []byte) {
	if cap(key) <= 512 {
		keyPool.Put(key[:0])
	}
}

// idKey renders a non-negative id so that lexical order equals numeric order.
func idKey(id int64) string {
	return fmt.Sprintf("%020d", id)
}

// pairKey renders a compound (a, b) primary key ordered by a, then b.
func pairKey(a, b int64) string {
	return idKey(a) + ":" + idKey(b)
}

// sortableInt encodes v as fixed-width hex whose byte order matches signed numeric order.
func sortableInt(v int64) string {
	return fmt.Sprintf("%016x", uint64(v)^(1<<63)) //nolint:gosec // bit reinterpretation is intended
}

// sortableFloat encodes f as fixed-width hex whose byte order matches numeric order.
func sortableFloat(f float64) string {
	bits := math.Float64bits(f)
	if bits&(1<<63) == 0 {
		bits ^= 1 << 63
	} else {
		bits = ^bits
	}
	return fmt.Sprintf("%016x", bits)
}
