package index

import (
	"bytes"
	"sync"

	"github.com/google/btree"
)

// Range is a sorted index: an encoded key (single-column or composite)
// orders packed refs for range/prefix/between queries.
type Range struct {
	mu   sync.RWMutex
	tree *btree.BTreeG[rangeItem]
}

type rangeItem struct {
	key  []byte
	pref uint64
}

func rangeLess(a, b rangeItem) bool {
	c := bytes.Compare(a.key, b.key)
	if c != 0 {
		return c < 0
	}
	return a.pref < b.pref
}

// NewRange creates an empty range index.
func NewRange() *Range {
	return &Range{tree: btree.NewG(32, rangeLess)}
}

// Insert records pref under key.
func (r *Range) Insert(key []byte, pref uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tree.ReplaceOrInsert(rangeItem{key: append([]byte(nil), key...), pref: pref})
}

// Remove deletes the exact (key, pref) entry, if present.
func (r *Range) Remove(key []byte, pref uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tree.Delete(rangeItem{key: key, pref: pref})
}

// Query returns every pref whose key falls within [lo, hi], honoring
// inclusivity flags; a nil bound means unbounded on that side.
func (r *Range) Query(lo []byte, loInclusive bool, hi []byte, hiInclusive bool) []uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []uint64
	visit := func(it rangeItem) bool {
		if hi != nil {
			c := bytes.Compare(it.key, hi)
			if c > 0 || (c == 0 && !hiInclusive) {
				return false
			}
		}
		if lo != nil {
			c := bytes.Compare(it.key, lo)
			if c < 0 || (c == 0 && !loInclusive) {
				return true
			}
		}
		out = append(out, it.pref)
		return true
	}

	if lo == nil {
		r.tree.Ascend(visit)
	} else {
		r.tree.AscendGreaterOrEqual(rangeItem{key: lo}, visit)
	}
	return out
}

// Len returns the total number of (key, pref) entries recorded.
func (r *Range) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.tree.Len()
}

// Equal returns every pref whose key equals key exactly.
func (r *Range) Equal(key []byte) []uint64 {
	return r.Query(key, true, key, true)
}
