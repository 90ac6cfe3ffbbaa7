package index

import (
	"bytes"
	"sync"

	"github.com/cespare/xxhash/v2"
)

// Hash is a point index: an encoded key (single-column or composite)
// maps to a multi-set of packed refs. Keys are bucketed by xxhash.Sum64
// and disambiguated within a bucket by exact byte comparison, so a hash
// collision never merges two distinct keys.
type Hash struct {
	mu      sync.RWMutex
	buckets map[uint64][]hashBucketEntry
}

type hashBucketEntry struct {
	key  []byte
	refs []uint64
}

// NewHash creates an empty hash index.
func NewHash() *Hash {
	return &Hash{buckets: make(map[uint64][]hashBucketEntry)}
}

func hashKey(key []byte) uint64 { return xxhash.Sum64(key) }

// Insert records pref under key.
func (h *Hash) Insert(key []byte, pref uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	hk := hashKey(key)
	bucket := h.buckets[hk]
	for i := range bucket {
		if bytes.Equal(bucket[i].key, key) {
			bucket[i].refs = append(bucket[i].refs, pref)
			return
		}
	}
	h.buckets[hk] = append(bucket, hashBucketEntry{key: append([]byte(nil), key...), refs: []uint64{pref}})
}

// Remove deletes the exact (key, pref) entry, if present.
func (h *Hash) Remove(key []byte, pref uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	hk := hashKey(key)
	bucket := h.buckets[hk]
	for i := range bucket {
		if !bytes.Equal(bucket[i].key, key) {
			continue
		}
		refs := bucket[i].refs
		for j, r := range refs {
			if r == pref {
				bucket[i].refs = append(refs[:j], refs[j+1:]...)
				break
			}
		}
		if len(bucket[i].refs) == 0 {
			h.buckets[hk] = append(bucket[:i], bucket[i+1:]...)
			if len(h.buckets[hk]) == 0 {
				delete(h.buckets, hk)
			}
		}
		return
	}
}

// Len returns the total number of (key, pref) entries recorded, summed
// across every bucket.
func (h *Hash) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for _, bucket := range h.buckets {
		for _, e := range bucket {
			n += len(e.refs)
		}
	}
	return n
}

// Query returns every pref recorded under key.
func (h *Hash) Query(key []byte) []uint64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	bucket := h.buckets[hashKey(key)]
	for _, e := range bucket {
		if bytes.Equal(e.key, key) {
			out := make([]uint64, len(e.refs))
			copy(out, e.refs)
			return out
		}
	}
	return nil
}
