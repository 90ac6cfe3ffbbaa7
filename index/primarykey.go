package index

import "sync"

// PrimaryKey maps an entity identifier to its packed reference. Unlike
// secondary indices it owns exactly one pref per id and is never a
// multi-set.
type PrimaryKey struct {
	mu   sync.RWMutex
	byID map[any]uint64
}

// NewPrimaryKey creates an empty primary-key index.
func NewPrimaryKey() *PrimaryKey {
	return &PrimaryKey{byID: make(map[any]uint64)}
}

// Set records id -> pref, overwriting any previous mapping (used on
// insert and on update-in-place, where the id does not change).
func (p *PrimaryKey) Set(id any, pref uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.byID[id] = pref
}

// Get resolves id to its pref.
func (p *PrimaryKey) Get(id any) (uint64, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	pref, ok := p.byID[id]
	return pref, ok
}

// Delete removes id's mapping.
func (p *PrimaryKey) Delete(id any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.byID, id)
}

// Len returns the number of live identifiers.
func (p *PrimaryKey) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.byID)
}
