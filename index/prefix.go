package index

// Prefix answers STARTING_WITH(value) queries: every live row whose
// indexed string begins with the query value.
type Prefix struct {
	t *trie
}

// NewPrefix creates an empty prefix index.
func NewPrefix() *Prefix { return &Prefix{t: newTrie()} }

// Insert records pref under the full string key.
func (p *Prefix) Insert(key string, pref uint64) { p.t.insert([]byte(key), pref) }

// Remove deletes the exact (key, pref) entry, if present.
func (p *Prefix) Remove(key string, pref uint64) { p.t.remove([]byte(key), pref) }

// StartingWith returns every pref whose key starts with prefix.
func (p *Prefix) StartingWith(prefix string) []uint64 { return p.t.withPrefix([]byte(prefix)) }

// Len returns the total number of (key, pref) entries recorded.
func (p *Prefix) Len() int { return p.t.len() }
