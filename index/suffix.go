package index

// Suffix answers ENDING_WITH(value) queries. Keys are stored reversed so
// that "ends with X" becomes "reversed key starts with reverse(X)",
// letting it reuse the same trie walk as Prefix.
type Suffix struct {
	t *trie
}

// NewSuffix creates an empty suffix index.
func NewSuffix() *Suffix { return &Suffix{t: newTrie()} }

// Insert records pref under the full string key.
func (s *Suffix) Insert(key string, pref uint64) { s.t.insert(reverseBytes([]byte(key)), pref) }

// Remove deletes the exact (key, pref) entry, if present.
func (s *Suffix) Remove(key string, pref uint64) { s.t.remove(reverseBytes([]byte(key)), pref) }

// EndingWith returns every pref whose key ends with suffix.
func (s *Suffix) EndingWith(suffix string) []uint64 { return s.t.withPrefix(reverseBytes([]byte(suffix))) }

// Len returns the total number of (key, pref) entries recorded.
func (s *Suffix) Len() int { return s.t.len() }

func reverseBytes(b []byte) []byte {
	out := make([]byte, len(b))
	for i, c := range b {
		out[len(b)-1-i] = c
	}
	return out
}
