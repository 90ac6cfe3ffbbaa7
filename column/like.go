package column

import (
	"regexp"
	"strings"
)

// compileLikePattern turns a SQL-style LIKE pattern (% = zero-or-more
// characters, _ = exactly one character) into a compiled regular
// expression anchored to the whole value.
func compileLikePattern(pattern string, ignoreCase bool) *regexp.Regexp {
	var b strings.Builder
	b.WriteByte('^')
	for _, r := range pattern {
		switch r {
		case '%':
			b.WriteString(".*")
		case '_':
			b.WriteString(".")
		default:
			b.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	b.WriteByte('$')
	expr := b.String()
	if ignoreCase {
		expr = "(?i)" + expr
	}
	return regexp.MustCompile(expr)
}
