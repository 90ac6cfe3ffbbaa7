package query

import (
	"memris/typecode"
)

// ToColumnInt64 normalizes v into the int64 form a column of type code
// tc stores (sortable-encoded for floats, epoch for temporals, widened
// otherwise). Exported so the write path (arena) stores exactly what the
// read path (condition compiler) expects to compare against.
func ToColumnInt64(tc typecode.Code, v any) (int64, error) {
	return toInt64("query.ToColumnInt64", v, tc)
}
