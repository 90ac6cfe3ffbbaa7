// Package column implements type-coded, densely indexed column buffers:
// the dense per-column storage underneath a row table, with a
// null-presence bitmap and typed scan primitives.
package column

import (
	"strings"

	"github.com/bits-and-blooms/bitset"

	"memris/errs"
	"memris/typecode"
)

const initialCapacity = 64

// LiveCheck reports whether row is a live (non-tombstoned) row, used by
// scans to skip tombstoned rows without the column package depending on
// the row table package.
type LiveCheck func(row uint32) bool

// Column is dense, type-coded storage for one field across every row in
// a table. Element access is by row index, not by row identity; callers
// are responsible for translating identities to indices first.
type Column struct {
	typeCode typecode.Code
	nullable bool

	i64  []int64
	strs stringHeap
	bits *bitset.BitSet // packed bool values, one bit per row
	null *bitset.BitSet // null presence: bit set means "has a value"

	capacity uint32
}

// New creates a column of the given type code.
func New(tc typecode.Code, nullable bool) *Column {
	c := &Column{typeCode: tc, nullable: nullable, capacity: initialCapacity}
	switch tc {
	case typecode.Bool:
		c.bits = bitset.New(initialCapacity)
	case typecode.String, typecode.BigDec, typecode.BigInt:
		c.strs = newStringHeap(initialCapacity)
	default:
		c.i64 = make([]int64, initialCapacity)
	}
	if nullable {
		c.null = bitset.New(initialCapacity)
	}
	return c
}

// TypeCode returns the column's storage type code.
func (c *Column) TypeCode() typecode.Code { return c.typeCode }

// Nullable reports whether the column tracks a null-presence bitmap.
func (c *Column) Nullable() bool { return c.nullable }

// Capacity returns the current row capacity.
func (c *Column) Capacity() uint32 { return c.capacity }

// Resize grows the column to at least newCapacity, doubling its backing
// storage as needed. It never shrinks.
func (c *Column) Resize(newCapacity uint32) {
	if newCapacity <= c.capacity {
		return
	}
	grown := c.capacity
	if grown == 0 {
		grown = initialCapacity
	}
	for grown < newCapacity {
		grown *= 2
	}
	switch c.typeCode {
	case typecode.Bool:
		c.bits = growBitset(c.bits, grown)
	case typecode.String, typecode.BigDec, typecode.BigInt:
		c.strs.resize(grown)
	default:
		grownSlice := make([]int64, grown)
		copy(grownSlice, c.i64)
		c.i64 = grownSlice
	}
	if c.nullable {
		c.null = growBitset(c.null, grown)
	}
	c.capacity = grown
}

func growBitset(b *bitset.BitSet, n uint32) *bitset.BitSet {
	grown := bitset.New(uint(n))
	grown.InPlaceUnion(b)
	return grown
}

func (c *Column) checkRow(op string, row uint32) error {
	if row >= c.capacity {
		return errs.Newf(op, errs.Internal, "row %d out of range (capacity %d)", row, c.capacity)
	}
	return nil
}

func (c *Column) checkType(op string, want typecode.Code) error {
	if c.typeCode != want {
		return errs.Newf(op, errs.SchemaMismatch, "column is %s, asked as %s", c.typeCode, want)
	}
	return nil
}

// IsPresent reports whether row has a non-null value. Non-nullable
// columns always report true.
func (c *Column) IsPresent(row uint32) bool {
	if !c.nullable {
		return true
	}
	return c.null.Test(uint(row))
}

// SetNull marks row as null. It is a no-op on non-nullable columns; the
// stored value is left as it is.
func (c *Column) SetNull(row uint32) {
	if c.nullable {
		c.null.Clear(uint(row))
	}
}

func (c *Column) markPresent(row uint32) {
	if c.nullable {
		c.null.Set(uint(row))
	}
}

// GetInt64 reads an integer-like or temporal value (already normalized to
// its epoch/sortable form upstream where applicable).
func (c *Column) GetInt64(row uint32) (int64, error) {
	if err := c.checkRow("GetInt64", row); err != nil {
		return 0, err
	}
	if c.i64 == nil {
		return 0, errs.Newf("GetInt64", errs.SchemaMismatch, "column %s has no integer storage", c.typeCode)
	}
	return c.i64[row], nil
}

// SetInt64 writes an integer-like or temporal value.
func (c *Column) SetInt64(row uint32, v int64) error {
	if err := c.checkRow("SetInt64", row); err != nil {
		return err
	}
	if c.i64 == nil {
		return errs.Newf("SetInt64", errs.SchemaMismatch, "column %s has no integer storage", c.typeCode)
	}
	c.i64[row] = v
	c.markPresent(row)
	return nil
}

// GetBool reads a packed boolean value.
func (c *Column) GetBool(row uint32) (bool, error) {
	if err := c.checkType("GetBool", typecode.Bool); err != nil {
		return false, err
	}
	if err := c.checkRow("GetBool", row); err != nil {
		return false, err
	}
	return c.bits.Test(uint(row)), nil
}

// SetBool writes a packed boolean value.
func (c *Column) SetBool(row uint32, v bool) error {
	if err := c.checkType("SetBool", typecode.Bool); err != nil {
		return err
	}
	if err := c.checkRow("SetBool", row); err != nil {
		return err
	}
	if v {
		c.bits.Set(uint(row))
	} else {
		c.bits.Clear(uint(row))
	}
	c.markPresent(row)
	return nil
}

// GetString reads a string-backed value (string, big-decimal, big-integer).
func (c *Column) GetString(row uint32) (string, error) {
	if err := c.checkRow("GetString", row); err != nil {
		return "", err
	}
	if c.strs.heap == nil {
		return "", errs.Newf("GetString", errs.SchemaMismatch, "column %s has no string storage", c.typeCode)
	}
	return c.strs.get(row), nil
}

// SetString writes a string-backed value.
func (c *Column) SetString(row uint32, v string) error {
	if err := c.checkRow("SetString", row); err != nil {
		return err
	}
	if c.strs.heap == nil {
		return errs.Newf("SetString", errs.SchemaMismatch, "column %s has no string storage", c.typeCode)
	}
	c.strs.set(row, v)
	c.markPresent(row)
	return nil
}

// valueAt returns row's value as int64 regardless of whether it is
// backed by the i64 array or, for Bool columns, the packed bitset.
func (c *Column) valueAt(row uint32) int64 {
	if c.typeCode == typecode.Bool {
		if c.bits.Test(uint(row)) {
			return 1
		}
		return 0
	}
	return c.i64[row]
}

// ScanEquals returns, in ascending order, every live row whose int64 value
// equals want.
func (c *Column) ScanEquals(rowCount uint32, live LiveCheck, want int64) []uint32 {
	var out []uint32
	for r := uint32(0); r < rowCount; r++ {
		if !live(r) || !c.IsPresent(r) {
			continue
		}
		if c.valueAt(r) == want {
			out = append(out, r)
		}
	}
	return out
}

// ScanBetween returns every live row whose int64 value is in [lo, hi]
// inclusive. Callers must pre-normalize lo <= hi.
func (c *Column) ScanBetween(rowCount uint32, live LiveCheck, lo, hi int64) []uint32 {
	var out []uint32
	for r := uint32(0); r < rowCount; r++ {
		if !live(r) || !c.IsPresent(r) {
			continue
		}
		v := c.valueAt(r)
		if v >= lo && v <= hi {
			out = append(out, r)
		}
	}
	return out
}

// ScanIn returns every live row whose int64 value is one of values.
func (c *Column) ScanIn(rowCount uint32, live LiveCheck, values []int64) []uint32 {
	set := make(map[int64]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	var out []uint32
	for r := uint32(0); r < rowCount; r++ {
		if !live(r) || !c.IsPresent(r) {
			continue
		}
		if _, ok := set[c.valueAt(r)]; ok {
			out = append(out, r)
		}
	}
	return out
}

// ScanStringEquals returns every live row whose string value equals want,
// case-sensitive or not.
func (c *Column) ScanStringEquals(rowCount uint32, live LiveCheck, want string, ignoreCase bool) []uint32 {
	var out []uint32
	for r := uint32(0); r < rowCount; r++ {
		if !live(r) || !c.IsPresent(r) {
			continue
		}
		v := c.strs.get(r)
		if (ignoreCase && strings.EqualFold(v, want)) || (!ignoreCase && v == want) {
			out = append(out, r)
		}
	}
	return out
}

// ScanStringIn returns every live row whose string value is a member of
// values.
func (c *Column) ScanStringIn(rowCount uint32, live LiveCheck, values []string, ignoreCase bool) []uint32 {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		if ignoreCase {
			v = strings.ToLower(v)
		}
		set[v] = struct{}{}
	}
	var out []uint32
	for r := uint32(0); r < rowCount; r++ {
		if !live(r) || !c.IsPresent(r) {
			continue
		}
		v := c.strs.get(r)
		if ignoreCase {
			v = strings.ToLower(v)
		}
		if _, ok := set[v]; ok {
			out = append(out, r)
		}
	}
	return out
}

// ScanStartsWith returns every live row whose string value has prefix.
func (c *Column) ScanStartsWith(rowCount uint32, live LiveCheck, prefix string, ignoreCase bool) []uint32 {
	return c.scanPredicate(rowCount, live, func(v string) bool {
		if ignoreCase {
			return strings.HasPrefix(strings.ToLower(v), strings.ToLower(prefix))
		}
		return strings.HasPrefix(v, prefix)
	})
}

// ScanEndsWith returns every live row whose string value has suffix.
func (c *Column) ScanEndsWith(rowCount uint32, live LiveCheck, suffix string, ignoreCase bool) []uint32 {
	return c.scanPredicate(rowCount, live, func(v string) bool {
		if ignoreCase {
			return strings.HasSuffix(strings.ToLower(v), strings.ToLower(suffix))
		}
		return strings.HasSuffix(v, suffix)
	})
}

// ScanLike returns every live row whose string value matches pattern,
// where % matches zero-or-more characters and _ matches exactly one.
func (c *Column) ScanLike(rowCount uint32, live LiveCheck, pattern string, ignoreCase bool) []uint32 {
	re := compileLikePattern(pattern, ignoreCase)
	return c.scanPredicate(rowCount, live, func(v string) bool {
		return re.MatchString(v)
	})
}

func (c *Column) scanPredicate(rowCount uint32, live LiveCheck, pred func(string) bool) []uint32 {
	var out []uint32
	for r := uint32(0); r < rowCount; r++ {
		if !live(r) || !c.IsPresent(r) {
			continue
		}
		if pred(c.strs.get(r)) {
			out = append(out, r)
		}
	}
	return out
}

// ScanAllPresent returns every live row whose presence equals present
// (true: rows with a non-null value; false: null rows), used by
// IS_NULL/NOT_NULL compilation.
func (c *Column) ScanAllPresent(rowCount uint32, live LiveCheck, present bool) []uint32 {
	var out []uint32
	for r := uint32(0); r < rowCount; r++ {
		if !live(r) {
			continue
		}
		if c.IsPresent(r) == present {
			out = append(out, r)
		}
	}
	return out
}
