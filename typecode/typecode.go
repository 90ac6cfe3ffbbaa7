// Package typecode names the storage representation of a column and
// provides the sortable integer encodings used so integer comparison
// agrees with IEEE float order for non-NaN values.
package typecode

import "math"

// Code enumerates the storage representation of a column.
type Code string

const (
	Int8      Code = "i8"
	Int16     Code = "i16"
	Int32     Code = "i32"
	Int64     Code = "i64"
	Float32   Code = "f32"
	Float64   Code = "f64"
	Bool      Code = "bool"
	Char      Code = "char"
	String    Code = "string"
	BigDec    Code = "big-decimal"
	BigInt    Code = "big-integer"
	Instant   Code = "instant"
	Date      Code = "date"
	DateTime  Code = "datetime"
	LocalDate Code = "localdate"
)

// Numeric reports whether c is stored as a fixed-width number (the sortable
// float encodings count as numeric; decimals/big-integers are stored as
// strings and do not).
func (c Code) Numeric() bool {
	switch c {
	case Int8, Int16, Int32, Int64, Float32, Float64, Instant, Date, DateTime, LocalDate:
		return true
	default:
		return false
	}
}

// Temporal reports whether c normalizes through an epoch integer.
func (c Code) Temporal() bool {
	switch c {
	case Instant, Date, DateTime, LocalDate:
		return true
	default:
		return false
	}
}

// FloatToSortable maps a float32 to an int32 such that integer comparison
// matches IEEE order for all non-NaN values. The IEEE bit pattern of any
// non-negative float, reinterpreted as int32, is already order-preserving.
// A negative float's bit pattern keeps its sign bit but has its magnitude
// bits in increasing order for decreasing (more negative) values, so every
// bit except the sign bit is flipped to reverse that order while staying
// in the negative half of the int32 range.
func FloatToSortable(f float32) int32 {
	bits := int32(math.Float32bits(f))
	if bits < 0 {
		return bits ^ math.MaxInt32
	}
	return bits
}

// SortableToFloat is the inverse of FloatToSortable.
func SortableToFloat(s int32) float32 {
	if s < 0 {
		return math.Float32frombits(uint32(s ^ math.MaxInt32))
	}
	return math.Float32frombits(uint32(s))
}

// DoubleToSortable is FloatToSortable for float64/int64.
func DoubleToSortable(f float64) int64 {
	bits := int64(math.Float64bits(f))
	if bits < 0 {
		return bits ^ math.MaxInt64
	}
	return bits
}

// SortableToDouble is the inverse of DoubleToSortable.
func SortableToDouble(s int64) float64 {
	if s < 0 {
		return math.Float64frombits(uint64(s ^ math.MaxInt64))
	}
	return math.Float64frombits(uint64(s))
}
