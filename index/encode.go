package index

import "encoding/binary"

// EncodeInt64 produces an order-preserving byte encoding of a signed
// 64-bit integer: offsetting the domain by flipping the sign bit makes
// byte-lexicographic comparison agree with signed integer comparison.
// Sortable-encoded floats (already reduced to int32/int64 upstream) use
// this same encoding.
func EncodeInt64(v int64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, uint64(v)^signBit64)
	return buf
}

// EncodeInt32 is EncodeInt64 narrowed to 32 bits.
func EncodeInt32(v int32) []byte {
	buf := make([]byte, 4)
	binary.BigEndian.PutUint32(buf, uint32(v)^signBit32)
	return buf
}

// EncodeBool encodes a boolean as a single ordered byte.
func EncodeBool(v bool) []byte {
	if v {
		return []byte{1}
	}
	return []byte{0}
}

// EncodeString encodes a string as its raw bytes; byte-lexicographic
// comparison approximates code-point order for the common case.
func EncodeString(v string) []byte {
	return []byte(v)
}

const (
	signBit64 = uint64(1) << 63
	signBit32 = uint32(1) << 31
)

// EncodeComposite concatenates already-encoded column segments into a
// single composite key, length-prefixing each segment so that
// concatenation never introduces ambiguity between, say, ("ab","z") and
// ("a","bz").
func EncodeComposite(segments ...[]byte) []byte {
	out := make([]byte, 0, 4*len(segments)+totalLen(segments))
	var lenBuf [4]byte
	for _, seg := range segments {
		binary.BigEndian.PutUint32(lenBuf[:], uint32(len(seg)))
		out = append(out, lenBuf[:]...)
		out = append(out, seg...)
	}
	return out
}

func totalLen(segments [][]byte) int {
	n := 0
	for _, s := range segments {
		n += len(s)
	}
	return n
}

// Composite-range keys need sentinel columns (-infinity/+infinity) that
// sort below/above every real value regardless of that value's own
// length, which a plain length-prefixed segment cannot express (a short
// real segment can still outsort a long one once their length prefixes
// differ). Each segment below starts with a 1-byte kind marker that
// orders neg-inf < value < pos-inf first. Two value segments then compare
// by their 4-byte length prefix and only after that by the value's own
// bytes, so fixed-width encodings (EncodeInt64) order by value, while
// strings of different lengths order shorter-first.
const (
	rangeSegNegInf byte = 0
	rangeSegValue  byte = 1
	rangeSegPosInf byte = 2
)

// RangeSegmentValue wraps an already-encoded single-column value (from
// EncodeInt64/EncodeInt32/EncodeBool/EncodeString) for use inside a
// composite-range key.
func RangeSegmentValue(v []byte) []byte {
	buf := make([]byte, 1+4+len(v))
	buf[0] = rangeSegValue
	binary.BigEndian.PutUint32(buf[1:5], uint32(len(v)))
	copy(buf[5:], v)
	return buf
}

// RangeSegmentNegInf sorts below every RangeSegmentValue segment.
func RangeSegmentNegInf() []byte { return []byte{rangeSegNegInf} }

// RangeSegmentPosInf sorts above every RangeSegmentValue segment.
func RangeSegmentPosInf() []byte { return []byte{rangeSegPosInf} }

// EncodeRangeKey concatenates already-built range segments into one
// composite-range key; segment boundaries never need external framing
// because each segment is self-delimiting (kind byte, plus a length
// prefix for value segments).
func EncodeRangeKey(segments ...[]byte) []byte {
	out := make([]byte, 0, totalLen(segments))
	for _, s := range segments {
		out = append(out, s...)
	}
	return out
}
