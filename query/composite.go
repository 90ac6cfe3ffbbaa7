package query

import (
	"memris/errs"
	"memris/index"
	"memris/rowtable"
	"memris/selection"
	"memris/typecode"
)

// compositeProbeResult is the outcome of attempting one composite plan
// against one AND-group.
type compositeProbeResult struct {
	selection selection.Selection
	consumed  []bool
}

// probeComposites tries every declared composite plan against group in
// turn and returns the first that applies. Conditions consumed by the
// winning plan are reflected in the returned consumed bitmap; callers
// still need to direct-execute every unconsumed position.
func probeComposites(table *rowtable.Table, plans []CompositePlan, group []Condition, args Args) (*compositeProbeResult, error) {
	for _, plan := range plans {
		switch plan.Kind {
		case CompositeHash:
			if res, ok, err := compositeHashProbe(table, plan, group, args); err != nil {
				return nil, err
			} else if ok {
				return res, nil
			}
		case CompositeRange:
			if res, ok, err := compositeRangeProbe(table, plan, group, args); err != nil {
				return nil, err
			} else if ok {
				return res, nil
			}
		}
	}
	return nil, nil
}

// eqConditionFor finds an EQ, case-sensitive condition targeting column
// within group, returning its index into group or -1.
func eqConditionFor(group []Condition, column int) int {
	for i, c := range group {
		if c.Column == column && c.Operator == EQ && !c.IgnoreCase {
			return i
		}
	}
	return -1
}

// rangeConditionFor finds a condition targeting column whose operator is
// usable by a range probe (EQ/GT/GTE/LT/LTE/BETWEEN, case-sensitive).
func rangeConditionFor(group []Condition, column int) int {
	for i, c := range group {
		if c.Column != column || c.IgnoreCase {
			continue
		}
		switch c.Operator {
		case EQ, GT, GTE, LT, LTE, BETWEEN:
			return i
		}
	}
	return -1
}

// compositeHashProbe requires an EQ condition for every column in the
// plan (spec §4.5 step 1); on any miss it declines so the caller can
// try the next plan.
func compositeHashProbe(table *rowtable.Table, plan CompositePlan, group []Condition, args Args) (*compositeProbeResult, bool, error) {
	consumed := make([]bool, len(group))
	segments := make([][]byte, len(plan.Columns))
	for i, col := range plan.Columns {
		ci := eqConditionFor(group, col)
		if ci == -1 {
			return nil, false, nil
		}
		seg, err := encodeConditionValue(group[ci], args)
		if err != nil {
			return nil, false, err
		}
		segments[i] = seg
		consumed[ci] = true
	}
	key := index.EncodeComposite(segments...)
	refs := plan.Hash.Query(key)
	return &compositeProbeResult{selection: filterLiveRefs(table, refs), consumed: consumed}, true, nil
}

// sentinel is one of the two composite-range boundary markers.
type sentinel int

const (
	negInf sentinel = iota
	posInf
)

func sentinelSegment(s sentinel) []byte {
	if s == negInf {
		return index.RangeSegmentNegInf()
	}
	return index.RangeSegmentPosInf()
}

// padded returns a full plan-length segment list: segs[0:n] verbatim,
// every position from n onward filled with fill.
func padded(segs [][]byte, n, total int, fill sentinel) [][]byte {
	out := make([][]byte, total)
	copy(out, segs[:n])
	for i := n; i < total; i++ {
		out[i] = sentinelSegment(fill)
	}
	return out
}

// compositeRangeProbe builds the longest leading equality prefix the
// group supplies, then folds in one trailing range condition per the
// operator table in spec §4.5; columns beyond the consumed positions
// are padded with -inf/+inf sentinels so the composite comparator still
// receives a full-length key on both sides of the bound.
func compositeRangeProbe(table *rowtable.Table, plan CompositePlan, group []Condition, args Args) (*compositeProbeResult, bool, error) {
	total := len(plan.Columns)
	consumed := make([]bool, len(group))
	prefix := make([][]byte, total)
	prefixLen := 0
	for ; prefixLen < total; prefixLen++ {
		ci := eqConditionFor(group, plan.Columns[prefixLen])
		if ci == -1 {
			break
		}
		seg, err := encodeConditionValue(group[ci], args)
		if err != nil {
			return nil, false, err
		}
		prefix[prefixLen] = index.RangeSegmentValue(seg)
		consumed[ci] = true
	}
	if prefixLen == 0 {
		return nil, false, nil
	}

	if prefixLen == total {
		lo := index.EncodeRangeKey(padded(prefix, prefixLen, total, negInf)...)
		hi := index.EncodeRangeKey(padded(prefix, prefixLen, total, posInf)...)
		refs := plan.Range.Query(lo, true, hi, true)
		return &compositeProbeResult{selection: filterLiveRefs(table, refs), consumed: consumed}, true, nil
	}

	rangeCol := plan.Columns[prefixLen]
	ri := rangeConditionFor(group, rangeCol)
	if ri == -1 {
		lo := index.EncodeRangeKey(padded(prefix, prefixLen, total, negInf)...)
		hi := index.EncodeRangeKey(padded(prefix, prefixLen, total, posInf)...)
		refs := plan.Range.Query(lo, true, hi, true)
		return &compositeProbeResult{selection: filterLiveRefs(table, refs), consumed: consumed}, true, nil
	}

	cond := group[ri]
	lowerVal, upperVal, hasLower, hasUpper, err := trailingBounds(cond, args)
	if err != nil {
		return nil, false, err
	}
	consumed[ri] = true
	hasTail := prefixLen+1 < total

	var loKey, hiKey []byte
	loIncl, hiIncl := true, true
	if hasLower {
		loSegs := make([][]byte, total)
		copy(loSegs, prefix[:prefixLen])
		loSegs[prefixLen] = index.RangeSegmentValue(lowerVal)
		tail := negInf
		if cond.Operator == GT {
			tail = posInf // forces exclusion of the exact boundary when a tail exists
		}
		for i := prefixLen + 1; i < total; i++ {
			loSegs[i] = sentinelSegment(tail)
		}
		loKey = index.EncodeRangeKey(loSegs...)
		if !hasTail && cond.Operator == GT {
			loIncl = false
		}
	}
	if hasUpper {
		hiSegs := make([][]byte, total)
		copy(hiSegs, prefix[:prefixLen])
		hiSegs[prefixLen] = index.RangeSegmentValue(upperVal)
		tail := posInf
		if cond.Operator == LT {
			tail = negInf // forces exclusion of the exact boundary when a tail exists
		}
		for i := prefixLen + 1; i < total; i++ {
			hiSegs[i] = sentinelSegment(tail)
		}
		hiKey = index.EncodeRangeKey(hiSegs...)
		if !hasTail && cond.Operator == LT {
			hiIncl = false
		}
	}
	refs := plan.Range.Query(loKey, loIncl, hiKey, hiIncl)
	return &compositeProbeResult{selection: filterLiveRefs(table, refs), consumed: consumed}, true, nil
}

// trailingBounds derives the (lower, upper) byte-encoded values implied
// by the trailing operator: GT/GTE set only the lower bound, LT/LTE
// only the upper, EQ and BETWEEN set both (spec §4.5's degenerate-
// BETWEEN resolution for a trailing EQ).
func trailingBounds(cond Condition, args Args) (lower, upper []byte, hasLower, hasUpper bool, err error) {
	arg := func(i int) (any, error) { return argAt("query.composite", args, i) }
	switch cond.Operator {
	case EQ:
		raw, err := arg(cond.ArgIndex)
		if err != nil {
			return nil, nil, false, false, err
		}
		v, err := encodeConditionValueRaw(cond, raw)
		if err != nil {
			return nil, nil, false, false, err
		}
		return v, v, true, true, nil
	case BETWEEN:
		a, err := arg(cond.ArgIndex)
		if err != nil {
			return nil, nil, false, false, err
		}
		b, err := arg(cond.ArgIndex + 1)
		if err != nil {
			return nil, nil, false, false, err
		}
		v1, err := encodeConditionValueRaw(cond, a)
		if err != nil {
			return nil, nil, false, false, err
		}
		v2, err := encodeConditionValueRaw(cond, b)
		if err != nil {
			return nil, nil, false, false, err
		}
		return v1, v2, true, true, nil
	case GT, GTE:
		raw, err := arg(cond.ArgIndex)
		if err != nil {
			return nil, nil, false, false, err
		}
		v, err := encodeConditionValueRaw(cond, raw)
		if err != nil {
			return nil, nil, false, false, err
		}
		return v, nil, true, false, nil
	case LT, LTE:
		raw, err := arg(cond.ArgIndex)
		if err != nil {
			return nil, nil, false, false, err
		}
		v, err := encodeConditionValueRaw(cond, raw)
		if err != nil {
			return nil, nil, false, false, err
		}
		return nil, v, false, true, nil
	default:
		return nil, nil, false, false, errs.Newf("query.composite", errs.InvalidArgument, "operator %d cannot serve a composite-range probe", cond.Operator)
	}
}

func isStringLike(tc typecode.Code) bool {
	return tc == typecode.String || tc == typecode.BigDec || tc == typecode.BigInt
}

func encodeConditionValue(cond Condition, args Args) ([]byte, error) {
	raw, err := argAt("query.composite", args, cond.ArgIndex)
	if err != nil {
		return nil, err
	}
	return encodeConditionValueRaw(cond, raw)
}

func encodeConditionValueRaw(cond Condition, raw any) ([]byte, error) {
	if isStringLike(cond.TypeCode) {
		v, err := toString("query.composite", raw)
		if err != nil {
			return nil, err
		}
		return index.EncodeString(v), nil
	}
	v, err := toInt64("query.composite", raw, cond.TypeCode)
	if err != nil {
		return nil, err
	}
	return index.EncodeInt64(v), nil
}
