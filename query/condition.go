package query

import (
	"memris/errs"
	"memris/index"
	"memris/rowtable"
	"memris/selection"
	"memris/typecode"
)

// DirectExecutor is a compiled function that produces a selection for
// exactly one condition.
type DirectExecutor func(table *rowtable.Table, args Args) (selection.Selection, error)

// compileCondition selects a specialized branch per (operator, type
// code), consulting colIdx for a matching single-column index per the
// table in spec §4.4 (EQ->hash, GT/GTE/LT/LTE/BETWEEN->range,
// STARTING_WITH->prefix, ENDING_WITH->suffix) and falling back to a
// column scan when no such index exists or the operator/case
// combination cannot use one.
func compileCondition(cond Condition, colIdx ColumnIndices) DirectExecutor {
	switch cond.Operator {
	case EQ:
		if cond.TypeCode == typecode.String || cond.TypeCode == typecode.BigDec || cond.TypeCode == typecode.BigInt {
			return compileStringEquals(cond, colIdx)
		}
		return compileNumericEquals(cond, colIdx)
	case NE:
		return compileNegated(cond, compileCondition(withOperator(cond, EQ), colIdx))
	case GT, GTE, LT, LTE, BETWEEN:
		return compileRange(cond, colIdx)
	case IN:
		return compileIn(cond, colIdx)
	case NOT_IN:
		return compileNegated(cond, compileIn(withOperator(cond, IN), colIdx))
	case STARTING_WITH:
		return compileStartingWith(cond, colIdx)
	case ENDING_WITH:
		return compileEndingWith(cond, colIdx)
	case NOT_STARTING_WITH:
		return compileNegated(cond, compileCondition(withOperator(cond, STARTING_WITH), colIdx))
	case NOT_ENDING_WITH:
		return compileNegated(cond, compileCondition(withOperator(cond, ENDING_WITH), colIdx))
	case LIKE:
		return compileLike(cond)
	case IS_NULL:
		return compileNullCheck(cond, false)
	case NOT_NULL:
		return compileNullCheck(cond, true)
	default:
		return compileGenericFallback(cond)
	}
}

func withOperator(cond Condition, op Operator) Condition {
	cond.Operator = op
	return cond
}

func compileNegated(cond Condition, positive DirectExecutor) DirectExecutor {
	return func(table *rowtable.Table, args Args) (selection.Selection, error) {
		all := scanAllSelection(table)
		pos, err := positive(table, args)
		if err != nil {
			return selection.Empty, err
		}
		return selection.Subtract(all, pos), nil
	}
}

func scanAllSelection(table *rowtable.Table) selection.Selection {
	return selection.FromSortedRefs(packRows(table, table.ScanAll()))
}

func packRows(table *rowtable.Table, rows []uint32) []uint64 {
	return selection.FromScanIndices(rows, func(row uint32) (uint32, bool) {
		gen, err := table.RowGeneration(row)
		return gen, err == nil
	}).Refs()
}

func compileNumericEquals(cond Condition, colIdx ColumnIndices) DirectExecutor {
	return func(table *rowtable.Table, args Args) (selection.Selection, error) {
		raw, err := argAt("query.EQ", args, cond.ArgIndex)
		if err != nil {
			return selection.Empty, err
		}
		v, err := toInt64("query.EQ", raw, cond.TypeCode)
		if err != nil {
			return selection.Empty, err
		}
		if colIdx.Hash != nil {
			refs := colIdx.Hash.Query(index.EncodeInt64(v))
			return filterLiveRefs(table, refs), nil
		}
		col := table.Column(cond.Column)
		rows := col.ScanEquals(table.AllocatedCount(), table.IsLiveRow, v)
		return selection.FromSortedRefs(packRows(table, rows)), nil
	}
}

func compileStringEquals(cond Condition, colIdx ColumnIndices) DirectExecutor {
	return func(table *rowtable.Table, args Args) (selection.Selection, error) {
		raw, err := argAt("query.EQ", args, cond.ArgIndex)
		if err != nil {
			return selection.Empty, err
		}
		v, err := toString("query.EQ", raw)
		if err != nil {
			return selection.Empty, err
		}
		if !cond.IgnoreCase && colIdx.Hash != nil {
			refs := colIdx.Hash.Query(index.EncodeString(v))
			return filterLiveRefs(table, refs), nil
		}
		col := table.Column(cond.Column)
		rows := col.ScanStringEquals(table.AllocatedCount(), table.IsLiveRow, v, cond.IgnoreCase)
		return selection.FromSortedRefs(packRows(table, rows)), nil
	}
}

func compileRange(cond Condition, colIdx ColumnIndices) DirectExecutor {
	return func(table *rowtable.Table, args Args) (selection.Selection, error) {
		lo, hi, err := rangeBoundsFromArgs(cond, args)
		if err != nil {
			return selection.Empty, err
		}
		if colIdx.Range != nil {
			key := func(v int64) []byte { return index.EncodeInt64(v) }
			var refs []uint64
			switch cond.Operator {
			case GT:
				refs = colIdx.Range.Query(key(lo), false, nil, false)
			case GTE:
				refs = colIdx.Range.Query(key(lo), true, nil, false)
			case LT:
				refs = colIdx.Range.Query(nil, false, key(hi), false)
			case LTE:
				refs = colIdx.Range.Query(nil, false, key(hi), true)
			case BETWEEN:
				refs = colIdx.Range.Query(key(lo), true, key(hi), true)
			}
			return filterLiveRefs(table, refs), nil
		}
		col := table.Column(cond.Column)
		rows := col.ScanBetween(table.AllocatedCount(), table.IsLiveRow, lo, hi)
		return selection.FromSortedRefs(packRows(table, rows)), nil
	}
}

// rangeBoundsFromArgs normalizes a single comparison/BETWEEN condition
// into an inclusive [lo, hi] pair over int64 sentinels, since column
// scans only expose an inclusive-between primitive; GT/LT are
// approximated by nudging the open bound by one unit, which is exact
// for every integer-like and sortable-encoded-float type code (the
// sortable encoding preserves adjacency).
func rangeBoundsFromArgs(cond Condition, args Args) (lo, hi int64, err error) {
	switch cond.Operator {
	case BETWEEN:
		a, err := argAt("query.BETWEEN", args, cond.ArgIndex)
		if err != nil {
			return 0, 0, err
		}
		b, err := argAt("query.BETWEEN", args, cond.ArgIndex+1)
		if err != nil {
			return 0, 0, err
		}
		v1, err := toInt64("query.BETWEEN", a, cond.TypeCode)
		if err != nil {
			return 0, 0, err
		}
		v2, err := toInt64("query.BETWEEN", b, cond.TypeCode)
		if err != nil {
			return 0, 0, err
		}
		if v1 > v2 {
			return 0, 0, errs.Newf("query.BETWEEN", errs.InvalidArgument, "lower bound %d exceeds upper bound %d", v1, v2)
		}
		return v1, v2, nil
	default:
		raw, err := argAt("query.range", args, cond.ArgIndex)
		if err != nil {
			return 0, 0, err
		}
		v, err := toInt64("query.range", raw, cond.TypeCode)
		if err != nil {
			return 0, 0, err
		}
		switch cond.Operator {
		case GT:
			return v + 1, maxInt64, nil
		case GTE:
			return v, maxInt64, nil
		case LT:
			return minInt64, v - 1, nil
		case LTE:
			return minInt64, v, nil
		}
		return v, v, nil
	}
}

const (
	maxInt64 = int64(1<<63 - 1)
	minInt64 = -maxInt64 - 1
)

func compileIn(cond Condition, colIdx ColumnIndices) DirectExecutor {
	if cond.TypeCode == typecode.String || cond.TypeCode == typecode.BigDec || cond.TypeCode == typecode.BigInt {
		return compileStringIn(cond, colIdx)
	}
	return func(table *rowtable.Table, args Args) (selection.Selection, error) {
		raw, err := argAt("query.IN", args, cond.ArgIndex)
		if err != nil {
			return selection.Empty, err
		}
		values, err := toInt64Slice("query.IN", raw, cond.TypeCode)
		if err != nil {
			return selection.Empty, err
		}
		if colIdx.Hash != nil {
			out := selection.Empty
			for _, v := range values {
				refs := colIdx.Hash.Query(index.EncodeInt64(v))
				out = selection.Union(out, filterLiveRefs(table, refs))
			}
			return out, nil
		}
		col := table.Column(cond.Column)
		rows := col.ScanIn(table.AllocatedCount(), table.IsLiveRow, values)
		return selection.FromSortedRefs(packRows(table, rows)), nil
	}
}

func compileStringIn(cond Condition, colIdx ColumnIndices) DirectExecutor {
	return func(table *rowtable.Table, args Args) (selection.Selection, error) {
		raw, err := argAt("query.IN", args, cond.ArgIndex)
		if err != nil {
			return selection.Empty, err
		}
		values, err := toStringSlice("query.IN", raw)
		if err != nil {
			return selection.Empty, err
		}
		if !cond.IgnoreCase && colIdx.Hash != nil {
			out := selection.Empty
			for _, v := range values {
				refs := colIdx.Hash.Query(index.EncodeString(v))
				out = selection.Union(out, filterLiveRefs(table, refs))
			}
			return out, nil
		}
		col := table.Column(cond.Column)
		rows := col.ScanStringIn(table.AllocatedCount(), table.IsLiveRow, values, cond.IgnoreCase)
		return selection.FromSortedRefs(packRows(table, rows)), nil
	}
}

func compileStartingWith(cond Condition, colIdx ColumnIndices) DirectExecutor {
	return func(table *rowtable.Table, args Args) (selection.Selection, error) {
		raw, err := argAt("query.STARTING_WITH", args, cond.ArgIndex)
		if err != nil {
			return selection.Empty, err
		}
		v, err := toString("query.STARTING_WITH", raw)
		if err != nil {
			return selection.Empty, err
		}
		if !cond.IgnoreCase && colIdx.Prefix != nil {
			refs := colIdx.Prefix.StartingWith(v)
			return filterLiveRefs(table, refs), nil
		}
		col := table.Column(cond.Column)
		rows := col.ScanStartsWith(table.AllocatedCount(), table.IsLiveRow, v, cond.IgnoreCase)
		return selection.FromSortedRefs(packRows(table, rows)), nil
	}
}

func compileEndingWith(cond Condition, colIdx ColumnIndices) DirectExecutor {
	return func(table *rowtable.Table, args Args) (selection.Selection, error) {
		raw, err := argAt("query.ENDING_WITH", args, cond.ArgIndex)
		if err != nil {
			return selection.Empty, err
		}
		v, err := toString("query.ENDING_WITH", raw)
		if err != nil {
			return selection.Empty, err
		}
		if !cond.IgnoreCase && colIdx.Suffix != nil {
			refs := colIdx.Suffix.EndingWith(v)
			return filterLiveRefs(table, refs), nil
		}
		col := table.Column(cond.Column)
		rows := col.ScanEndsWith(table.AllocatedCount(), table.IsLiveRow, v, cond.IgnoreCase)
		return selection.FromSortedRefs(packRows(table, rows)), nil
	}
}

func compileLike(cond Condition) DirectExecutor {
	return func(table *rowtable.Table, args Args) (selection.Selection, error) {
		raw, err := argAt("query.LIKE", args, cond.ArgIndex)
		if err != nil {
			return selection.Empty, err
		}
		v, err := toString("query.LIKE", raw)
		if err != nil {
			return selection.Empty, err
		}
		col := table.Column(cond.Column)
		rows := col.ScanLike(table.AllocatedCount(), table.IsLiveRow, v, cond.IgnoreCase)
		return selection.FromSortedRefs(packRows(table, rows)), nil
	}
}

// compileNullCheck short-circuits on non-nullable columns (declared by
// metadata) per spec §4.4, since a non-nullable column can never be
// null and scan_all is always the answer to NOT_NULL on one.
func compileNullCheck(cond Condition, wantPresent bool) DirectExecutor {
	return func(table *rowtable.Table, args Args) (selection.Selection, error) {
		col := table.Column(cond.Column)
		if !col.Nullable() {
			if wantPresent {
				return scanAllSelection(table), nil
			}
			return selection.Empty, nil
		}
		rows := col.ScanAllPresent(table.AllocatedCount(), table.IsLiveRow, wantPresent)
		return selection.FromSortedRefs(packRows(table, rows)), nil
	}
}

// compileGenericFallback handles an operator compileCondition does not
// special-case: the executor returns InvalidArgument. No generic scan is
// attempted for such an operator.
func compileGenericFallback(cond Condition) DirectExecutor {
	return func(table *rowtable.Table, args Args) (selection.Selection, error) {
		return selection.Empty, errs.Newf("query.compile", errs.InvalidArgument, "unsupported operator %d on column %d", cond.Operator, cond.Column)
	}
}

// filterLiveRefs revalidates every index-produced ref through is_live
// before it enters the selection algebra, per spec §9's open-question
// resolution: liveness filtering happens exactly once, here.
func filterLiveRefs(table *rowtable.Table, refs []uint64) selection.Selection {
	return selection.FilterLive(selection.FromSortedRefs(sortedCopy(refs)), table.IsLive)
}

func sortedCopy(refs []uint64) []uint64 {
	return selection.FromRefs(refs).Refs()
}
