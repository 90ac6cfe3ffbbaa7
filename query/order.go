package query

import (
	"sort"

	"memris/rowtable"
	"memris/selection"
	"memris/typecode"
)

// keyColumn is one order-by column's materialized keys, dense over the
// selection being sorted: present[i] false means "null" for row i.
type keyColumn struct {
	ascending bool
	isString  bool
	present   []bool
	ints      []int64
	strs      []string
}

// OrderAndLimit sorts sel by the compiled multi-key ordering and
// truncates to limit (0 = unlimited), returning the ordered prefs
// directly rather than a Selection: the result is ordered by sort key,
// not by ascending pref, so it would violate Selection's sortedness
// invariant to wrap it as one. Each key builder materializes a dense
// array of keys for the current selection by reading every row through
// the seqlock, then a single sort permutes the row array and every key
// array together; ties break on row index for determinism.
func OrderAndLimit(table *rowtable.Table, sel selection.Selection, orderBy []OrderKey, limit int) ([]uint64, error) {
	refs := append([]uint64(nil), sel.Refs()...)
	if len(orderBy) == 0 {
		return limitRefs(refs, limit), nil
	}

	keys := make([]keyColumn, len(orderBy))
	for i, ok := range orderBy {
		kc, err := buildKeyColumn(table, refs, ok)
		if err != nil {
			return nil, err
		}
		keys[i] = kc
	}

	sort.Sort(&multiKeySort{refs: refs, keys: keys})
	return limitRefs(refs, limit), nil
}

func buildKeyColumn(table *rowtable.Table, refs []uint64, ok OrderKey) (keyColumn, error) {
	col := table.Column(ok.Column)
	isString := col.TypeCode() == typecode.String || col.TypeCode() == typecode.BigDec || col.TypeCode() == typecode.BigInt
	kc := keyColumn{ascending: ok.Ascending, isString: isString, present: make([]bool, len(refs))}
	if isString {
		kc.strs = make([]string, len(refs))
	} else {
		kc.ints = make([]int64, len(refs))
	}
	for i, pref := range refs {
		row := selection.Row(pref)
		err := table.ReadWithSeqlock(row, func() error {
			if !col.IsPresent(row) {
				kc.present[i] = false
				return nil
			}
			kc.present[i] = true
			if isString {
				v, err := col.GetString(row)
				kc.strs[i] = v
				return err
			}
			v, err := col.GetInt64(row)
			kc.ints[i] = v
			return err
		})
		if err != nil {
			return keyColumn{}, err
		}
	}
	return kc, nil
}

// multiKeySort implements sort.Interface, swapping the row array and
// every key array together so no separate index-indirection slice is
// needed the way sort.Slice's reflection-based swap would require.
type multiKeySort struct {
	refs []uint64
	keys []keyColumn
}

func (m *multiKeySort) Len() int { return len(m.refs) }

func (m *multiKeySort) Swap(i, j int) {
	m.refs[i], m.refs[j] = m.refs[j], m.refs[i]
	for k := range m.keys {
		kc := &m.keys[k]
		kc.present[i], kc.present[j] = kc.present[j], kc.present[i]
		if kc.isString {
			kc.strs[i], kc.strs[j] = kc.strs[j], kc.strs[i]
		} else {
			kc.ints[i], kc.ints[j] = kc.ints[j], kc.ints[i]
		}
	}
}

func (m *multiKeySort) Less(i, j int) bool {
	for _, kc := range m.keys {
		switch c := kc.compare(i, j); {
		case c < 0:
			return true
		case c > 0:
			return false
		}
	}
	return selection.Row(m.refs[i]) < selection.Row(m.refs[j])
}

// compare orders i against j for one key column: nulls sort last in
// ascending order and first in descending order.
func (kc *keyColumn) compare(i, j int) int {
	pi, pj := kc.present[i], kc.present[j]
	if pi != pj {
		if pi {
			if kc.ascending {
				return -1
			}
			return 1
		}
		if kc.ascending {
			return 1
		}
		return -1
	}
	if !pi {
		return 0
	}

	var c int
	if kc.isString {
		c = compareStrings(kc.strs[i], kc.strs[j])
	} else {
		c = compareInt64(kc.ints[i], kc.ints[j])
	}
	if !kc.ascending {
		c = -c
	}
	return c
}

func compareInt64(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func compareStrings(a, b string) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func limitRefs(refs []uint64, limit int) []uint64 {
	if limit <= 0 || len(refs) <= limit {
		return refs
	}
	return refs[:limit]
}
