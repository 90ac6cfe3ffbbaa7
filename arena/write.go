package arena

import (
	"strconv"
	"time"

	"memris/column"
	"memris/errs"
	"memris/index"
	"memris/query"
	"memris/selection"
	"memris/typecode"
)

// Row is the caller-supplied or materialized value vector for one
// entity row, positionally aligned with the entity's declared fields. A
// nil element means "null" for a nullable field.
type Row []any

func (es *entityState) nextID() int64 { return es.idCounter.Add(1) }

func (es *entityState) observeID(id int64) {
	for {
		cur := es.idCounter.Load()
		if id <= cur {
			return
		}
		if es.idCounter.CompareAndSwap(cur, id) {
			return
		}
	}
}

func isStringLike(tc typecode.Code) bool {
	return tc == typecode.String || tc == typecode.BigDec || tc == typecode.BigInt
}

// storageValue is one column's value in the same domain the column
// itself stores it in: a single int64 domain covers every non-string
// type code (sortable floats, epoch temporals, 0/1 bools, plain
// integers), matching the domain index.EncodeInt64/query condition
// probes already compare against; string/big-decimal/big-integer stay
// as string.
type storageValue struct {
	present  bool
	isString bool
	i        int64
	s        string
}

func (v storageValue) key() []byte {
	if v.isString {
		return index.EncodeString(v.s)
	}
	return index.EncodeInt64(v.i)
}

func toStorageValue(op string, tc typecode.Code, v any) (storageValue, error) {
	if v == nil {
		return storageValue{}, nil
	}
	if isStringLike(tc) {
		s, ok := v.(string)
		if !ok {
			return storageValue{}, errs.Newf(op, errs.InvalidArgument, "field of type %s requires a string value, got %T", tc, v)
		}
		return storageValue{present: true, isString: true, s: s}, nil
	}
	if tc == typecode.Bool {
		b, ok := v.(bool)
		if !ok {
			return storageValue{}, errs.Newf(op, errs.InvalidArgument, "field of type bool requires a bool value, got %T", v)
		}
		i := int64(0)
		if b {
			i = 1
		}
		return storageValue{present: true, i: i}, nil
	}
	i, err := query.ToColumnInt64(tc, v)
	if err != nil {
		return storageValue{}, err
	}
	return storageValue{present: true, i: i}, nil
}

func readStorageValue(col *column.Column, tc typecode.Code, row uint32) (storageValue, error) {
	if !col.IsPresent(row) {
		return storageValue{}, nil
	}
	if isStringLike(tc) {
		s, err := col.GetString(row)
		if err != nil {
			return storageValue{}, err
		}
		return storageValue{present: true, isString: true, s: s}, nil
	}
	if tc == typecode.Bool {
		b, err := col.GetBool(row)
		if err != nil {
			return storageValue{}, err
		}
		i := int64(0)
		if b {
			i = 1
		}
		return storageValue{present: true, i: i}, nil
	}
	i, err := col.GetInt64(row)
	if err != nil {
		return storageValue{}, err
	}
	return storageValue{present: true, i: i}, nil
}

func writeStorageValue(col *column.Column, tc typecode.Code, row uint32, v storageValue) error {
	if !v.present {
		col.SetNull(row)
		return nil
	}
	if isStringLike(tc) {
		return col.SetString(row, v.s)
	}
	if tc == typecode.Bool {
		return col.SetBool(row, v.i != 0)
	}
	return col.SetInt64(row, v.i)
}

// fromStorageValue is the inverse of toStorageValue, producing the
// user-facing Go value a caller would recognize (float64 for sortable
// floats, time.Time for epoch temporals, and so on).
func fromStorageValue(tc typecode.Code, v storageValue) any {
	if !v.present {
		return nil
	}
	if v.isString {
		return v.s
	}
	switch tc {
	case typecode.Float32:
		return float64(typecode.SortableToFloat(int32(v.i)))
	case typecode.Float64:
		return typecode.SortableToDouble(v.i)
	case typecode.Instant, typecode.DateTime:
		return time.UnixMilli(v.i).UTC()
	case typecode.Date, typecode.LocalDate:
		return time.Unix(v.i*86400, 0).UTC()
	case typecode.Bool:
		return v.i != 0
	case typecode.Int8:
		return int8(v.i)
	case typecode.Int16:
		return int16(v.i)
	case typecode.Int32:
		return int32(v.i)
	default:
		return v.i
	}
}

// canonicalID normalizes a caller-supplied identifier into the form used
// as the primary-key map key: a string as-is, everything else widened
// through query.ToColumnInt64 so int32/int/int64 all collide on the same
// key type.
func canonicalID(es *entityState, id any) (any, error) {
	const op = "arena.canonicalID"
	idField := es.def.Fields[es.idColumn]
	if isStringLike(idField.TypeCode) {
		s, ok := id.(string)
		if !ok {
			return nil, errs.Newf(op, errs.InvalidArgument, "identifier field %q requires a string value, got %T", idField.Name, id)
		}
		return s, nil
	}
	return query.ToColumnInt64(idField.TypeCode, id)
}

// resolveSaveID implements spec §4.8's upsert identifier rule: a zero
// (numeric) or null/empty (string) supplied identifier is allocated from
// the per-entity counter; anything else advances the counter (numeric)
// or is used verbatim (string) and is looked up as-is.
func resolveSaveID(es *entityState, supplied any) (any, error) {
	const op = "arena.Save"
	idField := es.def.Fields[es.idColumn]

	if isStringLike(idField.TypeCode) {
		if s, ok := supplied.(string); ok && s != "" {
			return s, nil
		}
		if supplied != nil {
			if _, ok := supplied.(string); !ok {
				return nil, errs.Newf(op, errs.InvalidArgument, "identifier field %q requires a string value, got %T", idField.Name, supplied)
			}
		}
		return strconv.FormatInt(es.nextID(), 10), nil
	}

	if supplied != nil {
		n, err := query.ToColumnInt64(idField.TypeCode, supplied)
		if err != nil {
			return nil, err
		}
		if n != 0 {
			es.observeID(n)
			return n, nil
		}
	}
	return es.nextID(), nil
}

// Save is the upsert entry point backing the C10 `save_one` opcode: a
// zero (numeric) or null/empty (string) identifier is allocated from the
// counter and inserted; a supplied identifier with a live row is updated
// in place; any other supplied identifier is inserted under that
// identifier.
func (a *Arena) Save(entityName string, row Row) (uint64, error) {
	const op = "arena.Save"
	es, err := a.lookup(op, entityName)
	if err != nil {
		return 0, err
	}
	if len(row) != len(es.def.Fields) {
		return 0, errs.Newf(op, errs.InvalidArgument, "entity %q: expected %d fields, got %d", entityName, len(es.def.Fields), len(row))
	}

	id, err := resolveSaveID(es, row[es.idColumn])
	if err != nil {
		return 0, err
	}
	row = append(Row(nil), row...)
	row[es.idColumn] = id

	if pref, ok := es.primaryKey.Get(id); ok && es.table.IsLive(pref) {
		return a.updateRow(es, pref, row)
	}
	return a.insertRow(es, id, row)
}

func (a *Arena) buildStorageRow(op string, es *entityState, row Row) ([]storageValue, error) {
	values := make([]storageValue, len(es.def.Fields))
	for i, f := range es.def.Fields {
		v, err := toStorageValue(op, f.TypeCode, row[i])
		if err != nil {
			return nil, err
		}
		if !v.present && !f.Nullable {
			return nil, errs.Newf(op, errs.InvalidArgument, "entity %q: field %q is not nullable", es.def.Name, f.Name)
		}
		values[i] = v
	}
	return values, nil
}

func (a *Arena) insertRow(es *entityState, id any, row Row) (uint64, error) {
	const op = "arena.Save"
	values, err := a.buildStorageRow(op, es, row)
	if err != nil {
		return 0, err
	}

	pref, err := es.table.Insert(func(r uint32) error {
		for i, f := range es.def.Fields {
			if err := writeStorageValue(es.table.Column(i), f.TypeCode, r, values[i]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	es.primaryKey.Set(id, pref)
	insertIndexEntries(es, pref, values)
	return pref, nil
}

func (a *Arena) updateRow(es *entityState, pref uint64, row Row) (uint64, error) {
	const op = "arena.Save"
	rowIdx := selection.Row(pref)

	old := make([]storageValue, len(es.def.Fields))
	if err := es.table.ReadWithSeqlock(rowIdx, func() error {
		for i, f := range es.def.Fields {
			v, err := readStorageValue(es.table.Column(i), f.TypeCode, rowIdx)
			if err != nil {
				return err
			}
			old[i] = v
		}
		return nil
	}); err != nil {
		return 0, err
	}

	values, err := a.buildStorageRow(op, es, row)
	if err != nil {
		return 0, err
	}

	if err := es.table.Update(pref, func(r uint32) error {
		for i, f := range es.def.Fields {
			if err := writeStorageValue(es.table.Column(i), f.TypeCode, r, values[i]); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		return 0, err
	}

	removeIndexEntries(es, pref, old)
	insertIndexEntries(es, pref, values)
	return pref, nil
}

// Delete backs the C10 `delete_one` opcode: the row identified by row's
// identifier field must be live, or the call fails NotFound (spec §7).
func (a *Arena) Delete(entityName string, row Row) error {
	const op = "arena.Delete"
	es, err := a.lookup(op, entityName)
	if err != nil {
		return err
	}
	id, err := canonicalID(es, row[es.idColumn])
	if err != nil {
		return err
	}
	pref, ok := es.primaryKey.Get(id)
	if !ok || !es.table.IsLive(pref) {
		return errs.Newf(op, errs.NotFound, "entity %q: no live row for id %v", entityName, id)
	}
	return a.tombstoneRow(es, id, pref)
}

// DeleteByID backs `delete_by_id`: an unknown identifier is a no-op, not
// an error (spec §7).
func (a *Arena) DeleteByID(entityName string, id any) error {
	const op = "arena.DeleteByID"
	es, err := a.lookup(op, entityName)
	if err != nil {
		return err
	}
	canonical, err := canonicalID(es, id)
	if err != nil {
		return err
	}
	pref, ok := es.primaryKey.Get(canonical)
	if !ok || !es.table.IsLive(pref) {
		return nil
	}
	return a.tombstoneRow(es, canonical, pref)
}

func (a *Arena) tombstoneRow(es *entityState, id any, pref uint64) error {
	rowIdx := selection.Row(pref)
	last := make([]storageValue, len(es.def.Fields))
	if err := es.table.ReadWithSeqlock(rowIdx, func() error {
		for i, f := range es.def.Fields {
			v, err := readStorageValue(es.table.Column(i), f.TypeCode, rowIdx)
			if err != nil {
				return err
			}
			last[i] = v
		}
		return nil
	}); err != nil {
		return err
	}
	if err := es.table.Tombstone(pref); err != nil {
		return err
	}
	es.primaryKey.Delete(id)
	removeIndexEntries(es, pref, last)
	return nil
}

// FindByID resolves id to its live pref, reporting ok=false on no match
// (spec §7: find_by_id returns absent on an unknown identifier).
func (a *Arena) FindByID(entityName string, id any) (uint64, bool, error) {
	es, err := a.lookup("arena.FindByID", entityName)
	if err != nil {
		return 0, false, err
	}
	canonical, err := canonicalID(es, id)
	if err != nil {
		return 0, false, err
	}
	pref, ok := es.primaryKey.Get(canonical)
	if !ok || !es.table.IsLive(pref) {
		return 0, false, nil
	}
	return pref, true, nil
}

// ReadRow materializes pref's current column values into a Row, the
// materialization boundary this engine exposes in place of the
// annotation-driven object mapping the spec marks out of scope (§1).
func (a *Arena) ReadRow(entityName string, pref uint64) (Row, error) {
	const op = "arena.ReadRow"
	es, err := a.lookup(op, entityName)
	if err != nil {
		return nil, err
	}
	if !es.table.IsLive(pref) {
		return nil, errs.Newf(op, errs.NotFound, "entity %q: pref is not live", entityName)
	}
	rowIdx := selection.Row(pref)
	out := make(Row, len(es.def.Fields))
	err = es.table.ReadWithSeqlock(rowIdx, func() error {
		for i, f := range es.def.Fields {
			v, err := readStorageValue(es.table.Column(i), f.TypeCode, rowIdx)
			if err != nil {
				return err
			}
			out[i] = fromStorageValue(f.TypeCode, v)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// insertIndexEntries adds values' entries to every secondary and
// composite index declared for es, skipping any column whose value is
// absent (a null value is never indexed).
func insertIndexEntries(es *entityState, pref uint64, values []storageValue) {
	for col, ci := range es.indices.PerColumn {
		v := values[col]
		if !v.present {
			continue
		}
		if ci.Hash != nil {
			ci.Hash.Insert(v.key(), pref)
		}
		if ci.Range != nil {
			ci.Range.Insert(v.key(), pref)
		}
		if v.isString {
			if ci.Prefix != nil {
				ci.Prefix.Insert(v.s, pref)
			}
			if ci.Suffix != nil {
				ci.Suffix.Insert(v.s, pref)
			}
		}
	}
	for _, cp := range es.indices.Composites {
		if !allPresent(values, cp.Columns) {
			continue
		}
		switch cp.Kind {
		case query.CompositeHash:
			cp.Hash.Insert(compositeHashKey(values, cp.Columns), pref)
		case query.CompositeRange:
			cp.Range.Insert(compositeRangeKey(values, cp.Columns), pref)
		}
	}
}

// removeIndexEntries is insertIndexEntries' exact mirror, called with
// the pre-mutation (or pre-tombstone) values per spec §3's "indices only
// remove exact matches" rule.
func removeIndexEntries(es *entityState, pref uint64, values []storageValue) {
	for col, ci := range es.indices.PerColumn {
		v := values[col]
		if !v.present {
			continue
		}
		if ci.Hash != nil {
			ci.Hash.Remove(v.key(), pref)
		}
		if ci.Range != nil {
			ci.Range.Remove(v.key(), pref)
		}
		if v.isString {
			if ci.Prefix != nil {
				ci.Prefix.Remove(v.s, pref)
			}
			if ci.Suffix != nil {
				ci.Suffix.Remove(v.s, pref)
			}
		}
	}
	for _, cp := range es.indices.Composites {
		if !allPresent(values, cp.Columns) {
			continue
		}
		switch cp.Kind {
		case query.CompositeHash:
			cp.Hash.Remove(compositeHashKey(values, cp.Columns), pref)
		case query.CompositeRange:
			cp.Range.Remove(compositeRangeKey(values, cp.Columns), pref)
		}
	}
}

func allPresent(values []storageValue, cols []int) bool {
	for _, c := range cols {
		if !values[c].present {
			return false
		}
	}
	return true
}

func compositeHashKey(values []storageValue, cols []int) []byte {
	segments := make([][]byte, len(cols))
	for i, c := range cols {
		segments[i] = values[c].key()
	}
	return index.EncodeComposite(segments...)
}

func compositeRangeKey(values []storageValue, cols []int) []byte {
	segments := make([][]byte, len(cols))
	for i, c := range cols {
		segments[i] = index.RangeSegmentValue(values[c].key())
	}
	return index.EncodeRangeKey(segments...)
}
