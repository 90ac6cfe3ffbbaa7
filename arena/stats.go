package arena

// EntityStats is a read-only snapshot of one entity's table and index
// sizes, supplemented beyond spec.md because any real deployment of this
// engine needs a way to observe it — grounded on the teacher's
// core.Diff summary pattern (a pure function over engine state producing
// a plain struct).
type EntityStats struct {
	Name             string
	RowCount         uint32
	AllocatedCount   uint32
	PrimaryKeyCount  int
	HashEntries      int
	RangeEntries     int
	PrefixEntries    int
	SuffixEntries    int
	CompositeEntries int
}

// Stats returns a snapshot for every registered entity.
func (a *Arena) Stats() []EntityStats {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.closed {
		return nil
	}

	out := make([]EntityStats, 0, len(a.entities))
	for name, es := range a.entities {
		s := EntityStats{
			Name:            name,
			RowCount:        es.table.RowCount(),
			AllocatedCount:  es.table.AllocatedCount(),
			PrimaryKeyCount: es.primaryKey.Len(),
		}
		for _, ci := range es.indices.PerColumn {
			if ci.Hash != nil {
				s.HashEntries += ci.Hash.Len()
			}
			if ci.Range != nil {
				s.RangeEntries += ci.Range.Len()
			}
			if ci.Prefix != nil {
				s.PrefixEntries += ci.Prefix.Len()
			}
			if ci.Suffix != nil {
				s.SuffixEntries += ci.Suffix.Len()
			}
		}
		for _, cp := range es.indices.Composites {
			if cp.Hash != nil {
				s.CompositeEntries += cp.Hash.Len()
			}
			if cp.Range != nil {
				s.CompositeEntries += cp.Range.Len()
			}
		}
		out = append(out, s)
	}
	return out
}
