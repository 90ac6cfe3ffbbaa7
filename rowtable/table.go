// Package rowtable implements the seqlock-protected, multi-column row
// table: per-row sequence numbers, generation counters, tombstones, and
// a free list of abandoned row indices sitting on top of column.Column
// buffers.
package rowtable

import (
	"errors"
	"sync"
	"sync/atomic"

	"memris/column"
	"memris/errs"
	"memris/selection"
)

// maxSeqlockRetries bounds reader retries before giving up with Internal,
// per spec §7 ("Seqlock retries are bounded (>= 64)").
const maxSeqlockRetries = 64

// Table is an ordered set of columns plus per-row metadata.
type Table struct {
	columns []*column.Column

	// growMu separates structural growth (new columns capacity, new
	// metadata slots) from ordinary seqlock-protected row access: readers
	// and writers of existing rows hold it shared, row-reservation growth
	// holds it exclusively. This is internal to the table and distinct
	// from the arena-level lifecycle lock, which guards the existence of
	// tables/indices/repositories, not row growth within one table.
	growMu sync.RWMutex

	seq  []uint32
	gen  []uint32
	tomb []bool

	// freedGen records the generation a row had at the moment it was
	// pushed onto the free list, so Insert can assert that nothing
	// mutated a freed slot's generation behind the free list's back.
	freedGen []uint32

	allocated uint32
	freeList  []uint32
	freeMu    sync.Mutex

	liveCount atomic.Int64
}

// New creates a row table over the given columns, in declaration order.
func New(columns []*column.Column) *Table {
	return &Table{columns: columns}
}

// ColumnCount returns the number of columns.
func (t *Table) ColumnCount() int { return len(t.columns) }

// Column returns the column at position i for direct typed access.
func (t *Table) Column(i int) *column.Column { return t.columns[i] }

// RowCount returns the number of live (non-tombstoned) rows.
func (t *Table) RowCount() uint32 { return uint32(t.liveCount.Load()) }

// AllocatedCount returns the number of row slots ever allocated,
// including tombstoned holes.
func (t *Table) AllocatedCount() uint32 {
	t.growMu.RLock()
	defer t.growMu.RUnlock()
	return t.allocated
}

// IsLiveRow reports whether row is a live row index, independent of any
// particular generation. Used by column scans to skip tombstones.
func (t *Table) IsLiveRow(row uint32) bool {
	t.growMu.RLock()
	defer t.growMu.RUnlock()
	if row >= t.allocated {
		return false
	}
	live, _, err := t.readRowState(row)
	return err == nil && live
}

// ScanAll returns every live row index in ascending order.
func (t *Table) ScanAll() []uint32 {
	t.growMu.RLock()
	defer t.growMu.RUnlock()
	out := make([]uint32, 0, t.allocated)
	for r := uint32(0); r < t.allocated; r++ {
		if live, _, err := t.readRowState(r); err == nil && live {
			out = append(out, r)
		}
	}
	return out
}

// RowGeneration returns the current generation of row.
func (t *Table) RowGeneration(row uint32) (uint32, error) {
	t.growMu.RLock()
	defer t.growMu.RUnlock()
	if row >= t.allocated {
		return 0, errs.Newf("RowGeneration", errs.Internal, "row %d out of range", row)
	}
	_, gen, err := t.readRowState(row)
	return gen, err
}

// IsLive reports whether pref still refers to a live row with a matching
// generation.
func (t *Table) IsLive(pref uint64) bool {
	row, wantGen := selection.Row(pref), selection.Generation(pref)
	t.growMu.RLock()
	defer t.growMu.RUnlock()
	if row >= t.allocated {
		return false
	}
	live, gen, err := t.readRowState(row)
	return err == nil && live && gen == wantGen
}

// readRowState reads the (live, generation) pair for row through the
// seqlock retry protocol. Callers must already hold growMu.
func (t *Table) readRowState(row uint32) (live bool, generation uint32, err error) {
	for attempt := 0; attempt < maxSeqlockRetries; attempt++ {
		start := atomic.LoadUint32(&t.seq[row])
		if start%2 == 1 {
			continue
		}
		tomb := t.tomb[row]
		gen := atomic.LoadUint32(&t.gen[row])
		end := atomic.LoadUint32(&t.seq[row])
		if start == end {
			return !tomb, gen, nil
		}
	}
	return false, 0, errs.New("readRowState", errs.Internal, errSeqlockExhausted)
}

// ReadWithSeqlock repeats reader until the observed sequence number is
// stable and even. reader must be side-effect-free and must not call
// back into write paths.
func (t *Table) ReadWithSeqlock(row uint32, reader func() error) error {
	t.growMu.RLock()
	defer t.growMu.RUnlock()
	if row >= t.allocated {
		return errs.Newf("ReadWithSeqlock", errs.Internal, "row %d out of range", row)
	}
	for attempt := 0; attempt < maxSeqlockRetries; attempt++ {
		start := atomic.LoadUint32(&t.seq[row])
		if start%2 == 1 {
			continue
		}
		if err := reader(); err != nil {
			return err
		}
		end := atomic.LoadUint32(&t.seq[row])
		if start == end {
			return nil
		}
	}
	return errs.New("ReadWithSeqlock", errs.Internal, errSeqlockExhausted)
}

// Insert reserves a row index (free-list if non-empty else bump-allocate),
// runs write under the seqlock, and returns the new packed reference.
func (t *Table) Insert(write func(row uint32) error) (uint64, error) {
	row, reused, freedGen, err := t.reserveRow()
	if err != nil {
		return 0, err
	}

	t.growMu.RLock()
	if reused && atomic.LoadUint32(&t.gen[row]) != freedGen {
		// The free list promised this slot's generation was last touched
		// by the tombstone that freed it; anything else is free-list
		// corruption (a double-free or a concurrent mutation of a freed
		// slot), which the spec calls out as a non-recoverable invariant
		// violation rather than a user error.
		t.growMu.RUnlock()
		return 0, errs.New("Insert", errs.Internal, errStaleGeneration)
	}
	atomic.AddUint32(&t.seq[row], 1) // begin write: seq becomes odd
	writeErr := write(row)
	t.tomb[row] = false
	atomic.AddUint32(&t.seq[row], 1) // end write: seq becomes even
	gen := atomic.LoadUint32(&t.gen[row])
	t.growMu.RUnlock()

	if writeErr != nil {
		return 0, writeErr
	}
	t.liveCount.Add(1)
	return selection.Pack(row, gen), nil
}

// Update validates liveness, then writes under the seqlock.
func (t *Table) Update(pref uint64, write func(row uint32) error) error {
	if !t.IsLive(pref) {
		return errs.New("Update", errs.NotFound, nil)
	}
	row := selection.Row(pref)

	t.growMu.RLock()
	defer t.growMu.RUnlock()
	atomic.AddUint32(&t.seq[row], 1)
	writeErr := write(row)
	atomic.AddUint32(&t.seq[row], 1)
	return writeErr
}

// Tombstone validates liveness, marks the row removed, advances its
// generation, and returns it to the free list.
func (t *Table) Tombstone(pref uint64) error {
	if !t.IsLive(pref) {
		return errs.New("Tombstone", errs.NotFound, nil)
	}
	row := selection.Row(pref)

	t.growMu.RLock()
	atomic.AddUint32(&t.seq[row], 1)
	t.tomb[row] = true
	newGen := atomic.AddUint32(&t.gen[row], 1)
	atomic.StoreUint32(&t.freedGen[row], newGen)
	atomic.AddUint32(&t.seq[row], 1)
	t.growMu.RUnlock()

	t.liveCount.Add(-1)
	t.freeMu.Lock()
	t.freeList = append(t.freeList, row)
	t.freeMu.Unlock()
	return nil
}

func (t *Table) reserveRow() (row uint32, reused bool, freedGen uint32, err error) {
	t.freeMu.Lock()
	if n := len(t.freeList); n > 0 {
		row = t.freeList[n-1]
		t.freeList = t.freeList[:n-1]
		t.freeMu.Unlock()

		t.growMu.RLock()
		freedGen = atomic.LoadUint32(&t.freedGen[row])
		t.growMu.RUnlock()
		return row, true, freedGen, nil
	}
	t.freeMu.Unlock()

	t.growMu.Lock()
	row = t.allocated
	t.allocated++
	t.growLocked(t.allocated)
	// A fresh row starts at generation 1, so no packed reference is 0.
	atomic.StoreUint32(&t.gen[row], 1)
	t.growMu.Unlock()
	return row, false, 0, nil
}

// growLocked extends metadata slices and every column's capacity to at
// least n rows. Callers must hold growMu exclusively.
func (t *Table) growLocked(n uint32) {
	if uint32(len(t.seq)) >= n {
		return
	}
	grown := uint32(len(t.seq))
	if grown == 0 {
		grown = 64
	}
	for grown < n {
		grown *= 2
	}
	t.seq = growUint32(t.seq, grown)
	t.gen = growUint32(t.gen, grown)
	t.freedGen = growUint32(t.freedGen, grown)
	t.tomb = growBool(t.tomb, grown)
	for _, c := range t.columns {
		c.Resize(grown)
	}
}

func growUint32(s []uint32, n uint32) []uint32 {
	out := make([]uint32, n)
	copy(out, s)
	return out
}

func growBool(s []bool, n uint32) []bool {
	out := make([]bool, n)
	copy(out, s)
	return out
}

var (
	errSeqlockExhausted = errors.New("retry budget exhausted")
	errStaleGeneration  = errors.New("reused row generation did not advance past the tombstoning write")
)
