package query

import "memris/index"

// ColumnIndices names the single-column secondary indices registered
// for one column, any of which may be nil if that kind was never
// declared (or was toggled off by configuration).
type ColumnIndices struct {
	Hash   *index.Hash
	Range  *index.Range
	Prefix *index.Prefix
	Suffix *index.Suffix
}

// CompositeKind distinguishes a composite-hash plan from a
// composite-range one.
type CompositeKind int

const (
	CompositeHash CompositeKind = iota
	CompositeRange
)

// CompositePlan is one declared multi-column index: an ordered list of
// column positions plus the backing structure.
type CompositePlan struct {
	Columns []int
	Kind    CompositeKind
	Hash    *index.Hash
	Range   *index.Range
}

// TableIndices is the full index registry for one entity's table,
// keyed by column position plus the declared composite plans.
type TableIndices struct {
	PerColumn  []ColumnIndices
	Composites []CompositePlan
}
