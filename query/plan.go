// Package query implements the compiled-plan surface: a condition
// compiler (C6) that turns one compiled condition into a direct
// executor, a composite-index planner (C7) that recognizes contiguous
// AND groups a composite index can serve whole, a group orchestrator
// (C8) that combines per-group selections, and order/limit (C9) on top
// of the final selection.
package query

import "memris/typecode"

// Operator is the comparison an individual compiled condition performs.
type Operator int

const (
	EQ Operator = iota
	NE
	GT
	GTE
	LT
	LTE
	BETWEEN
	IN
	NOT_IN
	STARTING_WITH
	ENDING_WITH
	NOT_STARTING_WITH
	NOT_ENDING_WITH
	LIKE
	IS_NULL
	NOT_NULL
)

// Combinator joins one condition to the next.
type Combinator int

const (
	AND Combinator = iota
	OR
)

// Condition is one compiled predicate. ArgIndex indexes into the
// per-call Args vector; BETWEEN consumes ArgIndex and ArgIndex+1;
// IN/NOT_IN consume one argument that must be a slice.
type Condition struct {
	Column     int
	Operator   Operator
	ArgIndex   int
	IgnoreCase bool
	TypeCode   typecode.Code
	Next       Combinator
}

// Args is the per-call argument vector a compiled plan's conditions
// index into.
type Args []any

// OrderKey is one key of a multi-key sort.
type OrderKey struct {
	Column    int
	Ascending bool
}

// Opcode is the compiled repository method intent.
type Opcode int

const (
	OpFindByID Opcode = iota
	OpFindAllByID
	OpFindAll
	OpFind
	OpCount
	OpCountAll
	OpExists
	OpExistsByID
	OpSaveOne
	OpSaveAll
	OpDeleteOne
	OpDeleteAll
	OpDeleteByID
	OpDeleteAllByID
)

// ReturnKind describes the shape of a repository call's result.
type ReturnKind int

const (
	ReturnOneOptional ReturnKind = iota
	ReturnManyList
	ReturnExistsBool
	ReturnCountLong
	ReturnSave
	ReturnSaveAll
	ReturnDelete
	ReturnDeleteAll
	ReturnDeleteByID
)

// JoinSpec names a relationship to traverse. The engine carries it
// through the compiled plan for contract completeness but does not
// execute it: resolving a related entity back into a joined result
// requires materializing rows into caller objects, which is out of
// scope (see SPEC_FULL.md Non-goals).
type JoinSpec struct {
	Column       int
	TargetEntity string
}

// Plan is the compiled query surface consumed by the repository
// dispatcher: an opcode, a return kind, a predicate vector, an optional
// ordering, and a limit (0 means unlimited).
type Plan struct {
	Opcode     Opcode
	ReturnKind ReturnKind
	Conditions []Condition
	Joins      []JoinSpec
	OrderBy    []OrderKey
	Limit      int
	Arity      int
}
