// Package repo implements the compiled-plan dispatcher (C10): the glue
// that drives C6-C9 for reads and the arena's save/delete surface for
// writes, branching on opcode with no reflection or map lookup in the
// hot path.
package repo

import (
	"memris/arena"
	"memris/errs"
	"memris/query"
	"memris/selection"
)

// Input carries every argument shape a compiled plan's opcode might
// need; only the fields relevant to the plan's opcode are read.
type Input struct {
	Args query.Args
	ID   any
	IDs  []any
	Row  arena.Row
	Rows []arena.Row
}

// Result carries every return shape a compiled plan's return kind might
// produce; callers read the field matching the plan's ReturnKind.
type Result struct {
	Row    arena.Row
	Found  bool
	Rows   []arena.Row
	Count  int64
	Exists bool
	Pref   uint64
	Prefs  []uint64
}

// Repository is a compiled-plan dispatcher bound to one entity's arena
// state.
type Repository struct {
	arena      *arena.Arena
	entityName string
}

// New binds a repository to entityName, which must already be
// registered on a.
func New(a *arena.Arena, entityName string) *Repository {
	return &Repository{arena: a, entityName: entityName}
}

// Execute runs plan against the bound entity with the given input,
// branching on plan.Opcode.
func (r *Repository) Execute(plan query.Plan, in Input) (Result, error) {
	const op = "repo.Execute"

	switch plan.Opcode {
	case query.OpFindByID:
		return r.findByID(in.ID)
	case query.OpFindAllByID:
		return r.findAllByID(in.IDs)
	case query.OpFindAll:
		return r.find(nil, nil, plan.OrderBy, plan.Limit)
	case query.OpFind:
		return r.find(plan.Conditions, in.Args, plan.OrderBy, plan.Limit)
	case query.OpCount:
		return r.count(plan.Conditions, in.Args)
	case query.OpCountAll:
		return r.count(nil, nil)
	case query.OpExists:
		res, err := r.count(plan.Conditions, in.Args)
		if err != nil {
			return Result{}, err
		}
		return Result{Exists: res.Count > 0}, nil
	case query.OpExistsByID:
		res, err := r.findByID(in.ID)
		if err != nil {
			return Result{}, err
		}
		return Result{Exists: res.Found}, nil
	case query.OpSaveOne:
		return r.saveOne(in.Row)
	case query.OpSaveAll:
		return r.saveAll(in.Rows)
	case query.OpDeleteOne:
		return r.deleteOne(in.Row)
	case query.OpDeleteAll:
		return r.deleteAll(plan.Conditions, in.Args)
	case query.OpDeleteByID:
		return r.deleteByID(in.ID)
	case query.OpDeleteAllByID:
		return r.deleteAllByID(in.IDs)
	default:
		return Result{}, errs.Newf(op, errs.InvalidArgument, "unknown opcode %v", plan.Opcode)
	}
}

func (r *Repository) findByID(id any) (Result, error) {
	pref, ok, err := r.arena.FindByID(r.entityName, id)
	if err != nil {
		return Result{}, err
	}
	if !ok {
		return Result{Found: false}, nil
	}
	row, err := r.arena.ReadRow(r.entityName, pref)
	if err != nil {
		return Result{}, err
	}
	return Result{Row: row, Found: true}, nil
}

func (r *Repository) findAllByID(ids []any) (Result, error) {
	rows := make([]arena.Row, 0, len(ids))
	for _, id := range ids {
		res, err := r.findByID(id)
		if err != nil {
			return Result{}, err
		}
		if res.Found {
			rows = append(rows, res.Row)
		}
	}
	return Result{Rows: rows}, nil
}

func (r *Repository) evaluate(conditions []query.Condition, args query.Args) (selection.Selection, error) {
	table, err := r.arena.Table(r.entityName)
	if err != nil {
		return selection.Empty, err
	}
	indices, err := r.arena.Indices(r.entityName)
	if err != nil {
		return selection.Empty, err
	}
	return query.Evaluate(table, conditions, indices, args)
}

func (r *Repository) find(conditions []query.Condition, args query.Args, orderBy []query.OrderKey, limit int) (Result, error) {
	sel, err := r.evaluate(conditions, args)
	if err != nil {
		return Result{}, err
	}
	table, err := r.arena.Table(r.entityName)
	if err != nil {
		return Result{}, err
	}
	prefs, err := query.OrderAndLimit(table, sel, orderBy, limit)
	if err != nil {
		return Result{}, err
	}
	rows := make([]arena.Row, 0, len(prefs))
	for _, pref := range prefs {
		row, err := r.arena.ReadRow(r.entityName, pref)
		if err != nil {
			return Result{}, err
		}
		rows = append(rows, row)
	}
	return Result{Rows: rows}, nil
}

func (r *Repository) count(conditions []query.Condition, args query.Args) (Result, error) {
	sel, err := r.evaluate(conditions, args)
	if err != nil {
		return Result{}, err
	}
	return Result{Count: int64(sel.Len())}, nil
}

func (r *Repository) saveOne(row arena.Row) (Result, error) {
	pref, err := r.arena.Save(r.entityName, row)
	if err != nil {
		return Result{}, err
	}
	return Result{Pref: pref}, nil
}

func (r *Repository) saveAll(rows []arena.Row) (Result, error) {
	prefs := make([]uint64, 0, len(rows))
	for _, row := range rows {
		pref, err := r.arena.Save(r.entityName, row)
		if err != nil {
			return Result{}, err
		}
		prefs = append(prefs, pref)
	}
	return Result{Prefs: prefs}, nil
}

func (r *Repository) deleteOne(row arena.Row) (Result, error) {
	if err := r.arena.Delete(r.entityName, row); err != nil {
		return Result{}, err
	}
	return Result{}, nil
}

func (r *Repository) deleteByID(id any) (Result, error) {
	_, found, err := r.arena.FindByID(r.entityName, id)
	if err != nil || !found {
		return Result{}, err
	}
	if err := r.arena.DeleteByID(r.entityName, id); err != nil {
		return Result{}, err
	}
	return Result{Count: 1}, nil
}

func (r *Repository) deleteAllByID(ids []any) (Result, error) {
	var deleted int64
	for _, id := range ids {
		res, err := r.deleteByID(id)
		if err != nil {
			return Result{}, err
		}
		deleted += res.Count
	}
	return Result{Count: deleted}, nil
}

// deleteAll evaluates conditions, then deletes every matching row by its
// identifier (rather than by pref) so it goes through the same
// pre-mutation index-removal path as a single delete.
func (r *Repository) deleteAll(conditions []query.Condition, args query.Args) (Result, error) {
	sel, err := r.evaluate(conditions, args)
	if err != nil {
		return Result{}, err
	}
	ent, err := r.arena.Entity(r.entityName)
	if err != nil {
		return Result{}, err
	}
	idField := ent.IdentifierField()
	idCol := ent.ColumnIndex(idField.Name)

	var deleted int64
	for _, pref := range sel.Refs() {
		row, err := r.arena.ReadRow(r.entityName, pref)
		if err != nil {
			return Result{}, err
		}
		if err := r.arena.DeleteByID(r.entityName, row[idCol]); err != nil {
			return Result{}, err
		}
		deleted++
	}
	return Result{Count: deleted}, nil
}
