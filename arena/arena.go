// Package arena owns the lifecycle of a set of entity tables: their row
// tables, indices, identifier counters, and configuration, all created
// and destroyed together (§5, GLOSSARY "Arena").
package arena

import (
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"memris/column"
	"memris/errs"
	"memris/index"
	"memris/query"
	"memris/rowtable"
	"memris/schema"
)

// entityState is everything the arena owns for one registered entity.
type entityState struct {
	def        schema.Entity
	table      *rowtable.Table
	indices    query.TableIndices
	primaryKey *index.PrimaryKey
	idColumn   int
	idCounter  atomic.Int64
}

// Arena is the reader-writer-locked owner of every table, index set, and
// id counter created under it. The lock is held shared for ordinary
// per-entity operations and exclusive only for registration and close,
// matching spec §5's lifecycle-lock discipline.
type Arena struct {
	mu       sync.RWMutex
	cfg      Config
	closed   bool
	entities map[string]*entityState
}

// New creates an empty arena under cfg.
func New(cfg Config) *Arena {
	return &Arena{cfg: cfg, entities: make(map[string]*entityState)}
}

// Register builds the table and index set for e and adds it to the
// arena. It is an exclusive-lock operation (spec §5: "exclusive mode
// only for close/register").
func (a *Arena) Register(e schema.Entity) error {
	const op = "arena.Register"

	idField := e.IdentifierField()
	if idField == nil {
		return errs.Newf(op, errs.SchemaMismatch, "entity %q declares no identifier field", e.Name)
	}

	cols := make([]*column.Column, len(e.Fields))
	for i, f := range e.Fields {
		cols[i] = column.New(f.TypeCode, f.Nullable)
	}

	indices := query.TableIndices{PerColumn: make([]query.ColumnIndices, len(e.Fields))}
	for _, fi := range e.FieldIndexes {
		col := e.ColumnIndex(fi.Field)
		if col < 0 {
			return errs.Newf(op, errs.SchemaMismatch, "entity %q: index references unknown field %q", e.Name, fi.Field)
		}
		switch fi.Kind {
		case schema.IndexHash:
			indices.PerColumn[col].Hash = index.NewHash()
		case schema.IndexRange:
			indices.PerColumn[col].Range = index.NewRange()
		case schema.IndexPrefix:
			if a.cfg.EnablePrefixIndex {
				indices.PerColumn[col].Prefix = index.NewPrefix()
			}
		case schema.IndexSuffix:
			if a.cfg.EnableSuffixIndex {
				indices.PerColumn[col].Suffix = index.NewSuffix()
			}
		default:
			return errs.Newf(op, errs.SchemaMismatch, "entity %q: unsupported index kind %q on field %q", e.Name, fi.Kind, fi.Field)
		}
	}

	for _, ci := range e.CompositeIndexes {
		if len(ci.Fields) < 2 {
			return errs.Newf(op, errs.InvalidArgument, "entity %q: composite index needs at least 2 columns", e.Name)
		}
		colPositions := make([]int, len(ci.Fields))
		for i, name := range ci.Fields {
			c := e.ColumnIndex(name)
			if c < 0 {
				return errs.Newf(op, errs.SchemaMismatch, "entity %q: composite index references unknown field %q", e.Name, name)
			}
			colPositions[i] = c
		}
		switch ci.Kind {
		case schema.CompositeIndexHash:
			indices.Composites = append(indices.Composites, query.CompositePlan{
				Columns: colPositions, Kind: query.CompositeHash, Hash: index.NewHash(),
			})
		case schema.CompositeIndexRange:
			indices.Composites = append(indices.Composites, query.CompositePlan{
				Columns: colPositions, Kind: query.CompositeRange, Range: index.NewRange(),
			})
		default:
			return errs.Newf(op, errs.SchemaMismatch, "entity %q: unsupported composite index kind %q", e.Name, ci.Kind)
		}
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return errs.New(op, errs.LifecycleClosed, nil)
	}
	if _, exists := a.entities[e.Name]; exists {
		return errs.Newf(op, errs.SchemaMismatch, "entity %q already registered", e.Name)
	}

	es := &entityState{
		def:        e,
		table:      rowtable.New(cols),
		indices:    indices,
		primaryKey: index.NewPrimaryKey(),
		idColumn:   e.ColumnIndex(idField.Name),
	}
	a.entities[e.Name] = es
	return nil
}

// lookup resolves name to its entityState under a shared lock.
func (a *Arena) lookup(op, name string) (*entityState, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.closed {
		return nil, errs.New(op, errs.LifecycleClosed, nil)
	}
	es, ok := a.entities[name]
	if !ok {
		return nil, errs.Newf(op, errs.SchemaMismatch, "unknown entity %q", name)
	}
	return es, nil
}

// Table returns the row table backing name.
func (a *Arena) Table(name string) (*rowtable.Table, error) {
	es, err := a.lookup("arena.Table", name)
	if err != nil {
		return nil, err
	}
	return es.table, nil
}

// Indices returns the registered index set for name.
func (a *Arena) Indices(name string) (query.TableIndices, error) {
	es, err := a.lookup("arena.Indices", name)
	if err != nil {
		return query.TableIndices{}, err
	}
	return es.indices, nil
}

// PrimaryKey returns the identifier index for name.
func (a *Arena) PrimaryKey(name string) (*index.PrimaryKey, error) {
	es, err := a.lookup("arena.PrimaryKey", name)
	if err != nil {
		return nil, err
	}
	return es.primaryKey, nil
}

// Entity returns the declaration name was registered with.
func (a *Arena) Entity(name string) (schema.Entity, error) {
	es, err := a.lookup("arena.Entity", name)
	if err != nil {
		return schema.Entity{}, err
	}
	return es.def, nil
}

// NextID allocates the next identifier for name's per-entity counter
// (spec §6, "Identifier generation").
func (a *Arena) NextID(name string) (int64, error) {
	es, err := a.lookup("arena.NextID", name)
	if err != nil {
		return 0, err
	}
	return es.nextID(), nil
}

// ObserveID advances name's identifier counter to max(current, id), per
// spec §6: "Supplied identifiers above the counter advance it".
func (a *Arena) ObserveID(name string, id int64) error {
	es, err := a.lookup("arena.ObserveID", name)
	if err != nil {
		return err
	}
	es.observeID(id)
	return nil
}

// Close discards every registered entity's table and indices
// concurrently via errgroup, then marks the arena permanently closed.
// Idempotent.
func (a *Arena) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return nil
	}
	a.closed = true

	var g errgroup.Group
	for _, es := range a.entities {
		es := es
		g.Go(func() error {
			es.table = nil
			es.indices = query.TableIndices{}
			es.primaryKey = nil
			return nil
		})
	}
	err := g.Wait()
	a.entities = nil
	return err
}
