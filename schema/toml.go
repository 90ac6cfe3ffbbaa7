package schema

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/BurntSushi/toml"

	"memris/errs"
	"memris/typecode"
)

// tomlSchema is the top-level TOML document: one or more [[entities]].
type tomlSchema struct {
	Entities []tomlEntity `toml:"entities"`
}

type tomlEntity struct {
	Name          string              `toml:"name"`
	Fields        []tomlField         `toml:"fields"`
	Indexes       []tomlFieldIndex    `toml:"indexes"`
	Composite     []tomlCompositeIdx  `toml:"composite_indexes"`
	Relationships []tomlRelationship  `toml:"relationships"`
}

type tomlField struct {
	Name         string `toml:"name"`
	Type         string `toml:"type"`
	Nullable     bool   `toml:"nullable"`
	IsIdentifier bool   `toml:"is_identifier"`
	Generated    bool   `toml:"generated"`
}

type tomlFieldIndex struct {
	Field string `toml:"field"`
	Kind  string `toml:"kind"`
}

type tomlCompositeIdx struct {
	Fields []string `toml:"fields"`
	Kind   string   `toml:"kind"`
}

type tomlRelationship struct {
	Column       string `toml:"column"`
	TargetEntity string `toml:"target_entity"`
	Cardinality  string `toml:"cardinality"`
}

// LoadTOMLFile opens path and parses it as a TOML entity declaration
// document.
func LoadTOMLFile(path string) ([]Entity, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errs.Newf("schema.LoadTOMLFile", errs.InvalidArgument, "open %q: %v", path, err)
	}
	defer f.Close()
	return LoadTOML(f)
}

// LoadTOML decodes reader as a TOML entity declaration document and
// converts it into the canonical Entity representation, rejecting
// composite-index declarations with a duplicate field name or a
// non-persisted field name per spec §6.
func LoadTOML(r io.Reader) ([]Entity, error) {
	var doc tomlSchema
	if _, err := toml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, errs.Newf("schema.LoadTOML", errs.InvalidArgument, "decode: %v", err)
	}

	entities := make([]Entity, 0, len(doc.Entities))
	for _, te := range doc.Entities {
		e, err := convertEntity(&te)
		if err != nil {
			return nil, wrapEntityErr(te.Name, err)
		}
		entities = append(entities, *e)
	}
	return entities, nil
}

// wrapEntityErr adds entity context to a conversion failure, preserving
// the error's own kind when convertEntity already classified it (e.g. a
// composite index's InvalidArgument column-count violation) and falling
// back to SchemaMismatch for the plain errors raised by field/index/
// relationship validation.
func wrapEntityErr(entityName string, err error) error {
	kind := errs.SchemaMismatch
	var e *errs.Error
	if errors.As(err, &e) {
		kind = e.Kind
	}
	return errs.Newf("schema.LoadTOML", kind, "entity %q: %v", entityName, err)
}

func convertEntity(te *tomlEntity) (*Entity, error) {
	if strings.TrimSpace(te.Name) == "" {
		return nil, fmt.Errorf("entity name is empty")
	}

	e := &Entity{Name: te.Name}
	identifierSeen := false
	for _, tf := range te.Fields {
		f, err := convertField(tf)
		if err != nil {
			return nil, err
		}
		if f.IsIdentifier {
			if identifierSeen {
				return nil, fmt.Errorf("more than one identifier field declared")
			}
			identifierSeen = true
		}
		e.Fields = append(e.Fields, f)
	}
	if !identifierSeen {
		return nil, fmt.Errorf("no identifier field declared")
	}

	for _, ti := range te.Indexes {
		if e.FieldByName(ti.Field) == nil {
			return nil, fmt.Errorf("index references unknown field %q", ti.Field)
		}
		e.FieldIndexes = append(e.FieldIndexes, FieldIndex{Field: ti.Field, Kind: IndexKind(ti.Kind)})
	}

	for _, tc := range te.Composite {
		ci, err := convertCompositeIndex(e, tc)
		if err != nil {
			return nil, err
		}
		e.CompositeIndexes = append(e.CompositeIndexes, ci)
	}

	for _, tr := range te.Relationships {
		if e.FieldByName(tr.Column) == nil {
			return nil, fmt.Errorf("relationship references unknown column %q", tr.Column)
		}
		e.Relationships = append(e.Relationships, Relationship{
			Column:       tr.Column,
			TargetEntity: tr.TargetEntity,
			Cardinality:  tr.Cardinality,
		})
	}

	return e, nil
}

func convertField(tf tomlField) (Field, error) {
	if strings.TrimSpace(tf.Name) == "" {
		return Field{}, fmt.Errorf("field name is empty")
	}
	tc := typecode.Code(tf.Type)
	if !validTypeCode(tc) {
		return Field{}, fmt.Errorf("field %q: unrecognized type code %q", tf.Name, tf.Type)
	}
	return Field{
		Name:         tf.Name,
		TypeCode:     tc,
		Nullable:     tf.Nullable,
		IsIdentifier: tf.IsIdentifier,
		Generated:    tf.Generated,
	}, nil
}

func convertCompositeIndex(e *Entity, tc tomlCompositeIdx) (CompositeIndex, error) {
	kind := CompositeIndexKind(tc.Kind)
	if kind != CompositeIndexHash && kind != CompositeIndexRange {
		return CompositeIndex{}, fmt.Errorf("composite index kind %q must be hash or range", tc.Kind)
	}
	if len(tc.Fields) < 2 {
		return CompositeIndex{}, errs.Newf("schema.LoadTOML", errs.InvalidArgument, "composite index needs at least 2 columns, got %d", len(tc.Fields))
	}
	seen := make(map[string]bool, len(tc.Fields))
	for _, name := range tc.Fields {
		if seen[name] {
			return CompositeIndex{}, fmt.Errorf("composite index declares duplicate field %q", name)
		}
		seen[name] = true
		if e.FieldByName(name) == nil {
			return CompositeIndex{}, fmt.Errorf("composite index references non-persisted field %q", name)
		}
	}
	return CompositeIndex{Fields: append([]string(nil), tc.Fields...), Kind: kind}, nil
}

func validTypeCode(tc typecode.Code) bool {
	switch tc {
	case typecode.Int8, typecode.Int16, typecode.Int32, typecode.Int64,
		typecode.Float32, typecode.Float64, typecode.Bool, typecode.Char,
		typecode.String, typecode.BigDec, typecode.BigInt,
		typecode.Instant, typecode.Date, typecode.DateTime, typecode.LocalDate:
		return true
	default:
		return false
	}
}
