package schema_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"memris/errs"
	"memris/schema"
)

const validDoc = `
[[entities]]
name = "user"

[[entities.fields]]
name = "id"
type = "i64"
is_identifier = true
generated = true

[[entities.fields]]
name = "email"
type = "string"

[[entities.fields]]
name = "age"
type = "i32"
nullable = true

[[entities.indexes]]
field = "email"
kind = "hash"

[[entities.composite_indexes]]
fields = ["email", "age"]
kind = "range"
`

func TestLoadTOMLValidDocument(t *testing.T) {
	entities, err := schema.LoadTOML(strings.NewReader(validDoc))
	require.NoError(t, err)
	require.Len(t, entities, 1)

	e := entities[0]
	require.Equal(t, "user", e.Name)
	require.NotNil(t, e.IdentifierField())
	require.Equal(t, "id", e.IdentifierField().Name)
	require.Len(t, e.FieldIndexes, 1)
	require.Equal(t, schema.IndexHash, e.FieldIndexes[0].Kind)
	require.Len(t, e.CompositeIndexes, 1)
	require.Equal(t, schema.CompositeIndexRange, e.CompositeIndexes[0].Kind)
}

func TestLoadTOMLRejectsDuplicateCompositeField(t *testing.T) {
	doc := `
[[entities]]
name = "user"

[[entities.fields]]
name = "id"
type = "i64"
is_identifier = true

[[entities.fields]]
name = "email"
type = "string"

[[entities.composite_indexes]]
fields = ["email", "email"]
kind = "hash"
`
	_, err := schema.LoadTOML(strings.NewReader(doc))
	require.Error(t, err)
	require.True(t, errs.Is(err, errs.SchemaMismatch))
}

func TestLoadTOMLRejectsNonPersistedCompositeField(t *testing.T) {
	doc := `
[[entities]]
name = "user"

[[entities.fields]]
name = "id"
type = "i64"
is_identifier = true

[[entities.fields]]
name = "email"
type = "string"

[[entities.composite_indexes]]
fields = ["email", "ghost"]
kind = "hash"
`
	_, err := schema.LoadTOML(strings.NewReader(doc))
	require.Error(t, err)
	require.True(t, errs.Is(err, errs.SchemaMismatch))
}

func TestLoadTOMLRejectsShortCompositeIndexAsInvalidArgument(t *testing.T) {
	doc := `
[[entities]]
name = "user"

[[entities.fields]]
name = "id"
type = "i64"
is_identifier = true

[[entities.fields]]
name = "email"
type = "string"

[[entities.composite_indexes]]
fields = ["email"]
kind = "hash"
`
	_, err := schema.LoadTOML(strings.NewReader(doc))
	require.Error(t, err)
	require.True(t, errs.Is(err, errs.InvalidArgument))
}

func TestLoadTOMLRejectsUnknownTypeCode(t *testing.T) {
	doc := `
[[entities]]
name = "user"

[[entities.fields]]
name = "id"
type = "uuid"
is_identifier = true
`
	_, err := schema.LoadTOML(strings.NewReader(doc))
	require.Error(t, err)
	require.True(t, errs.Is(err, errs.SchemaMismatch))
}

func TestLoadTOMLRejectsMissingIdentifier(t *testing.T) {
	doc := `
[[entities]]
name = "user"

[[entities.fields]]
name = "email"
type = "string"
`
	_, err := schema.LoadTOML(strings.NewReader(doc))
	require.Error(t, err)
	require.True(t, errs.Is(err, errs.SchemaMismatch))
}
