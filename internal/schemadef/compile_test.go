package schemadef

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/briefcase/internal/store"
)

func TestCompileSource_Basic(t *testing.T) {
	schemas, err := CompileSource("plant.cue", []byte(`
		schema: Plant: {
			alias: "pl"
			version: "1.2.0"
			class: Pump: {kind: "entity", base: "Core:PhysicalElement"}
			class: Valve: {base: "Pump"}
			class: PumpFeedsPump: {kind: "relationship", strategy: "link_table"}
		}
	`))
	require.NoError(t, err)
	require.Len(t, schemas, 1)

	s := schemas[0]
	assert.Equal(t, "Plant", s.Name)
	assert.Equal(t, "pl", s.Alias)
	assert.Equal(t, "1.2.0", s.Version)
	require.Len(t, s.Classes, 3)
	assert.Equal(t, "Pump", s.Classes[0].Name)
	assert.Equal(t, store.KindEntity, s.Classes[1].Kind, "kind defaults to entity")
	assert.Equal(t, store.StrategyLinkTable, s.Classes[2].Strategy)

	c, ok := s.Class("VALVE")
	require.True(t, ok)
	assert.Equal(t, "Pump", c.Base)

	assert.Empty(t, Validate(schemas))
}

func TestCompileSource_MultipleSchemasInOrder(t *testing.T) {
	schemas, err := CompileSource("two.cue", []byte(`
		schema: B: {version: "1"}
		schema: A: {version: "2"}
	`))
	require.NoError(t, err)
	require.Len(t, schemas, 2)
	assert.Equal(t, "B", schemas[0].Name)
	assert.Equal(t, "A", schemas[1].Name)
}

func TestCompileSource_MissingVersion(t *testing.T) {
	_, err := CompileSource("bad.cue", []byte(`schema: Bad: {class: X: {}}`))
	require.Error(t, err)

	var ce *CompileError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "version", ce.Field)
}

func TestCompileSource_NoSchema(t *testing.T) {
	_, err := CompileSource("empty.cue", []byte(`other: 1`))
	var ce *CompileError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "schema", ce.Field)
}

func TestCompileSource_SyntaxErrorHasPosition(t *testing.T) {
	_, err := CompileSource("broken.cue", []byte("schema: {\n  X: \n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken.cue")
}

func TestCompileSource_WrongType(t *testing.T) {
	_, err := CompileSource("bad.cue", []byte(`schema: S: {version: 3}`))
	assert.Error(t, err)
}

func TestCompileFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "s.cue")
	require.NoError(t, os.WriteFile(path, []byte(`schema: S: {version: "1"}`), 0o644))

	schemas, err := CompileFile(path)
	require.NoError(t, err)
	require.Len(t, schemas, 1)

	_, err = CompileFile(filepath.Join(t.TempDir(), "missing.cue"))
	assert.Error(t, err)
}

func TestCore(t *testing.T) {
	core, err := Core()
	require.NoError(t, err)
	assert.Equal(t, CoreSchema, core.Name)
	assert.Empty(t, Validate([]*Schema{core}))

	for _, name := range []string{ClassSubject, ClassDefinitionPartition, ClassLinkPartition, ClassPhysicalElement} {
		_, ok := core.Class(name)
		assert.True(t, ok, name)
	}
	refers, _ := core.Class(ClassRefersTo)
	assert.Equal(t, store.StrategyLinkTable, refers.Strategy)
	owns, _ := core.Class(ClassOwnsChild)
	assert.Equal(t, store.StrategyNavigation, owns.Strategy)
}

func TestNameKey(t *testing.T) {
	assert.Equal(t, NameKey("Element"), NameKey("ELEMENT"))
	assert.Equal(t, "core", NameKey("  Core "))
}

func TestSplitQualified(t *testing.T) {
	s, c := SplitQualified("Core:Element")
	assert.Equal(t, "Core", s)
	assert.Equal(t, "Element", c)

	s, c = SplitQualified("Core.Element")
	assert.Equal(t, "Core", s)
	assert.Equal(t, "Element", c)

	s, c = SplitQualified("Element")
	assert.Empty(t, s)
	assert.Equal(t, "Element", c)
}
