package schemadef

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/briefcase/internal/store"
)

func codes(errs []ValidationError) []string {
	out := make([]string, len(errs))
	for i, e := range errs {
		out[i] = e.Code
	}
	return out
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		schema *Schema
		want   []string
	}{
		{
			name:   "missing version",
			schema: &Schema{Name: "S"},
			want:   []string{ErrSchemaVersionEmpty},
		},
		{
			name:   "missing name",
			schema: &Schema{Version: "1"},
			want:   []string{ErrSchemaNameEmpty},
		},
		{
			name: "invalid kind",
			schema: &Schema{Name: "S", Version: "1", Classes: []ClassDef{
				{Name: "X", Kind: "struct"},
			}},
			want: []string{ErrInvalidClassKind},
		},
		{
			name: "relationship without strategy",
			schema: &Schema{Name: "S", Version: "1", Classes: []ClassDef{
				{Name: "R", Kind: store.KindRelationship},
			}},
			want: []string{ErrMissingStrategy},
		},
		{
			name: "strategy on entity",
			schema: &Schema{Name: "S", Version: "1", Classes: []ClassDef{
				{Name: "E", Kind: store.KindEntity, Strategy: store.StrategyNavigation},
			}},
			want: []string{ErrUnexpectedStrategy},
		},
		{
			name: "duplicate folded class names",
			schema: &Schema{Name: "S", Version: "1", Classes: []ClassDef{
				{Name: "Pump", Kind: store.KindEntity},
				{Name: "PUMP", Kind: store.KindEntity},
			}},
			want: []string{ErrDuplicateClass},
		},
		{
			name: "unknown local base",
			schema: &Schema{Name: "S", Version: "1", Classes: []ClassDef{
				{Name: "A", Kind: store.KindEntity, Base: "S:Missing"},
			}},
			want: []string{ErrUnknownBase},
		},
		{
			name: "foreign base is deferred",
			schema: &Schema{Name: "S", Version: "1", Classes: []ClassDef{
				{Name: "A", Kind: store.KindEntity, Base: "Core:Element"},
			}},
			want: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, codes(Validate([]*Schema{tt.schema})))
		})
	}
}

func TestValidate_DuplicateSchemas(t *testing.T) {
	errs := Validate([]*Schema{
		{Name: "Plant", Version: "1"},
		{Name: "plant", Version: "2"},
	})
	assert.Equal(t, []string{ErrDuplicateSchema}, codes(errs))
}

func TestValidationError_Error(t *testing.T) {
	e := ValidationError{Schema: "S", Field: "class.X", Message: "bad", Code: ErrInvalidClassKind}
	assert.Equal(t, "[E103] S: class.X: bad", e.Error())
}
