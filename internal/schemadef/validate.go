package schemadef

import (
	"fmt"

	"github.com/roach88/briefcase/internal/store"
)

// Validation error codes (E100-E119)
const (
	ErrSchemaNameEmpty    = "E101" // schema name is required
	ErrSchemaVersionEmpty = "E102" // schema version is required
	ErrInvalidClassKind   = "E103" // kind must be entity, relationship or aspect
	ErrMissingStrategy    = "E104" // relationship without a storage strategy
	ErrUnexpectedStrategy = "E105" // strategy on a non-relationship class
	ErrDuplicateClass     = "E106" // two classes fold to the same name key
	ErrUnknownBase        = "E107" // base class not declared in the schema
	ErrDuplicateSchema    = "E108" // two schemas fold to the same name key
)

// ValidationError is one problem found in a compiled schema.
type ValidationError struct {
	Schema  string `json:"schema"`
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s: %s: %s", e.Code, e.Schema, e.Field, e.Message)
}

// Validate checks compiled schemas. It returns every problem found.
// Qualified bases ("Other:Class") naming another schema are left to the
// importer, which can see schemas already in the repository.
func Validate(schemas []*Schema) []ValidationError {
	var errs []ValidationError
	seen := map[string]bool{}

	for _, s := range schemas {
		key := NameKey(s.Name)
		if key == "" {
			errs = append(errs, ValidationError{Field: "name", Message: "schema name is required", Code: ErrSchemaNameEmpty})
		} else if seen[key] {
			errs = append(errs, ValidationError{Schema: s.Name, Field: "name", Message: "duplicate schema", Code: ErrDuplicateSchema})
		}
		seen[key] = true
		errs = append(errs, validateSchema(s)...)
	}
	return errs
}

func validateSchema(s *Schema) []ValidationError {
	var errs []ValidationError
	fail := func(field, msg, code string) {
		errs = append(errs, ValidationError{Schema: s.Name, Field: field, Message: msg, Code: code})
	}

	if s.Version == "" {
		fail("version", "version is required", ErrSchemaVersionEmpty)
	}

	classes := map[string]bool{}
	for _, c := range s.Classes {
		key := NameKey(c.Name)
		if classes[key] {
			fail("class."+c.Name, "duplicate class name", ErrDuplicateClass)
		}
		classes[key] = true
	}

	for _, c := range s.Classes {
		field := "class." + c.Name
		if !store.ValidClassKinds[c.Kind] {
			fail(field, fmt.Sprintf("invalid kind %q", c.Kind), ErrInvalidClassKind)
			continue
		}
		switch {
		case c.Kind == store.KindRelationship && c.Strategy != store.StrategyLinkTable && c.Strategy != store.StrategyNavigation:
			fail(field, fmt.Sprintf("relationship strategy must be %q or %q, got %q",
				store.StrategyLinkTable, store.StrategyNavigation, c.Strategy), ErrMissingStrategy)
		case c.Kind != store.KindRelationship && c.Strategy != store.StrategyNone:
			fail(field, "strategy is only valid on relationships", ErrUnexpectedStrategy)
		}

		if c.Base == "" {
			continue
		}
		schema, base := SplitQualified(c.Base)
		if schema != "" && NameKey(schema) != NameKey(s.Name) {
			continue
		}
		if !classes[NameKey(base)] {
			fail(field+".base", fmt.Sprintf("unknown base class %q", c.Base), ErrUnknownBase)
		}
	}
	return errs
}
