package schemadef

import (
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/briefcase/internal/store"
)

// Schema is a compiled schema definition.
type Schema struct {
	Name    string
	Alias   string
	Version string
	Classes []ClassDef
}

// ClassDef is one class of a schema, in declaration order.
type ClassDef struct {
	Name     string
	Kind     store.ClassKind
	Strategy store.Strategy
	// Base is "Class" (same schema) or "Schema:Class"; empty for roots.
	Base string
}

// Class returns the class named name, compared case-insensitively.
func (s *Schema) Class(name string) (ClassDef, bool) {
	key := NameKey(name)
	for _, c := range s.Classes {
		if NameKey(c.Name) == key {
			return c, true
		}
	}
	return ClassDef{}, false
}

// CompileFile reads and compiles a CUE definition file.
func CompileFile(path string) ([]*Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read schema file: %w", err)
	}
	return CompileSource(path, data)
}

// CompileSource compiles every schema declared in src, in declaration order.
func CompileSource(filename string, src []byte) ([]*Schema, error) {
	ctx := cuecontext.New()
	v := ctx.CompileBytes(src, cue.Filename(filename))
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	root := v.LookupPath(cue.ParsePath("schema"))
	if !root.Exists() {
		return nil, &CompileError{Field: "schema", Message: "no schema declared", Pos: v.Pos()}
	}

	iter, err := root.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var schemas []*Schema
	for iter.Next() {
		s, err := Compile(iter.Value())
		if err != nil {
			return nil, err
		}
		schemas = append(schemas, s)
	}
	return schemas, nil
}

// Compile parses a single schema struct, e.g. the value at "schema.Core".
func Compile(v cue.Value) (*Schema, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	s := &Schema{}
	labels := v.Path().Selectors()
	if len(labels) > 0 {
		s.Name = labels[len(labels)-1].String()
	}

	version, err := requiredString(v, "version")
	if err != nil {
		return nil, err
	}
	s.Version = version

	if s.Alias, err = optionalString(v, "alias"); err != nil {
		return nil, err
	}

	classVal := v.LookupPath(cue.ParsePath("class"))
	if !classVal.Exists() {
		return s, nil
	}
	iter, err := classVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}
	for iter.Next() {
		c, err := compileClass(iter.Label(), iter.Value())
		if err != nil {
			return nil, err
		}
		s.Classes = append(s.Classes, c)
	}

	return s, nil
}

func compileClass(name string, v cue.Value) (ClassDef, error) {
	c := ClassDef{Name: name, Kind: store.KindEntity}

	kind, err := optionalString(v, "kind")
	if err != nil {
		return c, err
	}
	if kind != "" {
		c.Kind = store.ClassKind(kind)
	}

	strategy, err := optionalString(v, "strategy")
	if err != nil {
		return c, err
	}
	c.Strategy = store.Strategy(strategy)

	if c.Base, err = optionalString(v, "base"); err != nil {
		return c, err
	}
	return c, nil
}

func requiredString(v cue.Value, field string) (string, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return "", &CompileError{Field: field, Message: field + " is required", Pos: v.Pos()}
	}
	s, err := fv.String()
	if err != nil {
		return "", formatCUEError(err)
	}
	return s, nil
}

func optionalString(v cue.Value, field string) (string, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return "", nil
	}
	s, err := fv.String()
	if err != nil {
		return "", formatCUEError(err)
	}
	return s, nil
}

// CompileError reports a malformed definition with its source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	first := errs[0]
	positions := errors.Positions(first)
	if len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: first.Error(),
			Pos:     positions[0],
		}
	}
	return err
}
