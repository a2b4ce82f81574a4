package schemadef

import (
	_ "embed"
	"fmt"
)

//go:embed core.cue
var coreCUE []byte

// Core class names referenced by the repository layer.
const (
	CoreSchema               = "Core"
	ClassSubject             = "Subject"
	ClassDefinitionPartition = "DefinitionPartition"
	ClassLinkPartition       = "LinkPartition"
	ClassPhysicalElement     = "PhysicalElement"
	ClassRefersTo            = "ElementRefersToElements"
	ClassOwnsChild           = "ElementOwnsChildElements"
)

// Core returns the compiled core schema.
func Core() (*Schema, error) {
	schemas, err := CompileSource("core.cue", coreCUE)
	if err != nil {
		return nil, fmt.Errorf("compile core schema: %w", err)
	}
	if len(schemas) != 1 {
		return nil, fmt.Errorf("compile core schema: expected one schema, got %d", len(schemas))
	}
	return schemas[0], nil
}
