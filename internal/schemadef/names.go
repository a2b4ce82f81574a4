package schemadef

import (
	"strings"

	"golang.org/x/text/cases"
)

// NameKey returns the case-folded lookup key for a schema or class name.
// Names compare case-insensitively; the original spelling is kept for display.
func NameKey(name string) string {
	return cases.Fold().String(strings.TrimSpace(name))
}

// SplitQualified splits "Schema:Class" (or "Schema.Class"). A bare name
// returns an empty schema.
func SplitQualified(name string) (schema, class string) {
	if i := strings.IndexAny(name, ":."); i >= 0 {
		return name[:i], name[i+1:]
	}
	return "", name
}
