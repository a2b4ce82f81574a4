package store

import "github.com/roach88/briefcase/internal/ids"

// ClassKind is the modelling role of a class.
type ClassKind string

const (
	KindEntity       ClassKind = "entity"
	KindRelationship ClassKind = "relationship"
	KindAspect       ClassKind = "aspect"
)

// ValidClassKinds lists the allowed class kinds.
var ValidClassKinds = map[ClassKind]bool{
	KindEntity:       true,
	KindRelationship: true,
	KindAspect:       true,
}

// Strategy is how instances of a relationship class are stored. It is
// resolved once, when the schema is imported, and never re-derived.
type Strategy string

const (
	// StrategyNone is used by non-relationship classes.
	StrategyNone Strategy = ""
	// StrategyLinkTable stores each relationship as a row in links.
	StrategyLinkTable Strategy = "link_table"
	// StrategyNavigation stores the relationship as a foreign key column on
	// the source entity (parent_id / model_id); it has no rows of its own.
	StrategyNavigation Strategy = "navigation"
)

// Schema is an imported schema.
type Schema struct {
	ID      ids.EntityID `json:"id"`
	Name    string       `json:"name"`
	NameKey string       `json:"name_key"`
	Alias   string       `json:"alias"`
	Version string       `json:"version"`
}

// Class is a class descriptor joined with its schema name.
type Class struct {
	ID         ids.EntityID `json:"id"`
	SchemaID   ids.EntityID `json:"schema_id"`
	SchemaName string       `json:"schema_name"`
	Name       string       `json:"name"`
	NameKey    string       `json:"name_key"`
	Kind       ClassKind    `json:"kind"`
	Strategy   Strategy     `json:"strategy"`
	BaseID     ids.EntityID `json:"base_id,omitempty"`
}

// QualifiedName returns "Schema:Class".
func (c Class) QualifiedName() string {
	return c.SchemaName + ":" + c.Name
}

// Row returns the column values for an insert op.
func (c Class) Row() map[string]any {
	return map[string]any{
		"schema_id": int64(c.SchemaID),
		"name":      c.Name,
		"name_key":  c.NameKey,
		"kind":      string(c.Kind),
		"strategy":  string(c.Strategy),
		"base_id":   nullID(c.BaseID),
	}
}

// Row returns the column values for an insert op.
func (s Schema) Row() map[string]any {
	return map[string]any{
		"name":     s.Name,
		"name_key": s.NameKey,
		"alias":    s.Alias,
		"version":  s.Version,
	}
}

// Entity is one row of the entities table. A zero id field means NULL.
type Entity struct {
	ID             ids.EntityID `json:"id"`
	ClassID        ids.EntityID `json:"class_id"`
	ModelID        ids.EntityID `json:"model_id"`
	ParentID       ids.EntityID `json:"parent_id,omitempty"`
	CodeSpecID     ids.EntityID `json:"code_spec_id,omitempty"`
	CodeScopeID    ids.EntityID `json:"code_scope_id,omitempty"`
	CodeValue      string       `json:"code_value,omitempty"`
	Label          string       `json:"label,omitempty"`
	FederationGUID string       `json:"federation_guid,omitempty"`
	Props          string       `json:"props,omitempty"`
}

// HasCode reports whether the entity carries a code value.
func (e Entity) HasCode() bool {
	return e.CodeValue != ""
}

// DisplayName is the code value, falling back to the label.
func (e Entity) DisplayName() string {
	if e.CodeValue != "" {
		return e.CodeValue
	}
	return e.Label
}

// Row returns the column values for an insert op.
func (e Entity) Row() map[string]any {
	props := e.Props
	if props == "" {
		props = "{}"
	}
	row := map[string]any{
		"class_id":      int64(e.ClassID),
		"model_id":      int64(e.ModelID),
		"parent_id":     nullID(e.ParentID),
		"code_spec_id":  nullID(e.CodeSpecID),
		"code_scope_id": nullID(e.CodeScopeID),
		"code_value":    nullString(e.CodeValue),
		"label":         e.Label,
		"props":         props,
	}
	if e.FederationGUID != "" {
		row["federation_guid"] = e.FederationGUID
	}
	return row
}

// Link is one link-table relationship instance.
type Link struct {
	ID       ids.EntityID `json:"id"`
	ClassID  ids.EntityID `json:"class_id"`
	SourceID ids.EntityID `json:"source_id"`
	TargetID ids.EntityID `json:"target_id"`
}

// Row returns the column values for an insert op.
func (l Link) Row() map[string]any {
	return map[string]any{
		"class_id":  int64(l.ClassID),
		"source_id": int64(l.SourceID),
		"target_id": int64(l.TargetID),
	}
}

// CodeSpec names a code scheme.
type CodeSpec struct {
	ID        ids.EntityID `json:"id"`
	Name      string       `json:"name"`
	ScopeType string       `json:"scope_type"`
}

// Row returns the column values for an insert op.
func (c CodeSpec) Row() map[string]any {
	return map[string]any{
		"name":       c.Name,
		"scope_type": c.ScopeType,
	}
}

// Resource is a shared named resource such as a font.
type Resource struct {
	ID   ids.EntityID `json:"id"`
	Kind string       `json:"kind"`
	Name string       `json:"name"`
	Data string       `json:"data,omitempty"`
}

// Row returns the column values for an insert op.
func (r Resource) Row() map[string]any {
	return map[string]any{
		"kind": r.Kind,
		"name": r.Name,
		"data": r.Data,
	}
}

func nullID(id ids.EntityID) any {
	if id == 0 {
		return nil
	}
	return int64(id)
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
