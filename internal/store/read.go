package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/briefcase/internal/ids"
)

// MaxIDInRange returns the largest id in [lo, hi] across every id-bearing
// table. found is false when the window is empty.
// Implements ids.RangeScanner.
func (c *Conn) MaxIDInRange(ctx context.Context, lo, hi ids.EntityID) (ids.EntityID, bool, error) {
	var max sql.NullInt64
	err := c.q.QueryRowContext(ctx, `
		SELECT MAX(id) FROM (
			SELECT MAX(id) AS id FROM schemas    WHERE id BETWEEN ?1 AND ?2
			UNION ALL
			SELECT MAX(id) FROM classes          WHERE id BETWEEN ?1 AND ?2
			UNION ALL
			SELECT MAX(id) FROM entities         WHERE id BETWEEN ?1 AND ?2
			UNION ALL
			SELECT MAX(id) FROM links            WHERE id BETWEEN ?1 AND ?2
			UNION ALL
			SELECT MAX(id) FROM code_specs       WHERE id BETWEEN ?1 AND ?2
			UNION ALL
			SELECT MAX(id) FROM resources        WHERE id BETWEEN ?1 AND ?2
		)
	`, int64(lo), int64(hi)).Scan(&max)
	if err != nil {
		return 0, false, fmt.Errorf("max id in [%s, %s]: %w", lo, hi, err)
	}
	if !max.Valid {
		return 0, false, nil
	}
	return ids.EntityID(max.Int64), true, nil
}

// CountRows returns the number of rows in an id-bearing table.
func (c *Conn) CountRows(ctx context.Context, table string) (int, error) {
	if _, ok := tableColumns[table]; !ok {
		return 0, fmt.Errorf("count rows: %w: %q", ErrUnknownTable, table)
	}
	var n int
	if err := c.q.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w", table, err)
	}
	return n, nil
}

// Exists reports whether table has a row with id.
func (c *Conn) Exists(ctx context.Context, table string, id ids.EntityID) (bool, error) {
	if _, ok := tableColumns[table]; !ok {
		return false, fmt.Errorf("exists: %w: %q", ErrUnknownTable, table)
	}
	var n int
	err := c.q.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table+" WHERE id = ?", int64(id)).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("exists %s %s: %w", table, id, err)
	}
	return n > 0, nil
}

// found converts sql.ErrNoRows into ok=false.
func found(err error) (bool, error) {
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Schemas

// SchemaByName finds a schema by its case-folded name key.
func (c *Conn) SchemaByName(ctx context.Context, nameKey string) (Schema, bool, error) {
	var s Schema
	var id int64
	err := c.q.QueryRowContext(ctx, `
		SELECT id, name, name_key, alias, version FROM schemas WHERE name_key = ?
	`, nameKey).Scan(&id, &s.Name, &s.NameKey, &s.Alias, &s.Version)
	ok, err := found(err)
	if err != nil {
		return Schema{}, false, fmt.Errorf("read schema %q: %w", nameKey, err)
	}
	s.ID = ids.EntityID(id)
	return s, ok, nil
}

// Schemas returns all schemas ordered by id.
func (c *Conn) Schemas(ctx context.Context) ([]Schema, error) {
	rows, err := c.q.QueryContext(ctx, `
		SELECT id, name, name_key, alias, version FROM schemas ORDER BY id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query schemas: %w", err)
	}
	defer rows.Close()

	schemas := []Schema{}
	for rows.Next() {
		var s Schema
		var id int64
		if err := rows.Scan(&id, &s.Name, &s.NameKey, &s.Alias, &s.Version); err != nil {
			return nil, fmt.Errorf("scan schema: %w", err)
		}
		s.ID = ids.EntityID(id)
		schemas = append(schemas, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate schemas: %w", err)
	}
	return schemas, nil
}

// Classes

const classColumns = `
	c.id, c.schema_id, s.name, c.name, c.name_key, c.kind, c.strategy, c.base_id
	FROM classes c JOIN schemas s ON s.id = c.schema_id`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanClass(row rowScanner) (Class, error) {
	var (
		c            Class
		id, schemaID int64
		base         sql.NullInt64
		kind, strat  string
	)
	if err := row.Scan(&id, &schemaID, &c.SchemaName, &c.Name, &c.NameKey, &kind, &strat, &base); err != nil {
		return Class{}, err
	}
	c.ID = ids.EntityID(id)
	c.SchemaID = ids.EntityID(schemaID)
	c.Kind = ClassKind(kind)
	c.Strategy = Strategy(strat)
	if base.Valid {
		c.BaseID = ids.EntityID(base.Int64)
	}
	return c, nil
}

// ClassByID reads a class descriptor.
func (c *Conn) ClassByID(ctx context.Context, id ids.EntityID) (Class, bool, error) {
	cls, err := scanClass(c.q.QueryRowContext(ctx, `SELECT `+classColumns+` WHERE c.id = ?`, int64(id)))
	ok, err := found(err)
	if err != nil {
		return Class{}, false, fmt.Errorf("read class %s: %w", id, err)
	}
	return cls, ok, nil
}

// ClassByName finds a class by case-folded schema and class name keys.
func (c *Conn) ClassByName(ctx context.Context, schemaKey, nameKey string) (Class, bool, error) {
	cls, err := scanClass(c.q.QueryRowContext(ctx,
		`SELECT `+classColumns+` WHERE s.name_key = ? AND c.name_key = ?`, schemaKey, nameKey))
	ok, err := found(err)
	if err != nil {
		return Class{}, false, fmt.Errorf("read class %s:%s: %w", schemaKey, nameKey, err)
	}
	return cls, ok, nil
}

// Classes returns all class descriptors ordered by id.
func (c *Conn) Classes(ctx context.Context) ([]Class, error) {
	rows, err := c.q.QueryContext(ctx, `SELECT `+classColumns+` ORDER BY c.id ASC`)
	if err != nil {
		return nil, fmt.Errorf("query classes: %w", err)
	}
	defer rows.Close()

	classes := []Class{}
	for rows.Next() {
		cls, err := scanClass(rows)
		if err != nil {
			return nil, fmt.Errorf("scan class: %w", err)
		}
		classes = append(classes, cls)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate classes: %w", err)
	}
	return classes, nil
}

// Entities

const entityColumns = `
	id, class_id, model_id, parent_id, code_spec_id, code_scope_id,
	code_value, label, federation_guid, props
	FROM entities`

func scanEntity(row rowScanner) (Entity, error) {
	var (
		e                     Entity
		id, classID, modelID  int64
		parent, spec, scope   sql.NullInt64
		codeValue, federation sql.NullString
	)
	if err := row.Scan(&id, &classID, &modelID, &parent, &spec, &scope,
		&codeValue, &e.Label, &federation, &e.Props); err != nil {
		return Entity{}, err
	}
	e.ID = ids.EntityID(id)
	e.ClassID = ids.EntityID(classID)
	e.ModelID = ids.EntityID(modelID)
	e.ParentID = ids.EntityID(parent.Int64)
	e.CodeSpecID = ids.EntityID(spec.Int64)
	e.CodeScopeID = ids.EntityID(scope.Int64)
	e.CodeValue = codeValue.String
	e.FederationGUID = federation.String
	return e, nil
}

// EntityByID reads one entity.
func (c *Conn) EntityByID(ctx context.Context, id ids.EntityID) (Entity, bool, error) {
	e, err := scanEntity(c.q.QueryRowContext(ctx, `SELECT `+entityColumns+` WHERE id = ?`, int64(id)))
	ok, err := found(err)
	if err != nil {
		return Entity{}, false, fmt.Errorf("read entity %s: %w", id, err)
	}
	return e, ok, nil
}

// EntityByFederationGUID finds the entity carrying guid.
func (c *Conn) EntityByFederationGUID(ctx context.Context, guid string) (Entity, bool, error) {
	e, err := scanEntity(c.q.QueryRowContext(ctx, `SELECT `+entityColumns+` WHERE federation_guid = ?`, guid))
	ok, err := found(err)
	if err != nil {
		return Entity{}, false, fmt.Errorf("read entity by federation guid %s: %w", guid, err)
	}
	return e, ok, nil
}

// EntitiesInModel returns the entities of a model ordered by id.
func (c *Conn) EntitiesInModel(ctx context.Context, modelID ids.EntityID) ([]Entity, error) {
	rows, err := c.q.QueryContext(ctx, `SELECT `+entityColumns+` WHERE model_id = ? ORDER BY id ASC`, int64(modelID))
	if err != nil {
		return nil, fmt.Errorf("query entities in model %s: %w", modelID, err)
	}
	defer rows.Close()

	entities := []Entity{}
	for rows.Next() {
		e, err := scanEntity(rows)
		if err != nil {
			return nil, fmt.Errorf("scan entity: %w", err)
		}
		entities = append(entities, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate entities: %w", err)
	}
	return entities, nil
}

// Links

// LinksFrom returns the link-table relationships of class leaving source.
func (c *Conn) LinksFrom(ctx context.Context, classID, sourceID ids.EntityID) ([]Link, error) {
	rows, err := c.q.QueryContext(ctx, `
		SELECT id, class_id, source_id, target_id FROM links
		WHERE class_id = ? AND source_id = ?
		ORDER BY id ASC
	`, int64(classID), int64(sourceID))
	if err != nil {
		return nil, fmt.Errorf("query links: %w", err)
	}
	defer rows.Close()

	links := []Link{}
	for rows.Next() {
		var id, cls, src, dst int64
		if err := rows.Scan(&id, &cls, &src, &dst); err != nil {
			return nil, fmt.Errorf("scan link: %w", err)
		}
		links = append(links, Link{
			ID: ids.EntityID(id), ClassID: ids.EntityID(cls),
			SourceID: ids.EntityID(src), TargetID: ids.EntityID(dst),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate links: %w", err)
	}
	return links, nil
}

// Code specs

// CodeSpecByID reads one code spec.
func (c *Conn) CodeSpecByID(ctx context.Context, id ids.EntityID) (CodeSpec, bool, error) {
	var cs CodeSpec
	var raw int64
	err := c.q.QueryRowContext(ctx, `
		SELECT id, name, scope_type FROM code_specs WHERE id = ?
	`, int64(id)).Scan(&raw, &cs.Name, &cs.ScopeType)
	ok, err := found(err)
	if err != nil {
		return CodeSpec{}, false, fmt.Errorf("read code spec %s: %w", id, err)
	}
	cs.ID = ids.EntityID(raw)
	return cs, ok, nil
}

// CodeSpecByName finds a code spec by exact name.
func (c *Conn) CodeSpecByName(ctx context.Context, name string) (CodeSpec, bool, error) {
	var cs CodeSpec
	var raw int64
	err := c.q.QueryRowContext(ctx, `
		SELECT id, name, scope_type FROM code_specs WHERE name = ?
	`, name).Scan(&raw, &cs.Name, &cs.ScopeType)
	ok, err := found(err)
	if err != nil {
		return CodeSpec{}, false, fmt.Errorf("read code spec %q: %w", name, err)
	}
	cs.ID = ids.EntityID(raw)
	return cs, ok, nil
}

// Resources

// ResourceByID reads one resource.
func (c *Conn) ResourceByID(ctx context.Context, id ids.EntityID) (Resource, bool, error) {
	var r Resource
	var raw int64
	err := c.q.QueryRowContext(ctx, `
		SELECT id, kind, name, data FROM resources WHERE id = ?
	`, int64(id)).Scan(&raw, &r.Kind, &r.Name, &r.Data)
	ok, err := found(err)
	if err != nil {
		return Resource{}, false, fmt.Errorf("read resource %s: %w", id, err)
	}
	r.ID = ids.EntityID(raw)
	return r, ok, nil
}

// ResourceByName finds a resource by kind and name.
func (c *Conn) ResourceByName(ctx context.Context, kind, name string) (Resource, bool, error) {
	var r Resource
	var raw int64
	err := c.q.QueryRowContext(ctx, `
		SELECT id, kind, name, data FROM resources WHERE kind = ? AND name = ?
	`, kind, name).Scan(&raw, &r.Kind, &r.Name, &r.Data)
	ok, err := found(err)
	if err != nil {
		return Resource{}, false, fmt.Errorf("read resource %s/%s: %w", kind, name, err)
	}
	r.ID = ids.EntityID(raw)
	return r, ok, nil
}
