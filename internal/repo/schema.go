package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/roach88/briefcase/internal/changeset"
	"github.com/roach88/briefcase/internal/ids"
	"github.com/roach88/briefcase/internal/schemadef"
	"github.com/roach88/briefcase/internal/store"
)

// ImportSchemas adds schemas and their classes. Schemas already present
// gain their missing classes and a new version string; existing classes,
// including their relationship strategies, are never changed.
// It returns the number of classes added.
func (r *Repository) ImportSchemas(ctx context.Context, tok *WriteToken, schemas []*schemadef.Schema) (int, error) {
	if err := r.checkToken(tok); err != nil {
		return 0, err
	}
	tx, err := r.begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("import schemas: %w", err)
	}
	added, err := importSchemas(ctx, &tx.Conn, r.allocate, r.write, schemas)
	r.inserters.Clear()
	if err != nil {
		return 0, err
	}
	r.logger.Info("schemas imported", "schemas", len(schemas), "classes", added)
	return added, nil
}

type emitFunc func(ctx context.Context, op changeset.Op) error

// importSchemas writes schema and class rows through emit, allocating their
// ids with allocate. Reads go through conn, which must see emitted rows.
func importSchemas(ctx context.Context, conn *store.Conn, allocate func() (ids.EntityID, error), emit emitFunc, schemas []*schemadef.Schema) (int, error) {
	if verrs := schemadef.Validate(schemas); len(verrs) > 0 {
		errs := make([]error, len(verrs))
		for i, v := range verrs {
			errs[i] = v
		}
		return 0, fmt.Errorf("import schemas: %w", errors.Join(errs...))
	}

	added := 0
	for _, s := range schemas {
		n, err := importSchema(ctx, conn, allocate, emit, s)
		if err != nil {
			return added, fmt.Errorf("import schema %s: %w", s.Name, err)
		}
		added += n
	}
	return added, nil
}

func importSchema(ctx context.Context, conn *store.Conn, allocate func() (ids.EntityID, error), emit emitFunc, s *schemadef.Schema) (int, error) {
	key := schemadef.NameKey(s.Name)
	existing, found, err := conn.SchemaByName(ctx, key)
	if err != nil {
		return 0, err
	}

	schemaID := existing.ID
	switch {
	case !found:
		if schemaID, err = allocate(); err != nil {
			return 0, err
		}
		row := store.Schema{Name: s.Name, NameKey: key, Alias: s.Alias, Version: s.Version}.Row()
		if err := emit(ctx, changeset.Op{Kind: changeset.Insert, Table: store.TableSchemas, ID: schemaID, Row: row}); err != nil {
			return 0, err
		}
	case existing.Version != s.Version:
		if err := emit(ctx, changeset.Op{Kind: changeset.Update, Table: store.TableSchemas, ID: schemaID,
			Row: map[string]any{"version": s.Version}}); err != nil {
			return 0, err
		}
	}

	// Allocate every new class first so bases can point forward.
	local := make(map[string]ids.EntityID)
	var pending []schemadef.ClassDef
	for _, c := range s.Classes {
		ck := schemadef.NameKey(c.Name)
		if found {
			cls, ok, err := conn.ClassByName(ctx, key, ck)
			if err != nil {
				return 0, err
			}
			if ok {
				local[ck] = cls.ID
				continue
			}
		}
		id, err := allocate()
		if err != nil {
			return 0, err
		}
		local[ck] = id
		pending = append(pending, c)
	}

	for _, c := range pending {
		baseID, err := resolveBase(ctx, conn, key, local, c.Base)
		if err != nil {
			return 0, fmt.Errorf("class %s: %w", c.Name, err)
		}
		ck := schemadef.NameKey(c.Name)
		row := store.Class{
			SchemaID: schemaID,
			Name:     c.Name,
			NameKey:  ck,
			Kind:     c.Kind,
			Strategy: c.Strategy,
			BaseID:   baseID,
		}.Row()
		if err := emit(ctx, changeset.Op{Kind: changeset.Insert, Table: store.TableClasses, ID: local[ck], Row: row}); err != nil {
			return 0, err
		}
	}
	return len(pending), nil
}

func resolveBase(ctx context.Context, conn *store.Conn, schemaKey string, local map[string]ids.EntityID, base string) (ids.EntityID, error) {
	if base == "" {
		return 0, nil
	}
	schema, class := schemadef.SplitQualified(base)
	sk, ck := schemadef.NameKey(schema), schemadef.NameKey(class)
	if sk == "" || sk == schemaKey {
		if id, ok := local[ck]; ok {
			return id, nil
		}
		sk = schemaKey
	}
	cls, ok, err := conn.ClassByName(ctx, sk, ck)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, fmt.Errorf("base class %q: %w", base, store.ErrNotFound)
	}
	return cls.ID, nil
}
