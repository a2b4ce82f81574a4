package repo

import (
	"context"
	"fmt"

	"github.com/roach88/briefcase/internal/changeset"
	"github.com/roach88/briefcase/internal/concurrency"
	"github.com/roach88/briefcase/internal/ids"
	"github.com/roach88/briefcase/internal/store"
)

// InsertEntity allocates an id and inserts e. e.ClassID must name an entity
// class. A code value is reserved through the coordinator first. On layouts
// with federation GUIDs a missing one is generated.
func (r *Repository) InsertEntity(ctx context.Context, tok *WriteToken, e store.Entity) (ids.EntityID, error) {
	if err := r.checkToken(tok); err != nil {
		return 0, err
	}
	ins, err := r.inserters.get(ctx, r.conn(), e.ClassID)
	if err != nil {
		return 0, fmt.Errorf("insert entity: %w", err)
	}

	if e.HasCode() {
		code := concurrency.Code{SpecID: e.CodeSpecID, ScopeID: e.CodeScopeID, Value: e.CodeValue}
		if err := r.reservations.Reserve(ctx, r.coord, r.replica, code); err != nil {
			return 0, fmt.Errorf("insert entity: %w", err)
		}
	}
	if r.federation && e.FederationGUID == "" {
		e.FederationGUID = r.newGUID()
	}
	if !r.federation {
		e.FederationGUID = ""
	}

	id, err := r.allocate()
	if err != nil {
		return 0, fmt.Errorf("insert entity: %w", err)
	}
	op, err := ins.entityOp(id, e)
	if err != nil {
		return 0, err
	}
	if err := r.write(ctx, op); err != nil {
		return 0, fmt.Errorf("insert entity: %w", err)
	}
	return id, nil
}

// UpdateEntity changes columns of an existing entity after locking it.
func (r *Repository) UpdateEntity(ctx context.Context, tok *WriteToken, id ids.EntityID, changes map[string]any) error {
	if err := r.checkToken(tok); err != nil {
		return err
	}
	if _, ok := changes["id"]; ok {
		return fmt.Errorf("update entity %s: id cannot change", id)
	}
	if err := r.reservations.Lock(ctx, r.coord, r.replica, id); err != nil {
		return fmt.Errorf("update entity %s: %w", id, err)
	}
	if err := r.write(ctx, changeset.Op{Kind: changeset.Update, Table: store.TableEntities, ID: id, Row: changes}); err != nil {
		return fmt.Errorf("update entity: %w", err)
	}
	return nil
}

// DeleteEntity removes an entity after locking it.
func (r *Repository) DeleteEntity(ctx context.Context, tok *WriteToken, id ids.EntityID) error {
	if err := r.checkToken(tok); err != nil {
		return err
	}
	if err := r.reservations.Lock(ctx, r.coord, r.replica, id); err != nil {
		return fmt.Errorf("delete entity %s: %w", id, err)
	}
	if err := r.write(ctx, changeset.Op{Kind: changeset.Delete, Table: store.TableEntities, ID: id}); err != nil {
		return fmt.Errorf("delete entity: %w", err)
	}
	return nil
}

// InsertLink inserts a link-table relationship instance. Navigation
// relationships fail with ErrNotLinkTable; set parent_id or model_id on
// the source entity instead.
func (r *Repository) InsertLink(ctx context.Context, tok *WriteToken, l store.Link) (ids.EntityID, error) {
	if err := r.checkToken(tok); err != nil {
		return 0, err
	}
	ins, err := r.inserters.get(ctx, r.conn(), l.ClassID)
	if err != nil {
		return 0, fmt.Errorf("insert link: %w", err)
	}
	// Validate the class before spending an id.
	op, err := ins.linkOp(0, l)
	if err != nil {
		return 0, err
	}
	id, err := r.allocate()
	if err != nil {
		return 0, fmt.Errorf("insert link: %w", err)
	}
	op.ID = id
	if err := r.write(ctx, op); err != nil {
		return 0, fmt.Errorf("insert link: %w", err)
	}
	return id, nil
}

// InsertCodeSpec inserts a code spec.
func (r *Repository) InsertCodeSpec(ctx context.Context, tok *WriteToken, cs store.CodeSpec) (ids.EntityID, error) {
	if err := r.checkToken(tok); err != nil {
		return 0, err
	}
	return r.insertRow(ctx, store.TableCodeSpecs, cs.Row())
}

// InsertResource inserts a shared resource.
func (r *Repository) InsertResource(ctx context.Context, tok *WriteToken, res store.Resource) (ids.EntityID, error) {
	if err := r.checkToken(tok); err != nil {
		return 0, err
	}
	return r.insertRow(ctx, store.TableResources, res.Row())
}

func (r *Repository) insertRow(ctx context.Context, table string, row map[string]any) (ids.EntityID, error) {
	id, err := r.allocate()
	if err != nil {
		return 0, fmt.Errorf("insert %s: %w", table, err)
	}
	if err := r.write(ctx, changeset.Op{Kind: changeset.Insert, Table: table, ID: id, Row: row}); err != nil {
		return 0, fmt.Errorf("insert %s: %w", table, err)
	}
	return id, nil
}
