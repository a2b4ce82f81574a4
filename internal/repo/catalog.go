package repo

import (
	"context"
	"fmt"

	"github.com/roach88/briefcase/internal/geo"
	"github.com/roach88/briefcase/internal/ids"
	"github.com/roach88/briefcase/internal/profile"
	"github.com/roach88/briefcase/internal/schemadef"
	"github.com/roach88/briefcase/internal/store"
)

// ClassByID reads a class descriptor.
func (r *Repository) ClassByID(ctx context.Context, id ids.EntityID) (store.Class, bool, error) {
	return r.conn().ClassByID(ctx, id)
}

// ClassByName finds a class by schema and class name, case-insensitively.
func (r *Repository) ClassByName(ctx context.Context, schema, class string) (store.Class, bool, error) {
	return r.conn().ClassByName(ctx, schemadef.NameKey(schema), schemadef.NameKey(class))
}

// Classes returns every class descriptor.
func (r *Repository) Classes(ctx context.Context) ([]store.Class, error) {
	return r.conn().Classes(ctx)
}

// Schemas returns every imported schema.
func (r *Repository) Schemas(ctx context.Context) ([]store.Schema, error) {
	return r.conn().Schemas(ctx)
}

// EntityByID reads an entity.
func (r *Repository) EntityByID(ctx context.Context, id ids.EntityID) (store.Entity, bool, error) {
	return r.conn().EntityByID(ctx, id)
}

// EntityByFederationGUID finds an entity by its federation GUID. Layouts
// without the column never match.
func (r *Repository) EntityByFederationGUID(ctx context.Context, guid string) (store.Entity, bool, error) {
	if !r.federation || guid == "" {
		return store.Entity{}, false, nil
	}
	return r.conn().EntityByFederationGUID(ctx, guid)
}

// EntitiesInModel returns the entities of a model.
func (r *Repository) EntitiesInModel(ctx context.Context, modelID ids.EntityID) ([]store.Entity, error) {
	return r.conn().EntitiesInModel(ctx, modelID)
}

// LinksFrom returns the link-table instances of class leaving source.
func (r *Repository) LinksFrom(ctx context.Context, classID, sourceID ids.EntityID) ([]store.Link, error) {
	return r.conn().LinksFrom(ctx, classID, sourceID)
}

// ResourceByID reads a resource.
func (r *Repository) ResourceByID(ctx context.Context, id ids.EntityID) (store.Resource, bool, error) {
	return r.conn().ResourceByID(ctx, id)
}

// ResourceByName finds a resource by kind and name.
func (r *Repository) ResourceByName(ctx context.Context, kind, name string) (store.Resource, bool, error) {
	return r.conn().ResourceByName(ctx, kind, name)
}

// CodeSpecByID reads a code spec.
func (r *Repository) CodeSpecByID(ctx context.Context, id ids.EntityID) (store.CodeSpec, bool, error) {
	return r.conn().CodeSpecByID(ctx, id)
}

// CodeSpecByName finds a code spec by name.
func (r *Repository) CodeSpecByName(ctx context.Context, name string) (store.CodeSpec, bool, error) {
	return r.conn().CodeSpecByName(ctx, name)
}

// GlobalOrigin returns the repository's offset from the global frame.
func (r *Repository) GlobalOrigin(ctx context.Context) (geo.Vector3, error) {
	raw, ok, err := r.conn().Prop(ctx, store.NamespaceCore, store.PropGlobalOrigin)
	if err != nil || !ok {
		return geo.Vector3{}, err
	}
	return geo.ParseVector(raw)
}

// SpatialReference returns the repository's projection, nil if none.
func (r *Repository) SpatialReference(ctx context.Context) (*geo.SpatialReference, error) {
	raw, ok, err := r.conn().Prop(ctx, store.NamespaceCore, store.PropSpatialReference)
	if err != nil || !ok {
		return nil, err
	}
	return geo.ParseSpatialReference(raw)
}

// Info summarizes a repository for display.
type Info struct {
	Path         string          `json:"path"`
	GUID         string          `json:"guid"`
	Name         string          `json:"name"`
	Replica      ids.ReplicaID   `json:"replica_id"`
	Version      profile.Version `json:"profile_version"`
	NextID       ids.EntityID    `json:"next_id"`
	LastApplied  string          `json:"last_applied,omitempty"`
	LocalTxns    int             `json:"local_txns"`
	Schemas      int             `json:"schemas"`
	Entities     int             `json:"entities"`
	HasChanges   bool            `json:"has_changes"`
	TrackChanges bool            `json:"track_changes"`
}

// Info reads the repository summary.
func (r *Repository) Info(ctx context.Context) (Info, error) {
	c := r.conn()
	info := Info{
		Path:         r.Path(),
		Replica:      r.replica,
		Version:      r.version,
		NextID:       r.alloc.Next(),
		HasChanges:   r.HasChanges(),
		TrackChanges: r.Tracking(),
	}

	var err error
	if info.GUID, _, err = c.Prop(ctx, store.NamespaceCore, store.PropGUID); err != nil {
		return Info{}, fmt.Errorf("info: %w", err)
	}
	if info.Name, _, err = c.Prop(ctx, store.NamespaceCore, store.PropName); err != nil {
		return Info{}, fmt.Errorf("info: %w", err)
	}
	if info.LastApplied, err = c.LastApplied(ctx); err != nil {
		return Info{}, fmt.Errorf("info: %w", err)
	}
	if info.LocalTxns, err = r.LocalTxnCount(ctx); err != nil {
		return Info{}, fmt.Errorf("info: %w", err)
	}
	if info.Schemas, err = c.CountRows(ctx, store.TableSchemas); err != nil {
		return Info{}, fmt.Errorf("info: %w", err)
	}
	if info.Entities, err = c.CountRows(ctx, store.TableEntities); err != nil {
		return Info{}, fmt.Errorf("info: %w", err)
	}
	return info, nil
}
