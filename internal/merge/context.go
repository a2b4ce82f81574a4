package merge

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/roach88/briefcase/internal/geo"
	"github.com/roach88/briefcase/internal/ids"
	"github.com/roach88/briefcase/internal/store"
)

// Catalog is the read side of a repository that remapping resolves against.
// Repository handles satisfy it.
type Catalog interface {
	ClassByID(ctx context.Context, id ids.EntityID) (store.Class, bool, error)
	ClassByName(ctx context.Context, schema, class string) (store.Class, bool, error)
	EntityByID(ctx context.Context, id ids.EntityID) (store.Entity, bool, error)
	EntityByFederationGUID(ctx context.Context, guid string) (store.Entity, bool, error)
	ResourceByID(ctx context.Context, id ids.EntityID) (store.Resource, bool, error)
	ResourceByName(ctx context.Context, kind, name string) (store.Resource, bool, error)
	CodeSpecByID(ctx context.Context, id ids.EntityID) (store.CodeSpec, bool, error)
	CodeSpecByName(ctx context.Context, name string) (store.CodeSpec, bool, error)
	GlobalOrigin(ctx context.Context) (geo.Vector3, error)
	SpatialReference(ctx context.Context) (*geo.SpatialReference, error)
}

// GeoAdjustment maps source coordinates into the destination frame.
type GeoAdjustment struct {
	Offset   geo.Vector3
	Rotation geo.Matrix3

	// Compatible is false when both repositories declare spatial references
	// that are not equivalent projections. A pure offset is not enough then.
	Compatible bool
}

// Transform returns the adjustment as a point transform.
func (g GeoAdjustment) Transform() geo.Transform {
	return geo.Transform{Offset: g.Offset, Rotation: g.Rotation}
}

// Context is one import from source into destination. It is not safe for
// concurrent use.
type Context struct {
	src Catalog
	dst Catalog

	classes   remapTable
	entities  remapTable
	resources remapTable
	codeSpecs remapTable

	geo    GeoAdjustment
	logger *slog.Logger
}

// Option configures a Context.
type Option func(*Context)

// WithLogger sets the logger used for remap misses.
func WithLogger(l *slog.Logger) Option {
	return func(c *Context) {
		if l != nil {
			c.logger = l
		}
	}
}

// New creates an import context and computes its geo adjustment.
func New(ctx context.Context, src, dst Catalog, opts ...Option) (*Context, error) {
	c := &Context{
		src:       src,
		dst:       dst,
		classes:   newRemapTable(),
		entities:  newRemapTable(),
		resources: newRemapTable(),
		codeSpecs: newRemapTable(),
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	for _, id := range ids.WellKnown {
		c.entities.put(id, id)
	}

	adj, err := computeGeoAdjustment(ctx, src, dst)
	if err != nil {
		return nil, err
	}
	c.geo = adj
	if !adj.Compatible {
		c.logger.Warn("spatial references are not equivalent projections", "offset", adj.Offset.String())
	}
	return c, nil
}

func computeGeoAdjustment(ctx context.Context, src, dst Catalog) (GeoAdjustment, error) {
	srcOrigin, err := src.GlobalOrigin(ctx)
	if err != nil {
		return GeoAdjustment{}, fmt.Errorf("source origin: %w", err)
	}
	dstOrigin, err := dst.GlobalOrigin(ctx)
	if err != nil {
		return GeoAdjustment{}, fmt.Errorf("destination origin: %w", err)
	}
	srcSR, err := src.SpatialReference(ctx)
	if err != nil {
		return GeoAdjustment{}, fmt.Errorf("source spatial reference: %w", err)
	}
	dstSR, err := dst.SpatialReference(ctx)
	if err != nil {
		return GeoAdjustment{}, fmt.Errorf("destination spatial reference: %w", err)
	}

	compatible := true
	if srcSR != nil && dstSR != nil {
		compatible = geo.EquivalentProjections(srcSR, dstSR)
	}
	return GeoAdjustment{
		Offset:     dstOrigin.Sub(srcOrigin),
		Rotation:   geo.Identity(),
		Compatible: compatible,
	}, nil
}

// GeoAdjustment returns the adjustment computed at construction.
func (c *Context) GeoAdjustment() GeoAdjustment {
	return c.geo
}

// RemapClass returns the destination class with the source class's schema
// and name.
func (c *Context) RemapClass(ctx context.Context, srcID ids.EntityID) (ids.EntityID, bool, error) {
	return c.classes.resolve(srcID, func() (ids.EntityID, bool, error) {
		cls, ok, err := c.src.ClassByID(ctx, srcID)
		if err != nil || !ok {
			return 0, false, err
		}
		dst, ok, err := c.dst.ClassByName(ctx, cls.SchemaName, cls.Name)
		if err != nil || !ok {
			c.logger.Debug("class not in destination", "class", cls.QualifiedName())
			return 0, false, err
		}
		return dst.ID, true, nil
	})
}

// RemapEntity returns the destination entity with the source entity's
// federation GUID.
func (c *Context) RemapEntity(ctx context.Context, srcID ids.EntityID) (ids.EntityID, bool, error) {
	return c.entities.resolve(srcID, func() (ids.EntityID, bool, error) {
		e, ok, err := c.src.EntityByID(ctx, srcID)
		if err != nil || !ok || e.FederationGUID == "" {
			return 0, false, err
		}
		dst, ok, err := c.dst.EntityByFederationGUID(ctx, e.FederationGUID)
		if err != nil || !ok {
			return 0, false, err
		}
		return dst.ID, true, nil
	})
}

// RemapResource returns the destination resource of the same kind and name.
func (c *Context) RemapResource(ctx context.Context, srcID ids.EntityID) (ids.EntityID, bool, error) {
	return c.resources.resolve(srcID, func() (ids.EntityID, bool, error) {
		res, ok, err := c.src.ResourceByID(ctx, srcID)
		if err != nil || !ok {
			return 0, false, err
		}
		dst, ok, err := c.dst.ResourceByName(ctx, res.Kind, res.Name)
		if err != nil || !ok {
			return 0, false, err
		}
		return dst.ID, true, nil
	})
}

// RemapCodeSpec returns the destination code spec of the same name.
func (c *Context) RemapCodeSpec(ctx context.Context, srcID ids.EntityID) (ids.EntityID, bool, error) {
	return c.codeSpecs.resolve(srcID, func() (ids.EntityID, bool, error) {
		cs, ok, err := c.src.CodeSpecByID(ctx, srcID)
		if err != nil || !ok {
			return 0, false, err
		}
		dst, ok, err := c.dst.CodeSpecByName(ctx, cs.Name)
		if err != nil || !ok {
			return 0, false, err
		}
		return dst.ID, true, nil
	})
}

// AddEntity records an explicit entity pair. An existing pair for srcID is
// kept.
func (c *Context) AddEntity(srcID, dstID ids.EntityID) bool {
	return c.entities.put(srcID, dstID)
}

// AddClass records an explicit class pair. An existing pair for srcID is
// kept.
func (c *Context) AddClass(srcID, dstID ids.EntityID) bool {
	return c.classes.put(srcID, dstID)
}

// remapTable is a write-once source to destination id map.
type remapTable map[ids.EntityID]ids.EntityID

func newRemapTable() remapTable {
	return make(remapTable)
}

func (t remapTable) put(src, dst ids.EntityID) bool {
	if _, ok := t[src]; ok {
		return false
	}
	t[src] = dst
	return true
}

// resolve returns the cached id or runs lookup, caching only a hit.
func (t remapTable) resolve(src ids.EntityID, lookup func() (ids.EntityID, bool, error)) (ids.EntityID, bool, error) {
	if dst, ok := t[src]; ok {
		return dst, true, nil
	}
	dst, ok, err := lookup()
	if err != nil {
		return 0, false, err
	}
	if !ok {
		return 0, false, nil
	}
	t[src] = dst
	return dst, true, nil
}
