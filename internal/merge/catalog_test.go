package merge

import (
	"context"
	"strings"

	"github.com/roach88/briefcase/internal/geo"
	"github.com/roach88/briefcase/internal/ids"
	"github.com/roach88/briefcase/internal/store"
)

// memCatalog is an in-memory Catalog that counts name lookups.
type memCatalog struct {
	classes   map[ids.EntityID]store.Class
	entities  map[ids.EntityID]store.Entity
	resources map[ids.EntityID]store.Resource
	codeSpecs map[ids.EntityID]store.CodeSpec
	origin    geo.Vector3
	sr        *geo.SpatialReference

	classLookups    int
	entityLookups   int
	resourceLookups int
	codeSpecLookups int
}

var _ Catalog = (*memCatalog)(nil)

func newMemCatalog() *memCatalog {
	c := &memCatalog{
		classes:   make(map[ids.EntityID]store.Class),
		entities:  make(map[ids.EntityID]store.Entity),
		resources: make(map[ids.EntityID]store.Resource),
		codeSpecs: make(map[ids.EntityID]store.CodeSpec),
	}
	c.addEntity(store.Entity{ID: ids.RootSubject, Label: "Root", FederationGUID: "root"})
	c.addEntity(store.Entity{ID: ids.RealityDataPartition, Label: "RealityDataSources", FederationGUID: "reality"})
	c.addEntity(store.Entity{ID: ids.DictionaryPartition, Label: "Dictionary", FederationGUID: "dictionary"})
	return c
}

func (c *memCatalog) addClass(id ids.EntityID, schema, name string) {
	c.classes[id] = store.Class{ID: id, SchemaName: schema, Name: name, Kind: store.KindEntity}
}

func (c *memCatalog) addEntity(e store.Entity) {
	c.entities[e.ID] = e
}

func (c *memCatalog) ClassByID(_ context.Context, id ids.EntityID) (store.Class, bool, error) {
	cls, ok := c.classes[id]
	return cls, ok, nil
}

func (c *memCatalog) ClassByName(_ context.Context, schema, class string) (store.Class, bool, error) {
	c.classLookups++
	for _, cls := range c.classes {
		if strings.EqualFold(cls.SchemaName, schema) && strings.EqualFold(cls.Name, class) {
			return cls, true, nil
		}
	}
	return store.Class{}, false, nil
}

func (c *memCatalog) EntityByID(_ context.Context, id ids.EntityID) (store.Entity, bool, error) {
	e, ok := c.entities[id]
	return e, ok, nil
}

func (c *memCatalog) EntityByFederationGUID(_ context.Context, guid string) (store.Entity, bool, error) {
	c.entityLookups++
	for _, e := range c.entities {
		if e.FederationGUID == guid {
			return e, true, nil
		}
	}
	return store.Entity{}, false, nil
}

func (c *memCatalog) ResourceByID(_ context.Context, id ids.EntityID) (store.Resource, bool, error) {
	r, ok := c.resources[id]
	return r, ok, nil
}

func (c *memCatalog) ResourceByName(_ context.Context, kind, name string) (store.Resource, bool, error) {
	c.resourceLookups++
	for _, r := range c.resources {
		if r.Kind == kind && r.Name == name {
			return r, true, nil
		}
	}
	return store.Resource{}, false, nil
}

func (c *memCatalog) CodeSpecByID(_ context.Context, id ids.EntityID) (store.CodeSpec, bool, error) {
	cs, ok := c.codeSpecs[id]
	return cs, ok, nil
}

func (c *memCatalog) CodeSpecByName(_ context.Context, name string) (store.CodeSpec, bool, error) {
	c.codeSpecLookups++
	for _, cs := range c.codeSpecs {
		if cs.Name == name {
			return cs, true, nil
		}
	}
	return store.CodeSpec{}, false, nil
}

func (c *memCatalog) GlobalOrigin(context.Context) (geo.Vector3, error) {
	return c.origin, nil
}

func (c *memCatalog) SpatialReference(context.Context) (*geo.SpatialReference, error) {
	return c.sr, nil
}
