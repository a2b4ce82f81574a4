package repo

import (
	"context"
	"fmt"

	"github.com/roach88/briefcase/internal/changeset"
	"github.com/roach88/briefcase/internal/ids"
	"github.com/roach88/briefcase/internal/store"
)

// inserter builds insert ops for one class. The class descriptor, and for
// relationships the storage strategy, are resolved once per cache lifetime.
type inserter struct {
	class store.Class
}

func (ins *inserter) entityOp(id ids.EntityID, e store.Entity) (changeset.Op, error) {
	if ins.class.Kind != store.KindEntity {
		return changeset.Op{}, fmt.Errorf("insert entity: class %s is a %s", ins.class.QualifiedName(), ins.class.Kind)
	}
	e.ClassID = ins.class.ID
	return changeset.Op{Kind: changeset.Insert, Table: store.TableEntities, ID: id, Row: e.Row()}, nil
}

func (ins *inserter) linkOp(id ids.EntityID, l store.Link) (changeset.Op, error) {
	if ins.class.Kind != store.KindRelationship {
		return changeset.Op{}, fmt.Errorf("insert link: class %s is a %s", ins.class.QualifiedName(), ins.class.Kind)
	}
	if ins.class.Strategy != store.StrategyLinkTable {
		return changeset.Op{}, fmt.Errorf("insert link %s: %w", ins.class.QualifiedName(), ErrNotLinkTable)
	}
	l.ClassID = ins.class.ID
	return changeset.Op{Kind: changeset.Insert, Table: store.TableLinks, ID: id, Row: l.Row()}, nil
}

// inserterCache maps class ids to inserters. It must be cleared whenever
// the class tables may have changed: schema import, upgrade, abandon or
// received changesets.
type inserterCache struct {
	byClass map[ids.EntityID]*inserter
}

func newInserterCache() *inserterCache {
	return &inserterCache{byClass: make(map[ids.EntityID]*inserter)}
}

func (c *inserterCache) get(ctx context.Context, conn *store.Conn, classID ids.EntityID) (*inserter, error) {
	if ins, ok := c.byClass[classID]; ok {
		return ins, nil
	}
	cls, ok, err := conn.ClassByID(ctx, classID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("class %s: %w", classID, store.ErrNotFound)
	}
	ins := &inserter{class: cls}
	c.byClass[classID] = ins
	return ins, nil
}

// Clear drops every cached inserter.
func (c *inserterCache) Clear() {
	clear(c.byClass)
}

// Len returns the number of cached inserters.
func (c *inserterCache) Len() int {
	return len(c.byClass)
}
