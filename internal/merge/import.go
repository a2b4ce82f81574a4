package merge

import (
	"context"
	"errors"
	"fmt"

	"github.com/roach88/briefcase/internal/ids"
	"github.com/roach88/briefcase/internal/repo"
	"github.com/roach88/briefcase/internal/store"
)

var (
	// ErrUnresolved is returned when an entity refers to a class or code
	// spec the destination does not have.
	ErrUnresolved = errors.New("no destination mapping")

	// ErrReadOnlyDestination is returned by ImportEntity when the
	// destination cannot insert entities.
	ErrReadOnlyDestination = errors.New("destination does not accept writes")
)

// EntityWriter is a destination that can insert entities.
type EntityWriter interface {
	InsertEntity(ctx context.Context, tok *repo.WriteToken, e store.Entity) (ids.EntityID, error)
}

// ImportEntity copies the source entity srcID into the destination and
// records the pair. Its model, parent and code scope are imported first
// when they have no mapping yet. An entity that already maps is not
// copied again.
func (c *Context) ImportEntity(ctx context.Context, tok *repo.WriteToken, srcID ids.EntityID) (ids.EntityID, error) {
	w, ok := c.dst.(EntityWriter)
	if !ok {
		return 0, ErrReadOnlyDestination
	}
	return c.importEntity(ctx, w, tok, srcID, make(map[ids.EntityID]bool))
}

func (c *Context) importEntity(ctx context.Context, w EntityWriter, tok *repo.WriteToken, srcID ids.EntityID, visiting map[ids.EntityID]bool) (ids.EntityID, error) {
	if dstID, ok, err := c.RemapEntity(ctx, srcID); err != nil || ok {
		return dstID, err
	}
	if visiting[srcID] {
		return 0, fmt.Errorf("import entity %s: reference cycle", srcID)
	}
	visiting[srcID] = true

	e, ok, err := c.src.EntityByID(ctx, srcID)
	if err != nil {
		return 0, fmt.Errorf("import entity %s: %w", srcID, err)
	}
	if !ok {
		return 0, fmt.Errorf("import entity %s: %w", srcID, store.ErrNotFound)
	}

	classID, ok, err := c.RemapClass(ctx, e.ClassID)
	if err != nil {
		return 0, fmt.Errorf("import entity %s: %w", srcID, err)
	}
	if !ok {
		return 0, fmt.Errorf("import entity %s: class %s: %w", srcID, e.ClassID, ErrUnresolved)
	}

	ref := func(id ids.EntityID) (ids.EntityID, error) {
		if id == 0 {
			return 0, nil
		}
		return c.importEntity(ctx, w, tok, id, visiting)
	}
	out := e
	out.ID = 0
	out.ClassID = classID
	if out.ModelID, err = ref(e.ModelID); err != nil {
		return 0, err
	}
	if out.ParentID, err = ref(e.ParentID); err != nil {
		return 0, err
	}
	if out.CodeScopeID, err = ref(e.CodeScopeID); err != nil {
		return 0, err
	}
	if e.CodeSpecID != 0 {
		specID, ok, err := c.RemapCodeSpec(ctx, e.CodeSpecID)
		if err != nil {
			return 0, fmt.Errorf("import entity %s: %w", srcID, err)
		}
		if !ok {
			return 0, fmt.Errorf("import entity %s: code spec %s: %w", srcID, e.CodeSpecID, ErrUnresolved)
		}
		out.CodeSpecID = specID
	}

	dstID, err := w.InsertEntity(ctx, tok, out)
	if err != nil {
		return 0, fmt.Errorf("import entity %s: %w", srcID, err)
	}
	c.entities.put(srcID, dstID)
	c.logger.Debug("entity imported", "source_id", srcID.String(), "dest_id", dstID.String())
	return dstID, nil
}
