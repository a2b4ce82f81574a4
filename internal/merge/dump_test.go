package merge

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/briefcase/internal/ids"
	"github.com/roach88/briefcase/internal/store"
	"github.com/roach88/briefcase/internal/testutil"
)

func TestDump_Golden(t *testing.T) {
	ctx := context.Background()
	src, dst := newMemCatalog(), newMemCatalog()

	src.addClass(0x20, "Core", "PhysicalElement")
	src.addClass(0x21, "Building", "Door")
	dst.addClass(0x40, "Core", "PhysicalElement")

	src.addEntity(store.Entity{ID: 0x100, Label: "Wall", FederationGUID: "g-wall"})
	dst.addEntity(store.Entity{ID: 0x200, Label: "Wall", FederationGUID: "g-wall"})

	src.codeSpecs[0x30] = store.CodeSpec{ID: 0x30, Name: "Door"}
	dst.codeSpecs[0x50] = store.CodeSpec{ID: 0x50, Name: "Door"}

	c := newTestContext(t, src, dst)
	for _, id := range []ids.EntityID{0x21, 0x20} {
		_, _, err := c.RemapClass(ctx, id)
		require.NoError(t, err)
	}
	_, ok, err := c.RemapEntity(ctx, 0x100)
	require.NoError(t, err)
	require.True(t, ok)
	_, ok, err = c.RemapCodeSpec(ctx, 0x30)
	require.NoError(t, err)
	require.True(t, ok)
	c.AddEntity(0x101, 0x999)

	first := c.Dump(ctx)
	assert.Equal(t, first, c.Dump(ctx), "dump is deterministic")
	testutil.Golden(t).Assert(t, "dump", []byte(first))
}

func TestDump_Empty(t *testing.T) {
	// No well-known seeds: an empty entity table shows its sentinel too.
	c := newTestContext(t, newMemCatalog(), newMemCatalog())
	for k := range c.entities {
		delete(c.entities, k)
	}
	testutil.Golden(t).Assert(t, "dump_empty", []byte(c.Dump(context.Background())))
}
