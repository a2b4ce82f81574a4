package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/briefcase/internal/changeset"
	"github.com/roach88/briefcase/internal/ids"
)

func TestApplyOp_InsertUpdateDelete(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	seedCoreSchema(t, s, 0x20, 0x21)

	e := Entity{ClassID: 0x21, ModelID: 0x10, CodeValue: "Door-1", Label: "front door"}
	applyOps(t, s, changeset.Op{Kind: changeset.Insert, Table: TableEntities, ID: 0x30, Row: e.Row()})

	got, ok, err := s.EntityByID(ctx, 0x30)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, ids.EntityID(0x21), got.ClassID)
	assert.Equal(t, "Door-1", got.CodeValue)
	assert.Equal(t, "{}", got.Props)
	assert.Zero(t, got.ParentID)

	applyOps(t, s, changeset.Op{Kind: changeset.Update, Table: TableEntities, ID: 0x30,
		Row: map[string]any{"label": "back door", "parent_id": "0x10"}})

	got, _, err = s.EntityByID(ctx, 0x30)
	require.NoError(t, err)
	assert.Equal(t, "back door", got.Label)
	assert.Equal(t, ids.EntityID(0x10), got.ParentID)

	applyOps(t, s, changeset.Op{Kind: changeset.Delete, Table: TableEntities, ID: 0x30})

	_, ok, err = s.EntityByID(ctx, 0x30)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestApplyOp_RejectsUnknownTable(t *testing.T) {
	s := createTestStore(t)
	err := s.ApplyOp(context.Background(), changeset.Op{Kind: changeset.Insert, Table: "props", ID: 1})
	assert.ErrorIs(t, err, ErrUnknownTable)
}

func TestApplyOp_RejectsUnknownColumn(t *testing.T) {
	s := createTestStore(t)
	err := s.ApplyOp(context.Background(), changeset.Op{
		Kind: changeset.Insert, Table: TableResources, ID: 0x40,
		Row: map[string]any{"kind": "font", "name": "Arial", "1=1; --": "x"},
	})
	assert.ErrorIs(t, err, ErrUnknownColumn)
}

func TestApplyOp_RejectsInvalidID(t *testing.T) {
	s := createTestStore(t)
	err := s.ApplyOp(context.Background(), changeset.Op{
		Kind: changeset.Insert, Table: TableResources, ID: 0,
		Row: Resource{Kind: "font", Name: "Arial"}.Row(),
	})
	assert.Error(t, err)
}

func TestApplyOp_UpdateMissingRow(t *testing.T) {
	s := createTestStore(t)
	err := s.ApplyOp(context.Background(), changeset.Op{
		Kind: changeset.Update, Table: TableResources, ID: 0x99,
		Row: map[string]any{"data": "x"},
	})
	assert.ErrorIs(t, err, ErrRowNotFound)
}

func TestApplyOp_DeleteMissingRow(t *testing.T) {
	s := createTestStore(t)
	err := s.ApplyOp(context.Background(), changeset.Op{Kind: changeset.Delete, Table: TableLinks, ID: 0x99})
	assert.ErrorIs(t, err, ErrRowNotFound)
}

func TestApplyOp_DuplicateCodeRejected(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	seedCoreSchema(t, s, 0x20, 0x21)
	applyOps(t, s, changeset.Op{Kind: changeset.Insert, Table: TableCodeSpecs, ID: 0x22,
		Row: CodeSpec{Name: "Door", ScopeType: "model"}.Row()})

	e := Entity{ClassID: 0x21, ModelID: 0x10, CodeSpecID: 0x22, CodeScopeID: 0x10, CodeValue: "D1"}
	applyOps(t, s, changeset.Op{Kind: changeset.Insert, Table: TableEntities, ID: 0x30, Row: e.Row()})

	err := s.ApplyOp(ctx, changeset.Op{Kind: changeset.Insert, Table: TableEntities, ID: 0x31, Row: e.Row()})
	assert.Error(t, err)

	// Entities without a code never collide.
	bare := Entity{ClassID: 0x21, ModelID: 0x10, CodeSpecID: 0x22, CodeScopeID: 0x10}
	applyOps(t, s,
		changeset.Op{Kind: changeset.Insert, Table: TableEntities, ID: 0x32, Row: bare.Row()},
		changeset.Op{Kind: changeset.Insert, Table: TableEntities, ID: 0x33, Row: bare.Row()},
	)
}

func TestApplyOp_RolledBackTxLeavesNoRows(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	tx, err := s.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.ApplyOp(ctx, changeset.Op{Kind: changeset.Insert, Table: TableResources, ID: 0x40,
		Row: Resource{Kind: "font", Name: "Arial"}.Row()}))
	require.NoError(t, tx.Rollback())

	n, err := s.CountRows(ctx, TableResources)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestColumns_Sorted(t *testing.T) {
	assert.Equal(t, []string{"data", "kind", "name"}, Columns(TableResources))
	assert.Empty(t, Columns("nope"))
}
