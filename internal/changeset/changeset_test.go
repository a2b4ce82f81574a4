package changeset

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/briefcase/internal/ids"
)

func insertOp(id ids.EntityID, row map[string]any) Op {
	return Op{Kind: Insert, Table: "entities", ID: id, Row: row}
}

func TestComputeID_Deterministic(t *testing.T) {
	ops := []Op{insertOp(0x30, map[string]any{"label": "a", "class_id": 0x21})}

	a, err := New("", 2, "first", ops)
	require.NoError(t, err)
	b, err := New("", 2, "first", ops)
	require.NoError(t, err)

	assert.Equal(t, a.ID, b.ID)
	assert.Len(t, a.ID, 64)
}

func TestComputeID_ChangesWithContent(t *testing.T) {
	base, err := New("", 2, "d", []Op{insertOp(0x30, map[string]any{"label": "a"})})
	require.NoError(t, err)

	tests := []struct {
		name   string
		parent string
		rep    ids.ReplicaID
		desc   string
		ops    []Op
	}{
		{"parent", "abc", 2, "d", base.Ops},
		{"replica", "", 3, "d", base.Ops},
		{"description", "", 2, "e", base.Ops},
		{"row value", "", 2, "d", []Op{insertOp(0x30, map[string]any{"label": "b"})}},
		{"op id", "", 2, "d", []Op{insertOp(0x31, map[string]any{"label": "a"})}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cs, err := New(tt.parent, tt.rep, tt.desc, tt.ops)
			require.NoError(t, err)
			assert.NotEqual(t, base.ID, cs.ID)
		})
	}
}

func TestComputeID_EquivalentEncodingsHashEqual(t *testing.T) {
	literal, err := New("", 2, "", []Op{insertOp(0x30, map[string]any{
		"class_id": ids.EntityID(0x21), "model_id": int64(16), "label": "x",
	})})
	require.NoError(t, err)

	decoded, err := New("", 2, "", []Op{insertOp(0x30, map[string]any{
		"class_id": "0x21", "model_id": json.Number("16"), "label": "x",
	})})
	require.NoError(t, err)

	assert.Equal(t, literal.ID, decoded.ID)
}

func TestComputeID_UnicodeNormalized(t *testing.T) {
	composed, err := New("", 2, "", []Op{insertOp(0x30, map[string]any{"label": "caf\u00e9"})})
	require.NoError(t, err)
	decomposed, err := New("", 2, "", []Op{insertOp(0x30, map[string]any{"label": "cafe\u0301"})})
	require.NoError(t, err)

	assert.Equal(t, composed.ID, decomposed.ID)
}

func TestComputeID_RejectsFloats(t *testing.T) {
	_, err := New("", 2, "", []Op{insertOp(0x30, map[string]any{"weight": 1.5})})
	assert.Error(t, err)
}

func TestVerify(t *testing.T) {
	cs, err := New("", 2, "d", []Op{insertOp(0x30, map[string]any{"label": "a"})})
	require.NoError(t, err)
	require.NoError(t, Verify(cs))

	tampered := *cs
	tampered.Description = "other"
	assert.Error(t, Verify(&tampered))

	noID := *cs
	noID.ID = ""
	assert.Error(t, Verify(&noID))

	badKind := *cs
	badKind.Ops = []Op{{Kind: "upsert", Table: "entities", ID: 0x30}}
	assert.Error(t, Verify(&badKind))

	assert.Error(t, Verify(nil))
}

func TestNormalizeValue(t *testing.T) {
	tests := []struct {
		column string
		in     any
		want   any
	}{
		{"label", nil, nil},
		{"label", true, true},
		{"label", "0x10", "0x10"},
		{"parent_id", "0x10", int64(16)},
		{"id", "31", int64(31)},
		{"parent_id", "", ""},
		{"n", 7, int64(7)},
		{"n", uint32(7), int64(7)},
		{"n", uint64(7), int64(7)},
		{"n", float64(7), int64(7)},
		{"n", json.Number("-3"), int64(-3)},
	}
	for _, tt := range tests {
		got, err := NormalizeValue(tt.column, tt.in)
		require.NoError(t, err, "%s=%v", tt.column, tt.in)
		assert.Equal(t, tt.want, got, "%s=%v", tt.column, tt.in)
	}

	for _, bad := range []any{uint64(1 << 63), 0.5, json.Number("1.5"), []string{"x"}} {
		_, err := NormalizeValue("n", bad)
		assert.Error(t, err, "%v", bad)
	}
	_, err := NormalizeValue("class_id", "door")
	assert.ErrorIs(t, err, ids.ErrInvalidEntityID)
}

func TestShort(t *testing.T) {
	assert.Equal(t, "<none>", Short(""))
	assert.Equal(t, "abc", Short("abc"))
	assert.Equal(t, "0123456789ab", Short("0123456789abcdef"))
}
