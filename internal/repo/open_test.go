package repo

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/briefcase/internal/changeset"
	"github.com/roach88/briefcase/internal/concurrency"
	"github.com/roach88/briefcase/internal/geo"
	"github.com/roach88/briefcase/internal/ids"
	"github.com/roach88/briefcase/internal/profile"
	"github.com/roach88/briefcase/internal/store"
)

func TestOpen_UpgradeRequiredBlockedSkipsChangesets(t *testing.T) {
	path := createFileAt(t, store.BaseVersion, 2)
	mock := stubApplier(t)

	cs, err := changeset.New("", 2, "", nil)
	require.NoError(t, err)

	opts := testOptions()
	opts.Supported = profile.Range{Min: profile.MustParse("4.0.1.0"), Max: store.LatestVersion}
	opts.PendingChangesets = []*changeset.Changeset{cs}

	_, err = Open(context.Background(), path, opts)
	require.Error(t, err)
	assert.True(t, IsUpgradeRequired(err))
	assert.Zero(t, mock.calls, "changeset step must not run")

	st, err := store.Open(path)
	require.NoError(t, err)
	defer st.Close()
	v, err := st.ProfileVersion(context.Background())
	require.NoError(t, err)
	assert.Equal(t, store.BaseVersion, v, "refused open leaves the file untouched")
}

func TestOpen_WriteCompatBehindRequiresUpgrade(t *testing.T) {
	path := createFileAt(t, profile.MustParse("4.0.1.0"), 2)

	_, err := Open(context.Background(), path, testOptions())
	assert.True(t, IsUpgradeRequired(err), "got %v", err)
}

func TestOpen_AllowUpgrade(t *testing.T) {
	path := createFileAt(t, store.BaseVersion, 2)
	mock := stubApplier(t)

	cs, err := changeset.New("", 2, "", nil)
	require.NoError(t, err)
	opts := testOptions()
	opts.AllowUpgrade = true
	opts.PendingChangesets = []*changeset.Changeset{cs}

	r, err := Open(context.Background(), path, opts)
	require.NoError(t, err)
	defer r.Close()

	assert.Equal(t, 1, mock.calls)
	assert.Equal(t, store.LatestVersion, r.ProfileVersion())
	assert.True(t, r.federation, "upgraded layout has federation guids")

	report := r.Opened()
	assert.Equal(t, store.BaseVersion, report.Stored)
	assert.Equal(t, profile.UpgradeRequired, report.Status)
	assert.Equal(t, 1, report.Applied)
	assert.True(t, report.Upgraded)
}

func TestOpen_UpgradeFailedLeavesVersion(t *testing.T) {
	ctx := context.Background()
	path := createFileAt(t, store.BaseVersion, 2)

	// The 4.0.1.0 step adds this column, so its ALTER TABLE fails.
	st, err := store.Open(path)
	require.NoError(t, err)
	_, err = st.DB().ExecContext(ctx, `ALTER TABLE entities ADD COLUMN federation_guid TEXT`)
	require.NoError(t, err)
	require.NoError(t, st.Close())

	opts := testOptions()
	opts.AllowUpgrade = true
	_, err = Open(ctx, path, opts)
	require.Error(t, err)
	assert.True(t, IsUpgradeFailed(err), "got %v", err)
	assert.Contains(t, err.Error(), "duplicate column")

	st, err = store.Open(path)
	require.NoError(t, err)
	defer st.Close()
	v, err := st.ProfileVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, store.BaseVersion, v, "failed upgrade rolls back")
}

func TestOpen_UpgradeRecommendedOpensWithoutUpgrade(t *testing.T) {
	path := createFileAt(t, profile.MustParse("4.1.0.0"), 2)

	r, err := Open(context.Background(), path, testOptions())
	require.NoError(t, err)
	defer r.Close()
	assert.Equal(t, profile.MustParse("4.1.0.0"), r.ProfileVersion())
	assert.Equal(t, profile.UpgradeRecommended, r.Opened().Status)
	assert.False(t, r.Opened().Upgraded)
}

func TestOpen_TooNew(t *testing.T) {
	path := createFileAt(t, store.LatestVersion, 2)
	opts := testOptions()
	opts.Supported = profile.Range{Min: store.BaseVersion, Max: profile.MustParse("4.0.1.0")}

	_, err := Open(context.Background(), path, opts)
	assert.True(t, IsTooNew(err), "got %v", err)
}

func TestOpen_TooOld(t *testing.T) {
	path := createFileAt(t, store.LatestVersion, 2)
	opts := testOptions()
	opts.Supported = profile.Range{Min: profile.MustParse("5.0.0.0"), Max: profile.MustParse("5.0.0.0")}

	_, err := Open(context.Background(), path, opts)
	assert.True(t, IsTooOld(err), "got %v", err)
}

func TestOpen_MissingFileIsIOError(t *testing.T) {
	_, err := Open(context.Background(), filepath.Join(t.TempDir(), "missing.bim"), testOptions())
	assert.True(t, IsIOError(err), "got %v", err)
}

func TestOpen_ChangesetFailureStopsBeforeUpgrade(t *testing.T) {
	path := createFileAt(t, store.BaseVersion, 2)

	// federation_guid does not exist on the base layout.
	bad, err := changeset.New("", 3, "", []changeset.Op{{
		Kind: changeset.Insert, Table: store.TableEntities, ID: testPartition.RangeStart(3),
		Row: store.Entity{ClassID: 0x11, ModelID: ids.RootSubject, FederationGUID: "g"}.Row(),
	}})
	require.NoError(t, err)

	opts := testOptions()
	opts.AllowUpgrade = true
	opts.PendingChangesets = []*changeset.Changeset{bad}

	_, err = Open(context.Background(), path, opts)
	require.Error(t, err)
	assert.True(t, IsChangesetApplyFailed(err))
	assert.True(t, changeset.IsApplyFailed(err), "wraps the pipeline error")

	st, err := store.Open(path)
	require.NoError(t, err)
	defer st.Close()
	v, err := st.ProfileVersion(context.Background())
	require.NoError(t, err)
	assert.Equal(t, store.BaseVersion, v, "no upgrade after a failed changeset")
}

func TestOpen_PendingChangesetsObservedAndReseeded(t *testing.T) {
	ctx := context.Background()
	path := createFileAt(t, store.LatestVersion, 3)
	mem := concurrency.NewMemory()

	// Replica 3 wrote two resources elsewhere; this copy receives them.
	start := testPartition.RangeStart(3)
	cs, err := changeset.New("", 3, "fonts", []changeset.Op{
		{Kind: changeset.Insert, Table: store.TableResources, ID: start, Row: store.Resource{Kind: "font", Name: "a"}.Row()},
		{Kind: changeset.Insert, Table: store.TableResources, ID: start + 1, Row: store.Resource{Kind: "font", Name: "b"}.Row()},
	})
	require.NoError(t, err)

	opts := testOptions()
	opts.Coordinator = mem
	opts.PendingChangesets = []*changeset.Changeset{cs}

	r, err := Open(ctx, path, opts)
	require.NoError(t, err)
	defer r.Close()

	assert.Equal(t, []string{cs.ID}, mem.Applied())
	assert.Equal(t, start+2, r.alloc.Next())
	last, err := r.LastApplied(ctx)
	require.NoError(t, err)
	assert.Equal(t, cs.ID, last)
	assert.Same(t, mem, r.Coordinator())
}

func TestCreate_WellKnownEntities(t *testing.T) {
	ctx := context.Background()
	r := createTestRepo(t, 2)

	root, ok, err := r.EntityByID(ctx, ids.RootSubject)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Test", root.DisplayName())
	assert.Equal(t, coreClass(t, r, "Subject").ID, root.ClassID)

	dict, ok, err := r.EntityByID(ctx, ids.DictionaryPartition)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Dictionary", dict.DisplayName())
	assert.Equal(t, ids.RootSubject, dict.ParentID)

	_, ok, err = r.EntityByID(ctx, ids.RealityDataPartition)
	require.NoError(t, err)
	assert.True(t, ok)

	// Core classes were allocated above the well-known ids in replica 0.
	for _, c := range mustClasses(t, r) {
		assert.Greater(t, uint64(c.ID), uint64(ids.DictionaryPartition))
		assert.Equal(t, ids.Unassigned, testPartition.ReplicaOf(c.ID))
	}

	info, err := r.Info(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, info.GUID)
	assert.EqualValues(t, 2, info.Replica)
	assert.Equal(t, 3, info.Entities)
	assert.Equal(t, 1, info.Schemas)
}

func mustClasses(t *testing.T, r *Repository) []store.Class {
	t.Helper()
	classes, err := r.Classes(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, classes)
	return classes
}

func TestCreate_InvalidReplicaRemovesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.bim")
	opts := testOptions()
	opts.Partition = ids.DefaultPartition()

	_, err := Create(context.Background(), path, CreateOptions{Replica: opts.Partition.MaxReplica() + 1}, opts)
	assert.ErrorIs(t, err, ids.ErrReplicaOutOfRange)
	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))
}

func TestCreate_NaNOriginRemovesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.bim")

	_, err := Create(context.Background(), path,
		CreateOptions{Replica: 2, GlobalOrigin: geo.Vector3{X: math.NaN()}}, testOptions())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "encode vector")
	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))
}

func TestOpenError_Message(t *testing.T) {
	err := &OpenError{Code: ErrCodeIO, Message: "cannot read", Err: os.ErrNotExist}
	assert.Equal(t, "IO_ERROR: cannot read: file does not exist", err.Error())
	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.Equal(t, "TOO_NEW: x", (&OpenError{Code: ErrCodeTooNew, Message: "x"}).Error())
}
