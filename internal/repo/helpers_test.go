package repo

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/briefcase/internal/changeset"
	"github.com/roach88/briefcase/internal/ids"
	"github.com/roach88/briefcase/internal/profile"
	"github.com/roach88/briefcase/internal/schemadef"
	"github.com/roach88/briefcase/internal/store"
	"github.com/roach88/briefcase/internal/testutil"
)

var testPartition = testutil.Partition

func testOptions() Options {
	opts := DefaultOptions()
	opts.Partition = testPartition
	opts.Logger = testutil.DiscardLogger()
	return opts
}

// createTestRepo creates and opens a repository for replica.
func createTestRepo(t *testing.T, replica ids.ReplicaID) *Repository {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.bim")
	r, err := Create(context.Background(), path, CreateOptions{Name: "Test", Replica: replica}, testOptions())
	require.NoError(t, err)
	t.Cleanup(func() { r.Close() })
	return r
}

// createFileAt writes an initialized repository at version and closes it.
func createFileAt(t *testing.T, version profile.Version, replica ids.ReplicaID) string {
	t.Helper()
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "test.bim")
	st, err := store.Create(ctx, path, version)
	require.NoError(t, err)
	require.NoError(t, initialize(ctx, st, CreateOptions{Replica: replica}, testPartition))
	require.NoError(t, st.Close())
	return path
}

// reopen closes r and opens its file again.
func reopen(t *testing.T, r *Repository) *Repository {
	t.Helper()
	path := r.Path()
	require.NoError(t, r.Close())
	r2, err := Open(context.Background(), path, testOptions())
	require.NoError(t, err)
	t.Cleanup(func() { r2.Close() })
	return r2
}

func coreClass(t *testing.T, r *Repository, name string) store.Class {
	t.Helper()
	cls, ok, err := r.ClassByName(context.Background(), schemadef.CoreSchema, name)
	require.NoError(t, err)
	require.True(t, ok, name)
	return cls
}

// countingApplier replaces the open pipeline and counts invocations.
type countingApplier struct {
	calls int
}

func (c *countingApplier) Apply(context.Context, []*changeset.Changeset) error {
	c.calls++
	return nil
}

func stubApplier(t *testing.T) *countingApplier {
	t.Helper()
	mock := &countingApplier{}
	orig := newApplier
	newApplier = func(changeset.Target, ...changeset.Option) applier { return mock }
	t.Cleanup(func() { newApplier = orig })
	return mock
}
