package repo

import (
	"log/slog"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/roach88/briefcase/internal/changeset"
	"github.com/roach88/briefcase/internal/concurrency"
	"github.com/roach88/briefcase/internal/geo"
	"github.com/roach88/briefcase/internal/ids"
	"github.com/roach88/briefcase/internal/profile"
	"github.com/roach88/briefcase/internal/store"
)

// Options configures Open. Zero Coordinator, Partition, Supported and
// Logger take the values of DefaultOptions; start from DefaultOptions to keep
// change tracking on.
type Options struct {
	// AllowUpgrade permits running the profile upgrade steps on open.
	AllowUpgrade bool

	// PendingChangesets are applied, in order, before any upgrade.
	PendingChangesets []*changeset.Changeset

	// Coordinator arbitrates locks and codes. The opened handle owns it.
	Coordinator concurrency.Coordinator

	// TrackChanges records saved local transactions for later push.
	TrackChanges bool

	// Partition fixes the replica id window size.
	Partition ids.Partition

	// Supported is the profile range this build accepts.
	Supported profile.Range

	// Logger receives open, apply and allocation events.
	Logger *slog.Logger

	// Registerer receives the repository counters. Nil keeps them private.
	Registerer prometheus.Registerer

	// NewGUID generates repository and federation GUIDs.
	NewGUID func() string
}

// DefaultOptions returns change tracking on, an optimistic coordinator, the
// default partition and the library's supported range.
func DefaultOptions() Options {
	return Options{
		TrackChanges: true,
		Coordinator:  concurrency.Optimistic{},
		Partition:    ids.DefaultPartition(),
		Supported:    store.SupportedRange(),
		Logger:       slog.Default(),
		NewGUID:      uuid.NewString,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.Coordinator == nil {
		o.Coordinator = d.Coordinator
	}
	if o.Partition.Bits == 0 {
		o.Partition = d.Partition
	}
	if o.Supported == (profile.Range{}) {
		o.Supported = d.Supported
	}
	if o.Logger == nil {
		o.Logger = d.Logger
	}
	if o.NewGUID == nil {
		o.NewGUID = d.NewGUID
	}
	return o
}

// CreateOptions configures Create.
type CreateOptions struct {
	// Name labels the root subject. Defaults to "Root".
	Name string

	// GUID identifies the repository. Defaults to a random UUID.
	GUID string

	// Replica is the identity persisted in the new file.
	Replica ids.ReplicaID

	// Version is the layout to create. Defaults to store.LatestVersion.
	Version profile.Version

	// GlobalOrigin offsets repository coordinates from the global frame.
	GlobalOrigin geo.Vector3

	// SpatialReference is the optional projection of the repository.
	SpatialReference *geo.SpatialReference
}
