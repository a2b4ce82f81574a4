package repo

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/google/uuid"

	"github.com/roach88/briefcase/internal/changeset"
	"github.com/roach88/briefcase/internal/concurrency"
	"github.com/roach88/briefcase/internal/geo"
	"github.com/roach88/briefcase/internal/ids"
	"github.com/roach88/briefcase/internal/profile"
	"github.com/roach88/briefcase/internal/schemadef"
	"github.com/roach88/briefcase/internal/store"
)

// applier runs a changeset sequence against storage.
type applier interface {
	Apply(ctx context.Context, seq []*changeset.Changeset) error
}

// newApplier builds the pipeline Open uses for pending changesets.
var newApplier = func(target changeset.Target, opts ...changeset.Option) applier {
	return changeset.NewPipeline(target, opts...)
}

// Open opens the repository at path. Failures are *OpenError.
func Open(ctx context.Context, path string, opts Options) (*Repository, error) {
	opts = opts.withDefaults()
	logger := opts.Logger.With("path", path)

	st, err := store.Open(path)
	if err != nil {
		logger.Error("open failed", "error", err)
		return nil, &OpenError{Code: ErrCodeIO, Message: "cannot open storage", Err: err}
	}

	r, err := openSequence(ctx, st, opts, logger, newMetrics(opts.Registerer))
	if err != nil {
		st.Close()
		return nil, err
	}
	return r, nil
}

func openSequence(ctx context.Context, st *store.Store, opts Options, logger *slog.Logger, m *metrics) (*Repository, error) {
	stored, err := st.ProfileVersion(ctx)
	if err != nil {
		logger.Error("read profile version failed", "error", err)
		return nil, &OpenError{Code: ErrCodeIO, Message: "cannot read profile version", Err: err}
	}

	status := profile.Classify(stored, opts.Supported)
	m.opens.WithLabelValues(status.String()).Inc()
	logger = logger.With("stored_version", stored.String())

	switch status {
	case profile.TooNew:
		return nil, &OpenError{Code: ErrCodeTooNew,
			Message: fmt.Sprintf("profile %s is newer than supported %s", stored, opts.Supported)}
	case profile.TooOld:
		return nil, &OpenError{Code: ErrCodeTooOld,
			Message: fmt.Sprintf("profile %s is older than supported %s", stored, opts.Supported)}
	}

	upgradeAllowed := opts.AllowUpgrade && status.CanUpgrade()

	// Decided before any I/O so a refused open leaves the file untouched.
	if status == profile.UpgradeRequired && !upgradeAllowed {
		return nil, &OpenError{Code: ErrCodeUpgradeRequired,
			Message: fmt.Sprintf("profile %s must be upgraded to %s", stored, opts.Supported.Max)}
	}
	if status == profile.UpgradeRecommended && !upgradeAllowed {
		logger.Warn("profile upgrade recommended", "supported_version", opts.Supported.Max.String())
	}

	if len(opts.PendingChangesets) > 0 {
		p := newApplier(st, changeset.WithObserver(opts.Coordinator), changeset.WithLogger(logger))
		if err := p.Apply(ctx, opts.PendingChangesets); err != nil {
			m.changesets.WithLabelValues("failed").Inc()
			return nil, &OpenError{Code: ErrCodeChangesetApplyFailed,
				Message: "pending changesets could not be applied", Err: err}
		}
		m.changesets.WithLabelValues("ok").Inc()
	}

	version := stored
	if upgradeAllowed {
		if err := st.Upgrade(ctx, opts.Supported.Max); err != nil {
			logger.Error("profile upgrade failed", "error", err)
			return nil, &OpenError{Code: ErrCodeUpgradeFailed,
				Message: fmt.Sprintf("upgrade %s to %s", stored, opts.Supported.Max), Err: err}
		}
		version = opts.Supported.Max
		logger.Info("profile upgraded", "version", version.String())
	}

	replica, err := st.ReplicaID(ctx)
	if err != nil {
		logger.Error("read replica id failed", "error", err)
		return nil, &OpenError{Code: ErrCodeIO, Message: "cannot read replica id", Err: err}
	}
	alloc := ids.NewAllocator(opts.Partition, st)
	if err := alloc.Seed(ctx, replica); err != nil {
		logger.Error("seed allocator failed", "replica_id", replica, "error", err)
		return nil, &OpenError{Code: ErrCodeIO, Message: "cannot seed id allocator", Err: err}
	}

	federation, err := st.HasColumn(ctx, store.TableEntities, "federation_guid")
	if err != nil {
		return nil, &OpenError{Code: ErrCodeIO, Message: "cannot inspect layout", Err: err}
	}

	r := &Repository{
		st:           st,
		part:         opts.Partition,
		alloc:        alloc,
		replica:      replica,
		version:      version,
		coord:        opts.Coordinator,
		reservations: concurrency.NewReservations(),
		trackPolicy:  opts.TrackChanges,
		tracker:      newTracker(opts.TrackChanges),
		inserters:    newInserterCache(),
		federation:   federation,
		newGUID:      opts.NewGUID,
		logger:       logger,
		metrics:      m,
		opened: OpenReport{
			Stored:   stored,
			Status:   status,
			Applied:  len(opts.PendingChangesets),
			Upgraded: version != stored,
		},
	}
	r.token = &WriteToken{repo: r}

	logger.Info("repository opened",
		"status", status.String(),
		"replica_id", replica,
		"next_id", alloc.Next().String(),
	)
	return r, nil
}

// Create creates a repository file with the well-known entities and the
// core schema, then opens it with opts.
func Create(ctx context.Context, path string, copts CreateOptions, opts Options) (*Repository, error) {
	if copts.Version.IsZero() {
		copts.Version = store.LatestVersion
	}
	if copts.GUID == "" {
		copts.GUID = opts.withDefaults().NewGUID()
	}

	st, err := store.Create(ctx, path, copts.Version)
	if err != nil {
		return nil, fmt.Errorf("create repository: %w", err)
	}
	if err := initialize(ctx, st, copts, opts.withDefaults().Partition); err != nil {
		st.Close()
		os.Remove(path)
		return nil, fmt.Errorf("create repository: %w", err)
	}
	if err := st.Close(); err != nil {
		return nil, fmt.Errorf("create repository: %w", err)
	}
	return Open(ctx, path, opts)
}

// initialize writes the props, well-known entities and core schema of a
// new file in one transaction. Nothing here is tracked.
func initialize(ctx context.Context, st *store.Store, copts CreateOptions, part ids.Partition) error {
	if err := part.Validate(copts.Replica); err != nil {
		return err
	}
	if copts.GUID == "" {
		copts.GUID = uuid.NewString()
	}
	if copts.Name == "" {
		copts.Name = "Root"
	}

	tx, err := st.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	origin, err := geo.EncodeVector(copts.GlobalOrigin)
	if err != nil {
		return err
	}
	props := map[string]string{
		store.PropGUID:         copts.GUID,
		store.PropName:         copts.Name,
		store.PropGlobalOrigin: origin,
	}
	if copts.SpatialReference != nil {
		enc, err := copts.SpatialReference.Encode()
		if err != nil {
			return err
		}
		props[store.PropSpatialReference] = enc
	}
	for name, value := range props {
		if err := tx.SetProp(ctx, store.NamespaceCore, name, value); err != nil {
			return err
		}
	}
	if err := tx.SetReplicaID(ctx, copts.Replica); err != nil {
		return err
	}

	// Well-known entities first so the replica 0 cursor starts above them.
	// Their class ids are filled in once the core schema has ids.
	wellKnown := []struct {
		id    ids.EntityID
		label string
		class string
	}{
		{ids.RootSubject, copts.Name, schemadef.ClassSubject},
		{ids.RealityDataPartition, "RealityDataSources", schemadef.ClassLinkPartition},
		{ids.DictionaryPartition, "Dictionary", schemadef.ClassDefinitionPartition},
	}
	for _, wk := range wellKnown {
		e := store.Entity{ModelID: ids.RootSubject, Label: wk.label}
		if wk.id != ids.RootSubject {
			e.ParentID = ids.RootSubject
		}
		if err := tx.ApplyOp(ctx, changeset.Op{Kind: changeset.Insert, Table: store.TableEntities, ID: wk.id, Row: e.Row()}); err != nil {
			return fmt.Errorf("insert well-known entity %s: %w", wk.id, err)
		}
	}

	alloc := ids.NewAllocator(part, &tx.Conn)
	if err := alloc.Seed(ctx, ids.Unassigned); err != nil {
		return err
	}

	core, err := schemadef.Core()
	if err != nil {
		return err
	}
	if _, err := importSchemas(ctx, &tx.Conn, alloc.Allocate, tx.ApplyOp, []*schemadef.Schema{core}); err != nil {
		return err
	}

	coreKey := schemadef.NameKey(schemadef.CoreSchema)
	for _, wk := range wellKnown {
		cls, ok, err := tx.ClassByName(ctx, coreKey, schemadef.NameKey(wk.class))
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("core class %s missing", wk.class)
		}
		if err := tx.ApplyOp(ctx, changeset.Op{Kind: changeset.Update, Table: store.TableEntities, ID: wk.id,
			Row: map[string]any{"class_id": int64(cls.ID)}}); err != nil {
			return err
		}
	}

	return tx.Commit()
}
