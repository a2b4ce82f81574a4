package repo

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"github.com/roach88/briefcase/internal/changeset"
	"github.com/roach88/briefcase/internal/concurrency"
	"github.com/roach88/briefcase/internal/ids"
	"github.com/roach88/briefcase/internal/profile"
	"github.com/roach88/briefcase/internal/store"
)

// Repository is an open repository handle.
type Repository struct {
	st      *store.Store
	tx      *store.Tx // open local transaction; nil when there are no unsaved changes
	part    ids.Partition
	alloc   *ids.Allocator
	replica ids.ReplicaID
	version profile.Version

	coord        concurrency.Coordinator
	reservations *concurrency.Reservations

	trackPolicy bool
	tracker     *tracker
	inserters   *inserterCache
	federation  bool // layout has entities.federation_guid

	token   *WriteToken
	newGUID func() string
	logger  *slog.Logger
	metrics *metrics
	opened  OpenReport
	closed  bool
}

// OpenReport describes what Open did.
type OpenReport struct {
	Stored   profile.Version `json:"stored_version"`
	Status   profile.Status  `json:"-"`
	Applied  int             `json:"changesets_applied"`
	Upgraded bool            `json:"upgraded"`
}

// Opened returns the report of the open that produced the handle.
func (r *Repository) Opened() OpenReport {
	return r.opened
}

// WriteToken proves the holder obtained write access from an opened handle.
type WriteToken struct {
	repo *Repository
}

// WriteToken returns the handle's write capability. It is invalid after Close.
func (r *Repository) WriteToken() *WriteToken {
	return r.token
}

func (r *Repository) checkToken(t *WriteToken) error {
	if t == nil || t.repo != r || r.closed {
		return ErrNoWriteToken
	}
	return nil
}

// Close rolls back unsaved changes and closes the file.
func (r *Repository) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	if r.tx != nil {
		r.tx.Rollback()
		r.tx = nil
	}
	return r.st.Close()
}

// Path returns the repository file path.
func (r *Repository) Path() string {
	return r.st.Path()
}

// Replica returns the replica identity ids are allocated under.
func (r *Repository) Replica() ids.ReplicaID {
	return r.replica
}

// ProfileVersion returns the layout version the handle operates on.
func (r *Repository) ProfileVersion() profile.Version {
	return r.version
}

// Partition returns the id window layout.
func (r *Repository) Partition() ids.Partition {
	return r.part
}

// Coordinator returns the current coordinator.
func (r *Repository) Coordinator() concurrency.Coordinator {
	return r.coord
}

// Tracking reports whether saved changes are being recorded.
func (r *Repository) Tracking() bool {
	return r.tracker.enabled
}

// HasChanges reports whether the handle has unsaved changes.
func (r *Repository) HasChanges() bool {
	return r.tx != nil
}

// conn returns the connection reads must use: the open transaction if any.
func (r *Repository) conn() *store.Conn {
	if r.tx != nil {
		return &r.tx.Conn
	}
	return &r.st.Conn
}

// begin returns the open local transaction, starting one if needed.
func (r *Repository) begin(ctx context.Context) (*store.Tx, error) {
	if r.closed {
		return nil, ErrClosed
	}
	if r.tx != nil {
		return r.tx, nil
	}
	tx, err := r.st.Begin(ctx)
	if err != nil {
		return nil, err
	}
	r.tx = tx
	return tx, nil
}

// SaveChanges commits unsaved changes. With tracking on, the captured ops
// are recorded as one local transaction in the same commit.
func (r *Repository) SaveChanges(ctx context.Context, description string) error {
	if r.tx == nil {
		return nil
	}
	if r.tracker.enabled && len(r.tracker.ops) > 0 {
		if err := r.tx.AppendLocalTxn(ctx, description, r.tracker.ops); err != nil {
			return fmt.Errorf("save changes: %w", err)
		}
	}
	if err := r.tx.Commit(); err != nil {
		r.tx = nil
		r.tracker.reset()
		r.inserters.Clear()
		return fmt.Errorf("save changes: %w", err)
	}
	r.logger.Debug("changes saved", "ops", len(r.tracker.ops), "description", description)
	r.tx = nil
	r.tracker.reset()
	return nil
}

// AbandonChanges discards unsaved changes. Allocated ids are not handed out
// again in this session.
func (r *Repository) AbandonChanges() error {
	if r.tx == nil {
		return nil
	}
	err := r.tx.Rollback()
	r.tx = nil
	r.tracker.reset()
	r.inserters.Clear()
	return err
}

// SetCoordinator replaces the coordinator. It fails with ErrBusy while there
// are unsaved changes; on success the cached reservations obtained from the
// previous coordinator are discarded.
func (r *Repository) SetCoordinator(c concurrency.Coordinator) error {
	if r.HasChanges() {
		return ErrBusy
	}
	if c == nil {
		c = concurrency.Optimistic{}
	}
	r.coord = c
	r.reservations.Reset()
	return nil
}

// ReassignReplica changes the replica identity. Recorded local transactions
// are dropped; they were made under the old identity. Fails with ErrBusy
// while there are unsaved changes.
func (r *Repository) ReassignReplica(ctx context.Context, replica ids.ReplicaID) error {
	if r.HasChanges() {
		return ErrBusy
	}
	if err := r.part.Validate(replica); err != nil {
		return fmt.Errorf("reassign replica: %w", err)
	}

	r.tracker.disable()
	defer func() {
		if r.trackPolicy {
			r.tracker.enable()
		}
	}()

	tx, err := r.st.Begin(ctx)
	if err != nil {
		return fmt.Errorf("reassign replica: %w", err)
	}
	defer tx.Rollback()

	if err := tx.DeleteLocalTxns(ctx, math.MaxInt64); err != nil {
		return fmt.Errorf("reassign replica: %w", err)
	}
	if err := tx.SetReplicaID(ctx, replica); err != nil {
		return fmt.Errorf("reassign replica: %w", err)
	}
	// Seed before commit so a failure leaves file and handle on the old id.
	alloc := ids.NewAllocator(r.part, &tx.Conn)
	if err := alloc.Seed(ctx, replica); err != nil {
		return fmt.Errorf("reassign replica: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("reassign replica: %w", err)
	}
	alloc.Rebind(r.st)

	r.logger.Info("replica reassigned", "from", r.replica, "replica_id", replica)
	r.alloc = alloc
	r.replica = replica
	r.reservations.Reset()
	return nil
}

// ApplyChangesets applies received changesets through the pipeline, with
// the coordinator as observer, then re-seeds the allocator. Saved local
// transactions stay pending; the next CreateChangeset builds on top of the
// received chain.
func (r *Repository) ApplyChangesets(ctx context.Context, seq []*changeset.Changeset) error {
	if r.closed {
		return ErrClosed
	}
	if r.HasChanges() {
		return ErrBusy
	}
	p := changeset.NewPipeline(r.st, changeset.WithObserver(r.coord), changeset.WithLogger(r.logger))
	applyErr := p.Apply(ctx, seq)
	r.recordApply(applyErr)

	r.inserters.Clear()
	if err := r.alloc.Seed(ctx, r.replica); err != nil {
		if applyErr != nil {
			return applyErr
		}
		return fmt.Errorf("apply changesets: %w", err)
	}
	return applyErr
}

func (r *Repository) recordApply(err error) {
	result := "ok"
	switch {
	case changeset.IsOutOfOrder(err):
		result = "out_of_order"
	case err != nil:
		result = "failed"
	}
	r.metrics.changesets.WithLabelValues(result).Inc()
}

// allocate hands out the next id of the handle's replica window.
func (r *Repository) allocate() (ids.EntityID, error) {
	id, err := r.alloc.Allocate()
	if err != nil {
		return 0, err
	}
	r.metrics.allocations.Inc()
	return id, nil
}

// write applies op in the open transaction and captures it for tracking.
func (r *Repository) write(ctx context.Context, op changeset.Op) error {
	tx, err := r.begin(ctx)
	if err != nil {
		return err
	}
	if err := tx.ApplyOp(ctx, op); err != nil {
		return err
	}
	r.tracker.capture(op)
	r.metrics.ops.WithLabelValues(op.Table, string(op.Kind)).Inc()
	return nil
}

// tracker captures the ops of the open transaction while enabled.
type tracker struct {
	enabled  bool
	ops      []changeset.Op
	perTable map[string]int
}

func newTracker(enabled bool) *tracker {
	t := &tracker{enabled: enabled}
	t.reset()
	return t
}

func (t *tracker) capture(op changeset.Op) {
	if !t.enabled {
		return
	}
	t.ops = append(t.ops, op)
	t.perTable[op.Table]++
}

func (t *tracker) reset() {
	t.ops = nil
	t.perTable = make(map[string]int)
}

func (t *tracker) enable() {
	t.enabled = true
	t.reset()
}

func (t *tracker) disable() {
	t.enabled = false
	t.reset()
}
