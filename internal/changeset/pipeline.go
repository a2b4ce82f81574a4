package changeset

import (
	"context"
	"fmt"
	"log/slog"
)

// Target is the storage a pipeline applies changesets to.
type Target interface {
	// LastApplied returns the id of the last applied changeset, "" if none.
	LastApplied(ctx context.Context) (string, error)

	// BeginApply opens the transaction that will hold one changeset.
	BeginApply(ctx context.Context) (ApplyTx, error)
}

// ApplyTx is one changeset's storage transaction.
type ApplyTx interface {
	ApplyOp(ctx context.Context, op Op) error
	RecordApplied(ctx context.Context, cs *Changeset) error
	Commit() error
	Rollback() error
}

// Observer is notified inside the changeset's transaction, after its ops
// were written and before commit. An observer error rolls the changeset back.
type Observer interface {
	ChangesetApplied(ctx context.Context, cs *Changeset) error
}

// Pipeline applies ordered changesets to a Target.
//
// Pipeline is synchronous and not safe for concurrent use. After Apply
// returns (success or failure), the repository's id bookkeeping is stale
// and the caller must re-seed its allocator.
type Pipeline struct {
	target   Target
	observer Observer
	logger   *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithObserver registers an observer called for every applied changeset.
func WithObserver(o Observer) Option {
	return func(p *Pipeline) { p.observer = o }
}

// WithLogger sets the pipeline logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(p *Pipeline) {
		if l != nil {
			p.logger = l
		}
	}
}

// NewPipeline creates a pipeline over target.
func NewPipeline(target Target, opts ...Option) *Pipeline {
	p := &Pipeline{target: target, logger: slog.Default()}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Apply applies seq strictly in order. It stops at the first failure and
// returns an *ApplyError; changesets before the failing one stay applied.
func (p *Pipeline) Apply(ctx context.Context, seq []*Changeset) error {
	if len(seq) == 0 {
		return nil
	}

	last, err := p.target.LastApplied(ctx)
	if err != nil {
		return &ApplyError{Code: ErrCodeApplyFailed, Index: 0, ChangesetID: seq[0].ID,
			Err: fmt.Errorf("read last applied: %w", err)}
	}

	for i, cs := range seq {
		if cs.Parent != last {
			p.logger.Warn("changeset out of order",
				"changeset_id", short(cs.ID),
				"parent", short(cs.Parent),
				"last_applied", short(last),
				"index", i,
			)
			return &ApplyError{Code: ErrCodeOutOfOrder, ChangesetID: cs.ID, Index: i,
				Expected: last, Actual: cs.Parent}
		}

		if err := p.applyOne(ctx, cs); err != nil {
			p.logger.Error("changeset apply failed",
				"changeset_id", short(cs.ID),
				"index", i,
				"error", err,
			)
			return &ApplyError{Code: ErrCodeApplyFailed, ChangesetID: cs.ID, Index: i, Err: err}
		}

		p.logger.Debug("changeset applied",
			"changeset_id", short(cs.ID),
			"replica_id", cs.Replica,
			"ops", len(cs.Ops),
		)
		last = cs.ID
	}

	return nil
}

// applyOne writes one changeset in its own transaction.
func (p *Pipeline) applyOne(ctx context.Context, cs *Changeset) error {
	if err := Verify(cs); err != nil {
		return err
	}

	tx, err := p.target.BeginApply(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback() // No-op after commit

	for i, op := range cs.Ops {
		if err := tx.ApplyOp(ctx, op); err != nil {
			return fmt.Errorf("op %d (%s %s %s): %w", i, op.Kind, op.Table, op.ID, err)
		}
	}

	if p.observer != nil {
		if err := p.observer.ChangesetApplied(ctx, cs); err != nil {
			return fmt.Errorf("observer: %w", err)
		}
	}

	if err := tx.RecordApplied(ctx, cs); err != nil {
		return fmt.Errorf("record applied: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}
