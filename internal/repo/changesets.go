package repo

import (
	"context"
	"fmt"
	"strings"

	"github.com/roach88/briefcase/internal/changeset"
)

// CreateChangeset folds every local transaction saved since the last push
// into one changeset on top of the last applied changeset. The changeset
// is not recorded until MarkPushed.
func (r *Repository) CreateChangeset(ctx context.Context) (*changeset.Changeset, error) {
	if r.HasChanges() {
		return nil, ErrBusy
	}
	cs, _, err := r.foldLocal(ctx)
	return cs, err
}

// MarkPushed records cs, which must be the changeset CreateChangeset
// returns right now, as applied and drops the local transactions it holds.
// The coordinator observes it before commit.
func (r *Repository) MarkPushed(ctx context.Context, cs *changeset.Changeset) error {
	if r.HasChanges() {
		return ErrBusy
	}
	folded, through, err := r.foldLocal(ctx)
	if err != nil {
		return err
	}
	if folded.ID != cs.ID {
		return fmt.Errorf("mark pushed: changeset %s does not match local transactions (%s)",
			changeset.Short(cs.ID), changeset.Short(folded.ID))
	}

	tx, err := r.st.Begin(ctx)
	if err != nil {
		return fmt.Errorf("mark pushed: %w", err)
	}
	defer tx.Rollback()

	if err := tx.DeleteLocalTxns(ctx, through); err != nil {
		return fmt.Errorf("mark pushed: %w", err)
	}
	if err := r.coord.ChangesetApplied(ctx, cs); err != nil {
		return fmt.Errorf("mark pushed: coordinator: %w", err)
	}
	if err := tx.RecordApplied(ctx, cs); err != nil {
		return fmt.Errorf("mark pushed: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("mark pushed: %w", err)
	}

	r.reservations.Reset()
	r.logger.Info("changeset pushed", "changeset_id", changeset.Short(cs.ID), "ops", len(cs.Ops))
	return nil
}

func (r *Repository) foldLocal(ctx context.Context) (*changeset.Changeset, int64, error) {
	txns, err := r.st.LocalTxns(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("create changeset: %w", err)
	}
	if len(txns) == 0 {
		return nil, 0, ErrNoLocalChanges
	}
	parent, err := r.st.LastApplied(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("create changeset: %w", err)
	}

	var (
		ops   []changeset.Op
		descs []string
	)
	for _, t := range txns {
		ops = append(ops, t.Ops...)
		if t.Description != "" {
			descs = append(descs, t.Description)
		}
	}
	cs, err := changeset.New(parent, r.replica, strings.Join(descs, "; "), ops)
	if err != nil {
		return nil, 0, fmt.Errorf("create changeset: %w", err)
	}
	return cs, txns[len(txns)-1].Seq, nil
}

// LocalTxnCount returns the number of saved, unpushed local transactions.
func (r *Repository) LocalTxnCount(ctx context.Context) (int, error) {
	txns, err := r.st.LocalTxns(ctx)
	if err != nil {
		return 0, err
	}
	return len(txns), nil
}

// LastApplied returns the id of the newest changeset in the chain.
func (r *Repository) LastApplied(ctx context.Context) (string, error) {
	return r.conn().LastApplied(ctx)
}
