package hub

import (
	"context"
	"errors"
	"fmt"

	"github.com/roach88/briefcase/internal/changeset"
	"github.com/roach88/briefcase/internal/repo"
)

// PushLocal folds the repository's local transactions into a changeset,
// pushes it and marks it pushed. It returns nil, nil when there is nothing
// to push.
func (h *Hub) PushLocal(ctx context.Context, r *repo.Repository) (*changeset.Changeset, error) {
	cs, err := r.CreateChangeset(ctx)
	if errors.Is(err, repo.ErrNoLocalChanges) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if err := h.Push(ctx, cs); err != nil {
		return nil, err
	}
	if err := r.MarkPushed(ctx, cs); err != nil {
		return nil, fmt.Errorf("pushed %s but could not record it: %w", changeset.Short(cs.ID), err)
	}
	return cs, nil
}

// Pull applies every changeset pushed since the repository's last applied
// one. It returns the number applied.
func (h *Hub) Pull(ctx context.Context, r *repo.Repository) (int, error) {
	last, err := r.LastApplied(ctx)
	if err != nil {
		return 0, fmt.Errorf("pull: %w", err)
	}
	seq, err := h.ChangesetsSince(ctx, last)
	if err != nil {
		return 0, fmt.Errorf("pull: %w", err)
	}
	if len(seq) == 0 {
		return 0, nil
	}
	if err := r.ApplyChangesets(ctx, seq); err != nil {
		return 0, fmt.Errorf("pull: %w", err)
	}
	h.logger.Info("changesets pulled", "count", len(seq), "replica_id", r.Replica())
	return len(seq), nil
}
