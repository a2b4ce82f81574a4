// Package concurrency defines the boundary between a repository handle and
// whatever arbitrates shared resources across replicas: entity locks and
// code (name) reservations.
package concurrency

import (
	"context"
	"errors"
	"fmt"

	"github.com/roach88/briefcase/internal/changeset"
	"github.com/roach88/briefcase/internal/ids"
)

var (
	// ErrLockConflict is returned when another replica holds a requested lock.
	ErrLockConflict = errors.New("entity locked by another replica")

	// ErrCodeTaken is returned when another replica reserved a requested code.
	ErrCodeTaken = errors.New("code reserved by another replica")
)

// Code identifies a unique (spec, scope, value) triple.
type Code struct {
	SpecID  ids.EntityID `json:"spec_id"`
	ScopeID ids.EntityID `json:"scope_id"`
	Value   string       `json:"value"`
}

func (c Code) String() string {
	return fmt.Sprintf("%s/%s/%s", c.SpecID, c.ScopeID, c.Value)
}

// Coordinator arbitrates locks and codes between replicas. It also observes
// changesets applied to the repository that owns it.
//
// A repository handle exclusively owns its coordinator; swapping it is only
// allowed while the handle has no pending changes.
type Coordinator interface {
	changeset.Observer

	// AcquireLocks takes exclusive locks on entities for replica. It is
	// all-or-nothing: on ErrLockConflict no lock is taken.
	AcquireLocks(ctx context.Context, replica ids.ReplicaID, entities []ids.EntityID) error

	// ReleaseLocks drops every lock held by replica.
	ReleaseLocks(ctx context.Context, replica ids.ReplicaID) error

	// ReserveCodes reserves codes for replica, all-or-nothing.
	ReserveCodes(ctx context.Context, replica ids.ReplicaID, codes []Code) error
}

// Optimistic grants every request. Conflicts surface when changesets meet.
type Optimistic struct{}

var _ Coordinator = Optimistic{}

func (Optimistic) AcquireLocks(context.Context, ids.ReplicaID, []ids.EntityID) error { return nil }
func (Optimistic) ReleaseLocks(context.Context, ids.ReplicaID) error                 { return nil }
func (Optimistic) ReserveCodes(context.Context, ids.ReplicaID, []Code) error         { return nil }
func (Optimistic) ChangesetApplied(context.Context, *changeset.Changeset) error      { return nil }

// TouchedEntities lists the entity ids a changeset writes, in op order,
// without duplicates.
func TouchedEntities(cs *changeset.Changeset) []ids.EntityID {
	seen := make(map[ids.EntityID]bool, len(cs.Ops))
	var out []ids.EntityID
	for _, op := range cs.Ops {
		if op.Table != "entities" || seen[op.ID] {
			continue
		}
		seen[op.ID] = true
		out = append(out, op.ID)
	}
	return out
}
