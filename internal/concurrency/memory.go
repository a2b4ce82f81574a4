package concurrency

import (
	"context"
	"fmt"
	"sync"

	"github.com/roach88/briefcase/internal/changeset"
	"github.com/roach88/briefcase/internal/ids"
)

// Memory is an in-process pessimistic coordinator. Locks on the entities a
// changeset touches are released when that changeset is applied.
type Memory struct {
	mu      sync.Mutex
	locks   map[ids.EntityID]ids.ReplicaID
	codes   map[Code]ids.ReplicaID
	applied []string
}

var _ Coordinator = (*Memory)(nil)

// NewMemory creates an empty coordinator.
func NewMemory() *Memory {
	return &Memory{
		locks: make(map[ids.EntityID]ids.ReplicaID),
		codes: make(map[Code]ids.ReplicaID),
	}
}

func (m *Memory) AcquireLocks(_ context.Context, replica ids.ReplicaID, entities []ids.EntityID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, id := range entities {
		if owner, ok := m.locks[id]; ok && owner != replica {
			return fmt.Errorf("lock %s: %w (replica %d)", id, ErrLockConflict, owner)
		}
	}
	for _, id := range entities {
		m.locks[id] = replica
	}
	return nil
}

func (m *Memory) ReleaseLocks(_ context.Context, replica ids.ReplicaID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for id, owner := range m.locks {
		if owner == replica {
			delete(m.locks, id)
		}
	}
	return nil
}

func (m *Memory) ReserveCodes(_ context.Context, replica ids.ReplicaID, codes []Code) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, c := range codes {
		if owner, ok := m.codes[c]; ok && owner != replica {
			return fmt.Errorf("reserve %s: %w (replica %d)", c, ErrCodeTaken, owner)
		}
	}
	for _, c := range codes {
		m.codes[c] = replica
	}
	return nil
}

func (m *Memory) ChangesetApplied(_ context.Context, cs *changeset.Changeset) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, id := range TouchedEntities(cs) {
		if m.locks[id] == cs.Replica {
			delete(m.locks, id)
		}
	}
	m.applied = append(m.applied, cs.ID)
	return nil
}

// LockOwner reports which replica holds the lock on id.
func (m *Memory) LockOwner(id ids.EntityID) (ids.ReplicaID, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.locks[id]
	return r, ok
}

// Applied returns the ids of observed changesets, oldest first.
func (m *Memory) Applied() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.applied...)
}
