package ids

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrNotSeeded is returned by Allocate before the first successful Seed.
	ErrNotSeeded = errors.New("allocator not seeded")

	// ErrRangeExhausted is returned when the replica window has no ids left.
	ErrRangeExhausted = errors.New("replica id range exhausted")
)

// RangeScanner finds the largest persisted id in the inclusive window [lo, hi].
// found is false when the window holds no rows.
type RangeScanner interface {
	MaxIDInRange(ctx context.Context, lo, hi EntityID) (max EntityID, found bool, err error)
}

// Allocator hands out strictly increasing ids inside one replica's window.
//
// It is not safe for concurrent use; the owning repository handle is
// single-writer. The cursor is never persisted. Seed re-derives it from data.
type Allocator struct {
	part    Partition
	scanner RangeScanner
	replica ReplicaID
	next    EntityID
	seeded  bool
}

// NewAllocator creates an unseeded allocator reading from scanner.
func NewAllocator(part Partition, scanner RangeScanner) *Allocator {
	return &Allocator{part: part, scanner: scanner}
}

// Rebind switches the scanner later Seed calls read from. The cursor is kept.
func (a *Allocator) Rebind(scanner RangeScanner) {
	a.scanner = scanner
}

// Seed positions the cursor one past the largest persisted id in r's window,
// or at RangeStart(r) when the window is empty.
//
// Seed is idempotent when no Allocate call intervenes. On error the previous
// cursor is left untouched.
func (a *Allocator) Seed(ctx context.Context, r ReplicaID) error {
	if err := a.part.Validate(r); err != nil {
		return fmt.Errorf("seed allocator: %w", err)
	}

	lo := a.part.RangeStart(r)
	hi := a.part.RangeEnd(r) - 1

	max, found, err := a.scanner.MaxIDInRange(ctx, lo, hi)
	if err != nil {
		return fmt.Errorf("seed allocator: replica %d: %w", r, err)
	}

	next := lo
	if found {
		next = max + 1
	}

	a.replica = r
	a.next = next
	a.seeded = true
	return nil
}

// Allocate returns the cursor value and advances it.
func (a *Allocator) Allocate() (EntityID, error) {
	if !a.seeded {
		return 0, ErrNotSeeded
	}
	if a.next >= a.part.RangeEnd(a.replica) {
		return 0, fmt.Errorf("%w: replica %d", ErrRangeExhausted, a.replica)
	}
	// Replica 0 owns id 0, which is never a valid entity id.
	if a.next == 0 {
		a.next = 1
	}
	id := a.next
	a.next++
	return id, nil
}

// Replica returns the replica the allocator was last seeded for.
func (a *Allocator) Replica() ReplicaID {
	return a.replica
}

// Next returns the id the next Allocate call would hand out.
func (a *Allocator) Next() EntityID {
	return a.next
}

// Seeded reports whether Seed has succeeded at least once.
func (a *Allocator) Seeded() bool {
	return a.seeded
}

// Partition returns the allocator's window layout.
func (a *Allocator) Partition() Partition {
	return a.part
}
