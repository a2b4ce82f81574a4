package concurrency

import (
	"context"

	"github.com/roach88/briefcase/internal/ids"
)

// Reservations caches what a handle already obtained from its coordinator
// so repeated edits of one entity do not round-trip. The cache belongs to
// one coordinator; it must be reset whenever the coordinator changes.
type Reservations struct {
	locks map[ids.EntityID]bool
	codes map[Code]bool
}

// NewReservations returns an empty cache.
func NewReservations() *Reservations {
	r := &Reservations{}
	r.Reset()
	return r
}

// Reset forgets every cached lock and code.
func (r *Reservations) Reset() {
	r.locks = make(map[ids.EntityID]bool)
	r.codes = make(map[Code]bool)
}

// Lock acquires through c only the locks not already held.
func (r *Reservations) Lock(ctx context.Context, c Coordinator, replica ids.ReplicaID, entities ...ids.EntityID) error {
	var missing []ids.EntityID
	for _, id := range entities {
		if !r.locks[id] {
			missing = append(missing, id)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	if err := c.AcquireLocks(ctx, replica, missing); err != nil {
		return err
	}
	for _, id := range missing {
		r.locks[id] = true
	}
	return nil
}

// Reserve reserves through c only the codes not already held.
func (r *Reservations) Reserve(ctx context.Context, c Coordinator, replica ids.ReplicaID, codes ...Code) error {
	var missing []Code
	for _, code := range codes {
		if !r.codes[code] {
			missing = append(missing, code)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	if err := c.ReserveCodes(ctx, replica, missing); err != nil {
		return err
	}
	for _, code := range missing {
		r.codes[code] = true
	}
	return nil
}

// Len returns the number of cached locks and codes.
func (r *Reservations) Len() (locks, codes int) {
	return len(r.locks), len(r.codes)
}
