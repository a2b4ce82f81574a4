package testutil

import (
	"fmt"
	"sync"
)

// GUIDSequence generates predictable GUIDs for tests.
//
// The first call to Next returns "00000000-0000-4000-8000-000000000001".
// Two sequences produce the same values in the same order, so repositories
// built with one give byte-identical changesets across runs.
//
// Thread-safety: All methods are safe for concurrent use.
type GUIDSequence struct {
	mu  sync.Mutex
	seq uint64
}

// NewGUIDSequence creates a sequence starting at 0.
func NewGUIDSequence() *GUIDSequence {
	return &GUIDSequence{}
}

// Next returns the next GUID. Its signature matches repo.Options.NewGUID.
func (g *GUIDSequence) Next() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.seq++
	return fmt.Sprintf("00000000-0000-4000-8000-%012x", g.seq)
}

// Count returns how many GUIDs have been handed out.
func (g *GUIDSequence) Count() uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.seq
}

// Reset restarts the sequence for test reuse.
func (g *GUIDSequence) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.seq = 0
}
