package ids

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// DefaultBits is the width of the per-replica local id. RANGE = 1<<DefaultBits.
const DefaultBits = 40

var (
	// ErrReplicaOutOfRange is returned for replica ids whose window does not
	// fit below 2^63 (SQLite stores INTEGER as signed 64-bit).
	ErrReplicaOutOfRange = errors.New("replica id out of range")

	// ErrInvalidEntityID is returned when parsing a malformed id string.
	ErrInvalidEntityID = errors.New("invalid entity id")
)

// ReplicaID names one independently-writing copy of a repository.
// Zero is the unassigned (master) identity and owns the well-known ids.
type ReplicaID uint32

// Unassigned is the replica identity of a repository that was never issued
// an id by a hub.
const Unassigned ReplicaID = 0

// EntityID is a 64-bit repository-wide identifier. Zero is invalid.
type EntityID uint64

// IsValid reports whether id is non-zero.
func (id EntityID) IsValid() bool {
	return id != 0
}

// String renders the id as lower-case hex, e.g. "0x1f".
func (id EntityID) String() string {
	return "0x" + strconv.FormatUint(uint64(id), 16)
}

// ParseEntityID parses a hex ("0x1f") or decimal ("31") id.
func ParseEntityID(s string) (EntityID, error) {
	s = strings.TrimSpace(s)
	var (
		v   uint64
		err error
	)
	if rest, ok := strings.CutPrefix(strings.ToLower(s), "0x"); ok {
		v, err = strconv.ParseUint(rest, 16, 64)
	} else {
		v, err = strconv.ParseUint(s, 10, 64)
	}
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidEntityID, s)
	}
	return EntityID(v), nil
}

// Partition fixes the per-replica window size. The zero value uses DefaultBits.
type Partition struct {
	Bits uint
}

// DefaultPartition returns the partition used by repositories in production.
func DefaultPartition() Partition {
	return Partition{Bits: DefaultBits}
}

func (p Partition) bits() uint {
	if p.Bits == 0 {
		return DefaultBits
	}
	return p.Bits
}

// Range is the number of ids owned by each replica.
func (p Partition) Range() uint64 {
	return 1 << p.bits()
}

// MaxReplica is the largest replica id whose window ends at or below 2^63.
func (p Partition) MaxReplica() ReplicaID {
	m := uint64(1)<<(63-p.bits()) - 1
	if m > uint64(^uint32(0)) {
		m = uint64(^uint32(0))
	}
	return ReplicaID(m)
}

// Validate checks that r has a representable window.
func (p Partition) Validate(r ReplicaID) error {
	if b := p.bits(); b >= 63 {
		return fmt.Errorf("partition bits %d: must be below 63", b)
	}
	if r > p.MaxReplica() {
		return fmt.Errorf("%w: %d > %d", ErrReplicaOutOfRange, r, p.MaxReplica())
	}
	return nil
}

// RangeStart is the first id owned by r.
func (p Partition) RangeStart(r ReplicaID) EntityID {
	return EntityID(uint64(r) << p.bits())
}

// RangeEnd is one past the last id owned by r.
func (p Partition) RangeEnd(r ReplicaID) EntityID {
	return EntityID((uint64(r) + 1) << p.bits())
}

// ReplicaOf returns the replica whose window contains id.
func (p Partition) ReplicaOf(id EntityID) ReplicaID {
	return ReplicaID(uint64(id) >> p.bits())
}

// Contains reports whether id lies in r's window.
func (p Partition) Contains(r ReplicaID, id EntityID) bool {
	return id >= p.RangeStart(r) && id < p.RangeEnd(r)
}

// MarshalText implements encoding.TextMarshaler using the hex form.
func (id EntityID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler; hex and decimal are accepted.
func (id *EntityID) UnmarshalText(b []byte) error {
	parsed, err := ParseEntityID(string(b))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// Well-known ids owned by replica 0 and present in every repository.
const (
	RootSubject          EntityID = 0x1
	RealityDataPartition EntityID = 0xe
	DictionaryPartition  EntityID = 0x10
)

// WellKnown lists the well-known ids in ascending order.
var WellKnown = []EntityID{RootSubject, RealityDataPartition, DictionaryPartition}
