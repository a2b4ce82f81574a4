// Package ids partitions the 64-bit entity id space by replica.
//
// Each replica (briefcase) owns a disjoint window of ids:
//
//	RangeStart(r) = r << Bits
//	RangeEnd(r)   = RangeStart(r+1)
//
// Cross-replica safety comes entirely from disjoint windows. No runtime lock
// or durable counter is involved: the allocator cursor is re-derived from the
// persisted rows every time a repository is opened or its replica changes.
//
// This package imports nothing internal.
package ids
