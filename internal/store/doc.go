// Package store provides SQLite-backed storage for one repository replica.
//
// The store is the narrow storage collaborator of the repository core:
//   - MaxIDInRange: the allocator's only query
//   - ApplyOp: generic row insert/update/delete used by local edits and by
//     changesets received from other replicas
//   - Profile version read and the fixed list of upgrade steps
//   - Typed reads of schemas, classes, entities, links, code specs, resources
//   - Local transaction log and the applied changeset chain
//
// # Connections
//
// Conn is the query surface shared by *Store (autocommit) and *Tx. SQLite
// allows one writer, so the pool is limited to a single connection; while a
// Tx is open every read on the same handle must go through that Tx.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// All list queries order by id ASC so results are deterministic.
package store
