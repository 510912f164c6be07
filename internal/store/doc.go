// Package store provides the SQLite-backed journal of clone sessions.
//
// Every clone or inline request run with a journal records:
//   - Sessions: kind, roots, flags, and the fingerprint of the source graphs
//   - Graph mappings: original graph → clone, in translation order
//   - Node mappings: original node → clone, in translation order
//
// # Ordering
//
// Sessions carry a seq from a logical clock, never a timestamp. Every read
// uses ORDER BY seq ASC, id ASC COLLATE BINARY, so two journals of the same
// requests read back identically. Session IDs are UUIDv7.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait on lock contention
//   - foreign_keys=ON: Mappings must reference a session
package store
