// Package store provides SQLite-backed durable storage for diagramlab.
//
// Three tables:
//   - game_snapshots: one row per (game, session), holding the snapshot JSON
//     and a domain-separated SHA-256 checksum verified on every load
//   - settings: key/value user preferences
//   - events: session events flushed from the in-memory event log
//
// # Ordering
//
// Snapshots never move backwards: a save carrying an older version than the
// stored row is ignored. Events are keyed by (session_id, seq) and read back
// ORDER BY seq ASC, so flushing the same event twice is harmless.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
