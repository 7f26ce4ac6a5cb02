// Package store provides SQLite-backed storage for the home-screen layout.
//
// The store owns two tables:
//   - items: every placed icon, shortcut, folder and widget
//   - screens: one row per workspace page, ordered by screenRank
//
// # Critical Patterns
//
// Caller-supplied identity
//   - Every insert must carry _id; rows without one are rejected
//   - Inserted ids are reported to the ids.Allocator so they are never issued
//
// Versioned schema
//   - The schema version lives in PRAGMA user_version
//   - Open upgrades from any version in [MinVersion, CurrentVersion) by
//     running every migration step in order, one transaction per step
//   - A failed step, a version below MinVersion or a version above
//     CurrentVersion drops both tables and recreates them empty
//
// Single writer
//   - One connection; write operations run in a transaction
//   - Inside WithTx callers must use the Tx, never the Store
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
