// Package sqlite persists checkpoints and run history in a local SQLite
// database.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that
// requires no CGO. A single Store backs two port interfaces:
//
//   - SyncStateStore: one encoded checkpoint per source
//   - RunStore: an append-only log of per-resource sync runs
//
// # Schema
//
// The schema is managed through numbered migrations embedded from the
// migrations/ directory. Applied versions are tracked in schema_migrations.
//
// # Data Location
//
// By default the database lives at ~/.tidemark/data/state.db.
//
// # Thread Safety
//
// All operations are safe for concurrent use. SQLite runs in WAL mode with a
// busy timeout so readers do not block the writer.
package sqlite
