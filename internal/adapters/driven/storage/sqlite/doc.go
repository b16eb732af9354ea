// Package sqlite provides the default knowledge store, backed by a single SQLite file.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that requires
// no CGO, enabling easy cross-compilation. One database connection serves:
//
//   - KnowledgeStore: embedded chunks with brute-force cosine search
//   - SeedHistory: reports of completed seed runs
//
// # Schema
//
// The database schema is managed through versioned migrations stored in the
// migrations/ directory. Each migration is a pair of .up.sql and .down.sql files.
//
// # Vectors
//
// Embeddings are stored as little-endian float32 blobs. Search loads the
// candidate rows that pass the metadata filter and ranks them in process,
// which is adequate for the few thousand chunks a seeded corpus holds.
//
// # Data Location
//
// By default, the database is stored at ~/.forager/data/knowledge.db
//
// # Thread Safety
//
// All operations are thread-safe. The store uses database-level locking provided
// by SQLite in WAL mode, and ReplaceThread runs in a single transaction.
package sqlite
