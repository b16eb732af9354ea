package sqlite

import (
	"context"
	"database/sql"
	"encoding/binary"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/oliverbatey/forager/internal/adapters/driven/storage"
	"github.com/oliverbatey/forager/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/oliverbatey/forager/internal/core/domain"
	"github.com/oliverbatey/forager/internal/core/ports/driven"
)

// DBFile is the database file name inside the data directory.
const DBFile = "knowledge.db"

var (
	_ driven.KnowledgeStore = (*Store)(nil)
	_ driven.SeedHistory    = (*Store)(nil)
)

// Store is the SQLite-backed knowledge store.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore opens (creating if needed) the store in dataDir.
// If dataDir is empty, defaults to ~/.forager/data.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".forager", "data")
	}

	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w: %w", domain.ErrStoreUnavailable, err)
	}

	dbPath := filepath.Join(dataDir, DBFile)

	// Open database with WAL mode for better concurrency
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w: %w", domain.ErrStoreUnavailable, err)
	}

	// A single connection serializes writers so concurrent transactions never see SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	s := &Store{
		db:   db,
		path: dbPath,
	}

	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w: %w", domain.ErrStoreUnavailable, err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// migrate runs all pending migrations, recording each applied version.
func (s *Store) migrate(fsys fs.FS) error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// Extract version number (e.g., "001_knowledge.up.sql" -> 1)
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue
		}
		if version <= currentVersion {
			continue
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}

		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("beginning migration %s: %w", name, err)
		}
		if _, err := tx.Exec(string(content)); err != nil {
			tx.Rollback()
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
		if _, err := tx.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			tx.Rollback()
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("committing migration %s: %w", name, err)
		}
	}

	return nil
}

// ==================== Knowledge Store ====================

// execer is satisfied by *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

const upsertChunkSQL = `
	INSERT INTO chunks (id, thread_id, seq, doc_type, text, embedding, subreddit, title, permalink, author, timestamp)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		thread_id = excluded.thread_id,
		seq = excluded.seq,
		doc_type = excluded.doc_type,
		text = excluded.text,
		embedding = excluded.embedding,
		subreddit = excluded.subreddit,
		title = excluded.title,
		permalink = excluded.permalink,
		author = excluded.author,
		timestamp = excluded.timestamp,
		updated_at = CURRENT_TIMESTAMP
`

// Upsert inserts or replaces chunks keyed by ID.
func (s *Store) Upsert(ctx context.Context, chunks []domain.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	return s.inTx(ctx, func(tx *sql.Tx) error {
		return upsertChunks(ctx, tx, chunks)
	})
}

// ReplaceThread upserts chunks and deletes the thread's other chunks in one transaction.
func (s *Store) ReplaceThread(ctx context.Context, threadID string, chunks []domain.Chunk) error {
	if err := storage.CheckThreadChunks(threadID, chunks); err != nil {
		return err
	}

	return s.inTx(ctx, func(tx *sql.Tx) error {
		if err := upsertChunks(ctx, tx, chunks); err != nil {
			return err
		}

		query := "DELETE FROM chunks WHERE thread_id = ?"
		args := []any{threadID}
		if len(chunks) > 0 {
			placeholders := strings.Repeat("?,", len(chunks))
			query += " AND id NOT IN (" + placeholders[:len(placeholders)-1] + ")"
			for i := range chunks {
				args = append(args, chunks[i].ID)
			}
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("deleting stale chunks: %w", err)
		}
		return nil
	})
}

// Search ranks stored chunks that pass filter by cosine similarity to vector.
func (s *Store) Search(ctx context.Context, vector []float32, k int, filter domain.SearchFilter) ([]domain.ScoredChunk, error) {
	if k <= 0 {
		return nil, nil
	}

	query := `SELECT id, thread_id, seq, doc_type, text, embedding, subreddit, title, permalink, author, timestamp FROM chunks`
	var where []string
	var args []any
	if filter.Subreddit != "" {
		where = append(where, "subreddit = ? COLLATE NOCASE")
		args = append(args, filter.Subreddit)
	}
	if filter.DocType != "" {
		where = append(where, "doc_type = ?")
		args = append(args, string(filter.DocType))
	}
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, unavailable("querying chunks", err)
	}
	defer rows.Close()

	var chunks []domain.Chunk //nolint:prealloc // size unknown from query
	for rows.Next() {
		chunk, err := scanChunk(rows)
		if err != nil {
			return nil, unavailable("scanning chunk", err)
		}
		chunks = append(chunks, *chunk)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("iterating chunks", err)
	}

	return storage.ScoreAll(chunks, vector, k, domain.SearchFilter{}), nil
}

// Count returns the number of stored chunks.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM chunks").Scan(&n); err != nil {
		return 0, unavailable("counting chunks", err)
	}
	return n, nil
}

// DeleteThread removes every chunk of threadID.
func (s *Store) DeleteThread(ctx context.Context, threadID string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM chunks WHERE thread_id = ?", threadID); err != nil {
		return unavailable("deleting thread", err)
	}
	return nil
}

// inTx runs fn in a transaction, rolling back on error.
func (s *Store) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return unavailable("beginning transaction", err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		if errors.Is(err, domain.ErrInvalidInput) {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return unavailable("writing chunks", err)
	}
	if err := tx.Commit(); err != nil {
		return unavailable("committing transaction", err)
	}
	return nil
}

func upsertChunks(ctx context.Context, db execer, chunks []domain.Chunk) error {
	for i := range chunks {
		c := &chunks[i]
		if c.ID == "" {
			return fmt.Errorf("chunk without id in thread %s: %w", c.ThreadID, domain.ErrInvalidInput)
		}
		_, err := db.ExecContext(ctx, upsertChunkSQL,
			c.ID, c.ThreadID, c.Seq, string(c.DocType), c.Text, float32SliceToBytes(c.Embedding),
			c.Metadata.Subreddit, c.Metadata.Title, c.Metadata.Permalink, c.Metadata.Author,
			timeToUnix(c.Metadata.Timestamp))
		if err != nil {
			return fmt.Errorf("upserting chunk %s: %w", c.ID, err)
		}
	}
	return nil
}

// ==================== Helper Functions ====================

// unavailable wraps a database failure as ErrStoreUnavailable.
func unavailable(op string, err error) error {
	return fmt.Errorf("sqlite: %s: %w: %w", op, domain.ErrStoreUnavailable, err)
}

// scanChunk scans a single chunk row.
func scanChunk(rows *sql.Rows) (*domain.Chunk, error) {
	var c domain.Chunk
	var docType string
	var embedding []byte
	var ts int64

	if err := rows.Scan(&c.ID, &c.ThreadID, &c.Seq, &docType, &c.Text, &embedding,
		&c.Metadata.Subreddit, &c.Metadata.Title, &c.Metadata.Permalink, &c.Metadata.Author, &ts); err != nil {
		return nil, err
	}
	c.DocType = domain.DocType(docType)
	c.Embedding = bytesToFloat32Slice(embedding)
	c.Metadata.Timestamp = unixToTime(ts)
	return &c, nil
}

// float32SliceToBytes converts a []float32 to a byte slice for storage.
func float32SliceToBytes(floats []float32) []byte {
	if len(floats) == 0 {
		return nil
	}
	buf := make([]byte, len(floats)*4)
	for i, f := range floats {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// bytesToFloat32Slice converts a byte slice back to []float32.
func bytesToFloat32Slice(data []byte) []float32 {
	if len(data) == 0 {
		return nil
	}
	floats := make([]float32, len(data)/4)
	for i := range floats {
		floats[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return floats
}

// timeToUnix stores times as Unix nanoseconds, with 0 for the zero time.
func timeToUnix(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixNano()
}

func unixToTime(n int64) time.Time {
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n).UTC()
}
