// Package chromem implements driven.KnowledgeStore on an embedded chromem-go database.
package chromem

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"

	chromemgo "github.com/philippgille/chromem-go"

	"github.com/oliverbatey/forager/internal/adapters/driven/storage"
	"github.com/oliverbatey/forager/internal/core/domain"
	"github.com/oliverbatey/forager/internal/core/ports/driven"
)

const (
	// DirName is the database directory inside the data directory.
	DirName = "chromem"

	// CollectionName is the single collection holding every chunk.
	CollectionName = "forager"
)

// Metadata keys stored on each document.
const (
	metaThreadID     = "thread_id"
	metaSeq          = "seq"
	metaDocType      = "doc_type"
	metaSubreddit    = "subreddit"
	metaSubredditKey = "subreddit_key"
	metaTitle        = "title"
	metaPermalink    = "permalink"
	metaAuthor       = "author"
	metaTimestamp    = "timestamp"
)

// Ensure Store implements the interface.
var _ driven.KnowledgeStore = (*Store)(nil)

var errMissingEmbedding = errors.New("chunk has no precomputed embedding")

// Store is a chromem-go backed knowledge store.
// Vectors are always supplied by the caller; the collection never embeds text itself.
type Store struct {
	mu     sync.RWMutex
	db     *chromemgo.DB
	col    *chromemgo.Collection
	dir    string
	closed bool
}

// NewStore opens or creates the persistent database under dataDir/chromem.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		return nil, fmt.Errorf("chromem store: empty data directory: %w", domain.ErrConfig)
	}
	dir := filepath.Join(dataDir, DirName)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("creating chromem directory: %w: %w", domain.ErrStoreUnavailable, err)
	}

	db, err := chromemgo.NewPersistentDB(dir, false)
	if err != nil {
		return nil, fmt.Errorf("opening chromem database: %w: %w", domain.ErrStoreUnavailable, err)
	}
	col, err := db.GetOrCreateCollection(CollectionName, nil, precomputed)
	if err != nil {
		return nil, fmt.Errorf("opening collection %s: %w: %w", CollectionName, domain.ErrStoreUnavailable, err)
	}

	return &Store{db: db, col: col, dir: dir}, nil
}

// precomputed is the collection embedding func. It is only reached for
// documents without a vector, which the store rejects up front.
func precomputed(context.Context, string) ([]float32, error) {
	return nil, errMissingEmbedding
}

// Dir returns the database directory.
func (s *Store) Dir() string {
	return s.dir
}

// Upsert adds chunks, overwriting documents with the same ID.
func (s *Store) Upsert(ctx context.Context, chunks []domain.Chunk) error {
	docs, err := toDocuments(chunks)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return domain.ErrStoreUnavailable
	}
	return s.add(ctx, docs)
}

// ReplaceThread adds chunks, then deletes the thread's other documents.
// The store lock is held across both steps, so searches never see a partial thread.
// A failed add leaves the previous documents in place.
func (s *Store) ReplaceThread(ctx context.Context, threadID string, chunks []domain.Chunk) error {
	if err := storage.CheckThreadChunks(threadID, chunks); err != nil {
		return err
	}
	docs, err := toDocuments(chunks)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return domain.ErrStoreUnavailable
	}
	if len(docs) == 0 {
		return s.deleteThread(ctx, threadID)
	}
	if err := s.add(ctx, docs); err != nil {
		return err
	}
	return s.deleteStale(ctx, threadID, docs)
}

// add writes docs (caller must hold lock).
func (s *Store) add(ctx context.Context, docs []chromemgo.Document) error {
	if len(docs) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.col.AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return unavailable("adding documents", err)
	}
	return nil
}

// deleteThread removes the thread's documents (caller must hold lock).
func (s *Store) deleteThread(ctx context.Context, threadID string) error {
	if s.col.Count() == 0 {
		return nil
	}
	if err := s.col.Delete(ctx, map[string]string{metaThreadID: threadID}, nil); err != nil {
		return unavailable("deleting thread "+threadID, err)
	}
	return nil
}

// deleteStale removes the thread's documents that are not in keep (caller must hold lock).
// The collection has no listing call, so the thread's documents are found by a
// filtered query with one of the kept embeddings.
func (s *Store) deleteStale(ctx context.Context, threadID string, keep []chromemgo.Document) error {
	results, err := s.col.QueryEmbedding(ctx, keep[0].Embedding, s.col.Count(), map[string]string{metaThreadID: threadID}, nil)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return unavailable("listing thread "+threadID, err)
	}

	kept := make(map[string]bool, len(keep))
	for i := range keep {
		kept[keep[i].ID] = true
	}
	var stale []string
	for i := range results {
		if !kept[results[i].ID] {
			stale = append(stale, results[i].ID)
		}
	}
	if len(stale) == 0 {
		return nil
	}
	if err := s.col.Delete(ctx, nil, nil, stale...); err != nil {
		return unavailable("deleting stale documents of "+threadID, err)
	}
	return nil
}

// Search queries the collection and re-ranks the hits.
// Every matching document is scored so the recency tie-break applies across the whole set.
func (s *Store) Search(ctx context.Context, vector []float32, k int, filter domain.SearchFilter) ([]domain.ScoredChunk, error) {
	if k <= 0 {
		return nil, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, domain.ErrStoreUnavailable
	}

	n := s.col.Count()
	if n == 0 {
		return nil, nil
	}

	where := make(map[string]string, 2)
	if filter.Subreddit != "" {
		where[metaSubredditKey] = strings.ToLower(filter.Subreddit)
	}
	if filter.DocType != "" {
		where[metaDocType] = string(filter.DocType)
	}

	results, err := s.col.QueryEmbedding(ctx, vector, n, where, nil)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, unavailable("querying collection", err)
	}

	hits := make([]domain.ScoredChunk, 0, len(results))
	for i := range results {
		chunk, err := fromResult(&results[i])
		if err != nil {
			return nil, unavailable("decoding document "+results[i].ID, err)
		}
		hits = append(hits, domain.ScoredChunk{
			Chunk: chunk,
			Score: storage.Normalize(float64(results[i].Similarity)),
		})
	}
	return storage.RankHits(hits, k), nil
}

// Count returns the number of documents in the collection.
func (s *Store) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return 0, domain.ErrStoreUnavailable
	}
	return s.col.Count(), nil
}

// DeleteThread removes every document of threadID.
func (s *Store) DeleteThread(ctx context.Context, threadID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return domain.ErrStoreUnavailable
	}
	return s.deleteThread(ctx, threadID)
}

// Close marks the store closed. Documents are persisted on every write.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func toDocuments(chunks []domain.Chunk) ([]chromemgo.Document, error) {
	docs := make([]chromemgo.Document, 0, len(chunks))
	for i := range chunks {
		c := &chunks[i]
		if c.ID == "" {
			return nil, fmt.Errorf("chunk %d of %s: empty id: %w", i, c.ThreadID, domain.ErrInvalidInput)
		}
		if len(c.Embedding) == 0 {
			return nil, fmt.Errorf("chunk %s: %w: %w", c.ID, errMissingEmbedding, domain.ErrInvalidInput)
		}
		docs = append(docs, chromemgo.Document{
			ID:        c.ID,
			Content:   c.Text,
			Embedding: append([]float32(nil), c.Embedding...),
			Metadata: map[string]string{
				metaThreadID:     c.ThreadID,
				metaSeq:          strconv.Itoa(c.Seq),
				metaDocType:      string(c.DocType),
				metaSubreddit:    c.Metadata.Subreddit,
				metaSubredditKey: strings.ToLower(c.Metadata.Subreddit),
				metaTitle:        c.Metadata.Title,
				metaPermalink:    c.Metadata.Permalink,
				metaAuthor:       c.Metadata.Author,
				metaTimestamp:    c.Metadata.Timestamp.UTC().Format(time.RFC3339Nano),
			},
		})
	}
	return docs, nil
}

func fromResult(r *chromemgo.Result) (domain.Chunk, error) {
	seq, err := strconv.Atoi(r.Metadata[metaSeq])
	if err != nil {
		return domain.Chunk{}, fmt.Errorf("parsing seq: %w", err)
	}
	ts, err := time.Parse(time.RFC3339Nano, r.Metadata[metaTimestamp])
	if err != nil {
		return domain.Chunk{}, fmt.Errorf("parsing timestamp: %w", err)
	}
	return domain.Chunk{
		ID:        r.ID,
		ThreadID:  r.Metadata[metaThreadID],
		Seq:       seq,
		DocType:   domain.DocType(r.Metadata[metaDocType]),
		Text:      r.Content,
		Embedding: r.Embedding,
		Metadata: domain.ChunkMetadata{
			Subreddit: r.Metadata[metaSubreddit],
			Title:     r.Metadata[metaTitle],
			Permalink: r.Metadata[metaPermalink],
			Author:    r.Metadata[metaAuthor],
			Timestamp: ts,
		},
	}, nil
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, domain.ErrStoreUnavailable, err)
}
