package memory

import (
	"context"
	"sync"

	"github.com/oliverbatey/forager/internal/adapters/driven/storage"
	"github.com/oliverbatey/forager/internal/core/domain"
	"github.com/oliverbatey/forager/internal/core/ports/driven"
)

// Ensure KnowledgeStore implements the interface.
var _ driven.KnowledgeStore = (*KnowledgeStore)(nil)

// KnowledgeStore is an in-memory implementation of driven.KnowledgeStore.
type KnowledgeStore struct {
	mu     sync.RWMutex
	chunks map[string]domain.Chunk
	closed bool
}

// NewKnowledgeStore creates an empty in-memory knowledge store.
func NewKnowledgeStore() *KnowledgeStore {
	return &KnowledgeStore{
		chunks: make(map[string]domain.Chunk),
	}
}

// Upsert stores chunks keyed by ID.
func (s *KnowledgeStore) Upsert(ctx context.Context, chunks []domain.Chunk) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return domain.ErrStoreUnavailable
	}
	s.put(chunks)
	return nil
}

// ReplaceThread stores chunks and drops the thread's chunks not among them.
func (s *KnowledgeStore) ReplaceThread(ctx context.Context, threadID string, chunks []domain.Chunk) error {
	if err := storage.CheckThreadChunks(threadID, chunks); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	keep := make(map[string]struct{}, len(chunks))
	for i := range chunks {
		keep[chunks[i].ID] = struct{}{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return domain.ErrStoreUnavailable
	}
	for id, c := range s.chunks {
		if _, ok := keep[id]; !ok && c.ThreadID == threadID {
			delete(s.chunks, id)
		}
	}
	s.put(chunks)
	return nil
}

// put copies chunks into the map (caller must hold lock).
func (s *KnowledgeStore) put(chunks []domain.Chunk) {
	for _, c := range chunks {
		c.Embedding = append([]float32(nil), c.Embedding...)
		s.chunks[c.ID] = c
	}
}

// Search scores every stored chunk against vector.
func (s *KnowledgeStore) Search(ctx context.Context, vector []float32, k int, filter domain.SearchFilter) ([]domain.ScoredChunk, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, domain.ErrStoreUnavailable
	}

	all := make([]domain.Chunk, 0, len(s.chunks))
	for _, c := range s.chunks {
		all = append(all, c)
	}
	return storage.ScoreAll(all, vector, k, filter), nil
}

// Count returns the number of stored chunks.
func (s *KnowledgeStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return 0, domain.ErrStoreUnavailable
	}
	return len(s.chunks), nil
}

// DeleteThread removes every chunk of threadID.
func (s *KnowledgeStore) DeleteThread(_ context.Context, threadID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return domain.ErrStoreUnavailable
	}
	for id, c := range s.chunks {
		if c.ThreadID == threadID {
			delete(s.chunks, id)
		}
	}
	return nil
}

// Close marks the store closed. Later calls fail with domain.ErrStoreUnavailable.
func (s *KnowledgeStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
