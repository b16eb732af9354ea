package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oliverbatey/forager/internal/adapters/driven/storage/memory"
	"github.com/oliverbatey/forager/internal/core/domain"
)

func seededStore(t *testing.T) *memory.KnowledgeStore {
	t.Helper()
	store := memory.NewKnowledgeStore()
	texts := []struct {
		sub  string
		doc  domain.DocType
		text string
	}{
		{"golang", domain.DocSummary, "goroutines and channels"},
		{"golang", domain.DocThreadContent, "generics discussion"},
		{"python", domain.DocSummary, "type hints and mypy"},
		{"Python", domain.DocThreadContent, "asyncio event loop"},
		{"rust", domain.DocSummary, "borrow checker"},
	}
	chunks := make([]domain.Chunk, len(texts))
	for i, tt := range texts {
		chunks[i] = domain.Chunk{
			ID:        domain.ChunkID("t", tt.doc, i),
			ThreadID:  "t",
			Seq:       i,
			DocType:   tt.doc,
			Text:      tt.text,
			Embedding: letterVector(tt.text),
			Metadata:  domain.ChunkMetadata{Subreddit: tt.sub},
		}
	}
	require.NoError(t, store.Upsert(context.Background(), chunks))
	return store
}

func TestSearchService_Search(t *testing.T) {
	svc := NewSearchService(NewEmbedder(&mockEmbeddingService{}), seededStore(t))

	t.Run("scores are non-increasing", func(t *testing.T) {
		hits, err := svc.Search(context.Background(), "type hints", 5, domain.SearchFilter{})

		require.NoError(t, err)
		require.Len(t, hits, 5)
		for i := 1; i < len(hits); i++ {
			assert.GreaterOrEqual(t, hits[i-1].Score, hits[i].Score)
		}
		assert.Equal(t, "type hints and mypy", hits[0].Chunk.Text)
	})

	t.Run("k bounds results", func(t *testing.T) {
		hits, err := svc.Search(context.Background(), "loop", 2, domain.SearchFilter{})

		require.NoError(t, err)
		assert.Len(t, hits, 2)
	})

	t.Run("subreddit filter ignores case", func(t *testing.T) {
		hits, err := svc.Search(context.Background(), "loop", 10, domain.SearchFilter{Subreddit: "PYTHON"})

		require.NoError(t, err)
		assert.Len(t, hits, 2)
	})

	t.Run("doc type filter", func(t *testing.T) {
		hits, err := svc.Search(context.Background(), "loop", 10, domain.SearchFilter{DocType: domain.DocSummary})

		require.NoError(t, err)
		assert.Len(t, hits, 3)
		for _, h := range hits {
			assert.Equal(t, domain.DocSummary, h.Chunk.DocType)
		}
	})

	t.Run("invalid doc type", func(t *testing.T) {
		_, err := svc.Search(context.Background(), "loop", 10, domain.SearchFilter{DocType: "comments"})

		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("blank query", func(t *testing.T) {
		_, err := svc.Search(context.Background(), " ", 5, domain.SearchFilter{})

		assert.ErrorIs(t, err, domain.ErrEmptyInput)
	})

	t.Run("non-positive k", func(t *testing.T) {
		hits, err := svc.Search(context.Background(), "loop", 0, domain.SearchFilter{})

		require.NoError(t, err)
		assert.Empty(t, hits)
	})

	t.Run("count", func(t *testing.T) {
		n, err := svc.Count(context.Background())

		require.NoError(t, err)
		assert.Equal(t, 5, n)
	})
}

func TestSearchService_StoreUnavailable(t *testing.T) {
	store := seededStore(t)
	require.NoError(t, store.Close())
	svc := NewSearchService(NewEmbedder(&mockEmbeddingService{}), store)

	_, err := svc.Search(context.Background(), "loop", 5, domain.SearchFilter{})

	assert.ErrorIs(t, err, domain.ErrStoreUnavailable)
}
