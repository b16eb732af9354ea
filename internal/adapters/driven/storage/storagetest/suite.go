// Package storagetest provides a conformance suite for driven.KnowledgeStore backends.
package storagetest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oliverbatey/forager/internal/core/domain"
	"github.com/oliverbatey/forager/internal/core/ports/driven"
)

// Factory returns a fresh, empty store. The suite closes it.
type Factory func(t *testing.T) driven.KnowledgeStore

// NewChunk builds a chunk with a derived ID and a 3-dimensional embedding.
func NewChunk(threadID string, docType domain.DocType, seq int, subreddit string, ts time.Time, vec ...float32) domain.Chunk {
	if len(vec) == 0 {
		vec = []float32{1, 0, 0}
	}
	return domain.Chunk{
		ID:        domain.ChunkID(threadID, docType, seq),
		ThreadID:  threadID,
		Seq:       seq,
		DocType:   docType,
		Text:      fmt.Sprintf("%s %s chunk %d", threadID, docType, seq),
		Embedding: vec,
		Metadata: domain.ChunkMetadata{
			Subreddit: subreddit,
			Title:     "Thread " + threadID,
			Permalink: "/r/" + subreddit + "/comments/" + threadID + "/",
			Author:    "author",
			Timestamp: ts,
		},
	}
}

// Run exercises the KnowledgeStore contract against stores built by newStore.
func Run(t *testing.T, newStore Factory) {
	t.Helper()

	older := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	newer := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	open := func(t *testing.T) driven.KnowledgeStore {
		t.Helper()
		store := newStore(t)
		t.Cleanup(func() { store.Close() })
		return store
	}

	t.Run("empty store", func(t *testing.T) {
		store := open(t)
		ctx := context.Background()

		n, err := store.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, 0, n)

		hits, err := store.Search(ctx, []float32{1, 0, 0}, 5, domain.SearchFilter{})
		require.NoError(t, err)
		assert.Empty(t, hits)
	})

	t.Run("upsert is idempotent by id", func(t *testing.T) {
		store := open(t)
		ctx := context.Background()
		c := NewChunk("t1", domain.DocSummary, 0, "golang", older)

		require.NoError(t, store.Upsert(ctx, []domain.Chunk{c}))
		c.Text = "replaced"
		require.NoError(t, store.Upsert(ctx, []domain.Chunk{c}))

		n, err := store.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, n)

		hits, err := store.Search(ctx, []float32{1, 0, 0}, 1, domain.SearchFilter{})
		require.NoError(t, err)
		require.Len(t, hits, 1)
		assert.Equal(t, "replaced", hits[0].Chunk.Text)
		assert.Equal(t, c.ID, hits[0].Chunk.ID)
		assert.Equal(t, "t1", hits[0].Chunk.ThreadID)
		assert.Equal(t, domain.DocSummary, hits[0].Chunk.DocType)
		assert.Equal(t, "Thread t1", hits[0].Chunk.Metadata.Title)
		assert.True(t, hits[0].Chunk.Metadata.Timestamp.Equal(older))
	})

	t.Run("search orders by similarity and truncates", func(t *testing.T) {
		store := open(t)
		ctx := context.Background()
		require.NoError(t, store.Upsert(ctx, []domain.Chunk{
			NewChunk("far", domain.DocSummary, 0, "golang", older, 0, 1, 0),
			NewChunk("near", domain.DocSummary, 0, "golang", older, 1, 0.1, 0),
			NewChunk("mid", domain.DocSummary, 0, "golang", older, 1, 1, 0),
		}))

		hits, err := store.Search(ctx, []float32{1, 0, 0}, 2, domain.SearchFilter{})

		require.NoError(t, err)
		require.Len(t, hits, 2)
		assert.Equal(t, "near", hits[0].Chunk.ThreadID)
		assert.Equal(t, "mid", hits[1].Chunk.ThreadID)
		assert.GreaterOrEqual(t, hits[0].Score, hits[1].Score)
		for _, h := range hits {
			assert.GreaterOrEqual(t, h.Score, 0.0)
			assert.LessOrEqual(t, h.Score, 1.0)
		}
	})

	t.Run("ties prefer newest", func(t *testing.T) {
		store := open(t)
		ctx := context.Background()
		require.NoError(t, store.Upsert(ctx, []domain.Chunk{
			NewChunk("old", domain.DocSummary, 0, "golang", older),
			NewChunk("new", domain.DocSummary, 0, "golang", newer),
		}))

		hits, err := store.Search(ctx, []float32{1, 0, 0}, 2, domain.SearchFilter{})

		require.NoError(t, err)
		require.Len(t, hits, 2)
		assert.Equal(t, "new", hits[0].Chunk.ThreadID)
		assert.Equal(t, "old", hits[1].Chunk.ThreadID)
	})

	t.Run("non-positive k returns nothing", func(t *testing.T) {
		store := open(t)
		ctx := context.Background()
		require.NoError(t, store.Upsert(ctx, []domain.Chunk{NewChunk("t1", domain.DocSummary, 0, "golang", older)}))

		hits, err := store.Search(ctx, []float32{1, 0, 0}, 0, domain.SearchFilter{})

		require.NoError(t, err)
		assert.Empty(t, hits)
	})

	t.Run("filters by subreddit and doc type", func(t *testing.T) {
		store := open(t)
		ctx := context.Background()
		require.NoError(t, store.Upsert(ctx, []domain.Chunk{
			NewChunk("g1", domain.DocSummary, 0, "golang", older),
			NewChunk("g1", domain.DocThreadContent, 0, "golang", older),
			NewChunk("p1", domain.DocSummary, 0, "python", older),
		}))

		hits, err := store.Search(ctx, []float32{1, 0, 0}, 10, domain.SearchFilter{Subreddit: "golang"})
		require.NoError(t, err)
		assert.Len(t, hits, 2)

		hits, err = store.Search(ctx, []float32{1, 0, 0}, 10, domain.SearchFilter{Subreddit: "golang", DocType: domain.DocThreadContent})
		require.NoError(t, err)
		require.Len(t, hits, 1)
		assert.Equal(t, domain.DocThreadContent, hits[0].Chunk.DocType)

		hits, err = store.Search(ctx, []float32{1, 0, 0}, 10, domain.SearchFilter{DocType: domain.DocSummary})
		require.NoError(t, err)
		assert.Len(t, hits, 2)

		hits, err = store.Search(ctx, []float32{1, 0, 0}, 10, domain.SearchFilter{Subreddit: "rust"})
		require.NoError(t, err)
		assert.Empty(t, hits)
	})

	t.Run("replace thread removes stale chunks", func(t *testing.T) {
		store := open(t)
		ctx := context.Background()
		first := []domain.Chunk{
			NewChunk("t1", domain.DocThreadContent, 0, "golang", older),
			NewChunk("t1", domain.DocThreadContent, 1, "golang", older),
			NewChunk("t1", domain.DocThreadContent, 2, "golang", older),
		}
		require.NoError(t, store.ReplaceThread(ctx, "t1", first))
		require.NoError(t, store.Upsert(ctx, []domain.Chunk{NewChunk("t2", domain.DocSummary, 0, "golang", older)}))

		second := first[:1]
		require.NoError(t, store.ReplaceThread(ctx, "t1", second))
		require.NoError(t, store.ReplaceThread(ctx, "t1", second))

		n, err := store.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, n)
	})

	t.Run("replace thread rejects foreign chunks", func(t *testing.T) {
		store := open(t)
		ctx := context.Background()

		err := store.ReplaceThread(ctx, "t1", []domain.Chunk{NewChunk("t2", domain.DocSummary, 0, "golang", older)})

		assert.True(t, errors.Is(err, domain.ErrInvalidInput))
	})

	t.Run("delete thread", func(t *testing.T) {
		store := open(t)
		ctx := context.Background()
		require.NoError(t, store.Upsert(ctx, []domain.Chunk{
			NewChunk("t1", domain.DocSummary, 0, "golang", older),
			NewChunk("t1", domain.DocThreadContent, 0, "golang", older),
			NewChunk("t2", domain.DocSummary, 0, "golang", older),
		}))

		require.NoError(t, store.DeleteThread(ctx, "t1"))
		require.NoError(t, store.DeleteThread(ctx, "missing"))

		n, err := store.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, n)
	})

	t.Run("concurrent replace of distinct threads", func(t *testing.T) {
		store := open(t)
		ctx := context.Background()

		var wg sync.WaitGroup
		errs := make(chan error, 8)
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				id := fmt.Sprintf("t%d", i)
				errs <- store.ReplaceThread(ctx, id, []domain.Chunk{
					NewChunk(id, domain.DocSummary, 0, "golang", older),
					NewChunk(id, domain.DocThreadContent, 0, "golang", older),
				})
			}(i)
		}
		wg.Wait()
		close(errs)
		for err := range errs {
			require.NoError(t, err)
		}

		n, err := store.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, 16, n)
	})
}
