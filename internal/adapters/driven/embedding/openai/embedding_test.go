package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oliverbatey/forager/internal/core/domain"
)

func newTestService(t *testing.T, handler http.HandlerFunc) *EmbeddingService {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	svc, err := NewEmbeddingService(Config{APIKey: "sk-test", BaseURL: server.URL})
	require.NoError(t, err)
	return svc
}

func TestNewEmbeddingService(t *testing.T) {
	t.Run("requires key when asked", func(t *testing.T) {
		_, err := NewEmbeddingService(Config{RequireKey: true})

		assert.ErrorIs(t, err, domain.ErrConfig)
	})

	t.Run("known model dimensions", func(t *testing.T) {
		svc, err := NewEmbeddingService(Config{Model: "text-embedding-3-large"})

		require.NoError(t, err)
		assert.Equal(t, 3072, svc.Dimensions())
		assert.Equal(t, "text-embedding-3-large", svc.ModelName())
	})
}

func TestEmbeddingService_EmbedBatch(t *testing.T) {
	t.Run("orders vectors by index", func(t *testing.T) {
		svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/embeddings", r.URL.Path)
			var req embeddingRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, []string{"a", "b"}, req.Input)
			assert.Equal(t, 1536, req.Dimensions)

			_, _ = w.Write([]byte(`{"data":[
				{"index":1,"embedding":[0.0,1.0]},
				{"index":0,"embedding":[1.0,0.0]}
			],"usage":{"total_tokens":2}}`))
		})

		got, err := svc.EmbedBatch(context.Background(), []string{"a", "b"})

		require.NoError(t, err)
		assert.Equal(t, [][]float32{{1, 0}, {0, 1}}, got)
	})

	t.Run("empty input makes no request", func(t *testing.T) {
		svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
			t.Fatal("unexpected request")
		})

		got, err := svc.EmbedBatch(context.Background(), nil)

		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("missing vector is upstream error", func(t *testing.T) {
		svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"data":[{"index":0,"embedding":[1.0]}]}`))
		})

		_, err := svc.EmbedBatch(context.Background(), []string{"a", "b"})

		assert.ErrorIs(t, err, domain.ErrUpstream)
	})

	t.Run("rate limited", func(t *testing.T) {
		svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
		})

		_, err := svc.Embed(context.Background(), "a")

		assert.ErrorIs(t, err, domain.ErrRateLimited)
	})

	t.Run("server error", func(t *testing.T) {
		svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})

		_, err := svc.Embed(context.Background(), "a")

		assert.ErrorIs(t, err, domain.ErrUpstream)
	})
}
