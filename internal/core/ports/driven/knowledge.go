package driven

import (
	"context"

	"github.com/oliverbatey/forager/internal/core/domain"
)

// KnowledgeStore is the semantic index over embedded chunks.
// Every method returns an error wrapping domain.ErrStoreUnavailable when the
// underlying index cannot be reached.
type KnowledgeStore interface {
	// Upsert inserts or replaces chunks keyed by chunk ID.
	// Re-upserting an ID replaces its text and vector; no duplicates accumulate.
	Upsert(ctx context.Context, chunks []domain.Chunk) error

	// ReplaceThread upserts chunks and removes any other chunks stored for threadID.
	// Implementations should apply both steps atomically where the backend allows.
	ReplaceThread(ctx context.Context, threadID string, chunks []domain.Chunk) error

	// Search returns up to k chunks ordered by descending similarity to vector,
	// ties broken by most recent timestamp. Scores are normalised to [0, 1].
	Search(ctx context.Context, vector []float32, k int, filter domain.SearchFilter) ([]domain.ScoredChunk, error)

	// Count returns the total number of stored chunks.
	Count(ctx context.Context) (int, error)

	// DeleteThread removes every chunk belonging to threadID.
	DeleteThread(ctx context.Context, threadID string) error

	// Close releases resources.
	Close() error
}
