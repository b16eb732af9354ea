package driving

import (
	"context"

	"github.com/oliverbatey/forager/internal/core/domain"
)

// SearchService provides semantic search over the knowledge store.
type SearchService interface {
	// Search embeds query and returns up to k ranked chunks matching filter.
	Search(ctx context.Context, query string, k int, filter domain.SearchFilter) ([]domain.ScoredChunk, error)

	// Count returns the number of stored chunks.
	Count(ctx context.Context) (int, error)
}
