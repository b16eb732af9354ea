package services

import (
	"context"
	"fmt"

	"github.com/oliverbatey/forager/internal/core/domain"
	"github.com/oliverbatey/forager/internal/core/ports/driven"
	"github.com/oliverbatey/forager/internal/core/ports/driving"
	"github.com/oliverbatey/forager/internal/logger"
)

// Ensure SearchService implements the interface.
var _ driving.SearchService = (*SearchService)(nil)

// SearchService answers semantic queries against the knowledge store.
type SearchService struct {
	embedder *Embedder
	store    driven.KnowledgeStore
}

// NewSearchService creates a search service.
func NewSearchService(embedder *Embedder, store driven.KnowledgeStore) *SearchService {
	return &SearchService{embedder: embedder, store: store}
}

// Search embeds query and returns up to k chunks ordered by similarity.
func (s *SearchService) Search(ctx context.Context, query string, k int, filter domain.SearchFilter) ([]domain.ScoredChunk, error) {
	if k <= 0 {
		return nil, nil
	}
	if filter.DocType != "" && !filter.DocType.Valid() {
		return nil, fmt.Errorf("search: doc type %q: %w", filter.DocType, domain.ErrInvalidInput)
	}

	vec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}

	hits, err := s.store.Search(ctx, vec, k, filter)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	logger.Debug("Search %q (k=%d, subreddit=%q, doc_type=%q): %d hits",
		logger.Preview(query, 200), k, filter.Subreddit, filter.DocType, len(hits))
	return hits, nil
}

// Count returns the number of stored chunks.
func (s *SearchService) Count(ctx context.Context) (int, error) {
	return s.store.Count(ctx)
}
