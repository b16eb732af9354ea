package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/oliverbatey/forager/internal/core/domain"
	"github.com/oliverbatey/forager/internal/core/ports/driven"
)

// Embedder turns text and chunks into vectors.
type Embedder struct {
	svc driven.EmbeddingService
}

// NewEmbedder creates an embedder backed by svc.
func NewEmbedder(svc driven.EmbeddingService) *Embedder {
	return &Embedder{svc: svc}
}

// Embed returns the vector of text. Blank text is rejected with domain.ErrEmptyInput.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("embed: %w", domain.ErrEmptyInput)
	}
	vec, err := e.svc.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embed: %w", err)
	}
	if len(vec) == 0 {
		return nil, fmt.Errorf("embed: empty vector: %w", domain.ErrUpstream)
	}
	return vec, nil
}

// EmbedChunks fills the Embedding of every chunk with one batched request.
func (e *Embedder) EmbedChunks(ctx context.Context, chunks []domain.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	texts := make([]string, len(chunks))
	for i := range chunks {
		if strings.TrimSpace(chunks[i].Text) == "" {
			return fmt.Errorf("embed chunk %s: %w", chunks[i].ID, domain.ErrEmptyInput)
		}
		texts[i] = chunks[i].Text
	}

	vecs, err := e.svc.EmbedBatch(ctx, texts)
	if err != nil {
		return fmt.Errorf("embed %d chunks: %w", len(chunks), err)
	}
	if len(vecs) != len(chunks) {
		return fmt.Errorf("embed: got %d vectors for %d chunks: %w", len(vecs), len(chunks), domain.ErrUpstream)
	}
	for i := range chunks {
		if len(vecs[i]) == 0 {
			return fmt.Errorf("embed chunk %s: empty vector: %w", chunks[i].ID, domain.ErrUpstream)
		}
		chunks[i].Embedding = vecs[i]
	}
	return nil
}
