// Package chunker splits thread text into overlapping windows for embedding.
package chunker

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/oliverbatey/forager/internal/core/domain"
)

// DefaultChunkSize is the default number of characters per chunk.
const DefaultChunkSize = 2000

// DefaultChunkOverlap is the default number of overlapping characters.
const DefaultChunkOverlap = 200

// Processor splits text into fixed-size chunks with overlap.
// Sizes are measured in runes, so multi-byte text is never cut mid-character.
type Processor struct {
	chunkSize int
	overlap   int
}

// New creates a chunker. The overlap must be smaller than maxSize.
func New(maxSize, overlap int) (*Processor, error) {
	if maxSize <= 0 {
		return nil, fmt.Errorf("chunk size %d must be positive: %w", maxSize, domain.ErrConfig)
	}
	if overlap < 0 || overlap >= maxSize {
		return nil, fmt.Errorf("chunk overlap %d must be in [0, %d): %w", overlap, maxSize, domain.ErrConfig)
	}
	return &Processor{chunkSize: maxSize, overlap: overlap}, nil
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "chunker"
}

// Size returns the maximum chunk size in runes.
func (p *Processor) Size() int {
	return p.chunkSize
}

// Overlap returns the overlap between consecutive chunks in runes.
func (p *Processor) Overlap() int {
	return p.overlap
}

// Split cuts text into windows of at most chunkSize runes.
// A window ends at the last whitespace in its back half when there is one.
// The next window starts overlap runes before the previous one ended.
// The result is deterministic; blank text yields no windows.
func (p *Processor) Split(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	runes := []rune(text)
	n := len(runes)
	pieces := make([]string, 0, n/(p.chunkSize-p.overlap)+1)

	for start := 0; start < n; {
		end := start + p.chunkSize
		if end >= n {
			end = n
		} else {
			end = p.boundary(runes, start, end)
		}

		if piece := strings.TrimSpace(string(runes[start:end])); piece != "" {
			pieces = append(pieces, piece)
		}
		if end == n {
			break
		}
		start = end - p.overlap
	}

	return pieces
}

// boundary moves end back to just after the last whitespace in the back half
// of the window. The search never goes below start+overlap, so every window
// advances the cursor.
func (p *Processor) boundary(runes []rune, start, end int) int {
	floor := start + p.chunkSize/2
	if min := start + p.overlap + 1; floor < min {
		floor = min
	}
	for i := end - 1; i >= floor; i-- {
		if unicode.IsSpace(runes[i]) {
			return i + 1
		}
	}
	return end
}

// Chunk splits text and wraps each piece as a chunk of thread with derived IDs.
func (p *Processor) Chunk(thread *domain.Thread, docType domain.DocType, text string) ([]domain.Chunk, error) {
	if thread == nil || thread.ID == "" {
		return nil, fmt.Errorf("chunk: thread is required: %w", domain.ErrInvalidInput)
	}
	if !docType.Valid() {
		return nil, fmt.Errorf("chunk: doc type %q: %w", docType, domain.ErrInvalidInput)
	}

	pieces := p.Split(text)
	if len(pieces) == 0 {
		return nil, fmt.Errorf("chunk %s/%s: %w", thread.ID, docType, domain.ErrEmptyInput)
	}

	meta := domain.ChunkMetadata{
		Subreddit: strings.ToLower(thread.Subreddit),
		Title:     thread.Title,
		Permalink: thread.Permalink,
		Author:    thread.Author,
		Timestamp: thread.CreatedAt,
	}

	chunks := make([]domain.Chunk, len(pieces))
	for i, piece := range pieces {
		chunks[i] = domain.Chunk{
			ID:       domain.ChunkID(thread.ID, docType, i),
			ThreadID: thread.ID,
			Seq:      i,
			DocType:  docType,
			Text:     piece,
			Metadata: meta,
		}
	}
	return chunks, nil
}
