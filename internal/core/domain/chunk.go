package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
)

// DocType distinguishes what a chunk was cut from.
type DocType string

// Chunk document types.
const (
	// DocSummary chunks are cut from a ThreadSummary.
	DocSummary DocType = "summary"

	// DocThreadContent chunks are cut from the rendered raw thread text.
	DocThreadContent DocType = "thread_content"
)

// Valid reports whether d is a known document type.
func (d DocType) Valid() bool {
	return d == DocSummary || d == DocThreadContent
}

// Chunk is a bounded text segment of a thread, stored with its embedding.
// Chunks are never mutated after creation; re-ingestion supersedes them.
type Chunk struct {
	// ID is derived from (ThreadID, DocType, Seq). See ChunkID.
	ID string

	// ThreadID links to the owning Thread.
	ThreadID string

	// Seq is the ordinal position within the thread for this DocType.
	Seq int

	// DocType records whether the text came from the summary or the raw thread.
	DocType DocType

	// Text is the segment content.
	Text string

	// Embedding is the vector representation used for similarity search.
	Embedding []float32

	// Metadata describes where the chunk came from.
	Metadata ChunkMetadata
}

// ChunkMetadata is the filterable context stored alongside a chunk.
type ChunkMetadata struct {
	Subreddit string
	Title     string
	Permalink string
	Author    string

	// Timestamp is the thread creation time. Used to break score ties.
	Timestamp time.Time
}

// ChunkID derives the stable identifier of a chunk.
// The same inputs always produce the same ID, which makes upserts idempotent.
func ChunkID(threadID string, docType DocType, seq int) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s:%s:%d", threadID, docType, seq)))
	return hex.EncodeToString(sum[:])[:16]
}

// ScoredChunk is a search hit.
type ScoredChunk struct {
	Chunk Chunk

	// Score is the similarity normalised to [0, 1]; higher is more similar.
	Score float64
}

// SearchFilter narrows a knowledge store search. Empty fields match everything.
// Subreddit names compare case-insensitively.
type SearchFilter struct {
	Subreddit string
	DocType   DocType
}

// Matches reports whether the chunk metadata satisfies the filter.
func (f SearchFilter) Matches(c *Chunk) bool {
	if f.Subreddit != "" && !strings.EqualFold(f.Subreddit, c.Metadata.Subreddit) {
		return false
	}
	if f.DocType != "" && f.DocType != c.DocType {
		return false
	}
	return true
}
