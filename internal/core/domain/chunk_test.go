package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestChunkID_Stable(t *testing.T) {
	a := ChunkID("abc123", DocSummary, 0)
	b := ChunkID("abc123", DocSummary, 0)

	assert.Equal(t, a, b)
	assert.Len(t, a, 16)
}

func TestChunkID_Distinct(t *testing.T) {
	ids := map[string]bool{
		ChunkID("abc123", DocSummary, 0):       true,
		ChunkID("abc123", DocSummary, 1):       true,
		ChunkID("abc123", DocThreadContent, 0): true,
		ChunkID("abc124", DocSummary, 0):       true,
	}

	assert.Len(t, ids, 4)
}

func TestDocType_Valid(t *testing.T) {
	assert.True(t, DocSummary.Valid())
	assert.True(t, DocThreadContent.Valid())
	assert.False(t, DocType("comment").Valid())
}

func TestSearchFilter_Matches(t *testing.T) {
	chunk := &Chunk{
		DocType:  DocSummary,
		Metadata: ChunkMetadata{Subreddit: "python", Timestamp: time.Now()},
	}

	assert.True(t, SearchFilter{}.Matches(chunk))
	assert.True(t, SearchFilter{Subreddit: "python"}.Matches(chunk))
	assert.True(t, SearchFilter{Subreddit: "python", DocType: DocSummary}.Matches(chunk))
	assert.True(t, SearchFilter{Subreddit: "Python"}.Matches(chunk))
	assert.False(t, SearchFilter{Subreddit: "golang"}.Matches(chunk))
	assert.False(t, SearchFilter{DocType: DocThreadContent}.Matches(chunk))
}
