// Package storage holds ranking helpers shared by the knowledge store backends.
package storage

import (
	"math"
	"sort"

	"github.com/oliverbatey/forager/internal/core/domain"
)

// Cosine returns the cosine similarity of a and b in [-1, 1].
// Vectors of different length or zero magnitude have similarity 0.
func Cosine(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// Normalize maps a cosine similarity onto [0, 1].
func Normalize(cos float64) float64 {
	s := (cos + 1) / 2
	switch {
	case math.IsNaN(s) || s < 0:
		return 0
	case s > 1:
		return 1
	}
	return s
}

// RankHits orders hits by descending score, breaking ties by newest
// timestamp and then by chunk ID, and keeps at most k. Scores must
// already be normalized. The input slice is reordered in place.
func RankHits(hits []domain.ScoredChunk, k int) []domain.ScoredChunk {
	if k <= 0 || len(hits) == 0 {
		return nil
	}
	sort.SliceStable(hits, func(i, j int) bool {
		a, b := hits[i], hits[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		ta, tb := a.Chunk.Metadata.Timestamp, b.Chunk.Metadata.Timestamp
		if !ta.Equal(tb) {
			return ta.After(tb)
		}
		return a.Chunk.ID < b.Chunk.ID
	})
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits
}

// ScoreAll computes normalized scores of every chunk matching filter
// against vector and returns the ranked top k. It is the brute-force
// search used by backends without their own index.
func ScoreAll(chunks []domain.Chunk, vector []float32, k int, filter domain.SearchFilter) []domain.ScoredChunk {
	if k <= 0 {
		return nil
	}
	hits := make([]domain.ScoredChunk, 0, len(chunks))
	for i := range chunks {
		if !filter.Matches(&chunks[i]) {
			continue
		}
		hits = append(hits, domain.ScoredChunk{
			Chunk: chunks[i],
			Score: Normalize(Cosine(vector, chunks[i].Embedding)),
		})
	}
	return RankHits(hits, k)
}
