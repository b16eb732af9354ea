package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/oliverbatey/forager/internal/core/domain"
	"github.com/oliverbatey/forager/internal/core/ports/driven"
)

// Ensure SeedHistory implements the interface.
var _ driven.SeedHistory = (*SeedHistory)(nil)

// SeedHistory is an in-memory implementation of driven.SeedHistory.
type SeedHistory struct {
	mu   sync.RWMutex
	runs []domain.IngestionReport
}

// NewSeedHistory creates an empty seed history.
func NewSeedHistory() *SeedHistory {
	return &SeedHistory{}
}

// RecordSeed stores a copy of report.
func (h *SeedHistory) RecordSeed(_ context.Context, report *domain.IngestionReport) error {
	if report == nil {
		return domain.ErrInvalidInput
	}
	r := *report
	r.Failures = append([]domain.ThreadFailure(nil), report.Failures...)

	h.mu.Lock()
	defer h.mu.Unlock()
	h.runs = append(h.runs, r)
	return nil
}

// RecentSeeds returns up to limit runs, newest first.
func (h *SeedHistory) RecentSeeds(_ context.Context, limit int) ([]domain.IngestionReport, error) {
	if limit <= 0 {
		return nil, nil
	}

	h.mu.RLock()
	runs := make([]domain.IngestionReport, len(h.runs))
	copy(runs, h.runs)
	h.mu.RUnlock()

	// Reverse first so equal finish times keep insertion order newest first.
	for i, j := 0, len(runs)-1; i < j; i, j = i+1, j-1 {
		runs[i], runs[j] = runs[j], runs[i]
	}
	sort.SliceStable(runs, func(i, j int) bool {
		return runs[i].FinishedAt.After(runs[j].FinishedAt)
	})
	if len(runs) > limit {
		runs = runs[:limit]
	}
	return runs, nil
}
