package driven

import (
	"context"

	"github.com/oliverbatey/forager/internal/core/domain"
)

// SeedHistory records completed seed runs for status reporting.
type SeedHistory interface {
	// RecordSeed stores the report of a finished seed run.
	RecordSeed(ctx context.Context, report *domain.IngestionReport) error

	// RecentSeeds returns up to limit reports, newest first.
	RecentSeeds(ctx context.Context, limit int) ([]domain.IngestionReport, error)
}
