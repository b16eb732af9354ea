package driving

import (
	"context"

	"github.com/oliverbatey/forager/internal/core/domain"
)

// IngestionService seeds the knowledge store from a subreddit.
type IngestionService interface {
	// Seed ingests up to limit threads from subreddit.
	// Per-thread failures are recorded in the report and do not abort the batch.
	// A non-nil error means the run could not start or the store became unavailable.
	Seed(ctx context.Context, subreddit string, limit int) (*domain.IngestionReport, error)
}
