package domain

import (
	"fmt"
	"time"
)

// IngestionReport summarises one seed run.
// Partial success is the normal case; failures are listed per thread.
type IngestionReport struct {
	Subreddit string `json:"subreddit"`

	// Attempted is the number of threads returned by the listing.
	Attempted int `json:"attempted"`

	// Succeeded is the number of threads whose chunks were written.
	Succeeded int `json:"succeeded"`

	// ChunksWritten is the total number of chunks upserted.
	ChunksWritten int `json:"chunks_written"`

	// Failures holds one entry per failed thread.
	Failures []ThreadFailure `json:"failures,omitempty"`

	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

// ThreadFailure records why a single thread failed to ingest.
type ThreadFailure struct {
	ThreadID string `json:"thread_id"`
	Kind     string `json:"kind"`
	Message  string `json:"message"`
}

// Failed returns the number of failed threads.
func (r *IngestionReport) Failed() int {
	return len(r.Failures)
}

// AddFailure records a per-thread failure.
func (r *IngestionReport) AddFailure(threadID string, err error) {
	r.Failures = append(r.Failures, ThreadFailure{
		ThreadID: threadID,
		Kind:     ErrorKind(err),
		Message:  err.Error(),
	})
}

// Err returns an error wrapping ErrIngestionPartialFailure if any thread failed.
func (r *IngestionReport) Err() error {
	if len(r.Failures) == 0 {
		return nil
	}
	return fmt.Errorf("%d of %d threads failed: %w", len(r.Failures), r.Attempted, ErrIngestionPartialFailure)
}

// Duration returns how long the run took.
func (r *IngestionReport) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}
