package domain

import "time"

// ThreadSummary is the generated summary of one thread.
// It is regenerated whenever the thread is re-ingested.
type ThreadSummary struct {
	// ThreadID links to the summarised Thread.
	ThreadID string `json:"thread_id"`

	// Text is the model output, verbatim.
	Text string `json:"text"`

	// GeneratedAt is when the summary was produced.
	GeneratedAt time.Time `json:"generated_at"`

	// Model identifies the generating model.
	Model string `json:"model"`
}

// Digest is a batch of summarised threads with a meta-summary.
// It is the on-disk format shared by the summarise and publish commands.
type Digest struct {
	Subreddit string          `json:"subreddit,omitempty"`
	Threads   []Thread        `json:"threads"`
	Summaries []ThreadSummary `json:"summaries"`
	Summary   string          `json:"summary"`
	CreatedAt time.Time       `json:"created_at"`
}

// SummaryFor returns the summary of the given thread, if present.
func (d *Digest) SummaryFor(threadID string) (ThreadSummary, bool) {
	for _, s := range d.Summaries {
		if s.ThreadID == threadID {
			return s, true
		}
	}
	return ThreadSummary{}, false
}
