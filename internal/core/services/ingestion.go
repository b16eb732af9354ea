package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/oliverbatey/forager/internal/core/domain"
	"github.com/oliverbatey/forager/internal/core/ports/driven"
	"github.com/oliverbatey/forager/internal/core/ports/driving"
	"github.com/oliverbatey/forager/internal/logger"
)

// DefaultSeedLimit is the number of threads seeded when no limit is given.
const DefaultSeedLimit = 5

// Ensure IngestionPipeline implements the interface.
var _ driving.IngestionService = (*IngestionPipeline)(nil)

// Chunker splits text into chunks bound to a thread.
type Chunker interface {
	Chunk(thread *domain.Thread, docType domain.DocType, text string) ([]domain.Chunk, error)
}

// IngestionPipeline runs Source → Summarizer → Chunker → Embedder → Store
// for each thread of a subreddit listing.
type IngestionPipeline struct {
	source     driven.ContentSource
	summarizer *Summarizer
	chunker    Chunker
	embedder   *Embedder
	store      driven.KnowledgeStore
	metrics    driven.Metrics
	history    driven.SeedHistory
	locks      *threadLocks
	now        func() time.Time
}

// NewIngestionPipeline creates a pipeline. Metrics and seed history are
// optional; see SetMetrics and SetSeedHistory.
func NewIngestionPipeline(
	source driven.ContentSource,
	summarizer *Summarizer,
	chunker Chunker,
	embedder *Embedder,
	store driven.KnowledgeStore,
) *IngestionPipeline {
	return &IngestionPipeline{
		source:     source,
		summarizer: summarizer,
		chunker:    chunker,
		embedder:   embedder,
		store:      store,
		locks:      newThreadLocks(),
		now:        time.Now,
	}
}

// SetMetrics sets the metrics sink.
func (p *IngestionPipeline) SetMetrics(m driven.Metrics) {
	p.metrics = m
}

// SetSeedHistory sets where finished runs are recorded.
func (p *IngestionPipeline) SetSeedHistory(h driven.SeedHistory) {
	p.history = h
}

// Seed ingests up to limit of the newest threads in subreddit.
//
// Per-thread failures are recorded in the report. A store outage aborts the
// batch and is returned with the partial report; so is cancellation.
func (p *IngestionPipeline) Seed(ctx context.Context, subreddit string, limit int) (*domain.IngestionReport, error) {
	subreddit = strings.TrimSpace(subreddit)
	if subreddit == "" {
		return nil, fmt.Errorf("seed: empty subreddit: %w", domain.ErrInvalidInput)
	}
	if limit <= 0 {
		limit = DefaultSeedLimit
	}

	logger.Section("Seed r/" + subreddit)
	report := &domain.IngestionReport{Subreddit: subreddit, StartedAt: p.now()}

	threads, err := p.source.BrowseSubreddit(ctx, subreddit, domain.SortNew, limit)
	if err != nil {
		return nil, fmt.Errorf("listing r/%s: %w", subreddit, err)
	}
	report.Attempted = len(threads)
	logger.Debug("Listing returned %d threads", len(threads))

	var runErr error
	for i := range threads {
		if err := ctx.Err(); err != nil {
			runErr = err
			break
		}

		id := threads[i].ID
		log := logger.With("thread", id)
		n, err := p.IngestThread(ctx, id)
		if err != nil {
			log.Warn("ingestion failed: %v", err)
			report.AddFailure(id, err)
			p.threadIngested(domain.ErrorKind(err))
			if errors.Is(err, domain.ErrStoreUnavailable) || ctx.Err() != nil {
				runErr = err
				break
			}
			continue
		}

		log.Debug("wrote %d chunks", n)
		report.Succeeded++
		report.ChunksWritten += n
		p.threadIngested("ok")
		if p.metrics != nil {
			p.metrics.ChunksWritten(n)
		}
	}

	report.FinishedAt = p.now()
	if p.metrics != nil {
		p.metrics.SeedCompleted(report.Duration())
	}
	p.record(report)
	logger.Info("Seeded r/%s: %d/%d threads, %d chunks", subreddit, report.Succeeded, report.Attempted, report.ChunksWritten)

	if runErr != nil {
		return report, fmt.Errorf("seed r/%s aborted: %w", subreddit, runErr)
	}
	return report, nil
}

// IngestThread fetches, summarises, chunks, embeds and stores one thread,
// replacing whatever was stored for it before. It returns the number of
// chunks written. Calls for the same thread ID are serialised.
func (p *IngestionPipeline) IngestThread(ctx context.Context, id string) (int, error) {
	unlock := p.locks.Lock(id)
	defer unlock()

	thread, err := p.source.FetchThread(ctx, id)
	if err != nil {
		return 0, fmt.Errorf("fetch: %w", err)
	}

	summary, err := p.summarizer.SummarizeThread(ctx, thread)
	if err != nil {
		return 0, err
	}

	chunks, err := p.chunker.Chunk(thread, domain.DocSummary, summary.Text)
	if err != nil {
		return 0, fmt.Errorf("chunk summary: %w", err)
	}
	content, err := p.chunker.Chunk(thread, domain.DocThreadContent, thread.Text())
	if err != nil {
		return 0, fmt.Errorf("chunk content: %w", err)
	}
	chunks = append(chunks, content...)

	if err := p.embedder.EmbedChunks(ctx, chunks); err != nil {
		return 0, err
	}

	if err := p.store.ReplaceThread(ctx, thread.ID, chunks); err != nil {
		return 0, fmt.Errorf("store: %w", err)
	}
	return len(chunks), nil
}

func (p *IngestionPipeline) threadIngested(outcome string) {
	if p.metrics != nil {
		p.metrics.ThreadIngested(outcome)
	}
}

// record saves the run to the seed history. Failures are logged, not returned.
func (p *IngestionPipeline) record(report *domain.IngestionReport) {
	if p.history == nil {
		return
	}
	// The run's own context may already be cancelled.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := p.history.RecordSeed(ctx, report); err != nil {
		logger.Warn("recording seed run: %v", err)
	}
}
