package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/oliverbatey/forager/internal/core/domain"
	"github.com/oliverbatey/forager/internal/core/ports/driven"
	"github.com/oliverbatey/forager/internal/core/ports/driving"
	"github.com/oliverbatey/forager/internal/logger"
)

// summariseWorkers bounds concurrent summary requests.
const summariseWorkers = 4

// Ensure FilePipeline implements the interface.
var _ driving.PipelineService = (*FilePipeline)(nil)

// FilePipeline runs the extract, summarise and publish steps over a
// directory archive.
type FilePipeline struct {
	source     driven.ContentSource
	summarizer *Summarizer
	archive    driven.ThreadArchive
	publisher  driven.Publisher
	now        func() time.Time
}

// NewFilePipeline creates a file pipeline. Steps whose dependency is nil
// fail with domain.ErrConfig.
func NewFilePipeline(source driven.ContentSource, summarizer *Summarizer, archive driven.ThreadArchive, publisher driven.Publisher) *FilePipeline {
	return &FilePipeline{
		source:     source,
		summarizer: summarizer,
		archive:    archive,
		publisher:  publisher,
		now:        time.Now,
	}
}

// Extract fetches up to limit of the newest threads of subreddit, with
// comments, and archives each in outDir.
func (p *FilePipeline) Extract(ctx context.Context, subreddit string, limit int, outDir string) (int, error) {
	if p.source == nil {
		return 0, fmt.Errorf("extract: no content source: %w", domain.ErrConfig)
	}
	subreddit = normalizeSubreddit(subreddit)
	if subreddit == "" {
		return 0, fmt.Errorf("extract: empty subreddit: %w", domain.ErrInvalidInput)
	}
	if limit <= 0 {
		limit = DefaultSeedLimit
	}

	logger.Section("Extract r/" + subreddit)
	listing, err := p.source.BrowseSubreddit(ctx, subreddit, domain.SortNew, limit)
	if err != nil {
		return 0, fmt.Errorf("listing r/%s: %w", subreddit, err)
	}

	written := 0
	for i := range listing {
		thread, err := p.source.FetchThread(ctx, listing[i].ID)
		if err != nil {
			return written, fmt.Errorf("fetch %s: %w", listing[i].ID, err)
		}
		if err := p.archive.SaveThread(ctx, outDir, thread); err != nil {
			return written, err
		}
		logger.Debug("Archived %s (%d comments)", thread.ID, len(thread.Comments))
		written++
	}
	return written, nil
}

// Summarise summarises every thread archived in inDir, condenses the
// summaries into one paragraph and saves the digest in outDir.
func (p *FilePipeline) Summarise(ctx context.Context, inDir, outDir string) (*domain.Digest, error) {
	if p.summarizer == nil {
		return nil, fmt.Errorf("summarise: no summarizer: %w", domain.ErrConfig)
	}
	threads, err := p.archive.LoadThreads(ctx, inDir)
	if err != nil {
		return nil, err
	}
	if len(threads) == 0 {
		return nil, fmt.Errorf("summarise: no threads in %s: %w", inDir, domain.ErrEmptyInput)
	}

	logger.Section(fmt.Sprintf("Summarise %d threads", len(threads)))
	summaries := make([]domain.ThreadSummary, len(threads))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(summariseWorkers)
	for i := range threads {
		g.Go(func() error {
			s, err := p.summarizer.SummarizeThread(gctx, &threads[i])
			if err != nil {
				return err
			}
			summaries[i] = *s
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	texts := make([]string, len(summaries))
	for i := range summaries {
		texts[i] = summaries[i].Text
	}
	overall, err := p.summarizer.SummarizeCollection(ctx, texts)
	if err != nil {
		return nil, err
	}

	digest := &domain.Digest{
		Subreddit: commonSubreddit(threads),
		Threads:   threads,
		Summaries: summaries,
		Summary:   overall,
		CreatedAt: p.now().UTC(),
	}
	if err := p.archive.SaveDigest(ctx, outDir, digest); err != nil {
		return nil, err
	}
	return digest, nil
}

// Publish renders the digest saved in inDir into outDir.
func (p *FilePipeline) Publish(ctx context.Context, inDir, outDir string) ([]string, error) {
	if p.publisher == nil {
		return nil, fmt.Errorf("publish: no publisher: %w", domain.ErrConfig)
	}
	digest, err := p.archive.LoadDigest(ctx, inDir)
	if err != nil {
		return nil, err
	}
	return p.publisher.Publish(ctx, outDir, digest)
}

// commonSubreddit returns the subreddit shared by every thread, or "".
func commonSubreddit(threads []domain.Thread) string {
	if len(threads) == 0 {
		return ""
	}
	sub := threads[0].Subreddit
	for _, t := range threads[1:] {
		if !strings.EqualFold(t.Subreddit, sub) {
			return ""
		}
	}
	return sub
}
