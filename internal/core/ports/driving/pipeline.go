package driving

import (
	"context"

	"github.com/oliverbatey/forager/internal/core/domain"
)

// PipelineService runs the file-based extract, summarise and publish steps.
type PipelineService interface {
	// Extract fetches up to limit new threads with comments and archives them in outDir.
	// It returns the number of threads written.
	Extract(ctx context.Context, subreddit string, limit int, outDir string) (int, error)

	// Summarise summarises every archived thread in inDir and writes a digest to outDir.
	Summarise(ctx context.Context, inDir, outDir string) (*domain.Digest, error)

	// Publish renders the digest in inDir into outDir and returns the files written.
	Publish(ctx context.Context, inDir, outDir string) ([]string, error)
}
