package driven

import (
	"context"

	"github.com/oliverbatey/forager/internal/core/domain"
)

// ThreadArchive persists extracted threads and digests as files.
// It backs the extract, summarise and publish commands.
type ThreadArchive interface {
	// SaveThread writes one thread to dir.
	SaveThread(ctx context.Context, dir string, thread *domain.Thread) error

	// LoadThreads reads every archived thread in dir.
	LoadThreads(ctx context.Context, dir string) ([]domain.Thread, error)

	// SaveDigest writes a digest and its text renderings to dir.
	SaveDigest(ctx context.Context, dir string, digest *domain.Digest) error

	// LoadDigest reads the digest previously saved in dir.
	LoadDigest(ctx context.Context, dir string) (*domain.Digest, error)
}

// Publisher renders a digest for readers.
type Publisher interface {
	// Publish writes the rendered digest to dir and returns the files written.
	Publish(ctx context.Context, dir string, digest *domain.Digest) ([]string, error)
}
