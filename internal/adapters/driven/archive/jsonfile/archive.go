// Package jsonfile archives threads and digests as JSON files in a directory.
package jsonfile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/oliverbatey/forager/internal/core/domain"
	"github.com/oliverbatey/forager/internal/core/ports/driven"
)

// Files written by SaveDigest.
const (
	DigestFile          = "collection.json"
	ThreadSummariesFile = "thread_summaries.txt"
	FinalSummaryFile    = "final_summary.txt"
)

// Ensure Archive implements the interface.
var _ driven.ThreadArchive = (*Archive)(nil)

// Archive stores one {id}.json file per thread and a digest per directory.
type Archive struct{}

// New creates an archive.
func New() *Archive {
	return &Archive{}
}

// SaveThread writes dir/{id}.json, creating dir if needed.
func (a *Archive) SaveThread(ctx context.Context, dir string, thread *domain.Thread) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if thread == nil || thread.ID == "" {
		return fmt.Errorf("save thread: missing id: %w", domain.ErrInvalidInput)
	}
	return writeJSON(dir, thread.ID+".json", thread)
}

// LoadThreads reads every thread file in dir, ordered by file name.
// The digest file is skipped so one directory can hold both.
func (a *Archive) LoadThreads(ctx context.Context, dir string) ([]domain.Thread, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", dir, err)
	}
	if _, err := os.Stat(dir); err != nil {
		return nil, fmt.Errorf("open %s: %w: %w", dir, domain.ErrNotFound, err)
	}
	sort.Strings(paths)

	threads := make([]domain.Thread, 0, len(paths))
	for _, path := range paths {
		if filepath.Base(path) == DigestFile {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		var thread domain.Thread
		if err := readJSON(path, &thread); err != nil {
			return nil, err
		}
		if thread.ID == "" {
			thread.ID = strings.TrimSuffix(filepath.Base(path), ".json")
		}
		threads = append(threads, thread)
	}
	return threads, nil
}

// SaveDigest writes the digest JSON plus its two plain-text renderings.
func (a *Archive) SaveDigest(ctx context.Context, dir string, digest *domain.Digest) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if digest == nil {
		return fmt.Errorf("save digest: %w", domain.ErrInvalidInput)
	}
	if err := writeJSON(dir, DigestFile, digest); err != nil {
		return err
	}
	if err := writeText(dir, ThreadSummariesFile, RenderThreadSummaries(digest)); err != nil {
		return err
	}
	return writeText(dir, FinalSummaryFile, digest.Summary+"\n")
}

// LoadDigest reads dir/collection.json.
func (a *Archive) LoadDigest(ctx context.Context, dir string) (*domain.Digest, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var digest domain.Digest
	if err := readJSON(filepath.Join(dir, DigestFile), &digest); err != nil {
		return nil, err
	}
	return &digest, nil
}

// RenderThreadSummaries lists each summary under a numbered heading.
func RenderThreadSummaries(digest *domain.Digest) string {
	var b strings.Builder
	for i, s := range digest.Summaries {
		fmt.Fprintf(&b, "Summary %d:\n%s\n", i+1, s.Text)
	}
	return b.String()
}

func writeJSON(dir, name string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", name, err)
	}
	return writeText(dir, name, string(data)+"\n")
}

func writeText(dir, name, content string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("read %s: %w", path, domain.ErrNotFound)
		}
		return fmt.Errorf("read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parse %s: %w: %w", path, domain.ErrInvalidInput, err)
	}
	return nil
}
