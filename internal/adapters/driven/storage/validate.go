package storage

import (
	"fmt"

	"github.com/oliverbatey/forager/internal/core/domain"
)

// CheckThreadChunks verifies that every chunk belongs to threadID.
func CheckThreadChunks(threadID string, chunks []domain.Chunk) error {
	if threadID == "" {
		return fmt.Errorf("replace thread: empty thread id: %w", domain.ErrInvalidInput)
	}
	for i := range chunks {
		if chunks[i].ThreadID != threadID {
			return fmt.Errorf("replace thread %s: chunk %s belongs to %s: %w",
				threadID, chunks[i].ID, chunks[i].ThreadID, domain.ErrInvalidInput)
		}
	}
	return nil
}
