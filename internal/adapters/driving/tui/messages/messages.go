// Package messages defines Bubbletea message types for the chat TUI.
package messages

import (
	"github.com/oliverbatey/forager/internal/adapters/driving/chat"
)

// ReplyReceived carries the handled output of one submitted line.
type ReplyReceived struct {
	Output chat.Output
}

// PromptsReloaded reports that a prompt file changed on disk.
type PromptsReloaded struct {
	Name string
}
