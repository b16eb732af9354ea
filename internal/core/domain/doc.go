// Package domain defines the core business entities for Forager.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Thread: A Reddit submission and its comments
//   - ThreadSummary: The generated summary of one thread
//   - Chunk: A searchable, embedded text segment of a thread
//   - Conversation: The turn history of one chat session
//   - ToolCall / ToolResult: Requests emitted by the reasoning model and their outcomes
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
