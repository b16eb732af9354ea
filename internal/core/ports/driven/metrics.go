package driven

import "time"

// Metrics records operational counters for ingestion and the agent loop.
// Implementations must be safe for concurrent use.
type Metrics interface {
	// ThreadIngested records the outcome ("ok" or an error kind) of one thread.
	ThreadIngested(outcome string)

	// ChunksWritten adds n to the written chunk counter.
	ChunksWritten(n int)

	// SeedCompleted records the duration of a seed run.
	SeedCompleted(d time.Duration)

	// ToolDispatched records one dispatch of the named tool.
	ToolDispatched(tool, outcome string)

	// AgentMessage records a processed user message and its reasoning iterations.
	AgentMessage(outcome string, iterations int)
}
