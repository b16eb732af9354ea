package driving

import (
	"context"

	"github.com/oliverbatey/forager/internal/core/domain"
)

// AgentService is the conversational entry point used by chat front-ends.
type AgentService interface {
	// Chat processes one user message for the session and returns the reply.
	// The session is created on its first message.
	// When the iteration bound is hit, the reply carries a fallback answer and
	// the error wraps domain.ErrIterationLimitExceeded.
	Chat(ctx context.Context, sessionID, message string) (*domain.AgentReply, error)

	// Reset discards the session's conversation state.
	Reset(sessionID string)

	// SessionCount returns the number of live sessions.
	SessionCount() int
}

// ToolDispatcher executes tool calls against their backing components.
type ToolDispatcher interface {
	// Specs returns the declared tool schemas in registration order.
	Specs() []domain.ToolSpec

	// Dispatch validates and runs one call. It always returns a result;
	// failures are carried in ToolResult.Error.
	Dispatch(ctx context.Context, call domain.ToolCall) domain.ToolResult
}
