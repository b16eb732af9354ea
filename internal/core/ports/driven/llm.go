// Package driven provides interfaces for infrastructure adapters (secondary/outbound ports).
package driven

import (
	"context"

	"github.com/oliverbatey/forager/internal/core/domain"
)

// LLMService provides language model operations for summarisation and the agent loop.
//
// Implementations may include:
//   - OpenAI (gpt-4o-mini, gpt-4o)
//   - Any OpenAI-compatible server (Ollama, LM Studio, vLLM)
//
// Transport failures must wrap domain.ErrUpstream and throttling must wrap
// domain.ErrRateLimited. Implementations never retry.
type LLMService interface {
	// Generate produces a completion for prompt under the given system instruction.
	Generate(ctx context.Context, system, prompt string, opts GenerateOptions) (string, error)

	// Chat sends the conversation with the declared tools and returns the model's
	// decision: a domain.FinalAnswer or a domain.ToolCalls. When tools is empty the
	// model is not offered tools and always answers.
	Chat(ctx context.Context, turns []domain.Turn, tools []domain.ToolSpec) (domain.Reply, error)

	// ModelName returns the name of the LLM model being used.
	ModelName() string

	// Ping validates the service is reachable by making a lightweight test request.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}

// GenerateOptions configures text generation behaviour.
type GenerateOptions struct {
	// MaxTokens is the maximum number of tokens to generate.
	MaxTokens int

	// Temperature controls randomness (0.0 = deterministic, 1.0 = creative).
	// It is always sent, so zero means deterministic, not the provider default.
	Temperature float64

	// TopP is the nucleus sampling threshold. Zero leaves the provider default.
	TopP float64
}
