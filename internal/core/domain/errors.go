package domain

import "errors"

// Domain errors represent business logic failures.
// Adapters wrap these with %w so callers can match them with errors.Is.
var (
	// ErrNotFound indicates a requested thread or resource does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrConfig indicates an invalid component configuration.
	ErrConfig = errors.New("invalid configuration")

	// ErrEmptyInput indicates text was blank after trimming.
	ErrEmptyInput = errors.New("empty input")

	// Upstream Errors.

	// ErrUpstream indicates a transport failure talking to an external API.
	// It is surfaced to the caller and never retried internally.
	ErrUpstream = errors.New("upstream error")

	// ErrRateLimited indicates the upstream API throttled the request.
	ErrRateLimited = errors.New("rate limited")

	// ErrGeneration indicates the language model returned empty or malformed output.
	ErrGeneration = errors.New("generation failed")

	// Store Errors.

	// ErrStoreUnavailable indicates the knowledge store cannot be reached.
	// This aborts the current top-level operation.
	ErrStoreUnavailable = errors.New("knowledge store unavailable")

	// Agent Errors.

	// ErrUnknownTool indicates a tool name outside the declared tool set.
	ErrUnknownTool = errors.New("unknown tool")

	// ErrArgumentValidation indicates tool call arguments failed schema validation.
	ErrArgumentValidation = errors.New("argument validation failed")

	// ErrIterationLimitExceeded indicates the agent loop hit its safety bound.
	ErrIterationLimitExceeded = errors.New("iteration limit exceeded")

	// Ingestion Errors.

	// ErrIngestionPartialFailure indicates one or more threads failed during a seed batch.
	ErrIngestionPartialFailure = errors.New("ingestion partially failed")
)

// kinds maps each sentinel to its stable, user-visible kind name.
var kinds = []struct {
	err  error
	kind string
}{
	{ErrRateLimited, "RateLimited"},
	{ErrUpstream, "UpstreamError"},
	{ErrNotFound, "NotFound"},
	{ErrGeneration, "GenerationError"},
	{ErrArgumentValidation, "ArgumentValidationError"},
	{ErrStoreUnavailable, "StoreUnavailable"},
	{ErrIterationLimitExceeded, "IterationLimitExceeded"},
	{ErrIngestionPartialFailure, "IngestionPartialFailure"},
	{ErrConfig, "ConfigError"},
	{ErrEmptyInput, "EmptyInputError"},
	{ErrUnknownTool, "UnknownTool"},
	{ErrInvalidInput, "InvalidInput"},
}

// KindInternal is reported for errors outside the taxonomy.
const KindInternal = "InternalError"

// ErrorKind returns the taxonomy name for err.
// RateLimited is checked before UpstreamError because adapters may wrap both.
func ErrorKind(err error) string {
	if err == nil {
		return ""
	}
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return KindInternal
}
