package driving

import (
	"context"

	"github.com/oliverbatey/forager/internal/core/domain"
)

// EvalCase is one scripted tool-routing check.
type EvalCase struct {
	// Name identifies the case in reports.
	Name string `yaml:"name"`

	// Prompt is the user message sent to the agent.
	Prompt string `yaml:"prompt"`

	// ExpectTool is the tool the agent is expected to call.
	ExpectTool domain.ToolName `yaml:"expect_tool"`

	// Responses holds canned tool output keyed by tool name.
	// Tools without an entry answer with a generic placeholder.
	Responses map[domain.ToolName]string `yaml:"responses"`
}

// EvalResult is the outcome of one case.
type EvalResult struct {
	Case   EvalCase
	Passed bool
	Called []domain.ToolName
	Reply  string
	Err    error
}

// EvalService runs tool-routing checks against the live reasoning model.
type EvalService interface {
	// Run executes every case and returns one result per case, in order.
	Run(ctx context.Context, cases []EvalCase) ([]EvalResult, error)
}
