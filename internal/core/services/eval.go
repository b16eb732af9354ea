package services

import (
	"context"
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/oliverbatey/forager/internal/core/domain"
	"github.com/oliverbatey/forager/internal/core/ports/driven"
	"github.com/oliverbatey/forager/internal/core/ports/driving"
	"github.com/oliverbatey/forager/internal/logger"
)

//go:embed eval_cases.yaml
var defaultEvalCases []byte

// Ensure Evaluator implements the interface.
var _ driving.EvalService = (*Evaluator)(nil)

// cannedResponses answer tool calls during evaluation.
var cannedResponses = map[domain.ToolName]string{
	domain.ToolSearchKnowledgeBase: "Result 1 (r/python, summary, score=0.883):\n" +
		"Thread: https://www.reddit.com/r/python/comments/abc123/test/\n" +
		"Date: 2026-02-19 10:00:00\n" +
		"Content:\nDiscussion about Python 3.13 new features including " +
		"pattern matching improvements and performance gains.",
	domain.ToolFetchRedditThread: "Thread: What's new in Python 3.13\n" +
		"URL: https://www.reddit.com/r/python/comments/abc123/\n" +
		"Score: 150 | Comments: 45\n" +
		"Author: python_dev | Date: 2026-02-19 10:00:00\n\n" +
		"Discussion about the new features in Python 3.13.",
	domain.ToolFetchSubredditPosts: "Latest hot posts from r/python:\n\n" +
		"1. [150 pts, 45 comments] What's new in Python 3.13\n" +
		"   https://www.reddit.com/r/python/comments/abc123/\n\n" +
		"2. [89 pts, 23 comments] Best practices for async Python\n" +
		"   https://www.reddit.com/r/python/comments/def456/",
	domain.ToolSeedSubreddit: "Seeded r/python: 3/3 threads, 9 chunks",
}

// DefaultEvalCases returns the built-in routing cases.
func DefaultEvalCases() []driving.EvalCase {
	cases, err := ParseEvalCases(defaultEvalCases)
	if err != nil {
		panic(fmt.Sprintf("embedded eval cases: %v", err))
	}
	return cases
}

// ParseEvalCases decodes a YAML list of cases. Every case needs a prompt
// and a declared expected tool.
func ParseEvalCases(data []byte) ([]driving.EvalCase, error) {
	var cases []driving.EvalCase
	if err := yaml.Unmarshal(data, &cases); err != nil {
		return nil, fmt.Errorf("parsing eval cases: %w: %w", domain.ErrInvalidInput, err)
	}
	if len(cases) == 0 {
		return nil, fmt.Errorf("parsing eval cases: %w", domain.ErrEmptyInput)
	}
	for i := range cases {
		c := &cases[i]
		if c.Name == "" {
			c.Name = fmt.Sprintf("case %d", i+1)
		}
		if c.Prompt == "" {
			return nil, fmt.Errorf("eval case %q: missing prompt: %w", c.Name, domain.ErrInvalidInput)
		}
		if !c.ExpectTool.Valid() {
			return nil, fmt.Errorf("eval case %q: tool %q: %w", c.Name, c.ExpectTool, domain.ErrUnknownTool)
		}
		for name := range c.Responses {
			if !name.Valid() {
				return nil, fmt.Errorf("eval case %q: response for %q: %w", c.Name, name, domain.ErrUnknownTool)
			}
		}
	}
	return cases, nil
}

// Evaluator checks tool routing against the live reasoning model with
// canned tool output.
type Evaluator struct {
	llm     driven.LLMService
	prompts driven.PromptStore
	cfg     AgentConfig
}

// NewEvaluator creates an evaluator.
func NewEvaluator(llm driven.LLMService, prompts driven.PromptStore, cfg AgentConfig) *Evaluator {
	return &Evaluator{llm: llm, prompts: prompts, cfg: cfg}
}

// Run executes cases in order, each on a fresh agent. Only cancellation
// stops the run early.
func (e *Evaluator) Run(ctx context.Context, cases []driving.EvalCase) ([]driving.EvalResult, error) {
	results := make([]driving.EvalResult, 0, len(cases))
	for _, c := range cases {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		logger.Section("Eval: " + c.Name)
		results = append(results, e.runCase(ctx, c))
	}
	return results, nil
}

func (e *Evaluator) runCase(ctx context.Context, c driving.EvalCase) driving.EvalResult {
	result := driving.EvalResult{Case: c}

	dispatcher, err := NewDispatcher(cannedTools(c.Responses)...)
	if err != nil {
		result.Err = err
		return result
	}
	agent := NewAgent(e.llm, dispatcher, e.prompts, e.cfg)

	reply, err := agent.Chat(ctx, agent.NewSessionID(), c.Prompt)
	if reply != nil {
		result.Reply = reply.Text
		for _, call := range reply.ToolCalls {
			result.Called = append(result.Called, call.Name)
			if call.Name == c.ExpectTool {
				result.Passed = true
			}
		}
	}
	result.Err = err
	if err != nil && reply != nil && !reply.LimitExceeded {
		result.Passed = false
	}
	return result
}

// cannedTools binds every declared tool to a fixed response.
func cannedTools(overrides map[domain.ToolName]string) []Tool {
	specs := ToolSpecs()
	tools := make([]Tool, len(specs))
	for i, spec := range specs {
		out, ok := overrides[spec.Name]
		if !ok {
			out, ok = cannedResponses[spec.Name]
		}
		if !ok {
			out = fmt.Sprintf("Mock response for %s", spec.Name)
		}
		tools[i] = Tool{Spec: spec, Handler: func(context.Context, map[string]any) (string, error) {
			return out, nil
		}}
	}
	return tools
}
