package mcp

import (
	"context"
	"sync"

	"github.com/oliverbatey/forager/internal/core/domain"
)

// mockSearchService is a mock implementation of driving.SearchService.
type mockSearchService struct {
	count int
	err   error
}

func (m *mockSearchService) Search(
	_ context.Context,
	_ string,
	_ int,
	_ domain.SearchFilter,
) ([]domain.ScoredChunk, error) {
	return nil, m.err
}

func (m *mockSearchService) Count(_ context.Context) (int, error) {
	return m.count, m.err
}

// mockDispatcher is a mock implementation of driving.ToolDispatcher.
// It records calls and answers from results keyed by tool name.
type mockDispatcher struct {
	mu      sync.Mutex
	calls   []domain.ToolCall
	results map[domain.ToolName]domain.ToolResult
}

func (m *mockDispatcher) Specs() []domain.ToolSpec {
	return []domain.ToolSpec{
		{
			Name:        domain.ToolSearchKnowledgeBase,
			Description: "Search",
			Params: []domain.ToolParam{
				{Name: "query", Type: domain.ParamString, Required: true},
				{Name: "k", Type: domain.ParamInteger},
			},
		},
		{
			Name:        domain.ToolFetchRedditThread,
			Description: "Fetch",
			Params:      []domain.ToolParam{{Name: "thread_id", Type: domain.ParamString, Required: true}},
		},
	}
}

func (m *mockDispatcher) Dispatch(_ context.Context, call domain.ToolCall) domain.ToolResult {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, call)

	result, ok := m.results[call.Name]
	if !ok {
		result = domain.ToolResult{Content: "ok"}
	}
	result.CallID = call.ID
	result.Name = call.Name
	return result
}

func (m *mockDispatcher) lastCall() domain.ToolCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[len(m.calls)-1]
}
