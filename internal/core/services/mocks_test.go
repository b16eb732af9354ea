package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/oliverbatey/forager/internal/core/domain"
	"github.com/oliverbatey/forager/internal/core/ports/driven"
)

// mockLLM implements driven.LLMService. Generate answers with generateFn or
// a fixed summary; Chat pops replies in order.
type mockLLM struct {
	mu          sync.Mutex
	generateFn  func(system, prompt string) (string, error)
	generated   []driven.GenerateOptions
	prompts     []string
	replies     []domain.Reply
	chatErr     error
	chatCalls   int
	chatTurns   [][]domain.Turn
	chatTools   [][]domain.ToolSpec
	wrapUpReply string
	wrapUpErr   error
}

func (m *mockLLM) Generate(_ context.Context, system, prompt string, opts driven.GenerateOptions) (string, error) {
	m.mu.Lock()
	m.generated = append(m.generated, opts)
	m.prompts = append(m.prompts, prompt)
	m.mu.Unlock()
	if m.generateFn != nil {
		return m.generateFn(system, prompt)
	}
	return "A summary.", nil
}

func (m *mockLLM) Chat(_ context.Context, turns []domain.Turn, tools []domain.ToolSpec) (domain.Reply, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.chatCalls++
	m.chatTurns = append(m.chatTurns, append([]domain.Turn(nil), turns...))
	m.chatTools = append(m.chatTools, tools)

	if len(tools) == 0 {
		if m.wrapUpErr != nil {
			return nil, m.wrapUpErr
		}
		return domain.FinalAnswer{Text: m.wrapUpReply}, nil
	}
	if m.chatErr != nil {
		return nil, m.chatErr
	}
	if len(m.replies) == 0 {
		return domain.FinalAnswer{Text: "done"}, nil
	}
	reply := m.replies[0]
	if len(m.replies) > 1 {
		m.replies = m.replies[1:]
	}
	return reply, nil
}

func (m *mockLLM) ModelName() string            { return "mock-llm" }
func (m *mockLLM) Ping(_ context.Context) error { return nil }
func (m *mockLLM) Close() error                 { return nil }

// mockEmbeddingService implements driven.EmbeddingService with a
// deterministic bag-of-letters vector.
type mockEmbeddingService struct {
	mu         sync.Mutex
	err        error
	batchCalls int
	short      bool
}

func letterVector(text string) []float32 {
	vec := make([]float32, 26)
	for _, r := range strings.ToLower(text) {
		if r >= 'a' && r <= 'z' {
			vec[r-'a']++
		}
	}
	vec[0] += 0.01
	return vec
}

func (m *mockEmbeddingService) Embed(_ context.Context, text string) ([]float32, error) {
	if m.err != nil {
		return nil, m.err
	}
	return letterVector(text), nil
}

func (m *mockEmbeddingService) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	m.mu.Lock()
	m.batchCalls++
	m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = letterVector(t)
	}
	if m.short {
		out = out[:len(out)-1]
	}
	return out, nil
}

func (m *mockEmbeddingService) Dimensions() int              { return 26 }
func (m *mockEmbeddingService) ModelName() string            { return "mock-embed" }
func (m *mockEmbeddingService) Ping(_ context.Context) error { return nil }
func (m *mockEmbeddingService) Close() error                 { return nil }

// mockSource implements driven.ContentSource over a fixed set of threads.
type mockSource struct {
	mu        sync.Mutex
	threads   []domain.Thread
	fetchErrs map[string]error
	browseErr error
	fetches   map[string]int
	sorts     []domain.SortMode
}

func newMockSource(threads ...domain.Thread) *mockSource {
	return &mockSource{threads: threads, fetchErrs: map[string]error{}, fetches: map[string]int{}}
}

func (m *mockSource) FetchThread(_ context.Context, id string) (*domain.Thread, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fetches[id]++
	if err := m.fetchErrs[id]; err != nil {
		return nil, err
	}
	for i := range m.threads {
		if m.threads[i].ID == id {
			t := m.threads[i]
			return &t, nil
		}
	}
	return nil, fmt.Errorf("thread %s: %w", id, domain.ErrNotFound)
}

func (m *mockSource) BrowseSubreddit(_ context.Context, _ string, sort domain.SortMode, limit int) ([]domain.Thread, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sorts = append(m.sorts, sort)
	if m.browseErr != nil {
		return nil, m.browseErr
	}
	n := len(m.threads)
	if limit < n {
		n = limit
	}
	out := make([]domain.Thread, n)
	for i := 0; i < n; i++ {
		out[i] = m.threads[i]
		out[i].Comments = nil
	}
	return out, nil
}

// mockPrompts implements driven.PromptStore.
type mockPrompts struct {
	prompts map[string]string
}

func (m *mockPrompts) Load(name string) (string, error) {
	if p, ok := m.prompts[name]; ok {
		return p, nil
	}
	return "", fmt.Errorf("prompt %s: %w", name, domain.ErrNotFound)
}

func (m *mockPrompts) Reload() {}

// mockMetrics implements driven.Metrics by counting calls.
type mockMetrics struct {
	mu         sync.Mutex
	threads    map[string]int
	chunks     int
	seeds      int
	tools      map[string]int
	messages   map[string]int
	iterations []int
}

func newMockMetrics() *mockMetrics {
	return &mockMetrics{threads: map[string]int{}, tools: map[string]int{}, messages: map[string]int{}}
}

func (m *mockMetrics) ThreadIngested(outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.threads[outcome]++
}

func (m *mockMetrics) ChunksWritten(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.chunks += n
}

func (m *mockMetrics) SeedCompleted(_ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seeds++
}

func (m *mockMetrics) ToolDispatched(tool, outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tools[tool+":"+outcome]++
}

func (m *mockMetrics) AgentMessage(outcome string, iterations int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages[outcome]++
	m.iterations = append(m.iterations, iterations)
}

// testThread builds a thread with n comments.
func testThread(id, subreddit string, comments int) domain.Thread {
	created := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	t := domain.Thread{
		ID:          id,
		Subreddit:   subreddit,
		Title:       "Thread " + id,
		Body:        "Body of " + id,
		Author:      "author_" + id,
		Permalink:   "/r/" + subreddit + "/comments/" + id + "/thread/",
		Score:       10,
		NumComments: comments,
		CreatedAt:   created,
	}
	for i := 0; i < comments; i++ {
		t.Comments = append(t.Comments, domain.Comment{
			ID:        fmt.Sprintf("%s_c%d", id, i),
			Author:    fmt.Sprintf("user%d", i),
			Body:      fmt.Sprintf("comment %d on %s", i, id),
			Score:     i,
			CreatedAt: created.Add(time.Duration(i) * time.Minute),
		})
	}
	return t
}
