package cli

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/oliverbatey/forager/internal/config"
	"github.com/oliverbatey/forager/internal/core/domain"
	"github.com/oliverbatey/forager/internal/core/ports/driving"
)

// mockSearch returns fixed results.
type mockSearch struct {
	results []domain.ScoredChunk
	count   int
	err     error

	query  string
	k      int
	filter domain.SearchFilter
}

func (m *mockSearch) Search(_ context.Context, query string, k int, filter domain.SearchFilter) ([]domain.ScoredChunk, error) {
	m.query, m.k, m.filter = query, k, filter
	return m.results, m.err
}

func (m *mockSearch) Count(context.Context) (int, error) { return m.count, m.err }

// mockIngestion returns a fixed report.
type mockIngestion struct {
	report *domain.IngestionReport
	err    error

	subreddit string
	limit     int
}

func (m *mockIngestion) Seed(_ context.Context, subreddit string, limit int) (*domain.IngestionReport, error) {
	m.subreddit, m.limit = subreddit, limit
	return m.report, m.err
}

// mockAgent echoes messages.
type mockAgent struct {
	messages []string
	err      error
}

func (m *mockAgent) Chat(_ context.Context, _ string, message string) (*domain.AgentReply, error) {
	m.messages = append(m.messages, message)
	if m.err != nil {
		return nil, m.err
	}
	return &domain.AgentReply{Text: "echo: " + message, Iterations: 1}, nil
}

func (m *mockAgent) Reset(string) {}

func (m *mockAgent) SessionCount() int { return len(m.messages) }

// mockPipeline records the directories it was given.
type mockPipeline struct {
	extracted int
	digest    *domain.Digest
	files     []string
	err       error

	calls []string
}

func (m *mockPipeline) Extract(_ context.Context, subreddit string, limit int, outDir string) (int, error) {
	m.calls = append(m.calls, "extract "+subreddit+" "+outDir)
	return m.extracted, m.err
}

func (m *mockPipeline) Summarise(_ context.Context, inDir, outDir string) (*domain.Digest, error) {
	m.calls = append(m.calls, "summarise "+inDir+" "+outDir)
	return m.digest, m.err
}

func (m *mockPipeline) Publish(_ context.Context, inDir, outDir string) ([]string, error) {
	m.calls = append(m.calls, "publish "+inDir+" "+outDir)
	return m.files, m.err
}

// mockEval passes every case whose tool is in pass.
type mockEval struct {
	pass map[domain.ToolName]bool
	ran  []driving.EvalCase
}

func (m *mockEval) Run(_ context.Context, cases []driving.EvalCase) ([]driving.EvalResult, error) {
	m.ran = cases
	results := make([]driving.EvalResult, len(cases))
	for i, c := range cases {
		results[i] = driving.EvalResult{Case: c, Passed: m.pass[c.ExpectTool]}
		if results[i].Passed {
			results[i].Called = []domain.ToolName{c.ExpectTool}
		} else {
			results[i].Called = []domain.ToolName{domain.ToolFetchSubredditPosts}
		}
	}
	return results, nil
}

// mockStore implements the knowledge store and seed history used by status.
type mockStore struct {
	count   int
	reports []domain.IngestionReport
}

func (m *mockStore) Upsert(context.Context, []domain.Chunk) error { return nil }

func (m *mockStore) ReplaceThread(context.Context, string, []domain.Chunk) error { return nil }

func (m *mockStore) Search(context.Context, []float32, int, domain.SearchFilter) ([]domain.ScoredChunk, error) {
	return nil, nil
}

func (m *mockStore) Count(context.Context) (int, error) { return m.count, nil }

func (m *mockStore) DeleteThread(context.Context, string) error { return nil }

func (m *mockStore) Close() error { return nil }

func (m *mockStore) RecordSeed(context.Context, *domain.IngestionReport) error { return nil }

func (m *mockStore) RecentSeeds(_ context.Context, limit int) ([]domain.IngestionReport, error) {
	if len(m.reports) > limit {
		return m.reports[:limit], nil
	}
	return m.reports, nil
}

// testMocks exposes the mocks installed by setupTestServices.
type testMocks struct {
	search    *mockSearch
	ingestion *mockIngestion
	agent     *mockAgent
	pipeline  *mockPipeline
	eval      *mockEval
	store     *mockStore
}

// setupTestServices installs mocks for every service and a memory-backed
// configuration without credentials. The returned func restores the globals.
func setupTestServices(t *testing.T) (*testMocks, func()) {
	t.Helper()

	dir := t.TempDir()
	mocks := &testMocks{
		search: &mockSearch{results: []domain.ScoredChunk{{
			Score: 0.91,
			Chunk: domain.Chunk{
				ID:       "abc123:summary:0",
				ThreadID: "abc123",
				DocType:  domain.DocSummary,
				Text:     "People recommend table-driven tests.",
				Metadata: domain.ChunkMetadata{
					Subreddit: "golang",
					Title:     "How do you test?",
					Permalink: "/r/golang/comments/abc123/how_do_you_test/",
					Timestamp: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
				},
			},
		}}, count: 42},
		ingestion: &mockIngestion{report: &domain.IngestionReport{Subreddit: "golang", Attempted: 2, Succeeded: 2, ChunksWritten: 6}},
		agent:     &mockAgent{},
		pipeline:  &mockPipeline{},
		eval:      &mockEval{pass: map[domain.ToolName]bool{}},
		store:     &mockStore{count: 42},
	}

	cfg = &config.Config{
		AI:      config.AIConfig{Provider: config.ProviderOpenAI},
		Store:   config.StoreConfig{Backend: "memory", DataDir: dir},
		Agent:   config.AgentConfig{MaxIterations: 5, HistoryLimit: 20},
		Chunker: config.ChunkerConfig{Size: 1000, Overlap: 100},
		Server:  config.ServerConfig{Addr: ":0"},
		Dir:     dir,
	}
	searchService = mocks.search
	ingestionService = mocks.ingestion
	agentService = mocks.agent
	pipelineService = mocks.pipeline
	evalService = mocks.eval
	knowledgeStore = mocks.store
	seedHistory = mocks.store

	return mocks, func() {
		closeApp()
		cfg = nil
		searchService = nil
		ingestionService = nil
		agentService = nil
		toolDispatcher = nil
		pipelineService = nil
		evalService = nil
		knowledgeStore = nil
		seedHistory = nil
		configStore = nil
		resetFlags(rootCmd)
	}
}

// resetFlags restores every flag to its default so tests do not leak state
// through the shared command tree.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, sub := range cmd.Commands() {
		resetFlags(sub)
	}
}

// runCommand executes the root command with args and returns stdout and stderr.
func runCommand(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()

	var stdout, stderr bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetIn(bytes.NewBufferString(stdin))
	rootCmd.SetArgs(args)
	defer func() {
		rootCmd.SetArgs(nil)
		rootCmd.SetIn(nil)
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
	}()

	err := rootCmd.Execute()
	return stdout.String(), stderr.String(), err
}
