package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/oliverbatey/forager/internal/core/domain"
	"github.com/oliverbatey/forager/internal/core/ports/driven"
	"github.com/oliverbatey/forager/internal/core/ports/driving"
)

// Tool limits.
const (
	DefaultSearchK  = 5
	MaxSearchK      = 20
	DefaultPosts    = 5
	MaxPosts        = 25
	MaxSeedThreads  = 3
	searchTextLimit = 2000
	threadTextLimit = 4000
)

const noResults = "No results found in the knowledge base."

// ToolSpecs returns the declared tool schemas.
func ToolSpecs() []domain.ToolSpec {
	return []domain.ToolSpec{
		{
			Name: domain.ToolSearchKnowledgeBase,
			Description: "Search the knowledge base of stored Reddit threads and summaries. " +
				"Use this when the user asks about topics that may have been previously ingested.",
			Params: []domain.ToolParam{
				{Name: "query", Type: domain.ParamString, Required: true,
					Description: "The search query describing what you're looking for."},
				{Name: "k", Type: domain.ParamInteger,
					Description: fmt.Sprintf("Number of results to return. Default is %d, maximum %d.", DefaultSearchK, MaxSearchK)},
				{Name: "subreddit", Type: domain.ParamString,
					Description: "Optional: filter results to a specific subreddit (e.g. 'python')."},
				{Name: "doc_type", Type: domain.ParamString,
					Enum:        []string{string(domain.DocThreadContent), string(domain.DocSummary)},
					Description: "Optional: filter to only thread content or only summaries."},
			},
		},
		{
			Name: domain.ToolFetchRedditThread,
			Description: "Fetch a specific Reddit thread by its ID. " +
				"Use this when the user references a specific thread or you need fresh data for a particular post.",
			Params: []domain.ToolParam{
				{Name: "thread_id", Type: domain.ParamString, Required: true,
					Description: "The Reddit thread/submission ID (e.g. '1abc23d')."},
			},
		},
		{
			Name: domain.ToolFetchSubredditPosts,
			Description: "Fetch the latest posts from a subreddit. " +
				"Use this when the user wants to know what's currently being discussed in a subreddit.",
			Params: []domain.ToolParam{
				{Name: "subreddit", Type: domain.ParamString, Required: true,
					Description: "The subreddit name (e.g. 'python', 'worldnews')."},
				{Name: "sort", Type: domain.ParamString,
					Enum:        []string{string(domain.SortHot), string(domain.SortNew), string(domain.SortTop)},
					Description: "How to sort posts. Default is 'hot'."},
				{Name: "limit", Type: domain.ParamInteger,
					Description: fmt.Sprintf("Number of posts to fetch. Default is %d.", DefaultPosts)},
			},
		},
		{
			Name: domain.ToolSeedSubreddit,
			Description: "Extract, summarise, and store threads from a subreddit into the knowledge base. " +
				"Use this when the user explicitly asks to add/seed/ingest content from a subreddit. " +
				fmt.Sprintf("Maximum %d threads per call.", MaxSeedThreads),
			Params: []domain.ToolParam{
				{Name: "subreddit", Type: domain.ParamString, Required: true,
					Description: "The subreddit name to ingest (e.g. 'python')."},
				{Name: "limit", Type: domain.ParamInteger,
					Description: fmt.Sprintf("Number of threads to ingest. Default and maximum is %d.", MaxSeedThreads)},
			},
		},
	}
}

// NewTools binds the declared tools to their backing components.
func NewTools(search driving.SearchService, source driven.ContentSource, seeder driving.IngestionService) []Tool {
	h := &toolHandlers{search: search, source: source, seeder: seeder}
	handlers := map[domain.ToolName]ToolHandler{
		domain.ToolSearchKnowledgeBase: h.searchKnowledgeBase,
		domain.ToolFetchRedditThread:   h.fetchRedditThread,
		domain.ToolFetchSubredditPosts: h.fetchSubredditPosts,
		domain.ToolSeedSubreddit:       h.seedSubreddit,
	}

	specs := ToolSpecs()
	tools := make([]Tool, len(specs))
	for i, spec := range specs {
		tools[i] = Tool{Spec: spec, Handler: handlers[spec.Name]}
	}
	return tools
}

type toolHandlers struct {
	search driving.SearchService
	source driven.ContentSource
	seeder driving.IngestionService
}

func (h *toolHandlers) searchKnowledgeBase(ctx context.Context, args map[string]any) (string, error) {
	k, err := intArg(args, "k", DefaultSearchK)
	if err != nil {
		return "", err
	}
	if k < 1 {
		return "", &ValidationError{Tool: domain.ToolSearchKnowledgeBase, Field: "k", Reason: "must be at least 1"}
	}
	if k > MaxSearchK {
		k = MaxSearchK
	}

	filter := domain.SearchFilter{
		Subreddit: normalizeSubreddit(stringArg(args, "subreddit")),
		DocType:   domain.DocType(stringArg(args, "doc_type")),
	}
	hits, err := h.search.Search(ctx, stringArg(args, "query"), k, filter)
	if err != nil {
		return "", err
	}
	return FormatSearchResults(hits), nil
}

func (h *toolHandlers) fetchRedditThread(ctx context.Context, args map[string]any) (string, error) {
	thread, err := h.source.FetchThread(ctx, strings.TrimSpace(stringArg(args, "thread_id")))
	if err != nil {
		return "", err
	}
	return FormatThread(thread), nil
}

func (h *toolHandlers) fetchSubredditPosts(ctx context.Context, args map[string]any) (string, error) {
	sub := normalizeSubreddit(stringArg(args, "subreddit"))
	if sub == "" {
		return "", &ValidationError{Tool: domain.ToolFetchSubredditPosts, Field: "subreddit", Reason: "must not be empty"}
	}
	sort := domain.SortMode(stringArg(args, "sort"))
	if sort == "" {
		sort = domain.SortHot
	}
	limit, err := intArg(args, "limit", DefaultPosts)
	if err != nil {
		return "", err
	}
	if limit < 1 {
		return "", &ValidationError{Tool: domain.ToolFetchSubredditPosts, Field: "limit", Reason: "must be at least 1"}
	}
	if limit > MaxPosts {
		limit = MaxPosts
	}

	threads, err := h.source.BrowseSubreddit(ctx, sub, sort, limit)
	if err != nil {
		return "", err
	}
	return FormatPosts(sub, sort, threads), nil
}

func (h *toolHandlers) seedSubreddit(ctx context.Context, args map[string]any) (string, error) {
	sub := normalizeSubreddit(stringArg(args, "subreddit"))
	if sub == "" {
		return "", &ValidationError{Tool: domain.ToolSeedSubreddit, Field: "subreddit", Reason: "must not be empty"}
	}
	limit, err := intArg(args, "limit", MaxSeedThreads)
	if err != nil {
		return "", err
	}
	if limit < 1 {
		return "", &ValidationError{Tool: domain.ToolSeedSubreddit, Field: "limit", Reason: "must be at least 1"}
	}
	if limit > MaxSeedThreads {
		limit = MaxSeedThreads
	}

	report, err := h.seeder.Seed(ctx, sub, limit)
	if err != nil {
		return "", err
	}
	return FormatSeedReport(report), nil
}

// FormatSearchResults renders search hits for the model.
func FormatSearchResults(hits []domain.ScoredChunk) string {
	if len(hits) == 0 {
		return noResults
	}
	parts := make([]string, len(hits))
	for i, hit := range hits {
		c := hit.Chunk
		date := "?"
		if !c.Metadata.Timestamp.IsZero() {
			date = c.Metadata.Timestamp.UTC().Format("2006-01-02 15:04:05")
		}
		parts[i] = fmt.Sprintf("Result %d (r/%s, %s, score=%.3f):\nThread: https://www.reddit.com%s\nDate: %s\nContent:\n%s",
			i+1, c.Metadata.Subreddit, c.DocType, hit.Score, c.Metadata.Permalink, date, truncateRunes(c.Text, searchTextLimit))
	}
	return strings.Join(parts, "\n\n---\n\n")
}

// FormatThread renders a fetched thread with a metadata header.
func FormatThread(t *domain.Thread) string {
	out := fmt.Sprintf("Thread: %s\nURL: %s\nScore: %d | Comments: %d\nAuthor: %s | Date: %s\n\n%s",
		t.Title, t.URL(), t.Score, t.NumComments, t.Author, t.CreatedAt.UTC().Format("2006-01-02 15:04:05"), t.Text())
	return truncateRunes(out, threadTextLimit)
}

// FormatPosts renders a subreddit listing as a numbered list.
func FormatPosts(subreddit string, sort domain.SortMode, threads []domain.Thread) string {
	lines := make([]string, len(threads))
	for i, t := range threads {
		lines[i] = fmt.Sprintf("%d. [%d pts, %d comments] %s\n   %s", i+1, t.Score, t.NumComments, t.Title, t.URL())
	}
	return fmt.Sprintf("Latest %s posts from r/%s:\n\n", sort, subreddit) + strings.Join(lines, "\n\n")
}

// FormatSeedReport renders a seed run for the model and the chat front-ends.
func FormatSeedReport(r *domain.IngestionReport) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Seeded r/%s: %d/%d threads, %d chunks", r.Subreddit, r.Succeeded, r.Attempted, r.ChunksWritten)
	for _, f := range r.Failures {
		fmt.Fprintf(&b, "\n- %s failed (%s): %s", f.ThreadID, f.Kind, f.Message)
	}
	return b.String()
}

// normalizeSubreddit strips a leading "r/" or "/r/".
func normalizeSubreddit(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "/")
	if len(s) > 2 && strings.EqualFold(s[:2], "r/") {
		s = s[2:]
	}
	return strings.Trim(s, "/")
}

func stringArg(args map[string]any, name string) string {
	s, _ := args[name].(string)
	return s
}

// intArg reads a validated integer argument, or def when absent.
func intArg(args map[string]any, name string, def int) (int, error) {
	v, ok := args[name]
	if !ok || v == nil {
		return def, nil
	}
	n, err := toInt(v)
	if err != nil {
		return 0, fmt.Errorf("argument %q: %w: %w", name, err, domain.ErrArgumentValidation)
	}
	return n, nil
}
