package cli

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/oliverbatey/forager/internal/core/domain"
)

const snippetLen = 160

var (
	searchK         int
	searchSubreddit string
	searchDocType   string
	searchJSON      bool
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search the knowledge base",
	Long: `Embeds the query and ranks stored chunks by semantic similarity.
Results can be narrowed to one subreddit or to summary or thread_content
chunks.`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().IntVarP(&searchK, "top-k", "k", 5, "maximum number of results")
	searchCmd.Flags().StringVar(&searchSubreddit, "subreddit", "", "only search this subreddit")
	searchCmd.Flags().StringVar(&searchDocType, "doc-type", "", "only search summary or thread_content chunks")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output results as JSON")
	rootCmd.AddCommand(searchCmd)
}

// searchHit is the JSON form of a result. Embeddings are omitted.
type searchHit struct {
	Score     float64   `json:"score"`
	ThreadID  string    `json:"thread_id"`
	DocType   string    `json:"doc_type"`
	Subreddit string    `json:"subreddit"`
	Title     string    `json:"title"`
	URL       string    `json:"url"`
	Timestamp time.Time `json:"timestamp"`
	Text      string    `json:"text"`
}

func runSearch(cmd *cobra.Command, args []string) error {
	svc, err := getSearch()
	if err != nil {
		return err
	}

	filter := domain.SearchFilter{
		Subreddit: strings.TrimPrefix(searchSubreddit, "r/"),
		DocType:   domain.DocType(searchDocType),
	}
	results, err := svc.Search(cmd.Context(), args[0], searchK, filter)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if searchJSON {
		return outputSearchJSON(cmd, results)
	}
	outputSearchTable(cmd, results)
	return nil
}

func outputSearchJSON(cmd *cobra.Command, results []domain.ScoredChunk) error {
	hits := make([]searchHit, len(results))
	for i := range results {
		c := &results[i].Chunk
		hits[i] = searchHit{
			Score:     results[i].Score,
			ThreadID:  c.ThreadID,
			DocType:   string(c.DocType),
			Subreddit: c.Metadata.Subreddit,
			Title:     c.Metadata.Title,
			URL:       threadURL(c.Metadata.Permalink),
			Timestamp: c.Metadata.Timestamp,
			Text:      c.Text,
		}
	}
	data, err := json.MarshalIndent(hits, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func outputSearchTable(cmd *cobra.Command, results []domain.ScoredChunk) {
	if len(results) == 0 {
		cmd.Println("No results found.")
		return
	}

	cmd.Println("Results:")
	cmd.Println()
	for i := range results {
		c := &results[i].Chunk
		title := c.Metadata.Title
		if title == "" {
			title = c.ThreadID
		}

		cmd.Printf("  [%d] %s (%.3f)\n", i+1, title, results[i].Score)
		cmd.Printf("      r/%s · %s · %s\n", c.Metadata.Subreddit, c.DocType, threadURL(c.Metadata.Permalink))
		if snippet := snippet(c.Text); snippet != "" {
			cmd.Printf("      %s\n", snippet)
		}
		cmd.Println()
	}
}

func threadURL(permalink string) string {
	if permalink == "" {
		return ""
	}
	return "https://www.reddit.com" + permalink
}

// snippet flattens text to one line of at most snippetLen runes.
func snippet(text string) string {
	flat := strings.Join(strings.Fields(text), " ")
	runes := []rune(flat)
	if len(runes) <= snippetLen {
		return flat
	}
	return string(runes[:snippetLen]) + "…"
}
