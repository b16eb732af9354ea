package cli

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/oliverbatey/forager/internal/core/domain"
)

var (
	seedSubreddit string
	seedLimit     int
	seedJSON      bool
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Ingest a subreddit into the knowledge base",
	Long: `Fetches the newest threads of a subreddit, summarises each one and
stores the summary and the thread content as embedded chunks.

Re-seeding a thread replaces its chunks. A thread that fails is reported
and skipped; the command still exits 0 when only some threads fail.`,
	Args: cobra.NoArgs,
	RunE: runSeed,
}

func init() {
	seedCmd.Flags().StringVarP(&seedSubreddit, "subreddit", "s", "", "subreddit to seed (required)")
	seedCmd.Flags().IntVar(&seedLimit, "limit", 5, "number of threads to ingest")
	seedCmd.Flags().BoolVar(&seedJSON, "json", false, "output the report as JSON")
	_ = seedCmd.MarkFlagRequired("subreddit")
	rootCmd.AddCommand(seedCmd)
}

func runSeed(cmd *cobra.Command, _ []string) error {
	svc, err := getIngestion()
	if err != nil {
		return err
	}

	report, err := svc.Seed(cmd.Context(), seedSubreddit, seedLimit)
	if report != nil {
		if seedJSON {
			if jsonErr := outputSeedJSON(cmd, report); jsonErr != nil {
				return jsonErr
			}
		} else {
			printSeedReport(cmd, report)
		}
	}
	if err != nil {
		return err
	}

	if partial := report.Err(); partial != nil {
		cmd.PrintErrf("Warning: %v\n", partial)
	}
	return nil
}

func outputSeedJSON(cmd *cobra.Command, report *domain.IngestionReport) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func printSeedReport(cmd *cobra.Command, report *domain.IngestionReport) {
	cmd.Printf("Seeded r/%s: %d/%d threads, %d chunks",
		report.Subreddit, report.Succeeded, report.Attempted, report.ChunksWritten)
	if !report.FinishedAt.IsZero() {
		cmd.Printf(" in %s", report.Duration().Round(100*time.Millisecond))
	}
	cmd.Println()

	if len(report.Failures) == 0 {
		return
	}
	cmd.Println("Failures:")
	for _, f := range report.Failures {
		cmd.Printf("  - %s (%s): %s\n", f.ThreadID, f.Kind, f.Message)
	}
}
