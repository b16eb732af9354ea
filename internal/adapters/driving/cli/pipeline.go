package cli

import (
	"github.com/spf13/cobra"
)

var (
	extractSubreddit string
	extractLimit     int
	extractOut       string

	summariseIn  string
	summariseOut string

	publishIn  string
	publishOut string
)

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Archive new threads of a subreddit as JSON",
	Long: `Fetches the newest threads of a subreddit with their comment trees and
writes one <id>.json file per thread to the output directory.`,
	Args: cobra.NoArgs,
	RunE: runExtract,
}

var summariseCmd = &cobra.Command{
	Use:     "summarise",
	Aliases: []string{"summarize"},
	Short:   "Summarise archived threads",
	Long: `Summarises every thread archived by extract, then condenses the
summaries into one digest. Writes thread_summaries.txt, final_summary.txt
and collection.json to the output directory.`,
	Args: cobra.NoArgs,
	RunE: runSummarise,
}

var publishCmd = &cobra.Command{
	Use:   "publish",
	Short: "Render a digest as HTML and Atom",
	Long: `Reads the output of summarise and writes index.html and feed.atom to
the output directory. Summaries are rendered from Markdown.`,
	Args: cobra.NoArgs,
	RunE: runPublish,
}

func init() {
	extractCmd.Flags().StringVarP(&extractSubreddit, "subreddit", "s", "", "subreddit to extract (required)")
	extractCmd.Flags().IntVar(&extractLimit, "limit", 5, "number of threads to fetch")
	extractCmd.Flags().StringVarP(&extractOut, "output", "o", "threads", "output directory")
	_ = extractCmd.MarkFlagRequired("subreddit")

	summariseCmd.Flags().StringVarP(&summariseIn, "input", "i", "threads", "directory of archived threads")
	summariseCmd.Flags().StringVarP(&summariseOut, "output", "o", "summaries", "output directory")

	publishCmd.Flags().StringVarP(&publishIn, "input", "i", "summaries", "directory written by summarise")
	publishCmd.Flags().StringVarP(&publishOut, "output", "o", "site", "output directory")

	rootCmd.AddCommand(extractCmd)
	rootCmd.AddCommand(summariseCmd)
	rootCmd.AddCommand(publishCmd)
}

func runExtract(cmd *cobra.Command, _ []string) error {
	p, err := getPipeline(true, false)
	if err != nil {
		return err
	}

	n, err := p.Extract(cmd.Context(), extractSubreddit, extractLimit, extractOut)
	if err != nil {
		if n > 0 {
			cmd.Printf("Archived %d threads before failing.\n", n)
		}
		return err
	}
	cmd.Printf("Archived %d threads to %s\n", n, extractOut)
	return nil
}

func runSummarise(cmd *cobra.Command, _ []string) error {
	p, err := getPipeline(false, true)
	if err != nil {
		return err
	}

	digest, err := p.Summarise(cmd.Context(), summariseIn, summariseOut)
	if err != nil {
		return err
	}
	cmd.Printf("Summarised %d threads to %s\n", len(digest.Summaries), summariseOut)
	return nil
}

func runPublish(cmd *cobra.Command, _ []string) error {
	p, err := getPipeline(false, false)
	if err != nil {
		return err
	}

	files, err := p.Publish(cmd.Context(), publishIn, publishOut)
	if err != nil {
		return err
	}
	for _, f := range files {
		cmd.Printf("Wrote %s\n", f)
	}
	return nil
}
