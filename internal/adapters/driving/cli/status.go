package cli

import (
	"github.com/spf13/cobra"
)

const recentSeeds = 5

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show knowledge base status",
	Long:  `Shows the store backend, where it lives, how many chunks it holds and the most recent seed runs.`,
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, _ []string) error {
	c, err := loadConfig()
	if err != nil {
		return err
	}
	store, err := getStore()
	if err != nil {
		return err
	}

	count, err := store.Count(cmd.Context())
	if err != nil {
		return err
	}

	cmd.Println("Knowledge Base")
	cmd.Println("==============")
	cmd.Printf("  Backend:  %s\n", c.Store.Backend)
	cmd.Printf("  Data dir: %s\n", c.Store.DataDir)
	cmd.Printf("  Chunks:   %d\n", count)
	cmd.Println()

	history, err := getSeedHistory()
	if err != nil {
		return err
	}
	reports, err := history.RecentSeeds(cmd.Context(), recentSeeds)
	if err != nil {
		return err
	}
	if len(reports) == 0 {
		cmd.Println("No seed runs recorded.")
		return nil
	}

	cmd.Println("Recent seeds:")
	for i := range reports {
		r := &reports[i]
		cmd.Printf("  %s  r/%s  %d/%d threads, %d chunks\n",
			r.FinishedAt.Local().Format("2006-01-02 15:04"), r.Subreddit, r.Succeeded, r.Attempted, r.ChunksWritten)
	}
	return nil
}
