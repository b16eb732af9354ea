package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oliverbatey/forager/internal/adapters/driving/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "MCP server commands",
	Long:  `Commands for the Model Context Protocol (MCP) server integration.`,
}

var mcpServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server",
	Long: `Start the Model Context Protocol server, exposing the agent's four tools
(search_knowledge_base, fetch_reddit_thread, fetch_subreddit_posts and
seed_subreddit) to MCP-compatible assistants.

By default, the server communicates over stdio using JSON-RPC.
Use --port to serve the streamable HTTP transport instead.

Examples:
  # Stdio mode (default)
  forager mcp serve

  # HTTP mode (for MCP Inspector, remote access)
  forager mcp serve --port 8080

Client configuration:
  {
    "mcpServers": {
      "forager": {
        "command": "/path/to/forager",
        "args": ["mcp", "serve"]
      }
    }
  }`,
	Args: cobra.NoArgs,
	RunE: runMCPServe,
}

func init() {
	mcpServeCmd.Flags().IntP("port", "p", 0, "HTTP port (0 = use stdio)")
	mcpCmd.AddCommand(mcpServeCmd)
	rootCmd.AddCommand(mcpCmd)
}

func runMCPServe(cmd *cobra.Command, _ []string) error {
	port, err := cmd.Flags().GetInt("port")
	if err != nil {
		return fmt.Errorf("getting port flag: %w", err)
	}

	dispatcher, err := getDispatcher()
	if err != nil {
		return err
	}
	search, err := getSearch()
	if err != nil {
		return err
	}

	server, err := mcp.NewServer(&mcp.Ports{
		Dispatcher: dispatcher,
		Search:     search,
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if port > 0 {
		addr := fmt.Sprintf(":%d", port)
		fmt.Fprintf(cmd.ErrOrStderr(), "MCP server listening on http://localhost%s\n", addr)
		return server.RunHTTP(ctx, addr)
	}

	return server.Run(ctx)
}
