package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/oliverbatey/forager/internal/adapters/driving/chat"
	"github.com/oliverbatey/forager/internal/adapters/driving/tui"
	"github.com/oliverbatey/forager/internal/logger"
)

// maxLineSize bounds one line of piped input.
const maxLineSize = 1 << 20

var (
	botSession string
	botPlain   bool
)

var botCmd = &cobra.Command{
	Use:     "bot",
	Aliases: []string{"chat"},
	Short:   "Chat with the research agent",
	Long: `Start a conversation with the agent. It answers from the knowledge base
and can look at Reddit or seed new subreddits on its own.

In a terminal this opens the interactive chat UI. When input is piped, or
with --plain, each input line is one message and replies are printed as
plain text.

Commands:
  /seed <subreddit> [limit]  ingest the newest threads of a subreddit
  /status                    show how much is in the knowledge base
  /clear                     start a new conversation
  /help                      list commands
  /quit                      leave`,
	Args: cobra.NoArgs,
	RunE: runBot,
}

func init() {
	botCmd.Flags().StringVar(&botSession, "session", "", "session ID (default: random)")
	botCmd.Flags().BoolVar(&botPlain, "plain", false, "line-oriented chat even in a terminal")
	rootCmd.AddCommand(botCmd)
}

func runBot(cmd *cobra.Command, _ []string) error {
	agent, err := getAgent()
	if err != nil {
		return err
	}
	seeder, err := getIngestion()
	if err != nil {
		logger.Debug("seeding unavailable in chat: %v", err)
	}
	search, err := getSearch()
	if err != nil {
		logger.Debug("status unavailable in chat: %v", err)
	}

	session := botSession
	if session == "" {
		session = uuid.NewString()
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reloads := watchPrompts(ctx)

	if !botPlain && isTerminal(cmd) {
		app, err := tui.NewApp(&tui.Ports{
			Agent:     agent,
			Ingestion: seeder,
			Search:    search,
			SessionID: session,
		})
		if err != nil {
			return err
		}
		return app.WithContext(ctx).Run(reloads)
	}

	if reloads != nil {
		go func() {
			for name := range reloads {
				logger.Info("reloaded %s prompt", name)
			}
		}()
	}
	return runREPL(ctx, cmd, chat.NewHandler(agent, seeder, search, session))
}

// runREPL handles one message per input line until EOF or /quit.
func runREPL(ctx context.Context, cmd *cobra.Command, handler *chat.Handler) error {
	scanner := bufio.NewScanner(cmd.InOrStdin())
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch strings.ToLower(line) {
		case "":
			continue
		case "/quit", "/exit":
			return nil
		}

		out := handler.Handle(ctx, line)
		if out.Text == "" {
			continue
		}

		w := cmd.OutOrStdout()
		if out.Kind == chat.KindError {
			w = cmd.ErrOrStderr()
		}
		for _, part := range chat.Split(out.Text, chat.MaxMessageLen) {
			fmt.Fprintln(w, part)
		}

		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading input: %w", err)
	}
	return nil
}

// isTerminal reports whether the command reads from an interactive terminal.
func isTerminal(cmd *cobra.Command) bool {
	f, ok := cmd.InOrStdin().(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// watchPrompts reloads prompt files as they change while a long-running
// command is up. It returns nil when there is nothing to watch.
func watchPrompts(ctx context.Context) <-chan string {
	if application == nil {
		return nil
	}
	prompts, err := application.Prompts()
	if err != nil {
		logger.Warn("prompts: %v", err)
		return nil
	}
	changes, err := prompts.Watch(ctx)
	if err != nil {
		logger.Warn("not watching prompts: %v", err)
		return nil
	}
	logger.Debug("watching %s for prompt changes", prompts.Dir())
	return changes
}
