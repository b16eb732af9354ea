// Package chat handles one line of chat input for the terminal front-ends.
// Lines starting with a slash are commands; everything else goes to the agent.
package chat

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/oliverbatey/forager/internal/core/domain"
	"github.com/oliverbatey/forager/internal/core/ports/driving"
	"github.com/oliverbatey/forager/internal/core/services"
)

// MaxMessageLen is the longest message line-oriented front-ends print in one piece.
const MaxMessageLen = 4096

// DefaultSeedLimit is the /seed thread count when none is given.
const DefaultSeedLimit = services.DefaultSeedLimit

// HelpText lists the chat commands.
const HelpText = `Ask anything about the subreddits in the knowledge base, or ask me to
look at Reddit directly.

Commands:
  /seed <subreddit> [limit]  ingest the newest threads of a subreddit
  /status                    show how much is in the knowledge base
  /clear                     start a new conversation
  /help                      show this message`

// Kind classifies an Output for display.
type Kind int

const (
	// KindReply is an answer from the agent.
	KindReply Kind = iota
	// KindInfo is command output.
	KindInfo
	// KindError is a failure the user should see.
	KindError
)

// Output is the result of one handled line.
type Output struct {
	Kind Kind
	Text string
}

// Handler routes chat lines for a single session.
type Handler struct {
	agent   driving.AgentService
	seeder  driving.IngestionService
	search  driving.SearchService
	session string
}

// NewHandler creates a handler bound to sessionID. seeder and search may be
// nil, in which case /seed and /status report that they are unavailable.
func NewHandler(agent driving.AgentService, seeder driving.IngestionService, search driving.SearchService, sessionID string) *Handler {
	return &Handler{agent: agent, seeder: seeder, search: search, session: sessionID}
}

// SessionID returns the agent session this handler talks to.
func (h *Handler) SessionID() string {
	return h.session
}

// Handle processes one line. Blank lines yield an empty Output.
func (h *Handler) Handle(ctx context.Context, line string) Output {
	line = strings.TrimSpace(line)
	if line == "" {
		return Output{Kind: KindInfo}
	}
	if !strings.HasPrefix(line, "/") {
		return h.ask(ctx, line)
	}

	fields := strings.Fields(line)
	switch strings.ToLower(fields[0]) {
	case "/help", "/start":
		return Output{Kind: KindInfo, Text: HelpText}
	case "/clear":
		h.agent.Reset(h.session)
		return Output{Kind: KindInfo, Text: "Conversation cleared."}
	case "/status":
		return h.status(ctx)
	case "/seed":
		return h.seed(ctx, fields[1:])
	default:
		return Output{Kind: KindError, Text: fmt.Sprintf("Unknown command %s. Type /help for the list.", fields[0])}
	}
}

func (h *Handler) ask(ctx context.Context, message string) Output {
	reply, err := h.agent.Chat(ctx, h.session, message)
	if err != nil && !errors.Is(err, domain.ErrIterationLimitExceeded) {
		return errorOutput(err)
	}
	if reply == nil || reply.Text == "" {
		return Output{Kind: KindError, Text: "No reply."}
	}
	return Output{Kind: KindReply, Text: reply.Text}
}

func (h *Handler) status(ctx context.Context) Output {
	if h.search == nil {
		return Output{Kind: KindError, Text: "Status is not available."}
	}
	n, err := h.search.Count(ctx)
	if err != nil {
		return errorOutput(err)
	}
	return Output{Kind: KindInfo, Text: fmt.Sprintf("Knowledge base: %d chunks. Active sessions: %d.", n, h.agent.SessionCount())}
}

func (h *Handler) seed(ctx context.Context, args []string) Output {
	if h.seeder == nil {
		return Output{Kind: KindError, Text: "Seeding is not available."}
	}
	if len(args) == 0 || len(args) > 2 {
		return Output{Kind: KindError, Text: "Usage: /seed <subreddit> [limit]"}
	}

	limit := DefaultSeedLimit
	if len(args) == 2 {
		n, err := strconv.Atoi(args[1])
		if err != nil || n < 1 {
			return Output{Kind: KindError, Text: fmt.Sprintf("Limit must be a positive number, got %q.", args[1])}
		}
		limit = n
	}

	report, err := h.seeder.Seed(ctx, args[0], limit)
	if err != nil {
		if report != nil {
			return Output{Kind: KindError, Text: services.FormatSeedReport(report) + "\n" + errorOutput(err).Text}
		}
		return errorOutput(err)
	}
	return Output{Kind: KindInfo, Text: services.FormatSeedReport(report)}
}

func errorOutput(err error) Output {
	return Output{Kind: KindError, Text: fmt.Sprintf("Error [%s]: %v", domain.ErrorKind(err), err)}
}

// Split breaks text into pieces of at most limit runes, preferring to cut at
// line breaks, then spaces.
func Split(text string, limit int) []string {
	if limit <= 0 {
		limit = MaxMessageLen
	}
	runes := []rune(text)
	var parts []string
	for len(runes) > limit {
		cut := lastIndex(runes[:limit], '\n')
		if cut <= 0 {
			cut = lastIndex(runes[:limit], ' ')
		}
		if cut <= 0 {
			cut = limit
		}
		parts = append(parts, strings.TrimRight(string(runes[:cut]), " \n"))
		runes = runes[cut:]
		for len(runes) > 0 && (runes[0] == '\n' || runes[0] == ' ') {
			runes = runes[1:]
		}
	}
	if len(runes) > 0 || len(parts) == 0 {
		parts = append(parts, string(runes))
	}
	return parts
}

func lastIndex(runes []rune, r rune) int {
	for i := len(runes) - 1; i >= 0; i-- {
		if runes[i] == r {
			return i
		}
	}
	return -1
}
