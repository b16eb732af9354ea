package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oliverbatey/forager/internal/core/domain"
)

type chatAgent struct {
	reply    *domain.AgentReply
	err      error
	messages []string
	resets   []string
}

func (a *chatAgent) Chat(_ context.Context, _ string, message string) (*domain.AgentReply, error) {
	a.messages = append(a.messages, message)
	return a.reply, a.err
}

func (a *chatAgent) Reset(sessionID string) { a.resets = append(a.resets, sessionID) }

func (a *chatAgent) SessionCount() int { return 1 }

type chatSeeder struct {
	report    *domain.IngestionReport
	err       error
	subreddit string
	limit     int
}

func (s *chatSeeder) Seed(_ context.Context, subreddit string, limit int) (*domain.IngestionReport, error) {
	s.subreddit, s.limit = subreddit, limit
	return s.report, s.err
}

type chatSearch struct {
	count int
	err   error
}

func (s *chatSearch) Search(context.Context, string, int, domain.SearchFilter) ([]domain.ScoredChunk, error) {
	return nil, nil
}

func (s *chatSearch) Count(context.Context) (int, error) { return s.count, s.err }

func TestHandler_Ask(t *testing.T) {
	ctx := context.Background()

	t.Run("forwards to the agent", func(t *testing.T) {
		agent := &chatAgent{reply: &domain.AgentReply{Text: "Hello!"}}
		h := NewHandler(agent, nil, nil, "s1")

		out := h.Handle(ctx, "  hi there ")

		assert.Equal(t, Output{Kind: KindReply, Text: "Hello!"}, out)
		assert.Equal(t, []string{"hi there"}, agent.messages)
	})

	t.Run("iteration limit shows the fallback", func(t *testing.T) {
		agent := &chatAgent{
			reply: &domain.AgentReply{Text: "Sorry, I couldn't finish", LimitExceeded: true},
			err:   fmt.Errorf("agent: %w", domain.ErrIterationLimitExceeded),
		}
		h := NewHandler(agent, nil, nil, "s1")

		out := h.Handle(ctx, "loop")

		assert.Equal(t, KindReply, out.Kind)
		assert.Equal(t, "Sorry, I couldn't finish", out.Text)
	})

	t.Run("errors carry the kind", func(t *testing.T) {
		agent := &chatAgent{err: fmt.Errorf("reasoning: %w", domain.ErrRateLimited)}
		h := NewHandler(agent, nil, nil, "s1")

		out := h.Handle(ctx, "hi")

		assert.Equal(t, KindError, out.Kind)
		assert.True(t, strings.HasPrefix(out.Text, "Error [RateLimited]:"))
	})

	t.Run("blank line does nothing", func(t *testing.T) {
		agent := &chatAgent{}
		h := NewHandler(agent, nil, nil, "s1")

		out := h.Handle(ctx, "   ")

		assert.Empty(t, out.Text)
		assert.Empty(t, agent.messages)
	})
}

func TestHandler_Commands(t *testing.T) {
	ctx := context.Background()

	t.Run("help", func(t *testing.T) {
		h := NewHandler(&chatAgent{}, nil, nil, "s1")
		out := h.Handle(ctx, "/help")
		assert.Equal(t, KindInfo, out.Kind)
		assert.Contains(t, out.Text, "/seed <subreddit> [limit]")
	})

	t.Run("clear resets the session", func(t *testing.T) {
		agent := &chatAgent{}
		h := NewHandler(agent, nil, nil, "s1")

		out := h.Handle(ctx, "/clear")

		assert.Equal(t, "Conversation cleared.", out.Text)
		assert.Equal(t, []string{"s1"}, agent.resets)
	})

	t.Run("status", func(t *testing.T) {
		h := NewHandler(&chatAgent{}, nil, &chatSearch{count: 12}, "s1")
		out := h.Handle(ctx, "/status")
		assert.Equal(t, KindInfo, out.Kind)
		assert.Contains(t, out.Text, "12 chunks")
	})

	t.Run("status without search", func(t *testing.T) {
		h := NewHandler(&chatAgent{}, nil, nil, "s1")
		assert.Equal(t, KindError, h.Handle(ctx, "/status").Kind)
	})

	t.Run("status store failure", func(t *testing.T) {
		h := NewHandler(&chatAgent{}, nil, &chatSearch{err: domain.ErrStoreUnavailable}, "s1")
		out := h.Handle(ctx, "/status")
		assert.Contains(t, out.Text, "StoreUnavailable")
	})

	t.Run("unknown command", func(t *testing.T) {
		agent := &chatAgent{}
		h := NewHandler(agent, nil, nil, "s1")

		out := h.Handle(ctx, "/frobnicate")

		assert.Equal(t, KindError, out.Kind)
		assert.Contains(t, out.Text, "/frobnicate")
		assert.Empty(t, agent.messages)
	})
}

func TestHandler_Seed(t *testing.T) {
	ctx := context.Background()
	report := &domain.IngestionReport{Subreddit: "golang", Attempted: 3, Succeeded: 3, ChunksWritten: 9}

	t.Run("default limit", func(t *testing.T) {
		seeder := &chatSeeder{report: report}
		h := NewHandler(&chatAgent{}, seeder, nil, "s1")

		out := h.Handle(ctx, "/seed golang")

		assert.Equal(t, KindInfo, out.Kind)
		assert.Equal(t, "Seeded r/golang: 3/3 threads, 9 chunks", out.Text)
		assert.Equal(t, "golang", seeder.subreddit)
		assert.Equal(t, DefaultSeedLimit, seeder.limit)
	})

	t.Run("explicit limit", func(t *testing.T) {
		seeder := &chatSeeder{report: report}
		h := NewHandler(&chatAgent{}, seeder, nil, "s1")

		h.Handle(ctx, "/seed golang 2")

		assert.Equal(t, 2, seeder.limit)
	})

	t.Run("usage errors", func(t *testing.T) {
		seeder := &chatSeeder{report: report}
		h := NewHandler(&chatAgent{}, seeder, nil, "s1")

		for _, line := range []string{"/seed", "/seed golang x", "/seed golang 0", "/seed a b c"} {
			out := h.Handle(ctx, line)
			assert.Equal(t, KindError, out.Kind, line)
		}
		assert.Empty(t, seeder.subreddit)
	})

	t.Run("aborted run shows partial report", func(t *testing.T) {
		seeder := &chatSeeder{
			report: &domain.IngestionReport{Subreddit: "golang", Attempted: 3, Succeeded: 1},
			err:    fmt.Errorf("seed r/golang aborted: %w", domain.ErrStoreUnavailable),
		}
		h := NewHandler(&chatAgent{}, seeder, nil, "s1")

		out := h.Handle(ctx, "/seed golang")

		assert.Equal(t, KindError, out.Kind)
		assert.Contains(t, out.Text, "1/3 threads")
		assert.Contains(t, out.Text, "StoreUnavailable")
	})

	t.Run("listing failure", func(t *testing.T) {
		seeder := &chatSeeder{err: errors.New("boom")}
		h := NewHandler(&chatAgent{}, seeder, nil, "s1")

		out := h.Handle(ctx, "/seed golang")

		assert.Equal(t, "Error [InternalError]: boom", out.Text)
	})

	t.Run("unavailable", func(t *testing.T) {
		h := NewHandler(&chatAgent{}, nil, nil, "s1")
		assert.Equal(t, KindError, h.Handle(ctx, "/seed golang").Kind)
	})
}

func TestSplit(t *testing.T) {
	t.Run("short text is one part", func(t *testing.T) {
		assert.Equal(t, []string{"hello"}, Split("hello", 10))
	})

	t.Run("empty text is one empty part", func(t *testing.T) {
		assert.Equal(t, []string{""}, Split("", 10))
	})

	t.Run("prefers line breaks", func(t *testing.T) {
		parts := Split("first line\nsecond line", 15)
		assert.Equal(t, []string{"first line", "second line"}, parts)
	})

	t.Run("falls back to spaces", func(t *testing.T) {
		parts := Split("aaaa bbbb cccc", 10)
		assert.Equal(t, []string{"aaaa bbbb", "cccc"}, parts)
	})

	t.Run("hard cut without separators", func(t *testing.T) {
		parts := Split(strings.Repeat("x", 25), 10)
		require.Len(t, parts, 3)
		assert.Equal(t, strings.Repeat("x", 10), parts[0])
		assert.Equal(t, strings.Repeat("x", 5), parts[2])
	})

	t.Run("every part respects the limit", func(t *testing.T) {
		text := strings.Repeat("word ", 2000)
		for _, p := range Split(text, MaxMessageLen) {
			assert.LessOrEqual(t, len([]rune(p)), MaxMessageLen)
		}
	})

	t.Run("counts runes", func(t *testing.T) {
		parts := Split(strings.Repeat("é", 12), 10)
		require.Len(t, parts, 2)
		assert.Equal(t, strings.Repeat("é", 10), parts[0])
	})

	t.Run("non-positive limit uses the default", func(t *testing.T) {
		assert.Len(t, Split(strings.Repeat("x", MaxMessageLen+1), 0), 2)
	})
}
