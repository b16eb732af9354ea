package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/oliverbatey/forager/internal/core/domain"
	"github.com/oliverbatey/forager/internal/core/ports/driven"
	"github.com/oliverbatey/forager/internal/core/ports/driving"
	"github.com/oliverbatey/forager/internal/logger"
)

// Agent defaults.
const (
	DefaultMaxIterations = 6
	DefaultHistoryLimit  = 50

	// WrapUpPrompt asks the model to answer without further tool calls.
	WrapUpPrompt = "Please provide your final answer based on the information gathered so far."

	// FallbackAnswer is returned when the wrap-up call yields nothing.
	FallbackAnswer = "Sorry, I couldn't finish working on that within the allowed number of steps. " +
		"Please try rephrasing or narrowing your question."

	previewLen = 200
)

// Ensure Agent implements the interface.
var _ driving.AgentService = (*Agent)(nil)

// AgentConfig bounds the agent loop.
type AgentConfig struct {
	// MaxIterations is the number of reasoning calls allowed per message.
	MaxIterations int

	// HistoryLimit is the number of turns kept per session.
	HistoryLimit int
}

// Agent runs the tool-calling loop over per-session conversations.
type Agent struct {
	llm        driven.LLMService
	dispatcher driving.ToolDispatcher
	prompts    driven.PromptStore
	sessions   *SessionTable
	cfg        AgentConfig
	metrics    driven.Metrics
	newID      func() string
}

// NewAgent creates an agent. Zero config fields take their defaults and
// prompts may be nil.
func NewAgent(llm driven.LLMService, dispatcher driving.ToolDispatcher, prompts driven.PromptStore, cfg AgentConfig) *Agent {
	if cfg.MaxIterations <= 0 {
		cfg.MaxIterations = DefaultMaxIterations
	}
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = DefaultHistoryLimit
	}
	return &Agent{
		llm:        llm,
		dispatcher: dispatcher,
		prompts:    prompts,
		sessions:   NewSessionTable(),
		cfg:        cfg,
		newID:      uuid.NewString,
	}
}

// SetMetrics sets the metrics sink.
func (a *Agent) SetMetrics(m driven.Metrics) {
	a.metrics = m
}

// NewSessionID returns a fresh random session ID.
func (a *Agent) NewSessionID() string {
	return a.newID()
}

// Chat processes one user message. Messages on the same session are
// handled one at a time.
func (a *Agent) Chat(ctx context.Context, sessionID, message string) (*domain.AgentReply, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, fmt.Errorf("chat: %w", domain.ErrEmptyInput)
	}
	if sessionID == "" {
		return nil, fmt.Errorf("chat: empty session id: %w", domain.ErrInvalidInput)
	}

	s, created := a.sessions.getOrCreate(sessionID)
	s.mu.Lock()
	defer s.mu.Unlock()

	log := logger.With("session", sessionID)
	if created || len(s.conv.Turns) == 0 {
		s.conv.Append(domain.Turn{Role: domain.RoleSystem, Content: driven.LoadPrompt(a.prompts, driven.PromptAgentSystem)})
	}
	log.Info("user: %s", logger.Preview(message, previewLen))
	s.conv.Append(domain.Turn{Role: domain.RoleUser, Content: message})

	reply, err := a.run(ctx, &s.conv, log)
	s.conv.Trim(a.cfg.HistoryLimit)

	if a.metrics != nil {
		outcome := "ok"
		if err != nil {
			outcome = domain.ErrorKind(err)
		}
		a.metrics.AgentMessage(outcome, reply.Iterations)
	}
	return reply, err
}

// run drives Reasoning and AwaitingToolResults until a final answer or the
// iteration bound. The returned reply is never nil.
func (a *Agent) run(ctx context.Context, conv *domain.Conversation, log logger.Scoped) (*domain.AgentReply, error) {
	reply := &domain.AgentReply{}
	specs := a.dispatcher.Specs()

	for iteration := 1; iteration <= a.cfg.MaxIterations; iteration++ {
		if err := ctx.Err(); err != nil {
			return reply, err
		}
		reply.Iterations = iteration
		log.Debug("%s (iteration %d)", domain.StateReasoning, iteration)

		out, err := a.llm.Chat(ctx, conv.Turns, specs)
		if err != nil {
			return reply, fmt.Errorf("reasoning (iteration %d): %w", iteration, err)
		}

		var calls []domain.ToolCall
		var text string
		switch r := out.(type) {
		case domain.FinalAnswer:
			text = r.Text
		case domain.ToolCalls:
			text, calls = r.Text, r.Calls
		default:
			return reply, fmt.Errorf("reasoning: unexpected reply %T: %w", out, domain.ErrGeneration)
		}

		if len(calls) == 0 {
			if strings.TrimSpace(text) == "" {
				return reply, fmt.Errorf("reasoning (iteration %d): empty answer: %w", iteration, domain.ErrGeneration)
			}
			conv.Append(domain.Turn{Role: domain.RoleAssistant, Content: text})
			reply.Text = text
			log.Info("%s after %d iteration(s): %s", domain.StateTerminal, iteration, logger.Preview(text, previewLen))
			return reply, nil
		}

		calls = a.assignCallIDs(calls)
		conv.Append(domain.Turn{Role: domain.RoleAssistant, Content: text, ToolCalls: calls})
		log.Debug("%s: %d call(s)", domain.StateAwaitingToolResults, len(calls))

		for _, res := range a.dispatchAll(ctx, calls, log) {
			content := res.Content
			if res.Error != nil {
				content = ToolErrorJSON(res.Error)
			}
			conv.Append(domain.Turn{Role: domain.RoleTool, ToolCallID: res.CallID, Content: content})
		}
		reply.ToolCalls = append(reply.ToolCalls, calls...)
	}

	reply.Text = a.wrapUp(ctx, conv.Turns, log)
	reply.LimitExceeded = true
	conv.Append(domain.Turn{Role: domain.RoleAssistant, Content: reply.Text})
	log.Warn("stopped after %d iterations", a.cfg.MaxIterations)
	return reply, fmt.Errorf("agent stopped after %d iterations: %w", a.cfg.MaxIterations, domain.ErrIterationLimitExceeded)
}

// wrapUp makes one tool-free call for a final answer, falling back to a
// fixed message. The wrap-up request is not kept in the history.
func (a *Agent) wrapUp(ctx context.Context, history []domain.Turn, log logger.Scoped) string {
	turns := make([]domain.Turn, len(history), len(history)+1)
	copy(turns, history)
	turns = append(turns, domain.Turn{Role: domain.RoleUser, Content: WrapUpPrompt})

	out, err := a.llm.Chat(ctx, turns, nil)
	if err != nil {
		log.Warn("wrap-up failed: %v", err)
		return FallbackAnswer
	}

	var text string
	switch r := out.(type) {
	case domain.FinalAnswer:
		text = r.Text
	case domain.ToolCalls:
		text = r.Text
	}
	if strings.TrimSpace(text) == "" {
		return FallbackAnswer
	}
	return text
}

// assignCallIDs gives every call a unique ID, replacing blanks and repeats.
func (a *Agent) assignCallIDs(calls []domain.ToolCall) []domain.ToolCall {
	out := make([]domain.ToolCall, len(calls))
	seen := make(map[string]struct{}, len(calls))
	for i, call := range calls {
		if _, dup := seen[call.ID]; call.ID == "" || dup {
			call.ID = "call_" + a.newID()
		}
		seen[call.ID] = struct{}{}
		out[i] = call
	}
	return out
}

// dispatchAll runs calls concurrently and returns results in call order.
func (a *Agent) dispatchAll(ctx context.Context, calls []domain.ToolCall, log logger.Scoped) []domain.ToolResult {
	results := make([]domain.ToolResult, len(calls))
	var g errgroup.Group
	for i, call := range calls {
		g.Go(func() error {
			log.Info("-> %s(%v)", call.Name, call.Arguments)
			res := a.dispatcher.Dispatch(ctx, call)
			if res.Error != nil {
				log.Info("<- %s failed: %s", call.Name, res.Error.Kind)
			} else {
				log.Info("<- %s returned %d chars: %s", call.Name, len(res.Content), logger.Preview(res.Content, previewLen))
			}
			results[i] = res
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// Reset discards the session's conversation.
func (a *Agent) Reset(sessionID string) {
	a.sessions.Delete(sessionID)
}

// SessionCount returns the number of live sessions.
func (a *Agent) SessionCount() int {
	return a.sessions.Len()
}

// History returns a copy of the session's turns.
func (a *Agent) History(sessionID string) []domain.Turn {
	s, ok := a.sessions.get(sessionID)
	if !ok {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Turn(nil), s.conv.Turns...)
}
