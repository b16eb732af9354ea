package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/oliverbatey/forager/internal/core/domain"
	"github.com/oliverbatey/forager/internal/core/ports/driven"
	"github.com/oliverbatey/forager/internal/logger"
)

// Summarizer defaults.
const (
	// DefaultSummaryBudget bounds the thread text sent to the model, in characters
	// (roughly 6000 tokens).
	DefaultSummaryBudget = 24000

	threadSummaryMaxTokens     = 1000
	collectionSummaryMaxTokens = 300
	summaryTemperature         = 0.0
	summaryTopP                = 0.5

	// collectionEntryLimit trims each summary before the reduce step.
	collectionEntryLimit = 1500
)

// Summarizer produces thread summaries and collection digests through the LLM.
type Summarizer struct {
	llm     driven.LLMService
	prompts driven.PromptStore
	budget  int
	now     func() time.Time
}

// NewSummarizer creates a summarizer. prompts may be nil, in which case the
// built-in prompts are used.
func NewSummarizer(llm driven.LLMService, prompts driven.PromptStore) *Summarizer {
	return &Summarizer{
		llm:     llm,
		prompts: prompts,
		budget:  DefaultSummaryBudget,
		now:     time.Now,
	}
}

// SetBudget overrides the character budget for thread text.
func (s *Summarizer) SetBudget(chars int) {
	if chars > 0 {
		s.budget = chars
	}
}

// SummarizeThread summarises one thread. The model output is returned as-is,
// minus surrounding whitespace.
func (s *Summarizer) SummarizeThread(ctx context.Context, thread *domain.Thread) (*domain.ThreadSummary, error) {
	if thread == nil {
		return nil, fmt.Errorf("summarise: nil thread: %w", domain.ErrInvalidInput)
	}

	text := FitThread(thread, s.budget)
	logger.Debug("Summarising thread %s (%d chars, %d comments)", thread.ID, utf8.RuneCountInString(text), len(thread.Comments))

	out, err := s.llm.Generate(ctx, driven.LoadPrompt(s.prompts, driven.PromptThreadSummary), text, driven.GenerateOptions{
		MaxTokens:   threadSummaryMaxTokens,
		Temperature: summaryTemperature,
		TopP:        summaryTopP,
	})
	if err != nil {
		return nil, fmt.Errorf("summarise thread %s: %w", thread.ID, err)
	}
	out = strings.TrimSpace(out)
	if out == "" {
		return nil, fmt.Errorf("summarise thread %s: empty model output: %w", thread.ID, domain.ErrGeneration)
	}

	return &domain.ThreadSummary{
		ThreadID:    thread.ID,
		Text:        out,
		GeneratedAt: s.now(),
		Model:       s.llm.ModelName(),
	}, nil
}

// SummarizeCollection condenses thread summaries into one short paragraph.
func (s *Summarizer) SummarizeCollection(ctx context.Context, summaries []string) (string, error) {
	parts := make([]string, 0, len(summaries))
	for _, text := range summaries {
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		parts = append(parts, fmt.Sprintf("Thread Summary %d:\n%s", len(parts)+1, truncateRunes(text, collectionEntryLimit)))
	}
	if len(parts) == 0 {
		return "", fmt.Errorf("summarise collection: no summaries: %w", domain.ErrEmptyInput)
	}

	out, err := s.llm.Generate(ctx, driven.LoadPrompt(s.prompts, driven.PromptCollectionSummary), strings.Join(parts, "\n\n"), driven.GenerateOptions{
		MaxTokens:   collectionSummaryMaxTokens,
		Temperature: summaryTemperature,
		TopP:        summaryTopP,
	})
	if err != nil {
		return "", fmt.Errorf("summarise collection: %w", err)
	}
	out = strings.TrimSpace(out)
	if out == "" {
		return "", fmt.Errorf("summarise collection: empty model output: %w", domain.ErrGeneration)
	}
	return out, nil
}

// FitThread renders thread as text no longer than budget characters.
// Comments are dropped lowest value first: lower score, then deeper
// nesting, then older. Kept comments stay in thread order. If the
// submission alone exceeds the budget it is cut.
func FitThread(thread *domain.Thread, budget int) string {
	full := thread.Text()
	if budget <= 0 || utf8.RuneCountInString(full) <= budget {
		return full
	}

	sizes := make([]int, len(thread.Comments))
	total := utf8.RuneCountInString(thread.TextWith(nil))
	for i, c := range thread.Comments {
		sizes[i] = utf8.RuneCountInString(domain.FormatComment(c))
		total += sizes[i]
		if i > 0 {
			total++ // joining newline
		}
	}

	order := make([]int, len(thread.Comments))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		ca, cb := thread.Comments[order[a]], thread.Comments[order[b]]
		if ca.Score != cb.Score {
			return ca.Score < cb.Score
		}
		if ca.Depth != cb.Depth {
			return ca.Depth > cb.Depth
		}
		return ca.CreatedAt.Before(cb.CreatedAt)
	})

	dropped := make([]bool, len(thread.Comments))
	kept := len(thread.Comments)
	for _, i := range order {
		if total <= budget {
			break
		}
		dropped[i] = true
		total -= sizes[i]
		if kept > 1 {
			total--
		}
		kept--
	}

	comments := make([]domain.Comment, 0, kept)
	for i, c := range thread.Comments {
		if !dropped[i] {
			comments = append(comments, c)
		}
	}
	return truncateRunes(thread.TextWith(comments), budget)
}

// truncateRunes cuts s to at most n runes.
func truncateRunes(s string, n int) string {
	if n < 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n])
}
