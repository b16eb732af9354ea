// Package openai provides an LLM service adapter using the OpenAI chat completions API.
//
// Any OpenAI-compatible server works by changing BaseURL; Forager reaches
// Ollama this way.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/oliverbatey/forager/internal/core/domain"
	"github.com/oliverbatey/forager/internal/core/ports/driven"
	"github.com/oliverbatey/forager/internal/logger"
)

// Ensure LLMService implements the interface.
var _ driven.LLMService = (*LLMService)(nil)

// Default configuration values.
const (
	DefaultBaseURL    = "https://api.openai.com/v1"
	DefaultLLMModel   = "gpt-4o-mini"
	DefaultLLMTimeout = 120 * time.Second
)

// LLMConfig holds configuration for the OpenAI LLM service.
type LLMConfig struct {
	// APIKey is the OpenAI API key. Optional for local compatible servers.
	APIKey string

	// BaseURL is the API base URL (default: https://api.openai.com/v1).
	BaseURL string

	// Model is the LLM model to use (default: gpt-4o-mini).
	Model string

	// Timeout is the request timeout (default: 120s).
	Timeout time.Duration

	// RequireKey rejects an empty APIKey. Set for api.openai.com.
	RequireKey bool
}

// LLMService provides LLM operations using the OpenAI API.
type LLMService struct {
	client  *http.Client
	baseURL string
	apiKey  string
	model   string
}

// chatCompletionRequest is the OpenAI /chat/completions request format.
type chatCompletionRequest struct {
	Model       string              `json:"model"`
	Messages    []chatCompletionMsg `json:"messages"`
	Tools       []toolDefinition    `json:"tools,omitempty"`
	MaxTokens   int                 `json:"max_tokens,omitempty"`
	Temperature *float64            `json:"temperature,omitempty"`
	TopP        float64             `json:"top_p,omitempty"`
}

// chatCompletionMsg is the OpenAI chat message format.
type chatCompletionMsg struct {
	Role       string         `json:"role"`
	Content    *string        `json:"content"`
	ToolCalls  []toolCallWire `json:"tool_calls,omitempty"`
	ToolCallID string         `json:"tool_call_id,omitempty"`
}

// toolCallWire is a function call as it appears in requests and responses.
type toolCallWire struct {
	ID       string `json:"id"`
	Type     string `json:"type"`
	Function struct {
		Name      string `json:"name"`
		Arguments string `json:"arguments"`
	} `json:"function"`
}

// toolDefinition advertises one function to the model.
type toolDefinition struct {
	Type     string `json:"type"`
	Function struct {
		Name        string         `json:"name"`
		Description string         `json:"description"`
		Parameters  map[string]any `json:"parameters"`
	} `json:"function"`
}

// chatCompletionResponse is the OpenAI /chat/completions response format.
type chatCompletionResponse struct {
	Choices []struct {
		Message struct {
			Content   *string        `json:"content"`
			ToolCalls []toolCallWire `json:"tool_calls"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// NewLLMService creates a new OpenAI LLM service.
func NewLLMService(cfg LLMConfig) (*LLMService, error) {
	if cfg.RequireKey && cfg.APIKey == "" {
		return nil, fmt.Errorf("openai: API key is required: %w", domain.ErrConfig)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultLLMModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultLLMTimeout
	}

	return &LLMService{
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
	}, nil
}

// Generate produces a completion for prompt under the given system instruction.
func (s *LLMService) Generate(ctx context.Context, system, prompt string, opts driven.GenerateOptions) (string, error) {
	var messages []chatCompletionMsg
	if system != "" {
		messages = append(messages, textMsg("system", system))
	}
	messages = append(messages, textMsg("user", prompt))

	reqBody := chatCompletionRequest{
		Model:       s.model,
		Messages:    messages,
		MaxTokens:   opts.MaxTokens,
		Temperature: &opts.Temperature,
		TopP:        opts.TopP,
	}

	resp, err := s.chatCompletion(ctx, reqBody)
	if err != nil {
		return "", err
	}
	msg := resp.Choices[0].Message
	if msg.Content == nil {
		return "", nil
	}
	return *msg.Content, nil
}

// Chat sends the conversation and declared tools, returning the model's decision.
func (s *LLMService) Chat(ctx context.Context, turns []domain.Turn, tools []domain.ToolSpec) (domain.Reply, error) {
	reqBody := chatCompletionRequest{
		Model:    s.model,
		Messages: toWireMessages(turns),
	}
	for _, spec := range tools {
		reqBody.Tools = append(reqBody.Tools, toToolDefinition(spec))
	}

	resp, err := s.chatCompletion(ctx, reqBody)
	if err != nil {
		return nil, err
	}

	msg := resp.Choices[0].Message
	var text string
	if msg.Content != nil {
		text = *msg.Content
	}
	if len(msg.ToolCalls) == 0 {
		return domain.FinalAnswer{Text: text}, nil
	}

	calls := make([]domain.ToolCall, 0, len(msg.ToolCalls))
	for _, tc := range msg.ToolCalls {
		args, err := decodeArguments(tc.Function.Name, tc.Function.Arguments)
		calls = append(calls, domain.ToolCall{
			ID:         tc.ID,
			Name:       domain.ToolName(tc.Function.Name),
			Arguments:  args,
			ParseError: err,
		})
	}
	return domain.ToolCalls{Text: text, Calls: calls}, nil
}

// chatCompletion posts the request and maps failures onto the domain taxonomy.
func (s *LLMService) chatCompletion(ctx context.Context, reqBody chatCompletionRequest) (*chatCompletionResponse, error) {
	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		s.baseURL+"/chat/completions",
		bytes.NewReader(jsonBody),
	)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
	}

	start := time.Now()
	resp, err := s.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("openai: send request: %w: %w", domain.ErrUpstream, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("openai: read response: %w: %w", domain.ErrUpstream, err)
	}

	if err := statusError(resp.StatusCode, body); err != nil {
		return nil, err
	}

	var chatResp chatCompletionResponse
	if err := json.Unmarshal(body, &chatResp); err != nil {
		return nil, fmt.Errorf("openai: decode response: %w: %w", domain.ErrUpstream, err)
	}
	if chatResp.Error != nil {
		return nil, fmt.Errorf("openai: %s: %w", chatResp.Error.Message, domain.ErrUpstream)
	}
	if len(chatResp.Choices) == 0 {
		return nil, fmt.Errorf("openai: no response choices returned: %w", domain.ErrGeneration)
	}

	logger.Debug("openai: %s completed in %s (%d prompt, %d completion tokens)",
		s.model, time.Since(start).Round(time.Millisecond),
		chatResp.Usage.PromptTokens, chatResp.Usage.CompletionTokens)
	return &chatResp, nil
}

// statusError maps a non-200 status onto the domain taxonomy.
func statusError(status int, body []byte) error {
	switch {
	case status == http.StatusOK:
		return nil
	case status == http.StatusTooManyRequests:
		return fmt.Errorf("openai: status %d: %w", status, domain.ErrRateLimited)
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return fmt.Errorf("openai: status %d, check OPENAI_API_KEY: %w", status, domain.ErrUpstream)
	default:
		return fmt.Errorf("openai: status %d: %s: %w", status, logger.Preview(string(body), 200), domain.ErrUpstream)
	}
}

func textMsg(role, content string) chatCompletionMsg {
	return chatCompletionMsg{Role: role, Content: &content}
}

// toWireMessages converts history turns into OpenAI messages.
func toWireMessages(turns []domain.Turn) []chatCompletionMsg {
	messages := make([]chatCompletionMsg, 0, len(turns))
	for _, turn := range turns {
		msg := textMsg(string(turn.Role), turn.Content)
		switch turn.Role {
		case domain.RoleAssistant:
			if len(turn.ToolCalls) > 0 {
				if turn.Content == "" {
					msg.Content = nil
				}
				for _, call := range turn.ToolCalls {
					msg.ToolCalls = append(msg.ToolCalls, encodeToolCall(call))
				}
			}
		case domain.RoleTool:
			msg.ToolCallID = turn.ToolCallID
		}
		messages = append(messages, msg)
	}
	return messages
}

func encodeToolCall(call domain.ToolCall) toolCallWire {
	var wire toolCallWire
	wire.ID = call.ID
	wire.Type = "function"
	wire.Function.Name = string(call.Name)
	args := call.Arguments
	if args == nil {
		args = map[string]any{}
	}
	if b, err := json.Marshal(args); err == nil {
		wire.Function.Arguments = string(b)
	} else {
		wire.Function.Arguments = "{}"
	}
	return wire
}

// toToolDefinition renders a ToolSpec as a function definition.
func toToolDefinition(spec domain.ToolSpec) toolDefinition {
	var def toolDefinition
	def.Type = "function"
	def.Function.Name = string(spec.Name)
	def.Function.Description = spec.Description
	def.Function.Parameters = spec.JSONSchema()
	return def
}

// decodeArguments parses the JSON argument string, keeping numbers as json.Number
// so integer validation can tell 3 from 3.5. Malformed input yields an empty map
// and an error wrapping ErrGeneration.
func decodeArguments(name, raw string) (map[string]any, error) {
	args := map[string]any{}
	if strings.TrimSpace(raw) == "" {
		return args, nil
	}
	dec := json.NewDecoder(strings.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&args); err != nil {
		logger.Warn("openai: malformed arguments for %s: %v", name, err)
		return map[string]any{}, fmt.Errorf("malformed arguments for %s: %w: %w", name, domain.ErrGeneration, err)
	}
	return args, nil
}

// ModelName returns the name of the LLM model being used.
func (s *LLMService) ModelName() string {
	return s.model
}

// Ping validates the service is reachable by checking the /models endpoint.
// This is a lightweight check that validates the API key without running inference.
func (s *LLMService) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/models", http.NoBody)
	if err != nil {
		return fmt.Errorf("openai: failed to create ping request: %w", err)
	}
	if s.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return err
		}
		return fmt.Errorf("openai: ping failed: %w: %w", domain.ErrUpstream, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("openai: read ping response: %w: %w", domain.ErrUpstream, err)
	}
	return statusError(resp.StatusCode, body)
}

// Close releases resources.
func (s *LLMService) Close() error {
	return nil
}
