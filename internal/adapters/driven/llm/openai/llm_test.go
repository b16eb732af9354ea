package openai

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oliverbatey/forager/internal/core/domain"
	"github.com/oliverbatey/forager/internal/core/ports/driven"
)

func newTestService(t *testing.T, handler http.HandlerFunc) *LLMService {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	svc, err := NewLLMService(LLMConfig{APIKey: "sk-test", BaseURL: server.URL, Model: "test-model"})
	require.NoError(t, err)
	return svc
}

func decodeRequest(t *testing.T, r *http.Request) map[string]any {
	t.Helper()
	body, err := io.ReadAll(r.Body)
	require.NoError(t, err)
	var req map[string]any
	require.NoError(t, json.Unmarshal(body, &req))
	return req
}

func TestNewLLMService(t *testing.T) {
	t.Run("requires key when asked", func(t *testing.T) {
		_, err := NewLLMService(LLMConfig{RequireKey: true})

		assert.ErrorIs(t, err, domain.ErrConfig)
	})

	t.Run("applies defaults", func(t *testing.T) {
		svc, err := NewLLMService(LLMConfig{})

		require.NoError(t, err)
		assert.Equal(t, DefaultLLMModel, svc.ModelName())
		assert.Equal(t, DefaultBaseURL, svc.baseURL)
	})
}

func TestLLMService_Generate(t *testing.T) {
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		req := decodeRequest(t, r)
		assert.Equal(t, "test-model", req["model"])
		assert.EqualValues(t, 1000, req["max_tokens"])
		temperature, ok := req["temperature"]
		require.True(t, ok, "temperature must be sent even when zero")
		assert.EqualValues(t, 0, temperature)
		assert.EqualValues(t, 0.5, req["top_p"])
		messages := req["messages"].([]any)
		require.Len(t, messages, 2)
		assert.Equal(t, "system", messages[0].(map[string]any)["role"])
		assert.Equal(t, "Summarise this.", messages[0].(map[string]any)["content"])
		assert.Equal(t, "thread text", messages[1].(map[string]any)["content"])

		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"A summary."}}]}`))
	})

	got, err := svc.Generate(context.Background(), "Summarise this.", "thread text", driven.GenerateOptions{MaxTokens: 1000, Temperature: 0, TopP: 0.5})

	require.NoError(t, err)
	assert.Equal(t, "A summary.", got)
}

func TestLLMService_Chat_FinalAnswer(t *testing.T) {
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		req := decodeRequest(t, r)
		_, hasTools := req["tools"]
		assert.False(t, hasTools)
		_, hasTemperature := req["temperature"]
		assert.False(t, hasTemperature)
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"Hello!"},"finish_reason":"stop"}]}`))
	})

	reply, err := svc.Chat(context.Background(), []domain.Turn{{Role: domain.RoleUser, Content: "hi"}}, nil)

	require.NoError(t, err)
	assert.Equal(t, domain.FinalAnswer{Text: "Hello!"}, reply)
}

func TestLLMService_Chat_ToolCalls(t *testing.T) {
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		req := decodeRequest(t, r)

		tools := req["tools"].([]any)
		require.Len(t, tools, 1)
		fn := tools[0].(map[string]any)["function"].(map[string]any)
		assert.Equal(t, "search_knowledge_base", fn["name"])
		params := fn["parameters"].(map[string]any)
		assert.Equal(t, []any{"query"}, params["required"])
		assert.Equal(t, false, params["additionalProperties"])

		messages := req["messages"].([]any)
		require.Len(t, messages, 4)
		assistant := messages[2].(map[string]any)
		assert.Nil(t, assistant["content"])
		require.Len(t, assistant["tool_calls"], 1)
		tool := messages[3].(map[string]any)
		assert.Equal(t, "call_0", tool["tool_call_id"])

		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":null,"tool_calls":[
			{"id":"call_1","type":"function","function":{"name":"search_knowledge_base","arguments":"{\"query\":\"go\",\"k\":3}"}},
			{"id":"call_2","type":"function","function":{"name":"fetch_reddit_thread","arguments":"not json"}}
		]},"finish_reason":"tool_calls"}]}`))
	})

	turns := []domain.Turn{
		{Role: domain.RoleSystem, Content: "system"},
		{Role: domain.RoleUser, Content: "what about go?"},
		{Role: domain.RoleAssistant, ToolCalls: []domain.ToolCall{
			{ID: "call_0", Name: domain.ToolSeedSubreddit, Arguments: map[string]any{"subreddit": "golang"}},
		}},
		{Role: domain.RoleTool, ToolCallID: "call_0", Content: "Seeded"},
	}
	specs := []domain.ToolSpec{{
		Name:        domain.ToolSearchKnowledgeBase,
		Description: "Search",
		Params: []domain.ToolParam{
			{Name: "query", Type: domain.ParamString, Required: true},
			{Name: "k", Type: domain.ParamInteger},
		},
	}}

	reply, err := svc.Chat(context.Background(), turns, specs)

	require.NoError(t, err)
	calls, ok := reply.(domain.ToolCalls)
	require.True(t, ok)
	require.Len(t, calls.Calls, 2)
	assert.Equal(t, "call_1", calls.Calls[0].ID)
	assert.Equal(t, domain.ToolSearchKnowledgeBase, calls.Calls[0].Name)
	assert.Equal(t, "go", calls.Calls[0].Arguments["query"])
	assert.Equal(t, json.Number("3"), calls.Calls[0].Arguments["k"])
	assert.NoError(t, calls.Calls[0].ParseError)
	assert.Empty(t, calls.Calls[1].Arguments)
	assert.ErrorIs(t, calls.Calls[1].ParseError, domain.ErrGeneration)
}

func TestLLMService_Errors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   error
	}{
		{"rate limited", http.StatusTooManyRequests, `{}`, domain.ErrRateLimited},
		{"server error", http.StatusInternalServerError, `oops`, domain.ErrUpstream},
		{"unauthorized", http.StatusUnauthorized, `{}`, domain.ErrUpstream},
		{"api error body", http.StatusOK, `{"error":{"message":"bad"}}`, domain.ErrUpstream},
		{"no choices", http.StatusOK, `{"choices":[]}`, domain.ErrGeneration},
		{"malformed", http.StatusOK, `{`, domain.ErrUpstream},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			_, err := svc.Generate(context.Background(), "", "prompt", driven.GenerateOptions{})

			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestLLMService_Ping(t *testing.T) {
	t.Run("ok", func(t *testing.T) {
		svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/models", r.URL.Path)
			_, _ = w.Write([]byte(`{"data":[]}`))
		})

		assert.NoError(t, svc.Ping(context.Background()))
	})

	t.Run("unauthorized", func(t *testing.T) {
		svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		})

		assert.ErrorIs(t, svc.Ping(context.Background()), domain.ErrUpstream)
	})
}
