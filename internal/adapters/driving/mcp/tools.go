package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/oliverbatey/forager/internal/core/domain"
	"github.com/oliverbatey/forager/internal/logger"
)

// registerTools advertises every dispatcher tool with its declared schema.
func (s *Server) registerTools() {
	for _, spec := range s.ports.Dispatcher.Specs() {
		s.server.AddTool(&mcp.Tool{
			Name:        string(spec.Name),
			Description: spec.Description,
			InputSchema: spec.JSONSchema(),
		}, s.toolHandler(spec.Name))
	}
}

func (s *Server) toolHandler(name domain.ToolName) mcp.ToolHandler {
	return func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var raw json.RawMessage
		if req != nil && req.Params != nil {
			raw = req.Params.Arguments
		}
		return s.callTool(ctx, name, raw), nil
	}
}

// callTool dispatches one call. Failures are reported as tool errors with the
// same JSON payload the agent sees, never as protocol errors.
func (s *Server) callTool(ctx context.Context, name domain.ToolName, raw json.RawMessage) *mcp.CallToolResult {
	args, err := decodeArguments(raw)
	if err != nil {
		return errorResult(&domain.ToolError{
			Kind:    domain.ErrorKind(domain.ErrArgumentValidation),
			Message: fmt.Sprintf("%s: arguments must be a JSON object", name),
		})
	}

	logger.Debug("mcp: %s %v", name, args)
	result := s.ports.Dispatcher.Dispatch(ctx, domain.ToolCall{
		ID:        "mcp_" + uuid.NewString(),
		Name:      name,
		Arguments: args,
	})
	if !result.OK() {
		return errorResult(result.Error)
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: result.Content}},
	}
}

// decodeArguments keeps numbers as json.Number so integer validation can
// tell 3 from 3.5.
func decodeArguments(raw json.RawMessage) (map[string]any, error) {
	args := map[string]any{}
	if len(bytes.TrimSpace(raw)) == 0 || string(bytes.TrimSpace(raw)) == "null" {
		return args, nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&args); err != nil {
		return nil, err
	}
	return args, nil
}

func errorResult(toolErr *domain.ToolError) *mcp.CallToolResult {
	data, err := json.Marshal(toolErr)
	if err != nil {
		data = []byte(`{"error":"InternalError","message":"unencodable error"}`)
	}
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{&mcp.TextContent{Text: string(data)}},
	}
}
