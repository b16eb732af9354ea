package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/oliverbatey/forager/internal/core/domain"
)

const uriScheme = "forager://"

// registerResources registers all resource handlers with the MCP server.
func (s *Server) registerResources() {
	s.server.AddResource(&mcp.Resource{
		URI:         uriScheme + "status",
		Name:        "status",
		Description: "Knowledge base size and the available tools",
		MIMEType:    "application/json",
	}, s.handleStatusResource)

	s.server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: uriScheme + "threads/{threadId}",
		Name:        "reddit-thread",
		Description: "A Reddit thread with its comments, fetched live",
		MIMEType:    "text/plain",
	}, s.handleThreadResource)
}

type statusInfo struct {
	Chunks *int     `json:"chunks,omitempty"`
	Tools  []string `json:"tools"`
}

// handleStatusResource reports the chunk count, when search is wired, and
// the registered tool names.
func (s *Server) handleStatusResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	var info statusInfo
	for _, spec := range s.ports.Dispatcher.Specs() {
		info.Tools = append(info.Tools, string(spec.Name))
	}
	if s.ports.Search != nil {
		n, err := s.ports.Search.Count(ctx)
		if err != nil {
			return nil, fmt.Errorf("counting chunks: %w", err)
		}
		info.Chunks = &n
	}

	data, err := json.MarshalIndent(info, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling status: %w", err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}

// handleThreadResource fetches a thread through the fetch_reddit_thread tool.
func (s *Server) handleThreadResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	threadID := extractThreadID(req.Params.URI)
	if threadID == "" {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	result := s.ports.Dispatcher.Dispatch(ctx, domain.ToolCall{
		ID:        "resource_" + threadID,
		Name:      domain.ToolFetchRedditThread,
		Arguments: map[string]any{"thread_id": threadID},
	})
	if !result.OK() {
		if result.Error.Kind == domain.ErrorKind(domain.ErrNotFound) {
			return nil, mcp.ResourceNotFoundError(req.Params.URI)
		}
		return nil, fmt.Errorf("fetching thread %s: %s: %s", threadID, result.Error.Kind, result.Error.Message)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      req.Params.URI,
			MIMEType: "text/plain",
			Text:     result.Content,
		}},
	}, nil
}

// extractThreadID extracts the thread ID from a URI like forager://threads/{threadId}.
func extractThreadID(uri string) string {
	const prefix = uriScheme + "threads/"

	if !strings.HasPrefix(uri, prefix) {
		return ""
	}
	id := strings.TrimPrefix(uri, prefix)
	if strings.Contains(id, "/") {
		return ""
	}
	return id
}
