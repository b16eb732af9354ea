package domain

// ToolName identifies a declared tool. The set is closed.
type ToolName string

// Declared tools.
const (
	ToolSearchKnowledgeBase ToolName = "search_knowledge_base"
	ToolFetchRedditThread   ToolName = "fetch_reddit_thread"
	ToolFetchSubredditPosts ToolName = "fetch_subreddit_posts"
	ToolSeedSubreddit       ToolName = "seed_subreddit"
)

// ToolNames returns every declared tool name.
func ToolNames() []ToolName {
	return []ToolName{
		ToolSearchKnowledgeBase,
		ToolFetchRedditThread,
		ToolFetchSubredditPosts,
		ToolSeedSubreddit,
	}
}

// Valid reports whether n is a declared tool.
func (n ToolName) Valid() bool {
	for _, known := range ToolNames() {
		if n == known {
			return true
		}
	}
	return false
}

// ParamType is the JSON type of a tool argument.
type ParamType string

// Supported argument types.
const (
	ParamString  ParamType = "string"
	ParamInteger ParamType = "integer"
)

// ToolParam declares one argument of a tool.
type ToolParam struct {
	Name        string
	Type        ParamType
	Description string
	Required    bool

	// Enum restricts string arguments to the listed values.
	Enum []string
}

// ToolSpec is the schema advertised to the reasoning model.
type ToolSpec struct {
	Name        ToolName
	Description string
	Params      []ToolParam
}

// Param returns the declared parameter with the given name.
func (s *ToolSpec) Param(name string) (ToolParam, bool) {
	for _, p := range s.Params {
		if p.Name == name {
			return p, true
		}
	}
	return ToolParam{}, false
}

// JSONSchema renders the parameters as a strict JSON Schema object.
func (s *ToolSpec) JSONSchema() map[string]any {
	properties := make(map[string]any, len(s.Params))
	required := []string{}
	for _, p := range s.Params {
		prop := map[string]any{
			"type":        string(p.Type),
			"description": p.Description,
		}
		if len(p.Enum) > 0 {
			prop["enum"] = p.Enum
		}
		properties[p.Name] = prop
		if p.Required {
			required = append(required, p.Name)
		}
	}
	return map[string]any{
		"type":                 "object",
		"properties":           properties,
		"required":             required,
		"additionalProperties": false,
	}
}

// ToolCall is a request emitted by the reasoning model.
// Each call is consumed exactly once by the dispatcher.
type ToolCall struct {
	ID        string
	Name      ToolName
	Arguments map[string]any

	// ParseError is set when the model's arguments could not be decoded.
	// It wraps ErrGeneration; Arguments is empty in that case.
	ParseError error
}

// ToolResult pairs a ToolCall with its outcome.
type ToolResult struct {
	CallID string
	Name   ToolName

	// Content is the success payload. Empty when Error is set.
	Content string

	// Error is the structured failure, if any.
	Error *ToolError
}

// ToolError is the structured error payload fed back to the model.
type ToolError struct {
	Kind    string `json:"error"`
	Message string `json:"message"`
}

// OK reports whether the call succeeded.
func (r *ToolResult) OK() bool {
	return r.Error == nil
}

// Reply is the reasoning model's response: FinalAnswer or ToolCalls.
type Reply interface {
	isReply()
}

// FinalAnswer ends the turn with text for the user.
type FinalAnswer struct {
	Text string
}

// ToolCalls asks for one or more tools to run before reasoning again.
type ToolCalls struct {
	// Text is any content the model emitted alongside the calls.
	Text  string
	Calls []ToolCall
}

func (FinalAnswer) isReply() {}
func (ToolCalls) isReply()   {}
