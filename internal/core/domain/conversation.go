package domain

import "time"

// Role tags a conversation turn.
type Role string

// Conversation roles.
const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Turn is one entry in a session's history.
type Turn struct {
	Role    Role
	Content string

	// ToolCalls is set on assistant turns that requested tools.
	ToolCalls []ToolCall

	// ToolCallID links a tool turn to the call it answers.
	ToolCallID string
}

// Conversation is the per-session turn history.
type Conversation struct {
	SessionID string
	Turns     []Turn
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Append adds turns and updates the modification time.
func (c *Conversation) Append(turns ...Turn) {
	c.Turns = append(c.Turns, turns...)
	c.UpdatedAt = time.Now()
}

// Trim bounds the history to max turns, keeping a leading system turn.
// The cut is moved forward past orphaned tool turns so every kept tool
// result still follows the assistant turn that requested it.
func (c *Conversation) Trim(max int) {
	if max <= 0 || len(c.Turns) <= max {
		return
	}

	var head []Turn
	body := c.Turns
	if body[0].Role == RoleSystem {
		head = body[:1]
		body = body[1:]
		max--
	}

	cut := len(body) - max
	for cut < len(body) && body[cut].Role == RoleTool {
		cut++
	}

	trimmed := make([]Turn, 0, len(head)+len(body)-cut)
	trimmed = append(trimmed, head...)
	trimmed = append(trimmed, body[cut:]...)
	c.Turns = trimmed
}

// AgentState is a state of the per-message agent state machine.
type AgentState int

// Agent states.
const (
	StateAwaitingUserInput AgentState = iota
	StateReasoning
	StateAwaitingToolResults
	StateTerminal
)

// String returns the state name.
func (s AgentState) String() string {
	switch s {
	case StateAwaitingUserInput:
		return "AwaitingUserInput"
	case StateReasoning:
		return "Reasoning"
	case StateAwaitingToolResults:
		return "AwaitingToolResults"
	case StateTerminal:
		return "Terminal"
	}
	return "Unknown"
}

// AgentReply is the outcome of processing one user message.
type AgentReply struct {
	// Text is the final answer, or the fallback when the limit was hit.
	Text string

	// Iterations is the number of reasoning calls made.
	Iterations int

	// ToolCalls lists every tool call executed, in request order.
	ToolCalls []ToolCall

	// LimitExceeded is true when the iteration bound forced termination.
	LimitExceeded bool
}
