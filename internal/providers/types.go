package providers

import "context"

// Finish reasons that signal a tool-requesting response. OpenAI-compatible
// gateways report "tool_calls"; Anthropic routed through the same gateway
// reports "tool_use". Both are accepted everywhere a finish reason is
// inspected — add new spellings here, never inline.
const (
	FinishToolCalls = "tool_calls"
	FinishToolUse   = "tool_use"
	FinishStop      = "stop"
)

// Provider is the interface all LLM providers must implement.
type Provider interface {
	// Chat sends messages to the LLM and returns a response.
	Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error)

	// DefaultModel returns the provider's default model name.
	DefaultModel() string

	// Name returns the provider identifier (e.g. "openai", "portkey").
	Name() string
}

// ChatRequest contains the input for a Chat call.
type ChatRequest struct {
	Model     string           `json:"model"`
	Messages  []Message        `json:"messages"`
	MaxTokens int              `json:"max_tokens,omitempty"`
	Tools     []ToolDefinition `json:"tools,omitempty"`
}

// ChatResponse is the first choice of an LLM completion, flattened.
type ChatResponse struct {
	Content      string     `json:"content"`
	ToolCalls    []ToolCall `json:"tool_calls,omitempty"`
	FinishReason string     `json:"finish_reason"`
}

// RequestsTools reports whether the response asks for tool execution.
// Both the finish reason and a non-empty tool call list are required;
// any other combination is final.
func (r *ChatResponse) RequestsTools() bool {
	if len(r.ToolCalls) == 0 {
		return false
	}
	return r.FinishReason == FinishToolCalls || r.FinishReason == FinishToolUse
}

// Message represents one conversation message. This is also the session
// log wire format: one JSON-encoded Message per line.
type Message struct {
	Role       string     `json:"role"` // "system", "user", "assistant", "tool"
	Content    string     `json:"content"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"` // for role="tool" responses
}

// ToolCall is a tool invocation requested by the LLM, in OpenAI wire shape.
// Arguments is a JSON object encoded as text; the agent loop parses it.
type ToolCall struct {
	ID       string       `json:"id"`
	Type     string       `json:"type"` // always "function"
	Function ToolFunction `json:"function"`
}

// ToolFunction names the tool and carries its JSON-text arguments.
type ToolFunction struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// ToolDefinition describes a tool available to the LLM.
type ToolDefinition struct {
	Type     string             `json:"type"` // "function"
	Function ToolFunctionSchema `json:"function"`
}

// ToolFunctionSchema is the schema for a function tool.
type ToolFunctionSchema struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}
