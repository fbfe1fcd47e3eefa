package agent

import (
	"context"
	"encoding/json"
)

// Role of a conversation turn.
type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
	RoleTool  Role = "tool"
)

// ToolCall is a model-requested tool invocation.
type ToolCall struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
}

// ToolResult is what a tool produced for one call. Output is always text;
// failures are already flattened into it by the tool layer.
type ToolResult struct {
	CallID string `json:"call_id"`
	Name   string `json:"name"`
	Output string `json:"output"`
}

// Message is one turn of a session's history. Model turns may carry tool
// calls; tool turns carry the matching results.
type Message struct {
	Role        Role         `json:"role"`
	Text        string       `json:"text,omitempty"`
	ToolCalls   []ToolCall   `json:"tool_calls,omitempty"`
	ToolResults []ToolResult `json:"tool_results,omitempty"`
}

// ToolDecl advertises one tool to the model. Parameters is a JSON schema
// object.
type ToolDecl struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// ModelRequest is sent to the model on each loop iteration.
type ModelRequest struct {
	SystemPrompt string
	History      []Message
	Tools        []ToolDecl
}

// ModelResponse returns text and optional tool calls.
type ModelResponse struct {
	Text      string
	ToolCalls []ToolCall
}

// Model is an injectable hosted-model backend.
type Model interface {
	Generate(ctx context.Context, req ModelRequest) (ModelResponse, error)
}

// ToolExecutor runs one tool call and never fails: errors come back as text.
type ToolExecutor interface {
	Execute(ctx context.Context, call ToolCall) ToolResult
}
