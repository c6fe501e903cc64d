package domain

import (
	"context"
	"strings"
)

// ToolCall is the model asking to run a tool.
type ToolCall struct {
	ID   string         `json:"id,omitempty"`
	Name string         `json:"name"`
	Args map[string]any `json:"args"`
}

// ToolResponse carries a tool result back to the model.
type ToolResponse struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name"`
	Data any    `json:"data"`
}

// ChatTurn is one entry of the conversation sent to a provider.
type ChatTurn struct {
	Role          string         `json:"role"`
	Text          string         `json:"text,omitempty"`
	ToolCalls     []ToolCall     `json:"tool_calls,omitempty"`
	ToolResponses []ToolResponse `json:"tool_responses,omitempty"`
	// RawContent keeps the provider's own message so the next step of the
	// tool loop can resend it unchanged.
	RawContent any `json:"-"`
}

// Tool describes a callable function in JSON-schema terms.
type Tool struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"input_schema"`
}

// ToolHandler runs a tool with the model's arguments.
type ToolHandler func(ctx context.Context, args map[string]any) (any, error)

// NativeTool is a tool executed in-process.
type NativeTool struct {
	Tool
	Handler ToolHandler
}

type ChatRequest struct {
	SystemPrompt string
	History      []ChatTurn
	Tools        []Tool
	Model        string
	// ChatKey identifies the conversation in logs.
	ChatKey string
}

type UsageStats struct {
	Model        string `json:"model"`
	InputTokens  int    `json:"input_tokens"`
	OutputTokens int    `json:"output_tokens"`
	CachedTokens int    `json:"cached_tokens"`
}

func (u *UsageStats) Add(other *UsageStats) {
	if u == nil || other == nil {
		return
	}
	if u.Model == "" {
		u.Model = other.Model
	}
	u.InputTokens += other.InputTokens
	u.OutputTokens += other.OutputTokens
	u.CachedTokens += other.CachedTokens
}

type ChatResponse struct {
	Text       string
	ToolCalls  []ToolCall
	RawContent any
	Usage      *UsageStats
}

// Provider is the thin interface every model backend implements.
type Provider interface {
	Name() string
	Chat(ctx context.Context, req ChatRequest) (ChatResponse, error)
}

// MessagePart is one fragment of a client message. Only text parts are
// forwarded to the model.
type MessagePart struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

// InputMessage is a message as sent by the dashboard.
type InputMessage struct {
	ID      string        `json:"id,omitempty"`
	Role    string        `json:"role"`
	Parts   []MessagePart `json:"parts,omitempty"`
	Content string        `json:"content,omitempty"`
}

// Text joins the text parts, falling back to Content.
func (m InputMessage) Text() string {
	if len(m.Parts) == 0 {
		return m.Content
	}
	var b strings.Builder
	for _, p := range m.Parts {
		if p.Type == "text" {
			b.WriteString(p.Text)
		}
	}
	return b.String()
}

// ToolInfo is the tool listing shown by the dashboard.
type ToolInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}
