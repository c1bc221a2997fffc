// Package llm defines the model interface the agent loop drives, and
// selects a concrete implementation from the environment the way the
// pack's client.go does, per SPEC_FULL.md §6 and §10.2.
package llm

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

const envProvider = "WEBNAV_MODEL_PROVIDER"

// Client generates one model completion for a conversation turn.
type Client interface {
	Generate(ctx context.Context, req Request) (Response, error)
	Name() string
}

// Request carries one turn's system prompt, full message history, and the
// fixed tool schema the agent exposes.
type Request struct {
	System      string
	Messages    []Message
	Tools       []Tool
	Temperature float32
	MaxTokens   int
}

// Message is one turn in the conversation. Role is one of system, user,
// assistant, or tool. An assistant message may carry tool calls instead of
// (or alongside) text; a tool message carries the result of one prior tool
// call, addressed by ToolCallID.
type Message struct {
	Role       string
	Content    string
	ToolCalls  []ToolCall
	ToolCallID string
}

// ToolCall is one invocation the model asked for: a tool name and its
// JSON-decoded input arguments.
type ToolCall struct {
	ID    string
	Name  string
	Input map[string]any
}

// Tool describes one callable action and its JSON Schema input shape.
type Tool struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"input_schema"`
}

// Response is one model completion: free text, structured tool calls, or
// both, plus the token usage the call consumed.
type Response struct {
	Text      string
	ToolCalls []ToolCall
	Usage     Usage
}

// Usage reports token consumption for one Generate call.
type Usage struct {
	InputTokens  int
	OutputTokens int
}

// NewFromEnv builds a Client from WEBNAV_MODEL_PROVIDER, defaulting to
// Anthropic when unset, mirroring the pack's NewClientFromEnv selection.
func NewFromEnv(log zerolog.Logger) (Client, error) {
	provider := strings.ToLower(strings.TrimSpace(os.Getenv(envProvider)))
	if provider == "" {
		provider = "anthropic"
	}
	switch provider {
	case "anthropic":
		return NewAnthropicFromEnv(log)
	case "openai":
		return NewOpenAIFromEnv(log)
	default:
		return nil, fmt.Errorf("unknown model provider: %s (use 'anthropic' or 'openai')", provider)
	}
}
