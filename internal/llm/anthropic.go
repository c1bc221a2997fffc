package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const (
	envAnthropicAPIKey    = "ANTHROPIC_API_KEY"
	envAnthropicModel     = "ANTHROPIC_MODEL"
	defaultAnthropicModel = "claude-sonnet-4-5-20250929"

	anthropicAPIVersion = "2023-06-01"
	anthropicTimeout    = 60 * time.Second

	anthropicMaxRetries     = 3
	anthropicRetryBaseDelay = 500 * time.Millisecond
	anthropicMaxRequestSize = 200000
)

// anthropicAPIURL is a var rather than a const so tests can redirect it to
// an httptest server instead of issuing real network calls.
var anthropicAPIURL = "https://api.anthropic.com/v1/messages"

type anthropicClient struct {
	apiKey string
	model  string
	http   *http.Client
	log    zerolog.Logger
}

// NewAnthropicFromEnv builds a Client speaking the Anthropic Messages API,
// grounded in the pack's internal/llm/anthropic.go but extended to parse
// tool_use content blocks into structured ToolCalls (SPEC_FULL.md §6)
// rather than concatenating text blocks only.
func NewAnthropicFromEnv(log zerolog.Logger) (Client, error) {
	key := strings.TrimSpace(os.Getenv(envAnthropicAPIKey))
	if key == "" {
		return nil, fmt.Errorf("missing %s", envAnthropicAPIKey)
	}
	model := strings.Trim(strings.TrimSpace(os.Getenv(envAnthropicModel)), "\"'")
	if model == "" {
		model = defaultAnthropicModel
	}
	return &anthropicClient{
		apiKey: key,
		model:  model,
		http:   &http.Client{Timeout: anthropicTimeout},
		log:    log,
	}, nil
}

func (c *anthropicClient) Name() string { return c.model }

type anthropicPayload struct {
	Model       string             `json:"model"`
	System      string             `json:"system,omitempty"`
	Messages    []anthropicMessage `json:"messages"`
	Tools       []Tool             `json:"tools,omitempty"`
	MaxTokens   int                `json:"max_tokens"`
	Temperature float64            `json:"temperature"`
}

type anthropicMessage struct {
	Role    string             `json:"role"`
	Content []anthropicContent `json:"content"`
}

type anthropicContent struct {
	Type      string          `json:"type"`
	Text      string          `json:"text,omitempty"`
	ID        string          `json:"id,omitempty"`
	Name      string          `json:"name,omitempty"`
	Input     json.RawMessage `json:"input,omitempty"`
	ToolUseID string          `json:"tool_use_id,omitempty"`
	Content   string          `json:"content,omitempty"`
}

type anthropicResponse struct {
	Content    []anthropicContent `json:"content"`
	StopReason string             `json:"stop_reason"`
	Usage      struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

type anthropicError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

func (e anthropicError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Type
}

// toAnthropicMessages flattens our role/tool-call Message shape into
// Anthropic's content-block form: a tool message becomes a user message
// carrying one tool_result block, an assistant message with ToolCalls
// carries one tool_use block per call.
func toAnthropicMessages(msgs []Message) []anthropicMessage {
	out := make([]anthropicMessage, 0, len(msgs))
	for _, m := range msgs {
		switch m.Role {
		case "tool":
			out = append(out, anthropicMessage{
				Role: "user",
				Content: []anthropicContent{{
					Type:      "tool_result",
					ToolUseID: m.ToolCallID,
					Content:   m.Content,
				}},
			})
		case "assistant":
			var blocks []anthropicContent
			if m.Content != "" {
				blocks = append(blocks, anthropicContent{Type: "text", Text: m.Content})
			}
			for _, tc := range m.ToolCalls {
				input, _ := json.Marshal(tc.Input)
				blocks = append(blocks, anthropicContent{Type: "tool_use", ID: tc.ID, Name: tc.Name, Input: input})
			}
			out = append(out, anthropicMessage{Role: "assistant", Content: blocks})
		default:
			out = append(out, anthropicMessage{Role: "user", Content: []anthropicContent{{Type: "text", Text: m.Content}}})
		}
	}
	return out
}

func (c *anthropicClient) Generate(ctx context.Context, req Request) (Response, error) {
	if len(req.Messages) == 0 {
		return Response{}, errors.New("no messages")
	}
	for i, m := range req.Messages {
		if len(m.Content) > anthropicMaxRequestSize {
			c.log.Warn().Int("message_idx", i).Int("size", len(m.Content)).Msg("message too large, truncating")
			req.Messages[i].Content = m.Content[:anthropicMaxRequestSize] + "... [truncated]"
		}
	}

	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 1024
	}

	var lastErr error
	for attempt := 0; attempt <= anthropicMaxRetries; attempt++ {
		if attempt > 0 {
			delay := anthropicRetryBaseDelay * time.Duration(1<<uint(attempt-1))
			c.log.Info().Int("attempt", attempt).Dur("delay", delay).Msg("retrying Anthropic API call")
			select {
			case <-ctx.Done():
				return Response{}, ctx.Err()
			case <-time.After(delay):
			}
		}

		payload := anthropicPayload{
			Model:       c.model,
			System:      req.System,
			Messages:    toAnthropicMessages(req.Messages),
			Tools:       req.Tools,
			MaxTokens:   maxTokens,
			Temperature: float64(req.Temperature),
		}
		body, err := json.Marshal(payload)
		if err != nil {
			return Response{}, fmt.Errorf("marshal payload: %w", err)
		}

		c.log.Debug().Str("model", c.model).Int("messages", len(payload.Messages)).
			Int("tools", len(payload.Tools)).Int("payload_size", len(body)).Msg("Anthropic API request")

		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, anthropicAPIURL, bytes.NewReader(body))
		if err != nil {
			return Response{}, fmt.Errorf("create request: %w", err)
		}
		httpReq.Header.Set("Content-Type", "application/json")
		httpReq.Header.Set("x-api-key", c.apiKey)
		httpReq.Header.Set("anthropic-version", anthropicAPIVersion)

		resp, err := c.http.Do(httpReq)
		if err != nil {
			lastErr = fmt.Errorf("http request: %w", err)
			if attempt < anthropicMaxRetries {
				continue
			}
			return Response{}, lastErr
		}
		data, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("read response: %w", err)
			if attempt < anthropicMaxRetries {
				continue
			}
			return Response{}, lastErr
		}

		if resp.StatusCode >= 400 {
			var apiErr anthropicError
			raw := string(data)
			if jsonErr := json.Unmarshal(data, &apiErr); jsonErr != nil || apiErr.Message == "" {
				if len(raw) > 500 {
					raw = raw[:500] + "..."
				}
				lastErr = fmt.Errorf("anthropic %d: %s", resp.StatusCode, raw)
			} else {
				lastErr = fmt.Errorf("anthropic %d: %s (type: %s)", resp.StatusCode, apiErr.Message, apiErr.Type)
			}
			c.log.Error().Int("status", resp.StatusCode).Str("error", lastErr.Error()).Msg("Anthropic API error")
			if (resp.StatusCode == 429 || resp.StatusCode >= 500) && attempt < anthropicMaxRetries {
				continue
			}
			return Response{}, lastErr
		}

		var ar anthropicResponse
		if err := json.Unmarshal(data, &ar); err != nil {
			lastErr = fmt.Errorf("parse response: %w", err)
			if attempt < anthropicMaxRetries {
				continue
			}
			return Response{}, lastErr
		}

		var text strings.Builder
		var calls []ToolCall
		for _, block := range ar.Content {
			switch block.Type {
			case "text":
				text.WriteString(block.Text)
			case "tool_use":
				var input map[string]any
				if len(block.Input) > 0 {
					_ = json.Unmarshal(block.Input, &input)
				}
				calls = append(calls, ToolCall{ID: block.ID, Name: block.Name, Input: input})
			}
		}

		c.log.Debug().Str("stop_reason", ar.StopReason).Int("tool_calls", len(calls)).Msg("Anthropic API success")
		return Response{
			Text:      text.String(),
			ToolCalls: calls,
			Usage:     Usage{InputTokens: ar.Usage.InputTokens, OutputTokens: ar.Usage.OutputTokens},
		}, nil
	}

	return Response{}, fmt.Errorf("max retries exceeded: %w", lastErr)
}
