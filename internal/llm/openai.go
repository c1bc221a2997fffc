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
	envOpenAIAPIKey    = "OPENAI_API_KEY"
	envOpenAIModel     = "OPENAI_MODEL"
	defaultOpenAIModel = "gpt-4o-mini"

	openAITimeout = 60 * time.Second

	openAIMaxRetries     = 3
	openAIRetryBaseDelay = 500 * time.Millisecond
	openAIMaxRequestSize = 200000
)

// openAIAPIURL is a var rather than a const so tests can redirect it to an
// httptest server instead of issuing real network calls.
var openAIAPIURL = "https://api.openai.com/v1/chat/completions"

type openAIClient struct {
	apiKey string
	model  string
	http   *http.Client
	log    zerolog.Logger
}

// NewOpenAIFromEnv builds a Client speaking the OpenAI-compatible
// chat-completions tool_calls shape, grounded in the pack's
// internal/llm/openai.go but returning every parallel tool call as a
// structured ToolCall rather than only the first one.
func NewOpenAIFromEnv(log zerolog.Logger) (Client, error) {
	key := strings.TrimSpace(os.Getenv(envOpenAIAPIKey))
	if key == "" {
		return nil, fmt.Errorf("missing %s", envOpenAIAPIKey)
	}
	model := strings.Trim(strings.TrimSpace(os.Getenv(envOpenAIModel)), "\"'")
	if model == "" {
		model = defaultOpenAIModel
	}
	return &openAIClient{
		apiKey: key,
		model:  model,
		http:   &http.Client{Timeout: openAITimeout},
		log:    log,
	}, nil
}

func (c *openAIClient) Name() string { return c.model }

type openAIPayload struct {
	Model       string          `json:"model"`
	Messages    []openAIMessage `json:"messages"`
	Tools       []openAITool    `json:"tools,omitempty"`
	ToolChoice  string          `json:"tool_choice,omitempty"`
	Temperature float64         `json:"temperature"`
	MaxTokens   int             `json:"max_tokens"`
}

type openAIMessage struct {
	Role       string           `json:"role"`
	Content    string           `json:"content,omitempty"`
	ToolCalls  []openAIToolCall `json:"tool_calls,omitempty"`
	ToolCallID string           `json:"tool_call_id,omitempty"`
}

type openAIToolCall struct {
	ID       string `json:"id"`
	Type     string `json:"type"`
	Function struct {
		Name      string `json:"name"`
		Arguments string `json:"arguments"`
	} `json:"function"`
}

type openAITool struct {
	Type     string         `json:"type"`
	Function openAIFunction `json:"function"`
}

type openAIFunction struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

type openAIResponse struct {
	Choices []struct {
		Message struct {
			Content   string           `json:"content"`
			ToolCalls []openAIToolCall `json:"tool_calls,omitempty"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// toOpenAIMessages flattens our Message shape, mapping assistant tool
// calls to tool_calls entries and tool-role messages to role "tool"
// carrying tool_call_id, per the chat-completions wire format.
func toOpenAIMessages(system string, msgs []Message) []openAIMessage {
	out := make([]openAIMessage, 0, len(msgs)+1)
	if system != "" {
		out = append(out, openAIMessage{Role: "system", Content: system})
	}
	for _, m := range msgs {
		switch m.Role {
		case "tool":
			out = append(out, openAIMessage{Role: "tool", Content: m.Content, ToolCallID: m.ToolCallID})
		case "assistant":
			om := openAIMessage{Role: "assistant", Content: m.Content}
			for _, tc := range m.ToolCalls {
				args, _ := json.Marshal(tc.Input)
				call := openAIToolCall{ID: tc.ID, Type: "function"}
				call.Function.Name = tc.Name
				call.Function.Arguments = string(args)
				om.ToolCalls = append(om.ToolCalls, call)
			}
			out = append(out, om)
		default:
			out = append(out, openAIMessage{Role: m.Role, Content: m.Content})
		}
	}
	return out
}

func (c *openAIClient) Generate(ctx context.Context, req Request) (Response, error) {
	if len(req.Messages) == 0 {
		return Response{}, errors.New("no messages")
	}
	for i, m := range req.Messages {
		if len(m.Content) > openAIMaxRequestSize {
			c.log.Warn().Int("message_idx", i).Int("size", len(m.Content)).Msg("message too large, truncating")
			req.Messages[i].Content = m.Content[:openAIMaxRequestSize] + "... [truncated]"
		}
	}

	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 1024
	}

	tools := make([]openAITool, 0, len(req.Tools))
	for _, t := range req.Tools {
		tools = append(tools, openAITool{
			Type:     "function",
			Function: openAIFunction{Name: t.Name, Description: t.Description, Parameters: t.InputSchema},
		})
	}

	var lastErr error
	for attempt := 0; attempt <= openAIMaxRetries; attempt++ {
		if attempt > 0 {
			delay := openAIRetryBaseDelay * time.Duration(1<<uint(attempt-1))
			c.log.Info().Int("attempt", attempt).Dur("delay", delay).Msg("retrying OpenAI API call")
			select {
			case <-ctx.Done():
				return Response{}, ctx.Err()
			case <-time.After(delay):
			}
		}

		payload := openAIPayload{
			Model:       c.model,
			Messages:    toOpenAIMessages(req.System, req.Messages),
			Temperature: float64(req.Temperature),
			MaxTokens:   maxTokens,
		}
		if len(tools) > 0 {
			payload.Tools = tools
			payload.ToolChoice = "auto"
		}

		body, err := json.Marshal(payload)
		if err != nil {
			return Response{}, fmt.Errorf("marshal payload: %w", err)
		}

		c.log.Debug().Str("model", c.model).Int("messages", len(payload.Messages)).
			Int("tools", len(tools)).Int("payload_size", len(body)).Msg("OpenAI API request")

		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, openAIAPIURL, bytes.NewReader(body))
		if err != nil {
			return Response{}, fmt.Errorf("create request: %w", err)
		}
		httpReq.Header.Set("Content-Type", "application/json")
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

		resp, err := c.http.Do(httpReq)
		if err != nil {
			lastErr = fmt.Errorf("http request: %w", err)
			if attempt < openAIMaxRetries {
				continue
			}
			return Response{}, lastErr
		}
		data, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("read response: %w", err)
			if attempt < openAIMaxRetries {
				continue
			}
			return Response{}, lastErr
		}

		if resp.StatusCode >= 400 {
			var apiResp openAIResponse
			raw := string(data)
			if jsonErr := json.Unmarshal(data, &apiResp); jsonErr != nil || apiResp.Error == nil {
				if len(raw) > 500 {
					raw = raw[:500] + "..."
				}
				lastErr = fmt.Errorf("openai %d: %s", resp.StatusCode, raw)
			} else {
				lastErr = fmt.Errorf("openai %d: %s (type: %s)", resp.StatusCode, apiResp.Error.Message, apiResp.Error.Type)
			}
			c.log.Error().Int("status", resp.StatusCode).Str("error", lastErr.Error()).Msg("OpenAI API error")
			if (resp.StatusCode == 429 || resp.StatusCode >= 500) && attempt < openAIMaxRetries {
				continue
			}
			return Response{}, lastErr
		}

		var apiResp openAIResponse
		if err := json.Unmarshal(data, &apiResp); err != nil {
			return Response{}, fmt.Errorf("parse response: %w", err)
		}
		if len(apiResp.Choices) == 0 {
			return Response{}, fmt.Errorf("no choices in response")
		}

		choice := apiResp.Choices[0]
		var calls []ToolCall
		for _, tc := range choice.Message.ToolCalls {
			var input map[string]any
			if tc.Function.Arguments != "" {
				_ = json.Unmarshal([]byte(tc.Function.Arguments), &input)
			}
			calls = append(calls, ToolCall{ID: tc.ID, Name: tc.Function.Name, Input: input})
		}

		c.log.Debug().Str("finish_reason", choice.FinishReason).Int("tool_calls", len(calls)).Msg("OpenAI API success")
		return Response{
			Text:      choice.Message.Content,
			ToolCalls: calls,
			Usage:     Usage{InputTokens: apiResp.Usage.PromptTokens, OutputTokens: apiResp.Usage.CompletionTokens},
		}, nil
	}

	return Response{}, fmt.Errorf("max retries exceeded: %w", lastErr)
}
