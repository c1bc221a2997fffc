package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnthropic_ParsesToolUseBlocks(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-key", r.Header.Get("x-api-key"))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"content": []map[string]any{
				{"type": "text", "text": "clicking now"},
				{"type": "tool_use", "id": "call_1", "name": "click", "input": map[string]any{"ref": "e3"}},
			},
			"stop_reason": "tool_use",
			"usage":       map[string]any{"input_tokens": 10, "output_tokens": 5},
		})
	}))
	defer srv.Close()

	orig := anthropicAPIURL
	anthropicAPIURL = srv.URL
	defer func() { anthropicAPIURL = orig }()

	client := &anthropicClient{apiKey: "test-key", model: "claude-test", http: srv.Client(), log: zerolog.Nop()}

	resp, err := client.Generate(context.Background(), Request{
		Messages: []Message{{Role: "user", Content: "click the button"}},
	})
	require.NoError(t, err)

	assert.Equal(t, "clicking now", resp.Text)
	require.Len(t, resp.ToolCalls, 1)
	assert.Equal(t, "click", resp.ToolCalls[0].Name)
	assert.Equal(t, "e3", resp.ToolCalls[0].Input["ref"])
	assert.Equal(t, 10, resp.Usage.InputTokens)
}

func TestAnthropic_MissingAPIKey(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "")
	_, err := NewAnthropicFromEnv(zerolog.Nop())
	assert.Error(t, err)
}

func TestAnthropic_ToolResultRoundTrip(t *testing.T) {
	msgs := toAnthropicMessages([]Message{
		{Role: "assistant", ToolCalls: []ToolCall{{ID: "call_1", Name: "click", Input: map[string]any{"ref": "e3"}}}},
		{Role: "tool", ToolCallID: "call_1", Content: "Clicked at (10, 20)"},
	})
	require.Len(t, msgs, 2)
	assert.Equal(t, "assistant", msgs[0].Role)
	assert.Equal(t, "tool_use", msgs[0].Content[0].Type)
	assert.Equal(t, "user", msgs[1].Role)
	assert.Equal(t, "tool_result", msgs[1].Content[0].Type)
	assert.Equal(t, "call_1", msgs[1].Content[0].ToolUseID)
}
