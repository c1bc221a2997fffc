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

func TestOpenAI_ParsesToolCalls(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{
					"message": map[string]any{
						"content": "",
						"tool_calls": []map[string]any{
							{"id": "call_1", "type": "function", "function": map[string]any{
								"name": "click", "arguments": `{"ref":"e3"}`,
							}},
						},
					},
					"finish_reason": "tool_calls",
				},
			},
			"usage": map[string]any{"prompt_tokens": 20, "completion_tokens": 4},
		})
	}))
	defer srv.Close()

	orig := openAIAPIURL
	openAIAPIURL = srv.URL
	defer func() { openAIAPIURL = orig }()

	client := &openAIClient{apiKey: "test-key", model: "gpt-test", http: srv.Client(), log: zerolog.Nop()}

	resp, err := client.Generate(context.Background(), Request{
		Messages: []Message{{Role: "user", Content: "click the button"}},
	})
	require.NoError(t, err)
	require.Len(t, resp.ToolCalls, 1)
	assert.Equal(t, "click", resp.ToolCalls[0].Name)
	assert.Equal(t, "e3", resp.ToolCalls[0].Input["ref"])
	assert.Equal(t, 20, resp.Usage.InputTokens)
}

func TestOpenAI_MissingAPIKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	_, err := NewOpenAIFromEnv(zerolog.Nop())
	assert.Error(t, err)
}
