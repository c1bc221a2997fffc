package daemoncmd_test

import (
	"encoding/json"
	"testing"

	daemoncmd "github.com/webnav-ai/webnav/internal/daemoncmd"
)

func TestParseCommand(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
		check   func(*testing.T, daemoncmd.Command)
	}{
		{
			name:  "navigate with URL",
			input: `{"id":"1","action":"navigate","url":"https://example.com"}`,
			check: func(t *testing.T, cmd daemoncmd.Command) {
				navCmd, ok := cmd.(*daemoncmd.NavigateCommand)
				if !ok {
					t.Fatal("expected NavigateCommand")
				}
				if navCmd.URL != "https://example.com" {
					t.Errorf("expected URL https://example.com, got %s", navCmd.URL)
				}
			},
		},
		{
			name:  "click with selector",
			input: `{"id":"1","action":"click","selector":"#btn"}`,
			check: func(t *testing.T, cmd daemoncmd.Command) {
				clickCmd, ok := cmd.(*daemoncmd.ClickCommand)
				if !ok {
					t.Fatal("expected ClickCommand")
				}
				if clickCmd.Selector != "#btn" {
					t.Errorf("expected selector #btn, got %s", clickCmd.Selector)
				}
			},
		},
		{
			name:  "fill with value",
			input: `{"id":"1","action":"fill","selector":"#input","value":"hello"}`,
			check: func(t *testing.T, cmd daemoncmd.Command) {
				fillCmd, ok := cmd.(*daemoncmd.FillCommand)
				if !ok {
					t.Fatal("expected FillCommand")
				}
				if fillCmd.Value != "hello" {
					t.Errorf("expected value hello, got %s", fillCmd.Value)
				}
			},
		},
		{
			name:  "hover with selector",
			input: `{"id":"1","action":"hover","selector":".card"}`,
			check: func(t *testing.T, cmd daemoncmd.Command) {
				if _, ok := cmd.(*daemoncmd.HoverCommand); !ok {
					t.Fatal("expected HoverCommand")
				}
			},
		},
		{
			name:  "press with key and selector",
			input: `{"id":"1","action":"press","key":"Enter","selector":"#input"}`,
			check: func(t *testing.T, cmd daemoncmd.Command) {
				pressCmd, ok := cmd.(*daemoncmd.PressCommand)
				if !ok {
					t.Fatal("expected PressCommand")
				}
				if pressCmd.Key != "Enter" {
					t.Errorf("expected key Enter, got %s", pressCmd.Key)
				}
			},
		},
		{
			name:  "scroll with direction and amount",
			input: `{"id":"1","action":"scroll","direction":"down","amount":300}`,
			check: func(t *testing.T, cmd daemoncmd.Command) {
				scrollCmd, ok := cmd.(*daemoncmd.ScrollCommand)
				if !ok {
					t.Fatal("expected ScrollCommand")
				}
				if scrollCmd.Amount != 300 {
					t.Errorf("expected amount 300, got %d", scrollCmd.Amount)
				}
			},
		},
		{
			name:  "snapshot",
			input: `{"id":"1","action":"snapshot"}`,
			check: func(t *testing.T, cmd daemoncmd.Command) {
				if _, ok := cmd.(*daemoncmd.SnapshotCommand); !ok {
					t.Fatal("expected SnapshotCommand")
				}
			},
		},
		{
			name:  "evaluate with script",
			input: `{"id":"1","action":"evaluate","script":"document.title"}`,
			check: func(t *testing.T, cmd daemoncmd.Command) {
				evalCmd, ok := cmd.(*daemoncmd.EvaluateCommand)
				if !ok {
					t.Fatal("expected EvaluateCommand")
				}
				if evalCmd.Script != "document.title" {
					t.Errorf("expected script document.title, got %s", evalCmd.Script)
				}
			},
		},
		{
			name:  "gettext with selector",
			input: `{"id":"1","action":"gettext","selector":"h1"}`,
			check: func(t *testing.T, cmd daemoncmd.Command) {
				if _, ok := cmd.(*daemoncmd.GetTextCommand); !ok {
					t.Fatal("expected GetTextCommand")
				}
			},
		},
		{
			name:  "title",
			input: `{"id":"1","action":"title"}`,
			check: func(t *testing.T, cmd daemoncmd.Command) {
				if _, ok := cmd.(*daemoncmd.TitleCommand); !ok {
					t.Fatal("expected TitleCommand")
				}
			},
		},
		{
			name:  "url",
			input: `{"id":"1","action":"url"}`,
			check: func(t *testing.T, cmd daemoncmd.Command) {
				if _, ok := cmd.(*daemoncmd.URLCommand); !ok {
					t.Fatal("expected URLCommand")
				}
			},
		},
		{
			name:  "back",
			input: `{"id":"1","action":"back"}`,
			check: func(t *testing.T, cmd daemoncmd.Command) {
				if _, ok := cmd.(*daemoncmd.BackCommand); !ok {
					t.Fatal("expected BackCommand")
				}
			},
		},
		{
			name:  "forward",
			input: `{"id":"1","action":"forward"}`,
		},
		{
			name:  "reload",
			input: `{"id":"1","action":"reload"}`,
		},
		{
			name:  "close",
			input: `{"id":"1","action":"close"}`,
			check: func(t *testing.T, cmd daemoncmd.Command) {
				if _, ok := cmd.(*daemoncmd.CloseCommand); !ok {
					t.Fatal("expected CloseCommand")
				}
			},
		},
		{
			name:    "navigate without URL",
			input:   `{"id":"1","action":"navigate"}`,
			wantErr: false, // URL field is simply empty; the backend rejects it
		},
		{
			name:    "click without selector",
			input:   `{"id":"1","action":"click"}`,
			wantErr: false,
		},
		{
			name:    "missing id",
			input:   `{"action":"click","selector":"#btn"}`,
			wantErr: true,
		},
		{
			name:    "missing action",
			input:   `{"id":"1"}`,
			wantErr: true,
		},
		{
			name:    "unknown action",
			input:   `{"id":"1","action":"screenshot"}`,
			wantErr: true,
		},
		{
			name:    "malformed json",
			input:   `{"id":`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, err := daemoncmd.ParseCommand([]byte(tt.input))
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseCommand() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && tt.check != nil {
				tt.check(t, cmd)
			}
		})
	}
}

func TestSerializeResponse(t *testing.T) {
	tests := []struct {
		name     string
		response daemoncmd.Response
		check    func(*testing.T, []byte)
	}{
		{
			name:     "success response",
			response: daemoncmd.SuccessResponse("1", daemoncmd.TextData{Text: "https://example.com"}),
			check: func(t *testing.T, data []byte) {
				var resp map[string]interface{}
				if err := json.Unmarshal(data, &resp); err != nil {
					t.Fatalf("failed to unmarshal: %v", err)
				}
				if resp["success"] != true {
					t.Error("expected success to be true")
				}
				if resp["id"] != "1" {
					t.Errorf("expected id 1, got %v", resp["id"])
				}
			},
		},
		{
			name:     "success response with nil data",
			response: daemoncmd.SuccessResponse("2", nil),
			check: func(t *testing.T, data []byte) {
				var resp map[string]interface{}
				if err := json.Unmarshal(data, &resp); err != nil {
					t.Fatalf("failed to unmarshal: %v", err)
				}
				if _, present := resp["data"]; present {
					t.Error("expected data field to be omitted")
				}
			},
		},
		{
			name:     "error response",
			response: daemoncmd.ErrorResponse("3", "test error"),
			check: func(t *testing.T, data []byte) {
				var resp map[string]interface{}
				if err := json.Unmarshal(data, &resp); err != nil {
					t.Fatalf("failed to unmarshal: %v", err)
				}
				if resp["success"] != false {
					t.Error("expected success to be false")
				}
				if resp["error"] != "test error" {
					t.Errorf("expected error field, got %v", resp["error"])
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := daemoncmd.SerializeResponse(tt.response)
			if err != nil {
				t.Fatalf("SerializeResponse() error = %v", err)
			}
			tt.check(t, data)
		})
	}
}
