package agent

import "github.com/webnav-ai/webnav/internal/llm"

// toolSchema is the fixed set of tools offered to the model every step,
// per SPEC_FULL.md §6. Parameter shapes follow §4.4 (Action Resolver) and
// §4.5 (Agent Loop).
func toolSchema() []llm.Tool {
	str := func(desc string) map[string]any {
		return map[string]any{"type": "string", "description": desc}
	}
	enum := func(desc string, values ...string) map[string]any {
		return map[string]any{"type": "string", "description": desc, "enum": values}
	}
	return []llm.Tool{
		{
			Name:        "navigate",
			Description: "Navigate the browser to a URL.",
			InputSchema: schema(map[string]any{"url": str("Absolute URL to load")}, "url"),
		},
		{
			Name:        "click",
			Description: "Click the element addressed by ref.",
			InputSchema: schema(map[string]any{"ref": str("Reference token from the current outline, e.g. e3")}, "ref"),
		},
		{
			Name:        "fill",
			Description: "Clear and fill a text input addressed by ref.",
			InputSchema: schema(map[string]any{
				"ref":  str("Reference token from the current outline"),
				"text": str("Text to type"),
			}, "ref", "text"),
		},
		{
			Name:        "hover",
			Description: "Move the pointer over the element addressed by ref.",
			InputSchema: schema(map[string]any{"ref": str("Reference token from the current outline")}, "ref"),
		},
		{
			Name:        "select_option",
			Description: "Select an option by value or visible text on a <select> element addressed by ref.",
			InputSchema: schema(map[string]any{
				"ref":   str("Reference token from the current outline"),
				"value": str("Option value or trimmed visible text"),
			}, "ref", "value"),
		},
		{
			Name:        "press_key",
			Description: "Press a non-printable key.",
			InputSchema: schema(map[string]any{"key": enum("Key to press", "Enter", "Tab", "Escape", "Backspace")}, "key"),
		},
		{
			Name:        "scroll",
			Description: "Scroll the page.",
			InputSchema: schema(map[string]any{
				"direction": enum("Scroll direction", "down", "up"),
				"amount":    map[string]any{"type": "integer", "description": "Pixels to scroll, default 600"},
			}, "direction"),
		},
		{
			Name:        "screenshot",
			Description: "Capture a PNG screenshot of the current page.",
			InputSchema: schema(map[string]any{}),
		},
		{
			Name:        "extract_text",
			Description: "Return the page's visible text content.",
			InputSchema: schema(map[string]any{}),
		},
		{
			Name:        "done",
			Description: "End the task and return the final result to the user.",
			InputSchema: schema(map[string]any{"result": str("Final answer or summary")}, "result"),
		},
	}
}

func schema(props map[string]any, required ...string) map[string]any {
	s := map[string]any{"type": "object", "properties": props}
	if len(required) > 0 {
		s["required"] = required
	}
	return s
}
