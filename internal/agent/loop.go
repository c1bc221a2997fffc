// Package agent implements the cooperative, single-threaded Agent Loop
// described in SPEC_FULL.md §4.5: it alternates model turns and browser
// turns, feeding the model a fresh outline or diff after every action
// until it calls the fixed done tool or the step budget is exhausted.
package agent

import (
	"context"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/webnav-ai/webnav/internal/browsererr"
	"github.com/webnav-ai/webnav/internal/diff"
	"github.com/webnav-ai/webnav/internal/llm"
	"github.com/webnav-ai/webnav/internal/outline"
	"github.com/webnav-ai/webnav/internal/reduce"
	"github.com/webnav-ai/webnav/internal/resolve"
	"github.com/webnav-ai/webnav/internal/transport"
)

const (
	defaultMaxSteps    = 25
	stepTokenCap       = 1024
	stepEntryMaxChars  = 200
	postActionSettle   = 300 * time.Millisecond
	stepExhaustedNotes = "Browser task hit step limit. Partial results may be available."
)

// StepEntry is one recorded step in the returned log, its result truncated
// to 200 characters per SPEC_FULL.md §4.5.
type StepEntry struct {
	Step   int
	Action string
	Result string
}

// Usage totals token consumption and model-call count across a session.
type Usage struct {
	InputTokens  int
	OutputTokens int
	ModelCalls   int
}

// Result is BrowseWeb's public output, per SPEC_FULL.md §6.
type Result struct {
	Result string
	Usage  Usage
	Steps  []StepEntry
}

// Loop owns one browsing session: a browser, its resolver, and the model
// client driving it.
type Loop struct {
	browser  *transport.Browser
	resolver *resolve.Resolver
	model    llm.Client
	log      zerolog.Logger
	maxSteps int

	// Events, if non-nil, receives one Event per lifecycle transition.
	// Sends are non-blocking: a full or absent channel never stalls the
	// loop.
	Events chan<- Event
	// OnStep, if non-nil, is invoked after every recorded step entry.
	OnStep func(StepEntry)
}

// New builds a Loop around an already-launched browser.
func New(browser *transport.Browser, model llm.Client, log zerolog.Logger, maxSteps int) *Loop {
	if maxSteps <= 0 {
		maxSteps = defaultMaxSteps
	}
	return &Loop{
		browser:  browser,
		resolver: resolve.New(browser, log),
		model:    model,
		log:      log,
		maxSteps: maxSteps,
	}
}

func (l *Loop) emit(ev Event) {
	if l.Events == nil {
		return
	}
	select {
	case l.Events <- ev:
	default:
	}
}

func systemPrompt(task string) string {
	return fmt.Sprintf(`You control a real web browser through a small set of tools. You are shown the page as an indented accessibility outline, not a screenshot. Every interactive element in the outline carries a reference token like [ref=e3]; address elements by that token with the click, fill, hover, and select_option tools. References are only valid for the outline they appeared in — after any action you will be shown a fresh outline or a diff against the previous one, and old references may no longer resolve.

Task: %s

Call the done tool with your final result as soon as the task is complete, or if it becomes impossible to continue.`, task)
}

// Run drives one session from startURL until the model calls done, returns
// plain text with no tool calls, or the step budget is exhausted.
func (l *Loop) Run(ctx context.Context, startURL, task string) (Result, error) {
	l.emit(Event{Kind: EventLaunch})

	url, _, err := l.browser.Navigate(ctx, startURL)
	if err != nil {
		l.emit(Event{Kind: EventError, Err: err})
		return Result{}, err
	}
	l.emit(Event{Kind: EventNavigate, URL: url})

	currentOutline, err := l.snapshot(ctx)
	if err != nil {
		l.emit(Event{Kind: EventError, Err: err})
		return Result{}, err
	}
	currentURL := url

	messages := []llm.Message{
		{Role: "user", Content: fmt.Sprintf("URL: %s\n\n%s", currentURL, currentOutline)},
	}

	result := Result{}
	for step := 1; step <= l.maxSteps; step++ {
		if err := ctx.Err(); err != nil {
			l.closeOnError(err)
			return Result{}, err
		}

		resp, err := l.model.Generate(ctx, llm.Request{
			System:    systemPrompt(task),
			Messages:  messages,
			Tools:     toolSchema(),
			MaxTokens: stepTokenCap,
		})
		if err != nil {
			l.closeOnError(err)
			return Result{}, err
		}
		result.Usage.ModelCalls++
		result.Usage.InputTokens += resp.Usage.InputTokens
		result.Usage.OutputTokens += resp.Usage.OutputTokens

		if len(resp.ToolCalls) == 0 {
			l.close()
			result.Result = resp.Text
			return result, nil
		}

		messages = append(messages, llm.Message{Role: "assistant", Content: resp.Text, ToolCalls: resp.ToolCalls})

		for _, call := range resp.ToolCalls {
			if call.Name == "done" {
				l.close()
				result.Result = stringArg(call.Input, "result")
				entry := StepEntry{Step: step, Action: call.Name, Result: truncate(result.Result, stepEntryMaxChars)}
				result.Steps = append(result.Steps, entry)
				if l.OnStep != nil {
					l.OnStep(entry)
				}
				return result, nil
			}

			toolResult, toolErr := l.invoke(ctx, call)
			var observation string
			if toolErr != nil {
				observation = "Error: " + toolErr.Error()
			} else {
				observation = toolResult
			}

			entry := StepEntry{Step: step, Action: call.Name, Result: truncate(observation, stepEntryMaxChars)}
			result.Steps = append(result.Steps, entry)
			if l.OnStep != nil {
				l.OnStep(entry)
			}

			time.Sleep(postActionSettle)

			newOutline, err := l.snapshot(ctx)
			if err != nil {
				l.closeOnError(err)
				return Result{}, err
			}
			newURL := currentURL
			if call.Name == "navigate" {
				if u := stringArg(call.Input, "url"); u != "" {
					newURL = u
				}
			}

			report := diff.Diff(currentOutline, newOutline, currentURL, newURL)
			observation = buildObservation(observation, report, newURL, newOutline)

			currentOutline = newOutline
			currentURL = newURL

			messages = append(messages, llm.Message{Role: "tool", ToolCallID: call.ID, Content: observation})
		}
	}

	l.close()
	result.Result = stepExhaustedNotes
	return result, nil
}

// buildObservation renders the per-step observation per SPEC_FULL.md §4.5's
// three branches: empty diff, large diff, or a normal changes block.
func buildObservation(actionLine string, report diff.Report, url, fullOutline string) string {
	switch {
	case report.IsEmpty:
		return fmt.Sprintf("Action: %s\nNo visible changes on the page.", actionLine)
	case report.IsLargeDiff:
		return fmt.Sprintf("Action: %s\nURL: %s\n\nNew page snapshot:\n%s", actionLine, url, fullOutline)
	default:
		return fmt.Sprintf("Action: %s\n\nChanges:\n%s", actionLine, report.Text)
	}
}

// snapshot fetches the accessibility tree, builds the outline, replaces
// the resolver's handle map, and runs it through the reducer pipeline.
func (l *Loop) snapshot(ctx context.Context) (string, error) {
	nodes, err := l.browser.FetchAXTree(ctx)
	if err != nil {
		return "", err
	}
	text, handles := outline.Build(nodes)
	l.resolver.SetHandles(handles)
	reduced := reduce.Optimize(text, reduce.Options{})
	l.emit(Event{Kind: EventSnapshot, Outline: reduced})
	return reduced, nil
}

// invoke executes one tool call. Errors are wrapped as *browsererr.ToolError
// so the loop can catch them uniformly and surface "Error: <message>"
// without terminating the session, per SPEC_FULL.md §7.
func (l *Loop) invoke(ctx context.Context, call llm.ToolCall) (string, error) {
	wrap := func(err error) error {
		if err == nil {
			return nil
		}
		return &browsererr.ToolError{Tool: call.Name, Err: err}
	}

	switch call.Name {
	case "navigate":
		url := stringArg(call.Input, "url")
		l.emit(Event{Kind: EventAction, Action: "navigate", URL: url})
		finalURL, _, err := l.browser.Navigate(ctx, url)
		if err != nil {
			return "", wrap(err)
		}
		return fmt.Sprintf("Navigated to %s", finalURL), nil

	case "click":
		ref := stringArg(call.Input, "ref")
		l.emit(Event{Kind: EventAction, Action: "click", Ref: ref})
		res, err := l.resolver.Click(ctx, ref)
		return res, wrap(err)

	case "fill":
		ref, text := stringArg(call.Input, "ref"), stringArg(call.Input, "text")
		l.emit(Event{Kind: EventAction, Action: "fill", Ref: ref, Text: text})
		res, err := l.resolver.Fill(ctx, ref, text)
		return res, wrap(err)

	case "hover":
		ref := stringArg(call.Input, "ref")
		l.emit(Event{Kind: EventAction, Action: "hover", Ref: ref})
		res, err := l.resolver.Hover(ctx, ref)
		return res, wrap(err)

	case "select_option":
		ref, value := stringArg(call.Input, "ref"), stringArg(call.Input, "value")
		l.emit(Event{Kind: EventAction, Action: "select_option", Ref: ref, Value: value})
		res, err := l.resolver.SelectOption(ctx, ref, value)
		return res, wrap(err)

	case "press_key":
		key := stringArg(call.Input, "key")
		l.emit(Event{Kind: EventAction, Action: "press_key", Value: key})
		res, err := l.resolver.PressKey(ctx, key)
		return res, wrap(err)

	case "scroll":
		direction := stringArg(call.Input, "direction")
		amount := intArg(call.Input, "amount", 600)
		l.emit(Event{Kind: EventAction, Action: "scroll", Value: direction})
		res, err := l.resolver.Scroll(ctx, direction, amount)
		return res, wrap(err)

	case "screenshot":
		png, err := l.browser.Screenshot(ctx)
		if err != nil {
			return "", wrap(err)
		}
		encoded := base64.StdEncoding.EncodeToString(png)
		return fmt.Sprintf("Captured screenshot (%d bytes png, base64 prefix): %s...", len(png), encoded[:min(64, len(encoded))]), nil

	case "extract_text":
		res, err := l.browser.Evaluate(ctx, "document.body ? document.body.innerText : ''")
		if err != nil {
			return "", wrap(err)
		}
		return fmt.Sprintf("%v", res), nil

	default:
		return "", &browsererr.ToolError{Tool: call.Name, Err: fmt.Errorf("unknown tool %q", call.Name)}
	}
}

func (l *Loop) close() {
	_ = l.browser.Close()
	l.emit(Event{Kind: EventClose})
}

func (l *Loop) closeOnError(err error) {
	_ = l.browser.Close()
	l.emit(Event{Kind: EventError, Err: err})
}

func stringArg(input map[string]any, key string) string {
	if v, ok := input[key].(string); ok {
		return v
	}
	return ""
}

func intArg(input map[string]any, key string, def int) int {
	switch v := input[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	default:
		return def
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

