// Package transport launches the browser and speaks the Chrome DevTools
// Protocol domains named in SPEC_FULL.md §6 directly, via
// chromedp.ActionFunc, rather than through chromedp's higher-level
// selector-based helpers. It is the one component that owns the browser
// subprocess and its WebSocket.
package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/chromedp/cdproto/accessibility"
	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/dom"
	"github.com/chromedp/cdproto/input"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"github.com/rs/zerolog"

	"github.com/webnav-ai/webnav/internal/browsererr"
	"github.com/webnav-ai/webnav/internal/outline"
)

// LaunchOptions configures browser launch, grounded in the daemon
// backend's LaunchOptions but trimmed to what the agent loop needs.
type LaunchOptions struct {
	Headless       bool
	Width, Height  int
	ExecutablePath string
	UserDataDir    string
}

// Browser owns one browser subprocess, its allocator context, and the
// accessibility/DOM/input state needed by outline and resolve.
type Browser struct {
	allocCtx    context.Context
	allocCancel context.CancelFunc
	ctx         context.Context
	cancel      context.CancelFunc
	log         zerolog.Logger
}

// New returns a Browser that logs through log.
func New(log zerolog.Logger) *Browser {
	return &Browser{log: log}
}

// Launch spawns the browser binary with the flags named in SPEC_FULL.md §6.
func (b *Browser) Launch(opts LaunchOptions) error {
	chromedpOpts := []chromedp.ExecAllocatorOption{
		chromedp.NoFirstRun,
		chromedp.NoDefaultBrowserCheck,
		chromedp.DisableGPU,
		chromedp.Flag("disable-background-timer-throttling", true),
		chromedp.Flag("disable-backgrounding-occluded-windows", true),
		chromedp.Flag("disable-renderer-backgrounding", true),
	}

	if os.Getenv("WEBNAV_NO_SANDBOX") == "1" {
		chromedpOpts = append(chromedpOpts, chromedp.NoSandbox)
	}
	if opts.Headless {
		chromedpOpts = append(chromedpOpts, chromedp.Headless)
	} else {
		// DefaultExecAllocatorOptions already includes headless; clear it.
		chromedpOpts = append(chromedpOpts, chromedp.Flag("headless", false))
	}
	if opts.ExecutablePath != "" {
		chromedpOpts = append(chromedpOpts, chromedp.ExecPath(opts.ExecutablePath))
	}
	if opts.UserDataDir != "" {
		chromedpOpts = append(chromedpOpts, chromedp.UserDataDir(opts.UserDataDir))
	}
	width, height := opts.Width, opts.Height
	if width == 0 {
		width = 1280
	}
	if height == 0 {
		height = 900
	}
	chromedpOpts = append(chromedpOpts, chromedp.WindowSize(width, height))

	b.allocCtx, b.allocCancel = chromedp.NewExecAllocator(
		context.Background(),
		append(chromedp.DefaultExecAllocatorOptions[:], chromedpOpts...)...,
	)
	b.ctx, b.cancel = chromedp.NewContext(b.allocCtx)

	if err := chromedp.Run(b.ctx,
		page.Enable(),
		runtime.Enable(),
		dom.Enable(),
		accessibility.Enable(),
	); err != nil {
		b.Close()
		return &browsererr.LaunchFailure{Reason: err.Error()}
	}

	b.log.Info().Bool("headless", opts.Headless).Msg("browser launched")
	return nil
}

// Close releases the browser subprocess.
func (b *Browser) Close() error {
	if b.cancel != nil {
		b.cancel()
	}
	if b.allocCancel != nil {
		b.allocCancel()
	}
	return nil
}

// Navigate loads url and waits for the body element to be ready, returning the final
// (possibly redirected) URL and page title.
func (b *Browser) Navigate(ctx context.Context, url string) (string, string, error) {
	var finalURL, title string
	err := chromedp.Run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		if _, _, _, err := page.Navigate(url).Do(ctx); err != nil {
			return err
		}
		return nil
	}),
		chromedp.WaitReady("body"),
		chromedp.Location(&finalURL),
		chromedp.Title(&title),
	)
	if err != nil {
		return "", "", &browsererr.TransportError{Op: "navigate", Err: err}
	}
	b.log.Debug().Str("url", finalURL).Msg("navigated")
	return finalURL, title, nil
}

// FetchAXTree retrieves the full accessibility tree via
// Accessibility.getFullAXTree and converts it into the outline.Node list
// the outline builder consumes.
func (b *Browser) FetchAXTree(ctx context.Context) ([]outline.Node, error) {
	var axNodes []*accessibility.Node
	err := chromedp.Run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		var err error
		axNodes, err = accessibility.GetFullAXTree().Do(ctx)
		return err
	}))
	if err != nil {
		return nil, &browsererr.TransportError{Op: "Accessibility.getFullAXTree", Err: err}
	}

	nodes := make([]outline.Node, 0, len(axNodes))
	for _, n := range axNodes {
		var parentID string
		if n.ParentID != "" {
			parentID = string(n.ParentID)
		}
		role, name := axValue(n.Role), axValue(n.Name)
		nodes = append(nodes, outline.Node{
			ID:            string(n.NodeID),
			ParentID:      parentID,
			Role:          role,
			Name:          name,
			Ignored:       n.Ignored,
			BackendNodeID: int64(n.BackendDOMNodeID),
		})
	}
	return nodes, nil
}

// axValue extracts the string value carried by a role/name AXValue, which
// the CDP wire format represents as {type, value} rather than a bare
// string. See DESIGN.md's grounding note on GangsterSamed-agent's
// parseAccessibilityTree for why this indirection exists.
func axValue(v *accessibility.Value) string {
	if v == nil || v.Value == nil {
		return ""
	}
	if s, ok := v.Value.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v.Value)
}

// CallOnHandle resolves handle to a remote object via DOM.resolveNode and
// invokes funcDecl (a JS function expression called with the element as
// `this` and args as its arguments) on it via Runtime.callFunctionOn, decoding the JSON
// result into out. This is the raw-CDP path SPEC_FULL.md §6 names for
// operations that need to run script against one specific element, such as
// Fill's clear-and-focus and SelectOption's option search.
func (b *Browser) CallOnHandle(ctx context.Context, handle int64, funcDecl string, out any, args ...any) error {
	callArgs := make([]*runtime.CallArgument, 0, len(args))
	for _, a := range args {
		raw, err := json.Marshal(a)
		if err != nil {
			return err
		}
		callArgs = append(callArgs, &runtime.CallArgument{Value: raw})
	}

	var result *runtime.RemoteObject
	var exception *runtime.ExceptionDetails
	err := chromedp.Run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		obj, err := dom.ResolveNode().WithBackendNodeID(cdp.BackendNodeID(handle)).Do(ctx)
		if err != nil {
			return err
		}
		call := runtime.CallFunctionOn(funcDecl).
			WithObjectID(obj.ObjectID).
			WithReturnByValue(true)
		if len(callArgs) > 0 {
			call = call.WithArguments(callArgs)
		}
		result, exception, err = call.Do(ctx)
		return err
	}))
	if err != nil {
		return &browsererr.TransportError{Op: "Runtime.callFunctionOn", Err: err}
	}
	if exception != nil {
		return &browsererr.EvaluationError{Script: funcDecl, Err: fmt.Errorf("%s", exception.Error())}
	}
	if out == nil || result == nil || len(result.Value) == 0 {
		return nil
	}
	return json.Unmarshal(result.Value, out)
}

// Screenshot captures a PNG of the current page.
func (b *Browser) Screenshot(ctx context.Context) ([]byte, error) {
	var buf []byte
	err := chromedp.Run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		var err error
		buf, err = page.CaptureScreenshot().Do(ctx)
		return err
	}))
	if err != nil {
		return nil, &browsererr.TransportError{Op: "Page.captureScreenshot", Err: err}
	}
	return buf, nil
}

// Evaluate runs script in the page and returns its JSON-decoded result.
func (b *Browser) Evaluate(ctx context.Context, script string) (any, error) {
	var result any
	err := chromedp.Run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		res, exp, err := runtime.Evaluate(script).WithReturnByValue(true).Do(ctx)
		if err != nil {
			return err
		}
		if exp != nil {
			return fmt.Errorf("%s", exp.Error())
		}
		if res != nil && len(res.Value) > 0 {
			if err := json.Unmarshal(res.Value, &result); err != nil {
				return err
			}
		}
		return nil
	}))
	if err != nil {
		return nil, &browsererr.EvaluationError{Script: script, Err: err}
	}
	return result, nil
}

// BoxModelCenter resolves handle's box model via DOM.getBoxModel and
// returns the geometric center of its content quadrilateral, per
// SPEC_FULL.md §4.4.
func (b *Browser) BoxModelCenter(ctx context.Context, handle int64) (x, y float64, err error) {
	var box *dom.BoxModel
	runErr := chromedp.Run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		var err error
		box, err = dom.GetBoxModel().WithBackendNodeID(cdp.BackendNodeID(handle)).Do(ctx)
		return err
	}))
	if runErr != nil {
		return 0, 0, &browsererr.TransportError{Op: "DOM.getBoxModel", Err: runErr}
	}
	if box == nil || len(box.Content) < 8 {
		return 0, 0, fmt.Errorf("no box model for handle %d", handle)
	}
	x = (box.Content[0] + box.Content[2] + box.Content[4] + box.Content[6]) / 4
	y = (box.Content[1] + box.Content[3] + box.Content[5] + box.Content[7]) / 4
	return x, y, nil
}

// ScrollIntoView centers handle in the viewport before interaction.
func (b *Browser) ScrollIntoView(ctx context.Context, handle int64) error {
	err := chromedp.Run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		return dom.ScrollIntoViewIfNeeded().WithBackendNodeID(cdp.BackendNodeID(handle)).Do(ctx)
	}))
	if err != nil {
		return &browsererr.TransportError{Op: "DOM.scrollIntoViewIfNeeded", Err: err}
	}
	time.Sleep(200 * time.Millisecond)
	return nil
}

// DispatchClick dispatches a mousePressed/mouseReleased pair at (x, y).
func (b *Browser) DispatchClick(ctx context.Context, x, y float64) error {
	err := chromedp.Run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		if err := input.DispatchMouseEvent(input.MousePressed, x, y).
			WithButton(input.Left).WithClickCount(1).Do(ctx); err != nil {
			return err
		}
		return input.DispatchMouseEvent(input.MouseReleased, x, y).
			WithButton(input.Left).WithClickCount(1).Do(ctx)
	}))
	if err != nil {
		return &browsererr.TransportError{Op: "Input.dispatchMouseEvent", Err: err}
	}
	time.Sleep(300 * time.Millisecond)
	return nil
}

// DispatchHover dispatches a mouseMoved event at (x, y).
func (b *Browser) DispatchHover(ctx context.Context, x, y float64) error {
	err := chromedp.Run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		return input.DispatchMouseEvent(input.MouseMoved, x, y).Do(ctx)
	}))
	if err != nil {
		return &browsererr.TransportError{Op: "Input.dispatchMouseEvent", Err: err}
	}
	time.Sleep(100 * time.Millisecond)
	return nil
}

// DispatchKeyText sends text character-by-character using keyDown/keyUp
// events carrying the "text" field, as the teacher's char-delay Type does
// at a higher level (chromedp_backend.go:Type) but here at the raw
// Input.dispatchKeyEvent level.
func (b *Browser) DispatchKeyText(ctx context.Context, text string) error {
	for _, r := range text {
		ch := string(r)
		err := chromedp.Run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
			if err := input.DispatchKeyEvent(input.KeyDown).WithText(ch).Do(ctx); err != nil {
				return err
			}
			return input.DispatchKeyEvent(input.KeyUp).WithText(ch).Do(ctx)
		}))
		if err != nil {
			return &browsererr.TransportError{Op: "Input.dispatchKeyEvent", Err: err}
		}
	}
	return nil
}

// DispatchSpecialKey sends a non-printable key (Enter, Tab, Escape,
// Backspace) by its DOM key name.
func (b *Browser) DispatchSpecialKey(ctx context.Context, key string) error {
	vk, code := specialKeyCodes(key)
	err := chromedp.Run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		down := input.DispatchKeyEvent(input.KeyDown).WithKey(key).WithCode(code)
		if vk != 0 {
			down = down.WithWindowsVirtualKeyCode(vk).WithNativeVirtualKeyCode(vk)
		}
		if err := down.Do(ctx); err != nil {
			return err
		}
		up := input.DispatchKeyEvent(input.KeyUp).WithKey(key).WithCode(code)
		if vk != 0 {
			up = up.WithWindowsVirtualKeyCode(vk).WithNativeVirtualKeyCode(vk)
		}
		return up.Do(ctx)
	}))
	if err != nil {
		return &browsererr.TransportError{Op: "Input.dispatchKeyEvent", Err: err}
	}
	return nil
}

func specialKeyCodes(key string) (vk int64, code string) {
	switch key {
	case "Enter":
		return 13, "Enter"
	case "Tab":
		return 9, "Tab"
	case "Escape":
		return 27, "Escape"
	case "Backspace":
		return 8, "Backspace"
	default:
		return 0, key
	}
}

// DispatchScroll dispatches a mouseWheel event.
func (b *Browser) DispatchScroll(ctx context.Context, deltaY float64) error {
	err := chromedp.Run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		return input.DispatchMouseEvent(input.MouseWheel, 0, 0).WithDeltaY(deltaY).Do(ctx)
	}))
	if err != nil {
		return &browsererr.TransportError{Op: "Input.dispatchMouseEvent", Err: err}
	}
	time.Sleep(200 * time.Millisecond)
	return nil
}

// Context returns the live browser context. Every Browser method runs its
// chromedp actions on the context it is given, so callers (the run command
// hands it to the agent loop) pass this one or one derived from it.
func (b *Browser) Context() context.Context { return b.ctx }
