package daemoncmd

import (
	"context"
	"fmt"
	"os"
	"sync/atomic"

	"github.com/chromedp/cdproto/accessibility"
	"github.com/chromedp/chromedp"

	"github.com/webnav-ai/webnav/internal/outline"
	"github.com/webnav-ai/webnav/internal/reduce"
)

// ChromeDPBackend drives one browser tab directly through chromedp.
type ChromeDPBackend struct {
	allocCtx    context.Context
	allocCancel context.CancelFunc
	ctx         context.Context
	cancel      context.CancelFunc

	launched atomic.Bool
	headless bool
}

// NewChromeDPBackend constructs an unlaunched backend.
func NewChromeDPBackend() *ChromeDPBackend {
	return &ChromeDPBackend{}
}

// Launch starts the browser subprocess.
func (b *ChromeDPBackend) Launch(opts LaunchOptions) error {
	if b.launched.Load() {
		if b.headless == opts.Headless {
			return nil
		}
		b.Close()
	}

	chromedpOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.NoFirstRun,
		chromedp.NoDefaultBrowserCheck,
		chromedp.DisableGPU,
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("disable-infobars", true),
		chromedp.Flag("excludeSwitches", "enable-automation"),
	)

	if os.Getenv("WEBNAV_NO_SANDBOX") == "1" {
		chromedpOpts = append(chromedpOpts, chromedp.NoSandbox)
	}
	if os.Getenv("WEBNAV_DISABLE_SHM") == "1" {
		chromedpOpts = append(chromedpOpts, chromedp.Flag("disable-dev-shm-usage", true))
	}
	if opts.Headless {
		chromedpOpts = append(chromedpOpts, chromedp.Headless)
	}
	if opts.UserDataDir != "" {
		chromedpOpts = append(chromedpOpts, chromedp.UserDataDir(opts.UserDataDir))
	}

	width, height := opts.Width, opts.Height
	if width == 0 || height == 0 {
		width, height = 1280, 720
	}
	chromedpOpts = append(chromedpOpts, chromedp.WindowSize(width, height))

	b.headless = opts.Headless
	b.allocCtx, b.allocCancel = chromedp.NewExecAllocator(context.Background(), chromedpOpts...)
	b.ctx, b.cancel = chromedp.NewContext(b.allocCtx)

	if err := chromedp.Run(b.ctx); err != nil {
		b.Close()
		return fmt.Errorf("launch browser: %w", err)
	}

	b.launched.Store(true)
	return nil
}

// Close shuts the browser down.
func (b *ChromeDPBackend) Close() error {
	if !b.launched.Load() {
		return nil
	}
	if b.cancel != nil {
		b.cancel()
	}
	if b.allocCancel != nil {
		b.allocCancel()
	}
	b.launched.Store(false)
	return nil
}

// IsLaunched reports whether the browser subprocess is running.
func (b *ChromeDPBackend) IsLaunched() bool {
	return b.launched.Load()
}

// Navigate loads a URL and waits for the body to be ready.
func (b *ChromeDPBackend) Navigate(url string) (string, string, error) {
	var title, finalURL string
	err := chromedp.Run(b.ctx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body"),
		chromedp.Title(&title),
		chromedp.Location(&finalURL),
	)
	if err != nil {
		return "", "", fmt.Errorf("navigate: %w", err)
	}
	return finalURL, title, nil
}

// Back navigates back one history entry.
func (b *ChromeDPBackend) Back() error {
	return chromedp.Run(b.ctx, chromedp.NavigateBack())
}

// Forward navigates forward one history entry.
func (b *ChromeDPBackend) Forward() error {
	return chromedp.Run(b.ctx, chromedp.NavigateForward())
}

// Reload reloads the current page.
func (b *ChromeDPBackend) Reload() error {
	return chromedp.Run(b.ctx, chromedp.Reload())
}

// Click clicks the first visible element matching selector.
func (b *ChromeDPBackend) Click(selector string) error {
	return chromedp.Run(b.ctx, chromedp.Click(selector, chromedp.NodeVisible))
}

// Fill clears an input and types value into it.
func (b *ChromeDPBackend) Fill(selector, value string) error {
	return chromedp.Run(b.ctx,
		chromedp.Clear(selector),
		chromedp.SendKeys(selector, value),
	)
}

// Hover moves the mouse to the center of an element.
func (b *ChromeDPBackend) Hover(selector string) error {
	var x, y float64
	err := chromedp.Run(b.ctx,
		chromedp.ScrollIntoView(selector),
		chromedp.Evaluate(fmt.Sprintf(`
			(function() {
				const el = document.querySelector(%q);
				if (!el) return {x: 0, y: 0};
				const rect = el.getBoundingClientRect();
				return {x: rect.left + rect.width / 2, y: rect.top + rect.height / 2};
			})()
		`, selector), &struct {
			X *float64 `json:"x"`
			Y *float64 `json:"y"`
		}{&x, &y}),
	)
	if err != nil {
		return fmt.Errorf("hover: %w", err)
	}
	return chromedp.Run(b.ctx, chromedp.MouseClickXY(x, y, chromedp.ButtonNone))
}

// Press sends a key event, focusing selector first if given.
func (b *ChromeDPBackend) Press(key, selector string) error {
	if selector != "" {
		return chromedp.Run(b.ctx, chromedp.Focus(selector), chromedp.KeyEvent(key))
	}
	return chromedp.Run(b.ctx, chromedp.KeyEvent(key))
}

// Scroll scrolls the page by amount pixels in one direction.
func (b *ChromeDPBackend) Scroll(direction string, amount int) error {
	dx, dy := 0, 0
	switch direction {
	case "up":
		dy = -amount
	case "down":
		dy = amount
	case "left":
		dx = -amount
	case "right":
		dx = amount
	}
	return chromedp.Run(b.ctx, chromedp.Evaluate(fmt.Sprintf("window.scrollBy(%d, %d)", dx, dy), nil))
}

// Evaluate runs a JavaScript expression and returns its value.
func (b *ChromeDPBackend) Evaluate(script string) (interface{}, error) {
	var result interface{}
	err := chromedp.Run(b.ctx, chromedp.Evaluate(script, &result))
	return result, err
}

// GetText reads an element's text content.
func (b *ChromeDPBackend) GetText(selector string) (string, error) {
	var text string
	err := chromedp.Run(b.ctx, chromedp.Text(selector, &text))
	return text, err
}

// Title reads the page title.
func (b *ChromeDPBackend) Title() (string, error) {
	var title string
	err := chromedp.Run(b.ctx, chromedp.Title(&title))
	return title, err
}

// URL reads the current URL.
func (b *ChromeDPBackend) URL() (string, error) {
	var url string
	err := chromedp.Run(b.ctx, chromedp.Location(&url))
	return url, err
}

// Outline fetches the full accessibility tree via
// Accessibility.getFullAXTree and renders it through the same
// outline/reduce pipeline the agent loop uses.
func (b *ChromeDPBackend) Outline() (string, error) {
	var axNodes []*accessibility.Node
	err := chromedp.Run(b.ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		var err error
		axNodes, err = accessibility.GetFullAXTree().Do(ctx)
		return err
	}))
	if err != nil {
		return "", fmt.Errorf("Accessibility.getFullAXTree: %w", err)
	}

	nodes := make([]outline.Node, 0, len(axNodes))
	for _, n := range axNodes {
		var parentID string
		if n.ParentID != "" {
			parentID = string(n.ParentID)
		}
		nodes = append(nodes, outline.Node{
			ID:            string(n.NodeID),
			ParentID:      parentID,
			Role:          axString(n.Role),
			Name:          axString(n.Name),
			Ignored:       n.Ignored,
			BackendNodeID: int64(n.BackendDOMNodeID),
		})
	}

	text, _ := outline.Build(nodes)
	return reduce.Optimize(text, reduce.Options{}), nil
}

// axString extracts the string payload of a CDP accessibility value,
// which the wire format carries as {type, value} rather than a bare
// string.
func axString(v *accessibility.Value) string {
	if v == nil || v.Value == nil {
		return ""
	}
	s, ok := v.Value.(string)
	if !ok {
		return ""
	}
	return s
}
