// Package resolve implements the Action Resolver: translating
// reference-addressed actions into Chrome DevTools Protocol operations
// against the outline builder's last emitted handle map, per
// SPEC_FULL.md §4.4.
package resolve

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/webnav-ai/webnav/internal/browsererr"
	"github.com/webnav-ai/webnav/internal/outline"
	"github.com/webnav-ai/webnav/internal/transport"
)

// Resolver holds the single handle map in play at any moment, guarded by a
// mutex as the teacher's ChromeDPBackend guards its RefMap with refLock.
type Resolver struct {
	mu      sync.RWMutex
	handles outline.HandleMap
	browser *transport.Browser
	log     zerolog.Logger
}

// New returns a Resolver with no handle map set; call SetHandles after the
// first outline is built.
func New(browser *transport.Browser, log zerolog.Logger) *Resolver {
	return &Resolver{handles: make(outline.HandleMap), browser: browser, log: log}
}

// SetHandles atomically replaces the resolver's handle map. The previous
// map is never observable again afterward, per SPEC_FULL.md §3.
func (r *Resolver) SetHandles(handles outline.HandleMap) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handles = handles
}

func (r *Resolver) lookup(ref string) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	handle, ok := r.handles[ref]
	if !ok {
		known := make([]string, 0, len(r.handles))
		for k := range r.handles {
			known = append(known, k)
		}
		sort.Strings(known)
		return 0, &browsererr.UnknownRefError{Ref: ref, Known: known}
	}
	return handle, nil
}

type rectResult struct {
	X, Y float64
	OK   bool
}

// resolveAndCenter is the common first half of every pointer-based action:
// look the ref up, scroll it into view, then read its box-model center,
// falling back to a script-based bounding-rect query when the box model is
// unavailable (SPEC_FULL.md §4.4).
func (r *Resolver) resolveAndCenter(ctx context.Context, ref string) (float64, float64, error) {
	handle, err := r.lookup(ref)
	if err != nil {
		return 0, 0, err
	}
	if err := r.browser.ScrollIntoView(ctx, handle); err != nil {
		return 0, 0, err
	}
	x, y, err := r.browser.BoxModelCenter(ctx, handle)
	if err == nil {
		return x, y, nil
	}

	var rect rectResult
	if callErr := r.browser.CallOnHandle(ctx, handle, rectFuncDecl, &rect); callErr != nil {
		return 0, 0, err
	}
	if !rect.OK {
		return 0, 0, err
	}
	return rect.X, rect.Y, nil
}

const rectFuncDecl = `function() {
	const r = this.getBoundingClientRect();
	if (r.width === 0 && r.height === 0) return {OK: false};
	return {X: r.left + r.width / 2, Y: r.top + r.height / 2, OK: true};
}`

// Click resolves ref and dispatches a mousePressed/mouseReleased pair at
// its geometric center.
func (r *Resolver) Click(ctx context.Context, ref string) (string, error) {
	x, y, err := r.resolveAndCenter(ctx, ref)
	if err != nil {
		return "", err
	}
	if err := r.browser.DispatchClick(ctx, x, y); err != nil {
		return "", err
	}
	return fmt.Sprintf("Clicked at (%.0f, %.0f)", x, y), nil
}

// Hover resolves ref and dispatches a mouseMoved event at its center.
func (r *Resolver) Hover(ctx context.Context, ref string) (string, error) {
	x, y, err := r.resolveAndCenter(ctx, ref)
	if err != nil {
		return "", err
	}
	if err := r.browser.DispatchHover(ctx, x, y); err != nil {
		return "", err
	}
	return fmt.Sprintf("Hovered at (%.0f, %.0f)", x, y), nil
}

const clearValueFuncDecl = `function() {
	this.focus();
	this.value = "";
	this.dispatchEvent(new Event("input", {bubbles: true}));
	return {OK: true};
}`

// Fill resolves ref, focuses it, clears its existing value, and dispatches
// text character-by-character.
func (r *Resolver) Fill(ctx context.Context, ref, text string) (string, error) {
	handle, err := r.lookup(ref)
	if err != nil {
		return "", err
	}
	if err := r.browser.ScrollIntoView(ctx, handle); err != nil {
		return "", err
	}
	var cleared rectResult
	if err := r.browser.CallOnHandle(ctx, handle, clearValueFuncDecl, &cleared); err != nil {
		return "", err
	}
	if err := r.browser.DispatchKeyText(ctx, text); err != nil {
		return "", err
	}
	time.Sleep(100 * time.Millisecond)
	return fmt.Sprintf("Filled %q", text), nil
}

// PressKey dispatches one of the fixed non-printable keys (Enter, Tab,
// Escape, Backspace).
func (r *Resolver) PressKey(ctx context.Context, key string) (string, error) {
	if err := r.browser.DispatchSpecialKey(ctx, key); err != nil {
		return "", err
	}
	return fmt.Sprintf("Pressed %s", key), nil
}

// Scroll dispatches a mouseWheel event in the given direction.
func (r *Resolver) Scroll(ctx context.Context, direction string, amount int) (string, error) {
	delta := float64(amount)
	if direction == "up" {
		delta = -delta
	}
	if err := r.browser.DispatchScroll(ctx, delta); err != nil {
		return "", err
	}
	return fmt.Sprintf("Scrolled %s by %d", direction, amount), nil
}

type selectResult struct {
	OK      bool
	Options []string
}

const selectFuncDecl = `function(value) {
	const opts = Array.from(this.options || []);
	const match = opts.find(o => o.value === value || o.textContent.trim() === value);
	if (!match) {
		return {OK: false, Options: opts.map(o => o.textContent.trim())};
	}
	this.value = match.value;
	this.dispatchEvent(new Event("change", {bubbles: true}));
	return {OK: true, Options: []};
}`

// SelectOption resolves ref to a <select> element and searches its options
// by exact value or trimmed text content, failing with OptionNotFoundError
// naming up to ten available labels on a miss.
func (r *Resolver) SelectOption(ctx context.Context, ref, value string) (string, error) {
	handle, err := r.lookup(ref)
	if err != nil {
		return "", err
	}

	var result selectResult
	if err := r.browser.CallOnHandle(ctx, handle, selectFuncDecl, &result, value); err != nil {
		return "", err
	}
	if !result.OK {
		return "", &browsererr.OptionNotFoundError{Ref: ref, Value: value, Available: result.Options}
	}
	return fmt.Sprintf("Selected %q", value), nil
}
