package agent

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/webnav-ai/webnav/internal/diff"
)

func TestBuildObservation_EmptyDiff(t *testing.T) {
	report := diff.Diff("- heading \"Title\" [ref=e1]", "- heading \"Title\" [ref=e1]", "https://a.test", "https://a.test")

	got := buildObservation("Clicked at (1, 2)", report, "https://a.test", "- heading \"Title\" [ref=e1]")

	assert.Equal(t, "Action: Clicked at (1, 2)\nNo visible changes on the page.", got)
}

func TestBuildObservation_LargeDiffShowsFullOutline(t *testing.T) {
	prev := `- link "A" [ref=e1]`
	curr := `- link "B" [ref=e2]
- link "C" [ref=e3]
- link "D" [ref=e4]`
	report := diff.Diff(prev, curr, "https://a.test", "https://b.test")

	got := buildObservation("Navigated to https://b.test", report, "https://b.test", curr)

	assert.Contains(t, got, "New page snapshot:")
	assert.Contains(t, got, curr)
	assert.NotContains(t, got, "Changes:")
}

func TestBuildObservation_NormalDiffShowsChangesBlock(t *testing.T) {
	prev := `- heading "Checkout" [ref=e2]
- link "Cart" [ref=e3]
- button "Submit" [ref=e1]`
	curr := `- heading "Checkout" [ref=e2]
- link "Cart" [ref=e3]
- button "Submitting..." [ref=e1]`
	report := diff.Diff(prev, curr, "https://a.test", "https://a.test")

	got := buildObservation("Clicked at (1, 2)", report, "https://a.test", curr)

	assert.Contains(t, got, "Changes:")
	assert.NotContains(t, got, "New page snapshot:")
}

func TestStringArg_MissingKeyReturnsEmpty(t *testing.T) {
	assert.Equal(t, "", stringArg(map[string]any{}, "ref"))
	assert.Equal(t, "e3", stringArg(map[string]any{"ref": "e3"}, "ref"))
}

func TestIntArg_DefaultsOnWrongType(t *testing.T) {
	assert.Equal(t, 600, intArg(map[string]any{}, "amount", 600))
	assert.Equal(t, 300, intArg(map[string]any{"amount": float64(300)}, "amount", 600))
}

func TestTruncate_CapsAtN(t *testing.T) {
	assert.Equal(t, "hello", truncate("hello world", 5))
	assert.Equal(t, "hi", truncate("hi", 5))
}
