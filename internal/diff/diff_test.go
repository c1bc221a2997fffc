package diff_test

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/webnav-ai/webnav/internal/diff"
)

func TestDiff_IdenticalOutlineIsEmpty(t *testing.T) {
	out := `- heading "Title" [ref=e1]
- link "Home" [ref=e2]`

	r := diff.Diff(out, out, "https://a.test", "https://a.test")

	if !r.IsEmpty {
		t.Errorf("expected empty diff, got added=%v removed=%v changed=%v", r.Added, r.Removed, r.Changed)
	}
	if r.IsLargeDiff {
		t.Error("expected not a large diff")
	}
}

func TestDiff_AddedAndRemoved(t *testing.T) {
	prev := `- link "Home" [ref=e1]
- button "Old" [ref=e2]`
	curr := `- link "Home" [ref=e1]
- button "New" [ref=e3]`

	r := diff.Diff(prev, curr, "https://a.test", "https://a.test")

	if len(r.Added) != 1 || r.Added[0].Name != "New" {
		t.Errorf("expected one added button 'New', got %v", r.Added)
	}
	if len(r.Removed) != 1 || r.Removed[0].Name != "Old" {
		t.Errorf("expected one removed button 'Old', got %v", r.Removed)
	}
}

func TestDiff_ChangedByRef(t *testing.T) {
	prev := `- button "Submit" [ref=e1]`
	curr := `- button "Submitting..." [ref=e1]`

	r := diff.Diff(prev, curr, "https://a.test", "https://a.test")

	want := []diff.Change{{Role: "button", Ref: "e1", Old: "Submit", New: "Submitting..."}}
	if d := cmp.Diff(want, r.Changed); d != "" {
		t.Errorf("unexpected Changed (-want +got):\n%s", d)
	}
}

func TestDiff_LargeDiffThreshold(t *testing.T) {
	prev := `- link "A" [ref=e1]`
	curr := `- link "B" [ref=e2]
- link "C" [ref=e3]
- link "D" [ref=e4]`

	r := diff.Diff(prev, curr, "https://a.test", "https://a.test")

	if !r.IsLargeDiff {
		t.Errorf("expected large diff, ratio=%v", r.DiffRatio)
	}
}

func TestDiff_NoiseRolesExcludedFromAddedRemoved(t *testing.T) {
	prev := ``
	curr := `- generic "wrapper"
- link "Home" [ref=e1]`

	r := diff.Diff(prev, curr, "https://a.test", "https://a.test")

	for _, e := range r.Added {
		if e.Role == "generic" {
			t.Errorf("expected generic role filtered from Added, got %v", r.Added)
		}
	}
}

func TestDiff_RenderedTextHasURLHeader(t *testing.T) {
	r := diff.Diff("", `- heading "Title" [ref=e1]`, "https://a.test", "https://b.test")

	if !strings.Contains(r.Text, "URL: https://b.test") {
		t.Errorf("expected URL header, got:\n%s", r.Text)
	}
	if !strings.Contains(r.Text, "CHANGED from https://a.test") {
		t.Errorf("expected CHANGED-from header, got:\n%s", r.Text)
	}
}
