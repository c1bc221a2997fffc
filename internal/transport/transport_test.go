package transport

import (
	"testing"

	"github.com/chromedp/cdproto/accessibility"
)

func TestAxValue_StringValue(t *testing.T) {
	v := &accessibility.Value{Value: "button"}
	if got := axValue(v); got != "button" {
		t.Errorf("expected %q, got %q", "button", got)
	}
}

func TestAxValue_Nil(t *testing.T) {
	if got := axValue(nil); got != "" {
		t.Errorf("expected empty string for nil value, got %q", got)
	}
	if got := axValue(&accessibility.Value{}); got != "" {
		t.Errorf("expected empty string for nil inner value, got %q", got)
	}
}

func TestAxValue_NonStringValue(t *testing.T) {
	v := &accessibility.Value{Value: 42}
	if got := axValue(v); got != "42" {
		t.Errorf("expected %q, got %q", "42", got)
	}
}

func TestSpecialKeyCodes(t *testing.T) {
	cases := []struct {
		key      string
		wantVK   int64
		wantCode string
	}{
		{"Enter", 13, "Enter"},
		{"Tab", 9, "Tab"},
		{"Escape", 27, "Escape"},
		{"Backspace", 8, "Backspace"},
		{"a", 0, "a"},
	}
	for _, c := range cases {
		vk, code := specialKeyCodes(c.key)
		if vk != c.wantVK || code != c.wantCode {
			t.Errorf("specialKeyCodes(%q) = (%d, %q), want (%d, %q)", c.key, vk, code, c.wantVK, c.wantCode)
		}
	}
}
