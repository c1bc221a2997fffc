package daemoncmd_test

import (
	"testing"

	daemoncmd "github.com/webnav-ai/webnav/internal/daemoncmd"
)

func TestBackend_LaunchAndClose(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	backend := daemoncmd.NewBackend(daemoncmd.BackendChromedp)

	if err := backend.Launch(daemoncmd.LaunchOptions{Headless: true}); err != nil {
		t.Fatalf("Launch() error = %v", err)
	}
	if !backend.IsLaunched() {
		t.Error("expected backend to be launched")
	}

	if err := backend.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if backend.IsLaunched() {
		t.Error("expected backend to be closed")
	}
}

func TestBackend_Navigate(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	backend := daemoncmd.NewBackend(daemoncmd.BackendChromedp)
	if err := backend.Launch(daemoncmd.LaunchOptions{Headless: true}); err != nil {
		t.Fatalf("Launch() error = %v", err)
	}
	defer backend.Close()

	url, title, err := backend.Navigate("https://example.com")
	if err != nil {
		t.Fatalf("Navigate() error = %v", err)
	}
	if url != "https://example.com/" {
		t.Errorf("expected URL https://example.com/, got %s", url)
	}
	if title != "Example Domain" {
		t.Errorf("expected title 'Example Domain', got %s", title)
	}
}

func TestBackend_GetText(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	backend := daemoncmd.NewBackend(daemoncmd.BackendChromedp)
	if err := backend.Launch(daemoncmd.LaunchOptions{Headless: true}); err != nil {
		t.Fatalf("Launch() error = %v", err)
	}
	defer backend.Close()

	if _, _, err := backend.Navigate("https://example.com"); err != nil {
		t.Fatalf("Navigate() error = %v", err)
	}

	text, err := backend.GetText("h1")
	if err != nil {
		t.Fatalf("GetText() error = %v", err)
	}
	if text != "Example Domain" {
		t.Errorf("expected 'Example Domain', got %s", text)
	}
}

func TestBackend_Evaluate(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	backend := daemoncmd.NewBackend(daemoncmd.BackendChromedp)
	if err := backend.Launch(daemoncmd.LaunchOptions{Headless: true}); err != nil {
		t.Fatalf("Launch() error = %v", err)
	}
	defer backend.Close()

	if _, _, err := backend.Navigate("https://example.com"); err != nil {
		t.Fatalf("Navigate() error = %v", err)
	}

	result, err := backend.Evaluate("document.title")
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	if result != "Example Domain" {
		t.Errorf("expected 'Example Domain', got %v", result)
	}
}

func TestBackend_Outline(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	backend := daemoncmd.NewBackend(daemoncmd.BackendChromedp)
	if err := backend.Launch(daemoncmd.LaunchOptions{Headless: true}); err != nil {
		t.Fatalf("Launch() error = %v", err)
	}
	defer backend.Close()

	if _, _, err := backend.Navigate("https://example.com"); err != nil {
		t.Fatalf("Navigate() error = %v", err)
	}

	outline, err := backend.Outline()
	if err != nil {
		t.Fatalf("Outline() error = %v", err)
	}
	if outline == "" {
		t.Error("expected non-empty outline")
	}
}

func TestBackend_History(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	backend := daemoncmd.NewBackend(daemoncmd.BackendChromedp)
	if err := backend.Launch(daemoncmd.LaunchOptions{Headless: true}); err != nil {
		t.Fatalf("Launch() error = %v", err)
	}
	defer backend.Close()

	if _, _, err := backend.Navigate("https://example.com"); err != nil {
		t.Fatalf("Navigate() error = %v", err)
	}
	if _, _, err := backend.Navigate("https://example.org"); err != nil {
		t.Fatalf("Navigate() error = %v", err)
	}
	if err := backend.Back(); err != nil {
		t.Fatalf("Back() error = %v", err)
	}
	if err := backend.Forward(); err != nil {
		t.Fatalf("Forward() error = %v", err)
	}
	if err := backend.Reload(); err != nil {
		t.Fatalf("Reload() error = %v", err)
	}
}
