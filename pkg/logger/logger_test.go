package logger

import (
	"strings"
	"testing"

	"go.uber.org/zap/zaptest/observer"
)

func TestInitAndLevelString(t *testing.T) {
	Init("debug")
	if got := LevelString(); got != "debug" {
		t.Fatalf("LevelString() = %q, want %q", got, "debug")
	}
	Init("WARN")
	if got := LevelString(); got != "warn" {
		t.Fatalf("LevelString() = %q, want %q", got, "warn")
	}
	Init("Error")
	if got := LevelString(); got != "error" {
		t.Fatalf("LevelString() = %q, want %q", got, "error")
	}
	Init("nonsense")
	if got := LevelString(); got != "info" {
		t.Fatalf("LevelString() = %q, want %q for unknown input", got, "info")
	}
}

func TestLevelFilteringAndPrintln(t *testing.T) {
	core, logs := observer.New(AtomicLevel())
	restore := SetCore(core)
	defer restore()
	defer Init("info")

	Init("warn")
	Debugf("debug-msg")
	Infof("info-msg")
	Warnf("warn-msg")
	Errorf("error-msg %d", 7)

	var msgs []string
	for _, e := range logs.TakeAll() {
		msgs = append(msgs, e.Message)
	}
	out := strings.Join(msgs, "\n")
	if strings.Contains(out, "debug-msg") {
		t.Fatalf("debug messages should be suppressed at warn level")
	}
	if strings.Contains(out, "info-msg") {
		t.Fatalf("info messages should be suppressed at warn level")
	}
	if !strings.Contains(out, "warn-msg") {
		t.Fatalf("warn message missing: %q", out)
	}
	if !strings.Contains(out, "error-msg 7") {
		t.Fatalf("error message missing: %q", out)
	}

	Println("hello")
	if logs.FilterMessageSnippet("hello").Len() != 0 {
		t.Fatalf("Println should be suppressed at warn level")
	}

	Init("info")
	Println("hello")
	if logs.FilterMessageSnippet("hello").Len() != 1 {
		t.Fatalf("Println expected at info level, got: %v", logs.All())
	}
}

func TestInfowCarriesFields(t *testing.T) {
	core, logs := observer.New(AtomicLevel())
	restore := SetCore(core)
	defer restore()
	Init("info")

	Infow("document deleted", "documentId", "d1")
	entries := logs.FilterMessage("document deleted").All()
	if len(entries) != 1 {
		t.Fatalf("expected one entry, got %d", len(entries))
	}
	if got := entries[0].ContextMap()["documentId"]; got != "d1" {
		t.Fatalf("documentId field = %v", got)
	}
}
