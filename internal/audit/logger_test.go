package audit

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func readEvents(t *testing.T, path string) []Event {
	t.Helper()
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read file: %v", err)
	}
	var out []Event
	for _, line := range strings.Split(strings.TrimSpace(string(raw)), "\n") {
		var e Event
		if err := json.Unmarshal([]byte(line), &e); err != nil {
			t.Fatalf("decode %q: %v", line, err)
		}
		out = append(out, e)
	}
	return out
}

func TestLoggerAppendOnly(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.jsonl")

	logger, err := NewLogger(path)
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}
	if err := logger.LogEvent(context.Background(), EventSessionStart, map[string]any{"chat_id": "c1", "mode": "request"}); err != nil {
		t.Fatalf("log 1: %v", err)
	}
	if err := logger.LogEvent(context.Background(), EventSessionTurn, map[string]any{"chat_id": "c1"}); err != nil {
		t.Fatalf("log 2: %v", err)
	}
	if err := logger.Close(); err != nil {
		t.Fatalf("close logger: %v", err)
	}

	logger, err = NewLogger(path)
	if err != nil {
		t.Fatalf("reopen logger: %v", err)
	}
	if err := logger.LogEvent(context.Background(), EventToolCall, map[string]any{"tool": "get_inventory"}); err != nil {
		t.Fatalf("log 3: %v", err)
	}
	if err := logger.Close(); err != nil {
		t.Fatalf("close logger: %v", err)
	}

	events := readEvents(t, path)
	if len(events) != 3 {
		t.Fatalf("expected 3 events, got %d", len(events))
	}
	if events[0].Type != EventSessionStart || events[0].ChatID != "c1" || events[0].Mode != "request" {
		t.Fatalf("unexpected first event: %+v", events[0])
	}
	if events[2].Tool != "get_inventory" {
		t.Fatalf("unexpected tool event: %+v", events[2])
	}
}

func TestLoggerKeepsOtherFieldsInPayload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.jsonl")
	logger, err := NewLogger(path)
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	logger.now = func() time.Time { return fixed }

	err = logger.LogEvent(context.Background(), EventToolResult, map[string]any{
		"tool":  "set_price",
		"error": "item with id x does not exist",
		"mode":  7,
	})
	if err != nil {
		t.Fatalf("log: %v", err)
	}
	if err := logger.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	events := readEvents(t, path)
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	e := events[0]
	if !e.Timestamp.Equal(fixed) {
		t.Fatalf("unexpected timestamp: %v", e.Timestamp)
	}
	if e.Tool != "set_price" || e.Mode != "" {
		t.Fatalf("unexpected top-level fields: %+v", e)
	}
	if e.Payload["error"] != "item with id x does not exist" {
		t.Fatalf("missing error in payload: %v", e.Payload)
	}
	if e.Payload["mode"] != float64(7) {
		t.Fatalf("non-string mode should stay in payload: %v", e.Payload)
	}
}

func TestLoggerReopensAfterClose(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "audit.jsonl")
	logger, err := NewLogger(path)
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}
	if err := logger.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := logger.LogEvent(context.Background(), EventToolCall, nil); err != nil {
		t.Fatalf("log after close: %v", err)
	}
	if err := logger.Close(); err != nil {
		t.Fatalf("close again: %v", err)
	}
	if events := readEvents(t, path); len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
}
