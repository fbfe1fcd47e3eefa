// Package audit appends a JSON line per tool invocation and session event so
// the operator can reconstruct what the model did to the ledger.
package audit

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"
)

const (
	EventSessionStart = "session.start"
	EventSessionTurn  = "session.turn"
	EventToolCall     = "tool.call"
	EventToolResult   = "tool.result"
	defaultFileMode   = 0o600
	defaultDirMode    = 0o755
	defaultLineBreak  = '\n'
)

type Event struct {
	Timestamp time.Time      `json:"ts"`
	Type      string         `json:"type"`
	ChatID    string         `json:"chat_id,omitempty"`
	Mode      string         `json:"mode,omitempty"`
	Tool      string         `json:"tool,omitempty"`
	Payload   map[string]any `json:"payload,omitempty"`
}

type Logger struct {
	path   string
	now    func() time.Time
	mu     sync.Mutex
	file   *os.File
	writer *bufio.Writer
}

func NewLogger(path string) (*Logger, error) {
	if err := os.MkdirAll(filepath.Dir(path), defaultDirMode); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, defaultFileMode)
	if err != nil {
		return nil, err
	}
	return &Logger{path: path, now: time.Now, file: f, writer: bufio.NewWriterSize(f, 32*1024)}, nil
}

func (l *Logger) Path() string { return l.path }

// LogEvent writes one event. The chat_id, mode and tool fields are lifted to
// the top level; everything else lands in the payload.
func (l *Logger) LogEvent(_ context.Context, eventType string, fields map[string]any) error {
	e := Event{Type: eventType, Timestamp: l.now().UTC()}

	payload := make(map[string]any)
	for k, v := range fields {
		s, isString := v.(string)
		switch {
		case k == "chat_id" && isString:
			e.ChatID = s
		case k == "mode" && isString:
			e.Mode = s
		case k == "tool" && isString:
			e.Tool = s
		default:
			payload[k] = v
		}
	}
	if len(payload) > 0 {
		e.Payload = payload
	}

	line, err := json.Marshal(e)
	if err != nil {
		return err
	}
	line = append(line, defaultLineBreak)

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file == nil || l.writer == nil {
		f, err := os.OpenFile(l.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, defaultFileMode)
		if err != nil {
			return err
		}
		l.file = f
		l.writer = bufio.NewWriterSize(f, 32*1024)
	}

	if _, err := l.writer.Write(line); err != nil {
		return err
	}
	if err := l.writer.Flush(); err != nil {
		return err
	}
	if eventType == EventSessionTurn {
		return l.file.Sync()
	}
	return nil
}

func (l *Logger) Close() error {
	if l == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return nil
	}
	var err error
	if l.writer != nil {
		err = l.writer.Flush()
	}
	if syncErr := l.file.Sync(); err == nil {
		err = syncErr
	}
	if closeErr := l.file.Close(); err == nil {
		err = closeErr
	}
	l.file = nil
	l.writer = nil
	return err
}
