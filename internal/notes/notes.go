// Package notes is the append-only text log the model uses as its memory
// between sessions. The same type backs the bank balance file.
package notes

import (
	"errors"
	"os"
	"strings"
	"sync"

	"candybowl/internal/apperr"
	"candybowl/internal/fsutil"
)

// MissingText is returned by Read when the log file does not exist yet. It is
// meant for the model, not an error.
const MissingText = "note file not found"

const fileMode = 0o644

var lineFolder = strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ")

type Log struct {
	path    string
	missing string
	mu      sync.Mutex
}

func New(path string) *Log {
	return &Log{path: path, missing: MissingText}
}

// NewWithPlaceholder is New with a different text for the missing-file case.
func NewWithPlaceholder(path, missing string) *Log {
	return &Log{path: path, missing: missing}
}

func (l *Log) Path() string { return l.path }

func (l *Log) Read() (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	raw, err := os.ReadFile(l.path)
	if errors.Is(err, os.ErrNotExist) {
		return l.missing, nil
	}
	if err != nil {
		return "", apperr.Wrap(apperr.KindStorage, "notes.read", err)
	}
	return string(raw), nil
}

// Append writes line plus a newline. Trailing line breaks are dropped and
// embedded ones folded to spaces so one call is always one entry; other
// whitespace is kept as given.
func (l *Log) Append(line string) error {
	line = lineFolder.Replace(strings.TrimRight(line, "\r\n"))
	if strings.TrimSpace(line) == "" {
		return apperr.New(apperr.KindValidation, "notes.append", "note cannot be empty")
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := fsutil.AppendLine(l.path, line, fileMode); err != nil {
		return apperr.Wrap(apperr.KindStorage, "notes.append", err)
	}
	return nil
}

// Clear truncates the log, creating it if needed.
func (l *Log) Clear() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := fsutil.WriteFileAtomic(l.path, nil, fileMode); err != nil {
		return apperr.Wrap(apperr.KindStorage, "notes.clear", err)
	}
	return nil
}

// Set replaces the whole content; the operator uses it to record the bank
// balance.
func (l *Log) Set(content string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := fsutil.WriteFileAtomic(l.path, []byte(content), fileMode); err != nil {
		return apperr.Wrap(apperr.KindStorage, "notes.set", err)
	}
	return nil
}
