package notes

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"candybowl/internal/apperr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadMissingReturnsPlaceholder(t *testing.T) {
	l := New(filepath.Join(t.TempDir(), "notes.txt"))
	got, err := l.Read()
	require.NoError(t, err)
	assert.Equal(t, MissingText, got)

	bank := NewWithPlaceholder(filepath.Join(t.TempDir(), "bank.txt"), "no balance recorded")
	got, err = bank.Read()
	require.NoError(t, err)
	assert.Equal(t, "no balance recorded", got)
}

func TestAppendThenRead(t *testing.T) {
	l := New(filepath.Join(t.TempDir(), "data", "notes.txt"))
	require.NoError(t, l.Append("alice asked for sour worms at $1"))
	require.NoError(t, l.Append("restock candy"))

	got, err := l.Read()
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(got, "restock candy\n"))
	assert.Equal(t, "alice asked for sour worms at $1\nrestock candy\n", got)
}

func TestAppendFoldsNewlinesAndRejectsEmpty(t *testing.T) {
	l := New(filepath.Join(t.TempDir(), "notes.txt"))
	require.NoError(t, l.Append("line one\nline two"))
	got, err := l.Read()
	require.NoError(t, err)
	assert.Equal(t, "line one line two\n", got)

	err = l.Append("  \n ")
	assert.ErrorIs(t, err, apperr.Validation)
}

func TestAppendKeepsSurroundingWhitespace(t *testing.T) {
	l := New(filepath.Join(t.TempDir(), "notes.txt"))
	require.NoError(t, l.Append("  indented note\t"))
	require.NoError(t, l.Append("ends with break\r\n"))
	got, err := l.Read()
	require.NoError(t, err)
	assert.Equal(t, "  indented note\t\nends with break\n", got)
}

func TestClearAndSet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.txt")
	l := New(path)
	require.NoError(t, l.Append("something"))
	require.NoError(t, l.Clear())

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Empty(t, raw)

	require.NoError(t, l.Set("$100.00"))
	got, err := l.Read()
	require.NoError(t, err)
	assert.Equal(t, "$100.00", got)
}
