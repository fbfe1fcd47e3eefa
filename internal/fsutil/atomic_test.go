package fsutil

import (
	"os"
	"path/filepath"
	"testing"
)

func TestWriteFileAtomicReplacesContent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "inventory.csv")
	perm := os.FileMode(0o600)

	if err := WriteFileAtomic(path, []byte("a,b\n"), perm); err != nil {
		t.Fatalf("first write: %v", err)
	}
	if err := WriteFileAtomic(path, []byte("c,d\n"), perm); err != nil {
		t.Fatalf("second write: %v", err)
	}

	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(got) != "c,d\n" {
		t.Fatalf("expected replaced content, got %q", string(got))
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if info.Mode().Perm() != perm {
		t.Fatalf("expected permissions %o, got %o", perm, info.Mode().Perm())
	}

	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatalf("readdir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected temp files to be cleaned up, found %d entries", len(entries))
	}
}

func TestWriteFileAtomicCreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "nested", "notes.txt")
	if err := WriteFileAtomic(path, []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected file to exist: %v", err)
	}
}

func TestAppendLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "notes.txt")
	for _, line := range []string{"first", "second"} {
		if err := AppendLine(path, line, 0o644); err != nil {
			t.Fatalf("append %q: %v", line, err)
		}
	}
	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(got) != "first\nsecond\n" {
		t.Fatalf("unexpected content: %q", string(got))
	}
}
