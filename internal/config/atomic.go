package config

import (
	"fmt"
	"os"
	"path/filepath"

	"candybowl/internal/fsutil"
)

// WriteAtomic replaces the config file and keeps the previous content next to
// it as <name>.bak.
func WriteAtomic(path string, data []byte, mode os.FileMode) error {
	if old, err := os.ReadFile(path); err == nil {
		bak := filepath.Join(filepath.Dir(path), filepath.Base(path)+".bak")
		if err := fsutil.WriteFileAtomic(bak, old, mode); err != nil {
			return fmt.Errorf("write backup: %w", err)
		}
	}
	return fsutil.WriteFileAtomic(path, data, mode)
}
