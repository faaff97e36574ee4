// Package snapshot writes document snapshot files and notices when another
// program rewrites them.
package snapshot

import (
	"fmt"
	"os"
	"time"

	"github.com/google/renameio"
)

// Write atomically replaces the file at path with data and returns the
// modification time of the new file.
func Write(path string, data []byte) (time.Time, error) {
	if err := renameio.WriteFile(path, data, 0o644); err != nil {
		return time.Time{}, fmt.Errorf("failed to write snapshot: %w", err)
	}
	fi, err := os.Stat(path)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to stat snapshot: %w", err)
	}
	return fi.ModTime(), nil
}
