package playlist

import (
	"fmt"
	"os"
	"path/filepath"
)

// SaveFile writes data to path via a temp file and rename, so readers never see a
// partial playlist. The file is mode 0600 because every URL in it carries credentials.
func SaveFile(path string, data []byte) error {
	dir := filepath.Dir(filepath.Clean(path))
	tmp, err := os.CreateTemp(dir, ".playlist-*.m3u.tmp")
	if err != nil {
		return fmt.Errorf("playlist save: create temp: %w", err)
	}
	tmpName := tmp.Name()
	_, writeErr := tmp.Write(data)
	closeErr := tmp.Close()
	if writeErr != nil || closeErr != nil {
		os.Remove(tmpName)
		if writeErr != nil {
			return fmt.Errorf("playlist save: write: %w", writeErr)
		}
		return fmt.Errorf("playlist save: close: %w", closeErr)
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("playlist save: chmod: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("playlist save: rename: %w", err)
	}
	return nil
}
