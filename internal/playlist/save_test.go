package playlist

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.m3u")
	require.NoError(t, os.WriteFile(path, []byte("old"), 0o644))

	require.NoError(t, SaveFile(path, []byte(Header+LF)))
	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, Header+LF, string(got))

	fi, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), fi.Mode().Perm())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp file left behind")
}

func TestSaveFile_missingDir(t *testing.T) {
	err := SaveFile(filepath.Join(t.TempDir(), "nope", "out.m3u"), nil)
	assert.Error(t, err)
}
