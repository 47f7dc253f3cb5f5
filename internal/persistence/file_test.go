package persistence

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadFile_Missing(t *testing.T) {
	data, err := ReadFile(filepath.Join(t.TempDir(), "nope.json"))
	require.NoError(t, err)
	assert.Nil(t, data)
}

func TestWriteFile_OverwritesInsteadOfAppending(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "snapshot.json")

	require.NoError(t, WriteFile(path, []byte(`{"a":1}`), 0o600))
	require.NoError(t, WriteFile(path, []byte(`{"b":2}`), 0o600))

	data, err := ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, `{"b":2}`, string(data))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestWriteFile_LeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "snapshot.json")

	for i := 0; i < 3; i++ {
		require.NoError(t, WriteFile(path, []byte("{}"), 0o644))
	}

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "snapshot.json", entries[0].Name())
}
