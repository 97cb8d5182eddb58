package keystore

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_Write(t *testing.T) {
	dir := t.TempDir()
	store := New(dir)

	path, err := store.Write("deploy", "PRIVATE KEY")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "deploy.pem"), path)

	content, err := os.ReadFile(path) //nolint:gosec
	require.NoError(t, err)
	assert.Equal(t, "PRIVATE KEY", string(content))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, FileMode, info.Mode().Perm())
}

func TestStore_WriteReplacesReadOnlyFile(t *testing.T) {
	store := New(t.TempDir())

	_, err := store.Write("deploy", "OLD")
	require.NoError(t, err)
	path, err := store.Write("deploy", "NEW")
	require.NoError(t, err)

	content, err := os.ReadFile(path) //nolint:gosec
	require.NoError(t, err)
	assert.Equal(t, "NEW", string(content))
}

func TestStore_WriteCreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "keys", "nested")
	path, err := New(dir).Write("k", "x")
	require.NoError(t, err)
	assert.FileExists(t, path)
}

func TestStore_WriteRejectsPaths(t *testing.T) {
	store := New(t.TempDir())
	for _, name := range []string{"", "a/b", "..", "../escape"} {
		_, err := store.Write(name, "x")
		assert.Error(t, err, name)
	}
}

func TestNew_DefaultDir(t *testing.T) {
	assert.Equal(t, ".", New("").Dir())
	assert.Equal(t, filepath.Join(".", "k.pem"), New("").Path("k"))
}
