package storage

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStoreSetGetDelete(t *testing.T) {
	fs, err := Open(filepath.Join(t.TempDir(), "state.json"))
	require.NoError(t, err)

	_, ok := fs.Get(KeyToken)
	assert.False(t, ok)

	require.NoError(t, fs.Set(KeyToken, "tok-1"))
	v, ok := fs.Get(KeyToken)
	assert.True(t, ok)
	assert.Equal(t, "tok-1", v)

	require.NoError(t, fs.Delete(KeyToken))
	_, ok = fs.Get(KeyToken)
	assert.False(t, ok)

	// Deleting an absent key is a no-op.
	require.NoError(t, fs.Delete("missing"))
}

func TestFileStorePersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "state.json")

	fs, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, fs.Set(KeyToken, "tok-1"))
	require.NoError(t, fs.Set(KeyPendingAdd, `{"id":"p1"}`))
	require.NoError(t, fs.Delete(KeyToken))

	reopened, err := Open(path)
	require.NoError(t, err)
	_, ok := reopened.Get(KeyToken)
	assert.False(t, ok)
	v, ok := reopened.Get(KeyPendingAdd)
	assert.True(t, ok)
	assert.Equal(t, `{"id":"p1"}`, v)
}

func TestFileStoreDiscardsCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	fs, err := Open(path)
	require.NoError(t, err)
	_, ok := fs.Get(KeyToken)
	assert.False(t, ok)

	// The store stays usable after recovery.
	require.NoError(t, fs.Set(KeyToken, "tok-1"))
	v, ok := fs.Get(KeyToken)
	assert.True(t, ok)
	assert.Equal(t, "tok-1", v)
}
