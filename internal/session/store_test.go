package session

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStore_Lifecycle(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "session.json")
	store := NewFileStore(path)

	// SignedOut: nothing stored yet.
	_, err := store.Token()
	assert.ErrorIs(t, err, ErrNoSession)
	_, err = store.Role()
	assert.ErrorIs(t, err, ErrNoSession)

	// SignedIn after a successful login.
	require.NoError(t, store.Set("tok-1", "seller"))

	token, err := store.Token()
	require.NoError(t, err)
	assert.Equal(t, "tok-1", token)

	role, err := store.Role()
	require.NoError(t, err)
	assert.Equal(t, "seller", role)

	// Logout clears both entries together.
	require.NoError(t, store.Clear())
	_, err = store.Token()
	assert.ErrorIs(t, err, ErrNoSession)
	_, err = store.Role()
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestFileStore_ReadsFreshFromDisk(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	store := NewFileStore(path)
	require.NoError(t, store.Set("tok-1", "buyer"))

	// A token change behind the store's back is observed on the very
	// next call, because nothing is cached in memory.
	other := NewFileStore(path)
	require.NoError(t, other.Set("tok-2", "buyer"))

	token, err := store.Token()
	require.NoError(t, err)
	assert.Equal(t, "tok-2", token)

	require.NoError(t, other.Clear())
	_, err = store.Token()
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestFileStore_ClearIsIdempotent(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "session.json"))
	assert.NoError(t, store.Clear())
	assert.NoError(t, store.Clear())
}

func TestFileStore_RejectsEmptyToken(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "session.json"))
	assert.Error(t, store.Set("", "buyer"))
}

func TestFileStore_FilePermissions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	store := NewFileStore(path)
	require.NoError(t, store.Set("tok-1", "buyer"))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestFileStore_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	require.NoError(t, os.WriteFile(path, []byte("not json"), 0o600))

	store := NewFileStore(path)
	_, err := store.Token()
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoSession)
}

func TestMemStore(t *testing.T) {
	store := NewMemStore()

	_, err := store.Token()
	assert.ErrorIs(t, err, ErrNoSession)

	require.NoError(t, store.Set("tok", "seller"))
	token, err := store.Token()
	require.NoError(t, err)
	assert.Equal(t, "tok", token)

	role, err := store.Role()
	require.NoError(t, err)
	assert.Equal(t, "seller", role)

	require.NoError(t, store.Clear())
	_, err = store.Token()
	assert.ErrorIs(t, err, ErrNoSession)
}
