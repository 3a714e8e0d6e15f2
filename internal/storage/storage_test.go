package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiskStore_SaveAndRemove(t *testing.T) {
	dir := t.TempDir()
	store, err := NewDiskStore(dir, "http://files.local/")
	require.NoError(t, err)

	stored, err := store.Save(context.Background(), "Report.PDF", strings.NewReader("hello"))
	require.NoError(t, err)

	assert.True(t, strings.HasSuffix(stored.Key, ".pdf"))
	assert.Equal(t, "http://files.local/uploads/"+stored.Key, stored.URL)
	assert.EqualValues(t, 5, stored.Size)

	data, err := os.ReadFile(filepath.Join(dir, stored.Key))
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))

	require.NoError(t, store.Remove(context.Background(), stored.Key))
	_, err = os.Stat(filepath.Join(dir, stored.Key))
	assert.True(t, os.IsNotExist(err))

	// removing twice is fine
	assert.NoError(t, store.Remove(context.Background(), stored.Key))
}

func TestDiskStore_RemoveRejectsPaths(t *testing.T) {
	store, err := NewDiskStore(t.TempDir(), "")
	require.NoError(t, err)

	assert.Error(t, store.Remove(context.Background(), "../etc/passwd"))
	assert.Error(t, store.Remove(context.Background(), ""))
}

func TestDiskStore_SaveHonoursCancelledContext(t *testing.T) {
	store, err := NewDiskStore(t.TempDir(), "")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = store.Save(ctx, "a.txt", strings.NewReader("x"))
	assert.ErrorIs(t, err, context.Canceled)
}
