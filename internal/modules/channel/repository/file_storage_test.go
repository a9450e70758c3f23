package repository

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStorageLoadMissingFile(t *testing.T) {
	store, err := NewFileStorage(t.TempDir())
	require.NoError(t, err)

	ids, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestFileStorageRoundTripNormalizes(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStorage(dir)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, store.Save(ctx, []string{"b", "a", "", "b"}))

	reopened, err := NewFileStorage(dir)
	require.NoError(t, err)
	ids, err := reopened.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, ids)

	_, err = os.Stat(filepath.Join(dir, "channels", favouritesFile+".tmp"))
	assert.True(t, os.IsNotExist(err))
}

func TestFileStorageSaveReplacesWholeSet(t *testing.T) {
	store, err := NewFileStorage(t.TempDir())
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, store.Save(ctx, []string{"a", "b"}))
	require.NoError(t, store.Save(ctx, []string{"c"}))

	ids, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"c"}, ids)
}

func TestFileStorageCorruptFile(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStorage(dir)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "channels", favouritesFile), []byte("{"), 0644))

	_, err = store.Load(context.Background())
	assert.Error(t, err)
}
