package kv

import (
	"context"
	"errors"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inkflow-ai-api/internal/domain/repository"
)

func exerciseStore(t *testing.T, store repository.KVStore) {
	t.Helper()
	ctx := context.Background()

	_, ok, err := store.Read(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Write(ctx, "inkflow_history", `[{"id":"1"}]`))
	v, ok, err := store.Read(ctx, "inkflow_history")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `[{"id":"1"}]`, v)

	require.NoError(t, store.Write(ctx, "inkflow_history", `[]`))
	v, _, err = store.Read(ctx, "inkflow_history")
	require.NoError(t, err)
	assert.Equal(t, `[]`, v)
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemoryStore())
}

func TestMemoryStore_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, NewMemoryStore().Write(ctx, "k", "v"), context.Canceled)
}

func TestFileStore(t *testing.T) {
	store, err := NewFileStore(afero.NewMemMapFs(), "/data")
	require.NoError(t, err)
	exerciseStore(t, store)
	assert.NoError(t, store.HealthCheck(context.Background()))
}

func TestFileStore_SanitizesKey(t *testing.T) {
	fs := afero.NewMemMapFs()
	store, err := NewFileStore(fs, "/data")
	require.NoError(t, err)

	require.NoError(t, store.Write(context.Background(), "../escape/key", "v"))
	exists, err := afero.Exists(fs, "/data/.._escape_key.json")
	require.NoError(t, err)
	assert.True(t, exists)
}

// renameFailFs 模拟提交阶段失败
type renameFailFs struct {
	afero.Fs
}

func (renameFailFs) Rename(string, string) error {
	return errors.New("disk full")
}

func TestFileStore_FailedWriteKeepsPreviousValue(t *testing.T) {
	base := afero.NewMemMapFs()
	store, err := NewFileStore(base, "/data")
	require.NoError(t, err)
	require.NoError(t, store.Write(context.Background(), "k", "old"))

	broken := &FileStore{fs: renameFailFs{Fs: base}, dir: "/data"}
	err = broken.Write(context.Background(), "k", "new")
	require.Error(t, err)

	v, ok, err := store.Read(context.Background(), "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "old", v)

	entries, err := afero.ReadDir(base, "/data")
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary file should be removed")
}
