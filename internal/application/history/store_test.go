package history

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inkflow-ai-api/internal/domain/entity"
	"inkflow-ai-api/internal/infrastructure/persistence/kv"
	apperrors "inkflow-ai-api/pkg/errors"
)

// flakyKV 可切换为读/写失败的 KV
type flakyKV struct {
	*kv.MemoryStore
	failRead  bool
	failWrite bool
	writes    int
}

func (f *flakyKV) Read(ctx context.Context, key string) (string, bool, error) {
	if f.failRead {
		return "", false, errors.New("read denied")
	}
	return f.MemoryStore.Read(ctx, key)
}

func (f *flakyKV) Write(ctx context.Context, key, value string) error {
	f.writes++
	if f.failWrite {
		return errors.New("quota exceeded")
	}
	return f.MemoryStore.Write(ctx, key, value)
}

func newFlaky() *flakyKV {
	return &flakyKV{MemoryStore: kv.NewMemoryStore()}
}

func record(id string) entity.HistoryRecord {
	return entity.HistoryRecord{ID: id, TemplateID: "blog-post", Title: "t-" + id, Content: "c-" + id, Timestamp: time.Now().UnixMilli()}
}

func ids(records []entity.HistoryRecord) []string {
	out := make([]string, 0, len(records))
	for _, r := range records {
		out = append(out, r.ID)
	}
	return out
}

func TestAppend_MostRecentFirst(t *testing.T) {
	ctx := context.Background()
	store := NewStore(kv.NewMemoryStore(), "")

	_, err := store.Append(ctx, record("r1"))
	require.NoError(t, err)
	list, err := store.Append(ctx, record("r2"))
	require.NoError(t, err)

	assert.Equal(t, []string{"r2", "r1"}, ids(list))
	assert.Equal(t, []string{"r2", "r1"}, ids(store.List(ctx)))
}

func TestList_EmptyWhenMissing(t *testing.T) {
	list := NewStore(kv.NewMemoryStore(), "").List(context.Background())
	assert.NotNil(t, list)
	assert.Empty(t, list)
}

func TestRemove_Idempotent(t *testing.T) {
	ctx := context.Background()
	backing := newFlaky()
	store := NewStore(backing, "")
	_, _ = store.Append(ctx, record("r1"))
	_, _ = store.Append(ctx, record("r2"))
	writes := backing.writes

	list, err := store.Remove(ctx, "absent")
	require.NoError(t, err)
	assert.Equal(t, []string{"r2", "r1"}, ids(list))
	assert.Equal(t, writes, backing.writes, "removing an absent id must not write")

	list, err = store.Remove(ctx, "r2")
	require.NoError(t, err)
	assert.Equal(t, []string{"r1"}, ids(list))
	assert.Equal(t, []string{"r1"}, ids(store.List(ctx)))
}

func TestClear(t *testing.T) {
	ctx := context.Background()
	store := NewStore(kv.NewMemoryStore(), "")
	_, _ = store.Append(ctx, record("r1"))

	require.NoError(t, store.Clear(ctx))
	assert.Empty(t, store.List(ctx))
}

func TestGet(t *testing.T) {
	ctx := context.Background()
	store := NewStore(kv.NewMemoryStore(), "")
	_, _ = store.Append(ctx, record("r1"))

	got, err := store.Get(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, "c-r1", got.Content)

	_, err = store.Get(ctx, "nope")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeHistoryNotFound))
}

func TestLoad_CorruptBlobDegradesToEmpty(t *testing.T) {
	ctx := context.Background()
	backing := kv.NewMemoryStore()
	require.NoError(t, backing.Write(ctx, DefaultKey, "{not json"))

	store := NewStore(backing, "")
	assert.Empty(t, store.List(ctx))

	list, err := store.Append(ctx, record("r1"))
	require.NoError(t, err)
	assert.Equal(t, []string{"r1"}, ids(list))
}

func TestLoad_ReadFailureDegradesToEmpty(t *testing.T) {
	backing := newFlaky()
	backing.failRead = true
	assert.Empty(t, NewStore(backing, "").List(context.Background()))
}

func TestWriteFailure_KeepsPersistedEntries(t *testing.T) {
	ctx := context.Background()
	backing := newFlaky()
	store := NewStore(backing, "")
	_, err := store.Append(ctx, record("r1"))
	require.NoError(t, err)

	backing.failWrite = true
	list, err := store.Append(ctx, record("r2"))
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeStorageError))
	assert.Equal(t, []string{"r2", "r1"}, ids(list), "in-memory result still reflects the append")

	backing.failWrite = false
	assert.Equal(t, []string{"r1"}, ids(store.List(ctx)))
}

func TestReadsBlobWrittenByWebClient(t *testing.T) {
	ctx := context.Background()
	backing := kv.NewMemoryStore()
	blob := `[{"id":"1712345678901","templateId":"summarizer","title":"Quarterly report","content":"- point","timestamp":1712345678901}]`
	require.NoError(t, backing.Write(ctx, "inkflow_history", blob))

	list := NewStore(backing, "inkflow_history").List(ctx)
	require.Len(t, list, 1)
	assert.Equal(t, "summarizer", list[0].TemplateID)
	assert.Equal(t, "Quarterly report", list[0].Title)
	assert.Equal(t, int64(1712345678901), list[0].Timestamp)
}

func TestCustomKey(t *testing.T) {
	ctx := context.Background()
	backing := kv.NewMemoryStore()
	store := NewStore(backing, "other_key")
	_, err := store.Append(ctx, record("r1"))
	require.NoError(t, err)

	_, ok, _ := backing.Read(ctx, DefaultKey)
	assert.False(t, ok)
	_, ok, _ = backing.Read(ctx, "other_key")
	assert.True(t, ok)
}
