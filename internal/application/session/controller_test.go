package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"inkflow-ai-api/internal/application/catalog"
	"inkflow-ai-api/internal/application/generation"
	"inkflow-ai-api/internal/application/generation/generationtest"
	"inkflow-ai-api/internal/application/history"
	"inkflow-ai-api/internal/domain/entity"
	"inkflow-ai-api/internal/infrastructure/persistence/kv"
	apperrors "inkflow-ai-api/pkg/errors"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeClipboard struct {
	mu   sync.Mutex
	text []string
	err  error
}

func (f *fakeClipboard) WriteText(_ context.Context, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.text = append(f.text, text)
	return nil
}

type fixture struct {
	ctrl     *Controller
	store    *history.Store
	kv       *kv.MemoryStore
	resolver *generationtest.Resolver
}

func newFixture(t *testing.T, streamer *generationtest.Streamer, opts ...Option) *fixture {
	t.Helper()
	backing := kv.NewMemoryStore()
	return newFixtureWithKV(t, backing, streamer, opts...)
}

func newFixtureWithKV(t *testing.T, backing *kv.MemoryStore, streamer *generationtest.Streamer, opts ...Option) *fixture {
	t.Helper()
	store := history.NewStore(backing, "")
	resolver := generationtest.NewResolver(streamer)
	client := generation.NewClient(resolver, 0)
	ctrl := NewController(context.Background(), catalog.MustBuiltin(), client, store, opts...)
	return &fixture{ctrl: ctrl, store: store, kv: backing, resolver: resolver}
}

func TestNewController_InitialState(t *testing.T) {
	f := newFixture(t, generationtest.NewStreamer())

	st := f.ctrl.State()
	assert.Equal(t, "blog-post", st.SelectedTemplate.ID)
	assert.Equal(t, entity.FormData{"topic": "", "keywords": "", "tone": "Professional", "audience": ""}, st.FormData)
	assert.Equal(t, "gemini-3-flash-preview", st.Model)
	assert.Equal(t, StatusReady, st.Status)
	assert.Empty(t, f.ctrl.History())
}

func TestSelectTemplate_ResetsForm(t *testing.T) {
	f := newFixture(t, generationtest.NewStreamer())
	_, err := f.ctrl.UpdateField("topic", "AI")
	require.NoError(t, err)

	st, err := f.ctrl.SelectTemplate(context.Background(), "summarizer")
	require.NoError(t, err)
	assert.Equal(t, entity.FormData{"content": "", "length": "Medium (Bullet points)"}, st.FormData)
	assert.Empty(t, st.GeneratedContent)

	_, err = f.ctrl.SelectTemplate(context.Background(), "missing")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeTemplateNotFound))
	assert.Equal(t, "summarizer", f.ctrl.State().SelectedTemplate.ID)
}

func TestUpdateField_UnknownField(t *testing.T) {
	f := newFixture(t, generationtest.NewStreamer())
	_, err := f.ctrl.UpdateField("nope", "x")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidParam))
	assert.NotContains(t, f.ctrl.State().FormData, "nope")
}

func TestSubmit_Success(t *testing.T) {
	now := time.UnixMilli(1700000000000)
	f := newFixture(t, generationtest.NewStreamer("Hello", " world"), WithClock(func() time.Time { return now }))
	_, _ = f.ctrl.UpdateField("topic", "AI")
	f.ctrl.SelectModel("gemini-3-pro-preview")

	var partials []string
	rec, err := f.ctrl.Submit(context.Background(), func(acc string) { partials = append(partials, acc) })
	require.NoError(t, err)

	assert.Equal(t, []string{"Hello", "Hello world"}, partials)
	assert.Equal(t, "AI", rec.Title)
	assert.Equal(t, "blog-post", rec.TemplateID)
	assert.Equal(t, "Hello world", rec.Content)
	assert.Equal(t, now.UnixMilli(), rec.Timestamp)

	st := f.ctrl.State()
	assert.Equal(t, StatusReady, st.Status)
	assert.Equal(t, "Hello world", st.GeneratedContent)
	assert.Equal(t, []string{"gemini-3-pro-preview"}, f.resolver.Models())

	require.Len(t, f.ctrl.History(), 1)
	persisted := f.store.List(context.Background())
	require.Len(t, persisted, 1)
	assert.Equal(t, rec.ID, persisted[0].ID)
}

func TestSubmit_TitleFallsBackToTemplateName(t *testing.T) {
	f := newFixture(t, generationtest.NewStreamer("x"))
	rec, err := f.ctrl.Submit(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, "Blog Post", rec.Title)
}

func TestSubmit_NewestHistoryFirst(t *testing.T) {
	f := newFixture(t, generationtest.NewStreamer("x"))
	first, err := f.ctrl.Submit(context.Background(), nil)
	require.NoError(t, err)
	second, err := f.ctrl.Submit(context.Background(), nil)
	require.NoError(t, err)

	got := f.ctrl.History()
	require.Len(t, got, 2)
	assert.Equal(t, second.ID, got[0].ID)
	assert.Equal(t, first.ID, got[1].ID)
}

func TestSubmit_ProviderErrorKeepsPartial(t *testing.T) {
	f := newFixture(t, generationtest.NewScriptedStreamer(
		generationtest.Step{Text: "Partial"},
		generationtest.Step{Err: errors.New("stream broke")},
	))
	_, _ = f.ctrl.UpdateField("topic", "AI")

	_, err := f.ctrl.Submit(context.Background(), nil)
	require.Error(t, err)
	assert.True(t, apperrors.IsProviderError(err))

	st := f.ctrl.State()
	assert.Equal(t, StatusError, st.Status)
	assert.Equal(t, "Partial", st.GeneratedContent)
	assert.Contains(t, st.Error, "stream broke")
	assert.Equal(t, "AI", st.FormData["topic"], "form stays populated")
	assert.Empty(t, f.ctrl.History())

	st = f.ctrl.DismissError()
	assert.Equal(t, StatusReady, st.Status)
}

func TestSubmit_ConfigurationError(t *testing.T) {
	f := newFixture(t, generationtest.NewStreamer("never"))
	f.resolver.Missing = true

	_, err := f.ctrl.Submit(context.Background(), nil)
	require.Error(t, err)
	assert.True(t, apperrors.IsConfigurationError(err))
	assert.Equal(t, StatusError, f.ctrl.State().Status)
	assert.Contains(t, f.ctrl.State().Error, "API Key is missing")
}

func TestUpdateField_ClearsError(t *testing.T) {
	f := newFixture(t, generationtest.NewStreamer())
	f.resolver.Missing = true
	_, _ = f.ctrl.Submit(context.Background(), nil)
	require.Equal(t, StatusError, f.ctrl.State().Status)

	st, err := f.ctrl.UpdateField("topic", "retry")
	require.NoError(t, err)
	assert.Equal(t, StatusReady, st.Status)
}

// startBlockedSubmit 启动一次在第一个片段之后阻塞的生成
func startBlockedSubmit(t *testing.T, f *fixture) (<-chan error, chan struct{}) {
	t.Helper()
	started := make(chan struct{})
	done := make(chan error, 1)
	var once sync.Once
	go func() {
		_, err := f.ctrl.Submit(context.Background(), func(string) {
			once.Do(func() { close(started) })
		})
		done <- err
	}()
	select {
	case <-started:
	case <-time.After(2 * time.Second):
		t.Fatal("generation did not start")
	}
	return done, started
}

func TestSubmit_RejectsConcurrentSubmit(t *testing.T) {
	gate := make(chan struct{})
	f := newFixture(t, generationtest.NewScriptedStreamer(
		generationtest.Step{Text: "one"},
		generationtest.Step{Text: " two", Wait: gate},
	))

	done, _ := startBlockedSubmit(t, f)
	assert.Equal(t, StatusGenerating, f.ctrl.State().Status)

	_, err := f.ctrl.Submit(context.Background(), nil)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeConflict))

	close(gate)
	require.NoError(t, <-done)
	assert.Equal(t, "one two", f.ctrl.State().GeneratedContent)
}

func TestSubmit_SupersededByTemplateSwitch(t *testing.T) {
	gate := make(chan struct{})
	defer close(gate)
	f := newFixture(t, generationtest.NewScriptedStreamer(
		generationtest.Step{Text: "stale"},
		generationtest.Step{Text: " more", Wait: gate},
	))

	done, _ := startBlockedSubmit(t, f)

	st, err := f.ctrl.SelectTemplate(context.Background(), "rewrite")
	require.NoError(t, err)
	assert.Equal(t, StatusReady, st.Status)
	assert.Empty(t, st.GeneratedContent)

	err = <-done
	assert.ErrorIs(t, err, ErrSuperseded)

	st = f.ctrl.State()
	assert.Equal(t, "rewrite", st.SelectedTemplate.ID)
	assert.Empty(t, st.GeneratedContent, "superseded request must not touch the view")
	assert.Empty(t, f.ctrl.History(), "superseded request must not be recorded")
	assert.Empty(t, f.store.List(context.Background()))
}

func TestSubmit_SupersededByHistoryLoad(t *testing.T) {
	ctx := context.Background()
	backing := kv.NewMemoryStore()
	blob := `[{"id":"r1","templateId":"summarizer","title":"T","content":"saved text","timestamp":1}]`
	require.NoError(t, backing.Write(ctx, history.DefaultKey, blob))
	gate := make(chan struct{})
	defer close(gate)
	f := newFixtureWithKV(t, backing, generationtest.NewScriptedStreamer(
		generationtest.Step{Text: "stale"},
		generationtest.Step{Text: " more", Wait: gate},
	))

	done, _ := startBlockedSubmit(t, f)

	st, err := f.ctrl.LoadHistoryItem(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, StatusReady, st.Status)
	assert.Equal(t, "saved text", st.GeneratedContent)

	assert.ErrorIs(t, <-done, ErrSuperseded)

	st = f.ctrl.State()
	assert.Equal(t, "summarizer", st.SelectedTemplate.ID)
	assert.Equal(t, "saved text", st.GeneratedContent, "superseded request must not touch the view")
	assert.False(t, st.IsGenerating)
	assert.Len(t, f.ctrl.History(), 1)
	assert.Len(t, f.store.List(ctx), 1)
}

func TestLoadHistoryItem(t *testing.T) {
	ctx := context.Background()
	backing := kv.NewMemoryStore()
	blob := `[{"id":"r1","templateId":"summarizer","title":"T","content":"saved text","timestamp":1},` +
		`{"id":"r2","templateId":"retired-template","title":"Old","content":"old text","timestamp":0}]`
	require.NoError(t, backing.Write(ctx, history.DefaultKey, blob))
	f := newFixtureWithKV(t, backing, generationtest.NewStreamer())
	_, _ = f.ctrl.UpdateField("topic", "typed")

	st, err := f.ctrl.LoadHistoryItem(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, "summarizer", st.SelectedTemplate.ID)
	assert.Equal(t, "saved text", st.GeneratedContent)
	assert.Equal(t, entity.FormData{"content": "", "length": "Medium (Bullet points)"}, st.FormData)

	st, err = f.ctrl.LoadHistoryItem(ctx, "r2")
	require.Error(t, err)
	assert.Equal(t, "summarizer", st.SelectedTemplate.ID, "unknown template leaves state unchanged")
	assert.Equal(t, "saved text", st.GeneratedContent)

	_, err = f.ctrl.LoadHistoryItem(ctx, "absent")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeHistoryNotFound))
}

func TestDeleteAndClearHistory(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, generationtest.NewStreamer("x"))
	r1, _ := f.ctrl.Submit(ctx, nil)
	r2, _ := f.ctrl.Submit(ctx, nil)

	left := f.ctrl.DeleteHistoryItem(ctx, "absent")
	assert.Len(t, left, 2)

	left = f.ctrl.DeleteHistoryItem(ctx, r2.ID)
	require.Len(t, left, 1)
	assert.Equal(t, r1.ID, left[0].ID)
	assert.Len(t, f.store.List(ctx), 1)

	f.ctrl.ClearHistory(ctx)
	assert.Empty(t, f.ctrl.History())
	assert.Empty(t, f.store.List(ctx))
}

func TestCopyOutput(t *testing.T) {
	cb := &fakeClipboard{}
	f := newFixture(t, generationtest.NewStreamer("copy me"), WithClipboard(cb))

	require.NoError(t, f.ctrl.CopyOutput(context.Background()))
	assert.Empty(t, cb.text, "nothing to copy before generation")

	_, err := f.ctrl.Submit(context.Background(), nil)
	require.NoError(t, err)
	require.NoError(t, f.ctrl.CopyOutput(context.Background()))
	assert.Equal(t, []string{"copy me"}, cb.text)

	cb.err = errors.New("no display")
	before := f.ctrl.State()
	assert.Error(t, f.ctrl.CopyOutput(context.Background()))
	assert.Equal(t, before, f.ctrl.State())
}

func TestCopyOutput_NoClipboard(t *testing.T) {
	f := newFixture(t, generationtest.NewStreamer("x"))
	_, err := f.ctrl.Submit(context.Background(), nil)
	require.NoError(t, err)
	assert.True(t, apperrors.HasCode(f.ctrl.CopyOutput(context.Background()), apperrors.CodeServiceUnavailable))
}

func TestValidate(t *testing.T) {
	f := newFixture(t, generationtest.NewStreamer())
	err := f.ctrl.Validate()
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidationFailed))
	assert.Contains(t, apperrors.AsAppError(err).Detail, "Topic/Title")

	for _, id := range []string{"topic", "keywords", "audience"} {
		_, _ = f.ctrl.UpdateField(id, "v")
	}
	assert.NoError(t, f.ctrl.Validate())
}

func TestModelPresets(t *testing.T) {
	f := newFixture(t, generationtest.NewStreamer(), WithModelPresets(ModelPresets{Fast: "fast-x"}))
	assert.Equal(t, ModelPresets{Fast: "fast-x", Pro: "gemini-3-pro-preview"}, f.ctrl.ModelPresets())
	assert.Equal(t, "fast-x", f.ctrl.State().Model)

	st := f.ctrl.SelectModel("  ")
	assert.Equal(t, "fast-x", st.Model)
}
