package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inkflow-ai-api/internal/config"
	"inkflow-ai-api/internal/domain/service"
)

func sseChunk(text string) string {
	return fmt.Sprintf(`data: {"candidates":[{"content":{"role":"model","parts":[{"text":%q}]}}]}`+"\n\n", text)
}

func TestGeminiStreamer_StreamsFragments(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Path, "gemini-3-flash-preview:streamGenerateContent")
		assert.Equal(t, "test-key", r.Header.Get("x-goog-api-key"))
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &body)

		w.Header().Set("Content-Type", "text/event-stream")
		_, _ = io.WriteString(w, sseChunk("Hello"))
		_, _ = io.WriteString(w, sseChunk(" world"))
	}))
	defer srv.Close()

	s, err := NewGeminiStreamer(context.Background(), "gemini", config.ProviderConfig{APIKey: "test-key", BaseURL: srv.URL})
	require.NoError(t, err)

	reader, err := s.StreamText(context.Background(), service.StreamTextRequest{
		Model:             "gemini-3-flash-preview",
		Prompt:            "Task: Demo",
		SystemInstruction: "be helpful",
		Temperature:       0.7,
	})
	require.NoError(t, err)
	defer reader.Close()

	var parts []string
	for {
		frag, err := reader.Recv()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		parts = append(parts, frag)
	}
	assert.Equal(t, "Hello world", strings.Join(parts, ""))

	raw, _ := json.Marshal(body)
	assert.Contains(t, string(raw), "be helpful")
	assert.Contains(t, string(raw), "Task: Demo")
}

func TestGeminiStreamer_OpenErrorSurfacesImmediately(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusForbidden)
		_, _ = io.WriteString(w, `{"error":{"code":403,"message":"API key not valid","status":"PERMISSION_DENIED"}}`)
	}))
	defer srv.Close()

	s, err := NewGeminiStreamer(context.Background(), "gemini", config.ProviderConfig{APIKey: "bad", BaseURL: srv.URL})
	require.NoError(t, err)

	_, err = s.StreamText(context.Background(), service.StreamTextRequest{Model: "gemini-3-flash-preview", Prompt: "p"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "API key not valid")
}
