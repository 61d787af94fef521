package llm

import (
	"context"
	"fmt"
	"io"
	"iter"
	"sync"

	"google.golang.org/genai"

	"inkflow-ai-api/internal/config"
	"inkflow-ai-api/internal/domain/service"
	"inkflow-ai-api/pkg/metrics"
)

// GeminiStreamer 基于 google.golang.org/genai 的流式生成
type GeminiStreamer struct {
	name   string
	client *genai.Client
}

// NewGeminiStreamer 创建 Gemini 客户端
func NewGeminiStreamer(ctx context.Context, name string, cfg config.ProviderConfig) (service.TextStreamer, error) {
	cc := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		cc.HTTPOptions.BaseURL = cfg.BaseURL
	}
	if cfg.Timeout > 0 {
		timeout := cfg.Timeout
		cc.HTTPOptions.Timeout = &timeout
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}
	return &GeminiStreamer{name: name, client: client}, nil
}

// StreamText 打开一次流式生成
func (g *GeminiStreamer) StreamText(ctx context.Context, req service.StreamTextRequest) (service.FragmentReader, error) {
	gc := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(req.Temperature),
	}
	if req.SystemInstruction != "" {
		gc.SystemInstruction = genai.NewContentFromText(req.SystemInstruction, genai.RoleUser)
	}

	seq := g.client.Models.GenerateContentStream(ctx, req.Model, genai.Text(req.Prompt), gc)
	next, stop := iter.Pull2(seq)
	r := &geminiReader{next: next, stop: stop, provider: g.name, model: req.Model}

	// 预读第一个响应，使鉴权、模型不存在等错误在打开阶段返回
	first, err := r.pull()
	if err != nil && err != io.EOF {
		r.Close()
		return nil, err
	}
	r.pending = &first
	r.pendingErr = err
	return r, nil
}

type geminiReader struct {
	next     func() (*genai.GenerateContentResponse, error, bool)
	stop     func()
	provider string
	model    string

	pending    *string
	pendingErr error
	usage      *genai.GenerateContentResponseUsageMetadata
	once       sync.Once
}

func (r *geminiReader) Recv() (string, error) {
	if r.pending != nil {
		text, err := *r.pending, r.pendingErr
		r.pending, r.pendingErr = nil, nil
		return text, err
	}
	return r.pull()
}

func (r *geminiReader) pull() (string, error) {
	resp, err, ok := r.next()
	if !ok {
		r.reportUsage()
		return "", io.EOF
	}
	if err != nil {
		return "", err
	}
	if resp == nil {
		return "", nil
	}
	if resp.UsageMetadata != nil {
		r.usage = resp.UsageMetadata
	}
	return resp.Text(), nil
}

func (r *geminiReader) reportUsage() {
	if r.usage == nil {
		return
	}
	metrics.LLMTokensUsed.WithLabelValues(r.provider, r.model, "prompt").Add(float64(r.usage.PromptTokenCount))
	metrics.LLMTokensUsed.WithLabelValues(r.provider, r.model, "completion").Add(float64(r.usage.CandidatesTokenCount))
	r.usage = nil
}

func (r *geminiReader) Close() {
	r.once.Do(r.stop)
}
