package eino

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"inkflow-ai-api/internal/domain/service"
	"inkflow-ai-api/pkg/metrics"
)

func TestChatModelHandler_StreamOutputRecordsTokens(t *testing.T) {
	h := newChatModelCallbackHandler()
	ctx := service.WithTemplateProvider(context.Background(), "blog-post", "handler-test")
	ctx = h.OnStart(ctx, nil, &model.CallbackInput{Config: &model.Config{Model: "gpt-test"}})

	prompt := metrics.LLMTokensUsed.WithLabelValues("handler-test", "gpt-test", "prompt")
	completion := metrics.LLMTokensUsed.WithLabelValues("handler-test", "gpt-test", "completion")
	beforePrompt := testutil.ToFloat64(prompt)
	beforeCompletion := testutil.ToFloat64(completion)

	sr, sw := schema.Pipe[*model.CallbackOutput](3)
	h.OnEndWithStreamOutput(ctx, nil, sr)

	sw.Send(&model.CallbackOutput{Config: &model.Config{Model: "gpt-test"}}, nil)
	sw.Send(&model.CallbackOutput{
		Config:     &model.Config{Model: "gpt-test"},
		TokenUsage: &model.TokenUsage{PromptTokens: 12, CompletionTokens: 30, TotalTokens: 42},
	}, nil)
	sw.Close()

	assert.Eventually(t, func() bool {
		return testutil.ToFloat64(prompt)-beforePrompt == 12 &&
			testutil.ToFloat64(completion)-beforeCompletion == 30
	}, time.Second, 10*time.Millisecond)
}

func TestChatModelHandler_StreamErrorSkipsUsage(t *testing.T) {
	h := newChatModelCallbackHandler()
	ctx := service.WithProvider(context.Background(), "handler-err")
	ctx = h.OnStart(ctx, nil, nil)

	counter := metrics.LLMTokensUsed.WithLabelValues("handler-err", "", "prompt")
	before := testutil.ToFloat64(counter)

	done := make(chan struct{})
	sr, sw := schema.Pipe[*model.CallbackOutput](1)
	h.OnEndWithStreamOutput(ctx, nil, sr)
	go func() {
		defer close(done)
		sw.Send(nil, errors.New("stream broken"))
		sw.Close()
	}()
	<-done

	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, before, testutil.ToFloat64(counter))
}

func TestChatModelHandler_OnEnd(t *testing.T) {
	h := newChatModelCallbackHandler()
	ctx := service.WithProvider(context.Background(), "handler-sync")
	ctx = h.OnStart(ctx, nil, nil)

	counter := metrics.LLMTokensUsed.WithLabelValues("handler-sync", "m", "completion")
	before := testutil.ToFloat64(counter)

	h.OnEnd(ctx, nil, &model.CallbackOutput{
		Config:     &model.Config{Model: "m"},
		TokenUsage: &model.TokenUsage{CompletionTokens: 5},
	})
	assert.Equal(t, before+5, testutil.ToFloat64(counter))
}
