package llm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	perrors "github.com/p-blackswan/lifeos/internal/errors"
)

type fakeProvider struct {
	calls   int
	lastReq CompletionRequest
	reply   string
	err     error
	delay   time.Duration
	ctxErr  error
}

func (f *fakeProvider) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	f.calls++
	f.lastReq = req
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			f.ctxErr = ctx.Err()
			return nil, ctx.Err()
		}
	}
	f.ctxErr = ctx.Err()
	if f.err != nil {
		return nil, f.err
	}
	return &CompletionResponse{Text: f.reply}, nil
}

func (f *fakeProvider) ModelID() string { return "fake-model" }

func TestClient_NotConfigured(t *testing.T) {
	fp := &fakeProvider{reply: "hi"}
	c := NewClient(Config{}, fp, zerolog.Nop())

	assert.False(t, c.IsConfigured())
	_, err := c.Send(context.Background(), "prompt")
	assert.ErrorIs(t, err, perrors.ErrNotConfigured)
	assert.Zero(t, fp.calls, "provider must not be called without a credential")
}

func TestClient_NilProviderNotConfigured(t *testing.T) {
	c := NewClient(Config{APIKey: "k"}, nil, zerolog.Nop())
	assert.False(t, c.IsConfigured())
	assert.Empty(t, c.ModelID())
}

func TestClient_Send(t *testing.T) {
	fp := &fakeProvider{reply: "Sure!"}
	c := NewClient(Config{APIKey: "k", MaxTokens: 300}, fp, zerolog.Nop())

	require.True(t, c.IsConfigured())
	text, err := c.Send(context.Background(), "the prompt")
	require.NoError(t, err)
	assert.Equal(t, "Sure!", text)
	assert.Equal(t, 1, fp.calls)
	require.Len(t, fp.lastReq.Messages, 1)
	assert.Equal(t, "the prompt", fp.lastReq.Messages[0].Content)
	assert.Equal(t, 300, fp.lastReq.MaxTokens)
	assert.Equal(t, "fake-model", c.ModelID())
}

func TestClient_SingleAttemptOnError(t *testing.T) {
	fp := &fakeProvider{err: perrors.NewAPIError("fake", 503, "overloaded")}
	c := NewClient(Config{APIKey: "k"}, fp, zerolog.Nop())

	_, err := c.Send(context.Background(), "p")
	assert.ErrorIs(t, err, perrors.ErrTransport)
	assert.Equal(t, 1, fp.calls)
}

func TestClient_Timeout(t *testing.T) {
	fp := &fakeProvider{reply: "late", delay: time.Second}
	c := NewClient(Config{APIKey: "k", Timeout: 20 * time.Millisecond}, fp, zerolog.Nop())

	_, err := c.Send(context.Background(), "p")
	require.Error(t, err)
	assert.ErrorIs(t, err, perrors.ErrTransport)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestClient_IgnoresCallerCancellation(t *testing.T) {
	fp := &fakeProvider{reply: "done", delay: 10 * time.Millisecond}
	c := NewClient(Config{APIKey: "k", Timeout: time.Second}, fp, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	text, err := c.Send(ctx, "p")
	require.NoError(t, err)
	assert.Equal(t, "done", text)
	assert.NoError(t, fp.ctxErr)
}

func TestNewProvider(t *testing.T) {
	p, err := NewProvider(Config{APIKey: "k"}, zerolog.Nop())
	require.NoError(t, err)
	assert.IsType(t, &AnthropicProvider{}, p)
	assert.Equal(t, defaultModel, p.ModelID())

	p, err = NewProvider(Config{Provider: "Gemini", APIKey: "k", Model: "gemini-test"}, zerolog.Nop())
	require.NoError(t, err)
	assert.IsType(t, &GeminiProvider{}, p)
	assert.Equal(t, "gemini-test", p.ModelID())

	_, err = NewProvider(Config{Provider: "llama"}, zerolog.Nop())
	assert.Error(t, err)
}
