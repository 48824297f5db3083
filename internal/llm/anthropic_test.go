package llm

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	perrors "github.com/p-blackswan/lifeos/internal/errors"
)

func newTestAnthropic(t *testing.T, status int, body string) (*AnthropicProvider, *anthropicRequest) {
	t.Helper()
	var captured anthropicRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/messages", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("x-api-key"))
		assert.Equal(t, anthropicAPIVersion, r.Header.Get("anthropic-version"))
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &captured)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)

	p := NewAnthropicProvider("test-key",
		WithBaseURL(srv.URL),
		WithHTTPClient(srv.Client()),
		WithModel("claude-test"),
		WithMaxTokens(512),
	)
	return p, &captured
}

func TestAnthropic_Complete(t *testing.T) {
	body := `{
		"id": "msg_1", "type": "message", "role": "assistant",
		"content": [{"type": "text", "text": "Sure! "}, {"type": "text", "text": "[ACTION:CREATE_SCRAP] {\"content\":\"x\"}"}],
		"stop_reason": "end_turn",
		"usage": {"input_tokens": 12, "output_tokens": 7}
	}`
	p, captured := newTestAnthropic(t, http.StatusOK, body)

	resp, err := p.Complete(context.Background(), CompletionRequest{
		Messages: []Message{UserMessage("hello")},
	})
	require.NoError(t, err)
	assert.Equal(t, `Sure! [ACTION:CREATE_SCRAP] {"content":"x"}`, resp.Text)
	assert.Equal(t, StopReasonEndTurn, resp.StopReason)
	assert.Equal(t, 12, resp.InputTokens)
	assert.Equal(t, 7, resp.OutputTokens)

	assert.Equal(t, "claude-test", captured.Model)
	assert.Equal(t, 512, captured.MaxTokens)
	require.Len(t, captured.Messages, 1)
	assert.Equal(t, RoleUser, captured.Messages[0].Role)
	assert.Equal(t, "hello", captured.Messages[0].Content)
}

func TestAnthropic_RequestOverrides(t *testing.T) {
	p, captured := newTestAnthropic(t, http.StatusOK, `{"content":[{"type":"text","text":"ok"}]}`)

	_, err := p.Complete(context.Background(), CompletionRequest{
		Messages:     []Message{UserMessage("hi")},
		Model:        "claude-other",
		MaxTokens:    64,
		SystemPrompt: "be brief",
	})
	require.NoError(t, err)
	assert.Equal(t, "claude-other", captured.Model)
	assert.Equal(t, 64, captured.MaxTokens)
	assert.Equal(t, "be brief", captured.System)
}

func TestAnthropic_APIErrorIsTransport(t *testing.T) {
	p, _ := newTestAnthropic(t, http.StatusUnauthorized,
		`{"type":"error","error":{"type":"authentication_error","message":"invalid x-api-key"}}`)

	_, err := p.Complete(context.Background(), CompletionRequest{Messages: []Message{UserMessage("hi")}})
	require.Error(t, err)
	assert.ErrorIs(t, err, perrors.ErrTransport)

	var apiErr *perrors.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	assert.Contains(t, apiErr.Message, "invalid x-api-key")
}

func TestAnthropic_NonJSONErrorBody(t *testing.T) {
	p, _ := newTestAnthropic(t, http.StatusBadGateway, `<html>bad gateway</html>`)

	_, err := p.Complete(context.Background(), CompletionRequest{Messages: []Message{UserMessage("hi")}})
	assert.ErrorIs(t, err, perrors.ErrTransport)
}

func TestAnthropic_MalformedBody(t *testing.T) {
	p, _ := newTestAnthropic(t, http.StatusOK, `not json`)

	_, err := p.Complete(context.Background(), CompletionRequest{Messages: []Message{UserMessage("hi")}})
	assert.ErrorIs(t, err, perrors.ErrMalformedResponse)
}

func TestAnthropic_MissingTextBlock(t *testing.T) {
	p, _ := newTestAnthropic(t, http.StatusOK, `{"content":[],"stop_reason":"end_turn"}`)

	_, err := p.Complete(context.Background(), CompletionRequest{Messages: []Message{UserMessage("hi")}})
	assert.ErrorIs(t, err, perrors.ErrMalformedResponse)
}

func TestAnthropic_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	p := NewAnthropicProvider("k", WithBaseURL(url))
	_, err := p.Complete(context.Background(), CompletionRequest{Messages: []Message{UserMessage("hi")}})
	assert.ErrorIs(t, err, perrors.ErrTransport)
}
