package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	perrors "github.com/p-blackswan/lifeos/internal/errors"
)

// Supported provider names.
const (
	ProviderAnthropic = "anthropic"
	ProviderGemini    = "gemini"
)

const defaultTimeout = 60 * time.Second

// Config carries the model credential and call bounds. It is injected at
// construction; nothing reads the credential from global state.
type Config struct {
	Provider  string
	APIKey    string
	Model     string
	MaxTokens int
	Timeout   time.Duration
}

// NewProvider builds the provider named in cfg.
func NewProvider(cfg Config, logger zerolog.Logger) (Provider, error) {
	httpClient := &http.Client{Timeout: cfg.timeout()}
	switch strings.ToLower(cfg.Provider) {
	case "", ProviderAnthropic:
		return NewAnthropicProvider(cfg.APIKey,
			WithModel(cfg.Model),
			WithMaxTokens(cfg.MaxTokens),
			WithHTTPClient(httpClient),
			WithLogger(logger),
		), nil
	case ProviderGemini:
		return NewGeminiProvider(cfg.APIKey, cfg.Model, cfg.MaxTokens, httpClient, logger), nil
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}
}

func (c Config) timeout() time.Duration {
	if c.Timeout > 0 {
		return c.Timeout
	}
	return defaultTimeout
}

// Client sends one prompt to one provider and returns the raw reply text.
// There is no retry; a fixed timeout bounds each call.
type Client struct {
	cfg      Config
	provider Provider
	logger   zerolog.Logger
}

// NewClient wraps provider with the given config.
func NewClient(cfg Config, provider Provider, logger zerolog.Logger) *Client {
	return &Client{
		cfg:      cfg,
		provider: provider,
		logger:   logger.With().Str("component", "llm").Logger(),
	}
}

// IsConfigured reports whether a credential is set. Callers check this before
// composing any prompt.
func (c *Client) IsConfigured() bool {
	return c != nil && c.provider != nil && strings.TrimSpace(c.cfg.APIKey) != ""
}

// ModelID returns the provider's model, or "" when unconfigured.
func (c *Client) ModelID() string {
	if c == nil || c.provider == nil {
		return ""
	}
	return c.provider.ModelID()
}

// Send issues a single completion for prompt. Once issued the call is detached
// from ctx cancellation and only the configured timeout can end it early.
func (c *Client) Send(ctx context.Context, prompt string) (string, error) {
	if !c.IsConfigured() {
		return "", perrors.ErrNotConfigured
	}

	callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.cfg.timeout())
	defer cancel()

	start := time.Now()
	resp, err := c.provider.Complete(callCtx, CompletionRequest{
		Messages:  []Message{UserMessage(prompt)},
		MaxTokens: c.cfg.MaxTokens,
	})
	if err != nil {
		if !errors.Is(err, perrors.ErrTransport) && !errors.Is(err, perrors.ErrMalformedResponse) {
			err = fmt.Errorf("%w: %w", perrors.ErrTransport, err)
		}
		c.logger.Warn().Err(err).Dur("elapsed", time.Since(start)).Msg("model call failed")
		return "", err
	}
	if resp == nil {
		return "", fmt.Errorf("nil completion: %w", perrors.ErrMalformedResponse)
	}

	c.logger.Debug().
		Str("model", c.provider.ModelID()).
		Dur("elapsed", time.Since(start)).
		Int("out_tokens", resp.OutputTokens).
		Msg("model call complete")
	return resp.Text, nil
}
