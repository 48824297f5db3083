package main

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/p-blackswan/lifeos/internal/assistant"
	"github.com/p-blackswan/lifeos/internal/config"
	"github.com/p-blackswan/lifeos/internal/llm"
	"github.com/p-blackswan/lifeos/internal/metrics"
	"github.com/p-blackswan/lifeos/internal/store"
)

// app holds the wired pipeline shared by every subcommand.
type app struct {
	store     *store.Store
	client    *llm.Client
	assistant *assistant.Assistant
	metrics   *metrics.Metrics
}

func newApp(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*app, error) {
	st, err := store.New(ctx, cfg.DBPath, logger)
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}

	llmCfg := llm.Config{
		Provider:  cfg.LLMProvider,
		APIKey:    cfg.LLMAPIKey,
		Model:     cfg.LLMModel,
		MaxTokens: cfg.LLMMaxTokens,
		Timeout:   cfg.LLMTimeout,
	}
	provider, err := llm.NewProvider(llmCfg, logger)
	if err != nil {
		st.Close()
		return nil, err
	}
	client := llm.NewClient(llmCfg, provider, logger)
	if !client.IsConfigured() {
		logger.Warn().Msg("LLM_API_KEY not set; chat turns will fail until it is configured")
	}

	m := metrics.New()
	a, err := assistant.New(client, st,
		assistant.WithRecentTasks(cfg.ContextRecentTasks),
		assistant.WithMetrics(m),
		assistant.WithLogger(logger),
	)
	if err != nil {
		st.Close()
		return nil, err
	}

	return &app{store: st, client: client, assistant: a, metrics: m}, nil
}

func (a *app) Close() error {
	return a.store.Close()
}
