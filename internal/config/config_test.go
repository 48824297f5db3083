// Package config tests.
package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	os.Clearenv()
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, ":8080", cfg.HTTPListenAddr)
	assert.Equal(t, "lifeos.db", cfg.DBPath)
	assert.Equal(t, "anthropic", cfg.LLMProvider)
	assert.Equal(t, 2048, cfg.LLMMaxTokens)
	assert.Equal(t, 60*time.Second, cfg.LLMTimeout)
	assert.Equal(t, 5, cfg.ContextRecentTasks)
	assert.Equal(t, 5, cfg.RateLimitRPS)
	assert.Equal(t, 10, cfg.RateLimitBurst)
	assert.Equal(t, 1024, cfg.RateLimitClients)
	assert.Zero(t, cfg.ConversationRetention)
	assert.False(t, cfg.LLMEnabled())
	assert.True(t, cfg.IsDevelopment())
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("LLM_PROVIDER", "gemini")
	t.Setenv("LLM_API_KEY", "key-123")
	t.Setenv("LLM_MODEL", "gemini-2.5-flash")
	t.Setenv("LLM_TIMEOUT", "15s")
	t.Setenv("CONTEXT_RECENT_TASKS", "12")
	t.Setenv("HTTP_LISTEN_ADDR", "127.0.0.1:9000")
	t.Setenv("CONVERSATION_RETENTION", "720h")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "gemini", cfg.LLMProvider)
	assert.Equal(t, "gemini-2.5-flash", cfg.LLMModel)
	assert.Equal(t, 15*time.Second, cfg.LLMTimeout)
	assert.Equal(t, 12, cfg.ContextRecentTasks)
	assert.Equal(t, "127.0.0.1:9000", cfg.HTTPListenAddr)
	assert.Equal(t, 720*time.Hour, cfg.ConversationRetention)
	assert.True(t, cfg.LLMEnabled())
}

func TestLoad_BadNumber(t *testing.T) {
	t.Setenv("LLM_MAX_TOKENS", "lots")
	_, err := Load()
	assert.Error(t, err)
}

func TestLoad_InvalidValues(t *testing.T) {
	t.Setenv("LLM_PROVIDER", "openai")
	t.Setenv("CONTEXT_RECENT_TASKS", "0")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unsupported provider "openai"`)
	assert.Contains(t, err.Error(), "CONTEXT_RECENT_TASKS must be positive")
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{
			LLMProvider:        "anthropic",
			LLMMaxTokens:       1,
			LLMTimeout:         time.Second,
			ContextRecentTasks: 1,
			RateLimitRPS:       1,
			RateLimitBurst:     1,
			RateLimitClients:   1,
			DBPath:             "x.db",
		}
	}
	require.NoError(t, base().Validate())

	tests := []struct {
		name   string
		mutate func(c *Config)
		want   string
	}{
		{"zero timeout", func(c *Config) { c.LLMTimeout = 0 }, "LLM_TIMEOUT"},
		{"negative burst", func(c *Config) { c.RateLimitBurst = -1 }, "RATE_LIMIT_BURST"},
		{"no clients", func(c *Config) { c.RateLimitClients = 0 }, "RATE_LIMIT_CLIENTS"},
		{"empty db path", func(c *Config) { c.DBPath = " " }, "DB_PATH"},
		{"negative retention", func(c *Config) { c.ConversationRetention = -time.Hour }, "CONVERSATION_RETENTION"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := base()
			tt.mutate(c)
			err := c.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestConfig_CORSOriginList(t *testing.T) {
	cfg := &Config{}
	assert.Nil(t, cfg.CORSOriginList())

	cfg.CORSOrigins = "https://a.example, ,https://b.example"
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSOriginList())
}
