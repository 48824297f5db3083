package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	// General
	Environment string `envconfig:"ENVIRONMENT" default:"development"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`

	// HTTP API
	HTTPListenAddr   string `envconfig:"HTTP_LISTEN_ADDR" default:":8080"`
	CORSOrigins      string `envconfig:"CORS_ORIGINS"`
	RateLimitRPS     int    `envconfig:"RATE_LIMIT_RPS" default:"5"`
	RateLimitBurst   int    `envconfig:"RATE_LIMIT_BURST" default:"10"`
	RateLimitClients int    `envconfig:"RATE_LIMIT_CLIENTS" default:"1024"`

	// Storage
	DBPath string `envconfig:"DB_PATH" default:"lifeos.db"`
	// Conversation turns older than this are pruned; zero keeps everything.
	ConversationRetention time.Duration `envconfig:"CONVERSATION_RETENTION" default:"0"`

	// Model (optional; without a key every turn fails with a configuration error)
	LLMProvider  string        `envconfig:"LLM_PROVIDER" default:"anthropic"`
	LLMAPIKey    string        `envconfig:"LLM_API_KEY"`
	LLMModel     string        `envconfig:"LLM_MODEL"`
	LLMMaxTokens int           `envconfig:"LLM_MAX_TOKENS" default:"2048"`
	LLMTimeout   time.Duration `envconfig:"LLM_TIMEOUT" default:"60s"`

	// Context snapshot
	ContextRecentTasks int `envconfig:"CONTEXT_RECENT_TASKS" default:"5"`
}

// LLMEnabled returns true if a model API key is configured.
func (c *Config) LLMEnabled() bool {
	return strings.TrimSpace(c.LLMAPIKey) != ""
}

// IsDevelopment reports whether the service runs in development mode.
func (c *Config) IsDevelopment() bool {
	return strings.EqualFold(c.Environment, "development")
}

// CORSOriginList returns the parsed list of allowed CORS origins.
// Returns nil if not configured (CORS middleware disabled).
func (c *Config) CORSOriginList() []string {
	if c.CORSOrigins == "" {
		return nil
	}
	parts := strings.Split(c.CORSOrigins, ",")
	origins := make([]string, 0, len(parts))
	for _, o := range parts {
		o = strings.TrimSpace(o)
		if o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}

// Validate checks value ranges that envconfig cannot express.
func (c *Config) Validate() error {
	var errs []error
	switch strings.ToLower(c.LLMProvider) {
	case "anthropic", "gemini":
	default:
		errs = append(errs, fmt.Errorf("LLM_PROVIDER: unsupported provider %q", c.LLMProvider))
	}
	if c.LLMMaxTokens <= 0 {
		errs = append(errs, fmt.Errorf("LLM_MAX_TOKENS must be positive, got %d", c.LLMMaxTokens))
	}
	if c.LLMTimeout <= 0 {
		errs = append(errs, fmt.Errorf("LLM_TIMEOUT must be positive, got %s", c.LLMTimeout))
	}
	if c.ContextRecentTasks <= 0 {
		errs = append(errs, fmt.Errorf("CONTEXT_RECENT_TASKS must be positive, got %d", c.ContextRecentTasks))
	}
	if c.RateLimitRPS <= 0 {
		errs = append(errs, fmt.Errorf("RATE_LIMIT_RPS must be positive, got %d", c.RateLimitRPS))
	}
	if c.RateLimitBurst <= 0 {
		errs = append(errs, fmt.Errorf("RATE_LIMIT_BURST must be positive, got %d", c.RateLimitBurst))
	}
	if c.RateLimitClients <= 0 {
		errs = append(errs, fmt.Errorf("RATE_LIMIT_CLIENTS must be positive, got %d", c.RateLimitClients))
	}
	if c.ConversationRetention < 0 {
		errs = append(errs, fmt.Errorf("CONVERSATION_RETENTION must not be negative, got %s", c.ConversationRetention))
	}
	if strings.TrimSpace(c.DBPath) == "" {
		errs = append(errs, errors.New("DB_PATH must not be empty"))
	}
	return errors.Join(errs...)
}

// Load reads configuration from environment variables and validates it.
func Load() (*Config, error) {
	return LoadWithPrefix("")
}

// LoadWithPrefix reads configuration with a prefix.
func LoadWithPrefix(prefix string) (*Config, error) {
	var cfg Config
	if err := envconfig.Process(prefix, &cfg); err != nil {
		if prefix == "" {
			return nil, fmt.Errorf("loading config: %w", err)
		}
		return nil, fmt.Errorf("loading config with prefix %s: %w", prefix, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}
