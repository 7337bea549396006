// Package config loads agentflow settings from defaults, an optional YAML
// file and environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Supported oracle providers.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

// Config holds all configuration for agentflow.
type Config struct {
	Oracle     OracleConfig  `mapstructure:"oracle"`
	Router     RouterConfig  `mapstructure:"router"`
	Refine     RefineConfig  `mapstructure:"refine"`
	FanOut     FanOutConfig  `mapstructure:"fanout"`
	Log        LogConfig     `mapstructure:"log"`
	Tracing    TracingConfig `mapstructure:"tracing"`
	AgentsFile string        `mapstructure:"agents_file"`
}

// ProviderConfig describes one oracle backend.
type ProviderConfig struct {
	Provider  string        `mapstructure:"provider"`
	Model     string        `mapstructure:"model"`
	BaseURL   string        `mapstructure:"base_url"`
	APIKey    string        `mapstructure:"api_key"`
	MaxTokens int           `mapstructure:"max_tokens"`
	Timeout   time.Duration `mapstructure:"timeout"`
	Bedrock   BedrockConfig `mapstructure:"bedrock"`
}

// BedrockConfig routes the anthropic provider through AWS Bedrock.
type BedrockConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Region  string `mapstructure:"region"`
	Profile string `mapstructure:"profile"`
}

// OracleConfig is the primary provider plus resilience settings.
type OracleConfig struct {
	ProviderConfig `mapstructure:",squash"`

	Fallbacks []ProviderConfig `mapstructure:"fallbacks"`
	RateLimit RateLimitConfig  `mapstructure:"rate_limit"`
	Breaker   BreakerConfig    `mapstructure:"breaker"`
}

// RateLimitConfig bounds oracle calls per second. Zero disables limiting.
type RateLimitConfig struct {
	PerSecond float64 `mapstructure:"per_second"`
	Burst     int     `mapstructure:"burst"`
}

// BreakerConfig configures the circuit breaker around the oracle.
type BreakerConfig struct {
	MaxFailures uint32        `mapstructure:"max_failures"`
	Timeout     time.Duration `mapstructure:"timeout"`
	Interval    time.Duration `mapstructure:"interval"`
}

// RouterConfig configures the classification router.
type RouterConfig struct {
	ClassifyRetries int `mapstructure:"classify_retries"`
}

// RefineConfig configures the evaluator-optimizer loop.
type RefineConfig struct {
	MaxAttempts   int    `mapstructure:"max_attempts"`
	ApprovalToken string `mapstructure:"approval_token"`
}

// FanOutConfig configures the parallel executor.
type FanOutConfig struct {
	SpecialistTimeout time.Duration `mapstructure:"specialist_timeout"`
}

// LogConfig configures the slog logger.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

// TracingConfig configures OpenTelemetry.
type TracingConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Exporter string `mapstructure:"exporter"`
}

// Load reads configuration. When path is empty it looks for agentflow.yaml
// in the working directory and the user config directory; a missing file is
// not an error. AGENTFLOW_* environment variables override file values.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("agentflow")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath(userConfigDir())
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	v.SetEnvPrefix("AGENTFLOW")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	cfg.Oracle.APIKey = resolveAPIKey(cfg.Oracle.ProviderConfig)
	for i := range cfg.Oracle.Fallbacks {
		cfg.Oracle.Fallbacks[i].APIKey = resolveAPIKey(cfg.Oracle.Fallbacks[i])
	}
	cfg.AgentsFile = os.ExpandEnv(cfg.AgentsFile)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the patterns cannot run with.
func (c *Config) Validate() error {
	if err := validateProvider(c.Oracle.ProviderConfig); err != nil {
		return err
	}
	for i, fb := range c.Oracle.Fallbacks {
		if err := validateProvider(fb); err != nil {
			return fmt.Errorf("fallback %d: %w", i, err)
		}
	}
	if c.Refine.MaxAttempts < 1 {
		return fmt.Errorf("refine.max_attempts must be >= 1, got %d", c.Refine.MaxAttempts)
	}
	if c.Router.ClassifyRetries < 0 {
		return fmt.Errorf("router.classify_retries must be >= 0, got %d", c.Router.ClassifyRetries)
	}
	if c.FanOut.SpecialistTimeout < 0 {
		return fmt.Errorf("fanout.specialist_timeout must be >= 0")
	}
	return nil
}

func validateProvider(p ProviderConfig) error {
	switch p.Provider {
	case ProviderOpenAI, ProviderAnthropic:
		return nil
	default:
		return fmt.Errorf("unsupported oracle provider %q", p.Provider)
	}
}

// setDefaults configures default values. Every key needs a default so that
// AutomaticEnv can override it.
func setDefaults(v *viper.Viper) {
	v.SetDefault("oracle.provider", ProviderOpenAI)
	v.SetDefault("oracle.model", "gpt-4o-mini")
	v.SetDefault("oracle.base_url", "")
	v.SetDefault("oracle.api_key", "")
	v.SetDefault("oracle.max_tokens", 4096)
	v.SetDefault("oracle.timeout", "120s")
	v.SetDefault("oracle.bedrock.enabled", false)
	v.SetDefault("oracle.bedrock.region", "")
	v.SetDefault("oracle.bedrock.profile", "")
	v.SetDefault("oracle.rate_limit.per_second", 0)
	v.SetDefault("oracle.rate_limit.burst", 1)
	v.SetDefault("oracle.breaker.max_failures", 5)
	v.SetDefault("oracle.breaker.timeout", "30s")
	v.SetDefault("oracle.breaker.interval", "60s")

	v.SetDefault("router.classify_retries", 0)

	v.SetDefault("refine.max_attempts", 5)
	v.SetDefault("refine.approval_token", "APPROVED")

	v.SetDefault("fanout.specialist_timeout", "0s")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.output", "stderr")

	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.exporter", "noop")

	v.SetDefault("agents_file", "")
}

// resolveAPIKey expands ${VAR} references and falls back to the provider's
// conventional environment variable.
func resolveAPIKey(p ProviderConfig) string {
	key := os.ExpandEnv(p.APIKey)
	if key != "" {
		return key
	}
	switch p.Provider {
	case ProviderAnthropic:
		return os.Getenv("ANTHROPIC_API_KEY")
	default:
		return os.Getenv("OPENAI_API_KEY")
	}
}

// userConfigDir returns the XDG config directory for agentflow.
func userConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "agentflow")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".config", "agentflow")
	}
	return filepath.Join(home, ".config", "agentflow")
}
