package config

import (
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// RateLimitConfig indicates how many requests are allowed within a given interval.
type RateLimitConfig struct {
	Requests int
	Interval time.Duration
}

// Config aggregates application-wide configuration values.
type Config struct {
	DatabaseURL     string           `mapstructure:"database_url"`
	Port            string           `mapstructure:"port"`
	RateLimitEnrich string           `mapstructure:"rate_limit_enrich"`
	Log             LogConfig        `mapstructure:"log"`
	CompaniesHouse  VendorConfig     `mapstructure:"companies_house"`
	Apollo          ApolloConfig     `mapstructure:"apollo"`
	BuiltWith       VendorConfig     `mapstructure:"builtwith"`
	ZenRows         VendorConfig     `mapstructure:"zenrows"`
	Anthropic       AnthropicConfig  `mapstructure:"anthropic"`
	Perplexity      PerplexityConfig `mapstructure:"perplexity"`
	Queue           QueueConfig      `mapstructure:"queue"`

	// EnrichLimit is parsed from RateLimitEnrich by Load.
	EnrichLimit RateLimitConfig `mapstructure:"-"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// VendorConfig holds credentials for an API-key authenticated provider.
type VendorConfig struct {
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
}

// ApolloConfig configures the contact directory.
type ApolloConfig struct {
	APIKey            string `mapstructure:"api_key"`
	BaseURL           string `mapstructure:"base_url"`
	WebhookBaseURL    string `mapstructure:"webhook_base_url"`
	FallbackSelection bool   `mapstructure:"fallback_selection"`
	// SecondaryBudget caps paid contact reveals per minute; 0 disables them.
	SecondaryBudget int    `mapstructure:"secondary_budget"`
	SecondaryBurst  int    `mapstructure:"secondary_burst"`
	PhoneRegion     string `mapstructure:"phone_region"`
}

// AnthropicConfig configures the summarizer.
type AnthropicConfig struct {
	APIKey    string `mapstructure:"api_key"`
	Model     string `mapstructure:"model"`
	MaxTokens int64  `mapstructure:"max_tokens"`
}

// PerplexityConfig configures the channel analyzer.
type PerplexityConfig struct {
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
	Model   string `mapstructure:"model"`
}

// QueueConfig configures background enrichment.
type QueueConfig struct {
	Size int `mapstructure:"size"`
}

// Load reads configuration from an optional config.yaml and the environment.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("database_url", "")
	v.SetDefault("port", "8080")
	v.SetDefault("rate_limit_enrich", "30/min")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("companies_house.api_key", "")
	v.SetDefault("companies_house.base_url", "https://api.company-information.service.gov.uk")
	v.SetDefault("apollo.api_key", "")
	v.SetDefault("apollo.base_url", "https://api.apollo.io")
	v.SetDefault("apollo.webhook_base_url", "")
	v.SetDefault("apollo.fallback_selection", true)
	v.SetDefault("apollo.secondary_budget", 30)
	v.SetDefault("apollo.secondary_burst", 10)
	v.SetDefault("apollo.phone_region", "GB")
	v.SetDefault("builtwith.api_key", "")
	v.SetDefault("builtwith.base_url", "https://api.builtwith.com")
	v.SetDefault("zenrows.api_key", "")
	v.SetDefault("zenrows.base_url", "https://api.zenrows.com")
	v.SetDefault("anthropic.api_key", "")
	v.SetDefault("anthropic.model", "claude-sonnet-4-5-20250929")
	v.SetDefault("anthropic.max_tokens", 1024)
	v.SetDefault("perplexity.api_key", "")
	v.SetDefault("perplexity.base_url", "https://api.perplexity.ai")
	v.SetDefault("perplexity.model", "sonar")
	v.SetDefault("queue.size", 100)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	rl, err := parseRateLimit(cfg.RateLimitEnrich)
	if err != nil {
		return nil, eris.Wrap(err, "config: invalid rate_limit_enrich")
	}
	cfg.EnrichLimit = rl

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}

func parseRateLimit(value string) (RateLimitConfig, error) {
	parts := strings.Split(value, "/")
	if len(parts) != 2 {
		return RateLimitConfig{}, eris.Errorf("expected format <requests>/<interval>, got %q", value)
	}

	requests, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil || requests < 0 {
		return RateLimitConfig{}, eris.Errorf("invalid request count: %v", parts[0])
	}

	unit := strings.ToLower(strings.TrimSpace(parts[1]))
	var interval time.Duration
	switch unit {
	case "s", "sec", "second", "seconds":
		interval = time.Second
	case "m", "min", "minute", "minutes":
		interval = time.Minute
	case "h", "hr", "hour", "hours":
		interval = time.Hour
	default:
		return RateLimitConfig{}, eris.Errorf("unsupported interval unit: %s", unit)
	}

	return RateLimitConfig{Requests: requests, Interval: interval}, nil
}
