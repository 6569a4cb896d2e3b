package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	ModeDevelopment = "development"
	ModeProduction  = "production"
)

type Config struct {
	AppPort  int    `mapstructure:"APP_PORT"`
	AppMode  string `mapstructure:"APP_MODE"`
	LogLevel string `mapstructure:"LOG_LEVEL"`

	UpstreamBaseURL     string  `mapstructure:"UPSTREAM_BASE_URL"`
	UpstreamAPIKey      string  `mapstructure:"UPSTREAM_API_KEY"`
	UpstreamModel       string  `mapstructure:"UPSTREAM_MODEL"`
	UpstreamTemperature float64 `mapstructure:"UPSTREAM_TEMPERATURE"`
	UpstreamMaxTokens   int     `mapstructure:"UPSTREAM_MAX_TOKENS"`
	UpstreamTitle       string  `mapstructure:"UPSTREAM_TITLE"`

	// AllowedOrigins and OriginTokens are comma-separated lists; see Origins and Tokens.
	AllowedOrigins string `mapstructure:"ALLOWED_ORIGINS"`
	OriginTokens   string `mapstructure:"ORIGIN_TOKENS"`

	ProductInfoPath string `mapstructure:"PRODUCT_INFO_PATH"`
	SystemPrompt    string `mapstructure:"SYSTEM_PROMPT"`
	StaticDir       string `mapstructure:"STATIC_DIR"`

	AssetRateLimit  int           `mapstructure:"ASSET_RATE_LIMIT"`
	AssetRateWindow time.Duration `mapstructure:"ASSET_RATE_WINDOW"`
	ChatRateLimit   int           `mapstructure:"CHAT_RATE_LIMIT"`
	ChatRateWindow  time.Duration `mapstructure:"CHAT_RATE_WINDOW"`
	TurnTimeout     time.Duration `mapstructure:"TURN_TIMEOUT"`

	RedisURL string `mapstructure:"REDIS_URL"`

	// ConfigFile is the .env file that was read, empty when only the environment was used.
	ConfigFile string `mapstructure:"-"`
}

func LoadConfig() (*Config, error) {
	v := viper.New()

	v.SetDefault("APP_PORT", 8080)
	v.SetDefault("APP_MODE", ModeProduction)
	v.SetDefault("LOG_LEVEL", "INFO")
	v.SetDefault("UPSTREAM_BASE_URL", "https://openrouter.ai/api/v1")
	v.SetDefault("UPSTREAM_API_KEY", "")
	v.SetDefault("UPSTREAM_MODEL", "anthropic/claude-3-sonnet")
	v.SetDefault("UPSTREAM_TEMPERATURE", 0.7)
	v.SetDefault("UPSTREAM_MAX_TOKENS", 2000)
	v.SetDefault("UPSTREAM_TITLE", "RoboMaid Assistant")
	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("ORIGIN_TOKENS", "")
	v.SetDefault("PRODUCT_INFO_PATH", "data/product-info.json")
	v.SetDefault("SYSTEM_PROMPT", "")
	v.SetDefault("STATIC_DIR", "public")
	v.SetDefault("ASSET_RATE_LIMIT", 120)
	v.SetDefault("ASSET_RATE_WINDOW", time.Minute)
	v.SetDefault("CHAT_RATE_LIMIT", 20)
	v.SetDefault("CHAT_RATE_WINDOW", time.Minute)
	v.SetDefault("TURN_TIMEOUT", 2*time.Minute)
	v.SetDefault("REDIS_URL", "")

	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	cfg.AppMode = strings.ToLower(strings.TrimSpace(cfg.AppMode))
	cfg.ConfigFile = v.ConfigFileUsed()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects configurations the relay cannot run safely with.
func (c *Config) Validate() error {
	switch c.AppMode {
	case ModeDevelopment, ModeProduction:
	default:
		return fmt.Errorf("APP_MODE must be %q or %q, got %q", ModeDevelopment, ModeProduction, c.AppMode)
	}
	if c.AppMode == ModeProduction && c.UpstreamAPIKey == "" {
		return fmt.Errorf("UPSTREAM_API_KEY is required in %s mode", ModeProduction)
	}
	if c.AssetRateLimit <= 0 || c.ChatRateLimit <= 0 {
		return fmt.Errorf("rate limits must be positive (asset=%d, chat=%d)", c.AssetRateLimit, c.ChatRateLimit)
	}
	if c.AssetRateWindow <= 0 || c.ChatRateWindow <= 0 {
		return fmt.Errorf("rate windows must be positive (asset=%s, chat=%s)", c.AssetRateWindow, c.ChatRateWindow)
	}
	if c.TurnTimeout <= 0 {
		return fmt.Errorf("TURN_TIMEOUT must be positive, got %s", c.TurnTimeout)
	}
	if c.UpstreamMaxTokens <= 0 {
		return fmt.Errorf("UPSTREAM_MAX_TOKENS must be positive, got %d", c.UpstreamMaxTokens)
	}
	return nil
}

func (c *Config) IsDevelopment() bool {
	return c.AppMode == ModeDevelopment
}

// Origins splits ALLOWED_ORIGINS, dropping blank entries.
func (c *Config) Origins() []string {
	return splitList(c.AllowedOrigins)
}

// Tokens parses ORIGIN_TOKENS ("https://a.example=hex,https://b.example=hex").
func (c *Config) Tokens() (map[string]string, error) {
	tokens := make(map[string]string)
	for _, pair := range splitList(c.OriginTokens) {
		// Origins contain "://" but never "=", so the last "=" separates the token.
		idx := strings.LastIndex(pair, "=")
		if idx <= 0 || idx == len(pair)-1 {
			return nil, fmt.Errorf("ORIGIN_TOKENS entry %q must look like origin=token", pair)
		}
		tokens[strings.TrimSpace(pair[:idx])] = strings.TrimSpace(pair[idx+1:])
	}
	return tokens, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
