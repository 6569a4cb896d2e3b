package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("UPSTREAM_API_KEY", "sk-test")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.AppPort)
	assert.Equal(t, ModeProduction, cfg.AppMode)
	assert.Equal(t, "https://openrouter.ai/api/v1", cfg.UpstreamBaseURL)
	assert.Equal(t, "anthropic/claude-3-sonnet", cfg.UpstreamModel)
	assert.InDelta(t, 0.7, cfg.UpstreamTemperature, 1e-9)
	assert.Equal(t, 2000, cfg.UpstreamMaxTokens)
	assert.Equal(t, 20, cfg.ChatRateLimit)
	assert.Equal(t, time.Minute, cfg.ChatRateWindow)
	assert.Equal(t, 120, cfg.AssetRateLimit)
	assert.Equal(t, 2*time.Minute, cfg.TurnTimeout)
	assert.Empty(t, cfg.Origins())
}

func TestLoadConfig_EnvironmentOverrides(t *testing.T) {
	t.Setenv("APP_MODE", "Development")
	t.Setenv("APP_PORT", "9090")
	t.Setenv("ALLOWED_ORIGINS", "https://shop.example.com, ,http://localhost:3000")
	t.Setenv("CHAT_RATE_LIMIT", "5")
	t.Setenv("CHAT_RATE_WINDOW", "30s")
	t.Setenv("TURN_TIMEOUT", "45s")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.True(t, cfg.IsDevelopment())
	assert.Equal(t, 9090, cfg.AppPort)
	assert.Equal(t, []string{"https://shop.example.com", "http://localhost:3000"}, cfg.Origins())
	assert.Equal(t, 5, cfg.ChatRateLimit)
	assert.Equal(t, 30*time.Second, cfg.ChatRateWindow)
	assert.Equal(t, 45*time.Second, cfg.TurnTimeout)
}

func TestLoadConfig_ProductionRequiresAPIKey(t *testing.T) {
	t.Setenv("APP_MODE", "production")
	t.Setenv("UPSTREAM_API_KEY", "")

	_, err := LoadConfig()
	assert.ErrorContains(t, err, "UPSTREAM_API_KEY")
}

func TestConfig_Validate(t *testing.T) {
	valid := func() Config {
		return Config{
			AppMode:           ModeDevelopment,
			AssetRateLimit:    1,
			AssetRateWindow:   time.Second,
			ChatRateLimit:     1,
			ChatRateWindow:    time.Second,
			TurnTimeout:       time.Second,
			UpstreamMaxTokens: 1,
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"valid", func(c *Config) {}, ""},
		{"unknown mode", func(c *Config) { c.AppMode = "staging" }, "APP_MODE"},
		{"zero chat limit", func(c *Config) { c.ChatRateLimit = 0 }, "rate limits"},
		{"negative window", func(c *Config) { c.AssetRateWindow = -time.Second }, "rate windows"},
		{"zero timeout", func(c *Config) { c.TurnTimeout = 0 }, "TURN_TIMEOUT"},
		{"zero max tokens", func(c *Config) { c.UpstreamMaxTokens = 0 }, "UPSTREAM_MAX_TOKENS"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := valid()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if tc.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tc.wantErr)
		})
	}
}

func TestConfig_Tokens(t *testing.T) {
	t.Run("parses pairs", func(t *testing.T) {
		cfg := Config{OriginTokens: "https://a.example.com=abc, http://localhost:8080=def"}
		tokens, err := cfg.Tokens()
		require.NoError(t, err)
		assert.Equal(t, map[string]string{
			"https://a.example.com": "abc",
			"http://localhost:8080": "def",
		}, tokens)
	})

	t.Run("rejects malformed entry", func(t *testing.T) {
		cfg := Config{OriginTokens: "https://a.example.com"}
		_, err := cfg.Tokens()
		assert.Error(t, err)
	})
}
