package app

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gambadio/Luca-Chat/internal/config"
)

func testConfig(t *testing.T, upstreamURL string) *config.Config {
	t.Helper()
	dir := t.TempDir()
	productInfo := filepath.Join(dir, "product-info.json")
	require.NoError(t, os.WriteFile(productInfo, []byte(`{"name":"RoboMaid X2000"}`), 0o600))

	return &config.Config{
		AppPort:           9090,
		AppMode:           config.ModeProduction,
		LogLevel:          "DEBUG",
		UpstreamBaseURL:   upstreamURL,
		UpstreamAPIKey:    "test-key",
		UpstreamModel:     "test-model",
		UpstreamMaxTokens: 100,
		UpstreamTitle:     "RoboMaid Assistant",
		AllowedOrigins:    "https://shop.example.com",
		ProductInfoPath:   productInfo,
		StaticDir:         dir,
		AssetRateLimit:    120,
		AssetRateWindow:   time.Minute,
		ChatRateLimit:     20,
		ChatRateWindow:    time.Minute,
		TurnTimeout:       time.Minute,
	}
}

func TestNewApp(t *testing.T) {
	app, err := NewApp(testConfig(t, "http://127.0.0.1:1"))
	require.NoError(t, err)
	require.NotNil(t, app)
	defer func() { require.NoError(t, app.Close()) }()

	assert.NotNil(t, app.Provider)
	require.NotNil(t, app.Server)
	assert.Equal(t, ":9090", app.Server.Addr)
	assert.Zero(t, app.Server.WriteTimeout)

	rr := httptest.NewRecorder()
	app.Server.Handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/verify-domain", nil)
	req.Header.Set("Origin", "https://shop.example.com")
	app.Server.Handler.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"token":"`)
}

func TestNewApp_RejectsInvalidOriginTokens(t *testing.T) {
	cfg := testConfig(t, "http://127.0.0.1:1")
	cfg.OriginTokens = "https://other.example.com=" + "0123456789abcdef0123456789abcdef"

	_, err := NewApp(cfg)
	assert.Error(t, err)
}

func TestProbeUpstream(t *testing.T) {
	var gotAuth, gotPath string
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		w.WriteHeader(http.StatusOK)
	}))
	defer upstream.Close()

	require.NoError(t, probeUpstream(upstream.URL+"/", "test-key"))
	assert.Equal(t, "Bearer test-key", gotAuth)
	assert.Equal(t, "/models", gotPath)

	failing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer failing.Close()

	assert.Error(t, probeUpstream(failing.URL, "bad-key"))
}

func TestReferer(t *testing.T) {
	cfg := testConfig(t, "")
	assert.Equal(t, "https://shop.example.com", referer(cfg))

	cfg.AllowedOrigins = ""
	assert.Equal(t, "http://localhost:9090", referer(cfg))
}
