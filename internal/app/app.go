package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gambadio/Luca-Chat/internal/access"
	"github.com/gambadio/Luca-Chat/internal/api"
	"github.com/gambadio/Luca-Chat/internal/config"
	"github.com/gambadio/Luca-Chat/internal/llm"
	"github.com/gambadio/Luca-Chat/internal/prompt"
	"github.com/gambadio/Luca-Chat/internal/ratelimit"
	"github.com/gambadio/Luca-Chat/internal/service"
)

const shutdownTimeout = 15 * time.Second

// App is the wired relay: an HTTP server plus the resources it must release.
type App struct {
	Server   *http.Server
	Provider llm.CompletionProvider

	closers []func() error
}

// NewApp builds every component from cfg. It performs no network I/O except
// dialing Redis when REDIS_URL is set.
func NewApp(cfg *config.Config) (*App, error) {
	a := &App{}

	preset, err := cfg.Tokens()
	if err != nil {
		return nil, err
	}
	registry, err := access.NewRegistry(cfg.Origins(), preset)
	if err != nil {
		return nil, fmt.Errorf("build origin registry: %w", err)
	}
	gate := access.NewGate(registry, cfg.IsDevelopment())
	if cfg.IsDevelopment() {
		slog.Warn("Development mode: origin and token checks are disabled")
	}
	slog.Info("Origin registry ready", "origins", registry.Origins())

	store, err := a.newLimiterStore(cfg.RedisURL)
	if err != nil {
		return nil, err
	}
	assetLimiter := ratelimit.New("asset", cfg.AssetRateLimit, cfg.AssetRateWindow, store)
	chatLimiter := ratelimit.New("chat", cfg.ChatRateLimit, cfg.ChatRateWindow, store)

	systemPrompt, err := prompt.Load(cfg.ProductInfoPath, cfg.UpstreamTitle, cfg.SystemPrompt)
	if err != nil {
		_ = a.Close()
		return nil, err
	}

	a.Provider = llm.NewOpenAIProvider(llm.Options{
		BaseURL:     cfg.UpstreamBaseURL,
		APIKey:      cfg.UpstreamAPIKey,
		Model:       cfg.UpstreamModel,
		Temperature: cfg.UpstreamTemperature,
		MaxTokens:   cfg.UpstreamMaxTokens,
		Referer:     referer(cfg),
		Title:       cfg.UpstreamTitle,
	})
	relayService := service.NewRelayService(a.Provider, systemPrompt, cfg.TurnTimeout)

	relayHandler := api.NewRelayHandler(relayService, gate, chatLimiter)
	router := api.NewRouter(relayHandler, api.RouterOptions{
		AllowedOrigins: gate.AllowedOrigins(),
		AssetLimiter:   assetLimiter.Middleware,
		StaticDir:      cfg.StaticDir,
	})

	a.Server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.AppPort),
		Handler:           router,
		ReadHeaderTimeout: 20 * time.Second,
		WriteTimeout:      0, // Disabled for streaming endpoints
		IdleTimeout:       120 * time.Second,
	}
	return a, nil
}

func (a *App) newLimiterStore(redisURL string) (ratelimit.Store, error) {
	if redisURL == "" {
		store := ratelimit.NewMemoryStore(time.Minute)
		a.closers = append(a.closers, func() error { store.Close(); return nil })
		slog.Info("Using in-memory rate limit store")
		return store, nil
	}
	rdb, err := ratelimit.DialRedis(redisURL)
	if err != nil {
		return nil, err
	}
	store := ratelimit.NewRedisStore(rdb)
	a.closers = append(a.closers, store.Close)
	slog.Info("Using Redis rate limit store")
	return store, nil
}

// Close releases the limiter store.
func (a *App) Close() error {
	var errs []error
	for _, closeFn := range a.closers {
		if err := closeFn(); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

func Run() int {
	cfg, err := config.LoadConfig()
	if err != nil {
		// slog is not yet configured, so use the default logger for this critical error.
		slog.Error("Failed to load configuration", "error", err)
		return 1
	}

	setupLogger(cfg.LogLevel)

	logConfigSource(cfg.ConfigFile)

	app, err := NewApp(cfg)
	if err != nil {
		slog.Error("Failed to initialize application", "error", err)
		return 1
	}
	defer func() {
		if err := app.Close(); err != nil {
			slog.Error("Failed to release resources", "error", err)
		}
	}()

	if err := probeUpstream(cfg.UpstreamBaseURL, cfg.UpstreamAPIKey); err != nil {
		slog.Warn("Completion provider is not reachable", "url", cfg.UpstreamBaseURL, "error", err)
	} else {
		slog.Info("Completion provider is reachable", "url", cfg.UpstreamBaseURL)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	serveErr := make(chan error, 1)
	go func() {
		slog.Info("Starting server", "port", cfg.AppPort, "mode", cfg.AppMode)
		serveErr <- app.Server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			return 1
		}
		return 0
	case <-ctx.Done():
	}

	slog.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := app.Server.Shutdown(shutdownCtx); err != nil {
		slog.Error("Graceful shutdown failed", "error", err)
		return 1
	}
	return 0
}

func logConfigSource(configFileUsed string) {
	if configFileUsed != "" {
		slog.Info("Successfully loaded configuration from file.", "file", configFileUsed)
	} else {
		slog.Info("Configuration file not found. Using environment variables and defaults.")
	}
}

func setupLogger(logLevel string) {
	var level slog.Level
	switch strings.ToUpper(logLevel) {
	case "DEBUG":
		level = slog.LevelDebug
	case "WARN":
		level = slog.LevelWarn
	case "ERROR":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)
}

// probeUpstream checks once that the provider answers its model listing.
func probeUpstream(baseURL, apiKey string) error {
	client := &http.Client{Timeout: 5 * time.Second}
	req, err := http.NewRequest(http.MethodGet, strings.TrimRight(baseURL, "/")+"/models", nil)
	if err != nil {
		return err
	}
	if apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+apiKey)
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	if bErr := resp.Body.Close(); bErr != nil {
		slog.Warn("Failed to close response body in upstream probe", "error", bErr)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return nil
}

// referer is the site the provider attributes traffic to: the first registered
// origin, or the local address in development.
func referer(cfg *config.Config) string {
	if origins := cfg.Origins(); len(origins) > 0 {
		return access.NormalizeOrigin(origins[0])
	}
	return fmt.Sprintf("http://localhost:%d", cfg.AppPort)
}
