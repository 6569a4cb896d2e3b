package api

import (
	"net/http"
	"time"

	// This blank import is required by swaggo to find the API definitions.
	_ "github.com/gambadio/Luca-Chat/docs"
	"github.com/gambadio/Luca-Chat/internal/access"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger"
)

// RouterOptions holds everything the router needs besides the relay handler.
type RouterOptions struct {
	// AllowedOrigins is the CORS allow-list; "*" allows any origin.
	AllowedOrigins []string
	// AssetLimiter guards static files and the token exchange.
	AssetLimiter func(http.Handler) http.Handler
	// StaticDir is served under "/". Empty disables the file server.
	StaticDir string
}

// NewRouter creates the chi router with every route of the relay.
func NewRouter(relayHandler *RelayHandler, opts RouterOptions) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP) // ratelimit.ClientKey relies on this
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: opts.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", access.TokenHeader},
		MaxAge:         300,
	}))

	assetLimiter := opts.AssetLimiter
	if assetLimiter == nil {
		assetLimiter = func(next http.Handler) http.Handler { return next }
	}

	r.Get("/api/swagger/*", httpSwagger.WrapHandler)

	// Short JSON routes get a request timeout.
	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(30 * time.Second))

		r.Get("/health", relayHandler.HandleHealth)
		r.With(assetLimiter).Post("/verify-domain", relayHandler.HandleVerifyDomain)
	})

	// The chat stream must not have a timeout; the relay service bounds each turn itself.
	r.Post("/api/chat", relayHandler.HandleChat)

	if opts.StaticDir != "" {
		fileServer := http.FileServer(http.Dir(opts.StaticDir))
		r.With(assetLimiter).Handle("/*", fileServer)
	}

	return r
}
