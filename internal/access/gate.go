package access

import (
	"crypto/subtle"
	"fmt"
	"log/slog"
	"net/http"

	app_errors "github.com/gambadio/Luca-Chat/internal/errors"
)

// TokenHeader carries the per-origin access token on chat requests.
const TokenHeader = "X-Access-Token"

// DevelopmentToken is handed out by VerifyDomain in development mode.
const DevelopmentToken = "development-token"

// Deny reasons, surfaced in logs and wrapped into app_errors.ErrPermission.
const (
	ReasonMissingCredentials = "missing credentials"
	ReasonUnregisteredOrigin = "unregistered origin"
	ReasonTokenMismatch      = "token mismatch"
)

// Gate decides whether a request may use the relay, based on its declared origin
// and the token it presents.
type Gate struct {
	registry    *Registry
	development bool
}

func NewGate(registry *Registry, development bool) *Gate {
	return &Gate{registry: registry, development: development}
}

// Authorize returns nil when the request is allowed. A denial is an error wrapping
// app_errors.ErrPermission with one of the Reason* strings. Development mode allows
// every request; it is a local-testing switch, not a security boundary.
func (g *Gate) Authorize(declaredOrigin, presentedToken string) error {
	if g.development {
		return nil
	}
	if declaredOrigin == "" || presentedToken == "" {
		return g.deny(declaredOrigin, ReasonMissingCredentials)
	}

	origin := NormalizeOrigin(declaredOrigin)
	expected, ok := g.registry.TokenFor(origin)
	if !ok {
		return g.deny(declaredOrigin, ReasonUnregisteredOrigin)
	}
	if subtle.ConstantTimeCompare([]byte(presentedToken), []byte(expected)) != 1 {
		return g.deny(origin, ReasonTokenMismatch)
	}
	return nil
}

// VerifyDomain exchanges a registered origin for its token, once per page load.
func (g *Gate) VerifyDomain(declaredOrigin string) (string, error) {
	if g.development {
		return DevelopmentToken, nil
	}
	if declaredOrigin == "" {
		return "", g.deny(declaredOrigin, ReasonMissingCredentials)
	}
	origin := NormalizeOrigin(declaredOrigin)
	token, ok := g.registry.TokenFor(origin)
	if !ok {
		return "", g.deny(declaredOrigin, ReasonUnregisteredOrigin)
	}
	slog.Debug("Issued access token for verified domain", "origin", origin)
	return token, nil
}

// AllowedOrigins is the CORS allow-list matching this gate.
func (g *Gate) AllowedOrigins() []string {
	if g.development {
		return []string{"*"}
	}
	return g.registry.Origins()
}

func (g *Gate) deny(origin, reason string) error {
	slog.Warn("Access denied", "origin", origin, "reason", reason)
	return fmt.Errorf("%w: %s", app_errors.ErrPermission, reason)
}

// DeclaredOrigin reads the caller's origin from the Origin header, falling back to
// the Referer header (browsers omit Origin on some same-origin requests), and
// normalizes it.
func DeclaredOrigin(r *http.Request) string {
	if origin := NormalizeOrigin(r.Header.Get("Origin")); origin != "" {
		return origin
	}
	return NormalizeOrigin(r.Header.Get("Referer"))
}
