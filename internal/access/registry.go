package access

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// tokenBytes is the entropy of a generated access token; hex doubles its length.
const tokenBytes = 32

// Registry is the immutable table of origins allowed to use the relay and the
// secret token bound to each of them. It is built once at start and only read after.
type Registry struct {
	tokens map[string]string
}

// NewRegistry issues a fresh token for every origin and then applies preset tokens
// loaded from configuration. Presets must name a listed origin, carry at least as
// much entropy as a generated token, and never be shared between two origins.
func NewRegistry(origins []string, preset map[string]string) (*Registry, error) {
	tokens, err := IssueTokens(origins)
	if err != nil {
		return nil, err
	}

	for rawOrigin, token := range preset {
		origin := NormalizeOrigin(rawOrigin)
		if _, ok := tokens[origin]; !ok {
			return nil, fmt.Errorf("preset token for %q: origin is not in the allowed list", rawOrigin)
		}
		if len(token) < tokenBytes {
			return nil, fmt.Errorf("preset token for %q is too short (%d chars)", origin, len(token))
		}
		tokens[origin] = token
	}

	owners := make(map[string]string, len(tokens))
	for origin, token := range tokens {
		if other, dup := owners[token]; dup {
			return nil, fmt.Errorf("origins %q and %q share the same token", other, origin)
		}
		owners[token] = origin
	}

	return &Registry{tokens: tokens}, nil
}

// IssueTokens normalizes the given origins and generates one random hex token per
// distinct origin. Blank entries are ignored; an unparsable origin is an error.
func IssueTokens(origins []string) (map[string]string, error) {
	tokens := make(map[string]string, len(origins))
	for _, raw := range origins {
		if strings.TrimSpace(raw) == "" {
			continue
		}
		origin := NormalizeOrigin(raw)
		if origin == "" {
			return nil, fmt.Errorf("invalid origin %q: expected scheme://host[:port]", raw)
		}
		if _, seen := tokens[origin]; seen {
			continue
		}
		token, err := generateToken()
		if err != nil {
			return nil, fmt.Errorf("generate token for %q: %w", origin, err)
		}
		tokens[origin] = token
	}
	return tokens, nil
}

// IsRegistered reports whether the (normalized) origin may use the relay.
func (r *Registry) IsRegistered(origin string) bool {
	_, ok := r.tokens[origin]
	return ok
}

// TokenFor returns the token bound to the (normalized) origin.
func (r *Registry) TokenFor(origin string) (string, bool) {
	token, ok := r.tokens[origin]
	return token, ok
}

// Origins lists the registered origins in a stable order.
func (r *Registry) Origins() []string {
	out := make([]string, 0, len(r.tokens))
	for origin := range r.tokens {
		out = append(out, origin)
	}
	sort.Strings(out)
	return out
}

// NormalizeOrigin reduces an Origin or Referer value to scheme://host[:port], with
// scheme and host lower-cased and default ports dropped. It returns "" for anything
// that is not an absolute http(s) URL.
func NormalizeOrigin(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "null" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return ""
	}
	host := strings.ToLower(u.Hostname())
	if host == "" {
		return ""
	}
	if strings.Contains(host, ":") {
		host = "[" + host + "]"
	}
	port := u.Port()
	if (scheme == "http" && port == "80") || (scheme == "https" && port == "443") {
		port = ""
	}
	if port != "" {
		host += ":" + port
	}
	return scheme + "://" + host
}

func generateToken() (string, error) {
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
