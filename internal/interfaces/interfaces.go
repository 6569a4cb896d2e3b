package interfaces

import (
	"context"

	"github.com/gambadio/Luca-Chat/internal/model"
)

// The API layer depends on these contracts rather than on the concrete access,
// ratelimit and service types, so handlers can be tested with mocks.

// RelayService runs one chat turn and streams its frames; it closes frames when done.
type RelayService interface {
	HandleTurn(ctx context.Context, req *model.ChatRequest, frames chan<- model.StreamFrame)
}

// AccessGate authorizes origins and hands out their tokens.
type AccessGate interface {
	Authorize(declaredOrigin, presentedToken string) error
	VerifyDomain(declaredOrigin string) (string, error)
}

// RateLimiter counts one request for key and rejects it once the window is spent.
type RateLimiter interface {
	CheckAndConsume(ctx context.Context, key string) error
}
