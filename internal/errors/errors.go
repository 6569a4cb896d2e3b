package errors

import "errors"

// This package defines the sentinel errors shared by the relay. Services wrap them
// with context (`fmt.Errorf("%w: ...")`) and the API layer maps them to HTTP status
// codes with `errors.Is()`, so no service needs to know about HTTP.

var (
	// ErrValidation signifies that the request body is missing required fields or
	// has an unexpected shape.
	// This is mapped to a 400 Bad Request HTTP status.
	ErrValidation = errors.New("validation failed")

	// ErrPermission signifies that the caller's origin or access token was rejected.
	// This is mapped to a 403 Forbidden HTTP status.
	ErrPermission = errors.New("access denied")

	// ErrRateLimited signifies that the caller exhausted its request window.
	// This is mapped to a 429 Too Many Requests HTTP status.
	ErrRateLimited = errors.New("rate limit exceeded")

	// ErrUpstream signifies that the completion provider failed before or during a
	// stream. Once streaming has begun it is only ever reported as an error frame.
	ErrUpstream = errors.New("upstream completion failed")

	// ErrInternal signifies an unexpected error on the server.
	// This is mapped to a 500 Internal Server Error HTTP status.
	ErrInternal = errors.New("internal server error")
)
