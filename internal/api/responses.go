package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	app_errors "github.com/gambadio/Luca-Chat/internal/errors"
	"github.com/gambadio/Luca-Chat/internal/ratelimit"
)

// Shared response DTOs and the helpers that write them, synchronously or as
// Server-Sent Events.

// ErrorResponse defines the standard JSON structure for error messages.
type ErrorResponse struct {
	Error string `json:"error" example:"Access denied."`
}

// RateLimitResponse is returned with 429 alongside the Retry-After header.
type RateLimitResponse struct {
	Error      string `json:"error" example:"Too many requests. Please try again later."`
	RetryAfter int    `json:"retry_after" example:"42"`
}

// StatusResponse is the liveness payload.
type StatusResponse struct {
	Status string `json:"status" example:"ok"`
}

// TokenResponse carries the access token issued by /verify-domain.
type TokenResponse struct {
	Token string `json:"token" example:"development-token"`
}

// streamDone is the sentinel frame that ends a successful stream.
const streamDone = "[DONE]"

// respondWithError maps business-layer errors to HTTP status codes and writes a
// client-safe JSON message. The full error is only logged.
func respondWithError(w http.ResponseWriter, err error) {
	var statusCode int
	var message string

	var limitErr *ratelimit.LimitError
	switch {
	case errors.As(err, &limitErr):
		retryAfter := limitErr.RetryAfterSeconds()
		slog.Warn("Responding with error", "status_code", http.StatusTooManyRequests, "retry_after", retryAfter, "internal_error", err)
		w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
		respondWithJSON(w, http.StatusTooManyRequests, RateLimitResponse{
			Error:      "Too many requests. Please try again later.",
			RetryAfter: retryAfter,
		})
		return
	case errors.Is(err, app_errors.ErrValidation):
		statusCode = http.StatusBadRequest
		// Validation messages are already descriptive and carry no internals.
		message = err.Error()
	case errors.Is(err, app_errors.ErrPermission):
		statusCode = http.StatusForbidden
		message = "Access denied."
	case errors.Is(err, app_errors.ErrRateLimited):
		statusCode = http.StatusTooManyRequests
		message = "Too many requests. Please try again later."
	default:
		statusCode = http.StatusInternalServerError
		message = "An unexpected internal server error occurred."
	}

	slog.Warn("Responding with error", "status_code", statusCode, "client_message", message, "internal_error", err)

	respondWithJSON(w, statusCode, ErrorResponse{Error: message})
}

// respondWithJSON marshals payload and writes it with the given status code.
func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		slog.Error("Failed to marshal JSON response", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if _, err := w.Write(response); err != nil {
		slog.Error("Failed to write JSON response", "error", err)
	}
}

// writeStreamEvent marshals data into one `data:` event and flushes it. A write
// error means the client has gone away.
func writeStreamEvent(w http.ResponseWriter, data interface{}) error {
	jsonData, err := json.Marshal(data)
	if err != nil {
		slog.Error("Failed to marshal stream data to JSON", "error", err)
		return nil
	}
	return writeStreamData(w, string(jsonData))
}

// writeStreamDone writes the end-of-stream sentinel.
func writeStreamDone(w http.ResponseWriter) error {
	return writeStreamData(w, streamDone)
}

func writeStreamData(w http.ResponseWriter, payload string) error {
	if _, err := fmt.Fprintf(w, "data: %s\n\n", payload); err != nil {
		return fmt.Errorf("failed to write data to stream: %w", err)
	}
	if flusher, ok := w.(http.Flusher); ok {
		flusher.Flush()
	}
	return nil
}
