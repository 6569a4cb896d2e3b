package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/gambadio/Luca-Chat/internal/access"
	app_errors "github.com/gambadio/Luca-Chat/internal/errors"
	"github.com/gambadio/Luca-Chat/internal/interfaces"
	"github.com/gambadio/Luca-Chat/internal/model"
	"github.com/gambadio/Luca-Chat/internal/ratelimit"
)

// maxChatBodyBytes bounds the request body; ten turns of history fit comfortably.
const maxChatBodyBytes = 256 << 10

// RelayHandler serves the public chat surface.
type RelayHandler struct {
	relay   interfaces.RelayService
	gate    interfaces.AccessGate
	limiter interfaces.RateLimiter
}

func NewRelayHandler(relay interfaces.RelayService, gate interfaces.AccessGate, chatLimiter interfaces.RateLimiter) *RelayHandler {
	return &RelayHandler{relay: relay, gate: gate, limiter: chatLimiter}
}

// HandleChat godoc
// @Summary      Stream a chat turn
// @Description  Relays one user message, plus up to ten turns of history, to the completion provider and streams the answer back as Server-Sent Events. Each event is `data: {"content": "..."}`; the stream ends with `data: [DONE]` or with a single `data: {"error": "..."}` frame.
// @Tags         Chat
// @Accept       json
// @Produce      text/event-stream
// @Param        X-Access-Token  header  string             false  "Token issued by /verify-domain"
// @Param        request         body    model.ChatRequest  true   "Message and history"
// @Success      200  {string}  string  "SSE stream of model.StreamFrame"
// @Failure      400  {object}  ErrorResponse
// @Failure      403  {object}  ErrorResponse
// @Failure      429  {object}  RateLimitResponse
// @Failure      500  {object}  ErrorResponse
// @Router       /api/chat [post]
func (h *RelayHandler) HandleChat(w http.ResponseWriter, r *http.Request) {
	req, err := decodeChatRequest(w, r)
	if err != nil {
		respondWithError(w, err)
		return
	}
	if err := h.gate.Authorize(access.DeclaredOrigin(r), r.Header.Get(access.TokenHeader)); err != nil {
		respondWithError(w, err)
		return
	}
	client := ratelimit.ClientKey(r)
	if err := h.limiter.CheckAndConsume(r.Context(), client); err != nil {
		respondWithError(w, err)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		respondWithError(w, fmt.Errorf("%w: response writer does not support flushing", app_errors.ErrInternal))
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	frames := make(chan model.StreamFrame)
	go h.relay.HandleTurn(ctx, req, frames)

	for frame := range frames {
		var writeErr error
		if frame.Done {
			writeErr = writeStreamDone(w)
		} else {
			writeErr = writeStreamEvent(w, frame)
		}
		if writeErr != nil {
			slog.Info("Client disconnected, abandoning turn", "client", client, "error", writeErr)
			cancel()
			for range frames {
			}
			return
		}
	}
}

// HandleVerifyDomain godoc
// @Summary      Exchange an origin for its access token
// @Description  Returns the token registered for the caller's Origin (or Referer). Development mode returns a fixed placeholder.
// @Tags         Access
// @Produce      json
// @Success      200  {object}  TokenResponse
// @Failure      403  {object}  ErrorResponse
// @Failure      429  {string}  string
// @Router       /verify-domain [post]
func (h *RelayHandler) HandleVerifyDomain(w http.ResponseWriter, r *http.Request) {
	token, err := h.gate.VerifyDomain(access.DeclaredOrigin(r))
	if err != nil {
		respondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, TokenResponse{Token: token})
}

// HandleHealth godoc
// @Summary      Liveness probe
// @Tags         Health
// @Produce      json
// @Success      200  {object}  StatusResponse
// @Router       /health [get]
func (h *RelayHandler) HandleHealth(w http.ResponseWriter, _ *http.Request) {
	respondWithJSON(w, http.StatusOK, StatusResponse{Status: "ok"})
}

// decodeChatRequest reads exactly one JSON object with no unknown fields and
// validates it.
func decodeChatRequest(w http.ResponseWriter, r *http.Request) (*model.ChatRequest, error) {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxChatBodyBytes))
	dec.DisallowUnknownFields()

	var req model.ChatRequest
	if err := dec.Decode(&req); err != nil {
		return nil, fmt.Errorf("%w: invalid request body: %s", app_errors.ErrValidation, err.Error())
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: request body must contain a single JSON object", app_errors.ErrValidation)
	}
	if err := validateRequest(&req); err != nil {
		return nil, err
	}
	return &req, nil
}
