package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/gambadio/Luca-Chat/internal/llm"
	"github.com/gambadio/Luca-Chat/internal/model"
)

// Client-facing texts for error frames. Upstream details stay in the logs.
const (
	upstreamFailureMessage = "An error occurred while generating the response. Please try again."
	turnTimeoutMessage     = "The response took too long. Please try again."
)

// RelayService runs chat turns: it assembles the upstream message list and turns the
// provider's fragment stream into caller frames. It keeps no state between turns.
type RelayService struct {
	llm          llm.CompletionProvider
	systemPrompt string
	turnTimeout  time.Duration
}

func NewRelayService(provider llm.CompletionProvider, systemPrompt string, turnTimeout time.Duration) *RelayService {
	return &RelayService{llm: provider, systemPrompt: systemPrompt, turnTimeout: turnTimeout}
}

// BuildMessages returns [system prompt] + the 10 most recent history turns + the new
// user message. History length is never trusted from the caller.
func BuildMessages(systemPrompt string, history []model.ConversationTurn, message string) []llm.Message {
	history = model.TrimHistory(history)
	messages := make([]llm.Message, 0, len(history)+2)
	messages = append(messages, llm.Message{Role: model.RoleSystem, Content: systemPrompt})
	for _, turn := range history {
		messages = append(messages, llm.Message{Role: turn.Role, Content: turn.Content})
	}
	return append(messages, llm.Message{Role: model.RoleUser, Content: message})
}

// HandleTurn streams one completion into frames and closes frames when done. Content
// frames keep upstream order; exactly one terminal frame (Done or Error) follows
// unless ctx is cancelled, in which case the turn is abandoned silently.
func (s *RelayService) HandleTurn(ctx context.Context, req *model.ChatRequest, frames chan<- model.StreamFrame) {
	defer close(frames)

	turnID := uuid.NewString()
	logger := slog.With("turn_id", turnID)
	started := time.Now()

	turnCtx, cancel := context.WithTimeout(ctx, s.turnTimeout)
	defer cancel()

	messages := BuildMessages(s.systemPrompt, req.History, req.Message)
	logger.Info("Starting chat turn", "history_turns", len(messages)-2)

	fragments := s.llm.StreamCompletion(turnCtx, messages)

	var reply strings.Builder
	emit := func(f model.StreamFrame) bool {
		select {
		case frames <- f:
			return true
		case <-ctx.Done():
			return false
		}
	}

	for {
		select {
		case frag, ok := <-fragments:
			switch {
			case !ok:
				logger.Error("Completion stream closed without a terminal fragment")
				emit(model.StreamFrame{Error: upstreamFailureMessage})
				return
			case frag.Error != "":
				logger.Error("Upstream completion failed", "error", frag.Error, "partial_chars", reply.Len())
				msg := upstreamFailureMessage
				if errors.Is(turnCtx.Err(), context.DeadlineExceeded) {
					msg = turnTimeoutMessage
				}
				emit(model.StreamFrame{Error: msg})
				return
			case frag.Done:
				logger.Info("Finished chat turn", "reply_chars", reply.Len(), "duration", time.Since(started))
				emit(model.StreamFrame{Done: true})
				return
			}
			reply.WriteString(frag.Content)
			if !emit(model.StreamFrame{Content: frag.Content}) {
				logger.Info("Client disconnected, abandoning chat turn", "partial_chars", reply.Len())
				return
			}
		case <-turnCtx.Done():
			if ctx.Err() != nil {
				logger.Info("Client disconnected, abandoning chat turn", "partial_chars", reply.Len())
				return
			}
			if errors.Is(turnCtx.Err(), context.DeadlineExceeded) {
				logger.Warn("Chat turn timed out", "timeout", s.turnTimeout, "partial_chars", reply.Len())
				emit(model.StreamFrame{Error: turnTimeoutMessage})
				return
			}
			emit(model.StreamFrame{Error: upstreamFailureMessage})
			return
		}
	}
}
