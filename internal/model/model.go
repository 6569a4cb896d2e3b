package model

// Roles a client may put in its history. The system prompt is injected by the
// relay and never accepted from the wire.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// MaxHistoryTurns is the conversation window, on the client and on the relay.
const MaxHistoryTurns = 10

// ConversationTurn is one message of a conversation.
type ConversationTurn struct {
	Role    string `json:"role" validate:"required,oneof=user assistant" example:"user"`
	Content string `json:"content" validate:"required" example:"Does it vacuum stairs?"`
}

// ChatRequest is the body of POST /api/chat. History is the client's own snapshot;
// the relay keeps nothing between requests.
type ChatRequest struct {
	Message string             `json:"message" validate:"required,notblank,max=4000" example:"What is the battery life?"`
	History []ConversationTurn `json:"history,omitempty" validate:"omitempty,dive"`
}

// StreamFrame is one unit of the relay's outbound event stream. Exactly one frame of
// a turn is terminal: either Done or a non-empty Error.
type StreamFrame struct {
	Content string `json:"content,omitempty"`
	Error   string `json:"error,omitempty"`
	Done    bool   `json:"-"`
}

// IsTerminal reports whether the frame ends the stream.
func (f StreamFrame) IsTerminal() bool {
	return f.Done || f.Error != ""
}

// TrimHistory returns at most the MaxHistoryTurns most recent turns.
func TrimHistory(history []ConversationTurn) []ConversationTurn {
	if len(history) <= MaxHistoryTurns {
		return history
	}
	return history[len(history)-MaxHistoryTurns:]
}
