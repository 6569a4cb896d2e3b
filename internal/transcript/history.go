package transcript

import (
	"sync"

	"github.com/gambadio/Luca-Chat/internal/model"
)

// History is the client's bounded conversation window. Only completed exchanges
// are committed, so it always alternates user and assistant turns.
type History struct {
	mu    sync.Mutex
	turns []model.ConversationTurn
}

func NewHistory() *History {
	return &History{}
}

// Snapshot returns a copy of the most recent model.MaxHistoryTurns turns.
func (h *History) Snapshot() []model.ConversationTurn {
	h.mu.Lock()
	defer h.mu.Unlock()
	recent := model.TrimHistory(h.turns)
	out := make([]model.ConversationTurn, len(recent))
	copy(out, recent)
	return out
}

// Commit appends one exchange and evicts the oldest turns beyond the cap.
func (h *History) Commit(user, assistant string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.turns = append(h.turns,
		model.ConversationTurn{Role: model.RoleUser, Content: user},
		model.ConversationTurn{Role: model.RoleAssistant, Content: assistant},
	)
	if over := len(h.turns) - model.MaxHistoryTurns; over > 0 {
		h.turns = append(h.turns[:0:0], h.turns[over:]...)
	}
}

func (h *History) Reset() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.turns = nil
}

func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.turns)
}
