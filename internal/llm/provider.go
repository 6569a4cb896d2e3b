package llm

import "context"

// Message is one entry of the message list sent upstream.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Fragment is one element of a completion stream: an incremental text delta, a
// failure, or the clean end of the stream.
type Fragment struct {
	Content string
	Error   string
	Done    bool
}

// CompletionProvider opens streaming completions.
//
// StreamCompletion returns a channel that yields content fragments in upstream order
// and then exactly one terminal fragment (Done or Error) before it is closed. It never
// fails outside the channel. Cancelling ctx aborts the upstream call and closes the
// channel promptly; the channel cannot be restarted.
type CompletionProvider interface {
	StreamCompletion(ctx context.Context, messages []Message) <-chan Fragment
}
