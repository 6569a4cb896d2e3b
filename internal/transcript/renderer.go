package transcript

import (
	"fmt"
	"io"
	"sync"
)

// Renderer displays the transcript. Implementations must be safe for concurrent
// use; overlapping turns each hold their own AssistantView.
type Renderer interface {
	// UserMessage shows a submitted user turn.
	UserMessage(content string)
	// AssistantMessage shows a complete assistant message, such as the welcome.
	AssistantMessage(content string)
	// BeginAssistant opens an empty assistant message that grows as deltas arrive.
	BeginAssistant() AssistantView
	// Clear removes every message.
	Clear()
}

// AssistantView is one in-progress assistant message.
type AssistantView interface {
	// Append grows the message in place.
	Append(delta string)
	// Finish marks the message complete.
	Finish()
	// Fail replaces the in-progress message with a dismissable error.
	Fail(message string)
}

// TerminalRenderer writes the transcript as plain lines. Deltas are printed inline,
// so the assistant message grows on one line.
type TerminalRenderer struct {
	mu  sync.Mutex
	out io.Writer
}

func NewTerminalRenderer(out io.Writer) *TerminalRenderer {
	return &TerminalRenderer{out: out}
}

func (r *TerminalRenderer) UserMessage(content string) {
	r.printf("you> %s\n", content)
}

func (r *TerminalRenderer) AssistantMessage(content string) {
	r.printf("assistant> %s\n", content)
}

func (r *TerminalRenderer) BeginAssistant() AssistantView {
	r.printf("assistant> ")
	return &terminalView{r: r}
}

func (r *TerminalRenderer) Clear() {
	// ANSI clear screen + home.
	r.printf("\033[2J\033[H")
}

func (r *TerminalRenderer) printf(format string, args ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, _ = fmt.Fprintf(r.out, format, args...)
}

type terminalView struct {
	r       *TerminalRenderer
	started bool
}

func (v *terminalView) Append(delta string) {
	v.started = true
	v.r.printf("%s", delta)
}

func (v *terminalView) Finish() {
	v.r.printf("\n")
}

func (v *terminalView) Fail(message string) {
	if v.started {
		v.r.printf("\n")
	}
	v.r.printf("[error] %s\n", message)
}
