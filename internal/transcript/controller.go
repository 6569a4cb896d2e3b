package transcript

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/gambadio/Luca-Chat/internal/model"
)

// WelcomeMessage opens every fresh transcript. It is shown, not committed to history.
const WelcomeMessage = "Hello! How can I help you with our product today?"

const (
	tokenHeader    = "X-Access-Token"
	genericFailure = "An error occurred. Please try again."
	maxFrameBytes  = 1 << 20
)

var (
	// ErrEmptyMessage is returned for blank input; nothing is sent or rendered.
	ErrEmptyMessage = errors.New("message is empty")
	// ErrTurnFailed wraps every failure of a submitted turn.
	ErrTurnFailed = errors.New("chat turn failed")
)

type Options struct {
	// BaseURL is the relay's address, e.g. http://localhost:8080.
	BaseURL string
	// Origin is sent as the Origin header, the page the widget is embedded in.
	Origin string
	Client *http.Client
}

// Controller is the client side of the relay: it owns the history window and the
// access token, submits turns and rebuilds streamed answers through a Renderer.
type Controller struct {
	baseURL string
	origin  string
	client  *http.Client
	history *History

	mu    sync.RWMutex
	token string
}

func NewController(opts Options) *Controller {
	client := opts.Client
	if client == nil {
		client = &http.Client{}
	}
	return &Controller{
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		origin:  opts.Origin,
		client:  client,
		history: NewHistory(),
	}
}

func (c *Controller) History() *History { return c.history }

func (c *Controller) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// VerifyDomain exchanges the configured origin for an access token. It is meant to
// run once per session, before the first Submit.
func (c *Controller) VerifyDomain(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/verify-domain", nil)
	if err != nil {
		return err
	}
	req.Header.Set("Origin", c.origin)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("verify domain: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("verify domain: %s", failureMessage(resp))
	}
	var body struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return fmt.Errorf("verify domain: decode response: %w", err)
	}
	if body.Token == "" {
		return errors.New("verify domain: empty token")
	}

	c.mu.Lock()
	c.token = body.Token
	c.mu.Unlock()
	slog.Debug("Domain verified", "origin", c.origin)
	return nil
}

// Welcome renders the greeting of a fresh transcript.
func (c *Controller) Welcome(r Renderer) {
	r.AssistantMessage(WelcomeMessage)
}

// Restart clears the history and the screen and greets again.
func (c *Controller) Restart(r Renderer) {
	c.history.Reset()
	r.Clear()
	c.Welcome(r)
}

// Submit sends one user message with the current history and renders the streamed
// answer. On [DONE] the exchange is committed and the full answer returned. Any
// failure is rendered on the assistant view and nothing is committed.
// Concurrent calls are independent turns.
func (c *Controller) Submit(ctx context.Context, message string, r Renderer) (string, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return "", ErrEmptyMessage
	}

	r.UserMessage(message)
	view := r.BeginAssistant()

	answer, err := c.stream(ctx, message, view)
	if err != nil {
		var display *displayError
		if errors.As(err, &display) {
			view.Fail(display.message)
		} else {
			view.Fail(genericFailure)
		}
		slog.Debug("Chat turn failed", "error", err)
		return "", fmt.Errorf("%w: %w", ErrTurnFailed, err)
	}

	view.Finish()
	// The relay rejects history turns with empty content.
	if answer != "" {
		c.history.Commit(message, answer)
	}
	return answer, nil
}

func (c *Controller) stream(ctx context.Context, message string, view AssistantView) (string, error) {
	payload, err := json.Marshal(model.ChatRequest{Message: message, History: c.history.Snapshot()})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/chat", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Origin", c.origin)
	if token := c.Token(); token != "" {
		req.Header.Set(tokenHeader, token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &displayError{message: failureMessage(resp)}
	}

	var answer strings.Builder
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), maxFrameBytes)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if data == "[DONE]" {
			return answer.String(), nil
		}

		var frame model.StreamFrame
		if err := json.Unmarshal([]byte(data), &frame); err != nil {
			slog.Debug("Skipping malformed frame", "data", data, "error", err)
			continue
		}
		if frame.Error != "" {
			return "", &displayError{message: frame.Error}
		}
		if frame.Content != "" {
			answer.WriteString(frame.Content)
			view.Append(frame.Content)
		}
	}
	if err := scanner.Err(); err != nil {
		return "", err
	}
	return "", io.ErrUnexpectedEOF
}

// displayError carries a message the relay meant for the user.
type displayError struct {
	message string
}

func (e *displayError) Error() string { return e.message }

// failureMessage extracts the relay's {"error": ...} text from a non-2xx response.
func failureMessage(resp *http.Response) string {
	var body struct {
		Error string `json:"error"`
	}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err := json.Unmarshal(raw, &body); err == nil && body.Error != "" {
		return body.Error
	}
	if text := strings.TrimSpace(string(raw)); text != "" {
		return text
	}
	return fmt.Sprintf("request failed with status %d", resp.StatusCode)
}
