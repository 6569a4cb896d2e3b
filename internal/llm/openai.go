package llm

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
)

// Options configures an OpenAI-compatible completion endpoint (OpenRouter by default).
type Options struct {
	BaseURL     string
	APIKey      string
	Model       string
	Temperature float64
	MaxTokens   int
	// Referer and Title are sent as HTTP-Referer / X-Title for OpenRouter attribution.
	Referer string
	Title   string
	Client  *http.Client
}

type openAIProvider struct {
	opts   Options
	client *http.Client
}

func NewOpenAIProvider(opts Options) CompletionProvider {
	client := opts.Client
	if client == nil {
		// No client timeout: streams are bounded by the caller's context.
		client = &http.Client{}
	}
	opts.BaseURL = strings.TrimRight(opts.BaseURL, "/")
	return &openAIProvider{opts: opts, client: client}
}

type chatCompletionRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Stream      bool      `json:"stream"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	Temperature float64   `json:"temperature"`
}

type streamChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
		FinishReason *string `json:"finish_reason"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func (p *openAIProvider) StreamCompletion(ctx context.Context, messages []Message) <-chan Fragment {
	ch := make(chan Fragment)
	go func() {
		defer close(ch)
		if err := p.stream(ctx, messages, ch); err != nil {
			if ctx.Err() != nil {
				// Caller is gone or the turn timed out; try once, never block.
				select {
				case ch <- Fragment{Error: fmt.Sprintf("completion aborted: %v", ctx.Err())}:
				default:
				}
				return
			}
			send(ctx, ch, Fragment{Error: err.Error()})
		}
	}()
	return ch
}

// stream runs one upstream call. A nil return means a terminal Done fragment was
// delivered (or the caller went away while it was being delivered).
func (p *openAIProvider) stream(ctx context.Context, messages []Message, ch chan<- Fragment) error {
	body, err := json.Marshal(chatCompletionRequest{
		Model:       p.opts.Model,
		Messages:    messages,
		Stream:      true,
		MaxTokens:   p.opts.MaxTokens,
		Temperature: p.opts.Temperature,
	})
	if err != nil {
		return fmt.Errorf("could not marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.opts.BaseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("could not create request: %w", err)
	}
	p.setHeaders(httpReq)

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			slog.Debug("Failed to close upstream response body", "error", err)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("api returned non-200 status %d: %s", resp.StatusCode, strings.TrimSpace(string(bodyBytes)))
	}

	finished := false
	reader := bufio.NewReader(resp.Body)
	for {
		line, readErr := reader.ReadString('\n')
		if line = strings.TrimSpace(line); line != "" {
			done, err := p.handleLine(ctx, line, ch, &finished)
			if err != nil || done {
				return err
			}
		}
		if readErr != nil {
			if errors.Is(readErr, io.EOF) {
				break
			}
			return fmt.Errorf("failed to read stream: %w", readErr)
		}
	}

	// Some compatible servers close the body after the finish_reason chunk without a
	// [DONE] line; a stream that ends with neither was cut off.
	if !finished {
		return errors.New("stream ended before completion")
	}
	send(ctx, ch, Fragment{Done: true})
	return nil
}

// handleLine processes one SSE line. It reports done=true once a terminal fragment
// has been delivered.
func (p *openAIProvider) handleLine(ctx context.Context, line string, ch chan<- Fragment, finished *bool) (bool, error) {
	// Lines starting with ':' are SSE comments (OpenRouter keep-alives).
	if strings.HasPrefix(line, ":") || !strings.HasPrefix(line, "data:") {
		return false, nil
	}
	data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
	if data == "[DONE]" {
		send(ctx, ch, Fragment{Done: true})
		return true, nil
	}

	var chunk streamChunk
	if err := json.Unmarshal([]byte(data), &chunk); err != nil {
		slog.Warn("Skipping malformed upstream chunk", "error", err, "chunk", truncate(data, 200))
		return false, nil
	}
	if chunk.Error != nil {
		return false, fmt.Errorf("upstream error: %s", chunk.Error.Message)
	}
	for _, choice := range chunk.Choices {
		if choice.Delta.Content != "" {
			if !send(ctx, ch, Fragment{Content: choice.Delta.Content}) {
				return false, ctx.Err()
			}
		}
		if choice.FinishReason != nil && *choice.FinishReason != "" {
			*finished = true
		}
	}
	return false, nil
}

func (p *openAIProvider) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")
	if p.opts.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.opts.APIKey)
	}
	if p.opts.Referer != "" {
		req.Header.Set("HTTP-Referer", p.opts.Referer)
	}
	if p.opts.Title != "" {
		req.Header.Set("X-Title", p.opts.Title)
	}
}

// send delivers f unless ctx ends first.
func send(ctx context.Context, ch chan<- Fragment, f Fragment) bool {
	select {
	case ch <- f:
		return true
	case <-ctx.Done():
		return false
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
