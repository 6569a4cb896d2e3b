package api_test

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gambadio/Luca-Chat/internal/access"
	"github.com/gambadio/Luca-Chat/internal/api"
	"github.com/gambadio/Luca-Chat/internal/llm"
	"github.com/gambadio/Luca-Chat/internal/ratelimit"
	"github.com/gambadio/Luca-Chat/internal/service"
)

func upstreamChunk(content string) string {
	return fmt.Sprintf(`data: {"choices":[{"delta":{"content":%q},"finish_reason":null}]}`+"\n\n", content)
}

// newRelayServer wires the real provider, service, gate and limiters against a fake
// upstream that writes the given raw SSE lines.
func newRelayServer(t *testing.T, chatMax, assetMax int, upstreamLines ...string) *httptest.Server {
	t.Helper()

	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		for _, line := range upstreamLines {
			_, _ = io.WriteString(w, line)
			w.(http.Flusher).Flush()
		}
	}))
	t.Cleanup(upstream.Close)

	staticDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(staticDir, "widget.js"), []byte("console.log('widget')"), 0o600))

	store := ratelimit.NewMemoryStore(0)
	t.Cleanup(store.Close)

	provider := llm.NewOpenAIProvider(llm.Options{BaseURL: upstream.URL, APIKey: "test-key", Model: "test-model", MaxTokens: 100})
	relay := service.NewRelayService(provider, "You are RoboMaid Assistant.", 5*time.Second)
	gate := newGate(t, false)
	handler := api.NewRelayHandler(relay, gate, ratelimit.New("chat", chatMax, time.Minute, store))

	router := api.NewRouter(handler, api.RouterOptions{
		AllowedOrigins: gate.AllowedOrigins(),
		AssetLimiter:   ratelimit.New("asset", assetMax, time.Minute, store).Middleware,
		StaticDir:      staticDir,
	})
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return server
}

func postChat(t *testing.T, server *httptest.Server, body string) (*http.Response, string) {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, server.URL+"/api/chat", strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Origin", shopOrigin)
	req.Header.Set(access.TokenHeader, shopToken)

	resp, err := server.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(raw)
}

func TestRelay_EndToEnd_StreamsAnswer(t *testing.T) {
	server := newRelayServer(t, 20, 120,
		": OPENROUTER PROCESSING\n\n",
		upstreamChunk("The RoboMaid runs "),
		upstreamChunk("for up to 4 hours."),
		`data: {"choices":[{"delta":{},"finish_reason":"stop"}]}`+"\n\n",
		"data: [DONE]\n\n",
	)

	resp, body := postChat(t, server, `{"message":"What is the battery life?"}`)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))
	assert.Equal(t, shopOrigin, resp.Header.Get("Access-Control-Allow-Origin"))
	assert.Equal(t,
		"data: {\"content\":\"The RoboMaid runs \"}\n\n"+
			"data: {\"content\":\"for up to 4 hours.\"}\n\n"+
			"data: [DONE]\n\n",
		body)
}

func TestRelay_EndToEnd_UpstreamFailsAfterOneFragment(t *testing.T) {
	server := newRelayServer(t, 20, 120, upstreamChunk("The RoboMaid runs "))

	resp, body := postChat(t, server, `{"message":"What is the battery life?"}`)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t,
		"data: {\"content\":\"The RoboMaid runs \"}\n\n"+
			"data: {\"error\":\"An error occurred while generating the response. Please try again.\"}\n\n",
		body)
}

func TestRelay_EndToEnd_ChatLimiter(t *testing.T) {
	server := newRelayServer(t, 1, 120, "data: [DONE]\n\n")

	first, _ := postChat(t, server, `{"message":"hi"}`)
	assert.Equal(t, http.StatusOK, first.StatusCode)

	second, body := postChat(t, server, `{"message":"hi again"}`)
	assert.Equal(t, http.StatusTooManyRequests, second.StatusCode)
	assert.Equal(t, "60", second.Header.Get("Retry-After"))
	assert.JSONEq(t, `{"error":"Too many requests. Please try again later.","retry_after":60}`, body)
}

func TestRouter_CORS(t *testing.T) {
	server := newRelayServer(t, 20, 120)

	preflight := func(origin string) *http.Response {
		req, err := http.NewRequest(http.MethodOptions, server.URL+"/api/chat", nil)
		require.NoError(t, err)
		req.Header.Set("Origin", origin)
		req.Header.Set("Access-Control-Request-Method", http.MethodPost)
		req.Header.Set("Access-Control-Request-Headers", "content-type,x-access-token")
		resp, err := server.Client().Do(req)
		require.NoError(t, err)
		_ = resp.Body.Close()
		return resp
	}

	allowed := preflight(shopOrigin)
	assert.Equal(t, shopOrigin, allowed.Header.Get("Access-Control-Allow-Origin"))

	denied := preflight("https://evil.example.com")
	assert.Empty(t, denied.Header.Get("Access-Control-Allow-Origin"))
}

func TestRouter_StaticAssetsAreRateLimited(t *testing.T) {
	server := newRelayServer(t, 20, 2)

	get := func() *http.Response {
		resp, err := server.Client().Get(server.URL + "/widget.js")
		require.NoError(t, err)
		_ = resp.Body.Close()
		return resp
	}

	assert.Equal(t, http.StatusOK, get().StatusCode)
	assert.Equal(t, http.StatusOK, get().StatusCode)
	limited := get()
	assert.Equal(t, http.StatusTooManyRequests, limited.StatusCode)
	assert.NotEmpty(t, limited.Header.Get("Retry-After"))
}

func TestRouter_Health(t *testing.T) {
	server := newRelayServer(t, 20, 120)

	resp, err := server.Client().Get(server.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"status":"ok"}`, string(raw))
}
