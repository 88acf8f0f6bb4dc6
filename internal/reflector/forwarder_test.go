package reflector

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/localhook/localhook/internal/config"
	"github.com/localhook/localhook/internal/models"
)

func newTestReflector() *Reflector {
	return New(config.ClientConfig{
		ServerURL:      "http://localhost:8080",
		Token:          "lhs_test",
		Forwarders:     2,
		Timeout:        2 * time.Second,
		ReconnectDelay: 10 * time.Millisecond,
	}, zerolog.Nop())
}

type capturedRequest struct {
	method string
	header http.Header
	body   string
}

func captureTarget(t *testing.T, ch chan capturedRequest) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		ch <- capturedRequest{method: r.Method, header: r.Header.Clone(), body: string(body)}
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(ts.Close)
	return ts
}

func TestForwardReplaysRequest(t *testing.T) {
	ch := make(chan capturedRequest, 1)
	target := captureTarget(t, ch)
	r := newTestReflector()

	body := "hello"
	result := r.forward(context.Background(), &models.WebhookMessage{
		EndpointID: "ep_1",
		Target:     target.URL + "/cb",
		Method:     "PUT",
		Headers:    map[string]string{"X-Test": "1", "Content-Type": "text/plain"},
		Body:       &body,
	})

	assert.Empty(t, result.Error)
	assert.Equal(t, http.StatusOK, result.StatusCode)

	got := <-ch
	assert.Equal(t, "PUT", got.method)
	assert.Equal(t, "1", got.header.Get("X-Test"))
	assert.Equal(t, "text/plain", got.header.Get("Content-Type"))
	assert.Equal(t, "hello", got.body)
}

func TestForwardGetSendsNoBody(t *testing.T) {
	ch := make(chan capturedRequest, 1)
	target := captureTarget(t, ch)
	r := newTestReflector()

	// Even a non-nil body is ignored for GET.
	stray := "should not be sent"
	result := r.forward(context.Background(), &models.WebhookMessage{
		EndpointID: "ep_1",
		Target:     target.URL + "/cb",
		Method:     "GET",
		Headers:    map[string]string{},
		Body:       &stray,
	})

	assert.Empty(t, result.Error)
	got := <-ch
	assert.Equal(t, "GET", got.method)
	assert.Empty(t, got.body)
}

func TestForwardDeadTargetReportsError(t *testing.T) {
	r := newTestReflector()

	result := r.forward(context.Background(), &models.WebhookMessage{
		EndpointID: "ep_1",
		Target:     "http://localhost:1/cb",
		Method:     "POST",
		Headers:    map[string]string{},
	})

	assert.NotEmpty(t, result.Error)
	assert.Zero(t, result.StatusCode)
}

func TestWebsocketURL(t *testing.T) {
	cases := map[string]string{
		"http://localhost:8080":  "ws://localhost:8080/ws",
		"https://hooks.example":  "wss://hooks.example/ws",
		"http://localhost:8080/": "ws://localhost:8080/ws",
		"ws://localhost:8080":    "ws://localhost:8080/ws",
	}
	for in, want := range cases {
		got, err := websocketURL(in)
		require.NoError(t, err)
		assert.Equal(t, want, got, in)
	}

	_, err := websocketURL("ftp://nope")
	assert.Error(t, err)
}
