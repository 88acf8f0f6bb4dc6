package reflector

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/localhook/localhook/internal/models"
)

// ForwardResult records one replay attempt against the local target.
type ForwardResult struct {
	StatusCode int
	LatencyMs  int64
	Error      string
}

// forward replays a captured webhook against its target. Failures are
// reported in the result, never as an error: a dead local server must not
// take the reflector down with it.
func (r *Reflector) forward(ctx context.Context, msg *models.WebhookMessage) *ForwardResult {
	start := time.Now()

	var body io.Reader
	if msg.Body != nil && msg.Method != http.MethodGet && msg.Method != http.MethodHead {
		body = strings.NewReader(*msg.Body)
	}

	req, err := http.NewRequestWithContext(ctx, msg.Method, msg.Target, body)
	if err != nil {
		return &ForwardResult{
			Error:     fmt.Sprintf("failed to create request: %v", err),
			LatencyMs: time.Since(start).Milliseconds(),
		}
	}

	// Replayed verbatim. The transport supplies its own Host and
	// Content-Length, matching the target URL rather than the capture.
	for k, v := range msg.Headers {
		req.Header.Set(k, v)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return &ForwardResult{
			Error:     fmt.Sprintf("request failed: %v", err),
			LatencyMs: time.Since(start).Milliseconds(),
		}
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 1024))

	return &ForwardResult{
		StatusCode: resp.StatusCode,
		LatencyMs:  time.Since(start).Milliseconds(),
	}
}
