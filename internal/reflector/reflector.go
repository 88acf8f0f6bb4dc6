// Package reflector is the client side of the relay: it holds the realtime
// connection to the server and replays delivered webhooks against the local
// target they were registered for.
//
// Replay failures are swallowed and logged. The external caller's response
// completed when the server accepted the webhook, so there is nobody left
// to propagate an error to.
package reflector

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/localhook/localhook/internal/config"
	"github.com/localhook/localhook/internal/models"
)

type Reflector struct {
	cfg    config.ClientConfig
	client *http.Client
	log    zerolog.Logger
	sem    chan struct{}
	wg     sync.WaitGroup
}

func New(cfg config.ClientConfig, log zerolog.Logger) *Reflector {
	return &Reflector{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		log:    log.With().Str("component", "reflector").Logger(),
		sem:    make(chan struct{}, cfg.Forwarders),
	}
}

// Run connects to the gateway and pumps messages until ctx is cancelled,
// redialing after a fixed delay whenever the connection drops.
func (r *Reflector) Run(ctx context.Context) error {
	wsURL, err := websocketURL(r.cfg.ServerURL)
	if err != nil {
		return fmt.Errorf("invalid server url: %w", err)
	}

	for {
		err := r.connectAndPump(ctx, wsURL)
		if ctx.Err() != nil {
			r.wg.Wait()
			return ctx.Err()
		}
		r.log.Warn().Err(err).Dur("retry_in", r.cfg.ReconnectDelay).Msg("connection lost, reconnecting")

		select {
		case <-ctx.Done():
			r.wg.Wait()
			return ctx.Err()
		case <-time.After(r.cfg.ReconnectDelay):
		}
	}
}

func (r *Reflector) connectAndPump(ctx context.Context, wsURL string) error {
	header := http.Header{}
	header.Set("Authorization", "Bearer "+r.cfg.Token)

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, wsURL, header)
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusUnauthorized {
			return fmt.Errorf("handshake rejected: session token invalid or expired")
		}
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close()

	r.log.Info().Str("url", wsURL).Msg("connected to gateway")

	// Unblock ReadMessage when ctx is cancelled.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("read: %w", err)
		}
		r.dispatch(ctx, data)
	}
}

func (r *Reflector) dispatch(ctx context.Context, data []byte) {
	var env models.Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		r.log.Error().Err(err).Msg("failed to decode envelope")
		return
	}

	switch env.Type {
	case models.MessageTypeWebhook:
		var msg models.WebhookMessage
		if err := json.Unmarshal(env.Data, &msg); err != nil {
			r.log.Error().Err(err).Msg("failed to decode webhook message")
			return
		}
		r.sem <- struct{}{}
		r.wg.Add(1)
		go func() {
			defer r.wg.Done()
			defer func() { <-r.sem }()
			r.replay(ctx, &msg)
		}()
	default:
		r.log.Debug().Str("type", string(env.Type)).Msg("ignoring unknown message type")
	}
}

func (r *Reflector) replay(ctx context.Context, msg *models.WebhookMessage) {
	result := r.forward(ctx, msg)
	if result.Error != "" {
		r.log.Error().
			Str("endpoint_id", msg.EndpointID).
			Str("method", msg.Method).
			Str("target", msg.Target).
			Str("error", result.Error).
			Msg("replay failed")
		return
	}
	r.log.Info().
		Str("endpoint_id", msg.EndpointID).
		Str("method", msg.Method).
		Str("target", msg.Target).
		Int("status", result.StatusCode).
		Int64("latency_ms", result.LatencyMs).
		Msg("webhook replayed")
}

// websocketURL turns the configured server base URL into the gateway's ws
// endpoint.
func websocketURL(serverURL string) (string, error) {
	u, err := url.Parse(serverURL)
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + "/ws"
	return u.String(), nil
}
