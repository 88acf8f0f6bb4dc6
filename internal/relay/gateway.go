package relay

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/localhook/localhook/internal/auth"
	"github.com/localhook/localhook/internal/config"
)

// SessionCookie carries the credential for browser clients; CLI clients use
// a bearer Authorization header instead.
const SessionCookie = "session_id"

// Authenticator resolves an opaque session token to a user, or (nil, nil)
// when the credential is missing, unknown or expired.
type Authenticator interface {
	Resolve(ctx context.Context, token string) (*auth.UserInfo, error)
}

// Gateway terminates realtime connections, authenticates them at handshake
// time and bridges their lifecycle into the Registry.
type Gateway struct {
	registry *Registry
	auth     Authenticator
	upgrader websocket.Upgrader
	cfg      config.RelayConfig
	log      zerolog.Logger
}

func NewGateway(cfg config.RelayConfig, registry *Registry, authn Authenticator, origin string, log zerolog.Logger) *Gateway {
	return &Gateway{
		registry: registry,
		auth:     authn,
		cfg:      cfg,
		log:      log.With().Str("component", "gateway").Logger(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				o := r.Header.Get("Origin")
				return o == "" || o == origin
			},
		},
	}
}

// ServeHTTP handles the websocket handshake. Rejections are deliberately
// bare status codes with no body, so a prober learns nothing.
func (g *Gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	token := SessionToken(r)
	if token == "" {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	user, err := g.auth.Resolve(r.Context(), token)
	if err != nil {
		g.log.Error().Err(err).Msg("session resolve failed")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	if user == nil {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	ws, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written its own response.
		g.log.Debug().Err(err).Msg("websocket upgrade failed")
		return
	}

	conn := newConn(user.ID, ws, g.cfg.SendBuffer, g.cfg.PingInterval, g.cfg.WriteTimeout)
	g.registry.Register(user.ID, conn)
	g.log.Info().Str("user_id", user.ID).Msg("client connected")

	go conn.writePump()
	conn.readPump()

	conn.Close()
	g.registry.Unregister(user.ID, conn)
	g.log.Info().
		Str("user_id", user.ID).
		Dur("connected_for", time.Since(conn.ConnectedAt)).
		Msg("client disconnected")
}

// SessionToken extracts the credential from a request: session cookie
// first, then a bearer Authorization header.
func SessionToken(r *http.Request) string {
	if c, err := r.Cookie(SessionCookie); err == nil && c.Value != "" {
		return c.Value
	}
	const prefix = "Bearer "
	if h := r.Header.Get("Authorization"); len(h) > len(prefix) && h[:len(prefix)] == prefix {
		return h[len(prefix):]
	}
	return ""
}
