// Package relay holds the realtime side of the system: the per-user
// connection registry and the websocket gateway that feeds it.
package relay

import (
	"sync"

	"github.com/rs/zerolog"

	"github.com/localhook/localhook/internal/models"
)

// Handle is a live transport bound to one user. Enqueue must not block.
type Handle interface {
	Enqueue(env *models.Envelope) bool
	Open() bool
	Close()
}

// Registry maps a user id to at most one live connection. Delivery through
// it is fire-and-forget: at most once, no buffering of misses.
type Registry struct {
	mu    sync.Mutex
	conns map[string]Handle
	log   zerolog.Logger
}

func NewRegistry(log zerolog.Logger) *Registry {
	return &Registry{
		conns: make(map[string]Handle),
		log:   log.With().Str("component", "registry").Logger(),
	}
}

// Register binds h as the user's connection, superseding any previous one.
// The superseded handle is closed so the older client notices.
func (r *Registry) Register(userID string, h Handle) {
	r.mu.Lock()
	prev := r.conns[userID]
	r.conns[userID] = h
	r.mu.Unlock()

	if prev != nil && prev != h {
		r.log.Debug().Str("user_id", userID).Msg("superseding existing connection")
		prev.Close()
	}
}

// Unregister removes the mapping only if h is still the stored handle. A
// late close event from a superseded connection must not evict the newer
// one registered for the same user.
func (r *Registry) Unregister(userID string, h Handle) {
	r.mu.Lock()
	if r.conns[userID] == h {
		delete(r.conns, userID)
	}
	r.mu.Unlock()
}

func (r *Registry) IsConnected(userID string) bool {
	r.mu.Lock()
	h := r.conns[userID]
	r.mu.Unlock()
	return h != nil && h.Open()
}

// Send enqueues env on the user's connection. False means the message was
// dropped: nobody connected, connection closed, or its queue full.
func (r *Registry) Send(userID string, env *models.Envelope) bool {
	r.mu.Lock()
	h := r.conns[userID]
	r.mu.Unlock()

	if h == nil || !h.Open() {
		return false
	}
	return h.Enqueue(env)
}
