package api

import (
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/localhook/localhook/internal/models"
	"github.com/localhook/localhook/internal/relay"
	"github.com/localhook/localhook/internal/storage"
)

// HookHandler is the public webhook receiver. Its contract with external
// callers is "accepted for best-effort delivery": every request gets a 204
// no matter what, so response codes never reveal which endpoint ids exist
// or whose client is online.
type HookHandler struct {
	store    storage.Storage
	registry *relay.Registry
	log      zerolog.Logger
}

func NewHookHandler(store storage.Storage, registry *relay.Registry, log zerolog.Logger) *HookHandler {
	return &HookHandler{
		store:    store,
		registry: registry,
		log:      log.With().Str("component", "receiver").Logger(),
	}
}

func (h *HookHandler) Handle(w http.ResponseWriter, r *http.Request) {
	defer w.WriteHeader(http.StatusNoContent)

	id := chi.URLParam(r, "id")
	ep, err := h.store.GetEndpoint(r.Context(), id)
	if err != nil {
		h.log.Error().Err(err).Str("endpoint_id", id).Msg("endpoint lookup failed")
		return
	}
	if ep == nil {
		return
	}

	if !h.registry.IsConnected(ep.UserID) {
		h.log.Debug().Str("endpoint_id", ep.ID).Msg("owner offline, dropping webhook")
		return
	}

	headers := make(map[string]string, len(r.Header))
	for k, v := range r.Header {
		headers[k] = strings.Join(v, ", ")
	}

	var body *string
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		raw, err := io.ReadAll(r.Body)
		if err != nil {
			h.log.Error().Err(err).Str("endpoint_id", ep.ID).Msg("failed to read webhook body")
			return
		}
		text := string(raw)
		body = &text
	}

	env, err := models.NewWebhookEnvelope(&models.WebhookMessage{
		EndpointID: ep.ID,
		Target:     ep.Target,
		Method:     r.Method,
		Headers:    headers,
		Body:       body,
	})
	if err != nil {
		h.log.Error().Err(err).Str("endpoint_id", ep.ID).Msg("failed to encode webhook message")
		return
	}

	if !h.registry.Send(ep.UserID, env) {
		h.log.Debug().Str("endpoint_id", ep.ID).Msg("send failed, webhook dropped")
	}
}
