package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/localhook/localhook/internal/models"
	"github.com/localhook/localhook/internal/storage"
)

type EndpointHandler struct {
	store  storage.Storage
	origin string
}

func NewEndpointHandler(store storage.Storage, origin string) *EndpointHandler {
	return &EndpointHandler{store: store, origin: origin}
}

type createEndpointRequest struct {
	Target string `json:"target"`
	Method string `json:"method"`
}

type endpointResponse struct {
	models.Endpoint
	URL string `json:"url"`
}

func (h *EndpointHandler) hookURL(id string) string {
	return fmt.Sprintf("%s/hook/%s", h.origin, id)
}

func (h *EndpointHandler) Create(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req createEndpointRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !models.ValidTarget(req.Target) {
		writeError(w, http.StatusBadRequest, "target must be an http://localhost URL")
		return
	}
	method, ok := models.NormalizeMethod(req.Method)
	if !ok {
		writeError(w, http.StatusBadRequest, "method must be one of GET, POST, PUT, PATCH, DELETE")
		return
	}

	ep := &models.Endpoint{
		ID:        models.NewID("ep"),
		UserID:    user.ID,
		Target:    req.Target,
		Method:    method,
		CreatedAt: time.Now().UTC(),
	}
	if err := h.store.CreateEndpoint(r.Context(), ep); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to create endpoint")
		return
	}

	writeJSON(w, http.StatusCreated, endpointResponse{Endpoint: *ep, URL: h.hookURL(ep.ID)})
}

func (h *EndpointHandler) List(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	eps, err := h.store.ListEndpoints(r.Context(), user.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list endpoints")
		return
	}

	out := make([]endpointResponse, 0, len(eps))
	for _, ep := range eps {
		out = append(out, endpointResponse{Endpoint: ep, URL: h.hookURL(ep.ID)})
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *EndpointHandler) Get(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id := chi.URLParam(r, "id")
	ep, err := h.store.GetEndpoint(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get endpoint")
		return
	}
	if ep == nil || ep.UserID != user.ID {
		writeError(w, http.StatusNotFound, "endpoint not found")
		return
	}
	writeJSON(w, http.StatusOK, endpointResponse{Endpoint: *ep, URL: h.hookURL(ep.ID)})
}

func (h *EndpointHandler) Delete(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id := chi.URLParam(r, "id")
	ep, err := h.store.GetEndpoint(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get endpoint")
		return
	}
	if ep == nil || ep.UserID != user.ID {
		writeError(w, http.StatusNotFound, "endpoint not found")
		return
	}

	if err := h.store.DeleteEndpoint(r.Context(), user.ID, id); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to delete endpoint")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
