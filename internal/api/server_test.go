package api

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/localhook/localhook/internal/auth"
	"github.com/localhook/localhook/internal/config"
	"github.com/localhook/localhook/internal/models"
	"github.com/localhook/localhook/internal/relay"
	"github.com/localhook/localhook/internal/storage"
)

type testEnv struct {
	server   *Server
	ts       *httptest.Server
	store    storage.Storage
	auth     *auth.Service
	registry *relay.Registry
}

func testConfig() config.Config {
	return config.Config{
		Server: config.ServerConfig{
			Host:   "127.0.0.1",
			Origin: "http://localhost:8080",
		},
		Relay: config.RelayConfig{
			SendBuffer:   16,
			PingInterval: 30 * time.Second,
			WriteTimeout: 5 * time.Second,
		},
		Auth: config.AuthConfig{
			TokenKey:             "test-key",
			SessionAbsoluteTTL:   14 * 24 * time.Hour,
			SessionInactivityTTL: 24 * time.Hour,
			InviteTTL:            14 * 24 * time.Hour,
		},
	}
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	store, err := storage.NewSQLite(":memory:")
	require.NoError(t, err)
	require.NoError(t, store.Migrate(context.Background()))
	t.Cleanup(func() { store.Close() })

	cfg := testConfig()
	authSvc := auth.NewService(cfg.Auth, store, zerolog.Nop())
	registry := relay.NewRegistry(zerolog.Nop())
	server := NewServer(cfg, store, authSvc, registry, zerolog.Nop())

	ts := httptest.NewServer(server.Handler())
	t.Cleanup(ts.Close)

	return &testEnv{
		server:   server,
		ts:       ts,
		store:    store,
		auth:     authSvc,
		registry: registry,
	}
}

// loginUser creates a user and returns its id and a live session token.
func (e *testEnv) loginUser(t *testing.T, email string) (string, string) {
	t.Helper()
	_, err := e.auth.CreateUser(context.Background(), email, "hunter22", false)
	require.NoError(t, err)
	token, user, err := e.auth.Login(context.Background(), email, "hunter22")
	require.NoError(t, err)
	return user.ID, token
}

// createEndpoint inserts a forwarding rule directly into the store.
func (e *testEnv) createEndpoint(t *testing.T, userID, target, method string) *models.Endpoint {
	t.Helper()
	ep := &models.Endpoint{
		ID:        models.NewID("ep"),
		UserID:    userID,
		Target:    target,
		Method:    method,
		CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, e.store.CreateEndpoint(context.Background(), ep))
	return ep
}
