package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/localhook/localhook/internal/models"
)

func newTestStore(t *testing.T) *SQLiteStorage {
	t.Helper()
	store, err := NewSQLite(":memory:")
	require.NoError(t, err)
	require.NoError(t, store.Migrate(context.Background()))
	t.Cleanup(func() { store.Close() })
	return store
}

func createTestUser(t *testing.T, store *SQLiteStorage, email string) *models.User {
	t.Helper()
	u := &models.User{
		ID:           models.NewID("usr"),
		Email:        email,
		PasswordHash: "x",
		CreatedAt:    time.Now().UTC(),
	}
	require.NoError(t, store.CreateUser(context.Background(), u))
	return u
}

func TestUserRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	count, err := store.CountUsers(ctx)
	require.NoError(t, err)
	require.Zero(t, count)

	u := createTestUser(t, store, "dev@example.com")

	got, err := store.GetUser(ctx, u.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, u.Email, got.Email)

	byEmail, err := store.GetUserByEmail(ctx, "dev@example.com")
	require.NoError(t, err)
	require.NotNil(t, byEmail)
	require.Equal(t, u.ID, byEmail.ID)

	missing, err := store.GetUser(ctx, "usr_nope")
	require.NoError(t, err)
	require.Nil(t, missing)
}

func TestEndpointRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	u := createTestUser(t, store, "dev@example.com")

	ep := &models.Endpoint{
		ID:        models.NewID("ep"),
		UserID:    u.ID,
		Target:    "http://localhost:9000/cb",
		Method:    "POST",
		CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, store.CreateEndpoint(ctx, ep))

	got, err := store.GetEndpoint(ctx, ep.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, ep.Target, got.Target)
	require.Equal(t, ep.Method, got.Method)
	require.Equal(t, u.ID, got.UserID)

	eps, err := store.ListEndpoints(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, eps, 1)

	// Deleting with the wrong owner must be a no-op.
	require.NoError(t, store.DeleteEndpoint(ctx, "usr_other", ep.ID))
	got, err = store.GetEndpoint(ctx, ep.ID)
	require.NoError(t, err)
	require.NotNil(t, got)

	require.NoError(t, store.DeleteEndpoint(ctx, u.ID, ep.ID))
	got, err = store.GetEndpoint(ctx, ep.ID)
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestSessionLifecycle(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	u := createTestUser(t, store, "dev@example.com")

	now := time.Now().UTC()
	s1 := &models.Session{TokenHash: "h1", UserID: u.ID, CreatedAt: now, LastSeenAt: now}
	s2 := &models.Session{TokenHash: "h2", UserID: u.ID, CreatedAt: now, LastSeenAt: now}
	require.NoError(t, store.CreateSession(ctx, s1))
	require.NoError(t, store.CreateSession(ctx, s2))

	later := now.Add(time.Hour)
	require.NoError(t, store.TouchSession(ctx, "h1", later))
	got, err := store.GetSession(ctx, "h1")
	require.NoError(t, err)
	require.NotNil(t, got)
	require.WithinDuration(t, later, got.LastSeenAt, time.Second)

	require.NoError(t, store.DeleteOtherSessions(ctx, u.ID, "h1"))
	gone, err := store.GetSession(ctx, "h2")
	require.NoError(t, err)
	require.Nil(t, gone)
	kept, err := store.GetSession(ctx, "h1")
	require.NoError(t, err)
	require.NotNil(t, kept)

	require.NoError(t, store.DeleteSession(ctx, "h1"))
	kept, err = store.GetSession(ctx, "h1")
	require.NoError(t, err)
	require.Nil(t, kept)
}

func TestInviteRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	u := createTestUser(t, store, "dev@example.com")

	inv := &models.Invite{
		Token:     models.NewID("inv"),
		UserID:    u.ID,
		Email:     "friend@example.com",
		CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, store.CreateInvite(ctx, inv))

	got, err := store.GetInvite(ctx, inv.Token)
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, inv.Email, got.Email)

	fresh, err := store.ListInvites(ctx, u.ID, time.Now().UTC().Add(-time.Hour))
	require.NoError(t, err)
	require.Len(t, fresh, 1)

	stale, err := store.ListInvites(ctx, u.ID, time.Now().UTC().Add(time.Hour))
	require.NoError(t, err)
	require.Empty(t, stale)

	require.NoError(t, store.DeleteInvite(ctx, inv.Token))
	got, err = store.GetInvite(ctx, inv.Token)
	require.NoError(t, err)
	require.Nil(t, got)
}
