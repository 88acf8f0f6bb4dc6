package storage

import (
	"context"
	"time"

	"github.com/localhook/localhook/internal/models"
)

// Storage is the persistence boundary: users, sessions, endpoints and
// invites. Lookups return (nil, nil) when the row does not exist.
type Storage interface {
	// Users
	CreateUser(ctx context.Context, u *models.User) error
	GetUser(ctx context.Context, id string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	CountUsers(ctx context.Context) (int64, error)
	UpdateUserPassword(ctx context.Context, id, passwordHash string) error

	// Sessions
	CreateSession(ctx context.Context, s *models.Session) error
	GetSession(ctx context.Context, tokenHash string) (*models.Session, error)
	TouchSession(ctx context.Context, tokenHash string, at time.Time) error
	DeleteSession(ctx context.Context, tokenHash string) error
	DeleteOtherSessions(ctx context.Context, userID, keepTokenHash string) error

	// Endpoints
	CreateEndpoint(ctx context.Context, ep *models.Endpoint) error
	GetEndpoint(ctx context.Context, id string) (*models.Endpoint, error)
	ListEndpoints(ctx context.Context, userID string) ([]models.Endpoint, error)
	DeleteEndpoint(ctx context.Context, userID, id string) error

	// Invites
	CreateInvite(ctx context.Context, inv *models.Invite) error
	GetInvite(ctx context.Context, token string) (*models.Invite, error)
	ListInvites(ctx context.Context, userID string, createdAfter time.Time) ([]models.Invite, error)
	DeleteInvite(ctx context.Context, token string) error

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
