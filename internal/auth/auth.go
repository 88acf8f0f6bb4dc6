// Package auth is the session authenticator: it turns opaque credentials
// into user identities and owns the user/session/invite lifecycle.
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/localhook/localhook/internal/config"
	"github.com/localhook/localhook/internal/models"
	"github.com/localhook/localhook/internal/storage"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInviteInvalid      = errors.New("invite token invalid or expired")
	ErrEmailTaken         = errors.New("email already registered")
)

// UserInfo is what a resolved credential yields. Callers never see the
// session row itself.
type UserInfo struct {
	ID      string `json:"id"`
	Email   string `json:"email"`
	IsAdmin bool   `json:"is_admin"`
}

type Service struct {
	store storage.Storage
	cfg   config.AuthConfig
	log   zerolog.Logger
}

func NewService(cfg config.AuthConfig, store storage.Storage, log zerolog.Logger) *Service {
	return &Service{
		store: store,
		cfg:   cfg,
		log:   log.With().Str("component", "auth").Logger(),
	}
}

// Login verifies the password and issues a new session, returning the raw
// token for the client to hold.
func (s *Service) Login(ctx context.Context, email, password string) (string, *models.User, error) {
	user, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		return "", nil, fmt.Errorf("lookup user: %w", err)
	}
	if user == nil {
		return "", nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", nil, ErrInvalidCredentials
	}

	token := models.NewSessionToken()
	now := time.Now().UTC()
	sess := &models.Session{
		TokenHash:  HashToken(s.cfg.TokenKey, token),
		UserID:     user.ID,
		CreatedAt:  now,
		LastSeenAt: now,
	}
	if err := s.store.CreateSession(ctx, sess); err != nil {
		return "", nil, fmt.Errorf("create session: %w", err)
	}

	s.log.Info().Str("user_id", user.ID).Msg("user logged in")
	return token, user, nil
}

// Resolve maps a session token to its user. It returns (nil, nil) for any
// miss: unknown token, expired session, idle session, missing user. Callers
// get no sub-reason.
func (s *Service) Resolve(ctx context.Context, token string) (*UserInfo, error) {
	if token == "" {
		return nil, nil
	}

	sess, err := s.store.GetSession(ctx, HashToken(s.cfg.TokenKey, token))
	if err != nil {
		return nil, fmt.Errorf("lookup session: %w", err)
	}
	if sess == nil {
		return nil, nil
	}

	now := time.Now().UTC()
	if sess.CreatedAt.Before(now.Add(-s.cfg.SessionAbsoluteTTL)) {
		return nil, nil
	}
	if sess.LastSeenAt.Before(now.Add(-s.cfg.SessionInactivityTTL)) {
		return nil, nil
	}

	user, err := s.store.GetUser(ctx, sess.UserID)
	if err != nil {
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	if user == nil {
		return nil, nil
	}

	return &UserInfo{ID: user.ID, Email: user.Email, IsAdmin: user.IsAdmin}, nil
}

// Touch refreshes the inactivity clock for an authenticated request.
func (s *Service) Touch(ctx context.Context, token string) error {
	return s.store.TouchSession(ctx, HashToken(s.cfg.TokenKey, token), time.Now().UTC())
}

func (s *Service) Logout(ctx context.Context, token string) error {
	return s.store.DeleteSession(ctx, HashToken(s.cfg.TokenKey, token))
}

// RevokeOthers drops every session of the user except the one making the
// call.
func (s *Service) RevokeOthers(ctx context.Context, userID, keepToken string) error {
	return s.store.DeleteOtherSessions(ctx, userID, HashToken(s.cfg.TokenKey, keepToken))
}

// CreateUser registers a user. The very first user becomes admin so a fresh
// install can bootstrap itself.
func (s *Service) CreateUser(ctx context.Context, email, password string, admin bool) (*models.User, error) {
	existing, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	if existing != nil {
		return nil, ErrEmailTaken
	}

	count, err := s.store.CountUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("count users: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &models.User{
		ID:           models.NewID("usr"),
		Email:        email,
		PasswordHash: string(hash),
		IsAdmin:      admin || count == 0,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.store.CreateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.log.Info().Str("user_id", user.ID).Bool("admin", user.IsAdmin).Msg("user created")
	return user, nil
}

// CreateInvite issues an invite token tied to the inviter and the invited
// address.
func (s *Service) CreateInvite(ctx context.Context, inviterID, email string) (*models.Invite, error) {
	inv := &models.Invite{
		Token:     models.NewID("inv"),
		UserID:    inviterID,
		Email:     email,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.store.CreateInvite(ctx, inv); err != nil {
		return nil, fmt.Errorf("create invite: %w", err)
	}
	return inv, nil
}

// ListInvites returns the inviter's still-valid invites.
func (s *Service) ListInvites(ctx context.Context, inviterID string) ([]models.Invite, error) {
	cutoff := time.Now().UTC().Add(-s.cfg.InviteTTL)
	return s.store.ListInvites(ctx, inviterID, cutoff)
}

// RedeemInvite burns the token and creates the invited user.
func (s *Service) RedeemInvite(ctx context.Context, token, password string) (*models.User, error) {
	inv, err := s.store.GetInvite(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("lookup invite: %w", err)
	}
	if inv == nil || inv.CreatedAt.Before(time.Now().UTC().Add(-s.cfg.InviteTTL)) {
		return nil, ErrInviteInvalid
	}

	user, err := s.CreateUser(ctx, inv.Email, password, false)
	if err != nil {
		return nil, err
	}

	if err := s.store.DeleteInvite(ctx, token); err != nil {
		s.log.Error().Err(err).Str("token", token).Msg("failed to delete redeemed invite")
	}
	return user, nil
}
