package storage

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/localhook/localhook/internal/models"
)

type SQLiteStorage struct {
	db *sql.DB
}

func NewSQLite(path string) (*SQLiteStorage, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	return &SQLiteStorage{db: db}, nil
}

func (s *SQLiteStorage) Migrate(ctx context.Context) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id TEXT PRIMARY KEY,
			email TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			is_admin INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS sessions (
			token_hash TEXT PRIMARY KEY,
			user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			last_seen_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS endpoints (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			target TEXT NOT NULL,
			method TEXT NOT NULL,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS invites (
			token TEXT PRIMARY KEY,
			user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			email TEXT NOT NULL,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_user ON sessions(user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_endpoints_user ON endpoints(user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_invites_user ON invites(user_id)`,
	}

	for _, q := range queries {
		if _, err := s.db.ExecContext(ctx, q); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// --- Users ---

func (s *SQLiteStorage) CreateUser(ctx context.Context, u *models.User) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (id, email, password_hash, is_admin, created_at) VALUES (?, ?, ?, ?, ?)`,
		u.ID, u.Email, u.PasswordHash, boolToInt(u.IsAdmin), u.CreatedAt,
	)
	return err
}

func (s *SQLiteStorage) scanUser(row interface{ Scan(...interface{}) error }) (*models.User, error) {
	var u models.User
	var isAdmin int
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &isAdmin, &u.CreatedAt)
	if err != nil {
		return nil, err
	}
	u.IsAdmin = isAdmin == 1
	return &u, nil
}

func (s *SQLiteStorage) GetUser(ctx context.Context, id string) (*models.User, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, email, password_hash, is_admin, created_at FROM users WHERE id = ?`, id)
	u, err := s.scanUser(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return u, err
}

func (s *SQLiteStorage) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, email, password_hash, is_admin, created_at FROM users WHERE email = ?`, email)
	u, err := s.scanUser(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return u, err
}

func (s *SQLiteStorage) CountUsers(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&count)
	return count, err
}

func (s *SQLiteStorage) UpdateUserPassword(ctx context.Context, id, passwordHash string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE users SET password_hash = ? WHERE id = ?`, passwordHash, id)
	return err
}

// --- Sessions ---

func (s *SQLiteStorage) CreateSession(ctx context.Context, sess *models.Session) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (token_hash, user_id, created_at, last_seen_at) VALUES (?, ?, ?, ?)`,
		sess.TokenHash, sess.UserID, sess.CreatedAt, sess.LastSeenAt,
	)
	return err
}

func (s *SQLiteStorage) GetSession(ctx context.Context, tokenHash string) (*models.Session, error) {
	var sess models.Session
	err := s.db.QueryRowContext(ctx,
		`SELECT token_hash, user_id, created_at, last_seen_at FROM sessions WHERE token_hash = ?`, tokenHash,
	).Scan(&sess.TokenHash, &sess.UserID, &sess.CreatedAt, &sess.LastSeenAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return &sess, err
}

func (s *SQLiteStorage) TouchSession(ctx context.Context, tokenHash string, at time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE sessions SET last_seen_at = ? WHERE token_hash = ?`, at, tokenHash)
	return err
}

func (s *SQLiteStorage) DeleteSession(ctx context.Context, tokenHash string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE token_hash = ?`, tokenHash)
	return err
}

func (s *SQLiteStorage) DeleteOtherSessions(ctx context.Context, userID, keepTokenHash string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM sessions WHERE user_id = ? AND token_hash != ?`, userID, keepTokenHash)
	return err
}

// --- Endpoints ---

func (s *SQLiteStorage) CreateEndpoint(ctx context.Context, ep *models.Endpoint) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO endpoints (id, user_id, target, method, created_at) VALUES (?, ?, ?, ?, ?)`,
		ep.ID, ep.UserID, ep.Target, ep.Method, ep.CreatedAt,
	)
	return err
}

func (s *SQLiteStorage) GetEndpoint(ctx context.Context, id string) (*models.Endpoint, error) {
	var ep models.Endpoint
	err := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, target, method, created_at FROM endpoints WHERE id = ?`, id,
	).Scan(&ep.ID, &ep.UserID, &ep.Target, &ep.Method, &ep.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return &ep, err
}

func (s *SQLiteStorage) ListEndpoints(ctx context.Context, userID string) ([]models.Endpoint, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, target, method, created_at FROM endpoints WHERE user_id = ? ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var eps []models.Endpoint
	for rows.Next() {
		var ep models.Endpoint
		if err := rows.Scan(&ep.ID, &ep.UserID, &ep.Target, &ep.Method, &ep.CreatedAt); err != nil {
			return nil, err
		}
		eps = append(eps, ep)
	}
	return eps, rows.Err()
}

func (s *SQLiteStorage) DeleteEndpoint(ctx context.Context, userID, id string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM endpoints WHERE id = ? AND user_id = ?`, id, userID)
	return err
}

// --- Invites ---

func (s *SQLiteStorage) CreateInvite(ctx context.Context, inv *models.Invite) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO invites (token, user_id, email, created_at) VALUES (?, ?, ?, ?)`,
		inv.Token, inv.UserID, inv.Email, inv.CreatedAt,
	)
	return err
}

func (s *SQLiteStorage) GetInvite(ctx context.Context, token string) (*models.Invite, error) {
	var inv models.Invite
	err := s.db.QueryRowContext(ctx,
		`SELECT token, user_id, email, created_at FROM invites WHERE token = ?`, token,
	).Scan(&inv.Token, &inv.UserID, &inv.Email, &inv.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return &inv, err
}

func (s *SQLiteStorage) ListInvites(ctx context.Context, userID string, createdAfter time.Time) ([]models.Invite, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT token, user_id, email, created_at FROM invites WHERE user_id = ? AND created_at > ? ORDER BY created_at DESC`,
		userID, createdAfter)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var invs []models.Invite
	for rows.Next() {
		var inv models.Invite
		if err := rows.Scan(&inv.Token, &inv.UserID, &inv.Email, &inv.CreatedAt); err != nil {
			return nil, err
		}
		invs = append(invs, inv)
	}
	return invs, rows.Err()
}

func (s *SQLiteStorage) DeleteInvite(ctx context.Context, token string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM invites WHERE token = ?`, token)
	return err
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
