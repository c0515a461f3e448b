package auth

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound signals a missing user or session row.
var ErrNotFound = errors.New("auth: not found")

// Role names recognised by the authorization layer.
const (
	RoleAdmin   = "admin"
	RoleCashier = "cashier"
)

// User is an operator account.
type User struct {
	ID           uuid.UUID `json:"id"`
	Username     string    `json:"username"`
	FullName     string    `json:"full_name"`
	Role         string    `json:"role"`
	Active       bool      `json:"active"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Session is a persisted refresh-token session.
type Session struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	TokenHash string
	UserAgent string
	IP        string
	ExpiresAt time.Time
}

// Store defines the persistence operations required by the auth service.
type Store interface {
	GetUserByUsername(ctx context.Context, username string) (User, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (User, error)
	CreateSession(ctx context.Context, s Session) (Session, error)
	GetSessionByTokenHash(ctx context.Context, hash string) (Session, error)
	RotateSessionToken(ctx context.Context, id uuid.UUID, hash string, expiresAt time.Time) error
	DeleteSessionByTokenHash(ctx context.Context, hash string) error
	DeleteSessionsByUser(ctx context.Context, userID uuid.UUID) error
}

// PGStore implements Store backed by PostgreSQL.
type PGStore struct {
	Pool *pgxpool.Pool
}

func (s *PGStore) GetUserByUsername(ctx context.Context, username string) (User, error) {
	const q = `
		SELECT id, username, full_name, role, active, password_hash, created_at, updated_at
		FROM users WHERE username = $1`
	return s.scanUser(s.Pool.QueryRow(ctx, q, username))
}

func (s *PGStore) GetUserByID(ctx context.Context, id uuid.UUID) (User, error) {
	const q = `
		SELECT id, username, full_name, role, active, password_hash, created_at, updated_at
		FROM users WHERE id = $1`
	return s.scanUser(s.Pool.QueryRow(ctx, q, id))
}

func (s *PGStore) scanUser(row pgx.Row) (User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Username, &u.FullName, &u.Role, &u.Active, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, ErrNotFound
	}
	if err != nil {
		return User{}, err
	}
	return u, nil
}

func (s *PGStore) CreateSession(ctx context.Context, sess Session) (Session, error) {
	const q = `
		INSERT INTO sessions (user_id, token_hash, user_agent, ip, expires_at)
		VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, ''), $5)
		RETURNING id`
	err := s.Pool.QueryRow(ctx, q, sess.UserID, sess.TokenHash, sess.UserAgent, sess.IP, sess.ExpiresAt).Scan(&sess.ID)
	if err != nil {
		return Session{}, err
	}
	return sess, nil
}

func (s *PGStore) GetSessionByTokenHash(ctx context.Context, hash string) (Session, error) {
	const q = `
		SELECT id, user_id, token_hash, COALESCE(user_agent, ''), COALESCE(ip, ''), expires_at
		FROM sessions WHERE token_hash = $1`
	var sess Session
	err := s.Pool.QueryRow(ctx, q, hash).
		Scan(&sess.ID, &sess.UserID, &sess.TokenHash, &sess.UserAgent, &sess.IP, &sess.ExpiresAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Session{}, ErrNotFound
	}
	if err != nil {
		return Session{}, err
	}
	return sess, nil
}

func (s *PGStore) RotateSessionToken(ctx context.Context, id uuid.UUID, hash string, expiresAt time.Time) error {
	const q = `UPDATE sessions SET token_hash = $2, expires_at = $3 WHERE id = $1`
	_, err := s.Pool.Exec(ctx, q, id, hash, expiresAt)
	return err
}

func (s *PGStore) DeleteSessionByTokenHash(ctx context.Context, hash string) error {
	_, err := s.Pool.Exec(ctx, `DELETE FROM sessions WHERE token_hash = $1`, hash)
	return err
}

func (s *PGStore) DeleteSessionsByUser(ctx context.Context, userID uuid.UUID) error {
	_, err := s.Pool.Exec(ctx, `DELETE FROM sessions WHERE user_id = $1`, userID)
	return err
}
