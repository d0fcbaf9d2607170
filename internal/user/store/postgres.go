package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"civreg/internal/user"
	id "civreg/pkg/domain"
	"civreg/pkg/platform/sentinel"
)

// Postgres persists synced users and their credentials. Password hashes live
// in a separate user_credentials table so user listing queries never touch
// them.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

// Upsert inserts or updates one synced user record.
func (s *Postgres) Upsert(ctx context.Context, u user.User) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, name, role, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			role = EXCLUDED.role,
			updated_at = now()`,
		uuid.UUID(u.ID), u.Name, u.Role,
	)
	if err != nil {
		return fmt.Errorf("upsert user: %w", err)
	}
	return nil
}

// Get returns one user by id.
func (s *Postgres) Get(ctx context.Context, userID id.UserID) (*user.User, error) {
	var (
		uid  uuid.UUID
		name string
		role string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, role FROM users WHERE id = $1`,
		uuid.UUID(userID),
	).Scan(&uid, &name, &role)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &user.User{ID: id.UserID(uid), Name: name, Role: role}, nil
}

// SetPassword stores the bcrypt hash of the user's password.
func (s *Postgres) SetPassword(ctx context.Context, userID id.UserID, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO user_credentials (user_id, password_hash, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (user_id) DO UPDATE SET
			password_hash = EXCLUDED.password_hash,
			updated_at = now()`,
		uuid.UUID(userID), hash,
	)
	if err != nil {
		return fmt.Errorf("store credentials: %w", err)
	}
	return nil
}

// VerifyPassword checks a password against the stored hash. A missing
// credential row and a wrong password are indistinguishable to the caller.
func (s *Postgres) VerifyPassword(ctx context.Context, userID id.UserID, password string) error {
	var hash []byte
	err := s.db.QueryRowContext(ctx, `
		SELECT password_hash FROM user_credentials WHERE user_id = $1`,
		uuid.UUID(userID),
	).Scan(&hash)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return sentinel.ErrNotFound
		}
		return fmt.Errorf("load credentials: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword(hash, []byte(password)); err != nil {
		return sentinel.ErrNotFound
	}
	return nil
}
