package database

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// User is an authenticated account, keyed by the identity provider's
// subject claim.
type User struct {
	ID        uuid.UUID
	Subject   string
	Email     string
	Tier      string
	CreatedAt time.Time
}

// CreateUser inserts a new user.
func (db *DB) CreateUser(ctx context.Context, subject, email string) (*User, error) {
	row := db.pool.QueryRow(ctx,
		`INSERT INTO users (subject, email)
		 VALUES ($1, $2)
		 RETURNING id, subject, email, tier, created_at`,
		subject, email,
	)
	return scanUser(row)
}

// GetUserBySubject looks a user up by identity-provider subject. Returns
// (nil, nil) when not found.
func (db *DB) GetUserBySubject(ctx context.Context, subject string) (*User, error) {
	row := db.pool.QueryRow(ctx,
		`SELECT id, subject, email, tier, created_at FROM users WHERE subject = $1`,
		subject,
	)
	return scanUser(row)
}

// GetUserByID retrieves a user by primary key.
func (db *DB) GetUserByID(ctx context.Context, id uuid.UUID) (*User, error) {
	row := db.pool.QueryRow(ctx,
		`SELECT id, subject, email, tier, created_at FROM users WHERE id = $1`,
		id,
	)
	return scanUser(row)
}

// EnsureUser fetches the user for a subject, creating it on first sight.
func (db *DB) EnsureUser(ctx context.Context, subject, email string) (*User, error) {
	user, err := db.GetUserBySubject(ctx, subject)
	if err != nil {
		return nil, err
	}
	if user != nil {
		return user, nil
	}
	return db.CreateUser(ctx, subject, email)
}

func scanUser(row pgx.Row) (*User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Subject, &u.Email, &u.Tier, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}
