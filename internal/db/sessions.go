package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// CreateSession inserts a new session with a fresh random token.
func (db *DB) CreateSession(ctx context.Context) (*Session, error) {
	token, err := newSessionToken()
	if err != nil {
		return nil, err
	}

	var s Session
	err = db.pool.QueryRow(ctx,
		`INSERT INTO sessions (id, session_token) VALUES ($1, $2)
		 RETURNING id, session_token, created_at`,
		uuid.New(), token,
	).Scan(&s.ID, &s.Token, &s.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	return &s, nil
}

// GetSession retrieves a session by ID
func (db *DB) GetSession(ctx context.Context, id uuid.UUID) (*Session, error) {
	return db.scanSession(db.pool.QueryRow(ctx,
		`SELECT id, session_token, created_at FROM sessions WHERE id = $1`, id))
}

// GetSessionByToken retrieves a session by its opaque token
func (db *DB) GetSessionByToken(ctx context.Context, token string) (*Session, error) {
	return db.scanSession(db.pool.QueryRow(ctx,
		`SELECT id, session_token, created_at FROM sessions WHERE session_token = $1`, token))
}

func (db *DB) scanSession(row pgx.Row) (*Session, error) {
	var s Session
	if err := row.Scan(&s.ID, &s.Token, &s.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return &s, nil
}
