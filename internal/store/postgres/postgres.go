// Package postgres provides the PostgreSQL-backed implementation of
// store.Store. Trip documents live in a JSONB column with an integer version
// for conditional writes; trip_tokens is the token secondary index, written
// in the same transaction as the document.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/traveldiary/backend/internal/models"
	"github.com/traveldiary/backend/internal/store"
)

// Ensure PostgresStore implements store.Store
var _ store.Store = (*PostgresStore)(nil)

// PostgresStore implements store.Store using PostgreSQL.
type PostgresStore struct {
	pool *pgxpool.Pool
}

const schema = `
CREATE TABLE IF NOT EXISTS users (
    id UUID PRIMARY KEY,
    email TEXT NOT NULL UNIQUE,
    name TEXT NOT NULL,
    password_hash TEXT NOT NULL DEFAULT '',
    avatar_url TEXT NOT NULL DEFAULT '',
    provider TEXT NOT NULL DEFAULT 'local',
    created_at TIMESTAMPTZ NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS sessions (
    id TEXT PRIMARY KEY,
    user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    created_at TIMESTAMPTZ NOT NULL,
    expires_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS trips (
    id UUID PRIMARY KEY,
    owner_id UUID NOT NULL,
    doc JSONB NOT NULL,
    version BIGINT NOT NULL DEFAULT 1
);

CREATE TABLE IF NOT EXISTS trip_tokens (
    token TEXT PRIMARY KEY,
    trip_id UUID NOT NULL REFERENCES trips(id) ON DELETE CASCADE,
    kind TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_trips_owner_id ON trips(owner_id);
CREATE INDEX IF NOT EXISTS idx_trip_tokens_trip_id ON trip_tokens(trip_id);
CREATE INDEX IF NOT EXISTS idx_sessions_user_id ON sessions(user_id);
`

// New connects a pool, pings it, and ensures the schema exists. The pool
// settings follow the deployment behind a connection pooler, hence the
// simple query protocol.
func New(ctx context.Context, dsn string, maxConns int32) (*PostgresStore, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse dsn: %w", err)
	}
	cfg.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeSimpleProtocol
	cfg.ConnConfig.RuntimeParams["application_name"] = "traveldiary-backend"
	cfg.MaxConns = maxConns
	cfg.MaxConnLifetime = time.Hour

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping: %w", err)
	}
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

// Close releases the connection pool.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

// Ping verifies the database is reachable.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// CreateUser persists a new user. Returns store.ErrConflict when the email
// is already registered.
func (s *PostgresStore) CreateUser(ctx context.Context, user *models.User) error {
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO users (id, email, name, password_hash, avatar_url, provider, created_at, updated_at)
		 VALUES ($1, lower($2), $3, $4, $5, $6, $7, $8)`,
		user.ID, user.Email, user.Name, user.PasswordHash, user.AvatarURL, user.Provider,
		user.CreatedAt, user.UpdatedAt)
	if isUniqueViolation(err) {
		return store.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func scanUser(row pgx.Row) (*models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash, &u.AvatarURL, &u.Provider, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan user: %w", err)
	}
	return &u, nil
}

// GetUser retrieves a user by id.
func (s *PostgresStore) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return scanUser(s.pool.QueryRow(ctx,
		`SELECT id, email, name, password_hash, avatar_url, provider, created_at, updated_at
		   FROM users WHERE id = $1`, id))
}

// GetUserByEmail retrieves a user by email.
func (s *PostgresStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return scanUser(s.pool.QueryRow(ctx,
		`SELECT id, email, name, password_hash, avatar_url, provider, created_at, updated_at
		   FROM users WHERE email = lower($1)`, email))
}

// CreateSession persists a session record.
func (s *PostgresStore) CreateSession(ctx context.Context, session *models.Session) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO sessions (id, user_id, created_at, expires_at) VALUES ($1, $2, $3, $4)`,
		session.ID, session.UserID, session.CreatedAt, session.ExpiresAt)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

// GetSession retrieves a session by token id.
func (s *PostgresStore) GetSession(ctx context.Context, id string) (*models.Session, error) {
	var sess models.Session
	err := s.pool.QueryRow(ctx,
		`SELECT id, user_id, created_at, expires_at FROM sessions WHERE id = $1`, id).
		Scan(&sess.ID, &sess.UserID, &sess.CreatedAt, &sess.ExpiresAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return &sess, nil
}

// DeleteSession removes a session (logout / revocation).
func (s *PostgresStore) DeleteSession(ctx context.Context, id string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM sessions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// CreateTrip persists a new trip document at version 1 along with its token
// index rows.
func (s *PostgresStore) CreateTrip(ctx context.Context, trip *models.Trip) error {
	doc, err := json.Marshal(trip)
	if err != nil {
		return fmt.Errorf("failed to encode trip: %w", err)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		`INSERT INTO trips (id, owner_id, doc, version) VALUES ($1, $2, $3, 1)`,
		trip.ID, trip.OwnerID, string(doc)); err != nil {
		return fmt.Errorf("failed to insert trip: %w", err)
	}
	if err := insertTokens(ctx, tx, trip); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	trip.Version = 1
	return nil
}

func insertTokens(ctx context.Context, tx pgx.Tx, trip *models.Trip) error {
	for _, row := range store.TokensOf(trip) {
		if _, err := tx.Exec(ctx,
			`INSERT INTO trip_tokens (token, trip_id, kind) VALUES ($1, $2, $3)`,
			row.Token, trip.ID, string(row.Kind)); err != nil {
			return fmt.Errorf("failed to index token: %w", err)
		}
	}
	return nil
}

func decodeTrip(doc []byte, version int64) (*models.Trip, error) {
	var trip models.Trip
	if err := json.Unmarshal(doc, &trip); err != nil {
		return nil, fmt.Errorf("failed to decode trip: %w", err)
	}
	trip.Version = version
	return &trip, nil
}

// GetTrip retrieves a trip document by id.
func (s *PostgresStore) GetTrip(ctx context.Context, id uuid.UUID) (*models.Trip, error) {
	var doc []byte
	var version int64
	err := s.pool.QueryRow(ctx,
		`SELECT doc, version FROM trips WHERE id = $1`, id).Scan(&doc, &version)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get trip: %w", err)
	}
	return decodeTrip(doc, version)
}

// GetTripByToken resolves an invite or share token through the index table.
func (s *PostgresStore) GetTripByToken(ctx context.Context, kind store.TokenKind, token string) (*models.Trip, error) {
	var doc []byte
	var version int64
	err := s.pool.QueryRow(ctx,
		`SELECT t.doc, t.version FROM trips t
		   JOIN trip_tokens k ON k.trip_id = t.id
		  WHERE k.token = $1 AND k.kind = $2`, token, string(kind)).Scan(&doc, &version)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get trip by token: %w", err)
	}
	return decodeTrip(doc, version)
}

// UpdateTrip writes the document conditionally on its version and rebuilds
// the token index in the same transaction.
func (s *PostgresStore) UpdateTrip(ctx context.Context, trip *models.Trip) error {
	doc, err := json.Marshal(trip)
	if err != nil {
		return fmt.Errorf("failed to encode trip: %w", err)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx,
		`UPDATE trips SET doc = $1, owner_id = $2, version = version + 1 WHERE id = $3 AND version = $4`,
		string(doc), trip.OwnerID, trip.ID, trip.Version)
	if err != nil {
		return fmt.Errorf("failed to update trip: %w", err)
	}
	if tag.RowsAffected() == 0 {
		var exists int
		err := tx.QueryRow(ctx, `SELECT 1 FROM trips WHERE id = $1`, trip.ID).Scan(&exists)
		if errors.Is(err, pgx.ErrNoRows) {
			return store.ErrNotFound
		}
		return store.ErrVersionConflict
	}

	if _, err := tx.Exec(ctx,
		`DELETE FROM trip_tokens WHERE trip_id = $1`, trip.ID); err != nil {
		return fmt.Errorf("failed to clear token index: %w", err)
	}
	if err := insertTokens(ctx, tx, trip); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	trip.Version++
	return nil
}

// DeleteTrip removes a trip and, via cascade, its token index rows.
func (s *PostgresStore) DeleteTrip(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM trips WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete trip: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

// ListTripsForUser returns trips owned by the user plus trips where the user
// is an accepted collaborator, newest first.
func (s *PostgresStore) ListTripsForUser(ctx context.Context, userID uuid.UUID) ([]*models.Trip, error) {
	member, err := json.Marshal([]map[string]string{
		{"user_id": userID.String(), "status": models.CollabAccepted},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode membership filter: %w", err)
	}

	rows, err := s.pool.Query(ctx,
		`SELECT doc, version FROM trips
		  WHERE owner_id = $1 OR doc->'collaborators' @> $2::jsonb
		  ORDER BY doc->>'created_at' DESC`,
		userID, string(member))
	if err != nil {
		return nil, fmt.Errorf("failed to list trips: %w", err)
	}
	defer rows.Close()

	var trips []*models.Trip
	for rows.Next() {
		var doc []byte
		var version int64
		if err := rows.Scan(&doc, &version); err != nil {
			return nil, fmt.Errorf("failed to scan trip: %w", err)
		}
		trip, err := decodeTrip(doc, version)
		if err != nil {
			return nil, err
		}
		trips = append(trips, trip)
	}
	return trips, rows.Err()
}
