// Package sqlite provides a SQLite-backed implementation of store.Store.
// It is the alternate document-database code path and the backend the test
// suite runs against; the schema mirrors the PostgreSQL backend.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)

	"github.com/traveldiary/backend/internal/models"
	"github.com/traveldiary/backend/internal/store"
)

// Ensure SQLiteStore implements store.Store
var _ store.Store = (*SQLiteStore)(nil)

// SQLiteStore implements store.Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS users (
    id TEXT PRIMARY KEY,
    email TEXT NOT NULL UNIQUE COLLATE NOCASE,
    name TEXT NOT NULL,
    password_hash TEXT NOT NULL DEFAULT '',
    avatar_url TEXT NOT NULL DEFAULT '',
    provider TEXT NOT NULL DEFAULT 'local',
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS sessions (
    id TEXT PRIMARY KEY,
    user_id TEXT NOT NULL,
    created_at TEXT NOT NULL,
    expires_at TEXT NOT NULL,
    FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS trips (
    id TEXT PRIMARY KEY,
    owner_id TEXT NOT NULL,
    doc TEXT NOT NULL,
    version INTEGER NOT NULL DEFAULT 1
);

CREATE TABLE IF NOT EXISTS trip_tokens (
    token TEXT PRIMARY KEY,
    trip_id TEXT NOT NULL,
    kind TEXT NOT NULL,
    FOREIGN KEY (trip_id) REFERENCES trips(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_trips_owner_id ON trips(owner_id);
CREATE INDEX IF NOT EXISTS idx_trip_tokens_trip_id ON trip_tokens(trip_id);
CREATE INDEX IF NOT EXISTS idx_sessions_user_id ON sessions(user_id);
`

// New creates a new SQLiteStore at the given database path. Parent
// directories are created and the schema is applied automatically.
func New(dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Ping verifies the database is reachable.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// CreateUser persists a new user. Returns store.ErrConflict when the email
// is already registered.
func (s *SQLiteStore) CreateUser(ctx context.Context, user *models.User) error {
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (id, email, name, password_hash, avatar_url, provider, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		user.ID.String(), user.Email, user.Name, user.PasswordHash, user.AvatarURL, user.Provider,
		user.CreatedAt.Format(time.RFC3339Nano), user.UpdatedAt.Format(time.RFC3339Nano))
	if isUniqueViolation(err) {
		return store.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (s *SQLiteStore) scanUser(row *sql.Row) (*models.User, error) {
	var u models.User
	var id, createdAt, updatedAt string
	err := row.Scan(&id, &u.Email, &u.Name, &u.PasswordHash, &u.AvatarURL, &u.Provider, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan user: %w", err)
	}
	u.ID, err = uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("invalid user id %q: %w", id, err)
	}
	u.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	u.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updatedAt)
	return &u, nil
}

// GetUser retrieves a user by id.
func (s *SQLiteStore) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, email, name, password_hash, avatar_url, provider, created_at, updated_at
		   FROM users WHERE id = ?`, id.String())
	return s.scanUser(row)
}

// GetUserByEmail retrieves a user by email (case-insensitive).
func (s *SQLiteStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, email, name, password_hash, avatar_url, provider, created_at, updated_at
		   FROM users WHERE email = ? COLLATE NOCASE`, email)
	return s.scanUser(row)
}

// CreateSession persists a session record.
func (s *SQLiteStore) CreateSession(ctx context.Context, session *models.Session) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (id, user_id, created_at, expires_at) VALUES (?, ?, ?, ?)`,
		session.ID, session.UserID.String(),
		session.CreatedAt.Format(time.RFC3339Nano), session.ExpiresAt.Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

// GetSession retrieves a session by token id.
func (s *SQLiteStore) GetSession(ctx context.Context, id string) (*models.Session, error) {
	var sess models.Session
	var userID, createdAt, expiresAt string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, created_at, expires_at FROM sessions WHERE id = ?`, id).
		Scan(&sess.ID, &userID, &createdAt, &expiresAt)
	if err == sql.ErrNoRows {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	sess.UserID, err = uuid.Parse(userID)
	if err != nil {
		return nil, fmt.Errorf("invalid session user id %q: %w", userID, err)
	}
	sess.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	sess.ExpiresAt, _ = time.Parse(time.RFC3339Nano, expiresAt)
	return &sess, nil
}

// DeleteSession removes a session (logout / revocation).
func (s *SQLiteStore) DeleteSession(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// CreateTrip persists a new trip document at version 1 along with its token
// index rows.
func (s *SQLiteStore) CreateTrip(ctx context.Context, trip *models.Trip) error {
	doc, err := json.Marshal(trip)
	if err != nil {
		return fmt.Errorf("failed to encode trip: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO trips (id, owner_id, doc, version) VALUES (?, ?, ?, 1)`,
		trip.ID.String(), trip.OwnerID.String(), string(doc)); err != nil {
		return fmt.Errorf("failed to insert trip: %w", err)
	}
	if err := insertTokens(ctx, tx, trip); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	trip.Version = 1
	return nil
}

func insertTokens(ctx context.Context, tx *sql.Tx, trip *models.Trip) error {
	for _, row := range store.TokensOf(trip) {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO trip_tokens (token, trip_id, kind) VALUES (?, ?, ?)`,
			row.Token, trip.ID.String(), string(row.Kind)); err != nil {
			return fmt.Errorf("failed to index token: %w", err)
		}
	}
	return nil
}

func decodeTrip(doc string, version int64) (*models.Trip, error) {
	var trip models.Trip
	if err := json.Unmarshal([]byte(doc), &trip); err != nil {
		return nil, fmt.Errorf("failed to decode trip: %w", err)
	}
	trip.Version = version
	return &trip, nil
}

// GetTrip retrieves a trip document by id.
func (s *SQLiteStore) GetTrip(ctx context.Context, id uuid.UUID) (*models.Trip, error) {
	var doc string
	var version int64
	err := s.db.QueryRowContext(ctx,
		`SELECT doc, version FROM trips WHERE id = ?`, id.String()).Scan(&doc, &version)
	if err == sql.ErrNoRows {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get trip: %w", err)
	}
	return decodeTrip(doc, version)
}

// GetTripByToken resolves an invite or share token through the index table.
func (s *SQLiteStore) GetTripByToken(ctx context.Context, kind store.TokenKind, token string) (*models.Trip, error) {
	var doc string
	var version int64
	err := s.db.QueryRowContext(ctx,
		`SELECT t.doc, t.version FROM trips t
		   JOIN trip_tokens k ON k.trip_id = t.id
		  WHERE k.token = ? AND k.kind = ?`, token, string(kind)).Scan(&doc, &version)
	if err == sql.ErrNoRows {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get trip by token: %w", err)
	}
	return decodeTrip(doc, version)
}

// UpdateTrip writes the document conditionally on its version and rebuilds
// the token index in the same transaction.
func (s *SQLiteStore) UpdateTrip(ctx context.Context, trip *models.Trip) error {
	doc, err := json.Marshal(trip)
	if err != nil {
		return fmt.Errorf("failed to encode trip: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE trips SET doc = ?, owner_id = ?, version = version + 1 WHERE id = ? AND version = ?`,
		string(doc), trip.OwnerID.String(), trip.ID.String(), trip.Version)
	if err != nil {
		return fmt.Errorf("failed to update trip: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if affected == 0 {
		var exists int
		if err := tx.QueryRowContext(ctx,
			`SELECT 1 FROM trips WHERE id = ?`, trip.ID.String()).Scan(&exists); err == sql.ErrNoRows {
			return store.ErrNotFound
		}
		return store.ErrVersionConflict
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM trip_tokens WHERE trip_id = ?`, trip.ID.String()); err != nil {
		return fmt.Errorf("failed to clear token index: %w", err)
	}
	if err := insertTokens(ctx, tx, trip); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	trip.Version++
	return nil
}

// DeleteTrip removes a trip and, via cascade, its token index rows.
func (s *SQLiteStore) DeleteTrip(ctx context.Context, id uuid.UUID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM trips WHERE id = ?`, id.String())
	if err != nil {
		return fmt.Errorf("failed to delete trip: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

// ListTripsForUser returns trips owned by the user plus trips where the user
// is an accepted collaborator, newest first.
func (s *SQLiteStore) ListTripsForUser(ctx context.Context, userID uuid.UUID) ([]*models.Trip, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT doc, version FROM trips
		  WHERE owner_id = ?
		     OR EXISTS (
		          SELECT 1 FROM json_each(trips.doc, '$.collaborators') AS je
		           WHERE json_extract(je.value, '$.user_id') = ?
		             AND json_extract(je.value, '$.status') = 'accepted')
		  ORDER BY json_extract(doc, '$.created_at') DESC`,
		userID.String(), userID.String())
	if err != nil {
		return nil, fmt.Errorf("failed to list trips: %w", err)
	}
	defer rows.Close()

	var trips []*models.Trip
	for rows.Next() {
		var doc string
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
