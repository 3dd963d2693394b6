// Package store defines the persistence boundary for users, sessions, and
// trip documents. Trips are stored whole: every mutation of an embedded list
// (collaborators, invitations, share links) is a read-modify-write of the
// full document guarded by an optimistic version check. Implementations also
// maintain a token -> trip secondary index in the same transaction as each
// document write, so invite and share tokens resolve without scanning.
package store

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/traveldiary/backend/internal/models"
)

var (
	// ErrNotFound is returned when a record does not exist.
	ErrNotFound = errors.New("store: not found")
	// ErrConflict is returned on unique-constraint violations (duplicate
	// user email).
	ErrConflict = errors.New("store: conflict")
	// ErrVersionConflict is returned by UpdateTrip when the document changed
	// since it was read. Callers re-read and retry.
	ErrVersionConflict = errors.New("store: version conflict")
)

// TokenKind distinguishes the three token namespaces indexed per trip.
type TokenKind string

const (
	TokenCollabInvite TokenKind = "collab_invite"
	TokenInviteLink   TokenKind = "invite_link"
	TokenShare        TokenKind = "share"
)

// Store is the interface all backends implement. Swapping backends
// (PostgreSQL, SQLite) must not change service behavior.
type Store interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUser(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)

	CreateSession(ctx context.Context, session *models.Session) error
	GetSession(ctx context.Context, id string) (*models.Session, error)
	DeleteSession(ctx context.Context, id string) error

	CreateTrip(ctx context.Context, trip *models.Trip) error
	GetTrip(ctx context.Context, id uuid.UUID) (*models.Trip, error)
	// GetTripByToken resolves an invite or share token to the trip carrying
	// it via the secondary index.
	GetTripByToken(ctx context.Context, kind TokenKind, token string) (*models.Trip, error)
	// UpdateTrip persists the document if trip.Version still matches the
	// stored row, then increments trip.Version. Returns ErrVersionConflict
	// when a concurrent writer won.
	UpdateTrip(ctx context.Context, trip *models.Trip) error
	DeleteTrip(ctx context.Context, id uuid.UUID) error
	// ListTripsForUser returns trips the user owns plus trips where they are
	// an accepted collaborator.
	ListTripsForUser(ctx context.Context, userID uuid.UUID) ([]*models.Trip, error)

	Ping(ctx context.Context) error
	Close() error
}

// TokenRow is one secondary-index entry derived from a trip document.
type TokenRow struct {
	Token string
	Kind  TokenKind
}

// TokensOf extracts every token embedded in a trip document. Backends call
// this to rebuild the index rows whenever the document is written.
func TokensOf(t *models.Trip) []TokenRow {
	var rows []TokenRow
	for i := range t.Collaborators {
		if tok := t.Collaborators[i].InviteToken; tok != "" {
			rows = append(rows, TokenRow{Token: tok, Kind: TokenCollabInvite})
		}
	}
	for i := range t.Invitations {
		if tok := t.Invitations[i].Token; tok != "" {
			rows = append(rows, TokenRow{Token: tok, Kind: TokenInviteLink})
		}
	}
	for i := range t.ShareLinks {
		if tok := t.ShareLinks[i].Token; tok != "" {
			rows = append(rows, TokenRow{Token: tok, Kind: TokenShare})
		}
	}
	return rows
}
