// Package service implements the application core: trip CRUD, the
// collaboration and access-control model, the invitation and share-link
// lifecycles, and account/session management. Handlers stay thin; every
// rule lives here against the injected store.
package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/traveldiary/backend/internal/apperr"
	"github.com/traveldiary/backend/internal/email"
	"github.com/traveldiary/backend/internal/models"
	"github.com/traveldiary/backend/internal/store"
)

// updateRetries bounds the optimistic-concurrency retry loop. Conflicts are
// rare (two writers on the same trip document); re-reading and re-applying
// the mutation resolves them.
const updateRetries = 3

// Service wires the store, the email sender, and the app base URL used in
// invite/share links.
type Service struct {
	store      store.Store
	email      email.Sender
	appBaseURL string
	sessionTTL time.Duration

	// now is swappable so expiry behavior is testable.
	now func() time.Time
}

// New creates a Service. appBaseURL is the public origin embedded in invite
// and share URLs, without a trailing slash.
func New(st store.Store, sender email.Sender, appBaseURL string, sessionTTL time.Duration) *Service {
	if sender == nil {
		sender = email.NoopSender{}
	}
	return &Service{
		store:      st,
		email:      sender,
		appBaseURL: appBaseURL,
		sessionTTL: sessionTTL,
		now:        time.Now,
	}
}

// updateTrip composes a read-modify-write of the whole trip document with a
// version check. The mutate callback runs against a freshly loaded document
// on every attempt, so validation and authorization inside it hold at write
// time, not just at first read.
func (s *Service) updateTrip(ctx context.Context, tripID uuid.UUID, mutate func(*models.Trip) error) (*models.Trip, error) {
	for attempt := 0; attempt < updateRetries; attempt++ {
		trip, err := s.store.GetTrip(ctx, tripID)
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.New(apperr.NotFound, "Trip not found")
		}
		if err != nil {
			return nil, apperr.Wrap(apperr.Internal, err, "Failed to load trip")
		}

		if err := mutate(trip); err != nil {
			return nil, err
		}
		trip.UpdatedAt = s.now()

		err = s.store.UpdateTrip(ctx, trip)
		if errors.Is(err, store.ErrVersionConflict) {
			continue
		}
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.New(apperr.NotFound, "Trip not found")
		}
		if err != nil {
			return nil, apperr.Wrap(apperr.Internal, err, "Failed to update trip")
		}
		return trip, nil
	}
	return nil, apperr.New(apperr.Internal, "Trip was modified concurrently, please retry")
}

// updateTripByToken is updateTrip for flows addressed by an invite or share
// token instead of a trip id.
func (s *Service) updateTripByToken(ctx context.Context, kind store.TokenKind, token string, mutate func(*models.Trip) error) (*models.Trip, error) {
	trip, err := s.store.GetTripByToken(ctx, kind, token)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.New(apperr.NotFound, "Invite token not found or expired")
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, err, "Failed to resolve token")
	}
	return s.updateTrip(ctx, trip.ID, mutate)
}

// GetUserByEmail looks up a user account; returns nil (no error) when the
// email has no account.
func (s *Service) GetUserByEmail(ctx context.Context, emailAddr string) (*models.User, error) {
	user, err := s.store.GetUserByEmail(ctx, emailAddr)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, err, "Failed to look up user")
	}
	return user, nil
}
