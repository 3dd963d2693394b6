package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/traveldiary/backend/internal/access"
	"github.com/traveldiary/backend/internal/apperr"
	"github.com/traveldiary/backend/internal/email"
	"github.com/traveldiary/backend/internal/models"
	"github.com/traveldiary/backend/internal/store"
	"github.com/traveldiary/backend/internal/utils"
)

// shareLinkTTLDays is the default lifetime of a share link.
const shareLinkTTLDays = 30

// CreateShareLinkInput is the payload for minting a share link.
type CreateShareLinkInput struct {
	IsPublic          bool
	AllowComments     bool
	PasswordProtected bool   // must come with a password
	Password          string // optional; stored hashed
	ExpiresDays       int    // 0 means the 30-day default
	NotifyEmail       string // optional address to notify about the new link
}

// CreateShareLinkResult carries the minted link and its public URL.
type CreateShareLinkResult struct {
	Trip      *models.Trip
	ShareLink *models.ShareLink
	ShareURL  string
}

// CreateShareLink mints a public share link on the trip. Requires
// manage_settings. A non-empty password makes the link password protected.
func (s *Service) CreateShareLink(ctx context.Context, tripID uuid.UUID, creator *models.User, in CreateShareLinkInput) (*CreateShareLinkResult, error) {
	if in.PasswordProtected && in.Password == "" {
		return nil, apperr.New(apperr.Invalid, "A password is required for a password protected link")
	}
	days := in.ExpiresDays
	if days <= 0 {
		days = shareLinkTTLDays
	}

	settings := models.ShareSettings{
		IsPublic:      in.IsPublic,
		AllowComments: in.AllowComments,
	}
	if in.Password != "" {
		hashed, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, apperr.Wrap(apperr.Internal, err, "Failed to hash password")
		}
		settings.PasswordProtected = true
		settings.PasswordHash = string(hashed)
	}

	token := utils.NewShareToken()
	trip, err := s.updateTrip(ctx, tripID, func(trip *models.Trip) error {
		if !access.CanAccess(trip, creator.ID.String(), access.CapManageSettings) {
			return apperr.New(apperr.Forbidden, "You don't have permission to share this trip")
		}
		now := s.now()
		trip.ShareLinks = append(trip.ShareLinks, models.ShareLink{
			ID:          uuid.New().String(),
			Token:       token,
			CreatedBy:   creator.ID.String(),
			Settings:    settings,
			AccessCount: 0,
			CreatedAt:   now,
			UpdatedAt:   now,
			ExpiresAt:   now.AddDate(0, 0, days),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	shareURL := fmt.Sprintf("%s/shared/%s", s.appBaseURL, token)
	if notify := strings.ToLower(strings.TrimSpace(in.NotifyEmail)); notify != "" && utils.IsValidEmail(notify) {
		n := email.ShareNotification{
			ToEmail:     notify,
			TripTitle:   trip.Title,
			Destination: trip.Destination,
			ShareURL:    shareURL,
			Protected:   settings.PasswordProtected,
		}
		if err := s.email.SendShareNotification(n); err != nil {
			slog.Warn("share notification not sent", "trip_id", trip.ID, "to", notify, "error", err)
		}
	}

	return &CreateShareLinkResult{
		Trip:      trip,
		ShareLink: trip.FindShareLink(token),
		ShareURL:  shareURL,
	}, nil
}

// RevokeShareLink deletes a share link by id. Requires manage_settings.
func (s *Service) RevokeShareLink(ctx context.Context, tripID uuid.UUID, requesterID, linkID string) (*models.Trip, error) {
	return s.updateTrip(ctx, tripID, func(trip *models.Trip) error {
		if !access.CanAccess(trip, requesterID, access.CapManageSettings) {
			return apperr.New(apperr.Forbidden, "You don't have permission to manage share links")
		}
		for i := range trip.ShareLinks {
			if trip.ShareLinks[i].ID == linkID {
				trip.ShareLinks = append(trip.ShareLinks[:i], trip.ShareLinks[i+1:]...)
				return nil
			}
		}
		return apperr.New(apperr.NotFound, "Share link not found")
	})
}

// ResolveShareLink serves an anonymous visit to a share link. Checks run in
// order: unknown token is NotFound, a past expiry is Gone, and a wrong or
// missing password on a protected link is Unauthorized. On success the access
// count and last-accessed time are persisted before the view is returned, so
// every successful read is counted exactly once.
func (s *Service) ResolveShareLink(ctx context.Context, token, password string) (*models.Trip, *models.ShareLink, error) {
	trip, err := s.store.GetTripByToken(ctx, store.TokenShare, token)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil, apperr.New(apperr.NotFound, "Shared trip not found")
	}
	if err != nil {
		return nil, nil, apperr.Wrap(apperr.Internal, err, "Failed to resolve share link")
	}

	link := trip.FindShareLink(token)
	if link == nil {
		return nil, nil, apperr.New(apperr.NotFound, "Shared trip not found")
	}
	if s.now().After(link.ExpiresAt) {
		return nil, nil, apperr.New(apperr.Gone, "This share link has expired")
	}
	if link.Settings.PasswordProtected {
		if password == "" {
			return nil, nil, apperr.New(apperr.Unauthorized, "This shared trip is password protected")
		}
		if bcrypt.CompareHashAndPassword([]byte(link.Settings.PasswordHash), []byte(password)) != nil {
			return nil, nil, apperr.New(apperr.Unauthorized, "Incorrect password")
		}
	}

	updated, err := s.updateTrip(ctx, trip.ID, func(t *models.Trip) error {
		l := t.FindShareLink(token)
		if l == nil {
			return apperr.New(apperr.NotFound, "Shared trip not found")
		}
		now := s.now()
		l.AccessCount++
		l.LastAccessed = &now
		l.UpdatedAt = now
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return updated, updated.FindShareLink(token), nil
}
