package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/traveldiary/backend/internal/access"
	"github.com/traveldiary/backend/internal/apperr"
	"github.com/traveldiary/backend/internal/email"
	"github.com/traveldiary/backend/internal/models"
	"github.com/traveldiary/backend/internal/store"
	"github.com/traveldiary/backend/internal/utils"
)

// inviteLinkTTLDays is the default lifetime of an invite-link token.
const inviteLinkTTLDays = 7

// InviteCollaboratorInput is the payload for a direct collaborator invite.
type InviteCollaboratorInput struct {
	Email   string
	Role    string
	Message string
}

// InviteCollaboratorResult reports the outcome, including whether the
// notification email went out.
type InviteCollaboratorResult struct {
	Trip         *models.Trip
	Collaborator *models.Collaborator
	EmailSent    bool
}

// InviteCollaborator adds a pending collaborator entry addressed by email and
// sends the invite mail. Requires invite_others. Each email gets at most one
// entry per trip.
func (s *Service) InviteCollaborator(ctx context.Context, tripID uuid.UUID, inviter *models.User, in InviteCollaboratorInput) (*InviteCollaboratorResult, error) {
	emailAddr := strings.ToLower(strings.TrimSpace(in.Email))
	if emailAddr == "" {
		return nil, apperr.New(apperr.Invalid, "Email is required")
	}
	if !utils.IsValidEmail(emailAddr) {
		return nil, apperr.New(apperr.Invalid, "Please provide a valid email address")
	}
	role, ok := models.ParseRole(in.Role)
	if !ok {
		if strings.TrimSpace(in.Role) != "" {
			return nil, apperr.New(apperr.Invalid, "Role must be viewer, editor, or admin")
		}
		role = models.RoleViewer
	}
	if strings.EqualFold(emailAddr, inviter.Email) {
		return nil, apperr.New(apperr.Invalid, "You cannot invite yourself")
	}

	// An existing account for the invitee binds the entry to their user id
	// right away; otherwise it binds on accept.
	invitee, err := s.GetUserByEmail(ctx, emailAddr)
	if err != nil {
		return nil, err
	}

	token := utils.NewInviteToken()
	var collabToken string
	trip, err := s.updateTrip(ctx, tripID, func(trip *models.Trip) error {
		if !access.CanAccess(trip, inviter.ID.String(), access.CapInviteOthers) {
			return apperr.New(apperr.Forbidden, "You don't have permission to invite collaborators")
		}
		if invitee != nil && trip.OwnerID == invitee.ID {
			return apperr.New(apperr.Invalid, "The trip owner already has full access")
		}
		if existing := trip.FindCollaboratorByEmail(emailAddr); existing != nil {
			if existing.Status == models.CollabDeclined {
				// Re-invite after a decline reuses the entry.
				existing.Status = models.CollabPending
				existing.Role = role
				existing.InvitedBy = inviter.ID.String()
				existing.InvitedAt = s.now()
				existing.InviteToken = token
				existing.RespondedAt = nil
				collabToken = token
				return nil
			}
			return apperr.New(apperr.Conflict, "This person has already been invited")
		}

		c := models.Collaborator{
			Email:       emailAddr,
			Role:        role,
			InvitedBy:   inviter.ID.String(),
			InvitedAt:   s.now(),
			Status:      models.CollabPending,
			InviteToken: token,
		}
		if invitee != nil {
			c.UserID = invitee.ID.String()
			c.Name = invitee.Name
		}
		trip.Collaborators = append(trip.Collaborators, c)
		collabToken = token
		return nil
	})
	if err != nil {
		return nil, err
	}

	sent := false
	mail := email.Invite{
		ToEmail:      emailAddr,
		InviterName:  inviter.Name,
		InviterEmail: inviter.Email,
		TripTitle:    trip.Title,
		Destination:  trip.Destination,
		StartDate:    trip.StartDate,
		EndDate:      trip.EndDate,
		Role:         string(role),
		Message:      in.Message,
		AcceptURL:    fmt.Sprintf("%s/invitations/%s/accept", s.appBaseURL, collabToken),
		DeclineURL:   fmt.Sprintf("%s/invitations/%s/decline", s.appBaseURL, collabToken),
	}
	if err := s.email.SendInvite(mail); err != nil {
		slog.Warn("invite email not sent", "trip_id", trip.ID, "to", emailAddr, "error", err)
	} else {
		sent = true
	}

	return &InviteCollaboratorResult{
		Trip:         trip,
		Collaborator: trip.FindCollaboratorByEmail(emailAddr),
		EmailSent:    sent,
	}, nil
}

// RespondToInvite accepts or declines a direct collaborator invite by token.
// Only pending invites can be answered; a second response fails. When the
// responder is authenticated and the entry has no bound account yet, the
// response binds it.
func (s *Service) RespondToInvite(ctx context.Context, token, action string, responder *models.User) (*models.Trip, error) {
	action = strings.ToLower(strings.TrimSpace(action))
	if action != "accept" && action != "decline" {
		return nil, apperr.New(apperr.Invalid, "Action must be accept or decline")
	}

	return s.updateTripByToken(ctx, store.TokenCollabInvite, token, func(trip *models.Trip) error {
		c := trip.FindCollaboratorByToken(token)
		if c == nil {
			return apperr.New(apperr.NotFound, "Invitation not found")
		}
		if c.Status != models.CollabPending {
			return apperr.New(apperr.AlreadyUsed, "This invitation has already been responded to")
		}
		if responder != nil {
			if c.UserID == "" {
				if !strings.EqualFold(c.Email, responder.Email) {
					return apperr.New(apperr.Forbidden, "This invitation was issued for a different email address")
				}
				c.UserID = responder.ID.String()
				c.Name = responder.Name
			} else if c.UserID != responder.ID.String() {
				return apperr.New(apperr.Forbidden, "This invitation belongs to another user")
			}
		}

		now := s.now()
		c.RespondedAt = &now
		if action == "accept" {
			c.Status = models.CollabAccepted
			c.AcceptedAt = &now
		} else {
			c.Status = models.CollabDeclined
		}
		return nil
	})
}

// CreateInviteLinkInput is the payload for minting an invite-link token.
type CreateInviteLinkInput struct {
	Role        string
	Email       string // optional: locks the link to one address
	Message     string
	AllowSignup bool
	ExpiresDays int // 0 means the 7-day default
}

// CreateInviteLinkResult carries the minted invitation and its public URL.
type CreateInviteLinkResult struct {
	Trip       *models.Trip
	Invitation *models.Invitation
	InviteURL  string
}

// CreateInviteLink mints a single-use invite-link token on the trip. Requires
// invite_others.
func (s *Service) CreateInviteLink(ctx context.Context, tripID uuid.UUID, inviter *models.User, in CreateInviteLinkInput) (*CreateInviteLinkResult, error) {
	role, ok := models.ParseRole(in.Role)
	if !ok {
		if strings.TrimSpace(in.Role) != "" {
			return nil, apperr.New(apperr.Invalid, "Role must be viewer, editor, or admin")
		}
		role = models.RoleViewer
	}
	emailAddr := strings.ToLower(strings.TrimSpace(in.Email))
	if emailAddr != "" && !utils.IsValidEmail(emailAddr) {
		return nil, apperr.New(apperr.Invalid, "Please provide a valid email address")
	}
	days := in.ExpiresDays
	if days <= 0 {
		days = inviteLinkTTLDays
	}

	token := utils.NewInviteToken()
	trip, err := s.updateTrip(ctx, tripID, func(trip *models.Trip) error {
		if !access.CanAccess(trip, inviter.ID.String(), access.CapInviteOthers) {
			return apperr.New(apperr.Forbidden, "You don't have permission to invite collaborators")
		}
		now := s.now()
		trip.Invitations = append(trip.Invitations, models.Invitation{
			ID:           uuid.New().String(),
			Token:        token,
			Role:         role,
			Email:        emailAddr,
			Message:      in.Message,
			AllowSignup:  in.AllowSignup,
			Status:       models.InvitePending,
			InviterID:    inviter.ID.String(),
			InviterName:  inviter.Name,
			InviterEmail: inviter.Email,
			CreatedAt:    now,
			ExpiresAt:    now.AddDate(0, 0, days),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &CreateInviteLinkResult{
		Trip:       trip,
		Invitation: trip.FindInvitation(token),
		InviteURL:  fmt.Sprintf("%s/invite/%s", s.appBaseURL, token),
	}, nil
}

// InviteDetails resolves an invite-link token without consuming it, for the
// landing page. Dead tokens are reported precisely: missing, expired, or
// already used.
func (s *Service) InviteDetails(ctx context.Context, token string) (*models.Invitation, *models.Trip, error) {
	trip, err := s.store.GetTripByToken(ctx, store.TokenInviteLink, token)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil, apperr.New(apperr.NotFound, "Invitation not found")
	}
	if err != nil {
		return nil, nil, apperr.Wrap(apperr.Internal, err, "Failed to resolve invitation")
	}

	inv := trip.FindInvitation(token)
	if inv == nil {
		return nil, nil, apperr.New(apperr.NotFound, "Invitation not found")
	}
	if inv.Status != models.InvitePending {
		return nil, nil, apperr.New(apperr.AlreadyUsed, "This invitation has already been used")
	}
	if s.now().After(inv.ExpiresAt) {
		return nil, nil, apperr.New(apperr.Expired, "This invitation has expired")
	}
	return inv, trip, nil
}

// AcceptInvite consumes an invite-link token for an authenticated user,
// adding them as an accepted collaborator with the invitation's role. The
// token is single-use: consumption marks the invitation accepted.
func (s *Service) AcceptInvite(ctx context.Context, token string, user *models.User) (*models.Trip, error) {
	if user == nil {
		return nil, apperr.New(apperr.Unauthorized, "Authentication required")
	}

	return s.updateTripByToken(ctx, store.TokenInviteLink, token, func(trip *models.Trip) error {
		inv := trip.FindInvitation(token)
		if inv == nil {
			return apperr.New(apperr.NotFound, "Invitation not found")
		}
		if inv.Status != models.InvitePending {
			return apperr.New(apperr.AlreadyUsed, "This invitation has already been used")
		}
		if s.now().After(inv.ExpiresAt) {
			return apperr.New(apperr.Expired, "This invitation has expired")
		}
		if inv.Email != "" && !strings.EqualFold(inv.Email, user.Email) {
			return apperr.New(apperr.Forbidden, "This invitation was issued for a different email address")
		}
		if trip.OwnerID == user.ID {
			return apperr.New(apperr.Invalid, "You already own this trip")
		}
		if c := trip.FindCollaboratorByUser(user.ID.String()); c != nil && c.Status == models.CollabAccepted {
			return apperr.New(apperr.Conflict, "You are already a collaborator on this trip")
		}
		// The email lookup also catches accepted entries with no bound user
		// id, such as a direct invite accepted before the account existed.
		// Each email gets at most one collaborator entry per trip.
		existing := trip.FindCollaboratorByEmail(user.Email)
		if existing != nil && existing.Status == models.CollabAccepted {
			return apperr.New(apperr.Conflict, "You are already a collaborator on this trip")
		}

		now := s.now()
		inv.Status = models.InviteAccepted
		inv.UsedAt = &now
		inv.UsedBy = user.ID.String()

		// Reuse a pending or declined direct-invite entry for the same
		// person; otherwise append a fresh accepted entry.
		if existing != nil {
			existing.UserID = user.ID.String()
			existing.Name = user.Name
			existing.Role = inv.Role
			existing.Status = models.CollabAccepted
			existing.RespondedAt = &now
			existing.AcceptedAt = &now
			return nil
		}
		trip.Collaborators = append(trip.Collaborators, models.Collaborator{
			UserID:      user.ID.String(),
			Email:       user.Email,
			Name:        user.Name,
			Role:        inv.Role,
			InvitedBy:   inv.InviterID,
			InvitedAt:   inv.CreatedAt,
			Status:      models.CollabAccepted,
			RespondedAt: &now,
			AcceptedAt:  &now,
		})
		return nil
	})
}
