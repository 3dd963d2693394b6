package dto

import (
	"time"

	"github.com/traveldiary/backend/internal/models"
)

// InviteCollaboratorRequest invites one person to a trip by email
type InviteCollaboratorRequest struct {
	Email   string `json:"email" validate:"required,email"`
	Role    string `json:"role,omitempty"` // viewer, editor, admin; default viewer
	Message string `json:"message,omitempty"`
}

// InviteCollaboratorResponse confirms the invitation
type InviteCollaboratorResponse struct {
	Message      string               `json:"message"`
	Collaborator CollaboratorResponse `json:"collaborator"`
	EmailSent    bool                 `json:"email_sent"`
}

// RespondToInviteRequest accepts or declines a direct collaborator invite
type RespondToInviteRequest struct {
	Action string `json:"action" validate:"required,oneof=accept decline"`
}

// RespondToInviteResponse confirms the response and, on accept, returns the
// trip the responder joined
type RespondToInviteResponse struct {
	Message string        `json:"message"`
	Status  string        `json:"status"`
	Trip    *TripResponse `json:"trip,omitempty"`
}

// CreateInviteLinkRequest mints a single-use invite-link token
type CreateInviteLinkRequest struct {
	Role          string `json:"role,omitempty"`  // viewer, editor, admin; default viewer
	Email         string `json:"email,omitempty"` // optional: lock the link to one address
	Message       string `json:"message,omitempty"`
	AllowSignup   bool   `json:"allow_signup,omitempty"`
	ExpiresInDays int    `json:"expires_in_days,omitempty"` // default 7
}

// CreateInviteLinkResponse carries the minted link
type CreateInviteLinkResponse struct {
	InviteURL  string             `json:"invite_url"`
	Invitation InvitationResponse `json:"invitation"`
}

// InvitationDetailsResponse is the invite landing page payload
type InvitationDetailsResponse struct {
	Invitation  InvitationResponse `json:"invitation"`
	Trip        TripPreview        `json:"trip"`
	Permissions map[string]bool    `json:"permissions"` // what the offered role grants
}

// AcceptInviteResponse confirms an invite-link acceptance
type AcceptInviteResponse struct {
	Message string       `json:"message"`
	Trip    TripResponse `json:"trip"`
}

// TripPreview is the reduced trip shape shown before an invite is accepted
type TripPreview struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Destination string `json:"destination"`
	StartDate   string `json:"start_date"`
	EndDate     string `json:"end_date"`
}

// CollaboratorResponse represents a collaborator entry in API responses
type CollaboratorResponse struct {
	UserID      string `json:"user_id,omitempty"`
	Email       string `json:"email"`
	Name        string `json:"name,omitempty"`
	Role        string `json:"role"`
	Status      string `json:"status"`
	InvitedBy   string `json:"invited_by"`
	InvitedAt   string `json:"invited_at"`
	RespondedAt string `json:"responded_at,omitempty"`
}

// InvitationResponse represents an invite-link invitation in API responses
type InvitationResponse struct {
	ID          string `json:"id"`
	Role        string `json:"role"`
	Email       string `json:"email,omitempty"`
	Message     string `json:"message,omitempty"`
	AllowSignup bool   `json:"allow_signup"`
	Status      string `json:"status"`
	InviterName string `json:"inviter_name"`
	CreatedAt   string `json:"created_at"`
	ExpiresAt   string `json:"expires_at"`
}

// NewCollaboratorResponse converts a collaborator entry, dropping the invite
// token.
func NewCollaboratorResponse(c *models.Collaborator) CollaboratorResponse {
	resp := CollaboratorResponse{
		UserID:    c.UserID,
		Email:     c.Email,
		Name:      c.Name,
		Role:      string(c.Role),
		Status:    c.Status,
		InvitedBy: c.InvitedBy,
		InvitedAt: c.InvitedAt.UTC().Format(time.RFC3339),
	}
	if c.RespondedAt != nil {
		resp.RespondedAt = c.RespondedAt.UTC().Format(time.RFC3339)
	}
	return resp
}

// NewInvitationResponse converts an invitation, dropping the token.
func NewInvitationResponse(inv *models.Invitation) InvitationResponse {
	return InvitationResponse{
		ID:          inv.ID,
		Role:        string(inv.Role),
		Email:       inv.Email,
		Message:     inv.Message,
		AllowSignup: inv.AllowSignup,
		Status:      inv.Status,
		InviterName: inv.InviterName,
		CreatedAt:   inv.CreatedAt.UTC().Format(time.RFC3339),
		ExpiresAt:   inv.ExpiresAt.UTC().Format(time.RFC3339),
	}
}
