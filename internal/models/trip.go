package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Role is a collaborator's access level on a trip.
type Role string

const (
	RoleViewer Role = "viewer"
	RoleEditor Role = "editor"
	RoleAdmin  Role = "admin"
)

// ParseRole normalizes a role string. The boolean is false for anything
// outside the three enumerated roles.
func ParseRole(s string) (Role, bool) {
	switch Role(strings.ToLower(strings.TrimSpace(s))) {
	case RoleViewer:
		return RoleViewer, true
	case RoleEditor:
		return RoleEditor, true
	case RoleAdmin:
		return RoleAdmin, true
	}
	return "", false
}

// Collaborator invite statuses.
const (
	CollabPending  = "pending"
	CollabAccepted = "accepted"
	CollabDeclined = "declined"
)

// Invitation (invite-link) statuses. Single-use: pending is the only state
// from which a token can be consumed.
const (
	InvitePending  = "pending"
	InviteAccepted = "accepted"
)

// Trip statuses.
const (
	TripPlanning  = "planning"
	TripOngoing   = "ongoing"
	TripCompleted = "completed"
	TripCancelled = "cancelled"
)

// Trip is the whole trip document as persisted by the store. Embedded lists
// (collaborators, invitations, share links) are mutated only through
// read-modify-write of the full document.
type Trip struct {
	ID          uuid.UUID `json:"id"`
	OwnerID     uuid.UUID `json:"user_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Destination string    `json:"destination"`
	StartDate   string    `json:"start_date"` // ISO 8601: YYYY-MM-DD or RFC3339
	EndDate     string    `json:"end_date"`
	Duration    int       `json:"duration"` // days
	Status      string    `json:"status"`
	IsPublic    bool      `json:"is_public"`
	TotalBudget float64   `json:"total_budget"`
	Currency    string    `json:"currency"`

	Itinerary     []ItineraryItem `json:"itinerary"`
	Wishlist      []Place         `json:"wishlist"`
	Collaborators []Collaborator  `json:"collaborators"`
	Invitations   []Invitation    `json:"invitations"`
	ShareLinks    []ShareLink     `json:"share_links"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Version is managed by the store for conditional writes. It is not part
	// of the document body.
	Version int64 `json:"-"`
}

// Place is a location on a wishlist or inside an itinerary item.
type Place struct {
	Name        string             `json:"name"`
	Address     string             `json:"address,omitempty"`
	Coordinates map[string]float64 `json:"coordinates,omitempty"`
	PlaceID     string             `json:"place_id,omitempty"`
	Types       []string           `json:"types,omitempty"`
	Rating      float64            `json:"rating,omitempty"`
	Photos      []string           `json:"photos,omitempty"`
}

// ItineraryItem is one ordered stop in the trip itinerary.
type ItineraryItem struct {
	Place             Place  `json:"place"`
	Date              string `json:"date"`
	StartTime         string `json:"start_time,omitempty"`
	EndTime           string `json:"end_time,omitempty"`
	EstimatedDuration int    `json:"estimated_duration,omitempty"` // minutes
	Notes             string `json:"notes,omitempty"`
	Order             int    `json:"order"`
	IsCustom          bool   `json:"is_custom,omitempty"`
	CustomTitle       string `json:"custom_title,omitempty"`
	CustomDescription string `json:"custom_description,omitempty"`
}

// Collaborator is a user granted (or offered) access to a trip. UserID is
// empty when the invitee has no account yet. Entries are never removed; a
// declined invite stays as a historical record.
type Collaborator struct {
	UserID      string     `json:"user_id"`
	Email       string     `json:"email"`
	Name        string     `json:"name"`
	Role        Role       `json:"role"`
	InvitedBy   string     `json:"invited_by"`
	InvitedAt   time.Time  `json:"invited_at"`
	Status      string     `json:"status"`
	InviteToken string     `json:"invite_token,omitempty"`
	RespondedAt *time.Time `json:"responded_at,omitempty"`
	AcceptedAt  *time.Time `json:"accepted_at,omitempty"`
}

// Invitation is a token-bearing offer to join a trip via link, distinct from
// a direct Collaborator invite. Tokens are globally unique and single-use.
type Invitation struct {
	ID           string     `json:"id"`
	Token        string     `json:"token"`
	Role         Role       `json:"role"`
	Email        string     `json:"email,omitempty"` // optional target; empty means anyone with the link
	Message      string     `json:"message,omitempty"`
	AllowSignup  bool       `json:"allow_signup"`
	Status       string     `json:"status"`
	InviterID    string     `json:"inviter_id"`
	InviterName  string     `json:"inviter_name"`
	InviterEmail string     `json:"inviter_email"`
	CreatedAt    time.Time  `json:"created_at"`
	ExpiresAt    time.Time  `json:"expires_at"`
	UsedAt       *time.Time `json:"used_at,omitempty"`
	UsedBy       string     `json:"used_by,omitempty"`
}

// ShareSettings controls how a share link exposes the trip.
type ShareSettings struct {
	IsPublic          bool   `json:"is_public"`
	AllowComments     bool   `json:"allow_comments"`
	PasswordProtected bool   `json:"password_protected"`
	PasswordHash      string `json:"password,omitempty"` // bcrypt hash, never plaintext
}

// ShareLink is a public, account-independent access path to a filtered view
// of the trip. Once ExpiresAt has passed the link is permanently inert.
type ShareLink struct {
	ID           string        `json:"id"`
	Token        string        `json:"token"`
	CreatedBy    string        `json:"created_by"`
	Settings     ShareSettings `json:"settings"`
	AccessCount  int           `json:"access_count"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
	ExpiresAt    time.Time     `json:"expires_at"`
	LastAccessed *time.Time    `json:"last_accessed,omitempty"`
}

// FindCollaboratorByEmail returns the collaborator entry for an email, if
// any. At most one entry per email is maintained per trip.
func (t *Trip) FindCollaboratorByEmail(email string) *Collaborator {
	for i := range t.Collaborators {
		if strings.EqualFold(t.Collaborators[i].Email, email) {
			return &t.Collaborators[i]
		}
	}
	return nil
}

// FindCollaboratorByUser returns the collaborator entry bound to a user id.
func (t *Trip) FindCollaboratorByUser(userID string) *Collaborator {
	for i := range t.Collaborators {
		if t.Collaborators[i].UserID == userID {
			return &t.Collaborators[i]
		}
	}
	return nil
}

// FindCollaboratorByToken returns the collaborator entry carrying a direct
// invite token.
func (t *Trip) FindCollaboratorByToken(token string) *Collaborator {
	for i := range t.Collaborators {
		if t.Collaborators[i].InviteToken == token {
			return &t.Collaborators[i]
		}
	}
	return nil
}

// FindInvitation returns the invite-link invitation carrying a token.
func (t *Trip) FindInvitation(token string) *Invitation {
	for i := range t.Invitations {
		if t.Invitations[i].Token == token {
			return &t.Invitations[i]
		}
	}
	return nil
}

// FindShareLink returns the share link carrying a token.
func (t *Trip) FindShareLink(token string) *ShareLink {
	for i := range t.ShareLinks {
		if t.ShareLinks[i].Token == token {
			return &t.ShareLinks[i]
		}
	}
	return nil
}
