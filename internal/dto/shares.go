package dto

import (
	"time"

	"github.com/traveldiary/backend/internal/models"
)

// CreateShareLinkRequest mints a public share link for a trip
type CreateShareLinkRequest struct {
	IsPublic          bool   `json:"is_public,omitempty"`
	AllowComments     bool   `json:"allow_comments,omitempty"`
	PasswordProtected bool   `json:"password_protected,omitempty"`
	Password          string `json:"password,omitempty"`
	ExpiresInDays     int    `json:"expires_in_days,omitempty"` // default 30
	NotifyEmail       string `json:"notify_email,omitempty"`
}

// CreateShareLinkResponse carries the minted link
type CreateShareLinkResponse struct {
	ShareURL  string            `json:"share_url"`
	ShareLink ShareLinkResponse `json:"share_link"`
}

// SharedTripAccessRequest carries the password for a protected link
type SharedTripAccessRequest struct {
	Password string `json:"password,omitempty"`
}

// ShareLinkResponse represents a share link in API responses
type ShareLinkResponse struct {
	ID           string                `json:"id"`
	CreatedBy    string                `json:"created_by"`
	Settings     ShareSettingsResponse `json:"settings"`
	AccessCount  int                   `json:"access_count"`
	CreatedAt    string                `json:"created_at"`
	ExpiresAt    string                `json:"expires_at"`
	LastAccessed string                `json:"last_accessed,omitempty"`
}

// ShareSettingsResponse exposes link settings without the password hash
type ShareSettingsResponse struct {
	IsPublic          bool `json:"is_public"`
	AllowComments     bool `json:"allow_comments"`
	PasswordProtected bool `json:"password_protected"`
}

// SharedTripResponse is the filtered trip view served to anonymous visitors.
// Collaborators, invitations, budget, and link inventory are withheld.
type SharedTripResponse struct {
	ID            string                 `json:"id"`
	Title         string                 `json:"title"`
	Description   string                 `json:"description"`
	Destination   string                 `json:"destination"`
	StartDate     string                 `json:"start_date"`
	EndDate       string                 `json:"end_date"`
	Duration      int                    `json:"duration"`
	Itinerary     []models.ItineraryItem `json:"itinerary"`
	Wishlist      []models.Place         `json:"wishlist"`
	IsShared      bool                   `json:"is_shared"`
	ShareSettings ShareSettingsResponse  `json:"share_settings"`
}

// NewShareLinkResponse converts a share link, dropping the token and the
// password hash.
func NewShareLinkResponse(l *models.ShareLink) ShareLinkResponse {
	resp := ShareLinkResponse{
		ID:          l.ID,
		CreatedBy:   l.CreatedBy,
		Settings:    NewShareSettingsResponse(l.Settings),
		AccessCount: l.AccessCount,
		CreatedAt:   l.CreatedAt.UTC().Format(time.RFC3339),
		ExpiresAt:   l.ExpiresAt.UTC().Format(time.RFC3339),
	}
	if l.LastAccessed != nil {
		resp.LastAccessed = l.LastAccessed.UTC().Format(time.RFC3339)
	}
	return resp
}

// NewShareSettingsResponse strips the password hash from link settings.
func NewShareSettingsResponse(s models.ShareSettings) ShareSettingsResponse {
	return ShareSettingsResponse{
		IsPublic:          s.IsPublic,
		AllowComments:     s.AllowComments,
		PasswordProtected: s.PasswordProtected,
	}
}

// NewSharedTripResponse builds the anonymous view of a trip reached through
// a share link.
func NewSharedTripResponse(t *models.Trip, link *models.ShareLink) SharedTripResponse {
	return SharedTripResponse{
		ID:            t.ID.String(),
		Title:         t.Title,
		Description:   t.Description,
		Destination:   t.Destination,
		StartDate:     t.StartDate,
		EndDate:       t.EndDate,
		Duration:      t.Duration,
		Itinerary:     t.Itinerary,
		Wishlist:      t.Wishlist,
		IsShared:      true,
		ShareSettings: NewShareSettingsResponse(link.Settings),
	}
}
