package dto

import (
	"time"

	"github.com/traveldiary/backend/internal/models"
)

// CreateTripRequest represents the request payload for trip creation
type CreateTripRequest struct {
	Title       string  `json:"title" validate:"required,min=1,max=200"`
	Description string  `json:"description,omitempty"`
	Destination string  `json:"destination" validate:"required"`
	StartDate   string  `json:"start_date" validate:"required"` // YYYY-MM-DD or RFC3339
	EndDate     string  `json:"end_date" validate:"required"`
	TotalBudget float64 `json:"total_budget,omitempty"`
	Currency    string  `json:"currency,omitempty"`
	IsPublic    bool    `json:"is_public,omitempty"`
}

// UpdateTripRequest represents a partial trip update; omitted fields keep
// their current value
type UpdateTripRequest struct {
	Title       *string  `json:"title,omitempty"`
	Description *string  `json:"description,omitempty"`
	Destination *string  `json:"destination,omitempty"`
	StartDate   *string  `json:"start_date,omitempty"`
	EndDate     *string  `json:"end_date,omitempty"`
	Status      *string  `json:"status,omitempty"`
	TotalBudget *float64 `json:"total_budget,omitempty"`
	IsPublic    *bool    `json:"is_public,omitempty"`
}

// UpdateItineraryRequest replaces the whole ordered itinerary
type UpdateItineraryRequest struct {
	Itinerary []models.ItineraryItem `json:"itinerary" validate:"required"`
}

// AddWishlistPlaceRequest adds one place to the trip wishlist
type AddWishlistPlaceRequest struct {
	Place models.Place `json:"place" validate:"required"`
}

// TripResponse represents a trip in API responses
type TripResponse struct {
	ID            string                 `json:"id"`
	UserID        string                 `json:"user_id"`
	Title         string                 `json:"title"`
	Description   string                 `json:"description"`
	Destination   string                 `json:"destination"`
	StartDate     string                 `json:"start_date"`
	EndDate       string                 `json:"end_date"`
	Duration      int                    `json:"duration"`
	Status        string                 `json:"status"`
	IsPublic      bool                   `json:"is_public"`
	TotalBudget   float64                `json:"total_budget"`
	Currency      string                 `json:"currency"`
	Itinerary     []models.ItineraryItem `json:"itinerary"`
	Wishlist      []models.Place         `json:"wishlist"`
	Collaborators []CollaboratorResponse `json:"collaborators"`
	ShareLinks    []ShareLinkResponse    `json:"share_links,omitempty"`
	CreatedAt     string                 `json:"created_at"`
	UpdatedAt     string                 `json:"updated_at"`
}

// TripListResponse wraps the trips a user owns or collaborates on
type TripListResponse struct {
	Trips []TripResponse `json:"trips"`
	Count int            `json:"count"`
}

// NewTripResponse converts a trip document to its API shape. Invite tokens
// and password hashes never leave the server.
func NewTripResponse(t *models.Trip) TripResponse {
	collabs := make([]CollaboratorResponse, 0, len(t.Collaborators))
	for i := range t.Collaborators {
		collabs = append(collabs, NewCollaboratorResponse(&t.Collaborators[i]))
	}
	links := make([]ShareLinkResponse, 0, len(t.ShareLinks))
	for i := range t.ShareLinks {
		links = append(links, NewShareLinkResponse(&t.ShareLinks[i]))
	}
	return TripResponse{
		ID:            t.ID.String(),
		UserID:        t.OwnerID.String(),
		Title:         t.Title,
		Description:   t.Description,
		Destination:   t.Destination,
		StartDate:     t.StartDate,
		EndDate:       t.EndDate,
		Duration:      t.Duration,
		Status:        t.Status,
		IsPublic:      t.IsPublic,
		TotalBudget:   t.TotalBudget,
		Currency:      t.Currency,
		Itinerary:     t.Itinerary,
		Wishlist:      t.Wishlist,
		Collaborators: collabs,
		ShareLinks:    links,
		CreatedAt:     t.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:     t.UpdatedAt.UTC().Format(time.RFC3339),
	}
}
