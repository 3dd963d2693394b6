package service

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/traveldiary/backend/internal/access"
	"github.com/traveldiary/backend/internal/apperr"
	"github.com/traveldiary/backend/internal/models"
	"github.com/traveldiary/backend/internal/store"
	"github.com/traveldiary/backend/internal/utils"
)

// CreateTripInput is the validated payload for trip creation.
type CreateTripInput struct {
	Title       string
	Description string
	Destination string
	StartDate   string
	EndDate     string
	TotalBudget float64
	Currency    string
	IsPublic    bool
}

// UpdateTripInput carries optional field updates; nil means keep current.
type UpdateTripInput struct {
	Title       *string
	Description *string
	Destination *string
	StartDate   *string
	EndDate     *string
	Status      *string
	TotalBudget *float64
	IsPublic    *bool
}

func validTripStatus(s string) bool {
	switch s {
	case models.TripPlanning, models.TripOngoing, models.TripCompleted, models.TripCancelled:
		return true
	}
	return false
}

// CreateTrip creates a trip owned by the caller.
func (s *Service) CreateTrip(ctx context.Context, ownerID uuid.UUID, in CreateTripInput) (*models.Trip, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.Destination = strings.TrimSpace(in.Destination)
	if in.Title == "" || in.Destination == "" || in.StartDate == "" || in.EndDate == "" {
		return nil, apperr.New(apperr.Invalid, "title, destination, start_date, end_date are required")
	}
	start, err := utils.ParseDate(in.StartDate)
	if err != nil {
		return nil, apperr.New(apperr.Invalid, "start_date must be ISO 8601 format (YYYY-MM-DD or RFC3339)")
	}
	end, err := utils.ParseDate(in.EndDate)
	if err != nil {
		return nil, apperr.New(apperr.Invalid, "end_date must be ISO 8601 format (YYYY-MM-DD or RFC3339)")
	}
	if end.Before(start) {
		return nil, apperr.New(apperr.Invalid, "end_date cannot be before start_date")
	}
	if in.TotalBudget < 0 {
		in.TotalBudget = 0
	}
	currency := strings.ToUpper(strings.TrimSpace(in.Currency))
	if currency == "" {
		currency = "USD"
	}

	now := s.now()
	trip := &models.Trip{
		ID:            uuid.New(),
		OwnerID:       ownerID,
		Title:         in.Title,
		Description:   in.Description,
		Destination:   in.Destination,
		StartDate:     in.StartDate,
		EndDate:       in.EndDate,
		Duration:      utils.DurationDays(in.StartDate, in.EndDate),
		Status:        models.TripPlanning,
		IsPublic:      in.IsPublic,
		TotalBudget:   in.TotalBudget,
		Currency:      currency,
		Itinerary:     []models.ItineraryItem{},
		Wishlist:      []models.Place{},
		Collaborators: []models.Collaborator{},
		Invitations:   []models.Invitation{},
		ShareLinks:    []models.ShareLink{},
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.store.CreateTrip(ctx, trip); err != nil {
		return nil, apperr.Wrap(apperr.Internal, err, "Failed to create trip")
	}
	return trip, nil
}

// GetTrip loads a trip for a requester holding view_trip.
func (s *Service) GetTrip(ctx context.Context, tripID uuid.UUID, requesterID string) (*models.Trip, error) {
	trip, err := s.store.GetTrip(ctx, tripID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.New(apperr.NotFound, "Trip not found")
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, err, "Failed to load trip")
	}
	if !access.CanAccess(trip, requesterID, access.CapViewTrip) {
		return nil, apperr.New(apperr.Forbidden, "You don't have access to this trip")
	}
	return trip, nil
}

// ListTrips returns trips the user owns or collaborates on.
func (s *Service) ListTrips(ctx context.Context, userID uuid.UUID) ([]*models.Trip, error) {
	trips, err := s.store.ListTripsForUser(ctx, userID)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, err, "Failed to list trips")
	}
	return trips, nil
}

// UpdateTripFields updates trip metadata. Requires manage_settings (owner or
// admin collaborator).
func (s *Service) UpdateTripFields(ctx context.Context, tripID uuid.UUID, requesterID string, in UpdateTripInput) (*models.Trip, error) {
	return s.updateTrip(ctx, tripID, func(trip *models.Trip) error {
		if !access.CanAccess(trip, requesterID, access.CapManageSettings) {
			return apperr.New(apperr.Forbidden, "You don't have permission to update this trip")
		}
		if in.Title != nil {
			if t := strings.TrimSpace(*in.Title); t != "" {
				trip.Title = t
			} else {
				return apperr.New(apperr.Invalid, "title cannot be empty")
			}
		}
		if in.Description != nil {
			trip.Description = *in.Description
		}
		if in.Destination != nil {
			if d := strings.TrimSpace(*in.Destination); d != "" {
				trip.Destination = d
			} else {
				return apperr.New(apperr.Invalid, "destination cannot be empty")
			}
		}
		if in.StartDate != nil {
			if _, err := utils.ParseDate(*in.StartDate); err != nil {
				return apperr.New(apperr.Invalid, "start_date must be ISO 8601 format (YYYY-MM-DD or RFC3339)")
			}
			trip.StartDate = *in.StartDate
		}
		if in.EndDate != nil {
			if _, err := utils.ParseDate(*in.EndDate); err != nil {
				return apperr.New(apperr.Invalid, "end_date must be ISO 8601 format (YYYY-MM-DD or RFC3339)")
			}
			trip.EndDate = *in.EndDate
		}
		start, err1 := utils.ParseDate(trip.StartDate)
		end, err2 := utils.ParseDate(trip.EndDate)
		if err1 == nil && err2 == nil && end.Before(start) {
			return apperr.New(apperr.Invalid, "end_date cannot be before start_date")
		}
		trip.Duration = utils.DurationDays(trip.StartDate, trip.EndDate)
		if in.Status != nil {
			st := strings.ToLower(strings.TrimSpace(*in.Status))
			if !validTripStatus(st) {
				return apperr.New(apperr.Invalid, "status must be planning, ongoing, completed, or cancelled")
			}
			trip.Status = st
		}
		if in.TotalBudget != nil {
			if *in.TotalBudget < 0 {
				return apperr.New(apperr.Invalid, "total_budget cannot be negative")
			}
			trip.TotalBudget = *in.TotalBudget
		}
		if in.IsPublic != nil {
			trip.IsPublic = *in.IsPublic
		}
		return nil
	})
}

// DeleteTrip removes a trip. Owner only.
func (s *Service) DeleteTrip(ctx context.Context, tripID uuid.UUID, requesterID string) error {
	trip, err := s.store.GetTrip(ctx, tripID)
	if errors.Is(err, store.ErrNotFound) {
		return apperr.New(apperr.NotFound, "Trip not found")
	}
	if err != nil {
		return apperr.Wrap(apperr.Internal, err, "Failed to load trip")
	}
	if trip.OwnerID.String() != requesterID {
		return apperr.New(apperr.Forbidden, "Only the trip owner can delete this trip")
	}
	if err := s.store.DeleteTrip(ctx, tripID); err != nil {
		return apperr.Wrap(apperr.Internal, err, "Failed to delete trip")
	}
	return nil
}

// UpdateItinerary replaces the ordered itinerary. Requires edit_itinerary.
func (s *Service) UpdateItinerary(ctx context.Context, tripID uuid.UUID, requesterID string, items []models.ItineraryItem) (*models.Trip, error) {
	return s.updateTrip(ctx, tripID, func(trip *models.Trip) error {
		if !access.CanAccess(trip, requesterID, access.CapEditItinerary) {
			return apperr.New(apperr.Forbidden, "You don't have permission to edit this itinerary")
		}
		for i := range items {
			if items[i].Place.Name == "" && !items[i].IsCustom {
				return apperr.New(apperr.Invalid, "itinerary items require a place name")
			}
			items[i].Order = i
		}
		trip.Itinerary = items
		return nil
	})
}

// AddWishlistPlace appends a place to the wishlist. Requires edit_itinerary.
func (s *Service) AddWishlistPlace(ctx context.Context, tripID uuid.UUID, requesterID string, place models.Place) (*models.Trip, error) {
	return s.updateTrip(ctx, tripID, func(trip *models.Trip) error {
		if !access.CanAccess(trip, requesterID, access.CapEditItinerary) {
			return apperr.New(apperr.Forbidden, "You don't have permission to edit this wishlist")
		}
		if strings.TrimSpace(place.Name) == "" {
			return apperr.New(apperr.Invalid, "place name is required")
		}
		trip.Wishlist = append(trip.Wishlist, place)
		return nil
	})
}

// RemoveWishlistPlace removes the wishlist entry at index. Requires
// edit_itinerary.
func (s *Service) RemoveWishlistPlace(ctx context.Context, tripID uuid.UUID, requesterID string, index int) (*models.Trip, error) {
	return s.updateTrip(ctx, tripID, func(trip *models.Trip) error {
		if !access.CanAccess(trip, requesterID, access.CapEditItinerary) {
			return apperr.New(apperr.Forbidden, "You don't have permission to edit this wishlist")
		}
		if index < 0 || index >= len(trip.Wishlist) {
			return apperr.New(apperr.Invalid, "wishlist index out of range")
		}
		trip.Wishlist = append(trip.Wishlist[:index], trip.Wishlist[index+1:]...)
		return nil
	})
}
