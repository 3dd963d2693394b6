package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/traveldiary/backend/internal/config"
	"github.com/traveldiary/backend/internal/dto"
	"github.com/traveldiary/backend/internal/middleware"
	"github.com/traveldiary/backend/internal/models"
	"github.com/traveldiary/backend/internal/service"
	"github.com/traveldiary/backend/internal/utils"
)

// TripsHandler manages trip-related endpoints
type TripsHandler struct {
	svc    *service.Service
	config *config.Config
}

// NewTripsHandler creates a new TripsHandler
func NewTripsHandler(svc *service.Service, cfg *config.Config) *TripsHandler {
	return &TripsHandler{svc: svc, config: cfg}
}

// requireUser extracts the authenticated user or writes a 401.
func requireUser(w http.ResponseWriter, r *http.Request) (*models.User, bool) {
	user := middleware.GetUserFromContext(r.Context())
	if user == nil {
		utils.WriteErrorResponse(w, http.StatusUnauthorized, "Unauthorized", "Invalid user context")
		return nil, false
	}
	return user, true
}

// parseTripID extracts a trip id from a path segment or writes a 400.
func parseTripID(w http.ResponseWriter, raw string) (uuid.UUID, bool) {
	id, err := uuid.Parse(raw)
	if err != nil {
		utils.WriteErrorResponse(w, http.StatusBadRequest, "Invalid trip id", "Trip id must be a UUID")
		return uuid.Nil, false
	}
	return id, true
}

// Trips dispatches /api/trips and /api/trips/{id}[/...] by method and path
func (h *TripsHandler) Trips(w http.ResponseWriter, r *http.Request) {
	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/trips"), "/")

	if rest == "" {
		switch r.Method {
		case http.MethodPost:
			h.CreateTrip(w, r)
		case http.MethodGet:
			h.ListTrips(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
		return
	}

	parts := strings.Split(rest, "/")
	tripID, ok := parseTripID(w, parts[0])
	if !ok {
		return
	}

	if len(parts) == 1 {
		switch r.Method {
		case http.MethodGet:
			h.TripDetail(w, r, tripID)
		case http.MethodPut, http.MethodPatch:
			h.UpdateTrip(w, r, tripID)
		case http.MethodDelete:
			h.DeleteTrip(w, r, tripID)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
		return
	}

	switch parts[1] {
	case "itinerary":
		if r.Method != http.MethodPut {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.UpdateItinerary(w, r, tripID)
	case "wishlist":
		switch {
		case r.Method == http.MethodPost && len(parts) == 2:
			h.AddWishlistPlace(w, r, tripID)
		case r.Method == http.MethodDelete && len(parts) == 3:
			h.RemoveWishlistPlace(w, r, tripID, parts[2])
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	default:
		http.NotFound(w, r)
	}
}

// CreateTrip handles POST /api/trips
// @Summary Create a new trip
// @Tags trips
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.CreateTripRequest true "Trip payload"
// @Success 201 {object} dto.TripResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 401 {object} dto.ErrorResponse
// @Router /api/trips [post]
func (h *TripsHandler) CreateTrip(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req dto.CreateTripRequest
	if err := utils.DecodeJSONRequest(w, r, &req); err != nil {
		return
	}

	trip, err := h.svc.CreateTrip(r.Context(), user.ID, service.CreateTripInput{
		Title:       req.Title,
		Description: req.Description,
		Destination: req.Destination,
		StartDate:   req.StartDate,
		EndDate:     req.EndDate,
		TotalBudget: req.TotalBudget,
		Currency:    req.Currency,
		IsPublic:    req.IsPublic,
	})
	if err != nil {
		utils.WriteAppError(w, err)
		return
	}
	utils.WriteJSONResponse(w, http.StatusCreated, dto.NewTripResponse(trip))
}

// ListTrips handles GET /api/trips
// @Summary List trips the user owns or collaborates on
// @Tags trips
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.TripListResponse
// @Failure 401 {object} dto.ErrorResponse
// @Router /api/trips [get]
func (h *TripsHandler) ListTrips(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}

	trips, err := h.svc.ListTrips(r.Context(), user.ID)
	if err != nil {
		utils.WriteAppError(w, err)
		return
	}

	resp := dto.TripListResponse{Trips: make([]dto.TripResponse, 0, len(trips))}
	for _, t := range trips {
		resp.Trips = append(resp.Trips, dto.NewTripResponse(t))
	}
	resp.Count = len(resp.Trips)
	utils.WriteJSONResponse(w, http.StatusOK, resp)
}

// TripDetail handles GET /api/trips/{id}
// @Summary Get one trip
// @Tags trips
// @Produce json
// @Security BearerAuth
// @Param id path string true "Trip ID"
// @Success 200 {object} dto.TripResponse
// @Failure 403 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /api/trips/{id} [get]
func (h *TripsHandler) TripDetail(w http.ResponseWriter, r *http.Request, tripID uuid.UUID) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}

	trip, err := h.svc.GetTrip(r.Context(), tripID, user.ID.String())
	if err != nil {
		utils.WriteAppError(w, err)
		return
	}
	utils.WriteJSONResponse(w, http.StatusOK, dto.NewTripResponse(trip))
}

// UpdateTrip handles PUT/PATCH /api/trips/{id}
// @Summary Update trip metadata
// @Tags trips
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Trip ID"
// @Param payload body dto.UpdateTripRequest true "Fields to update"
// @Success 200 {object} dto.TripResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 403 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /api/trips/{id} [put]
func (h *TripsHandler) UpdateTrip(w http.ResponseWriter, r *http.Request, tripID uuid.UUID) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req dto.UpdateTripRequest
	if err := utils.DecodeJSONRequest(w, r, &req); err != nil {
		return
	}

	trip, err := h.svc.UpdateTripFields(r.Context(), tripID, user.ID.String(), service.UpdateTripInput{
		Title:       req.Title,
		Description: req.Description,
		Destination: req.Destination,
		StartDate:   req.StartDate,
		EndDate:     req.EndDate,
		Status:      req.Status,
		TotalBudget: req.TotalBudget,
		IsPublic:    req.IsPublic,
	})
	if err != nil {
		utils.WriteAppError(w, err)
		return
	}
	utils.WriteJSONResponse(w, http.StatusOK, dto.NewTripResponse(trip))
}

// DeleteTrip handles DELETE /api/trips/{id}
// @Summary Delete a trip (owner only)
// @Tags trips
// @Produce json
// @Security BearerAuth
// @Param id path string true "Trip ID"
// @Success 200 {object} dto.MessageResponse
// @Failure 403 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /api/trips/{id} [delete]
func (h *TripsHandler) DeleteTrip(w http.ResponseWriter, r *http.Request, tripID uuid.UUID) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}

	if err := h.svc.DeleteTrip(r.Context(), tripID, user.ID.String()); err != nil {
		utils.WriteAppError(w, err)
		return
	}
	utils.WriteJSONResponse(w, http.StatusOK, dto.MessageResponse{Message: "Trip deleted"})
}

// UpdateItinerary handles PUT /api/trips/{id}/itinerary
// @Summary Replace the trip itinerary
// @Tags trips
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Trip ID"
// @Param payload body dto.UpdateItineraryRequest true "Full ordered itinerary"
// @Success 200 {object} dto.TripResponse
// @Failure 403 {object} dto.ErrorResponse
// @Router /api/trips/{id}/itinerary [put]
func (h *TripsHandler) UpdateItinerary(w http.ResponseWriter, r *http.Request, tripID uuid.UUID) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req dto.UpdateItineraryRequest
	if err := utils.DecodeJSONRequest(w, r, &req); err != nil {
		return
	}

	trip, err := h.svc.UpdateItinerary(r.Context(), tripID, user.ID.String(), req.Itinerary)
	if err != nil {
		utils.WriteAppError(w, err)
		return
	}
	utils.WriteJSONResponse(w, http.StatusOK, dto.NewTripResponse(trip))
}

// AddWishlistPlace handles POST /api/trips/{id}/wishlist
// @Summary Add a place to the trip wishlist
// @Tags trips
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Trip ID"
// @Param payload body dto.AddWishlistPlaceRequest true "Place to add"
// @Success 200 {object} dto.TripResponse
// @Failure 403 {object} dto.ErrorResponse
// @Router /api/trips/{id}/wishlist [post]
func (h *TripsHandler) AddWishlistPlace(w http.ResponseWriter, r *http.Request, tripID uuid.UUID) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req dto.AddWishlistPlaceRequest
	if err := utils.DecodeJSONRequest(w, r, &req); err != nil {
		return
	}

	trip, err := h.svc.AddWishlistPlace(r.Context(), tripID, user.ID.String(), req.Place)
	if err != nil {
		utils.WriteAppError(w, err)
		return
	}
	utils.WriteJSONResponse(w, http.StatusOK, dto.NewTripResponse(trip))
}

// RemoveWishlistPlace handles DELETE /api/trips/{id}/wishlist/{index}
// @Summary Remove a place from the trip wishlist
// @Tags trips
// @Produce json
// @Security BearerAuth
// @Param id path string true "Trip ID"
// @Param index path int true "Wishlist index"
// @Success 200 {object} dto.TripResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 403 {object} dto.ErrorResponse
// @Router /api/trips/{id}/wishlist/{index} [delete]
func (h *TripsHandler) RemoveWishlistPlace(w http.ResponseWriter, r *http.Request, tripID uuid.UUID, rawIndex string) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}

	index, err := strconv.Atoi(rawIndex)
	if err != nil {
		utils.WriteErrorResponse(w, http.StatusBadRequest, "Invalid index", "Wishlist index must be an integer")
		return
	}

	trip, err := h.svc.RemoveWishlistPlace(r.Context(), tripID, user.ID.String(), index)
	if err != nil {
		utils.WriteAppError(w, err)
		return
	}
	utils.WriteJSONResponse(w, http.StatusOK, dto.NewTripResponse(trip))
}
