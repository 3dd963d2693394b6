package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/traveldiary/backend/internal/config"
	"github.com/traveldiary/backend/internal/dto"
	"github.com/traveldiary/backend/internal/service"
	"github.com/traveldiary/backend/internal/utils"
)

// SharesHandler manages share links and the public shared-trip view
type SharesHandler struct {
	svc    *service.Service
	config *config.Config
}

// NewSharesHandler creates a new SharesHandler
func NewSharesHandler(svc *service.Service, cfg *config.Config) *SharesHandler {
	return &SharesHandler{svc: svc, config: cfg}
}

// TripShares dispatches /api/trips/{id}/share[/{linkID}]
func (h *SharesHandler) TripShares(w http.ResponseWriter, r *http.Request) {
	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/trips"), "/")
	parts := strings.Split(rest, "/")
	if len(parts) < 2 || parts[1] != "share" {
		http.NotFound(w, r)
		return
	}
	tripID, ok := parseTripID(w, parts[0])
	if !ok {
		return
	}

	switch {
	case len(parts) == 2 && r.Method == http.MethodPost:
		h.CreateShareLink(w, r, tripID)
	case len(parts) == 3 && r.Method == http.MethodDelete:
		h.RevokeShareLink(w, r, tripID, parts[2])
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// SharedTrip dispatches /api/shared/{token}
func (h *SharesHandler) SharedTrip(w http.ResponseWriter, r *http.Request) {
	token := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/shared"), "/")
	if token == "" || strings.Contains(token, "/") {
		http.NotFound(w, r)
		return
	}
	switch r.Method {
	case http.MethodGet, http.MethodPost:
		h.ViewSharedTrip(w, r, token)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// CreateShareLink handles POST /api/trips/{id}/share
// @Summary Create a public share link for a trip
// @Tags sharing
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Trip ID"
// @Param payload body dto.CreateShareLinkRequest true "Link options"
// @Success 201 {object} dto.CreateShareLinkResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 403 {object} dto.ErrorResponse
// @Router /api/trips/{id}/share [post]
func (h *SharesHandler) CreateShareLink(w http.ResponseWriter, r *http.Request, tripID uuid.UUID) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req dto.CreateShareLinkRequest
	if err := utils.DecodeJSONRequest(w, r, &req); err != nil {
		return
	}

	result, err := h.svc.CreateShareLink(r.Context(), tripID, user, service.CreateShareLinkInput{
		IsPublic:          req.IsPublic,
		AllowComments:     req.AllowComments,
		PasswordProtected: req.PasswordProtected,
		Password:          req.Password,
		ExpiresDays:       req.ExpiresInDays,
		NotifyEmail:       req.NotifyEmail,
	})
	if err != nil {
		utils.WriteAppError(w, err)
		return
	}

	utils.WriteJSONResponse(w, http.StatusCreated, dto.CreateShareLinkResponse{
		ShareURL:  result.ShareURL,
		ShareLink: dto.NewShareLinkResponse(result.ShareLink),
	})
}

// RevokeShareLink handles DELETE /api/trips/{id}/share/{linkID}
// @Summary Revoke a share link
// @Tags sharing
// @Produce json
// @Security BearerAuth
// @Param id path string true "Trip ID"
// @Param linkID path string true "Share link ID"
// @Success 200 {object} dto.MessageResponse
// @Failure 403 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /api/trips/{id}/share/{linkID} [delete]
func (h *SharesHandler) RevokeShareLink(w http.ResponseWriter, r *http.Request, tripID uuid.UUID, linkID string) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}

	if _, err := h.svc.RevokeShareLink(r.Context(), tripID, user.ID.String(), linkID); err != nil {
		utils.WriteAppError(w, err)
		return
	}
	utils.WriteJSONResponse(w, http.StatusOK, dto.MessageResponse{Message: "Share link revoked"})
}

// ViewSharedTrip handles GET and POST /api/shared/{token}. POST carries the
// password for protected links; GET works for open ones.
// @Summary View a shared trip
// @Tags sharing
// @Accept json
// @Produce json
// @Param token path string true "Share token"
// @Param payload body dto.SharedTripAccessRequest false "Password for protected links"
// @Success 200 {object} dto.SharedTripResponse
// @Failure 401 {object} dto.ErrorResponse "Password required or incorrect"
// @Failure 404 {object} dto.ErrorResponse
// @Failure 410 {object} dto.ErrorResponse "Link expired"
// @Router /api/shared/{token} [get]
func (h *SharesHandler) ViewSharedTrip(w http.ResponseWriter, r *http.Request, token string) {
	password := r.URL.Query().Get("password")
	if r.Method == http.MethodPost {
		var req dto.SharedTripAccessRequest
		// An empty body is fine here; only malformed JSON fails.
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			utils.WriteErrorResponse(w, http.StatusBadRequest, "Invalid request body", err.Error())
			return
		}
		if req.Password != "" {
			password = req.Password
		}
	}

	trip, link, err := h.svc.ResolveShareLink(r.Context(), token, password)
	if err != nil {
		utils.WriteAppError(w, err)
		return
	}
	utils.WriteJSONResponse(w, http.StatusOK, dto.NewSharedTripResponse(trip, link))
}
