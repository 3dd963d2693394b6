package handlers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/traveldiary/backend/internal/access"
	"github.com/traveldiary/backend/internal/config"
	"github.com/traveldiary/backend/internal/dto"
	"github.com/traveldiary/backend/internal/middleware"
	"github.com/traveldiary/backend/internal/service"
	"github.com/traveldiary/backend/internal/utils"
)

// InvitesHandler manages collaborator invitations and invite links
type InvitesHandler struct {
	svc    *service.Service
	config *config.Config
}

// NewInvitesHandler creates a new InvitesHandler
func NewInvitesHandler(svc *service.Service, cfg *config.Config) *InvitesHandler {
	return &InvitesHandler{svc: svc, config: cfg}
}

// TripInvites dispatches /api/trips/{id}/invite and /api/trips/{id}/invite-link
func (h *InvitesHandler) TripInvites(w http.ResponseWriter, r *http.Request) {
	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/trips"), "/")
	parts := strings.Split(rest, "/")
	if len(parts) != 2 {
		http.NotFound(w, r)
		return
	}
	tripID, ok := parseTripID(w, parts[0])
	if !ok {
		return
	}
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	switch parts[1] {
	case "invite":
		h.InviteCollaborator(w, r, tripID)
	case "invite-link":
		h.CreateInviteLink(w, r, tripID)
	default:
		http.NotFound(w, r)
	}
}

// Invitations dispatches /api/invitations/{token}[/accept|/respond]
func (h *InvitesHandler) Invitations(w http.ResponseWriter, r *http.Request) {
	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/invitations"), "/")
	parts := strings.Split(rest, "/")
	if rest == "" {
		http.NotFound(w, r)
		return
	}
	token := parts[0]

	switch {
	case len(parts) == 1 && r.Method == http.MethodGet:
		h.InviteDetails(w, r, token)
	case len(parts) == 2 && parts[1] == "accept" && r.Method == http.MethodPost:
		h.AcceptInvite(w, r, token)
	case len(parts) == 2 && parts[1] == "respond" && r.Method == http.MethodPost:
		h.RespondToInvite(w, r, token)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// InviteCollaborator handles POST /api/trips/{id}/invite
// @Summary Invite a collaborator by email
// @Tags invitations
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Trip ID"
// @Param payload body dto.InviteCollaboratorRequest true "Invitee email and role"
// @Success 201 {object} dto.InviteCollaboratorResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 403 {object} dto.ErrorResponse
// @Failure 409 {object} dto.ErrorResponse "Already invited"
// @Router /api/trips/{id}/invite [post]
func (h *InvitesHandler) InviteCollaborator(w http.ResponseWriter, r *http.Request, tripID uuid.UUID) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req dto.InviteCollaboratorRequest
	if err := utils.DecodeJSONRequest(w, r, &req); err != nil {
		return
	}

	result, err := h.svc.InviteCollaborator(r.Context(), tripID, user, service.InviteCollaboratorInput{
		Email:   req.Email,
		Role:    req.Role,
		Message: req.Message,
	})
	if err != nil {
		utils.WriteAppError(w, err)
		return
	}

	utils.WriteJSONResponse(w, http.StatusCreated, dto.InviteCollaboratorResponse{
		Message:      "Invitation sent",
		Collaborator: dto.NewCollaboratorResponse(result.Collaborator),
		EmailSent:    result.EmailSent,
	})
}

// CreateInviteLink handles POST /api/trips/{id}/invite-link
// @Summary Mint a single-use invite link
// @Tags invitations
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Trip ID"
// @Param payload body dto.CreateInviteLinkRequest true "Link options"
// @Success 201 {object} dto.CreateInviteLinkResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 403 {object} dto.ErrorResponse
// @Router /api/trips/{id}/invite-link [post]
func (h *InvitesHandler) CreateInviteLink(w http.ResponseWriter, r *http.Request, tripID uuid.UUID) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req dto.CreateInviteLinkRequest
	if err := utils.DecodeJSONRequest(w, r, &req); err != nil {
		return
	}

	result, err := h.svc.CreateInviteLink(r.Context(), tripID, user, service.CreateInviteLinkInput{
		Role:        req.Role,
		Email:       req.Email,
		Message:     req.Message,
		AllowSignup: req.AllowSignup,
		ExpiresDays: req.ExpiresInDays,
	})
	if err != nil {
		utils.WriteAppError(w, err)
		return
	}

	utils.WriteJSONResponse(w, http.StatusCreated, dto.CreateInviteLinkResponse{
		InviteURL:  result.InviteURL,
		Invitation: dto.NewInvitationResponse(result.Invitation),
	})
}

// InviteDetails handles GET /api/invitations/{token}
// @Summary Inspect an invite link without consuming it
// @Tags invitations
// @Produce json
// @Param token path string true "Invite token"
// @Success 200 {object} dto.InvitationDetailsResponse
// @Failure 400 {object} dto.ErrorResponse "Expired"
// @Failure 404 {object} dto.ErrorResponse
// @Failure 409 {object} dto.ErrorResponse "Already used"
// @Router /api/invitations/{token} [get]
func (h *InvitesHandler) InviteDetails(w http.ResponseWriter, r *http.Request, token string) {
	inv, trip, err := h.svc.InviteDetails(r.Context(), token)
	if err != nil {
		utils.WriteAppError(w, err)
		return
	}

	perms := make(map[string]bool)
	for capability, allowed := range access.PermissionsFor(inv.Role) {
		perms[string(capability)] = allowed
	}

	utils.WriteJSONResponse(w, http.StatusOK, dto.InvitationDetailsResponse{
		Invitation: dto.NewInvitationResponse(inv),
		Trip: dto.TripPreview{
			ID:          trip.ID.String(),
			Title:       trip.Title,
			Destination: trip.Destination,
			StartDate:   trip.StartDate,
			EndDate:     trip.EndDate,
		},
		Permissions: perms,
	})
}

// AcceptInvite handles POST /api/invitations/{token}/accept
// @Summary Accept an invite link as the authenticated user
// @Tags invitations
// @Produce json
// @Security BearerAuth
// @Param token path string true "Invite token"
// @Success 200 {object} dto.AcceptInviteResponse
// @Failure 400 {object} dto.ErrorResponse "Expired"
// @Failure 401 {object} dto.ErrorResponse
// @Failure 403 {object} dto.ErrorResponse "Issued for a different email"
// @Failure 409 {object} dto.ErrorResponse "Already used"
// @Router /api/invitations/{token}/accept [post]
func (h *InvitesHandler) AcceptInvite(w http.ResponseWriter, r *http.Request, token string) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}

	trip, err := h.svc.AcceptInvite(r.Context(), token, user)
	if err != nil {
		utils.WriteAppError(w, err)
		return
	}

	utils.WriteJSONResponse(w, http.StatusOK, dto.AcceptInviteResponse{
		Message: "Invitation accepted",
		Trip:    dto.NewTripResponse(trip),
	})
}

// RespondToInvite handles POST /api/invitations/{token}/respond for direct
// collaborator invites. Authentication is optional: an anonymous decline is
// allowed, an accept binds the responder's account when present.
// @Summary Accept or decline a direct collaborator invite
// @Tags invitations
// @Accept json
// @Produce json
// @Param token path string true "Invite token"
// @Param payload body dto.RespondToInviteRequest true "accept or decline"
// @Success 200 {object} dto.RespondToInviteResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Failure 409 {object} dto.ErrorResponse "Already responded"
// @Router /api/invitations/{token}/respond [post]
func (h *InvitesHandler) RespondToInvite(w http.ResponseWriter, r *http.Request, token string) {
	var req dto.RespondToInviteRequest
	if err := utils.DecodeJSONRequest(w, r, &req); err != nil {
		return
	}

	responder := middleware.GetUserFromContext(r.Context())
	trip, err := h.svc.RespondToInvite(r.Context(), token, req.Action, responder)
	if err != nil {
		utils.WriteAppError(w, err)
		return
	}

	resp := dto.RespondToInviteResponse{Message: "Response recorded"}
	if strings.EqualFold(req.Action, "accept") {
		resp.Status = "accepted"
		t := dto.NewTripResponse(trip)
		resp.Trip = &t
	} else {
		resp.Status = "declined"
	}
	utils.WriteJSONResponse(w, http.StatusOK, resp)
}
