package handlers

import (
	"net/http"
	"time"

	"github.com/traveldiary/backend/internal/apperr"
	"github.com/traveldiary/backend/internal/config"
	"github.com/traveldiary/backend/internal/dto"
	"github.com/traveldiary/backend/internal/middleware"
	"github.com/traveldiary/backend/internal/models"
	"github.com/traveldiary/backend/internal/service"
	"github.com/traveldiary/backend/internal/utils"
)

// AuthHandler handles authentication-related HTTP requests
type AuthHandler struct {
	svc    *service.Service
	config *config.Config
}

// NewAuthHandler creates a new AuthHandler instance
func NewAuthHandler(svc *service.Service, cfg *config.Config) *AuthHandler {
	return &AuthHandler{svc: svc, config: cfg}
}

func newUserResponse(u *models.User) dto.UserResponse {
	return dto.UserResponse{
		ID:        u.ID.String(),
		Email:     u.Email,
		Name:      u.Name,
		AvatarURL: u.AvatarURL,
		Provider:  u.Provider,
		CreatedAt: u.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt: u.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

// issueToken creates a session and signs a JWT bound to it.
func (h *AuthHandler) issueToken(w http.ResponseWriter, r *http.Request, user *models.User) (string, bool) {
	session, err := h.svc.CreateSession(r.Context(), user.ID)
	if err != nil {
		utils.WriteAppError(w, err)
		return "", false
	}
	token, err := middleware.GenerateToken(user, session, &h.config.JWT)
	if err != nil {
		utils.WriteErrorResponse(w, http.StatusInternalServerError, "Failed to generate token", err.Error())
		return "", false
	}
	return token, true
}

// Register handles user registration
// @Summary Register a new user
// @Description Create a new user account with name, email, and password
// @Tags authentication
// @Accept json
// @Produce json
// @Param request body dto.RegisterRequest true "User registration data"
// @Success 201 {object} dto.AuthResponse "User created successfully"
// @Failure 400 {object} dto.ErrorResponse "Invalid request data"
// @Failure 409 {object} dto.ErrorResponse "User already exists"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /api/auth/register [post]
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req dto.RegisterRequest
	if err := utils.DecodeJSONRequest(w, r, &req); err != nil {
		return
	}

	user, err := h.svc.Register(r.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		utils.WriteAppError(w, err)
		return
	}

	token, ok := h.issueToken(w, r, user)
	if !ok {
		return
	}

	utils.WriteJSONResponse(w, http.StatusCreated, dto.AuthResponse{
		User:  newUserResponse(user),
		Token: token,
	})
}

// RegisterWithInvite handles signup through an invite link, joining the trip
// in the same request
// @Summary Register via invite link
// @Tags authentication
// @Accept json
// @Produce json
// @Param request body dto.RegisterWithInviteRequest true "Signup payload with invite token"
// @Success 201 {object} dto.RegisterWithInviteResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 403 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Failure 409 {object} dto.ErrorResponse
// @Router /api/auth/register-with-invite [post]
func (h *AuthHandler) RegisterWithInvite(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req dto.RegisterWithInviteRequest
	if err := utils.DecodeJSONRequest(w, r, &req); err != nil {
		return
	}

	user, session, trip, err := h.svc.RegisterWithInvite(r.Context(), req.Name, req.Email, req.Password, req.InviteToken)
	if err != nil && (user == nil || session == nil) {
		utils.WriteAppError(w, err)
		return
	}

	token, tokenErr := middleware.GenerateToken(user, session, &h.config.JWT)
	if tokenErr != nil {
		utils.WriteErrorResponse(w, http.StatusInternalServerError, "Failed to generate token", tokenErr.Error())
		return
	}

	resp := dto.RegisterWithInviteResponse{
		User:  newUserResponse(user),
		Token: token,
	}
	if trip != nil {
		t := dto.NewTripResponse(trip)
		resp.Trip = &t
	}
	if err != nil {
		// Account created but the invite died in flight; report both.
		resp.InviteError = apperr.MessageOf(err)
	}
	utils.WriteJSONResponse(w, http.StatusCreated, resp)
}

// Login handles user login
// @Summary Log in with email and password
// @Tags authentication
// @Accept json
// @Produce json
// @Param request body dto.LoginRequest true "Login credentials"
// @Success 200 {object} dto.AuthResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 401 {object} dto.ErrorResponse
// @Router /api/auth/login [post]
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req dto.LoginRequest
	if err := utils.DecodeJSONRequest(w, r, &req); err != nil {
		return
	}

	user, err := h.svc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		utils.WriteAppError(w, err)
		return
	}

	token, ok := h.issueToken(w, r, user)
	if !ok {
		return
	}

	utils.WriteJSONResponse(w, http.StatusOK, dto.AuthResponse{
		User:  newUserResponse(user),
		Token: token,
	})
}

// Me returns the authenticated user's profile
// @Summary Get current user
// @Tags authentication
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.UserResponse
// @Failure 401 {object} dto.ErrorResponse
// @Router /api/auth/me [get]
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	user := middleware.GetUserFromContext(r.Context())
	if user == nil {
		utils.WriteErrorResponse(w, http.StatusUnauthorized, "Unauthorized", "Invalid user context")
		return
	}
	utils.WriteJSONResponse(w, http.StatusOK, newUserResponse(user))
}

// Logout revokes the current session
// @Summary Log out
// @Tags authentication
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.MessageResponse
// @Failure 401 {object} dto.ErrorResponse
// @Router /api/auth/logout [post]
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	claims, ok := middleware.ClaimsFromRequest(r, &h.config.JWT)
	if !ok {
		utils.WriteErrorResponse(w, http.StatusUnauthorized, "Unauthorized", "Invalid token")
		return
	}
	if err := h.svc.Logout(r.Context(), claims.ID); err != nil {
		utils.WriteAppError(w, err)
		return
	}
	utils.WriteJSONResponse(w, http.StatusOK, dto.MessageResponse{Message: "Logged out"})
}
