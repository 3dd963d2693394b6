package service

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/traveldiary/backend/internal/apperr"
	"github.com/traveldiary/backend/internal/models"
	"github.com/traveldiary/backend/internal/store"
	"github.com/traveldiary/backend/internal/utils"
)

// Register creates a local account. The email must not already be in use.
func (s *Service) Register(ctx context.Context, name, emailAddr, password string) (*models.User, error) {
	name = strings.TrimSpace(name)
	emailAddr = strings.ToLower(strings.TrimSpace(emailAddr))

	if name == "" || emailAddr == "" || password == "" {
		return nil, apperr.New(apperr.Invalid, "Name, email, and password are required")
	}
	if !utils.IsValidEmail(emailAddr) {
		return nil, apperr.New(apperr.Invalid, "Please provide a valid email address")
	}
	if len(password) < 6 {
		return nil, apperr.New(apperr.Invalid, "Password must be at least 6 characters")
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, err, "Failed to hash password")
	}

	now := s.now()
	user := &models.User{
		ID:           uuid.New(),
		Email:        emailAddr,
		Name:         name,
		PasswordHash: string(hashed),
		Provider:     models.ProviderLocal,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.store.CreateUser(ctx, user); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return nil, apperr.New(apperr.Conflict, "An account with this email already exists")
		}
		return nil, apperr.Wrap(apperr.Internal, err, "Failed to create user")
	}
	return user, nil
}

// Login verifies credentials. The same error covers unknown email and wrong
// password.
func (s *Service) Login(ctx context.Context, emailAddr, password string) (*models.User, error) {
	emailAddr = strings.ToLower(strings.TrimSpace(emailAddr))
	if emailAddr == "" || password == "" {
		return nil, apperr.New(apperr.Invalid, "Email and password are required")
	}

	user, err := s.store.GetUserByEmail(ctx, emailAddr)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.New(apperr.Unauthorized, "Email or password is incorrect")
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, err, "Failed to look up user")
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, apperr.New(apperr.Unauthorized, "Email or password is incorrect")
	}
	return user, nil
}

// UpsertGoogleUser finds or creates the account for a verified Google
// identity.
func (s *Service) UpsertGoogleUser(ctx context.Context, emailAddr, name, avatarURL string) (*models.User, error) {
	emailAddr = strings.ToLower(strings.TrimSpace(emailAddr))
	user, err := s.GetUserByEmail(ctx, emailAddr)
	if err != nil {
		return nil, err
	}
	if user != nil {
		return user, nil
	}

	now := s.now()
	user = &models.User{
		ID:        uuid.New(),
		Email:     emailAddr,
		Name:      name,
		AvatarURL: avatarURL,
		Provider:  models.ProviderGoogle,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.CreateUser(ctx, user); err != nil {
		if errors.Is(err, store.ErrConflict) {
			// Lost a race with a concurrent signup for the same email.
			if existing, lookupErr := s.GetUserByEmail(ctx, emailAddr); lookupErr == nil && existing != nil {
				return existing, nil
			}
		}
		return nil, apperr.Wrap(apperr.Internal, err, "Failed to create user")
	}
	return user, nil
}

// CreateSession issues a server-side session record. The returned session ID
// becomes the JWT jti claim.
func (s *Service) CreateSession(ctx context.Context, userID uuid.UUID) (*models.Session, error) {
	now := s.now()
	session := &models.Session{
		ID:        uuid.New().String(),
		UserID:    userID,
		CreatedAt: now,
		ExpiresAt: now.Add(s.sessionTTL),
	}
	if err := s.store.CreateSession(ctx, session); err != nil {
		return nil, apperr.Wrap(apperr.Internal, err, "Failed to create session")
	}
	return session, nil
}

// VerifySession resolves a session id to its user, rejecting missing or
// expired sessions.
func (s *Service) VerifySession(ctx context.Context, sessionID string) (*models.User, error) {
	session, err := s.store.GetSession(ctx, sessionID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.New(apperr.Unauthorized, "Invalid or expired token")
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, err, "Failed to verify session")
	}
	if session.Expired(s.now()) {
		return nil, apperr.New(apperr.Unauthorized, "Invalid or expired token")
	}

	user, err := s.store.GetUser(ctx, session.UserID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.New(apperr.Unauthorized, "User not found")
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, err, "Failed to load user")
	}
	return user, nil
}

// Logout revokes a session.
func (s *Service) Logout(ctx context.Context, sessionID string) error {
	if err := s.store.DeleteSession(ctx, sessionID); err != nil {
		return apperr.Wrap(apperr.Internal, err, "Failed to delete session")
	}
	return nil
}

// GetUser loads a user by id.
func (s *Service) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	user, err := s.store.GetUser(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.New(apperr.NotFound, "User not found")
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, err, "Failed to load user")
	}
	return user, nil
}

// RegisterWithInvite creates an account, a session, and the collaborator
// entry from an invite-link token in one call. Fails with Conflict when the
// email already has an account: the caller should sign in and accept the
// invite instead. If the invite can no longer be accepted once the account
// exists, the account and session are returned alongside the accept error so
// the caller is signed in rather than stranded.
func (s *Service) RegisterWithInvite(ctx context.Context, name, emailAddr, password, token string) (*models.User, *models.Session, *models.Trip, error) {
	emailAddr = strings.ToLower(strings.TrimSpace(emailAddr))
	if token == "" {
		return nil, nil, nil, apperr.New(apperr.Invalid, "Invite token is required")
	}

	// Resolve first: no account should be created off a dead invitation.
	invitation, _, err := s.InviteDetails(ctx, token)
	if err != nil {
		return nil, nil, nil, err
	}
	if !invitation.AllowSignup {
		return nil, nil, nil, apperr.New(apperr.Forbidden, "This invitation does not allow signup; please sign in to accept it")
	}
	if invitation.Email != "" && !strings.EqualFold(invitation.Email, emailAddr) {
		return nil, nil, nil, apperr.New(apperr.Forbidden, "This invitation was issued for a different email address")
	}

	existing, err := s.GetUserByEmail(ctx, emailAddr)
	if err != nil {
		return nil, nil, nil, err
	}
	if existing != nil {
		return nil, nil, nil, apperr.New(apperr.Conflict, "An account with this email already exists, please sign in to accept the invite")
	}

	user, err := s.Register(ctx, name, emailAddr, password)
	if err != nil {
		return nil, nil, nil, err
	}

	session, err := s.CreateSession(ctx, user.ID)
	if err != nil {
		return nil, nil, nil, err
	}

	trip, err := s.AcceptInvite(ctx, token, user)
	if err != nil {
		// The invite died between the pre-check and consumption. The account
		// stands, so hand back the session with the error.
		return user, session, nil, err
	}
	return user, session, trip, nil
}
