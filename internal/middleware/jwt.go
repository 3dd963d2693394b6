package middleware

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/traveldiary/backend/internal/config"
	"github.com/traveldiary/backend/internal/models"
	"github.com/traveldiary/backend/internal/service"
	"github.com/traveldiary/backend/internal/utils"
)

type contextKey string

const userContextKey contextKey = "user"

// JWTClaims represents the claims in the JWT token. ID carries the
// server-side session id, so revoking the session invalidates the token.
type JWTClaims struct {
	UserID uuid.UUID `json:"user_id"`
	Email  string    `json:"email"`
	jwt.RegisteredClaims
}

// GenerateToken generates a JWT token bound to a session
func GenerateToken(user *models.User, session *models.Session, cfg *config.JWTConfig) (string, error) {
	claims := JWTClaims{
		UserID: user.ID,
		Email:  user.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        session.ID,
			ExpiresAt: jwt.NewNumericDate(session.ExpiresAt),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			NotBefore: jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(cfg.Secret))
}

// ValidateToken validates a JWT token and returns the claims
func ValidateToken(tokenString string, cfg *config.JWTConfig) (*JWTClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(cfg.Secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))

	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*JWTClaims); ok && token.Valid {
		return claims, nil
	}

	return nil, jwt.ErrTokenMalformed
}

// AuthMiddleware validates the Bearer token in the Authorization header and
// checks the session it references is still live, then puts the resolved
// user on the request context.
func AuthMiddleware(next http.HandlerFunc, svc *service.Service, cfg *config.JWTConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := bearerClaims(w, r, cfg)
		if !ok {
			return
		}

		user, err := svc.VerifySession(r.Context(), claims.ID)
		if err != nil {
			utils.WriteAppError(w, err)
			return
		}

		ctx := context.WithValue(r.Context(), userContextKey, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	}
}

// OptionalAuthMiddleware resolves the user when a valid Bearer token is
// present but lets anonymous requests through. Used on invite endpoints
// reachable both before and after signup.
func OptionalAuthMiddleware(next http.HandlerFunc, svc *service.Service, cfg *config.JWTConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			next.ServeHTTP(w, r)
			return
		}

		claims, ok := bearerClaims(w, r, cfg)
		if !ok {
			return
		}
		user, err := svc.VerifySession(r.Context(), claims.ID)
		if err != nil {
			utils.WriteAppError(w, err)
			return
		}

		ctx := context.WithValue(r.Context(), userContextKey, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	}
}

func bearerClaims(w http.ResponseWriter, r *http.Request, cfg *config.JWTConfig) (*JWTClaims, bool) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		utils.WriteErrorResponse(w, http.StatusUnauthorized, "Unauthorized", "Authorization header required")
		return nil, false
	}

	// Extract token from "Bearer <token>"
	tokenParts := strings.Split(authHeader, " ")
	if len(tokenParts) != 2 || tokenParts[0] != "Bearer" {
		utils.WriteErrorResponse(w, http.StatusUnauthorized, "Unauthorized", "Invalid authorization header format")
		return nil, false
	}

	claims, err := ValidateToken(tokenParts[1], cfg)
	if err != nil {
		utils.WriteErrorResponse(w, http.StatusUnauthorized, "Unauthorized", "Invalid token")
		return nil, false
	}
	return claims, true
}

// ClaimsFromRequest parses the Bearer token without touching the response.
// Handlers that need the raw claims (for the session id) use this after
// AuthMiddleware has already vetted the request.
func ClaimsFromRequest(r *http.Request, cfg *config.JWTConfig) (*JWTClaims, bool) {
	tokenParts := strings.Split(r.Header.Get("Authorization"), " ")
	if len(tokenParts) != 2 || tokenParts[0] != "Bearer" {
		return nil, false
	}
	claims, err := ValidateToken(tokenParts[1], cfg)
	if err != nil {
		return nil, false
	}
	return claims, true
}

// GetUserFromContext returns the authenticated user placed on the context by
// AuthMiddleware, or nil for anonymous requests.
func GetUserFromContext(ctx context.Context) *models.User {
	user, _ := ctx.Value(userContextKey).(*models.User)
	return user
}
