package handlers_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/traveldiary/backend/internal/config"
	"github.com/traveldiary/backend/internal/dto"
	"github.com/traveldiary/backend/internal/handlers"
	"github.com/traveldiary/backend/internal/routes"
	"github.com/traveldiary/backend/internal/service"
	"github.com/traveldiary/backend/internal/store/sqlite"
)

func setupTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	tempDir, err := os.MkdirTemp("", "traveldiary-api-test-*")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(tempDir) })

	st, err := sqlite.New(filepath.Join(tempDir, "test.db"))
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	cfg := &config.Config{
		JWT: config.JWTConfig{
			Secret:     "test-secret",
			SessionTTL: 7 * 24 * time.Hour,
		},
		App: config.AppConfig{BaseURL: "http://localhost:3000"},
	}

	svc := service.New(st, nil, cfg.App.BaseURL, cfg.JWT.SessionTTL)

	h := routes.Handlers{
		Auth:       handlers.NewAuthHandler(svc, cfg),
		GoogleAuth: handlers.NewGoogleAuthHandler(svc, cfg),
		Trips:      handlers.NewTripsHandler(svc, cfg),
		Invites:    handlers.NewInvitesHandler(svc, cfg),
		Shares:     handlers.NewSharesHandler(svc, cfg),
		Health:     handlers.NewHealthHandler(st),
	}

	mux := http.NewServeMux()
	routes.SetupRoutes(mux, h, svc, cfg)

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func doJSON(t *testing.T, method, url, token string, body, out interface{}) int {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode request: %v", err)
		}
	}
	req, err := http.NewRequest(method, url, &buf)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	defer resp.Body.Close()

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode response from %s %s: %v", method, url, err)
		}
	}
	return resp.StatusCode
}

func registerUser(t *testing.T, baseURL, name, email string) dto.AuthResponse {
	t.Helper()
	var auth dto.AuthResponse
	status := doJSON(t, http.MethodPost, baseURL+"/api/auth/register", "", dto.RegisterRequest{
		Name:     name,
		Email:    email,
		Password: "secret123",
	}, &auth)
	if status != http.StatusCreated {
		t.Fatalf("register %s: status %d", email, status)
	}
	return auth
}

func createTrip(t *testing.T, baseURL, token string) dto.TripResponse {
	t.Helper()
	var trip dto.TripResponse
	status := doJSON(t, http.MethodPost, baseURL+"/api/trips", token, dto.CreateTripRequest{
		Title:       "Tokyo Spring",
		Destination: "Tokyo, Japan",
		StartDate:   "2026-04-01",
		EndDate:     "2026-04-10",
	}, &trip)
	if status != http.StatusCreated {
		t.Fatalf("create trip: status %d", status)
	}
	return trip
}

func TestAuthEndpoints(t *testing.T) {
	server := setupTestServer(t)

	auth := registerUser(t, server.URL, "Alice", "alice@example.com")
	if auth.Token == "" {
		t.Fatal("expected a token from registration")
	}

	t.Run("me returns the profile", func(t *testing.T) {
		var me dto.UserResponse
		status := doJSON(t, http.MethodGet, server.URL+"/api/auth/me", auth.Token, nil, &me)
		if status != http.StatusOK {
			t.Fatalf("me: status %d", status)
		}
		if me.Email != "alice@example.com" {
			t.Errorf("unexpected profile: %+v", me)
		}
	})

	t.Run("requests without a token are unauthorized", func(t *testing.T) {
		status := doJSON(t, http.MethodGet, server.URL+"/api/auth/me", "", nil, nil)
		if status != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", status)
		}
	})

	t.Run("logout revokes the token", func(t *testing.T) {
		other := registerUser(t, server.URL, "Bob", "bob@example.com")
		status := doJSON(t, http.MethodPost, server.URL+"/api/auth/logout", other.Token, nil, nil)
		if status != http.StatusOK {
			t.Fatalf("logout: status %d", status)
		}
		status = doJSON(t, http.MethodGet, server.URL+"/api/auth/me", other.Token, nil, nil)
		if status != http.StatusUnauthorized {
			t.Fatalf("expected 401 after logout, got %d", status)
		}
	})
}

func TestTripEndpoints(t *testing.T) {
	server := setupTestServer(t)

	alice := registerUser(t, server.URL, "Alice", "alice@example.com")
	mallory := registerUser(t, server.URL, "Mallory", "mallory@example.com")
	trip := createTrip(t, server.URL, alice.Token)

	t.Run("owner sees the trip in their list", func(t *testing.T) {
		var list dto.TripListResponse
		status := doJSON(t, http.MethodGet, server.URL+"/api/trips", alice.Token, nil, &list)
		if status != http.StatusOK {
			t.Fatalf("list: status %d", status)
		}
		if list.Count != 1 || list.Trips[0].ID != trip.ID {
			t.Errorf("unexpected list: %+v", list)
		}
	})

	t.Run("stranger gets 403 on detail", func(t *testing.T) {
		status := doJSON(t, http.MethodGet, server.URL+"/api/trips/"+trip.ID, mallory.Token, nil, nil)
		if status != http.StatusForbidden {
			t.Fatalf("expected 403, got %d", status)
		}
	})

	t.Run("unknown trip is 404", func(t *testing.T) {
		status := doJSON(t, http.MethodGet, server.URL+"/api/trips/00000000-0000-0000-0000-000000000000", alice.Token, nil, nil)
		if status != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", status)
		}
	})

	t.Run("owner updates metadata", func(t *testing.T) {
		title := "Tokyo in Bloom"
		var updated dto.TripResponse
		status := doJSON(t, http.MethodPatch, server.URL+"/api/trips/"+trip.ID, alice.Token,
			dto.UpdateTripRequest{Title: &title}, &updated)
		if status != http.StatusOK {
			t.Fatalf("update: status %d", status)
		}
		if updated.Title != title {
			t.Errorf("title not updated: %q", updated.Title)
		}
	})
}

func TestInviteAndShareFlow(t *testing.T) {
	server := setupTestServer(t)

	alice := registerUser(t, server.URL, "Alice", "alice@example.com")
	bob := registerUser(t, server.URL, "Bob", "bob@example.com")
	trip := createTrip(t, server.URL, alice.Token)

	t.Run("invite, accept, and collaborate", func(t *testing.T) {
		var invited dto.InviteCollaboratorResponse
		status := doJSON(t, http.MethodPost, server.URL+"/api/trips/"+trip.ID+"/invite", alice.Token,
			dto.InviteCollaboratorRequest{Email: "bob@example.com", Role: "editor"}, &invited)
		if status != http.StatusCreated {
			t.Fatalf("invite: status %d", status)
		}
		if invited.Collaborator.Status != "pending" {
			t.Fatalf("expected pending, got %s", invited.Collaborator.Status)
		}

		// Mint an invite link for bob and accept it while signed in.
		var link dto.CreateInviteLinkResponse
		status = doJSON(t, http.MethodPost, server.URL+"/api/trips/"+trip.ID+"/invite-link", alice.Token,
			dto.CreateInviteLinkRequest{Role: "editor", Email: "bob@example.com"}, &link)
		if status != http.StatusCreated {
			t.Fatalf("invite-link: status %d", status)
		}
		token := link.InviteURL[len("http://localhost:3000/invite/"):]

		var accepted dto.AcceptInviteResponse
		status = doJSON(t, http.MethodPost, server.URL+"/api/invitations/"+token+"/accept", bob.Token, nil, &accepted)
		if status != http.StatusOK {
			t.Fatalf("accept: status %d", status)
		}

		// Second accept must fail: the token is single use.
		status = doJSON(t, http.MethodPost, server.URL+"/api/invitations/"+token+"/accept", bob.Token, nil, nil)
		if status != http.StatusConflict {
			t.Fatalf("expected 409 on reuse, got %d", status)
		}

		// Bob can now edit the itinerary but not delete the trip.
		status = doJSON(t, http.MethodPut, server.URL+"/api/trips/"+trip.ID+"/itinerary", bob.Token,
			dto.UpdateItineraryRequest{}, nil)
		if status != http.StatusOK {
			t.Fatalf("itinerary as editor: status %d", status)
		}
		status = doJSON(t, http.MethodDelete, server.URL+"/api/trips/"+trip.ID, bob.Token, nil, nil)
		if status != http.StatusForbidden {
			t.Fatalf("expected 403 on delete, got %d", status)
		}
	})

	t.Run("shared view is filtered and counted", func(t *testing.T) {
		var created dto.CreateShareLinkResponse
		status := doJSON(t, http.MethodPost, server.URL+"/api/trips/"+trip.ID+"/share", alice.Token,
			dto.CreateShareLinkRequest{IsPublic: true}, &created)
		if status != http.StatusCreated {
			t.Fatalf("share: status %d", status)
		}
		token := created.ShareURL[len("http://localhost:3000/shared/"):]

		var shared map[string]json.RawMessage
		status = doJSON(t, http.MethodGet, server.URL+"/api/shared/"+token, "", nil, &shared)
		if status != http.StatusOK {
			t.Fatalf("shared view: status %d", status)
		}
		for _, forbidden := range []string{"collaborators", "invitations", "total_budget", "user_id"} {
			if _, ok := shared[forbidden]; ok {
				t.Errorf("shared view leaks %q", forbidden)
			}
		}
		for _, required := range []string{"id", "title", "itinerary", "wishlist", "is_shared", "share_settings"} {
			if _, ok := shared[required]; !ok {
				t.Errorf("shared view missing %q", required)
			}
		}

		status = doJSON(t, http.MethodGet, server.URL+"/api/shared/nosuchtoken", "", nil, nil)
		if status != http.StatusNotFound {
			t.Fatalf("expected 404 for unknown token, got %d", status)
		}
	})

	t.Run("custom invite expiry is honored on the wire", func(t *testing.T) {
		var link dto.CreateInviteLinkResponse
		status := doJSON(t, http.MethodPost, server.URL+"/api/trips/"+trip.ID+"/invite-link", alice.Token,
			map[string]interface{}{"role": "viewer", "expires_in_days": 1}, &link)
		if status != http.StatusCreated {
			t.Fatalf("invite-link: status %d", status)
		}
		created, err := time.Parse(time.RFC3339, link.Invitation.CreatedAt)
		if err != nil {
			t.Fatalf("parse created_at: %v", err)
		}
		expires, err := time.Parse(time.RFC3339, link.Invitation.ExpiresAt)
		if err != nil {
			t.Fatalf("parse expires_at: %v", err)
		}
		if got := expires.Sub(created); got < 20*time.Hour || got > 28*time.Hour {
			t.Errorf("expected a one day lifetime, got %v", got)
		}
	})

	t.Run("protected flag without a password is rejected", func(t *testing.T) {
		status := doJSON(t, http.MethodPost, server.URL+"/api/trips/"+trip.ID+"/share", alice.Token,
			map[string]interface{}{"password_protected": true}, nil)
		if status != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", status)
		}
	})

	t.Run("protected link needs the password", func(t *testing.T) {
		var created dto.CreateShareLinkResponse
		status := doJSON(t, http.MethodPost, server.URL+"/api/trips/"+trip.ID+"/share", alice.Token,
			dto.CreateShareLinkRequest{Password: "opensesame"}, &created)
		if status != http.StatusCreated {
			t.Fatalf("share: status %d", status)
		}
		token := created.ShareURL[len("http://localhost:3000/shared/"):]

		status = doJSON(t, http.MethodGet, server.URL+"/api/shared/"+token, "", nil, nil)
		if status != http.StatusUnauthorized {
			t.Fatalf("expected 401 without password, got %d", status)
		}
		status = doJSON(t, http.MethodPost, server.URL+"/api/shared/"+token, "",
			dto.SharedTripAccessRequest{Password: "opensesame"}, nil)
		if status != http.StatusOK {
			t.Fatalf("expected 200 with password, got %d", status)
		}
	})
}

func TestRegisterWithInviteEndpoint(t *testing.T) {
	server := setupTestServer(t)

	alice := registerUser(t, server.URL, "Alice", "alice@example.com")
	trip := createTrip(t, server.URL, alice.Token)

	var link dto.CreateInviteLinkResponse
	status := doJSON(t, http.MethodPost, server.URL+"/api/trips/"+trip.ID+"/invite-link", alice.Token,
		dto.CreateInviteLinkRequest{Role: "viewer", AllowSignup: true}, &link)
	if status != http.StatusCreated {
		t.Fatalf("invite-link: status %d", status)
	}
	token := link.InviteURL[len("http://localhost:3000/invite/"):]

	t.Run("landing page shows details anonymously", func(t *testing.T) {
		var details dto.InvitationDetailsResponse
		status := doJSON(t, http.MethodGet, server.URL+"/api/invitations/"+token, "", nil, &details)
		if status != http.StatusOK {
			t.Fatalf("details: status %d", status)
		}
		if details.Trip.ID != trip.ID {
			t.Errorf("unexpected trip preview: %+v", details.Trip)
		}
	})

	t.Run("signup joins the trip", func(t *testing.T) {
		var resp dto.RegisterWithInviteResponse
		status := doJSON(t, http.MethodPost, server.URL+"/api/auth/register-with-invite", "",
			dto.RegisterWithInviteRequest{
				Name:        "Erin",
				Email:       "erin@example.com",
				Password:    "secret123",
				InviteToken: token,
			}, &resp)
		if status != http.StatusCreated {
			t.Fatalf("register-with-invite: status %d", status)
		}
		if resp.Trip == nil || resp.Trip.ID != trip.ID {
			t.Fatalf("expected joined trip in response: %+v", resp.Trip)
		}

		// The fresh token works for the trip right away.
		status = doJSON(t, http.MethodGet, fmt.Sprintf("%s/api/trips/%s", server.URL, trip.ID), resp.Token, nil, nil)
		if status != http.StatusOK {
			t.Fatalf("trip detail as new member: status %d", status)
		}
	})
}

func TestHealthEndpoints(t *testing.T) {
	server := setupTestServer(t)

	for _, path := range []string{"/healthz", "/livez", "/readyz"} {
		var health dto.HealthResponse
		status := doJSON(t, http.MethodGet, server.URL+path, "", nil, &health)
		if status != http.StatusOK {
			t.Errorf("%s: status %d", path, status)
		}
	}
}
