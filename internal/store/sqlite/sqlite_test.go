package sqlite

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/traveldiary/backend/internal/models"
	"github.com/traveldiary/backend/internal/store"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	tempDir, err := os.MkdirTemp("", "traveldiary-test-*")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(tempDir) })

	st, err := New(filepath.Join(tempDir, "test.db"))
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

func newTestTrip(ownerID uuid.UUID) *models.Trip {
	now := time.Now().UTC()
	return &models.Trip{
		ID:            uuid.New(),
		OwnerID:       ownerID,
		Title:         "Tokyo Spring",
		Description:   "Cherry blossom season",
		Destination:   "Tokyo, Japan",
		StartDate:     "2026-04-01",
		EndDate:       "2026-04-10",
		Duration:      10,
		Status:        models.TripPlanning,
		Currency:      "USD",
		Itinerary:     []models.ItineraryItem{},
		Wishlist:      []models.Place{},
		Collaborators: []models.Collaborator{},
		Invitations:   []models.Invitation{},
		ShareLinks:    []models.ShareLink{},
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

func TestSQLiteStore(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	owner := &models.User{
		ID:        uuid.New(),
		Email:     "owner@example.com",
		Name:      "Owner",
		Provider:  models.ProviderLocal,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
	if err := st.CreateUser(ctx, owner); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}

	t.Run("duplicate email is a conflict", func(t *testing.T) {
		dup := &models.User{
			ID:        uuid.New(),
			Email:     "Owner@Example.com",
			Name:      "Dup",
			Provider:  models.ProviderLocal,
			CreatedAt: time.Now().UTC(),
			UpdatedAt: time.Now().UTC(),
		}
		if err := st.CreateUser(ctx, dup); err != store.ErrConflict {
			t.Fatalf("expected ErrConflict, got %v", err)
		}
	})

	t.Run("trip round-trip preserves the document", func(t *testing.T) {
		trip := newTestTrip(owner.ID)
		trip.Collaborators = []models.Collaborator{{
			UserID:    uuid.New().String(),
			Email:     "friend@example.com",
			Role:      models.RoleEditor,
			Status:    models.CollabAccepted,
			InvitedBy: owner.ID.String(),
			InvitedAt: time.Now().UTC(),
		}}
		if err := st.CreateTrip(ctx, trip); err != nil {
			t.Fatalf("CreateTrip failed: %v", err)
		}

		got, err := st.GetTrip(ctx, trip.ID)
		if err != nil {
			t.Fatalf("GetTrip failed: %v", err)
		}
		if got.Title != trip.Title || got.Destination != trip.Destination {
			t.Errorf("round-trip mismatch: got %q/%q", got.Title, got.Destination)
		}
		if len(got.Collaborators) != 1 || got.Collaborators[0].Email != "friend@example.com" {
			t.Errorf("collaborators not preserved: %+v", got.Collaborators)
		}
		if got.Version != 1 {
			t.Errorf("expected version 1, got %d", got.Version)
		}
	})

	t.Run("update bumps version and stale writes conflict", func(t *testing.T) {
		trip := newTestTrip(owner.ID)
		if err := st.CreateTrip(ctx, trip); err != nil {
			t.Fatalf("CreateTrip failed: %v", err)
		}

		fresh, err := st.GetTrip(ctx, trip.ID)
		if err != nil {
			t.Fatalf("GetTrip failed: %v", err)
		}
		stale, err := st.GetTrip(ctx, trip.ID)
		if err != nil {
			t.Fatalf("GetTrip failed: %v", err)
		}

		fresh.Title = "Updated"
		if err := st.UpdateTrip(ctx, fresh); err != nil {
			t.Fatalf("UpdateTrip failed: %v", err)
		}
		if fresh.Version != 2 {
			t.Errorf("expected version 2 after update, got %d", fresh.Version)
		}

		stale.Title = "Stale write"
		if err := st.UpdateTrip(ctx, stale); err != store.ErrVersionConflict {
			t.Fatalf("expected ErrVersionConflict, got %v", err)
		}
	})

	t.Run("token index resolves trips and follows updates", func(t *testing.T) {
		trip := newTestTrip(owner.ID)
		trip.ShareLinks = []models.ShareLink{{
			ID:        uuid.New().String(),
			Token:     "sharetoken123",
			CreatedBy: owner.ID.String(),
			CreatedAt: time.Now().UTC(),
			ExpiresAt: time.Now().UTC().Add(24 * time.Hour),
		}}
		if err := st.CreateTrip(ctx, trip); err != nil {
			t.Fatalf("CreateTrip failed: %v", err)
		}

		got, err := st.GetTripByToken(ctx, store.TokenShare, "sharetoken123")
		if err != nil {
			t.Fatalf("GetTripByToken failed: %v", err)
		}
		if got.ID != trip.ID {
			t.Errorf("token resolved wrong trip: %s", got.ID)
		}

		// Wrong kind does not match
		if _, err := st.GetTripByToken(ctx, store.TokenInviteLink, "sharetoken123"); err != store.ErrNotFound {
			t.Fatalf("expected ErrNotFound for wrong kind, got %v", err)
		}

		// Removing the link removes the index entry
		got.ShareLinks = nil
		if err := st.UpdateTrip(ctx, got); err != nil {
			t.Fatalf("UpdateTrip failed: %v", err)
		}
		if _, err := st.GetTripByToken(ctx, store.TokenShare, "sharetoken123"); err != store.ErrNotFound {
			t.Fatalf("expected ErrNotFound after removal, got %v", err)
		}
	})

	t.Run("ListTripsForUser sees owned and accepted trips only", func(t *testing.T) {
		collaborator := &models.User{
			ID:        uuid.New(),
			Email:     "collab@example.com",
			Name:      "Collab",
			Provider:  models.ProviderLocal,
			CreatedAt: time.Now().UTC(),
			UpdatedAt: time.Now().UTC(),
		}
		if err := st.CreateUser(ctx, collaborator); err != nil {
			t.Fatalf("CreateUser failed: %v", err)
		}

		accepted := newTestTrip(owner.ID)
		accepted.Title = "Accepted trip"
		accepted.Collaborators = []models.Collaborator{{
			UserID: collaborator.ID.String(),
			Email:  collaborator.Email,
			Role:   models.RoleEditor,
			Status: models.CollabAccepted,
		}}
		pending := newTestTrip(owner.ID)
		pending.Title = "Pending trip"
		pending.Collaborators = []models.Collaborator{{
			UserID: collaborator.ID.String(),
			Email:  collaborator.Email,
			Role:   models.RoleEditor,
			Status: models.CollabPending,
		}}
		for _, trip := range []*models.Trip{accepted, pending} {
			if err := st.CreateTrip(ctx, trip); err != nil {
				t.Fatalf("CreateTrip failed: %v", err)
			}
		}

		trips, err := st.ListTripsForUser(ctx, collaborator.ID)
		if err != nil {
			t.Fatalf("ListTripsForUser failed: %v", err)
		}
		if len(trips) != 1 || trips[0].Title != "Accepted trip" {
			titles := make([]string, 0, len(trips))
			for _, tr := range trips {
				titles = append(titles, tr.Title)
			}
			t.Errorf("expected only the accepted trip, got %v", titles)
		}
	})

	t.Run("sessions round-trip and delete", func(t *testing.T) {
		session := &models.Session{
			ID:        uuid.New().String(),
			UserID:    owner.ID,
			CreatedAt: time.Now().UTC(),
			ExpiresAt: time.Now().UTC().Add(time.Hour),
		}
		if err := st.CreateSession(ctx, session); err != nil {
			t.Fatalf("CreateSession failed: %v", err)
		}
		got, err := st.GetSession(ctx, session.ID)
		if err != nil {
			t.Fatalf("GetSession failed: %v", err)
		}
		if got.UserID != owner.ID {
			t.Errorf("session user mismatch: %s", got.UserID)
		}
		if err := st.DeleteSession(ctx, session.ID); err != nil {
			t.Fatalf("DeleteSession failed: %v", err)
		}
		if _, err := st.GetSession(ctx, session.ID); err != store.ErrNotFound {
			t.Fatalf("expected ErrNotFound after delete, got %v", err)
		}
	})

	t.Run("delete trip removes tokens", func(t *testing.T) {
		trip := newTestTrip(owner.ID)
		trip.Invitations = []models.Invitation{{
			ID:        uuid.New().String(),
			Token:     "invitetoken456",
			Role:      models.RoleViewer,
			Status:    models.InvitePending,
			CreatedAt: time.Now().UTC(),
			ExpiresAt: time.Now().UTC().Add(24 * time.Hour),
		}}
		if err := st.CreateTrip(ctx, trip); err != nil {
			t.Fatalf("CreateTrip failed: %v", err)
		}
		if err := st.DeleteTrip(ctx, trip.ID); err != nil {
			t.Fatalf("DeleteTrip failed: %v", err)
		}
		if _, err := st.GetTrip(ctx, trip.ID); err != store.ErrNotFound {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
		if _, err := st.GetTripByToken(ctx, store.TokenInviteLink, "invitetoken456"); err != store.ErrNotFound {
			t.Fatalf("expected ErrNotFound for orphaned token, got %v", err)
		}
	})
}
