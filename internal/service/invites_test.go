package service

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/traveldiary/backend/internal/apperr"
	"github.com/traveldiary/backend/internal/email"
	"github.com/traveldiary/backend/internal/models"
	"github.com/traveldiary/backend/internal/store"
	"github.com/traveldiary/backend/internal/store/sqlite"
)

func TestInviteCollaborator(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	owner := mustRegister(t, svc, "Alice", "alice@example.com")
	bob := mustRegister(t, svc, "Bob", "bob@example.com")
	trip := mustCreateTrip(t, svc, owner)

	t.Run("owner invites an existing user", func(t *testing.T) {
		result, err := svc.InviteCollaborator(ctx, trip.ID, owner, InviteCollaboratorInput{
			Email: "bob@example.com",
			Role:  "editor",
		})
		if err != nil {
			t.Fatalf("InviteCollaborator failed: %v", err)
		}
		c := result.Collaborator
		if c.Status != models.CollabPending {
			t.Errorf("expected pending status, got %s", c.Status)
		}
		if c.Role != models.RoleEditor {
			t.Errorf("expected editor role, got %s", c.Role)
		}
		if c.UserID != bob.ID.String() {
			t.Errorf("expected entry bound to bob, got %q", c.UserID)
		}
	})

	t.Run("pending collaborator cannot edit yet", func(t *testing.T) {
		_, err := svc.UpdateItinerary(ctx, trip.ID, bob.ID.String(), nil)
		wantKind(t, err, apperr.Forbidden)
	})

	t.Run("duplicate invite conflicts", func(t *testing.T) {
		_, err := svc.InviteCollaborator(ctx, trip.ID, owner, InviteCollaboratorInput{
			Email: "Bob@Example.com",
			Role:  "viewer",
		})
		wantKind(t, err, apperr.Conflict)
	})

	t.Run("self invite is invalid", func(t *testing.T) {
		_, err := svc.InviteCollaborator(ctx, trip.ID, owner, InviteCollaboratorInput{
			Email: "alice@example.com",
		})
		wantKind(t, err, apperr.Invalid)
	})

	t.Run("accepted editor can edit the itinerary", func(t *testing.T) {
		fresh, err := svc.GetTrip(ctx, trip.ID, owner.ID.String())
		if err != nil {
			t.Fatalf("GetTrip failed: %v", err)
		}
		token := fresh.FindCollaboratorByEmail("bob@example.com").InviteToken

		updated, err := svc.RespondToInvite(ctx, token, "accept", bob)
		if err != nil {
			t.Fatalf("RespondToInvite failed: %v", err)
		}
		c := updated.FindCollaboratorByUser(bob.ID.String())
		if c == nil || c.Status != models.CollabAccepted {
			t.Fatalf("expected accepted collaborator, got %+v", c)
		}

		items := []models.ItineraryItem{{Place: models.Place{Name: "Senso-ji"}, Date: "2026-04-02"}}
		if _, err := svc.UpdateItinerary(ctx, trip.ID, bob.ID.String(), items); err != nil {
			t.Fatalf("UpdateItinerary as editor failed: %v", err)
		}
	})

	t.Run("editor cannot invite others", func(t *testing.T) {
		_, err := svc.InviteCollaborator(ctx, trip.ID, bob, InviteCollaboratorInput{
			Email: "carol@example.com",
		})
		wantKind(t, err, apperr.Forbidden)
	})

	t.Run("second response is rejected", func(t *testing.T) {
		fresh, err := svc.GetTrip(ctx, trip.ID, owner.ID.String())
		if err != nil {
			t.Fatalf("GetTrip failed: %v", err)
		}
		token := fresh.FindCollaboratorByEmail("bob@example.com").InviteToken
		_, err = svc.RespondToInvite(ctx, token, "decline", bob)
		wantKind(t, err, apperr.AlreadyUsed)
	})
}

func TestInviteLinkLifecycle(t *testing.T) {
	svc, clock := newTestService(t)
	ctx := context.Background()

	owner := mustRegister(t, svc, "Alice", "alice@example.com")
	carol := mustRegister(t, svc, "Carol", "carol@example.com")
	dave := mustRegister(t, svc, "Dave", "dave@example.com")
	trip := mustCreateTrip(t, svc, owner)

	result, err := svc.CreateInviteLink(ctx, trip.ID, owner, CreateInviteLinkInput{Role: "editor"})
	if err != nil {
		t.Fatalf("CreateInviteLink failed: %v", err)
	}
	token := result.Invitation.Token

	t.Run("details resolve a pending link", func(t *testing.T) {
		inv, linkTrip, err := svc.InviteDetails(ctx, token)
		if err != nil {
			t.Fatalf("InviteDetails failed: %v", err)
		}
		if inv.Role != models.RoleEditor || linkTrip.ID != trip.ID {
			t.Errorf("unexpected details: role=%s trip=%s", inv.Role, linkTrip.ID)
		}
	})

	t.Run("accept grants the invitation role", func(t *testing.T) {
		updated, err := svc.AcceptInvite(ctx, token, carol)
		if err != nil {
			t.Fatalf("AcceptInvite failed: %v", err)
		}
		c := updated.FindCollaboratorByUser(carol.ID.String())
		if c == nil || c.Status != models.CollabAccepted || c.Role != models.RoleEditor {
			t.Fatalf("expected accepted editor, got %+v", c)
		}
		inv := updated.FindInvitation(token)
		if inv.Status != models.InviteAccepted || inv.UsedBy != carol.ID.String() {
			t.Errorf("invitation not consumed: %+v", inv)
		}
	})

	t.Run("token is single use", func(t *testing.T) {
		_, err := svc.AcceptInvite(ctx, token, dave)
		wantKind(t, err, apperr.AlreadyUsed)

		_, _, err = svc.InviteDetails(ctx, token)
		wantKind(t, err, apperr.AlreadyUsed)
	})

	t.Run("expired link cannot be used", func(t *testing.T) {
		result, err := svc.CreateInviteLink(ctx, trip.ID, owner, CreateInviteLinkInput{Role: "viewer"})
		if err != nil {
			t.Fatalf("CreateInviteLink failed: %v", err)
		}
		clock.Advance(8 * 24 * time.Hour)

		_, err = svc.AcceptInvite(ctx, result.Invitation.Token, dave)
		wantKind(t, err, apperr.Expired)
	})

	t.Run("email-locked link rejects other accounts", func(t *testing.T) {
		result, err := svc.CreateInviteLink(ctx, trip.ID, owner, CreateInviteLinkInput{
			Role:  "viewer",
			Email: "someone-else@example.com",
		})
		if err != nil {
			t.Fatalf("CreateInviteLink failed: %v", err)
		}
		_, err = svc.AcceptInvite(ctx, result.Invitation.Token, dave)
		wantKind(t, err, apperr.Forbidden)
	})

	t.Run("unknown token is not found", func(t *testing.T) {
		_, _, err := svc.InviteDetails(ctx, "deadbeefdeadbeef")
		wantKind(t, err, apperr.NotFound)
	})
}

func TestRegisterWithInvite(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	owner := mustRegister(t, svc, "Alice", "alice@example.com")
	trip := mustCreateTrip(t, svc, owner)

	signup, err := svc.CreateInviteLink(ctx, trip.ID, owner, CreateInviteLinkInput{
		Role:        "viewer",
		AllowSignup: true,
	})
	if err != nil {
		t.Fatalf("CreateInviteLink failed: %v", err)
	}

	t.Run("new account joins the trip in one call", func(t *testing.T) {
		user, session, joined, err := svc.RegisterWithInvite(ctx, "Erin", "erin@example.com", "secret123", signup.Invitation.Token)
		if err != nil {
			t.Fatalf("RegisterWithInvite failed: %v", err)
		}
		if session == nil {
			t.Fatal("expected a session")
		}
		c := joined.FindCollaboratorByUser(user.ID.String())
		if c == nil || c.Status != models.CollabAccepted {
			t.Fatalf("expected accepted collaborator, got %+v", c)
		}
	})

	t.Run("existing account must sign in instead", func(t *testing.T) {
		link, err := svc.CreateInviteLink(ctx, trip.ID, owner, CreateInviteLinkInput{
			Role:        "viewer",
			AllowSignup: true,
		})
		if err != nil {
			t.Fatalf("CreateInviteLink failed: %v", err)
		}
		_, _, _, err = svc.RegisterWithInvite(ctx, "Erin", "erin@example.com", "secret123", link.Invitation.Token)
		wantKind(t, err, apperr.Conflict)
	})

	t.Run("link without signup refuses registration", func(t *testing.T) {
		link, err := svc.CreateInviteLink(ctx, trip.ID, owner, CreateInviteLinkInput{Role: "viewer"})
		if err != nil {
			t.Fatalf("CreateInviteLink failed: %v", err)
		}
		_, _, _, err = svc.RegisterWithInvite(ctx, "Frank", "frank@example.com", "secret123", link.Invitation.Token)
		wantKind(t, err, apperr.Forbidden)
	})
}

// stubbornStore wraps a real store and can be set to refuse trip writes,
// simulating a document that keeps changing under the writer.
type stubbornStore struct {
	store.Store
	failWrites bool
}

func (s *stubbornStore) UpdateTrip(ctx context.Context, trip *models.Trip) error {
	if s.failWrites {
		return store.ErrVersionConflict
	}
	return s.Store.UpdateTrip(ctx, trip)
}

func TestRegisterWithInviteAcceptFailure(t *testing.T) {
	tempDir, err := os.MkdirTemp("", "traveldiary-svc-test-*")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(tempDir) })

	st, err := sqlite.New(filepath.Join(tempDir, "test.db"))
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	wrapped := &stubbornStore{Store: st}
	svc := New(wrapped, email.NoopSender{}, "http://localhost:3000", 7*24*time.Hour)
	clock := &testClock{now: time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)}
	svc.now = clock.Now
	ctx := context.Background()

	owner := mustRegister(t, svc, "Alice", "alice@example.com")
	trip := mustCreateTrip(t, svc, owner)
	link, err := svc.CreateInviteLink(ctx, trip.ID, owner, CreateInviteLinkInput{
		Role:        "viewer",
		AllowSignup: true,
	})
	if err != nil {
		t.Fatalf("CreateInviteLink failed: %v", err)
	}

	wrapped.failWrites = true
	user, session, joined, err := svc.RegisterWithInvite(ctx, "Grace", "grace@example.com", "secret123", link.Invitation.Token)
	if err == nil {
		t.Fatal("expected the accept to fail")
	}
	if user == nil || session == nil {
		t.Fatal("expected the account and session to survive the failed accept")
	}
	if joined != nil {
		t.Errorf("expected no trip on a failed accept, got %v", joined.ID)
	}

	// The caller is signed in and can retry once writes go through again.
	wrapped.failWrites = false
	if _, err := svc.VerifySession(ctx, session.ID); err != nil {
		t.Fatalf("VerifySession failed: %v", err)
	}
	if _, err := svc.AcceptInvite(ctx, link.Invitation.Token, user); err != nil {
		t.Fatalf("accepting after recovery failed: %v", err)
	}
}

func TestInviteLinkAfterAnonymousAccept(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	owner := mustRegister(t, svc, "Alice", "alice@example.com")
	trip := mustCreateTrip(t, svc, owner)

	// Direct invite to an address with no account, accepted anonymously. The
	// entry is accepted but carries no user id.
	result, err := svc.InviteCollaborator(ctx, trip.ID, owner, InviteCollaboratorInput{
		Email: "bob@example.com",
		Role:  "editor",
	})
	if err != nil {
		t.Fatalf("InviteCollaborator failed: %v", err)
	}
	if _, err := svc.RespondToInvite(ctx, result.Collaborator.InviteToken, "accept", nil); err != nil {
		t.Fatalf("anonymous accept failed: %v", err)
	}

	bob := mustRegister(t, svc, "Bob", "bob@example.com")
	link, err := svc.CreateInviteLink(ctx, trip.ID, owner, CreateInviteLinkInput{Role: "viewer"})
	if err != nil {
		t.Fatalf("CreateInviteLink failed: %v", err)
	}

	t.Run("invite link conflicts with the accepted entry", func(t *testing.T) {
		_, err := svc.AcceptInvite(ctx, link.Invitation.Token, bob)
		wantKind(t, err, apperr.Conflict)
	})

	t.Run("one collaborator entry per email", func(t *testing.T) {
		fresh, err := svc.GetTrip(ctx, trip.ID, owner.ID.String())
		if err != nil {
			t.Fatalf("GetTrip failed: %v", err)
		}
		count := 0
		for i := range fresh.Collaborators {
			if fresh.Collaborators[i].Email == "bob@example.com" {
				count++
			}
		}
		if count != 1 {
			t.Fatalf("expected one collaborator entry for bob, got %d", count)
		}
		if role := fresh.FindCollaboratorByEmail("bob@example.com").Role; role != models.RoleEditor {
			t.Errorf("expected the original editor role to survive, got %s", role)
		}
	})
}
