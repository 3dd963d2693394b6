package access

import (
	"testing"

	"github.com/google/uuid"

	"github.com/traveldiary/backend/internal/models"
)

var allCaps = []Capability{CapViewTrip, CapEditItinerary, CapInviteOthers, CapManageSettings}

func TestOwnerHoldsEveryCapability(t *testing.T) {
	owner := uuid.New()
	trip := &models.Trip{ID: uuid.New(), OwnerID: owner}

	for _, cap := range allCaps {
		if !CanAccess(trip, owner.String(), cap) {
			t.Errorf("owner denied %s", cap)
		}
	}
}

func TestUnknownRoleFallsBackToViewer(t *testing.T) {
	for _, role := range []models.Role{"", "superuser", "OWNER", "moderator"} {
		got := PermissionsFor(role)
		want := PermissionsFor(models.RoleViewer)
		for _, cap := range allCaps {
			if got[cap] != want[cap] {
				t.Errorf("role %q: %s = %v, want viewer's %v", role, cap, got[cap], want[cap])
			}
		}
	}
}

func TestRoleTable(t *testing.T) {
	cases := []struct {
		role models.Role
		cap  Capability
		want bool
	}{
		{models.RoleViewer, CapViewTrip, true},
		{models.RoleViewer, CapEditItinerary, false},
		{models.RoleViewer, CapInviteOthers, false},
		{models.RoleViewer, CapManageSettings, false},
		{models.RoleEditor, CapViewTrip, true},
		{models.RoleEditor, CapEditItinerary, true},
		{models.RoleEditor, CapInviteOthers, false},
		{models.RoleEditor, CapManageSettings, false},
		{models.RoleAdmin, CapViewTrip, true},
		{models.RoleAdmin, CapEditItinerary, true},
		{models.RoleAdmin, CapInviteOthers, true},
		{models.RoleAdmin, CapManageSettings, true},
	}
	for _, tc := range cases {
		if got := PermissionsFor(tc.role)[tc.cap]; got != tc.want {
			t.Errorf("%s/%s = %v, want %v", tc.role, tc.cap, got, tc.want)
		}
	}
}

func TestPendingCollaboratorHasNoCapabilities(t *testing.T) {
	userID := uuid.New().String()
	trip := &models.Trip{
		ID:      uuid.New(),
		OwnerID: uuid.New(),
		Collaborators: []models.Collaborator{
			{UserID: userID, Role: models.RoleAdmin, Status: models.CollabPending},
		},
	}

	for _, cap := range allCaps {
		if CanAccess(trip, userID, cap) {
			t.Errorf("pending admin granted %s", cap)
		}
	}

	trip.Collaborators[0].Status = models.CollabDeclined
	for _, cap := range allCaps {
		if CanAccess(trip, userID, cap) {
			t.Errorf("declined admin granted %s", cap)
		}
	}
}

func TestAcceptedCollaboratorUsesRoleTable(t *testing.T) {
	userID := uuid.New().String()
	trip := &models.Trip{
		ID:      uuid.New(),
		OwnerID: uuid.New(),
		Collaborators: []models.Collaborator{
			{UserID: userID, Role: models.RoleEditor, Status: models.CollabAccepted},
		},
	}

	if !CanAccess(trip, userID, CapViewTrip) {
		t.Error("accepted editor denied view_trip")
	}
	if !CanAccess(trip, userID, CapEditItinerary) {
		t.Error("accepted editor denied edit_itinerary")
	}
	if CanAccess(trip, userID, CapInviteOthers) {
		t.Error("accepted editor granted invite_others")
	}
	if CanAccess(trip, userID, CapManageSettings) {
		t.Error("accepted editor granted manage_settings")
	}
}

func TestNonCollaboratorDenied(t *testing.T) {
	trip := &models.Trip{ID: uuid.New(), OwnerID: uuid.New()}
	if CanAccess(trip, uuid.New().String(), CapViewTrip) {
		t.Error("stranger granted view_trip on trip with no collaborators")
	}
	if CanAccess(trip, "", CapViewTrip) {
		t.Error("empty requester granted access")
	}
	if CanAccess(nil, uuid.New().String(), CapViewTrip) {
		t.Error("nil trip granted access")
	}
}
