// Package access implements the role/permission table and the trip access
// evaluator. Everything here is a pure function over the trip document; no
// store calls, no side effects.
package access

import (
	"github.com/traveldiary/backend/internal/models"
)

// Capability is a named permission an actor may hold on a trip.
type Capability string

const (
	CapViewTrip       Capability = "view_trip"
	CapEditItinerary  Capability = "edit_itinerary"
	CapInviteOthers   Capability = "invite_others"
	CapManageSettings Capability = "manage_settings"
)

var rolePermissions = map[models.Role]map[Capability]bool{
	models.RoleViewer: {
		CapViewTrip:       true,
		CapEditItinerary:  false,
		CapInviteOthers:   false,
		CapManageSettings: false,
	},
	models.RoleEditor: {
		CapViewTrip:       true,
		CapEditItinerary:  true,
		CapInviteOthers:   false,
		CapManageSettings: false,
	},
	models.RoleAdmin: {
		CapViewTrip:       true,
		CapEditItinerary:  true,
		CapInviteOthers:   true,
		CapManageSettings: true,
	},
}

// PermissionsFor returns the capability set for a role. Unknown roles fail
// closed to the viewer set, never to an elevated default.
func PermissionsFor(role models.Role) map[Capability]bool {
	if perms, ok := rolePermissions[role]; ok {
		return perms
	}
	return rolePermissions[models.RoleViewer]
}

// CanAccess reports whether the requester holds the capability on the trip.
// The owner holds every capability unconditionally. Anyone else must be an
// accepted collaborator; pending or declined entries grant nothing
// regardless of their assigned role.
func CanAccess(trip *models.Trip, requesterID string, cap Capability) bool {
	if trip == nil || requesterID == "" {
		return false
	}
	if trip.OwnerID.String() == requesterID {
		return true
	}
	for i := range trip.Collaborators {
		c := &trip.Collaborators[i]
		if c.UserID == requesterID && c.Status == models.CollabAccepted {
			return PermissionsFor(c.Role)[cap]
		}
	}
	return false
}
