package shared

import (
	"strings"

	"github.com/google/uuid"
)

// Role names carried by callers
const (
	RoleAdmin    = "Admin"
	RoleManager  = "Manager"
	RoleSale     = "Sale"
	RoleCustomer = "Customer"
)

var staffRoles = map[string]bool{
	RoleAdmin:   true,
	RoleManager: true,
	RoleSale:    true,
}

// Actor is the authenticated caller of an operation
type Actor struct {
	UserID uuid.UUID
	Email  string
	Roles  []string
}

// ParseRoles splits a comma separated role list, dropping blanks
func ParseRoles(raw string) []string {
	var roles []string
	for _, r := range strings.Split(raw, ",") {
		if r = strings.TrimSpace(r); r != "" {
			roles = append(roles, r)
		}
	}
	return roles
}

// HasRole reports whether the actor carries role, ignoring case
func (a Actor) HasRole(role string) bool {
	for _, r := range a.Roles {
		if strings.EqualFold(r, role) {
			return true
		}
	}
	return false
}

// IsStaff is true for Admin, Manager and Sale
func (a Actor) IsStaff() bool {
	for _, r := range a.Roles {
		for staff := range staffRoles {
			if strings.EqualFold(r, staff) {
				return true
			}
		}
	}
	return false
}

// IsAnonymous is true when no user id was supplied
func (a Actor) IsAnonymous() bool {
	return a.UserID == uuid.Nil
}

// Name identifies the actor in history entries
func (a Actor) Name() string {
	if a.Email != "" {
		return a.Email
	}
	return a.UserID.String()
}
