package model

import (
	"fmt"

	"github.com/google/uuid"
)

// RoleName is the closed set of roles known to the system.
type RoleName string

const (
	RoleAdmin      RoleName = "ADMIN"
	RoleHR         RoleName = "HR"
	RoleNurse      RoleName = "NURSE"
	RoleDoctor     RoleName = "DOCTOR"
	RoleHSEManager RoleName = "HSE_MANAGER"
	RoleEmployee   RoleName = "EMPLOYEE"
)

// AllRoles lists every valid role name.
var AllRoles = []RoleName{
	RoleAdmin, RoleHR, RoleNurse, RoleDoctor, RoleHSEManager, RoleEmployee,
}

// ParseRole validates a role name string.
func ParseRole(s string) (RoleName, error) {
	for _, r := range AllRoles {
		if string(r) == s {
			return r, nil
		}
	}
	return "", fmt.Errorf("unknown role: %q", s)
}

// ParseRoles validates a list of role name strings.
func ParseRoles(names []string) ([]RoleName, error) {
	roles := make([]RoleName, 0, len(names))
	for _, n := range names {
		r, err := ParseRole(n)
		if err != nil {
			return nil, err
		}
		roles = append(roles, r)
	}
	return roles, nil
}

// RoleNames converts role entities to their name strings.
func RoleNames(roles []Role) []string {
	names := make([]string, 0, len(roles))
	for _, r := range roles {
		names = append(names, string(r.Name))
	}
	return names
}

// Role is the persisted role entity.
type Role struct {
	ID   uuid.UUID `json:"id" db:"id"`
	Name RoleName  `json:"name" db:"name"`
}
