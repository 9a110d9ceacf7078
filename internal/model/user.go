package model

import (
	"github.com/google/uuid"
)

// User represents a system user. Credentials live in the external identity
// provider; the local hash is kept for deployments running self-hosted auth.
type User struct {
	Base
	Email        string  `json:"email" db:"email"`
	Name         string  `json:"name" db:"name"`
	Password     string  `json:"password,omitempty" db:"-"`
	PasswordHash string  `json:"-" db:"password_hash"`
	Phone        *string `json:"phone" db:"phone"`
	Active       bool    `json:"active" db:"active"`
	Roles        []Role  `json:"roles" db:"-"`
}

// HasRole reports whether the user holds the given role.
func (u *User) HasRole(name RoleName) bool {
	for _, r := range u.Roles {
		if r.Name == name {
			return true
		}
	}
	return false
}

// CreateUserRequest represents user creation parameters
type CreateUserRequest struct {
	Email    string   `json:"email" binding:"required,email"`
	Name     string   `json:"name" binding:"required"`
	Password string   `json:"password" binding:"required,min=8"`
	Phone    *string  `json:"phone"`
	Roles    []string `json:"roles" binding:"required,min=1"`
}

// UpdateUserRequest represents user update parameters
type UpdateUserRequest struct {
	Name   *string  `json:"name"`
	Email  *string  `json:"email" binding:"omitempty,email"`
	Phone  *string  `json:"phone"`
	Active *bool    `json:"active"`
	Roles  []string `json:"roles"`
}

// UserFilters represents user search parameters
type UserFilters struct {
	Role       RoleName `json:"role" form:"role"`
	Active     *bool    `json:"active" form:"active"`
	SearchTerm string   `json:"search_term" form:"search_term"`
}

// AuthUser is the authenticated principal extracted from the bearer token.
type AuthUser struct {
	ID    uuid.UUID
	Email string
	Roles []RoleName
}

// HasRole reports whether the principal carries the given role claim.
func (a *AuthUser) HasRole(name RoleName) bool {
	for _, r := range a.Roles {
		if r == name {
			return true
		}
	}
	return false
}
