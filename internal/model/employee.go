package model

import (
	"time"

	"github.com/google/uuid"
)

// Employee is the profile attached 1:1 to a user, with optional N+1 and N+2
// manager references.
type Employee struct {
	Base
	UserID       uuid.UUID  `json:"user_id" db:"user_id"`
	FirstName    string     `json:"first_name" db:"first_name"`
	LastName     string     `json:"last_name" db:"last_name"`
	Email        string     `json:"email" db:"email"`
	PhoneNumber  *string    `json:"phone_number" db:"phone_number"`
	Position     *string    `json:"position" db:"position"`
	Department   *string    `json:"department" db:"department"`
	EmployeeCode *string    `json:"employee_code" db:"employee_code"`
	HireDate     *time.Time `json:"hire_date" db:"hire_date"`
	Manager1ID   *uuid.UUID `json:"manager1_id" db:"manager1_id"`
	Manager2ID   *uuid.UUID `json:"manager2_id" db:"manager2_id"`
}

// FullName returns the display name used in notification messages.
func (e *Employee) FullName() string {
	return e.FirstName + " " + e.LastName
}

// CreateEmployeeRequest represents employee creation parameters
type CreateEmployeeRequest struct {
	UserID       uuid.UUID  `json:"user_id" binding:"required"`
	FirstName    string     `json:"first_name" binding:"required"`
	LastName     string     `json:"last_name" binding:"required"`
	Email        string     `json:"email" binding:"required,email"`
	PhoneNumber  *string    `json:"phone_number"`
	Position     *string    `json:"position"`
	Department   *string    `json:"department"`
	EmployeeCode *string    `json:"employee_code"`
	HireDate     *time.Time `json:"hire_date"`
	Manager1ID   *uuid.UUID `json:"manager1_id"`
	Manager2ID   *uuid.UUID `json:"manager2_id"`
}

// UpdateEmployeeRequest represents employee update parameters
type UpdateEmployeeRequest struct {
	FirstName   *string    `json:"first_name"`
	LastName    *string    `json:"last_name"`
	PhoneNumber *string    `json:"phone_number"`
	Position    *string    `json:"position"`
	Department  *string    `json:"department"`
	HireDate    *time.Time `json:"hire_date"`
	Manager1ID  *uuid.UUID `json:"manager1_id"`
	Manager2ID  *uuid.UUID `json:"manager2_id"`
}

// EmployeeFilters represents employee search parameters
type EmployeeFilters struct {
	Department string `json:"department" form:"department"`
	Position   string `json:"position" form:"position"`
	SearchTerm string `json:"search_term" form:"search_term"`
}
