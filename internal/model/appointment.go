package model

import (
	"time"

	"github.com/google/uuid"
)

// AppointmentStatus is the workflow state of a medical visit request.
// DEMANDE is initial; ANNULE and TERMINE are terminal.
type AppointmentStatus string

const (
	AppointmentStatusDemande  AppointmentStatus = "DEMANDE"
	AppointmentStatusPropose  AppointmentStatus = "PROPOSE"
	AppointmentStatusConfirme AppointmentStatus = "CONFIRME"
	AppointmentStatusReporte  AppointmentStatus = "REPORTE"
	AppointmentStatusAnnule   AppointmentStatus = "ANNULE"
	AppointmentStatusTermine  AppointmentStatus = "TERMINE"
)

// Valid reports whether s is a known status.
func (s AppointmentStatus) Valid() bool {
	switch s {
	case AppointmentStatusDemande, AppointmentStatusPropose, AppointmentStatusConfirme,
		AppointmentStatusReporte, AppointmentStatusAnnule, AppointmentStatusTermine:
		return true
	}
	return false
}

// Terminal reports whether no further workflow transitions are permitted.
func (s AppointmentStatus) Terminal() bool {
	return s == AppointmentStatusAnnule || s == AppointmentStatusTermine
}

// AppointmentType enumerates the occupational-health visit types.
type AppointmentType string

const (
	AppointmentTypeEmbauche   AppointmentType = "VISITE_EMBAUCHE"
	AppointmentTypePeriodique AppointmentType = "VISITE_PERIODIQUE"
	AppointmentTypeReprise    AppointmentType = "VISITE_REPRISE"
	AppointmentTypePreReprise AppointmentType = "VISITE_PRE_REPRISE"
	AppointmentTypeADemande   AppointmentType = "VISITE_A_LA_DEMANDE"
)

// Appointment is the central workflow entity. AppointmentDate stays nil until
// the employee confirms a proposed slot, at which point it is copied from
// ProposedDate.
type Appointment struct {
	Base
	EmployeeID      uuid.UUID         `json:"employee_id" db:"employee_id"`
	NurseID         *uuid.UUID        `json:"nurse_id" db:"nurse_id"`
	DoctorID        *uuid.UUID        `json:"doctor_id" db:"doctor_id"`
	Type            AppointmentType   `json:"type" db:"type"`
	Status          AppointmentStatus `json:"status" db:"status"`
	RequestedDate   *time.Time        `json:"requested_date" db:"requested_date"`
	ProposedDate    *time.Time        `json:"proposed_date" db:"proposed_date"`
	AppointmentDate *time.Time        `json:"appointment_date" db:"appointment_date"`
	Motif           *string           `json:"motif" db:"motif"`
	Reason          *string           `json:"reason" db:"reason"`
	Notes           string            `json:"notes" db:"notes"`
	Location        *string           `json:"location" db:"location"`
	IsObligatory    bool              `json:"is_obligatory" db:"is_obligatory"`
	CreatedBy       string            `json:"created_by" db:"created_by"`
	Version         int               `json:"-" db:"version"`
}

// AppendNote adds a line to the append-only notes field.
func (a *Appointment) AppendNote(note string) {
	if note == "" {
		return
	}
	if a.Notes == "" {
		a.Notes = note
		return
	}
	a.Notes = a.Notes + "\n" + note
}

// CreateAppointmentRequest represents appointment creation parameters
type CreateAppointmentRequest struct {
	EmployeeID    uuid.UUID       `json:"employee_id" binding:"required"`
	Type          AppointmentType `json:"type" binding:"required,appointmenttype"`
	RequestedDate *time.Time      `json:"requested_date"`
	Motif         *string         `json:"motif"`
	Reason        *string         `json:"reason"`
	Notes         string          `json:"notes"`
	Location      *string         `json:"location"`
	IsObligatory  bool            `json:"is_obligatory"`
}

// UpdateAppointmentRequest is the administrative edit used by list/detail views.
type UpdateAppointmentRequest struct {
	Type     *AppointmentType `json:"type" binding:"omitempty,appointmenttype"`
	Reason   *string          `json:"reason"`
	Notes    *string          `json:"notes"`
	Location *string          `json:"location"`
}

// ProposeSlotRequest carries the slot proposed by medical staff.
type ProposeSlotRequest struct {
	ProposedDate time.Time `json:"proposed_date" binding:"required"`
	Location     *string   `json:"location"`
	Notes        *string   `json:"notes"`
}

// ConfirmAppointmentRequest carries optional confirmation notes.
type ConfirmAppointmentRequest struct {
	Notes string `json:"notes"`
}

// RescheduleAppointmentRequest carries the reschedule reason.
type RescheduleAppointmentRequest struct {
	Motif string `json:"motif" binding:"required"`
}

// CancelAppointmentRequest carries the cancellation reason.
type CancelAppointmentRequest struct {
	Reason string `json:"reason"`
}

// UpdateStatusRequest is the administrative status override.
type UpdateStatusRequest struct {
	Status AppointmentStatus `json:"status" binding:"required,appointmentstatus"`
	Notes  string            `json:"notes"`
}

// AppointmentFilters narrows appointment listings.
type AppointmentFilters struct {
	Status     AppointmentStatus `form:"status"`
	EmployeeID *uuid.UUID        `form:"employee_id"`
	DateFrom   *time.Time        `form:"date_from"`
	DateTo     *time.Time        `form:"date_to"`
	Pagination
}
