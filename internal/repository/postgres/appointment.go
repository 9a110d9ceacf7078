package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/oshworks/osh-api/internal/model"
)

const appointmentColumns = `
	id, employee_id, nurse_id, doctor_id, type, status, requested_date,
	proposed_date, appointment_date, motif, reason, notes, location,
	is_obligatory, created_by, version, created_at, updated_at
`

func (r *appointmentRepository) Create(ctx context.Context, appointment *model.Appointment) error {
	query := `
		INSERT INTO appointments (
			id, employee_id, nurse_id, doctor_id, type, status, requested_date,
			proposed_date, appointment_date, motif, reason, notes, location,
			is_obligatory, created_by, version, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
	`
	appointment.Version = 1

	_, err := r.GetDB().ExecContext(ctx, query,
		appointment.ID,
		appointment.EmployeeID,
		appointment.NurseID,
		appointment.DoctorID,
		appointment.Type,
		appointment.Status,
		appointment.RequestedDate,
		appointment.ProposedDate,
		appointment.AppointmentDate,
		appointment.Motif,
		appointment.Reason,
		appointment.Notes,
		appointment.Location,
		appointment.IsObligatory,
		appointment.CreatedBy,
		appointment.Version,
		appointment.CreatedAt,
		appointment.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create appointment: %w", err)
	}
	return nil
}

func (r *appointmentRepository) Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	query := `SELECT ` + appointmentColumns + ` FROM appointments WHERE id = $1`
	var appointment model.Appointment
	if err := r.GetDB().GetContext(ctx, &appointment, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get appointment: %w", err)
	}
	return &appointment, nil
}

func (r *appointmentRepository) Update(ctx context.Context, appointment *model.Appointment) error {
	query := `
		UPDATE appointments
		SET nurse_id = $1, doctor_id = $2, type = $3, status = $4,
			requested_date = $5, proposed_date = $6, appointment_date = $7,
			motif = $8, reason = $9, notes = $10, location = $11,
			version = version + 1, updated_at = $12
		WHERE id = $13 AND version = $14
	`
	appointment.UpdatedAt = time.Now()

	result, err := r.GetDB().ExecContext(ctx, query,
		appointment.NurseID,
		appointment.DoctorID,
		appointment.Type,
		appointment.Status,
		appointment.RequestedDate,
		appointment.ProposedDate,
		appointment.AppointmentDate,
		appointment.Motif,
		appointment.Reason,
		appointment.Notes,
		appointment.Location,
		appointment.UpdatedAt,
		appointment.ID,
		appointment.Version,
	)
	if err != nil {
		return fmt.Errorf("failed to update appointment: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		// Either the row is gone or a concurrent writer bumped the version.
		if _, getErr := r.Get(ctx, appointment.ID); getErr != nil {
			return ErrNotFound
		}
		return ErrVersionConflict
	}

	appointment.Version++
	return nil
}

func (r *appointmentRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.GetDB().ExecContext(ctx, `DELETE FROM appointments WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete appointment: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *appointmentRepository) List(ctx context.Context, filters *model.AppointmentFilters) ([]*model.Appointment, int, error) {
	where := " WHERE 1=1"
	args := []interface{}{}
	argCount := 1

	if filters != nil {
		if filters.Status != "" {
			where += fmt.Sprintf(" AND status = $%d", argCount)
			args = append(args, filters.Status)
			argCount++
		}
		if filters.EmployeeID != nil {
			where += fmt.Sprintf(" AND employee_id = $%d", argCount)
			args = append(args, *filters.EmployeeID)
			argCount++
		}
		if filters.DateFrom != nil {
			where += fmt.Sprintf(" AND created_at >= $%d", argCount)
			args = append(args, *filters.DateFrom)
			argCount++
		}
		if filters.DateTo != nil {
			where += fmt.Sprintf(" AND created_at <= $%d", argCount)
			args = append(args, *filters.DateTo)
			argCount++
		}
	}

	var total int
	if err := r.GetDB().GetContext(ctx, &total, "SELECT COUNT(*) FROM appointments"+where, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to count appointments: %w", err)
	}

	query := `SELECT ` + appointmentColumns + ` FROM appointments` + where + " ORDER BY created_at DESC"
	if filters != nil && filters.PageSize > 0 {
		query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", argCount, argCount+1)
		args = append(args, filters.PageSize, filters.Offset())
	}

	var appointments []*model.Appointment
	if err := r.GetDB().SelectContext(ctx, &appointments, query, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to list appointments: %w", err)
	}
	return appointments, total, nil
}

func (r *appointmentRepository) ListByEmployeeUser(ctx context.Context, userID uuid.UUID, status model.AppointmentStatus) ([]*model.Appointment, error) {
	query := `
		SELECT ` + appointmentColumns + `
		FROM appointments
		WHERE employee_id IN (SELECT id FROM employees WHERE user_id = $1)
	`
	args := []interface{}{userID}

	if status != "" {
		query += " AND status = $2"
		args = append(args, status)
	}
	query += " ORDER BY created_at DESC"

	var appointments []*model.Appointment
	if err := r.GetDB().SelectContext(ctx, &appointments, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list employee appointments: %w", err)
	}
	return appointments, nil
}

func (r *appointmentRepository) ListByMedicalStaff(ctx context.Context, staffID uuid.UUID, filters *model.AppointmentFilters) ([]*model.Appointment, int, error) {
	where := " WHERE (nurse_id = $1 OR doctor_id = $1)"
	args := []interface{}{staffID}
	argCount := 2

	if filters != nil && filters.Status != "" {
		where += fmt.Sprintf(" AND status = $%d", argCount)
		args = append(args, filters.Status)
		argCount++
	}

	var total int
	if err := r.GetDB().GetContext(ctx, &total, "SELECT COUNT(*) FROM appointments"+where, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to count staff appointments: %w", err)
	}

	query := `SELECT ` + appointmentColumns + ` FROM appointments` + where + " ORDER BY created_at DESC"
	if filters != nil && filters.PageSize > 0 {
		query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", argCount, argCount+1)
		args = append(args, filters.PageSize, filters.Offset())
	}

	var appointments []*model.Appointment
	if err := r.GetDB().SelectContext(ctx, &appointments, query, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to list staff appointments: %w", err)
	}
	return appointments, total, nil
}

func (r *appointmentRepository) ListUpcomingByEmployeeUser(ctx context.Context, userID uuid.UUID, after time.Time) ([]*model.Appointment, error) {
	query := `
		SELECT ` + appointmentColumns + `
		FROM appointments
		WHERE employee_id IN (SELECT id FROM employees WHERE user_id = $1)
		AND appointment_date > $2
		AND status NOT IN ('ANNULE', 'TERMINE')
		ORDER BY appointment_date ASC
	`
	var appointments []*model.Appointment
	if err := r.GetDB().SelectContext(ctx, &appointments, query, userID, after); err != nil {
		return nil, fmt.Errorf("failed to list upcoming appointments: %w", err)
	}
	return appointments, nil
}
