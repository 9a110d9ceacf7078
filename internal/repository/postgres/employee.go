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

const employeeColumns = `
	id, user_id, first_name, last_name, email, phone_number, position,
	department, employee_code, hire_date, manager1_id, manager2_id,
	created_at, updated_at
`

func (r *employeeRepository) Create(ctx context.Context, employee *model.Employee) error {
	query := `
		INSERT INTO employees (
			id, user_id, first_name, last_name, email, phone_number, position,
			department, employee_code, hire_date, manager1_id, manager2_id,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`
	_, err := r.GetDB().ExecContext(ctx, query,
		employee.ID,
		employee.UserID,
		employee.FirstName,
		employee.LastName,
		employee.Email,
		employee.PhoneNumber,
		employee.Position,
		employee.Department,
		employee.EmployeeCode,
		employee.HireDate,
		employee.Manager1ID,
		employee.Manager2ID,
		employee.CreatedAt,
		employee.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create employee: %w", err)
	}
	return nil
}

func (r *employeeRepository) Get(ctx context.Context, id uuid.UUID) (*model.Employee, error) {
	query := `SELECT ` + employeeColumns + ` FROM employees WHERE id = $1`
	var employee model.Employee
	if err := r.GetDB().GetContext(ctx, &employee, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get employee: %w", err)
	}
	return &employee, nil
}

func (r *employeeRepository) GetByUserID(ctx context.Context, userID uuid.UUID) (*model.Employee, error) {
	query := `SELECT ` + employeeColumns + ` FROM employees WHERE user_id = $1`
	var employee model.Employee
	if err := r.GetDB().GetContext(ctx, &employee, query, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get employee by user: %w", err)
	}
	return &employee, nil
}

func (r *employeeRepository) GetByEmail(ctx context.Context, email string) (*model.Employee, error) {
	query := `SELECT ` + employeeColumns + ` FROM employees WHERE email = $1`
	var employee model.Employee
	if err := r.GetDB().GetContext(ctx, &employee, query, email); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get employee by email: %w", err)
	}
	return &employee, nil
}

func (r *employeeRepository) Update(ctx context.Context, employee *model.Employee) error {
	query := `
		UPDATE employees
		SET first_name = $1, last_name = $2, email = $3, phone_number = $4,
			position = $5, department = $6, employee_code = $7, hire_date = $8,
			manager1_id = $9, manager2_id = $10, updated_at = $11
		WHERE id = $12
	`
	employee.UpdatedAt = time.Now()

	result, err := r.GetDB().ExecContext(ctx, query,
		employee.FirstName,
		employee.LastName,
		employee.Email,
		employee.PhoneNumber,
		employee.Position,
		employee.Department,
		employee.EmployeeCode,
		employee.HireDate,
		employee.Manager1ID,
		employee.Manager2ID,
		employee.UpdatedAt,
		employee.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update employee: %w", err)
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

func (r *employeeRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.GetDB().ExecContext(ctx, `DELETE FROM employees WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete employee: %w", err)
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

func (r *employeeRepository) List(ctx context.Context, filters *model.EmployeeFilters) ([]*model.Employee, error) {
	query := `SELECT ` + employeeColumns + ` FROM employees WHERE 1=1`
	args := []interface{}{}
	argCount := 1

	if filters != nil && filters.Department != "" {
		query += fmt.Sprintf(" AND department = $%d", argCount)
		args = append(args, filters.Department)
		argCount++
	}

	if filters != nil && filters.Position != "" {
		query += fmt.Sprintf(" AND position = $%d", argCount)
		args = append(args, filters.Position)
		argCount++
	}

	if filters != nil && filters.SearchTerm != "" {
		query += fmt.Sprintf(" AND (first_name ILIKE $%d OR last_name ILIKE $%d OR email ILIKE $%d)", argCount, argCount, argCount)
		args = append(args, "%"+filters.SearchTerm+"%")
		argCount++
	}

	query += " ORDER BY last_name, first_name"

	var employees []*model.Employee
	if err := r.GetDB().SelectContext(ctx, &employees, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list employees: %w", err)
	}
	return employees, nil
}
