package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/oshworks/osh-api/internal/model"
)

func (r *userRepository) Create(ctx context.Context, user *model.User) error {
	return r.WithTx(ctx, func(tx *sqlx.Tx) error {
		query := `
			INSERT INTO users (id, email, name, password_hash, phone, active, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`
		_, err := tx.ExecContext(ctx, query,
			user.ID,
			user.Email,
			user.Name,
			user.PasswordHash,
			user.Phone,
			user.Active,
			user.CreatedAt,
			user.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to create user: %w", err)
		}
		return r.setRolesTx(ctx, tx, user.ID, roleIDs(user.Roles))
	})
}

func (r *userRepository) Get(ctx context.Context, id uuid.UUID) (*model.User, error) {
	query := `
		SELECT id, email, name, password_hash, phone, active, created_at, updated_at
		FROM users
		WHERE id = $1
	`
	var user model.User
	if err := r.GetDB().GetContext(ctx, &user, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if err := r.loadRoles(ctx, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	query := `
		SELECT id, email, name, password_hash, phone, active, created_at, updated_at
		FROM users
		WHERE email = $1
	`
	var user model.User
	if err := r.GetDB().GetContext(ctx, &user, query, email); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}
	if err := r.loadRoles(ctx, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) Update(ctx context.Context, user *model.User) error {
	query := `
		UPDATE users
		SET email = $1, name = $2, password_hash = $3, phone = $4, active = $5, updated_at = $6
		WHERE id = $7
	`
	user.UpdatedAt = time.Now()

	result, err := r.GetDB().ExecContext(ctx, query,
		user.Email,
		user.Name,
		user.PasswordHash,
		user.Phone,
		user.Active,
		user.UpdatedAt,
		user.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
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

func (r *userRepository) Delete(ctx context.Context, id uuid.UUID) error {
	// Soft delete: user records are deactivated, never removed.
	query := `
		UPDATE users
		SET active = false, updated_at = NOW()
		WHERE id = $1
	`
	result, err := r.GetDB().ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to deactivate user: %w", err)
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

func (r *userRepository) List(ctx context.Context, filters *model.UserFilters) ([]*model.User, error) {
	query := `
		SELECT DISTINCT u.id, u.email, u.name, u.password_hash, u.phone, u.active, u.created_at, u.updated_at
		FROM users u
	`
	args := []interface{}{}
	where := " WHERE 1=1"
	argCount := 1

	if filters != nil && filters.Role != "" {
		query += `
			JOIN user_roles ur ON ur.user_id = u.id
			JOIN roles ro ON ro.id = ur.role_id
		`
		where += fmt.Sprintf(" AND ro.name = $%d", argCount)
		args = append(args, filters.Role)
		argCount++
	}

	if filters != nil && filters.Active != nil {
		where += fmt.Sprintf(" AND u.active = $%d", argCount)
		args = append(args, *filters.Active)
		argCount++
	}

	if filters != nil && filters.SearchTerm != "" {
		where += fmt.Sprintf(" AND (u.email ILIKE $%d OR u.name ILIKE $%d)", argCount, argCount)
		args = append(args, "%"+filters.SearchTerm+"%")
		argCount++
	}

	query += where + " ORDER BY u.created_at DESC"

	var users []*model.User
	if err := r.GetDB().SelectContext(ctx, &users, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	for _, u := range users {
		if err := r.loadRoles(ctx, u); err != nil {
			return nil, err
		}
	}
	return users, nil
}

func (r *userRepository) FindByRole(ctx context.Context, role model.RoleName) ([]*model.User, error) {
	query := `
		SELECT u.id, u.email, u.name, u.password_hash, u.phone, u.active, u.created_at, u.updated_at
		FROM users u
		JOIN user_roles ur ON ur.user_id = u.id
		JOIN roles ro ON ro.id = ur.role_id
		WHERE ro.name = $1 AND u.active = true
		ORDER BY u.created_at
	`
	var users []*model.User
	if err := r.GetDB().SelectContext(ctx, &users, query, role); err != nil {
		return nil, fmt.Errorf("failed to find users by role: %w", err)
	}
	return users, nil
}

func (r *userRepository) SetRoles(ctx context.Context, userID uuid.UUID, roleIDs []uuid.UUID) error {
	return r.WithTx(ctx, func(tx *sqlx.Tx) error {
		return r.setRolesTx(ctx, tx, userID, roleIDs)
	})
}

func (r *userRepository) setRolesTx(ctx context.Context, tx *sqlx.Tx, userID uuid.UUID, roleIDs []uuid.UUID) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM user_roles WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("failed to clear user roles: %w", err)
	}
	for _, roleID := range roleIDs {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO user_roles (user_id, role_id) VALUES ($1, $2)`,
			userID, roleID,
		)
		if err != nil {
			return fmt.Errorf("failed to assign role: %w", err)
		}
	}
	return nil
}

func (r *userRepository) loadRoles(ctx context.Context, user *model.User) error {
	query := `
		SELECT ro.id, ro.name
		FROM roles ro
		JOIN user_roles ur ON ur.role_id = ro.id
		WHERE ur.user_id = $1
	`
	var roles []model.Role
	if err := r.GetDB().SelectContext(ctx, &roles, query, user.ID); err != nil {
		return fmt.Errorf("failed to load user roles: %w", err)
	}
	user.Roles = roles
	return nil
}

func roleIDs(roles []model.Role) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(roles))
	for _, r := range roles {
		ids = append(ids, r.ID)
	}
	return ids
}
