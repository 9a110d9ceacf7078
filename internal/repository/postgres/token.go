package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/oshworks/osh-api/internal/model"
)

func (r *tokenRepository) UpsertResetToken(ctx context.Context, token *model.PasswordResetToken) error {
	query := `
		INSERT INTO password_reset_tokens (email, token, expires_at, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (email) DO UPDATE SET
			token = EXCLUDED.token,
			expires_at = EXCLUDED.expires_at,
			created_at = EXCLUDED.created_at
	`
	_, err := r.GetDB().ExecContext(ctx, query,
		token.Email, token.Token, token.ExpiresAt, token.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert reset token: %w", err)
	}
	return nil
}

func (r *tokenRepository) GetResetToken(ctx context.Context, token string) (*model.PasswordResetToken, error) {
	query := `
		SELECT email, token, expires_at, created_at
		FROM password_reset_tokens
		WHERE token = $1
	`
	var reset model.PasswordResetToken
	if err := r.GetDB().GetContext(ctx, &reset, query, token); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get reset token: %w", err)
	}
	return &reset, nil
}

func (r *tokenRepository) DeleteResetToken(ctx context.Context, token string) error {
	_, err := r.GetDB().ExecContext(ctx,
		`DELETE FROM password_reset_tokens WHERE token = $1`, token)
	if err != nil {
		return fmt.Errorf("failed to delete reset token: %w", err)
	}
	return nil
}

func (r *tokenRepository) DeleteResetTokensByEmail(ctx context.Context, email string) error {
	_, err := r.GetDB().ExecContext(ctx,
		`DELETE FROM password_reset_tokens WHERE email = $1`, email)
	if err != nil {
		return fmt.Errorf("failed to delete reset tokens: %w", err)
	}
	return nil
}

func (r *tokenRepository) UpsertActivationCode(ctx context.Context, code *model.ActivationCode) error {
	query := `
		INSERT INTO activation_codes (email, code, expires_at, used, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (email) DO UPDATE SET
			code = EXCLUDED.code,
			expires_at = EXCLUDED.expires_at,
			used = EXCLUDED.used,
			created_at = EXCLUDED.created_at
	`
	_, err := r.GetDB().ExecContext(ctx, query,
		code.Email, code.Code, code.ExpiresAt, code.Used, code.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert activation code: %w", err)
	}
	return nil
}

func (r *tokenRepository) GetActivationCode(ctx context.Context, email string) (*model.ActivationCode, error) {
	query := `
		SELECT email, code, expires_at, used, created_at
		FROM activation_codes
		WHERE email = $1
	`
	var activation model.ActivationCode
	if err := r.GetDB().GetContext(ctx, &activation, query, email); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get activation code: %w", err)
	}
	return &activation, nil
}

func (r *tokenRepository) MarkActivationCodeUsed(ctx context.Context, email string) error {
	result, err := r.GetDB().ExecContext(ctx,
		`UPDATE activation_codes SET used = true WHERE email = $1`, email)
	if err != nil {
		return fmt.Errorf("failed to mark activation code used: %w", err)
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
