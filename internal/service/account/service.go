package account

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"math/big"
	"time"

	"github.com/oshworks/osh-api/internal/email"
	"github.com/oshworks/osh-api/internal/identity"
	"github.com/oshworks/osh-api/internal/model"
	"github.com/oshworks/osh-api/internal/repository"
	"github.com/oshworks/osh-api/internal/repository/postgres"
	apperrors "github.com/oshworks/osh-api/pkg/errors"
	"github.com/oshworks/osh-api/pkg/logger"
	"github.com/oshworks/osh-api/pkg/ratelimit"
	"github.com/oshworks/osh-api/pkg/security"
)

const (
	resetTokenTTL     = 30 * time.Minute
	activationCodeTTL = 10 * time.Minute
)

// Service covers the credential flows. Password mutations are delegated
// to the identity provider; this service only manages the tokens and
// codes around them.
type Service interface {
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, token, newPassword string) error
	ChangePassword(ctx context.Context, actor *model.AuthUser, currentPassword, newPassword string) error
	SendActivationCode(ctx context.Context, email string) error
	VerifyActivationCode(ctx context.Context, email, code string) error
}

type service struct {
	tokens   repository.TokenRepository
	users    repository.UserRepository
	provider identity.Provider
	email    email.Service
	limiter  ratelimit.Limiter
	logger   *logger.Logger
}

func NewService(
	tokens repository.TokenRepository,
	users repository.UserRepository,
	provider identity.Provider,
	emailSvc email.Service,
	limiter ratelimit.Limiter,
	logger *logger.Logger,
) Service {
	return &service{
		tokens:   tokens,
		users:    users,
		provider: provider,
		email:    emailSvc,
		limiter:  limiter,
		logger:   logger,
	}
}

// ForgotPassword issues a fresh reset token. An unknown address still
// returns success so the endpoint cannot be used to enumerate accounts.
func (s *service) ForgotPassword(ctx context.Context, address string) error {
	if !s.limiter.Allow("forgot:" + address) {
		return apperrors.RateLimited("please wait before requesting another reset")
	}

	if _, err := s.users.GetByEmail(ctx, address); err != nil {
		if postgres.IsNotFound(err) {
			s.logger.Debug("password reset requested for unknown email", "email", address)
			return nil
		}
		return apperrors.Internal(err)
	}

	token, err := randomToken()
	if err != nil {
		return apperrors.Internal(err)
	}

	if err := s.tokens.DeleteResetTokensByEmail(ctx, address); err != nil {
		return apperrors.Internal(err)
	}
	now := time.Now()
	if err := s.tokens.UpsertResetToken(ctx, &model.PasswordResetToken{
		Email:     address,
		Token:     token,
		ExpiresAt: now.Add(resetTokenTTL),
		CreatedAt: now,
	}); err != nil {
		return apperrors.Internal(err)
	}

	if err := s.email.SendPasswordReset(ctx, address, token); err != nil {
		s.logger.Error(err, "failed to send password reset email", "email", address)
	}
	return nil
}

func (s *service) ResetPassword(ctx context.Context, token, newPassword string) error {
	reset, err := s.tokens.GetResetToken(ctx, token)
	if err != nil {
		if postgres.IsNotFound(err) {
			return apperrors.Forbidden("invalid or expired reset token", err)
		}
		return apperrors.Internal(err)
	}
	if time.Now().After(reset.ExpiresAt) {
		return apperrors.Forbidden("invalid or expired reset token", nil)
	}

	if err := security.ValidatePasswordPolicy(newPassword); err != nil {
		return apperrors.Validation(err.Error(), err)
	}

	if err := s.provider.SetPassword(ctx, reset.Email, newPassword); err != nil {
		return err
	}

	if err := s.tokens.DeleteResetToken(ctx, token); err != nil {
		s.logger.Error(err, "failed to delete consumed reset token", "email", reset.Email)
	}
	return nil
}

func (s *service) ChangePassword(ctx context.Context, actor *model.AuthUser, currentPassword, newPassword string) error {
	if err := s.provider.VerifyCredentials(ctx, actor.Email, currentPassword); err != nil {
		if appErr, ok := apperrors.AsAppError(err); ok && appErr.Code == apperrors.ErrUnauthorized {
			return apperrors.Forbidden("current password is incorrect", err)
		}
		return err
	}

	if err := security.ValidatePasswordPolicy(newPassword); err != nil {
		return apperrors.Validation(err.Error(), err)
	}

	return s.provider.SetPassword(ctx, actor.Email, newPassword)
}

func (s *service) SendActivationCode(ctx context.Context, address string) error {
	if !s.limiter.Allow("activation:" + address) {
		return apperrors.RateLimited("please wait before requesting another code")
	}

	code, err := randomCode()
	if err != nil {
		return apperrors.Internal(err)
	}

	now := time.Now()
	if err := s.tokens.UpsertActivationCode(ctx, &model.ActivationCode{
		Email:     address,
		Code:      code,
		ExpiresAt: now.Add(activationCodeTTL),
		Used:      false,
		CreatedAt: now,
	}); err != nil {
		return apperrors.Internal(err)
	}

	if err := s.email.SendActivationCode(ctx, address, code); err != nil {
		s.logger.Error(err, "failed to send activation code email", "email", address)
	}
	return nil
}

func (s *service) VerifyActivationCode(ctx context.Context, address, code string) error {
	activation, err := s.tokens.GetActivationCode(ctx, address)
	if err != nil {
		if postgres.IsNotFound(err) {
			return apperrors.Forbidden("invalid activation code", err)
		}
		return apperrors.Internal(err)
	}

	if activation.Used || activation.Code != code || time.Now().After(activation.ExpiresAt) {
		return apperrors.Forbidden("invalid activation code", nil)
	}

	if err := s.tokens.MarkActivationCodeUsed(ctx, address); err != nil {
		return apperrors.Internal(err)
	}

	if err := s.provider.SetEmailVerified(ctx, address); err != nil {
		s.logger.Error(err, "failed to flag email verified at identity provider", "email", address)
	}
	return nil
}

// randomToken returns 32 random bytes, url-safe encoded.
func randomToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// randomCode returns a 6-digit numeric code.
func randomCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
