package auth

import (
	"context"

	"github.com/oshworks/osh-api/internal/identity"
	"github.com/oshworks/osh-api/internal/model"
	"github.com/oshworks/osh-api/internal/repository"
	"github.com/oshworks/osh-api/internal/repository/postgres"
	"github.com/oshworks/osh-api/pkg/auth"
	apperrors "github.com/oshworks/osh-api/pkg/errors"
)

type Service interface {
	Login(ctx context.Context, email, password string) (*model.TokenResponse, error)
	Refresh(ctx context.Context, refreshToken string) (*model.TokenResponse, error)
}

type service struct {
	users    repository.UserRepository
	provider identity.Provider
	jwt      auth.JWTService
}

func NewService(users repository.UserRepository, provider identity.Provider, jwt auth.JWTService) Service {
	return &service{
		users:    users,
		provider: provider,
		jwt:      jwt,
	}
}

// Login checks credentials against the identity provider, then issues
// a token pair from the local user record. Deactivated users are
// rejected even when the provider accepts them.
func (s *service) Login(ctx context.Context, email, password string) (*model.TokenResponse, error) {
	if err := s.provider.VerifyCredentials(ctx, email, password); err != nil {
		return nil, err
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if postgres.IsNotFound(err) {
			return nil, apperrors.Unauthorized("invalid credentials", err)
		}
		return nil, apperrors.Internal(err)
	}
	if !user.Active {
		return nil, apperrors.Unauthorized("account deactivated", nil)
	}

	return s.issue(user)
}

func (s *service) Refresh(ctx context.Context, refreshToken string) (*model.TokenResponse, error) {
	claims, err := s.jwt.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, apperrors.Unauthorized("invalid refresh token", err)
	}

	user, err := s.users.Get(ctx, claims.UserID)
	if err != nil {
		if postgres.IsNotFound(err) {
			return nil, apperrors.Unauthorized("invalid refresh token", err)
		}
		return nil, apperrors.Internal(err)
	}
	if !user.Active {
		return nil, apperrors.Unauthorized("account deactivated", nil)
	}

	return s.issue(user)
}

func (s *service) issue(user *model.User) (*model.TokenResponse, error) {
	access, err := s.jwt.GenerateAccessToken(user)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	refresh, err := s.jwt.GenerateRefreshToken(user)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	return &model.TokenResponse{
		AccessToken:  access,
		RefreshToken: refresh,
	}, nil
}
