package user

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/oshworks/osh-api/internal/model"
	"github.com/oshworks/osh-api/internal/repository"
	"github.com/oshworks/osh-api/internal/repository/postgres"
	apperrors "github.com/oshworks/osh-api/pkg/errors"
	"github.com/oshworks/osh-api/pkg/logger"
	"github.com/oshworks/osh-api/pkg/security"
)

// ActivationSender kicks off the account activation flow for a freshly
// created user. Satisfied by the account service.
type ActivationSender interface {
	SendActivationCode(ctx context.Context, email string) error
}

type Service interface {
	Create(ctx context.Context, req *model.CreateUserRequest) (*model.User, error)
	Get(ctx context.Context, id uuid.UUID) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	Update(ctx context.Context, id uuid.UUID, req *model.UpdateUserRequest) (*model.User, error)
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, filters *model.UserFilters) ([]*model.User, error)
	ListRoles(ctx context.Context) ([]*model.Role, error)
}

type service struct {
	users      repository.UserRepository
	roles      repository.RoleRepository
	hasher     security.PasswordHasher
	activation ActivationSender
	logger     *logger.Logger
}

// NewService builds the user directory service. activation may be nil
// when the deployment provisions credentials out of band.
func NewService(
	users repository.UserRepository,
	roles repository.RoleRepository,
	hasher security.PasswordHasher,
	activation ActivationSender,
	logger *logger.Logger,
) Service {
	return &service{
		users:      users,
		roles:      roles,
		hasher:     hasher,
		activation: activation,
		logger:     logger,
	}
}

func (s *service) Create(ctx context.Context, req *model.CreateUserRequest) (*model.User, error) {
	if _, err := s.users.GetByEmail(ctx, req.Email); err == nil {
		return nil, apperrors.Conflict("email already registered", nil)
	} else if !postgres.IsNotFound(err) {
		return nil, apperrors.Internal(err)
	}

	roleNames, err := model.ParseRoles(req.Roles)
	if err != nil {
		return nil, apperrors.Validation(err.Error(), err)
	}
	roles, err := s.roles.FindByNames(ctx, roleNames)
	if err != nil {
		return nil, apperrors.Validation("unknown role", err)
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, apperrors.Internal(err)
	}

	now := time.Now()
	user := &model.User{
		Base: model.Base{
			ID:        uuid.New(),
			CreatedAt: now,
			UpdatedAt: now,
		},
		Email:        req.Email,
		Name:         req.Name,
		PasswordHash: hash,
		Phone:        req.Phone,
		Active:       true,
	}
	for _, r := range roles {
		user.Roles = append(user.Roles, *r)
	}

	if err := s.users.Create(ctx, user); err != nil {
		return nil, apperrors.Internal(err)
	}

	// Best effort, the account is usable either way.
	if s.activation != nil {
		if err := s.activation.SendActivationCode(ctx, user.Email); err != nil {
			s.logger.Warn("failed to send activation code", "email", user.Email, "error", err.Error())
		}
	}
	return user, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*model.User, error) {
	user, err := s.users.Get(ctx, id)
	if err != nil {
		if postgres.IsNotFound(err) {
			return nil, apperrors.NotFound("user", err)
		}
		return nil, apperrors.Internal(err)
	}
	return user, nil
}

func (s *service) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if postgres.IsNotFound(err) {
			return nil, apperrors.NotFound("user", err)
		}
		return nil, apperrors.Internal(err)
	}
	return user, nil
}

func (s *service) Update(ctx context.Context, id uuid.UUID, req *model.UpdateUserRequest) (*model.User, error) {
	user, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		user.Name = *req.Name
	}
	if req.Email != nil {
		user.Email = *req.Email
	}
	if req.Phone != nil {
		user.Phone = req.Phone
	}
	if req.Active != nil {
		user.Active = *req.Active
	}
	user.UpdatedAt = time.Now()

	if err := s.users.Update(ctx, user); err != nil {
		return nil, apperrors.Internal(err)
	}

	if len(req.Roles) > 0 {
		roleNames, err := model.ParseRoles(req.Roles)
		if err != nil {
			return nil, apperrors.Validation(err.Error(), err)
		}
		roles, err := s.roles.FindByNames(ctx, roleNames)
		if err != nil {
			return nil, apperrors.Validation("unknown role", err)
		}
		ids := make([]uuid.UUID, len(roles))
		user.Roles = user.Roles[:0]
		for i, r := range roles {
			ids[i] = r.ID
			user.Roles = append(user.Roles, *r)
		}
		if err := s.users.SetRoles(ctx, user.ID, ids); err != nil {
			return nil, apperrors.Internal(err)
		}
	}
	return user, nil
}

// Delete deactivates the account. Rows are never removed so audit
// references stay resolvable.
func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.users.Delete(ctx, id); err != nil {
		if postgres.IsNotFound(err) {
			return apperrors.NotFound("user", err)
		}
		return apperrors.Internal(err)
	}
	return nil
}

func (s *service) List(ctx context.Context, filters *model.UserFilters) ([]*model.User, error) {
	users, err := s.users.List(ctx, filters)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	return users, nil
}

func (s *service) ListRoles(ctx context.Context) ([]*model.Role, error) {
	roles, err := s.roles.List(ctx)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	return roles, nil
}
