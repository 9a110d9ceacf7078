package employee

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/oshworks/osh-api/internal/model"
	"github.com/oshworks/osh-api/internal/repository"
	"github.com/oshworks/osh-api/internal/repository/postgres"
	apperrors "github.com/oshworks/osh-api/pkg/errors"
)

type Service interface {
	Create(ctx context.Context, req *model.CreateEmployeeRequest) (*model.Employee, error)
	Get(ctx context.Context, id uuid.UUID) (*model.Employee, error)
	GetByUserID(ctx context.Context, userID uuid.UUID) (*model.Employee, error)
	Update(ctx context.Context, id uuid.UUID, req *model.UpdateEmployeeRequest) (*model.Employee, error)
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, filters *model.EmployeeFilters) ([]*model.Employee, error)
}

type service struct {
	employees repository.EmployeeRepository
	users     repository.UserRepository
}

func NewService(employees repository.EmployeeRepository, users repository.UserRepository) Service {
	return &service{
		employees: employees,
		users:     users,
	}
}

func (s *service) Create(ctx context.Context, req *model.CreateEmployeeRequest) (*model.Employee, error) {
	if _, err := s.users.Get(ctx, req.UserID); err != nil {
		if postgres.IsNotFound(err) {
			return nil, apperrors.NotFound("user", err)
		}
		return nil, apperrors.Internal(err)
	}

	if _, err := s.employees.GetByUserID(ctx, req.UserID); err == nil {
		return nil, apperrors.Conflict("user already has an employee record", nil)
	} else if !postgres.IsNotFound(err) {
		return nil, apperrors.Internal(err)
	}

	now := time.Now()
	employee := &model.Employee{
		Base: model.Base{
			ID:        uuid.New(),
			CreatedAt: now,
			UpdatedAt: now,
		},
		UserID:       req.UserID,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Email:        req.Email,
		PhoneNumber:  req.PhoneNumber,
		Position:     req.Position,
		Department:   req.Department,
		EmployeeCode: req.EmployeeCode,
		HireDate:     req.HireDate,
		Manager1ID:   req.Manager1ID,
		Manager2ID:   req.Manager2ID,
	}

	if err := s.validateManagers(ctx, employee); err != nil {
		return nil, err
	}

	if err := s.employees.Create(ctx, employee); err != nil {
		return nil, apperrors.Internal(err)
	}
	return employee, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*model.Employee, error) {
	employee, err := s.employees.Get(ctx, id)
	if err != nil {
		if postgres.IsNotFound(err) {
			return nil, apperrors.NotFound("employee", err)
		}
		return nil, apperrors.Internal(err)
	}
	return employee, nil
}

func (s *service) GetByUserID(ctx context.Context, userID uuid.UUID) (*model.Employee, error) {
	employee, err := s.employees.GetByUserID(ctx, userID)
	if err != nil {
		if postgres.IsNotFound(err) {
			return nil, apperrors.NotFound("employee", err)
		}
		return nil, apperrors.Internal(err)
	}
	return employee, nil
}

func (s *service) Update(ctx context.Context, id uuid.UUID, req *model.UpdateEmployeeRequest) (*model.Employee, error) {
	employee, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.FirstName != nil {
		employee.FirstName = *req.FirstName
	}
	if req.LastName != nil {
		employee.LastName = *req.LastName
	}
	if req.PhoneNumber != nil {
		employee.PhoneNumber = req.PhoneNumber
	}
	if req.Position != nil {
		employee.Position = req.Position
	}
	if req.Department != nil {
		employee.Department = req.Department
	}
	if req.HireDate != nil {
		employee.HireDate = req.HireDate
	}
	if req.Manager1ID != nil {
		employee.Manager1ID = req.Manager1ID
	}
	if req.Manager2ID != nil {
		employee.Manager2ID = req.Manager2ID
	}
	employee.UpdatedAt = time.Now()

	if err := s.validateManagers(ctx, employee); err != nil {
		return nil, err
	}

	if err := s.employees.Update(ctx, employee); err != nil {
		return nil, apperrors.Internal(err)
	}
	return employee, nil
}

func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.employees.Delete(ctx, id); err != nil {
		if postgres.IsNotFound(err) {
			return apperrors.NotFound("employee", err)
		}
		return apperrors.Internal(err)
	}
	return nil
}

func (s *service) List(ctx context.Context, filters *model.EmployeeFilters) ([]*model.Employee, error) {
	employees, err := s.employees.List(ctx, filters)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	return employees, nil
}

// validateManagers rejects a direct self-reference and verifies that
// referenced managers exist. Deeper cycles are not checked.
func (s *service) validateManagers(ctx context.Context, employee *model.Employee) error {
	for _, managerID := range []*uuid.UUID{employee.Manager1ID, employee.Manager2ID} {
		if managerID == nil {
			continue
		}
		if *managerID == employee.ID {
			return apperrors.Validation("an employee cannot be their own manager", nil)
		}
		if _, err := s.employees.Get(ctx, *managerID); err != nil {
			if postgres.IsNotFound(err) {
				return apperrors.Validation("manager does not exist", err)
			}
			return apperrors.Internal(err)
		}
	}
	return nil
}
