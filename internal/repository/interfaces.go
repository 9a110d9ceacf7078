package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/oshworks/osh-api/internal/model"
)

type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	Get(ctx context.Context, id uuid.UUID) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	Update(ctx context.Context, user *model.User) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, filters *model.UserFilters) ([]*model.User, error)
	FindByRole(ctx context.Context, role model.RoleName) ([]*model.User, error)
	SetRoles(ctx context.Context, userID uuid.UUID, roleIDs []uuid.UUID) error
}

type RoleRepository interface {
	List(ctx context.Context) ([]*model.Role, error)
	FindByNames(ctx context.Context, names []model.RoleName) ([]*model.Role, error)
}

type EmployeeRepository interface {
	Create(ctx context.Context, employee *model.Employee) error
	Get(ctx context.Context, id uuid.UUID) (*model.Employee, error)
	GetByUserID(ctx context.Context, userID uuid.UUID) (*model.Employee, error)
	GetByEmail(ctx context.Context, email string) (*model.Employee, error)
	Update(ctx context.Context, employee *model.Employee) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, filters *model.EmployeeFilters) ([]*model.Employee, error)
}

type AppointmentRepository interface {
	Create(ctx context.Context, appointment *model.Appointment) error
	Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error)
	// Update persists all mutable appointment fields with an optimistic
	// version check; a stale version yields ErrVersionConflict.
	Update(ctx context.Context, appointment *model.Appointment) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, filters *model.AppointmentFilters) ([]*model.Appointment, int, error)
	ListByEmployeeUser(ctx context.Context, userID uuid.UUID, status model.AppointmentStatus) ([]*model.Appointment, error)
	ListByMedicalStaff(ctx context.Context, staffID uuid.UUID, filters *model.AppointmentFilters) ([]*model.Appointment, int, error)
	ListUpcomingByEmployeeUser(ctx context.Context, userID uuid.UUID, after time.Time) ([]*model.Appointment, error)
}

type NotificationRepository interface {
	Create(ctx context.Context, notification *model.Notification) error
	Get(ctx context.Context, id uuid.UUID) (*model.Notification, error)
	ListByUser(ctx context.Context, userID uuid.UUID, p model.Pagination) ([]*model.Notification, int, error)
	ListUnreadByUser(ctx context.Context, userID uuid.UUID) ([]*model.Notification, error)
	CountUnreadByUser(ctx context.Context, userID uuid.UUID) (int, error)
	MarkRead(ctx context.Context, id uuid.UUID) error
	MarkAllRead(ctx context.Context, userID uuid.UUID) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type TokenRepository interface {
	// Password reset tokens: single active record per email.
	UpsertResetToken(ctx context.Context, token *model.PasswordResetToken) error
	GetResetToken(ctx context.Context, token string) (*model.PasswordResetToken, error)
	DeleteResetToken(ctx context.Context, token string) error
	DeleteResetTokensByEmail(ctx context.Context, email string) error

	// Activation codes: unique per email by constraint.
	UpsertActivationCode(ctx context.Context, code *model.ActivationCode) error
	GetActivationCode(ctx context.Context, email string) (*model.ActivationCode, error)
	MarkActivationCodeUsed(ctx context.Context, email string) error
}
