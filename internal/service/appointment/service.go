package appointment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"

	"github.com/oshworks/osh-api/internal/model"
	"github.com/oshworks/osh-api/internal/repository"
	"github.com/oshworks/osh-api/internal/repository/postgres"
	"github.com/oshworks/osh-api/internal/service/notification"
	apperrors "github.com/oshworks/osh-api/pkg/errors"
	"github.com/oshworks/osh-api/pkg/logger"
)

// Service drives the medical visit workflow: request, slot proposal,
// confirmation, reschedule, cancellation, and the administrative
// overrides. Every mutation persists first; notification fan-out is
// best-effort after commit.
type Service interface {
	Create(ctx context.Context, req *model.CreateAppointmentRequest, actor *model.AuthUser) (*model.Appointment, error)
	CreateObligatory(ctx context.Context, reqs []*model.CreateAppointmentRequest, actor *model.AuthUser) ([]*model.Appointment, error)
	ProposeSlot(ctx context.Context, id uuid.UUID, req *model.ProposeSlotRequest, actor *model.AuthUser) (*model.Appointment, error)
	Confirm(ctx context.Context, id uuid.UUID, notes string) (*model.Appointment, error)
	Reschedule(ctx context.Context, id uuid.UUID, motif string) (*model.Appointment, error)
	Cancel(ctx context.Context, id uuid.UUID, reason string, actor *model.AuthUser) (*model.Appointment, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status model.AppointmentStatus, notes string) (*model.Appointment, error)
	Update(ctx context.Context, id uuid.UUID, req *model.UpdateAppointmentRequest, actor *model.AuthUser) (*model.Appointment, error)
	Delete(ctx context.Context, id uuid.UUID, actor *model.AuthUser) error
	Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error)
	List(ctx context.Context, filters *model.AppointmentFilters, actor *model.AuthUser) ([]*model.Appointment, int, error)
	GetMine(ctx context.Context, actor *model.AuthUser, status model.AppointmentStatus) ([]*model.Appointment, error)
	GetUpcoming(ctx context.Context, actor *model.AuthUser) ([]*model.Appointment, error)
}

type service struct {
	appointments repository.AppointmentRepository
	employees    repository.EmployeeRepository
	users        repository.UserRepository
	fanout       *notification.Fanout
	logger       *logger.Logger
}

func NewService(
	appointments repository.AppointmentRepository,
	employees repository.EmployeeRepository,
	users repository.UserRepository,
	fanout *notification.Fanout,
	logger *logger.Logger,
) Service {
	return &service{
		appointments: appointments,
		employees:    employees,
		users:        users,
		fanout:       fanout,
		logger:       logger,
	}
}

func (s *service) Create(ctx context.Context, req *model.CreateAppointmentRequest, actor *model.AuthUser) (*model.Appointment, error) {
	if err := requireOp(opCreate, actor); err != nil {
		return nil, err
	}

	employee, err := s.employees.Get(ctx, req.EmployeeID)
	if err != nil {
		if postgres.IsNotFound(err) {
			return nil, apperrors.NotFound("employee", err)
		}
		return nil, apperrors.Internal(err)
	}

	// An employee may only request a visit for themselves.
	if !allowed(opCreateForOthers, actor) && employee.UserID != actor.ID {
		return nil, apperrors.Forbidden("employees can only create their own appointments", nil)
	}

	now := time.Now()
	appointment := &model.Appointment{
		Base: model.Base{
			ID:        uuid.New(),
			CreatedAt: now,
			UpdatedAt: now,
		},
		EmployeeID:    employee.ID,
		Type:          req.Type,
		Status:        model.AppointmentStatusDemande,
		RequestedDate: req.RequestedDate,
		Motif:         req.Motif,
		Reason:        req.Reason,
		Notes:         req.Notes,
		Location:      req.Location,
		IsObligatory:  req.IsObligatory,
		CreatedBy:     actor.Email,
	}

	if err := s.appointments.Create(ctx, appointment); err != nil {
		return nil, apperrors.Internal(err)
	}

	s.notify(ctx, appointment, notification.ScenarioCreation, "")
	return appointment, nil
}

func (s *service) CreateObligatory(ctx context.Context, reqs []*model.CreateAppointmentRequest, actor *model.AuthUser) ([]*model.Appointment, error) {
	if err := requireOp(opObligatory, actor); err != nil {
		return nil, err
	}

	created := make([]*model.Appointment, 0, len(reqs))
	for _, req := range reqs {
		employee, err := s.employees.Get(ctx, req.EmployeeID)
		if err != nil {
			if postgres.IsNotFound(err) {
				return created, apperrors.NotFound("employee", err)
			}
			return created, apperrors.Internal(err)
		}

		now := time.Now()
		appointment := &model.Appointment{
			Base: model.Base{
				ID:        uuid.New(),
				CreatedAt: now,
				UpdatedAt: now,
			},
			EmployeeID:    employee.ID,
			Type:          req.Type,
			Status:        model.AppointmentStatusDemande,
			RequestedDate: req.RequestedDate,
			Motif:         req.Motif,
			Reason:        req.Reason,
			Notes:         req.Notes,
			Location:      req.Location,
			IsObligatory:  true,
			CreatedBy:     actor.Email,
		}

		if err := s.appointments.Create(ctx, appointment); err != nil {
			return created, apperrors.Internal(err)
		}
		created = append(created, appointment)

		s.notify(ctx, appointment, notification.ScenarioObligatory, "")
	}
	return created, nil
}

func (s *service) ProposeSlot(ctx context.Context, id uuid.UUID, req *model.ProposeSlotRequest, actor *model.AuthUser) (*model.Appointment, error) {
	if err := requireOp(opPropose, actor); err != nil {
		return nil, err
	}

	appointment, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if appointment.Status.Terminal() {
		return nil, apperrors.Conflict("appointment is closed", nil)
	}

	proposed := req.ProposedDate
	appointment.ProposedDate = &proposed
	if req.Location != nil {
		appointment.Location = req.Location
	}
	if req.Notes != nil {
		appointment.AppendNote(*req.Notes)
	}
	appointment.Status = model.AppointmentStatusPropose

	// The proposing staff member takes the matching slot on the record.
	if actor.HasRole(model.RoleDoctor) {
		actorID := actor.ID
		appointment.DoctorID = &actorID
	} else {
		actorID := actor.ID
		appointment.NurseID = &actorID
	}

	if err := s.update(ctx, appointment); err != nil {
		return nil, err
	}

	s.notifyProposal(ctx, appointment)
	return appointment, nil
}

func (s *service) Confirm(ctx context.Context, id uuid.UUID, notes string) (*model.Appointment, error) {
	appointment, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}

	if appointment.ProposedDate == nil {
		return nil, apperrors.Conflict("cannot confirm without a proposed date", nil)
	}
	if appointment.Status.Terminal() {
		return nil, apperrors.Conflict("appointment is closed", nil)
	}

	confirmed := *appointment.ProposedDate
	appointment.AppointmentDate = &confirmed
	appointment.Status = model.AppointmentStatusConfirme
	if notes != "" {
		appointment.AppendNote("Confirmation notes: " + notes)
	}

	if err := s.update(ctx, appointment); err != nil {
		return nil, err
	}

	s.notify(ctx, appointment, notification.ScenarioConfirmation, "")
	return appointment, nil
}

func (s *service) Reschedule(ctx context.Context, id uuid.UUID, motif string) (*model.Appointment, error) {
	appointment, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if appointment.Status.Terminal() {
		return nil, apperrors.Conflict("appointment is closed", nil)
	}

	appointment.Status = model.AppointmentStatusReporte
	appointment.Motif = &motif

	if err := s.update(ctx, appointment); err != nil {
		return nil, err
	}

	s.notify(ctx, appointment, notification.ScenarioReschedule, motif)
	return appointment, nil
}

func (s *service) Cancel(ctx context.Context, id uuid.UUID, reason string, actor *model.AuthUser) (*model.Appointment, error) {
	if err := requireOp(opCancel, actor); err != nil {
		return nil, err
	}

	appointment, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}

	if !allowed(opCancelForOthers, actor) {
		employee, err := s.employees.Get(ctx, appointment.EmployeeID)
		if err != nil {
			return nil, apperrors.Internal(err)
		}
		if employee.UserID != actor.ID {
			return nil, apperrors.Forbidden("employees can only cancel their own appointments", nil)
		}
	}

	if appointment.Status == model.AppointmentStatusTermine {
		return nil, apperrors.Conflict("completed appointments cannot be cancelled", nil)
	}

	appointment.Status = model.AppointmentStatusAnnule
	if reason != "" {
		appointment.AppendNote("Annulation: " + reason)
	}

	if err := s.update(ctx, appointment); err != nil {
		return nil, err
	}

	s.notify(ctx, appointment, notification.ScenarioCancel, "")
	return appointment, nil
}

// UpdateStatus is the administrative override. It does not walk the
// transition table, but a terminal appointment stays terminal.
func (s *service) UpdateStatus(ctx context.Context, id uuid.UUID, status model.AppointmentStatus, notes string) (*model.Appointment, error) {
	if !status.Valid() {
		return nil, apperrors.Validation("unknown appointment status", nil)
	}

	appointment, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if appointment.Status.Terminal() && status != appointment.Status {
		return nil, apperrors.Conflict("appointment is closed", nil)
	}

	appointment.Status = status
	if notes != "" {
		appointment.AppendNote(notes)
	}

	if err := s.update(ctx, appointment); err != nil {
		return nil, err
	}

	s.notify(ctx, appointment, notification.ScenarioStatusUpdate, "")
	return appointment, nil
}

func (s *service) Update(ctx context.Context, id uuid.UUID, req *model.UpdateAppointmentRequest, actor *model.AuthUser) (*model.Appointment, error) {
	if err := requireOp(opAdminEdit, actor); err != nil {
		return nil, err
	}

	appointment, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Type != nil {
		appointment.Type = *req.Type
	}
	if req.Reason != nil {
		appointment.Reason = req.Reason
	}
	if req.Notes != nil {
		appointment.AppendNote(*req.Notes)
	}
	if req.Location != nil {
		appointment.Location = req.Location
	}

	if err := s.update(ctx, appointment); err != nil {
		return nil, err
	}
	return appointment, nil
}

func (s *service) Delete(ctx context.Context, id uuid.UUID, actor *model.AuthUser) error {
	if err := requireOp(opAdminEdit, actor); err != nil {
		return err
	}
	if err := s.appointments.Delete(ctx, id); err != nil {
		if postgres.IsNotFound(err) {
			return apperrors.NotFound("appointment", err)
		}
		return apperrors.Internal(err)
	}
	return nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	return s.get(ctx, id)
}

func (s *service) List(ctx context.Context, filters *model.AppointmentFilters, actor *model.AuthUser) ([]*model.Appointment, int, error) {
	filters.Normalize()

	switch {
	case actor.HasRole(model.RoleAdmin) || actor.HasRole(model.RoleHR) || actor.HasRole(model.RoleHSEManager):
		appointments, total, err := s.appointments.List(ctx, filters)
		if err != nil {
			return nil, 0, apperrors.Internal(err)
		}
		return appointments, total, nil
	case actor.HasRole(model.RoleNurse) || actor.HasRole(model.RoleDoctor):
		appointments, total, err := s.appointments.ListByMedicalStaff(ctx, actor.ID, filters)
		if err != nil {
			return nil, 0, apperrors.Internal(err)
		}
		return appointments, total, nil
	default:
		appointments, err := s.appointments.ListByEmployeeUser(ctx, actor.ID, filters.Status)
		if err != nil {
			return nil, 0, apperrors.Internal(err)
		}
		return appointments, len(appointments), nil
	}
}

func (s *service) GetMine(ctx context.Context, actor *model.AuthUser, status model.AppointmentStatus) ([]*model.Appointment, error) {
	appointments, err := s.appointments.ListByEmployeeUser(ctx, actor.ID, status)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	return appointments, nil
}

func (s *service) GetUpcoming(ctx context.Context, actor *model.AuthUser) ([]*model.Appointment, error) {
	appointments, err := s.appointments.ListUpcomingByEmployeeUser(ctx, actor.ID, time.Now())
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	return appointments, nil
}

func (s *service) get(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	appointment, err := s.appointments.Get(ctx, id)
	if err != nil {
		if postgres.IsNotFound(err) {
			return nil, apperrors.NotFound("appointment", err)
		}
		return nil, apperrors.Internal(err)
	}
	return appointment, nil
}

func (s *service) update(ctx context.Context, appointment *model.Appointment) error {
	appointment.UpdatedAt = time.Now()
	if err := s.appointments.Update(ctx, appointment); err != nil {
		if errors.Is(err, postgres.ErrVersionConflict) {
			return apperrors.Conflict("appointment was modified concurrently", err)
		}
		if postgres.IsNotFound(err) {
			return apperrors.NotFound("appointment", err)
		}
		return apperrors.Internal(err)
	}
	return nil
}

// recipients resolves the full fan-out set for an appointment: the
// employee's user, assigned nurse and doctor, every HR user, and the
// N+1/N+2 managers' users. Deduplicated, nil entries dropped. A nil
// employee means resolution failed outright; a non-nil error alongside
// a usable set flags a partially resolved one.
func (s *service) recipients(ctx context.Context, appointment *model.Appointment) ([]*model.User, *model.Employee, error) {
	employee, err := s.employees.Get(ctx, appointment.EmployeeID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load employee: %w", err)
	}

	var users []*model.User
	users = append(users, s.lookupUser(ctx, &employee.UserID))
	users = append(users, s.lookupUser(ctx, appointment.NurseID))
	users = append(users, s.lookupUser(ctx, appointment.DoctorID))

	var partial error
	hrUsers, err := s.users.FindByRole(ctx, model.RoleHR)
	if err != nil {
		partial = fmt.Errorf("failed to load hr recipients: %w", err)
	}
	users = append(users, hrUsers...)

	users = append(users, s.managerUser(ctx, employee.Manager1ID))
	users = append(users, s.managerUser(ctx, employee.Manager2ID))

	return dedupeUsers(users), employee, partial
}

// managers resolves only the N+1/N+2 users.
func (s *service) managers(ctx context.Context, employee *model.Employee) []*model.User {
	users := []*model.User{
		s.managerUser(ctx, employee.Manager1ID),
		s.managerUser(ctx, employee.Manager2ID),
	}
	return dedupeUsers(users)
}

func (s *service) lookupUser(ctx context.Context, id *uuid.UUID) *model.User {
	if id == nil {
		return nil
	}
	user, err := s.users.Get(ctx, *id)
	if err != nil {
		if !postgres.IsNotFound(err) {
			s.logger.Error(err, "failed to load notification recipient", "user_id", id.String())
		}
		return nil
	}
	return user
}

func (s *service) managerUser(ctx context.Context, managerID *uuid.UUID) *model.User {
	if managerID == nil {
		return nil
	}
	manager, err := s.employees.Get(ctx, *managerID)
	if err != nil {
		if !postgres.IsNotFound(err) {
			s.logger.Error(err, "failed to load manager", "employee_id", managerID.String())
		}
		return nil
	}
	return s.lookupUser(ctx, &manager.UserID)
}

func dedupeUsers(users []*model.User) []*model.User {
	seen := make(map[uuid.UUID]bool, len(users))
	out := make([]*model.User, 0, len(users))
	for _, u := range users {
		if u == nil || seen[u.ID] {
			continue
		}
		seen[u.ID] = true
		out = append(out, u)
	}
	return out
}

// notify runs the post-commit fan-out. The appointment change is
// already durable, so failures here are logged and swallowed. Partial
// recipient resolution still fans out to whoever was found, with the
// resolution error folded into the same aggregate the in-app channel
// reports through.
func (s *service) notify(ctx context.Context, appointment *model.Appointment, scenario notification.Scenario, extra string) {
	recipients, employee, err := s.recipients(ctx, appointment)
	if employee == nil {
		s.logger.Error(err, "failed to resolve notification recipients", "appointment_id", appointment.ID.String())
		return
	}

	var result *multierror.Error
	result = multierror.Append(result, err)
	result = multierror.Append(result, s.fanout.Notify(ctx, recipients, appointment, scenario, extra))
	if incomplete := result.ErrorOrNil(); incomplete != nil {
		s.logger.Error(incomplete, "notification fan-out incomplete", "appointment_id", appointment.ID.String())
	}
}

// notifyProposal sends the status message to the employee and the
// advisory proposal message to the managers.
func (s *service) notifyProposal(ctx context.Context, appointment *model.Appointment) {
	employee, err := s.employees.Get(ctx, appointment.EmployeeID)
	if err != nil {
		s.logger.Error(err, "failed to load employee for proposal fan-out", "appointment_id", appointment.ID.String())
		return
	}

	if user := s.lookupUser(ctx, &employee.UserID); user != nil {
		if err := s.fanout.Notify(ctx, []*model.User{user}, appointment, notification.ScenarioStatusUpdate, ""); err != nil {
			s.logger.Error(err, "proposal notification incomplete", "appointment_id", appointment.ID.String())
		}
	}

	if managers := s.managers(ctx, employee); len(managers) > 0 {
		if err := s.fanout.NotifyManagersOfProposal(ctx, managers, appointment, employee); err != nil {
			s.logger.Error(err, "manager proposal notification incomplete", "appointment_id", appointment.ID.String())
		}
	}
}
