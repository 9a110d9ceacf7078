package appointment

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oshworks/osh-api/internal/model"
	"github.com/oshworks/osh-api/internal/repository/postgres"
	"github.com/oshworks/osh-api/internal/service/notification"
	apperrors "github.com/oshworks/osh-api/pkg/errors"
	"github.com/oshworks/osh-api/pkg/logger"
)

type fakeAppointmentRepo struct {
	store     map[uuid.UUID]*model.Appointment
	createErr error
	updateErr error

	listCalled           bool
	listByStaffCalled    bool
	listByEmployeeCalled bool
	listUpcomingCalled   bool
}

func newFakeAppointmentRepo() *fakeAppointmentRepo {
	return &fakeAppointmentRepo{store: make(map[uuid.UUID]*model.Appointment)}
}

func (r *fakeAppointmentRepo) Create(_ context.Context, a *model.Appointment) error {
	if r.createErr != nil {
		return r.createErr
	}
	r.store[a.ID] = a
	return nil
}

func (r *fakeAppointmentRepo) Get(_ context.Context, id uuid.UUID) (*model.Appointment, error) {
	a, ok := r.store[id]
	if !ok {
		return nil, postgres.ErrNotFound
	}
	copied := *a
	return &copied, nil
}

func (r *fakeAppointmentRepo) Update(_ context.Context, a *model.Appointment) error {
	if r.updateErr != nil {
		return r.updateErr
	}
	if _, ok := r.store[a.ID]; !ok {
		return postgres.ErrNotFound
	}
	copied := *a
	r.store[a.ID] = &copied
	return nil
}

func (r *fakeAppointmentRepo) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := r.store[id]; !ok {
		return postgres.ErrNotFound
	}
	delete(r.store, id)
	return nil
}

func (r *fakeAppointmentRepo) List(_ context.Context, _ *model.AppointmentFilters) ([]*model.Appointment, int, error) {
	r.listCalled = true
	return nil, 0, nil
}

func (r *fakeAppointmentRepo) ListByEmployeeUser(_ context.Context, _ uuid.UUID, _ model.AppointmentStatus) ([]*model.Appointment, error) {
	r.listByEmployeeCalled = true
	return nil, nil
}

func (r *fakeAppointmentRepo) ListByMedicalStaff(_ context.Context, _ uuid.UUID, _ *model.AppointmentFilters) ([]*model.Appointment, int, error) {
	r.listByStaffCalled = true
	return nil, 0, nil
}

func (r *fakeAppointmentRepo) ListUpcomingByEmployeeUser(_ context.Context, _ uuid.UUID, _ time.Time) ([]*model.Appointment, error) {
	r.listUpcomingCalled = true
	return nil, nil
}

type fakeEmployeeRepo struct {
	store map[uuid.UUID]*model.Employee
}

func newFakeEmployeeRepo() *fakeEmployeeRepo {
	return &fakeEmployeeRepo{store: make(map[uuid.UUID]*model.Employee)}
}

func (r *fakeEmployeeRepo) Create(_ context.Context, e *model.Employee) error {
	r.store[e.ID] = e
	return nil
}

func (r *fakeEmployeeRepo) Get(_ context.Context, id uuid.UUID) (*model.Employee, error) {
	e, ok := r.store[id]
	if !ok {
		return nil, postgres.ErrNotFound
	}
	return e, nil
}

func (r *fakeEmployeeRepo) GetByUserID(_ context.Context, userID uuid.UUID) (*model.Employee, error) {
	for _, e := range r.store {
		if e.UserID == userID {
			return e, nil
		}
	}
	return nil, postgres.ErrNotFound
}

func (r *fakeEmployeeRepo) GetByEmail(_ context.Context, email string) (*model.Employee, error) {
	for _, e := range r.store {
		if e.Email == email {
			return e, nil
		}
	}
	return nil, postgres.ErrNotFound
}

func (r *fakeEmployeeRepo) Update(_ context.Context, e *model.Employee) error {
	r.store[e.ID] = e
	return nil
}

func (r *fakeEmployeeRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(r.store, id)
	return nil
}

func (r *fakeEmployeeRepo) List(_ context.Context, _ *model.EmployeeFilters) ([]*model.Employee, error) {
	return nil, nil
}

type fakeUserRepo struct {
	store         map[uuid.UUID]*model.User
	hrUsers       []*model.User
	findByRoleErr error
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{store: make(map[uuid.UUID]*model.User)}
}

func (r *fakeUserRepo) Create(_ context.Context, u *model.User) error {
	r.store[u.ID] = u
	return nil
}

func (r *fakeUserRepo) Get(_ context.Context, id uuid.UUID) (*model.User, error) {
	u, ok := r.store[id]
	if !ok {
		return nil, postgres.ErrNotFound
	}
	return u, nil
}

func (r *fakeUserRepo) GetByEmail(_ context.Context, email string) (*model.User, error) {
	for _, u := range r.store {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, postgres.ErrNotFound
}

func (r *fakeUserRepo) Update(_ context.Context, u *model.User) error {
	r.store[u.ID] = u
	return nil
}

func (r *fakeUserRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(r.store, id)
	return nil
}

func (r *fakeUserRepo) List(_ context.Context, _ *model.UserFilters) ([]*model.User, error) {
	return nil, nil
}

func (r *fakeUserRepo) FindByRole(_ context.Context, role model.RoleName) ([]*model.User, error) {
	if r.findByRoleErr != nil {
		return nil, r.findByRoleErr
	}
	if role == model.RoleHR {
		return r.hrUsers, nil
	}
	return nil, nil
}

func (r *fakeUserRepo) SetRoles(_ context.Context, _ uuid.UUID, _ []uuid.UUID) error {
	return nil
}

// recordingInApp captures in-app notifications so tests can assert on
// the fan-out recipient set.
type recordingInApp struct {
	userIDs []uuid.UUID
}

func (f *recordingInApp) Notify(_ context.Context, userID uuid.UUID, _, _ string, _ model.NotificationType, _ *model.RelatedEntity) error {
	f.userIDs = append(f.userIDs, userID)
	return nil
}
func (f *recordingInApp) List(context.Context, uuid.UUID, model.Pagination) ([]*model.Notification, int, error) {
	return nil, 0, nil
}
func (f *recordingInApp) ListUnread(context.Context, uuid.UUID) ([]*model.Notification, error) {
	return nil, nil
}
func (f *recordingInApp) CountUnread(context.Context, uuid.UUID) (int, error) { return 0, nil }
func (f *recordingInApp) MarkRead(context.Context, uuid.UUID, uuid.UUID) error {
	return nil
}
func (f *recordingInApp) MarkAllRead(context.Context, uuid.UUID) error { return nil }
func (f *recordingInApp) Delete(context.Context, uuid.UUID, uuid.UUID) error {
	return nil
}

type noopEmail struct{}

func (noopEmail) SendAppointmentNotification(context.Context, string, string, string) error {
	return nil
}
func (noopEmail) SendPasswordReset(context.Context, string, string) error  { return nil }
func (noopEmail) SendActivationCode(context.Context, string, string) error { return nil }
func (noopEmail) SendCustom(context.Context, string, string, string) error { return nil }

type noopSMS struct{}

func (noopSMS) Send(context.Context, string, string) error { return nil }

func testLogger() *logger.Logger {
	return logger.NewLogger(&logger.Config{
		Level:      logger.ErrorLevel,
		TimeFormat: time.RFC3339,
		Output:     io.Discard,
	})
}

type fixture struct {
	svc          Service
	appointments *fakeAppointmentRepo
	employees    *fakeEmployeeRepo
	users        *fakeUserRepo
	inApp        *recordingInApp
}

func newFixture() *fixture {
	appointments := newFakeAppointmentRepo()
	employees := newFakeEmployeeRepo()
	users := newFakeUserRepo()
	inApp := &recordingInApp{}
	log := testLogger()
	fanout := notification.NewFanout(inApp, noopEmail{}, noopSMS{}, log)
	return &fixture{
		svc:          NewService(appointments, employees, users, fanout, log),
		appointments: appointments,
		employees:    employees,
		users:        users,
		inApp:        inApp,
	}
}

func (f *fixture) addUser(roles ...model.RoleName) *model.User {
	u := &model.User{Email: uuid.NewString() + "@example.com", Name: "Test User", Active: true}
	u.ID = uuid.New()
	for _, r := range roles {
		u.Roles = append(u.Roles, model.Role{Name: r})
	}
	f.users.store[u.ID] = u
	return u
}

func (f *fixture) addEmployee(user *model.User) *model.Employee {
	e := &model.Employee{
		UserID:    user.ID,
		FirstName: "Jean",
		LastName:  "Dupont",
		Email:     user.Email,
	}
	e.ID = uuid.New()
	f.employees.store[e.ID] = e
	return e
}

func actorFor(u *model.User, roles ...model.RoleName) *model.AuthUser {
	return &model.AuthUser{ID: u.ID, Email: u.Email, Roles: roles}
}

func assertAppCode(t *testing.T, err error, code apperrors.ErrorCode) {
	t.Helper()
	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok, "expected AppError, got %v", err)
	assert.Equal(t, code, appErr.Code)
}

func TestCreateByEmployeeForSelf(t *testing.T) {
	f := newFixture()
	user := f.addUser(model.RoleEmployee)
	employee := f.addEmployee(user)
	actor := actorFor(user, model.RoleEmployee)

	appt, err := f.svc.Create(context.Background(), &model.CreateAppointmentRequest{
		EmployeeID: employee.ID,
		Type:       model.AppointmentTypePeriodique,
	}, actor)
	require.NoError(t, err)

	assert.Equal(t, model.AppointmentStatusDemande, appt.Status)
	assert.Equal(t, actor.Email, appt.CreatedBy)
	assert.Contains(t, f.appointments.store, appt.ID)
	assert.Contains(t, f.inApp.userIDs, user.ID)
}

func TestCreateByEmployeeForOthersForbidden(t *testing.T) {
	f := newFixture()
	user := f.addUser(model.RoleEmployee)
	f.addEmployee(user)
	other := f.addUser(model.RoleEmployee)
	otherEmployee := f.addEmployee(other)

	_, err := f.svc.Create(context.Background(), &model.CreateAppointmentRequest{
		EmployeeID: otherEmployee.ID,
		Type:       model.AppointmentTypeADemande,
	}, actorFor(user, model.RoleEmployee))
	assertAppCode(t, err, apperrors.ErrForbidden)
	assert.Empty(t, f.appointments.store)
}

func TestCreateForUnknownEmployee(t *testing.T) {
	f := newFixture()
	hr := f.addUser(model.RoleHR)

	_, err := f.svc.Create(context.Background(), &model.CreateAppointmentRequest{
		EmployeeID: uuid.New(),
		Type:       model.AppointmentTypeEmbauche,
	}, actorFor(hr, model.RoleHR))
	assertAppCode(t, err, apperrors.ErrNotFound)
}

func TestCreateFanOutRecipientsDeduped(t *testing.T) {
	f := newFixture()
	user := f.addUser(model.RoleEmployee)
	employee := f.addEmployee(user)

	managerUser := f.addUser(model.RoleEmployee)
	manager := f.addEmployee(managerUser)
	// Same person as N+1 and N+2: must be notified once.
	employee.Manager1ID = &manager.ID
	employee.Manager2ID = &manager.ID

	hr := f.addUser(model.RoleHR)
	f.users.hrUsers = []*model.User{hr}

	_, err := f.svc.Create(context.Background(), &model.CreateAppointmentRequest{
		EmployeeID: employee.ID,
		Type:       model.AppointmentTypePeriodique,
	}, actorFor(hr, model.RoleHR))
	require.NoError(t, err)

	assert.ElementsMatch(t, []uuid.UUID{user.ID, hr.ID, managerUser.ID}, f.inApp.userIDs)
}

func TestCreateFanOutProceedsWhenHRLookupFails(t *testing.T) {
	f := newFixture()
	user := f.addUser(model.RoleEmployee)
	employee := f.addEmployee(user)

	managerUser := f.addUser(model.RoleEmployee)
	manager := f.addEmployee(managerUser)
	employee.Manager1ID = &manager.ID

	nurse := f.addUser(model.RoleNurse)
	f.users.findByRoleErr = assert.AnError

	created, err := f.svc.Create(context.Background(), &model.CreateAppointmentRequest{
		EmployeeID: employee.ID,
		Type:       model.AppointmentTypePeriodique,
	}, actorFor(nurse, model.RoleNurse))
	require.NoError(t, err)
	assert.Contains(t, f.appointments.store, created.ID)

	// Everyone who could be resolved is still notified.
	assert.ElementsMatch(t, []uuid.UUID{user.ID, managerUser.ID}, f.inApp.userIDs)
}

func TestCreateObligatoryRequiresHR(t *testing.T) {
	f := newFixture()
	nurse := f.addUser(model.RoleNurse)

	_, err := f.svc.CreateObligatory(context.Background(), nil, actorFor(nurse, model.RoleNurse))
	assertAppCode(t, err, apperrors.ErrForbidden)
}

func TestCreateObligatoryBatch(t *testing.T) {
	f := newFixture()
	hr := f.addUser(model.RoleHR)
	e1 := f.addEmployee(f.addUser(model.RoleEmployee))
	e2 := f.addEmployee(f.addUser(model.RoleEmployee))

	created, err := f.svc.CreateObligatory(context.Background(), []*model.CreateAppointmentRequest{
		{EmployeeID: e1.ID, Type: model.AppointmentTypePeriodique},
		{EmployeeID: e2.ID, Type: model.AppointmentTypePeriodique},
	}, actorFor(hr, model.RoleHR))
	require.NoError(t, err)
	require.Len(t, created, 2)
	for _, a := range created {
		assert.True(t, a.IsObligatory)
		assert.Equal(t, model.AppointmentStatusDemande, a.Status)
	}
}

func TestCreateObligatoryStopsOnUnknownEmployee(t *testing.T) {
	f := newFixture()
	hr := f.addUser(model.RoleHR)
	e1 := f.addEmployee(f.addUser(model.RoleEmployee))

	created, err := f.svc.CreateObligatory(context.Background(), []*model.CreateAppointmentRequest{
		{EmployeeID: e1.ID, Type: model.AppointmentTypePeriodique},
		{EmployeeID: uuid.New(), Type: model.AppointmentTypePeriodique},
	}, actorFor(hr, model.RoleHR))
	assertAppCode(t, err, apperrors.ErrNotFound)
	assert.Len(t, created, 1)
}

func (f *fixture) addAppointment(employee *model.Employee, status model.AppointmentStatus) *model.Appointment {
	a := &model.Appointment{
		EmployeeID: employee.ID,
		Type:       model.AppointmentTypePeriodique,
		Status:     status,
		Version:    1,
	}
	a.ID = uuid.New()
	f.appointments.store[a.ID] = a
	return a
}

func TestProposeSlotByDoctor(t *testing.T) {
	f := newFixture()
	employee := f.addEmployee(f.addUser(model.RoleEmployee))
	appt := f.addAppointment(employee, model.AppointmentStatusDemande)
	doctor := f.addUser(model.RoleDoctor)

	slot := time.Date(2026, 9, 10, 10, 0, 0, 0, time.UTC)
	updated, err := f.svc.ProposeSlot(context.Background(), appt.ID, &model.ProposeSlotRequest{
		ProposedDate: slot,
	}, actorFor(doctor, model.RoleDoctor))
	require.NoError(t, err)

	assert.Equal(t, model.AppointmentStatusPropose, updated.Status)
	require.NotNil(t, updated.ProposedDate)
	assert.Equal(t, slot, *updated.ProposedDate)
	require.NotNil(t, updated.DoctorID)
	assert.Equal(t, doctor.ID, *updated.DoctorID)
	assert.Nil(t, updated.NurseID)
}

func TestProposeSlotByNurse(t *testing.T) {
	f := newFixture()
	employee := f.addEmployee(f.addUser(model.RoleEmployee))
	appt := f.addAppointment(employee, model.AppointmentStatusDemande)
	nurse := f.addUser(model.RoleNurse)

	updated, err := f.svc.ProposeSlot(context.Background(), appt.ID, &model.ProposeSlotRequest{
		ProposedDate: time.Now().Add(48 * time.Hour),
	}, actorFor(nurse, model.RoleNurse))
	require.NoError(t, err)

	require.NotNil(t, updated.NurseID)
	assert.Equal(t, nurse.ID, *updated.NurseID)
	assert.Nil(t, updated.DoctorID)
}

func TestProposeSlotOnClosedAppointment(t *testing.T) {
	f := newFixture()
	employee := f.addEmployee(f.addUser(model.RoleEmployee))
	appt := f.addAppointment(employee, model.AppointmentStatusAnnule)
	nurse := f.addUser(model.RoleNurse)

	_, err := f.svc.ProposeSlot(context.Background(), appt.ID, &model.ProposeSlotRequest{
		ProposedDate: time.Now(),
	}, actorFor(nurse, model.RoleNurse))
	assertAppCode(t, err, apperrors.ErrConflict)
}

func TestProposeSlotByEmployeeForbidden(t *testing.T) {
	f := newFixture()
	user := f.addUser(model.RoleEmployee)
	employee := f.addEmployee(user)
	appt := f.addAppointment(employee, model.AppointmentStatusDemande)

	_, err := f.svc.ProposeSlot(context.Background(), appt.ID, &model.ProposeSlotRequest{
		ProposedDate: time.Now(),
	}, actorFor(user, model.RoleEmployee))
	assertAppCode(t, err, apperrors.ErrForbidden)
}

func TestConfirmCopiesProposedDate(t *testing.T) {
	f := newFixture()
	employee := f.addEmployee(f.addUser(model.RoleEmployee))
	appt := f.addAppointment(employee, model.AppointmentStatusPropose)
	slot := time.Date(2026, 9, 10, 10, 0, 0, 0, time.UTC)
	appt.ProposedDate = &slot

	updated, err := f.svc.Confirm(context.Background(), appt.ID, "je serai présent")
	require.NoError(t, err)

	assert.Equal(t, model.AppointmentStatusConfirme, updated.Status)
	require.NotNil(t, updated.AppointmentDate)
	assert.Equal(t, slot, *updated.AppointmentDate)
	assert.Contains(t, updated.Notes, "Confirmation notes: je serai présent")
}

func TestConfirmWithoutProposalConflicts(t *testing.T) {
	f := newFixture()
	employee := f.addEmployee(f.addUser(model.RoleEmployee))
	appt := f.addAppointment(employee, model.AppointmentStatusDemande)

	_, err := f.svc.Confirm(context.Background(), appt.ID, "")
	assertAppCode(t, err, apperrors.ErrConflict)

	stored := f.appointments.store[appt.ID]
	assert.Equal(t, model.AppointmentStatusDemande, stored.Status)
	assert.Nil(t, stored.AppointmentDate)
}

func TestRescheduleSetsMotif(t *testing.T) {
	f := newFixture()
	employee := f.addEmployee(f.addUser(model.RoleEmployee))
	appt := f.addAppointment(employee, model.AppointmentStatusConfirme)

	updated, err := f.svc.Reschedule(context.Background(), appt.ID, "congé maladie")
	require.NoError(t, err)

	assert.Equal(t, model.AppointmentStatusReporte, updated.Status)
	require.NotNil(t, updated.Motif)
	assert.Equal(t, "congé maladie", *updated.Motif)
}

func TestCancelCompletedAppointmentConflicts(t *testing.T) {
	f := newFixture()
	user := f.addUser(model.RoleHR)
	employee := f.addEmployee(f.addUser(model.RoleEmployee))
	appt := f.addAppointment(employee, model.AppointmentStatusTermine)

	_, err := f.svc.Cancel(context.Background(), appt.ID, "", actorFor(user, model.RoleHR))
	assertAppCode(t, err, apperrors.ErrConflict)
}

func TestCancelByEmployeeOwnershipEnforced(t *testing.T) {
	f := newFixture()
	user := f.addUser(model.RoleEmployee)
	f.addEmployee(user)
	otherEmployee := f.addEmployee(f.addUser(model.RoleEmployee))
	appt := f.addAppointment(otherEmployee, model.AppointmentStatusDemande)

	_, err := f.svc.Cancel(context.Background(), appt.ID, "", actorFor(user, model.RoleEmployee))
	assertAppCode(t, err, apperrors.ErrForbidden)
}

func TestCancelRecordsReason(t *testing.T) {
	f := newFixture()
	user := f.addUser(model.RoleEmployee)
	employee := f.addEmployee(user)
	appt := f.addAppointment(employee, model.AppointmentStatusConfirme)

	updated, err := f.svc.Cancel(context.Background(), appt.ID, "déplacement imprévu", actorFor(user, model.RoleEmployee))
	require.NoError(t, err)

	assert.Equal(t, model.AppointmentStatusAnnule, updated.Status)
	assert.Contains(t, updated.Notes, "Annulation: déplacement imprévu")
}

func TestUpdateStatusRejectsUnknownStatus(t *testing.T) {
	f := newFixture()
	_, err := f.svc.UpdateStatus(context.Background(), uuid.New(), model.AppointmentStatus("BOGUS"), "")
	assertAppCode(t, err, apperrors.ErrValidation)
}

func TestUpdateStatusTerminalStaysTerminal(t *testing.T) {
	f := newFixture()
	employee := f.addEmployee(f.addUser(model.RoleEmployee))
	appt := f.addAppointment(employee, model.AppointmentStatusAnnule)

	_, err := f.svc.UpdateStatus(context.Background(), appt.ID, model.AppointmentStatusConfirme, "")
	assertAppCode(t, err, apperrors.ErrConflict)
}

func TestVersionConflictSurfacesAsConflict(t *testing.T) {
	f := newFixture()
	employee := f.addEmployee(f.addUser(model.RoleEmployee))
	appt := f.addAppointment(employee, model.AppointmentStatusConfirme)
	f.appointments.updateErr = postgres.ErrVersionConflict

	_, err := f.svc.Reschedule(context.Background(), appt.ID, "conflit")
	assertAppCode(t, err, apperrors.ErrConflict)
}

func TestListScopedByRole(t *testing.T) {
	f := newFixture()
	admin := f.addUser(model.RoleAdmin)
	nurse := f.addUser(model.RoleNurse)
	employee := f.addUser(model.RoleEmployee)

	_, _, err := f.svc.List(context.Background(), &model.AppointmentFilters{}, actorFor(admin, model.RoleAdmin))
	require.NoError(t, err)
	assert.True(t, f.appointments.listCalled)

	_, _, err = f.svc.List(context.Background(), &model.AppointmentFilters{}, actorFor(nurse, model.RoleNurse))
	require.NoError(t, err)
	assert.True(t, f.appointments.listByStaffCalled)

	_, _, err = f.svc.List(context.Background(), &model.AppointmentFilters{}, actorFor(employee, model.RoleEmployee))
	require.NoError(t, err)
	assert.True(t, f.appointments.listByEmployeeCalled)
}

func TestGetUpcomingUsesEmployeeScope(t *testing.T) {
	f := newFixture()
	user := f.addUser(model.RoleEmployee)

	_, err := f.svc.GetUpcoming(context.Background(), actorFor(user, model.RoleEmployee))
	require.NoError(t, err)
	assert.True(t, f.appointments.listUpcomingCalled)
}

func TestDeleteRequiresAdminEdit(t *testing.T) {
	f := newFixture()
	nurse := f.addUser(model.RoleNurse)
	employee := f.addEmployee(f.addUser(model.RoleEmployee))
	appt := f.addAppointment(employee, model.AppointmentStatusDemande)

	err := f.svc.Delete(context.Background(), appt.ID, actorFor(nurse, model.RoleNurse))
	assertAppCode(t, err, apperrors.ErrForbidden)
	assert.Contains(t, f.appointments.store, appt.ID)
}
