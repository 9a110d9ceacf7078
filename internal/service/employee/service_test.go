package employee

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oshworks/osh-api/internal/model"
	"github.com/oshworks/osh-api/internal/repository/postgres"
	apperrors "github.com/oshworks/osh-api/pkg/errors"
)

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
	if _, ok := r.store[id]; !ok {
		return postgres.ErrNotFound
	}
	delete(r.store, id)
	return nil
}

func (r *fakeEmployeeRepo) List(_ context.Context, _ *model.EmployeeFilters) ([]*model.Employee, error) {
	return nil, nil
}

type fakeUserRepo struct {
	store map[uuid.UUID]*model.User
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

func (r *fakeUserRepo) GetByEmail(_ context.Context, _ string) (*model.User, error) {
	return nil, postgres.ErrNotFound
}

func (r *fakeUserRepo) Update(context.Context, *model.User) error { return nil }
func (r *fakeUserRepo) Delete(context.Context, uuid.UUID) error   { return nil }
func (r *fakeUserRepo) List(context.Context, *model.UserFilters) ([]*model.User, error) {
	return nil, nil
}
func (r *fakeUserRepo) FindByRole(context.Context, model.RoleName) ([]*model.User, error) {
	return nil, nil
}
func (r *fakeUserRepo) SetRoles(context.Context, uuid.UUID, []uuid.UUID) error { return nil }

type fixture struct {
	svc       Service
	employees *fakeEmployeeRepo
	users     *fakeUserRepo
}

func newFixture() *fixture {
	employees := newFakeEmployeeRepo()
	users := &fakeUserRepo{store: make(map[uuid.UUID]*model.User)}
	return &fixture{
		svc:       NewService(employees, users),
		employees: employees,
		users:     users,
	}
}

func (f *fixture) addUser() *model.User {
	u := &model.User{Email: uuid.NewString() + "@example.com"}
	u.ID = uuid.New()
	f.users.store[u.ID] = u
	return u
}

func (f *fixture) addEmployee(user *model.User) *model.Employee {
	e := &model.Employee{UserID: user.ID, FirstName: "Marie", LastName: "Curie", Email: user.Email}
	e.ID = uuid.New()
	f.employees.store[e.ID] = e
	return e
}

func assertAppCode(t *testing.T, err error, code apperrors.ErrorCode) {
	t.Helper()
	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok, "expected AppError, got %v", err)
	assert.Equal(t, code, appErr.Code)
}

func TestCreateEmployee(t *testing.T) {
	f := newFixture()
	user := f.addUser()
	manager := f.addEmployee(f.addUser())

	created, err := f.svc.Create(context.Background(), &model.CreateEmployeeRequest{
		UserID:     user.ID,
		FirstName:  "Jean",
		LastName:   "Dupont",
		Email:      user.Email,
		Manager1ID: &manager.ID,
	})
	require.NoError(t, err)

	assert.Equal(t, user.ID, created.UserID)
	assert.Contains(t, f.employees.store, created.ID)
}

func TestCreateEmployeeUnknownUser(t *testing.T) {
	f := newFixture()

	_, err := f.svc.Create(context.Background(), &model.CreateEmployeeRequest{
		UserID: uuid.New(),
	})
	assertAppCode(t, err, apperrors.ErrNotFound)
}

func TestCreateEmployeeDuplicateUser(t *testing.T) {
	f := newFixture()
	user := f.addUser()
	f.addEmployee(user)

	_, err := f.svc.Create(context.Background(), &model.CreateEmployeeRequest{
		UserID: user.ID,
	})
	assertAppCode(t, err, apperrors.ErrConflict)
}

func TestCreateEmployeeUnknownManager(t *testing.T) {
	f := newFixture()
	user := f.addUser()
	missing := uuid.New()

	_, err := f.svc.Create(context.Background(), &model.CreateEmployeeRequest{
		UserID:     user.ID,
		Manager2ID: &missing,
	})
	assertAppCode(t, err, apperrors.ErrValidation)
}

func TestUpdateEmployeeRejectsSelfManagement(t *testing.T) {
	f := newFixture()
	employee := f.addEmployee(f.addUser())

	_, err := f.svc.Update(context.Background(), employee.ID, &model.UpdateEmployeeRequest{
		Manager1ID: &employee.ID,
	})
	assertAppCode(t, err, apperrors.ErrValidation)
}

func TestUpdateEmployeeManagers(t *testing.T) {
	f := newFixture()
	employee := f.addEmployee(f.addUser())
	n1 := f.addEmployee(f.addUser())
	n2 := f.addEmployee(f.addUser())

	updated, err := f.svc.Update(context.Background(), employee.ID, &model.UpdateEmployeeRequest{
		Manager1ID: &n1.ID,
		Manager2ID: &n2.ID,
	})
	require.NoError(t, err)

	require.NotNil(t, updated.Manager1ID)
	assert.Equal(t, n1.ID, *updated.Manager1ID)
	require.NotNil(t, updated.Manager2ID)
	assert.Equal(t, n2.ID, *updated.Manager2ID)
}

func TestDeleteEmployeeNotFound(t *testing.T) {
	f := newFixture()
	err := f.svc.Delete(context.Background(), uuid.New())
	assertAppCode(t, err, apperrors.ErrNotFound)
}
