package auth

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oshworks/osh-api/internal/identity"
	"github.com/oshworks/osh-api/internal/model"
	"github.com/oshworks/osh-api/internal/repository/postgres"
	pkgauth "github.com/oshworks/osh-api/pkg/auth"
	apperrors "github.com/oshworks/osh-api/pkg/errors"
)

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

func (r *fakeUserRepo) GetByEmail(_ context.Context, email string) (*model.User, error) {
	for _, u := range r.store {
		if u.Email == email {
			return u, nil
		}
	}
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

type fakeProvider struct {
	verifyErr error
}

func (p *fakeProvider) VerifyCredentials(context.Context, string, string) error {
	return p.verifyErr
}
func (p *fakeProvider) SetPassword(context.Context, string, string) error { return nil }
func (p *fakeProvider) FindUserByEmail(context.Context, string) (*identity.RemoteUser, error) {
	return nil, postgres.ErrNotFound
}
func (p *fakeProvider) SetEmailVerified(context.Context, string) error { return nil }

type fixture struct {
	svc      Service
	users    *fakeUserRepo
	provider *fakeProvider
	jwt      pkgauth.JWTService
}

func newFixture() *fixture {
	users := &fakeUserRepo{store: make(map[uuid.UUID]*model.User)}
	provider := &fakeProvider{}
	jwt := pkgauth.NewJWTService(pkgauth.Config{
		Secret:             "access-secret",
		RefreshSecret:      "refresh-secret",
		ExpiryHours:        1,
		RefreshExpiryHours: 24,
	})
	return &fixture{
		svc:      NewService(users, provider, jwt),
		users:    users,
		provider: provider,
		jwt:      jwt,
	}
}

func (f *fixture) addUser(active bool) *model.User {
	u := &model.User{
		Email:  "jean@example.com",
		Active: active,
		Roles:  []model.Role{{Name: model.RoleEmployee}},
	}
	u.ID = uuid.New()
	f.users.store[u.ID] = u
	return u
}

func TestLoginIssuesTokenPair(t *testing.T) {
	f := newFixture()
	user := f.addUser(true)

	tokens, err := f.svc.Login(context.Background(), user.Email, "secret")
	require.NoError(t, err)
	assert.NotEmpty(t, tokens.AccessToken)
	assert.NotEmpty(t, tokens.RefreshToken)

	claims, err := f.jwt.ValidateToken(tokens.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	f := newFixture()
	f.addUser(true)
	f.provider.verifyErr = apperrors.Unauthorized("invalid credentials", nil)

	_, err := f.svc.Login(context.Background(), "jean@example.com", "wrong")
	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrUnauthorized, appErr.Code)
}

func TestLoginRejectsUnknownUser(t *testing.T) {
	f := newFixture()

	_, err := f.svc.Login(context.Background(), "nobody@example.com", "secret")
	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrUnauthorized, appErr.Code)
}

func TestLoginRejectsDeactivatedUser(t *testing.T) {
	f := newFixture()
	user := f.addUser(false)

	_, err := f.svc.Login(context.Background(), user.Email, "secret")
	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrUnauthorized, appErr.Code)
	assert.Equal(t, "account deactivated", appErr.Message)
}

func TestRefreshRotatesTokens(t *testing.T) {
	f := newFixture()
	user := f.addUser(true)

	tokens, err := f.svc.Login(context.Background(), user.Email, "secret")
	require.NoError(t, err)

	refreshed, err := f.svc.Refresh(context.Background(), tokens.RefreshToken)
	require.NoError(t, err)
	assert.NotEmpty(t, refreshed.AccessToken)
}

func TestRefreshRejectsAccessToken(t *testing.T) {
	f := newFixture()
	user := f.addUser(true)

	tokens, err := f.svc.Login(context.Background(), user.Email, "secret")
	require.NoError(t, err)

	_, err = f.svc.Refresh(context.Background(), tokens.AccessToken)
	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrUnauthorized, appErr.Code)
}

func TestRefreshRejectsDeactivatedUser(t *testing.T) {
	f := newFixture()
	user := f.addUser(true)

	tokens, err := f.svc.Login(context.Background(), user.Email, "secret")
	require.NoError(t, err)

	user.Active = false
	_, err = f.svc.Refresh(context.Background(), tokens.RefreshToken)
	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrUnauthorized, appErr.Code)
}
