package notification

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oshworks/osh-api/internal/model"
	"github.com/oshworks/osh-api/internal/repository/postgres"
	apperrors "github.com/oshworks/osh-api/pkg/errors"
)

type fakeNotificationRepo struct {
	store map[uuid.UUID]*model.Notification
}

func newFakeNotificationRepo() *fakeNotificationRepo {
	return &fakeNotificationRepo{store: make(map[uuid.UUID]*model.Notification)}
}

func (r *fakeNotificationRepo) Create(_ context.Context, n *model.Notification) error {
	r.store[n.ID] = n
	return nil
}

func (r *fakeNotificationRepo) Get(_ context.Context, id uuid.UUID) (*model.Notification, error) {
	n, ok := r.store[id]
	if !ok {
		return nil, postgres.ErrNotFound
	}
	return n, nil
}

func (r *fakeNotificationRepo) ListByUser(_ context.Context, userID uuid.UUID, _ model.Pagination) ([]*model.Notification, int, error) {
	var out []*model.Notification
	for _, n := range r.store {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	return out, len(out), nil
}

func (r *fakeNotificationRepo) ListUnreadByUser(_ context.Context, userID uuid.UUID) ([]*model.Notification, error) {
	var out []*model.Notification
	for _, n := range r.store {
		if n.UserID == userID && !n.Read {
			out = append(out, n)
		}
	}
	return out, nil
}

func (r *fakeNotificationRepo) CountUnreadByUser(ctx context.Context, userID uuid.UUID) (int, error) {
	unread, err := r.ListUnreadByUser(ctx, userID)
	return len(unread), err
}

func (r *fakeNotificationRepo) MarkRead(_ context.Context, id uuid.UUID) error {
	n, ok := r.store[id]
	if !ok {
		return postgres.ErrNotFound
	}
	n.Read = true
	return nil
}

func (r *fakeNotificationRepo) MarkAllRead(_ context.Context, userID uuid.UUID) error {
	for _, n := range r.store {
		if n.UserID == userID {
			n.Read = true
		}
	}
	return nil
}

func (r *fakeNotificationRepo) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := r.store[id]; !ok {
		return postgres.ErrNotFound
	}
	delete(r.store, id)
	return nil
}

type publishedMessage struct {
	Channel string
	Wire    []byte
}

// fakeBroker serializes like the redis broker does, so tests see the
// exact bytes a subscriber would receive.
type fakeBroker struct {
	published []publishedMessage
	err       error
}

func (b *fakeBroker) Publish(_ context.Context, channel string, message interface{}) error {
	if b.err != nil {
		return b.err
	}
	wire, err := json.Marshal(message)
	if err != nil {
		return err
	}
	b.published = append(b.published, publishedMessage{Channel: channel, Wire: wire})
	return nil
}

func (b *fakeBroker) Subscribe(_ context.Context, _ string) (<-chan []byte, error) {
	return nil, nil
}

func (b *fakeBroker) Close() error { return nil }

func newTestService() (Service, *fakeNotificationRepo, *fakeBroker) {
	repo := newFakeNotificationRepo()
	broker := &fakeBroker{}
	return NewService(repo, broker, testLogger()), repo, broker
}

func TestNotifyPersistsAndPublishes(t *testing.T) {
	svc, repo, broker := newTestService()
	userID := uuid.New()
	apptID := uuid.New()

	err := svc.Notify(context.Background(), userID, "Nouveau rendez-vous", "message",
		model.NotificationTypeAppointment, &model.RelatedEntity{Type: "APPOINTMENT", ID: apptID})
	require.NoError(t, err)

	require.Len(t, repo.store, 1)
	for _, n := range repo.store {
		assert.Equal(t, userID, n.UserID)
		assert.False(t, n.Read)
		require.NotNil(t, n.RelatedEntityID)
		assert.Equal(t, apptID, *n.RelatedEntityID)
	}

	require.Len(t, broker.published, 1)
	assert.Equal(t, notificationTopic, broker.published[0].Channel)

	// The wire bytes must decode straight into the event, a pre-marshalled
	// payload would come out base64-wrapped and fail here.
	wire := broker.published[0].Wire
	require.True(t, json.Valid(wire))
	assert.Equal(t, byte('{'), wire[0])
	var event model.NotificationEvent
	require.NoError(t, json.Unmarshal(wire, &event))
	assert.Equal(t, userID, event.UserID)
	assert.Equal(t, "Nouveau rendez-vous", event.Title)
}

func TestNotifySurvivesBrokerFailure(t *testing.T) {
	svc, repo, broker := newTestService()
	broker.err = assert.AnError

	err := svc.Notify(context.Background(), uuid.New(), "titre", "message",
		model.NotificationTypeInfo, nil)
	require.NoError(t, err)
	assert.Len(t, repo.store, 1)
}

func TestMarkReadEnforcesOwnership(t *testing.T) {
	svc, repo, _ := newTestService()
	owner := uuid.New()
	stranger := uuid.New()

	n := &model.Notification{ID: uuid.New(), UserID: owner}
	repo.store[n.ID] = n

	err := svc.MarkRead(context.Background(), stranger, n.ID)
	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrForbidden, appErr.Code)
	assert.False(t, repo.store[n.ID].Read)

	require.NoError(t, svc.MarkRead(context.Background(), owner, n.ID))
	assert.True(t, repo.store[n.ID].Read)
}

func TestMarkReadUnknownNotification(t *testing.T) {
	svc, _, _ := newTestService()

	err := svc.MarkRead(context.Background(), uuid.New(), uuid.New())
	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrNotFound, appErr.Code)
}

func TestDeleteEnforcesOwnership(t *testing.T) {
	svc, repo, _ := newTestService()
	owner := uuid.New()

	n := &model.Notification{ID: uuid.New(), UserID: owner}
	repo.store[n.ID] = n

	err := svc.Delete(context.Background(), uuid.New(), n.ID)
	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrForbidden, appErr.Code)
	assert.Contains(t, repo.store, n.ID)

	require.NoError(t, svc.Delete(context.Background(), owner, n.ID))
	assert.NotContains(t, repo.store, n.ID)
}

func TestCountUnread(t *testing.T) {
	svc, repo, _ := newTestService()
	userID := uuid.New()

	for i := 0; i < 3; i++ {
		n := &model.Notification{ID: uuid.New(), UserID: userID}
		repo.store[n.ID] = n
	}
	read := &model.Notification{ID: uuid.New(), UserID: userID, Read: true}
	repo.store[read.ID] = read

	count, err := svc.CountUnread(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	require.NoError(t, svc.MarkAllRead(context.Background(), userID))
	count, err = svc.CountUnread(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}
