package notification

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/oshworks/osh-api/internal/model"
	"github.com/oshworks/osh-api/internal/repository"
	"github.com/oshworks/osh-api/internal/repository/postgres"
	apperrors "github.com/oshworks/osh-api/pkg/errors"
	"github.com/oshworks/osh-api/pkg/logger"
	"github.com/oshworks/osh-api/pkg/messaging"
)

const notificationTopic = "notifications"

// Service is the in-app notification surface. All read/mutate
// operations are scoped to the owning user.
type Service interface {
	Notify(ctx context.Context, userID uuid.UUID, title, message string, typ model.NotificationType, related *model.RelatedEntity) error
	List(ctx context.Context, userID uuid.UUID, p model.Pagination) ([]*model.Notification, int, error)
	ListUnread(ctx context.Context, userID uuid.UUID) ([]*model.Notification, error)
	CountUnread(ctx context.Context, userID uuid.UUID) (int, error)
	MarkRead(ctx context.Context, userID, id uuid.UUID) error
	MarkAllRead(ctx context.Context, userID uuid.UUID) error
	Delete(ctx context.Context, userID, id uuid.UUID) error
}

type service struct {
	repo   repository.NotificationRepository
	broker messaging.Broker
	logger *logger.Logger
}

func NewService(repo repository.NotificationRepository, broker messaging.Broker, logger *logger.Logger) Service {
	return &service{
		repo:   repo,
		broker: broker,
		logger: logger,
	}
}

// Notify persists an in-app notification and pushes it to the broker
// for live clients. The broker publish is best-effort, persistence is
// not.
func (s *service) Notify(ctx context.Context, userID uuid.UUID, title, message string, typ model.NotificationType, related *model.RelatedEntity) error {
	n := &model.Notification{
		ID:        uuid.New(),
		UserID:    userID,
		Title:     title,
		Message:   message,
		Type:      typ,
		Read:      false,
		CreatedAt: time.Now(),
	}
	if related != nil {
		n.RelatedEntityType = &related.Type
		n.RelatedEntityID = &related.ID
	}

	if err := s.repo.Create(ctx, n); err != nil {
		return apperrors.Internal(err)
	}

	s.publish(ctx, n)
	return nil
}

func (s *service) publish(ctx context.Context, n *model.Notification) {
	if s.broker == nil {
		return
	}
	// The broker owns serialization, handing it raw bytes would get
	// them marshalled a second time.
	event := model.NotificationEvent{
		NotificationID: n.ID,
		UserID:         n.UserID,
		Title:          n.Title,
		Message:        n.Message,
		Type:           n.Type,
		CreatedAt:      n.CreatedAt,
	}
	if err := s.broker.Publish(ctx, notificationTopic, event); err != nil {
		s.logger.Error(err, "failed to publish notification event", "user_id", n.UserID.String())
	}
}

func (s *service) List(ctx context.Context, userID uuid.UUID, p model.Pagination) ([]*model.Notification, int, error) {
	p.Normalize()
	notifications, total, err := s.repo.ListByUser(ctx, userID, p)
	if err != nil {
		return nil, 0, apperrors.Internal(err)
	}
	return notifications, total, nil
}

func (s *service) ListUnread(ctx context.Context, userID uuid.UUID) ([]*model.Notification, error) {
	notifications, err := s.repo.ListUnreadByUser(ctx, userID)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	return notifications, nil
}

func (s *service) CountUnread(ctx context.Context, userID uuid.UUID) (int, error) {
	count, err := s.repo.CountUnreadByUser(ctx, userID)
	if err != nil {
		return 0, apperrors.Internal(err)
	}
	return count, nil
}

func (s *service) MarkRead(ctx context.Context, userID, id uuid.UUID) error {
	if err := s.checkOwner(ctx, userID, id); err != nil {
		return err
	}
	if err := s.repo.MarkRead(ctx, id); err != nil {
		if postgres.IsNotFound(err) {
			return apperrors.NotFound("notification", err)
		}
		return apperrors.Internal(err)
	}
	return nil
}

func (s *service) MarkAllRead(ctx context.Context, userID uuid.UUID) error {
	if err := s.repo.MarkAllRead(ctx, userID); err != nil {
		return apperrors.Internal(err)
	}
	return nil
}

func (s *service) Delete(ctx context.Context, userID, id uuid.UUID) error {
	if err := s.checkOwner(ctx, userID, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if postgres.IsNotFound(err) {
			return apperrors.NotFound("notification", err)
		}
		return apperrors.Internal(err)
	}
	return nil
}

func (s *service) checkOwner(ctx context.Context, userID, id uuid.UUID) error {
	n, err := s.repo.Get(ctx, id)
	if err != nil {
		if postgres.IsNotFound(err) {
			return apperrors.NotFound("notification", err)
		}
		return apperrors.Internal(err)
	}
	if n.UserID != userID {
		return apperrors.Forbidden("notification belongs to another user", nil)
	}
	return nil
}
