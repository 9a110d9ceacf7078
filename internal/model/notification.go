package model

import (
	"time"

	"github.com/google/uuid"
)

// NotificationType classifies in-app notifications.
type NotificationType string

const (
	NotificationTypeAppointment NotificationType = "APPOINTMENT"
	NotificationTypeValidation  NotificationType = "VALIDATION"
	NotificationTypeReminder    NotificationType = "REMINDER"
	NotificationTypeAlert       NotificationType = "ALERT"
	NotificationTypeInfo        NotificationType = "INFO"
)

// Notification is a persisted in-app alert owned by a user. The related
// entity fields are a weak back-reference: relation plus lookup, never
// ownership.
type Notification struct {
	ID                uuid.UUID        `json:"id" db:"id"`
	UserID            uuid.UUID        `json:"user_id" db:"user_id"`
	Title             string           `json:"title" db:"title"`
	Message           string           `json:"message" db:"message"`
	Type              NotificationType `json:"type" db:"type"`
	Read              bool             `json:"read" db:"read"`
	RelatedEntityType *string          `json:"related_entity_type" db:"related_entity_type"`
	RelatedEntityID   *uuid.UUID       `json:"related_entity_id" db:"related_entity_id"`
	CreatedAt         time.Time        `json:"created_at" db:"created_at"`
}

// RelatedEntity identifies the record a notification refers to.
type RelatedEntity struct {
	Type string
	ID   uuid.UUID
}

// NotificationEvent is the payload published to the broker when an in-app
// notification is created, so connected clients can refresh live.
type NotificationEvent struct {
	NotificationID uuid.UUID        `json:"notification_id"`
	UserID         uuid.UUID        `json:"user_id"`
	Title          string           `json:"title"`
	Message        string           `json:"message"`
	Type           NotificationType `json:"type"`
	CreatedAt      time.Time        `json:"created_at"`
}
