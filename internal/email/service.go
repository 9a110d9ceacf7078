package email

import (
	"context"
)

// Service delivers transactional email. Implementations must be safe
// for concurrent use; callers treat delivery as best-effort.
type Service interface {
	SendAppointmentNotification(ctx context.Context, to, subject, body string) error
	SendPasswordReset(ctx context.Context, to, token string) error
	SendActivationCode(ctx context.Context, to, code string) error
	SendCustom(ctx context.Context, to, subject, body string) error
}
