package sms

import "context"

// Service delivers SMS messages through an external gateway.
type Service interface {
	Send(ctx context.Context, phoneNumber, message string) error
}
