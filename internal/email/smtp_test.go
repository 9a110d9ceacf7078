package email

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/oshworks/osh-api/internal/config"
	"github.com/oshworks/osh-api/pkg/logger"
)

func testLogger() *logger.Logger {
	return logger.NewLogger(&logger.Config{
		Level:      logger.ErrorLevel,
		TimeFormat: time.RFC3339,
		Output:     io.Discard,
	})
}

func TestDisabledChannelSkipsTransport(t *testing.T) {
	// No SMTP host is configured, a real dial attempt would fail loudly.
	svc := NewSMTPService(config.SMTPConfig{Enabled: false}, testLogger())

	assert.NoError(t, svc.SendAppointmentNotification(context.Background(), "jean@example.com", "RDV", "corps"))
	assert.NoError(t, svc.SendPasswordReset(context.Background(), "jean@example.com", "token"))
	assert.NoError(t, svc.SendActivationCode(context.Background(), "jean@example.com", "123456"))
}

func TestSendHonorsCancelledContext(t *testing.T) {
	svc := NewSMTPService(config.SMTPConfig{Enabled: true}, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := svc.SendAppointmentNotification(ctx, "jean@example.com", "RDV", "corps")
	assert.ErrorIs(t, err, context.Canceled)
}
