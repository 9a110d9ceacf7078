package email

import (
	"context"
	"fmt"

	gomail "gopkg.in/gomail.v2"

	"github.com/oshworks/osh-api/internal/config"
	"github.com/oshworks/osh-api/pkg/logger"
)

type smtpService struct {
	cfg    config.SMTPConfig
	dialer *gomail.Dialer
	logger *logger.Logger
}

// NewSMTPService builds the gomail-backed sender. When the channel is
// disabled sends become logged no-ops so the rest of the pipeline does
// not need to care.
func NewSMTPService(cfg config.SMTPConfig, logger *logger.Logger) Service {
	return &smtpService{
		cfg:    cfg,
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		logger: logger,
	}
}

func (s *smtpService) SendAppointmentNotification(ctx context.Context, to, subject, body string) error {
	return s.send(ctx, to, subject, body)
}

func (s *smtpService) SendPasswordReset(ctx context.Context, to, token string) error {
	body := fmt.Sprintf(
		"Bonjour,\n\nUne réinitialisation de votre mot de passe a été demandée.\n"+
			"Utilisez le jeton suivant pour définir un nouveau mot de passe : %s\n\n"+
			"Ce jeton expire dans 30 minutes. Si vous n'êtes pas à l'origine de cette demande, ignorez ce message.",
		token,
	)
	return s.send(ctx, to, "Réinitialisation de votre mot de passe", body)
}

func (s *smtpService) SendActivationCode(ctx context.Context, to, code string) error {
	body := fmt.Sprintf(
		"Bonjour,\n\nVotre code d'activation est : %s\n\nCe code expire dans 10 minutes.",
		code,
	)
	return s.send(ctx, to, "Activation de votre compte", body)
}

func (s *smtpService) SendCustom(ctx context.Context, to, subject, body string) error {
	return s.send(ctx, to, subject, body)
}

func (s *smtpService) send(ctx context.Context, to, subject, body string) error {
	if !s.cfg.Enabled {
		s.logger.Debug("email disabled, skipping send", "to", to, "subject", subject)
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	m := gomail.NewMessage()
	m.SetAddressHeader("From", s.cfg.From, s.cfg.FromName)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", body)

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send email to %s: %w", to, err)
	}
	return nil
}
