package sms

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/oshworks/osh-api/internal/config"
	"github.com/oshworks/osh-api/pkg/logger"
)

type gatewayService struct {
	cfg    config.SMSConfig
	http   *http.Client
	logger *logger.Logger
}

// NewGatewayService builds the HTTP gateway sender. Disabled config
// turns sends into logged no-ops.
func NewGatewayService(cfg config.SMSConfig, logger *logger.Logger) Service {
	return &gatewayService{
		cfg:    cfg,
		http:   &http.Client{Timeout: cfg.Timeout},
		logger: logger,
	}
}

type sendRequest struct {
	To      string `json:"to"`
	From    string `json:"from"`
	Message string `json:"message"`
}

func (s *gatewayService) Send(ctx context.Context, phoneNumber, message string) error {
	if !s.cfg.Enabled {
		s.logger.Debug("sms disabled, skipping send", "to", phoneNumber)
		return nil
	}
	if phoneNumber == "" {
		return fmt.Errorf("empty phone number")
	}

	body, err := json.Marshal(sendRequest{
		To:      phoneNumber,
		From:    s.cfg.Sender,
		Message: message,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.URL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.cfg.APIKey)

	resp, err := s.http.Do(req)
	if err != nil {
		return fmt.Errorf("failed to reach sms gateway: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("sms gateway returned %d", resp.StatusCode)
	}
	return nil
}
