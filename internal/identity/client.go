package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/sony/gobreaker"

	"github.com/oshworks/osh-api/internal/config"
	apperrors "github.com/oshworks/osh-api/pkg/errors"
)

// Provider is the external identity store the API delegates credential
// management to. Passwords set here are authoritative; the local user
// table only mirrors profile data.
type Provider interface {
	VerifyCredentials(ctx context.Context, email, password string) error
	SetPassword(ctx context.Context, email, password string) error
	FindUserByEmail(ctx context.Context, email string) (*RemoteUser, error)
	SetEmailVerified(ctx context.Context, email string) error
}

type RemoteUser struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	FirstName     string `json:"firstName"`
	LastName      string `json:"lastName"`
	EmailVerified bool   `json:"emailVerified"`
	Enabled       bool   `json:"enabled"`
}

type Client struct {
	cfg    config.IdentityConfig
	http   *http.Client
	cb     *gobreaker.CircuitBreaker

	mu          sync.Mutex
	adminToken  string
	tokenExpiry time.Time
}

func NewClient(cfg config.IdentityConfig) *Client {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "identity-provider",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout},
		cb:   cb,
	}
}

// VerifyCredentials performs a resource-owner password grant. A 401
// from the provider means bad credentials, anything else is transport.
func (c *Client) VerifyCredentials(ctx context.Context, email, password string) error {
	form := url.Values{}
	form.Set("grant_type", "password")
	form.Set("client_id", c.cfg.ClientID)
	form.Set("client_secret", c.cfg.ClientSecret)
	form.Set("username", email)
	form.Set("password", password)

	_, err := c.cb.Execute(func() (interface{}, error) {
		endpoint := fmt.Sprintf("%s/realms/%s/protocol/openid-connect/token", c.cfg.BaseURL, c.cfg.Realm)
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

		resp, err := c.http.Do(req)
		if err != nil {
			return nil, apperrors.Transport(err)
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusOK:
			return nil, nil
		case resp.StatusCode == http.StatusUnauthorized:
			return nil, apperrors.Unauthorized("invalid credentials", nil)
		default:
			return nil, apperrors.Transport(fmt.Errorf("identity provider returned %d", resp.StatusCode))
		}
	})
	return breakerErr(err)
}

func (c *Client) SetPassword(ctx context.Context, email, password string) error {
	user, err := c.FindUserByEmail(ctx, email)
	if err != nil {
		return err
	}

	body, err := json.Marshal(map[string]interface{}{
		"type":      "password",
		"value":     password,
		"temporary": false,
	})
	if err != nil {
		return err
	}

	_, err = c.cb.Execute(func() (interface{}, error) {
		endpoint := fmt.Sprintf("%s/admin/realms/%s/users/%s/reset-password", c.cfg.BaseURL, c.cfg.Realm, user.ID)
		return nil, c.adminRequest(ctx, http.MethodPut, endpoint, body, nil)
	})
	return breakerErr(err)
}

func (c *Client) FindUserByEmail(ctx context.Context, email string) (*RemoteUser, error) {
	result, err := c.cb.Execute(func() (interface{}, error) {
		endpoint := fmt.Sprintf("%s/admin/realms/%s/users?email=%s&exact=true", c.cfg.BaseURL, c.cfg.Realm, url.QueryEscape(email))
		var users []RemoteUser
		if err := c.adminRequest(ctx, http.MethodGet, endpoint, nil, &users); err != nil {
			return nil, err
		}
		if len(users) == 0 {
			return nil, apperrors.NotFound("identity user", nil)
		}
		return &users[0], nil
	})
	if err != nil {
		return nil, breakerErr(err)
	}
	return result.(*RemoteUser), nil
}

func (c *Client) SetEmailVerified(ctx context.Context, email string) error {
	user, err := c.FindUserByEmail(ctx, email)
	if err != nil {
		return err
	}

	body, err := json.Marshal(map[string]interface{}{"emailVerified": true})
	if err != nil {
		return err
	}

	_, err = c.cb.Execute(func() (interface{}, error) {
		endpoint := fmt.Sprintf("%s/admin/realms/%s/users/%s", c.cfg.BaseURL, c.cfg.Realm, user.ID)
		return nil, c.adminRequest(ctx, http.MethodPut, endpoint, body, nil)
	})
	return breakerErr(err)
}

// adminRequest issues an authenticated admin API call, refreshing the
// cached admin token when needed.
func (c *Client) adminRequest(ctx context.Context, method, endpoint string, body []byte, out interface{}) error {
	token, err := c.admin(ctx)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return apperrors.Transport(err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		if out != nil {
			return json.NewDecoder(resp.Body).Decode(out)
		}
		return nil
	case resp.StatusCode == http.StatusNotFound:
		return apperrors.NotFound("identity user", nil)
	default:
		return apperrors.Transport(fmt.Errorf("identity provider returned %d", resp.StatusCode))
	}
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
}

func (c *Client) admin(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.adminToken != "" && time.Now().Before(c.tokenExpiry) {
		return c.adminToken, nil
	}

	form := url.Values{}
	form.Set("grant_type", "password")
	form.Set("client_id", "admin-cli")
	form.Set("username", c.cfg.AdminUser)
	form.Set("password", c.cfg.AdminPass)

	endpoint := fmt.Sprintf("%s/realms/master/protocol/openid-connect/token", c.cfg.BaseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", apperrors.Transport(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", apperrors.Transport(fmt.Errorf("admin token request returned %d", resp.StatusCode))
	}

	var token tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&token); err != nil {
		return "", err
	}

	c.adminToken = token.AccessToken
	// Renew a little early so in-flight requests never carry a stale token.
	c.tokenExpiry = time.Now().Add(time.Duration(token.ExpiresIn)*time.Second - 30*time.Second)
	return c.adminToken, nil
}

// breakerErr maps an open-circuit error to the transport taxonomy so
// callers see a consistent error surface.
func breakerErr(err error) error {
	if err == nil {
		return nil
	}
	if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
		return apperrors.Transport(err)
	}
	return err
}
