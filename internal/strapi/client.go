// Package strapi is the HTTP client for the remote Strapi instance that
// owns every CRM record and the users-permissions identity plugin.
package strapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/winstonacademy/crm-gateway/internal"
)

type Client struct {
	baseURL    string
	httpClient *http.Client
	timeout    time.Duration
	logger     *slog.Logger
}

type Config struct {
	BaseURL        string
	RequestTimeout time.Duration
}

func NewClient(config Config, logger *slog.Logger) *Client {
	timeout := config.RequestTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	return &Client{
		baseURL:    strings.TrimRight(config.BaseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		timeout:    timeout,
		logger:     logger,
	}
}

// Login exchanges credentials for a JWT and the raw identity record via
// POST /api/auth/local. Failures are mapped onto the typed login errors.
func (c *Client) Login(ctx context.Context, identifier, password string) (string, map[string]any, error) {
	body, status, err := c.doJSON(ctx, http.MethodPost, "/api/auth/local", "", loginRequest{
		Identifier: identifier,
		Password:   password,
	})
	if err != nil {
		return "", nil, err
	}

	if status < 200 || status >= 300 {
		return "", nil, classifyLoginError(status, body)
	}

	var resp loginResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", nil, internal.ErrLoginFailed.WithCause(fmt.Errorf("decode login response: %w", err))
	}
	if resp.JWT == "" {
		return "", nil, internal.ErrLoginFailed.WithCause(fmt.Errorf("login response carried no jwt"))
	}

	return resp.JWT, resp.User, nil
}

// Register creates an account via POST /api/auth/local/register. The route
// exists for parity with the backend; the gateway does not mount it by
// default.
func (c *Client) Register(ctx context.Context, username, email, password string) (string, map[string]any, error) {
	body, status, err := c.doJSON(ctx, http.MethodPost, "/api/auth/local/register", "", registerRequest{
		Username: username,
		Email:    email,
		Password: password,
	})
	if err != nil {
		return "", nil, err
	}

	if status < 200 || status >= 300 {
		return "", nil, classifyLoginError(status, body)
	}

	var resp loginResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", nil, internal.ErrLoginFailed.WithCause(fmt.Errorf("decode register response: %w", err))
	}

	return resp.JWT, resp.User, nil
}

// GetUser fetches the extended profile via GET /api/users/{id}?populate=*.
// The body may be the user object directly or wrapped as {data: user}.
func (c *Client) GetUser(ctx context.Context, bearer string, id int64) (map[string]any, error) {
	body, status, err := c.doJSON(ctx, http.MethodGet, fmt.Sprintf("/api/users/%d?populate=*", id), bearer, nil)
	if err != nil {
		return nil, err
	}

	switch {
	case status == http.StatusUnauthorized:
		return nil, internal.ErrUnauthorized.WithMessage("token rejected by backend")
	case status < 200 || status >= 300:
		return nil, &internal.AppError{
			Type:       internal.ErrorTypeExternal,
			Code:       internal.ErrCodeUpstreamError,
			Message:    fmt.Sprintf("user fetch failed with status %d", status),
			StatusCode: http.StatusBadGateway,
		}
	}

	var raw map[string]any
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, internal.NewInternalError("decode user response", err)
	}

	return unwrapData(raw), nil
}

// Ping checks upstream reachability for health reporting.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/_health", nil)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return internal.ErrUpstreamUnavailable.WithCause(err)
	}
	defer resp.Body.Close()

	// Strapi without the health plugin answers 404 here; reachability is
	// all this check cares about.
	return nil
}

// doJSON performs one request against the backend. Transport-level failures
// come back as ErrUpstreamUnavailable so callers can tell connectivity
// problems apart from HTTP-level rejections.
func (c *Client) doJSON(ctx context.Context, method, path, bearer string, payload any) ([]byte, int, error) {
	var reqBody io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, 0, fmt.Errorf("marshal request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, 0, fmt.Errorf("create request: %w", err)
	}

	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("strapi request failed", "method", method, "path", path, "error", err)
		return nil, 0, internal.ErrUpstreamUnavailable.WithCause(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, internal.ErrUpstreamUnavailable.WithCause(err)
	}

	return body, resp.StatusCode, nil
}

// classifyLoginError maps a Strapi auth failure onto the typed taxonomy by
// probing the message text, since the plugin signals all three cases with
// the same status code.
func classifyLoginError(status int, body []byte) *internal.AppError {
	message := errorMessage(body)
	lower := strings.ToLower(message)

	switch {
	case strings.Contains(lower, "blocked"):
		return internal.ErrAccountBlocked
	case strings.Contains(lower, "confirm"):
		return internal.ErrEmailUnconfirmed
	case strings.Contains(lower, "invalid identifier"), strings.Contains(lower, "invalid credentials"):
		return internal.ErrInvalidCredentials
	case status == http.StatusBadRequest || status == http.StatusUnauthorized:
		return internal.ErrInvalidCredentials
	}

	if message == "" {
		message = fmt.Sprintf("login failed with status %d", status)
	}
	return internal.ErrLoginFailed.WithMessage(message)
}
