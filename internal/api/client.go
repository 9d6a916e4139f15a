// Package api is the HTTP client for the marketplace backend. Each
// method maps onto one endpoint; authenticated calls fetch the bearer
// token from the session store immediately before the request goes
// out, so a logout between calls is observed on the next one.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"foodrescue/internal/model"
	"foodrescue/internal/session"
)

// Client talks to one backend base URL. It is safe for concurrent use.
type Client struct {
	baseURL    string
	httpClient *http.Client
	session    session.Store
	logger     zerolog.Logger
	flight     singleflight.Group
}

// NewClient creates a client against the given base URL. The timeout
// applies per request; there are no retries and no offline queue.
func NewClient(baseURL string, timeout time.Duration, store session.Store, logger zerolog.Logger) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		session:    store,
		logger:     logger.With().Str("component", "api").Logger(),
	}
}

// Login authenticates and persists the session. Nothing is stored on
// failure; the backend's message comes through as an auth error.
func (c *Client) Login(ctx context.Context, username, password string) (*model.LoginResult, error) {
	var out model.LoginResult
	payload := model.Credentials{Username: username, Password: password}
	if err := c.do(ctx, http.MethodPost, "/auth/login", payload, false, &out); err != nil {
		return nil, err
	}
	if out.Token == "" {
		return nil, model.NewAPIError(model.ErrKindValidation, http.StatusOK, "login response missing token")
	}
	if err := c.session.Set(out.Token, string(out.User.Role)); err != nil {
		return nil, fmt.Errorf("persist session: %w", err)
	}
	return &out, nil
}

// Register creates an account. The role is constrained locally before
// the backend is ever called.
func (c *Client) Register(ctx context.Context, username, password string, role model.Role) (*model.User, error) {
	if !role.Valid() {
		return nil, model.NewAPIError(model.ErrKindValidation, 0,
			fmt.Sprintf("invalid role %q: must be %q or %q", role, model.RoleBuyer, model.RoleSeller))
	}
	var out model.User
	payload := model.RegisterRequest{Username: username, Password: password, Role: role}
	if err := c.do(ctx, http.MethodPost, "/auth/register", payload, false, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Logout clears the persisted session. Purely local; the backend keeps
// no session state worth revoking.
func (c *Client) Logout() error {
	return c.session.Clear()
}

// AvailableFoods lists every listing the backend deems available.
func (c *Client) AvailableFoods(ctx context.Context) ([]model.FoodListing, error) {
	var out []model.FoodListing
	if err := c.do(ctx, http.MethodGet, "/food/available", nil, false, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// MyFoods lists the caller's own listings regardless of status.
func (c *Client) MyFoods(ctx context.Context) ([]model.FoodListing, error) {
	var out []model.FoodListing
	if err := c.do(ctx, http.MethodGet, "/food/my", nil, true, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateFood adds a listing for the signed-in seller. Concurrent
// identical calls (a double-tapped save) collapse into one request.
func (c *Client) CreateFood(ctx context.Context, fields model.FoodFields) (*model.FoodListing, error) {
	v, err, _ := c.flight.Do("create", func() (interface{}, error) {
		var out model.FoodListing
		if err := c.do(ctx, http.MethodPost, "/food", fields, true, &out); err != nil {
			return nil, err
		}
		return &out, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*model.FoodListing), nil
}

// UpdateFood applies a partial update: only the supplied fields change.
func (c *Client) UpdateFood(ctx context.Context, id string, fields model.FoodFields) (*model.FoodListing, error) {
	v, err, _ := c.flight.Do("update:"+id, func() (interface{}, error) {
		var out model.FoodListing
		if err := c.do(ctx, http.MethodPut, "/food/"+url.PathEscape(id), fields, true, &out); err != nil {
			return nil, err
		}
		return &out, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*model.FoodListing), nil
}

// DeleteFood removes one of the caller's own listings.
func (c *Client) DeleteFood(ctx context.Context, id string) error {
	_, err, _ := c.flight.Do("delete:"+id, func() (interface{}, error) {
		return nil, c.do(ctx, http.MethodDelete, "/food/"+url.PathEscape(id), nil, true, nil)
	})
	return err
}

// do performs one request/response round trip. A nil out discards the
// response body.
func (c *Client) do(ctx context.Context, method, path string, body interface{}, authed bool, out interface{}) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json; charset=utf-8")
	}

	if authed {
		token, err := c.session.Token()
		if err != nil {
			if errors.Is(err, session.ErrNoSession) {
				return model.NewAPIError(model.ErrKindAuth, 0, "not signed in")
			}
			return fmt.Errorf("read session: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error().Err(err).
			Str("method", method).
			Str("path", path).
			Msg("request failed")
		return model.NewAPIError(model.ErrKindNetwork, 0, err.Error())
	}
	defer resp.Body.Close()

	c.logger.Debug().
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("duration", time.Since(start)).
		Msg("http request")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return classify(resp)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return model.NewAPIError(model.ErrKindValidation, resp.StatusCode,
			fmt.Sprintf("unexpected response shape: %v", err))
	}
	return nil
}

// classify maps a non-2xx response onto the error taxonomy, keeping
// the backend's own message when one was supplied.
func classify(resp *http.Response) error {
	msg := serverMessage(resp.Body)
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}

	kind := model.ErrKindUnexpected
	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		kind = model.ErrKindAuth
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		kind = model.ErrKindValidation
	case http.StatusNotFound:
		kind = model.ErrKindNotFound
	}
	return model.NewAPIError(kind, resp.StatusCode, msg)
}

// serverMessage pulls the error text out of the backend's envelope,
// tolerating both {error} and {message} shapes. Non-JSON bodies are
// passed through trimmed.
func serverMessage(r io.Reader) string {
	b, err := io.ReadAll(io.LimitReader(r, 64<<10))
	if err != nil {
		return ""
	}
	var env model.ErrorResponse
	if err := json.Unmarshal(b, &env); err == nil {
		if env.Message != "" {
			return env.Message
		}
		if env.Error != "" {
			return env.Error
		}
	}
	return strings.TrimSpace(string(b))
}
