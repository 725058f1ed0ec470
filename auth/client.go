package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/lingomark/lingomark"
)

// Client talks to a GoTrue-shaped auth service. Every method resolves to a
// typed result or a typed error; nothing panics on bad input or bad wire
// data.
type Client struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// ClientConfig holds configuration for the auth client.
type ClientConfig struct {
	BaseURL string        // Service root, e.g. https://project.example.co
	APIKey  string        // Public API key sent in the apikey header
	Timeout time.Duration // HTTP timeout (default: 15s)
	Client  *http.Client  // Custom HTTP client (optional)
}

// NewClient creates an auth service client.
func NewClient(cfg ClientConfig) *Client {
	client := cfg.Client
	if client == nil {
		timeout := cfg.Timeout
		if timeout == 0 {
			timeout = 15 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}

	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		client:  client,
	}
}

// SignIn exchanges credentials for a session.
func (c *Client) SignIn(ctx context.Context, email, password string) (*Session, error) {
	body := map[string]string{"email": email, "password": password}
	return c.tokenRequest(ctx, "password", body)
}

// RefreshSession exchanges a refresh token for a new session.
func (c *Client) RefreshSession(ctx context.Context, refreshToken string) (*Session, error) {
	body := map[string]string{"refresh_token": refreshToken}
	return c.tokenRequest(ctx, "refresh_token", body)
}

// SignOut revokes the session server-side. Local state is the caller's to
// clear; the Keeper does both.
func (c *Client) SignOut(ctx context.Context, accessToken string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/auth/v1/logout", nil)
	if err != nil {
		return &lingomark.AuthError{Message: "building logout request", Cause: err}
	}
	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("User-Agent", lingomark.UserAgent())

	resp, err := c.client.Do(req)
	if err != nil {
		return &lingomark.AuthError{Message: "calling auth service", Cause: err}
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<16))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &lingomark.AuthError{Status: resp.StatusCode, Message: "sign-out rejected"}
	}
	return nil
}

func (c *Client) tokenRequest(ctx context.Context, grantType string, body map[string]string) (*Session, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, &lingomark.AuthError{Message: "encoding credentials", Cause: err}
	}

	u := fmt.Sprintf("%s/auth/v1/token?grant_type=%s", c.baseURL, grantType)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(payload))
	if err != nil {
		return nil, &lingomark.AuthError{Message: "building token request", Cause: err}
	}
	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", lingomark.UserAgent())

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &lingomark.AuthError{Message: "calling auth service", Cause: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, &lingomark.AuthError{Message: "reading auth response", Cause: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &lingomark.AuthError{
			Status:  resp.StatusCode,
			Message: errorMessage(data),
		}
	}

	var session Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, &lingomark.AuthError{Message: "decoding auth response", Cause: err}
	}
	if session.AccessToken == "" {
		return nil, &lingomark.AuthError{Message: "auth response missing access token"}
	}
	return &session, nil
}

// errorMessage pulls a usable message out of a GoTrue error body, which has
// worn several shapes across versions.
func errorMessage(data []byte) string {
	var body struct {
		ErrorDescription string `json:"error_description"`
		Msg              string `json:"msg"`
		Message          string `json:"message"`
		Error            string `json:"error"`
	}
	if err := json.Unmarshal(data, &body); err == nil {
		for _, m := range []string{body.ErrorDescription, body.Msg, body.Message, body.Error} {
			if m != "" {
				return m
			}
		}
	}
	return "authentication failed"
}
