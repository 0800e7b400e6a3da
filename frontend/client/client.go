// Package client talks to the bienestar HTTP API and keeps the session
// tokens in the system keyring.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/jghoshh/bienestar/backend/server/auth"
	"github.com/zalando/go-keyring"
)

// KeyringService is the keyring service the tokens are stored under.
const KeyringService = "Bienestar"

const (
	accessKey  = "access_token"
	refreshKey = "refresh_token"
)

// ErrNotSignedIn is returned by calls that need a session when none is stored.
var ErrNotSignedIn = errors.New("no user is currently signed in")

// APIError is a failure reported by the server.
type APIError struct {
	Status  int
	Message string `json:"error"`
	Kind    string `json:"kind"`
	Field   string `json:"field"`
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server returned %d", e.Status)
	}
	return e.Message
}

// TokenStore persists the session tokens between runs.
type TokenStore interface {
	Load() (access, refresh string, err error)
	Save(access, refresh string) error
	Clear() error
}

// KeyringStore keeps tokens in the system keyring.
type KeyringStore struct {
	Service string
}

func (k KeyringStore) Load() (string, string, error) {
	access, err := keyring.Get(k.Service, accessKey)
	if errors.Is(err, keyring.ErrNotFound) {
		return "", "", nil
	} else if err != nil {
		return "", "", fmt.Errorf("failed to access keyring: %w", err)
	}
	refresh, err := keyring.Get(k.Service, refreshKey)
	if err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return "", "", fmt.Errorf("failed to access keyring: %w", err)
	}
	return access, refresh, nil
}

// Save stores both tokens, rolling back the access token when the refresh
// token cannot be written.
func (k KeyringStore) Save(access, refresh string) error {
	if err := keyring.Set(k.Service, accessKey, access); err != nil {
		return fmt.Errorf("failed to store access token: %w", err)
	}
	if err := keyring.Set(k.Service, refreshKey, refresh); err != nil {
		_ = keyring.Delete(k.Service, accessKey)
		return fmt.Errorf("failed to store refresh token: %w", err)
	}
	return nil
}

func (k KeyringStore) Clear() error {
	for _, key := range []string{accessKey, refreshKey} {
		if err := keyring.Delete(k.Service, key); err != nil && !errors.Is(err, keyring.ErrNotFound) {
			return fmt.Errorf("failed to clear keyring: %w", err)
		}
	}
	return nil
}

type Client struct {
	baseURL string
	http    *http.Client
	tokens  TokenStore
}

func New(serverURL string, tokens TokenStore) *Client {
	return &Client{
		baseURL: strings.TrimRight(serverURL, "/") + "/api/v1",
		http:    &http.Client{Timeout: 15 * time.Second},
		tokens:  tokens,
	}
}

// SignedIn reports whether a session is stored.
func (c *Client) SignedIn() (bool, error) {
	access, _, err := c.tokens.Load()
	return access != "", err
}

// call sends one request without authentication.
func (c *Client) call(ctx context.Context, method, path, token string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode >= 300 {
		apiErr := &APIError{Status: resp.StatusCode}
		_ = json.Unmarshal(raw, apiErr)
		return apiErr
	}
	if out != nil && len(raw) > 0 {
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}

// authed sends a request with the stored access token. When the server
// rejects it the tokens are refreshed once and the request retried.
func (c *Client) authed(ctx context.Context, method, path string, in, out interface{}) error {
	access, refresh, err := c.tokens.Load()
	if err != nil {
		return err
	}
	if access == "" {
		return ErrNotSignedIn
	}
	err = c.call(ctx, method, path, access, in, out)
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusUnauthorized || refresh == "" {
		return err
	}

	tokens, err := c.refresh(ctx, refresh)
	if err != nil {
		return err
	}
	return c.call(ctx, method, path, tokens.AccessToken, in, out)
}

// refresh rotates the stored tokens. A rejected refresh token ends the
// session.
func (c *Client) refresh(ctx context.Context, refreshToken string) (*auth.Tokens, error) {
	var tokens auth.Tokens
	err := c.call(ctx, http.MethodPost, "/auth/refresh", "", map[string]string{"refreshToken": refreshToken}, &tokens)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized {
			_ = c.tokens.Clear()
			return nil, fmt.Errorf("session expired, please sign in again: %w", err)
		}
		return nil, err
	}
	if err := c.tokens.Save(tokens.AccessToken, tokens.RefreshToken); err != nil {
		return nil, err
	}
	return &tokens, nil
}
