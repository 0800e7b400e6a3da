package client

import (
	"context"
	"errors"
	"net/http"

	"github.com/jghoshh/bienestar/backend/models"
	"github.com/jghoshh/bienestar/backend/server/auth"
)

var errAlreadySignedIn = errors.New("a user is already signed in")

func (c *Client) startSession(ctx context.Context, path string, body interface{}) (*models.User, error) {
	signedIn, err := c.SignedIn()
	if err != nil {
		return nil, err
	}
	if signedIn {
		return nil, errAlreadySignedIn
	}
	var session auth.Session
	if err := c.call(ctx, http.MethodPost, path, "", body, &session); err != nil {
		return nil, err
	}
	if err := c.tokens.Save(session.Tokens.AccessToken, session.Tokens.RefreshToken); err != nil {
		return nil, err
	}
	return session.User, nil
}

// SignUp creates an account and stores its session.
func (c *Client) SignUp(ctx context.Context, email, password string) (*models.User, error) {
	return c.startSession(ctx, "/auth/register", map[string]string{"email": email, "password": password})
}

// SignIn stores the session of an existing account.
func (c *Client) SignIn(ctx context.Context, email, password string) (*models.User, error) {
	return c.startSession(ctx, "/auth/login", map[string]string{"email": email, "password": password})
}

// SignOut revokes the refresh token and forgets the session. The local
// session is cleared even when the server cannot be reached.
func (c *Client) SignOut(ctx context.Context) error {
	_, refresh, err := c.tokens.Load()
	if err != nil {
		return err
	}
	var callErr error
	if refresh != "" {
		callErr = c.call(ctx, http.MethodPost, "/auth/signout", "", map[string]string{"refreshToken": refresh}, nil)
	}
	if err := c.tokens.Clear(); err != nil {
		return err
	}
	return callErr
}

func (c *Client) RequestPasswordReset(ctx context.Context, email string) error {
	return c.call(ctx, http.MethodPost, "/auth/password-reset", "", map[string]string{"email": email}, nil)
}

func (c *Client) ResetPassword(ctx context.Context, email, token, newPassword string) error {
	body := map[string]string{"email": email, "token": token, "newPassword": newPassword}
	return c.call(ctx, http.MethodPost, "/auth/password-reset/confirm", "", body, nil)
}

func (c *Client) Me(ctx context.Context) (*models.User, error) {
	var user models.User
	if err := c.authed(ctx, http.MethodGet, "/me", nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// UpdateProfile changes the non-empty fields.
func (c *Client) UpdateProfile(ctx context.Context, displayName, photoURL string) (*models.User, error) {
	body := map[string]string{}
	if displayName != "" {
		body["displayName"] = displayName
	}
	if photoURL != "" {
		body["photoUrl"] = photoURL
	}
	var user models.User
	if err := c.authed(ctx, http.MethodPatch, "/me", body, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// DeleteAccount deletes the account and forgets the session.
func (c *Client) DeleteAccount(ctx context.Context) error {
	if err := c.authed(ctx, http.MethodDelete, "/me", nil, nil); err != nil {
		return err
	}
	return c.tokens.Clear()
}
