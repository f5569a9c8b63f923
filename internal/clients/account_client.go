// internal/clients/account_client.go
package clients

import (
	"context"
	"net/http"

	"rentvideo/internal/account"
	"rentvideo/internal/auth"
)

func (c *Client) Register(ctx context.Context, in account.RegisterInput) (*account.User, error) {
	var user account.User
	if err := c.do(ctx, http.MethodPost, "/api/auth/register", in, &user, http.StatusCreated); err != nil {
		return nil, err
	}
	return &user, nil
}

// Login authenticates and returns a client carrying the issued token.
func (c *Client) Login(ctx context.Context, username, password string) (*Client, *auth.TokenResponse, error) {
	var tok auth.TokenResponse
	req := auth.LoginRequest{Username: username, Password: password}
	if err := c.do(ctx, http.MethodPost, "/api/auth/login", req, &tok, http.StatusOK); err != nil {
		return nil, nil, err
	}
	return c.WithToken(tok.AccessToken), &tok, nil
}

func (c *Client) Me(ctx context.Context) (*account.User, error) {
	var user account.User
	if err := c.do(ctx, http.MethodGet, "/api/users/me", nil, &user, http.StatusOK); err != nil {
		return nil, err
	}
	return &user, nil
}

func (c *Client) UpdateMe(ctx context.Context, in account.UpdateProfileInput) (*account.User, error) {
	var user account.User
	if err := c.do(ctx, http.MethodPut, "/api/users/me", in, &user, http.StatusOK); err != nil {
		return nil, err
	}
	return &user, nil
}

func (c *Client) ListUsers(ctx context.Context) ([]*account.User, error) {
	var users []*account.User
	if err := c.do(ctx, http.MethodGet, "/api/users", nil, &users, http.StatusOK); err != nil {
		return nil, err
	}
	return users, nil
}
