package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"ctbadmin/internal/domain/account"
	"ctbadmin/internal/domain/catalog"
)

type userWire struct {
	ID    catalog.ID `json:"id"`
	Email string     `json:"email"`
	Name  string     `json:"name"`
	Role  string     `json:"role"`
}

func (u userWire) toUser() account.User {
	return account.User{ID: u.ID.String(), Email: u.Email, Name: u.Name, Role: u.Role}
}

// Login exchanges credentials for a bearer token.
// PRE: creds were validated
// POST: Returns token and user, ErrInvalidCredentials when the backend
// rejects the pair, or an ErrNetwork-wrapped error when it cannot be reached
func (c *Client) Login(ctx context.Context, creds account.Credentials) (string, account.User, error) {
	var body struct {
		Token string    `json:"token"`
		User  *userWire `json:"user"`
	}
	err := c.do(ctx, http.MethodPost, "/auth/login", map[string]string{
		"email":    creds.Email,
		"password": creds.Password,
	}, &body)
	if err != nil {
		switch StatusOf(err) {
		case http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden:
			return "", account.User{}, fmt.Errorf("login: %w", ErrInvalidCredentials)
		}
		return "", account.User{}, fmt.Errorf("login: %w", err)
	}
	if body.Token == "" || body.User == nil {
		return "", account.User{}, errors.New("login: response carried no token or user")
	}
	return body.Token, body.User.toUser(), nil
}

// Me returns the profile bound to the current token.
// PRE: a token source is attached
// POST: Returns the user or the call error (401 triggers the unauthorized hook)
func (c *Client) Me(ctx context.Context) (account.User, error) {
	var body struct {
		User *userWire `json:"user"`
		userWire
	}
	if err := c.do(ctx, http.MethodGet, "/auth/me", nil, &body); err != nil {
		return account.User{}, err
	}
	if body.User != nil {
		return body.User.toUser(), nil
	}
	if body.Email == "" && body.ID.IsZero() {
		return account.User{}, errors.New("me: response carried no user")
	}
	return body.userWire.toUser(), nil
}
