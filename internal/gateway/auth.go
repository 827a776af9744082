package gateway

import (
	"context"

	"github.com/qytetaret/synckit/internal/model"
)

// loginResponse is the gateway payload for a successful login.
type loginResponse struct {
	Token string     `json:"token"`
	User  model.User `json:"user"`
}

// Login authenticates against the gateway and returns the issued token
// and user record. The token is not validated client-side; the server
// remains the authority on validity.
func (c *Client) Login(ctx context.Context, email, password string) (string, *model.User, error) {
	body := map[string]string{
		"email":    email,
		"password": password,
	}

	var resp loginResponse
	if err := c.post(ctx, "/auth/login", body, &resp); err != nil {
		return "", nil, err
	}
	return resp.Token, &resp.User, nil
}

// Register creates an account on the gateway and returns the new user.
func (c *Client) Register(ctx context.Context, draft model.RegisterDraft) (*model.User, error) {
	var u model.User
	if err := c.post(ctx, "/auth/register", draft, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// UpdateProfile updates the authenticated user's profile fields.
func (c *Client) UpdateProfile(ctx context.Context, update model.ProfileUpdate) (*model.User, error) {
	var u model.User
	if err := c.put(ctx, "/auth/profile", update, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// ChangePassword replaces the authenticated user's password.
func (c *Client) ChangePassword(ctx context.Context, current, next string) error {
	body := map[string]string{
		"currentPassword": current,
		"newPassword":     next,
	}
	return c.put(ctx, "/auth/password", body, nil)
}

// UpdatePreferences replaces the authenticated user's notification
// preference flags.
func (c *Client) UpdatePreferences(ctx context.Context, prefs model.NotificationPrefs) error {
	return c.put(ctx, "/auth/preferences", prefs, nil)
}

// DeleteAccount removes the authenticated user's account.
func (c *Client) DeleteAccount(ctx context.Context) error {
	return c.delete(ctx, "/auth/account")
}
