package api

import (
	"context"
	"encoding/json"
	"net/http"

	guestalbum "github.com/goliatone/go-guestalbum"
)

var _ guestalbum.AuthAPI = (*Client)(nil)

// authResponse accepts the token under the names servers commonly use.
type authResponse struct {
	User        guestalbum.User `json:"user"`
	Access      string          `json:"access"`
	AccessToken string          `json:"access_token"`
	Token       string          `json:"token"`
	Refresh     string          `json:"refresh,omitempty"`
}

func (r authResponse) token() string {
	switch {
	case r.Access != "":
		return r.Access
	case r.AccessToken != "":
		return r.AccessToken
	default:
		return r.Token
	}
}

func (r authResponse) toDomain() *guestalbum.AuthResponse {
	return &guestalbum.AuthResponse{User: r.User, AccessToken: r.token()}
}

// Login implements guestalbum.AuthAPI.
func (c *Client) Login(ctx context.Context, credentials guestalbum.LoginCredentials) (*guestalbum.AuthResponse, error) {
	var out authResponse
	if err := c.doJSON(ctx, "login", http.MethodPost, c.endpoint(c.config.Endpoints.Login), credentials, &out); err != nil {
		return nil, err
	}
	return out.toDomain(), nil
}

// Register implements guestalbum.AuthAPI.
func (c *Client) Register(ctx context.Context, registration guestalbum.Registration) (*guestalbum.AuthResponse, error) {
	var out authResponse
	if err := c.doJSON(ctx, "register", http.MethodPost, c.endpoint(c.config.Endpoints.Register), registration, &out); err != nil {
		return nil, err
	}
	return out.toDomain(), nil
}

// Logout implements guestalbum.AuthAPI.
func (c *Client) Logout(ctx context.Context, refreshToken string) error {
	payload := map[string]string{"refresh": refreshToken}
	return c.doJSON(ctx, "logout", http.MethodPost, c.endpoint(c.config.Endpoints.Logout), payload, nil)
}

// Profile implements guestalbum.AuthAPI.
func (c *Client) Profile(ctx context.Context) (*guestalbum.User, error) {
	var out guestalbum.User
	if err := c.doJSON(ctx, "profile", http.MethodGet, c.endpoint(c.config.Endpoints.Profile), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateProfile implements guestalbum.AuthAPI. The response is either a full
// user or only the nested profile; the latter comes back as a User whose
// Profile is set and whose identity is empty.
func (c *Client) UpdateProfile(ctx context.Context, patch guestalbum.ProfilePatch) (*guestalbum.User, error) {
	var raw json.RawMessage
	if err := c.doJSON(ctx, "profile update", http.MethodPatch, c.endpoint(c.config.Endpoints.ProfileUpdate), patch, &raw); err != nil {
		return nil, err
	}
	return decodeProfileUpdate(raw)
}

// ChangePassword implements guestalbum.AuthAPI.
func (c *Client) ChangePassword(ctx context.Context, change guestalbum.PasswordChange) error {
	return c.doJSON(ctx, "password change", http.MethodPost, c.endpoint(c.config.Endpoints.PasswordChange), change, nil)
}

func decodeProfileUpdate(raw json.RawMessage) (*guestalbum.User, error) {
	user := &guestalbum.User{}
	if len(raw) == 0 {
		return user, nil
	}
	if err := json.Unmarshal(raw, user); err != nil {
		return nil, &Error{Operation: "profile update", Detail: "failed to decode response", Err: err}
	}
	if user.HasIdentity() || user.Profile != nil {
		return user, nil
	}

	profile := &guestalbum.Profile{}
	if err := json.Unmarshal(raw, profile); err != nil {
		return nil, &Error{Operation: "profile update", Detail: "failed to decode response", Err: err}
	}
	if *profile != (guestalbum.Profile{}) {
		user.Profile = profile
	}
	return user, nil
}
