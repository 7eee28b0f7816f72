package backend

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
)

// Profile is the backend's view of the signed-in user.
type Profile struct {
	ID        string   `json:"id"`
	Email     string   `json:"email"`
	Username  string   `json:"username"`
	FullName  string   `json:"full_name"`
	Roles     []string `json:"roles"`
	IsActive  bool     `json:"is_active"`
	AvatarURL string   `json:"avatar_url"`
}

// DisplayName is the full name when set, else the email.
func (p Profile) DisplayName() string {
	if n := strings.TrimSpace(p.FullName); n != "" {
		return n
	}
	return p.Email
}

// UnmarshalJSON accepts numeric or string ids.
func (p *Profile) UnmarshalJSON(b []byte) error {
	type plain Profile
	aux := struct {
		ID json.RawMessage `json:"id"`
		*plain
	}{plain: (*plain)(p)}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	p.ID = ""
	if len(aux.ID) > 0 && string(aux.ID) != "null" {
		var s string
		if err := json.Unmarshal(aux.ID, &s); err == nil {
			p.ID = s
		} else {
			p.ID = string(aux.ID)
		}
	}
	return nil
}

// Login exchanges credentials for a backend access token.
// Any rejection maps to ErrInvalidCredentials; transport failures do not.
func (c *Client) Login(ctx context.Context, email, password string) (string, error) {
	form := url.Values{}
	form.Set("username", email)
	form.Set("password", password)

	// Never forward a stale bearer on login.
	resp, err := c.Do(WithToken(ctx, ""), Request{
		Method:      http.MethodPost,
		Path:        "/users/login",
		Body:        []byte(form.Encode()),
		ContentType: "application/x-www-form-urlencoded",
	})
	if err != nil {
		return "", err
	}
	if resp.Status != http.StatusOK {
		c.log.Debug("backend login rejected", "status", resp.Status)
		return "", ErrInvalidCredentials
	}

	var payload struct {
		AccessToken string `json:"access_token"`
	}
	if err := decodeJSON(resp.Body, &payload); err != nil || payload.AccessToken == "" {
		return "", ErrInvalidCredentials
	}
	return payload.AccessToken, nil
}

// Profile fetches /users/me with the bearer in ctx.
func (c *Client) Profile(ctx context.Context) (Profile, error) {
	var p Profile
	if _, err := c.DoJSON(ctx, Request{Method: http.MethodGet, Path: "/users/me"}, &p); err != nil {
		return Profile{}, err
	}
	return p, nil
}

// Ping calls the authenticated ping endpoint and returns the raw status.
func (c *Client) Ping(ctx context.Context) (int, error) {
	resp, err := c.Do(ctx, Request{Method: http.MethodGet, Path: "/ping/"})
	if err != nil {
		return 0, err
	}
	return resp.Status, nil
}

// PingWithToken probes with an explicit token. The interceptor stays out of it.
func (c *Client) PingWithToken(ctx context.Context, token string) (int, error) {
	return c.Ping(WithToken(ctx, token))
}

// ProfileWithToken fetches the profile for a freshly issued token.
func (c *Client) ProfileWithToken(ctx context.Context, token string) (Profile, error) {
	return c.Profile(WithToken(ctx, token))
}

func decodeJSON(b []byte, dst any) error {
	if len(b) == 0 {
		return errEmptyBody
	}
	return json.Unmarshal(b, dst)
}
