package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/oauth2"

	"github.com/imkarma/taskboard/internal/task"
)

// User is the account behind the current session.
type User struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	Username  string    `json:"username"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

// UnmarshalJSON decodes a user, accepting a zone-less created_at.
func (u *User) UnmarshalJSON(b []byte) error {
	type plain User
	var w struct {
		plain
		CreatedAt task.Timestamp `json:"created_at"`
	}
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	*u = User(w.plain)
	u.CreatedAt = w.CreatedAt.Time
	return nil
}

// IsAdmin reports whether the user carries the admin role.
func (u User) IsAdmin() bool { return u.Role == "admin" }

// Registration is the sign-up payload.
type Registration struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
}

// Login exchanges credentials for an access token. A wrong password is
// reported as ErrUnauthorized and does not count as session expiry.
func (c *Client) Login(ctx context.Context, email, password string) (*oauth2.Token, error) {
	var tok oauth2.Token
	body := map[string]string{"email": email, "password": password}
	if err := c.do(ctx, http.MethodPost, "/auth/login", nil, body, &tok); err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}
	if tok.AccessToken == "" {
		return nil, fmt.Errorf("login: server returned no access token")
	}
	return &tok, nil
}

// Register creates an account. It does not log in.
func (c *Client) Register(ctx context.Context, r Registration) (*User, error) {
	var u User
	if err := c.do(ctx, http.MethodPost, "/auth/register", nil, r, &u); err != nil {
		return nil, fmt.Errorf("register: %w", err)
	}
	return &u, nil
}

// Me returns the user the stored credential belongs to.
func (c *Client) Me(ctx context.Context) (*User, error) {
	var u User
	if err := c.do(ctx, http.MethodGet, "/auth/me", nil, nil, &u); err != nil {
		return nil, fmt.Errorf("current user: %w", err)
	}
	return &u, nil
}
