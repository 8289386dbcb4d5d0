package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"

	"go.uber.org/zap"
)

// Login authenticates and starts the session. The server may wrap the
// payload in {message, data}; both shapes are accepted.
func (c *Client) Login(ctx context.Context, email, password string) (User, error) {
	req := LoginRequest{Email: email, Password: password}
	if err := check(req); err != nil {
		return User{}, err
	}
	var resp loginResponse
	if err := c.do(ctx, request{method: http.MethodPost, path: "/users/login", body: req, out: &resp}); err != nil {
		return User{}, err
	}
	if resp.Token == "" && len(resp.Data) > 0 {
		var inner loginResponse
		if err := json.Unmarshal(resp.Data, &inner); err != nil {
			return User{}, err
		}
		inner.Message = resp.Message
		resp = inner
	}
	if resp.Token == "" {
		return User{}, errors.New("login response carried no token")
	}
	user := User{Email: email}
	if resp.User != nil {
		user = *resp.User
	}
	if err := c.session.Begin(ctx, resp.Token, "", user.SessionUser()); err != nil {
		return user, err
	}
	return user, nil
}

// Register creates an account and returns the server's message. It does
// not log in.
func (c *Client) Register(ctx context.Context, in RegisterRequest) (string, error) {
	if err := check(in); err != nil {
		return "", err
	}
	var resp messageResponse
	if err := c.do(ctx, request{method: http.MethodPost, path: "/users/register", body: in, out: &resp}); err != nil {
		return "", err
	}
	return resp.Message, nil
}

// Logout tells the server and always clears the local session, even when
// the server call fails.
func (c *Client) Logout(ctx context.Context) error {
	if c.session.Authenticated() {
		err := c.do(ctx, request{method: http.MethodPost, path: "/auth/logout"})
		if err != nil && !errors.Is(err, ErrSessionExpired) {
			c.logger.Debug("server logout failed", zap.Error(err))
		}
	}
	return c.session.End(context.WithoutCancel(ctx), "logout")
}

// Refresh renews the access token. Callers racing with a 401 retry share
// the same request.
func (c *Client) Refresh(ctx context.Context) error {
	token := c.session.Token()
	if token == "" {
		return ErrNotAuthenticated
	}
	_, err := c.refresh(ctx, token)
	return err
}

func (c *Client) Profile(ctx context.Context) (User, error) {
	var user User
	if err := c.do(ctx, request{method: http.MethodGet, path: "/users/profile", out: &user}); err != nil {
		return User{}, err
	}
	if err := c.session.SetUser(ctx, user.SessionUser()); err != nil {
		c.logger.Warn("cache profile", zap.Error(err))
	}
	return user, nil
}

func (c *Client) UpdateProfile(ctx context.Context, in ProfileUpdate) (User, error) {
	if err := check(in); err != nil {
		return User{}, err
	}
	var resp messageResponse
	if err := c.do(ctx, request{method: http.MethodPut, path: "/users/profile", body: in, out: &resp}); err != nil {
		return User{}, err
	}
	var user User
	if len(resp.Data) > 0 {
		if err := json.Unmarshal(resp.Data, &user); err != nil {
			return User{}, err
		}
		if err := c.session.SetUser(ctx, user.SessionUser()); err != nil {
			c.logger.Warn("cache profile", zap.Error(err))
		}
	}
	return user, nil
}

// RequestPasswordReset mails a one-time code to email.
func (c *Client) RequestPasswordReset(ctx context.Context, email string) (string, error) {
	if err := check(struct {
		Email string `json:"email" validate:"required,email"`
	}{email}); err != nil {
		return "", err
	}
	var resp messageResponse
	err := c.do(ctx, request{
		method: http.MethodPost,
		path:   "/users/forgot-password/request-otp",
		query:  url.Values{"email": {email}},
		out:    &resp,
	})
	return resp.Message, err
}

func (c *Client) ResetPassword(ctx context.Context, email, otp, newPassword string) (string, error) {
	if err := check(struct {
		Email    string `json:"email" validate:"required,email"`
		OTP      string `json:"otp" validate:"notblank"`
		Password string `json:"newPassword" validate:"required,min=8"`
	}{email, otp, newPassword}); err != nil {
		return "", err
	}
	var resp messageResponse
	err := c.do(ctx, request{
		method: http.MethodPost,
		path:   "/users/forgot-password/reset",
		query:  url.Values{"email": {email}, "otp": {otp}, "newPassword": {newPassword}},
		out:    &resp,
	})
	return resp.Message, err
}
