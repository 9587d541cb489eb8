package apiclient

import (
	"context"
	"net/http"
	"net/url"
)

type LoginResult struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Token   string `json:"token,omitempty"`
	UserID  string `json:"user_id,omitempty"`
}

type RegisterRequest struct {
	ID       string `json:"id"`
	Password string `json:"password"`
	Email    string `json:"email"`
	Code     string `json:"code"`
}

type User struct {
	ID              string `json:"id"`
	Email           string `json:"email"`
	ProfileImageURL string `json:"profile_image_url,omitempty"`
	CreatedAt       string `json:"created_at,omitempty"`
}

func (c *Client) Login(ctx context.Context, id, password string) (*LoginResult, error) {
	var out LoginResult
	err := c.doJSON(ctx, http.MethodPost, "/login", map[string]string{"id": id, "password": password}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Register(ctx context.Context, req RegisterRequest) (*Ack, error) {
	return c.ack(ctx, http.MethodPost, "/register", req)
}

func (c *Client) SendVerificationCode(ctx context.Context, email string) (*Ack, error) {
	return c.ack(ctx, http.MethodPost, "/send-verification-code", map[string]string{"email": email})
}

func (c *Client) VerifyEmailCode(ctx context.Context, email, code string) (*Ack, error) {
	return c.ack(ctx, http.MethodPost, "/verify-email-code", map[string]string{"email": email, "code": code})
}

func (c *Client) SendResetPasswordCode(ctx context.Context, email string) (*Ack, error) {
	return c.ack(ctx, http.MethodPost, "/send-reset-password-code", map[string]string{"email": email})
}

func (c *Client) VerifyResetPasswordCode(ctx context.Context, email, code string) (*Ack, error) {
	return c.ack(ctx, http.MethodPost, "/verify-reset-password-code", map[string]string{"email": email, "code": code})
}

func (c *Client) ResetPassword(ctx context.Context, email, code, newPassword string) (*Ack, error) {
	return c.ack(ctx, http.MethodPost, "/reset-password", map[string]string{
		"email":       email,
		"code":        code,
		"newPassword": newPassword,
	})
}

func (c *Client) User(ctx context.Context, userID string) (*User, error) {
	var out User
	if err := c.doJSON(ctx, http.MethodGet, "/user/"+url.PathEscape(userID), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateEmail(ctx context.Context, userID, email, code string) (*Ack, error) {
	return c.ack(ctx, http.MethodPut, "/user/"+url.PathEscape(userID)+"/email", map[string]string{
		"email": email,
		"code":  code,
	})
}

func (c *Client) ack(ctx context.Context, method, path string, in any) (*Ack, error) {
	var out Ack
	if err := c.doJSON(ctx, method, path, in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
