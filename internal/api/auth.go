package api

import (
	"context"
	"net/http"
)

// RegisterStepOneParams is the first registration step payload.
type RegisterStepOneParams struct {
	Email               string `json:"email"`
	FirstName           string `json:"first_name"`
	LastName            string `json:"last_name"`
	PhoneNumber         string `json:"phone_number"`
	Password            string `json:"password"`
	CompanyName         string `json:"company_name"`
	PrimaryShipsCountry string `json:"primary_ships_country"`
}

// RegisterStepOneResult acknowledges the created account.
type RegisterStepOneResult struct {
	Message     string `json:"message"`
	UserID      string `json:"user_id"`
	Email       string `json:"email"`
	FirstName   string `json:"first_name"`
	CompanyName string `json:"company_name"`
}

// MessageResult is the backend's bare acknowledgement payload.
type MessageResult struct {
	Message string `json:"message"`
}

func (c *Client) RegisterStepOne(ctx context.Context, params RegisterStepOneParams) (RegisterStepOneResult, error) {
	var result RegisterStepOneResult
	err := c.do(ctx, requestSpec{method: http.MethodPost, path: "/auth/register/step-1/", body: params}, &result)
	return result, err
}

// Login exchanges credentials for a token and user.
func (c *Client) Login(ctx context.Context, email, password string) (AuthResponse, error) {
	var result AuthResponse
	err := c.do(ctx, requestSpec{
		method: http.MethodPost,
		path:   "/auth/login/",
		body:   map[string]string{"email": email, "password": password},
	}, &result)
	return result, err
}

// CurrentUser fetches the authenticated account, validating the token.
func (c *Client) CurrentUser(ctx context.Context) (User, error) {
	var user User
	err := c.do(ctx, requestSpec{method: http.MethodGet, path: "/auth/user/"}, &user)
	return user, err
}

// Logout invalidates the session server-side.
func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, requestSpec{method: http.MethodPost, path: "/auth/logout/"}, nil)
}

func (c *Client) PasswordResetRequest(ctx context.Context, email string) (MessageResult, error) {
	var result MessageResult
	err := c.do(ctx, requestSpec{
		method: http.MethodPost,
		path:   "/auth/password-reset/request/",
		body:   map[string]string{"email": email},
	}, &result)
	return result, err
}

func (c *Client) PasswordResetConfirm(ctx context.Context, token, password string) (MessageResult, error) {
	var result MessageResult
	err := c.do(ctx, requestSpec{
		method: http.MethodPost,
		path:   "/auth/password-reset/confirm/",
		body:   map[string]string{"token": token, "password": password},
	}, &result)
	return result, err
}

func (c *Client) VerifyEmail(ctx context.Context, token string) (MessageResult, error) {
	var result MessageResult
	err := c.do(ctx, requestSpec{
		method: http.MethodPost,
		path:   "/auth/verify-email/",
		body:   map[string]string{"token": token},
	}, &result)
	return result, err
}

func (c *Client) ResendVerificationEmail(ctx context.Context, email string) (MessageResult, error) {
	var result MessageResult
	err := c.do(ctx, requestSpec{
		method: http.MethodPost,
		path:   "/auth/resend-verification/",
		body:   map[string]string{"email": email},
	}, &result)
	return result, err
}
