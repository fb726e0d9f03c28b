package backend

import (
	"context"
	"net/http"
)

// LoginResponse is the body of POST /auth/login.
type LoginResponse struct {
	Token       string    `json:"token"`
	ID          int64     `json:"id"`
	Email       string    `json:"email"`
	AdSoyad     string    `json:"adSoyad"`
	Rol         string    `json:"rol"`
	Permissions *[]string `json:"permissions,omitempty"`
	Message     string    `json:"message,omitempty"`
}

type loginRequest struct {
	Email string `json:"email"`
	Sifre string `json:"sifre"`
}

// Login exchanges credentials for a token and profile.
func (c *Client) Login(ctx context.Context, email, password string) (*LoginResponse, error) {
	var out LoginResponse
	if err := c.do(ctx, http.MethodPost, "/auth/login", nil, loginRequest{Email: email, Sifre: password}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
