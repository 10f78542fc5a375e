package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/homelibrary/homelibrary-server/internal/domain"
	"github.com/homelibrary/homelibrary-server/internal/service"
)

func (s *Server) registerAuthRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID:   "register",
		Method:        http.MethodPost,
		Path:          "/api/v1/auth/register",
		Summary:       "Register",
		Description:   "Creates an account and returns an access token",
		Tags:          []string{"Auth"},
		DefaultStatus: http.StatusCreated,
	}, s.handleRegister)

	huma.Register(s.api, huma.Operation{
		OperationID: "login",
		Method:      http.MethodPost,
		Path:        "/api/v1/auth/login",
		Summary:     "Login",
		Description: "Verifies credentials and returns an access token",
		Tags:        []string{"Auth"},
		Middlewares: huma.Middlewares{s.loginRateLimit},
	}, s.handleLogin)
}

// === DTOs ===

// CredentialsRequest is the request body for register and login. Rules are
// enforced by the auth service so both endpoints report the same errors.
type CredentialsRequest struct {
	Username string `json:"username,omitempty" doc:"Username"`
	Password string `json:"password,omitempty" doc:"Password"`
}

// RegisterInput wraps the register request for Huma.
type RegisterInput struct {
	Body CredentialsRequest
}

// LoginInput wraps the login request for Huma.
type LoginInput struct {
	Body CredentialsRequest
}

// UserResponse contains user data in API responses.
type UserResponse struct {
	ID        int64     `json:"id" doc:"User ID"`
	Username  string    `json:"username" doc:"Username"`
	CreatedAt time.Time `json:"created_at" doc:"Registration time"`
}

// AuthResponse contains an access token and its owner.
type AuthResponse struct {
	User        UserResponse `json:"user" doc:"Authenticated user"`
	AccessToken string       `json:"access_token" doc:"PASETO bearer token"`
	TokenType   string       `json:"token_type" doc:"Always Bearer"`
	ExpiresIn   int          `json:"expires_in" doc:"Token lifetime in seconds"`
}

// AuthOutput wraps the auth response for Huma.
type AuthOutput struct {
	Body AuthResponse
}

// === Handlers ===

func (s *Server) handleRegister(ctx context.Context, input *RegisterInput) (*AuthOutput, error) {
	resp, err := s.services.Auth.Register(ctx, service.Credentials{
		Username: input.Body.Username,
		Password: input.Body.Password,
	})
	if err != nil {
		return nil, err
	}
	return &AuthOutput{Body: mapAuthResponse(resp)}, nil
}

func (s *Server) handleLogin(ctx context.Context, input *LoginInput) (*AuthOutput, error) {
	resp, err := s.services.Auth.Login(ctx, service.LoginCredentials{
		Username: input.Body.Username,
		Password: input.Body.Password,
	})
	if err != nil {
		return nil, err
	}
	return &AuthOutput{Body: mapAuthResponse(resp)}, nil
}

func mapAuthResponse(resp *service.AuthResponse) AuthResponse {
	return AuthResponse{
		User:        mapUser(resp.User),
		AccessToken: resp.AccessToken,
		TokenType:   resp.TokenType,
		ExpiresIn:   resp.ExpiresIn,
	}
}

func mapUser(u *domain.User) UserResponse {
	return UserResponse{
		ID:        u.ID,
		Username:  u.Username,
		CreatedAt: u.CreatedAt,
	}
}
