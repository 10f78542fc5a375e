package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/homelibrary/homelibrary-server/internal/auth"
	"github.com/homelibrary/homelibrary-server/internal/domain"
	domainerrors "github.com/homelibrary/homelibrary-server/internal/errors"
	"github.com/homelibrary/homelibrary-server/internal/store"
	"github.com/homelibrary/homelibrary-server/internal/validation"
)

// AuthService registers accounts and exchanges credentials for tokens.
type AuthService struct {
	users     store.Users
	tokens    *auth.TokenService
	validator *validation.Validator
	logger    *slog.Logger
	now       func() time.Time
}

// NewAuthService creates an authentication service.
func NewAuthService(users store.Users, tokens *auth.TokenService, validator *validation.Validator, logger *slog.Logger) *AuthService {
	return &AuthService{
		users:     users,
		tokens:    tokens,
		validator: validator,
		logger:    logger,
		now:       time.Now,
	}
}

// Credentials is a username and password pair.
type Credentials struct {
	Username string `json:"username" validate:"required,min=3,max=64,alphanum"`
	Password string `json:"password" validate:"required,min=8,max=1024"`
}

// LoginCredentials skips the registration rules so that accounts created
// under older rules, with werkzeug password hashes, can still sign in.
type LoginCredentials struct {
	Username string `json:"username" validate:"notblank"`
	Password string `json:"password" validate:"required"`
}

// AuthResponse carries the signed-in user and a bearer token.
type AuthResponse struct {
	User        *domain.User `json:"user"`
	AccessToken string       `json:"access_token"`
	TokenType   string       `json:"token_type"`
	ExpiresIn   int          `json:"expires_in"` // seconds
}

// Register creates an account and signs it in.
func (s *AuthService) Register(ctx context.Context, req Credentials) (*AuthResponse, error) {
	req.Username = strings.TrimSpace(req.Username)
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &domain.User{
		Username:     req.Username,
		PasswordHash: hash,
		CreatedAt:    s.now().UTC(),
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, store.ErrUsernameTaken) {
			return nil, domainerrors.AlreadyExists("username already taken")
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.logger.Info("user registered", "user_id", user.ID, "username", user.Username)

	return s.issue(user)
}

// Login verifies credentials. Unknown users and wrong passwords produce the
// same error.
func (s *AuthService) Login(ctx context.Context, req LoginCredentials) (*AuthResponse, error) {
	req.Username = strings.TrimSpace(req.Username)
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	user, err := s.users.GetUserByUsername(ctx, req.Username)
	if errors.Is(err, store.ErrUserNotFound) {
		return nil, domainerrors.InvalidCredentials("invalid username or password")
	}
	if err != nil {
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	if !auth.VerifyPassword(user.PasswordHash, req.Password) {
		return nil, domainerrors.InvalidCredentials("invalid username or password")
	}

	if auth.NeedsRehash(user.PasswordHash) {
		s.upgradeHash(ctx, user, req.Password)
	}

	s.logger.Info("user logged in", "user_id", user.ID)

	return s.issue(user)
}

// VerifyToken returns the user a bearer token was issued to.
func (s *AuthService) VerifyToken(ctx context.Context, token string) (*domain.User, error) {
	claims, err := s.tokens.VerifyAccessToken(token)
	if err != nil {
		return nil, domainerrors.Unauthorized("invalid or expired token").WithCause(err)
	}

	user, err := s.users.GetUser(ctx, claims.UserID)
	if errors.Is(err, store.ErrUserNotFound) {
		return nil, domainerrors.Unauthorized("token user no longer exists")
	}
	if err != nil {
		return nil, fmt.Errorf("load token user: %w", err)
	}
	return user, nil
}

// upgradeHash replaces a legacy hash with argon2id after a successful
// login. Failure leaves the legacy hash in place.
func (s *AuthService) upgradeHash(ctx context.Context, user *domain.User, password string) {
	hash, err := auth.HashPassword(password)
	if err == nil {
		err = s.users.UpdatePasswordHash(ctx, user.ID, hash)
	}
	if err != nil {
		s.logger.Warn("legacy password hash not upgraded", "user_id", user.ID, "error", err)
		return
	}
	user.PasswordHash = hash
	s.logger.Info("legacy password hash upgraded", "user_id", user.ID)
}

func (s *AuthService) issue(user *domain.User) (*AuthResponse, error) {
	token, err := s.tokens.GenerateAccessToken(user)
	if err != nil {
		return nil, fmt.Errorf("generate token: %w", err)
	}
	return &AuthResponse{
		User:        user,
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   int(s.tokens.AccessTokenDuration().Seconds()),
	}, nil
}
