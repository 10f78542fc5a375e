package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/homelibrary/homelibrary-server/internal/auth"
	"github.com/homelibrary/homelibrary-server/internal/domain"
	domainerrors "github.com/homelibrary/homelibrary-server/internal/errors"
	"github.com/homelibrary/homelibrary-server/internal/validation"
)

func newAuthService(t *testing.T) *AuthService {
	t.Helper()
	key, err := auth.LoadOrGenerateKey(t.TempDir())
	require.NoError(t, err)
	tokens, err := auth.NewTokenService(key, time.Hour)
	require.NoError(t, err)
	return NewAuthService(newTestStore(t), tokens, validation.New(), testLogger())
}

func TestRegister_IssuesToken(t *testing.T) {
	svc := newAuthService(t)
	ctx := context.Background()

	resp, err := svc.Register(ctx, Credentials{Username: " reader ", Password: "long enough"})
	require.NoError(t, err)

	assert.Equal(t, "reader", resp.User.Username)
	assert.NotZero(t, resp.User.ID)
	assert.Equal(t, "Bearer", resp.TokenType)
	assert.Equal(t, 3600, resp.ExpiresIn)

	user, err := svc.VerifyToken(ctx, resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, resp.User.ID, user.ID)
}

func TestRegister_UsernameTaken(t *testing.T) {
	svc := newAuthService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, Credentials{Username: "reader", Password: "long enough"})
	require.NoError(t, err)

	_, err = svc.Register(ctx, Credentials{Username: "reader", Password: "different one"})
	assert.True(t, domainerrors.Is(err, domainerrors.ErrAlreadyExists))
}

func TestRegister_Validation(t *testing.T) {
	svc := newAuthService(t)

	tests := []struct {
		name  string
		creds Credentials
		field string
	}{
		{"short password", Credentials{Username: "reader", Password: "short"}, "password"},
		{"short username", Credentials{Username: "ab", Password: "long enough"}, "username"},
		{"symbols in username", Credentials{Username: "a b!", Password: "long enough"}, "username"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Register(context.Background(), tt.creds)
			var derr *domainerrors.Error
			require.ErrorAs(t, err, &derr)
			assert.Equal(t, domainerrors.CodeValidation, derr.Code)
			assert.Contains(t, derr.Details, tt.field)
		})
	}
}

func TestLogin(t *testing.T) {
	svc := newAuthService(t)
	ctx := context.Background()

	reg, err := svc.Register(ctx, Credentials{Username: "reader", Password: "long enough"})
	require.NoError(t, err)

	resp, err := svc.Login(ctx, LoginCredentials{Username: "reader", Password: "long enough"})
	require.NoError(t, err)
	assert.Equal(t, reg.User.ID, resp.User.ID)
	assert.NotEmpty(t, resp.AccessToken)

	_, err = svc.Login(ctx, LoginCredentials{Username: "reader", Password: "wrong password"})
	assert.True(t, domainerrors.Is(err, domainerrors.ErrInvalidCredentials))

	_, err = svc.Login(ctx, LoginCredentials{Username: "nobody", Password: "long enough"})
	assert.True(t, domainerrors.Is(err, domainerrors.ErrInvalidCredentials))
}

func TestVerifyToken_Invalid(t *testing.T) {
	svc := newAuthService(t)

	_, err := svc.VerifyToken(context.Background(), "v4.local.garbage")
	assert.True(t, domainerrors.Is(err, domainerrors.ErrUnauthorized))
}

func TestLogin_WerkzeugHashUpgraded(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	key, err := auth.LoadOrGenerateKey(t.TempDir())
	require.NoError(t, err)
	tokens, err := auth.NewTokenService(key, time.Hour)
	require.NoError(t, err)
	svc := NewAuthService(s, tokens, validation.New(), testLogger())

	legacy := &domain.User{
		Username:     "admin",
		PasswordHash: "pbkdf2:sha256:600000$abcDEF123$d37a7f3139bdad153b180ee1dcbeeb5dec3a2fa2060edeaba2ff0cf933cda2ae",
		CreatedAt:    time.Now().UTC(),
	}
	require.NoError(t, s.CreateUser(ctx, legacy))

	_, err = svc.Login(ctx, LoginCredentials{Username: "admin", Password: "wrong-pass"})
	assert.True(t, domainerrors.Is(err, domainerrors.ErrInvalidCredentials))

	resp, err := svc.Login(ctx, LoginCredentials{Username: "admin", Password: "secret-pass"})
	require.NoError(t, err)
	assert.Equal(t, legacy.ID, resp.User.ID)

	stored, err := s.GetUser(ctx, legacy.ID)
	require.NoError(t, err)
	assert.False(t, auth.NeedsRehash(stored.PasswordHash))
	assert.True(t, auth.VerifyPassword(stored.PasswordHash, "secret-pass"))

	_, err = svc.Login(ctx, LoginCredentials{Username: "admin", Password: "secret-pass"})
	assert.NoError(t, err)
}
