package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"aidanwoods.dev/go-paseto"

	"github.com/homelibrary/homelibrary-server/internal/domain"
	"github.com/homelibrary/homelibrary-server/internal/id"
)

const (
	tokenIssuer   = "home-library-server"
	tokenAudience = "home-library-client"

	// keyLength is the v4.local symmetric key size.
	keyLength = 32
)

// ErrInvalidToken is returned for any token that fails to decrypt or
// validate.
var ErrInvalidToken = errors.New("invalid token")

// TokenService issues and verifies v4.local access tokens.
type TokenService struct {
	symmetricKey        paseto.V4SymmetricKey
	accessTokenDuration time.Duration
	now                 func() time.Time
}

// NewTokenService creates a token service from a 32-byte key.
func NewTokenService(key []byte, accessDuration time.Duration) (*TokenService, error) {
	if len(key) != keyLength {
		return nil, fmt.Errorf("PASETO v4 key must be exactly %d bytes, got %d", keyLength, len(key))
	}

	symmetric, err := paseto.V4SymmetricKeyFromBytes(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create PASETO symmetric key: %w", err)
	}

	return &TokenService{
		symmetricKey:        symmetric,
		accessTokenDuration: accessDuration,
		now:                 time.Now,
	}, nil
}

// GenerateAccessToken encrypts a token naming user as its subject.
func (s *TokenService) GenerateAccessToken(user *domain.User) (string, error) {
	if user == nil || user.ID <= 0 {
		return "", errors.New("token requires a stored user")
	}

	now := s.now()
	token := paseto.NewToken()
	token.SetIssuer(tokenIssuer)
	token.SetAudience(tokenAudience)
	token.SetSubject(strconv.FormatInt(user.ID, 10))
	token.SetIssuedAt(now)
	token.SetNotBefore(now)
	token.SetExpiration(now.Add(s.accessTokenDuration))

	tokenID, err := id.Generate("tok")
	if err != nil {
		return "", fmt.Errorf("generate token ID: %w", err)
	}
	token.SetJti(tokenID)

	//nolint:errcheck // Set only fails for unmarshalable values
	_ = token.Set("username", user.Username)

	return token.V4Encrypt(s.symmetricKey, nil), nil
}

// VerifyAccessToken decrypts and validates tokenString.
func (s *TokenService) VerifyAccessToken(tokenString string) (*AccessClaims, error) {
	parser := paseto.NewParserWithoutExpiryCheck()
	parser.AddRule(paseto.ForAudience(tokenAudience))
	parser.AddRule(paseto.IssuedBy(tokenIssuer))
	parser.AddRule(paseto.ValidAt(s.now()))

	token, err := parser.ParseV4Local(s.symmetricKey, tokenString, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	subject, err := token.GetSubject()
	if err != nil {
		return nil, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	userID, err := strconv.ParseInt(subject, 10, 64)
	if err != nil || userID <= 0 {
		return nil, fmt.Errorf("%w: bad subject %q", ErrInvalidToken, subject)
	}

	claims := &AccessClaims{UserID: userID, Subject: subject}
	claims.Username, _ = token.GetString("username")
	claims.TokenID, _ = token.GetJti()
	claims.IssuedAt, _ = token.GetIssuedAt()
	claims.Expiration, _ = token.GetExpiration()

	return claims, nil
}

// AccessTokenDuration returns the configured token lifetime.
func (s *TokenService) AccessTokenDuration() time.Duration {
	return s.accessTokenDuration
}
