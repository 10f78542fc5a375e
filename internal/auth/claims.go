package auth

import "time"

// AccessClaims are the decrypted claims of an access token.
type AccessClaims struct {
	UserID   int64
	Username string

	Subject    string
	Expiration time.Time
	IssuedAt   time.Time
	TokenID    string
}
