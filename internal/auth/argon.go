package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/crypto/argon2"
)

// maxPasswordLength bounds hashing cost.
const maxPasswordLength = 1024

// ErrPasswordEmpty and ErrPasswordTooLong reject unusable passwords.
var (
	ErrPasswordEmpty   = errors.New("password cannot be empty")
	ErrPasswordTooLong = errors.New("password exceeds maximum length")
)

var errMalformedHash = errors.New("malformed argon2id hash")

// hashParams are the argon2id cost settings stored alongside each hash, so
// older hashes keep verifying after the defaults change.
type hashParams struct {
	memory  uint32 // KiB
	time    uint32
	threads uint8
	saltLen int
	keyLen  uint32
}

var defaultParams = hashParams{
	memory:  64 * 1024,
	time:    3,
	threads: 4,
	saltLen: 16,
	keyLen:  32,
}

func (p hashParams) derive(password string, salt []byte) []byte {
	return argon2.IDKey([]byte(password), salt, p.time, p.memory, p.threads, p.keyLen)
}

// HashPassword returns password encoded as
// $argon2id$v=19$m=<KiB>,t=<passes>,p=<threads>$<salt>$<key>.
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", ErrPasswordEmpty
	}
	if len(password) > maxPasswordLength {
		return "", ErrPasswordTooLong
	}

	p := defaultParams
	salt := make([]byte, p.saltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}

	b64 := base64.RawStdEncoding
	var sb strings.Builder
	sb.WriteString("$argon2id$v=")
	sb.WriteString(strconv.Itoa(argon2.Version))
	fmt.Fprintf(&sb, "$m=%d,t=%d,p=%d$", p.memory, p.time, p.threads)
	sb.WriteString(b64.EncodeToString(salt))
	sb.WriteByte('$')
	sb.WriteString(b64.EncodeToString(p.derive(password, salt)))
	return sb.String(), nil
}

// VerifyPassword reports whether password matches encoded. Besides
// argon2id it accepts werkzeug pbkdf2 and scrypt hashes; see NeedsRehash.
// A malformed hash is a mismatch, not an error.
func VerifyPassword(encoded, password string) bool {
	if len(password) > maxPasswordLength {
		return false
	}
	if NeedsRehash(encoded) {
		return verifyWerkzeug(encoded, password)
	}

	p, salt, key, err := parseHash(encoded)
	if err != nil {
		return false
	}

	return subtle.ConstantTimeCompare(key, p.derive(password, salt)) == 1
}

func parseHash(encoded string) (hashParams, []byte, []byte, error) {
	var p hashParams

	fields := strings.Split(encoded, "$")
	if len(fields) != 6 || fields[0] != "" || fields[1] != "argon2id" {
		return p, nil, nil, errMalformedHash
	}
	if fields[2] != "v="+strconv.Itoa(argon2.Version) {
		return p, nil, nil, fmt.Errorf("%w: version %q", errMalformedHash, fields[2])
	}

	for _, kv := range strings.Split(fields[3], ",") {
		k, v, ok := strings.Cut(kv, "=")
		if !ok {
			return p, nil, nil, errMalformedHash
		}
		var bits int
		switch k {
		case "m", "t":
			bits = 32
		case "p":
			bits = 8
		default:
			return p, nil, nil, fmt.Errorf("%w: unknown parameter %q", errMalformedHash, k)
		}
		n, err := strconv.ParseUint(v, 10, bits)
		if err != nil {
			return p, nil, nil, fmt.Errorf("%w: %s: %w", errMalformedHash, k, err)
		}
		switch k {
		case "m":
			p.memory = uint32(n)
		case "t":
			p.time = uint32(n)
		case "p":
			p.threads = uint8(n)
		}
	}
	if p.memory == 0 || p.time == 0 || p.threads == 0 {
		return p, nil, nil, errMalformedHash
	}

	b64 := base64.RawStdEncoding
	salt, err := b64.DecodeString(fields[4])
	if err != nil {
		return p, nil, nil, fmt.Errorf("%w: salt: %w", errMalformedHash, err)
	}
	key, err := b64.DecodeString(fields[5])
	if err != nil || len(key) == 0 {
		return p, nil, nil, errMalformedHash
	}
	p.saltLen = len(salt)
	p.keyLen = uint32(len(key)) //#nosec G115 -- decoded from a short string

	return p, salt, key, nil
}
