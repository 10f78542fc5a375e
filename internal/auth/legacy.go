package auth

import (
	"crypto/sha1" //#nosec G505 -- verifying stored legacy hashes only
	"crypto/sha256"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
	"hash"
	"strconv"
	"strings"

	"golang.org/x/crypto/pbkdf2"
	"golang.org/x/crypto/scrypt"
)

// Bounds on parameters read from a stored hash. A tampered row must not
// pin a CPU or exhaust memory during login.
const (
	maxPBKDF2Iterations = 10_000_000
	maxScryptN          = 1 << 20
	maxScryptRP         = 64
)

var pbkdf2Digests = map[string]func() hash.Hash{
	"sha1":   sha1.New,
	"sha256": sha256.New,
	"sha512": sha512.New,
}

// NeedsRehash reports whether encoded was produced by something other than
// HashPassword, such as accounts carried over from the earlier Python app.
func NeedsRehash(encoded string) bool {
	return !strings.HasPrefix(encoded, "$argon2id$")
}

// verifyWerkzeug checks the werkzeug formats
//
//	pbkdf2:<digest>:<iterations>$<salt>$<hex>
//	scrypt:<n>:<r>:<p>$<salt>$<hex>
//
// The salt is used as its literal text.
func verifyWerkzeug(encoded, password string) bool {
	method, rest, ok := strings.Cut(encoded, "$")
	if !ok {
		return false
	}
	salt, digest, ok := strings.Cut(rest, "$")
	if !ok || salt == "" {
		return false
	}
	want, err := hex.DecodeString(digest)
	if err != nil || len(want) == 0 {
		return false
	}

	var got []byte
	args := strings.Split(method, ":")
	switch args[0] {
	case "pbkdf2":
		if len(args) != 3 {
			return false
		}
		newHash, ok := pbkdf2Digests[args[1]]
		if !ok {
			return false
		}
		iter, err := strconv.Atoi(args[2])
		if err != nil || iter <= 0 || iter > maxPBKDF2Iterations {
			return false
		}
		got = pbkdf2.Key([]byte(password), []byte(salt), iter, len(want), newHash)

	case "scrypt":
		if len(args) != 4 {
			return false
		}
		n, errN := strconv.Atoi(args[1])
		r, errR := strconv.Atoi(args[2])
		p, errP := strconv.Atoi(args[3])
		if errN != nil || errR != nil || errP != nil ||
			n <= 1 || n > maxScryptN || r <= 0 || r > maxScryptRP || p <= 0 || p > maxScryptRP {
			return false
		}
		got, err = scrypt.Key([]byte(password), []byte(salt), n, r, p, len(want))
		if err != nil {
			return false
		}

	default:
		return false
	}

	return subtle.ConstantTimeCompare(got, want) == 1
}
