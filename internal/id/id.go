// Package id generates random identifiers for entities that have no
// database row, such as access tokens. Catalog rows use SQLite keys.
package id

import (
	"fmt"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// alphabet avoids look-alike characters so ids survive being read aloud
// from a log line.
const alphabet = "23456789abcdefghjkmnpqrstuvwxyz"

const length = 20

// Generate returns prefix joined to a random suffix with an underscore,
// e.g. "tok_k3h8vq2n7wzr5mxp9c4d".
func Generate(prefix string) (string, error) {
	suffix, err := gonanoid.Generate(alphabet, length)
	if err != nil {
		return "", fmt.Errorf("generate %s id: %w", prefix, err)
	}
	return prefix + "_" + suffix, nil
}
