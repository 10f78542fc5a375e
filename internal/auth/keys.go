// Package auth hashes passwords and issues the PASETO bearer tokens that
// scope every catalog request to one owner.
package auth

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"aidanwoods.dev/go-paseto"
)

const keyFileName = "auth.key"

// LoadOrGenerateKey returns the v4.local token key kept hex-encoded in
// dir/auth.key. A missing file gets a fresh key written with mode 0600; an
// unreadable or corrupt file is an error, never silently replaced.
func LoadOrGenerateKey(dir string) ([]byte, error) {
	keyPath := filepath.Join(dir, keyFileName)

	//#nosec G304 -- path is under the configured data directory
	raw, err := os.ReadFile(keyPath)
	switch {
	case err == nil:
		key, err := paseto.V4SymmetricKeyFromHex(strings.TrimSpace(string(raw)))
		if err != nil {
			return nil, fmt.Errorf("invalid auth key in %s: %w", keyPath, err)
		}
		return key.ExportBytes(), nil
	case !errors.Is(err, fs.ErrNotExist):
		return nil, fmt.Errorf("read auth key: %w", err)
	}

	key := paseto.NewV4SymmetricKey()

	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create key directory: %w", err)
	}
	if err := os.WriteFile(keyPath, []byte(key.ExportHex()), 0o600); err != nil {
		return nil, fmt.Errorf("save auth key: %w", err)
	}

	return key.ExportBytes(), nil
}
