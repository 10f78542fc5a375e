package openlibrary

import (
	"errors"
	"fmt"
)

// Sentinel errors for Open Library requests.
var (
	ErrNotFound    = errors.New("openlibrary: not found")
	ErrRateLimited = errors.New("openlibrary: rate limited by server")
	ErrServer      = errors.New("openlibrary: server error")
	ErrBadResponse = errors.New("openlibrary: malformed response")
)

// Error wraps a failed request with the operation and key it was for.
type Error struct {
	Op  string // "edition" or "author"
	Key string // ISBN or author key
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("openlibrary %s [%s]: %v", e.Op, e.Key, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func wrapError(op, key string, err error) error {
	return &Error{Op: op, Key: key, Err: err}
}
