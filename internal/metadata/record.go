// Package metadata turns an ISBN into a book record by asking a chain of
// external catalogs in order.
package metadata

import (
	"context"
	"errors"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// ErrNotResolved means no provider produced a usable record.
var ErrNotResolved = errors.New("metadata: isbn not resolved")

// Record is the normalized result of a successful lookup.
type Record struct {
	ISBN     string `json:"isbn"`
	Title    string `json:"title"`
	Authors  string `json:"authors,omitempty"` // ", "-joined
	CoverURL string `json:"cover_url,omitempty"`
	Source   string `json:"source"`
	// Raw is the provider payload exactly as received.
	Raw []byte `json:"-"`
}

// Provider looks up one ISBN in one external catalog. Lookup returns an
// error for any failure; a record without a title is treated as a miss by
// the resolver.
type Provider interface {
	Name() string
	Lookup(ctx context.Context, isbn string) (*Record, error)
}

// NormalizeISBN strips hyphens and whitespace from a scanned or typed code.
// It does not validate check digits.
func NormalizeISBN(code string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '-', ' ', '\t', '\n', '\r', '\u00a0', '\u3000':
			return -1
		}
		return r
	}, code)
}

// CleanText trims s and puts it in Unicode NFC.
func CleanText(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}

// JoinAuthors cleans names, drops empty ones and joins the rest with ", ".
func JoinAuthors(names []string) string {
	kept := make([]string, 0, len(names))
	for _, n := range names {
		if n = CleanText(n); n != "" {
			kept = append(kept, n)
		}
	}
	return strings.Join(kept, ", ")
}
