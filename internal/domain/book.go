// Package domain contains the catalog entities shared by the store, the
// services and the API.
package domain

import (
	"strings"
	"time"
)

// StatusUnread is the reading status given to new books.
const StatusUnread = "unread"

// Provenance tags recorded in Book.Source.
const (
	SourceManual      = "manual"
	SourceOpenLibrary = "openlibrary"
	SourceGoogleBooks = "googlebooks"
)

// Book is one physical copy owned by exactly one user.
type Book struct {
	ID       int64  `json:"id"`
	UserID   int64  `json:"user_id"`
	ISBN     string `json:"isbn,omitempty"`
	Title    string `json:"title"`
	Authors  string `json:"authors,omitempty"` // comma-joined free text
	Tags     string `json:"tags,omitempty"`
	Location string `json:"location,omitempty"`
	Notes    string `json:"notes,omitempty"`
	Status   string `json:"status"`

	CoverURL string `json:"cover_url,omitempty"`
	Source   string `json:"source,omitempty"`
	// MetaJSON is the provider payload exactly as received.
	MetaJSON []byte `json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Touch sets UpdatedAt to now, never moving it before CreatedAt.
func (b *Book) Touch(now time.Time) {
	if now.Before(b.CreatedAt) {
		now = b.CreatedAt
	}
	b.UpdatedAt = now
}

// LocationChanged reports whether moving a book from prev to next records a
// history event: next must be non-empty and differ from prev after trimming.
func LocationChanged(prev, next string) bool {
	next = strings.TrimSpace(next)
	return next != "" && next != strings.TrimSpace(prev)
}
