// Package search keeps an owner-scoped Bleve index of the catalog so books
// can be found by words from their title, authors, tags, notes or shelf.
package search

import (
	"strconv"

	"github.com/homelibrary/homelibrary-server/internal/domain"
	"github.com/homelibrary/homelibrary-server/internal/metadata"
)

// BookDocument is the indexed form of a book.
type BookDocument struct {
	ID        string `json:"id"`
	OwnerID   string `json:"owner_id"`
	Title     string `json:"title"`
	Authors   string `json:"authors,omitempty"`
	Tags      string `json:"tags,omitempty"`
	Notes     string `json:"notes,omitempty"`
	Location  string `json:"location,omitempty"`
	ISBN      string `json:"isbn,omitempty"`
	UpdatedAt int64  `json:"updated_at"` // unix millis
}

// DocumentID is the index key for a book.
func DocumentID(bookID int64) string {
	return strconv.FormatInt(bookID, 10)
}

// ownerTerm is the keyword stored in owner_id.
func ownerTerm(userID int64) string {
	return strconv.FormatInt(userID, 10)
}

// BookToDocument converts a book for indexing. ISBNs are indexed in
// normalized form so hyphenated queries still match.
func BookToDocument(b *domain.Book) *BookDocument {
	return &BookDocument{
		ID:        DocumentID(b.ID),
		OwnerID:   ownerTerm(b.UserID),
		Title:     b.Title,
		Authors:   b.Authors,
		Tags:      b.Tags,
		Notes:     b.Notes,
		Location:  b.Location,
		ISBN:      metadata.NormalizeISBN(b.ISBN),
		UpdatedAt: b.UpdatedAt.UnixMilli(),
	}
}

// ToMap returns the document keyed by the mapped field names.
func (d *BookDocument) ToMap() map[string]any {
	m := map[string]any{
		"id":         d.ID,
		"owner_id":   d.OwnerID,
		"title":      d.Title,
		"updated_at": d.UpdatedAt,
	}
	if d.Authors != "" {
		m["authors"] = d.Authors
	}
	if d.Tags != "" {
		m["tags"] = d.Tags
	}
	if d.Notes != "" {
		m["notes"] = d.Notes
	}
	if d.Location != "" {
		m["location"] = d.Location
	}
	if d.ISBN != "" {
		m["isbn"] = d.ISBN
	}
	return m
}
