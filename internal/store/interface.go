// Package store defines the persistence contracts of the catalog and the
// errors they report. The SQLite implementation lives in store/sqlite.
package store

import (
	"context"

	"github.com/homelibrary/homelibrary-server/internal/domain"
)

// Books persists owner-scoped catalog rows. Every method filters by user ID;
// a book owned by someone else is reported as ErrBookNotFound.
type Books interface {
	CreateBook(ctx context.Context, b *domain.Book) error
	GetBook(ctx context.Context, userID, bookID int64) (*domain.Book, error)
	GetBooksByIDs(ctx context.Context, userID int64, ids []int64) ([]*domain.Book, error)
	// FindBookByISBN returns the newest book whose ISBN equals any of isbns,
	// or ErrBookNotFound.
	FindBookByISBN(ctx context.Context, userID int64, isbns ...string) (*domain.Book, error)
	// UpdateBook writes b and, in the same transaction, appends a location
	// event when the location changed. The event is nil otherwise.
	UpdateBook(ctx context.Context, b *domain.Book) (*domain.LocationEvent, error)
	ListBooks(ctx context.Context, userID int64, filter string) ([]*domain.Book, error)
	LocationHistory(ctx context.Context, userID, bookID int64, limit int) ([]*domain.LocationEvent, error)
	// EachBook visits every owned book; used to rebuild the search index.
	EachBook(ctx context.Context, fn func(*domain.Book) error) error
}

// Users persists accounts.
type Users interface {
	CreateUser(ctx context.Context, u *domain.User) error
	GetUser(ctx context.Context, id int64) (*domain.User, error)
	GetUserByUsername(ctx context.Context, username string) (*domain.User, error)
	UpdatePasswordHash(ctx context.Context, id int64, hash string) error
}
