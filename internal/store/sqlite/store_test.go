package sqlite

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/homelibrary/homelibrary-server/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

// openTestStore opens a store on a fresh file without migrating it.
func openTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "library.db")
	s, err := Open(path, testLogger())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s, path
}

// newTestStore opens and migrates a store on a fresh file.
func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, _ := openTestStore(t)
	_, err := s.EnsureSchema(context.Background(), MigrateOptions{FallbackOwner: "admin"})
	require.NoError(t, err)
	return s
}

func createTestUser(t *testing.T, s *Store, username string) *domain.User {
	t.Helper()
	u := &domain.User{Username: username, PasswordHash: "hash", CreatedAt: time.Now()}
	require.NoError(t, s.CreateUser(context.Background(), u))
	return u
}

func makeTestBook(userID int64, title string, at time.Time) *domain.Book {
	return &domain.Book{
		UserID:    userID,
		Title:     title,
		Status:    domain.StatusUnread,
		Source:    domain.SourceManual,
		CreatedAt: at,
		UpdatedAt: at,
	}
}
