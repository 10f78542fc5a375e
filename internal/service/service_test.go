package service

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/homelibrary/homelibrary-server/internal/domain"
	"github.com/homelibrary/homelibrary-server/internal/store/sqlite"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestStore(t *testing.T) *sqlite.Store {
	t.Helper()
	s, err := sqlite.Open(filepath.Join(t.TempDir(), "library.db"), testLogger())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	_, err = s.EnsureSchema(context.Background(), sqlite.MigrateOptions{FallbackOwner: "admin"})
	require.NoError(t, err)
	return s
}

func createTestUser(t *testing.T, s *sqlite.Store, username string) *domain.User {
	t.Helper()
	u := &domain.User{Username: username, PasswordHash: "hash", CreatedAt: time.Now().UTC()}
	require.NoError(t, s.CreateUser(context.Background(), u))
	return u
}

// steppingClock returns a clock that advances one second per call.
func steppingClock(start time.Time) func() time.Time {
	next := start
	return func() time.Time {
		now := next
		next = next.Add(time.Second)
		return now
	}
}
