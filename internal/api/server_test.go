package api

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/homelibrary/homelibrary-server/internal/auth"
	"github.com/homelibrary/homelibrary-server/internal/metadata"
	"github.com/homelibrary/homelibrary-server/internal/search"
	"github.com/homelibrary/homelibrary-server/internal/service"
	"github.com/homelibrary/homelibrary-server/internal/store/sqlite"
	"github.com/homelibrary/homelibrary-server/internal/validation"
)

// stubResolver answers from a fixed table and counts calls.
type stubResolver struct {
	records map[string]*metadata.Record
	calls   int
}

func (r *stubResolver) Resolve(_ context.Context, code string) (*metadata.Record, error) {
	r.calls++
	if rec, ok := r.records[metadata.NormalizeISBN(code)]; ok {
		return rec, nil
	}
	return nil, metadata.ErrNotResolved
}

// testServer wraps the API server for handler tests.
type testServer struct {
	*Server
	api      humatest.TestAPI
	resolver *stubResolver
}

func setupTestServer(t *testing.T, opts Options) *testServer {
	t.Helper()

	dir := t.TempDir()
	logger := slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))

	st, err := sqlite.Open(filepath.Join(dir, "library.db"), logger)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	_, err = st.EnsureSchema(context.Background(), sqlite.MigrateOptions{FallbackOwner: "admin"})
	require.NoError(t, err)

	idx, err := search.NewSearchIndex(search.Options{DataPath: filepath.Join(dir, "search"), Logger: logger})
	require.NoError(t, err)
	t.Cleanup(func() { idx.Close() })

	key, err := auth.LoadOrGenerateKey(dir)
	require.NoError(t, err)
	tokens, err := auth.NewTokenService(key, time.Hour)
	require.NoError(t, err)

	resolver := &stubResolver{records: map[string]*metadata.Record{
		"9784003101019": {
			ISBN:    "9784003101019",
			Title:   "吾輩は猫である",
			Authors: "夏目漱石",
			Source:  "openlibrary",
			Raw:     []byte(`{"title":"吾輩は猫である"}`),
		},
	}}

	validator := validation.New()
	services := &Services{
		Catalog: service.NewCatalogService(st, resolver, idx, validator, logger),
		Auth:    service.NewAuthService(st, tokens, validator, logger),
	}

	srv := NewServer(services, opts, logger)
	t.Cleanup(srv.Close)

	return &testServer{
		Server:   srv,
		api:      humatest.Wrap(t, srv.API()),
		resolver: resolver,
	}
}

// registerUser creates an account and returns its bearer header.
func (ts *testServer) registerUser(t *testing.T, username string) string {
	t.Helper()
	resp := ts.api.Post("/api/v1/auth/register", map[string]any{
		"username": username,
		"password": "correct-horse",
	})
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())

	var out AuthResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &out))
	require.NotEmpty(t, out.AccessToken)
	return "Authorization: Bearer " + out.AccessToken
}

func (ts *testServer) createBook(t *testing.T, authHeader string, body map[string]any) BookResponse {
	t.Helper()
	resp := ts.api.Post("/api/v1/books", authHeader, body)
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())

	var out BookResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &out))
	return out
}

func decodeError(t *testing.T, body []byte) APIError {
	t.Helper()
	var out APIError
	require.NoError(t, json.Unmarshal(body, &out))
	return out
}

func TestHealth(t *testing.T) {
	ts := setupTestServer(t, Options{})
	ts.now = func() time.Time { return time.Date(2026, 5, 1, 18, 30, 0, 0, time.FixedZone("JST", 9*3600)) }

	resp := ts.api.Get("/health")
	require.Equal(t, http.StatusOK, resp.Code)

	var out HealthResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &out))
	assert.Equal(t, "ok", out.Status)
	assert.Equal(t, "2026-05-01T09:30:00Z", out.Time)
}

func TestUnknownRoute_ReturnsJSONNotFound(t *testing.T) {
	ts := setupTestServer(t, Options{})

	rec := httptest.NewRecorder()
	ts.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/shelves", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "NOT_FOUND", decodeError(t, rec.Body.Bytes()).Code)
}

func TestCORS_Preflight(t *testing.T) {
	ts := setupTestServer(t, Options{AllowedOrigins: []string{"https://shortcuts.example"}})

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/books", nil)
	req.Header.Set("Origin", "https://shortcuts.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	ts.ServeHTTP(rec, req)

	assert.Equal(t, "https://shortcuts.example", rec.Header().Get("Access-Control-Allow-Origin"))
}
