package googlebooks

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/homelibrary/homelibrary-server/internal/ratelimit"
)

const firstItem = `{"id": "abc123",
  "volumeInfo": {"title": "Flask Web Development", "authors": ["Miguel Grinberg"],
    "imageLinks": {"smallThumbnail": "http://books.example/s.jpg", "thumbnail": "http://books.example/t.jpg"}}}`

func newTestClient(t *testing.T, apiKey string, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	limiter := ratelimit.New(1000, 1000)
	t.Cleanup(limiter.Stop)

	c := New(Options{
		BaseURL:   server.URL,
		APIKey:    apiKey,
		UserAgent: "home-library-test/1.0",
		Timeout:   2 * time.Second,
		Limiter:   limiter,
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	t.Cleanup(c.Close)
	return c
}

func TestClient_Lookup(t *testing.T) {
	c := newTestClient(t, "", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/volumes", r.URL.Path)
		assert.Equal(t, "isbn:9781491991732", r.URL.Query().Get("q"))
		assert.Empty(t, r.URL.Query().Get("key"))
		assert.Equal(t, "home-library-test/1.0", r.Header.Get("User-Agent"))
		io.WriteString(w, `{"kind": "books#volumes", "totalItems": 2, "items": [`+firstItem+`, {"id": "second", "volumeInfo": {"title": "Other"}}]}`)
	})

	rec, err := c.Lookup(context.Background(), "9781491991732")
	require.NoError(t, err)

	assert.Equal(t, "9781491991732", rec.ISBN)
	assert.Equal(t, "Flask Web Development", rec.Title)
	assert.Equal(t, "Miguel Grinberg", rec.Authors)
	assert.Equal(t, "http://books.example/t.jpg", rec.CoverURL)
	assert.Equal(t, "googlebooks", rec.Source)
	assert.Equal(t, []byte(firstItem), rec.Raw)
}

func TestClient_Lookup_CoverFallbacks(t *testing.T) {
	tests := []struct {
		name  string
		links string
		want  string
	}{
		{"small only", `{"smallThumbnail": "http://s"}`, "http://s"},
		{"none", `{}`, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, "", func(w http.ResponseWriter, r *http.Request) {
				io.WriteString(w, `{"items": [{"volumeInfo": {"title": "T", "authors": ["A", "B"], "imageLinks": `+tt.links+`}}]}`)
			})

			rec, err := c.Lookup(context.Background(), "1")
			require.NoError(t, err)
			assert.Equal(t, tt.want, rec.CoverURL)
			assert.Equal(t, "A, B", rec.Authors)
		})
	}
}

func TestClient_Lookup_SendsAPIKey(t *testing.T) {
	c := newTestClient(t, "secret", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "secret", r.URL.Query().Get("key"))
		io.WriteString(w, `{"items": [{"volumeInfo": {"title": "T"}}]}`)
	})

	_, err := c.Lookup(context.Background(), "1")
	require.NoError(t, err)
}

func TestClient_Lookup_Errors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr error
	}{
		{"no items", http.StatusOK, `{"totalItems": 0}`, ErrNoResults},
		{"empty items", http.StatusOK, `{"items": []}`, ErrNoResults},
		{"rate limited", http.StatusTooManyRequests, "", ErrRateLimited},
		{"server error", http.StatusServiceUnavailable, "", ErrServer},
		{"not json", http.StatusOK, "oops", ErrBadResponse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, "", func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				io.WriteString(w, tt.body)
			})

			rec, err := c.Lookup(context.Background(), "9780000000000")
			assert.Nil(t, rec)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestClient_Lookup_ForbiddenIsError(t *testing.T) {
	c := newTestClient(t, "", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})

	_, err := c.Lookup(context.Background(), "1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected status 403")
}
