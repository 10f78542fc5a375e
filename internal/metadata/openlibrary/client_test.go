package openlibrary

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/homelibrary/homelibrary-server/internal/ratelimit"
)

const editionBody = `{"title": "こころ", "authors": [{"key": "/authors/OL1A"}, {"key": "/authors/OL2A"}, {"key": "/authors/OL3A"}], "key": "/books/OL7353617M"}`

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	limiter := ratelimit.New(1000, 1000)
	t.Cleanup(limiter.Stop)

	client := New(Options{
		BaseURL:   server.URL,
		CoversURL: "https://covers.example.test",
		UserAgent: "home-library-test/1.0",
		Timeout:   2 * time.Second,
		Limiter:   limiter,
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	t.Cleanup(client.Close)
	return client
}

func libraryMux(t *testing.T) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/isbn/9784003101019.json", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "home-library-test/1.0", r.Header.Get("User-Agent"))
		io.WriteString(w, editionBody)
	})
	mux.HandleFunc("/authors/OL1A.json", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"name": "夏目 漱石"}`)
	})
	mux.HandleFunc("/authors/OL2A.json", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	mux.HandleFunc("/authors/OL3A.json", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"personal_name": "Soseki Natsume"}`)
	})
	return mux
}

func TestClient_Lookup(t *testing.T) {
	client := newTestClient(t, libraryMux(t))

	rec, err := client.Lookup(context.Background(), "9784003101019")
	require.NoError(t, err)

	assert.Equal(t, "9784003101019", rec.ISBN)
	assert.Equal(t, "こころ", rec.Title)
	assert.Equal(t, "夏目 漱石, Soseki Natsume", rec.Authors)
	assert.Equal(t, "https://covers.example.test/b/isbn/9784003101019-L.jpg", rec.CoverURL)
	assert.Equal(t, "openlibrary", rec.Source)
	assert.Equal(t, []byte(editionBody), rec.Raw)
}

func TestClient_Lookup_Errors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr error
	}{
		{"not found", http.StatusNotFound, `{"error": "notfound"}`, ErrNotFound},
		{"rate limited", http.StatusTooManyRequests, "", ErrRateLimited},
		{"server error", http.StatusBadGateway, "", ErrServer},
		{"html body", http.StatusOK, "<html>maintenance</html>", ErrBadResponse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				io.WriteString(w, tt.body)
			}))

			rec, err := client.Lookup(context.Background(), "9784003101019")
			assert.Nil(t, rec)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)

			var olErr *Error
			require.ErrorAs(t, err, &olErr)
			assert.Equal(t, "edition", olErr.Op)
		})
	}
}

func TestClient_Lookup_NoTitleStillReturnsRecord(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"key": "/books/OL1M"}`)
	}))

	rec, err := client.Lookup(context.Background(), "9780000000001")
	require.NoError(t, err)
	assert.Empty(t, rec.Title)
	assert.Empty(t, rec.Authors)
}

func TestClient_Lookup_Timeout(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	}))
	client.http.Timeout = 50 * time.Millisecond

	_, err := client.Lookup(context.Background(), "9784003101019")
	assert.Error(t, err)
}

func TestClient_FollowsRedirect(t *testing.T) {
	var hits atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/isbn/9784003101019.json", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/books/OL7353617M.json", http.StatusFound)
	})
	mux.HandleFunc("/books/OL7353617M.json", func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		io.WriteString(w, `{"title": "Kokoro"}`)
	})
	client := newTestClient(t, mux)

	rec, err := client.Lookup(context.Background(), "9784003101019")
	require.NoError(t, err)
	assert.Equal(t, "Kokoro", rec.Title)
	assert.Equal(t, int32(1), hits.Load())
}

func TestClient_GetAuthorName_AddsLeadingSlash(t *testing.T) {
	client := newTestClient(t, libraryMux(t))

	name, err := client.GetAuthorName(context.Background(), "authors/OL1A")
	require.NoError(t, err)
	assert.Equal(t, "夏目 漱石", name)
}

func TestNew_Defaults(t *testing.T) {
	c := New(Options{}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	defer c.Close()

	assert.Equal(t, defaultBaseURL, c.baseURL)
	assert.Equal(t, defaultTimeout, c.http.Timeout)
	assert.Equal(t, "https://covers.openlibrary.org/b/isbn/123-L.jpg", c.CoverURL("123"))
	assert.Equal(t, "openlibrary", c.Name())
}
