// Package openlibrary looks up editions and authors on openlibrary.org.
package openlibrary

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/homelibrary/homelibrary-server/internal/domain"
	"github.com/homelibrary/homelibrary-server/internal/metadata"
	"github.com/homelibrary/homelibrary-server/internal/ratelimit"
)

const (
	defaultBaseURL   = "https://openlibrary.org"
	defaultCoversURL = "https://covers.openlibrary.org"
	defaultTimeout   = 7 * time.Second
	defaultRPS       = 2.0
	defaultBurst     = 4

	// maxBodySize bounds any single response.
	maxBodySize = 4 << 20
)

// Options configures a Client. Zero values fall back to the public endpoints.
type Options struct {
	BaseURL   string
	CoversURL string
	UserAgent string
	Timeout   time.Duration
	// Limiter paces requests per host. When nil the client owns one.
	Limiter *ratelimit.KeyedRateLimiter
}

// Client is a rate-limited Open Library client. It implements metadata.Provider.
type Client struct {
	http      *http.Client
	baseURL   string
	coversURL string
	userAgent string
	limiter   *ratelimit.KeyedRateLimiter
	ownLimit  bool
	logger    *slog.Logger
}

var _ metadata.Provider = (*Client)(nil)

// New creates a client.
func New(opts Options, logger *slog.Logger) *Client {
	c := &Client{
		http:      &http.Client{Timeout: opts.Timeout},
		baseURL:   strings.TrimRight(opts.BaseURL, "/"),
		coversURL: strings.TrimRight(opts.CoversURL, "/"),
		userAgent: opts.UserAgent,
		limiter:   opts.Limiter,
		logger:    logger,
	}
	if c.http.Timeout <= 0 {
		c.http.Timeout = defaultTimeout
	}
	if c.baseURL == "" {
		c.baseURL = defaultBaseURL
	}
	if c.coversURL == "" {
		c.coversURL = defaultCoversURL
	}
	if c.limiter == nil {
		c.limiter = ratelimit.New(defaultRPS, defaultBurst)
		c.ownLimit = true
	}
	return c
}

// Close releases resources held by the client.
func (c *Client) Close() {
	if c.ownLimit {
		c.limiter.Stop()
	}
}

// Name implements metadata.Provider.
func (c *Client) Name() string { return domain.SourceOpenLibrary }

// Lookup fetches the edition for isbn and resolves its authors. An author
// that cannot be fetched is left out rather than failing the lookup.
func (c *Client) Lookup(ctx context.Context, isbn string) (*metadata.Record, error) {
	ed, err := c.GetEdition(ctx, isbn)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(ed.AuthorKeys))
	for _, key := range ed.AuthorKeys {
		name, err := c.GetAuthorName(ctx, key)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			c.logger.Debug("openlibrary author lookup failed", "key", key, "error", err)
			continue
		}
		names = append(names, name)
	}

	return &metadata.Record{
		ISBN:     isbn,
		Title:    metadata.CleanText(ed.Title),
		Authors:  metadata.JoinAuthors(names),
		CoverURL: c.CoverURL(isbn),
		Source:   domain.SourceOpenLibrary,
		Raw:      ed.Raw,
	}, nil
}

// GetEdition fetches /isbn/{isbn}.json.
func (c *Client) GetEdition(ctx context.Context, isbn string) (*Edition, error) {
	body, err := c.doRequest(ctx, "/isbn/"+url.PathEscape(isbn)+".json")
	if err != nil {
		return nil, wrapError("edition", isbn, err)
	}

	var raw rawEdition
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, wrapError("edition", isbn, fmt.Errorf("%w: %v", ErrBadResponse, err))
	}

	ed := &Edition{Title: raw.Title, Raw: body}
	for _, a := range raw.Authors {
		if a.Key != "" {
			ed.AuthorKeys = append(ed.AuthorKeys, a.Key)
		}
	}
	return ed, nil
}

// GetAuthorName fetches an author record such as "/authors/OL23919A" and
// returns its display name.
func (c *Client) GetAuthorName(ctx context.Context, key string) (string, error) {
	if !strings.HasPrefix(key, "/") {
		key = "/" + key
	}
	body, err := c.doRequest(ctx, key+".json")
	if err != nil {
		return "", wrapError("author", key, err)
	}

	var raw rawAuthor
	if err := json.Unmarshal(body, &raw); err != nil {
		return "", wrapError("author", key, fmt.Errorf("%w: %v", ErrBadResponse, err))
	}

	name := metadata.CleanText(raw.Name)
	if name == "" {
		name = metadata.CleanText(raw.PersonalName)
	}
	if name == "" {
		return "", wrapError("author", key, ErrNotFound)
	}
	return name, nil
}

// CoverURL returns the large cover image URL for isbn. Open Library serves a
// placeholder when it has no cover, so the URL is always usable.
func (c *Client) CoverURL(isbn string) string {
	return c.coversURL + "/b/isbn/" + url.PathEscape(isbn) + "-L.jpg"
}

// doRequest executes a rate-limited GET against the base URL.
func (c *Client) doRequest(ctx context.Context, path string) ([]byte, error) {
	u, err := url.Parse(c.baseURL + path)
	if err != nil {
		return nil, fmt.Errorf("build url: %w", err)
	}

	if err := c.limiter.Wait(ctx, u.Host); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	c.logger.Debug("openlibrary request", "path", path)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		return body, nil
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrNotFound
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, ErrRateLimited
	case resp.StatusCode >= 500:
		return nil, ErrServer
	default:
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
}
