// Package googlebooks looks up volumes by ISBN on the Google Books API.
package googlebooks

import (
	"context"
	"encoding/json"
	"errors"
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
	defaultBaseURL = "https://www.googleapis.com/books/v1"
	defaultTimeout = 7 * time.Second
	defaultRPS     = 2.0
	defaultBurst   = 4
	maxBodySize    = 4 << 20
)

// Sentinel errors for Google Books requests.
var (
	ErrNoResults   = errors.New("googlebooks: no volumes for isbn")
	ErrRateLimited = errors.New("googlebooks: rate limited by server")
	ErrServer      = errors.New("googlebooks: server error")
	ErrBadResponse = errors.New("googlebooks: malformed response")
)

// Options configures a Client.
type Options struct {
	BaseURL   string
	APIKey    string // optional
	UserAgent string
	Timeout   time.Duration
	Limiter   *ratelimit.KeyedRateLimiter
}

// Client queries the volumes endpoint. It implements metadata.Provider.
type Client struct {
	http      *http.Client
	baseURL   string
	apiKey    string
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
		apiKey:    opts.APIKey,
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
func (c *Client) Name() string { return domain.SourceGoogleBooks }

// Lookup searches for isbn and maps the first volume. The record's raw
// payload is that volume's JSON, not the whole search response.
func (c *Client) Lookup(ctx context.Context, isbn string) (*metadata.Record, error) {
	q := url.Values{}
	q.Set("q", "isbn:"+isbn)
	if c.apiKey != "" {
		q.Set("key", c.apiKey)
	}

	body, err := c.doRequest(ctx, "/volumes?"+q.Encode())
	if err != nil {
		return nil, fmt.Errorf("googlebooks lookup %s: %w", isbn, err)
	}

	var resp rawSearch
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("googlebooks lookup %s: %w: %v", isbn, ErrBadResponse, err)
	}
	if len(resp.Items) == 0 {
		return nil, fmt.Errorf("googlebooks lookup %s: %w", isbn, ErrNoResults)
	}

	first := resp.Items[0]
	var vol rawVolume
	if err := json.Unmarshal(first, &vol); err != nil {
		return nil, fmt.Errorf("googlebooks lookup %s: %w: %v", isbn, ErrBadResponse, err)
	}

	info := vol.VolumeInfo
	return &metadata.Record{
		ISBN:     isbn,
		Title:    metadata.CleanText(info.Title),
		Authors:  metadata.JoinAuthors(info.Authors),
		CoverURL: info.ImageLinks.best(),
		Source:   domain.SourceGoogleBooks,
		Raw:      []byte(first),
	}, nil
}

func (c *Client) doRequest(ctx context.Context, pathAndQuery string) ([]byte, error) {
	u, err := url.Parse(c.baseURL + pathAndQuery)
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

	c.logger.Debug("googlebooks request", "path", u.Path)

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
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, ErrRateLimited
	case resp.StatusCode >= 500:
		return nil, ErrServer
	default:
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
}
