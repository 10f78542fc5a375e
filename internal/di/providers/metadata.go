package providers

import (
	"github.com/samber/do/v2"

	"github.com/homelibrary/homelibrary-server/internal/config"
	"github.com/homelibrary/homelibrary-server/internal/logger"
	"github.com/homelibrary/homelibrary-server/internal/metadata"
	"github.com/homelibrary/homelibrary-server/internal/metadata/cache"
	"github.com/homelibrary/homelibrary-server/internal/metadata/googlebooks"
	"github.com/homelibrary/homelibrary-server/internal/metadata/openlibrary"
	"github.com/homelibrary/homelibrary-server/internal/ratelimit"
)

// ResolverHandle wraps the metadata resolver and the resources behind it.
type ResolverHandle struct {
	*metadata.Resolver
	limiter *ratelimit.KeyedRateLimiter
	cache   *cache.Cache
}

// Shutdown implements do.Shutdownable.
func (h *ResolverHandle) Shutdown() error {
	h.limiter.Stop()
	if h.cache != nil {
		return h.cache.Close()
	}
	return nil
}

// ProvideResolver provides the ISBN resolver: Open Library first, then
// Google Books, optionally behind a Badger cache. Both providers share one
// limiter keyed by host.
func ProvideResolver(i do.Injector) (*ResolverHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	rps := cfg.Metadata.RequestsPerSecond
	burst := max(int(rps*2), 1)
	limiter := ratelimit.New(rps, burst)

	providers := []metadata.Provider{
		openlibrary.New(openlibrary.Options{
			BaseURL:   cfg.Metadata.OpenLibraryURL,
			CoversURL: cfg.Metadata.CoversURL,
			UserAgent: cfg.Metadata.UserAgent,
			Timeout:   cfg.Metadata.Timeout,
			Limiter:   limiter,
		}, log.Logger),
		googlebooks.New(googlebooks.Options{
			BaseURL:   cfg.Metadata.GoogleBooksURL,
			APIKey:    cfg.Metadata.GoogleBooksAPIKey,
			UserAgent: cfg.Metadata.UserAgent,
			Timeout:   cfg.Metadata.Timeout,
			Limiter:   limiter,
		}, log.Logger),
	}

	handle := &ResolverHandle{limiter: limiter}

	var opts []metadata.Option
	if cfg.Metadata.CacheEnabled {
		c, err := cache.Open(cache.Options{
			Path: cfg.Data.CachePath,
			TTL:  cfg.Metadata.CacheTTL,
		}, log.Logger)
		if err != nil {
			// Non-fatal: the resolver runs uncached.
			log.Warn("Metadata cache unavailable", "path", cfg.Data.CachePath, "error", err)
		} else {
			handle.cache = c
			opts = append(opts, metadata.WithCache(c))
		}
	}

	handle.Resolver = metadata.NewResolver(log.Logger, providers, opts...)

	log.Info("Metadata resolver initialized",
		"providers", handle.Providers(),
		"cache", handle.cache != nil,
	)

	return handle, nil
}
