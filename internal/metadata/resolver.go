package metadata

import (
	"context"
	"errors"
	"log/slog"
	"strings"
)

// Cache stores successful lookups by normalized ISBN. Get returns nil, nil
// on a miss.
type Cache interface {
	Get(ctx context.Context, isbn string) (*Record, error)
	Set(ctx context.Context, rec *Record) error
}

// Resolver tries each provider in order and returns the first record with a
// non-empty title.
type Resolver struct {
	providers []Provider
	cache     Cache
	logger    *slog.Logger
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithCache adds a result cache in front of the providers.
func WithCache(c Cache) Option {
	return func(r *Resolver) { r.cache = c }
}

// NewResolver creates a resolver over providers, tried in the given order.
func NewResolver(logger *slog.Logger, providers []Provider, opts ...Option) *Resolver {
	r := &Resolver{providers: providers, logger: logger}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Providers returns the provider names in lookup order.
func (r *Resolver) Providers() []string {
	names := make([]string, len(r.providers))
	for i, p := range r.providers {
		names[i] = p.Name()
	}
	return names
}

// Resolve normalizes code and looks it up. It returns ErrNotResolved when the
// code is empty or every provider fails; a canceled ctx is returned as is.
func (r *Resolver) Resolve(ctx context.Context, code string) (*Record, error) {
	isbn := NormalizeISBN(code)
	if isbn == "" {
		return nil, ErrNotResolved
	}

	if r.cache != nil {
		cached, err := r.cache.Get(ctx, isbn)
		if err != nil {
			r.logger.Warn("metadata cache read failed", "isbn", isbn, "error", err)
		} else if cached != nil {
			r.logger.Debug("metadata cache hit", "isbn", isbn, "source", cached.Source)
			return cached, nil
		}
	}

	for _, p := range r.providers {
		rec, err := p.Lookup(ctx, isbn)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
				return nil, ctxErr
			}
			r.logger.Info("metadata provider failed", "provider", p.Name(), "isbn", isbn, "error", err)
			continue
		}
		if rec == nil || strings.TrimSpace(rec.Title) == "" {
			r.logger.Info("metadata provider returned no title", "provider", p.Name(), "isbn", isbn)
			continue
		}

		if rec.ISBN == "" {
			rec.ISBN = isbn
		}
		if rec.Source == "" {
			rec.Source = p.Name()
		}

		if r.cache != nil {
			if err := r.cache.Set(ctx, rec); err != nil {
				r.logger.Warn("metadata cache write failed", "isbn", isbn, "error", err)
			}
		}
		r.logger.Debug("metadata resolved", "provider", p.Name(), "isbn", isbn)
		return rec, nil
	}

	return nil, ErrNotResolved
}
