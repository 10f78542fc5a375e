// Package cache keeps resolved ISBN records in an embedded Badger database so
// repeated scans of the same book skip the network.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/homelibrary/homelibrary-server/internal/metadata"
)

const keyPrefix = "metadata:isbn:"

// Options configures the cache.
type Options struct {
	Path     string
	InMemory bool
	// TTL bounds how long a record is served. Zero keeps records forever.
	TTL time.Duration
}

// Cache implements metadata.Cache on Badger.
type Cache struct {
	db     *badger.DB
	ttl    time.Duration
	logger *slog.Logger
	now    func() time.Time
}

var _ metadata.Cache = (*Cache)(nil)

type entry struct {
	ISBN      string    `json:"isbn"`
	Title     string    `json:"title"`
	Authors   string    `json:"authors,omitempty"`
	CoverURL  string    `json:"cover_url,omitempty"`
	Source    string    `json:"source"`
	Raw       []byte    `json:"raw,omitempty"`
	FetchedAt time.Time `json:"fetched_at"`
}

// Open opens or creates the cache database.
func Open(opts Options, logger *slog.Logger) (*Cache, error) {
	bopts := badger.DefaultOptions(opts.Path)
	if opts.InMemory {
		bopts = badger.DefaultOptions("").WithInMemory(true)
	}
	bopts.Logger = nil
	bopts.SyncWrites = !opts.InMemory

	db, err := badger.Open(bopts)
	if err != nil {
		return nil, fmt.Errorf("open metadata cache: %w", err)
	}

	logger.Info("metadata cache opened", "path", opts.Path, "in_memory", opts.InMemory, "ttl", opts.TTL)

	return &Cache{db: db, ttl: opts.TTL, logger: logger, now: time.Now}, nil
}

// Close closes the underlying database.
func (c *Cache) Close() error {
	return c.db.Close()
}

func cacheKey(isbn string) []byte {
	return []byte(keyPrefix + isbn)
}

// Get returns the cached record for isbn, or nil, nil when absent or stale.
func (c *Cache) Get(ctx context.Context, isbn string) (*metadata.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var e entry
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(cacheKey(isbn))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &e)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read cached record %s: %w", isbn, err)
	}

	if c.ttl > 0 && c.now().Sub(e.FetchedAt) > c.ttl {
		return nil, nil
	}

	return &metadata.Record{
		ISBN:     e.ISBN,
		Title:    e.Title,
		Authors:  e.Authors,
		CoverURL: e.CoverURL,
		Source:   e.Source,
		Raw:      e.Raw,
	}, nil
}

// Set stores rec under its ISBN, replacing any earlier entry.
func (c *Cache) Set(ctx context.Context, rec *metadata.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if rec == nil || rec.ISBN == "" {
		return errors.New("cache: record has no isbn")
	}

	data, err := json.Marshal(entry{
		ISBN:      rec.ISBN,
		Title:     rec.Title,
		Authors:   rec.Authors,
		CoverURL:  rec.CoverURL,
		Source:    rec.Source,
		Raw:       rec.Raw,
		FetchedAt: c.now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("encode cached record: %w", err)
	}

	return c.db.Update(func(txn *badger.Txn) error {
		e := badger.NewEntry(cacheKey(rec.ISBN), data)
		if c.ttl > 0 {
			e = e.WithTTL(c.ttl)
		}
		return txn.SetEntry(e)
	})
}

// Delete drops the entry for isbn. Missing keys are not an error.
func (c *Cache) Delete(ctx context.Context, isbn string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return c.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(cacheKey(isbn))
	})
}

// Len counts cached entries, stale ones included.
func (c *Cache) Len() (int, error) {
	count := 0
	err := c.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(keyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			count++
		}
		return nil
	})
	return count, err
}
