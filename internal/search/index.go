package search

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/blevesearch/bleve/v2"

	"github.com/homelibrary/homelibrary-server/internal/domain"
)

// SearchIndex wraps a Bleve index of book documents.
//
// All public methods are safe for concurrent use. Rebuild takes the write
// lock; everything else shares the read lock.
type SearchIndex struct {
	index  bleve.Index
	path   string
	logger *slog.Logger
	mu     sync.RWMutex
}

// Options configures the search index.
type Options struct {
	DataPath string       // directory holding the index
	Logger   *slog.Logger // discards when nil
}

// BookSource yields every book; the SQLite store satisfies it.
type BookSource interface {
	EachBook(ctx context.Context, fn func(*domain.Book) error) error
}

// mappingVersion changes whenever buildIndexMapping does. A mismatch with
// the version file on disk recreates the index.
const mappingVersion = "1"

const batchSize = 500

// NewSearchIndex opens the index under opts.DataPath, creating it when
// missing, unreadable or built with an older mapping. A freshly created
// index is empty; callers repopulate it with Reindex.
func NewSearchIndex(opts Options) (*SearchIndex, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	if err := os.MkdirAll(opts.DataPath, 0o755); err != nil {
		return nil, fmt.Errorf("create search dir: %w", err)
	}

	indexPath := filepath.Join(opts.DataPath, "books.bleve")
	versionPath := filepath.Join(opts.DataPath, "books.version")

	var index bleve.Index
	needsRebuild := false

	if _, statErr := os.Stat(indexPath); statErr == nil {
		existing, readErr := os.ReadFile(versionPath)
		switch {
		case readErr != nil:
			logger.Info("search index has no version file, rebuilding", "new_version", mappingVersion)
			needsRebuild = true
		case string(existing) != mappingVersion:
			logger.Info("search index mapping changed, rebuilding",
				"old_version", string(existing),
				"new_version", mappingVersion,
			)
			needsRebuild = true
		default:
			opened, err := bleve.Open(indexPath)
			if err != nil {
				logger.Warn("failed to open search index, recreating", "path", indexPath, "error", err)
				needsRebuild = true
			} else {
				index = opened
			}
		}
	}

	if needsRebuild {
		if err := os.RemoveAll(indexPath); err != nil {
			return nil, fmt.Errorf("remove old index: %w", err)
		}
	}

	if index == nil {
		created, err := bleve.New(indexPath, buildIndexMapping())
		if err != nil {
			return nil, fmt.Errorf("create index: %w", err)
		}
		index = created
		if err := os.WriteFile(versionPath, []byte(mappingVersion), 0o644); err != nil {
			logger.Warn("failed to write search version file", "error", err)
		}
		logger.Info("created search index", "path", indexPath, "mapping_version", mappingVersion)
	} else {
		logger.Info("opened search index", "path", indexPath)
	}

	return &SearchIndex{index: index, path: indexPath, logger: logger}, nil
}

// Close closes the index.
func (s *SearchIndex) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.index.Close()
}

// IndexBook adds or replaces the document for b.
func (s *SearchIndex) IndexBook(_ context.Context, b *domain.Book) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc := BookToDocument(b)
	return s.index.Index(doc.ID, doc.ToMap())
}

// IndexBooks indexes books in batches.
func (s *SearchIndex) IndexBooks(books []*domain.Book) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.indexBatches(books)
}

func (s *SearchIndex) indexBatches(books []*domain.Book) error {
	for i := 0; i < len(books); i += batchSize {
		end := min(i+batchSize, len(books))

		batch := s.index.NewBatch()
		for _, b := range books[i:end] {
			doc := BookToDocument(b)
			if err := batch.Index(doc.ID, doc.ToMap()); err != nil {
				return fmt.Errorf("batch index %s: %w", doc.ID, err)
			}
		}
		if err := s.index.Batch(batch); err != nil {
			return fmt.Errorf("commit batch %d-%d: %w", i, end, err)
		}
	}
	return nil
}

// DeleteBook removes the document for bookID.
func (s *SearchIndex) DeleteBook(_ context.Context, bookID int64) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index.Delete(DocumentID(bookID))
}

// DocumentCount returns the number of indexed books.
func (s *SearchIndex) DocumentCount() (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index.DocCount()
}

// Rebuild drops every document and recreates an empty index. It blocks all
// other operations while running.
func (s *SearchIndex) Rebuild() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.recreate()
}

func (s *SearchIndex) recreate() error {
	if err := s.index.Close(); err != nil {
		return fmt.Errorf("close index: %w", err)
	}
	if err := os.RemoveAll(s.path); err != nil {
		return fmt.Errorf("remove index: %w", err)
	}

	index, err := bleve.New(s.path, buildIndexMapping())
	if err != nil {
		return fmt.Errorf("create index: %w", err)
	}
	s.index = index
	s.logger.Info("rebuilt search index", "path", s.path)
	return nil
}

// Reindex recreates the index and fills it from src. It returns the number
// of books indexed.
func (s *SearchIndex) Reindex(ctx context.Context, src BookSource) (int, error) {
	var books []*domain.Book
	if err := src.EachBook(ctx, func(b *domain.Book) error {
		books = append(books, b)
		return nil
	}); err != nil {
		return 0, fmt.Errorf("load books: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.recreate(); err != nil {
		return 0, err
	}
	if err := s.indexBatches(books); err != nil {
		return 0, err
	}

	s.logger.Info("search index populated", "books", len(books))
	return len(books), nil
}
