package providers

import (
	"context"

	"github.com/samber/do/v2"

	"github.com/homelibrary/homelibrary-server/internal/config"
	"github.com/homelibrary/homelibrary-server/internal/logger"
	"github.com/homelibrary/homelibrary-server/internal/search"
)

// SearchIndexHandle wraps the search index with shutdown capability.
type SearchIndexHandle struct {
	*search.SearchIndex
}

// Shutdown implements do.Shutdownable.
func (h *SearchIndexHandle) Shutdown() error {
	return h.Close()
}

// ProvideSearchIndex opens the bleve index and rebuilds it from the
// migrated store, so books that reached the store but not the index (for
// example rows reassigned by the migration repair pass) become searchable.
// A failed rebuild is logged: search degrades, the catalog keeps working.
func ProvideSearchIndex(i do.Injector) (*SearchIndexHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	storeHandle, err := do.Invoke[*StoreHandle](i)
	if err != nil {
		return nil, err
	}

	index, err := search.NewSearchIndex(search.Options{
		DataPath: cfg.Data.SearchPath,
		Logger:   log.Logger,
	})
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if _, err := index.Reindex(ctx, storeHandle.Store); err != nil {
		log.Error("Search reindex failed", "error", err)
	}

	docCount, err := index.DocumentCount()
	if err != nil {
		log.Warn("Search document count unavailable", "error", err)
	}

	log.Info("Search index initialized", "path", cfg.Data.SearchPath, "documents", docCount)

	return &SearchIndexHandle{SearchIndex: index}, nil
}
