package providers

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/samber/do/v2"

	"github.com/homelibrary/homelibrary-server/internal/config"
	"github.com/homelibrary/homelibrary-server/internal/logger"
	"github.com/homelibrary/homelibrary-server/internal/store/sqlite"
)

// StoreHandle wraps the store with shutdown capability.
type StoreHandle struct {
	*sqlite.Store
	Report *sqlite.MigrationReport
}

// Shutdown implements do.Shutdownable.
func (h *StoreHandle) Shutdown() error {
	return h.Close()
}

// ProvideStore opens the catalog database and brings its schema up to
// date. The server never starts against a half-migrated database: any
// migration error fails the provider.
func ProvideStore(i do.Injector) (*StoreHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	dbPath := cfg.Data.DatabasePath
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create database dir: %w", err)
	}

	st, err := sqlite.Open(dbPath, log.Logger)
	if err != nil {
		return nil, err
	}

	opts := sqlite.MigrateOptions{}
	if cfg.Migration.RepairOrphans {
		opts.FallbackOwner = cfg.Migration.FallbackOwner
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	report, err := st.EnsureSchema(ctx, opts)
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("migrate %s: %w", dbPath, err)
	}

	if report.Changed() {
		log.Info("Database schema updated",
			"path", dbPath,
			"created_tables", report.CreatedTables,
			"added_columns", report.AddedColumns,
			"created_indexes", report.CreatedIndexes,
			"reassigned_books", report.ReassignedBooks,
		)
	} else {
		log.Info("Database initialized", "path", dbPath)
	}
	if report.OrphanedBooks > 0 {
		log.Warn("Books without an owner remain",
			"count", report.OrphanedBooks,
			"fallback_owner", cfg.Migration.FallbackOwner,
		)
	}

	return &StoreHandle{Store: st, Report: report}, nil
}
