// Command migrate brings an existing catalog database up to the current
// schema and prints what it changed. It never creates a new database.
package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/homelibrary/homelibrary-server/internal/config"
	"github.com/homelibrary/homelibrary-server/internal/logger"
	"github.com/homelibrary/homelibrary-server/internal/store/sqlite"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(logger.Config{
		Level:       logger.ParseLevel(cfg.Logger.Level),
		Environment: cfg.App.Environment,
		Writer:      os.Stderr,
	})

	dbPath := cfg.Data.DatabasePath
	if _, err := os.Stat(dbPath); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			log.Fatalf("Database not found: %s (start the server once to create it)", dbPath)
		}
		log.Fatal("Cannot stat database", "path", dbPath, "error", err)
	}

	st, err := sqlite.Open(dbPath, log.Logger)
	if err != nil {
		log.Fatal("Failed to open database", "path", dbPath, "error", err)
	}
	defer st.Close()

	opts := sqlite.MigrateOptions{}
	if cfg.Migration.RepairOrphans {
		opts.FallbackOwner = cfg.Migration.FallbackOwner
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	report, err := st.EnsureSchema(ctx, opts)
	if err != nil {
		st.Close()
		log.Fatal("Migration failed", "path", dbPath, "error", err)
	}

	fmt.Printf("Database: %s\n", dbPath)
	if !report.Changed() {
		fmt.Println("Schema already up to date.")
	}
	printList("Created tables", report.CreatedTables)
	printList("Added columns", report.AddedColumns)
	printList("Created indexes", report.CreatedIndexes)
	if report.ReassignedBooks > 0 {
		fmt.Printf("Reassigned %d ownerless books to %q\n", report.ReassignedBooks, cfg.Migration.FallbackOwner)
	}
	if report.OrphanedBooks > 0 {
		fmt.Printf("Warning: %d books still have no owner\n", report.OrphanedBooks)
	}
}

func printList(label string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Printf("%s: %s\n", label, strings.Join(items, ", "))
}
