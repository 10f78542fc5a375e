package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// MigrateOptions configures EnsureSchema.
type MigrateOptions struct {
	// FallbackOwner is the username that receives books with no owner.
	// Empty disables the repair pass.
	FallbackOwner string
}

// MigrationReport lists what EnsureSchema changed. A run against an
// up-to-date database returns an empty report.
type MigrationReport struct {
	CreatedTables   []string `json:"created_tables,omitempty"`
	AddedColumns    []string `json:"added_columns,omitempty"` // "table.column"
	CreatedIndexes  []string `json:"created_indexes,omitempty"`
	ReassignedBooks int64    `json:"reassigned_books,omitempty"`
	// OrphanedBooks counts books still without an owner after the run.
	OrphanedBooks int64 `json:"orphaned_books,omitempty"`
}

// Changed reports whether the run modified the schema or data.
func (r *MigrationReport) Changed() bool {
	return len(r.CreatedTables) > 0 || len(r.AddedColumns) > 0 ||
		len(r.CreatedIndexes) > 0 || r.ReassignedBooks > 0
}

// EnsureSchema brings the database up to the current schema by inspecting
// what exists and adding what is missing. It never drops, renames or
// rewrites existing columns, and ignores columns it does not know. Each
// change commits on its own, so an interrupted run resumes where it stopped.
func (s *Store) EnsureSchema(ctx context.Context, opts MigrateOptions) (*MigrationReport, error) {
	report := &MigrationReport{}

	for _, t := range schemaTables {
		created, err := s.ensureTable(ctx, t)
		if err != nil {
			return report, err
		}
		if created {
			report.CreatedTables = append(report.CreatedTables, t.name)
			s.logger.Info("created table", "table", t.name)
		}
	}

	for _, t := range schemaTables {
		existing, err := s.tableColumns(ctx, t.name)
		if err != nil {
			return report, err
		}
		for _, c := range t.columns {
			if existing[c.name] {
				continue
			}
			added, err := s.addColumn(ctx, t.name, c)
			if err != nil {
				return report, err
			}
			if added {
				report.AddedColumns = append(report.AddedColumns, t.name+"."+c.name)
				s.logger.Info("added column", "table", t.name, "column", c.name)
			}
		}
	}

	for _, idx := range schemaIndexes {
		created, err := s.ensureIndex(ctx, idx)
		if err != nil {
			return report, err
		}
		if created {
			report.CreatedIndexes = append(report.CreatedIndexes, idx.name)
			s.logger.Info("created index", "index", idx.name)
		}
	}

	if err := s.repairOwnership(ctx, opts.FallbackOwner, report); err != nil {
		return report, err
	}

	if report.Changed() {
		s.logger.Info("schema migration applied",
			"tables", len(report.CreatedTables),
			"columns", len(report.AddedColumns),
			"indexes", len(report.CreatedIndexes),
			"reassigned_books", report.ReassignedBooks,
		)
	} else {
		s.logger.Debug("schema up to date")
	}
	return report, nil
}

func (s *Store) ensureTable(ctx context.Context, t tableDef) (bool, error) {
	exists, err := s.objectExists(ctx, "table", t.name)
	if err != nil || exists {
		return false, err
	}
	err = s.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, t.create)
		return err
	})
	if isAlreadyExists(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("create table %s: %w", t.name, err)
	}
	return true, nil
}

// addColumn adds c to table together with its back-fill. Losing a race to a
// concurrent migrator is not an error.
func (s *Store) addColumn(ctx context.Context, table string, c columnDef) (bool, error) {
	stmt := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", quoteIdent(table), quoteIdent(c.name), c.ddl)
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return err
		}
		if c.backfill != "" {
			if _, err := tx.ExecContext(ctx, c.backfill); err != nil {
				return fmt.Errorf("backfill: %w", err)
			}
		}
		return nil
	})
	if isDuplicateColumn(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("add column %s.%s: %w", table, c.name, err)
	}
	return true, nil
}

func (s *Store) ensureIndex(ctx context.Context, idx indexDef) (bool, error) {
	exists, err := s.objectExists(ctx, "index", idx.name)
	if err != nil || exists {
		return false, err
	}
	_, err = s.db.ExecContext(ctx, idx.create)
	if isAlreadyExists(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("create index %s: %w", idx.name, err)
	}
	return true, nil
}

// repairOwnership hands ownerless books to the fallback user when that user
// exists. It never invents an owner.
func (s *Store) repairOwnership(ctx context.Context, fallback string, report *MigrationReport) error {
	if fallback != "" {
		var ownerID int64
		err := s.db.QueryRowContext(ctx, `SELECT id FROM users WHERE username = ?`, fallback).Scan(&ownerID)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			s.logger.Debug("fallback owner not found, skipping ownership repair", "username", fallback)
		case err != nil:
			return fmt.Errorf("look up fallback owner: %w", err)
		default:
			err = s.withTx(ctx, func(tx *sql.Tx) error {
				res, err := tx.ExecContext(ctx, `UPDATE books SET user_id = ? WHERE user_id IS NULL`, ownerID)
				if err != nil {
					return err
				}
				report.ReassignedBooks, err = res.RowsAffected()
				return err
			})
			if err != nil {
				return fmt.Errorf("reassign ownerless books: %w", err)
			}
			if report.ReassignedBooks > 0 {
				s.logger.Info("reassigned ownerless books", "owner", fallback, "count", report.ReassignedBooks)
			}
		}
	}

	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM books WHERE user_id IS NULL`).Scan(&report.OrphanedBooks); err != nil {
		return fmt.Errorf("count ownerless books: %w", err)
	}
	if report.OrphanedBooks > 0 {
		s.logger.Warn("books without an owner remain hidden", "count", report.OrphanedBooks)
	}
	return nil
}

func (s *Store) objectExists(ctx context.Context, kind, name string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sqlite_master WHERE type = ? AND name = ?`, kind, name,
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("inspect %s %s: %w", kind, name, err)
	}
	return n > 0, nil
}

// tableColumns returns the lower-cased column names of table.
func (s *Store) tableColumns(ctx context.Context, table string) (map[string]bool, error) {
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%s)", quoteIdent(table)))
	if err != nil {
		return nil, fmt.Errorf("inspect columns of %s: %w", table, err)
	}
	defer rows.Close()

	cols := make(map[string]bool)
	for rows.Next() {
		var (
			cid       int
			name      string
			colType   string
			notNull   int
			dfltValue sql.NullString
			pk        int
		)
		if err := rows.Scan(&cid, &name, &colType, &notNull, &dfltValue, &pk); err != nil {
			return nil, fmt.Errorf("scan column of %s: %w", table, err)
		}
		cols[strings.ToLower(name)] = true
	}
	return cols, rows.Err()
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func isDuplicateColumn(err error) bool {
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "duplicate column name")
}

func isAlreadyExists(err error) bool {
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "already exists")
}
