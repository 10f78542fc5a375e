package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/homelibrary/homelibrary-server/internal/domain"
	"github.com/homelibrary/homelibrary-server/internal/store"
)

// bookColumns must match the scan order in scanBook.
const bookColumns = `id, user_id, isbn, title, authors, tags, location, notes,
	status, cover_url, source, meta_json, created_at, updated_at`

const bookOrder = ` ORDER BY updated_at DESC, id DESC`

func scanBook(scanner interface{ Scan(dest ...any) error }) (*domain.Book, error) {
	var (
		b         domain.Book
		userID    sql.NullInt64
		isbn      sql.NullString
		authors   sql.NullString
		tags      sql.NullString
		location  sql.NullString
		notes     sql.NullString
		status    sql.NullString
		coverURL  sql.NullString
		source    sql.NullString
		createdAt sql.NullString
		updatedAt sql.NullString
	)

	err := scanner.Scan(
		&b.ID, &userID, &isbn, &b.Title, &authors, &tags, &location, &notes,
		&status, &coverURL, &source, &b.MetaJSON, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	b.UserID = userID.Int64
	b.ISBN = isbn.String
	b.Authors = authors.String
	b.Tags = tags.String
	b.Location = location.String
	b.Notes = notes.String
	b.Status = status.String
	b.CoverURL = coverURL.String
	b.Source = source.String

	if b.CreatedAt, err = parseTime(createdAt.String); err != nil {
		return nil, err
	}
	if b.UpdatedAt, err = parseTime(updatedAt.String); err != nil {
		return nil, err
	}
	return &b, nil
}

// CreateBook inserts b and sets its ID.
func (s *Store) CreateBook(ctx context.Context, b *domain.Book) error {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO books (user_id, isbn, title, authors, tags, location, notes,
			status, cover_url, source, meta_json, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		b.UserID,
		nullString(b.ISBN),
		b.Title,
		nullString(b.Authors),
		nullString(b.Tags),
		nullString(b.Location),
		nullString(b.Notes),
		b.Status,
		nullString(b.CoverURL),
		nullString(b.Source),
		nullText(b.MetaJSON),
		formatTime(b.CreatedAt),
		formatTime(b.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert book: %w", err)
	}
	b.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("book id: %w", err)
	}
	return nil
}

// GetBook returns the book if userID owns it.
func (s *Store) GetBook(ctx context.Context, userID, bookID int64) (*domain.Book, error) {
	b, err := scanBook(s.db.QueryRowContext(ctx,
		`SELECT `+bookColumns+` FROM books WHERE id = ? AND user_id = ?`, bookID, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrBookNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get book %d: %w", bookID, err)
	}
	return b, nil
}

// GetBooksByIDs returns the owned books among ids, in the order of ids.
// IDs that are missing or owned by someone else are skipped.
func (s *Store) GetBooksByIDs(ctx context.Context, userID int64, ids []int64) ([]*domain.Book, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	args := make([]any, 0, len(ids)+1)
	args = append(args, userID)
	for _, id := range ids {
		args = append(args, id)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+bookColumns+` FROM books WHERE user_id = ? AND id IN (`+placeholders(len(ids))+`)`,
		args...)
	if err != nil {
		return nil, fmt.Errorf("get books by id: %w", err)
	}
	defer rows.Close()

	byID := make(map[int64]*domain.Book, len(ids))
	for rows.Next() {
		b, err := scanBook(rows)
		if err != nil {
			return nil, fmt.Errorf("scan book: %w", err)
		}
		byID[b.ID] = b
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]*domain.Book, 0, len(byID))
	for _, id := range ids {
		if b, ok := byID[id]; ok {
			out = append(out, b)
			delete(byID, id)
		}
	}
	return out, nil
}

// FindBookByISBN returns the most recently updated owned book whose ISBN
// equals one of isbns.
func (s *Store) FindBookByISBN(ctx context.Context, userID int64, isbns ...string) (*domain.Book, error) {
	args := []any{userID}
	seen := make(map[string]bool, len(isbns))
	for _, v := range isbns {
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		args = append(args, v)
	}
	if len(args) == 1 {
		return nil, store.ErrBookNotFound
	}

	b, err := scanBook(s.db.QueryRowContext(ctx,
		`SELECT `+bookColumns+` FROM books WHERE user_id = ? AND isbn IN (`+placeholders(len(args)-1)+`)`+bookOrder+` LIMIT 1`,
		args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrBookNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find book by isbn: %w", err)
	}
	return b, nil
}

// UpdateBook replaces the editable fields of b and bumps updated_at. When the
// location changes to a new non-empty value a history event is appended in
// the same transaction and returned. Provenance columns are left untouched.
func (s *Store) UpdateBook(ctx context.Context, b *domain.Book) (*domain.LocationEvent, error) {
	var event *domain.LocationEvent

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var prev sql.NullString
		err := tx.QueryRowContext(ctx,
			`SELECT location FROM books WHERE id = ? AND user_id = ?`, b.ID, b.UserID,
		).Scan(&prev)
		if errors.Is(err, sql.ErrNoRows) {
			return store.ErrBookNotFound
		}
		if err != nil {
			return fmt.Errorf("read location: %w", err)
		}

		_, err = tx.ExecContext(ctx, `
			UPDATE books
			SET isbn = ?, title = ?, authors = ?, tags = ?, location = ?, notes = ?,
				status = ?, updated_at = ?
			WHERE id = ? AND user_id = ?`,
			nullString(b.ISBN),
			b.Title,
			nullString(b.Authors),
			nullString(b.Tags),
			nullString(b.Location),
			nullString(b.Notes),
			b.Status,
			formatTime(b.UpdatedAt),
			b.ID, b.UserID,
		)
		if err != nil {
			return fmt.Errorf("update book: %w", err)
		}

		if !domain.LocationChanged(prev.String, b.Location) {
			return nil
		}

		ev := &domain.LocationEvent{
			BookID:    b.ID,
			UserID:    b.UserID,
			Location:  strings.TrimSpace(b.Location),
			ChangedAt: b.UpdatedAt,
		}
		res, err := tx.ExecContext(ctx,
			`INSERT INTO book_locations (book_id, user_id, location, changed_at) VALUES (?, ?, ?, ?)`,
			ev.BookID, ev.UserID, ev.Location, formatTime(ev.ChangedAt),
		)
		if err != nil {
			return fmt.Errorf("insert location event: %w", err)
		}
		if ev.ID, err = res.LastInsertId(); err != nil {
			return fmt.Errorf("location event id: %w", err)
		}
		event = ev
		return nil
	})
	if err != nil {
		return nil, err
	}
	return event, nil
}

// ListBooks returns the owner's books, newest first. A non-empty filter keeps
// books whose title, authors, tags or ISBN contain it, ignoring ASCII case.
func (s *Store) ListBooks(ctx context.Context, userID int64, filter string) ([]*domain.Book, error) {
	query := `SELECT ` + bookColumns + ` FROM books WHERE user_id = ?`
	args := []any{userID}

	if filter = strings.TrimSpace(filter); filter != "" {
		pattern := "%" + escapeLike(filter) + "%"
		query += ` AND (title LIKE ? ESCAPE '\' OR authors LIKE ? ESCAPE '\'
			OR tags LIKE ? ESCAPE '\' OR isbn LIKE ? ESCAPE '\')`
		args = append(args, pattern, pattern, pattern, pattern)
	}
	query += bookOrder

	return s.queryBooks(ctx, query, args...)
}

// EachBook calls fn for every owned book in ID order, stopping at the first error.
func (s *Store) EachBook(ctx context.Context, fn func(*domain.Book) error) error {
	books, err := s.queryBooks(ctx, `SELECT `+bookColumns+` FROM books WHERE user_id IS NOT NULL ORDER BY id`)
	if err != nil {
		return err
	}
	for _, b := range books {
		if err := fn(b); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) queryBooks(ctx context.Context, query string, args ...any) ([]*domain.Book, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query books: %w", err)
	}
	defer rows.Close()

	var books []*domain.Book
	for rows.Next() {
		b, err := scanBook(rows)
		if err != nil {
			return nil, fmt.Errorf("scan book: %w", err)
		}
		books = append(books, b)
	}
	return books, rows.Err()
}

// escapeLike escapes LIKE wildcards so the filter matches literally.
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}
