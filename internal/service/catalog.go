package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/homelibrary/homelibrary-server/internal/domain"
	domainerrors "github.com/homelibrary/homelibrary-server/internal/errors"
	"github.com/homelibrary/homelibrary-server/internal/metadata"
	"github.com/homelibrary/homelibrary-server/internal/search"
	"github.com/homelibrary/homelibrary-server/internal/store"
	"github.com/homelibrary/homelibrary-server/internal/validation"
)

// Resolver turns a scanned code into a book record.
type Resolver interface {
	Resolve(ctx context.Context, code string) (*metadata.Record, error)
}

// BookIndex is the search side of the catalog. Index failures never fail a
// write; they are logged and repaired by the reindex at next startup.
type BookIndex interface {
	IndexBook(ctx context.Context, b *domain.Book) error
	Search(ctx context.Context, userID int64, text string, limit int) ([]search.Hit, error)
}

// BookInput is the full editable field set of a book.
type BookInput struct {
	ISBN     string `json:"isbn" validate:"max=32"`
	Title    string `json:"title" validate:"notblank"`
	Authors  string `json:"authors"`
	Tags     string `json:"tags" validate:"max=1000"`
	Location string `json:"location" validate:"max=200"`
	Notes    string `json:"notes" validate:"max=10000"`
	Status   string `json:"status" validate:"max=32"`
}

func (in BookInput) trimmed() BookInput {
	return BookInput{
		ISBN:     strings.TrimSpace(in.ISBN),
		Title:    strings.TrimSpace(in.Title),
		Authors:  strings.TrimSpace(in.Authors),
		Tags:     strings.TrimSpace(in.Tags),
		Location: strings.TrimSpace(in.Location),
		Notes:    strings.TrimSpace(in.Notes),
		Status:   strings.TrimSpace(in.Status),
	}
}

// AutoAddOutcome says what AutoAdd did.
type AutoAddOutcome string

// Auto-add outcomes.
const (
	AutoAddCreated   AutoAddOutcome = "created"
	AutoAddDuplicate AutoAddOutcome = "duplicate"
	AutoAddFallback  AutoAddOutcome = "fallback"
)

// AutoAddResult carries the book for created and duplicate outcomes, and the
// code to prefill the manual form with for fallback.
type AutoAddResult struct {
	Outcome     AutoAddOutcome `json:"outcome"`
	Book        *domain.Book   `json:"book,omitempty"`
	PrefillISBN string         `json:"prefill_isbn,omitempty"`
}

// CatalogService implements the owner-scoped book operations.
type CatalogService struct {
	books     store.Books
	resolver  Resolver
	index     BookIndex
	validator *validation.Validator
	logger    *slog.Logger
	now       func() time.Time

	resolveBudget time.Duration
}

// CatalogOption configures a CatalogService.
type CatalogOption func(*CatalogService)

// WithResolveBudget caps how long one ISBN resolution may take across the
// whole provider chain. Zero means no cap.
func WithResolveBudget(d time.Duration) CatalogOption {
	return func(s *CatalogService) { s.resolveBudget = d }
}

// NewCatalogService creates the catalog service. index may be nil.
func NewCatalogService(
	books store.Books,
	resolver Resolver,
	index BookIndex,
	validator *validation.Validator,
	logger *slog.Logger,
	opts ...CatalogOption,
) *CatalogService {
	s := &CatalogService{
		books:     books,
		resolver:  resolver,
		index:     index,
		validator: validator,
		logger:    logger,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// resolve runs the resolver within the resolve budget. An exhausted budget
// counts as unresolved; cancellation by the caller stays an error.
func (s *CatalogService) resolve(ctx context.Context, code string) (*metadata.Record, error) {
	if s.resolveBudget <= 0 {
		return s.resolver.Resolve(ctx, code)
	}

	rctx, cancel := context.WithTimeout(ctx, s.resolveBudget)
	defer cancel()

	rec, err := s.resolver.Resolve(rctx, code)
	if err != nil && ctx.Err() == nil && errors.Is(err, context.DeadlineExceeded) {
		s.logger.Warn("metadata resolution over budget", "code", code, "budget", s.resolveBudget)
		return nil, metadata.ErrNotResolved
	}
	return rec, err
}

func requireUser(userID int64) error {
	if userID <= 0 {
		return domainerrors.Unauthorized("authentication required")
	}
	return nil
}

// CreateBook adds a manually entered book.
func (s *CatalogService) CreateBook(ctx context.Context, userID int64, in BookInput) (*domain.Book, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}

	in = in.trimmed()
	if err := s.validator.Validate(in); err != nil {
		return nil, err
	}

	status := in.Status
	if status == "" {
		status = domain.StatusUnread
	}

	now := s.now().UTC()
	book := &domain.Book{
		UserID:    userID,
		ISBN:      in.ISBN,
		Title:     in.Title,
		Authors:   in.Authors,
		Tags:      in.Tags,
		Location:  in.Location,
		Notes:     in.Notes,
		Status:    status,
		Source:    domain.SourceManual,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.books.CreateBook(ctx, book); err != nil {
		return nil, fmt.Errorf("create book: %w", err)
	}

	s.logger.Info("book created", "user_id", userID, "book_id", book.ID, "source", book.Source)
	s.indexBook(ctx, book)

	return book, nil
}

// AutoAdd catalogs a book from a scanned code. An existing copy with the
// same ISBN is returned without a lookup; an unresolvable code yields the
// fallback outcome and writes nothing.
func (s *CatalogService) AutoAdd(ctx context.Context, userID int64, code string) (*AutoAddResult, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}

	code = strings.TrimSpace(code)
	if code == "" {
		return nil, domainerrors.ValidationWithDetails("isbn is required", map[string]string{"isbn": "is required"})
	}

	existing, err := s.books.FindBookByISBN(ctx, userID, code, metadata.NormalizeISBN(code))
	switch {
	case err == nil:
		s.logger.Info("auto-add duplicate", "user_id", userID, "book_id", existing.ID)
		return &AutoAddResult{Outcome: AutoAddDuplicate, Book: existing}, nil
	case !errors.Is(err, store.ErrBookNotFound):
		return nil, fmt.Errorf("find book by isbn: %w", err)
	}

	rec, err := s.resolve(ctx, code)
	if errors.Is(err, metadata.ErrNotResolved) {
		s.logger.Info("auto-add fallback to manual entry", "user_id", userID, "code", code)
		return &AutoAddResult{Outcome: AutoAddFallback, PrefillISBN: code}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("resolve %q: %w", code, err)
	}

	now := s.now().UTC()
	book := &domain.Book{
		UserID:    userID,
		ISBN:      rec.ISBN,
		Title:     rec.Title,
		Authors:   rec.Authors,
		Status:    domain.StatusUnread,
		CoverURL:  rec.CoverURL,
		Source:    rec.Source,
		MetaJSON:  rec.Raw,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.books.CreateBook(ctx, book); err != nil {
		return nil, fmt.Errorf("create book: %w", err)
	}

	s.logger.Info("book created", "user_id", userID, "book_id", book.ID, "source", book.Source)
	s.indexBook(ctx, book)

	return &AutoAddResult{Outcome: AutoAddCreated, Book: book}, nil
}

// UpdateBook replaces the editable fields of an owned book. The returned
// event is non-nil when the book moved to a new location.
func (s *CatalogService) UpdateBook(ctx context.Context, userID, bookID int64, in BookInput) (*domain.Book, *domain.LocationEvent, error) {
	if err := requireUser(userID); err != nil {
		return nil, nil, err
	}

	in = in.trimmed()
	if err := s.validator.Validate(in); err != nil {
		return nil, nil, err
	}

	book, err := s.getOwned(ctx, userID, bookID)
	if err != nil {
		return nil, nil, err
	}

	book.ISBN = in.ISBN
	book.Title = in.Title
	book.Authors = in.Authors
	book.Tags = in.Tags
	book.Location = in.Location
	book.Notes = in.Notes
	if in.Status != "" {
		book.Status = in.Status
	}
	book.Touch(s.now().UTC())

	event, err := s.books.UpdateBook(ctx, book)
	if errors.Is(err, store.ErrBookNotFound) {
		return nil, nil, domainerrors.NotFoundf("book %d not found", bookID)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("update book: %w", err)
	}

	if event != nil {
		s.logger.Info("book moved", "user_id", userID, "book_id", bookID, "location", event.Location)
	}
	s.indexBook(ctx, book)

	return book, event, nil
}

// GetBook returns an owned book.
func (s *CatalogService) GetBook(ctx context.Context, userID, bookID int64) (*domain.Book, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	return s.getOwned(ctx, userID, bookID)
}

func (s *CatalogService) getOwned(ctx context.Context, userID, bookID int64) (*domain.Book, error) {
	book, err := s.books.GetBook(ctx, userID, bookID)
	if errors.Is(err, store.ErrBookNotFound) {
		return nil, domainerrors.NotFoundf("book %d not found", bookID)
	}
	if err != nil {
		return nil, fmt.Errorf("get book: %w", err)
	}
	return book, nil
}

// ListBooks returns the owner's books matching filter, most recently
// updated first.
func (s *CatalogService) ListBooks(ctx context.Context, userID int64, filter string) ([]*domain.Book, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}

	books, err := s.books.ListBooks(ctx, userID, filter)
	if err != nil {
		return nil, fmt.Errorf("list books: %w", err)
	}
	if books == nil {
		books = []*domain.Book{}
	}
	return books, nil
}

// FindByISBN returns the owner's book with the scanned code, or nil.
func (s *CatalogService) FindByISBN(ctx context.Context, userID int64, code string) (*domain.Book, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}

	code = strings.TrimSpace(code)
	if code == "" {
		return nil, nil
	}

	book, err := s.books.FindBookByISBN(ctx, userID, code, metadata.NormalizeISBN(code))
	if errors.Is(err, store.ErrBookNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find book by isbn: %w", err)
	}
	return book, nil
}

// History returns the location events of an owned book, newest first.
func (s *CatalogService) History(ctx context.Context, userID, bookID int64) ([]*domain.LocationEvent, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	if _, err := s.getOwned(ctx, userID, bookID); err != nil {
		return nil, err
	}

	events, err := s.books.LocationHistory(ctx, userID, bookID, domain.HistoryLimit)
	if err != nil {
		return nil, fmt.Errorf("location history: %w", err)
	}
	if events == nil {
		events = []*domain.LocationEvent{}
	}
	return events, nil
}

// SearchBooks ranks the owner's books against text.
func (s *CatalogService) SearchBooks(ctx context.Context, userID int64, text string) ([]*domain.Book, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}

	text = strings.TrimSpace(text)
	if text == "" || s.index == nil {
		return []*domain.Book{}, nil
	}

	hits, err := s.index.Search(ctx, userID, text, search.DefaultLimit)
	if err != nil {
		return nil, fmt.Errorf("search books: %w", err)
	}

	ids := make([]int64, len(hits))
	for i, h := range hits {
		ids[i] = h.BookID
	}

	books, err := s.books.GetBooksByIDs(ctx, userID, ids)
	if err != nil {
		return nil, fmt.Errorf("load search hits: %w", err)
	}
	if books == nil {
		books = []*domain.Book{}
	}
	return books, nil
}

// PreviewISBN resolves code without cataloging it. An unresolvable code is
// reported as not found.
func (s *CatalogService) PreviewISBN(ctx context.Context, userID int64, code string) (*metadata.Record, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	if strings.TrimSpace(code) == "" {
		return nil, domainerrors.ValidationWithDetails("isbn is required", map[string]string{"isbn": "is required"})
	}

	rec, err := s.resolve(ctx, code)
	if errors.Is(err, metadata.ErrNotResolved) {
		return nil, domainerrors.NotFoundf("no metadata found for %s", strings.TrimSpace(code))
	}
	if err != nil {
		return nil, fmt.Errorf("resolve %q: %w", code, err)
	}
	return rec, nil
}

func (s *CatalogService) indexBook(ctx context.Context, b *domain.Book) {
	if s.index == nil {
		return
	}
	if err := s.index.IndexBook(ctx, b); err != nil {
		s.logger.Warn("failed to index book", "book_id", b.ID, "error", err)
	}
}
