package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/homelibrary/homelibrary-server/internal/domain"
	"github.com/homelibrary/homelibrary-server/internal/service"
)

func (s *Server) registerBookRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "listBooks",
		Method:      http.MethodGet,
		Path:        "/api/v1/books",
		Summary:     "List books",
		Description: "Returns the caller's books, newest first, optionally filtered by a substring",
		Tags:        []string{"Books"},
		Security:    bearerSecurity,
	}, s.handleListBooks)

	huma.Register(s.api, huma.Operation{
		OperationID:   "createBook",
		Method:        http.MethodPost,
		Path:          "/api/v1/books",
		Summary:       "Create book",
		Description:   "Adds a book entered by hand",
		Tags:          []string{"Books"},
		Security:      bearerSecurity,
		DefaultStatus: http.StatusCreated,
	}, s.handleCreateBook)

	huma.Register(s.api, huma.Operation{
		OperationID: "getBook",
		Method:      http.MethodGet,
		Path:        "/api/v1/books/{id}",
		Summary:     "Get book",
		Description: "Returns one of the caller's books",
		Tags:        []string{"Books"},
		Security:    bearerSecurity,
	}, s.handleGetBook)

	huma.Register(s.api, huma.Operation{
		OperationID: "updateBook",
		Method:      http.MethodPut,
		Path:        "/api/v1/books/{id}",
		Summary:     "Update book",
		Description: "Replaces the editable fields of a book and records a location event when the location changes",
		Tags:        []string{"Books"},
		Security:    bearerSecurity,
	}, s.handleUpdateBook)

	huma.Register(s.api, huma.Operation{
		OperationID: "getBookLocations",
		Method:      http.MethodGet,
		Path:        "/api/v1/books/{id}/locations",
		Summary:     "Location history",
		Description: "Returns the most recent location changes of a book, newest first",
		Tags:        []string{"Books"},
		Security:    bearerSecurity,
	}, s.handleBookLocations)

	huma.Register(s.api, huma.Operation{
		OperationID: "searchBooks",
		Method:      http.MethodGet,
		Path:        "/api/v1/search",
		Summary:     "Search books",
		Description: "Ranked full-text search over the caller's books",
		Tags:        []string{"Books"},
		Security:    bearerSecurity,
	}, s.handleSearch)
}

// === DTOs ===

// BookRequest is the request body for creating or updating a book.
type BookRequest struct {
	ISBN     string `json:"isbn,omitempty" doc:"ISBN as typed or scanned"`
	Title    string `json:"title,omitempty" doc:"Title (required)"`
	Authors  string `json:"authors,omitempty" doc:"Comma-separated authors"`
	Tags     string `json:"tags,omitempty" doc:"Comma-separated tags"`
	Location string `json:"location,omitempty" doc:"Shelf or room"`
	Notes    string `json:"notes,omitempty" doc:"Free-form notes"`
	Status   string `json:"status,omitempty" doc:"Reading status, defaults to unread"`
}

func (r BookRequest) toInput() service.BookInput {
	return service.BookInput{
		ISBN:     r.ISBN,
		Title:    r.Title,
		Authors:  r.Authors,
		Tags:     r.Tags,
		Location: r.Location,
		Notes:    r.Notes,
		Status:   r.Status,
	}
}

// BookResponse contains book data in API responses.
type BookResponse struct {
	ID        int64     `json:"id" doc:"Book ID"`
	ISBN      string    `json:"isbn,omitempty" doc:"ISBN"`
	Title     string    `json:"title" doc:"Title"`
	Authors   string    `json:"authors,omitempty" doc:"Comma-separated authors"`
	Tags      string    `json:"tags,omitempty" doc:"Comma-separated tags"`
	Location  string    `json:"location,omitempty" doc:"Shelf or room"`
	Notes     string    `json:"notes,omitempty" doc:"Notes"`
	Status    string    `json:"status" doc:"Reading status"`
	CoverURL  string    `json:"cover_url,omitempty" doc:"Cover image URL"`
	Source    string    `json:"source,omitempty" doc:"Where the metadata came from"`
	CreatedAt time.Time `json:"created_at" doc:"Creation time"`
	UpdatedAt time.Time `json:"updated_at" doc:"Last update time"`
}

// LocationEventResponse contains one location change.
type LocationEventResponse struct {
	ID        int64     `json:"id" doc:"Event ID"`
	BookID    int64     `json:"book_id" doc:"Book ID"`
	Location  string    `json:"location" doc:"New location"`
	ChangedAt time.Time `json:"changed_at" doc:"Time of the change"`
}

// ListBooksInput contains parameters for listing books.
type ListBooksInput struct {
	Query string `query:"q" doc:"Case-insensitive substring over title, authors, tags and ISBN"`
}

// ListBooksResponse contains a list of books.
type ListBooksResponse struct {
	Books []BookResponse `json:"books" doc:"Books"`
	Count int            `json:"count" doc:"Number of books returned"`
}

// ListBooksOutput wraps the list response for Huma.
type ListBooksOutput struct {
	Body ListBooksResponse
}

// CreateBookInput wraps the create request for Huma.
type CreateBookInput struct {
	Body BookRequest
}

// BookOutput wraps a single book for Huma.
type BookOutput struct {
	Body BookResponse
}

// BookIDInput identifies a book by path.
type BookIDInput struct {
	ID int64 `path:"id" doc:"Book ID"`
}

// UpdateBookInput wraps the update request for Huma.
type UpdateBookInput struct {
	ID   int64 `path:"id" doc:"Book ID"`
	Body BookRequest
}

// UpdateBookResponse contains the updated book and the location event, if
// one was recorded.
type UpdateBookResponse struct {
	Book          BookResponse           `json:"book" doc:"Updated book"`
	LocationEvent *LocationEventResponse `json:"location_event,omitempty" doc:"Recorded when the location changed"`
}

// UpdateBookOutput wraps the update response for Huma.
type UpdateBookOutput struct {
	Body UpdateBookResponse
}

// LocationsResponse contains a book's location history.
type LocationsResponse struct {
	Events []LocationEventResponse `json:"events" doc:"Location changes, newest first"`
}

// LocationsOutput wraps the history for Huma.
type LocationsOutput struct {
	Body LocationsResponse
}

// === Handlers ===

func (s *Server) handleListBooks(ctx context.Context, input *ListBooksInput) (*ListBooksOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	books, err := s.services.Catalog.ListBooks(ctx, userID, input.Query)
	if err != nil {
		return nil, err
	}

	resp := mapBooks(books)
	return &ListBooksOutput{Body: ListBooksResponse{Books: resp, Count: len(resp)}}, nil
}

func (s *Server) handleCreateBook(ctx context.Context, input *CreateBookInput) (*BookOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	b, err := s.services.Catalog.CreateBook(ctx, userID, input.Body.toInput())
	if err != nil {
		return nil, err
	}

	return &BookOutput{Body: mapBook(b)}, nil
}

func (s *Server) handleGetBook(ctx context.Context, input *BookIDInput) (*BookOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	b, err := s.services.Catalog.GetBook(ctx, userID, input.ID)
	if err != nil {
		return nil, err
	}

	return &BookOutput{Body: mapBook(b)}, nil
}

func (s *Server) handleUpdateBook(ctx context.Context, input *UpdateBookInput) (*UpdateBookOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	b, ev, err := s.services.Catalog.UpdateBook(ctx, userID, input.ID, input.Body.toInput())
	if err != nil {
		return nil, err
	}

	resp := UpdateBookResponse{Book: mapBook(b)}
	if ev != nil {
		mapped := mapLocationEvent(ev)
		resp.LocationEvent = &mapped
	}
	return &UpdateBookOutput{Body: resp}, nil
}

func (s *Server) handleBookLocations(ctx context.Context, input *BookIDInput) (*LocationsOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	events, err := s.services.Catalog.History(ctx, userID, input.ID)
	if err != nil {
		return nil, err
	}

	resp := make([]LocationEventResponse, len(events))
	for i, ev := range events {
		resp[i] = mapLocationEvent(ev)
	}
	return &LocationsOutput{Body: LocationsResponse{Events: resp}}, nil
}

// === Mapping ===

func mapBook(b *domain.Book) BookResponse {
	return BookResponse{
		ID:        b.ID,
		ISBN:      b.ISBN,
		Title:     b.Title,
		Authors:   b.Authors,
		Tags:      b.Tags,
		Location:  b.Location,
		Notes:     b.Notes,
		Status:    b.Status,
		CoverURL:  b.CoverURL,
		Source:    b.Source,
		CreatedAt: b.CreatedAt,
		UpdatedAt: b.UpdatedAt,
	}
}

func mapBooks(books []*domain.Book) []BookResponse {
	resp := make([]BookResponse, len(books))
	for i, b := range books {
		resp[i] = mapBook(b)
	}
	return resp
}

func mapLocationEvent(ev *domain.LocationEvent) LocationEventResponse {
	return LocationEventResponse{
		ID:        ev.ID,
		BookID:    ev.BookID,
		Location:  ev.Location,
		ChangedAt: ev.ChangedAt,
	}
}

// SearchInput contains search parameters.
type SearchInput struct {
	Query string `query:"q" doc:"Search text"`
}

// SearchResponse contains ranked results.
type SearchResponse struct {
	Query string         `json:"query" doc:"Search text as received"`
	Books []BookResponse `json:"books" doc:"Matching books, best first"`
	Count int            `json:"count" doc:"Number of results"`
}

// SearchOutput wraps search results for Huma.
type SearchOutput struct {
	Body SearchResponse
}

func (s *Server) handleSearch(ctx context.Context, input *SearchInput) (*SearchOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	books, err := s.services.Catalog.SearchBooks(ctx, userID, input.Query)
	if err != nil {
		return nil, err
	}

	resp := mapBooks(books)
	return &SearchOutput{Body: SearchResponse{Query: input.Query, Books: resp, Count: len(resp)}}, nil
}
