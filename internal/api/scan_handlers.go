package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/danielgtaylor/huma/v2"

	"github.com/homelibrary/homelibrary-server/internal/service"
)

func (s *Server) registerScanRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "scanLookup",
		Method:      http.MethodGet,
		Path:        "/api/v1/scan",
		Summary:     "Find scanned ISBN",
		Description: "Reports whether the caller already owns a book with the scanned ISBN",
		Tags:        []string{"Scan"},
		Security:    bearerSecurity,
	}, s.handleScanLookup)

	huma.Register(s.api, huma.Operation{
		OperationID: "scanAutoAdd",
		Method:      http.MethodPost,
		Path:        "/api/v1/scan/auto-add",
		Summary:     "Auto-add scanned ISBN",
		Description: "Resolves metadata for a scanned ISBN and creates the book. " +
			"Returns duplicate when the book is already catalogued and fallback when no provider knows the ISBN.",
		Tags:     []string{"Scan"},
		Security: bearerSecurity,
	}, s.handleAutoAdd)

	huma.Register(s.api, huma.Operation{
		OperationID: "lookupISBN",
		Method:      http.MethodGet,
		Path:        "/api/v1/lookup",
		Summary:     "Preview ISBN metadata",
		Description: "Resolves metadata for an ISBN without storing anything",
		Tags:        []string{"Scan"},
		Security:    bearerSecurity,
	}, s.handleLookup)
}

// === DTOs ===

// ScanLookupInput contains the scanned code.
type ScanLookupInput struct {
	Code string `query:"code" doc:"Scanned or typed ISBN"`
}

// ScanLookupResponse reports whether a scanned code is already catalogued.
type ScanLookupResponse struct {
	Found bool          `json:"found" doc:"True when the caller owns a matching book"`
	Book  *BookResponse `json:"book,omitempty" doc:"Matching book"`
}

// ScanLookupOutput wraps the lookup response for Huma.
type ScanLookupOutput struct {
	Body ScanLookupResponse
}

// AutoAddRequest is the request body for auto-add.
type AutoAddRequest struct {
	Code string `json:"code,omitempty" doc:"Scanned or typed ISBN"`
}

// AutoAddInput wraps the auto-add request for Huma.
type AutoAddInput struct {
	Body AutoAddRequest
}

// AutoAddResponse reports the outcome of an auto-add.
type AutoAddResponse struct {
	Outcome     string        `json:"outcome" enum:"created,duplicate,fallback" doc:"What happened"`
	Book        *BookResponse `json:"book,omitempty" doc:"Created or already-owned book"`
	PrefillISBN string        `json:"prefill_isbn,omitempty" doc:"Code to prefill the manual form with on fallback"`
	Next        string        `json:"next" doc:"Path the client should go to next"`
}

// AutoAddOutput wraps the auto-add response for Huma. Status is 201 for a
// created book and 200 otherwise.
type AutoAddOutput struct {
	Status int
	Body   AutoAddResponse
}

// LookupInput contains the ISBN to preview.
type LookupInput struct {
	ISBN string `query:"isbn" doc:"ISBN to resolve"`
}

// MetadataResponse contains resolved metadata.
type MetadataResponse struct {
	ISBN     string `json:"isbn" doc:"Normalized ISBN"`
	Title    string `json:"title" doc:"Title"`
	Authors  string `json:"authors,omitempty" doc:"Comma-separated authors"`
	CoverURL string `json:"cover_url,omitempty" doc:"Cover image URL"`
	Source   string `json:"source" doc:"Provider that answered"`
}

// MetadataOutput wraps resolved metadata for Huma.
type MetadataOutput struct {
	Body MetadataResponse
}

// === Handlers ===

func (s *Server) handleScanLookup(ctx context.Context, input *ScanLookupInput) (*ScanLookupOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	b, err := s.services.Catalog.FindByISBN(ctx, userID, input.Code)
	if err != nil {
		return nil, err
	}

	resp := ScanLookupResponse{}
	if b != nil {
		mapped := mapBook(b)
		resp.Found = true
		resp.Book = &mapped
	}
	return &ScanLookupOutput{Body: resp}, nil
}

func (s *Server) handleAutoAdd(ctx context.Context, input *AutoAddInput) (*AutoAddOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	result, err := s.services.Catalog.AutoAdd(ctx, userID, input.Body.Code)
	if err != nil {
		return nil, err
	}

	resp := AutoAddResponse{
		Outcome:     string(result.Outcome),
		PrefillISBN: result.PrefillISBN,
		Next:        "/api/v1/books",
	}
	if result.Book != nil {
		mapped := mapBook(result.Book)
		resp.Book = &mapped
		resp.Next = "/api/v1/books/" + strconv.FormatInt(result.Book.ID, 10)
	}

	status := http.StatusOK
	if result.Outcome == service.AutoAddCreated {
		status = http.StatusCreated
	}
	return &AutoAddOutput{Status: status, Body: resp}, nil
}

func (s *Server) handleLookup(ctx context.Context, input *LookupInput) (*MetadataOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	rec, err := s.services.Catalog.PreviewISBN(ctx, userID, input.ISBN)
	if err != nil {
		return nil, err
	}

	return &MetadataOutput{
		Body: MetadataResponse{
			ISBN:     rec.ISBN,
			Title:    rec.Title,
			Authors:  rec.Authors,
			CoverURL: rec.CoverURL,
			Source:   rec.Source,
		},
	}, nil
}
