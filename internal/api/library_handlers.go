package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/shelfscout/shelfscout-server/internal/domain"
	"github.com/shelfscout/shelfscout-server/internal/search"
	"github.com/shelfscout/shelfscout-server/internal/service"
)

func (s *Server) registerLibraryRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "listLibrary",
		Method:      http.MethodGet,
		Path:        "/api/v1/my-library",
		Summary:     "List saved books",
		Description: "Returns the user's saved books, newest first",
		Tags:        []string{"Library"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleListLibrary)

	huma.Register(s.api, huma.Operation{
		OperationID: "saveBook",
		Method:      http.MethodPost,
		Path:        "/api/v1/my-library",
		Summary:     "Save a book",
		Description: "Adds a book to the user's library. Saving an exact duplicate is idempotent.",
		Tags:        []string{"Library"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleSaveBook)

	huma.Register(s.api, huma.Operation{
		OperationID: "deleteBook",
		Method:      http.MethodDelete,
		Path:        "/api/v1/my-library/{id}",
		Summary:     "Delete a saved book",
		Tags:        []string{"Library"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleDeleteBook)

	huma.Register(s.api, huma.Operation{
		OperationID: "searchLibrary",
		Method:      http.MethodGet,
		Path:        "/api/v1/my-library/search",
		Summary:     "Search saved books",
		Description: "Full-text search over the user's own library",
		Tags:        []string{"Library"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleSearchLibrary)

	huma.Register(s.api, huma.Operation{
		OperationID: "getSimilarBooks",
		Method:      http.MethodGet,
		Path:        "/api/v1/my-library/{id}/similar",
		Summary:     "Similar books",
		Description: "Returns the closest books by embedding similarity, from the library and the catalog",
		Tags:        []string{"Library"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleGetSimilarBooks)
}

// === DTOs ===

// BookResponse is a saved book as exposed by the API. The embedding
// vector stays internal.
type BookResponse struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Author       string    `json:"author"`
	Description  string    `json:"description"`
	Reason       string    `json:"reason,omitempty"`
	HasEmbedding bool      `json:"has_embedding"`
	CreatedAt    time.Time `json:"created_at"`
}

func mapBookResponse(b *domain.SavedBook) BookResponse {
	return BookResponse{
		ID:           b.ID,
		Title:        b.Title,
		Author:       b.Author,
		Description:  b.Description,
		Reason:       b.Reason,
		HasEmbedding: b.HasEmbedding(),
		CreatedAt:    b.CreatedAt,
	}
}

// LibraryOutput wraps the book list for Huma.
type LibraryOutput struct {
	Body struct {
		Books []BookResponse `json:"books" doc:"Saved books, newest first"`
	}
}

// SaveBookRequest is the request body for saving a book.
type SaveBookRequest struct {
	Title       string `json:"title" validate:"required,max=255" doc:"Book title"`
	Author      string `json:"author" validate:"required,max=255" doc:"Book author"`
	Description string `json:"description" validate:"required,max=2000" doc:"Short description"`
	Reason      string `json:"reason,omitempty" validate:"max=1000" doc:"Why it was recommended"`
}

// SaveBookInput wraps the save request for Huma.
type SaveBookInput struct {
	Body SaveBookRequest
}

// SaveBookResponse reports the stored book and whether this call created it.
type SaveBookResponse struct {
	Book  BookResponse `json:"book" doc:"The saved book"`
	Saved bool         `json:"saved" doc:"False when the book was already in the library"`
}

// SaveBookOutput wraps the save response for Huma.
// Status is 201 for a new entry and 200 for an idempotent duplicate.
type SaveBookOutput struct {
	Status int
	Body   SaveBookResponse
}

// BookIDInput captures the book ID path parameter.
type BookIDInput struct {
	ID string `path:"id" doc:"Book ID"`
}

// DeleteBookOutput confirms a deletion.
type DeleteBookOutput struct {
	Body struct {
		Deleted bool `json:"deleted"`
	}
}

// SearchLibraryInput captures the search query parameters.
type SearchLibraryInput struct {
	Query  string `query:"q" doc:"Search terms; empty returns all books"`
	Limit  int    `query:"limit" default:"20" minimum:"1" maximum:"100" doc:"Maximum hits to return"`
	Offset int    `query:"offset" default:"0" minimum:"0" doc:"Hits to skip for pagination"`
}

// SearchLibraryOutput wraps search results for Huma.
type SearchLibraryOutput struct {
	Body search.SearchResult
}

// SimilarBooksOutput wraps similarity results for Huma.
type SimilarBooksOutput struct {
	Body struct {
		Similar []service.SimilarBook `json:"similar" doc:"Closest books, best match first"`
	}
}

// === Handlers ===

func (s *Server) handleListLibrary(ctx context.Context, _ *struct{}) (*LibraryOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	books, err := s.services.Library.List(ctx, userID)
	if err != nil {
		return nil, err
	}

	out := &LibraryOutput{}
	out.Body.Books = make([]BookResponse, 0, len(books))
	for _, b := range books {
		out.Body.Books = append(out.Body.Books, mapBookResponse(b))
	}
	return out, nil
}

func (s *Server) handleSaveBook(ctx context.Context, input *SaveBookInput) (*SaveBookOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	result, err := s.services.Library.Save(ctx, userID, service.SaveRequest{
		Title:       input.Body.Title,
		Author:      input.Body.Author,
		Description: input.Body.Description,
		Reason:      input.Body.Reason,
	})
	if err != nil {
		return nil, err
	}

	status := http.StatusCreated
	if !result.Saved {
		status = http.StatusOK
	}

	return &SaveBookOutput{
		Status: status,
		Body: SaveBookResponse{
			Book:  mapBookResponse(result.Book),
			Saved: result.Saved,
		},
	}, nil
}

func (s *Server) handleDeleteBook(ctx context.Context, input *BookIDInput) (*DeleteBookOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	if err := s.services.Library.Delete(ctx, userID, input.ID); err != nil {
		return nil, err
	}

	out := &DeleteBookOutput{}
	out.Body.Deleted = true
	return out, nil
}

func (s *Server) handleSearchLibrary(ctx context.Context, input *SearchLibraryInput) (*SearchLibraryOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	result, err := s.services.Library.Search(ctx, userID, input.Query, input.Limit, input.Offset)
	if err != nil {
		return nil, err
	}

	return &SearchLibraryOutput{Body: *result}, nil
}

func (s *Server) handleGetSimilarBooks(ctx context.Context, input *BookIDInput) (*SimilarBooksOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	similar, err := s.services.Library.Similar(ctx, userID, input.ID)
	if err != nil {
		return nil, err
	}

	out := &SimilarBooksOutput{}
	out.Body.Similar = similar
	return out, nil
}
