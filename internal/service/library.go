package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/shelfscout/shelfscout-server/internal/domain"
	domainerrors "github.com/shelfscout/shelfscout-server/internal/errors"
	"github.com/shelfscout/shelfscout-server/internal/id"
	"github.com/shelfscout/shelfscout-server/internal/search"
	"github.com/shelfscout/shelfscout-server/internal/store/sqlite"
)

// similarLimit caps how many neighbors the similarity endpoint returns.
const similarLimit = 5

// Embedder turns text into a vector. Implemented by ai.Client; faked in tests.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// LibraryService manages each user's saved books, their search index entries
// and embedding-based similarity.
type LibraryService struct {
	store    *sqlite.Store
	search   *search.SearchIndex
	embedder Embedder
	logger   *slog.Logger
}

// NewLibraryService creates a new library service.
func NewLibraryService(
	store *sqlite.Store,
	searchIndex *search.SearchIndex,
	embedder Embedder,
	logger *slog.Logger,
) *LibraryService {
	return &LibraryService{
		store:    store,
		search:   searchIndex,
		embedder: embedder,
		logger:   logger,
	}
}

// SaveRequest contains a book to add to the user's library.
type SaveRequest struct {
	Title       string `json:"title" validate:"required,max=255"`
	Author      string `json:"author" validate:"required,max=255"`
	Description string `json:"description" validate:"required,max=2000"`
	Reason      string `json:"reason" validate:"max=1000"`
}

// SaveResult reports the stored book and whether this call created it.
// Saved is false when the user had already saved the same title and author.
type SaveResult struct {
	Book  *domain.SavedBook `json:"book"`
	Saved bool              `json:"saved"`
}

// Save adds a book to the user's library. Saving an exact (title, author)
// duplicate is idempotent and returns the existing entry.
//
// The embedding is computed best-effort: an embedding failure never fails
// the save, the book just stays without a vector.
func (s *LibraryService) Save(ctx context.Context, userID string, req SaveRequest) (*SaveResult, error) {
	// Validate request
	if err := validate.Struct(req); err != nil {
		return nil, formatValidationError(err)
	}

	title := strings.TrimSpace(req.Title)
	author := strings.TrimSpace(req.Author)

	// Fast path: already saved
	if existing, err := s.store.GetUserBookByTitleAuthor(ctx, userID, title, author); err == nil {
		return &SaveResult{Book: existing, Saved: false}, nil
	} else if !errors.Is(err, domainerrors.ErrNotFound) {
		return nil, fmt.Errorf("check existing book: %w", err)
	}

	bookID, err := id.Generate("book")
	if err != nil {
		return nil, fmt.Errorf("generate book ID: %w", err)
	}

	book := &domain.SavedBook{
		ID:          bookID,
		UserID:      userID,
		Title:       title,
		Author:      author,
		Description: strings.TrimSpace(req.Description),
		Reason:      strings.TrimSpace(req.Reason),
		CreatedAt:   time.Now().UTC(),
	}

	book.Embedding = s.embedBook(ctx, book)

	if err := s.store.CreateUserBook(ctx, book); err != nil {
		if errors.Is(err, domainerrors.ErrAlreadyExists) {
			// Lost a race with an identical save. Return the winner.
			existing, getErr := s.store.GetUserBookByTitleAuthor(ctx, userID, title, author)
			if getErr != nil {
				return nil, fmt.Errorf("load concurrent book: %w", getErr)
			}
			return &SaveResult{Book: existing, Saved: false}, nil
		}
		return nil, fmt.Errorf("save book: %w", err)
	}

	// Index for search. Failure is logged, not surfaced: the book is saved
	// and the index can be rebuilt from the database.
	if err := s.search.IndexDocument(search.BookToSearchDocument(book)); err != nil {
		if s.logger != nil {
			s.logger.Warn("Failed to index saved book",
				"book_id", book.ID,
				"error", err,
			)
		}
	}

	if s.logger != nil {
		s.logger.Info("Book saved",
			"user_id", userID,
			"book_id", book.ID,
			"has_embedding", book.HasEmbedding(),
		)
	}

	return &SaveResult{Book: book, Saved: true}, nil
}

// List returns the user's saved books, newest first.
func (s *LibraryService) List(ctx context.Context, userID string) ([]*domain.SavedBook, error) {
	books, err := s.store.ListUserBooks(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list books: %w", err)
	}
	if books == nil {
		books = []*domain.SavedBook{}
	}
	return books, nil
}

// Delete removes a saved book. Deleting another user's book is forbidden,
// and the error distinguishes that case from a missing book on purpose:
// the book exists, the caller just doesn't own it.
func (s *LibraryService) Delete(ctx context.Context, userID, bookID string) error {
	book, err := s.store.GetUserBook(ctx, bookID)
	if err != nil {
		if errors.Is(err, domainerrors.ErrNotFound) {
			return domainerrors.NotFound("book not found")
		}
		return fmt.Errorf("get book: %w", err)
	}

	if book.UserID != userID {
		return domainerrors.Forbidden("you do not own this book")
	}

	if err := s.store.DeleteUserBook(ctx, bookID); err != nil {
		return fmt.Errorf("delete book: %w", err)
	}

	if err := s.search.DeleteDocument(bookID); err != nil {
		if s.logger != nil {
			s.logger.Warn("Failed to remove book from search index",
				"book_id", bookID,
				"error", err,
			)
		}
	}

	return nil
}

// Search runs a full-text query over the user's library.
func (s *LibraryService) Search(ctx context.Context, userID, query string, limit, offset int) (*search.SearchResult, error) {
	params := search.DefaultSearchParams()
	params.UserID = userID
	params.Query = strings.TrimSpace(query)
	if limit > 0 {
		params.Limit = limit
	}
	if offset > 0 {
		params.Offset = offset
	}

	result, err := s.search.Search(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("search library: %w", err)
	}
	return result, nil
}

// SimilarBook is a neighbor in embedding space.
type SimilarBook struct {
	Title       string  `json:"title"`
	Author      string  `json:"author"`
	Description string  `json:"description"`
	Source      string  `json:"source"` // "library" or "catalog"
	Score       float64 `json:"score"`  // Cosine similarity, higher is closer
}

// Similar finds the books closest to the given saved book by cosine
// similarity, across both the user's own library and the seeded catalog.
func (s *LibraryService) Similar(ctx context.Context, userID, bookID string) ([]SimilarBook, error) {
	book, err := s.store.GetUserBook(ctx, bookID)
	if err != nil {
		if errors.Is(err, domainerrors.ErrNotFound) {
			return nil, domainerrors.NotFound("book not found")
		}
		return nil, fmt.Errorf("get book: %w", err)
	}

	if book.UserID != userID {
		return nil, domainerrors.Forbidden("you do not own this book")
	}

	// Late embedding: the vector may be missing when the embed call failed
	// at save time. Try once more now.
	if !book.HasEmbedding() {
		book.Embedding = s.embedBook(ctx, book)
		if !book.HasEmbedding() {
			return nil, domainerrors.AgentFailure("no embedding available for this book")
		}
		if err := s.store.UpdateUserBookEmbedding(ctx, book.ID, book.Embedding); err != nil {
			if s.logger != nil {
				s.logger.Warn("Failed to persist late embedding", "book_id", book.ID, "error", err)
			}
		}
	}

	var candidates []SimilarBook

	library, err := s.store.ListUserBooks(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list books: %w", err)
	}
	for _, other := range library {
		if other.ID == book.ID || !other.HasEmbedding() {
			continue
		}
		candidates = append(candidates, SimilarBook{
			Title:       other.Title,
			Author:      other.Author,
			Description: other.Description,
			Source:      "library",
			Score:       cosineSimilarity(book.Embedding, other.Embedding),
		})
	}

	catalog, err := s.store.ListCatalogBooks(ctx)
	if err != nil {
		return nil, fmt.Errorf("list catalog: %w", err)
	}
	for _, entry := range catalog {
		if len(entry.Embedding) == 0 {
			continue
		}
		// Skip the book itself when it's also a catalog entry.
		if entry.Title == book.Title && entry.Author == book.Author {
			continue
		}
		candidates = append(candidates, SimilarBook{
			Title:       entry.Title,
			Author:      entry.Author,
			Description: entry.Description,
			Source:      "catalog",
			Score:       cosineSimilarity(book.Embedding, entry.Embedding),
		})
	}

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})
	if len(candidates) > similarLimit {
		candidates = candidates[:similarLimit]
	}
	if candidates == nil {
		candidates = []SimilarBook{}
	}

	return candidates, nil
}

// embedBook computes a vector for a book, returning nil on any failure.
func (s *LibraryService) embedBook(ctx context.Context, book *domain.SavedBook) []float32 {
	text := book.Title + " by " + book.Author + ". " + book.Description
	vec, err := s.embedder.Embed(ctx, text)
	if err != nil {
		if s.logger != nil {
			s.logger.Warn("Embedding failed, saving book without vector",
				"book_id", book.ID,
				"error", err,
			)
		}
		return nil
	}
	return vec
}

// cosineSimilarity computes the cosine of the angle between two vectors.
// Mismatched lengths or zero vectors score 0.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
