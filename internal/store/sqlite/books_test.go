package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shelfscout/shelfscout-server/internal/domain"
	domainerrors "github.com/shelfscout/shelfscout-server/internal/errors"
)

// makeTestBook creates a domain.SavedBook for an existing user.
func makeTestBook(id, userID, title, author string) *domain.SavedBook {
	return &domain.SavedBook{
		ID:          id,
		UserID:      userID,
		Title:       title,
		Author:      author,
		Description: "A test description.",
		Reason:      "Matched the reader's taste.",
		CreatedAt:   time.Now(),
	}
}

func seedUser(t *testing.T, s *Store, id, email string) {
	t.Helper()
	if err := s.CreateUser(context.Background(), makeTestUser(id, email)); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
}

func TestCreateAndGetUserBook(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedUser(t, s, "user-1", "alice@example.com")

	book := makeTestBook("book-1", "user-1", "Solaris", "Stanislaw Lem")
	book.Embedding = []float32{0.25, -0.5, 0.75}
	if err := s.CreateUserBook(ctx, book); err != nil {
		t.Fatalf("CreateUserBook: %v", err)
	}

	got, err := s.GetUserBook(ctx, "book-1")
	if err != nil {
		t.Fatalf("GetUserBook: %v", err)
	}
	if got.Title != "Solaris" {
		t.Errorf("Title: got %q", got.Title)
	}
	if got.Author != "Stanislaw Lem" {
		t.Errorf("Author: got %q", got.Author)
	}
	if got.Reason != "Matched the reader's taste." {
		t.Errorf("Reason: got %q", got.Reason)
	}
	if len(got.Embedding) != 3 || got.Embedding[1] != -0.5 {
		t.Errorf("Embedding: got %v", got.Embedding)
	}
}

func TestCreateUserBook_DuplicateTitleAuthor(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedUser(t, s, "user-1", "alice@example.com")

	if err := s.CreateUserBook(ctx, makeTestBook("book-1", "user-1", "Dune", "Frank Herbert")); err != nil {
		t.Fatalf("CreateUserBook: %v", err)
	}

	err := s.CreateUserBook(ctx, makeTestBook("book-2", "user-1", "Dune", "Frank Herbert"))
	if !errors.Is(err, domainerrors.ErrAlreadyExists) {
		t.Errorf("expected ErrAlreadyExists, got %v", err)
	}
}

func TestCreateUserBook_SamePairDifferentUsers(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedUser(t, s, "user-1", "alice@example.com")
	seedUser(t, s, "user-2", "bob@example.com")

	if err := s.CreateUserBook(ctx, makeTestBook("book-1", "user-1", "Dune", "Frank Herbert")); err != nil {
		t.Fatalf("CreateUserBook user-1: %v", err)
	}
	if err := s.CreateUserBook(ctx, makeTestBook("book-2", "user-2", "Dune", "Frank Herbert")); err != nil {
		t.Errorf("CreateUserBook user-2 should succeed: %v", err)
	}
}

func TestGetUserBookByTitleAuthor(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedUser(t, s, "user-1", "alice@example.com")

	if err := s.CreateUserBook(ctx, makeTestBook("book-1", "user-1", "Dune", "Frank Herbert")); err != nil {
		t.Fatalf("CreateUserBook: %v", err)
	}

	got, err := s.GetUserBookByTitleAuthor(ctx, "user-1", "Dune", "Frank Herbert")
	if err != nil {
		t.Fatalf("GetUserBookByTitleAuthor: %v", err)
	}
	if got.ID != "book-1" {
		t.Errorf("ID: got %q", got.ID)
	}

	// Matching is exact, not case-insensitive.
	_, err = s.GetUserBookByTitleAuthor(ctx, "user-1", "dune", "frank herbert")
	if !errors.Is(err, domainerrors.ErrNotFound) {
		t.Errorf("expected ErrNotFound for different casing, got %v", err)
	}
}

func TestListUserBooks_NewestFirst(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedUser(t, s, "user-1", "alice@example.com")
	seedUser(t, s, "user-2", "bob@example.com")

	base := time.Now()
	for i, title := range []string{"First", "Second", "Third"} {
		b := makeTestBook("book-"+title, "user-1", title, "Author")
		b.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		if err := s.CreateUserBook(ctx, b); err != nil {
			t.Fatalf("CreateUserBook: %v", err)
		}
	}
	if err := s.CreateUserBook(ctx, makeTestBook("book-other", "user-2", "Other", "Author")); err != nil {
		t.Fatalf("CreateUserBook: %v", err)
	}

	books, err := s.ListUserBooks(ctx, "user-1")
	if err != nil {
		t.Fatalf("ListUserBooks: %v", err)
	}
	if len(books) != 3 {
		t.Fatalf("got %d books, want 3", len(books))
	}
	if books[0].Title != "Third" || books[2].Title != "First" {
		t.Errorf("wrong order: %s, %s, %s", books[0].Title, books[1].Title, books[2].Title)
	}
}

func TestUpdateUserBookEmbedding(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedUser(t, s, "user-1", "alice@example.com")

	book := makeTestBook("book-1", "user-1", "Dune", "Frank Herbert")
	if err := s.CreateUserBook(ctx, book); err != nil {
		t.Fatalf("CreateUserBook: %v", err)
	}

	if err := s.UpdateUserBookEmbedding(ctx, "book-1", []float32{1, 2, 3}); err != nil {
		t.Fatalf("UpdateUserBookEmbedding: %v", err)
	}

	got, err := s.GetUserBook(ctx, "book-1")
	if err != nil {
		t.Fatalf("GetUserBook: %v", err)
	}
	if !got.HasEmbedding() {
		t.Error("expected embedding to be set")
	}

	if err := s.UpdateUserBookEmbedding(ctx, "missing", []float32{1}); !errors.Is(err, domainerrors.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestDeleteUserBook(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedUser(t, s, "user-1", "alice@example.com")

	if err := s.CreateUserBook(ctx, makeTestBook("book-1", "user-1", "Dune", "Frank Herbert")); err != nil {
		t.Fatalf("CreateUserBook: %v", err)
	}

	if err := s.DeleteUserBook(ctx, "book-1"); err != nil {
		t.Fatalf("DeleteUserBook: %v", err)
	}
	if _, err := s.GetUserBook(ctx, "book-1"); !errors.Is(err, domainerrors.ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestCountUserBooks(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedUser(t, s, "user-1", "alice@example.com")

	n, err := s.CountUserBooks(ctx, "user-1")
	if err != nil {
		t.Fatalf("CountUserBooks: %v", err)
	}
	if n != 0 {
		t.Errorf("got %d, want 0", n)
	}

	if err := s.CreateUserBook(ctx, makeTestBook("book-1", "user-1", "Dune", "Frank Herbert")); err != nil {
		t.Fatalf("CreateUserBook: %v", err)
	}

	n, err = s.CountUserBooks(ctx, "user-1")
	if err != nil {
		t.Fatalf("CountUserBooks: %v", err)
	}
	if n != 1 {
		t.Errorf("got %d, want 1", n)
	}
}

func TestCatalogBooks(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	book := &domain.CatalogBook{
		ID:          "catalog-1",
		Title:       "Fundación",
		Author:      "Isaac Asimov",
		Description: "El plan milenario de Hari Seldon para salvar la civilización.",
		Embedding:   []float32{0.1, 0.2},
		CreatedAt:   time.Now(),
	}
	if err := s.CreateCatalogBook(ctx, book); err != nil {
		t.Fatalf("CreateCatalogBook: %v", err)
	}

	// Duplicate title/author conflicts.
	dup := *book
	dup.ID = "catalog-2"
	if err := s.CreateCatalogBook(ctx, &dup); !errors.Is(err, domainerrors.ErrAlreadyExists) {
		t.Errorf("expected ErrAlreadyExists, got %v", err)
	}

	books, err := s.ListCatalogBooks(ctx)
	if err != nil {
		t.Fatalf("ListCatalogBooks: %v", err)
	}
	if len(books) != 1 {
		t.Fatalf("got %d catalog books, want 1", len(books))
	}
	if books[0].Title != "Fundación" {
		t.Errorf("Title: got %q", books[0].Title)
	}
	if len(books[0].Embedding) != 2 {
		t.Errorf("Embedding: got %v", books[0].Embedding)
	}
}
