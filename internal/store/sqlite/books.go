package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	json "github.com/go-json-experiment/json"
	"strings"

	"github.com/shelfscout/shelfscout-server/internal/domain"
	domainerrors "github.com/shelfscout/shelfscout-server/internal/errors"
)

// userBookColumns is the ordered list of columns selected in user book queries.
// Must match the scan order in scanUserBook.
const userBookColumns = `id, user_id, title, author, description, reason, embedding, created_at`

// scanUserBook scans a sql.Row (or sql.Rows via its Scan method) into a domain.SavedBook.
func scanUserBook(scanner interface{ Scan(dest ...any) error }) (*domain.SavedBook, error) {
	var b domain.SavedBook

	var (
		reason    sql.NullString
		embedding sql.NullString
		createdAt string
	)

	err := scanner.Scan(
		&b.ID,
		&b.UserID,
		&b.Title,
		&b.Author,
		&b.Description,
		&reason,
		&embedding,
		&createdAt,
	)
	if err != nil {
		return nil, err
	}

	b.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return nil, err
	}

	if reason.Valid {
		b.Reason = reason.String
	}

	b.Embedding, err = parseEmbedding(embedding)
	if err != nil {
		return nil, err
	}

	return &b, nil
}

// marshalEmbedding encodes a vector as a JSON array, NULL when absent.
func marshalEmbedding(vec []float32) (sql.NullString, error) {
	if len(vec) == 0 {
		return sql.NullString{}, nil
	}
	data, err := json.Marshal(vec)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("marshal embedding: %w", err)
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}

// parseEmbedding decodes a JSON array column back into a vector.
func parseEmbedding(s sql.NullString) ([]float32, error) {
	if !s.Valid || s.String == "" {
		return nil, nil
	}
	var vec []float32
	if err := json.Unmarshal([]byte(s.String), &vec); err != nil {
		return nil, fmt.Errorf("parse embedding: %w", err)
	}
	return vec, nil
}

// CreateUserBook inserts a saved book into a user's library.
// Returns ErrAlreadyExists when the user already saved this title/author pair.
func (s *Store) CreateUserBook(ctx context.Context, book *domain.SavedBook) error {
	embeddingVal, err := marshalEmbedding(book.Embedding)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO user_books (
			id, user_id, title, author, description, reason, embedding, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		book.ID,
		book.UserID,
		book.Title,
		book.Author,
		book.Description,
		nullString(book.Reason),
		embeddingVal,
		formatTime(book.CreatedAt),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return domainerrors.ErrAlreadyExists
		}
		return err
	}
	return nil
}

// GetUserBook retrieves a saved book by ID regardless of owner.
// Ownership checks belong to the service layer so it can distinguish 403 from 404.
func (s *Store) GetUserBook(ctx context.Context, id string) (*domain.SavedBook, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+userBookColumns+` FROM user_books WHERE id = ?`, id)

	b, err := scanUserBook(row)
	if err == sql.ErrNoRows {
		return nil, domainerrors.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return b, nil
}

// GetUserBookByTitleAuthor retrieves a user's saved book by exact title and author.
// Returns ErrNotFound when the user has not saved this pair.
func (s *Store) GetUserBookByTitleAuthor(ctx context.Context, userID, title, author string) (*domain.SavedBook, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+userBookColumns+` FROM user_books WHERE user_id = ? AND title = ? AND author = ?`,
		userID, title, author)

	b, err := scanUserBook(row)
	if err == sql.ErrNoRows {
		return nil, domainerrors.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return b, nil
}

// ListUserBooks returns all of a user's saved books, newest first.
func (s *Store) ListUserBooks(ctx context.Context, userID string) ([]*domain.SavedBook, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+userBookColumns+` FROM user_books WHERE user_id = ? ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close() //nolint:errcheck // Read-only rows

	var books []*domain.SavedBook
	for rows.Next() {
		b, err := scanUserBook(rows)
		if err != nil {
			return nil, err
		}
		books = append(books, b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return books, nil
}

// UpdateUserBookEmbedding stores a vector for an existing saved book.
// Used when the embedding arrives after the save itself.
func (s *Store) UpdateUserBookEmbedding(ctx context.Context, id string, vec []float32) error {
	embeddingVal, err := marshalEmbedding(vec)
	if err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx,
		`UPDATE user_books SET embedding = ? WHERE id = ?`, embeddingVal, id)
	if err != nil {
		return err
	}

	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domainerrors.ErrNotFound
	}
	return nil
}

// DeleteUserBook performs a hard delete of a saved book by ID.
// Returns ErrNotFound if the book does not exist.
func (s *Store) DeleteUserBook(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM user_books WHERE id = ?`, id)
	if err != nil {
		return err
	}

	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domainerrors.ErrNotFound
	}
	return nil
}

// CountUserBooks returns the number of books in a user's library.
func (s *Store) CountUserBooks(ctx context.Context, userID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM user_books WHERE user_id = ?`, userID).Scan(&n)
	if err != nil {
		return 0, err
	}
	return n, nil
}

// catalogBookColumns is the ordered list of columns selected in catalog queries.
// Must match the scan order in scanCatalogBook.
const catalogBookColumns = `id, title, author, description, embedding, created_at`

// scanCatalogBook scans a sql.Row (or sql.Rows via its Scan method) into a domain.CatalogBook.
func scanCatalogBook(scanner interface{ Scan(dest ...any) error }) (*domain.CatalogBook, error) {
	var b domain.CatalogBook

	var (
		embedding sql.NullString
		createdAt string
	)

	err := scanner.Scan(
		&b.ID,
		&b.Title,
		&b.Author,
		&b.Description,
		&embedding,
		&createdAt,
	)
	if err != nil {
		return nil, err
	}

	b.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return nil, err
	}

	b.Embedding, err = parseEmbedding(embedding)
	if err != nil {
		return nil, err
	}

	return &b, nil
}

// CreateCatalogBook inserts a catalog entry.
// Returns ErrAlreadyExists when the title/author pair is already in the catalog.
func (s *Store) CreateCatalogBook(ctx context.Context, book *domain.CatalogBook) error {
	embeddingVal, err := marshalEmbedding(book.Embedding)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO catalog_books (
			id, title, author, description, embedding, created_at
		) VALUES (?, ?, ?, ?, ?, ?)`,
		book.ID,
		book.Title,
		book.Author,
		book.Description,
		embeddingVal,
		formatTime(book.CreatedAt),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return domainerrors.ErrAlreadyExists
		}
		return err
	}
	return nil
}

// ListCatalogBooks returns the full seeded catalog.
func (s *Store) ListCatalogBooks(ctx context.Context) ([]*domain.CatalogBook, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+catalogBookColumns+` FROM catalog_books ORDER BY created_at ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close() //nolint:errcheck // Read-only rows

	var books []*domain.CatalogBook
	for rows.Next() {
		b, err := scanCatalogBook(rows)
		if err != nil {
			return nil, err
		}
		books = append(books, b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return books, nil
}
