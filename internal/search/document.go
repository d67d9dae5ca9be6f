// Package search provides full-text search over saved library books using Bleve.
// Every document carries its owner's user ID, and every query filters on it,
// so one shared index serves all users without leaking results between them.
package search

import (
	"github.com/shelfscout/shelfscout-server/internal/domain"
)

// SearchDocument is the document structure for the Bleve index.
type SearchDocument struct {
	ID          string `json:"id"`
	UserID      string `json:"user_id"` // Owner, used as a mandatory filter
	Title       string `json:"title"`
	Author      string `json:"author"`
	Description string `json:"description,omitempty"`
	CreatedAt   int64  `json:"created_at"` // Unix millis
}

// ToMap converts the document to a map with lowercase field names.
// This ensures field names match the Bleve index mapping.
// Bleve by default uses Go struct field names (capitalized), but our
// mapping uses lowercase names, so we convert explicitly.
func (d *SearchDocument) ToMap() map[string]interface{} {
	m := map[string]interface{}{
		"id":         d.ID,
		"user_id":    d.UserID,
		"title":      d.Title,
		"author":     d.Author,
		"created_at": d.CreatedAt,
	}

	if d.Description != "" {
		m["description"] = d.Description
	}

	return m
}

// BookToSearchDocument converts a saved book to a SearchDocument.
func BookToSearchDocument(book *domain.SavedBook) *SearchDocument {
	return &SearchDocument{
		ID:          book.ID,
		UserID:      book.UserID,
		Title:       book.Title,
		Author:      book.Author,
		Description: book.Description,
		CreatedAt:   book.CreatedAt.UnixMilli(),
	}
}
