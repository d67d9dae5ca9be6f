package domain

import "time"

// SavedBook is a book a user has added to their personal library.
// Uniqueness is exact (user, title, author); saving the same pair twice
// is idempotent.
type SavedBook struct {
	ID          string `json:"id"`
	UserID      string `json:"user_id"`
	Title       string `json:"title"`
	Author      string `json:"author"`
	Description string `json:"description"`
	Reason      string `json:"reason,omitempty"`
	// Embedding is computed best-effort at save time. Nil when the
	// embedding call failed; the save still succeeds.
	Embedding []float32 `json:"embedding,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// HasEmbedding reports whether a vector was stored for this book.
func (b *SavedBook) HasEmbedding() bool {
	return len(b.Embedding) > 0
}

// CatalogBook is a seeded catalog entry used to enrich similarity
// results beyond the user's own library.
type CatalogBook struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Author      string    `json:"author"`
	Description string    `json:"description"`
	Embedding   []float32 `json:"embedding,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}
