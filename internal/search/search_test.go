package search

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shelfscout/shelfscout-server/internal/domain"
)

// setupTestIndex creates a temporary search index for testing.
func setupTestIndex(t *testing.T) (*SearchIndex, func()) {
	t.Helper()

	tmpDir, err := os.MkdirTemp("", "search-test-*")
	require.NoError(t, err)

	index, err := NewSearchIndex(Options{
		DataPath: tmpDir,
		Logger:   nil,
	})
	require.NoError(t, err)

	cleanup := func() {
		_ = index.Close()
		_ = os.RemoveAll(tmpDir)
	}

	return index, cleanup
}

func indexTestBooks(t *testing.T, index *SearchIndex) {
	t.Helper()

	docs := []*SearchDocument{
		{
			ID:          "book-1",
			UserID:      "user-1",
			Title:       "The Left Hand of Darkness",
			Author:      "Ursula K. Le Guin",
			Description: "An envoy on a planet of ambisexual people navigates politics and ice.",
			CreatedAt:   time.Now().UnixMilli(),
		},
		{
			ID:          "book-2",
			UserID:      "user-1",
			Title:       "Solaris",
			Author:      "Stanislaw Lem",
			Description: "A sentient ocean confronts visiting scientists with their own pasts.",
			CreatedAt:   time.Now().UnixMilli(),
		},
		{
			ID:          "book-3",
			UserID:      "user-2",
			Title:       "The Dispossessed",
			Author:      "Ursula K. Le Guin",
			Description: "A physicist travels between an anarchist moon and its capitalist planet.",
			CreatedAt:   time.Now().UnixMilli(),
		},
	}
	require.NoError(t, index.IndexDocuments(docs))
}

func TestNewSearchIndex(t *testing.T) {
	index, cleanup := setupTestIndex(t)
	defer cleanup()

	count, err := index.DocumentCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(0), count)
}

func TestSearchIndex_IndexDocument(t *testing.T) {
	index, cleanup := setupTestIndex(t)
	defer cleanup()

	book := &domain.SavedBook{
		ID:          "book-123",
		UserID:      "user-1",
		Title:       "The Hobbit",
		Author:      "J.R.R. Tolkien",
		Description: "A hobbit leaves home with a band of dwarves.",
		CreatedAt:   time.Now(),
	}

	err := index.IndexDocument(BookToSearchDocument(book))
	require.NoError(t, err)

	count, err := index.DocumentCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), count)
}

func TestSearch_TitleMatch(t *testing.T) {
	index, cleanup := setupTestIndex(t)
	defer cleanup()
	indexTestBooks(t, index)

	params := DefaultSearchParams()
	params.UserID = "user-1"
	params.Query = "darkness"

	result, err := index.Search(context.Background(), params)
	require.NoError(t, err)

	require.GreaterOrEqual(t, len(result.Hits), 1)
	assert.Equal(t, "book-1", result.Hits[0].ID)
	assert.Equal(t, "The Left Hand of Darkness", result.Hits[0].Title)
}

func TestSearch_AuthorMatch(t *testing.T) {
	index, cleanup := setupTestIndex(t)
	defer cleanup()
	indexTestBooks(t, index)

	params := DefaultSearchParams()
	params.UserID = "user-1"
	params.Query = "Lem"

	result, err := index.Search(context.Background(), params)
	require.NoError(t, err)

	require.GreaterOrEqual(t, len(result.Hits), 1)
	assert.Equal(t, "book-2", result.Hits[0].ID)
}

func TestSearch_ScopedToUser(t *testing.T) {
	index, cleanup := setupTestIndex(t)
	defer cleanup()
	indexTestBooks(t, index)

	// user-2 also has a Le Guin book; user-1's search must not return it.
	params := DefaultSearchParams()
	params.UserID = "user-1"
	params.Query = "Le Guin"

	result, err := index.Search(context.Background(), params)
	require.NoError(t, err)

	for _, hit := range result.Hits {
		assert.NotEqual(t, "book-3", hit.ID, "another user's book leaked into results")
	}
}

func TestSearch_RequiresUserID(t *testing.T) {
	index, cleanup := setupTestIndex(t)
	defer cleanup()

	params := DefaultSearchParams()
	params.Query = "anything"

	_, err := index.Search(context.Background(), params)
	assert.Error(t, err)
}

func TestSearch_EmptyQueryReturnsAllUserBooks(t *testing.T) {
	index, cleanup := setupTestIndex(t)
	defer cleanup()
	indexTestBooks(t, index)

	params := DefaultSearchParams()
	params.UserID = "user-1"

	result, err := index.Search(context.Background(), params)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), result.Total)
}

func TestSearch_FuzzyMatch(t *testing.T) {
	index, cleanup := setupTestIndex(t)
	defer cleanup()
	indexTestBooks(t, index)

	// One-character typo should still find the book.
	params := DefaultSearchParams()
	params.UserID = "user-1"
	params.Query = "solarys"

	result, err := index.Search(context.Background(), params)
	require.NoError(t, err)

	require.GreaterOrEqual(t, len(result.Hits), 1)
	assert.Equal(t, "book-2", result.Hits[0].ID)
}

func TestSearch_Highlights(t *testing.T) {
	index, cleanup := setupTestIndex(t)
	defer cleanup()
	indexTestBooks(t, index)

	params := DefaultSearchParams()
	params.UserID = "user-1"
	params.Query = "darkness"

	result, err := index.Search(context.Background(), params)
	require.NoError(t, err)

	require.GreaterOrEqual(t, len(result.Hits), 1)
	assert.NotEmpty(t, result.Hits[0].Highlights)
}

func TestDeleteDocument(t *testing.T) {
	index, cleanup := setupTestIndex(t)
	defer cleanup()
	indexTestBooks(t, index)

	require.NoError(t, index.DeleteDocument("book-1"))

	params := DefaultSearchParams()
	params.UserID = "user-1"
	params.Query = "darkness"

	result, err := index.Search(context.Background(), params)
	require.NoError(t, err)

	for _, hit := range result.Hits {
		assert.NotEqual(t, "book-1", hit.ID)
	}
}

func TestRebuild_EmptiesIndex(t *testing.T) {
	index, cleanup := setupTestIndex(t)
	defer cleanup()
	indexTestBooks(t, index)

	require.NoError(t, index.Rebuild())

	count, err := index.DocumentCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(0), count)
}
