package service

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/shelfscout/shelfscout-server/internal/auth"
	"github.com/shelfscout/shelfscout-server/internal/domain"
	"github.com/shelfscout/shelfscout-server/internal/search"
	"github.com/shelfscout/shelfscout-server/internal/store"
	"github.com/shelfscout/shelfscout-server/internal/store/sqlite"
)

const testKeyHex = "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f"

// testFixtures bundles the stores a service test needs.
type testFixtures struct {
	db    *sqlite.Store
	cache *store.Store
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestSQLite(t *testing.T) *sqlite.Store {
	t.Helper()
	s, err := sqlite.Open(filepath.Join(t.TempDir(), "test.db"), testLogger())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func newTestCache(t *testing.T) *store.Store {
	t.Helper()
	c, err := store.New(t.TempDir(), testLogger())
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func newTestSearch(t *testing.T) *search.SearchIndex {
	t.Helper()
	idx, err := search.NewSearchIndex(search.Options{
		DataPath: t.TempDir(),
		Logger:   testLogger(),
	})
	require.NoError(t, err)
	t.Cleanup(func() { idx.Close() })
	return idx
}

func newTestTokenService(t *testing.T) *auth.TokenService {
	t.Helper()
	svc, err := auth.NewTokenService(testKeyHex, 15*time.Minute, 30*24*time.Hour)
	require.NoError(t, err)
	return svc
}

func newTestAuthService(t *testing.T) (*AuthService, *sqlite.Store) {
	t.Helper()
	db := newTestSQLite(t)
	tokens := newTestTokenService(t)
	sessions := NewSessionService(db, tokens, testLogger())
	return NewAuthService(db, tokens, sessions, testLogger()), db
}

// seedTestUser creates a user directly in the database.
func seedTestUser(t *testing.T, db *sqlite.Store, userID string) *domain.User {
	t.Helper()
	now := time.Now()
	user := &domain.User{
		ID:           userID,
		Email:        userID + "@example.com",
		PasswordHash: "$argon2id$fakehashfortest",
		DisplayName:  "Reader",
		CreatedAt:    now,
		UpdatedAt:    now,
		LastLoginAt:  now,
	}
	require.NoError(t, db.CreateUser(context.Background(), user))
	return user
}

// fakeAgent returns canned suggestions and counts calls.
type fakeAgent struct {
	calls       atomic.Int64
	suggestions []domain.BookSuggestion
	err         error

	// onCall runs before returning, letting tests simulate races.
	onCall func()
}

func (f *fakeAgent) Recommend(_ context.Context, _, _ string) ([]domain.BookSuggestion, error) {
	f.calls.Add(1)
	if f.onCall != nil {
		f.onCall()
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.suggestions, nil
}

func defaultSuggestions() []domain.BookSuggestion {
	return []domain.BookSuggestion{
		{
			Title:       "Stoner",
			Author:      "John Williams",
			Description: "The quiet life of a Midwestern English professor, told with devastating restraint.",
			Reason:      "A hidden gem of American literary fiction.",
		},
		{
			Title:       "The Leopard",
			Author:      "Giuseppe Tomasi di Lampedusa",
			Description: "A Sicilian prince watches his world dissolve during the Risorgimento.",
			Reason:      "A masterpiece about decline and acceptance.",
		},
	}
}

// fakeEmbedder returns a fixed vector or an error.
type fakeEmbedder struct {
	vec   []float32
	err   error
	calls atomic.Int64

	// onCall runs before returning, letting tests simulate races.
	onCall func()
}

func (f *fakeEmbedder) Embed(_ context.Context, _ string) ([]float32, error) {
	f.calls.Add(1)
	if f.onCall != nil {
		f.onCall()
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.vec, nil
}
