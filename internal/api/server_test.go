package api

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	json "github.com/go-json-experiment/json"

	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/stretchr/testify/require"

	"github.com/shelfscout/shelfscout-server/internal/auth"
	"github.com/shelfscout/shelfscout-server/internal/domain"
	"github.com/shelfscout/shelfscout-server/internal/search"
	"github.com/shelfscout/shelfscout-server/internal/service"
	"github.com/shelfscout/shelfscout-server/internal/store"
	"github.com/shelfscout/shelfscout-server/internal/store/sqlite"
)

const testServerKeyHex = "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f"

// testEnvelope mirrors APIEnvelope with typed data for test assertions.
type testEnvelope[T any] struct {
	Version int    `json:"v"`
	Success bool   `json:"success"`
	Data    T      `json:"data"`
	Error   string `json:"error"`
}

// stubAgent returns canned suggestions and counts calls.
type stubAgent struct {
	calls       atomic.Int64
	suggestions []domain.BookSuggestion
	err         error
}

func (a *stubAgent) Recommend(_ context.Context, _, _ string) ([]domain.BookSuggestion, error) {
	a.calls.Add(1)
	if a.err != nil {
		return nil, a.err
	}
	return a.suggestions, nil
}

// stubEmbedder returns a fixed vector.
type stubEmbedder struct {
	vec []float32
	err error
}

func (e *stubEmbedder) Embed(_ context.Context, _ string) ([]float32, error) {
	if e.err != nil {
		return nil, e.err
	}
	return e.vec, nil
}

// testServer wraps the API server for handler testing.
type testServer struct {
	*Server
	api   humatest.TestAPI
	db    *sqlite.Store
	cache *store.Store
	agent *stubAgent
}

// setupTestServer creates a fully wired server backed by temp stores and
// stubbed AI calls.
func setupTestServer(t *testing.T) *testServer {
	t.Helper()

	tmpDir := t.TempDir()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	db, err := sqlite.Open(filepath.Join(tmpDir, "test.db"), logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	cache, err := store.New(filepath.Join(tmpDir, "cache"), logger)
	require.NoError(t, err)
	t.Cleanup(func() { cache.Close() })

	searchIndex, err := search.NewSearchIndex(search.Options{
		DataPath: tmpDir,
		Logger:   logger,
	})
	require.NoError(t, err)
	t.Cleanup(func() { searchIndex.Close() })

	tokenService, err := auth.NewTokenService(testServerKeyHex, 15*time.Minute, 30*24*time.Hour)
	require.NoError(t, err)

	agent := &stubAgent{suggestions: []domain.BookSuggestion{
		{
			Title:       "The Master and Margarita",
			Author:      "Mikhail Bulgakov",
			Description: "The devil arrives in Soviet Moscow.",
			Reason:      "A satirical masterpiece.",
		},
	}}
	embedder := &stubEmbedder{vec: []float32{0.1, 0.2, 0.3}}

	sessionService := service.NewSessionService(db, tokenService, logger)
	authService := service.NewAuthService(db, tokenService, sessionService, logger)

	services := &Services{
		Auth:           authService,
		Onboarding:     service.NewOnboardingService(db, cache, logger),
		Recommendation: service.NewRecommendationService(cache, agent, logger),
		Library:        service.NewLibraryService(db, searchIndex, embedder, logger),
	}

	s := NewServer(db, cache, searchIndex, services, logger)
	t.Cleanup(s.authRateLimiter.Stop)
	t.Cleanup(s.recRateLimiter.Stop)

	return &testServer{
		Server: s,
		api:    humatest.Wrap(t, s.api),
		db:     db,
		cache:  cache,
		agent:  agent,
	}
}

// registerTestUser creates a user via the API and returns the auth response.
func (ts *testServer) registerTestUser(t *testing.T, email string) AuthResponse {
	t.Helper()

	resp := ts.api.Post("/api/v1/auth/register", map[string]any{
		"email":        email,
		"password":     "TestPassword123!",
		"display_name": "Test Reader",
	})
	require.Equal(t, http.StatusOK, resp.Code, "Register failed: %s", resp.Body.String())

	var envelope testEnvelope[AuthResponse]
	err := json.Unmarshal(resp.Body.Bytes(), &envelope)
	require.NoError(t, err)
	require.True(t, envelope.Success)

	return envelope.Data
}

// onboardTestUser completes onboarding for the given token.
func (ts *testServer) onboardTestUser(t *testing.T, token string) {
	t.Helper()

	resp := ts.api.Post("/api/v1/onboarding",
		map[string]any{"genres": []string{"science fiction"}},
		"Authorization: Bearer "+token)
	require.Equal(t, http.StatusSeeOther, resp.Code, "Onboarding failed: %s", resp.Body.String())
}

func bearer(token string) string {
	return "Authorization: Bearer " + token
}
