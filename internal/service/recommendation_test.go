package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shelfscout/shelfscout-server/internal/domain"
	domainerrors "github.com/shelfscout/shelfscout-server/internal/errors"
)

func TestRecommend_CacheMissCallsAgent(t *testing.T) {
	cache := newTestCache(t)
	agent := &fakeAgent{suggestions: defaultSuggestions()}
	svc := NewRecommendationService(cache, agent, testLogger())
	user := &domain.User{ID: "user-1"}

	result, err := svc.Recommend(context.Background(), user, RecommendRequest{Query: "quiet literary fiction"})
	require.NoError(t, err)

	assert.False(t, result.Cached)
	assert.Equal(t, int64(1), agent.calls.Load())
	require.Len(t, result.Recommendation.Suggestions, 2)
	assert.Equal(t, "Stoner", result.Recommendation.Suggestions[0].Title)
	assert.Equal(t, "quiet literary fiction", result.Recommendation.Query)
}

func TestRecommend_RepeatQueryServedFromCache(t *testing.T) {
	cache := newTestCache(t)
	agent := &fakeAgent{suggestions: defaultSuggestions()}
	svc := NewRecommendationService(cache, agent, testLogger())
	user := &domain.User{ID: "user-1"}
	ctx := context.Background()

	first, err := svc.Recommend(ctx, user, RecommendRequest{Query: "quiet literary fiction"})
	require.NoError(t, err)

	// Case and whitespace changes hit the same cache entry.
	second, err := svc.Recommend(ctx, user, RecommendRequest{Query: "  Quiet LITERARY Fiction "})
	require.NoError(t, err)

	assert.True(t, second.Cached)
	assert.Equal(t, first.Recommendation.ID, second.Recommendation.ID)
	assert.Equal(t, int64(1), agent.calls.Load(), "agent should only be called once")
}

func TestRecommend_CacheIsPerUser(t *testing.T) {
	cache := newTestCache(t)
	agent := &fakeAgent{suggestions: defaultSuggestions()}
	svc := NewRecommendationService(cache, agent, testLogger())
	ctx := context.Background()

	_, err := svc.Recommend(ctx, &domain.User{ID: "user-1"}, RecommendRequest{Query: "space opera"})
	require.NoError(t, err)

	result, err := svc.Recommend(ctx, &domain.User{ID: "user-2"}, RecommendRequest{Query: "space opera"})
	require.NoError(t, err)

	assert.False(t, result.Cached)
	assert.Equal(t, int64(2), agent.calls.Load())
}

func TestRecommend_ConcurrentDuplicateServesWinner(t *testing.T) {
	cache := newTestCache(t)

	// The fake agent sneaks a winner into the cache while the service is
	// mid-flight, simulating a concurrent identical query.
	winner := &domain.Recommendation{
		ID:          "rec-winner",
		UserID:      "user-1",
		Query:       "space opera",
		Fingerprint: domain.QueryFingerprint("space opera"),
		Suggestions: defaultSuggestions(),
		CreatedAt:   time.Now().UTC(),
	}
	agent := &fakeAgent{
		suggestions: defaultSuggestions(),
		onCall: func() {
			_ = cache.CreateRecommendation(winner)
		},
	}
	svc := NewRecommendationService(cache, agent, testLogger())

	result, err := svc.Recommend(context.Background(), &domain.User{ID: "user-1"}, RecommendRequest{Query: "space opera"})
	require.NoError(t, err)

	assert.True(t, result.Cached)
	assert.Equal(t, "rec-winner", result.Recommendation.ID)
}

func TestRecommend_AgentFailureIsBadGateway(t *testing.T) {
	cache := newTestCache(t)
	agent := &fakeAgent{err: errors.New("upstream exploded")}
	svc := NewRecommendationService(cache, agent, testLogger())

	_, err := svc.Recommend(context.Background(), &domain.User{ID: "user-1"}, RecommendRequest{Query: "anything good"})
	require.Error(t, err)

	var domainErr *domainerrors.Error
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, domainerrors.CodeAgentFailure, domainErr.Code)

	// Failures are not cached: a retry calls the agent again.
	agent.err = nil
	agent.suggestions = defaultSuggestions()
	result, err := svc.Recommend(context.Background(), &domain.User{ID: "user-1"}, RecommendRequest{Query: "anything good"})
	require.NoError(t, err)
	assert.False(t, result.Cached)
}

func TestRecommend_ValidationFailures(t *testing.T) {
	cache := newTestCache(t)
	agent := &fakeAgent{suggestions: defaultSuggestions()}
	svc := NewRecommendationService(cache, agent, testLogger())
	user := &domain.User{ID: "user-1"}

	tests := []struct {
		name  string
		query string
	}{
		{"empty", ""},
		{"too short", "ab"},
		{"whitespace only", "     "},
		{"too short after trimming", "  a  "},
		{"too long", strings.Repeat("q", 501)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Recommend(context.Background(), user, RecommendRequest{Query: tt.query})
			require.Error(t, err)

			var domainErr *domainerrors.Error
			require.ErrorAs(t, err, &domainErr)
			assert.Equal(t, domainerrors.CodeValidation, domainErr.Code)
		})
	}
	assert.Equal(t, int64(0), agent.calls.Load())
}

func TestRecommend_MalformedSuggestionsRejected(t *testing.T) {
	cache := newTestCache(t)
	agent := &fakeAgent{suggestions: []domain.BookSuggestion{
		{Title: "", Author: "Someone", Description: "d", Reason: "r"},
	}}
	svc := NewRecommendationService(cache, agent, testLogger())

	_, err := svc.Recommend(context.Background(), &domain.User{ID: "user-1"}, RecommendRequest{Query: "anything"})
	require.Error(t, err)

	var domainErr *domainerrors.Error
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, domainerrors.CodeAgentFailure, domainErr.Code)
}

func TestRecommend_ExcessSuggestionsTruncated(t *testing.T) {
	cache := newTestCache(t)
	many := append(defaultSuggestions(), defaultSuggestions()...)
	agent := &fakeAgent{suggestions: many}
	svc := NewRecommendationService(cache, agent, testLogger())

	result, err := svc.Recommend(context.Background(), &domain.User{ID: "user-1"}, RecommendRequest{Query: "lots of books"})
	require.NoError(t, err)
	assert.Len(t, result.Recommendation.Suggestions, maxSuggestions)
}

func TestRecommend_LongDescriptionTruncatedOnRuneBoundary(t *testing.T) {
	cache := newTestCache(t)
	agent := &fakeAgent{suggestions: []domain.BookSuggestion{{
		Title:       "Dune",
		Author:      "Frank Herbert",
		Description: strings.Repeat("é", maxDescriptionRunes+50),
		Reason:      "una épica",
	}}}
	svc := NewRecommendationService(cache, agent, testLogger())

	result, err := svc.Recommend(context.Background(), &domain.User{ID: "user-1"}, RecommendRequest{Query: "ciencia ficción"})
	require.NoError(t, err)

	desc := result.Recommendation.Suggestions[0].Description
	assert.True(t, utf8.ValidString(desc))
	assert.Equal(t, maxDescriptionRunes, utf8.RuneCountInString(desc))
}

func TestHistory_NewestFirstCapped(t *testing.T) {
	cache := newTestCache(t)
	agent := &fakeAgent{suggestions: defaultSuggestions()}
	svc := NewRecommendationService(cache, agent, testLogger())
	user := &domain.User{ID: "user-1"}
	ctx := context.Background()

	base := time.Now().UTC()
	for i := 0; i < historyLimit+5; i++ {
		rec := &domain.Recommendation{
			ID:          domain.QueryFingerprint(string(rune('a' + i))),
			UserID:      user.ID,
			Query:       strings.Repeat("q", i+3),
			Fingerprint: domain.QueryFingerprint(strings.Repeat("q", i+3)),
			Suggestions: defaultSuggestions(),
			CreatedAt:   base.Add(time.Duration(i) * time.Second),
		}
		require.NoError(t, cache.CreateRecommendation(rec))
	}

	history, err := svc.History(ctx, user.ID)
	require.NoError(t, err)

	assert.Len(t, history, historyLimit)
	// Newest first.
	assert.True(t, history[0].CreatedAt.After(history[1].CreatedAt))
}

func TestHistory_EmptyIsNotNil(t *testing.T) {
	cache := newTestCache(t)
	svc := NewRecommendationService(cache, &fakeAgent{}, testLogger())

	history, err := svc.History(context.Background(), "user-unknown")
	require.NoError(t, err)
	assert.NotNil(t, history)
	assert.Empty(t, history)
}

func TestBuildInstructions_IncludesPreferences(t *testing.T) {
	user := &domain.User{
		ID: "user-1",
		Preferences: &domain.BookPreferences{
			Genres: []string{"poetry", "essays"},
			Notes:  "short books only",
		},
	}

	instructions := buildInstructions(user)
	assert.Contains(t, instructions, "expert librarian")
	assert.Contains(t, instructions, "poetry, essays")
	assert.Contains(t, instructions, "short books only")
	assert.Contains(t, instructions, "the request wins")

	// Without preferences, only the persona.
	bare := buildInstructions(&domain.User{ID: "user-2"})
	assert.Equal(t, librarianInstructions, bare)
}
