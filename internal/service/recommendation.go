package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shelfscout/shelfscout-server/internal/domain"
	domainerrors "github.com/shelfscout/shelfscout-server/internal/errors"
	"github.com/shelfscout/shelfscout-server/internal/id"
	"github.com/shelfscout/shelfscout-server/internal/store"
)

// librarianInstructions is the base persona sent with every recommendation request.
const librarianInstructions = "You are an expert librarian with 40 years of experience. " +
	"Your job is to recommend books based on abstract tastes. " +
	"Your recommendations should be masterpieces or hidden gems, avoiding obvious bestsellers. " +
	"The summary should be captivating but accurate."

// historyLimit caps how many past recommendations the history endpoint returns.
const historyLimit = 20

// maxSuggestions is the most books a single recommendation may contain.
const maxSuggestions = 3

// maxDescriptionRunes caps suggestion descriptions. Counted in runes so
// truncation never splits a multi-byte character.
const maxDescriptionRunes = 300

// Agent produces book suggestions from a persona and a prompt.
// Implemented by ai.Client; faked in tests.
type Agent interface {
	Recommend(ctx context.Context, instructions, prompt string) ([]domain.BookSuggestion, error)
}

// RecommendationService turns reader queries into cached book suggestions.
type RecommendationService struct {
	cache  *store.Store
	agent  Agent
	logger *slog.Logger
}

// NewRecommendationService creates a new recommendation service.
func NewRecommendationService(cache *store.Store, agent Agent, logger *slog.Logger) *RecommendationService {
	return &RecommendationService{
		cache:  cache,
		agent:  agent,
		logger: logger,
	}
}

// RecommendRequest contains the reader's free-form query.
type RecommendRequest struct {
	Query string `json:"query" validate:"required,min=3,max=500"`
}

// RecommendResult is a recommendation plus whether it came from the cache.
type RecommendResult struct {
	Recommendation *domain.Recommendation `json:"recommendation"`
	Cached         bool                   `json:"cached"`
}

// Recommend returns book suggestions for a query, serving repeated queries
// from the cache. The fingerprint normalizes case and surrounding whitespace,
// so "Space Opera" and " space opera " hit the same entry.
//
// Preferences captured at onboarding flavor the instructions, but the query
// always outweighs them: a reader who loves mysteries and asks for poetry
// gets poetry.
func (s *RecommendationService) Recommend(ctx context.Context, user *domain.User, req RecommendRequest) (*RecommendResult, error) {
	// The length bounds apply to the trimmed query, so "  a  " is too short.
	req.Query = strings.TrimSpace(req.Query)
	if err := validate.Struct(req); err != nil {
		return nil, formatValidationError(err)
	}

	query := req.Query
	fingerprint := domain.QueryFingerprint(query)

	// Cache lookup first
	if cached, err := s.cache.GetRecommendation(user.ID, fingerprint); err == nil {
		return &RecommendResult{Recommendation: cached, Cached: true}, nil
	} else if !errors.Is(err, domainerrors.ErrNotFound) {
		return nil, fmt.Errorf("cache lookup: %w", err)
	}

	// Cache miss: ask the model
	suggestions, err := s.agent.Recommend(ctx, buildInstructions(user), buildPrompt(query))
	if err != nil {
		if s.logger != nil {
			s.logger.Error("Recommendation agent failed",
				"user_id", user.ID,
				"error", err,
			)
		}
		return nil, domainerrors.AgentFailure("recommendation service is unavailable").WithCause(err)
	}

	suggestions, err = sanitizeSuggestions(suggestions)
	if err != nil {
		return nil, domainerrors.AgentFailure("recommendation service returned an unusable answer").WithCause(err)
	}

	recID, err := id.Generate("rec")
	if err != nil {
		return nil, fmt.Errorf("generate recommendation ID: %w", err)
	}

	rec := &domain.Recommendation{
		ID:          recID,
		UserID:      user.ID,
		Query:       query,
		Fingerprint: fingerprint,
		Suggestions: suggestions,
		CreatedAt:   time.Now().UTC(),
	}

	if err := s.cache.CreateRecommendation(rec); err != nil {
		if errors.Is(err, domainerrors.ErrAlreadyExists) {
			// A concurrent identical query won the race. Serve its result.
			winner, getErr := s.cache.GetRecommendation(user.ID, fingerprint)
			if getErr != nil {
				return nil, fmt.Errorf("load concurrent recommendation: %w", getErr)
			}
			return &RecommendResult{Recommendation: winner, Cached: true}, nil
		}
		return nil, fmt.Errorf("store recommendation: %w", err)
	}

	if s.logger != nil {
		s.logger.Info("Recommendation created",
			"user_id", user.ID,
			"suggestions", len(suggestions),
		)
	}

	return &RecommendResult{Recommendation: rec, Cached: false}, nil
}

// History returns the user's most recent recommendations, newest first.
func (s *RecommendationService) History(ctx context.Context, userID string) ([]*domain.Recommendation, error) {
	recs, err := s.cache.ListRecommendations(userID, historyLimit)
	if err != nil {
		return nil, fmt.Errorf("list recommendations: %w", err)
	}
	if recs == nil {
		recs = []*domain.Recommendation{}
	}
	return recs, nil
}

// buildInstructions extends the librarian persona with the reader's stated tastes.
func buildInstructions(user *domain.User) string {
	if !user.HasPreferences() {
		return librarianInstructions
	}

	var sb strings.Builder
	sb.WriteString(librarianInstructions)
	sb.WriteString("\n\nThe reader's preferred genres: ")
	sb.WriteString(strings.Join(user.Preferences.Genres, ", "))
	sb.WriteString(".")
	if user.Preferences.Notes != "" {
		sb.WriteString(" Additional notes about their taste: ")
		sb.WriteString(user.Preferences.Notes)
		sb.WriteString(".")
	}
	sb.WriteString(" When the current request conflicts with these preferences, the request wins.")
	return sb.String()
}

// buildPrompt wraps the raw query for the model.
func buildPrompt(query string) string {
	return fmt.Sprintf("Recommend books for someone who says: '%s'", query)
}

// sanitizeSuggestions enforces the shape contract on model output:
// 1 to 3 entries, no blank titles or authors, descriptions capped.
func sanitizeSuggestions(suggestions []domain.BookSuggestion) ([]domain.BookSuggestion, error) {
	if len(suggestions) == 0 {
		return nil, errors.New("no suggestions returned")
	}
	if len(suggestions) > maxSuggestions {
		suggestions = suggestions[:maxSuggestions]
	}

	out := make([]domain.BookSuggestion, 0, len(suggestions))
	for _, sug := range suggestions {
		sug.Title = strings.TrimSpace(sug.Title)
		sug.Author = strings.TrimSpace(sug.Author)
		sug.Description = strings.TrimSpace(sug.Description)
		sug.Reason = strings.TrimSpace(sug.Reason)

		if sug.Title == "" || sug.Author == "" {
			return nil, errors.New("suggestion missing title or author")
		}
		if runes := []rune(sug.Description); len(runes) > maxDescriptionRunes {
			sug.Description = string(runes[:maxDescriptionRunes])
		}
		out = append(out, sug)
	}
	return out, nil
}
