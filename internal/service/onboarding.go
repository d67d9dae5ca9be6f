package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/shelfscout/shelfscout-server/internal/domain"
	domainerrors "github.com/shelfscout/shelfscout-server/internal/errors"
	"github.com/shelfscout/shelfscout-server/internal/store"
	"github.com/shelfscout/shelfscout-server/internal/store/sqlite"
)

// genreOptions is the curated list presented during onboarding.
// Users pick from these but free-form entries are accepted too.
var genreOptions = []string{
	"literary fiction",
	"science fiction",
	"fantasy",
	"mystery",
	"thriller",
	"horror",
	"romance",
	"historical fiction",
	"biography",
	"memoir",
	"philosophy",
	"poetry",
	"essays",
	"science",
	"history",
}

// OnboardingService manages the one-time preference capture flow and the
// dashboard summary shown after it.
type OnboardingService struct {
	store  *sqlite.Store
	cache  *store.Store
	logger *slog.Logger
}

// NewOnboardingService creates a new onboarding service.
func NewOnboardingService(store *sqlite.Store, cache *store.Store, logger *slog.Logger) *OnboardingService {
	return &OnboardingService{
		store:  store,
		cache:  cache,
		logger: logger,
	}
}

// CompleteRequest contains the user's stated reading preferences.
type CompleteRequest struct {
	Genres []string `json:"genres" validate:"required,min=1,dive,required,max=100"`
	Notes  string   `json:"notes" validate:"max=500"`
}

// Options returns the curated genre list for the onboarding form.
func (s *OnboardingService) Options() []string {
	return genreOptions
}

// Complete stores the user's preferences. Preferences are write-once:
// completing onboarding twice is a conflict, there is no edit flow.
func (s *OnboardingService) Complete(ctx context.Context, userID string, req CompleteRequest) (*domain.User, error) {
	// Validate request
	if err := validate.Struct(req); err != nil {
		return nil, formatValidationError(err)
	}

	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return nil, domainerrors.NotFound("user not found").WithCause(err)
	}

	if user.HasPreferences() {
		return nil, domainerrors.Conflict("onboarding already completed")
	}

	genres := make([]string, 0, len(req.Genres))
	for _, g := range req.Genres {
		g = strings.TrimSpace(g)
		if g != "" {
			genres = append(genres, g)
		}
	}
	if len(genres) == 0 {
		return nil, domainerrors.Validation("genres must contain at least one non-empty entry")
	}

	user.Preferences = &domain.BookPreferences{
		Genres: genres,
		Notes:  strings.TrimSpace(req.Notes),
	}
	user.Touch()

	if err := s.store.UpdateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("save preferences: %w", err)
	}

	if s.logger != nil {
		s.logger.Info("Onboarding completed",
			"user_id", userID,
			"genres", len(genres),
		)
	}

	return user, nil
}

// DashboardResponse summarizes the user's account for the landing view.
type DashboardResponse struct {
	DisplayName           string                   `json:"display_name"`
	Preferences           *domain.BookPreferences  `json:"preferences"`
	LibraryCount          int                      `json:"library_count"`
	RecentRecommendations []*domain.Recommendation `json:"recent_recommendations"`
}

// Dashboard assembles the post-onboarding landing view.
func (s *OnboardingService) Dashboard(ctx context.Context, userID string) (*DashboardResponse, error) {
	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return nil, domainerrors.NotFound("user not found").WithCause(err)
	}

	count, err := s.store.CountUserBooks(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("count library: %w", err)
	}

	recent, err := s.cache.ListRecommendations(userID, 5)
	if err != nil {
		return nil, fmt.Errorf("list recent recommendations: %w", err)
	}
	if recent == nil {
		recent = []*domain.Recommendation{}
	}

	return &DashboardResponse{
		DisplayName:           user.DisplayName,
		Preferences:           user.Preferences,
		LibraryCount:          count,
		RecentRecommendations: recent,
	}, nil
}
