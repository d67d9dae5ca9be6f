package api

import (
	"github.com/shelfscout/shelfscout-server/internal/service"
)

// Services groups all business logic services used by the API server.
// This reduces the parameter count for NewServer and improves testability.
type Services struct {
	Auth           *service.AuthService
	Onboarding     *service.OnboardingService
	Recommendation *service.RecommendationService
	Library        *service.LibraryService
}
