package providers

import (
	"github.com/samber/do/v2"

	"github.com/shelfscout/shelfscout-server/internal/ai"
	"github.com/shelfscout/shelfscout-server/internal/auth"
	"github.com/shelfscout/shelfscout-server/internal/logger"
	"github.com/shelfscout/shelfscout-server/internal/service"
)

// ProvideSessionService provides the session management service.
func ProvideSessionService(i do.Injector) (*service.SessionService, error) {
	dbHandle := do.MustInvoke[*DBHandle](i)
	tokenService := do.MustInvoke[*auth.TokenService](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewSessionService(dbHandle.Store, tokenService, log.Logger), nil
}

// ProvideAuthService provides the authentication service.
func ProvideAuthService(i do.Injector) (*service.AuthService, error) {
	dbHandle := do.MustInvoke[*DBHandle](i)
	tokenService := do.MustInvoke[*auth.TokenService](i)
	sessionService := do.MustInvoke[*service.SessionService](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewAuthService(dbHandle.Store, tokenService, sessionService, log.Logger), nil
}

// ProvideOnboardingService provides the onboarding and dashboard service.
func ProvideOnboardingService(i do.Injector) (*service.OnboardingService, error) {
	dbHandle := do.MustInvoke[*DBHandle](i)
	cacheHandle := do.MustInvoke[*CacheHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewOnboardingService(dbHandle.Store, cacheHandle.Store, log.Logger), nil
}

// ProvideRecommendationService provides the recommendation service.
func ProvideRecommendationService(i do.Injector) (*service.RecommendationService, error) {
	cacheHandle := do.MustInvoke[*CacheHandle](i)
	aiClient := do.MustInvoke[*ai.Client](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewRecommendationService(cacheHandle.Store, aiClient, log.Logger), nil
}

// ProvideLibraryService provides the saved-books library service.
func ProvideLibraryService(i do.Injector) (*service.LibraryService, error) {
	dbHandle := do.MustInvoke[*DBHandle](i)
	searchHandle := do.MustInvoke[*SearchIndexHandle](i)
	aiClient := do.MustInvoke[*ai.Client](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewLibraryService(dbHandle.Store, searchHandle.SearchIndex, aiClient, log.Logger), nil
}
