package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/shelfscout/shelfscout-server/internal/service"
)

func (s *Server) registerOnboardingRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "getOnboardingOptions",
		Method:      http.MethodGet,
		Path:        "/api/v1/onboarding",
		Summary:     "Onboarding options",
		Description: "Returns the curated genre list for the onboarding form",
		Tags:        []string{"Onboarding"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleGetOnboardingOptions)

	huma.Register(s.api, huma.Operation{
		OperationID: "completeOnboarding",
		Method:      http.MethodPost,
		Path:        "/api/v1/onboarding",
		Summary:     "Complete onboarding",
		Description: "Stores the user's reading preferences. Can only be done once.",
		Tags:        []string{"Onboarding"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleCompleteOnboarding)
}

// === DTOs ===

// OnboardingOptionsResponse lists the selectable genres.
type OnboardingOptionsResponse struct {
	Genres []string `json:"genres" doc:"Curated genre options"`
}

// OnboardingOptionsOutput wraps the options response for Huma.
type OnboardingOptionsOutput struct {
	Body OnboardingOptionsResponse
}

// CompleteOnboardingRequest is the request body for completing onboarding.
type CompleteOnboardingRequest struct {
	Genres []string `json:"genres" validate:"required,min=1,dive,required,max=100" doc:"Preferred genres, at least one"`
	Notes  string   `json:"notes,omitempty" validate:"max=500" doc:"Optional free text about tastes"`
}

// CompleteOnboardingInput wraps the completion request for Huma.
type CompleteOnboardingInput struct {
	Body CompleteOnboardingRequest
}

// CompleteOnboardingOutput redirects to the dashboard once preferences are stored.
// The user is included in the body for clients that don't follow redirects.
type CompleteOnboardingOutput struct {
	Status   int
	Location string `header:"Location"`
	Body     UserResponse
}

// === Handlers ===

func (s *Server) handleGetOnboardingOptions(ctx context.Context, _ *struct{}) (*OnboardingOptionsOutput, error) {
	if _, err := GetUserID(ctx); err != nil {
		return nil, err
	}

	return &OnboardingOptionsOutput{
		Body: OnboardingOptionsResponse{Genres: s.services.Onboarding.Options()},
	}, nil
}

func (s *Server) handleCompleteOnboarding(ctx context.Context, input *CompleteOnboardingInput) (*CompleteOnboardingOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	user, err := s.services.Onboarding.Complete(ctx, userID, service.CompleteRequest{
		Genres: input.Body.Genres,
		Notes:  input.Body.Notes,
	})
	if err != nil {
		return nil, err
	}

	return &CompleteOnboardingOutput{
		Status:   http.StatusSeeOther,
		Location: dashboardPath,
		Body:     mapUserResponse(user),
	}, nil
}
