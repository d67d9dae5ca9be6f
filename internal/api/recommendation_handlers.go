package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/shelfscout/shelfscout-server/internal/domain"
	"github.com/shelfscout/shelfscout-server/internal/service"
)

func (s *Server) registerRecommendationRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "createRecommendation",
		Method:      http.MethodPost,
		Path:        "/api/v1/recommendations",
		Summary:     "Recommend books",
		Description: "Asks the librarian agent for book suggestions. Repeated queries are served from the cache.",
		Tags:        []string{"Recommendations"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleCreateRecommendation)

	huma.Register(s.api, huma.Operation{
		OperationID: "getRecommendationHistory",
		Method:      http.MethodGet,
		Path:        "/api/v1/recommendations/history",
		Summary:     "Recommendation history",
		Description: "Returns the user's most recent recommendations, newest first",
		Tags:        []string{"Recommendations"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleGetRecommendationHistory)
}

// === DTOs ===

// RecommendationRequest is the request body for a recommendation query.
type RecommendationRequest struct {
	Query string `json:"query" validate:"required,min=3,max=500" doc:"Free-form description of what to read next"`
}

// RecommendationInput wraps the recommendation request for Huma.
type RecommendationInput struct {
	Body RecommendationRequest
}

// RecommendationResponse contains the suggestions and their cache provenance.
type RecommendationResponse struct {
	Recommendations []domain.BookSuggestion `json:"recommendations" doc:"One to three book suggestions"`
	Cached          bool                    `json:"cached" doc:"True when served from the cache"`
}

// RecommendationOutput wraps the recommendation response for Huma.
// Fresh answers and cache hits both return 200; the cached flag is the
// only visible difference.
type RecommendationOutput struct {
	Body RecommendationResponse
}

// HistoryOutput wraps the recommendation history for Huma.
type HistoryOutput struct {
	Body struct {
		Recommendations []*domain.Recommendation `json:"recommendations" doc:"Past recommendations, newest first"`
	}
}

// === Handlers ===

func (s *Server) handleCreateRecommendation(ctx context.Context, input *RecommendationInput) (*RecommendationOutput, error) {
	user, err := s.RequireUser(ctx)
	if err != nil {
		return nil, err
	}

	result, err := s.services.Recommendation.Recommend(ctx, user, service.RecommendRequest{
		Query: input.Body.Query,
	})
	if err != nil {
		return nil, err
	}

	return &RecommendationOutput{
		Body: RecommendationResponse{
			Recommendations: result.Recommendation.Suggestions,
			Cached:          result.Cached,
		},
	}, nil
}

func (s *Server) handleGetRecommendationHistory(ctx context.Context, _ *struct{}) (*HistoryOutput, error) {
	userID, err := GetUserID(ctx)
	if err != nil {
		return nil, err
	}

	recs, err := s.services.Recommendation.History(ctx, userID)
	if err != nil {
		return nil, err
	}

	out := &HistoryOutput{}
	out.Body.Recommendations = recs
	return out, nil
}
