package api

import (
	"net/http"
	"strings"

	"github.com/danielgtaylor/huma/v2"
)

// EnvelopeVersion is the wire version of the response envelope.
// Clients check this field before parsing the rest of the payload.
const EnvelopeVersion = 1

// APIEnvelope wraps every response body in a versioned envelope.
type APIEnvelope struct { //nolint:revive // API prefix is intentional for clarity
	Version int    `json:"v" doc:"Envelope version"`
	Success bool   `json:"success" doc:"Whether the request succeeded"`
	Data    any    `json:"data,omitempty" doc:"Response payload"`
	Error   string `json:"error,omitempty" doc:"Error message when success is false"`
}

// APIErrorEnvelope wraps detailed errors that carry a code and details.
type APIErrorEnvelope struct { //nolint:revive // API prefix is intentional for clarity
	Version int    `json:"v" doc:"Envelope version"`
	Success bool   `json:"success" doc:"Always false"`
	Code    string `json:"code" doc:"Machine-readable error code"`
	Message string `json:"message" doc:"Human-readable error message"`
	Details any    `json:"details,omitempty" doc:"Additional error details"`
}

// EnvelopeTransformer wraps every huma response in the versioned envelope.
// The version field is named exactly "v"; renaming it breaks clients.
func EnvelopeTransformer(_ huma.Context, status string, v any) (any, error) {
	success := len(status) > 0 && (status[0] == '2' || status[0] == '3')

	if apiErr, ok := v.(*APIError); ok {
		if apiErr.Code != "" {
			return APIErrorEnvelope{
				Version: EnvelopeVersion,
				Success: false,
				Code:    apiErr.Code,
				Message: apiErr.Message,
				Details: apiErr.Details,
			}, nil
		}
		return APIEnvelope{
			Version: EnvelopeVersion,
			Success: false,
			Error:   apiErr.Message,
		}, nil
	}

	if err, ok := v.(error); ok {
		return APIEnvelope{
			Version: EnvelopeVersion,
			Success: false,
			Error:   err.Error(),
		}, nil
	}

	return APIEnvelope{
		Version: EnvelopeVersion,
		Success: success,
		Data:    v,
	}, nil
}

// gatedPrefixes are the routes that require completed onboarding.
var gatedPrefixes = []string{
	"/api/v1/dashboard",
	"/api/v1/recommendations",
	"/api/v1/my-library",
}

const (
	onboardingPath = "/api/v1/onboarding"
	dashboardPath  = "/api/v1/dashboard"
)

// onboardingGate redirects authenticated users to the step they should be on:
// users without preferences are sent to onboarding, users who already
// completed it are bounced from the onboarding form back to the dashboard.
//
// A POST to the onboarding endpoint always passes through, so a double
// completion surfaces as a 409 from the service instead of a redirect.
func (s *Server) onboardingGate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, ok := r.Context().Value(userIDKey).(string)
		if !ok || userID == "" {
			next.ServeHTTP(w, r)
			return
		}

		path := r.URL.Path
		gated := false
		for _, prefix := range gatedPrefixes {
			if strings.HasPrefix(path, prefix) {
				gated = true
				break
			}
		}
		onOnboarding := strings.HasPrefix(path, onboardingPath)
		if !gated && !onOnboarding {
			next.ServeHTTP(w, r)
			return
		}

		user, err := s.services.Auth.GetUser(r.Context(), userID)
		if err != nil {
			next.ServeHTTP(w, r)
			return
		}

		if gated && !user.HasPreferences() {
			w.Header().Set("Location", onboardingPath)
			w.WriteHeader(http.StatusSeeOther)
			return
		}

		if onOnboarding && user.HasPreferences() && r.Method == http.MethodGet {
			w.Header().Set("Location", dashboardPath)
			w.WriteHeader(http.StatusSeeOther)
			return
		}

		next.ServeHTTP(w, r)
	})
}
