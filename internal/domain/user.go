package domain

import "time"

// BookPreferences captures a user's reading tastes from onboarding.
// A nil pointer on User means the user has not completed onboarding yet.
type BookPreferences struct {
	// Genres the user enjoys. Always at least one entry once set.
	Genres []string `json:"genres"`
	// Notes is optional free text about tastes ("slow burns, unreliable narrators").
	Notes string `json:"notes,omitempty"`
}

// User represents an authenticated user account in the system.
type User struct {
	ID           string           `json:"id"`
	Email        string           `json:"email"`
	PasswordHash string           `json:"password_hash,omitempty"` // Stored hashed, filter from API responses
	DisplayName  string           `json:"display_name"`
	Preferences  *BookPreferences `json:"book_preferences,omitempty"`
	CreatedAt    time.Time        `json:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at"`
	LastLoginAt  time.Time        `json:"last_login_at"`
}

// HasPreferences returns true once the user has completed onboarding.
// Preferences are set exactly once; there is no API path back to the
// unset state.
func (u *User) HasPreferences() bool {
	return u.Preferences != nil
}

// InitTimestamps sets creation and update timestamps for a new user.
func (u *User) InitTimestamps() {
	now := time.Now()
	u.CreatedAt = now
	u.UpdatedAt = now
}

// Touch updates the user's update timestamp.
func (u *User) Touch() {
	u.UpdatedAt = time.Now()
}

// Session represents an active user session with refresh token.
// Each device gets its own session.
type Session struct {
	ID               string    `json:"id"`
	UserID           string    `json:"user_id"`
	RefreshTokenHash string    `json:"refresh_token_hash,omitempty"` // Stored hashed, filter from API responses
	ExpiresAt        time.Time `json:"expires_at"`
	CreatedAt        time.Time `json:"created_at"`
	LastSeenAt       time.Time `json:"last_seen_at"`
	IPAddress        string    `json:"ip_address,omitempty"`
	UserAgent        string    `json:"user_agent,omitempty"`
}

// Touch updates the session's last seen timestamp.
func (s *Session) Touch() {
	s.LastSeenAt = time.Now()
}

// IsExpired checks if the session has passed its expiration time.
func (s *Session) IsExpired() bool {
	return time.Now().After(s.ExpiresAt)
}
