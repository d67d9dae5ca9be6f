package domain

import (
	"crypto/md5" //#nosec G501 -- fingerprint is a cache key, not a security boundary
	"encoding/hex"
	"strings"
	"time"
)

// BookSuggestion is a single agent-produced recommendation.
// All fields are required; the batch they arrive in carries 1-3 of them.
type BookSuggestion struct {
	Title       string `json:"title"`
	Author      string `json:"author"`
	Description string `json:"description"`
	Reason      string `json:"reason"`
}

// Recommendation is a cached agent response for one (user, query) pair.
// Records are immutable once written; a repeated query is served from
// the cache without another agent call.
type Recommendation struct {
	ID          string           `json:"id"`
	UserID      string           `json:"user_id"`
	Query       string           `json:"query"`
	Fingerprint string           `json:"fingerprint"`
	Suggestions []BookSuggestion `json:"suggestions"`
	CreatedAt   time.Time        `json:"created_at"`
}

// QueryFingerprint returns the cache fingerprint for a free-text query:
// the hex MD5 of the lowercased, whitespace-trimmed text. "Dragons!" and
// "  dragons!  " map to the same fingerprint.
func QueryFingerprint(query string) string {
	normalized := strings.ToLower(strings.TrimSpace(query))
	sum := md5.Sum([]byte(normalized)) //#nosec G401 -- cache key only
	return hex.EncodeToString(sum[:])
}
