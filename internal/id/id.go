// Package id generates the prefixed NanoIDs used as primary keys across
// ShelfScout: "user-...", "sess-...", "book-...", "rec-...", "catalog-...".
package id

import (
	"fmt"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// idLength is the random portion of every ID. 21 URL-safe characters
// carry about as much entropy as a UUID in far fewer bytes.
const idLength = 21

// Generate returns a new ID of the form "prefix-<nanoid>", for example
// "book-V1StGXR8_Z5jdHi6B-myT". The prefix makes IDs self-describing in
// logs and API payloads.
func Generate(prefix string) (string, error) {
	suffix, err := gonanoid.New(idLength)
	if err != nil {
		return "", fmt.Errorf("generate nanoid: %w", err)
	}
	return prefix + "-" + suffix, nil
}

// MustGenerate is Generate for callers that cannot usefully handle an
// entropy failure, such as seeding.
func MustGenerate(prefix string) string {
	id, err := Generate(prefix)
	if err != nil {
		panic(fmt.Sprintf("failed to generate ID: %v", err))
	}
	return id
}
