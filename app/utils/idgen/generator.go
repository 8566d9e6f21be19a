package idgen

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// NewTabID generates the process-lifetime tab identifier used for self-echo
// suppression on the sync bus. It is not an authorization token.
func NewTabID() string {
	return fmt.Sprintf("tab_%s", uuid.NewString())
}

// GenerateSecureID generates a cryptographically secure ID with the given prefix and length
// This is a pure utility function that only handles the crypto and formatting logic
func GenerateSecureID(prefix string, length int) (string, error) {
	// The byte length required is about 3/4 of the desired string length.
	// We add 2 to be safe and avoid rounding issues or insufficient bytes.
	byteLength := (length * 3 / 4) + 2
	bytes := make([]byte, byteLength)
	_, err := rand.Read(bytes)
	if err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}

	// Encode to base64 URL-safe format
	encoded := base64.URLEncoding.EncodeToString(bytes)
	encoded = strings.TrimRight(encoded, "=") // Remove padding

	// Truncate to desired length
	if len(encoded) > length {
		encoded = encoded[:length]
	}

	return fmt.Sprintf("%s_%s", prefix, encoded), nil
}

// MustGenerateSecureID is GenerateSecureID for callers that treat entropy
// exhaustion as unrecoverable (subscription handles, history record ids).
func MustGenerateSecureID(prefix string, length int) string {
	id, err := GenerateSecureID(prefix, length)
	if err != nil {
		panic(err)
	}
	return id
}
