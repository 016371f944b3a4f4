package cryptox

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"
)

// Token size constants (in bytes before encoding).
const (
	// BearerTokenSize yields a 128 character standard base64 string.
	BearerTokenSize = 96
	// PublicIDSize yields a 24 character identifier.
	PublicIDSize = 18
)

// GenerateToken returns size random bytes encoded with standard base64.
// 96 bytes encode to exactly 128 characters with no padding.
func GenerateToken(size int) (string, error) {
	if size <= 0 {
		return "", fmt.Errorf("token size must be positive, got %d", size)
	}

	buf := make([]byte, size)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate random token: %w", err)
	}

	return base64.StdEncoding.EncodeToString(buf), nil
}

// GeneratePublicID returns an opaque, URL-path-safe 24 character identifier.
func GeneratePublicID() (string, error) {
	id, err := GenerateToken(PublicIDSize)
	if err != nil {
		return "", err
	}
	// '/' would break path routing; '+' is legal in a path segment.
	return strings.ReplaceAll(id, "/", "J"), nil
}

// Fingerprint returns a short digest of secret that changes whenever secret
// does, without revealing it.
func Fingerprint(secret string) string {
	sum := sha256.Sum256([]byte(secret))
	return hex.EncodeToString(sum[:8])
}
