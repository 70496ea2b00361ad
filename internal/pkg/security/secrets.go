package security

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base32"
	"encoding/hex"
	"fmt"
	"strings"
)

var secretEncoding = base32.StdEncoding.WithPadding(base32.NoPadding)

const secretPrefix = "pfx_"

// GenerateSecret creates an unguessable opaque secret and its SHA-256
// digest. The plaintext goes to the caller exactly once; only the digest
// may be persisted and looked up.
func GenerateSecret() (string, string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", "", err
	}
	encoded := strings.ToLower(secretEncoding.EncodeToString(b))
	secret := secretPrefix + encoded
	if len(secret) < 12 {
		return "", "", fmt.Errorf("secret generation failed: secret too short")
	}
	return secret, HashSecret(secret), nil
}

// HashSecret returns the SHA-256 hex digest for the provided secret.
func HashSecret(raw string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(raw)))
	return hex.EncodeToString(sum[:])
}
