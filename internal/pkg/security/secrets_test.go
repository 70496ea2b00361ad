package security

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateSecret(t *testing.T) {
	secret, digest, err := GenerateSecret()
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(secret, "pfx_"), "secret should carry the product prefix")
	assert.Equal(t, strings.ToLower(secret), secret, "secret should be lowercase")
	assert.Len(t, digest, 64, "digest should be a SHA-256 hex string")
	assert.Equal(t, HashSecret(secret), digest, "digest must match the plaintext's hash")
}

func TestGenerateSecretUniqueness(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		secret, _, err := GenerateSecret()
		require.NoError(t, err)
		if seen[secret] {
			t.Fatalf("duplicate secret generated: %s", secret)
		}
		seen[secret] = true
	}
}

func TestHashSecretStable(t *testing.T) {
	if HashSecret("pfx_abc") != HashSecret("pfx_abc") {
		t.Fatal("hashing must be deterministic")
	}
	if HashSecret("pfx_abc") == HashSecret("pfx_abd") {
		t.Fatal("different secrets must not collide")
	}
	// Presented secrets may arrive with surrounding whitespace.
	if HashSecret(" pfx_abc ") != HashSecret("pfx_abc") {
		t.Fatal("whitespace should be trimmed before hashing")
	}
}
