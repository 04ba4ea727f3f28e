package cryptox

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGenerateKey(t *testing.T) {
	key, err := GenerateKey(KeySize256)
	require.NoError(t, err)
	require.Len(t, key, KeySize256)

	other, err := GenerateKey(KeySize256)
	require.NoError(t, err)
	require.NotEqual(t, key, other, "keys should be unique")
}

func TestGenerateKey_InvalidSize(t *testing.T) {
	for _, size := range []int{0, -1} {
		key, err := GenerateKey(size)
		require.Error(t, err)
		require.Nil(t, key)
	}
}

func TestFingerprintToken(t *testing.T) {
	fp1a := FingerprintToken("credential-1")
	fp1b := FingerprintToken("credential-1")
	fp2 := FingerprintToken("credential-2")

	require.Equal(t, fp1a, fp1b, "fingerprint should be deterministic")
	require.NotEqual(t, fp1a, fp2, "different inputs should have different fingerprints")
	require.Len(t, fp1a, 43, "SHA-256 base64url should be 43 chars")
}
