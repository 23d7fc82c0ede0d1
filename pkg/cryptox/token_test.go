package cryptox

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGenerateToken(t *testing.T) {
	t.Parallel()

	for _, size := range []int{TokenSize256, TokenSize512, TokenSize768, TokenSize1K} {
		token, err := GenerateToken(size)
		require.NoError(t, err)

		raw, err := base64.RawURLEncoding.DecodeString(token)
		require.NoError(t, err)
		require.Len(t, raw, size)

		other, err := GenerateToken(size)
		require.NoError(t, err)
		require.NotEqual(t, token, other)
	}

	t.Run("rejects non-positive sizes", func(t *testing.T) {
		for _, size := range []int{0, -1} {
			token, err := GenerateToken(size)
			require.Error(t, err)
			require.Empty(t, token)
		}
		require.Panics(t, func() { MustGenerateToken(0) })
	})
}

func TestFingerprintToken(t *testing.T) {
	t.Parallel()

	a := FingerprintToken("token-a")
	require.Equal(t, a, FingerprintToken("token-a"))
	require.NotEqual(t, a, FingerprintToken("token-b"))
	require.Len(t, a, 43)

	require.True(t, EqualFingerprint(a, FingerprintToken("token-a")))
	require.False(t, EqualFingerprint(a, FingerprintToken("token-b")))
}
