package cryptox

import (
	"crypto/elliptic"
	"crypto/x509"
	"encoding/hex"
	"encoding/pem"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGenerateToken(t *testing.T) {
	t.Parallel()

	a, err := GenerateToken(TokenSize256)
	require.NoError(t, err)
	b, err := GenerateToken(TokenSize256)
	require.NoError(t, err)

	require.Len(t, a, 43)
	require.NotEqual(t, a, b)

	_, err = GenerateToken(0)
	require.Error(t, err)
}

func TestGenerateHexToken(t *testing.T) {
	t.Parallel()

	tok, err := GenerateHexToken(TokenSize128)
	require.NoError(t, err)
	require.Len(t, tok, 32)

	raw, err := hex.DecodeString(tok)
	require.NoError(t, err)
	require.Len(t, raw, TokenSize128)

	_, err = GenerateHexToken(-1)
	require.Error(t, err)
}

func TestFingerprintToken(t *testing.T) {
	t.Parallel()

	require.Equal(t, FingerprintToken("abc"), FingerprintToken("abc"))
	require.NotEqual(t, FingerprintToken("abc"), FingerprintToken("abd"))
	require.Len(t, FingerprintToken("abc"), 43)
}

func TestHalfHash(t *testing.T) {
	t.Parallel()

	// 16 bytes of digest, base64url without padding.
	require.Len(t, HalfHash("access-token"), 22)
	require.NotEqual(t, HalfHash("a"), HalfHash("b"))
}

func TestGenerateKeys(t *testing.T) {
	t.Parallel()

	t.Run("rsa", func(t *testing.T) {
		pemBytes, err := GenerateRSAKey(2048)
		require.NoError(t, err)
		block, _ := pem.Decode(pemBytes)
		require.NotNil(t, block)
		require.Equal(t, "RSA PRIVATE KEY", block.Type)
		_, err = x509.ParsePKCS1PrivateKey(block.Bytes)
		require.NoError(t, err)
	})

	t.Run("rsa too small", func(t *testing.T) {
		_, err := GenerateRSAKey(1024)
		require.Error(t, err)
	})

	t.Run("ec p-384", func(t *testing.T) {
		pemBytes, err := GenerateECKey(elliptic.P384())
		require.NoError(t, err)
		block, _ := pem.Decode(pemBytes)
		require.NotNil(t, block)
		require.Equal(t, "PRIVATE KEY", block.Type)
		_, err = x509.ParsePKCS8PrivateKey(block.Bytes)
		require.NoError(t, err)
	})
}

func TestHasher(t *testing.T) {
	t.Parallel()

	h := NewHasher("pepper")
	encoded, err := h.Hash("s3cret")
	require.NoError(t, err)
	require.Contains(t, encoded, "$argon2id$v=19$")

	require.NoError(t, h.Verify("s3cret", encoded))
	require.ErrorIs(t, h.Verify("wrong", encoded), ErrSecretMismatch)

	// A different pepper must not verify.
	require.ErrorIs(t, NewHasher("other").Verify("s3cret", encoded), ErrSecretMismatch)

	require.Error(t, h.Verify("s3cret", "not-a-hash"))
	require.Error(t, h.Verify("s3cret", "$bcrypt$v=19$m=1,t=1,p=1$AA$AA"))
}

func TestLoadPepper(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "nested", "pepper")

	first, err := LoadPepper(path)
	require.NoError(t, err)
	require.NotEmpty(t, first)

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0600), info.Mode().Perm())

	second, err := LoadPepper(path)
	require.NoError(t, err)
	require.Equal(t, first, second)
}
