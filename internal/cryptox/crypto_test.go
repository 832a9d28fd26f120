package cryptox

import (
	"encoding/base64"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vaultkey/vaultkey/internal/common"
)

func testKey(t *testing.T) string {
	t.Helper()
	key, err := GenerateMasterKey()
	require.NoError(t, err)
	return key
}

func TestGenerateMasterKeyFormat(t *testing.T) {
	key := testKey(t)
	assert.Len(t, key, 64)
	assert.NoError(t, common.ValidateMasterKey(key))
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	key := testKey(t)

	for _, plaintext := range []string{
		"v",
		"a longer secret value with spaces",
		`{"json":"payload","n":42}`,
		"unicode — пароль — 秘密",
	} {
		envelope, err := Encrypt(plaintext, key)
		require.NoError(t, err)

		got, err := Decrypt(envelope, key)
		require.NoError(t, err)
		assert.Equal(t, plaintext, got)
	}
}

func TestEnvelopeShape(t *testing.T) {
	key := testKey(t)

	envelope, err := Encrypt("value", key)
	require.NoError(t, err)

	parts := strings.Split(envelope, ":")
	require.Len(t, parts, 3)

	nonce, err := base64.StdEncoding.DecodeString(parts[0])
	require.NoError(t, err)
	assert.Len(t, nonce, 12)

	tag, err := base64.StdEncoding.DecodeString(parts[1])
	require.NoError(t, err)
	assert.Len(t, tag, 16)
}

func TestEncryptUsesFreshNonce(t *testing.T) {
	key := testKey(t)

	a, err := Encrypt("same", key)
	require.NoError(t, err)
	b, err := Encrypt("same", key)
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestDecryptTamperedTagFails(t *testing.T) {
	key := testKey(t)

	envelope, err := Encrypt("value", key)
	require.NoError(t, err)

	parts := strings.Split(envelope, ":")
	tag, err := base64.StdEncoding.DecodeString(parts[1])
	require.NoError(t, err)

	for i := range tag {
		flipped := make([]byte, len(tag))
		copy(flipped, tag)
		flipped[i] ^= 0x01
		parts[1] = base64.StdEncoding.EncodeToString(flipped)

		_, err = Decrypt(strings.Join(parts, ":"), key)
		assert.ErrorIs(t, err, common.ErrCrypto, "tag byte %d", i)
	}
}

func TestDecryptWrongKeyFails(t *testing.T) {
	k1 := testKey(t)
	k2 := testKey(t)
	require.NotEqual(t, k1, k2)

	envelope, err := Encrypt("value", k1)
	require.NoError(t, err)

	_, err = Decrypt(envelope, k2)
	assert.ErrorIs(t, err, common.ErrCrypto)
}

func TestDecryptMalformedEnvelope(t *testing.T) {
	key := testKey(t)

	for _, envelope := range []string{
		"",
		"onlyonepart",
		"two:parts",
		"a:b:c:d",
		"::",
		"AAAA::AAAA",
		"%%%:AAAA:AAAA",
		"AAAA:AAAA:%%%",
	} {
		_, err := Decrypt(envelope, key)
		assert.ErrorIs(t, err, common.ErrCrypto, "envelope %q", envelope)
	}
}

func TestBadMasterKeyRejected(t *testing.T) {
	for _, bad := range []string{"", "abc", strings.Repeat("g", 64), strings.Repeat("ab", 16)} {
		_, err := Encrypt("value", bad)
		assert.ErrorIs(t, err, common.ErrCrypto, "key %q", bad)
	}
}

func TestGenerateTokenUniqueness(t *testing.T) {
	seen := make(map[string]struct{}, 1000)
	for i := 0; i < 1000; i++ {
		token, err := GenerateToken()
		require.NoError(t, err)
		require.Len(t, token, 64)
		_, dup := seen[token]
		require.False(t, dup, "duplicate token after %d generations", i)
		seen[token] = struct{}{}
	}
}

func TestHashTokenDeterministic(t *testing.T) {
	token, err := GenerateToken()
	require.NoError(t, err)

	h1 := HashToken(token)
	h2 := HashToken(token)
	assert.Equal(t, h1, h2)
	assert.Len(t, h1, 64)

	other, err := GenerateToken()
	require.NoError(t, err)
	assert.NotEqual(t, h1, HashToken(other))
}

func TestDeriveMasterKeyStable(t *testing.T) {
	salt := []byte("0123456789abcdef")
	k1 := DeriveMasterKey([]byte("correct horse"), salt)
	k2 := DeriveMasterKey([]byte("correct horse"), salt)
	assert.Equal(t, k1, k2)
	assert.NoError(t, common.ValidateMasterKey(k1))

	k3 := DeriveMasterKey([]byte("wrong horse"), salt)
	assert.NotEqual(t, k1, k3)
}
