package common

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorKindMatching(t *testing.T) {
	err := NewNotFoundError("Secret not found: api-key")

	assert.True(t, errors.Is(err, ErrNotFound))
	assert.False(t, errors.Is(err, ErrAuthentication))
	assert.False(t, errors.Is(err, ErrDatabase))
	assert.Equal(t, "Secret not found: api-key", err.Error())
}

func TestErrorKindMatchingWrapped(t *testing.T) {
	err := fmt.Errorf("facade: %w", NewAuthenticationError("Invalid token"))

	assert.True(t, errors.Is(err, ErrAuthentication))
	assert.Equal(t, KindAuthentication, ErrorKind(err))
}

func TestErrorExactMessageMatching(t *testing.T) {
	err := NewCryptoError("Invalid encrypted value format")

	assert.True(t, errors.Is(err, &Error{Kind: KindCrypto, Message: "Invalid encrypted value format"}))
	assert.False(t, errors.Is(err, &Error{Kind: KindCrypto, Message: "Decryption failed"}))
}

func TestErrorKindOfForeignError(t *testing.T) {
	assert.Equal(t, Kind(""), ErrorKind(errors.New("plain")))
	assert.False(t, errors.Is(errors.New("plain"), ErrDatabase))
}

func TestReservedKinds(t *testing.T) {
	assert.True(t, errors.Is(&Error{Kind: KindExpired, Message: "x"}, ErrExpired))
	assert.True(t, errors.Is(&Error{Kind: KindDuplicate, Message: "x"}, ErrDuplicate))
}

func TestFormatParseRoundTrip(t *testing.T) {
	now := time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)
	s := FormatTime(now)
	assert.Equal(t, "2025-03-14 09:26:53", s)

	parsed, err := ParseTime(s)
	require.NoError(t, err)
	assert.True(t, parsed.Equal(now))
}

func TestParseTimeISO(t *testing.T) {
	parsed, err := ParseTime("2025-03-14T09:26:53Z")
	require.NoError(t, err)
	assert.Equal(t, 2025, parsed.Year())

	parsed, err = ParseTime("2025-03-14T09:26:53.123Z")
	require.NoError(t, err)
	assert.Equal(t, 14, parsed.Day())

	_, err = ParseTime("not a timestamp")
	assert.Error(t, err)
}

func TestValidators(t *testing.T) {
	require.NoError(t, ValidateKey("db/prod.password-1"))
	assert.True(t, errors.Is(ValidateKey(""), ErrValidation))
	assert.True(t, errors.Is(ValidateKey("no spaces"), ErrValidation))

	require.NoError(t, ValidateUserID("alice@example.com"))
	assert.True(t, errors.Is(ValidateUserID("bad/slash"), ErrValidation))

	require.NoError(t, ValidateMasterKey("0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef"))
	assert.True(t, errors.Is(ValidateMasterKey("short"), ErrValidation))
	assert.True(t, errors.Is(ValidateMasterKey("ZZ23456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef"), ErrValidation))

	require.NoError(t, ValidateToken("0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef"))
	assert.True(t, errors.Is(ValidateToken("abc"), ErrValidation))
}
