// Package cryptox implements the authenticated-encryption envelope protecting
// secret values, plus bearer-token generation and one-way hashing.
//
// The envelope is self-describing: base64(nonce):base64(tag):base64(ciphertext),
// joined by ASCII colons, so no side-channel metadata needs separate storage.
package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"strings"

	"github.com/vaultkey/vaultkey/internal/common"
	"golang.org/x/crypto/argon2"
)

const (
	masterKeySize = 32 // AES-256
	nonceSize     = 12
	tokenSize     = 32
)

const envelopeSeparator = ":"

// deriveKey decodes the hex master key into raw AES-256 key material.
func deriveKey(masterKeyHex string) ([]byte, error) {
	key, err := hex.DecodeString(masterKeyHex)
	if err != nil || len(key) != masterKeySize {
		return nil, common.NewCryptoError("Invalid master key: expected 64 hexadecimal characters")
	}
	return key, nil
}

// GenerateMasterKey returns a fresh 256-bit master key as a 64-character
// lowercase hex string.
func GenerateMasterKey() (string, error) {
	b := make([]byte, masterKeySize)
	if _, err := rand.Read(b); err != nil {
		return "", common.NewCryptoError("Failed to generate master key")
	}
	return hex.EncodeToString(b), nil
}

// Encrypt seals plaintext with AES-256-GCM under the given master key and a
// fresh random nonce, returning the three-part envelope string.
func Encrypt(plaintext, masterKeyHex string) (string, error) {
	key, err := deriveKey(masterKeyHex)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, nonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return "", common.NewCryptoError("Encryption failed: could not generate nonce")
	}

	aesgcm, err := newGCM(key)
	if err != nil {
		return "", err
	}

	sealed := aesgcm.Seal(nil, nonce, []byte(plaintext), nil)

	// Seal appends the tag to the ciphertext; the envelope keeps them apart.
	tagStart := len(sealed) - aesgcm.Overhead()
	ciphertext, tag := sealed[:tagStart], sealed[tagStart:]

	parts := []string{
		base64.StdEncoding.EncodeToString(nonce),
		base64.StdEncoding.EncodeToString(tag),
		base64.StdEncoding.EncodeToString(ciphertext),
	}
	return strings.Join(parts, envelopeSeparator), nil
}

// Decrypt opens an envelope produced by Encrypt. It fails with a crypto error
// when the envelope does not split into exactly three non-empty components,
// when any component is not valid base64, or when the authentication tag does
// not verify (tampered data or wrong key).
func Decrypt(envelope, masterKeyHex string) (string, error) {
	parts := strings.Split(envelope, envelopeSeparator)
	if len(parts) != 3 || parts[0] == "" || parts[1] == "" || parts[2] == "" {
		return "", common.NewCryptoError("Invalid encrypted value format")
	}

	nonce, err := base64.StdEncoding.DecodeString(parts[0])
	if err != nil || len(nonce) != nonceSize {
		return "", common.NewCryptoError("Invalid encrypted value format")
	}
	tag, err := base64.StdEncoding.DecodeString(parts[1])
	if err != nil {
		return "", common.NewCryptoError("Invalid encrypted value format")
	}
	ciphertext, err := base64.StdEncoding.DecodeString(parts[2])
	if err != nil {
		return "", common.NewCryptoError("Invalid encrypted value format")
	}

	key, err := deriveKey(masterKeyHex)
	if err != nil {
		return "", err
	}

	aesgcm, err := newGCM(key)
	if err != nil {
		return "", err
	}

	plaintext, err := aesgcm.Open(nil, nonce, append(ciphertext, tag...), nil)
	if err != nil {
		return "", common.NewCryptoError("Decryption failed: authentication tag mismatch")
	}
	return string(plaintext), nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, common.NewCryptoError("Encryption failed: " + err.Error())
	}
	aesgcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, common.NewCryptoError("Encryption failed: " + err.Error())
	}
	return aesgcm, nil
}

// GenerateToken returns a fresh bearer token: 256 bits of entropy as a
// 64-character lowercase hex string. The caller sees this value exactly once;
// only its hash is ever persisted.
func GenerateToken() (string, error) {
	b := make([]byte, tokenSize)
	if _, err := rand.Read(b); err != nil {
		return "", common.NewCryptoError("Failed to generate token")
	}
	return hex.EncodeToString(b), nil
}

// HashToken returns the SHA-256 digest of a bearer token as lowercase hex.
// This is the storage key for the tokens table.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// DeriveMasterKey stretches a passphrase into 256-bit key material with
// argon2id. Used by the CLI when the operator prefers a memorable passphrase
// over a random key file.
func DeriveMasterKey(passphrase, salt []byte) string {
	key := argon2.IDKey(passphrase, salt, 1, 64*1024, 4, masterKeySize)
	return hex.EncodeToString(key)
}
