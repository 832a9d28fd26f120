package models

// Token is a stored bearer-token row. Only the SHA-256 hash of the bearer
// value is persisted; the plaintext never reaches storage.
type Token struct {
	TokenHash  string
	UserID     string
	ExpiresAt  string
	CreatedAt  string
	IsRevoked  bool
	RevokedAt  *string
	LastUsedAt *string
}
