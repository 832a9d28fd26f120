package models

// Secret is a stored secret row, addressed by the (UserID, Key) composite
// identity. EncryptedValue holds the raw bytes of the authenticated-encryption
// envelope string.
type Secret struct {
	UserID         string
	Key            string
	EncryptedValue []byte
	CreatedAt      string
	UpdatedAt      string
	CreatedBy      string
	UpdatedBy      *string
	LastAccessedAt *string
	ExpiresAt      *string
	Metadata       *string
}
