package models

// Passkey device types, mirroring the credential ceremony's backup-eligible flag.
const (
	DeviceTypeSingle = "singleDevice"
	DeviceTypeMulti  = "multiDevice"
)

// Passkey is a registered public-key credential. CredentialID is the
// base64url-encoded credential id; PublicKey is the base64-encoded COSE key.
// Transports is a JSON array string, when the authenticator reported any.
type Passkey struct {
	ID           string
	UserID       string
	CredentialID string
	PublicKey    string
	Counter      uint32
	DeviceType   string
	BackedUp     bool
	Transports   *string
	CreatedAt    string
	LastUsedAt   *string
}
