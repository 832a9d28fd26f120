package common

import "regexp"

var (
	keyPattern       = regexp.MustCompile(`^[a-zA-Z0-9_\-./]+$`)
	userIDPattern    = regexp.MustCompile(`^[a-zA-Z0-9_\-.@]+$`)
	hexStringPattern = regexp.MustCompile(`^[a-f0-9]+$`)
)

// ValidateKey checks a secret key name: 1–256 characters, limited to
// alphanumerics, underscores, hyphens, dots and slashes.
func ValidateKey(key string) error {
	if len(key) < 1 {
		return NewValidationError("Key name must be at least 1 character")
	}
	if len(key) > 256 {
		return NewValidationError("Key name must be at most 256 characters")
	}
	if !keyPattern.MatchString(key) {
		return NewValidationError("Key name can only contain alphanumeric characters, underscores, hyphens, dots, and slashes")
	}
	return nil
}

// ValidateUserID checks a user id: 1–256 characters, limited to
// alphanumerics, underscores, hyphens, dots and @.
func ValidateUserID(userID string) error {
	if len(userID) < 1 {
		return NewValidationError("User ID must be at least 1 character")
	}
	if len(userID) > 256 {
		return NewValidationError("User ID must be at most 256 characters")
	}
	if !userIDPattern.MatchString(userID) {
		return NewValidationError("User ID can only contain alphanumeric characters, underscores, hyphens, dots, and @")
	}
	return nil
}

// ValidateToken checks a bearer token: exactly 64 lowercase hex characters.
func ValidateToken(token string) error {
	if len(token) != 64 {
		return NewValidationError("Token must be 64 characters")
	}
	if !hexStringPattern.MatchString(token) {
		return NewValidationError("Token must be a hexadecimal string")
	}
	return nil
}

// ValidateMasterKey checks a master key: exactly 64 lowercase hex characters
// (256 bits).
func ValidateMasterKey(masterKey string) error {
	if len(masterKey) != 64 {
		return NewValidationError("Master key must be 64 characters")
	}
	if !hexStringPattern.MatchString(masterKey) {
		return NewValidationError("Master key must be a hexadecimal string")
	}
	return nil
}
