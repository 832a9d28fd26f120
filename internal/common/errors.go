// Package common defines the shared error taxonomy and datetime helpers used
// across all VaultKey components. Callers match errors with errors.Is against
// the kind sentinels, or inspect the kind directly via errors.As.
package common

import "errors"

// Kind tags a domain error with its taxonomy category.
type Kind string

const (
	KindAuthentication Kind = "authentication"
	KindValidation     Kind = "validation"
	KindNotFound       Kind = "not_found"
	KindCrypto         Kind = "crypto"
	KindDatabase       Kind = "database"

	// Reserved categories, not raised by the current flows.
	KindExpired   Kind = "expired"
	KindDuplicate Kind = "duplicate"
)

// Error is the single domain error type. The Kind carries the taxonomy tag;
// Message is the user-visible text.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// Is reports whether target matches this error. A kind sentinel (empty
// message) matches any error of the same kind, so
// errors.Is(err, common.ErrNotFound) works regardless of the message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Kind != e.Kind {
		return false
	}
	return t.Message == "" || t.Message == e.Message
}

// Kind sentinels for errors.Is matching.
var (
	ErrAuthentication = &Error{Kind: KindAuthentication}
	ErrValidation     = &Error{Kind: KindValidation}
	ErrNotFound       = &Error{Kind: KindNotFound}
	ErrCrypto         = &Error{Kind: KindCrypto}
	ErrDatabase       = &Error{Kind: KindDatabase}
	ErrExpired        = &Error{Kind: KindExpired}
	ErrDuplicate      = &Error{Kind: KindDuplicate}
)

func NewAuthenticationError(message string) error {
	return &Error{Kind: KindAuthentication, Message: message}
}

func NewValidationError(message string) error {
	return &Error{Kind: KindValidation, Message: message}
}

func NewNotFoundError(message string) error {
	return &Error{Kind: KindNotFound, Message: message}
}

func NewCryptoError(message string) error {
	return &Error{Kind: KindCrypto, Message: message}
}

// NewDatabaseError normalizes any storage failure. The underlying cause is
// deliberately discarded so engine internals never leak upward.
func NewDatabaseError(message string) error {
	return &Error{Kind: KindDatabase, Message: message}
}

// ErrorKind returns the taxonomy tag of err, or "" if err is not a domain error.
func ErrorKind(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
