package errors

import (
	"errors"
	"fmt"
)

// Common error types for the connect service
var (
	// Exchange / transport errors
	ErrTransport = errors.New("transport failure")

	// Session errors
	ErrSessionNotFound = errors.New("session not found")
	ErrMissingIdentity = errors.New("session has no user identity")
	ErrWriteRejected   = errors.New("cookie write rejected")

	// Token errors
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
	ErrTokenRevoked = errors.New("token revoked")

	// Storage errors
	ErrPersistence = errors.New("persistence failure")
	ErrNotFound    = errors.New("not found")

	// Ingestion errors
	ErrIngestDisabled = errors.New("ingestion integration disabled")
)

// ProviderExchangeError is returned when the identity provider explicitly
// rejected an authorization code. Code is safe to show to the user.
type ProviderExchangeError struct {
	Code        string
	Description string
}

func (e *ProviderExchangeError) Error() string {
	if e.Description == "" {
		return "provider exchange error: " + e.Code
	}
	return fmt.Sprintf("provider exchange error: %s: %s", e.Code, e.Description)
}

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
