// Package common defines shared constants and sentinel errors used across
// the server layers of DriveKeeper. Callers should use errors.Is to
// match these values.
package common

import (
	"errors"
	"fmt"
)

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Access errors. ErrorUnauthenticated wraps ErrorDenied so that callers
	// which only branch on denial also reject anonymous calls.
	ErrorDenied          = errors.New("access denied")
	ErrorUnauthenticated = fmt.Errorf("%w: unauthenticated", ErrorDenied)

	// Service-level errors.
	ErrorInvalidArgument = errors.New("invalid argument")

	// Auth errors (invalid or malformed token).
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")

	// Blob store errors.
	ErrorBlobNotFound = errors.New("blob not found")
	ErrTransient      = errors.New("transient failure")
)
