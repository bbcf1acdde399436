// Package common defines shared constants and sentinel errors used across
// the CloudPool server, engine and client. Callers should use errors.Is /
// errors.As to match these values.
package common

import (
	"errors"
	"fmt"
)

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")
	ErrorConflict = errors.New("already exists")

	// Service-level errors (generic/internal flow control).
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")
	ErrorForbidden    = errors.New("forbidden")
	ErrorValidation   = errors.New("validation error")

	// Auth errors (invalid or malformed token).
	ErrInvalidToken        = errors.New("invalid token")
	ErrTokenExpired        = errors.New("token expired")
	ErrRefreshTokenExpired = errors.New("refresh token expired")

	// Allocation and transport errors.
	ErrNoAccountsLinked           = errors.New("no cloud accounts linked")
	ErrAllocationCapacityExceeded = errors.New("allocation exceeds declared account capacity")
	ErrTransportFailure           = errors.New("transport failure")
	ErrPartsInaccessible          = errors.New("parts stored on unlinked accounts")
	ErrAuthenticationFailed       = errors.New("chunk authentication failed")
	ErrUnknownProvider            = errors.New("unknown provider")
)

// PartsInaccessibleError reports how many parts of a manifest reference
// accounts that are not currently linked. It matches ErrPartsInaccessible.
type PartsInaccessibleError struct {
	Count    int
	Total    int
	Accounts []string
}

func (e *PartsInaccessibleError) Error() string {
	return fmt.Sprintf("%d of %d parts stored on unlinked accounts", e.Count, e.Total)
}

func (e *PartsInaccessibleError) Is(target error) bool {
	return target == ErrPartsInaccessible
}
