// Package common defines shared constants and sentinel errors used across
// the fieldsync client, its remote collaborators and the record server.
// Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")

	// Remote collaborator errors.
	ErrUnavailable   = errors.New("remote unavailable")
	ErrUnauthorized  = errors.New("unauthorized")
	ErrUnknownEntity = errors.New("unknown entity")
	ErrMissingID     = errors.New("record id missing from change data")

	// Sync engine errors.
	ErrOffline            = errors.New("offline")
	ErrSyncInProgress     = errors.New("sync already in progress")
	ErrRetryExhausted     = errors.New("retry limit reached")
	ErrConfirmationNeeded = errors.New("explicit confirmation required")

	// Auth errors (invalid or malformed token).
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)
