package repository

import "errors"

// Sentinel kinds for repository errors.
var (
	ErrNotFound       = errors.New("not found")
	ErrNotConfigured  = errors.New("storage is not configured")
	ErrUnknownDriver  = errors.New("unknown store driver")
	ErrInvalidPeriods = errors.New("invalid labeled periods")
)
