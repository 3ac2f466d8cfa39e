package cnst

import "errors"

var (
	// ErrNotFound is returned when a tenant lookup matches nothing
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned on duplicate username or secret path
	ErrConflict = errors.New("already exists")
	// ErrInvalidInterval is returned when a sync interval is not a positive number of hours
	ErrInvalidInterval = errors.New("invalid sync interval")
	// ErrUpstreamUnavailable is returned when the upstream engine cannot be reached
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
	// ErrInvalidConfigDocument is returned when a tenant config document is not valid JSON
	ErrInvalidConfigDocument = errors.New("invalid config document")
)
