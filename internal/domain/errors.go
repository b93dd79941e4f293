package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound means the upstream has no matching item. It is an expected
	// outcome, not a fault.
	ErrNotFound = errors.New("not found")

	ErrUnrecognizedURL = errors.New("unrecognized url")

	ErrMalformedDuration = errors.New("malformed duration")

	ErrUpstreamUnavailable = errors.New("upstream unavailable")

	// ErrUpstreamTimeout also matches ErrUpstreamUnavailable.
	ErrUpstreamTimeout = fmt.Errorf("upstream timeout: %w", ErrUpstreamUnavailable)

	// ErrPersistenceConflict is raised when a concurrent writer created the
	// same natural key first. Stores recover from it by re-selecting.
	ErrPersistenceConflict = errors.New("persistence conflict")

	ErrPersistenceFailed = errors.New("persistence failed")
)
