package domain

import "errors"

var (
	// ErrTaskNotFound is returned when a tracking id is unknown to the registry.
	ErrTaskNotFound = errors.New("task not found")

	// ErrInvalidRequest flags a dispatch payload that failed validation.
	ErrInvalidRequest = errors.New("invalid request")
)
