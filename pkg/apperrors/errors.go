package apperrors

import "errors"

var (
	ErrNotFound               = errors.New("not found")
	ErrValidation             = errors.New("validation failed")
	ErrConflict               = errors.New("conflict")
	ErrInvalidTransition      = errors.New("invalid workflow transition")
	ErrMissingRejectionReason = errors.New("rejection requires a reason")
	ErrNoAvailableReviewer    = errors.New("no available reviewer")
	ErrConcurrentModification = errors.New("submission was modified concurrently")
	ErrInvalidScore           = errors.New("confidence score must be between 0 and 1")
)
