package types

import "errors"

// Domain errors for type validation
var (
	ErrEmptyPath       = errors.New("path cannot be empty")
	ErrInvalidLines    = errors.New("start line must be positive and not after end line")
	ErrInvalidEdgeType = errors.New("invalid dependency edge type")
	ErrInvalidScore    = errors.New("confidence must be between 0 and 1")
)
