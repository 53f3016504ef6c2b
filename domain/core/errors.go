package core

import (
	"errors"
	"fmt"
)

// Domain errors - centralized error definitions
var (
	// Contract violations
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrInvalidGranularity = fmt.Errorf("%w: granularity", ErrInvalidArgument)

	// Data availability
	ErrMissingData      = errors.New("missing aggregate data")
	ErrInsufficientData = errors.New("insufficient data for analysis")
	ErrEntityNotFound   = errors.New("entity not found")
)

// Error constructors with context
func NewInvalidArgumentError(param string, reason string) error {
	return fmt.Errorf("%w: %s %s", ErrInvalidArgument, param, reason)
}

func NewMissingDataError(entity string, what string) error {
	return fmt.Errorf("%w: %s for entity %s", ErrMissingData, what, entity)
}

// Error checking helpers
func IsInvalidArgument(err error) bool {
	return errors.Is(err, ErrInvalidArgument)
}

func IsMissingData(err error) bool {
	return errors.Is(err, ErrMissingData) || errors.Is(err, ErrInsufficientData)
}
