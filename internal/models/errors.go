package models

import (
	"errors"
	"fmt"
)

// ErrInvalidArgument classifies caller mistakes such as a negative day
// count or an empty station list.
var ErrInvalidArgument = errors.New("invalid argument")

// ValidationError represents a rejected input value
type ValidationError struct {
	Field   string
	Value   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Unwrap lets errors.Is match ErrInvalidArgument
func (e *ValidationError) Unwrap() error {
	return ErrInvalidArgument
}

// IsTransient returns false as validation errors are permanent
func (e *ValidationError) IsTransient() bool {
	return false
}

// NotFoundError represents a resource not found error
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

func (e *NotFoundError) IsTransient() bool {
	return false
}
