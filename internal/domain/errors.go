package domain

import "errors"

// Common domain errors used across the application.
var (
	// ErrValidation is returned when a domain entity fails validation.
	// This is often wrapped with a more specific error message.
	ErrValidation = errors.New("validation failed")

	// ErrInvalidID is returned when an ID is malformed or invalid.
	ErrInvalidID = errors.New("invalid ID")

	// ErrEmptyContent is returned when required content is empty.
	ErrEmptyContent = errors.New("content cannot be empty")

	// ErrInvalidProcessingStatus is returned for unknown processing states.
	ErrInvalidProcessingStatus = errors.New("invalid processing status")

	// ErrEmptyCategoryPath is returned when a category path has no segments.
	ErrEmptyCategoryPath = errors.New("category path cannot be empty")

	// ErrInvalidCategoryName is returned for blank or oversized segment names.
	ErrInvalidCategoryName = errors.New("invalid category name")
)
