// Package domain defines the core business entities and errors.
package domain

import "errors"

// Common domain errors used across the application.
var (
	// ErrValidation is returned when a domain entity fails validation.
	// This is often wrapped with a more specific error message.
	ErrValidation = errors.New("validation failed")

	// ErrInvalidSubmission is returned when a generation request is malformed
	// and must not enter the scheduler.
	ErrInvalidSubmission = errors.New("invalid submission")

	// ErrInvalidImage is returned when an image reference is not a supported
	// base64 data URL.
	ErrInvalidImage = errors.New("invalid image")

	// ErrImageTooLarge is returned when a decoded input image exceeds MaxImageBytes.
	ErrImageTooLarge = errors.New("image too large")

	// ErrUnsupportedImageType is returned for input images that are not PNG, JPEG or WEBP.
	ErrUnsupportedImageType = errors.New("unsupported image type")

	// ErrInvalidView is returned when a view tag is not one of the known views.
	ErrInvalidView = errors.New("invalid view")

	// ErrInvalidTaskStatus is returned when a task status is not valid.
	ErrInvalidTaskStatus = errors.New("invalid task status")
)
