package service

import "errors"

// Common service errors used across service implementations.
// The API layer maps them to HTTP status codes.
var (
	// ErrTaskNotFound indicates that the requested task does not exist.
	// API layer should map this to HTTP 404 Not Found.
	ErrTaskNotFound = errors.New("task not found")
)
