package gemini

import (
	"context"
	"errors"
	"net"
	"net/url"
	"strings"

	"github.com/phrazzld/studio-api/internal/generation"
	"google.golang.org/genai"
)

// User-facing messages for translated provider errors.
const (
	msgInvalidAPIKey   = "API key is invalid. Please check it in Settings."
	msgNetwork         = "A network error occurred. Please check your connection and try again."
	msgAPIErrorPrefix  = "Gemini API Error: "
	msgNoImages        = "No images were generated."
	msgNoImageInResult = "No image was generated in the response."
	msgContentBlocked  = "The request was blocked by the image model's safety filters."
)

// Error is a provider failure with a message suitable for display. It matches
// its generation sentinel and its cause with errors.Is.
type Error struct {
	Message string
	Kind    error
	Cause   error
}

func (e *Error) Error() string {
	return e.Message
}

// Unwrap returns the sentinel and the underlying cause.
func (e *Error) Unwrap() []error {
	errs := make([]error, 0, 2)
	if e.Kind != nil {
		errs = append(errs, e.Kind)
	}
	if e.Cause != nil {
		errs = append(errs, e.Cause)
	}
	return errs
}

// translateError converts an error from the genai client into an *Error.
// Context cancellation is passed through untouched.
func translateError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	message := err.Error()
	if apiErr, ok := asAPIError(err); ok && apiErr.Message != "" {
		message = apiErr.Message
	}

	switch {
	case isInvalidAPIKey(message):
		return &Error{Message: msgInvalidAPIKey, Kind: generation.ErrInvalidAPIKey, Cause: err}
	case isNetworkError(err):
		return &Error{Message: msgNetwork, Kind: generation.ErrNetwork, Cause: err}
	}
	return &Error{Message: msgAPIErrorPrefix + message, Kind: generation.ErrGenerationFailed, Cause: err}
}

func asAPIError(err error) (genai.APIError, bool) {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return *apiErrPtr, true
	}
	return genai.APIError{}, false
}

func isInvalidAPIKey(message string) bool {
	return strings.Contains(message, "API key not valid") ||
		strings.Contains(message, "API_KEY_INVALID")
}

func isNetworkError(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var urlErr *url.Error
	return errors.As(err, &urlErr)
}
