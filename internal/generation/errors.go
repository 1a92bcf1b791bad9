package generation

import "errors"

// Common errors returned by the generation package
var (
	// ErrGenerationFailed is returned when image generation fails for any general reason
	ErrGenerationFailed = errors.New("failed to generate image")

	// ErrNoImage is returned when the model answered without an image
	ErrNoImage = errors.New("no image was generated")

	// ErrContentBlocked is returned when the model blocks the request due to safety filters
	ErrContentBlocked = errors.New("content blocked by image model safety filters")

	// ErrInvalidAPIKey is returned when the model provider rejects the API key
	ErrInvalidAPIKey = errors.New("API key is invalid")

	// ErrNetwork is returned when the provider could not be reached
	ErrNetwork = errors.New("network error")

	// ErrInvalidConfig is returned when the generator configuration is invalid
	ErrInvalidConfig = errors.New("invalid generator configuration")
)
