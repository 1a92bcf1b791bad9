package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/phrazzld/studio-api/internal/domain"
	"github.com/phrazzld/studio-api/internal/mode"
	"github.com/phrazzld/studio-api/internal/service"
	"github.com/phrazzld/studio-api/internal/task"
)

// MapErrorToStatusCode maps internal errors to HTTP status codes without
// leaking internal error types to clients.
func MapErrorToStatusCode(err error) int {
	switch {
	case errors.Is(err, service.ErrTaskNotFound),
		errors.Is(err, task.ErrTaskNotFound),
		errors.Is(err, ErrNoOutputImage):
		return http.StatusNotFound

	case errors.Is(err, task.ErrDuplicateTask):
		return http.StatusConflict

	case errors.Is(err, domain.ErrInvalidSubmission),
		errors.Is(err, domain.ErrInvalidView),
		errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest

	case errors.Is(err, task.ErrSchedulerStopped):
		return http.StatusServiceUnavailable

	default:
		return http.StatusInternalServerError
	}
}

// GetSafeErrorMessage returns a user-facing message for err. Validation
// failures keep their detail, which never contains more than the client sent.
func GetSafeErrorMessage(err error) string {
	if err == nil {
		return "An unexpected error occurred"
	}

	var validationErrs validator.ValidationErrors
	switch {
	case errors.Is(err, service.ErrTaskNotFound), errors.Is(err, task.ErrTaskNotFound):
		return "Task not found"
	case errors.Is(err, ErrNoOutputImage):
		return "Task has no output image"
	case errors.As(err, &validationErrs):
		return SanitizeValidationError(validationErrs)
	case errors.Is(err, domain.ErrImageTooLarge):
		return "Image is too large. Max size is 4MB."
	case errors.Is(err, domain.ErrUnsupportedImageType):
		return "Unsupported file type. Please upload PNG, JPG, or WEBP."
	case errors.Is(err, domain.ErrInvalidImage):
		return "Invalid image data URL format."
	case errors.Is(err, mode.ErrImageCount),
		errors.Is(err, mode.ErrUnknownOption),
		errors.Is(err, mode.ErrUnknownPreset):
		return submissionDetail(err)
	case errors.Is(err, domain.ErrInvalidView):
		return "Unknown view"
	case errors.Is(err, domain.ErrInvalidSubmission):
		return submissionDetail(err)
	case errors.Is(err, task.ErrSchedulerStopped):
		return "The server is shutting down"
	default:
		return "An unexpected error occurred"
	}
}

// submissionDetail strips the sentinel prefix from a submission error.
func submissionDetail(err error) string {
	msg := strings.TrimPrefix(err.Error(), domain.ErrInvalidSubmission.Error()+": ")
	if msg == "" {
		return "Invalid submission"
	}
	return msg
}

// SanitizeValidationError turns validator errors into a short message naming
// the first failing field.
func SanitizeValidationError(errs validator.ValidationErrors) string {
	if len(errs) == 0 {
		return "Validation error"
	}
	fe := errs[0]
	return fmt.Sprintf("Invalid %s: %s", strings.ToLower(fe.Field()), validationTagMessage(fe.Tag()))
}

func validationTagMessage(tag string) string {
	switch tag {
	case "required":
		return "required field"
	case "min":
		return "too short"
	case "max":
		return "too long"
	case "oneof":
		return "invalid value"
	default:
		return "validation failed"
	}
}
