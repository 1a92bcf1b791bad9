package domain

import (
	"fmt"
	"strings"
)

// Submission is a request to create generation tasks. FanOut asks for a batch
// of tasks sharing one batch ID instead of a single task.
type Submission struct {
	Prompt      string
	InputImages []ImageRef
	View        View
	FanOut      bool
}

// Validate rejects submissions that must never reach the scheduler: an
// unknown view, a blank prompt without images, or too many images.
func (s Submission) Validate() error {
	if !s.View.Valid() {
		return fmt.Errorf("%w: %w: %q", ErrInvalidSubmission, ErrInvalidView, s.View)
	}
	if strings.TrimSpace(s.Prompt) == "" && len(s.InputImages) == 0 {
		return fmt.Errorf("%w: a prompt or at least one image is required", ErrInvalidSubmission)
	}
	if len(s.InputImages) > MaxInputImages {
		return fmt.Errorf("%w: you can upload a maximum of %d images", ErrInvalidSubmission, MaxInputImages)
	}
	return nil
}
