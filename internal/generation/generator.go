package generation

import (
	"context"

	"github.com/phrazzld/studio-api/internal/domain"
)

// Generator produces one image from a prompt and optional input images.
// With no images it is a text-to-image call; with images it is an
// image(+text)-to-image call. Both are the same operation to the scheduler.
type Generator interface {
	// Generate returns the produced image or an error describing the failure.
	Generate(ctx context.Context, prompt string, images []domain.ImageRef) (domain.ImageRef, error)
}

// GeneratorFunc adapts an ordinary function to the Generator interface.
type GeneratorFunc func(ctx context.Context, prompt string, images []domain.ImageRef) (domain.ImageRef, error)

// Generate calls f(ctx, prompt, images).
func (f GeneratorFunc) Generate(ctx context.Context, prompt string, images []domain.ImageRef) (domain.ImageRef, error) {
	return f(ctx, prompt, images)
}
