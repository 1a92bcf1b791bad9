package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/phrazzld/studio-api/internal/config"
	"github.com/phrazzld/studio-api/internal/domain"
	"github.com/phrazzld/studio-api/internal/generation"
	"google.golang.org/genai"
)

// Request settings for text-to-image calls.
const (
	outputMIMEType = "image/jpeg"
	aspectRatio    = "1:1"
)

// editMIMEType is assumed for inline image parts that carry no MIME type.
const editMIMEType = "image/png"

// imageModels is the part of genai.Models the generator calls.
type imageModels interface {
	GenerateImages(ctx context.Context, model, prompt string, config *genai.GenerateImagesConfig) (*genai.GenerateImagesResponse, error)
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Generator implements generation.Generator on the Gemini API.
type Generator struct {
	models     imageModels
	imageModel string
	editModel  string
	logger     *slog.Logger
}

// NewGenerator creates a Generator with a genai client for the configured
// API key.
func NewGenerator(ctx context.Context, logger *slog.Logger, cfg config.LLMConfig) (*Generator, error) {
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.GeminiAPIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create Gemini client: %v", generation.ErrInvalidConfig, err)
	}

	return newGenerator(client.Models, logger, cfg), nil
}

func newGenerator(models imageModels, logger *slog.Logger, cfg config.LLMConfig) *Generator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Generator{
		models:     models,
		imageModel: cfg.ImageModel,
		editModel:  cfg.EditModel,
		logger:     logger.With("component", "gemini_generator"),
	}
}

func validateConfig(cfg config.LLMConfig) error {
	if cfg.GeminiAPIKey == "" {
		return fmt.Errorf("%w: gemini API key cannot be empty", generation.ErrInvalidConfig)
	}
	if cfg.ImageModel == "" {
		return fmt.Errorf("%w: image model cannot be empty", generation.ErrInvalidConfig)
	}
	if cfg.EditModel == "" {
		return fmt.Errorf("%w: edit model cannot be empty", generation.ErrInvalidConfig)
	}
	return nil
}

// Generate implements generation.Generator.
func (g *Generator) Generate(ctx context.Context, prompt string, images []domain.ImageRef) (domain.ImageRef, error) {
	if len(images) == 0 {
		return g.generateFromText(ctx, prompt)
	}
	return g.generateFromImages(ctx, prompt, images)
}

func (g *Generator) generateFromText(ctx context.Context, prompt string) (domain.ImageRef, error) {
	g.logger.DebugContext(ctx, "calling image model",
		"model", g.imageModel,
		"prompt_length", len(prompt))

	resp, err := g.models.GenerateImages(ctx, g.imageModel, prompt, &genai.GenerateImagesConfig{
		NumberOfImages: 1,
		OutputMIMEType: outputMIMEType,
		AspectRatio:    aspectRatio,
	})
	if err != nil {
		return "", translateError(err)
	}

	if resp == nil || len(resp.GeneratedImages) == 0 {
		return "", &Error{Message: msgNoImages, Kind: generation.ErrNoImage}
	}
	generated := resp.GeneratedImages[0]
	if generated == nil || generated.Image == nil || len(generated.Image.ImageBytes) == 0 {
		if generated != nil && generated.RAIFilteredReason != "" {
			return "", &Error{
				Message: msgContentBlocked,
				Kind:    generation.ErrContentBlocked,
				Cause:   errors.New(generated.RAIFilteredReason),
			}
		}
		return "", &Error{Message: msgNoImages, Kind: generation.ErrNoImage}
	}

	mimeType := generated.Image.MIMEType
	if mimeType == "" {
		mimeType = outputMIMEType
	}
	return domain.NewImageRef(mimeType, generated.Image.ImageBytes), nil
}

func (g *Generator) generateFromImages(ctx context.Context, prompt string, images []domain.ImageRef) (domain.ImageRef, error) {
	parts := make([]*genai.Part, 0, len(images)+1)
	for i, ref := range images {
		mimeType, data, err := domain.ParseImageRef(ref)
		if err != nil {
			return "", fmt.Errorf("image %d: %w", i+1, err)
		}
		parts = append(parts, genai.NewPartFromBytes(data, mimeType))
	}
	parts = append(parts, genai.NewPartFromText(prompt))

	g.logger.DebugContext(ctx, "calling edit model",
		"model", g.editModel,
		"image_count", len(images),
		"prompt_length", len(prompt))

	resp, err := g.models.GenerateContent(ctx, g.editModel,
		[]*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)},
		&genai.GenerateContentConfig{
			ResponseModalities: []string{"IMAGE", "TEXT"},
		})
	if err != nil {
		return "", translateError(err)
	}

	return imageFromContent(resp)
}

// imageFromContent returns the first inline image of the first candidate.
func imageFromContent(resp *genai.GenerateContentResponse) (domain.ImageRef, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0] == nil {
		return "", &Error{Message: msgNoImageInResult, Kind: generation.ErrNoImage}
	}

	candidate := resp.Candidates[0]
	if candidate.Content != nil {
		for _, part := range candidate.Content.Parts {
			if part == nil || part.InlineData == nil || len(part.InlineData.Data) == 0 {
				continue
			}
			mimeType := part.InlineData.MIMEType
			if mimeType == "" {
				mimeType = editMIMEType
			}
			return domain.NewImageRef(mimeType, part.InlineData.Data), nil
		}
	}

	if candidate.FinishReason == genai.FinishReasonSafety {
		return "", &Error{Message: msgContentBlocked, Kind: generation.ErrContentBlocked}
	}

	var text []string
	if candidate.Content != nil {
		for _, part := range candidate.Content.Parts {
			if part != nil && strings.TrimSpace(part.Text) != "" {
				text = append(text, strings.TrimSpace(part.Text))
			}
		}
	}
	if len(text) > 0 {
		return "", &Error{
			Message: msgNoImageInResult,
			Kind:    generation.ErrNoImage,
			Cause:   errors.New(strings.Join(text, " ")),
		}
	}
	return "", &Error{Message: msgNoImageInResult, Kind: generation.ErrNoImage}
}

var _ generation.Generator = (*Generator)(nil)
