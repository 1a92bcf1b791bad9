// Package mode describes the generation modes a submission can use. Each mode
// fixes how many input images it takes and which prompt it sends when the
// caller leaves the prompt blank.
package mode

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/phrazzld/studio-api/internal/domain"
)

var (
	// ErrImageCount is returned when a submission has the wrong number of
	// input images for its mode.
	ErrImageCount = errors.New("wrong number of images for mode")

	// ErrUnknownOption is returned for option keys the mode does not accept.
	ErrUnknownOption = errors.New("unknown mode option")

	// ErrUnknownPreset is returned when the create mode is asked for a preset
	// that does not exist.
	ErrUnknownPreset = errors.New("unknown preset")
)

// Option keys accepted by the modes.
const (
	OptionSkinTone             = "skin_tone"
	OptionBodyShape            = "body_shape"
	OptionDetails              = "details"
	OptionShoes                = "shoes"
	OptionBackgroundDerivation = "background_derivation"
	OptionPreset               = "preset"
)

// Options are mode-specific form values, such as the skin tone for the model
// mode or the shoes for try-on.
type Options map[string]string

// Preset is a named prompt offered by the create mode.
type Preset struct {
	Name   string `json:"name"`
	Prompt string `json:"prompt"`
}

// Mode is one way of submitting a generation request.
type Mode struct {
	View        domain.View `json:"view"`
	Title       string      `json:"title"`
	MinImages   int         `json:"min_images"`
	MaxImages   int         `json:"max_images"`
	ImageRoles  []string    `json:"image_roles,omitempty"`
	Options     []string    `json:"options,omitempty"`
	Presets     []Preset    `json:"presets,omitempty"`
	missingHint string

	template func(opts Options) (string, error)
}

var modes = []Mode{
	{
		View:        domain.ViewCreate,
		Title:       "Create",
		MinImages:   0,
		MaxImages:   domain.MaxInputImages,
		Options:     []string{OptionPreset},
		Presets:     createPresets,
		missingHint: "you can upload a maximum of 4 images",
		template:    createTemplate,
	},
	{
		View:        domain.ViewModel,
		Title:       "Model",
		MinImages:   1,
		MaxImages:   domain.MaxInputImages,
		Options:     []string{OptionSkinTone, OptionBodyShape, OptionDetails},
		missingHint: "please upload at least one image",
		template:    modelTemplate,
	},
	{
		View:        domain.ViewTryOn,
		Title:       "Try-On",
		MinImages:   2,
		MaxImages:   2,
		ImageRoles:  []string{"model", "clothing"},
		Options:     []string{OptionShoes},
		missingHint: "please upload both a model and a clothing image",
		template:    tryOnTemplate,
	},
	{
		View:        domain.ViewPosture,
		Title:       "Posture",
		MinImages:   1,
		MaxImages:   1,
		ImageRoles:  []string{"model"},
		Options:     []string{OptionBackgroundDerivation},
		missingHint: "please upload an image",
		template:    postureTemplate,
	},
	{
		View:        domain.ViewBackground,
		Title:       "Background",
		MinImages:   1,
		MaxImages:   1,
		ImageRoles:  []string{"scene"},
		missingHint: "please upload an image",
		template:    fixed(backgroundPrompt),
	},
	{
		View:        domain.ViewFusion,
		Title:       "Fusion",
		MinImages:   2,
		MaxImages:   2,
		ImageRoles:  []string{"model", "background"},
		missingHint: "please upload both a model and a background image",
		template:    fixed(fusionPrompt),
	},
}

var createPresets = []Preset{
	{Name: "figure", Prompt: figurePresetPrompt},
	{Name: "sweater-try-on", Prompt: sweaterPresetPrompt},
}

// All returns every mode in navigation order.
func All() []Mode {
	out := make([]Mode, len(modes))
	copy(out, modes)
	return out
}

// Lookup returns the mode for view.
func Lookup(view domain.View) (Mode, error) {
	for _, m := range modes {
		if m.View == view {
			return m, nil
		}
	}
	return Mode{}, fmt.Errorf("%w: %q", domain.ErrInvalidView, view)
}

// ValidateImages checks the number of input images against the mode.
func (m Mode) ValidateImages(n int) error {
	if n < m.MinImages || n > m.MaxImages {
		return fmt.Errorf("%w: %s mode takes %s, got %d (%s)",
			ErrImageCount, m.View, m.imageRange(), n, m.missingHint)
	}
	return nil
}

// Prompt returns the prompt to store for a submission. A non-blank explicit
// prompt is used as given, so rerunning or reusing a task reproduces it
// exactly. Otherwise the mode's template is filled in from opts.
func (m Mode) Prompt(explicit string, opts Options) (string, error) {
	if err := m.validateOptions(opts); err != nil {
		return "", err
	}
	if strings.TrimSpace(explicit) != "" {
		return explicit, nil
	}
	return m.template(opts)
}

func (m Mode) validateOptions(opts Options) error {
	var unknown []string
	for key := range opts {
		if !m.accepts(key) {
			unknown = append(unknown, key)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return fmt.Errorf("%w for %s mode: %s", ErrUnknownOption, m.View, strings.Join(unknown, ", "))
	}
	return nil
}

func (m Mode) accepts(key string) bool {
	for _, k := range m.Options {
		if k == key {
			return true
		}
	}
	return false
}

func (m Mode) imageRange() string {
	switch {
	case m.MinImages == m.MaxImages && m.MaxImages == 1:
		return "exactly 1 image"
	case m.MinImages == m.MaxImages:
		return fmt.Sprintf("exactly %d images", m.MaxImages)
	default:
		return fmt.Sprintf("%d to %d images", m.MinImages, m.MaxImages)
	}
}

func fixed(prompt string) func(Options) (string, error) {
	return func(Options) (string, error) { return prompt, nil }
}

func createTemplate(opts Options) (string, error) {
	name := strings.TrimSpace(opts[OptionPreset])
	if name == "" {
		return "", nil
	}
	for _, p := range createPresets {
		if p.Name == name {
			return p.Prompt, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownPreset, name)
}

func modelTemplate(opts Options) (string, error) {
	prompt := modelPrompt
	if v := strings.TrimSpace(opts[OptionSkinTone]); v != "" {
		prompt = strings.Replace(prompt, "肤色", "肤色为"+v, 1)
	}
	if v := strings.TrimSpace(opts[OptionBodyShape]); v != "" {
		prompt = strings.Replace(prompt, "身材体型", "身材体型为"+v, 1)
	}
	if v := strings.TrimSpace(opts[OptionDetails]); v != "" {
		prompt = strings.Replace(prompt, "妆容不变。", "妆容不变，并包含以下特征："+v+"。", 1)
	}
	return prompt, nil
}

func tryOnTemplate(opts Options) (string, error) {
	return strings.Replace(tryOnPromptTemplate, "{{shoe_clause}}", strings.TrimSpace(opts[OptionShoes]), 1), nil
}

func postureTemplate(opts Options) (string, error) {
	raw := strings.TrimSpace(opts[OptionBackgroundDerivation])
	if raw == "" {
		return posturePrompt, nil
	}
	derive, err := strconv.ParseBool(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %s must be true or false", domain.ErrInvalidSubmission, OptionBackgroundDerivation)
	}
	if derive {
		return postureBackgroundPrompt, nil
	}
	return posturePrompt, nil
}
