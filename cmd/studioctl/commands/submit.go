package commands

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/alecthomas/kingpin/v2"

	"github.com/phrazzld/studio-api/internal/api"
	"github.com/phrazzld/studio-api/internal/domain"
)

// SubmitCommand sends a generation request.
type SubmitCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	view       string
	prompt     string
	imagePaths []string
	fanOut     bool
	options    map[string]string
	from       string
}

// NewSubmitCommand returns the submit command.
func NewSubmitCommand(rootCmd *RootCommand, app *kingpin.Application) *SubmitCommand {
	c := &SubmitCommand{rootCmd: rootCmd}

	c.Cmd = app.Command("submit", "Submit a generation request.")
	c.Cmd.Flag("view", "Generation mode (create, model, try-on, posture, background, fusion).").StringVar(&c.view)
	c.Cmd.Flag("prompt", "Prompt; modes other than create fill a template when blank.").Short('p').StringVar(&c.prompt)
	c.Cmd.Flag("image", "Input image file (PNG, JPEG or WEBP). Repeat for more images.").Short('i').ExistingFilesVar(&c.imagePaths)
	c.Cmd.Flag("fan-out", "Create a batch of four tasks.").BoolVar(&c.fanOut)
	c.Cmd.Flag("option", "Mode option as KEY=VALUE, e.g. shoes=white sneakers.").StringMapVar(&c.options)
	c.Cmd.Flag("from", "Start from the view, prompt and images of an existing task.").StringVar(&c.from)

	return c
}

func (c SubmitCommand) Name() string { return c.Cmd.FullCommand() }

func (c SubmitCommand) Run(ctx context.Context) error {
	cl, err := c.rootCmd.Client()
	if err != nil {
		return err
	}

	req := api.SubmitTaskRequest{
		View:    c.view,
		Prompt:  c.prompt,
		FanOut:  c.fanOut,
		Options: c.options,
	}

	if c.from != "" {
		seed, err := cl.Seed(ctx, c.from)
		if err != nil {
			return fmt.Errorf("could not load task %s: %w", c.from, err)
		}
		if req.View == "" {
			req.View = string(seed.View)
		}
		if req.Prompt == "" {
			req.Prompt = seed.Prompt
		}
		for _, img := range seed.InputImages {
			req.Images = append(req.Images, string(img))
		}
		c.rootCmd.Logger.Debug("seeded submission", "task_id", c.from, "view", seed.View, "images", len(seed.InputImages))
	}
	if req.View == "" {
		return fmt.Errorf("--view is required unless --from is given")
	}

	for _, path := range c.imagePaths {
		ref, err := loadImage(path)
		if err != nil {
			return err
		}
		req.Images = append(req.Images, string(ref))
	}

	if err := cl.Submit(ctx, req); err != nil {
		return fmt.Errorf("could not submit: %w", err)
	}

	p, err := c.rootCmd.Printer()
	if err != nil {
		return err
	}
	msg := "Submitted 1 task"
	if req.FanOut {
		msg = "Submitted a batch of 4 tasks"
	}
	return p.PrintMessage(msg)
}

// loadImage reads an image file into a data URL, sniffing its type.
func loadImage(path string) (domain.ImageRef, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("could not read image: %w", err)
	}
	ref := domain.NewImageRef(http.DetectContentType(data), data)
	if err := domain.ValidateInputImage(ref); err != nil {
		return "", fmt.Errorf("image %s: %w", path, err)
	}
	return ref, nil
}
