package commands

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/alecthomas/kingpin/v2"
)

// DownloadCommand saves the output image of a task.
type DownloadCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	id     string
	output string
	dir    string
}

// NewDownloadCommand returns the download command.
func NewDownloadCommand(rootCmd *RootCommand, app *kingpin.Application) *DownloadCommand {
	c := &DownloadCommand{rootCmd: rootCmd}

	c.Cmd = app.Command("download", "Save the output image of a completed task.")
	c.Cmd.Arg("id", "Task ID.").Required().StringVar(&c.id)
	c.Cmd.Flag("output", "File to write. Defaults to the name suggested by the server.").Short('f').StringVar(&c.output)
	c.Cmd.Flag("dir", "Directory for the default file name.").Default(".").ExistingDirVar(&c.dir)

	return c
}

func (c DownloadCommand) Name() string { return c.Cmd.FullCommand() }

func (c DownloadCommand) Run(ctx context.Context) error {
	cl, err := c.rootCmd.Client()
	if err != nil {
		return err
	}
	img, err := cl.DownloadImage(ctx, c.id)
	if err != nil {
		return fmt.Errorf("could not download image: %w", err)
	}

	path := c.output
	if path == "" {
		name := filepath.Base(img.Filename)
		if name == "." || name == "/" || name == "" {
			name = c.id + ".jpeg"
		}
		path = filepath.Join(c.dir, name)
	}
	if err := os.WriteFile(path, img.Data, 0o644); err != nil {
		return fmt.Errorf("could not write image: %w", err)
	}
	c.rootCmd.Logger.Debug("image saved", "task_id", c.id, "path", path, "bytes", len(img.Data))

	p, err := c.rootCmd.Printer()
	if err != nil {
		return err
	}
	return p.PrintMessage(fmt.Sprintf("Saved %s", path))
}
