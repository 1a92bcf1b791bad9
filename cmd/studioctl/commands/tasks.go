package commands

import (
	"context"
	"fmt"

	"github.com/alecthomas/kingpin/v2"
)

// ListCommand lists tasks.
type ListCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	view string
}

// NewListCommand returns the list command.
func NewListCommand(rootCmd *RootCommand, app *kingpin.Application) *ListCommand {
	c := &ListCommand{rootCmd: rootCmd}

	c.Cmd = app.Command("list", "List tasks, newest first.")
	c.Cmd.Flag("view", "Only list tasks of this view.").StringVar(&c.view)

	return c
}

func (c ListCommand) Name() string { return c.Cmd.FullCommand() }

func (c ListCommand) Run(ctx context.Context) error {
	cl, err := c.rootCmd.Client()
	if err != nil {
		return err
	}
	tasks, err := cl.ListTasks(ctx, c.view)
	if err != nil {
		return fmt.Errorf("could not list tasks: %w", err)
	}

	p, err := c.rootCmd.Printer()
	if err != nil {
		return err
	}
	return p.PrintTasks(tasks)
}

// GetCommand shows one task.
type GetCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	id string
}

// NewGetCommand returns the get command.
func NewGetCommand(rootCmd *RootCommand, app *kingpin.Application) *GetCommand {
	c := &GetCommand{rootCmd: rootCmd}

	c.Cmd = app.Command("get", "Show a task.")
	c.Cmd.Arg("id", "Task ID.").Required().StringVar(&c.id)

	return c
}

func (c GetCommand) Name() string { return c.Cmd.FullCommand() }

func (c GetCommand) Run(ctx context.Context) error {
	cl, err := c.rootCmd.Client()
	if err != nil {
		return err
	}
	task, err := cl.GetTask(ctx, c.id)
	if err != nil {
		return fmt.Errorf("could not get task: %w", err)
	}

	p, err := c.rootCmd.Printer()
	if err != nil {
		return err
	}
	return p.PrintTask(task)
}

// RerunCommand resubmits a task.
type RerunCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	id string
}

// NewRerunCommand returns the rerun command.
func NewRerunCommand(rootCmd *RootCommand, app *kingpin.Application) *RerunCommand {
	c := &RerunCommand{rootCmd: rootCmd}

	c.Cmd = app.Command("rerun", "Resubmit a task, or its whole batch, as new tasks.")
	c.Cmd.Arg("id", "Task ID.").Required().StringVar(&c.id)

	return c
}

func (c RerunCommand) Name() string { return c.Cmd.FullCommand() }

func (c RerunCommand) Run(ctx context.Context) error {
	cl, err := c.rootCmd.Client()
	if err != nil {
		return err
	}
	if err := cl.Rerun(ctx, c.id); err != nil {
		return fmt.Errorf("could not rerun task: %w", err)
	}

	p, err := c.rootCmd.Printer()
	if err != nil {
		return err
	}
	return p.PrintMessage(fmt.Sprintf("Rerun of %s submitted", c.id))
}

// SeedCommand shows what reusing a task would submit.
type SeedCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	id string
}

// NewSeedCommand returns the seed command.
func NewSeedCommand(rootCmd *RootCommand, app *kingpin.Application) *SeedCommand {
	c := &SeedCommand{rootCmd: rootCmd}

	c.Cmd = app.Command("seed", "Show the view, prompt and images a new submission would reuse from a task.")
	c.Cmd.Arg("id", "Task ID.").Required().StringVar(&c.id)

	return c
}

func (c SeedCommand) Name() string { return c.Cmd.FullCommand() }

func (c SeedCommand) Run(ctx context.Context) error {
	cl, err := c.rootCmd.Client()
	if err != nil {
		return err
	}
	seed, err := cl.Seed(ctx, c.id)
	if err != nil {
		return fmt.Errorf("could not load task: %w", err)
	}

	p, err := c.rootCmd.Printer()
	if err != nil {
		return err
	}
	return p.PrintSeed(seed)
}
