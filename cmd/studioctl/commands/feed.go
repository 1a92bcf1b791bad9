package commands

import (
	"context"
	"fmt"

	"github.com/alecthomas/kingpin/v2"

	"github.com/phrazzld/studio-api/internal/events"
)

// FeedCommand shows the grouped feed of a view.
type FeedCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	view string
}

// NewFeedCommand returns the feed command.
func NewFeedCommand(rootCmd *RootCommand, app *kingpin.Application) *FeedCommand {
	c := &FeedCommand{rootCmd: rootCmd}

	c.Cmd = app.Command("feed", "Show the tasks of a view grouped by day and batch.")
	c.Cmd.Flag("view", "View to show.").Required().StringVar(&c.view)

	return c
}

func (c FeedCommand) Name() string { return c.Cmd.FullCommand() }

func (c FeedCommand) Run(ctx context.Context) error {
	cl, err := c.rootCmd.Client()
	if err != nil {
		return err
	}
	groups, err := cl.Feed(ctx, c.view)
	if err != nil {
		return fmt.Errorf("could not load feed: %w", err)
	}

	p, err := c.rootCmd.Printer()
	if err != nil {
		return err
	}
	return p.PrintFeed(groups)
}

// ViewsCommand lists the generation modes.
type ViewsCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand
}

// NewViewsCommand returns the views command.
func NewViewsCommand(rootCmd *RootCommand, app *kingpin.Application) *ViewsCommand {
	c := &ViewsCommand{rootCmd: rootCmd}
	c.Cmd = app.Command("views", "List the generation modes.")
	return c
}

func (c ViewsCommand) Name() string { return c.Cmd.FullCommand() }

func (c ViewsCommand) Run(ctx context.Context) error {
	cl, err := c.rootCmd.Client()
	if err != nil {
		return err
	}
	modes, err := cl.Views(ctx)
	if err != nil {
		return fmt.Errorf("could not list views: %w", err)
	}

	p, err := c.rootCmd.Printer()
	if err != nil {
		return err
	}
	return p.PrintViews(modes)
}

// WatchCommand follows task events until interrupted.
type WatchCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	view string
}

// NewWatchCommand returns the watch command.
func NewWatchCommand(rootCmd *RootCommand, app *kingpin.Application) *WatchCommand {
	c := &WatchCommand{rootCmd: rootCmd}

	c.Cmd = app.Command("watch", "Print task events as they happen.")
	c.Cmd.Flag("view", "Only show events of this view.").StringVar(&c.view)

	return c
}

func (c WatchCommand) Name() string { return c.Cmd.FullCommand() }

func (c WatchCommand) Run(ctx context.Context) error {
	cl, err := c.rootCmd.Client()
	if err != nil {
		return err
	}
	p, err := c.rootCmd.Printer()
	if err != nil {
		return err
	}

	err = cl.WatchEvents(ctx, c.view, func(event events.TaskEvent) error {
		return p.PrintEvent(event)
	})
	if err != nil && ctx.Err() == nil {
		return fmt.Errorf("event stream failed: %w", err)
	}
	return nil
}
