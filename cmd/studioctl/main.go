// Command studioctl is a command line client for the studio API server.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kingpin/v2"
	"github.com/oklog/run"

	"github.com/phrazzld/studio-api/cmd/studioctl/commands"
)

// Run runs the main application.
func Run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	app := kingpin.New("studioctl", "Image generation studio client.")
	app.UsageWriter(stdout)
	app.ErrorWriter(stderr)
	rootCmd := commands.NewRootCommand(app)

	submitCmd := commands.NewSubmitCommand(rootCmd, app)
	listCmd := commands.NewListCommand(rootCmd, app)
	getCmd := commands.NewGetCommand(rootCmd, app)
	rerunCmd := commands.NewRerunCommand(rootCmd, app)
	seedCmd := commands.NewSeedCommand(rootCmd, app)
	feedCmd := commands.NewFeedCommand(rootCmd, app)
	viewsCmd := commands.NewViewsCommand(rootCmd, app)
	downloadCmd := commands.NewDownloadCommand(rootCmd, app)
	watchCmd := commands.NewWatchCommand(rootCmd, app)

	cmds := map[string]commands.Command{
		submitCmd.Name():   submitCmd,
		listCmd.Name():     listCmd,
		getCmd.Name():      getCmd,
		rerunCmd.Name():    rerunCmd,
		seedCmd.Name():     seedCmd,
		feedCmd.Name():     feedCmd,
		viewsCmd.Name():    viewsCmd,
		downloadCmd.Name(): downloadCmd,
		watchCmd.Name():    watchCmd,
	}

	cmdName, err := app.Parse(args[1:])
	if err != nil {
		return fmt.Errorf("invalid command configuration: %w", err)
	}

	rootCmd.Stdin = stdin
	rootCmd.Stdout = stdout
	rootCmd.Stderr = stderr

	// Logs go to stderr so they never mix with printed output.
	level := slog.LevelWarn
	if rootCmd.Debug {
		level = slog.LevelDebug
	}
	rootCmd.Logger = slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))

	var g run.Group

	// OS signals.
	{
		signalCtx, signalCancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
		defer signalCancel()

		g.Add(
			func() error {
				<-signalCtx.Done()
				rootCmd.Logger.Debug("termination signal received")
				return nil
			},
			func(_ error) {
				signalCancel()
			},
		)
	}

	// Execute command.
	{
		ctx, cancel := context.WithCancel(ctx)
		defer cancel()

		g.Add(
			func() error {
				if err := cmds[cmdName].Run(ctx); err != nil {
					return fmt.Errorf("%q command failed: %w", cmdName, err)
				}
				return nil
			},
			func(_ error) {
				cancel()
			},
		)
	}

	return g.Run()
}

func main() {
	ctx := context.Background()
	if err := Run(ctx, os.Args, os.Stdin, os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}
