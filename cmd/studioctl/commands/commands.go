package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/alecthomas/kingpin/v2"

	"github.com/phrazzld/studio-api/internal/client"
	"github.com/phrazzld/studio-api/internal/printer"
)

// Command represents an application command, all commands that want to be
// executed should implement and setup on main.
type Command interface {
	Name() string
	Run(ctx context.Context) error
}

// RootCommand holds the global flags and instances shared by every command.
type RootCommand struct {
	// Global flags.
	ServerURL string
	Format    string
	Timeout   time.Duration
	Debug     bool

	// Global instances.
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
	Logger *slog.Logger
}

// NewRootCommand registers the global flags.
func NewRootCommand(app *kingpin.Application) *RootCommand {
	c := &RootCommand{}

	app.Flag("server", "Studio server base URL.").Envar("STUDIO_SERVER").Default("http://localhost:8080").StringVar(&c.ServerURL)
	app.Flag("format", "Output format.").Short('o').Default(printer.FormatTable).EnumVar(&c.Format, printer.Formats...)
	app.Flag("timeout", "Request timeout.").Default("30s").DurationVar(&c.Timeout)
	app.Flag("debug", "Enable debug logging.").BoolVar(&c.Debug)

	return c
}

// Client returns an API client for the configured server.
func (c *RootCommand) Client() (*client.Client, error) {
	cl, err := client.New(c.ServerURL, &http.Client{Timeout: c.Timeout})
	if err != nil {
		return nil, fmt.Errorf("could not create client: %w", err)
	}
	return cl, nil
}

// Printer returns the printer for the selected output format.
func (c *RootCommand) Printer() (printer.Printer, error) {
	return printer.New(c.Format, c.Stdout)
}
