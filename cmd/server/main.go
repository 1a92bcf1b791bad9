// Package main implements the entry point for the studio API server, which
// accepts image generation requests, drives them through the Gemini image
// models in the background and serves the resulting feed.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/alecthomas/kingpin/v2"
	"github.com/phrazzld/studio-api/internal/config"
	"github.com/phrazzld/studio-api/internal/platform/gemini"
	"github.com/phrazzld/studio-api/internal/platform/logger"
)

func main() {
	cli := kingpin.New("studio-server", "Image generation studio API server.")
	configFile := cli.Flag("config", "Path to a YAML config file. Environment variables prefixed STUDIO_ override it.").
		Short('c').
		Envar("STUDIO_CONFIG").
		String()
	kingpin.MustParse(cli.Parse(os.Args[1:]))

	if err := runServer(context.Background(), *configFile); err != nil {
		fmt.Fprintf(os.Stderr, "studio-server: %v\n", err)
		os.Exit(1)
	}
}

// runServer loads configuration, builds the application and serves until a
// termination signal arrives.
func runServer(ctx context.Context, configFile string) error {
	cfg, err := config.LoadFile(configFile)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	log, err := logger.Setup(cfg.Server)
	if err != nil {
		return fmt.Errorf("failed to set up logger: %w", err)
	}
	log.Info("Server configuration loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Server.LogLevel,
		"store_driver", cfg.Store.Driver,
		"redis_enabled", cfg.Redis.Addr != "")

	generator, err := gemini.NewGenerator(ctx, log.With("component", "image_generator"), cfg.LLM)
	if err != nil {
		return fmt.Errorf("failed to initialize image generator: %w", err)
	}
	slog.Info("Image generator initialized",
		"image_model", cfg.LLM.ImageModel,
		"edit_model", cfg.LLM.EditModel)

	app, err := newApplication(ctx, cfg, log, generator)
	if err != nil {
		return err
	}
	return app.Run(ctx)
}
