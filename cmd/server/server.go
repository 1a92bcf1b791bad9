package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"syscall"
	"time"

	"github.com/oklog/run"
)

// serve runs the HTTP server next to a signal handler. Whichever actor
// returns first interrupts the other; the server is then given
// ShutdownTimeoutSec to drain open requests.
func (app *application) serve(ctx context.Context, router http.Handler) error {
	listener, err := net.Listen("tcp", fmt.Sprintf(":%d", app.config.Server.Port))
	if err != nil {
		return fmt.Errorf("failed to listen on port %d: %w", app.config.Server.Port, err)
	}
	return app.serveListener(ctx, listener, router)
}

func (app *application) serveListener(ctx context.Context, listener net.Listener, router http.Handler) error {
	server := &http.Server{
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	if app.eventsHandler != nil {
		server.RegisterOnShutdown(app.eventsHandler.Close)
	}

	var g run.Group

	g.Add(func() error {
		app.logger.Info("Starting server", "addr", listener.Addr().String())
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	}, func(error) {
		app.logger.Info("Shutting down server...")
		timeout := time.Duration(app.config.Server.ShutdownTimeoutSec) * time.Second
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			app.logger.Error("Server shutdown failed", "error", err)
			_ = server.Close()
		}
	})

	g.Add(run.SignalHandler(ctx, os.Interrupt, syscall.SIGTERM))

	err := g.Run()
	var signalErr run.SignalError
	if errors.As(err, &signalErr) || errors.Is(err, context.Canceled) {
		app.logger.Info("Server stopped", "reason", err.Error())
		return nil
	}
	return err
}
