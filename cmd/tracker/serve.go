package main

import (
	"context"
	"github.com/ZertGraf/deploy-tracker/internal/bootstrap"
	"github.com/spf13/cobra"
	"os"
	"os/signal"
	"syscall"
	"time"
)

const shutdownTimeout = 30 * time.Second

func (c *cli) serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Migrate, then run until signalled while exposing /health",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := c.application()
			if err != nil {
				return err
			}
			return serve(cmd.Context(), app)
		},
	}
}

func serve(parent context.Context, app *bootstrap.Application) error {
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	if err := app.Init(ctx); err != nil {
		app.Logger.Error("failed to initialize application", "error", err)
		_ = app.Shutdown(context.Background())
		return err
	}

	setupGracefulShutdown(ctx, cancel, app)

	app.Logger.Info("deploy tracker started",
		"service", app.Config.ServiceName,
		"environment", app.Config.Environment,
		"driver", app.Config.DatabaseDriver,
		"log_level", app.Config.LogLevel)

	<-ctx.Done()
	app.Logger.Info("initiating graceful shutdown")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := app.Shutdown(shutdownCtx); err != nil {
		app.Logger.Error("application shutdown failed", "error", err)
		return err
	}

	app.Logger.Info("service stopped gracefully")
	return nil
}

// setupGracefulShutdown cancels ctx on SIGINT or SIGTERM.
func setupGracefulShutdown(ctx context.Context, cancel context.CancelFunc, app *bootstrap.Application) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		defer signal.Stop(sigChan)
		select {
		case sig := <-sigChan:
			app.Logger.Info("received shutdown signal", "signal", sig.String())
			cancel()
		case <-ctx.Done():
		}
	}()
}
