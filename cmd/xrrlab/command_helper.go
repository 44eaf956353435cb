package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/reglet-dev/xrrlab/internal/application/services"
	"github.com/reglet-dev/xrrlab/internal/infrastructure/container"
)

// CommandContext provides common command dependencies.
type CommandContext struct {
	Container *container.Container
	Logger    *slog.Logger
	Context   context.Context
}

// Session loads the stored workspace.
func (c *CommandContext) Session() (*services.Session, error) {
	return c.Container.OpenSession(c.Context, false)
}

// Mutate loads the workspace, applies fn and saves the result.
func (c *CommandContext) Mutate(fn func(*services.Session) error) error {
	session, err := c.Session()
	if err != nil {
		return err
	}
	if err := fn(session); err != nil {
		return err
	}
	return session.Save(c.Context)
}

// CommandHandler is a function that executes with initialized dependencies.
type CommandHandler func(*CommandContext, *cobra.Command, []string) error

// withContainer wraps a command handler with container initialization.
// The container is closed when the handler returns.
func withContainer(handler CommandHandler) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		logger := slog.Default()

		c, err := container.New(containerOptions(logger))
		if err != nil {
			return fmt.Errorf("failed to initialize application: %w", err)
		}
		defer func() {
			if err := c.Close(); err != nil {
				logger.Warn("failed to close storage", "error", err)
			}
		}()

		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}

		return handler(&CommandContext{
			Container: c,
			Logger:    logger,
			Context:   ctx,
		}, cmd, args)
	}
}

// containerOptions reads the global flags, which viper also fills from XRRLAB_* variables.
func containerOptions(logger *slog.Logger) container.Options {
	return container.Options{
		Logger:           logger,
		SystemConfigPath: viper.GetString("config"),
		WorkspacePath:    viper.GetString("workspace"),
		Store:            viper.GetString("store"),
		WorkspaceName:    viper.GetString("name"),
	}
}
