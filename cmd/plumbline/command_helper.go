package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/plumbline-dev/plumbline/internal/infrastructure/container"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// CommandContext provides common command dependencies.
type CommandContext struct {
	Container *container.Container
	Logger    *slog.Logger
	Context   context.Context
	Options   *CommonOptions
}

// CommandHandler is a function that executes with initialized dependencies.
type CommandHandler func(*CommandContext, *cobra.Command, []string) error

// withContainer wraps a command handler with flag validation, the
// execution timeout and container initialization. Flags win over
// PLUMBLINE_* environment variables, which win over the config file.
func withContainer(opts *CommonOptions, handler CommandHandler) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		if err := opts.ValidateFlags(); err != nil {
			return err
		}
		if opts.Quiet {
			slog.SetDefault(newCLILogger(slog.LevelError))
		}

		logger := slog.Default()

		c, err := container.New(container.Options{
			SystemConfigPath: viper.ConfigFileUsed(),
			Logger:           logger,
			NonStrict:        opts.NonStrict || viper.GetBool("non_strict"),
			ImageRoot:        firstNonEmpty(opts.ImageRoot, viper.GetString("images.root")),
			ReasonerURL:      viper.GetString("reasoner.url"),
		})
		if err != nil {
			return fmt.Errorf("failed to initialize application: %w", err)
		}

		parent := cmd.Context()
		if parent == nil {
			parent = context.Background()
		}
		ctx, cancel := opts.ApplyToContext(parent)
		defer cancel()

		return handler(&CommandContext{
			Container: c,
			Logger:    logger,
			Context:   ctx,
			Options:   opts,
		}, cmd, args)
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
