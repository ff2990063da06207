// Package cli is the tracker command line: the server plus one-shot
// commands that drive the same stores and channel from another process.
package cli

import (
	"context"
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/MrSnakeDoc/tracker/internal/app"
	"github.com/MrSnakeDoc/tracker/internal/config"
	"github.com/MrSnakeDoc/tracker/internal/logger"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Format   string // "json" | "text"
	LogLevel string // overrides TRACKER_LOG_LEVEL when set
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the tracker CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "tracker",
		Short: "Offline-first vacation and joke tracker",
		Long: `tracker serves the vacation and joke tracker pages through an offline cache worker.

Configuration comes from TRACKER_* environment variables. With TRACKER_REDIS_ADDR
set, separate tracker processes share caches, the simple store and channel
notifications, so one-shot commands reach a running server.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "", "log level (debug|info|warn|error)")

	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewCacheCommand(opts))
	cmd.AddCommand(NewVacationCommand(opts))
	cmd.AddCommand(NewJokesCommand(opts))
	cmd.AddCommand(NewPendingCommand(opts))
	cmd.AddCommand(NewVersionCommand(opts))

	return cmd
}

// load reads the environment and builds the logger.
func (o *RootOptions) load() (*config.Config, logger.Logger) {
	cfg := config.Load()
	if o.LogLevel != "" {
		cfg.LogLevel = o.LogLevel
	}
	return cfg, logger.New(cfg.LogLevel, cfg.PrettyLog)
}

// connect is load plus the shared backends. Callers must Close the result.
func (o *RootOptions) connect(ctx context.Context) (*app.Components, error) {
	cfg, log := o.load()
	return app.Connect(ctx, cfg, log)
}
