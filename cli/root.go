// ABOUTME: Root cobra command and shared flag handling
// ABOUTME: Loads configuration and the logger before any subcommand runs
package cli

import (
	"context"
	"fmt"

	"github.com/harperreed/canvass/config"
	"github.com/harperreed/canvass/logging"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// runtime is the per-invocation state set up by the root command.
type runtime struct {
	envFile  string
	dbPath   string
	logLevel string
	verbose  bool

	cfg    *config.Config
	logger *zap.Logger
}

// NewRootCommand builds the canvass command tree.
func NewRootCommand(version string) *cobra.Command {
	rt := &runtime{}

	root := &cobra.Command{
		Use:   "canvass",
		Short: "Screenshot evidence for canvassing and follow-ups",
		Long: `canvass records chat screenshots as evidence of canvassing (stage 0)
and daily follow-ups (stages 1-7). It reads the prospect handle and message
from each screenshot, checks the message against the stage template, and ties
it to the right canvassing cycle.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return rt.setup(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if rt.logger != nil {
				_ = rt.logger.Sync()
			}
		},
	}

	root.PersistentFlags().StringVar(&rt.envFile, "env-file", "", "Load settings from this .env file (default ./.env when present)")
	root.PersistentFlags().StringVar(&rt.dbPath, "db-path", "", "Database path (default: ~/.local/share/canvass/canvass.db)")
	root.PersistentFlags().StringVar(&rt.logLevel, "log-level", "", "Override LOG_LEVEL (debug, info, warn, error)")
	root.PersistentFlags().BoolVarP(&rt.verbose, "verbose", "v", false, "Shorthand for --log-level debug")

	root.AddCommand(
		newServeCommand(rt),
		newMCPCommand(rt),
		newParseCommand(rt),
		newUploadCommand(rt),
		newProspectsCommand(rt),
		newCyclesCommand(rt),
		newReviewCommand(rt),
		newTemplatesCommand(rt),
	)
	return root
}

func (rt *runtime) setup(cmd *cobra.Command) error {
	var files []string
	if rt.envFile != "" {
		files = []string{rt.envFile}
	}
	cfg, err := config.Load(files...)
	if err != nil {
		return err
	}
	if rt.dbPath != "" {
		cfg.DBPath = rt.dbPath
	}
	if rt.logLevel != "" {
		cfg.LogLevel = rt.logLevel
	}
	if rt.verbose {
		cfg.LogLevel = "debug"
	}

	opts := cfg.Logging()
	// stdio belongs to the protocol and the TUI owns the terminal
	opts.Quiet = cmd.Name() == "mcp" || cmd.Name() == "review"
	logger, err := logging.New(opts)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}

	rt.cfg = cfg
	rt.logger = logger
	return nil
}

// open builds the full application for commands that need stored data.
func (rt *runtime) open(ctx context.Context) (*App, error) {
	app, err := OpenApp(ctx, rt.cfg, rt.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open canvass data: %w", err)
	}
	return app, nil
}
