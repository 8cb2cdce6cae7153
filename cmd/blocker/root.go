package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/user/ghibli-blocker/pkg/config"
	"github.com/user/ghibli-blocker/pkg/logger"
)

// NewRootCmd creates the root command.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "blocker",
		Short: "Hide Ghibli-style images from a social-media timeline",
		Long: `blocker watches a timeline open in Chrome, classifies the images of every
post as it is rendered and deletes or blurs the posts whose images look
Ghibli-style.

Configuration is read from the environment and an optional .env file in the
working directory.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().String("log-level", "", "Log level (debug, info, warn, error); overrides LOG_LEVEL")

	cmd.AddCommand(NewRunCmd())
	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewScanCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// setup loads the configuration and initializes the global logger.
func setup(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if level, _ := cmd.Flags().GetString("log-level"); level != "" {
		cfg.LogLevel = level
	}

	logLevel := logger.ParseLevel(cfg.LogLevel)
	logger.Init(cmd.ErrOrStderr(), logLevel)
	slog.Info("Logger initialized", "level", logLevel.String())
	return cfg, nil
}
