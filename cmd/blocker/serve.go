package main

import (
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/user/ghibli-blocker/internal/usecase"
)

// NewServeCmd creates the serve command.
func NewServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve only the control API",
		Long: `serve exposes the control API without driving a browser. Pair it with an
agent started by "run" in another process; use STORE_BACKEND=redis so that
preference changes reach that agent.`,
		Args: cobra.NoArgs,
		RunE: runServeCmd,
	}
}

func runServeCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := setup(cmd)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	be, err := openBackend(ctx, cfg)
	if err != nil {
		return err
	}
	defer be.close()
	if !be.crossProcess {
		slog.Warn("Control messages stay in this process; agents elsewhere only see changes on restart",
			"store_backend", cfg.StoreBackend)
	}

	blockLog, closeBlockLog, err := openBlockLog(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeBlockLog()

	panel := usecase.NewControlPanel(be.store, be.channel, blockLog)
	return serveHTTP(ctx, newHTTPServer(cfg, panel))
}
