package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/user/ghibli-blocker/internal/adapter/chromedp_page"
	"github.com/user/ghibli-blocker/internal/adapter/classifier"
	"github.com/user/ghibli-blocker/internal/entity"
	"github.com/user/ghibli-blocker/internal/usecase"
	"golang.org/x/sync/errgroup"
)

// NewRunCmd creates the run command.
func NewRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Drive the timeline tab and serve the control API",
		Long: `run opens (or attaches to, with CDP_URL) a Chrome tab on TIMELINE_URL,
watches the timeline for new posts and blocks the flagged ones. The control
API is served on SERVER_PORT in the same process.`,
		Args: cobra.NoArgs,
		RunE: runAgentCmd,
	}
}

func runAgentCmd(cmd *cobra.Command, _ []string) error {
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

	blockLog, closeBlockLog, err := openBlockLog(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeBlockLog()

	state := usecase.NewState(entity.DefaultPreferences())
	prefSync := usecase.NewPreferenceSync(be.store, be.channel, state)
	if _, err := prefSync.Seed(ctx); err != nil {
		return err
	}

	browser, err := chromedp_page.Launch(ctx, chromedp_page.BrowserConfig{
		CDPURL:      cfg.CDPURL,
		Headless:    cfg.Headless,
		UserDataDir: cfg.ChromeUserDataDir,
		Proxy:       cfg.ChromeProxy,
	})
	if err != nil {
		return err
	}
	defer browser.Close()

	page, err := chromedp_page.NewPage(browser.Tab())
	if err != nil {
		return err
	}
	if err := page.Navigate(ctx, cfg.TimelineURL); err != nil {
		return fmt.Errorf("failed to open timeline: %w", err)
	}

	dom := usecase.DefaultDOMContract()
	clf := classifier.NewHTTPClassifier(cfg.ClassifierURL, cfg.ClassifierLabel, cfg.ClassifierTimeout, nil)
	extractor := usecase.NewMediaExtractor(page, dom, cfg.MediaWait)
	engine := usecase.NewDecisionEngine(page, be.store, blockLog, state)
	processor := usecase.NewTweetProcessor(page, extractor, clf, engine, state, dom)

	pool := usecase.NewWorkerPool(processor, cfg.Workers, cfg.QueueSize)
	pool.Start(ctx)
	defer pool.Stop()

	observer := usecase.NewTimelineObserver(page, pool, dom, usecase.ObserverConfig{
		Retry:         cfg.TimelineRetry,
		SweepExisting: cfg.SweepExisting,
	})
	panel := usecase.NewControlPanel(be.store, be.channel, blockLog)
	srv := newHTTPServer(cfg, panel)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return prefSync.Listen(gctx) })
	g.Go(func() error { return observer.Run(gctx) })
	g.Go(func() error { return serveHTTP(gctx, srv) })

	if err := g.Wait(); err != nil {
		slog.Error("Agent stopped with error", "error", err)
		return err
	}
	slog.Info("Agent stopped")
	return nil
}
