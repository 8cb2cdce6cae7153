package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"slices"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/user/ghibli-blocker/internal/adapter/classifier"
	"github.com/user/ghibli-blocker/internal/adapter/htmldom"
	"github.com/user/ghibli-blocker/internal/adapter/memory"
	"github.com/user/ghibli-blocker/internal/entity"
	"github.com/user/ghibli-blocker/internal/usecase"
)

// NewScanCmd creates the scan command.
func NewScanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Run a saved timeline page through the blocker offline",
		Long: `scan parses an HTML snapshot of a timeline, sends every post through the
same pipeline the live agent uses and writes the resulting document.

Examples:
  # Report what would be blocked
  blocker scan --input timeline.html

  # Write the cleaned page, blurring instead of deleting
  blocker scan --input timeline.html --output cleaned.html --mode blur`,
		Args: cobra.NoArgs,
		RunE: runScanCmd,
	}

	cmd.Flags().StringP("input", "i", "", "HTML snapshot to scan (required)")
	cmd.Flags().StringP("output", "o", "", "Write the resulting HTML to this file")
	cmd.Flags().String("base-url", "https://x.com/", "Base URL for relative links in the snapshot")
	cmd.Flags().StringP("mode", "m", string(entity.ModeDelete), "Action for flagged posts (delete or blur)")
	cmd.Flags().Duration("media-wait", 0, "Per-container image wait (default MEDIA_WAIT)")
	_ = cmd.MarkFlagRequired("input")

	return cmd
}

func runScanCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := setup(cmd)
	if err != nil {
		return err
	}

	input, _ := cmd.Flags().GetString("input")
	output, _ := cmd.Flags().GetString("output")
	baseURL, _ := cmd.Flags().GetString("base-url")
	rawMode, _ := cmd.Flags().GetString("mode")
	mediaWait, _ := cmd.Flags().GetDuration("media-wait")
	if mediaWait <= 0 {
		mediaWait = cfg.MediaWait
	}

	mode, err := entity.ParseMode(rawMode)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	f, err := os.Open(input)
	if err != nil {
		return fmt.Errorf("failed to open input: %w", err)
	}
	doc, err := htmldom.Parse(f, baseURL)
	_ = f.Close()
	if err != nil {
		return err
	}

	prefs := entity.DefaultPreferences()
	prefs.Mode = mode
	store := memory.NewPreferenceRepo(prefs)
	blockLog := memory.NewBlockLogRepo(0)
	state := usecase.NewState(prefs)

	dom := usecase.DefaultDOMContract()
	clf := classifier.NewHTTPClassifier(cfg.ClassifierURL, cfg.ClassifierLabel, cfg.ClassifierTimeout, nil)
	extractor := usecase.NewMediaExtractor(doc, dom, mediaWait)
	engine := usecase.NewDecisionEngine(doc, store, blockLog, state)
	counts := newTally(usecase.NewTweetProcessor(doc, extractor, clf, engine, state, dom))

	pool := usecase.NewWorkerPool(counts, cfg.Workers, cfg.QueueSize)
	pool.Start(ctx)
	observer := usecase.NewTimelineObserver(doc, pool, dom, usecase.ObserverConfig{Retry: cfg.TimelineRetry})
	submitted, sweepErr := observer.Sweep(ctx)
	pool.Stop()
	if sweepErr != nil {
		if errors.Is(sweepErr, usecase.ErrTimelineNotFound) {
			return fmt.Errorf("%s: no %q element in snapshot", input, dom.TimelineSelector)
		}
		return sweepErr
	}

	if output != "" {
		rendered, err := doc.Render()
		if err != nil {
			return fmt.Errorf("failed to render document: %w", err)
		}
		if err := os.WriteFile(output, []byte(rendered), 0o644); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
	}

	events, err := blockLog.ListRecent(ctx, submitted)
	if err != nil {
		return err
	}
	printSummary(cmd.OutOrStdout(), submitted, counts.snapshot(), events)
	return nil
}

// tally counts outcomes of the wrapped processor.
type tally struct {
	next usecase.PostProcessor

	mu     sync.Mutex
	counts map[entity.Outcome]int
}

func newTally(next usecase.PostProcessor) *tally {
	return &tally{next: next, counts: make(map[entity.Outcome]int)}
}

func (t *tally) Process(ctx context.Context, post entity.NodeRef) (entity.Outcome, error) {
	outcome, err := t.next.Process(ctx, post)
	t.mu.Lock()
	t.counts[outcome]++
	t.mu.Unlock()
	return outcome, err
}

func (t *tally) snapshot() map[entity.Outcome]int {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make(map[entity.Outcome]int, len(t.counts))
	for k, v := range t.counts {
		out[k] = v
	}
	return out
}

func printSummary(w io.Writer, submitted int, counts map[entity.Outcome]int, events []*entity.BlockEvent) {
	fmt.Fprintf(w, "posts scanned: %d\n", submitted)
	outcomes := make([]entity.Outcome, 0, len(counts))
	for o := range counts {
		outcomes = append(outcomes, o)
	}
	slices.Sort(outcomes)
	for _, o := range outcomes {
		fmt.Fprintf(w, "  %-12s %d\n", o, counts[o])
	}
	// ListRecent is newest first; print in blocking order.
	for i := len(events) - 1; i >= 0; i-- {
		ev := events[i]
		fmt.Fprintf(w, "%s %s %s %s\n", ev.BlockedAt.Format(time.RFC3339), ev.Mode, ev.PostURL, ev.MediaURL)
	}
}
