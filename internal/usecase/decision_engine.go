package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/user/ghibli-blocker/internal/entity"
	"github.com/user/ghibli-blocker/internal/repository"
	"github.com/user/ghibli-blocker/pkg/logger"
	"github.com/user/ghibli-blocker/pkg/metrics"
)

// Decision is a flagged post ready to be acted on.
type Decision struct {
	Post      entity.NodeRef
	Container entity.NodeRef
	PostURL   string
	MediaURL  string
}

// DecisionEngine deletes or blurs flagged posts according to the live mode.
type DecisionEngine struct {
	page     repository.PageRepository
	prefs    repository.PreferenceRepository
	blockLog repository.BlockLogRepository
	state    *State
	overlay  entity.Overlay
	now      func() time.Time
	logger   *slog.Logger
}

func NewDecisionEngine(
	page repository.PageRepository,
	prefs repository.PreferenceRepository,
	blockLog repository.BlockLogRepository,
	state *State,
) *DecisionEngine {
	return &DecisionEngine{
		page:     page,
		prefs:    prefs,
		blockLog: blockLog,
		state:    state,
		overlay:  entity.DefaultOverlay(),
		now:      time.Now,
		logger:   logger.Component("decision_engine"),
	}
}

// Apply mutates the DOM for d and records the block. A failed DOM mutation
// leaves the counter untouched.
func (e *DecisionEngine) Apply(ctx context.Context, d Decision) (*entity.BlockEvent, error) {
	mode := e.state.Mode()

	switch mode {
	case entity.ModeBlur:
		if _, err := e.page.AttachOverlay(ctx, d.Container, e.overlay); err != nil {
			return nil, fmt.Errorf("failed to blur post: %w", err)
		}
	default:
		mode = entity.ModeDelete
		if err := e.page.Remove(ctx, d.Container); err != nil {
			return nil, fmt.Errorf("failed to remove post: %w", err)
		}
	}
	metrics.PostsBlocked.WithLabelValues(string(mode)).Inc()

	event := &entity.BlockEvent{
		ID:        uuid.NewString(),
		PostURL:   d.PostURL,
		MediaURL:  d.MediaURL,
		Mode:      mode,
		BlockedAt: e.now().UTC(),
	}

	count, err := e.prefs.IncrementBlocked(ctx)
	if err != nil {
		// The DOM change stands even when the count cannot be saved.
		e.logger.Error("Failed to persist blocked count", "post", d.Post, "error", err)
	} else {
		event.BlockedCount = count
	}

	if err := e.blockLog.Save(ctx, event); err != nil {
		e.logger.Warn("Failed to record block event", "post", d.Post, "error", err)
	}

	e.logger.Info("Blocked post", "mode", mode, "post_url", d.PostURL, "media_url", d.MediaURL, "blocked_count", event.BlockedCount)
	return event, nil
}
