package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/user/ghibli-blocker/internal/entity"
	"github.com/user/ghibli-blocker/internal/repository"
	"github.com/user/ghibli-blocker/pkg/logger"
)

const (
	defaultBlockListLimit = 20
	maxBlockListLimit     = 200
)

// ControlPanel defines the operations of the control surface.
type ControlPanel interface {
	Preferences(ctx context.Context) (entity.Preferences, error)
	SetBlocking(ctx context.Context, enabled bool, mode entity.Mode) (entity.Preferences, error)
	SetMode(ctx context.Context, mode entity.Mode) (entity.Preferences, error)
	RecentBlocks(ctx context.Context, limit int) ([]*entity.BlockEvent, error)
}

type controlPanelUseCase struct {
	store    repository.PreferenceRepository
	channel  repository.ControlChannel
	blockLog repository.BlockLogRepository
	logger   *slog.Logger
}

// NewControlPanel creates the control surface use case. It owns all writes of
// isEnabled and mode to the store.
func NewControlPanel(
	store repository.PreferenceRepository,
	channel repository.ControlChannel,
	blockLog repository.BlockLogRepository,
) ControlPanel {
	return &controlPanelUseCase{
		store:    store,
		channel:  channel,
		blockLog: blockLog,
		logger:   logger.Component("control_panel"),
	}
}

func (uc *controlPanelUseCase) Preferences(ctx context.Context) (entity.Preferences, error) {
	return uc.store.Load(ctx)
}

// SetBlocking persists isEnabled (and mode, when given) and notifies the agent.
func (uc *controlPanelUseCase) SetBlocking(ctx context.Context, enabled bool, mode entity.Mode) (entity.Preferences, error) {
	if mode != "" {
		parsed, err := entity.ParseMode(string(mode))
		if err != nil {
			return entity.Preferences{}, err
		}
		mode = parsed
	}
	if err := uc.store.SetEnabled(ctx, enabled); err != nil {
		return entity.Preferences{}, fmt.Errorf("failed to save isEnabled: %w", err)
	}
	if mode != "" {
		if err := uc.store.SetMode(ctx, mode); err != nil {
			return entity.Preferences{}, fmt.Errorf("failed to save mode: %w", err)
		}
	}
	uc.publish(ctx, entity.ToggleBlocking(enabled, mode))
	return uc.store.Load(ctx)
}

// SetMode persists mode and notifies the agent.
func (uc *controlPanelUseCase) SetMode(ctx context.Context, mode entity.Mode) (entity.Preferences, error) {
	mode, err := entity.ParseMode(string(mode))
	if err != nil {
		return entity.Preferences{}, err
	}
	if err := uc.store.SetMode(ctx, mode); err != nil {
		return entity.Preferences{}, fmt.Errorf("failed to save mode: %w", err)
	}
	uc.publish(ctx, entity.ToggleMode(mode))
	return uc.store.Load(ctx)
}

func (uc *controlPanelUseCase) RecentBlocks(ctx context.Context, limit int) ([]*entity.BlockEvent, error) {
	if limit <= 0 {
		limit = defaultBlockListLimit
	}
	if limit > maxBlockListLimit {
		limit = maxBlockListLimit
	}
	return uc.blockLog.ListRecent(ctx, limit)
}

// publish is fire-and-forget: the store already holds the new value, so an
// agent that misses the message picks it up on its next start.
func (uc *controlPanelUseCase) publish(ctx context.Context, msg entity.ControlMessage) {
	if err := uc.channel.Publish(ctx, msg); err != nil {
		uc.logger.Warn("Failed to publish control message", "action", msg.Action, "error", err)
	}
}
