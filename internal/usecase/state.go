package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/user/ghibli-blocker/internal/entity"
	"github.com/user/ghibli-blocker/internal/repository"
	"github.com/user/ghibli-blocker/pkg/logger"
)

var ErrInvalidControlMessage = errors.New("invalid control message")

// Settings is the runtime snapshot the pipeline enforces.
type Settings struct {
	Enabled bool
	Mode    entity.Mode
}

// State is the process-wide settings cell. Readers get an immutable snapshot;
// writers swap in a new one.
type State struct {
	cur atomic.Pointer[Settings]
}

// NewState seeds the cell from a preference record.
func NewState(prefs entity.Preferences) *State {
	s := &State{}
	s.Store(Settings{Enabled: prefs.Enabled, Mode: prefs.Mode})
	return s
}

func (s *State) Snapshot() Settings { return *s.cur.Load() }
func (s *State) Enabled() bool      { return s.cur.Load().Enabled }
func (s *State) Mode() entity.Mode  { return s.cur.Load().Mode }

// Store replaces the snapshot.
func (s *State) Store(settings Settings) {
	if settings.Mode == "" {
		settings.Mode = entity.ModeDelete
	}
	s.cur.Store(&settings)
}

// Apply folds a control message into the cell.
func (s *State) Apply(msg entity.ControlMessage) error {
	for {
		old := s.cur.Load()
		next := *old

		switch msg.Action {
		case entity.ActionToggleBlocking:
			if msg.IsEnabled == nil {
				return fmt.Errorf("%w: toggleBlocking without isEnabled", ErrInvalidControlMessage)
			}
			next.Enabled = *msg.IsEnabled
			if msg.Mode != "" {
				mode, err := entity.ParseMode(string(msg.Mode))
				if err != nil {
					return fmt.Errorf("%w: %v", ErrInvalidControlMessage, err)
				}
				next.Mode = mode
			}
		case entity.ActionToggleMode:
			mode, err := entity.ParseMode(string(msg.Mode))
			if err != nil {
				return fmt.Errorf("%w: %v", ErrInvalidControlMessage, err)
			}
			next.Mode = mode
		default:
			return fmt.Errorf("%w: unknown action %q", ErrInvalidControlMessage, msg.Action)
		}

		if s.cur.CompareAndSwap(old, &next) {
			return nil
		}
	}
}

// PreferenceSync seeds the state cell from the store once and then follows
// control messages. It never writes to the store.
type PreferenceSync struct {
	store   repository.PreferenceRepository
	channel repository.ControlChannel
	state   *State
	logger  *slog.Logger
}

func NewPreferenceSync(store repository.PreferenceRepository, channel repository.ControlChannel, state *State) *PreferenceSync {
	return &PreferenceSync{
		store:   store,
		channel: channel,
		state:   state,
		logger:  logger.Component("preference_sync"),
	}
}

// Seed loads the persisted preferences into the state cell.
func (p *PreferenceSync) Seed(ctx context.Context) (entity.Preferences, error) {
	prefs, err := p.store.Load(ctx)
	if err != nil {
		return entity.Preferences{}, fmt.Errorf("failed to load preferences: %w", err)
	}
	p.state.Store(Settings{Enabled: prefs.Enabled, Mode: prefs.Mode})
	p.logger.Info("Preferences loaded", "enabled", prefs.Enabled, "mode", prefs.Mode, "blocked_count", prefs.BlockedCount)
	return prefs, nil
}

// Listen applies control messages until ctx is done.
func (p *PreferenceSync) Listen(ctx context.Context) error {
	return p.channel.Subscribe(ctx, func(msg entity.ControlMessage) {
		if err := p.state.Apply(msg); err != nil {
			p.logger.Warn("Ignoring control message", "action", msg.Action, "error", err)
			return
		}
		cur := p.state.Snapshot()
		p.logger.Info("Settings updated", "action", msg.Action, "enabled", cur.Enabled, "mode", cur.Mode)
	})
}
