package memory

import (
	"context"
	"sync"

	"github.com/user/ghibli-blocker/internal/entity"
)

// PreferenceRepoImpl keeps preferences in process memory.
type PreferenceRepoImpl struct {
	mu    sync.Mutex
	prefs entity.Preferences
}

// NewPreferenceRepo creates a store seeded with prefs.
func NewPreferenceRepo(prefs entity.Preferences) *PreferenceRepoImpl {
	if prefs.Mode == "" {
		prefs.Mode = entity.ModeDelete
	}
	return &PreferenceRepoImpl{prefs: prefs}
}

func (r *PreferenceRepoImpl) Load(ctx context.Context) (entity.Preferences, error) {
	if err := ctx.Err(); err != nil {
		return entity.Preferences{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.prefs, nil
}

func (r *PreferenceRepoImpl) SetEnabled(ctx context.Context, enabled bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	r.prefs.Enabled = enabled
	r.mu.Unlock()
	return nil
}

func (r *PreferenceRepoImpl) SetMode(ctx context.Context, mode entity.Mode) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	r.prefs.Mode = mode
	r.mu.Unlock()
	return nil
}

func (r *PreferenceRepoImpl) IncrementBlocked(ctx context.Context) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.prefs.BlockedCount++
	return r.prefs.BlockedCount, nil
}
