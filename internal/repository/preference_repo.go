package repository

import (
	"context"

	"github.com/user/ghibli-blocker/internal/entity"
)

// PreferenceRepository defines the durable key-value store shared by the
// control surface and the agent.
type PreferenceRepository interface {
	// Load reads the preference record, applying defaults for absent keys.
	Load(ctx context.Context) (entity.Preferences, error)
	// SetEnabled persists the isEnabled key.
	SetEnabled(ctx context.Context, enabled bool) error
	// SetMode persists the mode key.
	SetMode(ctx context.Context, mode entity.Mode) error
	// IncrementBlocked atomically adds one to blockedCount and returns the new value.
	IncrementBlocked(ctx context.Context) (uint64, error)
}
