package repository

import (
	"context"

	"github.com/user/ghibli-blocker/internal/entity"
)

// BlockLogRepository defines the audit trail of block actions.
type BlockLogRepository interface {
	// Save records a block action.
	Save(ctx context.Context, event *entity.BlockEvent) error
	// ListRecent returns up to limit events, newest first.
	ListRecent(ctx context.Context, limit int) ([]*entity.BlockEvent, error)
}
