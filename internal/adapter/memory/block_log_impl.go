package memory

import (
	"context"
	"sync"

	"github.com/user/ghibli-blocker/internal/entity"
)

// BlockLogRepoImpl keeps the most recent block events in a bounded slice.
type BlockLogRepoImpl struct {
	mu       sync.Mutex
	events   []*entity.BlockEvent
	capacity int
}

func NewBlockLogRepo(capacity int) *BlockLogRepoImpl {
	if capacity < 1 {
		capacity = 500
	}
	return &BlockLogRepoImpl{capacity: capacity}
}

func (r *BlockLogRepoImpl) Save(ctx context.Context, event *entity.BlockEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *event
	r.events = append(r.events, &cp)
	if len(r.events) > r.capacity {
		r.events = r.events[len(r.events)-r.capacity:]
	}
	return nil
}

func (r *BlockLogRepoImpl) ListRecent(ctx context.Context, limit int) ([]*entity.BlockEvent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	limit = max(limit, 0)
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*entity.BlockEvent, 0, min(limit, len(r.events)))
	for i := len(r.events) - 1; i >= 0 && len(out) < limit; i-- {
		cp := *r.events[i]
		out = append(out, &cp)
	}
	return out, nil
}
