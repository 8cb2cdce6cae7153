package memory

import (
	"context"
	"sync"

	"github.com/user/ghibli-blocker/internal/entity"
)

// ControlChannelImpl is an in-process control channel. Each subscriber gets
// its own buffered queue; messages published while it is full are dropped.
type ControlChannelImpl struct {
	mu     sync.Mutex
	subs   map[int]chan entity.ControlMessage
	nextID int
	buffer int
}

// NewControlChannel creates a channel whose subscribers buffer up to buffer messages.
func NewControlChannel(buffer int) *ControlChannelImpl {
	if buffer < 1 {
		buffer = 16
	}
	return &ControlChannelImpl{subs: make(map[int]chan entity.ControlMessage), buffer: buffer}
}

func (c *ControlChannelImpl) Publish(ctx context.Context, msg entity.ControlMessage) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, ch := range c.subs {
		select {
		case ch <- msg:
		default:
		}
	}
	return nil
}

func (c *ControlChannelImpl) Subscribe(ctx context.Context, fn func(entity.ControlMessage)) error {
	ch := make(chan entity.ControlMessage, c.buffer)
	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.subs[id] = ch
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		delete(c.subs, id)
		c.mu.Unlock()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case msg := <-ch:
			fn(msg)
		}
	}
}

// Subscribers returns the number of active subscribers.
func (c *ControlChannelImpl) Subscribers() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.subs)
}
