package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
	"github.com/user/ghibli-blocker/internal/entity"
	"github.com/user/ghibli-blocker/pkg/logger"
)

const controlChannel = "ghibli:control"

// ControlChannelImpl carries control messages over Redis pub/sub.
type ControlChannelImpl struct {
	client *redis.Client
	logger *slog.Logger
}

// NewControlChannel creates a new instance of ControlChannelImpl.
func NewControlChannel(client *redis.Client) *ControlChannelImpl {
	return &ControlChannelImpl{
		client: client,
		logger: logger.Component("redis_control_channel"),
	}
}

// Publish encodes msg as JSON and publishes it. Nobody listening is not an error.
func (c *ControlChannelImpl) Publish(ctx context.Context, msg entity.ControlMessage) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return c.client.Publish(ctx, controlChannel, payload).Err()
}

// Subscribe delivers decoded messages to fn until ctx is done. Malformed
// payloads are logged and skipped.
func (c *ControlChannelImpl) Subscribe(ctx context.Context, fn func(entity.ControlMessage)) error {
	sub := c.client.Subscribe(ctx, controlChannel)
	defer sub.Close()

	// Wait for the subscription confirmation so publishes after this point are seen.
	if _, err := sub.Receive(ctx); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("failed to subscribe to %s: %w", controlChannel, err)
	}

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case m, ok := <-ch:
			if !ok {
				return nil
			}
			var msg entity.ControlMessage
			if err := json.Unmarshal([]byte(m.Payload), &msg); err != nil {
				c.logger.Warn("Discarding malformed control message", "channel", m.Channel, "error", err)
				continue
			}
			fn(msg)
		}
	}
}
