package repository

import (
	"context"

	"github.com/user/ghibli-blocker/internal/entity"
)

// ControlChannel carries control messages from the control surface to the agent.
type ControlChannel interface {
	// Publish sends a message to every current subscriber. Delivery is fire-and-forget.
	Publish(ctx context.Context, msg entity.ControlMessage) error
	// Subscribe calls fn for every message until ctx is done.
	Subscribe(ctx context.Context, fn func(entity.ControlMessage)) error
}
