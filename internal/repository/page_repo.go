package repository

import (
	"context"

	"github.com/user/ghibli-blocker/internal/entity"
)

// MutationFunc receives the element nodes added under an observed root in one
// mutation batch.
type MutationFunc func(added []entity.NodeRef)

// PageRepository defines the contract for reading and editing the DOM of the
// tab the blocker runs against.
type PageRepository interface {
	// Find returns the first element in the document matching selector.
	Find(ctx context.Context, selector string) (entity.NodeRef, bool, error)
	// QueryAll returns the descendants of root matching selector, in document order.
	QueryAll(ctx context.Context, root entity.NodeRef, selector string) ([]entity.NodeRef, error)
	// Matches reports whether node itself matches selector.
	Matches(ctx context.Context, node entity.NodeRef, selector string) (bool, error)
	// Closest returns the nearest ancestor-or-self of node matching selector.
	Closest(ctx context.Context, node entity.NodeRef, selector string) (entity.NodeRef, bool, error)
	// URLAttribute returns an href/src style attribute resolved to an absolute URL.
	URLAttribute(ctx context.Context, node entity.NodeRef, name string) (string, bool, error)
	// StyleProperty returns the value of an inline style property, e.g. "background-image".
	StyleProperty(ctx context.Context, node entity.NodeRef, property string) (string, error)
	// Remove detaches node from the document.
	Remove(ctx context.Context, node entity.NodeRef) error
	// AttachOverlay makes node a positioning context and appends a click-to-dismiss overlay.
	AttachOverlay(ctx context.Context, node entity.NodeRef, overlay entity.Overlay) (entity.NodeRef, error)
	// Observe watches child-list mutations in the subtree of root until stop is called.
	Observe(ctx context.Context, root entity.NodeRef, fn MutationFunc) (stop func(), err error)
}

// DocumentNotifier is implemented by pages whose document can be replaced
// while the blocker runs, e.g. by a reload.
type DocumentNotifier interface {
	// DocumentReplaced returns a channel closed once the current document is
	// gone. Node refs taken from it must not be used afterwards.
	DocumentReplaced() <-chan struct{}
}
