package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/user/ghibli-blocker/internal/entity"
	"github.com/user/ghibli-blocker/internal/repository"
	"github.com/user/ghibli-blocker/pkg/logger"
)

// DefaultTimelineRetry is the delay between attempts to find the timeline.
const DefaultTimelineRetry = time.Second

var ErrTimelineNotFound = errors.New("timeline not found")

// PostSubmitter accepts posts for processing.
type PostSubmitter interface {
	Submit(ctx context.Context, post entity.NodeRef) error
}

// ObserverConfig tunes the timeline observer.
type ObserverConfig struct {
	Retry time.Duration
	// SweepExisting submits the posts already rendered when observation starts.
	SweepExisting bool
}

// TimelineObserver feeds newly inserted posts to a PostSubmitter.
type TimelineObserver struct {
	page      repository.PageRepository
	submitter PostSubmitter
	dom       DOMContract
	cfg       ObserverConfig
	logger    *slog.Logger
}

func NewTimelineObserver(page repository.PageRepository, submitter PostSubmitter, dom DOMContract, cfg ObserverConfig) *TimelineObserver {
	if cfg.Retry <= 0 {
		cfg.Retry = DefaultTimelineRetry
	}
	return &TimelineObserver{
		page:      page,
		submitter: submitter,
		dom:       dom,
		cfg:       cfg,
		logger:    logger.Component("timeline_observer"),
	}
}

// WaitForTimeline polls for the timeline landmark until it exists or ctx is done.
// A missing timeline is a readiness gate, not an error.
func (o *TimelineObserver) WaitForTimeline(ctx context.Context) (entity.NodeRef, error) {
	for {
		ref, ok, err := o.page.Find(ctx, o.dom.TimelineSelector)
		switch {
		case err != nil && ctx.Err() != nil:
			return "", ctx.Err()
		case err != nil:
			o.logger.Warn("Timeline lookup failed, retrying", "retry_in", o.cfg.Retry, "error", err)
		case ok:
			return ref, nil
		default:
			o.logger.Info("Timeline not found, retrying", "retry_in", o.cfg.Retry)
		}

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(o.cfg.Retry):
		}
	}
}

// Run attaches to the timeline and submits every post inserted under it until
// ctx is done. It attaches again whenever the page loads a new document or
// the timeline element is swapped out.
func (o *TimelineObserver) Run(ctx context.Context) error {
	for {
		replaced := o.documentReplaced()
		timeline, err := o.WaitForTimeline(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}

		err = o.attach(ctx, timeline, replaced)
		switch {
		case ctx.Err() != nil:
			o.logger.Info("Stopped observing timeline")
			return nil
		case errors.Is(err, repository.ErrNodeNotFound):
			o.logger.Warn("Timeline vanished before it could be observed, retrying", "retry_in", o.cfg.Retry)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(o.cfg.Retry):
			}
		case err != nil:
			return err
		}
	}
}

// attach observes timeline until ctx is done, replaced is closed or the
// timeline is no longer the element the selector finds.
func (o *TimelineObserver) attach(ctx context.Context, timeline entity.NodeRef, replaced <-chan struct{}) error {
	seen := newPostSet()
	stop, err := o.page.Observe(ctx, timeline, func(added []entity.NodeRef) {
		o.handleBatch(ctx, added, seen)
	})
	if err != nil {
		return fmt.Errorf("failed to observe timeline: %w", err)
	}
	defer stop()
	o.logger.Info("Started observing timeline", "selector", o.dom.TimelineSelector, "timeline", timeline)

	if o.cfg.SweepExisting {
		if _, err := o.sweep(ctx, timeline, seen); err != nil {
			o.logger.Warn("Initial sweep failed", "error", err)
		}
	}

	ticker := time.NewTicker(o.cfg.Retry)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-replaced:
			o.logger.Info("Document replaced, reattaching to timeline")
			return nil
		case <-ticker.C:
			current, ok, err := o.page.Find(ctx, o.dom.TimelineSelector)
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				o.logger.Debug("Timeline check failed", "error", err)
				continue
			}
			if !ok || current != timeline {
				o.logger.Info("Timeline replaced, reattaching", "previous", timeline, "current", current)
				return nil
			}
		}
	}
}

// documentReplaced returns nil when the page never replaces its document.
func (o *TimelineObserver) documentReplaced() <-chan struct{} {
	if n, ok := o.page.(repository.DocumentNotifier); ok {
		return n.DocumentReplaced()
	}
	return nil
}

// Sweep submits every post currently under the timeline and returns how many
// were submitted.
func (o *TimelineObserver) Sweep(ctx context.Context) (int, error) {
	timeline, ok, err := o.page.Find(ctx, o.dom.TimelineSelector)
	if err != nil {
		return 0, fmt.Errorf("failed to find timeline: %w", err)
	}
	if !ok {
		return 0, ErrTimelineNotFound
	}
	return o.sweep(ctx, timeline, newPostSet())
}

func (o *TimelineObserver) sweep(ctx context.Context, timeline entity.NodeRef, seen *postSet) (int, error) {
	posts, err := o.page.QueryAll(ctx, timeline, o.dom.PostSelector)
	if err != nil {
		return 0, fmt.Errorf("failed to query posts: %w", err)
	}
	submitted := 0
	for _, post := range posts {
		if !seen.claim(post) {
			continue
		}
		if err := o.submitter.Submit(ctx, post); err != nil {
			return submitted, err
		}
		submitted++
	}
	return submitted, nil
}

// handleBatch submits each post found in a mutation batch unless it was
// already submitted during this attachment. A failure on one node does not
// stop the rest of the batch.
func (o *TimelineObserver) handleBatch(ctx context.Context, added []entity.NodeRef, seen *postSet) {
	for _, node := range added {
		posts, err := o.postsWithin(ctx, node)
		if err != nil {
			o.logger.Debug("Skipping added node", "node", node, "error", err)
			continue
		}
		for _, post := range posts {
			if !seen.claim(post) {
				continue
			}
			if err := o.submitter.Submit(ctx, post); err != nil {
				o.logger.Warn("Failed to submit post", "post", post, "error", err)
				if ctx.Err() != nil {
					return
				}
			}
		}
	}
}

// postSet records the posts submitted while attached to one timeline. The
// sweep and the mutation callback run on different goroutines.
type postSet struct {
	mu   sync.Mutex
	refs map[entity.NodeRef]struct{}
}

func newPostSet() *postSet {
	return &postSet{refs: make(map[entity.NodeRef]struct{})}
}

// claim reports whether post was not in the set, adding it.
func (s *postSet) claim(post entity.NodeRef) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.refs[post]; ok {
		return false
	}
	s.refs[post] = struct{}{}
	return true
}

// postsWithin returns node itself if it is a post, followed by its descendant posts.
func (o *TimelineObserver) postsWithin(ctx context.Context, node entity.NodeRef) ([]entity.NodeRef, error) {
	var posts []entity.NodeRef
	self, err := o.page.Matches(ctx, node, o.dom.PostSelector)
	if err != nil {
		return nil, err
	}
	if self {
		posts = append(posts, node)
	}
	inner, err := o.page.QueryAll(ctx, node, o.dom.PostSelector)
	if err != nil {
		return nil, err
	}
	return append(posts, inner...), nil
}
