package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/user/ghibli-blocker/internal/entity"
	"github.com/user/ghibli-blocker/internal/repository"
	"github.com/user/ghibli-blocker/pkg/logger"
	"github.com/user/ghibli-blocker/pkg/metrics"
	"golang.org/x/sync/errgroup"
)

// DefaultMediaWait bounds how long a media container may take to render its image.
const DefaultMediaWait = 5 * time.Second

// MediaExtractor collects candidate media URLs from a post.
type MediaExtractor struct {
	page   repository.PageRepository
	dom    DOMContract
	wait   time.Duration
	logger *slog.Logger
}

func NewMediaExtractor(page repository.PageRepository, dom DOMContract, wait time.Duration) *MediaExtractor {
	if wait <= 0 {
		wait = DefaultMediaWait
	}
	return &MediaExtractor{
		page:   page,
		dom:    dom,
		wait:   wait,
		logger: logger.Component("media_extractor"),
	}
}

// Extract returns the normalized, filtered and deduplicated media URLs of post,
// in discovery order: photo links, video regions, then background images.
func (e *MediaExtractor) Extract(ctx context.Context, post entity.NodeRef) ([]string, error) {
	links, err := e.page.QueryAll(ctx, post, e.dom.PhotoLinkSelector)
	if err != nil {
		return nil, fmt.Errorf("failed to query photo links: %w", err)
	}
	videos, err := e.page.QueryAll(ctx, post, e.dom.VideoSelector)
	if err != nil {
		return nil, fmt.Errorf("failed to query video regions: %w", err)
	}
	containers := append(links, videos...)

	// Waits run concurrently; the slot per container keeps discovery order.
	found := make([]string, len(containers))
	g, gctx := errgroup.WithContext(ctx)
	for i, container := range containers {
		g.Go(func() error {
			if src, ok := e.awaitImage(gctx, container); ok {
				found[i] = src
			}
			return nil
		})
	}
	_ = g.Wait()

	raw := make([]string, 0, len(found))
	for _, src := range found {
		if src != "" {
			raw = append(raw, src)
		}
	}

	styled, err := e.page.QueryAll(ctx, post, e.dom.BackgroundSelector)
	if err != nil {
		return nil, fmt.Errorf("failed to query background images: %w", err)
	}
	for _, el := range styled {
		value, err := e.page.StyleProperty(ctx, el, "background-image")
		if err != nil {
			e.logger.Debug("Skipping unreadable background image", "node", el, "error", err)
			continue
		}
		if u, ok := BackgroundImageURL(value); ok && strings.Contains(u, e.dom.MediaHost) {
			raw = append(raw, u)
		}
	}

	urls := FinalizeCandidates(raw, e.dom.AcceptedMarkers)
	metrics.MediaCandidates.Observe(float64(len(urls)))
	if len(urls) == 0 {
		e.logger.Warn("No media URLs found in post", "post", post, "containers", len(containers), "styled", len(styled))
	} else {
		e.logger.Debug("Media URLs extracted", "post", post, "urls", urls)
	}
	return urls, nil
}

// awaitImage waits until container holds a draggable image or the wait
// elapses. The watcher is stopped on every return path.
func (e *MediaExtractor) awaitImage(ctx context.Context, container entity.NodeRef) (string, bool) {
	start := time.Now()
	ready := make(chan entity.NodeRef, 1)
	check := func() {
		imgs, err := e.page.QueryAll(ctx, container, e.dom.ImageSelector)
		if err != nil || len(imgs) == 0 {
			return
		}
		select {
		case ready <- imgs[0]:
		default:
		}
	}

	stop, err := e.page.Observe(ctx, container, func([]entity.NodeRef) { check() })
	if err != nil {
		e.logger.Debug("Failed to watch media container", "node", container, "error", err)
		metrics.MediaWaitDuration.WithLabelValues("error").Observe(time.Since(start).Seconds())
		return "", false
	}
	defer stop()

	// The image may have rendered before the watcher was attached.
	check()

	timer := time.NewTimer(e.wait)
	defer timer.Stop()

	var img entity.NodeRef
	select {
	case img = <-ready:
		metrics.MediaWaitDuration.WithLabelValues("ready").Observe(time.Since(start).Seconds())
	case <-timer.C:
		metrics.MediaWaitDuration.WithLabelValues("timeout").Observe(time.Since(start).Seconds())
		e.logger.Debug("Timed out waiting for media", "node", container, "wait", e.wait)
		return "", false
	case <-ctx.Done():
		metrics.MediaWaitDuration.WithLabelValues("cancelled").Observe(time.Since(start).Seconds())
		return "", false
	}

	src, ok, err := e.page.URLAttribute(ctx, img, "src")
	if err != nil || !ok {
		return "", false
	}
	if !strings.Contains(src, e.dom.MediaHost) {
		return "", false
	}
	return src, true
}
