package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/user/ghibli-blocker/internal/entity"
	"github.com/user/ghibli-blocker/internal/repository"
	"github.com/user/ghibli-blocker/pkg/logger"
	"github.com/user/ghibli-blocker/pkg/metrics"
)

// TweetProcessor runs one post through extraction, classification and the
// decision engine.
type TweetProcessor struct {
	page       repository.PageRepository
	extractor  *MediaExtractor
	classifier repository.ClassifierRepository
	engine     *DecisionEngine
	state      *State
	dom        DOMContract
	logger     *slog.Logger
}

func NewTweetProcessor(
	page repository.PageRepository,
	extractor *MediaExtractor,
	classifier repository.ClassifierRepository,
	engine *DecisionEngine,
	state *State,
	dom DOMContract,
) *TweetProcessor {
	return &TweetProcessor{
		page:       page,
		extractor:  extractor,
		classifier: classifier,
		engine:     engine,
		state:      state,
		dom:        dom,
		logger:     logger.Component("tweet_processor"),
	}
}

// Process checks the enabled flag at call time, then classifies the post's
// media one URL at a time and acts on the first flagged one.
func (p *TweetProcessor) Process(ctx context.Context, post entity.NodeRef) (entity.Outcome, error) {
	outcome, err := p.process(ctx, post)
	metrics.PostsProcessed.WithLabelValues(string(outcome)).Inc()
	return outcome, err
}

func (p *TweetProcessor) process(ctx context.Context, post entity.NodeRef) (entity.Outcome, error) {
	if !p.state.Enabled() {
		p.logger.Debug("Post processing skipped, blocking is disabled", "post", post)
		return entity.OutcomeSkipped, nil
	}

	urls, err := p.extractor.Extract(ctx, post)
	if err != nil {
		return entity.OutcomeFailed, fmt.Errorf("failed to extract media for %s: %w", post, err)
	}
	if len(urls) == 0 {
		return entity.OutcomeNoMedia, nil
	}

	for _, u := range urls {
		flagged := p.classifier.Classify(ctx, u)
		p.logger.Debug("Image classified", "post", post, "url", u, "flagged", flagged)
		if !flagged {
			continue
		}

		container, ok, err := p.page.Closest(ctx, post, p.dom.PostSelector)
		if err != nil {
			return entity.OutcomeFailed, fmt.Errorf("failed to locate container for %s: %w", post, err)
		}
		if !ok {
			p.logger.Info("Could not find post container to act on", "post", post, "url", u)
			return entity.OutcomeNoContainer, nil
		}

		decision := Decision{
			Post:      post,
			Container: container,
			PostURL:   p.permalink(ctx, post),
			MediaURL:  u,
		}
		if _, err := p.engine.Apply(ctx, decision); err != nil {
			return entity.OutcomeFailed, err
		}
		return entity.OutcomeBlocked, nil
	}
	return entity.OutcomePassed, nil
}

// permalink returns the post's status URL, or "" when it cannot be found.
func (p *TweetProcessor) permalink(ctx context.Context, post entity.NodeRef) string {
	links, err := p.page.QueryAll(ctx, post, p.dom.PermalinkSelector)
	if err != nil || len(links) == 0 {
		return ""
	}
	href, ok, err := p.page.URLAttribute(ctx, links[0], "href")
	if err != nil || !ok {
		return ""
	}
	return href
}
