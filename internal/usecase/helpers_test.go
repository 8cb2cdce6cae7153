package usecase

import (
	"context"
	"errors"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/user/ghibli-blocker/internal/adapter/htmldom"
	"github.com/user/ghibli-blocker/internal/adapter/memory"
	"github.com/user/ghibli-blocker/internal/entity"
	"github.com/user/ghibli-blocker/internal/repository"
)

// observingPage counts live watchers, records observed roots and signals the
// first Observe. afterObserve, when set, runs once the watcher is registered.
type observingPage struct {
	*htmldom.Document

	mu       sync.Mutex
	active   int
	roots    []entity.NodeRef
	queries  int
	observed chan struct{}
	once     sync.Once

	removeErr    error
	afterObserve func()
}

func newPage(t *testing.T, html string) *observingPage {
	t.Helper()
	doc, err := htmldom.ParseString(html, "https://x.com/")
	if err != nil {
		t.Fatalf("parse fixture: %v", err)
	}
	return &observingPage{Document: doc, observed: make(chan struct{})}
}

func (p *observingPage) Observe(ctx context.Context, root entity.NodeRef, fn repository.MutationFunc) (func(), error) {
	stop, err := p.Document.Observe(ctx, root, fn)
	if err != nil {
		return nil, err
	}
	p.mu.Lock()
	p.active++
	p.roots = append(p.roots, root)
	hook := p.afterObserve
	p.mu.Unlock()
	if hook != nil {
		hook()
	}
	p.once.Do(func() { close(p.observed) })

	var once sync.Once
	return func() {
		once.Do(func() {
			stop()
			p.mu.Lock()
			p.active--
			p.mu.Unlock()
		})
	}, nil
}

func (p *observingPage) QueryAll(ctx context.Context, root entity.NodeRef, selector string) ([]entity.NodeRef, error) {
	p.mu.Lock()
	p.queries++
	p.mu.Unlock()
	return p.Document.QueryAll(ctx, root, selector)
}

// touched reports how many QueryAll and Observe calls the page has served.
func (p *observingPage) touched() (queries, observes int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.queries, len(p.roots)
}

func (p *observingPage) Remove(ctx context.Context, node entity.NodeRef) error {
	if p.removeErr != nil {
		return p.removeErr
	}
	return p.Document.Remove(ctx, node)
}

func (p *observingPage) activeWatchers() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.active
}

// waitObserving blocks until root has been observed.
func (p *observingPage) waitObserving(t *testing.T, root entity.NodeRef) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		p.mu.Lock()
		found := slices.Contains(p.roots, root)
		p.mu.Unlock()
		if found {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("%s was never observed", root)
}

func (p *observingPage) mustFind(t *testing.T, selector string) entity.NodeRef {
	t.Helper()
	ref, ok, err := p.Find(context.Background(), selector)
	if err != nil || !ok {
		t.Fatalf("Find(%q) = %v, %v", selector, ok, err)
	}
	return ref
}

// fakeClassifier flags URLs listed in flagged and records every call.
type fakeClassifier struct {
	mu      sync.Mutex
	flagged map[string]bool
	calls   []string
}

func newFakeClassifier(flagged ...string) *fakeClassifier {
	c := &fakeClassifier{flagged: make(map[string]bool)}
	for _, u := range flagged {
		c.flagged[u] = true
	}
	return c
}

func (c *fakeClassifier) Classify(_ context.Context, imageURL string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, imageURL)
	return c.flagged[imageURL]
}

func (c *fakeClassifier) Calls() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.calls...)
}

// failingPrefs wraps a store whose increments fail.
type failingPrefs struct {
	*memory.PreferenceRepoImpl
}

func (failingPrefs) IncrementBlocked(context.Context) (uint64, error) {
	return 0, errors.New("store unavailable")
}

type pipeline struct {
	page       *observingPage
	classifier *fakeClassifier
	store      *memory.PreferenceRepoImpl
	blockLog   *memory.BlockLogRepoImpl
	state      *State
	processor  *TweetProcessor
}

func newPipeline(t *testing.T, html string, prefs entity.Preferences, flagged ...string) *pipeline {
	t.Helper()
	p := &pipeline{
		page:       newPage(t, html),
		classifier: newFakeClassifier(flagged...),
		store:      memory.NewPreferenceRepo(prefs),
		blockLog:   memory.NewBlockLogRepo(0),
		state:      NewState(prefs),
	}
	dom := DefaultDOMContract()
	extractor := NewMediaExtractor(p.page, dom, 50*time.Millisecond)
	engine := NewDecisionEngine(p.page, p.store, p.blockLog, p.state)
	p.processor = NewTweetProcessor(p.page, extractor, p.classifier, engine, p.state, dom)
	return p
}

func (p *pipeline) blockedCount(t *testing.T) uint64 {
	t.Helper()
	prefs, err := p.store.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	return prefs.BlockedCount
}

const timelineHTML = `<html><body>
<main>
  <div id="feed">
    <article id="p1">
      <a href="/totoro/status/1"><time>1h</time></a>
      <a id="photo1" href="/totoro/status/1/photo/1"><div><img draggable="true" src="https://pbs.twimg.com/media/forest.jpg?name=small"></div></a>
      <a id="photo2" href="/totoro/status/1/photo/2"><div><img draggable="true" src="https://pbs.twimg.com/media/bus.jpg"></div></a>
    </article>
    <article id="p2">
      <a href="/dog/status/2"><time>2h</time></a>
      <a href="/dog/status/2/photo/1"><div><img draggable="true" src="https://pbs.twimg.com/media/dog.jpg"></div></a>
    </article>
    <article id="p3"><p>text only</p></article>
  </div>
</main>
</body></html>`

const (
	forestURL = "https://pbs.twimg.com/media/forest.jpg?name=small"
	busURL    = "https://pbs.twimg.com/media/bus.jpg"
	dogURL    = "https://pbs.twimg.com/media/dog.jpg"
)
