package chromedp_page

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"github.com/user/ghibli-blocker/internal/entity"
	"github.com/user/ghibli-blocker/internal/repository"
	"github.com/user/ghibli-blocker/pkg/logger"
)

const unobserveTimeout = 2 * time.Second

// lookupResult is what helper lookups return instead of null.
type lookupResult struct {
	Found bool   `json:"found"`
	Value string `json:"value"`
}

type mutationBatch struct {
	Watch string           `json:"watch"`
	Added []entity.NodeRef `json:"added"`
}

// Page is a PageRepository backed by a live tab.
type Page struct {
	tab    context.Context
	logger *slog.Logger

	mu       sync.Mutex
	watchers map[string]*watcher
	watchSeq uint64
	docDone  chan struct{}
}

var (
	_ repository.PageRepository   = (*Page)(nil)
	_ repository.DocumentNotifier = (*Page)(nil)
)

// NewPage installs the helper script and the mutation binding in tab. The
// script is also registered for every future document of the tab.
func NewPage(tab context.Context) (*Page, error) {
	p := newPage(tab)

	chromedp.ListenTarget(tab, func(ev any) {
		switch e := ev.(type) {
		case *runtime.EventBindingCalled:
			if e.Name == bindingName {
				p.deliver(e.Payload)
			}
		case *page.EventFrameNavigated:
			if e.Frame != nil && e.Frame.ParentID == "" {
				p.replaceDocument(e.Frame.URL)
			}
		}
	})

	err := chromedp.Run(tab,
		chromedp.ActionFunc(func(ctx context.Context) error {
			if err := runtime.AddBinding(bindingName).Do(ctx); err != nil {
				return fmt.Errorf("add binding: %w", err)
			}
			if _, err := page.AddScriptToEvaluateOnNewDocument(helperScript).Do(ctx); err != nil {
				return fmt.Errorf("register helper script: %w", err)
			}
			return nil
		}),
		chromedp.Evaluate(helperScript, nil),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare page: %w", err)
	}

	context.AfterFunc(tab, p.closeWatchers)
	return p, nil
}

func newPage(tab context.Context) *Page {
	return &Page{
		tab:      tab,
		logger:   logger.Component("page"),
		watchers: make(map[string]*watcher),
		docDone:  make(chan struct{}),
	}
}

// DocumentReplaced returns a channel closed when the main frame commits a new
// document. Element ids handed out before that are no longer valid.
func (p *Page) DocumentReplaced() <-chan struct{} {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.docDone
}

// replaceDocument runs on the CDP event loop. Observers died with the old
// document, so their watchers are closed.
func (p *Page) replaceDocument(url string) {
	p.mu.Lock()
	done := p.docDone
	p.docDone = make(chan struct{})
	p.mu.Unlock()

	p.closeWatchers()
	close(done)
	p.logger.Info("Main frame navigated", "url", url)
}

// Navigate loads url in the tab and waits for the body to be ready.
func (p *Page) Navigate(ctx context.Context, url string) error {
	p.logger.Info("Navigating", "url", url)
	return p.run(ctx, chromedp.Navigate(url), chromedp.WaitReady("body", chromedp.ByQuery))
}

// run executes actions on the tab, aborting when either ctx or the tab ends.
func (p *Page) run(ctx context.Context, actions ...chromedp.Action) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	runCtx, cancel := context.WithCancel(p.tab)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	err := chromedp.Run(runCtx, actions...)
	if err != nil && ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

// call invokes window.__ngb[fn] with JSON-encoded args and decodes the result into res.
func (p *Page) call(ctx context.Context, res any, fn string, args ...any) error {
	expr, err := callExpression(fn, args...)
	if err != nil {
		return err
	}
	return mapError(p.run(ctx, chromedp.Evaluate(expr, res)))
}

func callExpression(fn string, args ...any) (string, error) {
	if args == nil {
		args = []any{}
	}
	encoded, err := json.Marshal(args)
	if err != nil {
		return "", fmt.Errorf("encode %s arguments: %w", fn, err)
	}
	return fmt.Sprintf("window.%s.%s(...%s)", helperName, fn, encoded), nil
}

// mapError turns helper "node not found" exceptions into ErrNodeNotFound.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if strings.Contains(err.Error(), "ngb: node not found") {
		return fmt.Errorf("%w: %v", repository.ErrNodeNotFound, err)
	}
	return err
}

func (p *Page) Find(ctx context.Context, selector string) (entity.NodeRef, bool, error) {
	var res lookupResult
	if err := p.call(ctx, &res, "find", selector); err != nil {
		return "", false, err
	}
	return entity.NodeRef(res.Value), res.Found, nil
}

func (p *Page) QueryAll(ctx context.Context, root entity.NodeRef, selector string) ([]entity.NodeRef, error) {
	var refs []entity.NodeRef
	if err := p.call(ctx, &refs, "queryAll", root, selector); err != nil {
		return nil, err
	}
	return refs, nil
}

func (p *Page) Matches(ctx context.Context, node entity.NodeRef, selector string) (bool, error) {
	var ok bool
	err := p.call(ctx, &ok, "matches", node, selector)
	return ok, err
}

func (p *Page) Closest(ctx context.Context, node entity.NodeRef, selector string) (entity.NodeRef, bool, error) {
	var res lookupResult
	if err := p.call(ctx, &res, "closest", node, selector); err != nil {
		return "", false, err
	}
	return entity.NodeRef(res.Value), res.Found, nil
}

func (p *Page) URLAttribute(ctx context.Context, node entity.NodeRef, name string) (string, bool, error) {
	var res lookupResult
	if err := p.call(ctx, &res, "urlAttr", node, name); err != nil {
		return "", false, err
	}
	return res.Value, res.Found, nil
}

func (p *Page) StyleProperty(ctx context.Context, node entity.NodeRef, property string) (string, error) {
	var value string
	err := p.call(ctx, &value, "style", node, property)
	return value, err
}

func (p *Page) Remove(ctx context.Context, node entity.NodeRef) error {
	return p.call(ctx, nil, "remove", node)
}

func (p *Page) AttachOverlay(ctx context.Context, node entity.NodeRef, overlay entity.Overlay) (entity.NodeRef, error) {
	var ref entity.NodeRef
	if err := p.call(ctx, &ref, "overlay", node, overlay.Caption, overlay.Style); err != nil {
		return "", err
	}
	return ref, nil
}

// Observe starts a MutationObserver in the page. Batches are handed to fn on
// a goroutine owned by the watcher, in arrival order.
func (p *Page) Observe(ctx context.Context, root entity.NodeRef, fn repository.MutationFunc) (func(), error) {
	id, w := p.addWatcher(fn)
	go w.dispatch()

	if err := p.call(ctx, nil, "observe", id, root); err != nil {
		p.dropWatcher(id)
		return nil, err
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			p.dropWatcher(id)
			ctx, cancel := context.WithTimeout(context.Background(), unobserveTimeout)
			defer cancel()
			if err := p.call(ctx, nil, "unobserve", id); err != nil {
				p.logger.Debug("Failed to disconnect observer", "watch", id, "error", err)
			}
		})
	}, nil
}

func (p *Page) addWatcher(fn repository.MutationFunc) (string, *watcher) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.watchSeq++
	id := "w" + strconv.FormatUint(p.watchSeq, 10)
	w := newWatcher(fn)
	p.watchers[id] = w
	return id, w
}

func (p *Page) dropWatcher(id string) {
	p.mu.Lock()
	w, ok := p.watchers[id]
	delete(p.watchers, id)
	p.mu.Unlock()
	if ok {
		w.close()
	}
}

func (p *Page) closeWatchers() {
	p.mu.Lock()
	ws := p.watchers
	p.watchers = make(map[string]*watcher)
	p.mu.Unlock()
	for _, w := range ws {
		w.close()
	}
}

// deliver runs on the CDP event loop and must not block.
func (p *Page) deliver(payload string) {
	var batch mutationBatch
	if err := json.Unmarshal([]byte(payload), &batch); err != nil {
		p.logger.Warn("Discarding malformed mutation batch", "error", err)
		return
	}
	p.mu.Lock()
	w := p.watchers[batch.Watch]
	p.mu.Unlock()
	if w == nil || len(batch.Added) == 0 {
		return
	}
	w.push(batch.Added)
}

type watcher struct {
	fn repository.MutationFunc

	mu      sync.Mutex
	pending [][]entity.NodeRef

	wake      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

func newWatcher(fn repository.MutationFunc) *watcher {
	return &watcher{
		fn:   fn,
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
}

func (w *watcher) push(added []entity.NodeRef) {
	w.mu.Lock()
	w.pending = append(w.pending, added)
	w.mu.Unlock()
	select {
	case w.wake <- struct{}{}:
	default:
	}
}

func (w *watcher) close() {
	w.closeOnce.Do(func() { close(w.done) })
}

func (w *watcher) dispatch() {
	for {
		select {
		case <-w.done:
			return
		case <-w.wake:
		}
		for {
			w.mu.Lock()
			batches := w.pending
			w.pending = nil
			w.mu.Unlock()
			if len(batches) == 0 {
				break
			}
			for _, added := range batches {
				select {
				case <-w.done:
					return
				default:
				}
				w.fn(added)
			}
		}
	}
}
