package htmldom

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strconv"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"github.com/user/ghibli-blocker/internal/entity"
	"github.com/user/ghibli-blocker/internal/repository"
	"github.com/user/ghibli-blocker/pkg/utils"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// overlayAttr marks overlay elements so Click can dismiss them.
const overlayAttr = "data-ngb-overlay"

// Document is a PageRepository over a parsed HTML snapshot. Mutation
// observers are notified synchronously, after the document lock is released.
type Document struct {
	mu   sync.Mutex
	doc  *goquery.Document
	base *url.URL

	refs  map[*html.Node]entity.NodeRef
	nodes map[entity.NodeRef]*html.Node
	seq   uint64

	watchers map[uint64]*watcher
	watchSeq uint64
	docDone  chan struct{}
}

type watcher struct {
	root *html.Node
	fn   repository.MutationFunc
}

var (
	_ repository.PageRepository   = (*Document)(nil)
	_ repository.DocumentNotifier = (*Document)(nil)
)

// Parse reads an HTML document. baseURL, when set, resolves relative href/src values.
func Parse(r io.Reader, baseURL string) (*Document, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse html: %w", err)
	}
	d := &Document{
		doc:      doc,
		refs:     make(map[*html.Node]entity.NodeRef),
		nodes:    make(map[entity.NodeRef]*html.Node),
		watchers: make(map[uint64]*watcher),
		docDone:  make(chan struct{}),
	}
	if baseURL != "" {
		base, err := url.Parse(baseURL)
		if err != nil {
			return nil, fmt.Errorf("invalid base url %q: %w", baseURL, err)
		}
		d.base = base
	}
	return d, nil
}

// ParseString is Parse over a string.
func ParseString(s, baseURL string) (*Document, error) {
	return Parse(strings.NewReader(s), baseURL)
}

// Reload replaces the whole document with the one read from r, like a page
// load. Refs into the old document stop resolving and its observers are dropped.
func (d *Document) Reload(r io.Reader) error {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return fmt.Errorf("failed to parse html: %w", err)
	}

	d.mu.Lock()
	d.doc = doc
	d.refs = make(map[*html.Node]entity.NodeRef)
	d.nodes = make(map[entity.NodeRef]*html.Node)
	d.watchers = make(map[uint64]*watcher)
	done := d.docDone
	d.docDone = make(chan struct{})
	d.mu.Unlock()

	close(done)
	return nil
}

// DocumentReplaced returns a channel closed by the next Reload.
func (d *Document) DocumentReplaced() <-chan struct{} {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.docDone
}

func (d *Document) refOf(n *html.Node) entity.NodeRef {
	if ref, ok := d.refs[n]; ok {
		return ref
	}
	d.seq++
	ref := entity.NodeRef("n" + strconv.FormatUint(d.seq, 10))
	d.refs[n] = ref
	d.nodes[ref] = n
	return ref
}

func (d *Document) lookup(ctx context.Context, ref entity.NodeRef) (*html.Node, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	n, ok := d.nodes[ref]
	if !ok {
		return nil, fmt.Errorf("%w: %s", repository.ErrNodeNotFound, ref)
	}
	return n, nil
}

func selection(n *html.Node) *goquery.Selection {
	return goquery.NewDocumentFromNode(n).Selection
}

// Find returns the first element in the document matching selector.
func (d *Document) Find(ctx context.Context, selector string) (entity.NodeRef, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	s := d.doc.Find(selector).First()
	if s.Length() == 0 {
		return "", false, nil
	}
	return d.refOf(s.Get(0)), true, nil
}

// QueryAll returns the descendants of root matching selector, in document order.
func (d *Document) QueryAll(ctx context.Context, root entity.NodeRef, selector string) ([]entity.NodeRef, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	n, err := d.lookup(ctx, root)
	if err != nil {
		return nil, err
	}
	found := selection(n).Find(selector)
	refs := make([]entity.NodeRef, 0, found.Length())
	for _, m := range found.Nodes {
		refs = append(refs, d.refOf(m))
	}
	return refs, nil
}

// Matches reports whether node itself matches selector.
func (d *Document) Matches(ctx context.Context, node entity.NodeRef, selector string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	n, err := d.lookup(ctx, node)
	if err != nil {
		return false, err
	}
	return selection(n).Is(selector), nil
}

// Closest returns the nearest ancestor-or-self of node matching selector.
func (d *Document) Closest(ctx context.Context, node entity.NodeRef, selector string) (entity.NodeRef, bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	n, err := d.lookup(ctx, node)
	if err != nil {
		return "", false, err
	}
	match := selection(n).Closest(selector)
	if match.Length() == 0 {
		return "", false, nil
	}
	return d.refOf(match.Get(0)), true, nil
}

// URLAttribute returns the attribute resolved against the document base URL.
func (d *Document) URLAttribute(ctx context.Context, node entity.NodeRef, name string) (string, bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	n, err := d.lookup(ctx, node)
	if err != nil {
		return "", false, err
	}
	raw, ok := selection(n).Attr(name)
	if !ok {
		return "", false, nil
	}
	abs, err := utils.ToAbsoluteURL(d.base, raw)
	if err != nil {
		// Browsers hand back the raw value for unparsable URLs.
		return raw, true, nil
	}
	return abs, true, nil
}

// StyleProperty returns the value of an inline style declaration.
func (d *Document) StyleProperty(ctx context.Context, node entity.NodeRef, property string) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	n, err := d.lookup(ctx, node)
	if err != nil {
		return "", err
	}
	style, _ := selection(n).Attr("style")
	return styleValue(style, property), nil
}

func styleValue(style, property string) string {
	for _, decl := range strings.Split(style, ";") {
		name, value, ok := strings.Cut(decl, ":")
		if !ok {
			continue
		}
		if strings.EqualFold(strings.TrimSpace(name), property) {
			return strings.TrimSpace(value)
		}
	}
	return ""
}

// Remove detaches node from its parent. Removing a detached node is a no-op.
func (d *Document) Remove(ctx context.Context, node entity.NodeRef) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	n, err := d.lookup(ctx, node)
	if err != nil {
		return err
	}
	if n.Parent != nil {
		n.Parent.RemoveChild(n)
	}
	return nil
}

// AttachOverlay makes node a positioning context and appends an overlay child.
func (d *Document) AttachOverlay(ctx context.Context, node entity.NodeRef, overlay entity.Overlay) (entity.NodeRef, error) {
	d.mu.Lock()
	n, err := d.lookup(ctx, node)
	if err != nil {
		d.mu.Unlock()
		return "", err
	}

	style, _ := selection(n).Attr("style")
	if styleValue(style, "position") == "" {
		setAttr(n, "style", strings.TrimSpace(style+" position: relative;"))
	}

	ov := &html.Node{
		Type:     html.ElementNode,
		Data:     "div",
		DataAtom: atom.Div,
		Attr: []html.Attribute{
			{Key: overlayAttr, Val: "true"},
			{Key: "role", Val: "button"},
			{Key: "style", Val: overlay.Style},
		},
	}
	ov.AppendChild(&html.Node{Type: html.TextNode, Data: overlay.Caption})
	n.AppendChild(ov)
	ref := d.refOf(ov)
	targets := d.watchersFor(n)
	d.mu.Unlock()

	notify(targets, []entity.NodeRef{ref})
	return ref, nil
}

func setAttr(n *html.Node, key, val string) {
	for i := range n.Attr {
		if n.Attr[i].Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}

// Observe registers fn for element nodes added anywhere under root.
func (d *Document) Observe(ctx context.Context, root entity.NodeRef, fn repository.MutationFunc) (func(), error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	n, err := d.lookup(ctx, root)
	if err != nil {
		return nil, err
	}
	d.watchSeq++
	id := d.watchSeq
	d.watchers[id] = &watcher{root: n, fn: fn}

	var once sync.Once
	return func() {
		once.Do(func() {
			d.mu.Lock()
			delete(d.watchers, id)
			d.mu.Unlock()
		})
	}, nil
}

// watchersFor returns the callbacks whose root is parent or one of its ancestors.
// Callers hold d.mu.
func (d *Document) watchersFor(parent *html.Node) []repository.MutationFunc {
	var fns []repository.MutationFunc
	for _, w := range d.watchers {
		for x := parent; x != nil; x = x.Parent {
			if x == w.root {
				fns = append(fns, w.fn)
				break
			}
		}
	}
	return fns
}

func notify(fns []repository.MutationFunc, added []entity.NodeRef) {
	if len(added) == 0 {
		return
	}
	for _, fn := range fns {
		fn(added)
	}
}

// AppendHTML parses fragment in the context of parent, appends the result and
// notifies observers with the added element nodes.
func (d *Document) AppendHTML(ctx context.Context, parent entity.NodeRef, fragment string) ([]entity.NodeRef, error) {
	d.mu.Lock()
	p, err := d.lookup(ctx, parent)
	if err != nil {
		d.mu.Unlock()
		return nil, err
	}
	if p.Type != html.ElementNode {
		d.mu.Unlock()
		return nil, fmt.Errorf("cannot append to non-element node %s", parent)
	}
	children, err := html.ParseFragment(strings.NewReader(fragment), p)
	if err != nil {
		d.mu.Unlock()
		return nil, fmt.Errorf("failed to parse fragment: %w", err)
	}
	var added []entity.NodeRef
	for _, c := range children {
		p.AppendChild(c)
		if c.Type == html.ElementNode {
			added = append(added, d.refOf(c))
		}
	}
	targets := d.watchersFor(p)
	d.mu.Unlock()

	notify(targets, added)
	return added, nil
}

// Click dispatches a click on node. Only overlays react: they remove themselves.
func (d *Document) Click(ctx context.Context, node entity.NodeRef) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	n, err := d.lookup(ctx, node)
	if err != nil {
		return err
	}
	if _, ok := selection(n).Attr(overlayAttr); ok && n.Parent != nil {
		n.Parent.RemoveChild(n)
	}
	return nil
}

// Attached reports whether node is still part of the document tree.
func (d *Document) Attached(node entity.NodeRef) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	n, ok := d.nodes[node]
	if !ok {
		return false
	}
	root := d.doc.Get(0)
	for x := n; x != nil; x = x.Parent {
		if x == root {
			return true
		}
	}
	return false
}

// Render serializes the current document.
func (d *Document) Render() (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.doc.Html()
}
