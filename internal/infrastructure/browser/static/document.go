package static

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"github.com/antchfx/htmlquery"
	"golang.org/x/net/html"

	"browser-query/internal/application/port/output"
	"browser-query/internal/domain/entity"
)

var (
	_ output.ElementSource    = (*Document)(nil)
	_ output.StalenessChecker = (*Document)(nil)
	_ output.HTMLSource       = (*Document)(nil)
)

// Loader fetches the markup of a page.
type Loader func(ctx context.Context, pageURL string) (string, error)

// Document is an element source over a parsed HTML tree. Elements are
// *html.Node values; replacing or reloading the tree makes them stale.
type Document struct {
	mu     sync.RWMutex
	root   *html.Node
	markup string
	url    string
	loader Loader
}

// Parse builds a document from markup. Reload re-parses the same markup.
func Parse(pageURL, markup string) (*Document, error) {
	d := &Document{url: pageURL}
	if err := d.SetHTML(markup); err != nil {
		return nil, err
	}
	return d, nil
}

// Load fetches pageURL over HTTP. Reload fetches it again.
func Load(ctx context.Context, client *http.Client, pageURL string) (*Document, error) {
	d := &Document{url: pageURL, loader: HTTPLoader(client)}
	if err := d.Reload(ctx); err != nil {
		return nil, err
	}
	return d, nil
}

// New returns an empty about:blank document that fetches pages with loader
// on Navigate.
func New(loader Loader) *Document {
	root, _ := htmlquery.Parse(strings.NewReader(""))
	return &Document{root: root, url: "about:blank", loader: loader}
}

func HTTPLoader(client *http.Client) Loader {
	if client == nil {
		client = http.DefaultClient
	}
	return func(ctx context.Context, pageURL string) (string, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
		if err != nil {
			return "", fmt.Errorf("build request: %w", err)
		}
		resp, err := client.Do(req)
		if err != nil {
			return "", fmt.Errorf("fetch %s: %w", pageURL, err)
		}
		defer resp.Body.Close()

		if resp.StatusCode >= http.StatusBadRequest {
			return "", fmt.Errorf("fetch %s: unexpected status %s", pageURL, resp.Status)
		}
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return "", fmt.Errorf("read %s: %w", pageURL, err)
		}
		return string(body), nil
	}
}

// SetHTML replaces the whole document.
func (d *Document) SetHTML(markup string) error {
	root, err := htmlquery.Parse(strings.NewReader(markup))
	if err != nil {
		return fmt.Errorf("parse html: %w", err)
	}
	d.mu.Lock()
	d.root = root
	d.markup = markup
	d.mu.Unlock()
	return nil
}

// Navigate loads pageURL with the document's loader.
func (d *Document) Navigate(ctx context.Context, pageURL string) error {
	d.mu.Lock()
	d.url = pageURL
	d.mu.Unlock()
	return d.Reload(ctx)
}

func (d *Document) Reload(ctx context.Context) error {
	d.mu.RLock()
	loader, pageURL, markup := d.loader, d.url, d.markup
	d.mu.RUnlock()

	if loader != nil {
		var err error
		markup, err = loader(ctx, pageURL)
		if err != nil {
			return err
		}
	}
	return d.SetHTML(markup)
}

func (d *Document) CurrentURL(_ context.Context) (string, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.url, nil
}

func (d *Document) Title(_ context.Context) (string, error) {
	node := htmlquery.FindOne(d.document(), "//title")
	if node == nil {
		return "", nil
	}
	return strings.TrimSpace(htmlquery.InnerText(node)), nil
}

func (d *Document) FindOne(ctx context.Context, by entity.By, scope entity.Element) (entity.Element, error) {
	els, err := d.FindAll(ctx, by, scope)
	if err != nil {
		return nil, err
	}
	if len(els) == 0 {
		return nil, fmt.Errorf("%s: %w", by, output.ErrNoSuchElement)
	}
	return els[0], nil
}

func (d *Document) FindAll(_ context.Context, by entity.By, scope entity.Element) ([]entity.Element, error) {
	root, err := d.scopeNode(scope)
	if err != nil {
		return nil, err
	}

	var nodes []*html.Node
	switch by.Strategy {
	case entity.StrategyCSS:
		sel, err := cascadia.Compile(by.Value)
		if err != nil {
			return nil, fmt.Errorf("invalid css %q: %w", by.Value, err)
		}
		nodes = goquery.NewDocumentFromNode(root).FindMatcher(sel).Nodes
	case entity.StrategyXPath:
		nodes, err = htmlquery.QueryAll(root, by.Value)
		if err != nil {
			return nil, fmt.Errorf("invalid xpath %q: %w", by.Value, err)
		}
	case entity.StrategyID:
		nodes = collect(root, attrEquals("id", by.Value))
	case entity.StrategyName:
		nodes = collect(root, attrEquals("name", by.Value))
	case entity.StrategyClassName:
		nodes = collect(root, hasClass(by.Value))
	case entity.StrategyTagName:
		nodes = collect(root, func(n *html.Node) bool { return strings.EqualFold(n.Data, by.Value) })
	case entity.StrategyLinkText:
		nodes = collect(root, linkText(func(text string) bool { return text == by.Value }))
	case entity.StrategyPartialLinkText:
		nodes = collect(root, linkText(func(text string) bool { return strings.Contains(text, by.Value) }))
	default:
		return nil, fmt.Errorf("%s: %w", by.Strategy, output.ErrUnsupportedStrategy)
	}

	els := make([]entity.Element, 0, len(nodes))
	for _, n := range nodes {
		els = append(els, n)
	}
	return els, nil
}

func (d *Document) Text(_ context.Context, el entity.Element) (string, error) {
	n, err := d.attached(el)
	if err != nil {
		return "", err
	}
	return renderedText(n), nil
}

func (d *Document) Visible(_ context.Context, el entity.Element) (bool, error) {
	n, err := d.attached(el)
	if err != nil {
		return false, err
	}
	return visible(n), nil
}

func (d *Document) IsStale(_ context.Context, el entity.Element) (bool, error) {
	n, ok := el.(*html.Node)
	if !ok {
		return false, fmt.Errorf("unexpected element type %T", el)
	}
	return topOf(n) != d.document(), nil
}

func (d *Document) HTML(_ context.Context, scope entity.Element) (string, error) {
	root, err := d.scopeNode(scope)
	if err != nil {
		return "", err
	}
	return htmlquery.OutputHTML(root, true), nil
}

func (d *Document) document() *html.Node {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.root
}

func (d *Document) scopeNode(scope entity.Element) (*html.Node, error) {
	if scope == nil {
		return d.document(), nil
	}
	return d.attached(scope)
}

func (d *Document) attached(el entity.Element) (*html.Node, error) {
	n, ok := el.(*html.Node)
	if !ok || n == nil {
		return nil, fmt.Errorf("unexpected element type %T", el)
	}
	if topOf(n) != d.document() {
		return nil, output.ErrStaleElement
	}
	return n, nil
}

func topOf(n *html.Node) *html.Node {
	for n.Parent != nil {
		n = n.Parent
	}
	return n
}

// collect walks the descendants of root in document order.
func collect(root *html.Node, match func(*html.Node) bool) []*html.Node {
	var nodes []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.ElementNode && match(c) {
				nodes = append(nodes, c)
			}
			walk(c)
		}
	}
	walk(root)
	return nodes
}

func attrEquals(key, value string) func(*html.Node) bool {
	return func(n *html.Node) bool {
		v, ok := attr(n, key)
		return ok && v == value
	}
}

func hasClass(name string) func(*html.Node) bool {
	return func(n *html.Node) bool {
		v, _ := attr(n, "class")
		for _, c := range strings.Fields(v) {
			if c == name {
				return true
			}
		}
		return false
	}
}

func linkText(match func(string) bool) func(*html.Node) bool {
	return func(n *html.Node) bool {
		return n.Data == "a" && match(renderedText(n))
	}
}

func attr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}
