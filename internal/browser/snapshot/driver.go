// Package snapshot implements schemas.Driver over parsed HTML documents.
// Nothing is rendered and no script runs: visibility comes from markup and
// inline styles, and the DOM only changes through the driver's own
// operations. It backs the CLI for local files and every test that would
// otherwise need a browser.
package snapshot

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"github.com/antchfx/htmlquery"
	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"
	"golang.org/x/net/html"

	"github.com/xkilldash9x/crow/api/schemas"
)

// ErrNoWindow is returned when the current window was closed or none was
// ever opened.
var ErrNoWindow = errors.New("no current window")

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ScriptFunc stands in for the page's script engine. It receives the current
// document and returns the script's result.
type ScriptFunc func(ctx context.Context, root *html.Node, script string, args []any) (any, error)

// ClickFunc observes clicks after the built-in form behavior ran. It is called
// with the driver locked and may mutate the document but must not call back
// into the driver.
type ClickFunc func(root, target *html.Node) error

// Event records one side effect for inspection in tests and dry runs.
type Event struct {
	Kind   string
	Target string
	Detail string
}

type historyEntry struct {
	url  string
	root *html.Node
}

type window struct {
	handle  string
	url     string
	root    *html.Node
	history []historyEntry
}

// Driver is a schemas.Driver over one or more in-memory documents.
type Driver struct {
	id     string
	logger *zap.Logger

	loader      Loader
	scripts     ScriptFunc
	onClick     ClickFunc
	realPause   bool
	followLinks bool

	mu      sync.Mutex
	windows []*window
	current *window
	pressed map[string]bool
	events  []Event
}

var _ schemas.Driver = (*Driver)(nil)

// Option configures a Driver.
type Option func(*Driver)

// WithLoader replaces the loader used by Navigate, Refresh and links.
func WithLoader(l Loader) Option { return func(d *Driver) { d.loader = l } }

// WithScripts installs a script handler for Execute.
func WithScripts(f ScriptFunc) Option { return func(d *Driver) { d.scripts = f } }

// WithClickHandler installs a hook that runs on every click.
func WithClickHandler(f ClickFunc) Option { return func(d *Driver) { d.onClick = f } }

// WithRealPause makes Pause actually sleep. By default pauses are recorded
// and return at once since a static document cannot change while waiting.
func WithRealPause() Option { return func(d *Driver) { d.realPause = true } }

// WithFollowLinks makes clicks on anchors load their href.
func WithFollowLinks() Option { return func(d *Driver) { d.followLinks = true } }

// New creates a driver without any open window.
func New(logger *zap.Logger, opts ...Option) *Driver {
	if logger == nil {
		logger = zap.NewNop()
	}
	id := uuid.New().String()
	d := &Driver{
		id:      id,
		logger:  logger.Named("snapshot").With(zap.String("session_id", id)),
		loader:  DefaultLoader{},
		pressed: make(map[string]bool),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// FromHTML creates a driver with one window showing src.
func FromHTML(logger *zap.Logger, pageURL, src string, opts ...Option) (*Driver, error) {
	d := New(logger, opts...)
	if _, err := d.OpenWindow(pageURL, strings.NewReader(src)); err != nil {
		return nil, err
	}
	return d, nil
}

// Open creates a driver and loads rawURL into its first window.
func Open(ctx context.Context, logger *zap.Logger, rawURL string, opts ...Option) (*Driver, error) {
	d := New(logger, opts...)
	body, err := d.loader.Load(ctx, rawURL)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", rawURL, err)
	}
	defer body.Close()
	if _, err := d.OpenWindow(rawURL, body); err != nil {
		return nil, err
	}
	return d, nil
}

// ID returns the session ID.
func (d *Driver) ID() string { return d.id }

// Close releases nothing; it exists so callers can treat every driver alike.
func (d *Driver) Close() error { return nil }

// OpenWindow parses r into a new window and makes it current.
func (d *Driver) OpenWindow(pageURL string, r io.Reader) (string, error) {
	root, err := htmlquery.Parse(r)
	if err != nil {
		return "", fmt.Errorf("failed to parse document: %w", err)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	w := &window{handle: uuid.New().String(), url: pageURL, root: root}
	d.windows = append(d.windows, w)
	d.current = w
	d.record("open", pageURL, w.handle)
	return w.handle, nil
}

// Events returns a copy of the recorded side effects.
func (d *Driver) Events() []Event {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]Event(nil), d.events...)
}

// HTML renders the current document.
func (d *Driver) HTML() (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.current == nil {
		return "", ErrNoWindow
	}
	return htmlquery.OutputHTML(d.current.root, true), nil
}

func (d *Driver) record(kind, target, detail string) {
	d.events = append(d.events, Event{Kind: kind, Target: target, Detail: detail})
}

func (d *Driver) root() (*html.Node, error) {
	if d.current == nil {
		return nil, ErrNoWindow
	}
	return d.current.root, nil
}

// find evaluates sel against the current document. Callers hold d.mu.
func (d *Driver) find(sel schemas.Selector) ([]*html.Node, error) {
	root, err := d.root()
	if err != nil {
		return nil, err
	}
	if sel.LocateStrategy == schemas.StrategyXPath {
		nodes, err := htmlquery.QueryAll(root, sel.Selector)
		if err != nil {
			return nil, schemas.NewInvalidArgumentError("selector", fmt.Sprintf("invalid xpath %q: %v", sel.Selector, err))
		}
		elements := nodes[:0]
		for _, n := range nodes {
			if n.Type == html.ElementNode {
				elements = append(elements, n)
			}
		}
		return elements, nil
	}

	matcher, err := cascadia.Compile(sel.Selector)
	if err != nil {
		return nil, schemas.NewInvalidArgumentError("selector", fmt.Sprintf("invalid css selector %q: %v", sel.Selector, err))
	}
	return goquery.NewDocumentFromNode(root).FindMatcher(matcher).Nodes, nil
}

func (d *Driver) FindAll(ctx context.Context, sel schemas.Selector) ([]schemas.Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	nodes, err := d.find(sel)
	if err != nil {
		return nil, err
	}
	out := make([]schemas.Element, len(nodes))
	for i, n := range nodes {
		out[i] = &Element{d: d, node: n}
	}
	return out, nil
}

func (d *Driver) first(sel schemas.Selector) (*html.Node, error) {
	nodes, err := d.find(sel)
	if err != nil || len(nodes) == 0 {
		return nil, err
	}
	return nodes[0], nil
}

func (d *Driver) IsPresent(ctx context.Context, sel schemas.Selector) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	n, err := d.first(sel)
	return n != nil, err
}

func (d *Driver) IsVisible(ctx context.Context, sel schemas.Selector) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	nodes, err := d.find(sel)
	if err != nil {
		return false, err
	}
	return slices.ContainsFunc(nodes, isVisible), nil
}

func (d *Driver) IsSelected(ctx context.Context, sel schemas.Selector) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	n, err := d.first(sel)
	if err != nil || n == nil {
		return false, err
	}
	return isSelected(n), nil
}

func isSelected(n *html.Node) bool {
	if _, ok := getAttr(n, "checked"); ok {
		return true
	}
	_, ok := getAttr(n, "selected")
	return ok
}

// WaitForElementPresent checks once. The document cannot change while the
// driver waits, so an unsatisfied check fails immediately.
func (d *Driver) WaitForElementPresent(ctx context.Context, sel schemas.Selector) error {
	ok, err := d.IsPresent(ctx, sel)
	if err != nil {
		return err
	}
	if !ok {
		return schemas.NewNotFoundError(sel, false, nil)
	}
	return nil
}

// WaitForElementVisible is WaitForElementPresent for visible matches.
func (d *Driver) WaitForElementVisible(ctx context.Context, sel schemas.Selector) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d.mu.Lock()
	nodes, err := d.find(sel)
	d.mu.Unlock()
	if err != nil {
		return err
	}
	for _, n := range nodes {
		if isVisible(n) {
			return nil
		}
	}
	return schemas.NewNotFoundError(sel, true, nil)
}

func (d *Driver) Execute(ctx context.Context, script string, args []any, res any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.record("script", "", script)
	if d.scripts == nil {
		d.logger.Debug("Script ignored by static document.", zap.Int("length", len(script)))
		return nil
	}
	root, err := d.root()
	if err != nil {
		return err
	}
	out, err := d.scripts(ctx, root, script, args)
	if err != nil {
		return err
	}
	if res == nil {
		return nil
	}
	raw, err := json.Marshal(out)
	if err != nil {
		return fmt.Errorf("failed to encode script result: %w", err)
	}
	return json.Unmarshal(raw, res)
}

func (d *Driver) Pause(ctx context.Context, dur time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d.mu.Lock()
	d.record("pause", "", dur.String())
	d.mu.Unlock()
	if !d.realPause || dur <= 0 {
		return nil
	}
	t := time.NewTimer(dur)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *Driver) Annotate(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	root, err := d.root()
	if err != nil {
		return err
	}
	box := htmlquery.FindOne(root, fmt.Sprintf("//*[@id='%s']", schemas.ActionTextBoxID))
	if box == nil {
		body := htmlquery.FindOne(root, "//body")
		if body == nil {
			return fmt.Errorf("document has no body")
		}
		box = &html.Node{Type: html.ElementNode, Data: "div"}
		setAttr(box, "id", schemas.ActionTextBoxID)
		setAttr(box, "style", "position: fixed; top: 0; left: 0; background-color: white; border: 1px dashed black; padding: 2px 5px; z-index: 9999; font-size: 12px; font-family: Arial;")
		body.AppendChild(box)
	}
	for c := box.FirstChild; c != nil; c = box.FirstChild {
		box.RemoveChild(c)
	}
	box.AppendChild(&html.Node{Type: html.TextNode, Data: text})
	d.record("annotate", "", text)
	return nil
}

func (d *Driver) ClearAnnotation(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	root, err := d.root()
	if err != nil {
		return err
	}
	if box := htmlquery.FindOne(root, fmt.Sprintf("//*[@id='%s']", schemas.ActionTextBoxID)); box != nil && box.Parent != nil {
		box.Parent.RemoveChild(box)
	}
	return nil
}

func (d *Driver) CurrentURL(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.current == nil {
		return "", ErrNoWindow
	}
	return d.current.url, nil
}

// load fetches and parses rawURL without holding the lock.
func (d *Driver) load(ctx context.Context, rawURL string) (*html.Node, error) {
	body, err := d.loader.Load(ctx, rawURL)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", rawURL, err)
	}
	defer body.Close()
	root, err := htmlquery.Parse(body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", rawURL, err)
	}
	return root, nil
}

func (d *Driver) Navigate(ctx context.Context, rawURL string) error {
	root, err := d.load(ctx, rawURL)
	if err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.current == nil {
		return ErrNoWindow
	}
	w := d.current
	w.history = append(w.history, historyEntry{url: w.url, root: w.root})
	w.url, w.root = rawURL, root
	d.record("navigate", rawURL, "")
	d.logger.Debug("Navigated.", zap.String("url", rawURL))
	return nil
}

func (d *Driver) Back(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.current == nil {
		return ErrNoWindow
	}
	w := d.current
	if len(w.history) == 0 {
		return nil
	}
	prev := w.history[len(w.history)-1]
	w.history = w.history[:len(w.history)-1]
	w.url, w.root = prev.url, prev.root
	d.record("back", prev.url, "")
	return nil
}

// Refresh reloads the current URL. Documents without a loadable URL are
// left as they are.
func (d *Driver) Refresh(ctx context.Context) error {
	url, err := d.CurrentURL(ctx)
	if err != nil {
		return err
	}
	if url == "" || strings.HasPrefix(url, "about:") {
		return nil
	}
	root, err := d.load(ctx, url)
	if err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.current == nil {
		return ErrNoWindow
	}
	d.current.root = root
	d.record("refresh", url, "")
	return nil
}

func (d *Driver) WindowHandles(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	handles := make([]string, len(d.windows))
	for i, w := range d.windows {
		handles[i] = w.handle
	}
	return handles, nil
}

func (d *Driver) CurrentWindow(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.current == nil {
		return "", ErrNoWindow
	}
	return d.current.handle, nil
}

func (d *Driver) SwitchToWindow(ctx context.Context, handle string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, w := range d.windows {
		if w.handle == handle {
			d.current = w
			d.record("switch", w.url, handle)
			return nil
		}
	}
	return fmt.Errorf("no window with handle %q", handle)
}

// CloseWindow closes the current window. Like WebDriver, no window is current
// afterwards until the caller switches.
func (d *Driver) CloseWindow(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.current == nil {
		return ErrNoWindow
	}
	for i, w := range d.windows {
		if w == d.current {
			d.windows = append(d.windows[:i], d.windows[i+1:]...)
			break
		}
	}
	d.record("close", d.current.url, d.current.handle)
	d.current = nil
	return nil
}

func (d *Driver) KeyDown(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pressed[key] = true
	d.record("keydown", "", key)
	return nil
}

func (d *Driver) KeyUp(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.pressed, key)
	d.record("keyup", "", key)
	return nil
}

// PressedKeys lists keys that went down and have not come up.
func (d *Driver) PressedKeys() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	keys := make([]string, 0, len(d.pressed))
	for k := range d.pressed {
		keys = append(keys, k)
	}
	return keys
}

// SaveScreenshot writes the serialized document, the closest thing to a
// picture a static document has.
func (d *Driver) SaveScreenshot(ctx context.Context, path string) error {
	src, err := d.HTML()
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create screenshot directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(src), 0o644); err != nil {
		return fmt.Errorf("failed to write screenshot: %w", err)
	}
	d.mu.Lock()
	d.record("screenshot", path, "")
	d.mu.Unlock()
	return nil
}
