// Package domtest is an in-process browser: it loads local HTML documents,
// runs their scripts in a JavaScript runtime against a minimal DOM, and
// implements api.Driver on top of that. It lets scenarios run without a
// real browser.
package domtest

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"github.com/dop251/goja"
	"golang.org/x/net/html"

	"github.com/revature/scopecheck/api"
	"github.com/revature/scopecheck/log"
)

// ErrQuit is returned by a Driver used after Quit.
var ErrQuit = errors.New("driver has quit")

// ErrNoDocument is returned when executing a script before navigating.
var ErrNoDocument = errors.New("no document loaded")

var _ api.Driver = &Driver{}

// Driver is an api.Driver backed by goja and goquery.
type Driver struct {
	logger *log.Logger

	mu    sync.Mutex
	vm    *goja.Runtime
	doc   *goquery.Document
	url   string
	quits int
}

// NewDriver returns a Driver with no document loaded.
func NewDriver(logger *log.Logger) *Driver {
	return &Driver{logger: logger}
}

// Navigate loads the file:// document at rawURL into a fresh runtime and
// runs its scripts, inline and local src ones, in document order.
func (d *Driver) Navigate(ctx context.Context, rawURL string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.quits > 0 {
		return ErrQuit
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("navigating to %q: %w", rawURL, err)
	}

	path, err := localPath(rawURL)
	if err != nil {
		return fmt.Errorf("navigating to %q: %w", rawURL, err)
	}
	f, err := os.Open(path) //nolint:gosec
	if err != nil {
		return fmt.Errorf("navigating to %q: %w", rawURL, err)
	}
	defer f.Close() //nolint:errcheck

	doc, err := goquery.NewDocumentFromReader(f)
	if err != nil {
		return fmt.Errorf("parsing %q: %w", rawURL, err)
	}

	vm := goja.New()
	if err := vm.Set("document", newDocument(vm, doc)); err != nil {
		return fmt.Errorf("installing document: %w", err)
	}
	stop := interruptOnDone(ctx, vm)
	defer stop()

	var scriptErr error
	doc.Find("script").EachWithBreak(func(i int, s *goquery.Selection) bool {
		name, src, err := scriptSource(filepath.Dir(path), i, s)
		if err != nil {
			scriptErr = err
			return false
		}
		if src == "" {
			return true
		}
		if _, err := vm.RunScript(name, src); err != nil {
			scriptErr = fmt.Errorf("running %s: %w", name, err)
			return false
		}
		return true
	})
	if scriptErr != nil {
		return fmt.Errorf("navigating to %q: %w", rawURL, scriptErr)
	}

	d.vm, d.doc, d.url = vm, doc, rawURL
	d.logger.Debugf("domtest:Navigate", "loaded %q", rawURL)

	return nil
}

// ExecuteScript runs script as the body of a function in the current
// document and exports its return value. undefined and null export to nil.
func (d *Driver) ExecuteScript(ctx context.Context, script string) (any, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.quits > 0 {
		return nil, ErrQuit
	}
	if d.vm == nil {
		return nil, ErrNoDocument
	}

	stop := interruptOnDone(ctx, d.vm)
	defer stop()

	v, err := d.vm.RunString("(function() {\n" + script + "\n})()")
	if err != nil {
		return nil, fmt.Errorf("executing script: %w", err)
	}
	if goja.IsUndefined(v) || goja.IsNull(v) {
		return nil, nil
	}

	return v.Export(), nil
}

// URL returns the URL of the loaded document.
func (d *Driver) URL() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.url
}

// HTML renders the current state of the loaded document.
func (d *Driver) HTML() (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.doc == nil {
		return "", ErrNoDocument
	}
	return goquery.OuterHtml(d.doc.Selection) //nolint:wrapcheck
}

// Quit drops the loaded document. Later calls only count.
func (d *Driver) Quit(context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.quits++
	d.vm, d.doc = nil, nil

	return nil
}

// Quits returns how many times Quit was called.
func (d *Driver) Quits() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.quits
}

func localPath(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", err //nolint:wrapcheck
	}
	if u.Scheme != "file" {
		return "", fmt.Errorf("unsupported scheme %q, only file URLs can be loaded", u.Scheme)
	}
	p := u.Path
	// file:///C:/dir/index.html
	if len(p) > 2 && p[0] == '/' && p[2] == ':' {
		p = p[1:]
	}

	return filepath.FromSlash(p), nil
}

func scriptSource(dir string, i int, s *goquery.Selection) (name, src string, err error) {
	ref, ok := s.Attr("src")
	if !ok {
		return fmt.Sprintf("inline script #%d", i), s.Text(), nil
	}
	if u, perr := url.Parse(ref); perr != nil || u.Scheme != "" || strings.HasPrefix(ref, "//") {
		// Remote scripts are not loaded.
		return ref, "", nil
	}
	buf, err := os.ReadFile(filepath.Join(dir, filepath.FromSlash(ref))) //nolint:gosec
	if err != nil {
		return "", "", fmt.Errorf("loading script %q: %w", ref, err)
	}

	return ref, string(buf), nil
}

// interruptOnDone interrupts vm when ctx is done, until the returned stop
// function is called.
func interruptOnDone(ctx context.Context, vm *goja.Runtime) (stop func()) {
	interrupted := make(chan struct{})
	stopAfter := context.AfterFunc(ctx, func() {
		defer close(interrupted)
		vm.Interrupt(ctx.Err())
	})
	return func() {
		if !stopAfter() {
			<-interrupted
		}
		vm.ClearInterrupt()
	}
}

// textContent is the concatenated text of n and its descendants.
func textContent(doc *goquery.Document, n *html.Node) string {
	return doc.FindNodes(n).Text()
}

func setTextContent(n *html.Node, text string) {
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		n.RemoveChild(c)
		c = next
	}
	if text != "" {
		n.AppendChild(&html.Node{Type: html.TextNode, Data: text})
	}
}
