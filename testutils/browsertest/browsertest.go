// Package browsertest provides a per-test browser fixture: resolve,
// launch headless, release on cleanup.
package browsertest

import (
	"context"
	"io"
	"os"
	"strconv"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/revature/scopecheck/api"
	"github.com/revature/scopecheck/browser"
	"github.com/revature/scopecheck/common"
	"github.com/revature/scopecheck/config"
	"github.com/revature/scopecheck/log"
	"github.com/revature/scopecheck/resolver"
	"github.com/revature/scopecheck/scenario"
	"github.com/revature/scopecheck/session"
)

// Browser is a launched browser owned by one test.
type Browser struct {
	Ctx         context.Context
	Name        common.BrowserName
	DocumentURL string
	Logger      *log.Logger
	*session.Session

	t testing.TB
}

type options struct {
	registry api.Registry
	document string
}

// Option configures New.
type Option func(*options)

// WithRegistry launches browsers from r instead of the real backends.
func WithRegistry(r api.Registry) Option {
	return func(o *options) { o.registry = r }
}

// WithDocument loads the page at path instead of the configured document.
func WithDocument(path string) Option {
	return func(o *options) { o.document = path }
}

// New resolves a browser, or takes SCOPECHECK_BROWSER, and launches it
// headless. It fails the test when nothing can be launched, and releases
// the browser when the test returns.
func New(t testing.TB, opts ...Option) *Browser {
	t.Helper()

	cfg, err := config.Load(os.LookupEnv)
	require.NoError(t, err)

	logger := newLogger(t)
	o := &options{document: cfg.Document.String}
	for _, opt := range opts {
		opt(o)
	}
	if o.registry == nil {
		o.registry = browser.NewRegistry(cfg, logger)
	}

	ctx := context.Background()
	name := common.ParseBrowserName(cfg.Browser.String)
	if !cfg.Browser.Valid {
		name = resolver.New(o.registry, logger).Resolve(ctx)
	}

	launcher := session.NewLauncher(o.registry, logger)
	launcher.Timeout = cfg.Timeout.Duration
	s, err := launcher.Launch(ctx, name)
	require.NoError(t, err)
	t.Cleanup(s.Release)

	u, err := scenario.DocumentURL(o.document)
	require.NoError(t, err)

	return &Browser{
		Ctx:         ctx,
		Name:        name,
		DocumentURL: u,
		Logger:      logger,
		Session:     s,
		t:           t,
	}
}

// Navigate loads the document.
func (b *Browser) Navigate() *Browser {
	b.t.Helper()
	require.NoError(b.t, b.Session.Navigate(b.Ctx, b.DocumentURL))
	return b
}

// Call invokes the page's global function fn.
func (b *Browser) Call(fn string) *Browser {
	b.t.Helper()
	require.NoError(b.t, scenario.Call(b.Ctx, b.Session, fn))
	return b
}

// TextContent returns the text of the element with id.
func (b *Browser) TextContent(id string) string {
	b.t.Helper()
	text, err := scenario.TextContent(b.Ctx, b.Session, id)
	require.NoError(b.t, err)
	return text
}

// newLogger logs at debug level to stderr when SCOPECHECK_TEST_DEBUG is
// true, and discards everything otherwise.
func newLogger(t testing.TB) *log.Logger {
	t.Helper()

	debug := false
	if v, found := os.LookupEnv("SCOPECHECK_TEST_DEBUG"); found {
		debug, _ = strconv.ParseBool(v)
	}
	l := logrus.New()
	l.SetOutput(io.Discard)
	if debug {
		l.SetOutput(os.Stderr)
		l.SetLevel(logrus.DebugLevel)
	}

	return log.New(l, nil)
}
