// Package session launches a headless browser for exactly one test and
// guarantees it is released afterwards.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/revature/scopecheck/api"
	"github.com/revature/scopecheck/common"
	"github.com/revature/scopecheck/log"
)

// ErrReleased is returned when using a released session.
var ErrReleased = errors.New("session released")

const releaseTimeout = 30 * time.Second

// Launcher starts sessions on the browsers of a registry.
type Launcher struct {
	registry api.Registry
	logger   *log.Logger

	// Timeout bounds launching a browser. Zero means common.DefaultTimeout.
	Timeout time.Duration
}

// NewLauncher returns a Launcher for the browsers in registry.
func NewLauncher(registry api.Registry, logger *log.Logger) *Launcher {
	return &Launcher{registry: registry, logger: logger}
}

// Launch provisions name and launches it headless. Browsers without a
// headless configuration, BrowserUnsupported included, fail with
// common.ErrUnsupportedBrowser before anything is launched.
func (l *Launcher) Launch(ctx context.Context, name common.BrowserName) (*Session, error) {
	opts, err := common.NewHeadlessLaunchOptions(name)
	if err != nil {
		return nil, err //nolint:wrapcheck
	}
	if l.Timeout > 0 {
		opts.Timeout = l.Timeout
	}
	bt, ok := l.registry.Get(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q is not registered", common.ErrUnsupportedBrowser, name.String())
	}

	if err := bt.Provision(ctx); err != nil {
		return nil, fmt.Errorf("provisioning %s: %w", name, err)
	}
	d, err := bt.Launch(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("launching %s: %w", name, err)
	}

	s := &Session{
		id:      uuid.NewString(),
		browser: name,
		driver:  d,
		logger:  l.logger,
	}
	l.logger.Debugf("session", "session %s started on %s", s.id, name)

	return s, nil
}

// Session exclusively owns one launched browser.
type Session struct {
	id      string
	browser common.BrowserName
	driver  api.Driver
	logger  *log.Logger

	mu       sync.Mutex
	released bool
}

// ID returns the unique session ID.
func (s *Session) ID() string {
	return s.id
}

// Browser returns the browser the session runs on.
func (s *Session) Browser() common.BrowserName {
	return s.browser
}

// Driver returns the session's driver, or nil once released.
func (s *Session) Driver() api.Driver {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.released {
		return nil
	}
	return s.driver
}

// Navigate loads url.
func (s *Session) Navigate(ctx context.Context, url string) error {
	d := s.Driver()
	if d == nil {
		return ErrReleased
	}
	return d.Navigate(ctx, url) //nolint:wrapcheck
}

// ExecuteScript runs script as a function body and returns its result.
func (s *Session) ExecuteScript(ctx context.Context, script string) (any, error) {
	d := s.Driver()
	if d == nil {
		return nil, ErrReleased
	}
	return d.ExecuteScript(ctx, script) //nolint:wrapcheck
}

// Release quits the browser. It is safe to call on a nil session and more
// than once, and it never panics: failures are logged and dropped.
func (s *Session) Release() {
	if s == nil {
		return
	}

	s.mu.Lock()
	if s.released || s.driver == nil {
		s.released = true
		s.mu.Unlock()
		return
	}
	s.released = true
	d := s.driver
	s.mu.Unlock()

	defer func() {
		if p := recover(); p != nil {
			s.logger.Warnf("session", "releasing session %s: panic: %v", s.id, p)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), releaseTimeout)
	defer cancel()

	if err := d.Quit(ctx); err != nil {
		s.logger.Warnf("session", "releasing session %s: %v", s.id, err)
		return
	}
	s.logger.Debugf("session", "session %s released", s.id)
}

// Run launches a session on name, passes it to fn and releases it however
// fn returns, panics included.
func Run(ctx context.Context, l *Launcher, name common.BrowserName, fn func(*Session) error) error {
	s, err := l.Launch(ctx, name)
	if err != nil {
		return err
	}
	defer s.Release()

	return fn(s)
}
