package session

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/revature/scopecheck/api"
	"github.com/revature/scopecheck/common"
	"github.com/revature/scopecheck/domtest"
	"github.com/revature/scopecheck/log"
)

type quitter struct {
	api.Driver
	quits int
	err   error
	panic bool
}

func (q *quitter) Quit(context.Context) error {
	q.quits++
	if q.panic {
		panic("quit exploded")
	}
	return q.err
}

func newTestLauncher(t *testing.T) (*Launcher, map[common.BrowserName]*domtest.BrowserType) {
	t.Helper()

	bts := make(map[common.BrowserName]*domtest.BrowserType)
	r := api.Registry{}
	for _, b := range common.CandidateBrowsers() {
		bts[b] = domtest.NewBrowserType(b, log.NewNullLogger())
		r[b] = bts[b]
	}
	return NewLauncher(r, log.NewNullLogger()), bts
}

func TestLaunchHeadless(t *testing.T) {
	t.Parallel()

	tests := []struct {
		browser      common.BrowserName
		wantArgs     []string
		wantSwitches []string
	}{
		{browser: common.BrowserChrome, wantArgs: []string{"headless"}},
		{browser: common.BrowserFirefox, wantArgs: []string{"-headless"}},
		{browser: common.BrowserEdge, wantArgs: []string{"--headless"}},
		{browser: common.BrowserIE, wantSwitches: []string{"-headless"}},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.browser.String(), func(t *testing.T) {
			t.Parallel()

			l, bts := newTestLauncher(t)
			s, err := l.Launch(context.Background(), tt.browser)
			require.NoError(t, err)
			t.Cleanup(s.Release)

			assert.Equal(t, tt.browser, s.Browser())
			assert.NotEmpty(t, s.ID())
			assert.Equal(t, 1, bts[tt.browser].Provisions(), "launch re-runs provisioning")

			launches := bts[tt.browser].Launches()
			require.Len(t, launches, 1)
			assert.Equal(t, tt.wantArgs, launches[0].Args)
			assert.Equal(t, tt.wantSwitches, launches[0].CommandSwitches)
			assert.True(t, launches[0].Headless())
		})
	}
}

func TestLaunchUnsupported(t *testing.T) {
	t.Parallel()

	l, bts := newTestLauncher(t)
	s, err := l.Launch(context.Background(), common.BrowserUnsupported)
	require.ErrorIs(t, err, common.ErrUnsupportedBrowser)
	assert.EqualError(t, err, `unsupported browser: "Unsupported Browser"`)
	assert.Nil(t, s)

	for b, bt := range bts {
		assert.Zero(t, bt.Provisions(), "%s provisioned", b)
		assert.Empty(t, bt.Launches(), "%s launched", b)
	}
}

func TestLaunchUnregistered(t *testing.T) {
	t.Parallel()

	_, err := NewLauncher(api.Registry{}, log.NewNullLogger()).Launch(context.Background(), common.BrowserEdge)
	require.ErrorIs(t, err, common.ErrUnsupportedBrowser)
}

func TestLaunchFailures(t *testing.T) {
	t.Parallel()

	errBoom := errors.New("boom")

	l, bts := newTestLauncher(t)
	bts[common.BrowserChrome].ProvisionErr = errBoom
	_, err := l.Launch(context.Background(), common.BrowserChrome)
	require.ErrorIs(t, err, errBoom)
	assert.Empty(t, bts[common.BrowserChrome].Launches())

	bts[common.BrowserFirefox].LaunchErr = errBoom
	_, err = l.Launch(context.Background(), common.BrowserFirefox)
	require.ErrorIs(t, err, errBoom)
	assert.ErrorContains(t, err, "launching firefox")
}

func TestRelease(t *testing.T) {
	t.Parallel()

	t.Run("twice", func(t *testing.T) {
		t.Parallel()

		q := &quitter{}
		s := &Session{driver: q, logger: log.NewNullLogger()}
		s.Release()
		s.Release()
		assert.Equal(t, 1, q.quits)
		assert.Nil(t, s.Driver())

		require.ErrorIs(t, s.Navigate(context.Background(), "file:///x"), ErrReleased)
		_, err := s.ExecuteScript(context.Background(), "return 1;")
		require.ErrorIs(t, err, ErrReleased)
	})
	t.Run("nil", func(t *testing.T) {
		t.Parallel()

		var s *Session
		assert.NotPanics(t, s.Release)
	})
	t.Run("never_launched", func(t *testing.T) {
		t.Parallel()

		assert.NotPanics(t, (&Session{}).Release)
	})
	t.Run("quit_error", func(t *testing.T) {
		t.Parallel()

		q := &quitter{err: errors.New("browser gone")}
		s := &Session{driver: q, logger: log.NewNullLogger()}
		assert.NotPanics(t, s.Release)
		assert.Equal(t, 1, q.quits)
	})
	t.Run("quit_panic", func(t *testing.T) {
		t.Parallel()

		q := &quitter{panic: true}
		s := &Session{driver: q, logger: log.NewNullLogger()}
		assert.NotPanics(t, s.Release)
		assert.NotPanics(t, s.Release)
		assert.Equal(t, 1, q.quits)
	})
}

func TestRun(t *testing.T) {
	t.Parallel()

	t.Run("released_after_error", func(t *testing.T) {
		t.Parallel()

		l, bts := newTestLauncher(t)
		errFail := errors.New("assertion failed")
		err := Run(context.Background(), l, common.BrowserEdge, func(s *Session) error {
			require.NotNil(t, s.Driver())
			return errFail
		})
		require.ErrorIs(t, err, errFail)

		drivers := bts[common.BrowserEdge].Drivers()
		require.Len(t, drivers, 1)
		assert.Equal(t, 1, drivers[0].Quits())
	})
	t.Run("released_after_panic", func(t *testing.T) {
		t.Parallel()

		l, bts := newTestLauncher(t)
		assert.Panics(t, func() {
			_ = Run(context.Background(), l, common.BrowserChrome, func(*Session) error {
				panic("test body blew up")
			})
		})

		drivers := bts[common.BrowserChrome].Drivers()
		require.Len(t, drivers, 1)
		assert.Equal(t, 1, drivers[0].Quits())
	})
	t.Run("unsupported", func(t *testing.T) {
		t.Parallel()

		l, _ := newTestLauncher(t)
		called := false
		err := Run(context.Background(), l, common.BrowserUnsupported, func(*Session) error {
			called = true
			return nil
		})
		require.ErrorIs(t, err, common.ErrUnsupportedBrowser)
		assert.False(t, called)
	})
}
