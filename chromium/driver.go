package chromium

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto"
	cdpp "github.com/chromedp/cdproto/page"

	"github.com/revature/scopecheck/api"
	"github.com/revature/scopecheck/browserprocess"
	"github.com/revature/scopecheck/cdp"
	"github.com/revature/scopecheck/common"
	"github.com/revature/scopecheck/log"
)

const quitTimeout = 10 * time.Second

var (
	_ api.Driver        = &driver{}
	_ api.Screenshotter = &driver{}
)

// driver drives the single page target of a launched browser.
type driver struct {
	client    *cdp.Client
	proc      *common.BrowserProcess
	targetID  string
	sessionID string
	logger    *log.Logger

	quitOnce sync.Once
	quitErr  error
}

func newDriver(
	ctx context.Context, client *cdp.Client, proc *common.BrowserProcess, logger *log.Logger,
) (*driver, error) {
	targetID, err := client.Target.CreateTarget(ctx, "about:blank")
	if err != nil {
		return nil, err
	}
	sessionID, err := client.Target.AttachToTarget(ctx, targetID)
	if err != nil {
		return nil, err
	}

	sctx := cdp.WithSessionID(ctx, sessionID)
	if err := client.Page.Enable(sctx); err != nil {
		return nil, err
	}
	if err := client.Page.SetLifecycleEventsEnabled(sctx, true); err != nil {
		return nil, err
	}

	return &driver{
		client:    client,
		proc:      proc,
		targetID:  targetID,
		sessionID: sessionID,
		logger:    logger,
	}, nil
}

// Navigate loads url and waits for the load lifecycle event of the new
// document.
func (d *driver) Navigate(ctx context.Context, url string) error {
	sctx := cdp.WithSessionID(ctx, d.sessionID)

	// Subscribe before navigating so the event cannot be missed.
	evCh, cancel := d.client.Subscribe(sctx, cdproto.EventPageLifecycleEvent)
	defer cancel()

	loaderID, err := d.client.Page.Navigate(sctx, url)
	if err != nil {
		return err //nolint:wrapcheck
	}
	if loaderID == "" {
		// Same document navigation, nothing is loaded.
		return nil
	}

	for {
		select {
		case ev := <-evCh:
			le, ok := ev.Data.(*cdpp.EventLifecycleEvent)
			if !ok || le.Name != "load" || le.LoaderID.String() != loaderID {
				continue
			}
			d.logger.Debugf("chromium:Navigate", "loaded %q loaderID:%s", url, loaderID)
			return nil
		case <-d.client.Done():
			return fmt.Errorf("navigating to %q: %w", url, cdp.ErrConnectionClosed)
		case <-ctx.Done():
			return fmt.Errorf("navigating to %q: %w", url, ctx.Err())
		}
	}
}

// ExecuteScript runs script as the body of a function in the page.
func (d *driver) ExecuteScript(ctx context.Context, script string) (any, error) {
	expr := "(function() {\n" + script + "\n})()"
	v, err := d.client.Runtime.Evaluate(cdp.WithSessionID(ctx, d.sessionID), expr)
	if err != nil {
		return nil, err //nolint:wrapcheck
	}
	return v, nil
}

// Screenshot captures the page viewport as PNG.
func (d *driver) Screenshot(ctx context.Context) ([]byte, error) {
	return d.client.Page.CaptureScreenshot(cdp.WithSessionID(ctx, d.sessionID)) //nolint:wrapcheck
}

// Quit closes the browser, killing it if it does not exit in time, and
// waits until its user data directory is removed.
func (d *driver) Quit(ctx context.Context) error {
	d.quitOnce.Do(func() {
		d.quitErr = d.quit(ctx)
	})
	return d.quitErr
}

func (d *driver) quit(ctx context.Context) error {
	pid := d.proc.Pid()
	defer browserprocess.Unregister(pid)

	ctx, cancel := context.WithTimeout(ctx, quitTimeout)
	defer cancel()

	var err error
	// The browser may drop the connection before replying.
	if cerr := d.client.Browser.Close(ctx); cerr != nil && !errors.Is(cerr, cdp.ErrConnectionClosed) {
		err = cerr
	}
	_ = d.client.Close()

	select {
	case <-d.proc.Done():
	case <-ctx.Done():
		d.logger.Warnf("chromium:Quit", "browser pid:%d did not exit, killing it", pid)
		d.proc.Terminate()
		<-d.proc.Done()
	}
	if cerr := d.proc.Cleanup(); cerr != nil && err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("quitting browser: %w", err)
	}

	return nil
}
