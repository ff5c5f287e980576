package firefox

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/revature/scopecheck/api"
	"github.com/revature/scopecheck/log"
)

var (
	_ api.Driver        = &driver{}
	_ api.Screenshotter = &driver{}
)

type driver struct {
	pw      *playwright.Playwright
	browser playwright.Browser
	page    playwright.Page
	logger  *log.Logger

	quitOnce sync.Once
	quitErr  error
}

func (d *driver) Navigate(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("navigating to %q: %w", url, err)
	}
	waitUntil := playwright.WaitUntilState("load")
	opts := playwright.PageGotoOptions{WaitUntil: &waitUntil}
	if ms, ok := remaining(ctx); ok {
		opts.Timeout = &ms
	}
	if _, err := d.page.Goto(url, opts); err != nil {
		return fmt.Errorf("navigating to %q: %w", url, err)
	}

	return nil
}

// ExecuteScript evaluates script as the body of an arrow function.
func (d *driver) ExecuteScript(ctx context.Context, script string) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("evaluating script: %w", err)
	}
	v, err := d.page.Evaluate("() => {\n" + script + "\n}")
	if err != nil {
		return nil, fmt.Errorf("evaluating script: %w", err)
	}

	return v, nil
}

func (d *driver) Screenshot(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("capturing screenshot: %w", err)
	}
	buf, err := d.page.Screenshot()
	if err != nil {
		return nil, fmt.Errorf("capturing screenshot: %w", err)
	}

	return buf, nil
}

// Quit closes Firefox and stops the Playwright driver.
func (d *driver) Quit(context.Context) error {
	d.quitOnce.Do(func() {
		var errs []error
		if err := d.browser.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing firefox: %w", err))
		}
		if err := d.pw.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("stopping playwright: %w", err))
		}
		d.quitErr = errors.Join(errs...)
	})
	return d.quitErr
}

// remaining returns the time left until ctx's deadline, in milliseconds.
func remaining(ctx context.Context) (float64, bool) {
	deadline, ok := ctx.Deadline()
	if !ok {
		return 0, false
	}
	return milliseconds(time.Until(deadline)), true
}
