package iexplorer

import (
	"context"
	"fmt"
	"sync"

	"github.com/tebeka/selenium"

	"github.com/revature/scopecheck/api"
	"github.com/revature/scopecheck/log"
)

var (
	_ api.Driver        = &driver{}
	_ api.Screenshotter = &driver{}
)

type driver struct {
	wd     selenium.WebDriver
	srv    *server
	logger *log.Logger

	quitOnce sync.Once
	quitErr  error
}

func (d *driver) Navigate(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("navigating to %q: %w", url, err)
	}
	if err := d.wd.Get(url); err != nil {
		return fmt.Errorf("navigating to %q: %w", url, err)
	}
	return nil
}

func (d *driver) ExecuteScript(ctx context.Context, script string) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("executing script: %w", err)
	}
	v, err := d.wd.ExecuteScript(script, nil)
	if err != nil {
		return nil, fmt.Errorf("executing script: %w", err)
	}
	return v, nil
}

func (d *driver) Screenshot(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("capturing screenshot: %w", err)
	}
	buf, err := d.wd.Screenshot()
	if err != nil {
		return nil, fmt.Errorf("capturing screenshot: %w", err)
	}
	return buf, nil
}

// Quit ends the WebDriver session and stops IEDriverServer.
func (d *driver) Quit(context.Context) error {
	d.quitOnce.Do(func() {
		if err := d.wd.Quit(); err != nil {
			d.quitErr = fmt.Errorf("quitting ie: %w", err)
		}
		d.srv.stop()
	})
	return d.quitErr
}
