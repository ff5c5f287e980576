// Package firefox launches Firefox through Playwright.
package firefox

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/revature/scopecheck/api"
	"github.com/revature/scopecheck/common"
	"github.com/revature/scopecheck/log"
)

var _ api.BrowserType = &BrowserType{}

// BrowserType provisions and launches Firefox.
type BrowserType struct {
	execPath  string
	driverDir string
	logger    *log.Logger

	install func(*playwright.RunOptions) error
	run     func(*playwright.RunOptions) (*playwright.Playwright, error)
}

// NewBrowserType returns the Firefox browser type. A non-empty execPath
// launches that Firefox build instead of the one Playwright installs.
// driverDir is where the Playwright driver is installed, empty meaning
// Playwright's default.
func NewBrowserType(execPath, driverDir string, logger *log.Logger) *BrowserType {
	return &BrowserType{
		execPath:  execPath,
		driverDir: driverDir,
		logger:    logger,
		install: func(o *playwright.RunOptions) error {
			return playwright.Install(o)
		},
		run: func(o *playwright.RunOptions) (*playwright.Playwright, error) {
			return playwright.Run(o)
		},
	}
}

// Name returns common.BrowserFirefox.
func (b *BrowserType) Name() common.BrowserName {
	return common.BrowserFirefox
}

// Provision installs the Playwright driver and, unless an executable path
// is configured, Playwright's Firefox build.
func (b *BrowserType) Provision(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("provisioning firefox: %w", err)
	}
	if err := b.install(b.runOptions()); err != nil {
		return fmt.Errorf("provisioning firefox: %w", err)
	}
	b.logger.Debugf("firefox:Provision", "playwright firefox installed")

	return nil
}

// Launch starts Playwright and a Firefox instance with a single page.
func (b *BrowserType) Launch(ctx context.Context, opts *common.LaunchOptions) (_ api.Driver, rerr error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("launching firefox: %w", err)
	}
	if opts == nil {
		opts = common.NewLaunchOptions()
	}

	pw, err := b.run(b.runOptions())
	if err != nil {
		return nil, fmt.Errorf("launching firefox: starting playwright: %w", err)
	}
	defer func() {
		if rerr != nil {
			_ = pw.Stop()
		}
	}()

	browser, err := pw.Firefox.Launch(launchOptions(opts, b.execPath))
	if err != nil {
		return nil, fmt.Errorf("launching firefox: %w", err)
	}
	page, err := browser.NewPage()
	if err != nil {
		_ = browser.Close()
		return nil, fmt.Errorf("launching firefox: opening page: %w", err)
	}
	page.SetDefaultTimeout(milliseconds(timeoutOf(opts)))
	b.logger.Debugf("firefox:Launch", "firefox %s headless:%t", browser.Version(), opts.Headless())

	return &driver{pw: pw, browser: browser, page: page, logger: b.logger}, nil
}

func (b *BrowserType) runOptions() *playwright.RunOptions {
	opts := &playwright.RunOptions{
		DriverDirectory: b.driverDir,
		Browsers:        []string{"firefox"},
		Verbose:         false,
		Stdout:          io.Discard,
		Stderr:          io.Discard,
	}
	if b.execPath != "" {
		opts.SkipInstallBrowsers = true
	}
	return opts
}

// launchOptions maps opts to Playwright's. Playwright owns the headless
// switch, so headless arguments are turned into the Headless option.
func launchOptions(opts *common.LaunchOptions, execPath string) playwright.BrowserTypeLaunchOptions {
	lo := playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(opts.Headless()),
		Timeout:  playwright.Float(milliseconds(timeoutOf(opts))),
	}
	for _, a := range opts.Args {
		if common.TrimFlagDashes(a) == "headless" {
			continue
		}
		lo.Args = append(lo.Args, a)
	}
	path := opts.ExecutablePath
	if path == "" {
		path = execPath
	}
	if path != "" {
		lo.ExecutablePath = playwright.String(path)
	}

	return lo
}

func timeoutOf(opts *common.LaunchOptions) time.Duration {
	if opts.Timeout <= 0 {
		return common.DefaultTimeout
	}
	return opts.Timeout
}

func milliseconds(d time.Duration) float64 {
	return float64(d / time.Millisecond)
}
