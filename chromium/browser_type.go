// Package chromium launches Chromium based browsers (Chrome, Edge) and
// drives them over the Chrome DevTools Protocol.
package chromium

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/revature/scopecheck/api"
	"github.com/revature/scopecheck/browserprocess"
	"github.com/revature/scopecheck/cdp"
	"github.com/revature/scopecheck/common"
	"github.com/revature/scopecheck/log"
	"github.com/revature/scopecheck/provision"
	"github.com/revature/scopecheck/storage"
)

var _ api.BrowserType = &BrowserType{}

// BrowserType provisions and launches one Chromium based browser.
type BrowserType struct {
	name     common.BrowserName
	execPath string
	prov     *provision.Provisioner
	logger   *log.Logger
}

// NewBrowserType returns the browser type for name, which must be
// BrowserChrome or BrowserEdge. A non-empty execPath is used instead of
// searching for the executable.
func NewBrowserType(
	name common.BrowserName, execPath string, prov *provision.Provisioner, logger *log.Logger,
) *BrowserType {
	return &BrowserType{
		name:     name,
		execPath: execPath,
		prov:     prov,
		logger:   logger,
	}
}

// Name returns the browser name.
func (b *BrowserType) Name() common.BrowserName {
	return b.name
}

// Provision makes sure the browser executable exists. The reported version
// is only logged: on Windows chrome.exe and msedge.exe print nothing for
// --version, so a missing version does not fail provisioning.
func (b *BrowserType) Provision(ctx context.Context) error {
	path, err := b.ExecutablePath()
	if err != nil {
		return err
	}
	v, err := b.prov.Version(ctx, path)
	if err != nil {
		b.logger.Debugf("chromium:Provision", "%s at %q reports no version: %v", b.name, path, err)
		return nil
	}
	b.logger.Debugf("chromium:Provision", "%s %s at %q", b.name, v, path)

	return nil
}

// ExecutablePath returns the path of the browser executable: the configured
// one, or the first of the well-known locations that exists.
func (b *BrowserType) ExecutablePath() (string, error) {
	if b.execPath != "" {
		return b.prov.Locate(b.execPath) //nolint:wrapcheck
	}
	path, err := b.prov.Locate(executableCandidates(b.name)...)
	if err != nil {
		return "", fmt.Errorf("locating %s: %w", b.name, err)
	}

	return path, nil
}

// Launch starts the browser with a fresh user data directory, connects to
// it over CDP and attaches to a blank page.
func (b *BrowserType) Launch(ctx context.Context, opts *common.LaunchOptions) (_ api.Driver, rerr error) {
	if opts == nil {
		opts = common.NewLaunchOptions()
	}
	path := opts.ExecutablePath
	if path == "" {
		var err error
		if path, err = b.ExecutablePath(); err != nil {
			return nil, err
		}
	}

	dataDir := &storage.Dir{}
	if err := dataDir.Make("", ""); err != nil {
		return nil, fmt.Errorf("launching %s: %w", b.name, err)
	}

	flags := prepareFlags(opts)
	flags["user-data-dir"] = dataDir.Dir
	args, err := parseArgs(flags)
	if err != nil {
		_ = dataDir.Cleanup()
		return nil, fmt.Errorf("launching %s: %w", b.name, err)
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = common.DefaultTimeout
	}
	launchCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	// The process outlives the launch call; Quit ends it.
	proc, err := common.NewLocalBrowserProcess(
		context.WithoutCancel(ctx), launchCtx, path, args, dataDir, b.logger,
	)
	if err != nil {
		_ = dataDir.Cleanup()
		return nil, fmt.Errorf("launching %s: %w", b.name, err)
	}
	defer func() {
		if rerr != nil {
			proc.Terminate()
			<-proc.Done()
		}
	}()
	b.logger.Debugf("chromium:Launch", "%s pid:%d wsURL:%q", b.name, proc.Pid(), proc.WsURL())

	client := cdp.NewClient(b.logger)
	if err := client.Connect(launchCtx, proc.WsURL()); err != nil {
		return nil, fmt.Errorf("launching %s: %w", b.name, err)
	}
	defer func() {
		if rerr != nil {
			_ = client.Close()
		}
	}()

	d, err := newDriver(launchCtx, client, proc, b.logger)
	if err != nil {
		return nil, fmt.Errorf("launching %s: %w", b.name, err)
	}
	browserprocess.Register(ctx, b.logger, proc.Pid())

	return d, nil
}

func executableCandidates(name common.BrowserName) []string {
	switch name { //nolint:exhaustive
	case common.BrowserChrome:
		return []string{
			// Unix-like
			"headless_shell",
			"headless-shell",
			"chromium",
			"chromium-browser",
			"google-chrome",
			"google-chrome-stable",
			"google-chrome-beta",
			"google-chrome-unstable",
			"/usr/bin/google-chrome",

			// Windows
			"chrome",
			"chrome.exe", // in case PATHEXT is misconfigured
			`C:\Program Files (x86)\Google\Chrome\Application\chrome.exe`,
			`C:\Program Files\Google\Chrome\Application\chrome.exe`,
			filepath.Join(os.Getenv("USERPROFILE"), `AppData\Local\Google\Chrome\Application\chrome.exe`),

			// Mac
			"/Applications/Google Chrome.app/Contents/MacOS/Google Chrome",
			"/Applications/Chromium.app/Contents/MacOS/Chromium",
		}
	case common.BrowserEdge:
		return []string{
			// Unix-like
			"microsoft-edge",
			"microsoft-edge-stable",
			"microsoft-edge-beta",
			"microsoft-edge-dev",
			"/opt/microsoft/msedge/msedge",

			// Windows
			"msedge",
			"msedge.exe",
			`C:\Program Files (x86)\Microsoft\Edge\Application\msedge.exe`,
			`C:\Program Files\Microsoft\Edge\Application\msedge.exe`,

			// Mac
			"/Applications/Microsoft Edge.app/Contents/MacOS/Microsoft Edge",
		}
	default:
		return nil
	}
}
