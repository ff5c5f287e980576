// Package iexplorer launches Internet Explorer through IEDriverServer and
// the WebDriver protocol.
package iexplorer

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os/exec"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/tebeka/selenium"

	"github.com/revature/scopecheck/api"
	"github.com/revature/scopecheck/browserprocess"
	"github.com/revature/scopecheck/common"
	"github.com/revature/scopecheck/log"
	"github.com/revature/scopecheck/provision"
)

// ErrNotWindows is returned when provisioning Internet Explorer anywhere
// but on Windows.
var ErrNotWindows = errors.New("internet explorer is only available on windows")

const (
	driverName    = "IEDriverServer.exe"
	readyInterval = 100 * time.Millisecond
)

//nolint:gochecknoglobals
var (
	goos      = runtime.GOOS
	newRemote = selenium.NewRemote
)

var _ api.BrowserType = &BrowserType{}

// BrowserType provisions and launches Internet Explorer.
type BrowserType struct {
	driverPath  string
	downloadURL string
	prov        *provision.Provisioner
	logger      *log.Logger
}

// NewBrowserType returns the Internet Explorer browser type. driverPath
// overrides where IEDriverServer is looked up; downloadURL is where it is
// fetched from when it cannot be found.
func NewBrowserType(driverPath, downloadURL string, prov *provision.Provisioner, logger *log.Logger) *BrowserType {
	return &BrowserType{
		driverPath:  driverPath,
		downloadURL: downloadURL,
		prov:        prov,
		logger:      logger,
	}
}

// Name returns common.BrowserIE.
func (b *BrowserType) Name() common.BrowserName {
	return common.BrowserIE
}

// Provision locates IEDriverServer, downloading it into the driver cache
// if needed, and checks that it runs.
func (b *BrowserType) Provision(ctx context.Context) error {
	if goos != "windows" {
		return fmt.Errorf("provisioning ie: %w", ErrNotWindows)
	}

	path, err := b.locate()
	if errors.Is(err, provision.ErrNotFound) && b.driverPath == "" && b.downloadURL != "" {
		path, err = b.prov.Download(ctx, b.downloadURL, driverName)
	}
	if err != nil {
		return fmt.Errorf("provisioning ie: %w", err)
	}

	v, err := b.prov.Version(ctx, path)
	if err != nil {
		return fmt.Errorf("provisioning ie: %w", err)
	}
	b.logger.Debugf("iexplorer:Provision", "IEDriverServer %s at %q", v, path)

	return nil
}

func (b *BrowserType) locate() (string, error) {
	if b.driverPath != "" {
		return b.prov.Locate(b.driverPath) //nolint:wrapcheck
	}
	return b.prov.Locate(driverName, "IEDriverServer") //nolint:wrapcheck
}

// Launch starts IEDriverServer on a free local port and opens a WebDriver
// session on it.
func (b *BrowserType) Launch(ctx context.Context, opts *common.LaunchOptions) (_ api.Driver, rerr error) {
	if opts == nil {
		opts = common.NewLaunchOptions()
	}
	path := opts.ExecutablePath
	if path == "" {
		var err error
		if path, err = b.locate(); err != nil {
			return nil, fmt.Errorf("launching ie: %w", err)
		}
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = common.DefaultTimeout
	}
	launchCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	srv, err := startServer(launchCtx, path, b.logger)
	if err != nil {
		return nil, fmt.Errorf("launching ie: %w", err)
	}
	defer func() {
		if rerr != nil {
			srv.stop()
		}
	}()

	wd, err := newRemote(capabilities(opts), srv.url)
	if err != nil {
		return nil, fmt.Errorf("launching ie: opening webdriver session: %w", err)
	}
	if err := wd.SetPageLoadTimeout(timeout); err != nil {
		_ = wd.Quit()
		return nil, fmt.Errorf("launching ie: %w", err)
	}
	browserprocess.Register(ctx, b.logger, srv.pid())

	return &driver{wd: wd, srv: srv, logger: b.logger}, nil
}

// capabilities maps opts to WebDriver capabilities. Command switches only
// take effect when IE is started with CreateProcess.
func capabilities(opts *common.LaunchOptions) selenium.Capabilities {
	ieOpts := map[string]any{
		"ignoreProtectedModeSettings": true,
		"ignoreZoomSetting":           true,
	}
	if len(opts.CommandSwitches) > 0 {
		ieOpts["ie.forceCreateProcessApi"] = true
		ieOpts["ie.browserCommandLineSwitches"] = strings.Join(opts.CommandSwitches, " ")
	}

	return selenium.Capabilities{
		"browserName":  "internet explorer",
		"se:ieOptions": ieOpts,
	}
}

type server struct {
	cmd    *exec.Cmd
	done   chan struct{}
	url    string
	logger *log.Logger
}

func startServer(ctx context.Context, path string, logger *log.Logger) (*server, error) {
	port, err := freePort()
	if err != nil {
		return nil, err
	}

	cmd := exec.Command(path, "/port="+strconv.Itoa(port)) //nolint:gosec
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("starting %q: %w", path, err)
	}
	s := &server{
		cmd:    cmd,
		done:   make(chan struct{}),
		url:    "http://127.0.0.1:" + strconv.Itoa(port),
		logger: logger,
	}
	go func() {
		defer close(s.done)
		if err := cmd.Wait(); err != nil {
			logger.Debugf("iexplorer:server", "pid:%d exited: %v", cmd.Process.Pid, err)
		}
	}()

	if err := s.waitReady(ctx, "127.0.0.1:"+strconv.Itoa(port)); err != nil {
		s.stop()
		return nil, err
	}
	logger.Debugf("iexplorer:server", "IEDriverServer pid:%d listening on %s", cmd.Process.Pid, s.url)

	return s, nil
}

// waitReady polls addr until it accepts connections.
func (s *server) waitReady(ctx context.Context, addr string) error {
	var d net.Dialer
	for {
		conn, err := d.DialContext(ctx, "tcp", addr)
		if err == nil {
			_ = conn.Close()
			return nil
		}

		select {
		case <-s.done:
			return errors.New("IEDriverServer exited before accepting connections")
		case <-ctx.Done():
			return fmt.Errorf("waiting for IEDriverServer: %w", ctx.Err())
		case <-time.After(readyInterval):
		}
	}
}

func (s *server) pid() int {
	return s.cmd.Process.Pid
}

// stop kills the server and waits for it to exit.
func (s *server) stop() {
	select {
	case <-s.done:
	default:
		_ = s.cmd.Process.Kill()
		<-s.done
	}
	browserprocess.Unregister(s.pid())
}

func freePort() (int, error) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return 0, fmt.Errorf("finding a free port: %w", err)
	}
	defer l.Close() //nolint:errcheck

	return l.Addr().(*net.TCPAddr).Port, nil //nolint:forcetypeassert
}
