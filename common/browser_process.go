package common

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/exec"
	"strings"

	"github.com/revature/scopecheck/log"
	"github.com/revature/scopecheck/storage"
)

// BrowserProcess is a locally started browser that speaks CDP.
type BrowserProcess struct {
	cancel context.CancelFunc

	process *os.Process
	dataDir *storage.Dir

	processDone chan struct{}

	// Browser's WebSocket URL to speak CDP
	wsURL string

	logger *log.Logger
}

// NewLocalBrowserProcess starts a local browser process and returns a new
// BrowserProcess instance to interact with it. The process lives until ctx
// is done or Terminate is called; launchCtx only bounds the wait for the
// DevTools URL.
func NewLocalBrowserProcess(
	ctx, launchCtx context.Context, path string, args []string, dataDir *storage.Dir,
	logger *log.Logger,
) (*BrowserProcess, error) {
	ctx, cancel := context.WithCancel(ctx)

	cmd, err := execute(ctx, path, args, dataDir, logger)
	if err != nil {
		cancel()
		return nil, err
	}

	wsURL, err := parseDevToolsURL(launchCtx, cmd)
	if err != nil {
		cancel()
		<-cmd.done
		return nil, fmt.Errorf("getting DevTools URL: %w", err)
	}

	return &BrowserProcess{
		cancel:      cancel,
		process:     cmd.Process,
		dataDir:     dataDir,
		processDone: cmd.done,
		wsURL:       wsURL,
		logger:      logger,
	}, nil
}

// Terminate kills the browser process.
func (p *BrowserProcess) Terminate() {
	p.logger.Debugf("BrowserProcess:Terminate", "pid:%d", p.Pid())
	p.cancel()
}

// Done is closed once the process has exited and its data directory has
// been cleaned up.
func (p *BrowserProcess) Done() <-chan struct{} {
	return p.processDone
}

// WsURL returns the Websocket URL that the browser is listening on for CDP clients.
func (p *BrowserProcess) WsURL() string {
	return p.wsURL
}

// Pid returns the browser process ID, or -1 if this is unknown.
func (p *BrowserProcess) Pid() int {
	if p.process == nil {
		return -1
	}
	return p.process.Pid
}

// Cleanup removes the browser data directory, unless it was user supplied.
func (p *BrowserProcess) Cleanup() error {
	return p.dataDir.Cleanup() //nolint:wrapcheck
}

type command struct {
	*exec.Cmd
	done   chan struct{}
	stderr io.Reader
}

func execute(
	ctx context.Context, path string, args []string,
	dataDir *storage.Dir, logger *log.Logger,
) (command, error) {
	cmd := exec.CommandContext(ctx, path, args...)
	killAfterParent(cmd)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return command{}, fmt.Errorf("%w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return command{}, fmt.Errorf("%w", err)
	}

	// We must start the cmd before calling cmd.Wait, as otherwise the two
	// can run into a data race.
	err = cmd.Start()
	if errors.Is(err, fs.ErrNotExist) {
		return command{}, fmt.Errorf("file does not exist: %s", path)
	}
	if err != nil {
		return command{}, fmt.Errorf("%w", err)
	}
	if ctx.Err() != nil {
		return command{}, fmt.Errorf("%w", ctx.Err())
	}

	go func() { _, _ = io.Copy(io.Discard, stdout) }()

	done := make(chan struct{})
	go func() {
		defer func() {
			if err := dataDir.Cleanup(); err != nil {
				logger.Errorf("browser", "cleaning up the user data directory: %v", err)
			}
			close(done)
		}()

		if err := cmd.Wait(); err != nil && ctx.Err() == nil {
			logger.Errorf("browser",
				"process with PID %d unexpectedly ended: %v",
				cmd.Process.Pid, err)
		}
	}()

	return command{cmd, done, stderr}, nil
}

// parseDevToolsURL grabs the WebSocket address from the browser's stderr and
// returns it. If the output ends without one, it returns the first error
// the browser logged.
func parseDevToolsURL(ctx context.Context, cmd command) (string, error) {
	parser := &devToolsURLParser{
		sc: bufio.NewScanner(cmd.stderr),
	}
	done := make(chan struct{})
	go func() {
		for parser.scan() {
		}
		close(done)
		// keep draining so the browser never blocks writing to stderr
		_, _ = io.Copy(io.Discard, cmd.stderr)
	}()

	select {
	case <-done:
		if parser.url != "" {
			return parser.url, nil
		}
		return "", parser.err()
	case <-ctx.Done():
		return "", ctx.Err()
	case <-cmd.done:
		return "", errors.New("browser process ended unexpectedly")
	}
}

type devToolsURLParser struct {
	sc *bufio.Scanner

	errs []error
	url  string
}

func (p *devToolsURLParser) scan() bool {
	if !p.sc.Scan() {
		return false
	}

	const urlPrefix = "DevTools listening on "

	line := p.sc.Text()
	if strings.HasPrefix(line, urlPrefix) {
		p.url = strings.TrimPrefix(strings.TrimSpace(line), urlPrefix)
	}
	if strings.Contains(line, ":ERROR:") {
		if i := strings.Index(line, "] "); i > 0 {
			p.errs = append(p.errs, errors.New(line[i+2:]))
		}
	}

	return p.url == ""
}

func (p *devToolsURLParser) err() error {
	if len(p.errs) > 0 {
		return p.errs[0]
	}

	err := p.sc.Err()
	if errors.Is(err, fs.ErrClosed) || err == nil {
		return errors.New("browser process shutdown unexpectedly before establishing a connection")
	}

	return err //nolint:wrapcheck
}
