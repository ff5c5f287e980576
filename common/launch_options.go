package common

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// DefaultTimeout bounds how long launching a browser may take.
const DefaultTimeout = 30 * time.Second

// ErrUnsupportedBrowser is returned when asked to launch a browser that has
// no launch configuration.
var ErrUnsupportedBrowser = errors.New("unsupported browser")

// LaunchOptions stores browser launch options.
type LaunchOptions struct {
	// Args are passed to the browser on its command line.
	Args []string
	// CommandSwitches are passed through the driver to browsers that take
	// them separately from arguments (Internet Explorer).
	CommandSwitches []string
	ExecutablePath  string
	Timeout         time.Duration
}

// NewLaunchOptions returns the default launch options: no arguments, which
// lets the browser start with a visible window.
func NewLaunchOptions() *LaunchOptions {
	return &LaunchOptions{
		Timeout: DefaultTimeout,
	}
}

type headlessConfig struct {
	flag          string
	commandSwitch bool
}

// headlessConfigs is indexed by BrowserName. BrowserUnsupported has no
// entry on purpose.
var headlessConfigs = [...]headlessConfig{
	BrowserChrome:  {flag: "headless"},
	BrowserFirefox: {flag: "-headless"},
	BrowserEdge:    {flag: "--headless"},
	BrowserIE:      {flag: "-headless", commandSwitch: true},
}

// NewHeadlessLaunchOptions returns launch options that start b without a
// window, using the headless flag syntax b expects.
func NewHeadlessLaunchOptions(b BrowserName) (*LaunchOptions, error) {
	if !b.Supported() || int(b) >= len(headlessConfigs) || headlessConfigs[b].flag == "" {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedBrowser, b.String())
	}

	opts := NewLaunchOptions()
	hc := headlessConfigs[b]
	if hc.commandSwitch {
		opts.CommandSwitches = append(opts.CommandSwitches, hc.flag)
	} else {
		opts.Args = append(opts.Args, hc.flag)
	}

	return opts, nil
}

// Headless reports whether the options carry a headless argument or
// command switch, in any dash syntax.
func (l *LaunchOptions) Headless() bool {
	if l == nil {
		return false
	}
	for _, list := range [][]string{l.Args, l.CommandSwitches} {
		for _, a := range list {
			name, _, _ := strings.Cut(strings.TrimLeft(a, "-"), "=")
			if name == "headless" {
				return true
			}
		}
	}
	return false
}

// TrimFlagDashes strips leading dashes from a command line flag, so that
// "headless", "-headless" and "--headless" name the same flag.
func TrimFlagDashes(s string) string {
	return strings.TrimLeft(strings.TrimSpace(s), "-")
}
