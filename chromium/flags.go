package chromium

import (
	"fmt"
	"sort"
	"strings"

	"github.com/revature/scopecheck/common"
)

// prepareFlags returns the Chromium command line flags for opts, keyed by
// flag name without dashes.
func prepareFlags(opts *common.LaunchOptions) map[string]any {
	// After Puppeteer's and Playwright's default behavior.
	f := map[string]any{
		"disable-background-networking":                      true,
		"enable-features":                                    "NetworkService,NetworkServiceInProcess",
		"disable-background-timer-throttling":                true,
		"disable-backgrounding-occluded-windows":             true,
		"disable-breakpad":                                   true,
		"disable-component-extensions-with-background-pages": true,
		"disable-default-apps":                               true,
		"disable-dev-shm-usage":                              true,
		"disable-extensions":                                 true,
		//nolint:lll
		"disable-features":                "ImprovedCookieControls,LazyFrameLoading,GlobalMediaControls,DestroyProfileOnBrowserClose,MediaRouter,AcceptCHFrame",
		"disable-hang-monitor":            true,
		"disable-ipc-flooding-protection": true,
		"disable-popup-blocking":          true,
		"disable-prompt-on-repost":        true,
		"disable-renderer-backgrounding":  true,
		"force-color-profile":             "srgb",
		"metrics-recording-only":          true,
		"no-first-run":                    true,
		"enable-automation":               true,
		"password-store":                  "basic",
		"use-mock-keychain":               true,
		"no-service-autorun":              true,

		"no-default-browser-check": true,
		"window-size":              fmt.Sprintf("%d,%d", 800, 600),
	}
	if opts.Headless() {
		f["hide-scrollbars"] = true
		f["mute-audio"] = true
		f["blink-settings"] = "primaryHoverType=2,availableHoverTypes=2,primaryPointerType=4,availablePointerTypes=4"
	}
	if opts != nil {
		setFlagsFromArgs(f, opts.Args)
	}

	return f
}

// setFlagsFromArgs fills flags by parsing the args slice. Leading dashes
// are dropped, so "headless", "-headless" and "--headless" set the same
// flag. An argument without a value enables the flag.
func setFlagsFromArgs(flags map[string]any, args []string) {
	for _, arg := range args {
		name, value, hasValue := strings.Cut(arg, "=")
		name = common.TrimFlagDashes(name)
		if name == "" {
			continue
		}
		if !hasValue {
			flags[name] = true
			continue
		}
		flags[name] = trimQuotes(strings.TrimSpace(value))
	}
}

// parseArgs turns flags into command line arguments, sorted so the
// command line is stable.
func parseArgs(flags map[string]any) ([]string, error) {
	args := make([]string, 0, len(flags)+1)
	for name, value := range flags {
		switch value := value.(type) {
		case string:
			args = append(args, fmt.Sprintf("--%s=%s", name, value))
		case bool:
			if value {
				args = append(args, fmt.Sprintf("--%s", name))
			}
		default:
			return nil, fmt.Errorf(`invalid browser command line flag: "%s=%v"`, name, value)
		}
	}
	if _, ok := flags["remote-debugging-port"]; !ok {
		args = append(args, "--remote-debugging-port=0")
	}
	sort.Strings(args)

	return args, nil
}

func trimQuotes(s string) string {
	if len(s) >= 2 {
		if c := s[len(s)-1]; s[0] == c && (c == '"' || c == '\'') {
			return s[1 : len(s)-1]
		}
	}
	return s
}
