package chromium

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/revature/scopecheck/common"
)

func TestSetFlagsFromArgs(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		args []string
		want map[string]any
	}{
		{name: "bare", args: []string{"headless"}, want: map[string]any{"headless": true}},
		{name: "double_dash", args: []string{"--headless"}, want: map[string]any{"headless": true}},
		{name: "single_dash", args: []string{"-headless"}, want: map[string]any{"headless": true}},
		{name: "value", args: []string{"--headless=new"}, want: map[string]any{"headless": "new"}},
		{name: "quoted", args: []string{`window-size="1024,768"`}, want: map[string]any{"window-size": "1024,768"}},
		{name: "empty_value", args: []string{"proxy-server="}, want: map[string]any{"proxy-server": ""}},
		{name: "dashes_only", args: []string{"--"}, want: map[string]any{}},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			flags := map[string]any{}
			setFlagsFromArgs(flags, tt.args)
			assert.Equal(t, tt.want, flags)
		})
	}
}

func TestPrepareFlagsHeadless(t *testing.T) {
	t.Parallel()

	for _, b := range []common.BrowserName{common.BrowserChrome, common.BrowserEdge} {
		b := b
		t.Run(b.String(), func(t *testing.T) {
			t.Parallel()

			opts, err := common.NewHeadlessLaunchOptions(b)
			require.NoError(t, err)

			flags := prepareFlags(opts)
			assert.Equal(t, true, flags["headless"])
			assert.Equal(t, true, flags["hide-scrollbars"])
			assert.NotContains(t, flags, "--headless")
		})
	}
}

func TestPrepareFlagsDefaults(t *testing.T) {
	t.Parallel()

	flags := prepareFlags(common.NewLaunchOptions())
	assert.NotContains(t, flags, "headless")
	assert.NotContains(t, flags, "hide-scrollbars")
	assert.Equal(t, true, flags["no-first-run"])

	flags = prepareFlags(&common.LaunchOptions{Args: []string{"--no-first-run=false", "window-size=1280,720"}})
	assert.Equal(t, "false", flags["no-first-run"])
	assert.Equal(t, "1280,720", flags["window-size"])
}

func TestParseArgs(t *testing.T) {
	t.Parallel()

	args, err := parseArgs(map[string]any{
		"headless":      true,
		"mute-audio":    false,
		"user-data-dir": "/tmp/data",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{
		"--headless",
		"--remote-debugging-port=0",
		"--user-data-dir=/tmp/data",
	}, args)

	args, err = parseArgs(map[string]any{"remote-debugging-port": "9222"})
	require.NoError(t, err)
	assert.Equal(t, []string{"--remote-debugging-port=9222"}, args)

	_, err = parseArgs(map[string]any{"window-size": 800})
	require.ErrorContains(t, err, "invalid browser command line flag")
}
