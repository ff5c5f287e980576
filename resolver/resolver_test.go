package resolver

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/revature/scopecheck/api"
	"github.com/revature/scopecheck/common"
	"github.com/revature/scopecheck/domtest"
	"github.com/revature/scopecheck/log"
)

type panickingBrowserType struct {
	name common.BrowserName
}

func (p panickingBrowserType) Name() common.BrowserName { return p.name }

func (p panickingBrowserType) Provision(context.Context) error { panic("driver manager exploded") }

func (p panickingBrowserType) Launch(context.Context, *common.LaunchOptions) (api.Driver, error) {
	return nil, errors.New("unreachable")
}

func newBrowserTypes() map[common.BrowserName]*domtest.BrowserType {
	bts := make(map[common.BrowserName]*domtest.BrowserType)
	for _, b := range common.CandidateBrowsers() {
		bts[b] = domtest.NewBrowserType(b, log.NewNullLogger())
	}
	return bts
}

func registryOf(bts map[common.BrowserName]*domtest.BrowserType) api.Registry {
	r := api.Registry{}
	for b, bt := range bts {
		r[b] = bt
	}
	return r
}

func TestResolveFirstSuccessWins(t *testing.T) {
	t.Parallel()

	errMissing := errors.New("not installed")
	tests := []struct {
		name            string
		provisionFails  []common.BrowserName
		launchFails     []common.BrowserName
		want            common.BrowserName
		wantAttempts    int
		wantUnprovision []common.BrowserName
	}{
		{
			name:            "chrome",
			want:            common.BrowserChrome,
			wantAttempts:    1,
			wantUnprovision: []common.BrowserName{common.BrowserFirefox, common.BrowserEdge, common.BrowserIE},
		},
		{
			name:            "firefox_after_chrome_missing",
			provisionFails:  []common.BrowserName{common.BrowserChrome},
			want:            common.BrowserFirefox,
			wantAttempts:    2,
			wantUnprovision: []common.BrowserName{common.BrowserEdge, common.BrowserIE},
		},
		{
			name:            "edge_after_launch_failures",
			launchFails:     []common.BrowserName{common.BrowserChrome, common.BrowserFirefox},
			want:            common.BrowserEdge,
			wantAttempts:    3,
			wantUnprovision: []common.BrowserName{common.BrowserIE},
		},
		{
			name:           "ie_last",
			provisionFails: []common.BrowserName{common.BrowserChrome, common.BrowserFirefox, common.BrowserEdge},
			want:           common.BrowserIE,
			wantAttempts:   4,
		},
		{
			name:           "unsupported",
			provisionFails: []common.BrowserName{common.BrowserChrome, common.BrowserEdge},
			launchFails:    []common.BrowserName{common.BrowserFirefox, common.BrowserIE},
			want:           common.BrowserUnsupported,
			wantAttempts:   4,
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			bts := newBrowserTypes()
			for _, b := range tt.provisionFails {
				bts[b].ProvisionErr = errMissing
			}
			for _, b := range tt.launchFails {
				bts[b].LaunchErr = errMissing
			}

			got, report := New(registryOf(bts), log.NewNullLogger()).ResolveWithReport(context.Background())
			assert.Equal(t, tt.want, got)
			require.Len(t, report, tt.wantAttempts)
			for i, pr := range report {
				assert.Equal(t, common.CandidateBrowsers()[i], pr.Browser)
				if pr.Browser == tt.want {
					assert.NoError(t, pr.Err)
				} else {
					assert.ErrorIs(t, pr.Err, errMissing)
				}
			}
			for _, b := range tt.wantUnprovision {
				assert.Zero(t, bts[b].Provisions(), "%s was tried", b)
			}
			if tt.want.Supported() {
				drivers := bts[tt.want].Drivers()
				require.Len(t, drivers, 1)
				assert.Equal(t, 1, drivers[0].Quits(), "trial driver not quit")
			}
		})
	}
}

func TestResolveAttemptsWithDefaultOptions(t *testing.T) {
	t.Parallel()

	bts := newBrowserTypes()
	require.Equal(t, common.BrowserChrome, New(registryOf(bts), log.NewNullLogger()).Resolve(context.Background()))

	launches := bts[common.BrowserChrome].Launches()
	require.Len(t, launches, 1)
	assert.False(t, launches[0].Headless())
	assert.Empty(t, launches[0].Args)
}

func TestResolveEmptyRegistry(t *testing.T) {
	t.Parallel()

	got, report := New(api.Registry{}, log.NewNullLogger()).ResolveWithReport(context.Background())
	assert.Equal(t, common.BrowserUnsupported, got)
	require.Len(t, report, 4)
	for _, pr := range report {
		assert.ErrorContains(t, pr.Err, "no browser type registered")
	}
}

func TestResolveCanceled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.Equal(t, common.BrowserUnsupported, New(registryOf(newBrowserTypes()), log.NewNullLogger()).Resolve(ctx))
}

func TestResolvePanicIsSkipped(t *testing.T) {
	t.Parallel()

	bts := newBrowserTypes()
	r := registryOf(bts)
	r[common.BrowserChrome] = panickingBrowserType{name: common.BrowserChrome}

	got, report := New(r, log.NewNullLogger()).ResolveWithReport(context.Background())
	assert.Equal(t, common.BrowserFirefox, got)
	assert.ErrorContains(t, report[0].Err, "driver manager exploded")
}
