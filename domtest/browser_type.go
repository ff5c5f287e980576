package domtest

import (
	"context"
	"sync"

	"github.com/revature/scopecheck/api"
	"github.com/revature/scopecheck/common"
	"github.com/revature/scopecheck/log"
)

var _ api.BrowserType = &BrowserType{}

// BrowserType hands out in-process drivers under a browser name and
// records how it was used. ProvisionErr and LaunchErr make the matching
// step fail.
type BrowserType struct {
	ProvisionErr error
	LaunchErr    error

	name   common.BrowserName
	logger *log.Logger

	mu         sync.Mutex
	provisions int
	launches   []*common.LaunchOptions
	drivers    []*Driver
}

// NewBrowserType returns a BrowserType registered as name.
func NewBrowserType(name common.BrowserName, logger *log.Logger) *BrowserType {
	return &BrowserType{name: name, logger: logger}
}

// Name returns the name the browser type was created with.
func (b *BrowserType) Name() common.BrowserName {
	return b.name
}

// Provision counts the call and returns ProvisionErr.
func (b *BrowserType) Provision(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.provisions++
	if err := ctx.Err(); err != nil {
		return err //nolint:wrapcheck
	}
	return b.ProvisionErr
}

// Launch records opts and returns a new Driver, or LaunchErr.
func (b *BrowserType) Launch(ctx context.Context, opts *common.LaunchOptions) (api.Driver, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.launches = append(b.launches, opts)
	if err := ctx.Err(); err != nil {
		return nil, err //nolint:wrapcheck
	}
	if b.LaunchErr != nil {
		return nil, b.LaunchErr
	}
	d := NewDriver(b.logger)
	b.drivers = append(b.drivers, d)

	return d, nil
}

// Provisions returns how many times Provision was called.
func (b *BrowserType) Provisions() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.provisions
}

// Launches returns the options of every Launch call, in order.
func (b *BrowserType) Launches() []*common.LaunchOptions {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]*common.LaunchOptions(nil), b.launches...)
}

// Drivers returns the drivers launched so far.
func (b *BrowserType) Drivers() []*Driver {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]*Driver(nil), b.drivers...)
}
