package api

import (
	"context"

	"github.com/revature/scopecheck/common"
)

// BrowserType provisions and launches one kind of browser.
type BrowserType interface {
	Name() common.BrowserName
	// Provision makes the browser and any driver binary it needs available,
	// downloading them when necessary.
	Provision(ctx context.Context) error
	Launch(ctx context.Context, opts *common.LaunchOptions) (Driver, error)
}

// Registry maps browser names to the browser type launching them.
type Registry map[common.BrowserName]BrowserType

// NewRegistry returns a registry holding bts, keyed by their names.
func NewRegistry(bts ...BrowserType) Registry {
	r := make(Registry, len(bts))
	for _, bt := range bts {
		r[bt.Name()] = bt
	}
	return r
}

// Get returns the browser type registered for b.
func (r Registry) Get(b common.BrowserName) (BrowserType, bool) {
	bt, ok := r[b]
	return bt, ok
}
