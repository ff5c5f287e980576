// Package resolver picks the first browser on this machine that can be
// provisioned and launched.
package resolver

import (
	"context"
	"fmt"

	"github.com/revature/scopecheck/api"
	"github.com/revature/scopecheck/common"
	"github.com/revature/scopecheck/log"
)

// Attempt is the outcome of trying one candidate browser. Err is nil
// for the browser that was picked.
type Attempt struct {
	Browser common.BrowserName
	Err     error
}

// Resolver tries candidate browsers in a fixed order.
type Resolver struct {
	registry   api.Registry
	candidates []common.BrowserName
	logger     *log.Logger
}

// New returns a Resolver trying common.CandidateBrowsers in order.
func New(registry api.Registry, logger *log.Logger) *Resolver {
	return &Resolver{
		registry:   registry,
		candidates: common.CandidateBrowsers(),
		logger:     logger,
	}
}

// Resolve returns the first candidate that provisions and launches, or
// common.BrowserUnsupported when none does. It never fails.
func (r *Resolver) Resolve(ctx context.Context) common.BrowserName {
	b, _ := r.ResolveWithReport(ctx)
	return b
}

// ResolveWithReport is Resolve, also returning the result of every attempt
// made. Candidates after the picked one are not tried.
func (r *Resolver) ResolveWithReport(ctx context.Context) (common.BrowserName, []Attempt) {
	report := make([]Attempt, 0, len(r.candidates))
	for _, b := range r.candidates {
		err := r.attempt(ctx, b)
		report = append(report, Attempt{Browser: b, Err: err})
		if err == nil {
			r.logger.Debugf("resolver", "resolved %s", b)
			return b, report
		}
		r.logger.Debugf("resolver", "skipping %s: %v", b, err)
	}
	r.logger.Debugf("resolver", "no browser could be launched")

	return common.BrowserUnsupported, report
}

// attempt provisions b and launches it with default options, quitting the
// driver right away.
func (r *Resolver) attempt(ctx context.Context, b common.BrowserName) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("trying %s: panic: %v", b, p)
		}
	}()

	bt, ok := r.registry.Get(b)
	if !ok {
		return fmt.Errorf("no browser type registered for %s", b)
	}
	if err := bt.Provision(ctx); err != nil {
		return err //nolint:wrapcheck
	}
	d, err := bt.Launch(ctx, common.NewLaunchOptions())
	if err != nil {
		return err //nolint:wrapcheck
	}
	if err := d.Quit(ctx); err != nil {
		r.logger.Debugf("resolver", "quitting trial driver of %s: %v", b, err)
	}

	return nil
}
