// Package api declares the interfaces the browser backends implement.
package api

import "context"

// Driver is a live, exclusively owned browser session.
type Driver interface {
	// Navigate loads url and waits for its load event.
	Navigate(ctx context.Context, url string) error
	// ExecuteScript runs script as the body of a function in the current
	// page and returns the value of its return statement.
	ExecuteScript(ctx context.Context, script string) (any, error)
	// Quit closes the browser. Calling it more than once is safe.
	Quit(ctx context.Context) error
}

// Screenshotter is implemented by drivers that can capture the page.
type Screenshotter interface {
	Screenshot(ctx context.Context) ([]byte, error)
}
