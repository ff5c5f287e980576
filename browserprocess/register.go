// Package browserprocess keeps track of the browser and driver processes
// scopecheck starts, so they can be killed when a run is aborted.
package browserprocess

import (
	"context"
	"os"
	"sync"

	"github.com/revature/scopecheck/log"
)

type processState struct {
	pid   int
	runID string
}

var (
	browserProcessRegister   = map[int]*processState{} //nolint:gochecknoglobals
	browserProcessRegisterMu = sync.Mutex{}            //nolint:gochecknoglobals
)

// Register records pid as belonging to the run in ctx.
func Register(ctx context.Context, logger *log.Logger, pid int) {
	browserProcessRegisterMu.Lock()
	defer browserProcessRegisterMu.Unlock()

	rID := GetRunID(ctx)
	logger.Debugf("BrowserProcess:register", "registered process pid %d run %q", pid, rID)

	browserProcessRegister[pid] = &processState{pid: pid, runID: rID}
}

// Unregister forgets pid, usually after the process ended normally.
func Unregister(pid int) {
	browserProcessRegisterMu.Lock()
	defer browserProcessRegisterMu.Unlock()

	delete(browserProcessRegister, pid)
}

// Registered returns the pids registered for the run in ctx, or all of
// them when ctx carries no run ID.
func Registered(ctx context.Context) []int {
	browserProcessRegisterMu.Lock()
	defer browserProcessRegisterMu.Unlock()

	rID := GetRunID(ctx)
	pids := make([]int, 0, len(browserProcessRegister))
	for pid, st := range browserProcessRegister {
		if rID != "" && st.runID != rID {
			continue
		}
		pids = append(pids, pid)
	}
	return pids
}

// ForceProcessShutdown kills every process registered for the run in ctx,
// or every registered process when ctx carries no run ID. It is meant for
// an aborting test run (interrupt, panic).
func ForceProcessShutdown(ctx context.Context) {
	pids := Registered(ctx)

	browserProcessRegisterMu.Lock()
	defer browserProcessRegisterMu.Unlock()

	for _, pid := range pids {
		Kill(pid)
		delete(browserProcessRegister, pid)
	}
}

// Kill will look for and kill the process with the given pid. It is a
// variable so tests can observe kills without killing anything.
var Kill = func(pid int) { //nolint:gochecknoglobals
	p, err := os.FindProcess(pid)
	if err != nil {
		// optimistically continue and don't kill the process
		return
	}
	// no need to check the error since we're already dying.
	_ = p.Kill()
	_ = p.Release()
}
