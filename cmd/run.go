package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/revature/scopecheck/browserprocess"
	"github.com/revature/scopecheck/common"
	"github.com/revature/scopecheck/otel"
	"github.com/revature/scopecheck/resolver"
	"github.com/revature/scopecheck/scenario"
	"github.com/revature/scopecheck/suite"
	"github.com/revature/scopecheck/trace"
)

var errInterrupted = errors.New("run interrupted")

type runCmd struct {
	root *rootCommand
}

func (c *runCmd) run(cmd *cobra.Command, args []string) error {
	scs, err := selectScenarios(args)
	if err != nil {
		return withExitCode{err, exitInvalidConfig}
	}
	runID := uuid.NewString()
	tracer, shutdown, err := c.newTracer(cmd.Context(), runID)
	if err != nil {
		return withExitCode{err, exitInvalidConfig}
	}
	defer shutdown()

	registry := c.root.gs.newRegistry(c.root.cfg, c.root.logger)
	st, err := suite.New(c.root.cfg, registry, c.root.gs.persister, c.root.logger, suite.WithTracer(tracer))
	if err != nil {
		return withExitCode{err, exitInvalidConfig}
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	ctx = browserprocess.WithRunID(ctx, runID)
	interrupted, stop := c.handleSignals(ctx, cancel)
	defer stop()

	reports := st.Run(ctx, scs)
	failed := printReports(cmd.OutOrStdout(), reports)

	select {
	case <-interrupted:
		return withExitCode{errInterrupted, exitExternalAbort}
	default:
	}
	if noBrowser(reports) {
		return withExitCode{errNoBrowser, exitNoBrowser}
	}
	if failed > 0 {
		return withExitCode{fmt.Errorf("%d of %d scenarios failed", failed, len(reports)), exitScenariosFailed}
	}
	return nil
}

// noBrowser reports whether no scenario got a browser to run in.
func noBrowser(reports []suite.Report) bool {
	if len(reports) == 0 {
		return false
	}
	for _, r := range reports {
		if !errors.Is(r.Err, common.ErrUnsupportedBrowser) {
			return false
		}
	}
	return true
}

// newTracer sets up the configured traces output. The returned func
// flushes it.
func (c *runCmd) newTracer(ctx context.Context, runID string) (*trace.Tracer, func(), error) {
	cfg := c.root.cfg
	md, err := trace.ParseMetadata(cfg.TracesMetadata.String)
	if err != nil {
		return nil, nil, err //nolint:wrapcheck
	}
	md["run.id"] = runID

	tp, err := otel.TracerProviderFromConfigLine(ctx, cfg.TracesOutput.String, c.root.gs.stdout)
	if err != nil {
		return nil, nil, fmt.Errorf("setting up traces output: %w", err)
	}
	shutdown := func() {
		sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(sctx); err != nil {
			c.root.logger.Warnf("cmd", "flushing traces: %v", err)
		}
	}

	return trace.NewTracer(c.root.logger, tp, md), shutdown, nil
}

// handleSignals cancels the run and kills its browsers on the first
// interrupt, and exits on the second. The returned channel is closed once
// the run was interrupted.
func (c *runCmd) handleSignals(ctx context.Context, cancel context.CancelFunc) (<-chan struct{}, func()) {
	gs := c.root.gs
	sigC := make(chan os.Signal, 2)
	gs.signalNotify(sigC, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	interrupted := make(chan struct{})
	done := make(chan struct{})
	go func() {
		select {
		case sig := <-sigC:
			c.root.logger.Warnf("cmd", "stopping after signal %v, send it again to exit now", sig)
			close(interrupted)
			cancel()
			browserprocess.ForceProcessShutdown(ctx)
		case <-done:
			return
		}
		select {
		case sig := <-sigC:
			c.root.logger.Errorf("cmd", "exiting after second signal %v", sig)
			gs.osExit(int(exitExternalAbort))
		case <-done:
		}
	}()

	return interrupted, func() {
		close(done)
		gs.signalStop(sigC)
	}
}

// selectScenarios returns the scenarios named in args, all of them when
// args is empty.
func selectScenarios(args []string) ([]scenario.Scenario, error) {
	if len(args) == 0 {
		return scenario.Scenarios(), nil
	}
	scs := make([]scenario.Scenario, 0, len(args))
	for _, name := range args {
		sc, ok := scenario.Lookup(name)
		if !ok {
			return nil, fmt.Errorf("unknown scenario %q", name)
		}
		scs = append(scs, sc)
	}
	return scs, nil
}

func printAttempts(w io.Writer, attempts []resolver.Attempt) {
	pass := color.New(color.FgGreen).Sprint("✓")
	fail := color.New(color.FgRed).Sprint("✗")
	for _, p := range attempts {
		if p.Err == nil {
			fmt.Fprintf(w, "  %s %s\n", pass, p.Browser)
			continue
		}
		fmt.Fprintf(w, "  %s %s: %v\n", fail, p.Browser, p.Err)
	}
}

// printReports writes one line per report and returns how many failed.
func printReports(w io.Writer, reports []suite.Report) (failed int) {
	pass := color.New(color.FgGreen).Sprint("✓")
	fail := color.New(color.FgRed).Sprint("✗")
	faint := color.New(color.Faint).SprintFunc()

	for _, r := range reports {
		mark := pass
		if !r.Passed() {
			mark = fail
			failed++
		}
		fmt.Fprintf(w, "%s %-8s %-8s %s\n", mark, r.Scenario, r.Browser, faint(r.Duration.Round(time.Millisecond)))
		if r.Passed() {
			continue
		}
		fmt.Fprintf(w, "    %v\n", r.Failure())
		if r.Screenshot != "" {
			fmt.Fprintf(w, "    screenshot: %s\n", r.Screenshot)
		}
	}
	fmt.Fprintf(w, "\n%d passed, %d failed\n", len(reports)-failed, failed)

	return failed
}

func getCmdRun(root *rootCommand) *cobra.Command {
	c := &runCmd{root: root}

	return &cobra.Command{
		Use:   "run [scenario...]",
		Short: "Run the variable scope scenarios",
		Long: `Run the named scenarios, or all of them, each in a freshly resolved
and launched headless browser. Scenarios: global, local, var, block.`,
		Example: `  scopecheck run
  scopecheck --browser firefox run var block`,
		RunE: c.run,
	}
}
