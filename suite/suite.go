// Package suite runs scenarios the way the test suite does: every scenario
// gets its own resolved browser and session, released when it is done.
package suite

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/revature/scopecheck/api"
	"github.com/revature/scopecheck/browserprocess"
	"github.com/revature/scopecheck/common"
	"github.com/revature/scopecheck/config"
	"github.com/revature/scopecheck/log"
	"github.com/revature/scopecheck/otel"
	"github.com/revature/scopecheck/resolver"
	"github.com/revature/scopecheck/scenario"
	"github.com/revature/scopecheck/session"
	"github.com/revature/scopecheck/storage"
	"github.com/revature/scopecheck/trace"
)

// Report is the outcome of one scenario run.
type Report struct {
	scenario.Result

	Browser  common.BrowserName
	Attempts []resolver.Attempt
	Session  string
	Duration time.Duration
	// Screenshot is the path of the capture taken on failure, if any.
	Screenshot string
	TraceID    string
}

// Suite runs scenarios against the fixture page.
type Suite struct {
	resolver    *resolver.Resolver
	launcher    *session.Launcher
	shots       *screenshotter
	documentURL string
	browser     common.BrowserName
	timeout     time.Duration
	tracer      *trace.Tracer
	logger      *log.Logger
}

// Option configures a Suite.
type Option func(*Suite)

// WithTracer records every scenario run as spans of tracer.
func WithTracer(tracer *trace.Tracer) Option {
	return func(s *Suite) { s.tracer = tracer }
}

// New returns a Suite configured from cfg, launching browsers from
// registry. Screenshots are persisted with persister, nil meaning the
// local disk.
func New(
	cfg config.Config, registry api.Registry, persister storage.FilePersister, logger *log.Logger, opts ...Option,
) (*Suite, error) {
	u, err := scenario.DocumentURL(cfg.Document.String)
	if err != nil {
		return nil, err //nolint:wrapcheck
	}

	s := &Suite{
		resolver:    resolver.New(registry, logger),
		launcher:    session.NewLauncher(registry, logger),
		documentURL: u,
		timeout:     cfg.Timeout.Duration,
		logger:      logger,
	}
	s.launcher.Timeout = cfg.Timeout.Duration
	if cfg.Browser.Valid && cfg.Browser.String != "" {
		s.browser = common.ParseBrowserName(cfg.Browser.String)
		if !s.browser.Supported() {
			return nil, fmt.Errorf("%w: %q", common.ErrUnsupportedBrowser, cfg.Browser.String)
		}
	}
	if cfg.Artifacts.String != "" {
		s.shots = newScreenshotter(cfg.Artifacts.String, persister)
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.tracer == nil {
		s.tracer = trace.NewTracer(logger, otel.NewNoopTracerProvider(), nil)
	}

	return s, nil
}

// DocumentURL returns the URL scenarios load.
func (s *Suite) DocumentURL() string {
	return s.documentURL
}

// Run runs scs in order and returns one report per scenario. Processes of
// the run are tagged with a run ID in ctx for browserprocess.
func (s *Suite) Run(ctx context.Context, scs []scenario.Scenario) []Report {
	if browserprocess.GetRunID(ctx) == "" {
		ctx = browserprocess.WithRunID(ctx, uuid.NewString())
	}

	reports := make([]Report, 0, len(scs))
	for _, sc := range scs {
		reports = append(reports, s.runOne(ctx, sc))
	}
	return reports
}

func (s *Suite) runOne(ctx context.Context, sc scenario.Scenario) (rep Report) {
	start := time.Now()
	rep.Scenario = sc.Name

	ctx, span := s.tracer.TraceScenario(ctx, sc.Name)
	rep.TraceID = trace.GetTraceID(span.SpanContext())
	defer func() {
		rep.Duration = time.Since(start)
		span.SetAttributes(
			attribute.String("browser", rep.Browser.String()),
			attribute.String("session.id", rep.Session),
		)
		trace.End(span, rep.Failure())
	}()

	_, step := s.tracer.TraceStep(ctx, "resolve")
	rep.Browser, rep.Attempts = s.resolve(ctx)
	step.SetAttributes(attribute.String("browser", rep.Browser.String()))
	trace.End(step, nil)

	lctx, step := s.tracer.TraceStep(ctx, "launch", attribute.String("browser", rep.Browser.String()))
	sess, err := s.launcher.Launch(lctx, rep.Browser)
	trace.End(step, err)
	if err != nil {
		rep.Err = err
		return rep
	}
	defer sess.Release()
	rep.Session = sess.ID()

	runCtx, step := s.tracer.TraceStep(ctx, "run", attribute.String("function", sc.Function))
	if s.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(runCtx, s.timeout)
		defer cancel()
	}
	rep.Result = scenario.Run(runCtx, sess, s.documentURL, sc)
	trace.End(step, rep.Failure())

	if !rep.Passed() && s.shots != nil {
		sctx, step := s.tracer.TraceStep(ctx, "screenshot")
		path, err := s.shots.capture(sctx, sess.Driver(), sc.Name, rep.Browser.String(), rep.Session)
		trace.End(step, err)
		if err != nil {
			s.logger.Warnf("suite", "scenario %s: %v", sc.Name, err)
		}
		rep.Screenshot = path
	}
	s.logger.Debugf("suite", "scenario %s on %s passed:%t", sc.Name, rep.Browser, rep.Passed())

	return rep
}

// resolve returns the configured browser, or the first one that can be
// launched. It resolves anew for every scenario.
func (s *Suite) resolve(ctx context.Context) (common.BrowserName, []resolver.Attempt) {
	if s.browser.Supported() {
		return s.browser, nil
	}
	return s.resolver.ResolveWithReport(ctx)
}
