package cmd

import (
	"context"
	"io"
	"os"
	"os/signal"

	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"github.com/sirupsen/logrus"

	"github.com/revature/scopecheck/api"
	"github.com/revature/scopecheck/browser"
	"github.com/revature/scopecheck/config"
	"github.com/revature/scopecheck/log"
	"github.com/revature/scopecheck/storage"
)

// globalState holds everything a command touches outside of its own
// flags, so tests can swap the process environment out.
type globalState struct {
	ctx context.Context

	args      []string
	lookupEnv func(key string) (string, bool)

	stdout    io.Writer
	stderr    io.Writer
	stdoutTTY bool
	stderrTTY bool

	logger      *logrus.Logger
	newRegistry func(config.Config, *log.Logger) api.Registry
	persister   storage.FilePersister

	signalNotify func(chan<- os.Signal, ...os.Signal)
	signalStop   func(chan<- os.Signal)
	osExit       func(int)
}

func newGlobalState(ctx context.Context) *globalState {
	stdoutTTY := isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())
	stderrTTY := isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd())
	stderr := colorable.NewColorableStderr()

	return &globalState{
		ctx:       ctx,
		args:      append([]string(nil), os.Args...),
		lookupEnv: os.LookupEnv,
		stdout:    colorable.NewColorableStdout(),
		stderr:    stderr,
		stdoutTTY: stdoutTTY,
		stderrTTY: stderrTTY,
		logger: &logrus.Logger{
			Out:       stderr,
			Formatter: &logrus.TextFormatter{ForceColors: stderrTTY},
			Hooks:     make(logrus.LevelHooks),
			Level:     logrus.InfoLevel,
		},
		newRegistry:  browser.NewRegistry,
		persister:    &storage.LocalFilePersister{},
		signalNotify: signal.Notify,
		signalStop:   signal.Stop,
		osExit:       os.Exit,
	}
}
