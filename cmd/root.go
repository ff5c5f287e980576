// Package cmd implements the scopecheck command line.
package cmd

import (
	"context"
	"fmt"

	"github.com/fatih/color"
	"github.com/mattn/go-colorable"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/revature/scopecheck/config"
	"github.com/revature/scopecheck/log"
)

var bannerColor = color.New(color.FgCyan) //nolint:gochecknoglobals

type rootCommand struct {
	gs  *globalState
	cmd *cobra.Command

	noColor   bool
	logFormat string

	cfg    config.Config
	logger *log.Logger
}

func newRootCommand(gs *globalState) *rootCommand {
	c := &rootCommand{gs: gs}
	c.cmd = &cobra.Command{
		Use:               "scopecheck",
		Short:             "check JavaScript variable scope in a real browser",
		Long:              bannerColor.Sprint("\nscopecheck runs the variable scope scenarios against the first browser it can launch."),
		Version:           versionString(),
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: c.persistentPreRunE,
	}
	c.cmd.PersistentFlags().AddFlagSet(c.rootCmdPersistentFlagSet())
	c.cmd.SetArgs(gs.args[1:])
	c.cmd.SetOut(gs.stdout)
	c.cmd.SetErr(gs.stderr)
	c.cmd.AddCommand(
		getCmdResolve(c),
		getCmdRun(c),
		getCmdVersion(c),
	)

	return c
}

func (c *rootCommand) rootCmdPersistentFlagSet() *pflag.FlagSet {
	flags := configFlagSet()
	flags.BoolVar(&c.noColor, "no-color", false, "disable colored output")
	flags.StringVar(&c.logFormat, "log-format", "", "log output format: text or json")
	return flags
}

func (c *rootCommand) persistentPreRunE(cmd *cobra.Command, _ []string) error {
	envCfg, err := config.Load(c.gs.lookupEnv)
	if err != nil {
		return withExitCodeIfNone(err, exitInvalidConfig)
	}
	c.cfg = envCfg.Apply(getConfig(cmd.Flags()))

	if c.noColor {
		if !color.NoColor {
			color.NoColor = true
		}
		c.gs.stdout = colorable.NewNonColorable(c.gs.stdout)
		c.gs.stderr = colorable.NewNonColorable(c.gs.stderr)
		c.gs.logger.SetOutput(c.gs.stderr)
		cmd.SetOut(c.gs.stdout)
	}
	switch c.logFormat {
	case "json":
		c.gs.logger.SetFormatter(&logrus.JSONFormatter{})
	case "", "text":
		c.gs.logger.SetFormatter(&logrus.TextFormatter{ForceColors: c.gs.stderrTTY, DisableColors: c.noColor})
	default:
		return withExitCode{fmt.Errorf("unsupported log format %q", c.logFormat), exitInvalidConfig}
	}

	c.logger = log.New(c.gs.logger, nil)
	if err := c.logger.SetLevel(c.cfg.LogLevel.String); err != nil {
		return withExitCode{err, exitInvalidConfig}
	}
	if err := c.logger.SetCategoryFilter(c.cfg.LogCategoryFilter.String); err != nil {
		return withExitCode{err, exitInvalidConfig}
	}
	c.logger.Debugf("cmd", "scopecheck %s", versionString())

	return nil
}

func (c *rootCommand) execute() {
	ctx, cancel := context.WithCancel(c.gs.ctx)
	defer cancel()

	err := c.cmd.ExecuteContext(ctx)
	if err == nil {
		return
	}
	c.gs.logger.Error(err)
	c.gs.osExit(errorExitCode(err))
}

// Execute runs the command line. It is called by main.main.
func Execute() {
	gs := newGlobalState(context.Background())
	newRootCommand(gs).execute()
}
