package cmd

import (
	"errors"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/revature/scopecheck/resolver"
)

var errNoBrowser = errors.New("none of the candidate browsers could be launched")

type resolveCmd struct {
	root *rootCommand
}

func (c *resolveCmd) run(cmd *cobra.Command, _ []string) error {
	registry := c.root.gs.newRegistry(c.root.cfg, c.root.logger)
	name, attempts := resolver.New(registry, c.root.logger).ResolveWithReport(cmd.Context())

	out := cmd.OutOrStdout()
	printAttempts(out, attempts)
	if !name.Supported() {
		return withExitCode{errNoBrowser, exitNoBrowser}
	}
	_, err := fmt.Fprintf(out, "\nresolved: %s\n", color.New(color.Bold).Sprint(name))
	return err //nolint:wrapcheck
}

func getCmdResolve(root *rootCommand) *cobra.Command {
	c := &resolveCmd{root: root}

	return &cobra.Command{
		Use:   "resolve",
		Short: "Find the browser scenarios would run in",
		Long: `Try chrome, firefox, edge and ie in that order, provisioning and
launching each until one works, and print what happened to every attempt.`,
		Args: cobra.NoArgs,
		RunE: c.run,
	}
}
