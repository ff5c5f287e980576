package cmd

import (
	"encoding/json"
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

// Version is the scopecheck release.
const Version = "0.1.0"

func versionString() string {
	return fmt.Sprintf("v%s (%s, %s/%s)", Version, runtime.Version(), runtime.GOOS, runtime.GOARCH)
}

type versionCmd struct {
	isJSON bool
}

func (c *versionCmd) run(cmd *cobra.Command, _ []string) error {
	if !c.isJSON {
		_, err := fmt.Fprintf(cmd.OutOrStdout(), "scopecheck %s\n", versionString())
		return err //nolint:wrapcheck
	}

	details, err := json.Marshal(map[string]string{
		"version":    Version,
		"go_version": runtime.Version(),
		"go_os":      runtime.GOOS,
		"go_arch":    runtime.GOARCH,
	})
	if err != nil {
		return fmt.Errorf("marshaling version details: %w", err)
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), string(details))
	return err //nolint:wrapcheck
}

func getCmdVersion(_ *rootCommand) *cobra.Command {
	v := &versionCmd{}

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Show application version",
		Long:  `Show the application version and exit.`,
		Args:  cobra.NoArgs,
		RunE:  v.run,
	}
	cmd.Flags().BoolVar(&v.isJSON, "json", false, "if set, output version information will be in JSON format")

	return cmd
}
