package cmd

import (
	"github.com/spf13/pflag"
	"gopkg.in/guregu/null.v3"

	"github.com/revature/scopecheck/config"
)

func getNullString(flags *pflag.FlagSet, key string) null.String {
	v, err := flags.GetString(key)
	if err != nil {
		panic(err)
	}
	return null.NewString(v, flags.Changed(key))
}

func getNullDuration(flags *pflag.FlagSet, key string) config.NullDuration {
	v, err := flags.GetDuration(key)
	if err != nil {
		panic(err)
	}
	return config.NewNullDuration(v, flags.Changed(key))
}

func configFlagSet() *pflag.FlagSet {
	flags := pflag.NewFlagSet("", pflag.ContinueOnError)
	flags.SortFlags = false
	flags.String("browser", "", "always use this browser (chrome, firefox, edge, ie) instead of resolving one")
	flags.String("document", "", "page the scenarios load")
	flags.String("artifacts", "", "directory for failure screenshots, none when empty")
	flags.String("driver-cache", "", "directory for downloaded drivers")
	flags.Duration("timeout", 0, "timeout of each browser launch and scenario")
	flags.String("traces-output", "none", "where scenario traces go: none, stdout or otel[=<endpoint>][,proto=http|grpc]")
	flags.String("log-level", "info", "log level: trace, debug, info, warn or error")
	flags.String("log-category-filter", "", "only log categories matching this regular expression")
	return flags
}

// getConfig returns the settings given on the command line. Flags left
// alone stay invalid, so they do not override the environment.
func getConfig(flags *pflag.FlagSet) config.Config {
	return config.Config{
		Browser:           getNullString(flags, "browser"),
		Document:          getNullString(flags, "document"),
		Artifacts:         getNullString(flags, "artifacts"),
		DriverCache:       getNullString(flags, "driver-cache"),
		Timeout:           getNullDuration(flags, "timeout"),
		TracesOutput:      getNullString(flags, "traces-output"),
		LogLevel:          getNullString(flags, "log-level"),
		LogCategoryFilter: getNullString(flags, "log-category-filter"),
	}
}
