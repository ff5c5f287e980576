// Package config holds the scopecheck settings read from the environment
// and the command line.
package config

import (
	"fmt"
	"time"

	"github.com/mstoykov/envconfig"
	"gopkg.in/guregu/null.v3"

	"github.com/revature/scopecheck/scenario"
)

// Config holds all the settings. Unset fields fall back to NewConfig's
// defaults.
//
//nolint:lll
type Config struct {
	// Browser skips resolution and always uses this browser.
	Browser  null.String `json:"browser" envconfig:"SCOPECHECK_BROWSER"`
	Document null.String `json:"document" envconfig:"SCOPECHECK_DOCUMENT"`

	DriverCache  null.String `json:"driverCache" envconfig:"SCOPECHECK_DRIVER_CACHE"`
	ChromePath   null.String `json:"chromePath" envconfig:"SCOPECHECK_CHROME_PATH"`
	EdgePath     null.String `json:"edgePath" envconfig:"SCOPECHECK_EDGE_PATH"`
	FirefoxPath  null.String `json:"firefoxPath" envconfig:"SCOPECHECK_FIREFOX_PATH"`
	IEDriverPath null.String `json:"ieDriverPath" envconfig:"SCOPECHECK_IEDRIVER_PATH"`
	IEDriverURL  null.String `json:"ieDriverURL" envconfig:"SCOPECHECK_IEDRIVER_URL"`

	// Artifacts is where failure screenshots go. Empty disables them.
	Artifacts null.String  `json:"artifacts" envconfig:"SCOPECHECK_ARTIFACTS"`
	Timeout   NullDuration `json:"timeout" envconfig:"SCOPECHECK_TIMEOUT"`

	// TracesOutput is none, stdout or an otel line, see
	// otel.TracerProviderFromConfigLine.
	TracesOutput   null.String `json:"tracesOutput" envconfig:"SCOPECHECK_TRACES_OUTPUT"`
	TracesMetadata null.String `json:"tracesMetadata" envconfig:"SCOPECHECK_TRACES_METADATA"`

	LogLevel          null.String `json:"logLevel" envconfig:"SCOPECHECK_LOG_LEVEL"`
	LogCategoryFilter null.String `json:"logCategoryFilter" envconfig:"SCOPECHECK_LOG_CATEGORY_FILTER"`
}

// NewConfig creates a new Config instance with default values for some fields.
func NewConfig() Config {
	return Config{
		Document:     null.NewString(scenario.DefaultDocumentPath, false),
		Timeout:      NewNullDuration(30*time.Second, false),
		LogLevel:     null.NewString("info", false),
		TracesOutput: null.NewString("none", false),
	}
}

// Apply returns c with every valid field of cfg copied over.
func (c Config) Apply(cfg Config) Config {
	if cfg.Browser.Valid {
		c.Browser = cfg.Browser
	}
	if cfg.Document.Valid {
		c.Document = cfg.Document
	}
	if cfg.DriverCache.Valid {
		c.DriverCache = cfg.DriverCache
	}
	if cfg.ChromePath.Valid {
		c.ChromePath = cfg.ChromePath
	}
	if cfg.EdgePath.Valid {
		c.EdgePath = cfg.EdgePath
	}
	if cfg.FirefoxPath.Valid {
		c.FirefoxPath = cfg.FirefoxPath
	}
	if cfg.IEDriverPath.Valid {
		c.IEDriverPath = cfg.IEDriverPath
	}
	if cfg.IEDriverURL.Valid {
		c.IEDriverURL = cfg.IEDriverURL
	}
	if cfg.Artifacts.Valid {
		c.Artifacts = cfg.Artifacts
	}
	if cfg.Timeout.Valid {
		c.Timeout = cfg.Timeout
	}
	if cfg.TracesOutput.Valid {
		c.TracesOutput = cfg.TracesOutput
	}
	if cfg.TracesMetadata.Valid {
		c.TracesMetadata = cfg.TracesMetadata
	}
	if cfg.LogLevel.Valid {
		c.LogLevel = cfg.LogLevel
	}
	if cfg.LogCategoryFilter.Valid {
		c.LogCategoryFilter = cfg.LogCategoryFilter
	}
	return c
}

// Load returns the defaults overridden by the environment, read through
// lookup (os.LookupEnv outside of tests).
func Load(lookup func(key string) (string, bool)) (Config, error) {
	envConfig := Config{}
	if err := envconfig.Process("", &envConfig, lookup); err != nil {
		return Config{}, fmt.Errorf("reading environment: %w", err)
	}

	return NewConfig().Apply(envConfig), nil
}
