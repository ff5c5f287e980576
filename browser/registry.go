// Package browser wires the browser backends into a registry.
package browser

import (
	"path/filepath"

	"github.com/revature/scopecheck/api"
	"github.com/revature/scopecheck/chromium"
	"github.com/revature/scopecheck/common"
	"github.com/revature/scopecheck/config"
	"github.com/revature/scopecheck/firefox"
	"github.com/revature/scopecheck/iexplorer"
	"github.com/revature/scopecheck/log"
	"github.com/revature/scopecheck/provision"
)

// NewRegistry returns a registry holding a browser type for every
// supported browser, configured from cfg.
func NewRegistry(cfg config.Config, logger *log.Logger) api.Registry {
	prov := provision.New(cfg.DriverCache.String, logger)
	playwrightDir := ""
	if cfg.DriverCache.String != "" {
		playwrightDir = filepath.Join(cfg.DriverCache.String, "playwright")
	}

	return api.NewRegistry(
		chromium.NewBrowserType(common.BrowserChrome, cfg.ChromePath.String, prov, logger),
		firefox.NewBrowserType(cfg.FirefoxPath.String, playwrightDir, logger),
		chromium.NewBrowserType(common.BrowserEdge, cfg.EdgePath.String, prov, logger),
		iexplorer.NewBrowserType(cfg.IEDriverPath.String, cfg.IEDriverURL.String, prov, logger),
	)
}
