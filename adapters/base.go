// Package adapters provides the concrete tool adapters: one per external
// reconnaissance binary, each exposing deterministic command construction
// and output parsing behind the strix.Adapter contract. Execution is shared
// via strix.Execute; adapters stay pure.
package adapters

import (
	"strings"

	strix "github.com/nevindra/strix"
)

// base carries the immutable tool descriptor and supplies the default
// non-success partial parse for tools without incremental output.
type base struct {
	cfg strix.ToolConfig
}

func (b base) Config() strix.ToolConfig { return b.cfg }

func (b base) ParsePartial(string) strix.ToolResult {
	return strix.ToolResult{ToolName: b.cfg.Name}
}

// parseSubdomainLines handles the plain newline-delimited hostname output
// shared by subfinder, amass, and assetfinder.
func parseSubdomainLines(tool, output string) strix.ToolResult {
	var assets []*strix.Asset
	for _, line := range strings.Split(strings.TrimSpace(output), "\n") {
		sub := strings.TrimSpace(line)
		if sub != "" && strings.Contains(sub, ".") {
			assets = append(assets, strix.NewAsset("subdomain", sub, tool))
		}
	}
	return strix.ToolResult{ToolName: tool, Success: true, Assets: assets, RawOutput: output}
}
