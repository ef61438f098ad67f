package adapters

import (
	"regexp"
	"strings"

	strix "github.com/nevindra/strix"
)

// Rustscan wraps the rustscan port scanner in greppable mode.
type Rustscan struct{ base }

func NewRustscan() *Rustscan {
	return &Rustscan{base{strix.ToolConfig{
		Name:        "rustscan",
		Binary:      "rustscan",
		Category:    strix.CategoryPortScan,
		Description: "Fast port scanner",
		Produces:    []string{"port"},
		Consumes:    []string{"ip"},
	}}}
}

func (a *Rustscan) BuildCommand(target string, opts strix.Options) []string {
	argv := []string{"rustscan", "-a", target, "--ulimit", "5000", "--greppable"}
	return append(argv, opts.ExtraArgs...)
}

// greppable output: "1.2.3.4 -> [22,80,443]"
var rustscanLineRe = regexp.MustCompile(`(\S+)\s+->\s+\[(.+)\]`)

func (a *Rustscan) ParseOutput(output string) strix.ToolResult {
	var assets []*strix.Asset

	for _, line := range strings.Split(output, "\n") {
		m := rustscanLineRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		host := m[1]
		for _, port := range strings.Split(m[2], ",") {
			port = strings.TrimSpace(port)
			if port == "" {
				continue
			}
			asset := strix.NewAsset("port", host+":"+port, "rustscan")
			asset.Metadata["port"] = port
			assets = append(assets, asset)
		}
	}

	return strix.ToolResult{ToolName: "rustscan", Success: true, Assets: assets, RawOutput: output}
}

func (a *Rustscan) ParsePartial(output string) strix.ToolResult {
	return a.ParseOutput(output)
}
