package adapters

import (
	"encoding/json"
	"fmt"
	"strings"

	strix "github.com/nevindra/strix"
)

// Masscan wraps the masscan fast port scanner. Output is a JSON array
// written one object per line, with trailing commas and comment lines.
type Masscan struct{ base }

func NewMasscan() *Masscan {
	return &Masscan{base{strix.ToolConfig{
		Name:         "masscan",
		Binary:       "masscan",
		Category:     strix.CategoryPortScan,
		Description:  "Mass IP port scanner",
		RequiresRoot: true,
		Produces:     []string{"port"},
		Consumes:     []string{"ip"},
	}}}
}

func (a *Masscan) BuildCommand(target string, opts strix.Options) []string {
	argv := []string{"masscan", target, "-p1-65535", "--rate", "1000", "-oJ", "-"}
	if opts.Stealth {
		argv = []string{"masscan", target, "-p1-1000", "--rate", "100", "-oJ", "-"}
	}
	return append(argv, opts.ExtraArgs...)
}

func (a *Masscan) ParseOutput(output string) strix.ToolResult {
	var assets []*strix.Asset

	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(line), ","))
		if line == "" || strings.HasPrefix(line, "#") || line == "[" || line == "]" {
			continue
		}
		var data struct {
			IP    string `json:"ip"`
			Ports []struct {
				Port     int    `json:"port"`
				Protocol string `json:"proto"`
			} `json:"ports"`
		}
		if err := json.Unmarshal([]byte(line), &data); err != nil || data.IP == "" {
			continue
		}
		for _, p := range data.Ports {
			asset := strix.NewAsset("port", fmt.Sprintf("%s:%d", data.IP, p.Port), "masscan")
			asset.Metadata["port"] = fmt.Sprintf("%d", p.Port)
			asset.Metadata["protocol"] = p.Protocol
			assets = append(assets, asset)
		}
	}

	return strix.ToolResult{ToolName: "masscan", Success: true, Assets: assets, RawOutput: output}
}

func (a *Masscan) ParsePartial(output string) strix.ToolResult {
	return a.ParseOutput(output)
}
