package adapters

import (
	"regexp"
	"strings"

	strix "github.com/nevindra/strix"
)

// Wafw00f wraps the wafw00f WAF fingerprinter.
type Wafw00f struct{ base }

func NewWafw00f() *Wafw00f {
	return &Wafw00f{base{strix.ToolConfig{
		Name:        "wafw00f",
		Binary:      "wafw00f",
		Category:    strix.CategoryTechnology,
		Description: "Web application firewall fingerprinting",
		Produces:    []string{"waf"},
		Consumes:    []string{"http_service"},
	}}}
}

func (a *Wafw00f) BuildCommand(target string, opts strix.Options) []string {
	argv := []string{"wafw00f", target}
	return append(argv, opts.ExtraArgs...)
}

var wafNameRe = regexp.MustCompile(`is behind\s+(.+?)\s*(?:\(([^)]+)\))?\s*$`)

func (a *Wafw00f) ParseOutput(output string) strix.ToolResult {
	var assets []*strix.Asset
	var findings []*strix.Finding

	for _, line := range strings.Split(output, "\n") {
		if !strings.Contains(line, "is behind") && !strings.Contains(line, "detected") {
			continue
		}
		name := ""
		if m := wafNameRe.FindStringSubmatch(line); m != nil {
			name = strings.TrimSpace(m[1])
			if m[2] != "" {
				name += " (" + m[2] + ")"
			}
		}
		if name == "" {
			continue
		}

		asset := strix.NewAsset("waf", name, "wafw00f")
		assets = append(assets, asset)

		f := strix.NewFinding(strix.SeverityInfo,
			"WAF Detected: "+name,
			"",
			"Target is protected by a web application firewall",
			"wafw00f")
		f.Evidence = strings.TrimSpace(line)
		findings = append(findings, f)
		break
	}

	return strix.ToolResult{ToolName: "wafw00f", Success: true, Assets: assets, Findings: findings, RawOutput: output}
}
