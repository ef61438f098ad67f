package adapters

import (
	"encoding/json"

	strix "github.com/nevindra/strix"
)

// Wpscan wraps the WPScan WordPress scanner. Output is a single JSON
// document, so there is no useful partial parse.
type Wpscan struct{ base }

func NewWpscan() *Wpscan {
	return &Wpscan{base{strix.ToolConfig{
		Name:        "wpscan",
		Binary:      "wpscan",
		Category:    strix.CategoryVulnerability,
		Description: "WordPress vulnerability scanner",
		Timeout:     600,
		Produces:    []string{"vulnerability"},
		Consumes:    []string{"http_service"},
	}}}
}

func (a *Wpscan) BuildCommand(target string, opts strix.Options) []string {
	argv := []string{"wpscan", "--url", target, "--format", "json", "--no-banner"}
	return append(argv, opts.ExtraArgs...)
}

type wpscanVuln struct {
	Title   string `json:"title"`
	FixedIn string `json:"fixed_in"`
}

func (a *Wpscan) ParseOutput(output string) strix.ToolResult {
	var doc struct {
		Version *struct {
			Number          string       `json:"number"`
			Status          string       `json:"status"`
			Vulnerabilities []wpscanVuln `json:"vulnerabilities"`
		} `json:"version"`
		Plugins map[string]struct {
			Version *struct {
				Number string `json:"number"`
			} `json:"version"`
			Vulnerabilities []wpscanVuln `json:"vulnerabilities"`
		} `json:"plugins"`
		Themes map[string]struct {
			Vulnerabilities []wpscanVuln `json:"vulnerabilities"`
		} `json:"themes"`
	}
	if err := json.Unmarshal([]byte(output), &doc); err != nil {
		return strix.ToolResult{ToolName: "wpscan", Error: "json parse: " + err.Error(), RawOutput: output}
	}

	var assets []*strix.Asset
	var findings []*strix.Finding

	if doc.Version != nil && doc.Version.Number != "" {
		asset := strix.NewAsset("technology", "WordPress "+doc.Version.Number, "wpscan")
		asset.Metadata["status"] = doc.Version.Status
		assets = append(assets, asset)

		if doc.Version.Status == "insecure" {
			f := strix.NewFinding(strix.SeverityHigh,
				"Outdated WordPress Core",
				"",
				"WordPress "+doc.Version.Number+" is marked insecure",
				"wpscan")
			f.Recommendations = []string{"Update WordPress core to the latest release"}
			findings = append(findings, f)
		}
		for _, v := range doc.Version.Vulnerabilities {
			findings = append(findings, wpscanFinding(strix.SeverityHigh, v, "core"))
		}
	}

	for name, plugin := range doc.Plugins {
		for _, v := range plugin.Vulnerabilities {
			findings = append(findings, wpscanFinding(strix.SeverityHigh, v, "plugin "+name))
		}
	}
	for name, theme := range doc.Themes {
		for _, v := range theme.Vulnerabilities {
			findings = append(findings, wpscanFinding(strix.SeverityMedium, v, "theme "+name))
		}
	}

	return strix.ToolResult{ToolName: "wpscan", Success: true, Assets: assets, Findings: findings, RawOutput: output}
}

func wpscanFinding(severity strix.Severity, v wpscanVuln, component string) *strix.Finding {
	f := strix.NewFinding(severity, v.Title, "",
		"WordPress "+component+" vulnerability: "+v.Title, "wpscan")
	if v.FixedIn != "" {
		f.Recommendations = []string{"Update to version " + v.FixedIn + " or later"}
	}
	f.Metadata["component"] = component
	return f
}
