package adapters

import (
	"encoding/json"
	"strings"

	strix "github.com/nevindra/strix"
)

// Nuclei wraps the nuclei vulnerability scanner. Output is JSON lines.
type Nuclei struct{ base }

func NewNuclei() *Nuclei {
	return &Nuclei{base{strix.ToolConfig{
		Name:        "nuclei",
		Binary:      "nuclei",
		Category:    strix.CategoryVulnerability,
		Description: "Vulnerability scanner",
		Timeout:     600,
		Produces:    []string{"vulnerability"},
		Consumes:    []string{"http_service"},
	}}}
}

func (a *Nuclei) BuildCommand(target string, opts strix.Options) []string {
	argv := []string{"nuclei", "-u", target, "-json", "-silent"}
	return append(argv, opts.ExtraArgs...)
}

var nucleiSeverities = map[string]strix.Severity{
	"critical": strix.SeverityCritical,
	"high":     strix.SeverityHigh,
	"medium":   strix.SeverityMedium,
	"low":      strix.SeverityLow,
	"info":     strix.SeverityInfo,
}

func (a *Nuclei) ParseOutput(output string) strix.ToolResult {
	var findings []*strix.Finding

	for _, line := range strings.Split(strings.TrimSpace(output), "\n") {
		if line == "" {
			continue
		}
		var data struct {
			TemplateID string `json:"template-id"`
			MatchedAt  string `json:"matched-at"`
			Info       struct {
				Name        string `json:"name"`
				Severity    string `json:"severity"`
				Description string `json:"description"`
			} `json:"info"`
		}
		if err := json.Unmarshal([]byte(line), &data); err != nil {
			continue
		}

		severity, ok := nucleiSeverities[strings.ToLower(data.Info.Severity)]
		if !ok {
			severity = strix.SeverityInfo
		}
		title := data.Info.Name
		if title == "" {
			title = data.TemplateID
		}
		description := data.Info.Description
		if description == "" {
			description = "Nuclei template: " + data.TemplateID
		}

		f := strix.NewFinding(severity, title, data.MatchedAt, description, "nuclei")
		f.Evidence = line
		f.Metadata["template_id"] = data.TemplateID
		f.Recommendations = []string{
			"Review the vulnerability details",
			"Apply patches or mitigations",
			"Verify the finding manually",
		}
		findings = append(findings, f)
	}

	return strix.ToolResult{ToolName: "nuclei", Success: true, Findings: findings, RawOutput: output}
}

func (a *Nuclei) ParsePartial(output string) strix.ToolResult {
	return a.ParseOutput(output)
}
