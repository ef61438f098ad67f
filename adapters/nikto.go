package adapters

import (
	"regexp"
	"strings"

	strix "github.com/nevindra/strix"
)

// Nikto wraps the nikto web server scanner. Findings are the "+"-prefixed
// lines in plain output.
type Nikto struct{ base }

func NewNikto() *Nikto {
	return &Nikto{base{strix.ToolConfig{
		Name:        "nikto",
		Binary:      "nikto",
		Category:    strix.CategoryVulnerability,
		Description: "Web server scanner",
		Timeout:     600,
		Produces:    []string{"vulnerability"},
		Consumes:    []string{"http_service"},
	}}}
}

func (a *Nikto) BuildCommand(target string, opts strix.Options) []string {
	argv := []string{"nikto", "-h", target, "-nointeractive"}
	return append(argv, opts.ExtraArgs...)
}

var niktoOSVDBRe = regexp.MustCompile(`OSVDB-(\d+)`)

var niktoSeverityKeywords = []struct {
	keywords []string
	severity strix.Severity
}{
	{[]string{"sql injection", "remote code", "command execution", "arbitrary file upload"}, strix.SeverityCritical},
	{[]string{"xss", "cross-site", "directory traversal", "file inclusion", "authentication bypass"}, strix.SeverityHigh},
	{[]string{"directory indexing", "backup file", "default file", "config", "admin"}, strix.SeverityMedium},
	{[]string{"header", "cookie", "method"}, strix.SeverityLow},
}

func (a *Nikto) ParseOutput(output string) strix.ToolResult {
	var findings []*strix.Finding

	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "+ ") {
			continue
		}
		text := strings.TrimSpace(strings.TrimPrefix(line, "+ "))
		if text == "" || strings.HasPrefix(text, "Target") || strings.HasPrefix(text, "Start Time") ||
			strings.HasPrefix(text, "End Time") || strings.HasPrefix(text, "Server:") {
			continue
		}

		severity := strix.SeverityInfo
		lower := strings.ToLower(text)
	match:
		for _, group := range niktoSeverityKeywords {
			for _, kw := range group.keywords {
				if strings.Contains(lower, kw) {
					severity = group.severity
					break match
				}
			}
		}

		title := text
		if len(title) > 80 {
			title = title[:80] + "..."
		}
		f := strix.NewFinding(severity, title, "", text, "nikto")
		if m := niktoOSVDBRe.FindStringSubmatch(text); m != nil {
			f.Metadata["osvdb"] = m[1]
		}
		findings = append(findings, f)
	}

	return strix.ToolResult{ToolName: "nikto", Success: true, Findings: findings, RawOutput: output}
}

func (a *Nikto) ParsePartial(output string) strix.ToolResult {
	return a.ParseOutput(output)
}
