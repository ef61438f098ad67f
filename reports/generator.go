// Package reports renders completed scan sessions as markdown, HTML, or
// JSON documents.
package reports

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/yuin/goldmark"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	strix "github.com/nevindra/strix"
)

// Format selects the report output encoding.
type Format string

const (
	FormatMarkdown Format = "markdown"
	FormatHTML     Format = "html"
	FormatJSON     Format = "json"
)

var severityOrder = []strix.Severity{
	strix.SeverityCritical,
	strix.SeverityHigh,
	strix.SeverityMedium,
	strix.SeverityLow,
	strix.SeverityInfo,
}

var titleCaser = cases.Title(language.English)

// Generate renders the session in the given format.
func Generate(session *strix.ScanSession, format Format) ([]byte, error) {
	switch format {
	case FormatMarkdown:
		return []byte(Markdown(session)), nil
	case FormatHTML:
		return HTML(session)
	case FormatJSON:
		return json.MarshalIndent(session, "", "  ")
	default:
		return nil, fmt.Errorf("unknown report format %q", format)
	}
}

// Markdown renders the session as a markdown document: summary statistics,
// findings grouped by severity, then the asset inventory.
func Markdown(session *strix.ScanSession) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Reconnaissance Report: %s\n\n", session.Target)
	fmt.Fprintf(&b, "**Session:** %s\n\n", session.ID)
	fmt.Fprintf(&b, "**Started:** %s\n\n", session.StartedAt.Format("2006-01-02 15:04:05 MST"))
	if session.CompletedAt != nil {
		fmt.Fprintf(&b, "**Completed:** %s\n\n", session.CompletedAt.Format("2006-01-02 15:04:05 MST"))
		fmt.Fprintf(&b, "**Duration:** %s\n\n", session.CompletedAt.Sub(session.StartedAt).Round(time.Second))
	}

	b.WriteString("## Summary\n\n")
	fmt.Fprintf(&b, "| Metric | Count |\n|---|---|\n")
	fmt.Fprintf(&b, "| Tasks | %d |\n", len(session.Tasks))
	fmt.Fprintf(&b, "| Assets | %d |\n", len(session.Assets))
	fmt.Fprintf(&b, "| Findings | %d |\n", len(session.Findings))
	fmt.Fprintf(&b, "| Critical | %d |\n", session.CriticalCount())
	fmt.Fprintf(&b, "| High | %d |\n\n", session.HighCount())

	b.WriteString("## Findings\n\n")
	if len(session.Findings) == 0 {
		b.WriteString("No findings.\n\n")
	}
	for _, sev := range severityOrder {
		var group []*strix.Finding
		for _, f := range session.Findings {
			if f.Severity == sev {
				group = append(group, f)
			}
		}
		if len(group) == 0 {
			continue
		}
		fmt.Fprintf(&b, "### %s (%d)\n\n", titleCaser.String(string(sev)), len(group))
		for _, f := range group {
			fmt.Fprintf(&b, "#### %s\n\n", f.Title)
			if f.Host != "" {
				fmt.Fprintf(&b, "**Host:** %s\n\n", f.Host)
			}
			fmt.Fprintf(&b, "**Source:** %s\n\n", f.DiscoveredBy)
			fmt.Fprintf(&b, "%s\n\n", f.Description)
			if f.Evidence != "" {
				fmt.Fprintf(&b, "```\n%s\n```\n\n", f.Evidence)
			}
			for _, rec := range f.Recommendations {
				fmt.Fprintf(&b, "- %s\n", rec)
			}
			if len(f.Recommendations) > 0 {
				b.WriteString("\n")
			}
		}
	}

	b.WriteString("## Assets\n\n")
	if len(session.Assets) == 0 {
		b.WriteString("No assets discovered.\n")
	} else {
		b.WriteString("| Type | Value | Score | Discovered By |\n|---|---|---|---|\n")
		for _, a := range session.Assets {
			fmt.Fprintf(&b, "| %s | %s | %.0f | %s |\n", a.Type, a.Value, a.Score, a.DiscoveredBy)
		}
	}

	return b.String()
}

// HTML renders the markdown report and wraps it in a minimal page shell.
func HTML(session *strix.ScanSession) ([]byte, error) {
	var body bytes.Buffer
	if err := goldmark.Convert([]byte(Markdown(session)), &body); err != nil {
		return nil, fmt.Errorf("render html: %w", err)
	}

	var page bytes.Buffer
	fmt.Fprintf(&page, `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>Reconnaissance Report: %s</title>
<style>
body { font-family: sans-serif; max-width: 60em; margin: 2em auto; padding: 0 1em; }
table { border-collapse: collapse; }
th, td { border: 1px solid #ccc; padding: 0.3em 0.8em; text-align: left; }
pre { background: #f5f5f5; padding: 0.8em; overflow-x: auto; }
</style>
</head>
<body>
`, session.Target)
	page.Write(body.Bytes())
	page.WriteString("</body>\n</html>\n")
	return page.Bytes(), nil
}
