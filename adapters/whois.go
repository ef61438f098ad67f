package adapters

import (
	"regexp"
	"strings"

	strix "github.com/nevindra/strix"
)

// Whois wraps the whois registration lookup.
type Whois struct{ base }

func NewWhois() *Whois {
	return &Whois{base{strix.ToolConfig{
		Name:        "whois",
		Binary:      "whois",
		Category:    strix.CategoryOSINT,
		Description: "Domain registration lookup",
		Produces:    []string{"whois_info"},
		Consumes:    []string{"domain"},
	}}}
}

func (a *Whois) BuildCommand(target string, opts strix.Options) []string {
	argv := []string{"whois", target}
	return append(argv, opts.ExtraArgs...)
}

var (
	whoisRegistrarRe  = regexp.MustCompile(`(?i)Registrar:\s*(.+)`)
	whoisCreatedRe    = regexp.MustCompile(`(?i)Creation Date:\s*(.+)`)
	whoisNameServerRe = regexp.MustCompile(`(?i)Name Server:\s*(\S+)`)
)

func (a *Whois) ParseOutput(output string) strix.ToolResult {
	var assets []*strix.Asset
	var findings []*strix.Finding

	info := strix.NewAsset("whois_info", "registration", "whois")
	if m := whoisRegistrarRe.FindStringSubmatch(output); m != nil {
		info.Metadata["registrar"] = strings.TrimSpace(m[1])
	}
	if m := whoisCreatedRe.FindStringSubmatch(output); m != nil {
		info.Metadata["creation_date"] = strings.TrimSpace(m[1])
	}
	var nameservers []string
	for _, m := range whoisNameServerRe.FindAllStringSubmatch(output, -1) {
		ns := strings.ToLower(strings.TrimSpace(m[1]))
		nameservers = append(nameservers, ns)
		assets = append(assets, strix.NewAsset("nameserver", ns, "whois"))
	}
	if len(nameservers) > 0 {
		info.Metadata["nameservers"] = nameservers
	}
	if len(info.Metadata) > 0 {
		assets = append(assets, info)
	}

	if strings.Contains(strings.ToLower(output), "privacy") ||
		strings.Contains(strings.ToLower(output), "redacted") {
		f := strix.NewFinding(strix.SeverityInfo,
			"WHOIS Privacy Protection",
			"registration",
			"Domain registration details are hidden behind privacy protection",
			"whois")
		findings = append(findings, f)
	}

	return strix.ToolResult{ToolName: "whois", Success: true, Assets: assets, Findings: findings, RawOutput: output}
}
