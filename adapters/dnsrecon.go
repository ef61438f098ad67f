package adapters

import (
	"encoding/json"
	"regexp"
	"strings"

	strix "github.com/nevindra/strix"
)

// Dnsrecon wraps dnsrecon DNS enumeration. It asks for JSON on stdout and
// falls back to scraping IPs from plain output when the JSON is absent.
type Dnsrecon struct{ base }

func NewDnsrecon() *Dnsrecon {
	return &Dnsrecon{base{strix.ToolConfig{
		Name:        "dnsrecon",
		Binary:      "dnsrecon",
		Category:    strix.CategoryDNS,
		Description: "DNS enumeration and zone transfer checks",
		Produces:    []string{"dns_record", "ip"},
		Consumes:    []string{"domain"},
	}}}
}

func (a *Dnsrecon) BuildCommand(target string, opts strix.Options) []string {
	argv := []string{"dnsrecon", "-d", target, "-j", "/dev/stdout"}
	return append(argv, opts.ExtraArgs...)
}

var dnsreconIPRe = regexp.MustCompile(`\b(\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3})\b`)

func (a *Dnsrecon) ParseOutput(output string) strix.ToolResult {
	var assets []*strix.Asset

	var records []struct {
		Type    string `json:"type"`
		Name    string `json:"name"`
		Address string `json:"address"`
		Target  string `json:"target"`
	}
	start := strings.Index(output, "[")
	if start >= 0 && json.Unmarshal([]byte(output[start:]), &records) == nil {
		for _, rec := range records {
			switch strings.ToUpper(rec.Type) {
			case "A", "AAAA":
				if rec.Address == "" {
					continue
				}
				asset := strix.NewAsset("ip", rec.Address, "dnsrecon")
				asset.Metadata["hostname"] = rec.Name
				asset.Metadata["record_type"] = strings.ToUpper(rec.Type)
				assets = append(assets, asset)
			case "NS":
				value := rec.Target
				if value == "" {
					value = rec.Address
				}
				if value != "" {
					assets = append(assets, strix.NewAsset("nameserver", value, "dnsrecon"))
				}
			case "MX", "TXT", "SOA", "CNAME":
				value := rec.Target
				if value == "" {
					value = rec.Address
				}
				if value == "" {
					continue
				}
				asset := strix.NewAsset("dns_record", value, "dnsrecon")
				asset.Metadata["record_type"] = strings.ToUpper(rec.Type)
				asset.Metadata["name"] = rec.Name
				assets = append(assets, asset)
			}
		}
		return strix.ToolResult{ToolName: "dnsrecon", Success: true, Assets: assets, RawOutput: output}
	}

	seen := map[string]bool{}
	for _, m := range dnsreconIPRe.FindAllString(output, -1) {
		if m == "127.0.0.1" || m == "0.0.0.0" || seen[m] {
			continue
		}
		seen[m] = true
		assets = append(assets, strix.NewAsset("ip", m, "dnsrecon"))
	}
	return strix.ToolResult{ToolName: "dnsrecon", Success: true, Assets: assets, RawOutput: output}
}
