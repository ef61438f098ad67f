package adapters

import (
	"encoding/json"
	"strings"

	strix "github.com/nevindra/strix"
)

// Dnsx wraps the dnsx resolver. Output is JSON lines with a/aaaa arrays.
type Dnsx struct{ base }

func NewDnsx() *Dnsx {
	return &Dnsx{base{strix.ToolConfig{
		Name:        "dnsx",
		Binary:      "dnsx",
		Category:    strix.CategoryDNS,
		Description: "Fast DNS resolution",
		Produces:    []string{"ip"},
		Consumes:    []string{"domain", "subdomain"},
	}}}
}

func (a *Dnsx) BuildCommand(target string, opts strix.Options) []string {
	argv := []string{"dnsx", "-silent", "-json", "-a", "-aaaa", "-host", target}
	return append(argv, opts.ExtraArgs...)
}

func (a *Dnsx) ParseOutput(output string) strix.ToolResult {
	var assets []*strix.Asset

	for _, line := range strings.Split(strings.TrimSpace(output), "\n") {
		if line == "" {
			continue
		}
		var data struct {
			Host string   `json:"host"`
			A    []string `json:"a"`
			AAAA []string `json:"aaaa"`
		}
		if err := json.Unmarshal([]byte(line), &data); err != nil {
			continue
		}
		for _, ip := range data.A {
			asset := strix.NewAsset("ip", ip, "dnsx")
			asset.Metadata["hostname"] = data.Host
			assets = append(assets, asset)
		}
		for _, ip := range data.AAAA {
			asset := strix.NewAsset("ip", ip, "dnsx")
			asset.Metadata["hostname"] = data.Host
			asset.Metadata["ipv6"] = true
			assets = append(assets, asset)
		}
	}

	return strix.ToolResult{ToolName: "dnsx", Success: true, Assets: assets, RawOutput: output}
}

func (a *Dnsx) ParsePartial(output string) strix.ToolResult {
	return a.ParseOutput(output)
}
