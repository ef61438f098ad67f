package adapters

import (
	"encoding/json"
	"strings"

	strix "github.com/nevindra/strix"
)

// Whatweb wraps the whatweb technology fingerprinter with JSON logging
// redirected to stdout.
type Whatweb struct{ base }

func NewWhatweb() *Whatweb {
	return &Whatweb{base{strix.ToolConfig{
		Name:        "whatweb",
		Binary:      "whatweb",
		Category:    strix.CategoryTechnology,
		Description: "Web technology fingerprinting",
		Produces:    []string{"technology"},
		Consumes:    []string{"http_service"},
	}}}
}

func (a *Whatweb) BuildCommand(target string, opts strix.Options) []string {
	argv := []string{"whatweb", "--log-json=/dev/stdout", "--quiet", target}
	return append(argv, opts.ExtraArgs...)
}

func (a *Whatweb) ParseOutput(output string) strix.ToolResult {
	var assets []*strix.Asset

	for _, line := range strings.Split(strings.TrimSpace(output), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || !strings.HasPrefix(line, "{") {
			continue
		}
		var data struct {
			Target  string                    `json:"target"`
			Plugins map[string]map[string]any `json:"plugins"`
		}
		if err := json.Unmarshal([]byte(line), &data); err != nil {
			continue
		}
		for plugin, detail := range data.Plugins {
			switch plugin {
			case "HTTPServer", "IP", "Country", "Title":
				continue
			}
			asset := strix.NewAsset("technology", plugin, "whatweb")
			asset.Metadata["target"] = data.Target
			if versions, ok := detail["version"].([]any); ok && len(versions) > 0 {
				asset.Metadata["version"] = versions[0]
			}
			assets = append(assets, asset)
		}
	}

	return strix.ToolResult{ToolName: "whatweb", Success: true, Assets: assets, RawOutput: output}
}

func (a *Whatweb) ParsePartial(output string) strix.ToolResult {
	return a.ParseOutput(output)
}
