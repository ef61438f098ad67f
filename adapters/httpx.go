package adapters

import (
	"encoding/json"
	"fmt"
	"strings"

	strix "github.com/nevindra/strix"
)

// Httpx wraps the httpx HTTP probe. Output is JSON lines.
type Httpx struct{ base }

func NewHttpx() *Httpx {
	return &Httpx{base{strix.ToolConfig{
		Name:        "httpx",
		Binary:      "httpx",
		Category:    strix.CategoryWebProbe,
		Description: "HTTP probe tool",
		Produces:    []string{"http_service"},
		Consumes:    []string{"domain", "subdomain", "ip"},
	}}}
}

func (a *Httpx) BuildCommand(target string, opts strix.Options) []string {
	argv := []string{
		"httpx",
		"-silent",
		"-json",
		"-status-code",
		"-tech-detect",
		"-title",
		"-host", target,
	}
	return append(argv, opts.ExtraArgs...)
}

var sensitiveTitleKeywords = []string{"admin", "login", "dashboard", "panel", "console"}

func (a *Httpx) ParseOutput(output string) strix.ToolResult {
	var assets []*strix.Asset
	var findings []*strix.Finding

	for _, line := range strings.Split(strings.TrimSpace(output), "\n") {
		if line == "" {
			continue
		}
		var data struct {
			URL        string   `json:"url"`
			StatusCode int      `json:"status_code"`
			Title      string   `json:"title"`
			Tech       []string `json:"tech"`
		}
		if err := json.Unmarshal([]byte(line), &data); err != nil || data.URL == "" {
			continue
		}

		asset := strix.NewAsset("http_service", data.URL, "httpx")
		asset.Metadata = map[string]any{
			"status_code":  data.StatusCode,
			"title":        data.Title,
			"technologies": data.Tech,
		}
		assets = append(assets, asset)

		if data.StatusCode == 401 || data.StatusCode == 403 {
			f := strix.NewFinding(strix.SeverityMedium,
				fmt.Sprintf("Protected Resource (%d)", data.StatusCode),
				data.URL,
				fmt.Sprintf("Found protected resource with status %d", data.StatusCode),
				"httpx")
			f.Evidence = fmt.Sprintf("Status: %d, Title: %s", data.StatusCode, data.Title)
			findings = append(findings, f)
		}

		title := strings.ToLower(data.Title)
		for _, kw := range sensitiveTitleKeywords {
			if strings.Contains(title, kw) {
				f := strix.NewFinding(strix.SeverityMedium,
					"Sensitive Page Detected",
					data.URL,
					"Found potentially sensitive page: "+data.Title,
					"httpx")
				f.Evidence = "Title: " + data.Title
				findings = append(findings, f)
				break
			}
		}
	}

	return strix.ToolResult{ToolName: "httpx", Success: true, Assets: assets, Findings: findings, RawOutput: output}
}

func (a *Httpx) ParsePartial(output string) strix.ToolResult {
	return a.ParseOutput(output)
}
