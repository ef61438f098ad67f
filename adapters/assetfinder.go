package adapters

import strix "github.com/nevindra/strix"

// Assetfinder wraps assetfinder subdomain discovery.
type Assetfinder struct{ base }

func NewAssetfinder() *Assetfinder {
	return &Assetfinder{base{strix.ToolConfig{
		Name:        "assetfinder",
		Binary:      "assetfinder",
		Category:    strix.CategorySubdomain,
		Description: "Find subdomains and related domains",
		Produces:    []string{"subdomain"},
		Consumes:    []string{"domain"},
	}}}
}

func (a *Assetfinder) BuildCommand(target string, opts strix.Options) []string {
	argv := []string{"assetfinder", "--subs-only", target}
	return append(argv, opts.ExtraArgs...)
}

func (a *Assetfinder) ParseOutput(output string) strix.ToolResult {
	return parseSubdomainLines("assetfinder", output)
}

func (a *Assetfinder) ParsePartial(output string) strix.ToolResult {
	return a.ParseOutput(output)
}
