package adapters

import strix "github.com/nevindra/strix"

// Subfinder wraps the subfinder subdomain discovery tool.
type Subfinder struct{ base }

func NewSubfinder() *Subfinder {
	return &Subfinder{base{strix.ToolConfig{
		Name:        "subfinder",
		Binary:      "subfinder",
		Category:    strix.CategorySubdomain,
		Description: "Subdomain discovery tool",
		Produces:    []string{"subdomain"},
		Consumes:    []string{"domain"},
	}}}
}

func (a *Subfinder) BuildCommand(target string, opts strix.Options) []string {
	argv := []string{"subfinder", "-d", target, "-silent"}
	return append(argv, opts.ExtraArgs...)
}

func (a *Subfinder) ParseOutput(output string) strix.ToolResult {
	return parseSubdomainLines("subfinder", output)
}

func (a *Subfinder) ParsePartial(output string) strix.ToolResult {
	return a.ParseOutput(output)
}
