package adapters

import strix "github.com/nevindra/strix"

// Amass wraps amass passive subdomain enumeration.
type Amass struct{ base }

func NewAmass() *Amass {
	return &Amass{base{strix.ToolConfig{
		Name:        "amass",
		Binary:      "amass",
		Category:    strix.CategorySubdomain,
		Description: "Advanced subdomain enumeration",
		Timeout:     600,
		Produces:    []string{"subdomain"},
		Consumes:    []string{"domain"},
	}}}
}

func (a *Amass) BuildCommand(target string, opts strix.Options) []string {
	argv := []string{"amass", "enum", "-d", target, "-passive"}
	return append(argv, opts.ExtraArgs...)
}

func (a *Amass) ParseOutput(output string) strix.ToolResult {
	return parseSubdomainLines("amass", output)
}

func (a *Amass) ParsePartial(output string) strix.ToolResult {
	return a.ParseOutput(output)
}
